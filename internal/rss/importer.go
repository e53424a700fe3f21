// Package rss imports stories from RSS, Atom and JSON feeds.
package rss

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/sirupsen/logrus"

	"github.com/bryan-buckman/inkwell/internal/model"
	"github.com/bryan-buckman/inkwell/internal/stories"
)

// Concurrency settings.
const (
	// MaxConcurrencyPostgres is the number of feeds fetched in parallel on PostgreSQL.
	MaxConcurrencyPostgres = 10
	// MaxConcurrencySQLite keeps SQLite imports sequential.
	MaxConcurrencySQLite = 1
	// MaxConcurrencyPerDomain limits parallel requests to one host.
	MaxConcurrencyPerDomain = 2
	// DelayBetweenDomainRequests spaces requests to the same host.
	DelayBetweenDomainRequests = 500 * time.Millisecond

	fetchTimeout = 30 * time.Second
	userAgent    = "inkwell-import/1.0"
)

// Result summarizes one feed.
type Result struct {
	URL     string
	Title   string
	Created int
	Skipped int
	Err     error
}

// Importer turns feed items into stories.
type Importer struct {
	svc         *stories.Service
	parser      *gofeed.Parser
	concurrency int
	limiter     *domainLimiter
	log         logrus.FieldLogger

	mu   sync.Mutex
	seen map[string]bool
}

// NewImporter creates an importer whose parallelism follows the store backend.
func NewImporter(svc *stories.Service, log logrus.FieldLogger) *Importer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	concurrency := MaxConcurrencySQLite
	if svc.Store().SupportsHighConcurrency() {
		concurrency = MaxConcurrencyPostgres
	}
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	parser.Client = &http.Client{Timeout: fetchTimeout}
	return &Importer{
		svc:         svc,
		parser:      parser,
		concurrency: concurrency,
		limiter:     newDomainLimiter(MaxConcurrencyPerDomain, DelayBetweenDomainRequests),
		log:         log,
		seen:        make(map[string]bool),
	}
}

// ImportFeed fetches one feed and creates a story per new item.
func (im *Importer) ImportFeed(ctx context.Context, feedURL string) Result {
	res := Result{URL: feedURL}
	host := hostOf(feedURL)
	if err := im.limiter.acquire(ctx, host); err != nil {
		res.Err = fmt.Errorf("rate limit cancelled for %s: %w", feedURL, err)
		return res
	}
	parsed, err := im.parser.ParseURLWithContext(feedURL, ctx)
	im.limiter.release(host)
	if err != nil {
		res.Err = fmt.Errorf("parse feed %s: %w", feedURL, err)
		return res
	}
	res.Title = parsed.Title

	log := im.log.WithField("feed", feedURL)
	for _, item := range parsed.Items {
		in, ok := toStory(item)
		if !ok || !im.claim(in.Title) {
			res.Skipped++
			continue
		}
		exists, err := im.svc.Store().StoryTitleExists(ctx, in.Title)
		if err != nil {
			res.Err = fmt.Errorf("check title %q: %w", in.Title, err)
			return res
		}
		if exists {
			res.Skipped++
			continue
		}
		if _, err := im.svc.Create(ctx, in); err != nil {
			log.WithError(err).WithField("title", in.Title).Warn("create story failed")
			res.Skipped++
			continue
		}
		res.Created++
	}
	log.WithFields(logrus.Fields{"created": res.Created, "skipped": res.Skipped}).Info("feed imported")
	return res
}

// ImportAll imports feeds, sequentially on SQLite and with a worker pool
// otherwise. Results come back in input order.
func (im *Importer) ImportAll(ctx context.Context, urls []string) []Result {
	results := make([]Result, len(urls))
	if len(urls) == 0 {
		return results
	}
	im.log.WithFields(logrus.Fields{"feeds": len(urls), "concurrency": im.concurrency}).Info("importing feeds")

	if im.concurrency <= 1 {
		for i, u := range urls {
			if err := ctx.Err(); err != nil {
				results[i] = Result{URL: u, Err: err}
				continue
			}
			results[i] = im.ImportFeed(ctx, u)
		}
		return results
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < im.concurrency && w < len(urls); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = im.ImportFeed(ctx, urls[i])
			}
		}()
	}
	for i := range urls {
		if ctx.Err() != nil {
			results[i] = Result{URL: urls[i], Err: ctx.Err()}
			continue
		}
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return results
}

// claim reserves a title for this run so two feeds carrying the same item
// do not both create it.
func (im *Importer) claim(title string) bool {
	im.mu.Lock()
	defer im.mu.Unlock()
	if im.seen[title] {
		return false
	}
	im.seen[title] = true
	return true
}

func toStory(item *gofeed.Item) (model.NewStory, bool) {
	title := strings.TrimSpace(item.Title)
	content := item.Content
	if strings.TrimSpace(content) == "" {
		content = item.Description
	}
	if title == "" || strings.TrimSpace(content) == "" {
		return model.NewStory{}, false
	}
	in := model.NewStory{Title: title, Content: content}
	if cover := coverOf(item); cover != "" {
		in.CoverImage = &cover
	}
	return in, true
}

func coverOf(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if enc != nil && enc.URL != "" && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	return ""
}
