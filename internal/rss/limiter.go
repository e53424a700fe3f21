package rss

import (
	"context"
	"net/url"
	"sync"
	"time"
)

// domainLimiter caps parallel requests per host and spaces them out.
type domainLimiter struct {
	perDomain int
	delay     time.Duration

	mu          sync.Mutex
	semaphores  map[string]chan struct{}
	lastRequest map[string]time.Time
}

func newDomainLimiter(perDomain int, delay time.Duration) *domainLimiter {
	if perDomain < 1 {
		perDomain = 1
	}
	return &domainLimiter{
		perDomain:   perDomain,
		delay:       delay,
		semaphores:  make(map[string]chan struct{}),
		lastRequest: make(map[string]time.Time),
	}
}

// acquire blocks until domain has a free slot and the minimum delay since
// its last request has passed.
func (dl *domainLimiter) acquire(ctx context.Context, domain string) error {
	dl.mu.Lock()
	sem, ok := dl.semaphores[domain]
	if !ok {
		sem = make(chan struct{}, dl.perDomain)
		dl.semaphores[domain] = sem
	}
	dl.mu.Unlock()

	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	dl.mu.Lock()
	last := dl.lastRequest[domain]
	dl.mu.Unlock()
	if last.IsZero() {
		return nil
	}
	wait := dl.delay - time.Since(last)
	if wait <= 0 {
		return nil
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		<-sem
		return ctx.Err()
	}
}

// release frees the slot and records when the request finished.
func (dl *domainLimiter) release(domain string) {
	dl.mu.Lock()
	defer dl.mu.Unlock()
	dl.lastRequest[domain] = time.Now()
	if sem, ok := dl.semaphores[domain]; ok {
		<-sem
	}
}

func hostOf(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Host == "" {
		return feedURL
	}
	return u.Host
}
