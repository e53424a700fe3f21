// Package present holds the presentation rules shared by the pages and the
// CLI: list paging, reader pages and the editor's media helper.
package present

import (
	"fmt"
	"regexp"
	"strings"
)

// CharsPerPage is the reader page size in characters.
const CharsPerPage = 15000

// Default list page sizes by viewport class.
const (
	PerPageNarrow = 20 // < 640px
	PerPageMedium = 21 // < 1024px; three columns divide 21 evenly
	PerPageWide   = 20
)

// PerPage returns the list page size for a viewport width in pixels.
// Zero or negative widths (unknown) use the wide layout.
func PerPage(width int) int {
	switch {
	case width <= 0:
		return PerPageWide
	case width < 640:
		return PerPageNarrow
	case width < 1024:
		return PerPageMedium
	default:
		return PerPageWide
	}
}

// Page is one window over a list.
type Page struct {
	Number int // 1-based, clamped to [1, Total]
	Total  int // 0 for an empty list
	Start  int
	End    int
}

// HasPrev reports whether a previous page exists.
func (p Page) HasPrev() bool { return p.Number > 1 }

// HasNext reports whether a next page exists.
func (p Page) HasNext() bool { return p.Number < p.Total }

// Paginate computes the slice bounds of page n over count items.
func Paginate(count, n, perPage int) Page {
	if perPage <= 0 {
		perPage = PerPageWide
	}
	total := (count + perPage - 1) / perPage
	if n > total {
		n = total
	}
	if n < 1 {
		n = 1
	}
	start := (n - 1) * perPage
	if start > count {
		start = count
	}
	end := start + perPage
	if end > count {
		end = count
	}
	return Page{Number: n, Total: total, Start: start, End: end}
}

// SplitPages cuts content into chunks of at most size characters. Cuts fall
// on rune boundaries and ignore markup, so a tag can straddle two pages.
func SplitPages(content string, size int) []string {
	if content == "" {
		return nil
	}
	if size <= 0 {
		size = CharsPerPage
	}
	runes := []rune(content)
	pages := make([]string, 0, (len(runes)+size-1)/size)
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		pages = append(pages, string(runes[i:end]))
	}
	return pages
}

// MediaKind classifies a pasted media URL.
type MediaKind int

const (
	MediaImage MediaKind = iota
	MediaVideo
	MediaYouTube
)

func (k MediaKind) String() string {
	switch k {
	case MediaVideo:
		return "video"
	case MediaYouTube:
		return "youtube"
	default:
		return "image"
	}
}

var videoSuffix = regexp.MustCompile(`(?i)\.(mp4|webm|ogg)$`)

const youtubeWatch = "youtube.com/watch?v="

// ClassifyMedia reports how a URL will be embedded.
func ClassifyMedia(url string) MediaKind {
	switch {
	case strings.Contains(url, youtubeWatch):
		return MediaYouTube
	case videoSuffix.MatchString(url):
		return MediaVideo
	default:
		return MediaImage
	}
}

// YouTubeID extracts the v= value from a watch link.
func YouTubeID(url string) string {
	_, after, ok := strings.Cut(url, "v=")
	if !ok {
		return ""
	}
	id, _, _ := strings.Cut(after, "&")
	return id
}

// MediaTag returns the markup the editor inserts for a media URL, or "" for
// a blank URL.
func MediaTag(url string) string {
	url = strings.TrimSpace(url)
	if url == "" {
		return ""
	}
	switch ClassifyMedia(url) {
	case MediaYouTube:
		return fmt.Sprintf(`<iframe width="100%%" height="315" src="https://www.youtube.com/embed/%s"></iframe>`, YouTubeID(url))
	case MediaVideo:
		return fmt.Sprintf(`<video controls src="%s" style="width:100%%"></video>`, url)
	default:
		return fmt.Sprintf(`<img src="%s" style="width:100%%">`, url)
	}
}

// InsertAt replaces content[start:end] (a caret selection, in characters) with
// text and returns the new content and the caret position after the insert.
// Out-of-range positions are clamped; end < start collapses to start.
func InsertAt(content string, start, end int, text string) (string, int) {
	runes := []rune(content)
	start = clamp(start, 0, len(runes))
	end = clamp(end, start, len(runes))
	var b strings.Builder
	b.WriteString(string(runes[:start]))
	b.WriteString(text)
	b.WriteString(string(runes[end:]))
	return b.String(), start + len([]rune(text))
}

// InsertMedia splices the tag for url into content at the caret, on its own
// line. A blank url leaves content untouched.
func InsertMedia(content string, start, end int, url string) (string, int) {
	tag := MediaTag(url)
	if tag == "" {
		return content, start
	}
	return InsertAt(content, start, end, "\n"+tag+"\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
