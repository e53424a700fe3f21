// Package opml reads feed subscription lists for the feed importer.
package opml

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

type document struct {
	XMLName xml.Name  `xml:"opml"`
	Body    []outline `xml:"body>outline"`
}

type outline struct {
	Text     string    `xml:"text,attr"`
	Title    string    `xml:"title,attr"`
	XMLURL   string    `xml:"xmlUrl,attr"`
	Outlines []outline `xml:"outline"`
}

// Feed is one subscription with the folders it was nested under.
type Feed struct {
	FolderPath []string // e.g. ["Fiction", "Serials"]
	Title      string
	URL        string
}

// Parse reads an OPML document and flattens its outlines into feeds, in
// document order. Outlines without an xmlUrl are treated as folders.
func Parse(r io.Reader) ([]Feed, error) {
	var doc document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode opml: %w", err)
	}
	var feeds []Feed
	var walk func(outlines []outline, path []string)
	walk = func(outlines []outline, path []string) {
		for _, o := range outlines {
			if u := strings.TrimSpace(o.XMLURL); u != "" {
				title := o.Title
				if title == "" {
					title = o.Text
				}
				feeds = append(feeds, Feed{
					FolderPath: append([]string(nil), path...),
					Title:      title,
					URL:        u,
				})
				continue
			}
			name := o.Text
			if name == "" {
				name = o.Title
			}
			walk(o.Outlines, append(path[:len(path):len(path)], name))
		}
	}
	walk(doc.Body, nil)
	return feeds, nil
}

// URLs returns the distinct feed URLs, first occurrence first.
func URLs(feeds []Feed) []string {
	seen := make(map[string]bool, len(feeds))
	var out []string
	for _, f := range feeds {
		if seen[f.URL] {
			continue
		}
		seen[f.URL] = true
		out = append(out, f.URL)
	}
	return out
}
