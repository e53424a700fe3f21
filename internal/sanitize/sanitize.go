// Package sanitize holds the markup policies applied to story content.
package sanitize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Policy names accepted in configuration.
const (
	PolicyNone = "none"
	PolicyUGC  = "ugc"
)

// Sanitizer rewrites story markup before it is stored or rendered.
type Sanitizer interface {
	Name() string
	Sanitize(html string) string
}

// New returns the sanitizer for a policy name. An empty name means PolicyNone.
func New(name string) (Sanitizer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyNone:
		return verbatim{}, nil
	case PolicyUGC:
		return newUGC(), nil
	default:
		return nil, fmt.Errorf("unknown sanitize policy %q (want %q or %q)", name, PolicyNone, PolicyUGC)
	}
}

// verbatim keeps content byte for byte, scripts included.
type verbatim struct{}

func (verbatim) Name() string                { return PolicyNone }
func (verbatim) Sanitize(html string) string { return html }

type ugc struct {
	p *bluemonday.Policy
}

var youtubeEmbed = regexp.MustCompile(`^https://www\.youtube\.com/embed/[A-Za-z0-9_-]+$`)

func newUGC() *ugc {
	p := bluemonday.UGCPolicy()
	p.AllowStandardURLs()
	p.AllowStyles("width").Matching(regexp.MustCompile(`^\d+(%|px)$`)).Globally()

	// Markup produced by the editor's media helper.
	p.AllowElements("video")
	p.AllowAttrs("controls").OnElements("video")
	p.AllowAttrs("src").OnElements("video")
	p.AllowAttrs("src").Matching(youtubeEmbed).OnElements("iframe")
	p.AllowAttrs("width", "height").Matching(regexp.MustCompile(`^\d+%?$`)).OnElements("iframe")
	p.AllowAttrs("allowfullscreen").OnElements("iframe")
	return &ugc{p: p}
}

func (u *ugc) Name() string { return PolicyUGC }

func (u *ugc) Sanitize(html string) string {
	return u.p.Sanitize(html)
}
