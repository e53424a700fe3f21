package opml

import (
	"reflect"
	"strings"
	"testing"
)

const sample = `<?xml version="1.0" encoding="UTF-8"?>
<opml version="2.0">
  <head><title>Reading list</title></head>
  <body>
    <outline text="Loose" type="rss" xmlUrl="https://a.example/feed"/>
    <outline text="Fiction">
      <outline text="Serials">
        <outline text="Weekly" title="Weekly Serial" type="rss" xmlUrl=" https://b.example/rss "/>
      </outline>
      <outline text="Again" type="rss" xmlUrl="https://a.example/feed"/>
    </outline>
    <outline text="Empty folder"/>
  </body>
</opml>`

func TestParse(t *testing.T) {
	feeds, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []Feed{
		{FolderPath: nil, Title: "Loose", URL: "https://a.example/feed"},
		{FolderPath: []string{"Fiction", "Serials"}, Title: "Weekly Serial", URL: "https://b.example/rss"},
		{FolderPath: []string{"Fiction"}, Title: "Again", URL: "https://a.example/feed"},
	}
	if !reflect.DeepEqual(feeds, want) {
		t.Fatalf("feeds = %+v\nwant %+v", feeds, want)
	}

	urls := URLs(feeds)
	if len(urls) != 2 || urls[0] != "https://a.example/feed" || urls[1] != "https://b.example/rss" {
		t.Fatalf("urls = %v", urls)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse(strings.NewReader("not xml at all")); err == nil {
		t.Fatal("expected error")
	}
}
