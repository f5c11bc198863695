package extractor

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var dateSelectors = []struct {
	selector string
	attr     string
}{
	{`meta[property="article:published_time"]`, "content"},
	{`meta[name="article:published_time"]`, "content"},
	{`meta[name="date"]`, "content"},
	{`meta[name="pubdate"]`, "content"},
	{`meta[itemprop="datePublished"]`, "content"},
	{`[itemprop="datePublished"]`, "datetime"},
	{`time[datetime]`, "datetime"},
}

var dateLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
}

var looseDateExpr = regexp.MustCompile(`\d{1,2} [A-Za-z]{3} \d{4}`)

// publishedAt returns the first parsable publication date, or nil.
func publishedAt(doc *goquery.Document) *time.Time {
	for _, ds := range dateSelectors {
		var found *time.Time
		doc.Find(ds.selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			v, ok := s.Attr(ds.attr)
			if !ok {
				return true
			}
			if t, ok := parseDate(v); ok {
				found = &t
				return false
			}
			return true
		})
		if found != nil {
			return found
		}
	}
	return nil
}

func parseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	if match := looseDateExpr.FindString(value); match != "" {
		if t, err := time.Parse("2 Jan 2006", match); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
