package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Entry is one record-item block recovered from rendered HTML.
type Entry struct {
	ReleaseID     int64
	DateAdded     string
	URL           string
	Artist        string
	Title         string
	Label         string
	CatalogNumber string
	Format        string
	Year          string
	CoverImage    string
}

// ParseEntries returns the record-item blocks of a rendered fragment or
// document in document order.
func ParseEntries(r io.Reader) ([]Entry, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	entries := []Entry{}
	doc.Find("li.record-item").Each(func(_ int, s *goquery.Selection) {
		e := Entry{
			Artist:        spanText(s, "record-artist"),
			Title:         spanText(s, "record-title"),
			Label:         spanText(s, "record-label"),
			CatalogNumber: spanText(s, "record-catno"),
			Format:        spanText(s, "record-format"),
			Year:          spanText(s, "record-year"),
		}
		if id, ok := s.Attr("data-release-id"); ok {
			e.ReleaseID, _ = strconv.ParseInt(strings.TrimSpace(id), 10, 64)
		}
		e.DateAdded, _ = s.Attr("data-date-added")
		e.URL, _ = s.Find("a.record-link").First().Attr("href")
		e.CoverImage, _ = s.Find("img.record-cover").First().Attr("src")
		entries = append(entries, e)
	})
	return entries, nil
}

func spanText(s *goquery.Selection, class string) string {
	return strings.TrimSpace(s.Find("span." + class).First().Text())
}

// Verify parses rendered HTML and checks that it holds exactly want entries.
func Verify(html string, want int) ([]Entry, error) {
	entries, err := ParseEntries(strings.NewReader(html))
	if err != nil {
		return nil, &RenderError{Err: err}
	}
	if len(entries) != want {
		return entries, &RenderError{Err: fmt.Errorf("rendered %d entry blocks for %d records", len(entries), want)}
	}
	return entries, nil
}
