package collection

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Record is the normalized, render-ready view of a Release. Fields that
// are missing upstream are left empty.
type Record struct {
	ID            int64
	InstanceID    int64
	Title         string
	Artist        string
	Year          int
	Labels        []string
	CatalogNumber string
	Formats       []string
	Bucket        string
	CoverImage    string
	URL           string
	DateAdded     time.Time
	Degraded      bool
}

// Label joins all label names.
func (r Record) Label() string { return strings.Join(r.Labels, ", ") }

// Format joins the per-row format descriptions.
func (r Record) Format() string { return strings.Join(r.Formats, "; ") }

// YearString is empty for unknown years.
func (r Record) YearString() string {
	if r.Year <= 0 {
		return ""
	}
	return strconv.Itoa(r.Year)
}

// DateAddedString formats DateAdded as YYYY-MM-DD, empty when unknown.
func (r Record) DateAddedString() string {
	if r.DateAdded.IsZero() {
		return ""
	}
	return r.DateAdded.Format(time.DateOnly)
}

// Buckets lists the format buckets in display order.
var Buckets = []string{`5"`, `7"`, `8"`, `9"`, `10"`, `11"`, `12"`, "CD", "Cassette", "Other"}

const discogsSite = "https://www.discogs.com"

var (
	disambiguationRe = regexp.MustCompile(`\s+\(\d+\)$`)
	inchRe           = regexp.MustCompile(`(\d{1,2})\s*(?:"|in)`)
	resourceRe       = regexp.MustCompile(`/(releases|masters)/(\d+)`)
)

// NormalizeAll normalizes releases preserving their order.
func NormalizeAll(releases []Release) []Record {
	records := make([]Record, len(releases))
	for i, r := range releases {
		records[i] = Normalize(r)
	}
	return records
}

// Normalize converts one release into a Record.
func Normalize(r Release) Record {
	b := r.BasicInformation
	formats, tokens := formatDetails(b.Formats)

	rec := Record{
		ID:            b.ID,
		InstanceID:    r.InstanceID,
		Title:         strings.TrimSpace(b.Title),
		Artist:        artistString(b.Artists),
		Labels:        labelNames(b.Labels),
		CatalogNumber: catalogNumber(b.Labels),
		Formats:       formats,
		Bucket:        DetectBucket(tokens),
		CoverImage:    firstNonEmpty(b.CoverImage, b.Thumb),
		URL:           releaseURL(r, b),
		Degraded:      r.Degraded,
	}
	if rec.ID == 0 {
		rec.ID = r.ID
	}
	if b.Year > 0 {
		rec.Year = b.Year
	}
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(r.DateAdded)); err == nil {
		rec.DateAdded = t
	}
	return rec
}

// normalizeArtistName strips Discogs disambiguation suffixes like " (3)".
func normalizeArtistName(name string) string {
	return strings.TrimSpace(disambiguationRe.ReplaceAllString(strings.TrimSpace(name), ""))
}

func artistString(artists []Artist) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		if n := normalizeArtistName(a.Name); n != "" {
			names = append(names, n)
		}
	}
	return strings.Join(names, ", ")
}

func labelNames(labels []Label) []string {
	var names []string
	for _, l := range labels {
		if n := strings.TrimSpace(l.Name); n != "" {
			names = append(names, n)
		}
	}
	return names
}

func catalogNumber(labels []Label) string {
	for _, l := range labels {
		if c := strings.TrimSpace(l.CatNo); c != "" && !strings.EqualFold(c, "none") {
			return c
		}
	}
	return ""
}

// formatDetails returns one display string per format row plus the
// lowercase tokens used for bucket detection.
func formatDetails(rows []Format) (formatted []string, tokens []string) {
	for _, row := range rows {
		name := strings.TrimSpace(row.Name)
		qty := strings.TrimSpace(row.Qty)

		var descriptions []string
		for _, d := range row.Descriptions {
			if d = strings.TrimSpace(d); d != "" {
				descriptions = append(descriptions, d)
			}
		}

		if name != "" {
			tokens = append(tokens, strings.ToLower(name))
		}
		for _, d := range descriptions {
			tokens = append(tokens, strings.ToLower(d))
		}

		var parts []string
		if qty != "" && qty != "1" {
			parts = append(parts, qty+"x")
		}
		if name != "" {
			parts = append(parts, name)
		}
		if len(descriptions) > 0 {
			parts = append(parts, strings.Join(descriptions, ", "))
		}
		if len(parts) > 0 {
			formatted = append(formatted, strings.Join(parts, " "))
		}
	}
	return formatted, tokens
}

// DetectBucket picks the display bucket for a set of lowercase format tokens.
func DetectBucket(tokens []string) string {
	joined := strings.Join(tokens, " ")

	for _, inch := range Buckets[:7] {
		if strings.Contains(joined, inch) {
			return inch
		}
	}

	if m := inchRe.FindStringSubmatch(joined); m != nil {
		inferred := m[1] + `"`
		for _, b := range Buckets {
			if b == inferred {
				return inferred
			}
		}
	}

	switch {
	case strings.Contains(joined, "lp"):
		return `12"`
	case strings.Contains(joined, "cd"):
		return "CD"
	case strings.Contains(joined, "cassette"), strings.Contains(joined, "tape"):
		return "Cassette"
	}
	return "Other"
}

func releaseURL(r Release, b BasicInformation) string {
	if uri := strings.TrimSpace(b.URI); uri != "" {
		switch {
		case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
			return uri
		case strings.HasPrefix(uri, "/"):
			return discogsSite + uri
		default:
			return discogsSite + "/" + uri
		}
	}

	if m := resourceRe.FindStringSubmatch(b.ResourceURL); m != nil {
		kind := "release"
		if m[1] == "masters" {
			kind = "master"
		}
		return fmt.Sprintf("%s/%s/%s", discogsSite, kind, m[2])
	}

	id := b.ID
	if id == 0 {
		id = r.ID
	}
	if id > 0 {
		return fmt.Sprintf("%s/release/%d", discogsSite, id)
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
