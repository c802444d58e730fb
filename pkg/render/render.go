// Package render turns normalized collection records into the record list
// HTML and parses rendered output back into entries.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/herbadis/recordsync/pkg/collection"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// Mode selects the shape of the output.
type Mode string

const (
	// ModeFragment emits only the <ul class="record-list"> block.
	ModeFragment Mode = "fragment"
	// ModeDocument emits a standalone page with an embedded stylesheet.
	ModeDocument Mode = "document"
)

// Layout selects how entries are ordered.
type Layout string

const (
	// LayoutList keeps API order.
	LayoutList Layout = "list"
	// LayoutGrouped sections entries by format bucket, sorted by artist then title.
	LayoutGrouped Layout = "grouped"
)

const (
	DefaultHeading = "Discogs Collection Sync"
	DefaultTitle   = "Record List"
	syncedLayout   = "January 02, 2006 15:04"
	otherBucket    = "Other"
)

// ParseMode validates a mode name. Empty means fragment.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeFragment, nil
	case ModeFragment, ModeDocument:
		return m, nil
	default:
		return "", fmt.Errorf("unknown render mode %q (want fragment or document)", s)
	}
}

// ParseLayout validates a layout name. Empty means list.
func ParseLayout(s string) (Layout, error) {
	switch l := Layout(strings.ToLower(strings.TrimSpace(s))); l {
	case "":
		return LayoutList, nil
	case LayoutList, LayoutGrouped:
		return l, nil
	default:
		return "", fmt.Errorf("unknown layout %q (want list or grouped)", s)
	}
}

// Options controls rendering.
type Options struct {
	Mode     Mode
	Layout   Layout
	Username string
	Heading  string
	Title    string

	// Now stamps the "Synced" line; defaults to time.Now.
	Now func() time.Time
}

// DefaultOptions returns fragment output in API order.
func DefaultOptions() Options {
	return Options{
		Mode:    ModeFragment,
		Layout:  LayoutList,
		Heading: DefaultHeading,
		Title:   DefaultTitle,
		Now:     time.Now,
	}
}

// RenderError reports a template failure or rendered output that does not
// match its input.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string { return fmt.Sprintf("render html: %v", e.Err) }

func (e *RenderError) Unwrap() error { return e.Err }

// Renderer renders record lists.
type Renderer struct {
	opts   Options
	logger zerolog.Logger
}

// New creates a Renderer. Unset options fall back to DefaultOptions.
func New(opts Options) (*Renderer, error) {
	def := DefaultOptions()
	if opts.Mode == "" {
		opts.Mode = def.Mode
	}
	if opts.Layout == "" {
		opts.Layout = def.Layout
	}
	if opts.Heading == "" {
		opts.Heading = def.Heading
	}
	if opts.Title == "" {
		opts.Title = def.Title
	}
	if opts.Now == nil {
		opts.Now = def.Now
	}
	if _, err := ParseMode(string(opts.Mode)); err != nil {
		return nil, err
	}
	if _, err := ParseLayout(string(opts.Layout)); err != nil {
		return nil, err
	}

	return &Renderer{
		opts:   opts,
		logger: log.With().Str("component", "render").Logger(),
	}, nil
}

type entryView struct {
	ReleaseID     string
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

type section struct {
	Name    string
	Entries []entryView
}

type pageView struct {
	Title    string
	Heading  string
	Username string
	Synced   string
	Total    int
	Sections []section
}

// Render produces the HTML for records.
func (r *Renderer) Render(records []collection.Record) (string, error) {
	degraded := 0
	for _, rec := range records {
		if rec.Degraded {
			degraded++
		}
	}
	if degraded > 0 {
		r.logger.Warn().Int("degraded", degraded).Int("records", len(records)).
			Msg("Some records had malformed fields and render with empty values")
	}

	view := pageView{
		Title:    r.opts.Title,
		Heading:  r.opts.Heading,
		Username: r.opts.Username,
		Synced:   r.opts.Now().Format(syncedLayout),
		Total:    len(records),
	}
	if r.opts.Layout == LayoutGrouped {
		view.Sections = groupedSections(records)
	} else {
		view.Sections = []section{{Entries: entryViews(records)}}
	}

	name := "fragment"
	if r.opts.Mode == ModeDocument {
		name = "document"
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, view); err != nil {
		return "", &RenderError{Err: err}
	}
	return buf.String(), nil
}

func newEntryView(rec collection.Record) entryView {
	v := entryView{
		DateAdded:     rec.DateAddedString(),
		URL:           rec.URL,
		Artist:        rec.Artist,
		Title:         rec.Title,
		Label:         rec.Label(),
		CatalogNumber: rec.CatalogNumber,
		Format:        rec.Format(),
		Year:          rec.YearString(),
		CoverImage:    rec.CoverImage,
	}
	if rec.ID > 0 {
		v.ReleaseID = strconv.FormatInt(rec.ID, 10)
	}
	return v
}

func entryViews(records []collection.Record) []entryView {
	views := make([]entryView, len(records))
	for i, rec := range records {
		views[i] = newEntryView(rec)
	}
	return views
}

// groupedSections buckets records in collection.Buckets order and sorts each
// bucket by artist, then title, ignoring case.
func groupedSections(records []collection.Record) []section {
	known := make(map[string]bool, len(collection.Buckets))
	for _, b := range collection.Buckets {
		known[b] = true
	}
	byBucket := make(map[string][]collection.Record)
	for _, rec := range records {
		bucket := rec.Bucket
		if !known[bucket] {
			bucket = otherBucket
		}
		byBucket[bucket] = append(byBucket[bucket], rec)
	}

	col := collate.New(language.English, collate.IgnoreCase)
	var sections []section
	for _, bucket := range collection.Buckets {
		items := byBucket[bucket]
		if len(items) == 0 {
			continue
		}
		sort.SliceStable(items, func(i, j int) bool {
			if c := col.CompareString(items[i].Artist, items[j].Artist); c != 0 {
				return c < 0
			}
			return col.CompareString(items[i].Title, items[j].Title) < 0
		})
		sections = append(sections, section{Name: bucket, Entries: entryViews(items)})
	}
	return sections
}
