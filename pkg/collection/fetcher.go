package collection

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/herbadis/recordsync/pkg/client"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// MaxPerPage is the largest page size the Discogs API accepts.
const MaxPerPage = 100

// Config holds fetcher configuration.
type Config struct {
	// PerPage is the requested page size, capped at MaxPerPage.
	PerPage int

	// PageDelay separates consecutive page requests.
	PageDelay time.Duration
}

// DefaultConfig returns the page size and delay of the original sync script.
func DefaultConfig() Config {
	return Config{
		PerPage:   MaxPerPage,
		PageDelay: 1100 * time.Millisecond,
	}
}

// PageFetcher fetches a single collection page.
type PageFetcher interface {
	FetchPage(ctx context.Context, username string, folderID, page, perPage int) (*Page, error)
}

// FolderLister lists a user's collection folders.
type FolderLister interface {
	ListFolders(ctx context.Context, username string) ([]Folder, error)
}

// FetchError reports the page whose request aborted a fetch.
// Page is 0 for requests that are not page requests (folder lookup).
type FetchError struct {
	Page int
	Err  error
}

func (e *FetchError) Error() string {
	if e.Page == 0 {
		return fmt.Sprintf("fetch collection: %v", e.Err)
	}
	return fmt.Sprintf("fetch collection page %d: %v", e.Page, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// API implements PageFetcher and FolderLister on top of the Discogs client.
type API struct {
	client *client.Client
}

// NewAPI wraps c.
func NewAPI(c *client.Client) *API {
	return &API{client: c}
}

// FetchPage requests /users/{username}/collection/folders/{folder}/releases.
func (a *API) FetchPage(ctx context.Context, username string, folderID, page, perPage int) (*Page, error) {
	path := fmt.Sprintf("/users/%s/collection/folders/%d/releases", username, folderID)
	query := url.Values{
		"page":     {strconv.Itoa(page)},
		"per_page": {strconv.Itoa(perPage)},
	}

	var p Page
	if err := a.client.GetJSON(ctx, path, query, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListFolders requests /users/{username}/collection/folders.
func (a *API) ListFolders(ctx context.Context, username string) ([]Folder, error) {
	var payload struct {
		Folders []Folder `json:"folders"`
	}
	if err := a.client.GetJSON(ctx, fmt.Sprintf("/users/%s/collection/folders", username), nil, &payload); err != nil {
		return nil, err
	}
	return payload.Folders, nil
}

// Fetcher walks all pages of a collection folder sequentially.
type Fetcher struct {
	pages  PageFetcher
	config Config
	logger zerolog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewFetcher creates a fetcher; out of range settings fall back to defaults.
func NewFetcher(pages PageFetcher, config Config) *Fetcher {
	if config.PerPage <= 0 || config.PerPage > MaxPerPage {
		config.PerPage = MaxPerPage
	}
	if config.PageDelay < 0 {
		config.PageDelay = 0
	}

	return &Fetcher{
		pages:  pages,
		config: config,
		logger: log.With().Str("component", "collection").Logger(),
		sleep:  sleepContext,
	}
}

// FetchAll returns the releases of every page in API order. The page count
// reported by the first page decides how many pages are requested. Any
// failed page aborts the fetch with a *FetchError.
func (f *Fetcher) FetchAll(ctx context.Context, username string, folderID int) ([]Release, error) {
	start := time.Now()

	first, err := f.pages.FetchPage(ctx, username, folderID, 1, f.config.PerPage)
	if err != nil {
		return nil, &FetchError{Page: 1, Err: err}
	}

	totalPages := first.Pagination.Pages
	if totalPages < 1 {
		totalPages = 1
	}

	f.logger.Info().
		Str("username", username).
		Int("folder_id", folderID).
		Int("total_pages", totalPages).
		Int("items", first.Pagination.Items).
		Msg("Starting collection fetch")

	releases := make([]Release, 0, max(first.Pagination.Items, len(first.Releases)))
	releases = append(releases, first.Releases...)

	for page := 2; page <= totalPages; page++ {
		if err := f.sleep(ctx, f.config.PageDelay); err != nil {
			return nil, &FetchError{Page: page, Err: err}
		}

		p, err := f.pages.FetchPage(ctx, username, folderID, page, f.config.PerPage)
		if err != nil {
			f.logger.Warn().Err(err).Int("page", page).Msg("Page fetch failed")
			return nil, &FetchError{Page: page, Err: err}
		}
		releases = append(releases, p.Releases...)

		f.logger.Debug().
			Int("page", page).
			Int("total_pages", totalPages).
			Int("releases", len(p.Releases)).
			Msg("Fetched page")
	}

	if items := first.Pagination.Items; items > 0 && items != len(releases) {
		f.logger.Warn().
			Int("reported_items", items).
			Int("fetched", len(releases)).
			Msg("Fetched release count differs from reported item count")
	}

	f.logger.Info().
		Str("username", username).
		Int("pages", totalPages).
		Int("releases", len(releases)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return releases, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
