// Package collection fetches a Discogs user's collection and normalizes it
// into records ready for rendering.
//
// Discogs paginates collection folders with a pagination block carrying the
// total page count. The Fetcher reads that count from page 1 and then
// requests pages 2..N one after another, pausing between requests, and
// appends releases in the order the API returns them.
//
// Example usage:
//
//	api := collection.NewAPI(discogsClient)
//	fetcher := collection.NewFetcher(api, collection.DefaultConfig())
//	releases, err := fetcher.FetchAll(ctx, "vinyl-fan", collection.AllFolderID)
//	records := collection.NormalizeAll(releases)
//
// Offline runs read the same release shape from a file with LoadFile.
package collection
