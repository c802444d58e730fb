package collection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrUnsupportedInput is returned for JSON that is neither a page payload
// nor a list of releases.
var ErrUnsupportedInput = errors.New("unsupported JSON structure: expected a releases list or a payload with releases")

// Source yields the releases of one run.
type Source interface {
	Releases(ctx context.Context) ([]Release, error)
}

// LiveSource fetches a user's folder from the API.
type LiveSource struct {
	Fetcher  *Fetcher
	Folders  FolderLister
	Username string
	Folder   string
}

// Releases resolves the folder and fetches every page.
func (s *LiveSource) Releases(ctx context.Context) ([]Release, error) {
	folderID, err := ResolveFolder(ctx, s.Folders, s.Username, s.Folder)
	if err != nil {
		return nil, err
	}
	return s.Fetcher.FetchAll(ctx, s.Username, folderID)
}

// FileSource reads releases from a static JSON document (offline mode).
type FileSource struct {
	Path string
}

// Releases loads and decodes the file.
func (s *FileSource) Releases(ctx context.Context) ([]Release, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadFile(s.Path)
}

// LoadFile reads releases from a JSON file. See ReadReleases.
func LoadFile(path string) ([]Release, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input json: %w", err)
	}
	defer f.Close()

	releases, err := ReadReleases(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return releases, nil
}

// ReadReleases decodes either a full page payload ({"releases": [...]}) or
// a bare JSON array of releases.
func ReadReleases(r io.Reader) ([]Release, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrUnsupportedInput
	}

	switch data[0] {
	case '[':
		var releases []Release
		if err := json.Unmarshal(data, &releases); err != nil {
			return nil, fmt.Errorf("decode releases list: %w", err)
		}
		return releases, nil
	case '{':
		var payload struct {
			Releases *[]Release `json:"releases"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("decode page payload: %w", err)
		}
		if payload.Releases == nil {
			return nil, ErrUnsupportedInput
		}
		return *payload.Releases, nil
	default:
		return nil, ErrUnsupportedInput
	}
}
