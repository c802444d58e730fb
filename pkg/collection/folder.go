package collection

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// AllFolderID is the Discogs folder that contains every release.
const AllFolderID = 0

// ErrFolderNotFound is returned when a folder name matches none of the
// user's folders.
var ErrFolderNotFound = errors.New("collection folder not found")

// ParseFolderID interprets ident without network access. It returns
// ok=false when ident is a folder name that must be looked up.
func ParseFolderID(ident string) (id int, ok bool) {
	ident = strings.TrimSpace(ident)
	if ident == "" || strings.EqualFold(ident, "all") {
		return AllFolderID, true
	}
	n, err := strconv.Atoi(ident)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// ResolveFolder maps a folder identifier ("all", a numeric ID or a folder
// name) to a folder ID. Names are matched case-insensitively through lister.
func ResolveFolder(ctx context.Context, lister FolderLister, username, ident string) (int, error) {
	if id, ok := ParseFolderID(ident); ok {
		return id, nil
	}
	if lister == nil {
		return 0, fmt.Errorf("%w: %q (no folder lookup available)", ErrFolderNotFound, ident)
	}

	folders, err := lister.ListFolders(ctx, username)
	if err != nil {
		return 0, &FetchError{Err: fmt.Errorf("list folders: %w", err)}
	}

	name := strings.TrimSpace(ident)
	for _, f := range folders {
		if strings.EqualFold(strings.TrimSpace(f.Name), name) {
			return f.ID, nil
		}
	}
	return 0, &FetchError{Err: fmt.Errorf("%w: %q", ErrFolderNotFound, name)}
}
