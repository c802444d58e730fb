// Package testutil provides testing utilities for the Discogs sync pipeline.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
)

// MockRelease is the minimal description of a collection entry served by
// MockDiscogs.
type MockRelease struct {
	ID        int64
	Title     string
	Artist    string
	Year      int
	Format    string
	Label     string
	CatNo     string
	DateAdded string
}

// MockFolder is a collection folder served by MockDiscogs.
type MockFolder struct {
	ID       int
	Name     string
	Releases []MockRelease
}

// MockDiscogs is a configurable mock Discogs API server for testing.
type MockDiscogs struct {
	server *httptest.Server

	mu          sync.RWMutex
	username    string
	token       string
	folders     map[int]*MockFolder
	failPages   map[int]int
	rateHeaders map[string]string

	// Tracking
	RequestCount int
	PageRequests []int
	LastHeader   http.Header
}

// NewMockDiscogs creates a mock API for username that requires token. An
// "All" folder (ID 0) is always present.
func NewMockDiscogs(username, token string) *MockDiscogs {
	m := &MockDiscogs{
		username:  username,
		token:     token,
		folders:   map[int]*MockFolder{0: {ID: 0, Name: "All"}},
		failPages: make(map[int]int),
		rateHeaders: map[string]string{
			"X-Discogs-Ratelimit":           "60",
			"X-Discogs-Ratelimit-Used":      "1",
			"X-Discogs-Ratelimit-Remaining": "59",
		},
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// URL returns the mock server URL.
func (m *MockDiscogs) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockDiscogs) Close() {
	m.server.Close()
}

// SetReleases replaces the contents of folder id, creating it if needed.
// Releases placed in another folder are also listed in "All".
func (m *MockDiscogs) SetReleases(id int, name string, releases []MockRelease) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.folders[id] = &MockFolder{ID: id, Name: name, Releases: releases}
}

// FailPage makes requests for page respond with status.
func (m *MockDiscogs) FailPage(page, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPages[page] = status
}

// SetRateLimitHeaders overrides the rate limit headers sent with every response.
func (m *MockDiscogs) SetRateLimitHeaders(limit, used, remaining int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rateHeaders["X-Discogs-Ratelimit"] = strconv.Itoa(limit)
	m.rateHeaders["X-Discogs-Ratelimit-Used"] = strconv.Itoa(used)
	m.rateHeaders["X-Discogs-Ratelimit-Remaining"] = strconv.Itoa(remaining)
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockDiscogs) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetLastHeader returns the headers of the most recent request.
func (m *MockDiscogs) GetLastHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastHeader.Clone()
}

// GetPageRequests returns the page numbers requested, in order.
func (m *MockDiscogs) GetPageRequests() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]int(nil), m.PageRequests...)
}

func (m *MockDiscogs) handle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.RequestCount++
	m.LastHeader = r.Header.Clone()
	for k, v := range m.rateHeaders {
		w.Header().Set(k, v)
	}
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	if r.Header.Get("Authorization") != "Discogs token="+m.token {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "You must authenticate to access this resource."})
		return
	}

	// /users/{username}/collection/folders[/{id}/releases]
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 4 || parts[0] != "users" || parts[2] != "collection" || parts[3] != "folders" {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "The requested resource was not found."})
		return
	}
	if parts[1] != m.username {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "User does not exist or may have been deleted."})
		return
	}

	switch {
	case len(parts) == 4:
		m.handleFolders(w)
	case len(parts) == 6 && parts[5] == "releases":
		folderID, err := strconv.Atoi(parts[4])
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Folder not found."})
			return
		}
		m.handleReleases(w, r, folderID)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "The requested resource was not found."})
	}
}

func (m *MockDiscogs) handleFolders(w http.ResponseWriter) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type folder struct {
		ID    int    `json:"id"`
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	var out []folder
	for id := 0; id <= maxFolderID(m.folders); id++ {
		if f, ok := m.folders[id]; ok {
			out = append(out, folder{ID: f.ID, Name: f.Name, Count: len(m.releasesLocked(id))})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"folders": out})
}

func (m *MockDiscogs) handleReleases(w http.ResponseWriter, r *http.Request, folderID int) {
	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "per_page", 50)

	m.mu.Lock()
	m.PageRequests = append(m.PageRequests, page)
	status, fail := m.failPages[page]
	_, exists := m.folders[folderID]
	releases := m.releasesLocked(folderID)
	m.mu.Unlock()

	if !exists {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Folder not found."})
		return
	}
	if fail {
		writeJSON(w, status, map[string]string{"message": http.StatusText(status)})
		return
	}

	pages := (len(releases) + perPage - 1) / perPage
	if pages == 0 {
		pages = 1
	}
	start := (page - 1) * perPage
	end := start + perPage
	if start > len(releases) {
		start = len(releases)
	}
	if end > len(releases) {
		end = len(releases)
	}

	items := make([]any, 0, end-start)
	for _, rel := range releases[start:end] {
		items = append(items, releaseJSON(rel, folderID))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"pagination": map[string]any{
			"page":     page,
			"pages":    pages,
			"per_page": perPage,
			"items":    len(releases),
		},
		"releases": items,
	})
}

// releasesLocked returns the folder contents; folder 0 lists everything.
func (m *MockDiscogs) releasesLocked(folderID int) []MockRelease {
	if folderID != 0 {
		if f, ok := m.folders[folderID]; ok {
			return f.Releases
		}
		return nil
	}
	var all []MockRelease
	all = append(all, m.folders[0].Releases...)
	for id := 1; id <= maxFolderID(m.folders); id++ {
		if f, ok := m.folders[id]; ok {
			all = append(all, f.Releases...)
		}
	}
	return all
}

func releaseJSON(r MockRelease, folderID int) map[string]any {
	basic := map[string]any{
		"id":           r.ID,
		"title":        r.Title,
		"year":         r.Year,
		"resource_url": fmt.Sprintf("https://api.discogs.com/releases/%d", r.ID),
		"thumb":        fmt.Sprintf("https://i.discogs.com/%d-thumb.jpg", r.ID),
		"cover_image":  fmt.Sprintf("https://i.discogs.com/%d.jpg", r.ID),
		"artists":      []map[string]any{{"name": r.Artist, "id": r.ID * 10}},
		"labels":       []map[string]any{{"name": r.Label, "catno": r.CatNo}},
		"formats":      []map[string]any{{"name": r.Format, "qty": "1", "descriptions": []string{"LP", "Album"}}},
	}
	return map[string]any{
		"id":                r.ID,
		"instance_id":       r.ID + 1000000,
		"folder_id":         folderID,
		"rating":            0,
		"date_added":        r.DateAdded,
		"basic_information": basic,
	}
}

// MakeReleases builds n releases with predictable titles "<prefix> N".
func MakeReleases(prefix string, startID int64, n int) []MockRelease {
	out := make([]MockRelease, n)
	for i := range out {
		id := startID + int64(i)
		out[i] = MockRelease{
			ID:        id,
			Title:     fmt.Sprintf("%s %d", prefix, i+1),
			Artist:    fmt.Sprintf("Artist %d", i+1),
			Year:      1970 + i%50,
			Format:    "Vinyl",
			Label:     "Test Records",
			CatNo:     fmt.Sprintf("TR-%03d", i+1),
			DateAdded: "2024-05-01T10:00:00-07:00",
		}
	}
	return out
}

func maxFolderID(folders map[int]*MockFolder) int {
	n := 0
	for id := range folders {
		if id > n {
			n = id
		}
	}
	return n
}

func queryInt(r *http.Request, key string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil && v > 0 {
		return v
	}
	return def
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
