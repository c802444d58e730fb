package main

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/herbadis/recordsync/internal/testutil"
	"github.com/herbadis/recordsync/pkg/config"
	"github.com/herbadis/recordsync/pkg/pipeline"
	"github.com/herbadis/recordsync/pkg/render"
)

type fakeS3 struct {
	input *s3.PutObjectInput
	body  string
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	data, _ := io.ReadAll(in.Body)
	f.body = string(data)
	return &s3.PutObjectOutput{}, nil
}

type fakeTokens struct {
	token string
	err   error
	asked []string
}

func (f *fakeTokens) Token(_ context.Context, id string) (string, error) {
	f.asked = append(f.asked, id)
	return f.token, f.err
}

func envLookup(env map[string]string) config.LookupFunc {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

func mockEnv(mock *testutil.MockDiscogs) map[string]string {
	return map[string]string{
		"DISCOGS_USERNAME":        "vinyl-fan",
		"DISCOGS_TOKEN_SECRET_ID": "discogs/token",
		"DISCOGS_BASE_URL":        mock.URL(),
		"DISCOGS_PER_PAGE":        "50",
		"DISCOGS_PAGE_DELAY":      "0",
		"TARGET_BUCKET_NAME":      "site-bucket",
	}
}

func TestHandle_ScheduledUpload(t *testing.T) {
	mock := testutil.NewMockDiscogs("vinyl-fan", "secret")
	defer mock.Close()
	mock.SetReleases(0, "All", testutil.MakeReleases("Record", 1, 62))

	store := &fakeS3{}
	tokens := &fakeTokens{token: "secret"}
	h := &Handler{S3: store, Secrets: tokens, Lookup: envLookup(mockEnv(mock))}

	resp, err := h.Handle(context.Background(), Event{})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	if resp.StatusCode != 200 || resp.ReleaseCount != 62 || resp.Username != "vinyl-fan" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Destination != "s3://site-bucket/recordList.html" {
		t.Fatalf("unexpected destination: %q", resp.Destination)
	}
	if resp.RunID == "" {
		t.Fatal("expected run id")
	}
	if len(tokens.asked) != 1 || tokens.asked[0] != "discogs/token" {
		t.Fatalf("unexpected secret lookups: %v", tokens.asked)
	}
	if aws.ToString(store.input.ContentType) != "text/html; charset=utf-8" || aws.ToString(store.input.CacheControl) != "max-age=300" {
		t.Fatalf("unexpected object headers: %+v", store.input)
	}
	if !strings.HasPrefix(store.body, "<!DOCTYPE html>") {
		t.Fatal("scheduled upload should be a full document")
	}
	entries, err := render.ParseEntries(strings.NewReader(store.body))
	if err != nil || len(entries) != 62 {
		t.Fatalf("uploaded entries = %d (%v)", len(entries), err)
	}
}

func TestHandle_EventOverrides(t *testing.T) {
	mock := testutil.NewMockDiscogs("other-user", "event-token")
	defer mock.Close()
	mock.SetReleases(5, "Keepers", testutil.MakeReleases("Keeper", 10, 3))

	store := &fakeS3{}
	tokens := &fakeTokens{err: errors.New("must not be called")}
	env := mockEnv(mock)
	env["TARGET_CACHE_CONTROL"] = "no-cache"
	h := &Handler{S3: store, Secrets: tokens, Lookup: envLookup(env)}

	resp, err := h.Handle(context.Background(), Event{
		Username:     "other-user",
		Folder:       "keepers",
		DiscogsToken: "event-token",
		TargetBucket: "event-bucket",
		TargetKey:    "lists/records.html",
	})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if len(tokens.asked) != 0 {
		t.Fatal("event token should skip the secret lookup")
	}
	if resp.ReleaseCount != 3 || resp.Folder != "keepers" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if aws.ToString(store.input.Bucket) != "event-bucket" || aws.ToString(store.input.Key) != "lists/records.html" {
		t.Fatalf("unexpected object: %s/%s", aws.ToString(store.input.Bucket), aws.ToString(store.input.Key))
	}
	if aws.ToString(store.input.CacheControl) != "no-cache" {
		t.Fatalf("unexpected cache control: %q", aws.ToString(store.input.CacheControl))
	}
}

func TestHandle_LocalDryRunOffline(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "collection.json")
	if err := os.WriteFile(input, []byte(`[{"id": 1, "basic_information": {"title": "Dry Run"}}]`), 0o600); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "recordList.html")

	store := &fakeS3{}
	h := &Handler{S3: store, Lookup: envLookup(map[string]string{"DISCOGS_USERNAME": "vinyl-fan"})}

	resp, err := h.Handle(context.Background(), Event{InputJSONPath: input, LocalOutputPath: out})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if resp.Destination != out || !strings.Contains(resp.Message, "dry-run") {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if store.input != nil {
		t.Fatal("dry run must not upload")
	}
	data, err := os.ReadFile(out)
	if err != nil || !strings.Contains(string(data), "Dry Run") {
		t.Fatalf("unexpected output %q (%v)", data, err)
	}
}

func TestHandle_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		ev   Event
		code string
	}{
		{"no bucket", map[string]string{"DISCOGS_USERNAME": "u", "DISCOGS_TOKEN_SECRET_ID": "id"}, Event{}, config.CodeMissingOutput},
		{"no token source", map[string]string{"DISCOGS_USERNAME": "u", "TARGET_BUCKET_NAME": "b"}, Event{}, config.CodeMissingToken},
		{"no username", map[string]string{"TARGET_BUCKET_NAME": "b"}, Event{DiscogsToken: "t"}, config.CodeMissingUsername},
		{"bad per page", map[string]string{"DISCOGS_PER_PAGE": "x"}, Event{}, config.CodeInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &Handler{S3: &fakeS3{}, Secrets: &fakeTokens{token: "t"}, Lookup: envLookup(tt.env)}
			_, err := h.Handle(context.Background(), tt.ev)
			var cfgErr *config.Error
			if !errors.As(err, &cfgErr) || cfgErr.Code != tt.code {
				t.Fatalf("expected config error %q, got %v", tt.code, err)
			}
		})
	}
}

func TestHandle_SecretFailure(t *testing.T) {
	env := map[string]string{"DISCOGS_USERNAME": "u", "DISCOGS_TOKEN_SECRET_ID": "id", "TARGET_BUCKET_NAME": "b"}
	h := &Handler{S3: &fakeS3{}, Secrets: &fakeTokens{err: errors.New("AccessDeniedException")}, Lookup: envLookup(env)}

	_, err := h.Handle(context.Background(), Event{})
	if !errors.Is(err, pipeline.ErrConfiguration) || !strings.Contains(err.Error(), "AccessDeniedException") {
		t.Fatalf("expected configuration error from secret lookup, got %v", err)
	}
}

func TestHandle_FetchFailureIsReturned(t *testing.T) {
	mock := testutil.NewMockDiscogs("vinyl-fan", "secret")
	defer mock.Close()
	mock.SetReleases(0, "All", testutil.MakeReleases("Record", 1, 80))
	mock.FailPage(2, 502)

	store := &fakeS3{}
	h := &Handler{S3: store, Secrets: &fakeTokens{token: "secret"}, Lookup: envLookup(mockEnv(mock))}

	if _, err := h.Handle(context.Background(), Event{}); !errors.Is(err, pipeline.ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
	if store.input != nil {
		t.Fatal("nothing may be uploaded after a failed fetch")
	}
}
