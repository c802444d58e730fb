package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/herbadis/recordsync/pkg/config"
)

func validConfig() config.Config {
	cfg := config.Default()
	cfg.Discogs.Username = "vinyl-fan"
	cfg.Discogs.Token = "secret"
	cfg.Output.Destination = "out/recordList.html"
	return cfg
}

func errorCode(t *testing.T, err error) string {
	t.Helper()
	var cfgErr *config.Error
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *config.Error, got %T: %v", err, err)
	}
	return cfgErr.Code
}

func TestDefault(t *testing.T) {
	cfg := config.Default()
	if cfg.Discogs.Folder != "all" {
		t.Fatalf("unexpected folder: %q", cfg.Discogs.Folder)
	}
	if cfg.Discogs.PerPage != 100 || cfg.Discogs.Retries != 1 {
		t.Fatalf("unexpected paging defaults: per_page=%d retries=%d", cfg.Discogs.PerPage, cfg.Discogs.Retries)
	}
	if got := cfg.Discogs.PageDelayDuration(); got != 1100*time.Millisecond {
		t.Fatalf("unexpected page delay: %v", got)
	}
	if cfg.Output.Mode != "fragment" || cfg.Output.Layout != "list" || cfg.Output.CacheControl != "max-age=300" {
		t.Fatalf("unexpected output defaults: %+v", cfg.Output)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("unexpected log level: %q", cfg.Logging.Level)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recordsync.toml")
	content := `
[discogs]
username = "from-file"
token = "file-token"
folder = "Jazz"
per_page = 50
page_delay = 0.25

[output]
destination = "s3://site/records.html"
layout = "grouped"

[logging]
level = "debug"
pretty = true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DISCOGS_USERNAME", "from-env")
	t.Setenv("DISCOGS_PAGE_DELAY", "2")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Discogs.Username != "from-env" {
		t.Fatalf("env should override file, got %q", cfg.Discogs.Username)
	}
	if cfg.Discogs.Token != "file-token" || cfg.Discogs.Folder != "Jazz" || cfg.Discogs.PerPage != 50 {
		t.Fatalf("file values not applied: %+v", cfg.Discogs)
	}
	if got := cfg.Discogs.PageDelayDuration(); got != 2*time.Second {
		t.Fatalf("unexpected page delay: %v", got)
	}
	if cfg.Output.Layout != "grouped" || !cfg.Logging.Pretty {
		t.Fatalf("unexpected output/logging: %+v %+v", cfg.Output, cfg.Logging)
	}
	if cfg.Output.Mode != "fragment" {
		t.Fatalf("unset values should keep defaults, got mode %q", cfg.Output.Mode)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Discogs.BaseURL == "" {
		t.Fatal("expected default base url")
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml")); errorCode(t, err) != config.CodeInvalidValue {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(bad, []byte("[discogs]\nunknown_field = 1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := config.Load(bad); errorCode(t, err) != config.CodeInvalidValue {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Setenv("DISCOGS_PER_PAGE", "lots")
	if _, err := config.Load(""); errorCode(t, err) != config.CodeInvalidValue {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		code   string
	}{
		{"missing username", func(c *config.Config) { c.Discogs.Username = " " }, config.CodeMissingUsername},
		{"missing token", func(c *config.Config) { c.Discogs.Token = "" }, config.CodeMissingToken},
		{"missing output", func(c *config.Config) { c.Output.Destination = "" }, config.CodeMissingOutput},
		{"bad s3 destination", func(c *config.Config) { c.Output.Destination = "s3://bucket-only" }, config.CodeInvalidValue},
		{"per page too large", func(c *config.Config) { c.Discogs.PerPage = 101 }, config.CodeInvalidValue},
		{"per page zero", func(c *config.Config) { c.Discogs.PerPage = 0 }, config.CodeInvalidValue},
		{"negative delay", func(c *config.Config) { c.Discogs.PageDelay = -1 }, config.CodeInvalidValue},
		{"zero retries", func(c *config.Config) { c.Discogs.Retries = 0 }, config.CodeInvalidValue},
		{"bad mode", func(c *config.Config) { c.Output.Mode = "pdf" }, config.CodeInvalidValue},
		{"bad layout", func(c *config.Config) { c.Output.Layout = "random" }, config.CodeInvalidValue},
		{"bad level", func(c *config.Config) { c.Logging.Level = "loud" }, config.CodeInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			if got := errorCode(t, cfg.Validate()); got != tt.code {
				t.Fatalf("code = %q, want %q", got, tt.code)
			}
		})
	}
}

func TestValidateOfflineNeedsNoToken(t *testing.T) {
	cfg := validConfig()
	cfg.Discogs.Token = ""
	cfg.Discogs.InputJSON = "collection.json"

	if !cfg.OfflineMode() {
		t.Fatal("expected offline mode")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
}

func TestTarget(t *testing.T) {
	cfg := config.Default()
	if cfg.Target() != "" {
		t.Fatalf("expected empty target, got %q", cfg.Target())
	}

	cfg.Output.Bucket = "site-bucket"
	if got := cfg.Target(); got != "s3://site-bucket/recordList.html" {
		t.Fatalf("unexpected target: %q", got)
	}

	cfg.Output.Destination = "local.html"
	if got := cfg.Target(); got != "local.html" {
		t.Fatalf("destination should win, got %q", got)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"DISCOGS_TOKEN":        "env-token",
		"DISCOGS_FOLDER":       "",
		"TARGET_BUCKET_NAME":   "bucket",
		"TARGET_OBJECT_KEY":    "pages/records.html",
		"TARGET_CACHE_CONTROL": "no-cache",
		"DISCOGS_RETRIES":      "3",
		"LOG_LEVEL":            "warn",
	}
	cfg := config.Default()
	err := cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if err != nil {
		t.Fatalf("ApplyEnv returned error: %v", err)
	}

	if cfg.Discogs.Token != "env-token" || cfg.Discogs.Retries != 3 {
		t.Fatalf("unexpected discogs: %+v", cfg.Discogs)
	}
	if cfg.Discogs.Folder != "all" {
		t.Fatalf("empty env value should not override, got %q", cfg.Discogs.Folder)
	}
	if cfg.Target() != "s3://bucket/pages/records.html" || cfg.Output.CacheControl != "no-cache" {
		t.Fatalf("unexpected output: %+v", cfg.Output)
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("unexpected level: %q", cfg.Logging.Level)
	}
}
