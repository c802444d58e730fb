// Package config resolves run settings from an optional TOML file,
// environment variables and command line overrides, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/herbadis/recordsync/pkg/client"
	"github.com/herbadis/recordsync/pkg/collection"
	"github.com/herbadis/recordsync/pkg/logging"
	"github.com/herbadis/recordsync/pkg/output"
	"github.com/herbadis/recordsync/pkg/render"
)

// Discogs contains API access and pagination settings.
type Discogs struct {
	Username      string  `toml:"username"`
	Token         string  `toml:"token"`
	TokenSecretID string  `toml:"token_secret_id"`
	Folder        string  `toml:"folder"`
	BaseURL       string  `toml:"base_url"`
	UserAgent     string  `toml:"user_agent"`
	PerPage       int     `toml:"per_page"`
	PageDelay     float64 `toml:"page_delay"` // seconds
	Retries       int     `toml:"retries"`    // attempts per request, 1 = no retry
	Timeout       float64 `toml:"timeout"`    // seconds
	InputJSON     string  `toml:"input_json"`
}

// Output contains render and destination settings. Destination wins over
// Bucket/Key.
type Output struct {
	Destination  string `toml:"destination"`
	Bucket       string `toml:"bucket"`
	Key          string `toml:"key"`
	Mode         string `toml:"mode"`
	Layout       string `toml:"layout"`
	Heading      string `toml:"heading"`
	CacheControl string `toml:"cache_control"`
}

// RateLimit configures the shared rate limit view.
type RateLimit struct {
	RedisAddr string `toml:"redis_addr"`
	RedisKey  string `toml:"redis_key"`
}

// Logging contains log output settings.
type Logging struct {
	Level  string `toml:"level"`
	Pretty bool   `toml:"pretty"`
}

// Metrics configures the Pushgateway push at the end of a run.
type Metrics struct {
	PushgatewayURL string `toml:"pushgateway_url"`
	Job            string `toml:"job"`
}

// Config is the full run configuration.
type Config struct {
	Discogs   Discogs   `toml:"discogs"`
	Output    Output    `toml:"output"`
	RateLimit RateLimit `toml:"rate_limit"`
	Logging   Logging   `toml:"logging"`
	Metrics   Metrics   `toml:"metrics"`
}

const (
	DefaultObjectKey = "recordList.html"
	DefaultJob       = "recordsync"
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Discogs: Discogs{
			Folder:    "all",
			BaseURL:   client.DefaultBaseURL,
			UserAgent: client.DefaultUserAgent,
			PerPage:   collection.MaxPerPage,
			PageDelay: 1.1,
			Retries:   1,
			Timeout:   30,
		},
		Output: Output{
			Key:          DefaultObjectKey,
			Mode:         string(render.ModeFragment),
			Layout:       string(render.LayoutList),
			Heading:      render.DefaultHeading,
			CacheControl: output.DefaultCacheControl,
		},
		Logging: Logging{Level: string(logging.LevelInfo)},
		Metrics: Metrics{Job: DefaultJob},
	}
}

// Load starts from Default, decodes path when it is non-empty and applies
// environment overrides. It does not validate.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, &Error{Code: CodeInvalidValue, Field: "config", Message: fmt.Sprintf("config file %s not found", path)}
			}
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, &Error{Code: CodeInvalidValue, Field: "config", Message: fmt.Sprintf("parse %s: %v", path, err)}
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// OfflineMode reports whether input comes from a static JSON file.
func (c *Config) OfflineMode() bool {
	return strings.TrimSpace(c.Discogs.InputJSON) != ""
}

// Target is the output destination string, built from Bucket/Key when no
// explicit destination is set.
func (c *Config) Target() string {
	if d := strings.TrimSpace(c.Output.Destination); d != "" {
		return d
	}
	if b := strings.TrimSpace(c.Output.Bucket); b != "" {
		key := strings.TrimSpace(c.Output.Key)
		if key == "" {
			key = DefaultObjectKey
		}
		return output.S3(b, key).String()
	}
	return ""
}

func (d Discogs) PageDelayDuration() time.Duration {
	return time.Duration(d.PageDelay * float64(time.Second))
}

func (d Discogs) TimeoutDuration() time.Duration {
	return time.Duration(d.Timeout * float64(time.Second))
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Discogs.Username) == "" {
		return &Error{Code: CodeMissingUsername, Field: "discogs.username", Message: "username is required"}
	}
	if !c.OfflineMode() && strings.TrimSpace(c.Discogs.Token) == "" {
		return &Error{Code: CodeMissingToken, Field: "discogs.token", Message: "token is required unless input_json is set"}
	}
	target := c.Target()
	if target == "" {
		return &Error{Code: CodeMissingOutput, Field: "output.destination", Message: "output destination is required"}
	}
	if _, err := output.ParseDestination(target); err != nil {
		return invalid("output.destination", err.Error())
	}
	if c.Discogs.PerPage < 1 || c.Discogs.PerPage > collection.MaxPerPage {
		return invalid("discogs.per_page", fmt.Sprintf("must be between 1 and %d, got %d", collection.MaxPerPage, c.Discogs.PerPage))
	}
	if c.Discogs.PageDelay < 0 {
		return invalid("discogs.page_delay", "must not be negative")
	}
	if c.Discogs.Retries < 1 {
		return invalid("discogs.retries", fmt.Sprintf("must be at least 1, got %d", c.Discogs.Retries))
	}
	if c.Discogs.Timeout <= 0 {
		return invalid("discogs.timeout", "must be positive")
	}
	if _, err := render.ParseMode(c.Output.Mode); err != nil {
		return invalid("output.mode", err.Error())
	}
	if _, err := render.ParseLayout(c.Output.Layout); err != nil {
		return invalid("output.layout", err.Error())
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return invalid("logging.level", err.Error())
	}
	return nil
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides fields from environment variables that are set and
// non-empty.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	str := func(key string, dst *string) {
		if v, ok := get(key); ok {
			*dst = v
		}
	}

	str("DISCOGS_USERNAME", &c.Discogs.Username)
	str("DISCOGS_TOKEN", &c.Discogs.Token)
	str("DISCOGS_TOKEN_SECRET_ID", &c.Discogs.TokenSecretID)
	str("DISCOGS_FOLDER", &c.Discogs.Folder)
	str("DISCOGS_BASE_URL", &c.Discogs.BaseURL)
	str("DISCOGS_USER_AGENT", &c.Discogs.UserAgent)
	str("DISCOGS_INPUT_JSON", &c.Discogs.InputJSON)
	str("RECORDSYNC_OUTPUT", &c.Output.Destination)
	str("TARGET_BUCKET_NAME", &c.Output.Bucket)
	str("TARGET_OBJECT_KEY", &c.Output.Key)
	str("TARGET_CACHE_CONTROL", &c.Output.CacheControl)
	str("RECORDSYNC_MODE", &c.Output.Mode)
	str("RECORDSYNC_LAYOUT", &c.Output.Layout)
	str("REDIS_ADDR", &c.RateLimit.RedisAddr)
	str("PUSHGATEWAY_URL", &c.Metrics.PushgatewayURL)
	str("LOG_LEVEL", &c.Logging.Level)

	if v, ok := get("DISCOGS_PER_PAGE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return invalid("DISCOGS_PER_PAGE", fmt.Sprintf("not an integer: %q", v))
		}
		c.Discogs.PerPage = n
	}
	if v, ok := get("DISCOGS_RETRIES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return invalid("DISCOGS_RETRIES", fmt.Sprintf("not an integer: %q", v))
		}
		c.Discogs.Retries = n
	}
	if v, ok := get("DISCOGS_PAGE_DELAY"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return invalid("DISCOGS_PAGE_DELAY", fmt.Sprintf("not a number of seconds: %q", v))
		}
		c.Discogs.PageDelay = f
	}
	return nil
}
