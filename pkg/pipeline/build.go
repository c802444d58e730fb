package pipeline

import (
	"context"
	"net/http"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/herbadis/recordsync/pkg/client"
	"github.com/herbadis/recordsync/pkg/collection"
	"github.com/herbadis/recordsync/pkg/config"
	"github.com/herbadis/recordsync/pkg/output"
	"github.com/herbadis/recordsync/pkg/ratelimit"
	"github.com/herbadis/recordsync/pkg/render"
)

// Deps are the externally constructed clients Build may use. All fields
// are optional.
type Deps struct {
	// HTTPClient replaces the Discogs client's transport.
	HTTPClient *http.Client

	// S3 is required for s3:// destinations.
	S3 output.PutObjectAPI

	// Redis shares rate limit state. When nil and cfg.RateLimit.RedisAddr
	// is set, Build connects itself and Job.Close disconnects.
	Redis *redis.Client
}

// Build validates cfg and wires a Job. It issues no requests; a missing
// token outside offline mode fails here with ErrConfiguration.
func Build(ctx context.Context, cfg *config.Config, deps Deps) (*Job, error) {
	if err := cfg.Validate(); err != nil {
		return nil, wrap(ErrConfiguration, err)
	}

	dest, err := output.ParseDestination(cfg.Target())
	if err != nil {
		return nil, wrap(ErrConfiguration, err)
	}
	writer, err := output.NewWriter(dest, deps.S3, cfg.Output.CacheControl)
	if err != nil {
		return nil, wrap(ErrConfiguration, err)
	}

	mode, _ := render.ParseMode(cfg.Output.Mode)
	layout, _ := render.ParseLayout(cfg.Output.Layout)
	renderer, err := render.New(render.Options{
		Mode:     mode,
		Layout:   layout,
		Username: cfg.Discogs.Username,
		Heading:  cfg.Output.Heading,
	})
	if err != nil {
		return nil, wrap(ErrConfiguration, err)
	}

	job := New(nil, renderer, writer)

	if cfg.OfflineMode() {
		job.Source = &collection.FileSource{Path: cfg.Discogs.InputJSON}
		job.logger.Info().Str("input_json", cfg.Discogs.InputJSON).Msg("Offline mode, reading collection from file")
		return job, nil
	}

	store, closeStore := rateLimitStore(ctx, cfg, deps)
	if closeStore != nil {
		job.closers = append(job.closers, closeStore)
	}
	tracker := ratelimit.NewTracker(store, ratelimit.DefaultConfig(),
		log.With().Str("component", "ratelimit").Logger())

	clientCfg := client.DefaultConfig(cfg.Discogs.Token, cfg.Discogs.UserAgent)
	clientCfg.BaseURL = cfg.Discogs.BaseURL
	clientCfg.Timeout = cfg.Discogs.TimeoutDuration()
	clientCfg.Retry.MaxAttempts = cfg.Discogs.Retries
	clientCfg.Limiter = tracker

	c, err := client.New(clientCfg)
	if err != nil {
		_ = job.Close()
		return nil, wrap(ErrConfiguration, err)
	}
	if deps.HTTPClient != nil {
		c.SetHTTPClient(deps.HTTPClient)
	}

	api := collection.NewAPI(c)
	job.Source = &collection.LiveSource{
		Fetcher: collection.NewFetcher(api, collection.Config{
			PerPage:   cfg.Discogs.PerPage,
			PageDelay: cfg.Discogs.PageDelayDuration(),
		}),
		Folders:  api,
		Username: cfg.Discogs.Username,
		Folder:   cfg.Discogs.Folder,
	}
	return job, nil
}

// rateLimitStore picks Redis when available. A Redis that cannot be
// reached falls back to memory; the shared view is advisory.
func rateLimitStore(ctx context.Context, cfg *config.Config, deps Deps) (ratelimit.Store, func() error) {
	logger := log.With().Str("component", "pipeline").Logger()

	if deps.Redis != nil {
		return ratelimit.NewRedisStore(deps.Redis, cfg.RateLimit.RedisKey), nil
	}

	addr := strings.TrimSpace(cfg.RateLimit.RedisAddr)
	if addr == "" {
		return ratelimit.NewMemoryStore(), nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Str("redis_addr", addr).Msg("Redis unavailable, using in-memory rate limit state")
		_ = rdb.Close()
		return ratelimit.NewMemoryStore(), nil
	}
	logger.Debug().Str("redis_addr", addr).Msg("Sharing rate limit state through Redis")
	return ratelimit.NewRedisStore(rdb, cfg.RateLimit.RedisKey), rdb.Close
}
