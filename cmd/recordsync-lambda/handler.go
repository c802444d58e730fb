package main

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/herbadis/recordsync/pkg/config"
	"github.com/herbadis/recordsync/pkg/metrics"
	"github.com/herbadis/recordsync/pkg/output"
	"github.com/herbadis/recordsync/pkg/pipeline"
	"github.com/herbadis/recordsync/pkg/render"
)

// Event is the invocation payload. Every field is optional and overrides
// the matching environment variable.
type Event struct {
	Username        string `json:"username"`
	Folder          string `json:"folder"`
	InputJSONPath   string `json:"input_json_path"`
	DiscogsToken    string `json:"discogs_token"`
	LocalOutputPath string `json:"local_output_path"`
	TargetBucket    string `json:"target_bucket"`
	TargetKey       string `json:"target_key"`
}

// Response summarizes a successful run.
type Response struct {
	StatusCode   int    `json:"statusCode"`
	Message      string `json:"message"`
	Username     string `json:"username"`
	Folder       string `json:"folder"`
	Destination  string `json:"destination"`
	ReleaseCount int    `json:"release_count"`
	RunID        string `json:"run_id"`
}

// TokenLoader resolves a secret ID into a Discogs token.
type TokenLoader interface {
	Token(ctx context.Context, secretID string) (string, error)
}

// Handler runs one sync per invocation.
type Handler struct {
	S3      output.PutObjectAPI
	Secrets TokenLoader
	Lookup  config.LookupFunc

	// Deps overrides what Build receives; S3 is filled from the field above.
	Deps pipeline.Deps
}

func (h *Handler) Handle(ctx context.Context, ev Event) (*Response, error) {
	cfg, err := h.config(ev)
	if err != nil {
		return nil, err
	}
	if err := h.resolveToken(ctx, cfg); err != nil {
		return nil, err
	}

	deps := h.Deps
	deps.S3 = h.S3

	job, err := pipeline.Build(ctx, cfg, deps)
	if err != nil {
		return nil, err
	}
	defer job.Close()

	res, runErr := job.Run(ctx)
	if err := metrics.Push(ctx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job, nil); err != nil {
		log.Warn().Err(err).Str("component", "lambda").Msg("Metrics push failed")
	}
	if runErr != nil {
		return nil, runErr
	}

	msg := "Discogs sync completed."
	if cfg.Output.Destination != "" {
		msg = "Discogs sync completed (local dry-run output)."
	}
	return &Response{
		StatusCode:   http.StatusOK,
		Message:      msg,
		Username:     cfg.Discogs.Username,
		Folder:       cfg.Discogs.Folder,
		Destination:  res.Destination,
		ReleaseCount: res.Count,
		RunID:        res.RunID,
	}, nil
}

// config layers defaults, environment and the event. The scheduled flow
// uploads a standalone document unless RECORDSYNC_MODE says otherwise.
func (h *Handler) config(ev Event) (*config.Config, error) {
	cfg := config.Default()
	cfg.Output.Mode = string(render.ModeDocument)
	cfg.Metrics.Job = "recordsync-lambda"

	lookup := h.Lookup
	if lookup == nil {
		lookup = func(string) (string, bool) { return "", false }
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}

	override := func(v string, dst *string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	override(ev.Username, &cfg.Discogs.Username)
	override(ev.Folder, &cfg.Discogs.Folder)
	override(ev.InputJSONPath, &cfg.Discogs.InputJSON)
	override(ev.DiscogsToken, &cfg.Discogs.Token)
	override(ev.TargetBucket, &cfg.Output.Bucket)
	override(ev.TargetKey, &cfg.Output.Key)
	// a local path is a dry run and wins over any bucket
	override(ev.LocalOutputPath, &cfg.Output.Destination)

	if cfg.Target() == "" {
		return nil, &config.Error{Code: config.CodeMissingOutput, Field: "TARGET_BUCKET_NAME", Message: "target bucket is required"}
	}
	return &cfg, nil
}

// resolveToken loads the token from Secrets Manager unless the run is
// offline or the event carried one.
func (h *Handler) resolveToken(ctx context.Context, cfg *config.Config) error {
	if cfg.OfflineMode() || cfg.Discogs.Token != "" {
		return nil
	}
	secretID := strings.TrimSpace(cfg.Discogs.TokenSecretID)
	if secretID == "" {
		return &config.Error{Code: config.CodeMissingToken, Field: "DISCOGS_TOKEN_SECRET_ID", Message: "no token in the event and no secret configured"}
	}
	if h.Secrets == nil {
		return &pipeline.Error{Kind: pipeline.ErrConfiguration, Err: errors.New("no secrets client configured")}
	}

	token, err := h.Secrets.Token(ctx, secretID)
	if err != nil {
		return &pipeline.Error{Kind: pipeline.ErrConfiguration, Err: err}
	}
	cfg.Discogs.Token = token
	return nil
}
