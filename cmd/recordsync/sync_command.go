package main

import (
	"context"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/herbadis/recordsync/pkg/config"
	"github.com/herbadis/recordsync/pkg/metrics"
	"github.com/herbadis/recordsync/pkg/output"
	"github.com/herbadis/recordsync/pkg/pipeline"
)

type syncFlags struct {
	commonFlags

	folder       string
	output       string
	inputJSON    string
	perPage      int
	pageDelay    time.Duration
	retries      int
	layout       string
	mode         string
	cacheControl string
	redisAddr    string
	pushgateway  string
}

// newS3Client is replaced in tests.
var newS3Client = func(ctx context.Context) (output.PutObjectAPI, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(awsCfg), nil
}

func newSyncCommand() *cobra.Command {
	var f syncFlags

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch the collection, render it and write the record list",
		Example: `  recordsync sync --username vinyl-fan --output site/recordList.html
  recordsync sync --input-json collection.json --username vinyl-fan --output out.html
  recordsync sync --config recordsync.toml --output s3://my-site/recordList.html`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.load(cmd)
			if err != nil {
				return err
			}
			if err := setupLogging(cmd, cfg); err != nil {
				return err
			}
			return runSync(cmd, cfg)
		},
	}

	fs := cmd.Flags()
	f.register(fs)
	fs.StringVar(&f.folder, "folder", "", `Collection folder: "all", a folder ID or a folder name`)
	fs.StringVarP(&f.output, "output", "o", "", "Destination: local path or s3://bucket/key")
	fs.StringVar(&f.inputJSON, "input-json", "", "Read releases from a JSON file instead of the API")
	fs.IntVar(&f.perPage, "per-page", 0, "Releases per page (1-100)")
	fs.DurationVar(&f.pageDelay, "page-delay", 0, "Pause between page requests")
	fs.IntVar(&f.retries, "retries", 0, "Attempts per request (1 disables retry)")
	fs.StringVar(&f.layout, "layout", "", "Layout: list or grouped")
	fs.StringVar(&f.mode, "mode", "", "Output: fragment or document")
	fs.StringVar(&f.cacheControl, "cache-control", "", "Cache-Control for S3 uploads")
	fs.StringVar(&f.redisAddr, "redis-addr", "", "Redis address for shared rate limit state")
	fs.StringVar(&f.pushgateway, "pushgateway", "", "Prometheus Pushgateway URL")

	return cmd
}

func (f *syncFlags) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := f.commonFlags.load(cmd)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	setString(flags, "folder", f.folder, &cfg.Discogs.Folder)
	setString(flags, "output", f.output, &cfg.Output.Destination)
	setString(flags, "input-json", f.inputJSON, &cfg.Discogs.InputJSON)
	setString(flags, "layout", f.layout, &cfg.Output.Layout)
	setString(flags, "mode", f.mode, &cfg.Output.Mode)
	setString(flags, "cache-control", f.cacheControl, &cfg.Output.CacheControl)
	setString(flags, "redis-addr", f.redisAddr, &cfg.RateLimit.RedisAddr)
	setString(flags, "pushgateway", f.pushgateway, &cfg.Metrics.PushgatewayURL)
	if flags.Changed("per-page") {
		cfg.Discogs.PerPage = f.perPage
	}
	if flags.Changed("page-delay") {
		cfg.Discogs.PageDelay = f.pageDelay.Seconds()
	}
	if flags.Changed("retries") {
		cfg.Discogs.Retries = f.retries
	}
	return cfg, nil
}

func runSync(cmd *cobra.Command, cfg *config.Config) error {
	ctx := cmd.Context()
	logger := log.With().Str("component", "cli").Logger()

	var deps pipeline.Deps
	if dest, err := output.ParseDestination(cfg.Target()); err == nil && dest.Kind == output.KindS3 {
		api, err := newS3Client(ctx)
		if err != nil {
			return &pipeline.Error{Kind: pipeline.ErrConfiguration, Err: fmt.Errorf("load aws config: %w", err)}
		}
		deps.S3 = api
	}

	job, err := pipeline.Build(ctx, cfg, deps)
	if err != nil {
		return err
	}
	defer job.Close()

	res, runErr := job.Run(ctx)

	if err := metrics.Push(ctx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job, nil); err != nil {
		logger.Warn().Err(err).Msg("Metrics push failed")
	}
	if runErr != nil {
		return runErr
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d records to %s (run %s)\n", res.Count, res.Destination, res.RunID)
	return nil
}

func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return &usageError{err: err}
	}
	return nil
}
