// Package pipeline runs one fetch, render and write sequence.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/herbadis/recordsync/pkg/collection"
	"github.com/herbadis/recordsync/pkg/config"
	"github.com/herbadis/recordsync/pkg/output"
	"github.com/herbadis/recordsync/pkg/render"
)

// Renderer turns records into one HTML document.
type Renderer interface {
	Render(records []collection.Record) (string, error)
}

// Result describes a successful run.
type Result struct {
	RunID       string
	Count       int
	Degraded    int
	Destination string
	Duration    time.Duration
}

// Job is a ready-to-run pipeline. Runs are independent; a Job may run
// more than once.
type Job struct {
	Source   collection.Source
	Renderer Renderer
	Writer   output.Writer

	closers []func() error
	now     func() time.Time
	logger  zerolog.Logger
}

// New assembles a job from its stages.
func New(src collection.Source, r Renderer, w output.Writer) *Job {
	return &Job{
		Source:   src,
		Renderer: r,
		Writer:   w,
		now:      time.Now,
		logger:   log.With().Str("component", "pipeline").Logger(),
	}
}

// Run fetches, renders, checks and writes. On any failure nothing is
// written and the error carries its kind.
func (j *Job) Run(ctx context.Context) (*Result, error) {
	start := j.now()
	runID := uuid.NewString()
	dest := j.Writer.Destination().String()
	logger := j.logger.With().Str("run_id", runID).Str("destination", dest).Logger()

	logger.Info().Msg("Starting sync run")

	res, err := j.run(ctx, logger)
	elapsed := j.now().Sub(start)

	runsTotal.WithLabelValues(resultLabel(err)).Inc()
	runDuration.Observe(elapsed.Seconds())

	if err != nil {
		logger.Error().Err(err).Dur("duration", elapsed).Msg("Sync run failed")
		return nil, err
	}

	res.RunID = runID
	res.Destination = dest
	res.Duration = elapsed

	recordsTotal.Set(float64(res.Count))
	lastSuccess.Set(float64(j.now().Unix()))

	logger.Info().
		Int("records", res.Count).
		Int("degraded", res.Degraded).
		Dur("duration", elapsed).
		Msg("Sync run finished")
	return res, nil
}

func (j *Job) run(ctx context.Context, logger zerolog.Logger) (*Result, error) {
	releases, err := j.Source.Releases(ctx)
	if err != nil {
		var cfgErr *config.Error
		if errors.As(err, &cfgErr) {
			return nil, wrap(ErrConfiguration, err)
		}
		return nil, wrap(ErrFetch, err)
	}

	records := collection.NormalizeAll(releases)
	degraded := 0
	for _, r := range records {
		if r.Degraded {
			degraded++
		}
	}
	logger.Debug().Int("records", len(records)).Msg("Normalized collection")

	html, err := j.Renderer.Render(records)
	if err != nil {
		return nil, wrap(ErrRender, err)
	}
	if _, err := render.Verify(html, len(records)); err != nil {
		return nil, wrap(ErrRender, err)
	}

	if err := j.Writer.Write(ctx, html); err != nil {
		return nil, wrap(ErrWrite, err)
	}

	return &Result{Count: len(records), Degraded: degraded}, nil
}

// Close releases connections opened by Build.
func (j *Job) Close() error {
	var errs []error
	for _, c := range j.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	j.closers = nil
	return errors.Join(errs...)
}
