package output

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	ContentTypeHTML     = "text/html; charset=utf-8"
	DefaultCacheControl = "max-age=300"
)

// PutObjectAPI is the subset of the S3 client used by S3Writer.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Writer uploads the document to one object key.
type S3Writer struct {
	api          PutObjectAPI
	dest         Destination
	cacheControl string
	logger       zerolog.Logger
}

// NewS3Writer creates a writer for dest. An empty cacheControl uses
// DefaultCacheControl.
func NewS3Writer(api PutObjectAPI, dest Destination, cacheControl string) *S3Writer {
	if strings.TrimSpace(cacheControl) == "" {
		cacheControl = DefaultCacheControl
	}
	return &S3Writer{
		api:          api,
		dest:         dest,
		cacheControl: cacheControl,
		logger:       log.With().Str("component", "output").Logger(),
	}
}

func (w *S3Writer) Destination() Destination { return w.dest }

func (w *S3Writer) Write(ctx context.Context, html string) error {
	_, err := w.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(w.dest.Bucket),
		Key:          aws.String(w.dest.Key),
		Body:         strings.NewReader(html),
		ContentType:  aws.String(ContentTypeHTML),
		CacheControl: aws.String(w.cacheControl),
	})
	if err != nil {
		return &WriteError{Destination: w.dest.String(), Err: err}
	}

	w.logger.Info().
		Str("destination", w.dest.String()).
		Int("bytes", len(html)).
		Msg("Uploaded output object")
	return nil
}

// NewWriter picks the backend for dest. api may be nil for local
// destinations.
func NewWriter(dest Destination, api PutObjectAPI, cacheControl string) (Writer, error) {
	switch dest.Kind {
	case KindS3:
		if api == nil {
			return nil, &WriteError{Destination: dest.String(), Err: errMissingS3Client}
		}
		return NewS3Writer(api, dest, cacheControl), nil
	default:
		return NewFileWriter(dest.Path), nil
	}
}
