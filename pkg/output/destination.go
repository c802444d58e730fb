// Package output persists rendered HTML to a local file or an S3 object.
package output

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind distinguishes destination backends.
type Kind string

const (
	KindLocal Kind = "local"
	KindS3    Kind = "s3"
)

const s3Scheme = "s3://"

var ErrInvalidDestination = errors.New("invalid destination")

// Destination is a parsed output target.
type Destination struct {
	Kind   Kind
	Path   string
	Bucket string
	Key    string
}

// ParseDestination accepts "s3://bucket/key" or a local file path.
func ParseDestination(s string) (Destination, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Destination{}, fmt.Errorf("%w: empty destination", ErrInvalidDestination)
	}

	if !strings.HasPrefix(strings.ToLower(s), s3Scheme) {
		return Destination{Kind: KindLocal, Path: s}, nil
	}

	bucket, key, _ := strings.Cut(s[len(s3Scheme):], "/")
	key = strings.TrimLeft(key, "/")
	if bucket == "" || key == "" {
		return Destination{}, fmt.Errorf("%w: %q needs both bucket and key", ErrInvalidDestination, s)
	}
	return Destination{Kind: KindS3, Bucket: bucket, Key: key}, nil
}

// S3 builds an S3 destination from its parts.
func S3(bucket, key string) Destination {
	return Destination{Kind: KindS3, Bucket: bucket, Key: strings.TrimLeft(key, "/")}
}

// Local builds a file destination.
func Local(path string) Destination {
	return Destination{Kind: KindLocal, Path: path}
}

func (d Destination) String() string {
	if d.Kind == KindS3 {
		return s3Scheme + d.Bucket + "/" + d.Key
	}
	return d.Path
}

// Writer persists one rendered document, replacing prior content.
type Writer interface {
	Write(ctx context.Context, html string) error
	Destination() Destination
}

// WriteError reports a failed write to Destination.
type WriteError struct {
	Destination string
	Err         error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Destination, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

var errMissingS3Client = errors.New("no S3 client configured")
