package output

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// FileWriter writes to a local path through a temp file and rename, so a
// failed write leaves the previous file in place.
type FileWriter struct {
	path   string
	perm   os.FileMode
	logger zerolog.Logger
}

// NewFileWriter creates a writer for path. Missing parent directories are
// created on write.
func NewFileWriter(path string) *FileWriter {
	return &FileWriter{
		path:   path,
		perm:   0o644,
		logger: log.With().Str("component", "output").Logger(),
	}
}

func (w *FileWriter) Destination() Destination { return Local(w.path) }

func (w *FileWriter) Write(ctx context.Context, html string) error {
	if err := ctx.Err(); err != nil {
		return &WriteError{Destination: w.path, Err: err}
	}
	if err := w.writeAtomic([]byte(html)); err != nil {
		return &WriteError{Destination: w.path, Err: err}
	}

	w.logger.Info().
		Str("destination", w.path).
		Int("bytes", len(html)).
		Msg("Wrote output file")
	return nil
}

func (w *FileWriter) writeAtomic(data []byte) (err error) {
	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(w.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Chmod(w.perm); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), w.path)
}
