package artifacts

import (
	"context"
	"os"
	"path/filepath"

	"github.com/dvloznov/finance-reports/internal/domain"
	"github.com/dvloznov/finance-reports/internal/logger"
	"github.com/dvloznov/finance-reports/internal/views"
)

// Writer persists generated artifacts and returns where each one was stored.
type Writer interface {
	Write(ctx context.Context, art *views.Artifact) (string, error)
}

// LocalWriter stores artifacts as files under a directory.
type LocalWriter struct {
	dir string
}

// NewLocalWriter creates a writer rooted at dir. The directory is created on
// first write.
func NewLocalWriter(dir string) *LocalWriter {
	return &LocalWriter{dir: dir}
}

// Dir returns the output directory.
func (w *LocalWriter) Dir() string {
	return w.dir
}

// Write stores art under its file name, replacing any existing file.
func (w *LocalWriter) Write(ctx context.Context, art *views.Artifact) (string, error) {
	path := filepath.Join(w.dir, art.FileName)
	if err := WriteFile(path, art.Data); err != nil {
		return "", err
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("view", art.View).
		Str("path", path).
		Int("bytes", len(art.Data)).
		Msg("Artifact saved")
	return path, nil
}

// WriteFile creates the parent directories of path and writes data to it,
// overwriting an existing file. Failures are returned as *domain.IOError.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &domain.IOError{Path: path, Err: err}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &domain.IOError{Path: path, Err: err}
	}
	return nil
}
