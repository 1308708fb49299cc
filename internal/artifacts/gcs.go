package artifacts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"

	"github.com/dvloznov/finance-reports/internal/domain"
	"github.com/dvloznov/finance-reports/internal/logger"
	"github.com/dvloznov/finance-reports/internal/views"
)

// ObjectStore uploads objects to a bucket.
// This interface enables mocking the cloud storage client in tests.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, object, contentType string, data []byte) error
}

// GCSStore is the ObjectStore backed by Google Cloud Storage.
// It assumes Application Default Credentials are configured.
type GCSStore struct {
	client *storage.Client
}

// NewGCSStore creates a storage client.
func NewGCSStore(ctx context.Context) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSStore{client: client}, nil
}

// Close releases the storage client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

// Upload writes data to bucket/object.
func (s *GCSStore) Upload(ctx context.Context, bucket, object, contentType string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return fmt.Errorf("copy artifact to GCS writer: %w", err)
	}

	// Close to finalize the upload
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload: %w", err)
	}
	return nil
}

// ObjectURI formats a gs:// URI.
func ObjectURI(bucket, object string) string {
	return "gs://" + bucket + "/" + object
}

// SplitURI splits gs://bucket/object into its parts.
func SplitURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// MirrorWriter writes every artifact locally and then uploads a copy to
// gs://<bucket>/<prefix>/<run-id>/<file>.
type MirrorWriter struct {
	local  Writer
	store  ObjectStore
	bucket string
	prefix string
	runID  string
}

// NewMirrorWriter wraps local with an upload to store.
func NewMirrorWriter(local Writer, store ObjectStore, bucket, prefix, runID string) *MirrorWriter {
	return &MirrorWriter{
		local:  local,
		store:  store,
		bucket: bucket,
		prefix: prefix,
		runID:  runID,
	}
}

// Write stores art locally, then mirrors it. A failed upload is an
// *domain.IOError naming the object URI; the local file is kept.
func (m *MirrorWriter) Write(ctx context.Context, art *views.Artifact) (string, error) {
	local, err := m.local.Write(ctx, art)
	if err != nil {
		return "", err
	}

	object := path.Join(m.prefix, m.runID, art.FileName)
	uri := ObjectURI(m.bucket, object)
	if err := m.store.Upload(ctx, m.bucket, object, contentType(art.Kind), art.Data); err != nil {
		return local, &domain.IOError{Path: uri, Err: err}
	}

	log := logger.FromContext(ctx)
	log.Debug().Str("view", art.View).Str("uri", uri).Msg("Artifact mirrored")
	return local, nil
}

func contentType(k views.Kind) string {
	if k == views.KindTable {
		return "text/csv"
	}
	return "image/png"
}
