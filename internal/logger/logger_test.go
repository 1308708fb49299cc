package logger

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	log := New()
	if log.GetLevel() == zerolog.Disabled {
		t.Error("Expected logger to be enabled")
	}
}

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	log.Info().Msg("test message")

	assert.Contains(t, buf.String(), "test message")
}

func TestNewWithFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	log, closer, err := NewWithFile(dir)
	require.NoError(t, err)

	log.Info().Str("stage", "load").Msg("rows loaded")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"stage":"load"`)
	assert.Contains(t, string(data), "rows loaded")
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	testLog := NewWithWriter(buf)
	ctx := WithContext(context.Background(), testLog)

	retrievedLog := FromContext(ctx)
	retrievedLog.Info().Msg("test")

	if buf.Len() == 0 {
		t.Error("Expected log output from retrieved logger")
	}
}

func TestFromContext_DefaultLogger(t *testing.T) {
	log := FromContext(context.Background())

	if log.GetLevel() == zerolog.Disabled {
		t.Error("Expected default logger to be enabled")
	}
}

func TestWithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	logWithFields := WithFields(log, map[string]interface{}{
		"run_id": "123",
		"view":   "region-pie",
	})
	logWithFields.Info().Msg("test message")

	output := buf.String()
	assert.Contains(t, output, `"run_id":"123"`)
	assert.Contains(t, output, `"view":"region-pie"`)
}

func TestForStage(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := WithContext(context.Background(), NewWithWriter(buf))

	log := ForStage(ctx, "render")
	log.Warn().Msg("skipped")

	assert.Contains(t, buf.String(), `"stage":"render"`)
	assert.Contains(t, buf.String(), `"level":"warn"`)
}
