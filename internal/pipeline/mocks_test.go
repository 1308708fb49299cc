package pipeline_test

import (
	"context"
	"sync"

	"github.com/dvloznov/finance-reports/internal/records"
	"github.com/dvloznov/finance-reports/internal/runs"
	"github.com/dvloznov/finance-reports/internal/views"
)

// MockWriter implements pipeline.ArtifactWriter for testing.
type MockWriter struct {
	WriteFunc func(ctx context.Context, art *views.Artifact) (string, error)

	mu      sync.Mutex
	written []string
}

func (m *MockWriter) Write(ctx context.Context, art *views.Artifact) (string, error) {
	m.mu.Lock()
	m.written = append(m.written, art.FileName)
	m.mu.Unlock()

	if m.WriteFunc != nil {
		return m.WriteFunc(ctx, art)
	}
	return "mem://" + art.FileName, nil
}

func (m *MockWriter) Written() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.written...)
}

// MockSink implements pipeline.WarehouseSink for testing.
type MockSink struct {
	InsertFunc func(ctx context.Context, runID string, subset *records.Table) error
}

func (m *MockSink) Insert(ctx context.Context, runID string, subset *records.Table) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, runID, subset)
	}
	return nil
}

// MockRunStore implements pipeline.RunStore for testing.
type MockRunStore struct {
	SaveRunFunc func(ctx context.Context, run *runs.Run) error

	mu       sync.Mutex
	statuses []runs.Status
}

func (m *MockRunStore) SaveRun(ctx context.Context, run *runs.Run) error {
	m.mu.Lock()
	m.statuses = append(m.statuses, run.Status)
	m.mu.Unlock()

	if m.SaveRunFunc != nil {
		return m.SaveRunFunc(ctx, run)
	}
	return nil
}

func (m *MockRunStore) Statuses() []runs.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]runs.Status(nil), m.statuses...)
}
