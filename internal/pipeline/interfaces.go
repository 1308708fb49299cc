package pipeline

import (
	"context"

	"github.com/dvloznov/finance-reports/internal/records"
	"github.com/dvloznov/finance-reports/internal/runs"
	"github.com/dvloznov/finance-reports/internal/views"
)

// Policy decides what a failed view does to the rest of the run.
type Policy string

// Loader reads the source table.
type Loader interface {
	Load(ctx context.Context, path string) (*records.Table, error)
}

// ArtifactWriter persists one artifact and returns where it went.
type ArtifactWriter interface {
	Write(ctx context.Context, art *views.Artifact) (string, error)
}

// WarehouseSink receives the filtered subset of a run. Optional.
type WarehouseSink interface {
	Insert(ctx context.Context, runID string, subset *records.Table) error
}

// RunStore records run progress. Optional.
type RunStore interface {
	SaveRun(ctx context.Context, run *runs.Run) error
}

// PipelineStep represents a single stage of the reporting pipeline.
type PipelineStep interface {
	// Status is the run status while the step executes.
	Status() runs.Status
	Execute(ctx context.Context, state *PipelineState) error
}
