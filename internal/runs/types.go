package runs

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a run ID is unknown to a store.
var ErrNotFound = errors.New("run not found")

// Status is the pipeline state a run is in.
type Status string

const (
	StatusIdle        Status = "idle"
	StatusLoading     Status = "loading"
	StatusAggregating Status = "aggregating"
	StatusRendering   Status = "rendering"
	StatusExporting   Status = "exporting"
	StatusDone        Status = "done"
	StatusFailed      Status = "failed"
)

// Terminal reports whether no further transitions follow s.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// Outcome is what happened to one view.
type Outcome string

const (
	OutcomeWritten Outcome = "written"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// ViewResult records one view's outcome within a run.
type ViewResult struct {
	View    string  `json:"view"`
	File    string  `json:"file"`
	Outcome Outcome `json:"outcome"`
	Path    string  `json:"path,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// Run is one execution of the reporting pipeline.
type Run struct {
	// RunID is the unique identifier for this run.
	RunID string `json:"run_id"`

	InputPath string `json:"input_path"`
	OutputDir string `json:"output_dir"`

	Status Status `json:"status"`

	// Rows is the number of loaded rows; Filtered the rows above the threshold.
	Rows     int `json:"rows"`
	Filtered int `json:"filtered"`

	Views []ViewResult `json:"views,omitempty"`

	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Error contains the fatal error if the run failed.
	Error string `json:"error,omitempty"`
}

// Clone returns a copy that shares no slices with r.
func (r *Run) Clone() *Run {
	c := *r
	c.Views = append([]ViewResult(nil), r.Views...)
	if r.FinishedAt != nil {
		t := *r.FinishedAt
		c.FinishedAt = &t
	}
	return &c
}

// Count returns how many views ended with outcome o.
func (r *Run) Count(o Outcome) int {
	n := 0
	for _, v := range r.Views {
		if v.Outcome == o {
			n++
		}
	}
	return n
}

// Store persists runs so their history survives the process.
type Store interface {
	// SaveRun saves or updates a run.
	SaveRun(ctx context.Context, run *Run) error

	// GetRun retrieves a run by ID.
	GetRun(ctx context.Context, runID string) (*Run, error)

	// ListRuns retrieves runs, newest first, with optional filtering.
	ListRuns(ctx context.Context, filter Filter) ([]*Run, error)
}

// Filter defines filtering criteria for listing runs.
type Filter struct {
	// Status filters runs by status.
	Status Status

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}

// Page applies offset and limit to runs.
func (f Filter) Page(runs []*Run) []*Run {
	if f.Offset > 0 {
		if f.Offset >= len(runs) {
			return []*Run{}
		}
		runs = runs[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(runs) {
		runs = runs[:f.Limit]
	}
	return runs
}
