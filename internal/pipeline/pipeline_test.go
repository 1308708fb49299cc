package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-reports/internal/aggregate"
	"github.com/dvloznov/finance-reports/internal/artifacts"
	"github.com/dvloznov/finance-reports/internal/domain"
	"github.com/dvloznov/finance-reports/internal/pipeline"
	"github.com/dvloznov/finance-reports/internal/records"
	"github.com/dvloznov/finance-reports/internal/runs"
	"github.com/dvloznov/finance-reports/internal/runs/inmemory"
	"github.com/dvloznov/finance-reports/internal/views"
)

const sampleCSV = `Date,Region,Category,Product Type,Amount
2024-01-01,North,Food,Card,600
2024-01-02,South,Travel,Cash,450
2024-01-02,North,Travel,Card,1200
2024/01/03,East,Food,Online,800
01/04/2024,South,Food,Card,510
`

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "transactions.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newPipeline(input, out string, deps pipeline.Deps, policy pipeline.Policy) *pipeline.Pipeline {
	if deps.Loader == nil {
		deps.Loader = records.NewCSVLoader()
	}
	if deps.Writer == nil {
		deps.Writer = artifacts.NewLocalWriter(out)
	}
	return pipeline.New(deps, pipeline.Options{
		InputPath: input,
		OutputDir: out,
		Threshold: aggregate.DefaultThreshold,
		Policy:    policy,
		Render:    views.Options{Width: 400, Height: 300},
	})
}

func outcomes(run *runs.Run) map[string]runs.Outcome {
	m := make(map[string]runs.Outcome, len(run.Views))
	for _, v := range run.Views {
		m[v.View] = v.Outcome
	}
	return m
}

func TestPipeline_FullRun(t *testing.T) {
	out := t.TempDir()
	store := inmemory.NewStore()
	p := newPipeline(writeInput(t, sampleCSV), out, pipeline.Deps{Store: store}, pipeline.PolicyContinue)

	run, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, runs.StatusDone, run.Status)
	assert.Equal(t, 5, run.Rows)
	assert.Equal(t, 4, run.Filtered)
	assert.NotNil(t, run.FinishedAt)
	assert.Empty(t, run.Error)
	require.Len(t, run.Views, 11)

	for i, spec := range views.All() {
		v := run.Views[i]
		assert.Equal(t, spec.Name, v.View, "views are recorded in pipeline order")
		assert.Equal(t, runs.OutcomeWritten, v.Outcome, v.View)
		assert.Equal(t, filepath.Join(out, spec.FileName), v.Path)
		assert.FileExists(t, v.Path)
	}

	export, err := os.ReadFile(filepath.Join(out, "processed_transaction_data.csv"))
	require.NoError(t, err)
	assert.Equal(t,
		"Date,Region,Category,Product Type,Amount\n"+
			"2024-01-01,North,Food,Card,600\n"+
			"2024-01-02,North,Travel,Card,1200\n"+
			"2024-01-03,East,Food,Online,800\n"+
			"2024-01-04,South,Food,Card,510\n",
		string(export))

	stored, err := store.GetRun(context.Background(), p.RunID())
	require.NoError(t, err)
	assert.Equal(t, runs.StatusDone, stored.Status)
	assert.Len(t, stored.Views, 11)
}

func TestPipeline_StatusTransitions(t *testing.T) {
	store := &MockRunStore{}
	p := newPipeline(writeInput(t, sampleCSV), "", pipeline.Deps{Writer: &MockWriter{}, Store: store}, pipeline.PolicyContinue)

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []runs.Status{
		runs.StatusIdle,
		runs.StatusLoading,
		runs.StatusAggregating,
		runs.StatusRendering,
		runs.StatusExporting,
		runs.StatusDone,
	}, store.Statuses())
}

func TestPipeline_MissingDateColumn(t *testing.T) {
	input := writeInput(t, `Region,Category,Product Type,Amount
North,Food,Card,600
South,Travel,Cash,900
`)
	writer := &MockWriter{}
	p := newPipeline(input, "", pipeline.Deps{Writer: writer}, pipeline.PolicyContinue)

	run, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, runs.StatusDone, run.Status)

	got := outcomes(run)
	assert.Equal(t, runs.OutcomeSkipped, got[views.TrendOverTime])
	for _, spec := range views.All() {
		if spec.Name == views.TrendOverTime {
			continue
		}
		assert.Equal(t, runs.OutcomeWritten, got[spec.Name], spec.Name)
	}
	assert.NotContains(t, writer.Written(), "transaction_trend.png")
	assert.Len(t, writer.Written(), 10)
}

func TestPipeline_ViewFailurePolicy(t *testing.T) {
	noProduct := `Date,Region,Category,Amount
2024-01-01,North,Food,600
2024-01-02,South,Travel,900
`

	tests := []struct {
		name       string
		policy     pipeline.Policy
		wantStatus runs.Status
		wantErr    bool
		wantViews  int
		wantExport bool
	}{
		{
			name:       "continue renders the rest",
			policy:     pipeline.PolicyContinue,
			wantStatus: runs.StatusDone,
			wantViews:  11,
			wantExport: true,
		},
		{
			name:       "stop aborts at the first failure",
			policy:     pipeline.PolicyStop,
			wantStatus: runs.StatusFailed,
			wantErr:    true,
			wantViews:  7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writer := &MockWriter{}
			p := newPipeline(writeInput(t, noProduct), "", pipeline.Deps{Writer: writer}, tt.policy)

			run, err := p.Run(context.Background())

			require.NotNil(t, run)
			assert.Equal(t, tt.wantStatus, run.Status)
			assert.Len(t, run.Views, tt.wantViews)
			assert.Equal(t, runs.OutcomeFailed, outcomes(run)[views.ProductSummary])
			assert.Equal(t, tt.wantExport, contains(writer.Written(), "processed_transaction_data.csv"))

			if tt.wantErr {
				require.Error(t, err)
				var viewErr *domain.ViewError
				require.True(t, errors.As(err, &viewErr))
				assert.Equal(t, views.ProductSummary, viewErr.View)
				var schemaErr *domain.SchemaError
				require.True(t, errors.As(err, &schemaErr))
				assert.Equal(t, domain.ColumnProductType, schemaErr.Column)
				assert.Contains(t, run.Error, views.ProductSummary)
			} else {
				require.NoError(t, err)
				assert.Equal(t, runs.OutcomeFailed, outcomes(run)[views.Frequency])
				assert.Equal(t, 2, run.Count(runs.OutcomeFailed))
			}
		})
	}
}

func TestPipeline_MissingAmountColumn(t *testing.T) {
	noAmount := `Date,Region,Category,Product Type
2024-01-01,North,Food,Card
2024-01-02,South,Travel,Loan
`
	writer := &MockWriter{}
	p := newPipeline(writeInput(t, noAmount), "", pipeline.Deps{Writer: writer}, pipeline.PolicyContinue)

	run, err := p.Run(context.Background())

	require.Error(t, err)
	require.NotNil(t, run)
	assert.Equal(t, runs.StatusFailed, run.Status)
	assert.Equal(t, 2, run.Rows)
	assert.Equal(t, 0, run.Filtered)
	require.Len(t, run.Views, 11, "every view is attempted before the export fails")

	var viewErr *domain.ViewError
	require.True(t, errors.As(err, &viewErr))
	assert.Equal(t, views.DerivedExport, viewErr.View)
	var schemaErr *domain.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, domain.ColumnAmount, schemaErr.Column)

	got := outcomes(run)
	assert.Equal(t, runs.OutcomeWritten, got[views.Frequency], "frequency needs only ProductType")
	assert.Equal(t, runs.OutcomeWritten, got[views.TimeTrendByRegion])
	for _, name := range []string{
		views.RegionSummary, views.AmountDistribution, views.BoxplotByRegion, views.RegionPie,
		views.ProductSummary, views.CorrelationMatrix, views.DerivedExport,
	} {
		assert.Equal(t, runs.OutcomeFailed, got[name], name)
	}
	assert.Equal(t, runs.OutcomeSkipped, got[views.TrendOverTime])
	assert.Equal(t, runs.OutcomeSkipped, got[views.TransactionHeatmap])

	assert.Equal(t, []string{"time_trend_by_region.png", "transaction_frequency.png"}, writer.Written())
}

func TestPipeline_FatalErrors(t *testing.T) {
	writeFails := errors.New("disk full")
	sinkFails := errors.New("quota exceeded")

	tests := []struct {
		name   string
		input  func(t *testing.T) string
		writer *MockWriter
		sink   *MockSink
		check  func(t *testing.T, err error)
	}{
		{
			name:   "missing input file",
			input:  func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.csv") },
			writer: &MockWriter{},
			check: func(t *testing.T, err error) {
				var ingestErr *domain.IngestError
				assert.True(t, errors.As(err, &ingestErr))
			},
		},
		{
			name: "missing amount column",
			input: func(t *testing.T) string {
				return writeInput(t, "Date,Region\n2024-01-01,North\n")
			},
			writer: &MockWriter{},
			check: func(t *testing.T, err error) {
				var schemaErr *domain.SchemaError
				require.True(t, errors.As(err, &schemaErr))
				assert.Equal(t, domain.ColumnAmount, schemaErr.Column)
			},
		},
		{
			name:  "export write failure",
			input: func(t *testing.T) string { return writeInput(t, sampleCSV) },
			writer: &MockWriter{
				WriteFunc: func(ctx context.Context, art *views.Artifact) (string, error) {
					if art.Kind == views.KindTable {
						return "", &domain.IOError{Path: art.FileName, Err: writeFails}
					}
					return "mem://" + art.FileName, nil
				},
			},
			check: func(t *testing.T, err error) {
				var ioErr *domain.IOError
				require.True(t, errors.As(err, &ioErr))
				assert.ErrorIs(t, err, writeFails)
			},
		},
		{
			name:   "warehouse insert failure",
			input:  func(t *testing.T) string { return writeInput(t, sampleCSV) },
			writer: &MockWriter{},
			sink: &MockSink{
				InsertFunc: func(ctx context.Context, runID string, subset *records.Table) error {
					return sinkFails
				},
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, sinkFails)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := pipeline.Deps{Writer: tt.writer}
			if tt.sink != nil {
				deps.Sink = tt.sink
			}
			p := newPipeline(tt.input(t), "", deps, pipeline.PolicyContinue)

			run, err := p.Run(context.Background())

			require.Error(t, err)
			require.NotNil(t, run)
			assert.Equal(t, runs.StatusFailed, run.Status)
			assert.NotEmpty(t, run.Error)
			assert.NotNil(t, run.FinishedAt)
			tt.check(t, err)
		})
	}
}

func TestPipeline_SinkReceivesSubset(t *testing.T) {
	var gotRunID string
	var gotRows int
	sink := &MockSink{
		InsertFunc: func(ctx context.Context, runID string, subset *records.Table) error {
			gotRunID = runID
			gotRows = subset.Len()
			for _, r := range subset.Records() {
				assert.True(t, r.Amount.GreaterThan(decimal.NewFromInt(500)))
			}
			return nil
		},
	}
	p := newPipeline(writeInput(t, sampleCSV), "", pipeline.Deps{Writer: &MockWriter{}, Sink: sink}, pipeline.PolicyContinue)

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, p.RunID(), gotRunID)
	assert.Equal(t, 4, gotRows)
}

func TestPipeline_StoreErrorsAreTolerated(t *testing.T) {
	store := &MockRunStore{
		SaveRunFunc: func(ctx context.Context, run *runs.Run) error {
			return errors.New("ledger unavailable")
		},
	}
	p := newPipeline(writeInput(t, sampleCSV), "", pipeline.Deps{Writer: &MockWriter{}, Store: store}, pipeline.PolicyContinue)

	run, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, runs.StatusDone, run.Status)
	assert.NotEmpty(t, store.Statuses())
}

func TestPipeline_RerunIsDeterministic(t *testing.T) {
	input := writeInput(t, sampleCSV)

	read := func(out string) []byte {
		t.Helper()
		b, err := os.ReadFile(filepath.Join(out, "processed_transaction_data.csv"))
		require.NoError(t, err)
		return b
	}

	first, second := t.TempDir(), t.TempDir()
	_, err := newPipeline(input, first, pipeline.Deps{}, pipeline.PolicyContinue).Run(context.Background())
	require.NoError(t, err)
	_, err = newPipeline(input, second, pipeline.Deps{}, pipeline.PolicyContinue).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, bytes.Equal(read(first), read(second)))

	// A rerun into the same directory overwrites in place.
	_, err = newPipeline(input, first, pipeline.Deps{}, pipeline.PolicyContinue).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, bytes.Equal(read(first), read(second)))
}

func TestNew_Defaults(t *testing.T) {
	a := pipeline.New(pipeline.Deps{}, pipeline.Options{})
	b := pipeline.New(pipeline.Deps{}, pipeline.Options{})
	assert.NotEmpty(t, a.RunID())
	assert.NotEqual(t, a.RunID(), b.RunID())

	c := pipeline.New(pipeline.Deps{}, pipeline.Options{RunID: "fixed"})
	assert.Equal(t, "fixed", c.RunID())
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
