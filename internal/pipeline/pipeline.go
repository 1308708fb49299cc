package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-reports/internal/logger"
	"github.com/dvloznov/finance-reports/internal/runs"
	"github.com/dvloznov/finance-reports/internal/views"
)

// Options configure one pipeline run.
type Options struct {
	// RunID identifies the run; a new UUID is used when empty.
	RunID string

	InputPath string
	OutputDir string

	// Threshold is the Amount a row must exceed to enter the filtered
	// subset; aggregate.DefaultThreshold in the standard configuration.
	Threshold decimal.Decimal
	Policy    Policy
	Render    views.Options
}

// Deps are the collaborators of the pipeline. Sink and Store may be nil.
type Deps struct {
	Loader Loader
	Writer ArtifactWriter
	Sink   WarehouseSink
	Store  RunStore
}

// Pipeline sequences load, aggregate, render and export for one input file.
type Pipeline struct {
	deps  Deps
	opts  Options
	steps []PipelineStep
	now   func() time.Time
}

// New builds a pipeline with the standard step sequence.
func New(deps Deps, opts Options) *Pipeline {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.Policy == "" {
		opts.Policy = PolicyContinue
	}
	if opts.Render.Width == 0 || opts.Render.Height == 0 {
		opts.Render = views.DefaultOptions()
	}

	return &Pipeline{
		deps: deps,
		opts: opts,
		steps: []PipelineStep{
			&LoadStep{Loader: deps.Loader, Path: opts.InputPath},
			&AggregateStep{Threshold: opts.Threshold},
			&RenderStep{Specs: views.Charts(), Writer: deps.Writer, Options: opts.Render, Policy: opts.Policy},
			&ExportStep{Spec: views.Export(), Writer: deps.Writer, Sink: deps.Sink},
		},
		now: time.Now,
	}
}

// RunID returns the identifier this pipeline records its run under.
func (p *Pipeline) RunID() string {
	return p.opts.RunID
}

// Run executes the steps in order. Load, aggregate and export failures, and
// a view failure under PolicyStop, end the run as failed and are returned.
// The returned run is never nil.
func (p *Pipeline) Run(ctx context.Context) (*runs.Run, error) {
	log := logger.FromContext(ctx).With().Str("run_id", p.opts.RunID).Logger()
	ctx = logger.WithContext(ctx, log)

	state := &PipelineState{
		Run: &runs.Run{
			RunID:     p.opts.RunID,
			InputPath: p.opts.InputPath,
			OutputDir: p.opts.OutputDir,
			Status:    runs.StatusIdle,
			StartedAt: p.now(),
		},
	}
	p.save(ctx, state.Run)

	log.Info().
		Str("input", p.opts.InputPath).
		Str("policy", string(p.opts.Policy)).
		Str("threshold", p.opts.Threshold.String()).
		Msg("Starting report run")

	for _, step := range p.steps {
		state.Run.Status = step.Status()
		p.save(ctx, state.Run)

		if err := step.Execute(ctx, state); err != nil {
			return p.fail(ctx, state.Run, fmt.Errorf("%s: %w", step.Status(), err))
		}
	}

	p.finish(ctx, state.Run, runs.StatusDone, nil)
	log.Info().
		Int("rows", state.Run.Rows).
		Int("filtered", state.Run.Filtered).
		Int("failed_views", state.Run.Count(runs.OutcomeFailed)).
		Msg("Report run completed")
	return state.Run, nil
}

func (p *Pipeline) fail(ctx context.Context, run *runs.Run, err error) (*runs.Run, error) {
	log := logger.FromContext(ctx)
	log.Error().Err(err).Str("status", string(run.Status)).Msg("Report run failed")
	p.finish(ctx, run, runs.StatusFailed, err)
	return run, err
}

func (p *Pipeline) finish(ctx context.Context, run *runs.Run, status runs.Status, err error) {
	finished := p.now()
	run.Status = status
	run.FinishedAt = &finished
	if err != nil {
		run.Error = truncate(err.Error())
	}
	p.save(ctx, run)
}

// save records progress. The ledger is bookkeeping; a failed save is logged
// and the run carries on.
func (p *Pipeline) save(ctx context.Context, run *runs.Run) {
	if p.deps.Store == nil {
		return
	}
	if err := p.deps.Store.SaveRun(ctx, run); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("Failed to record run state")
	}
}
