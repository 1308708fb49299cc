package pipeline

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-reports/internal/aggregate"
	"github.com/dvloznov/finance-reports/internal/logger"
	"github.com/dvloznov/finance-reports/internal/records"
	"github.com/dvloznov/finance-reports/internal/runs"
	"github.com/dvloznov/finance-reports/internal/views"
)

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Run    *runs.Run
	Table  *records.Table
	Subset *records.Table
	Input  *views.Input
}

// record appends a view outcome to the run.
func (s *PipelineState) record(spec views.Spec, outcome runs.Outcome, path string, err error) {
	res := runs.ViewResult{View: spec.Name, File: spec.FileName, Outcome: outcome, Path: path}
	if err != nil {
		res.Error = truncate(err.Error())
	}
	s.Run.Views = append(s.Run.Views, res)
}

// Step 1: LoadStep reads the source table.
type LoadStep struct {
	Loader Loader
	Path   string
}

func (s *LoadStep) Status() runs.Status { return runs.StatusLoading }

func (s *LoadStep) Execute(ctx context.Context, state *PipelineState) error {
	table, err := s.Loader.Load(ctx, s.Path)
	if err != nil {
		return err
	}
	state.Table = table
	state.Run.Rows = table.Len()

	log := logger.ForStage(ctx, stageLoad)
	log.Debug().Strs("header", table.Header()).Msg("Source table ready")
	return nil
}

// Step 2: AggregateStep normalizes dates, filters and builds the shared
// aggregates. Nothing here is fatal: a filter or aggregate that cannot be
// built is handed to the views that need it as an error, and the export
// step fails the run if the subset is unavailable.
type AggregateStep struct {
	Threshold decimal.Decimal
}

func (s *AggregateStep) Status() runs.Status { return runs.StatusAggregating }

func (s *AggregateStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.ForStage(ctx, stageAggregate)

	aggregate.NormalizeDate(ctx, state.Table)

	in := &views.Input{Table: state.Table}
	in.Subset, in.SubsetErr = aggregate.FilterByAmount(ctx, state.Table, s.Threshold)
	if in.SubsetErr == nil {
		state.Subset = in.Subset
		state.Run.Filtered = in.Subset.Len()
		in.Regions, in.RegionsErr = aggregate.AggregateByRegion(in.Subset)
	} else {
		in.RegionsErr = in.SubsetErr
	}
	in.Products, in.ProductsErr = aggregate.AggregateByProduct(state.Table)
	in.Correlation, in.CorrelationErr = aggregate.Correlation(state.Table)

	for _, a := range []struct {
		name string
		err  error
	}{{"subset", in.SubsetErr}, {"region", in.RegionsErr}, {"product", in.ProductsErr}, {"correlation", in.CorrelationErr}} {
		if a.err != nil {
			log.Warn().Err(a.err).Str("aggregate", a.name).Msg("Aggregate unavailable; dependent views will fail")
		}
	}

	log.Info().Int("regions", len(in.Regions)).Int("products", len(in.Products)).Msg("Aggregates built")
	state.Input = in
	return nil
}

// Step 3: RenderStep runs every chart view and persists its artifact.
type RenderStep struct {
	Specs   []views.Spec
	Writer  ArtifactWriter
	Options views.Options
	Policy  Policy
}

func (s *RenderStep) Status() runs.Status { return runs.StatusRendering }

func (s *RenderStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.ForStage(ctx, stageRender)

	for i, spec := range s.Specs {
		vlog := log.With().Str("view", spec.Name).Int("index", i+1).Logger()

		art, err := spec.Generate(ctx, state.Input, s.Options)
		if errors.Is(err, views.ErrSkipped) {
			state.record(spec, runs.OutcomeSkipped, "", err)
			continue
		}

		var path string
		if err == nil {
			path, err = s.Writer.Write(ctx, art)
		}
		if err != nil {
			vlog.Error().Err(err).Msg("View failed")
			state.record(spec, runs.OutcomeFailed, path, err)
			if s.Policy == PolicyStop {
				return fmt.Errorf("view %s: %w", spec.Name, err)
			}
			continue
		}

		state.record(spec, runs.OutcomeWritten, path, nil)
	}

	written := state.Run.Count(runs.OutcomeWritten)
	log.Info().
		Int("written", written).
		Int("skipped", state.Run.Count(runs.OutcomeSkipped)).
		Int("failed", state.Run.Count(runs.OutcomeFailed)).
		Msgf("Rendered %d of %d views", written, len(s.Specs))
	return nil
}

// Step 4: ExportStep writes the derived export and, when configured,
// loads the subset into the warehouse. Every failure here is fatal.
type ExportStep struct {
	Spec   views.Spec
	Writer ArtifactWriter
	Sink   WarehouseSink
}

func (s *ExportStep) Status() runs.Status { return runs.StatusExporting }

func (s *ExportStep) Execute(ctx context.Context, state *PipelineState) error {
	art, err := s.Spec.Generate(ctx, state.Input, views.Options{})
	if err != nil {
		state.record(s.Spec, runs.OutcomeFailed, "", err)
		return err
	}

	path, err := s.Writer.Write(ctx, art)
	if err != nil {
		state.record(s.Spec, runs.OutcomeFailed, path, err)
		return err
	}
	state.record(s.Spec, runs.OutcomeWritten, path, nil)

	if s.Sink != nil {
		if err := s.Sink.Insert(ctx, state.Run.RunID, state.Subset); err != nil {
			return fmt.Errorf("warehouse insert: %w", err)
		}
	}

	log := logger.ForStage(ctx, stageExport)
	log.Info().Str("path", path).Int("rows", state.Subset.Len()).Msg("Derived export written")
	return nil
}

// truncate caps s at maxErrorLen bytes without splitting a rune.
func truncate(s string) string {
	if len(s) <= maxErrorLen {
		return s
	}
	cut := maxErrorLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
