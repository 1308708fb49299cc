package views

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/finance-reports/internal/aggregate"
	"github.com/dvloznov/finance-reports/internal/domain"
	"github.com/dvloznov/finance-reports/internal/logger"
	"github.com/dvloznov/finance-reports/internal/records"
)

// ErrSkipped is returned (wrapped) by Generate when a view has nothing to
// draw and its policy is to skip rather than fail.
var ErrSkipped = errors.New("view skipped")

// Source selects which shared structure a view reads.
type Source int

const (
	SourceTable Source = iota
	SourceSubset
	SourceRegions
	SourceProducts
	SourceCorrelation
)

// OnMissing is a view's policy when one of its required columns is absent.
type OnMissing int

const (
	MissingFails OnMissing = iota
	MissingSkips
	// MissingPlaceholder renders a titled "no data" image instead.
	MissingPlaceholder
)

// Kind tells how an artifact is encoded.
type Kind string

const (
	KindImage Kind = "image"
	KindTable Kind = "table"
)

// Artifact is one generated output, ready to be persisted under FileName.
type Artifact struct {
	View     string
	FileName string
	Kind     Kind
	Data     []byte
}

// Options control rendering.
type Options struct {
	Width  int
	Height int
}

// DefaultOptions matches the figure size most charts were designed for.
func DefaultOptions() Options {
	return Options{Width: 1000, Height: 600}
}

// Input carries every structure a view may read. Aggregates that failed to
// compute keep their error so only the views needing them fail.
type Input struct {
	Table *records.Table

	// Subset holds the rows above the threshold. SubsetErr is set instead
	// when the filter could not run.
	Subset    *records.Table
	SubsetErr error

	Regions    aggregate.RegionAggregate
	RegionsErr error

	Products    aggregate.ProductAggregate
	ProductsErr error

	Correlation    *aggregate.CorrelationMatrix
	CorrelationErr error
}

// Spec describes one view: where it reads from, what it needs and how it renders.
type Spec struct {
	Name      string
	Title     string
	FileName  string
	Kind      Kind
	Source    Source
	Requires  []domain.Column
	OnMissing OnMissing
	Render    func(title string, in *Input, opts Options) ([]byte, error)
}

// Generate runs the view against in. Failures are returned as *domain.ViewError;
// a skipped view returns an error wrapping ErrSkipped.
func (s Spec) Generate(ctx context.Context, in *Input, opts Options) (*Artifact, error) {
	log := logger.ForStage(ctx, "render").With().Str("view", s.Name).Logger()

	if err := s.check(in); err != nil {
		var schemaErr *domain.SchemaError
		if !errors.As(err, &schemaErr) || s.OnMissing == MissingFails {
			return nil, &domain.ViewError{View: s.Name, Err: err}
		}
		if s.OnMissing == MissingSkips {
			log.Warn().Str("column", string(schemaErr.Column)).Msg("Required column missing; skipping view")
			return nil, fmt.Errorf("%w: %s", ErrSkipped, schemaErr.Error())
		}

		log.Warn().Str("column", string(schemaErr.Column)).Msg("Required column missing; rendering placeholder")
		data, err := placeholder(s.Title, opts)
		if err != nil {
			return nil, &domain.ViewError{View: s.Name, Err: err}
		}
		return &Artifact{View: s.Name, FileName: s.FileName, Kind: s.Kind, Data: data}, nil
	}

	data, err := s.Render(s.Title, in, opts)
	if err != nil {
		return nil, &domain.ViewError{View: s.Name, Err: err}
	}

	log.Debug().Int("bytes", len(data)).Msg("View rendered")
	return &Artifact{View: s.Name, FileName: s.FileName, Kind: s.Kind, Data: data}, nil
}

// check verifies the view's input is usable before rendering.
func (s Spec) check(in *Input) error {
	switch s.Source {
	case SourceTable, SourceSubset:
		table := in.Table
		if s.Source == SourceSubset {
			if in.SubsetErr != nil {
				return in.SubsetErr
			}
			table = in.Subset
		}
		if table == nil {
			return fmt.Errorf("no input table")
		}
		if col, missing := table.Missing(s.Requires...); missing {
			return &domain.SchemaError{Operation: s.Name, Column: col}
		}
	case SourceRegions:
		return in.RegionsErr
	case SourceProducts:
		return in.ProductsErr
	case SourceCorrelation:
		if in.CorrelationErr != nil {
			return in.CorrelationErr
		}
		if in.Correlation == nil {
			return fmt.Errorf("no correlation matrix")
		}
	}
	return nil
}
