// Package run orchestrates one evaluation as a sequence of steps over a
// shared state. Each run is a pure pipeline over its own tables; the
// validate and anomaly steps are read-only and safe to reorder against
// each other.
package run

import (
	"context"
	"fmt"

	"github.com/davivargas/f-migration/internal/adapters"
	"github.com/davivargas/f-migration/internal/anomaly"
	"github.com/davivargas/f-migration/internal/logger"
	"github.com/davivargas/f-migration/internal/report"
	"github.com/davivargas/f-migration/internal/stress"
	"github.com/davivargas/f-migration/internal/validator"
)

// Step is a single stage of an evaluation run.
type Step interface {
	Execute(ctx context.Context, state *State) error
}

// State is the shared state threaded through the steps of one run.
type State struct {
	RunID string
	Input string

	Loaded *adapters.LoadedData
	Stats  *adapters.CleanStats

	Issues  []validator.Issue
	Anomaly *anomaly.Result
	Summary report.Summary
}

// Pipeline executes its steps in order, stopping at the first failure.
type Pipeline struct {
	steps []Step
}

func NewPipeline(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

func (p *Pipeline) Execute(ctx context.Context, state *State) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("evaluation step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// LoadStep runs the format adapter and records the canonical tables and
// cleaning diagnostics.
type LoadStep struct {
	Adapter adapters.Adapter
}

func (s *LoadStep) Execute(ctx context.Context, state *State) error {
	loaded, stats, err := s.Adapter.Load(ctx, state.Input)
	if err != nil {
		return err
	}
	state.Loaded = loaded
	state.Stats = stats

	log := logger.FromContext(ctx)
	event := log.Info().
		Int("accounts", loaded.Accounts.NumRows()).
		Int("transactions", loaded.Transactions.NumRows())
	if loaded.Vendors != nil {
		event = event.Int("vendors", loaded.Vendors.NumRows())
	}
	event.Msg("loaded canonical tables")
	return nil
}

// StressStep corrupts the loaded transactions deterministically before
// validation; it exists to exercise the downstream checks.
type StressStep struct{}

func (s *StressStep) Execute(ctx context.Context, state *State) error {
	stress.Apply(state.Loaded.Transactions)
	log := logger.FromContext(ctx)
	log.Warn().Msg("stress defects injected into transactions")
	return nil
}

// ValidateStep runs the rule battery over the loaded tables.
type ValidateStep struct{}

func (s *ValidateStep) Execute(ctx context.Context, state *State) error {
	state.Issues = validator.Validate(state.Loaded.Accounts, state.Loaded.Transactions, state.Loaded.Vendors)
	log := logger.FromContext(ctx)
	log.Info().Int("issues", len(state.Issues)).Msg("validation finished")
	return nil
}

// AnomalyStep runs exactly one detector mode: top-N inspection when
// TopN > 0, otherwise the robust outlier test.
type AnomalyStep struct {
	ZThreshold float64
	TopN       int
}

func (s *AnomalyStep) Execute(ctx context.Context, state *State) error {
	if s.TopN > 0 {
		state.Anomaly = anomaly.TopAbsoluteAmounts(state.Loaded.Transactions, s.TopN)
	} else {
		state.Anomaly = anomaly.DetectAmountOutliers(state.Loaded.Transactions, s.ZThreshold)
	}
	if state.Anomaly != nil {
		log := logger.FromContext(ctx)
		log.Info().
			Int("count", state.Anomaly.Count).
			Msg("anomaly detected")
	}
	return nil
}

// SummarizeStep folds the findings into the final summary and verdict.
type SummarizeStep struct{}

func (s *SummarizeStep) Execute(ctx context.Context, state *State) error {
	var vendorsCount *int
	if state.Loaded.Vendors != nil {
		n := state.Loaded.Vendors.NumRows()
		vendorsCount = &n
	}
	state.Summary = report.BuildSummary(
		state.Loaded.Accounts.NumRows(),
		state.Loaded.Transactions.NumRows(),
		vendorsCount,
		state.Issues,
		state.Anomaly,
	)
	log := logger.FromContext(ctx)
	log.Info().Str("risk", string(state.Summary.Risk)).Msg("evaluation summarized")
	return nil
}

// NewEvaluationPipeline builds the standard pipeline for one run.
func NewEvaluationPipeline(adapter adapters.Adapter, withStress bool, zThreshold float64, topN int) *Pipeline {
	steps := []Step{&LoadStep{Adapter: adapter}}
	if withStress {
		steps = append(steps, &StressStep{})
	}
	steps = append(steps,
		&ValidateStep{},
		&AnomalyStep{ZThreshold: zThreshold, TopN: topN},
		&SummarizeStep{},
	)
	return NewPipeline(steps...)
}
