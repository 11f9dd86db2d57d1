// Package pipeline executes an ordered list of mutation steps against a
// remote resource under optimistic concurrency.
//
// Each step's request depends on the previous step's response: the
// resource's version counter must always be the one most recently
// observed, and identifiers generated inside earlier responses (derived
// references) are consumed by name in later steps. Execution is strictly
// sequential with no retry; the first failure aborts the remaining steps
// and leaves the remote resource in whatever state the last successful
// mutation produced.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"multiship/internal/artifact"
	"multiship/internal/model"
)

// Handle identifies a resource together with its current version counter.
// It is obtained from the resource's creation response and replaced after
// every successful mutation; it is never decremented or reused.
type Handle struct {
	ID      string
	Version int64
}

// State threads the handle and the derived references between steps.
type State struct {
	handle Handle
	refs   map[string]string
}

// NewState creates the starting state for a run.
func NewState(initial Handle) *State {
	return &State{handle: initial, refs: make(map[string]string)}
}

// Handle returns the current version handle.
func (s *State) Handle() Handle {
	return s.handle
}

// Ref resolves a derived reference by name. Referencing a name that was
// never produced, or was invalidated by a prior step, is a wiring mistake
// in the step list and fails the run.
func (s *State) Ref(name string) (string, error) {
	v, ok := s.refs[name]
	if !ok {
		return "", fmt.Errorf("derived reference %q is not available: %w", name, model.ErrConfig)
	}
	return v, nil
}

// Result is what a successful step hands back to the pipeline.
type Result struct {
	// Handle is the updated version handle extracted from the response.
	// Required: a step that mutated the resource must report the new
	// version or the next step would send a stale one.
	Handle Handle

	// Refs are derived references produced by this step, available to all
	// later steps by name.
	Refs map[string]string

	// Invalidates names references whose objects this step deleted.
	// A later step needing one of them fails fast.
	Invalidates []string

	// Snapshot is the raw response body, recorded under the step name.
	Snapshot []byte
}

// Step is one request/response exchange.
type Step struct {
	// Name identifies the step in diagnostics and snapshot artifacts.
	Name string

	// Needs lists the derived references the step consumes. They are
	// checked before Do runs so a missing reference surfaces as a clear
	// wiring error rather than a malformed request.
	Needs []string

	// Do performs the exchange. It reads the current handle and any
	// references from st and must return the updated handle.
	Do func(ctx context.Context, st *State) (*Result, error)
}

// Pipeline runs steps in fixed, caller-specified order.
type Pipeline struct {
	steps  []Step
	sink   artifact.Sink
	logger *slog.Logger
}

// New creates a pipeline. sink may be nil to skip snapshot recording.
func New(sink artifact.Sink, logger *slog.Logger, steps ...Step) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{steps: steps, sink: sink, logger: logger}
}

// Run executes every step in order, threading the version handle and
// derived references through. The first error aborts the run, wrapped
// with the failing step's name; already-applied mutations are not rolled
// back. Returns the final state on success.
func (p *Pipeline) Run(ctx context.Context, initial Handle) (*State, error) {
	st := NewState(initial)

	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("step %q: %w", step.Name, err)
		}

		for _, need := range step.Needs {
			if _, err := st.Ref(need); err != nil {
				return nil, fmt.Errorf("step %q: %w", step.Name, err)
			}
		}

		res, err := step.Do(ctx, st)
		if err != nil {
			return nil, fmt.Errorf("step %q: %w", step.Name, err)
		}
		if res == nil {
			return nil, fmt.Errorf("step %q: %w", step.Name, model.NewExtractionError("step result"))
		}
		if res.Handle.ID == "" || res.Handle.Version == 0 {
			return nil, fmt.Errorf("step %q: %w", step.Name, model.NewExtractionError("resource version"))
		}

		st.handle = res.Handle
		for _, name := range res.Invalidates {
			delete(st.refs, name)
		}
		for name, value := range res.Refs {
			st.refs[name] = value
		}

		// Snapshots are observational; a failed write never aborts the run.
		if p.sink != nil && len(res.Snapshot) > 0 {
			if err := p.sink.Record(step.Name, res.Snapshot); err != nil {
				p.logger.Warn("snapshot not recorded",
					slog.String("step", step.Name),
					slog.Any("error", err),
				)
			}
		}

		p.logger.Info("step completed",
			slog.String("step", step.Name),
			slog.String("resource", st.handle.ID),
			slog.Int64("version", st.handle.Version),
		)
	}

	return st, nil
}
