// Package ibl implements Instance-Based Learning (IBL) decision agents
// grounded in the ACT-R declarative-memory equations: each Agent learns to
// choose among alternatives by accumulating a memory of past
// (situation, decision, outcome) instances, blending their outcomes by
// retrieval probability, and selecting the option with the highest
// blended value.
//
// The import graph enforces a strict no-cycle rule: ibl (root) imports
// internal/*, but internal/* never imports ibl. Public types (Details,
// CandidateDetail, etc.) are standalone structs with no internal package
// imports; conversion between the internal activation/diagnostics
// representations and these public types lives in this package because it
// is the only one that sees both sides of the boundary.
package ibl

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/DDM-Lab/go-ibl/internal/activation"
	"github.com/DDM-Lab/go-ibl/internal/similarity"
	"github.com/DDM-Lab/go-ibl/internal/store"
	"github.com/DDM-Lab/go-ibl/internal/telemetry"
)

// Agent is an IBL decision agent. Construct with New, drive with
// Choose/Respond/Populate. Agent has no public fields — use New's options
// to configure it. Agent is not safe for concurrent mutation (spec.md §5):
// independent agents may be driven in parallel, but a single Agent must be
// driven by one goroutine at a time.
type Agent struct {
	name   string
	schema []string

	store         *store.Store
	similarityReg *similarity.Registry

	params                  activation.Params
	defaultUtility          *utilitySpec
	defaultUtilityPopulates bool

	now int
	rng *rand.Rand

	logger *slog.Logger
	trace  bool

	detailsEnabled bool
	detailsSink    DetailsSink

	lastOptions []Option
	pending     *pendingSlot
	openDelayed map[uuid.UUID]*delayedState

	telemetryShutdown telemetry.Shutdown
	tracer            oteltrace.Tracer
	activationHist    metric.Float64Histogram
	retrievalSizeHist metric.Int64Histogram
}

// pendingSlot is the record left by Choose awaiting Respond, per spec.md
// §4.4/§9 ("pending slot").
type pendingSlot struct {
	cycleID     uuid.UUID
	attrs       map[string]any
	decision    any
	time        int
	expectation float64
}

// New constructs an Agent. It does not touch any external resource besides
// (optionally) an OpenTelemetry collector endpoint.
func New(opts ...Option) (*Agent, error) {
	o := resolvedOptions{}
	for _, fn := range opts {
		fn(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := validateSchema(o.attributes); err != nil {
		return nil, err
	}

	noise := 0.25
	if o.noiseSet {
		noise = o.noise
	}
	if noise < 0 {
		return nil, newValidationError("noise", fmt.Errorf("must be >= 0, got %v", noise))
	}
	if noise == 0 {
		logger.Warn("ibl: noise=0 makes choices deterministic")
	}

	decay := 0.5
	if o.decaySet {
		decay = o.decay
	}
	if decay < 0 {
		return nil, newValidationError("decay", fmt.Errorf("must be >= 0, got %v", decay))
	}
	if o.optimizedLearning && decay >= 1 {
		return nil, newValidationError("optimized_learning", ErrOptimizedLearningRequiresSubunitDecay)
	}
	if !o.temperatureSet && noise == 0 {
		return nil, newValidationError("temperature", ErrNoiseOrTemperatureRequired)
	}
	if o.temperatureSet && o.temperature <= 0 {
		return nil, newValidationError("temperature", fmt.Errorf("must be > 0, got %v", o.temperature))
	}
	if o.mismatchPenaltySet && o.mismatchPenalty < 0 {
		return nil, newValidationError("mismatch_penalty", fmt.Errorf("must be >= 0, got %v", o.mismatchPenalty))
	}
	if o.mismatchPenaltySet && o.defaultUtility != nil {
		logger.Warn("ibl: mismatch_penalty set alongside default_utility; this confounds reinforcement semantics")
	}
	if o.mismatchPenaltySet && o.defaultUtilityPopulates {
		return nil, newValidationError("default_utility_populates", ErrMismatchPenaltyRequiresNoPopulate)
	}

	rng := o.rng
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	var sink DetailsSink
	if o.detailsEnabled {
		sink = o.detailsSink
		if sink == nil {
			sink = &memorySink{}
		}
	}

	shutdown, err := telemetry.Init(context.Background(), o.telemetryEndpoint, o.telemetryService, "dev", true)
	if err != nil {
		return nil, fmt.Errorf("ibl: telemetry: %w", err)
	}

	meter := telemetry.Meter("github.com/DDM-Lab/go-ibl")
	activationHist, err := meter.Float64Histogram("ibl.activation.duration_seconds")
	if err != nil {
		return nil, fmt.Errorf("ibl: telemetry: %w", err)
	}
	retrievalSizeHist, err := meter.Int64Histogram("ibl.retrieval_set.size")
	if err != nil {
		return nil, fmt.Errorf("ibl: telemetry: %w", err)
	}

	a := &Agent{
		name:                    o.name,
		schema:                  append([]string(nil), o.attributes...),
		store:                   store.New(),
		similarityReg:           similarity.NewRegistry(),
		defaultUtility:          o.defaultUtility,
		defaultUtilityPopulates: o.defaultUtilityPopulates,
		rng:                     rng,
		logger:                  logger,
		trace:                   o.trace,
		detailsEnabled:          o.detailsEnabled,
		detailsSink:             sink,
		openDelayed:             make(map[uuid.UUID]*delayedState),
		telemetryShutdown:       shutdown,
		tracer:                  telemetry.Tracer("github.com/DDM-Lab/go-ibl"),
		activationHist:          activationHist,
		retrievalSizeHist:       retrievalSizeHist,
		params: activation.Params{
			Decay:              decay,
			Noise:              noise,
			Temperature:        o.temperature,
			TemperatureSet:     o.temperatureSet,
			MismatchPenalty:    o.mismatchPenalty,
			MismatchPenaltySet: o.mismatchPenaltySet,
			OptimizedLearning:  o.optimizedLearning,
			FixedNoise:         o.fixedNoise,
		},
	}
	return a, nil
}

// Shutdown flushes and releases any telemetry exporter configured with
// WithTelemetry. Safe to call even when telemetry was never configured.
func (a *Agent) Shutdown(ctx context.Context) error {
	return a.telemetryShutdown(ctx)
}

// Name returns the agent's name (empty unless set via WithName).
func (a *Agent) Name() string { return a.name }

// Attributes returns the agent's attribute schema, in order.
func (a *Agent) Attributes() []string { return append([]string(nil), a.schema...) }

// Time returns the agent's current logical time.
func (a *Agent) Time() int { return a.now }

// TraceEnabled reports whether a human-readable trace table is printed on
// every decision.
func (a *Agent) TraceEnabled() bool { return a.trace }

// DetailsEnabled reports whether structured details are recorded.
func (a *Agent) DetailsEnabled() bool { return a.detailsEnabled }

// FixedNoise reports whether activation noise is cached per
// (instance, decision-cycle) pair.
func (a *Agent) FixedNoise() bool { return a.params.FixedNoise }

// Details returns every Details record accumulated by the built-in
// in-memory sink. Empty if details were disabled or a custom sink was
// supplied via WithDetails.
func (a *Agent) Details() []Details {
	m, ok := a.detailsSink.(*memorySink)
	if !ok {
		return nil
	}
	return append([]Details(nil), m.records...)
}

// Similarity registers (or, with fn == nil, clears) the similarity
// function for attr, with the given weight (ignored when clearing).
// Registering a function on a non-schema attribute, or a non-positive
// weight, is a validation error.
func (a *Agent) Similarity(attr string, fn SimilarityFunc, weight float64) error {
	found := false
	for _, name := range a.schema {
		if name == attr {
			found = true
			break
		}
	}
	if !found {
		return newValidationError("similarity", fmt.Errorf("%w: %q is not in the attribute schema", ErrInvalidAttribute, attr))
	}
	if fn == nil {
		a.similarityReg.Clear(attr)
		return nil
	}
	if err := a.similarityReg.Set(attr, similarity.Func(fn), weight); err != nil {
		return newValidationError("similarity", err)
	}
	return nil
}

// Reset zeroes time, clears the pending slot, open delayed-response
// handles, and details, and empties the store. If preservePrepopulated is
// true, instances whose sole occurrence is at time 0 and which were
// inserted by Populate/PopulateAt (not auto-populated by a default utility,
// per Instance.Populated's provenance) are kept.
func (a *Agent) Reset(preservePrepopulated bool) {
	if preservePrepopulated {
		keep := make([]*store.Instance, 0)
		for _, inst := range a.store.All() {
			if inst.Populated && len(inst.Occurrences) == 1 && inst.Occurrences[0] == 0 && inst.Created == 0 {
				keep = append(keep, inst)
			}
		}
		a.store.Reset()
		for _, inst := range keep {
			kept := a.store.Upsert(inst.Attrs, inst.Decision, inst.Outcome, 0)
			kept.Populated = true
		}
	} else {
		a.store.Reset()
	}
	a.now = 0
	a.pending = nil
	a.openDelayed = make(map[uuid.UUID]*delayedState)
	a.lastOptions = nil
	if m, ok := a.detailsSink.(*memorySink); ok {
		m.records = nil
	}
}

// Advance jumps time forward by n (default handled by caller passing 1),
// or to target when target >= 0, exposing the passage of time without a
// decision. target must be >= the current time.
func (a *Agent) Advance(n int, target int) (int, error) {
	if target >= 0 {
		if target < a.now {
			return a.now, newValidationError("advance", fmt.Errorf("target %d is before current time %d", target, a.now))
		}
		a.now = target
		return a.now, nil
	}
	if n < 0 {
		return a.now, newValidationError("advance", fmt.Errorf("n must be >= 0, got %d", n))
	}
	a.now += n
	return a.now, nil
}

// InstanceSnapshot is a read-only view of one stored instance, returned by
// Instances.
type InstanceSnapshot struct {
	Attrs       map[string]any
	Decision    any
	Outcome     float64
	Created     int
	Occurrences []int
}

// Instances returns a snapshot of every instance currently in memory.
func (a *Agent) Instances() []InstanceSnapshot {
	all := a.store.All()
	out := make([]InstanceSnapshot, len(all))
	for i, inst := range all {
		attrs := make(map[string]any, len(inst.Attrs))
		for k, v := range inst.Attrs {
			attrs[k] = v
		}
		out[i] = InstanceSnapshot{
			Attrs:       attrs,
			Decision:    inst.Decision,
			Outcome:     inst.Outcome,
			Created:     inst.Created,
			Occurrences: append([]int(nil), inst.Occurrences...),
		}
	}
	return out
}

// WriteInstances writes a human-readable table of every stored instance
// to w.
func (a *Agent) WriteInstances(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%-24s %-16s %10s %8s %s\n", "attrs", "decision", "outcome", "created", "occurrences")
	if err != nil {
		return err
	}
	for _, inst := range a.Instances() {
		if _, err := fmt.Fprintf(w, "%-24v %-16v %10.4f %8d %v\n", inst.Attrs, inst.Decision, inst.Outcome, inst.Created, inst.Occurrences); err != nil {
			return err
		}
	}
	return nil
}
