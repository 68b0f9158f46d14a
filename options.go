package ibl

import (
	"log/slog"
	"math/rand"
)

// Option configures an Agent. Apply with New.
type Option func(*resolvedOptions)

// resolvedOptions holds every extension point after defaults are applied.
// Unexported — callers use the With* functions.
type resolvedOptions struct {
	name       string
	attributes []string

	noise    float64
	noiseSet bool

	decay    float64
	decaySet bool

	temperature    float64
	temperatureSet bool

	mismatchPenalty    float64
	mismatchPenaltySet bool

	defaultUtility          *utilitySpec
	defaultUtilityPopulates bool

	optimizedLearning bool
	fixedNoise        bool

	logger *slog.Logger
	trace  bool

	detailsEnabled bool
	detailsSink    DetailsSink

	rng *rand.Rand

	telemetryEndpoint string
	telemetryService  string
}

// utilitySpec is the tagged Const(v) | Fn(option) variant spec.md §9
// describes for default_utility.
type utilitySpec struct {
	fn UtilityFunc
}

func constUtility(v float64) *utilitySpec {
	return &utilitySpec{fn: func(Option) float64 { return v }}
}

// WithName sets the agent's name, used only for logging and diagnostics.
func WithName(name string) Option {
	return func(o *resolvedOptions) { o.name = name }
}

// WithAttributes sets the agent's ordered attribute schema. An empty
// schema (the default) means options are bare hashable scalars.
func WithAttributes(names ...string) Option {
	return func(o *resolvedOptions) { o.attributes = append([]string(nil), names...) }
}

// WithNoise sets the scale sigma of the logistic activation noise (default
// 0.25). Setting it to 0 disables noise but makes choices deterministic —
// a warning is logged.
func WithNoise(sigma float64) Option {
	return func(o *resolvedOptions) { o.noise = sigma; o.noiseSet = true }
}

// WithDecay sets the base-level learning decay d (default 0.5).
func WithDecay(d float64) Option {
	return func(o *resolvedOptions) { o.decay = d; o.decaySet = true }
}

// WithTemperature sets the softmax temperature explicitly. If unset, tau
// falls back to noise*sqrt(2) (and construction fails if noise is also 0).
func WithTemperature(tau float64) Option {
	return func(o *resolvedOptions) { o.temperature = tau; o.temperatureSet = true }
}

// WithMismatchPenalty enables partial matching with the given penalty
// weight mu. Combining this with any default utility logs a warning
// (confounds reinforcement semantics, per spec.md §7); the warning is also
// logged for a constant default utility of 0 and for a utility function,
// whose values are not inspected.
func WithMismatchPenalty(mu float64) Option {
	return func(o *resolvedOptions) { o.mismatchPenalty = mu; o.mismatchPenaltySet = true }
}

// WithDefaultUtility sets a constant default utility used for options that
// have no retrievable candidate instances yet.
func WithDefaultUtility(v float64) Option {
	return func(o *resolvedOptions) { o.defaultUtility = constUtility(v) }
}

// WithDefaultUtilityFunc sets a per-option default utility function.
func WithDefaultUtilityFunc(fn UtilityFunc) Option {
	return func(o *resolvedOptions) { o.defaultUtility = &utilitySpec{fn: fn} }
}

// WithDefaultUtilityPopulates makes a default-utility fallback insert a
// real instance at the current time (so it later participates in
// base-level activation) instead of using the fallback only in-flight.
// Defaults to false (spec.md §9's resolved Open Question).
func WithDefaultUtilityPopulates(populates bool) Option {
	return func(o *resolvedOptions) { o.defaultUtilityPopulates = populates }
}

// WithOptimizedLearning enables the O(1) base-level activation fast path.
// Requires decay < 1.
func WithOptimizedLearning(enabled bool) Option {
	return func(o *resolvedOptions) { o.optimizedLearning = enabled }
}

// WithFixedNoise makes activation noise draw once per (instance,
// decision-cycle) pair instead of once per evaluation.
func WithFixedNoise(enabled bool) Option {
	return func(o *resolvedOptions) { o.fixedNoise = enabled }
}

// WithLogger sets the structured logger used for warnings. Defaults to
// slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *resolvedOptions) { o.logger = logger }
}

// WithTrace enables printing a human-readable activation table to stdout
// on every decision.
func WithTrace(enabled bool) Option {
	return func(o *resolvedOptions) { o.trace = enabled }
}

// WithDetails installs a fresh in-memory details sink (when sink is nil)
// or reuses the supplied sink, per spec.md §4.6.
func WithDetails(sink DetailsSink) Option {
	return func(o *resolvedOptions) {
		o.detailsEnabled = true
		o.detailsSink = sink
	}
}

// WithRandSource sets the agent's random source explicitly, for
// reproducible tests and simulations. Defaults to a time-seeded source.
func WithRandSource(rng *rand.Rand) Option {
	return func(o *resolvedOptions) { o.rng = rng }
}

// WithTelemetry enables OpenTelemetry tracing and metrics export to
// endpoint under serviceName. Leaving this unset (or endpoint empty) keeps
// telemetry a no-op, exactly as the teacher's telemetry.Init behaves.
func WithTelemetry(endpoint, serviceName string) Option {
	return func(o *resolvedOptions) { o.telemetryEndpoint = endpoint; o.telemetryService = serviceName }
}
