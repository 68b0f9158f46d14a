package ibl

// Option is any value a caller presents as a candidate to Choose, Populate,
// or Respond's new_decision argument. When the agent's attribute schema is
// empty, an Option is a hashable scalar (it becomes the decision itself).
// When the schema is non-empty, an Option is either a map[string]any whose
// keys are a superset of the schema, or an []any positionally bound to the
// schema's attribute order.
type Option = any

// UtilityFunc computes a default utility for an option that has no
// retrievable candidate instances yet.
type UtilityFunc func(option Option) float64

// CandidateDetail is one instance's activation breakdown against a single
// option's query, reported when details are enabled.
type CandidateDetail struct {
	Decision    any
	Outcome     float64
	Base        float64
	Mismatch    float64
	Noise       float64
	Total       float64
	Probability float64
	Clamped     bool
}

// OptionDetail is one option's full blend computation, reported when
// details are enabled.
type OptionDetail struct {
	Option       Option
	BlendedValue float64
	Candidates   []CandidateDetail
}

// Details is the structured breakdown of a single Choose decision. When
// details are enabled, Choose records one into the details sink (read back
// with Agent.Details for the built-in sink); Choose itself returns only the
// chosen option.
type Details struct {
	Time    int
	Options []OptionDetail
	Chosen  Option
}
