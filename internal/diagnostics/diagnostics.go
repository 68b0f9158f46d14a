// Package diagnostics holds the details sink and human-readable trace
// table an agent can optionally populate for each decision cycle. Unlike
// the teacher's internal/service/trace.Buffer (which batches rows for an
// eventual Postgres flush), this sink is purely in-memory and synchronous
// — there is no database behind this module.
package diagnostics

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/google/uuid"
)

// CandidateDetail is one instance's activation breakdown against a single
// option's query, as computed during a blend.
type CandidateDetail struct {
	Attrs       map[string]any
	Decision    any
	Outcome     float64
	Base        float64
	Mismatch    float64
	Noise       float64
	Total       float64
	Probability float64
	Clamped     bool
}

// OptionDetail is one option's full blend computation.
type OptionDetail struct {
	Option       any
	BlendedValue float64
	Candidates   []CandidateDetail
}

// Record is everything observable about a single choose() decision cycle.
// CycleID identifies the decision cycle the record belongs to — the same
// id that keys a DelayedResponse handle created for this cycle, useful for
// correlating a trace row back to a handle.
type Record struct {
	CycleID uuid.UUID
	Time    int
	Options []OptionDetail
	Chosen  any
}

// Sink receives one Record per decision cycle. The root package's Agent
// does not record into a Sink: it builds a Record only for the WriteTrace
// stdout table, and WithDetails records into the root package's own
// DetailsSink.
type Sink interface {
	Record(r Record)
}

// MemorySink accumulates every Record it receives, in order.
type MemorySink struct {
	records []Record
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink { return &MemorySink{} }

// Record implements Sink.
func (m *MemorySink) Record(r Record) { m.records = append(m.records, r) }

// Records returns every recorded Record, in order.
func (m *MemorySink) Records() []Record {
	return append([]Record(nil), m.records...)
}

// Last returns the most recently recorded Record and whether one exists.
func (m *MemorySink) Last() (Record, bool) {
	if len(m.records) == 0 {
		return Record{}, false
	}
	return m.records[len(m.records)-1], true
}

// WriteTrace renders r as a human-readable table, one row per candidate
// instance per option, to w.
func WriteTrace(w io.Writer, r Record) error {
	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	fmt.Fprintf(tw, "cycle=%s time=%d chosen=%v\n", r.CycleID, r.Time, r.Chosen)
	fmt.Fprintln(tw, "option\tblended\tinstance\toutcome\tbase\tmismatch\tnoise\ttotal\tprob")
	for _, opt := range r.Options {
		if len(opt.Candidates) == 0 {
			fmt.Fprintf(tw, "%v\t%.6f\t-\t-\t-\t-\t-\t-\t-\n", opt.Option, opt.BlendedValue)
			continue
		}
		for _, c := range opt.Candidates {
			fmt.Fprintf(tw, "%v\t%.6f\t%v\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\n",
				opt.Option, opt.BlendedValue, c.Decision, c.Outcome, c.Base, c.Mismatch, c.Noise, c.Total, c.Probability)
		}
	}
	return tw.Flush()
}
