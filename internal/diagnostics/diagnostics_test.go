package diagnostics

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySinkAccumulatesInOrder(t *testing.T) {
	sink := NewMemorySink()
	sink.Record(Record{Time: 0, Chosen: "A"})
	sink.Record(Record{Time: 1, Chosen: "B"})

	records := sink.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "A", records[0].Chosen)
	assert.Equal(t, "B", records[1].Chosen)

	last, ok := sink.Last()
	require.True(t, ok)
	assert.Equal(t, "B", last.Chosen)
}

func TestMemorySinkLastOnEmpty(t *testing.T) {
	sink := NewMemorySink()
	_, ok := sink.Last()
	assert.False(t, ok)
}

func TestWriteTraceRendersEveryCandidate(t *testing.T) {
	r := Record{
		Time:   3,
		Chosen: "A",
		Options: []OptionDetail{
			{
				Option:       "A",
				BlendedValue: 4.14,
				Candidates: []CandidateDetail{
					{Decision: "A", Outcome: 10, Base: -0.34, Total: -0.34, Probability: 0.41},
					{Decision: "A", Outcome: 0, Base: 0, Total: 0, Probability: 0.58},
				},
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTrace(&buf, r))
	out := buf.String()
	assert.Contains(t, out, "time=3 chosen=A")
	assert.Contains(t, out, "option")
	assert.Contains(t, out, "A")
}

func TestWriteTraceHandlesOptionWithNoCandidates(t *testing.T) {
	r := Record{Time: 0, Chosen: "A", Options: []OptionDetail{{Option: "A", BlendedValue: 10}}}
	var buf bytes.Buffer
	require.NoError(t, WriteTrace(&buf, r))
	assert.Contains(t, buf.String(), "10.000000")
}
