package ibl

// DetailsSink receives one Details record per decision cycle when details
// are enabled (see WithDetails). Implement it to stream decisions
// somewhere other than the built-in in-memory buffer returned by
// Agent.Details.
type DetailsSink interface {
	Record(d Details)
}

// memorySink is the default DetailsSink installed by WithDetails(nil).
type memorySink struct {
	records []Details
}

func (m *memorySink) Record(d Details) { m.records = append(m.records, d) }
