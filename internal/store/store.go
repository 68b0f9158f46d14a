// Package store is the in-process instance memory underlying an agent.
//
// An instance is one (attributes, decision, outcome) experience plus the
// list of times it has reoccurred. The store never talks to a database —
// it holds exactly as many instances as an agent has reinforced, for the
// agent's lifetime, mirroring the no-persistence Non-goal of the engine
// it backs.
package store

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Instance is a single declarative memory trace.
type Instance struct {
	Attrs       map[string]any // effective attribute values, including the synthetic "_decision" slot when the schema is empty
	Decision    any            // display/override identity tag; part of the identity key, but Candidates matches on Attrs only
	Outcome     float64
	Created     int
	Occurrences []int // strictly increasing times this instance has reoccurred
	Populated   bool  // true if created by Populate with populatedByCaller=true; false if created by Upsert (reinforcement, delayed-response placeholders) or by a default-utility auto-population (Populate with populatedByCaller=false)

	optK    int     // optimized-learning: reinforcement count
	optSumT float64 // optimized-learning: running sum of occurrence times
}

// TAvg returns the incrementally-maintained mean occurrence time used by
// optimized-learning base-level activation.
func (inst *Instance) TAvg() float64 {
	if inst.optK == 0 {
		return 0
	}
	return inst.optSumT / float64(inst.optK)
}

// OptK returns the optimized-learning reinforcement count (len(Occurrences)
// kept incrementally rather than recomputed).
func (inst *Instance) OptK() int { return inst.optK }

// Key identifies an instance by its (attribute-values, decision, outcome)
// identity, per the data model's instance identity tuple.
type Key struct {
	AttrsEnc    string
	DecisionEnc string
	Outcome     float64
}

// ValidateHashable reports whether v may be used as an attribute or decision
// value. Slices, maps, and funcs are rejected because they cannot serve as a
// stable memory key.
func ValidateHashable(v any) error {
	if v == nil {
		return nil
	}
	if !reflect.TypeOf(v).Comparable() {
		return fmt.Errorf("%w: %T", ErrNotHashable, v)
	}
	return nil
}

func encodeValue(v any) string {
	return fmt.Sprintf("%#v", v)
}

func encodeAttrs(attrs map[string]any) string {
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + "=" + encodeValue(attrs[name])
	}
	return strings.Join(parts, "|")
}

// MakeKey computes the identity key for (attrs, decision, outcome).
func MakeKey(attrs map[string]any, decision any, outcome float64) Key {
	return Key{AttrsEnc: encodeAttrs(attrs), DecisionEnc: encodeValue(decision), Outcome: outcome}
}

// Store holds every instance an agent has reinforced, indexed for fast
// exact-match candidate retrieval.
type Store struct {
	byKey map[Key]*Instance
	all   []*Instance // insertion order, for deterministic iteration

	// invertedIndex[attrName][valueEncoding] lists every instance whose
	// Attrs[attrName] encodes to valueEncoding. Used by Candidates to avoid
	// scanning instances that cannot possibly match an exact-required
	// attribute.
	invertedIndex map[string]map[string][]*Instance
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		byKey:         make(map[Key]*Instance),
		invertedIndex: make(map[string]map[string][]*Instance),
	}
}

// Len reports the number of distinct instances in the store.
func (s *Store) Len() int { return len(s.all) }

// All returns every instance, in insertion order. The caller must not
// mutate the returned slice's instances.
func (s *Store) All() []*Instance {
	return append([]*Instance(nil), s.all...)
}

func cloneAttrs(attrs map[string]any) map[string]any {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}

// Upsert reinforces the instance identified by (attrs, decision, outcome) at
// time t, appending t to its occurrences if it is strictly newer than the
// last recorded occurrence, or creates a new instance if none exists.
func (s *Store) Upsert(attrs map[string]any, decision any, outcome float64, t int) *Instance {
	key := MakeKey(attrs, decision, outcome)
	if inst, ok := s.byKey[key]; ok {
		s.reinforce(inst, t)
		return inst
	}
	inst := s.create(key, attrs, decision, outcome, t)
	return inst
}

// Populate reinforces or creates the instance for (attrs, decision, outcome)
// with an explicit creation time, as Upsert does, but additionally enforces
// that createdTime does not lie in the future and does not conflict with an
// already-recorded (different) creation time for the same identity.
//
// populatedByCaller marks the created instance's provenance (Instance.Populated):
// true for an agent's explicit Populate/PopulateAt call, false for a
// default-utility auto-population. Reset(preservePrepopulated) uses this to
// keep only genuinely caller-populated zero-time instances.
func (s *Store) Populate(attrs map[string]any, decision any, outcome float64, createdTime, now int, populatedByCaller bool) (*Instance, error) {
	if createdTime > now {
		return nil, fmt.Errorf("%w: created=%d now=%d", ErrFutureTime, createdTime, now)
	}
	key := MakeKey(attrs, decision, outcome)
	if inst, ok := s.byKey[key]; ok {
		if inst.Created != createdTime {
			return nil, fmt.Errorf("%w: existing created=%d requested=%d", ErrConflictingIdentity, inst.Created, createdTime)
		}
		s.reinforce(inst, createdTime)
		return inst, nil
	}
	inst := s.create(key, attrs, decision, outcome, createdTime)
	inst.Populated = populatedByCaller
	return inst, nil
}

func (s *Store) reinforce(inst *Instance, t int) {
	last := inst.Occurrences[len(inst.Occurrences)-1]
	if t <= last {
		return
	}
	inst.Occurrences = append(inst.Occurrences, t)
	inst.optK++
	inst.optSumT += float64(t)
}

func (s *Store) create(key Key, attrs map[string]any, decision any, outcome float64, t int) *Instance {
	inst := &Instance{
		Attrs:       cloneAttrs(attrs),
		Decision:    decision,
		Outcome:     outcome,
		Created:     t,
		Occurrences: []int{t},
		optK:        1,
		optSumT:     float64(t),
	}
	s.byKey[key] = inst
	s.all = append(s.all, inst)
	s.index(inst)
	return inst
}

func (s *Store) index(inst *Instance) {
	for name, v := range inst.Attrs {
		enc := encodeValue(v)
		bucket := s.invertedIndex[name]
		if bucket == nil {
			bucket = make(map[string][]*Instance)
			s.invertedIndex[name] = bucket
		}
		bucket[enc] = append(bucket[enc], inst)
	}
}

func (s *Store) deindex(inst *Instance) {
	for name, v := range inst.Attrs {
		enc := encodeValue(v)
		bucket := s.invertedIndex[name][enc]
		for i, candidate := range bucket {
			if candidate == inst {
				s.invertedIndex[name][enc] = append(bucket[:i], bucket[i+1:]...)
				break
			}
		}
	}
}

// Candidates returns every instance whose Attrs agree exactly with query on
// every name in exactAttrs. Attributes not in exactAttrs (those with a
// registered similarity function) are left for the caller to score.
func (s *Store) Candidates(query map[string]any, exactAttrs []string) []*Instance {
	if len(exactAttrs) == 0 {
		return s.All()
	}
	var result []*Instance
	for i, name := range exactAttrs {
		bucket := s.invertedIndex[name][encodeValue(query[name])]
		if i == 0 {
			result = append(result, bucket...)
			continue
		}
		result = intersect(result, bucket)
	}
	return result
}

func intersect(a, b []*Instance) []*Instance {
	set := make(map[*Instance]struct{}, len(b))
	for _, inst := range b {
		set[inst] = struct{}{}
	}
	out := a[:0:0]
	for _, inst := range a {
		if _, ok := set[inst]; ok {
			out = append(out, inst)
		}
	}
	return out
}

// MoveOccurrence removes occurrence t from src and reinforces (or creates)
// the instance identified by (newAttrs, newDecision, newOutcome) at time t.
// It is the retroactive rewrite delayed feedback performs: the situation
// recorded at t is reattributed to a different outcome (and, if requested,
// a different decision) without disturbing src's other occurrences.
func (s *Store) MoveOccurrence(src *Instance, t int, newAttrs map[string]any, newDecision any, newOutcome float64) (*Instance, error) {
	idx := -1
	for i, occ := range src.Occurrences {
		if occ == t {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, ErrOccurrenceNotFound
	}
	src.Occurrences = append(src.Occurrences[:idx], src.Occurrences[idx+1:]...)
	s.recomputeOptimized(src)
	if len(src.Occurrences) == 0 {
		s.remove(src)
	}
	return s.Upsert(newAttrs, newDecision, newOutcome, t), nil
}

func (s *Store) recomputeOptimized(inst *Instance) {
	inst.optK = len(inst.Occurrences)
	sum := 0.0
	for _, t := range inst.Occurrences {
		sum += float64(t)
	}
	inst.optSumT = sum
}

func (s *Store) remove(inst *Instance) {
	for key, candidate := range s.byKey {
		if candidate == inst {
			delete(s.byKey, key)
			break
		}
	}
	for i, candidate := range s.all {
		if candidate == inst {
			s.all = append(s.all[:i], s.all[i+1:]...)
			break
		}
	}
	s.deindex(inst)
}

// Reset discards every instance, returning the store to empty.
func (s *Store) Reset() {
	s.byKey = make(map[Key]*Instance)
	s.all = nil
	s.invertedIndex = make(map[string]map[string][]*Instance)
}
