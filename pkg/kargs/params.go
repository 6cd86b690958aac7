package kargs

import (
	"strings"
)

// Parameter is a single kernel command-line token, either a bare flag
// ("quiet") or a key=value pair ("mitigations=off"). Equality is exact-string:
// "mitigations=off" and "mitigations=auto" are distinct parameters even though
// they share a key.
type Parameter string

// Key returns the portion before the first '=', or the whole token for bare flags.
func (p Parameter) Key() string {
	if i := strings.IndexByte(string(p), '='); i >= 0 {
		return string(p)[:i]
	}
	return string(p)
}

// String returns the raw token.
func (p Parameter) String() string {
	return string(p)
}

// ParameterSet is an ordered set of kernel parameters. Insertion order is
// preserved so that diffs and rewritten command lines are deterministic;
// correctness depends only on set membership.
type ParameterSet struct {
	order []Parameter
	index map[Parameter]struct{}
}

// NewParameterSet builds a set from the given tokens, dropping duplicates and
// empty strings while keeping first-seen order.
func NewParameterSet(params ...Parameter) *ParameterSet {
	s := &ParameterSet{index: make(map[Parameter]struct{}, len(params))}
	for _, p := range params {
		s.Add(p)
	}
	return s
}

// ParseCmdline tokenizes a whitespace-separated kernel command line into a set.
func ParseCmdline(line string) *ParameterSet {
	fields := strings.Fields(line)
	s := &ParameterSet{index: make(map[Parameter]struct{}, len(fields))}
	for _, f := range fields {
		s.Add(Parameter(f))
	}
	return s
}

// Add inserts a parameter if not already present. Returns true if the set changed.
func (s *ParameterSet) Add(p Parameter) bool {
	if p == "" {
		return false
	}
	if s.index == nil {
		s.index = make(map[Parameter]struct{})
	}
	if _, ok := s.index[p]; ok {
		return false
	}
	s.index[p] = struct{}{}
	s.order = append(s.order, p)
	return true
}

// Remove deletes a parameter if present. Returns true if the set changed.
func (s *ParameterSet) Remove(p Parameter) bool {
	if s.index == nil {
		return false
	}
	if _, ok := s.index[p]; !ok {
		return false
	}
	delete(s.index, p)
	for i, q := range s.order {
		if q == p {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Contains reports whether the parameter is in the set.
func (s *ParameterSet) Contains(p Parameter) bool {
	if s == nil || s.index == nil {
		return false
	}
	_, ok := s.index[p]
	return ok
}

// Len returns the number of parameters in the set.
func (s *ParameterSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// List returns the parameters in insertion order. The returned slice is a copy.
func (s *ParameterSet) List() []Parameter {
	if s == nil {
		return nil
	}
	out := make([]Parameter, len(s.order))
	copy(out, s.order)
	return out
}

// Strings returns the parameters as plain strings in insertion order.
func (s *ParameterSet) Strings() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.order))
	for i, p := range s.order {
		out[i] = string(p)
	}
	return out
}

// Union returns a new set containing parameters from both sets, this set's
// order first.
func (s *ParameterSet) Union(other *ParameterSet) *ParameterSet {
	out := NewParameterSet(s.List()...)
	if other != nil {
		for _, p := range other.order {
			out.Add(p)
		}
	}
	return out
}

// Intersect returns a new set with the parameters of s that are also in other.
func (s *ParameterSet) Intersect(other *ParameterSet) *ParameterSet {
	out := NewParameterSet()
	if s == nil {
		return out
	}
	for _, p := range s.order {
		if other.Contains(p) {
			out.Add(p)
		}
	}
	return out
}

// Difference returns a new set with the parameters of s that are not in other.
func (s *ParameterSet) Difference(other *ParameterSet) *ParameterSet {
	out := NewParameterSet()
	if s == nil {
		return out
	}
	for _, p := range s.order {
		if !other.Contains(p) {
			out.Add(p)
		}
	}
	return out
}

// Equal reports whether both sets contain exactly the same parameters,
// ignoring order.
func (s *ParameterSet) Equal(other *ParameterSet) bool {
	if s.Len() != other.Len() {
		return false
	}
	if s == nil {
		return true
	}
	for _, p := range s.order {
		if !other.Contains(p) {
			return false
		}
	}
	return true
}

// Cmdline renders the set as a single space-joined command line.
func (s *ParameterSet) Cmdline() string {
	return strings.Join(s.Strings(), " ")
}
