// Package phase defines interned phase identifiers and immutable assemblages,
// the canonical labeling scheme of a pseudosection. An Assemblage is an
// unordered set of phases with value equality; it is the topological key
// every registry lookup is built on, so construction always canonicalizes
// (sorted, deduplicated) and all operations return fresh values.
package phase

import (
	"sort"
	"strings"
)

// Phase names a mineral/fluid end-member or solution phase. Comparison is
// case-sensitive and exact; the engine never interprets the name.
type Phase string

// Assemblage is an immutable set of phases. The zero value is the empty set.
type Assemblage struct {
	phases []Phase // sorted, unique
}

// New builds an Assemblage from the given phases, dropping duplicates and
// empty names.
func New(phases ...Phase) Assemblage {
	uniq := make(map[Phase]struct{}, len(phases))
	for _, p := range phases {
		if p != "" {
			uniq[p] = struct{}{}
		}
	}
	out := make([]Phase, 0, len(uniq))
	for p := range uniq {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return Assemblage{phases: out}
}

// FromStrings builds an Assemblage from plain strings.
func FromStrings(names ...string) Assemblage {
	phases := make([]Phase, len(names))
	for i, n := range names {
		phases[i] = Phase(n)
	}
	return New(phases...)
}

// Len returns the number of phases in the set.
func (a Assemblage) Len() int { return len(a.phases) }

// Empty reports whether the set has no phases.
func (a Assemblage) Empty() bool { return len(a.phases) == 0 }

// Has reports whether p is a member of the set.
func (a Assemblage) Has(p Phase) bool {
	i := sort.Search(len(a.phases), func(i int) bool { return a.phases[i] >= p })
	return i < len(a.phases) && a.phases[i] == p
}

// Equal reports set equality.
func (a Assemblage) Equal(b Assemblage) bool {
	if len(a.phases) != len(b.phases) {
		return false
	}
	for i := range a.phases {
		if a.phases[i] != b.phases[i] {
			return false
		}
	}
	return true
}

// ContainsAll reports whether every phase of b is in a.
func (a Assemblage) ContainsAll(b Assemblage) bool {
	for _, p := range b.phases {
		if !a.Has(p) {
			return false
		}
	}
	return true
}

// Union returns the set union of a and b.
func (a Assemblage) Union(b Assemblage) Assemblage {
	return New(append(append([]Phase{}, a.phases...), b.phases...)...)
}

// Diff returns the phases of a that are not in b.
func (a Assemblage) Diff(b Assemblage) Assemblage {
	out := make([]Phase, 0, len(a.phases))
	for _, p := range a.phases {
		if !b.Has(p) {
			out = append(out, p)
		}
	}
	return Assemblage{phases: out}
}

// Intersect returns the phases common to a and b.
func (a Assemblage) Intersect(b Assemblage) Assemblage {
	out := make([]Phase, 0, len(a.phases))
	for _, p := range a.phases {
		if b.Has(p) {
			out = append(out, p)
		}
	}
	return Assemblage{phases: out}
}

// With returns a copy of a with the given phases added.
func (a Assemblage) With(phases ...Phase) Assemblage {
	return New(append(append([]Phase{}, a.phases...), phases...)...)
}

// Without returns a copy of a with the given phases removed.
func (a Assemblage) Without(phases ...Phase) Assemblage {
	return a.Diff(New(phases...))
}

// Disjoint reports whether a and b share no phase.
func (a Assemblage) Disjoint(b Assemblage) bool {
	return a.Intersect(b).Empty()
}

// Phases returns the members in sorted order. The slice is a copy.
func (a Assemblage) Phases() []Phase {
	return append([]Phase{}, a.phases...)
}

// Strings returns the members as sorted strings.
func (a Assemblage) Strings() []string {
	out := make([]string, len(a.phases))
	for i, p := range a.phases {
		out[i] = string(p)
	}
	return out
}

// Key returns the canonical space-joined form used in map keys and labels.
func (a Assemblage) Key() string {
	return strings.Join(a.Strings(), " ")
}

// String implements fmt.Stringer.
func (a Assemblage) String() string { return a.Key() }
