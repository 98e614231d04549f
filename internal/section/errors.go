package section

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for registry operations.
var (
	// ErrDuplicateKey indicates an entity with the same topological key
	// already exists in the registry. Never silently resolved.
	ErrDuplicateKey = errors.New("section: duplicate topological key")
	// ErrDanglingReference indicates a line references an invariant point
	// not present in the registry. The offending operation is rolled back.
	ErrDanglingReference = errors.New("section: dangling invariant point reference")
	// ErrNotFound indicates the referenced entity id is not in the registry.
	ErrNotFound = errors.New("section: entity not found")
	// ErrInvalidEntity indicates an entity violates its structural invariants.
	ErrInvalidEntity = errors.New("section: invalid entity")
	// ErrKeyMismatch indicates a merge was attempted across different
	// topological keys, which is a programming error at the call site.
	ErrKeyMismatch = errors.New("section: merge across different topological keys")
)

// Conflict is one pair of entities sharing a topological key.
type Conflict struct {
	Key      Key
	FirstID  int
	SecondID int
}

// DuplicateKeyError lists every conflicting pair found while importing a
// snapshot. It matches ErrDuplicateKey under errors.Is.
type DuplicateKeyError struct {
	Conflicts []Conflict
}

// Error implements the error interface.
func (e *DuplicateKeyError) Error() string {
	parts := make([]string, len(e.Conflicts))
	for i, c := range e.Conflicts {
		parts[i] = fmt.Sprintf("(%s - %s: #%d vs #%d)", c.Key.Phases, c.Key.Out, c.FirstID, c.SecondID)
	}
	return fmt.Sprintf("section: duplicate topological keys: %s", strings.Join(parts, ", "))
}

// Is reports equivalence with ErrDuplicateKey.
func (e *DuplicateKeyError) Is(target error) bool {
	return target == ErrDuplicateKey
}

// GapWarning reports that a merge left a genuine gap in a line's polyline.
// The line remains usable for endpoint connectivity, but boundary geometry
// in the gapped span is imprecise.
type GapWarning struct {
	LineID   int
	From, To float64 // gap extent along the dominant parameter
}

// String implements fmt.Stringer.
func (w GapWarning) String() string {
	return fmt.Sprintf("line #%d has a sample gap in [%g, %g]", w.LineID, w.From, w.To)
}
