// Package section implements the topology registry of a pseudosection: the
// typed invariant-point and univariant-line entities, the per-section
// container enforcing the key-uniqueness invariant, curve assembly (merging
// partially computed segments of one line), and polyline trimming between
// connected endpoints.
//
// A Section exclusively owns its entities. Lines reference invariant points
// by integer identity only, so removing a point detaches the referencing
// lines rather than leaving dangling pointers. All structural mutations are
// serialized; read-only queries may run concurrently.
package section

import (
	"fmt"

	"github.com/petrolab/psengine/internal/geom"
	"github.com/petrolab/psengine/internal/phase"
	"github.com/petrolab/psengine/internal/therm"
)

// Origin records how an entity entered the registry.
type Origin int

const (
	// Calculated entities carry a solved equilibrium from the gateway.
	Calculated Origin = iota
	// Manual entities are user-asserted without a solved equilibrium. They
	// are never removed by automatic topology operations.
	Manual
	// Unverified entities have positions inferred from curve intersection
	// rather than direct solution.
	Unverified
)

// String implements fmt.Stringer.
func (o Origin) String() string {
	switch o {
	case Calculated:
		return "calculated"
	case Manual:
		return "manual"
	case Unverified:
		return "unverified"
	default:
		return fmt.Sprintf("origin(%d)", int(o))
	}
}

// None marks an open endpoint reference on a univariant line.
const None = 0

// Key is the topological identity of an entity: its assemblage and its
// zero-mode phase set in canonical form. Two entities with equal keys are
// the same topological object regardless of position.
type Key struct {
	Phases string
	Out    string
}

// InvPoint is an invariant point: the position where two zero-mode
// reactions coincide. Out holds exactly two phases, both members of Phases.
type InvPoint struct {
	ID     int
	Phases phase.Assemblage
	Out    phase.Assemblage
	Pos    *geom.Point // nil until solved
	Origin Origin
	// Results carries the solved equilibria backing the point, when any.
	Results therm.ResultSet
}

// Key returns the point's topological identity.
func (ip *InvPoint) Key() Key {
	return Key{Phases: ip.Phases.Key(), Out: ip.Out.Key()}
}

// Validate checks the structural invariants: |out| == 2 and out ⊆ phases.
func (ip *InvPoint) Validate() error {
	if ip.Out.Len() != 2 {
		return fmt.Errorf("%w: invariant point %q needs exactly 2 out phases, got %d",
			ErrInvalidEntity, ip.Label(phase.Assemblage{}), ip.Out.Len())
	}
	if !ip.Phases.ContainsAll(ip.Out) {
		return fmt.Errorf("%w: out %q not within phases %q",
			ErrInvalidEntity, ip.Out.Key(), ip.Phases.Key())
	}
	return nil
}

// Label renders the conventional "phases - out" label, hiding excess phases.
func (ip *InvPoint) Label(excess phase.Assemblage) string {
	return ip.Phases.Diff(excess).Key() + " - " + ip.Out.Key()
}

// Manual reports whether the point is user-asserted.
func (ip *InvPoint) Manual() bool { return ip.Origin == Manual }

// UniLine is a univariant line: the curve along which one phase's modal
// proportion is zero. Begin and End reference invariant point identities,
// or None for an open end. Points is the ordered polyline, possibly empty
// for an unsolved or manual line.
type UniLine struct {
	ID      int
	Phases  phase.Assemblage
	Out     phase.Phase
	Points  []geom.Point
	Begin   int
	End     int
	Origin  Origin
	Results therm.ResultSet
}

// Key returns the line's topological identity.
func (ul *UniLine) Key() Key {
	return Key{Phases: ul.Phases.Key(), Out: string(ul.Out)}
}

// Validate checks the structural invariant out ∈ phases.
func (ul *UniLine) Validate() error {
	if ul.Out == "" {
		return fmt.Errorf("%w: univariant line needs an out phase", ErrInvalidEntity)
	}
	if !ul.Phases.Has(ul.Out) {
		return fmt.Errorf("%w: out %q not within phases %q",
			ErrInvalidEntity, ul.Out, ul.Phases.Key())
	}
	return nil
}

// Label renders the conventional "phases - out" label, hiding excess phases.
func (ul *UniLine) Label(excess phase.Assemblage) string {
	return ul.Phases.Diff(excess).Key() + " - " + string(ul.Out)
}

// Manual reports whether the line is user-asserted.
func (ul *UniLine) Manual() bool { return ul.Origin == Manual }

// Connected counts the resolved endpoint references.
func (ul *UniLine) Connected() int {
	n := 0
	if ul.Begin != None {
		n++
	}
	if ul.End != None {
		n++
	}
	return n
}

// OutSet returns the line's zero phase as a one-element assemblage.
func (ul *UniLine) OutSet() phase.Assemblage {
	return phase.New(ul.Out)
}

// clone returns a deep copy, used by registry operations that must not
// expose partially mutated state.
func (ul *UniLine) clone() *UniLine {
	cp := *ul
	cp.Points = append([]geom.Point{}, ul.Points...)
	cp.Results = append(therm.ResultSet{}, ul.Results...)
	return &cp
}
