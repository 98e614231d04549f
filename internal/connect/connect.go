// Package connect links univariant lines to invariant points: it ranks
// endpoint candidates already in the registry, sweeps for undiscovered
// points near a line, and drives a bisection search along a line's
// extension. Nothing here mutates the registry except Autoconnect, and
// only when explicitly enabled.
package connect

import (
	"fmt"
	"sort"

	"github.com/petrolab/psengine/internal/phase"
	"github.com/petrolab/psengine/internal/section"
)

// Options tunes candidate ranking and gateway-driven searches.
type Options struct {
	// MaxDistance caps the endpoint-to-candidate distance. Zero disables
	// the cutoff.
	MaxDistance float64
	// AutoAssign lets Autoconnect write unambiguous endpoints into the
	// registry. Off by default: candidates are returned for confirmation.
	AutoAssign bool
	// Extend widens sweep and search windows by this fraction of the
	// section range.
	Extend float64
	// Steps is the sample count for gateway line calculations.
	Steps int
	// Budget caps the number of gateway calls one search may spend.
	Budget int
	// BracketTol stops the bisection once the bracket is narrower.
	BracketTol float64
	// MaxVariance bounds minimization candidates.
	MaxVariance int
}

// DefaultOptions returns the tuning used when no configuration overrides it.
func DefaultOptions() Options {
	return Options{
		Extend:      0.05,
		Steps:       50,
		Budget:      40,
		BracketTol:  0.1,
		MaxVariance: 4,
	}
}

// Candidate is one invariant point offered for an open line end.
type Candidate struct {
	ID   int
	Dist float64
}

// ContainsInv reports whether the invariant point can terminate the line:
// the point's phases extend the line's by exactly the second zero phase,
// with the line's own zero phase still among them. Polymorph pairs make
// switched out-sets equivalent, so both spellings are checked.
func ContainsInv(ul *section.UniLine, ip *section.InvPoint) bool {
	uout := ul.OutSet()
	if matchesEnd(ul.Phases, uout, ip.Phases, ip.Out) {
		return true
	}
	var poly phase.Assemblage
	for _, p := range phase.Polymorphs(ip.Phases) {
		if !p.Equal(ip.Out) && !ip.Out.Disjoint(p) {
			poly = p
			break
		}
	}
	if poly.Empty() {
		return false
	}
	switched := ip.Out.Diff(poly).Union(poly.Diff(ip.Out))
	if matchesEnd(ul.Phases, uout, ip.Phases, switched) {
		return true
	}
	if ul.Phases.ContainsAll(poly) && !uout.Disjoint(poly) {
		return matchesEnd(ul.Phases, poly.Diff(uout), ip.Phases, ip.Out)
	}
	return false
}

func matchesEnd(uphases, uout, iphases, iout phase.Assemblage) bool {
	if iout.Len() != 2 {
		return false
	}
	outs := iout.Phases()
	a, b := outs[0], outs[1]
	if iphases.Equal(uphases) && iout.Diff(uout).Len() == 1 {
		return true
	}
	if iphases.Without(b).Equal(uphases) && uout.Equal(phase.New(a)) {
		return true
	}
	if iphases.Without(a).Equal(uphases) && uout.Equal(phase.New(b)) {
		return true
	}
	return false
}

// Candidates returns ranked invariant-point candidates for each open end of
// the line. Ranking is by distance from the nearest polyline endpoint,
// ties kept in insertion order; maxDist <= 0 disables the distance cutoff.
// Nothing is assigned.
func Candidates(s *section.Section, lineID int, maxDist float64) (begin, end []Candidate, err error) {
	ul := s.UniLine(lineID)
	if ul == nil {
		return nil, nil, fmt.Errorf("%w: univariant line #%d", section.ErrNotFound, lineID)
	}
	if len(ul.Points) == 0 {
		return nil, nil, fmt.Errorf("connect: line #%d has no geometry", lineID)
	}
	first := ul.Points[0]
	last := ul.Points[len(ul.Points)-1]
	for _, ip := range s.InvPoints() {
		if ip.Pos == nil || !ContainsInv(ul, ip) {
			continue
		}
		if ul.Begin == section.None && ip.ID != ul.End {
			if d := first.Dist(*ip.Pos); maxDist <= 0 || d <= maxDist {
				begin = append(begin, Candidate{ID: ip.ID, Dist: d})
			}
		}
		if ul.End == section.None && ip.ID != ul.Begin {
			if d := last.Dist(*ip.Pos); maxDist <= 0 || d <= maxDist {
				end = append(end, Candidate{ID: ip.ID, Dist: d})
			}
		}
	}
	byDist := func(c []Candidate) func(i, j int) bool {
		return func(i, j int) bool { return c[i].Dist < c[j].Dist }
	}
	sort.SliceStable(begin, byDist(begin))
	sort.SliceStable(end, byDist(end))
	return begin, end, nil
}

// Autoconnect fills the line's open endpoint references when each open end
// has exactly one candidate and AutoAssign is enabled. It reports whether
// an assignment happened. Ambiguity leaves the line untouched.
func Autoconnect(s *section.Section, lineID int, opts Options) (bool, error) {
	if !opts.AutoAssign {
		return false, nil
	}
	ul := s.UniLine(lineID)
	if ul == nil {
		return false, fmt.Errorf("%w: univariant line #%d", section.ErrNotFound, lineID)
	}
	if ul.Connected() == 2 {
		return false, nil
	}
	begin, end, err := Candidates(s, lineID, opts.MaxDistance)
	if err != nil {
		return false, err
	}
	b, e := ul.Begin, ul.End
	if b == section.None {
		if len(begin) != 1 {
			return false, nil
		}
		b = begin[0].ID
	}
	if e == section.None {
		if len(end) != 1 {
			return false, nil
		}
		e = end[0].ID
	}
	if b == e {
		return false, nil
	}
	if err := s.Connect(lineID, b, e); err != nil {
		return false, err
	}
	return true, nil
}
