package therm

import (
	"sort"

	"github.com/petrolab/psengine/internal/geom"
	"github.com/petrolab/psengine/internal/phase"
)

// Result is a single solved equilibrium.
type Result struct {
	Pos      geom.Point
	Variance int
	// Modes holds per-phase modal proportions. A mode of zero marks the
	// phase held at its appearance/disappearance boundary.
	Modes map[phase.Phase]float64
	// Comp holds per-phase compositional variables by variable name.
	Comp map[phase.Phase]map[string]float64
	// G is the system free energy at the solution.
	G float64
	// Guess is the raw starting-guess block from the engine, reusable to
	// seed nearby calculations.
	Guess []string
}

// ResultSet is an ordered sequence of results sampled along a line or sweep.
type ResultSet []Result

// Points returns the positions of the set in order.
func (rs ResultSet) Points() []geom.Point {
	pts := make([]geom.Point, len(rs))
	for i, r := range rs {
		pts[i] = r.Pos
	}
	return pts
}

// Mid returns the middle result, the conventional source of starting guesses.
func (rs ResultSet) Mid() Result {
	return rs[len(rs)/2]
}

// DogminCandidate is one candidate assemblage from a minimization.
type DogminCandidate struct {
	Phases phase.Assemblage
	G      float64
}

// Dogmin is the result of a multi-assemblage minimization at a single point:
// candidate assemblages ranked by increasing free energy, the first being
// the stable one.
type Dogmin struct {
	Pos        geom.Point
	Candidates []DogminCandidate
}

// Stable returns the lowest-energy candidate and true, or false when the
// minimization produced no candidates.
func (d Dogmin) Stable() (DogminCandidate, bool) {
	if len(d.Candidates) == 0 {
		return DogminCandidate{}, false
	}
	return d.Candidates[0], true
}

// sortCandidates orders candidates by increasing free energy, ties broken by
// assemblage key for determinism.
func sortCandidates(cands []DogminCandidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].G != cands[j].G {
			return cands[i].G < cands[j].G
		}
		return cands[i].Phases.Key() < cands[j].Phases.Key()
	})
}
