package section

import (
	"sort"
	"sync"

	"github.com/petrolab/psengine/internal/geom"
	"github.com/petrolab/psengine/internal/phase"
)

// Section is the top-level container of one pseudosection: the registry of
// all invariant points and univariant lines, the phase universe, the axes
// ranges, and the always-present excess phases.
//
// All structural mutations are serialized on an internal lock; read-only
// queries take a shared lock and may run concurrently with each other.
// Multiple Sections are fully independent. A diagram whose reaction would
// repeat a key (double-crossing) must be split into Sections with disjoint
// ranges, each enforcing uniqueness on its own.
type Section struct {
	mu sync.RWMutex

	XVar, YVar string    // axis variable names, e.g. "T" and "p"
	Range      geom.Rect // declared axes rectangle
	// Universe is the full set of phases considered by the diagram.
	Universe phase.Assemblage
	// Excess phases are present everywhere and sit outside the variance
	// count; they are hidden from labels and candidate searches.
	Excess phase.Assemblage
	// MergeTol is the near-duplicate tolerance for curve assembly, in
	// units of the dominant merge parameter.
	MergeTol float64

	inv map[int]*InvPoint
	uni map[int]*UniLine
}

// DefaultMergeTol is the default near-duplicate tolerance for curve
// assembly when a Section is built without explicit configuration.
const DefaultMergeTol = 0.001

// NewPT creates a pressure/temperature section with the given ranges.
func NewPT(trange, prange [2]float64) *Section {
	return &Section{
		XVar: "T",
		YVar: "p",
		Range: geom.Rect{
			X0: trange[0], Y0: prange[0],
			X1: trange[1], Y1: prange[1],
		},
		MergeTol: DefaultMergeTol,
		inv:      map[int]*InvPoint{},
		uni:      map[int]*UniLine{},
	}
}

// NewTX creates a temperature/composition section. The composition axis is
// normalized to the unit interval.
func NewTX(trange [2]float64) *Section {
	return &Section{
		XVar: "T",
		YVar: "C",
		Range: geom.Rect{
			X0: trange[0], Y0: 0,
			X1: trange[1], Y1: 1,
		},
		MergeTol: DefaultMergeTol,
		inv:      map[int]*InvPoint{},
		uni:      map[int]*UniLine{},
	}
}

// Ratio returns the axes aspect ratio used to normalize distances that mix
// the two variables.
func (s *Section) Ratio() float64 {
	h := s.Range.Height()
	if h == 0 {
		return 1
	}
	return s.Range.Width() / h
}

// InvPoints returns all invariant points ordered by id.
func (s *Section) InvPoints() []*InvPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*InvPoint, 0, len(s.inv))
	for _, ip := range s.inv {
		out = append(out, ip)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UniLines returns all univariant lines ordered by id.
func (s *Section) UniLines() []*UniLine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*UniLine, 0, len(s.uni))
	for _, ul := range s.uni {
		out = append(out, ul)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// InvPoint returns the invariant point with the given id, or nil.
func (s *Section) InvPoint(id int) *InvPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inv[id]
}

// UniLine returns the univariant line with the given id, or nil.
func (s *Section) UniLine(id int) *UniLine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.uni[id]
}

// Counts returns the number of invariant points and univariant lines.
func (s *Section) Counts() (points, lines int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.inv), len(s.uni)
}

// nextInvID allocates the next invariant point id. Caller holds mu.
func (s *Section) nextInvID() int {
	max := 0
	for id := range s.inv {
		if id > max {
			max = id
		}
	}
	return max + 1
}

// nextUniID allocates the next univariant line id. Caller holds mu.
func (s *Section) nextUniID() int {
	max := 0
	for id := range s.uni {
		if id > max {
			max = id
		}
	}
	return max + 1
}
