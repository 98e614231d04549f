package section

import (
	"fmt"
	"math"
	"sort"

	"github.com/petrolab/psengine/internal/geom"
	"github.com/petrolab/psengine/internal/therm"
)

// param returns the scalar merge parameter of a point: the coordinate along
// the curve's dominant free variable, chosen as the axis with the larger
// span over the given samples.
func param(points ...[]geom.Point) func(geom.Point) float64 {
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, ps := range points {
		for _, p := range ps {
			minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
			minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
		}
	}
	if maxX-minX >= maxY-minY {
		return func(p geom.Point) float64 { return p.X }
	}
	return func(p geom.Point) float64 { return p.Y }
}

// span returns the parameter interval covered by the samples.
func span(at func(geom.Point) float64, pts []geom.Point) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, p := range pts {
		v := at(p)
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	return lo, hi
}

// mergePolylines sorts the union of both sample sets by the dominant
// parameter and removes near-duplicates within tol. Inputs are untouched.
func mergePolylines(existing, incoming []geom.Point, tol float64) []geom.Point {
	at := param(existing, incoming)
	union := append(append([]geom.Point{}, existing...), incoming...)
	sort.SliceStable(union, func(i, j int) bool { return at(union[i]) < at(union[j]) })
	merged := union[:0:0]
	for _, p := range union {
		if len(merged) > 0 && at(p)-at(merged[len(merged)-1]) < tol {
			continue
		}
		merged = append(merged, p)
	}
	return merged
}

// strictExtension reports whether incoming overlaps or abuts existing
// within tol and reaches beyond at least one of its ends; when it does, the
// merged polyline is returned. Empty inputs never qualify: an unsolved
// line cannot be extended, only replaced explicitly.
func strictExtension(existing, incoming []geom.Point, tol float64) ([]geom.Point, bool) {
	if len(existing) == 0 || len(incoming) == 0 {
		return nil, false
	}
	at := param(existing, incoming)
	e0, e1 := span(at, existing)
	i0, i1 := span(at, incoming)
	touches := i0 <= e1+tol && i1 >= e0-tol
	extends := i0 < e0-tol || i1 > e1+tol
	if !touches || !extends {
		return nil, false
	}
	return mergePolylines(existing, incoming, tol), true
}

// mergeResults merges the solved equilibria backing a line the same way the
// polyline samples are merged.
func mergeResults(a, b therm.ResultSet, tol float64) therm.ResultSet {
	if len(a) == 0 {
		return append(therm.ResultSet{}, b...)
	}
	if len(b) == 0 {
		return append(therm.ResultSet{}, a...)
	}
	at := param(a.Points(), b.Points())
	union := append(append(therm.ResultSet{}, a...), b...)
	sort.SliceStable(union, func(i, j int) bool { return at(union[i].Pos) < at(union[j].Pos) })
	merged := union[:0:0]
	for _, r := range union {
		if len(merged) > 0 && at(r.Pos)-at(merged[len(merged)-1].Pos) < tol {
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

// MergeUni merges an incoming result set into the line's polyline: the
// union of samples sorted by the dominant parameter with near-duplicates
// removed. A non-overlapping incoming segment is still merged, but the
// genuine gap is reported as a warning; endpoint connectivity stays usable
// while boundary geometry in the gapped span is not. The registry is
// untouched on error.
func (s *Section) MergeUni(id int, incoming therm.ResultSet) (*GapWarning, error) {
	if len(incoming) == 0 {
		return nil, fmt.Errorf("section: merge into line #%d: empty result set", id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ul, ok := s.uni[id]
	if !ok {
		return nil, fmt.Errorf("%w: univariant line #%d", ErrNotFound, id)
	}

	var warn *GapWarning
	inPts := incoming.Points()
	if len(ul.Points) > 0 {
		at := param(ul.Points, inPts)
		e0, e1 := span(at, ul.Points)
		i0, i1 := span(at, inPts)
		if i0 > e1+s.MergeTol {
			warn = &GapWarning{LineID: id, From: e1, To: i0}
		} else if i1 < e0-s.MergeTol {
			warn = &GapWarning{LineID: id, From: i1, To: e0}
		}
	}

	next := ul.clone()
	next.Points = mergePolylines(ul.Points, inPts, s.MergeTol)
	next.Results = mergeResults(ul.Results, incoming, s.MergeTol)
	s.uni[id] = next
	return warn, nil
}

// MergeLines merges two lines sharing one topological key. Calling it with
// different keys is a programming error and fails fast with ErrKeyMismatch.
func MergeLines(existing, incoming *UniLine, tol float64) (*UniLine, error) {
	if existing.Key() != incoming.Key() {
		return nil, fmt.Errorf("%w: %v vs %v", ErrKeyMismatch, existing.Key(), incoming.Key())
	}
	merged := existing.clone()
	merged.Points = mergePolylines(existing.Points, incoming.Points, tol)
	merged.Results = mergeResults(existing.Results, incoming.Results, tol)
	return merged, nil
}

// RemoveNodes deletes the polyline samples whose dominant parameter falls
// inside [lo, hi]. Endpoint references, phases and out are unchanged.
func (s *Section) RemoveNodes(id int, lo, hi float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ul, ok := s.uni[id]
	if !ok {
		return fmt.Errorf("%w: univariant line #%d", ErrNotFound, id)
	}
	at := param(ul.Points)
	next := ul.clone()
	next.Points = next.Points[:0]
	for _, p := range ul.Points {
		if v := at(p); v >= lo && v <= hi {
			continue
		}
		next.Points = append(next.Points, p)
	}
	s.uni[id] = next
	return nil
}
