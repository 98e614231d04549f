// Package areas turns the curve network of a section into closed polygonal
// fields of constant stable assemblage. Every univariant polyline becomes an
// edge of a planar subdivision closed by the window outline; open line
// ends are extended along their last tangent to the window edge. Face
// assemblages follow from edge sidedness: each curve's zero phase is stable
// on exactly one side. Construction never fails; faces it cannot label are
// reported as unresolved alongside warnings.
package areas

import (
	"fmt"
	"math"
	"sort"

	"github.com/petrolab/psengine/internal/geom"
	"github.com/petrolab/psengine/internal/phase"
	"github.com/petrolab/psengine/internal/section"
)

// Options tunes area construction.
type Options struct {
	// MaxExtension caps the synthetic segment appended past an open line
	// end, in diagram units. Zero extends all the way to the window edge.
	MaxExtension float64
}

// Polygon is a closed counter-clockwise ring. The first point is not
// repeated.
type Polygon []geom.Point

// Interior returns a point inside the ring, where a field label belongs.
// The area centroid is used when it falls inside; for concave rings where
// it does not, the midpoint of a horizontal chord through the centroid is
// taken instead.
func (p Polygon) Interior() geom.Point {
	c := geom.Centroid(p)
	if geom.InRing(c, p) {
		return c
	}
	var xs []float64
	n := len(p)
	for i := 0; i < n; i++ {
		a, b := p[i], p[(i+1)%n]
		if (a.Y > c.Y) != (b.Y > c.Y) {
			xs = append(xs, a.X+(c.Y-a.Y)/(b.Y-a.Y)*(b.X-a.X))
		}
	}
	sort.Float64s(xs)
	for i := 0; i+1 < len(xs); i += 2 {
		mid := geom.Point{X: (xs[i] + xs[i+1]) / 2, Y: c.Y}
		if geom.InRing(mid, p) {
			return mid
		}
	}
	return c
}

// Face is one bounded face of the subdivision.
type Face struct {
	Ring Polygon
	// Lines are the ids of the univariant lines bounding the face.
	Lines []int
	// Assemblage is set when Resolved.
	Assemblage phase.Assemblage
	Resolved   bool
}

// Area is a maximal region of one stable assemblage, possibly in several
// disconnected components.
type Area struct {
	Assemblage phase.Assemblage
	Polygons   []Polygon
}

// Areas is the result of one construction pass over a section.
type Areas struct {
	// Faces lists every bounded face, resolved or not. Together they tile
	// the section window.
	Faces []Face
	// Fields maps assemblage keys to merged areas.
	Fields map[string]*Area
	// Warnings carries non-fatal defects found during construction.
	Warnings []string
}

// Unresolved returns the faces whose assemblage could not be determined.
func (a *Areas) Unresolved() []Face {
	var out []Face
	for _, f := range a.Faces {
		if !f.Resolved {
			out = append(out, f)
		}
	}
	return out
}

// Identify returns the stable assemblage at the position, when it falls in
// a resolved face.
func (a *Areas) Identify(p geom.Point) (phase.Assemblage, bool) {
	for _, f := range a.Faces {
		if f.Resolved && geom.InRing(p, f.Ring) {
			return f.Assemblage, true
		}
	}
	return phase.Assemblage{}, false
}

// Build constructs the area set for the section's current registry. It
// never returns an error: defects degrade to unresolved faces and
// warnings.
func Build(s *section.Section, opts Options) *Areas {
	r := s.Range
	ar := newArrangement(r)
	res := &Areas{Fields: make(map[string]*Area)}

	lines := make(map[int]*section.UniLine)
	for _, ul := range s.UniLines() {
		if len(ul.Points) < 2 {
			res.Warnings = append(res.Warnings, fmt.Sprintf("line #%d has no usable geometry", ul.ID))
			continue
		}
		lines[ul.ID] = ul
		runs := clipPolyline(ul.Points, r)
		for _, run := range runs {
			for i := 0; i+1 < len(run); i++ {
				ar.addSeg(run[i], run[i+1], edgeLine, ul.ID)
			}
		}
		if len(runs) == 0 {
			res.Warnings = append(res.Warnings, fmt.Sprintf("line #%d lies outside the window", ul.ID))
			continue
		}
		extendOpenEnds(ar, ul, runs, opts.MaxExtension)
	}
	ar.closeBoundary()

	for _, pair := range crossings(s.UniLines()) {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("lines #%d and #%d cross inside the window", pair[0], pair[1]))
	}

	raw := ar.walkFaces()
	asm := resolve(raw, lines, res)

	for i, f := range raw {
		face := Face{Ring: Polygon(f.ring), Lines: f.lines}
		if a, ok := asm[i]; ok {
			face.Assemblage = a
			face.Resolved = true
			key := a.Key()
			area := res.Fields[key]
			if area == nil {
				area = &Area{Assemblage: a}
				res.Fields[key] = area
			}
			area.Polygons = append(area.Polygons, face.Ring)
		}
		res.Faces = append(res.Faces, face)
	}
	return res
}

// extendOpenEnds grows a synthetic segment from each unconnected line end
// still inside the window, along the local tangent, so the window edge can
// close the face.
func extendOpenEnds(ar *arrangement, ul *section.UniLine, runs [][]geom.Point, maxLen float64) {
	inside := func(p geom.Point) bool {
		return p.X > ar.rect.X0+ar.eps && p.X < ar.rect.X1-ar.eps &&
			p.Y > ar.rect.Y0+ar.eps && p.Y < ar.rect.Y1-ar.eps
	}
	grow := func(tip, prev geom.Point) {
		dx, dy := tip.X-prev.X, tip.Y-prev.Y
		n := math.Hypot(dx, dy)
		if n == 0 {
			return
		}
		if end, ok := rayExit(tip, dx/n, dy/n, ar.rect, maxLen); ok {
			ar.addSeg(tip, end, edgeExtension, 0)
		}
	}
	first := runs[0]
	if ul.Begin == section.None && inside(first[0]) {
		grow(first[0], first[1])
	}
	last := runs[len(runs)-1]
	if ul.End == section.None && inside(last[len(last)-1]) {
		grow(last[len(last)-1], last[len(last)-2])
	}
}

// crossings reports pairs of curves that properly intersect. Univariant
// curves of one section meet only at invariant points, which sit on segment
// endpoints, so an interior crossing is a topology defect the face walk
// cannot repair.
func crossings(uls []*section.UniLine) [][2]int {
	var out [][2]int
	for i, a := range uls {
		for _, b := range uls[i+1:] {
			if polylinesCross(a.Points, b.Points) {
				out = append(out, [2]int{a.ID, b.ID})
			}
		}
	}
	return out
}

func polylinesCross(a, b []geom.Point) bool {
	for i := 1; i < len(a); i++ {
		for j := 1; j < len(b); j++ {
			if geom.SegIntersect(a[i-1], a[i], b[j-1], b[j]) {
				return true
			}
		}
	}
	return false
}

// lineCandidates returns the assemblages a curve can bound: its full phase
// set on the side where the zero phase is stable, the set without it on
// the other, and the degenerate polymorph variants.
func lineCandidates(ul *section.UniLine) []phase.Assemblage {
	cands := []phase.Assemblage{ul.Phases, ul.Phases.Without(ul.Out)}
	outset := ul.OutSet()
	for _, poly := range phase.Polymorphs(ul.Phases) {
		alt := ul.Phases.Diff(poly.Diff(outset))
		if !alt.Equal(cands[0]) && !alt.Equal(cands[1]) {
			cands = append(cands, alt)
		}
	}
	return cands
}

// resolve labels faces. A face bounded by any line with an unconnected end
// stays unresolved: its geometry past the open end is speculative. For the
// rest, the assemblage must be common to every bounding curve's candidate
// set; remaining ambiguity is settled by sidedness propagation across
// shared curves, and contradictions demote the face with a warning.
func resolve(raw []rawFace, lines map[int]*section.UniLine, res *Areas) map[int]phase.Assemblage {
	asm := make(map[int]phase.Assemblage)
	open := make([]bool, len(raw))
	conflicted := make([]bool, len(raw))
	for i, f := range raw {
		open[i] = f.ext
		for _, id := range f.lines {
			if ul := lines[id]; ul != nil && ul.Connected() < 2 {
				open[i] = true
			}
		}
	}

	var queue []int
	for i, f := range raw {
		if open[i] || len(f.lines) == 0 {
			continue
		}
		common := candidateIntersection(f.lines, lines)
		switch len(common) {
		case 0:
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("face bounded by lines %v has no assemblage consistent with all of them", f.lines))
		case 1:
			asm[i] = common[0]
			queue = append(queue, i)
		}
	}

	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		if conflicted[i] {
			continue
		}
		have := asm[i]
		for _, e := range raw[i].adj {
			g := e.other
			if g < 0 || open[g] || conflicted[g] {
				continue
			}
			ul := lines[e.line]
			if ul == nil {
				continue
			}
			with, without := ul.Phases, ul.Phases.Without(ul.Out)
			var want phase.Assemblage
			switch {
			case have.Equal(with):
				want = without
			case have.Equal(without):
				want = with
			default:
				continue
			}
			got, ok := asm[g]
			if !ok {
				asm[g] = want
				queue = append(queue, g)
				continue
			}
			if !got.Equal(want) {
				conflicted[g] = true
				delete(asm, g)
				res.Warnings = append(res.Warnings,
					fmt.Sprintf("inconsistent sidedness across line #%d: face bounded by %v cannot be both {%s} and {%s}",
						e.line, raw[g].lines, got, want))
			}
		}
	}
	return asm
}

func candidateIntersection(ids []int, lines map[int]*section.UniLine) []phase.Assemblage {
	var common []phase.Assemblage
	for n, id := range ids {
		ul := lines[id]
		if ul == nil {
			return nil
		}
		cands := lineCandidates(ul)
		if n == 0 {
			common = cands
			continue
		}
		var keep []phase.Assemblage
		for _, c := range common {
			for _, d := range cands {
				if c.Equal(d) {
					keep = append(keep, c)
					break
				}
			}
		}
		common = keep
		if len(common) == 0 {
			return nil
		}
	}
	return common
}
