package areas

import (
	"math"
	"sort"

	"github.com/petrolab/psengine/internal/geom"
)

type edgeKind int

const (
	edgeBoundary edgeKind = iota
	edgeLine
	edgeExtension
)

type segInfo struct {
	kind edgeKind
	line int
}

// arrangement accumulates the planar subdivision: quantized vertices and
// undirected segments between them. Faces are extracted with a half-edge
// walk once all segments are in.
type arrangement struct {
	rect  geom.Rect
	eps   float64
	verts []geom.Point
	index map[[2]int64]int
	segs  map[[2]int]segInfo
}

func newArrangement(r geom.Rect) *arrangement {
	eps := 1e-9 * math.Max(r.Width(), r.Height())
	if eps <= 0 {
		eps = 1e-12
	}
	return &arrangement{
		rect:  r,
		eps:   eps,
		index: make(map[[2]int64]int),
		segs:  make(map[[2]int]segInfo),
	}
}

// vertex interns p, snapping coincident coordinates to one id.
func (a *arrangement) vertex(p geom.Point) int {
	k := [2]int64{int64(math.Round(p.X / a.eps)), int64(math.Round(p.Y / a.eps))}
	if id, ok := a.index[k]; ok {
		return id
	}
	id := len(a.verts)
	a.verts = append(a.verts, p)
	a.index[k] = id
	return id
}

func (a *arrangement) addSeg(p, q geom.Point, kind edgeKind, line int) {
	a.addSegIDs(a.vertex(p), a.vertex(q), kind, line)
}

func (a *arrangement) addSegIDs(u, v int, kind edgeKind, line int) {
	if u == v {
		return
	}
	k := [2]int{u, v}
	if u > v {
		k = [2]int{v, u}
	}
	if cur, ok := a.segs[k]; ok {
		// A curve running along the window edge keeps its identity.
		if cur.kind == edgeLine || kind != edgeLine {
			return
		}
	}
	a.segs[k] = segInfo{kind: kind, line: line}
}

// closeBoundary adds the window outline, split at every vertex already
// sitting on it, so the rectangle closes all faces.
func (a *arrangement) closeBoundary() {
	for _, c := range a.rect.Corners() {
		a.vertex(c)
	}
	tol := 2 * a.eps
	type side struct {
		on    func(geom.Point) bool
		along func(geom.Point) float64
	}
	r := a.rect
	within := func(v, lo, hi float64) bool { return v >= lo-tol && v <= hi+tol }
	sides := []side{
		{func(p geom.Point) bool { return math.Abs(p.Y-r.Y0) <= tol && within(p.X, r.X0, r.X1) }, func(p geom.Point) float64 { return p.X }},
		{func(p geom.Point) bool { return math.Abs(p.X-r.X1) <= tol && within(p.Y, r.Y0, r.Y1) }, func(p geom.Point) float64 { return p.Y }},
		{func(p geom.Point) bool { return math.Abs(p.Y-r.Y1) <= tol && within(p.X, r.X0, r.X1) }, func(p geom.Point) float64 { return p.X }},
		{func(p geom.Point) bool { return math.Abs(p.X-r.X0) <= tol && within(p.Y, r.Y0, r.Y1) }, func(p geom.Point) float64 { return p.Y }},
	}
	for _, sd := range sides {
		var ids []int
		for id, p := range a.verts {
			if sd.on(p) {
				ids = append(ids, id)
			}
		}
		sort.Slice(ids, func(i, j int) bool {
			return sd.along(a.verts[ids[i]]) < sd.along(a.verts[ids[j]])
		})
		for i := 0; i+1 < len(ids); i++ {
			a.addSegIDs(ids[i], ids[i+1], edgeBoundary, 0)
		}
	}
}

type halfedge struct {
	from, to int
	seg      [2]int
	twin     int
	next     int
}

type adjEdge struct {
	line  int
	other int
}

// rawFace is one bounded face of the subdivision.
type rawFace struct {
	ring  []geom.Point
	lines []int
	ext   bool
	adj   []adjEdge
}

// walkFaces extracts the bounded faces. Each half-edge's successor is the
// edge preceding its twin in counter-clockwise order around the shared
// vertex, which traverses bounded faces counter-clockwise; the single
// clockwise cycle is the unbounded face and is dropped, as are
// zero-area slit cycles.
func (a *arrangement) walkFaces() []rawFace {
	keys := make([][2]int, 0, len(a.segs))
	for k := range a.segs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})

	hs := make([]halfedge, 0, 2*len(keys))
	for _, k := range keys {
		i := len(hs)
		hs = append(hs,
			halfedge{from: k[0], to: k[1], seg: k, twin: i + 1},
			halfedge{from: k[1], to: k[0], seg: k, twin: i},
		)
	}

	out := make(map[int][]int, len(a.verts))
	for i, h := range hs {
		out[h.from] = append(out[h.from], i)
	}
	angle := func(i int) float64 {
		h := hs[i]
		f, t := a.verts[h.from], a.verts[h.to]
		return math.Atan2(t.Y-f.Y, t.X-f.X)
	}
	for v := range out {
		sort.Slice(out[v], func(i, j int) bool { return angle(out[v][i]) < angle(out[v][j]) })
	}
	for i := range hs {
		ring := out[hs[i].to]
		pos := 0
		for j, idx := range ring {
			if idx == hs[i].twin {
				pos = j
				break
			}
		}
		hs[i].next = ring[(pos-1+len(ring))%len(ring)]
	}

	faceOf := make([]int, len(hs))
	for i := range faceOf {
		faceOf[i] = -1
	}
	var faces []rawFace
	areaEps := 100 * a.eps * a.eps
	for i := range hs {
		if faceOf[i] != -1 {
			continue
		}
		var cycle []int
		for j := i; faceOf[j] == -1; j = hs[j].next {
			faceOf[j] = -2
			cycle = append(cycle, j)
		}
		ring := make([]geom.Point, len(cycle))
		for n, j := range cycle {
			ring[n] = a.verts[hs[j].from]
		}
		if geom.SignedArea(ring) <= areaEps {
			continue
		}
		id := len(faces)
		f := rawFace{ring: ring}
		seen := map[int]bool{}
		for _, j := range cycle {
			faceOf[j] = id
			s := a.segs[hs[j].seg]
			switch s.kind {
			case edgeExtension:
				f.ext = true
			case edgeLine:
				if !seen[s.line] {
					seen[s.line] = true
					f.lines = append(f.lines, s.line)
				}
			}
		}
		sort.Ints(f.lines)
		faces = append(faces, f)
	}

	// Neighbours across curve segments, for sidedness propagation.
	for i, h := range hs {
		f := faceOf[i]
		if f < 0 {
			continue
		}
		s := a.segs[h.seg]
		if s.kind != edgeLine {
			continue
		}
		g := faceOf[h.twin]
		dup := false
		for _, e := range faces[f].adj {
			if e.line == s.line && e.other == g {
				dup = true
				break
			}
		}
		if !dup {
			faces[f].adj = append(faces[f].adj, adjEdge{line: s.line, other: g})
		}
	}
	return faces
}

// clipSeg clips segment p-q to the window (Liang-Barsky). ok is false when
// the segment lies entirely outside.
func clipSeg(p, q geom.Point, r geom.Rect) (geom.Point, geom.Point, bool) {
	t0, t1 := 0.0, 1.0
	dx, dy := q.X-p.X, q.Y-p.Y
	clips := [4][2]float64{
		{-dx, p.X - r.X0},
		{dx, r.X1 - p.X},
		{-dy, p.Y - r.Y0},
		{dy, r.Y1 - p.Y},
	}
	for _, c := range clips {
		den, num := c[0], c[1]
		if den == 0 {
			if num < 0 {
				return p, q, false
			}
			continue
		}
		t := num / den
		if den < 0 {
			if t > t1 {
				return p, q, false
			}
			if t > t0 {
				t0 = t
			}
		} else {
			if t < t0 {
				return p, q, false
			}
			if t < t1 {
				t1 = t
			}
		}
	}
	return lerp(p, q, t0), lerp(p, q, t1), true
}

func lerp(p, q geom.Point, t float64) geom.Point {
	switch t {
	case 0:
		return p
	case 1:
		return q
	}
	return geom.Point{X: p.X + t*(q.X-p.X), Y: p.Y + t*(q.Y-p.Y)}
}

// clipPolyline splits a polyline into the maximal runs inside the window,
// with entry and exit points landing exactly on the window edge.
func clipPolyline(pts []geom.Point, r geom.Rect) [][]geom.Point {
	var runs [][]geom.Point
	var cur []geom.Point
	flush := func() {
		if len(cur) >= 2 {
			runs = append(runs, cur)
		}
		cur = nil
	}
	for i := 0; i+1 < len(pts); i++ {
		a, b, ok := clipSeg(pts[i], pts[i+1], r)
		if !ok {
			flush()
			continue
		}
		if len(cur) == 0 {
			cur = append(cur, a)
		} else if cur[len(cur)-1] != a {
			flush()
			cur = append(cur, a)
		}
		cur = append(cur, b)
		if b != pts[i+1] {
			flush()
		}
	}
	flush()
	return runs
}

// rayExit extends a ray from p along (ux, uy) to the window edge, capped at
// maxLen when positive. The second return is false when the ray cannot
// leave p (zero direction).
func rayExit(p geom.Point, ux, uy float64, r geom.Rect, maxLen float64) (geom.Point, bool) {
	best := math.Inf(1)
	if ux > 0 {
		best = math.Min(best, (r.X1-p.X)/ux)
	} else if ux < 0 {
		best = math.Min(best, (r.X0-p.X)/ux)
	}
	if uy > 0 {
		best = math.Min(best, (r.Y1-p.Y)/uy)
	} else if uy < 0 {
		best = math.Min(best, (r.Y0-p.Y)/uy)
	}
	if math.IsInf(best, 1) || best <= 0 {
		return geom.Point{}, false
	}
	t := best
	if maxLen > 0 && maxLen < best {
		t = maxLen
	}
	return r.Clamp(geom.Point{X: p.X + t*ux, Y: p.Y + t*uy}), true
}
