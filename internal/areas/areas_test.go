package areas

import (
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/petrolab/psengine/internal/geom"
	"github.com/petrolab/psengine/internal/phase"
	"github.com/petrolab/psengine/internal/section"
)

func asm(s string) phase.Assemblage {
	return phase.FromStrings(strings.Fields(s)...)
}

func addInv(t *testing.T, s *section.Section, phases, out string, x, y float64) int {
	t.Helper()
	id, err := s.InsertInv(&section.InvPoint{
		Phases: asm(phases),
		Out:    asm(out),
		Pos:    &geom.Point{X: x, Y: y},
	})
	if err != nil {
		t.Fatalf("InsertInv(%s / %s): %v", phases, out, err)
	}
	return id
}

func addUni(t *testing.T, s *section.Section, phases, out string, begin, end int, pts ...geom.Point) int {
	t.Helper()
	id, err := s.InsertUni(&section.UniLine{
		Phases: asm(phases),
		Out:    phase.Phase(out),
		Begin:  begin,
		End:    end,
		Points: pts,
	})
	if err != nil {
		t.Fatalf("InsertUni(%s / %s): %v", phases, out, err)
	}
	return id
}

func coverage(a *Areas) float64 {
	var sum float64
	for _, f := range a.Faces {
		sum += math.Abs(geom.SignedArea(f.Ring))
	}
	return sum
}

func TestBuildAreasEmptySection(t *testing.T) {
	t.Parallel()
	s := section.NewPT([2]float64{0, 10}, [2]float64{0, 10})
	a := Build(s, Options{})
	if len(a.Faces) != 1 {
		t.Fatalf("got %d faces, want the single window face", len(a.Faces))
	}
	if a.Faces[0].Resolved {
		t.Error("window face resolved with no bounding curves")
	}
	if got := coverage(a); math.Abs(got-100) > 1e-6 {
		t.Errorf("coverage = %v, want 100", got)
	}
	if _, ok := a.Identify(geom.Point{X: 5, Y: 5}); ok {
		t.Error("Identify found an assemblage in an empty diagram")
	}
}

// One invariant point with four lines radiating to the window edge, ends
// unconnected: every face reaches the edge through an open line, so all
// four stay unresolved.
func TestBuildAreasSingleInvariantPoint(t *testing.T) {
	t.Parallel()
	s := section.NewPT([2]float64{300, 700}, [2]float64{1, 10})
	c := addInv(t, s, "a b c d", "a b", 500, 5)
	addUni(t, s, "a b c d", "a", c, section.None, geom.Point{X: 500, Y: 5}, geom.Point{X: 700, Y: 5})
	addUni(t, s, "a b c d", "b", c, section.None, geom.Point{X: 500, Y: 5}, geom.Point{X: 500, Y: 10})
	addUni(t, s, "a c d", "a", c, section.None, geom.Point{X: 500, Y: 5}, geom.Point{X: 300, Y: 5})
	addUni(t, s, "b c d", "b", c, section.None, geom.Point{X: 500, Y: 5}, geom.Point{X: 500, Y: 1})

	a := Build(s, Options{})
	if len(a.Faces) != 4 {
		t.Fatalf("got %d faces, want 4", len(a.Faces))
	}
	if got := len(a.Unresolved()); got != 4 {
		t.Errorf("%d unresolved faces, want all 4", got)
	}
	if len(a.Fields) != 0 {
		t.Errorf("resolved fields %v from open lines", a.Fields)
	}
	if got := coverage(a); math.Abs(got-3600) > 1e-6 {
		t.Errorf("coverage = %v, want the full 3600 window", got)
	}
}

// wheelSection builds a complete fan: a central invariant point, four
// spokes to rim points, rim chords closing four inner fields, and open
// continuation lines from the rim to the window edge.
func wheelSection(t *testing.T) *section.Section {
	t.Helper()
	s := section.NewPT([2]float64{0, 10}, [2]float64{0, 10})
	c := addInv(t, s, "a b c d", "a b", 5, 5)
	n := addInv(t, s, "a b c d e", "b e", 5, 8)
	e := addInv(t, s, "a b c d e", "a e", 8, 5)
	w := addInv(t, s, "a c d e", "a e", 2, 5)
	so := addInv(t, s, "b c d e", "b e", 5, 2)

	addUni(t, s, "a b c d", "a", c, e, geom.Point{X: 5, Y: 5}, geom.Point{X: 8, Y: 5})
	addUni(t, s, "a b c d", "b", c, n, geom.Point{X: 5, Y: 5}, geom.Point{X: 5, Y: 8})
	addUni(t, s, "a c d", "a", c, w, geom.Point{X: 5, Y: 5}, geom.Point{X: 2, Y: 5})
	addUni(t, s, "b c d", "b", c, so, geom.Point{X: 5, Y: 5}, geom.Point{X: 5, Y: 2})

	addUni(t, s, "a b c d e", "e", n, e, geom.Point{X: 5, Y: 8}, geom.Point{X: 8, Y: 5})
	addUni(t, s, "a c d e", "e", w, n, geom.Point{X: 2, Y: 5}, geom.Point{X: 5, Y: 8})
	addUni(t, s, "c d e", "e", so, w, geom.Point{X: 5, Y: 2}, geom.Point{X: 2, Y: 5})
	addUni(t, s, "b c d e", "e", e, so, geom.Point{X: 8, Y: 5}, geom.Point{X: 5, Y: 2})

	addUni(t, s, "a b c d e", "a", e, section.None, geom.Point{X: 8, Y: 5}, geom.Point{X: 10, Y: 5})
	addUni(t, s, "a b c d e", "b", n, section.None, geom.Point{X: 5, Y: 8}, geom.Point{X: 5, Y: 10})
	addUni(t, s, "a c d e", "a", w, section.None, geom.Point{X: 2, Y: 5}, geom.Point{X: 0, Y: 5})
	addUni(t, s, "b c d e", "b", so, section.None, geom.Point{X: 5, Y: 2}, geom.Point{X: 5, Y: 0})
	return s
}

func TestBuildAreasResolvesClosedFields(t *testing.T) {
	t.Parallel()
	a := Build(wheelSection(t), Options{})
	if len(a.Faces) != 8 {
		t.Fatalf("got %d faces, want 8", len(a.Faces))
	}
	for _, key := range []string{"a b c d", "a c d", "b c d", "c d"} {
		field := a.Fields[key]
		if field == nil {
			t.Errorf("field {%s} missing", key)
			continue
		}
		if len(field.Polygons) != 1 {
			t.Errorf("field {%s} has %d polygons, want 1", key, len(field.Polygons))
		}
	}
	if got := len(a.Unresolved()); got != 4 {
		t.Errorf("%d unresolved rim faces, want 4", got)
	}
	if got := coverage(a); math.Abs(got-100) > 1e-6 {
		t.Errorf("coverage = %v, want 100", got)
	}
}

func TestIdentify(t *testing.T) {
	t.Parallel()
	a := Build(wheelSection(t), Options{})
	tests := []struct {
		pos  geom.Point
		want string
		ok   bool
	}{
		{geom.Point{X: 5.8, Y: 5.8}, "a b c d", true},
		{geom.Point{X: 4.2, Y: 5.8}, "a c d", true},
		{geom.Point{X: 4.4, Y: 4.4}, "c d", true},
		{geom.Point{X: 5.8, Y: 4.2}, "b c d", true},
		{geom.Point{X: 9, Y: 9}, "", false},
	}
	for _, tt := range tests {
		got, ok := a.Identify(tt.pos)
		if ok != tt.ok {
			t.Errorf("Identify(%v) ok = %v, want %v", tt.pos, ok, tt.ok)
			continue
		}
		if ok && got.Key() != tt.want {
			t.Errorf("Identify(%v) = {%s}, want {%s}", tt.pos, got, tt.want)
		}
	}
}

// Two curves whose candidate assemblages agree on both sides force a
// sidedness contradiction: one face resolves, the other is demoted with a
// warning instead of silently mislabeled.
func TestBuildAreasSidednessConflict(t *testing.T) {
	t.Parallel()
	s := section.NewPT([2]float64{0, 10}, [2]float64{0, 10})
	l := addInv(t, s, "a b c d", "a b", 2, 5)
	r := addInv(t, s, "a b c d e", "a e", 8, 5)
	addUni(t, s, "a b c d", "a", l, r,
		geom.Point{X: 2, Y: 5}, geom.Point{X: 5, Y: 7}, geom.Point{X: 8, Y: 5})
	addUni(t, s, "a b c d", "b", l, r,
		geom.Point{X: 2, Y: 5}, geom.Point{X: 5, Y: 3}, geom.Point{X: 8, Y: 5})

	a := Build(s, Options{})
	if len(a.Faces) != 2 {
		t.Fatalf("got %d faces, want 2", len(a.Faces))
	}
	var resolved int
	for _, f := range a.Faces {
		if f.Resolved {
			resolved++
			if f.Assemblage.Key() != "a b c d" {
				t.Errorf("resolved face = {%s}, want {a b c d}", f.Assemblage)
			}
		}
	}
	if resolved != 1 {
		t.Errorf("%d resolved faces, want 1", resolved)
	}
	if len(a.Warnings) == 0 {
		t.Error("no warning for the contradictory face")
	}
	if got := coverage(a); math.Abs(got-100) > 1e-6 {
		t.Errorf("coverage = %v, want 100", got)
	}
}

func TestPolygonInterior(t *testing.T) {
	t.Parallel()

	square := Polygon{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 4}, {X: 0, Y: 4}}
	if got := square.Interior(); got.X != 2 || got.Y != 2 {
		t.Errorf("square interior = %v, want (2, 2)", got)
	}

	// U shape whose area centroid falls in the notch, outside the ring.
	u := Polygon{
		{X: 0, Y: 0}, {X: 9, Y: 0}, {X: 9, Y: 8}, {X: 8, Y: 8},
		{X: 8, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 8}, {X: 0, Y: 8},
	}
	got := u.Interior()
	if !geom.InRing(got, u) {
		t.Errorf("concave interior %v falls outside the ring", got)
	}
}

func TestBuildWarnsOnCrossingLines(t *testing.T) {
	t.Parallel()
	s := section.NewPT([2]float64{0, 10}, [2]float64{0, 10})
	s.Universe = asm("a b c d")
	a := addUni(t, s, "a b c", "a", section.None, section.None,
		geom.Point{X: 2, Y: 2}, geom.Point{X: 8, Y: 8})
	b := addUni(t, s, "a b c", "b", section.None, section.None,
		geom.Point{X: 2, Y: 8}, geom.Point{X: 8, Y: 2})

	res := Build(s, Options{})
	want := "lines #" + strconv.Itoa(a) + " and #" + strconv.Itoa(b) + " cross inside the window"
	found := false
	for _, w := range res.Warnings {
		if w == want {
			found = true
		}
	}
	if !found {
		t.Errorf("Warnings = %v, want %q", res.Warnings, want)
	}
}

func TestBuildDoesNotWarnOnSharedEndpoint(t *testing.T) {
	t.Parallel()
	s := section.NewPT([2]float64{0, 10}, [2]float64{0, 10})
	s.Universe = asm("a b c d")
	c := addInv(t, s, "a b c d", "a b", 5, 5)
	addUni(t, s, "a b c d", "a", c, section.None,
		geom.Point{X: 5, Y: 5}, geom.Point{X: 10, Y: 5})
	addUni(t, s, "a b c d", "b", c, section.None,
		geom.Point{X: 5, Y: 5}, geom.Point{X: 5, Y: 10})

	res := Build(s, Options{})
	for _, w := range res.Warnings {
		if strings.Contains(w, "cross inside the window") {
			t.Errorf("shared endpoint reported as crossing: %q", w)
		}
	}
}
