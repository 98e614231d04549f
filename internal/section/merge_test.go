package section

import (
	"math"
	"testing"

	"github.com/petrolab/psengine/internal/geom"
	"github.com/petrolab/psengine/internal/therm"
)

func resultsAt(xs []float64, y float64) therm.ResultSet {
	rs := make(therm.ResultSet, len(xs))
	for i, x := range xs {
		rs[i] = therm.Result{Pos: geom.Point{X: x, Y: y}}
	}
	return rs
}

// Scenario: segments covering [0, 5] and [4, 10] with tolerance 0.1 merge
// into one polyline spanning 0..10 with a single retained sample in the
// overlap.
func TestMergeUniOverlappingSegments(t *testing.T) {
	t.Parallel()
	s := newTestSection(t)
	s.MergeTol = 0.1
	s.Range = geom.Rect{X0: 0, Y0: 0, X1: 10, Y1: 10}
	id, err := s.InsertUni(uni(t, "a b c", "c",
		geom.Point{X: 0, Y: 1}, geom.Point{X: 2.5, Y: 1}, geom.Point{X: 5, Y: 1}))
	if err != nil {
		t.Fatalf("InsertUni: %v", err)
	}
	warn, err := s.MergeUni(id, resultsAt([]float64{4.95, 7.5, 10}, 1))
	if err != nil {
		t.Fatalf("MergeUni: %v", err)
	}
	if warn != nil {
		t.Errorf("unexpected gap warning: %v", warn)
	}
	got := s.UniLine(id).Points
	want := []float64{0, 2.5, 5, 7.5, 10}
	if len(got) != len(want) {
		t.Fatalf("merged polyline has %d samples %v, want %d", len(got), got, len(want))
	}
	for i, x := range want {
		if math.Abs(got[i].X-x) > 0.11 {
			t.Errorf("sample %d at X=%v, want ~%v", i, got[i].X, x)
		}
	}
	// Exactly one sample retained inside the [4, 5] overlap.
	overlap := 0
	for _, p := range got {
		if p.X >= 4 && p.X <= 5 {
			overlap++
		}
	}
	if overlap != 1 {
		t.Errorf("%d samples in overlap [4,5], want 1", overlap)
	}
}

// Merging a result set that is a subset of existing samples must not change
// the polyline.
func TestMergeUniIdempotent(t *testing.T) {
	t.Parallel()
	s := newTestSection(t)
	s.MergeTol = 0.1
	s.Range = geom.Rect{X0: 0, Y0: 0, X1: 10, Y1: 10}
	id, err := s.InsertUni(uni(t, "a b c", "c",
		geom.Point{X: 0, Y: 1}, geom.Point{X: 2, Y: 1}, geom.Point{X: 4, Y: 1}, geom.Point{X: 6, Y: 1}))
	if err != nil {
		t.Fatalf("InsertUni: %v", err)
	}
	before := append([]geom.Point{}, s.UniLine(id).Points...)
	if _, err := s.MergeUni(id, resultsAt([]float64{2, 6}, 1)); err != nil {
		t.Fatalf("MergeUni: %v", err)
	}
	after := s.UniLine(id).Points
	if len(after) != len(before) {
		t.Fatalf("polyline changed from %d to %d samples", len(before), len(after))
	}
	for i := range before {
		if before[i].Dist(after[i]) > 0.1 {
			t.Errorf("sample %d moved from %v to %v", i, before[i], after[i])
		}
	}
}

func TestMergeUniReportsGap(t *testing.T) {
	t.Parallel()
	s := newTestSection(t)
	s.MergeTol = 0.1
	s.Range = geom.Rect{X0: 0, Y0: 0, X1: 20, Y1: 10}
	id, err := s.InsertUni(uni(t, "a b c", "c",
		geom.Point{X: 0, Y: 1}, geom.Point{X: 3, Y: 1}))
	if err != nil {
		t.Fatalf("InsertUni: %v", err)
	}
	warn, err := s.MergeUni(id, resultsAt([]float64{8, 11}, 1))
	if err != nil {
		t.Fatalf("MergeUni: %v", err)
	}
	if warn == nil {
		t.Fatal("no gap warning for disjoint segments")
	}
	if warn.From != 3 || warn.To != 8 {
		t.Errorf("gap = [%v, %v], want [3, 8]", warn.From, warn.To)
	}
	// The merge still happened: connectivity stays usable.
	if got := len(s.UniLine(id).Points); got != 4 {
		t.Errorf("merged polyline has %d samples, want 4", got)
	}
}

func TestMergeLinesKeyMismatchFailsFast(t *testing.T) {
	t.Parallel()
	a := uni(t, "a b c", "c", geom.Point{X: 0, Y: 1})
	b := uni(t, "a b c", "b", geom.Point{X: 1, Y: 1})
	if _, err := MergeLines(a, b, 0.1); err == nil {
		t.Fatal("MergeLines across keys succeeded, want error")
	}
}

func TestRemoveNodes(t *testing.T) {
	t.Parallel()
	s := newTestSection(t)
	s.Range = geom.Rect{X0: 0, Y0: 0, X1: 10, Y1: 10}
	id, err := s.InsertUni(uni(t, "a b c", "c",
		geom.Point{X: 0, Y: 1}, geom.Point{X: 2, Y: 1}, geom.Point{X: 4, Y: 1}, geom.Point{X: 6, Y: 1}))
	if err != nil {
		t.Fatalf("InsertUni: %v", err)
	}
	if err := s.RemoveNodes(id, 1.5, 4.5); err != nil {
		t.Fatalf("RemoveNodes: %v", err)
	}
	got := s.UniLine(id)
	if len(got.Points) != 2 {
		t.Fatalf("polyline has %d samples, want 2", len(got.Points))
	}
	if got.Points[0].X != 0 || got.Points[1].X != 6 {
		t.Errorf("kept samples %v, want X=0 and X=6", got.Points)
	}
	// Key and endpoint references are untouched.
	if got.Out != "c" || got.Begin != None || got.End != None {
		t.Error("RemoveNodes changed key or endpoint references")
	}
}
