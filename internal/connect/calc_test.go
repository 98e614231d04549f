package connect

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/petrolab/psengine/internal/geom"
	"github.com/petrolab/psengine/internal/phase"
	"github.com/petrolab/psengine/internal/section"
	"github.com/petrolab/psengine/internal/therm"
)

// guessGateway records guesses written back after a calculation.
type guessGateway struct {
	fakeGateway
	wrote [][]string
}

func (g *guessGateway) UpdateGuesses(guesses []string) ([]string, error) {
	g.wrote = append(g.wrote, guesses)
	return nil, nil
}

func lineResults(xs ...float64) therm.ResultSet {
	rs := make(therm.ResultSet, len(xs))
	for i, x := range xs {
		rs[i] = therm.Result{Pos: geom.Point{X: x, Y: 5}}
	}
	return rs
}

func TestCalcUniRegistersNewLine(t *testing.T) {
	t.Parallel()
	s := section.NewPT([2]float64{300, 500}, [2]float64{1, 10})
	s.Universe = asm("a b c d")

	rs := lineResults(320, 380, 440)
	rs[1].Guess = []string{"xyzguess x(b) 0.42"}
	gw := &guessGateway{fakeGateway: fakeGateway{
		line: func(phase.Assemblage, phase.Phase, geom.Rect, int) (therm.ResultSet, error) {
			return rs, nil
		},
	}}

	oc, err := CalcUni(context.Background(), gw, s, asm("a b c"), "c", DefaultOptions())
	if err != nil {
		t.Fatalf("CalcUni: %v", err)
	}
	if !oc.Created || oc.Samples != 3 || oc.Gap != nil {
		t.Errorf("outcome = %+v, want created, 3 samples, no gap", oc)
	}
	ul := s.UniLine(oc.ID)
	if ul == nil {
		t.Fatalf("line #%d not registered", oc.ID)
	}
	if len(ul.Points) != 3 || ul.Origin != section.Calculated {
		t.Errorf("registered line has %d points, origin %v", len(ul.Points), ul.Origin)
	}
	if len(gw.wrote) != 1 || !strings.Contains(gw.wrote[0][0], "x(b)") {
		t.Errorf("mid-curve guesses not written back: %v", gw.wrote)
	}
}

func TestCalcUniMergesIntoExistingLine(t *testing.T) {
	t.Parallel()
	s := section.NewPT([2]float64{300, 500}, [2]float64{1, 10})
	s.Universe = asm("a b c d")
	id, err := s.InsertUni(&section.UniLine{
		Phases: asm("a b c"),
		Out:    "c",
		Points: []geom.Point{{X: 320, Y: 5}, {X: 360, Y: 5}},
	})
	if err != nil {
		t.Fatalf("InsertUni: %v", err)
	}

	gw := &fakeGateway{
		line: func(phase.Assemblage, phase.Phase, geom.Rect, int) (therm.ResultSet, error) {
			return lineResults(360, 400, 440), nil
		},
	}
	oc, err := CalcUni(context.Background(), gw, s, asm("a b c"), "c", DefaultOptions())
	if err != nil {
		t.Fatalf("CalcUni: %v", err)
	}
	if oc.Created || oc.ID != id || oc.Gap != nil {
		t.Errorf("outcome = %+v, want merge into #%d without gap", oc, id)
	}
	if got := len(s.UniLine(id).Points); got != 4 {
		t.Errorf("merged polyline has %d points, want 4", got)
	}
}

func TestCalcUniReportsSamplingGap(t *testing.T) {
	t.Parallel()
	s := section.NewPT([2]float64{300, 500}, [2]float64{1, 10})
	s.Universe = asm("a b c d")
	id, err := s.InsertUni(&section.UniLine{
		Phases: asm("a b c"),
		Out:    "c",
		Points: []geom.Point{{X: 310, Y: 5}, {X: 330, Y: 5}},
	})
	if err != nil {
		t.Fatalf("InsertUni: %v", err)
	}

	gw := &fakeGateway{
		line: func(phase.Assemblage, phase.Phase, geom.Rect, int) (therm.ResultSet, error) {
			return lineResults(420, 460), nil
		},
	}
	oc, err := CalcUni(context.Background(), gw, s, asm("a b c"), "c", DefaultOptions())
	if err != nil {
		t.Fatalf("CalcUni: %v", err)
	}
	if oc.Gap == nil {
		t.Fatal("disjoint incoming segment reported no gap")
	}
	if oc.Gap.LineID != id || oc.Gap.From != 330 || oc.Gap.To != 420 {
		t.Errorf("gap = %+v, want 330..420 on #%d", oc.Gap, id)
	}
}

func TestCalcUniLeavesRegistryOnSolveFailure(t *testing.T) {
	t.Parallel()
	s := section.NewPT([2]float64{300, 500}, [2]float64{1, 10})
	s.Universe = asm("a b c d")

	gw := &fakeGateway{} // SolveLine fails with no_convergence
	_, err := CalcUni(context.Background(), gw, s, asm("a b c"), "c", DefaultOptions())
	if kind, ok := therm.KindOf(err); !ok || kind != therm.NoConvergence {
		t.Fatalf("err = %v, want no_convergence", err)
	}
	if _, lines := s.Counts(); lines != 0 {
		t.Errorf("failed solve registered %d lines", lines)
	}
}

func TestCalcInvRegistersThenResolvesInPlace(t *testing.T) {
	t.Parallel()
	s := section.NewPT([2]float64{300, 500}, [2]float64{1, 10})
	s.Universe = asm("a b c d")

	pos := geom.Point{X: 400, Y: 5}
	gw := &guessGateway{fakeGateway: fakeGateway{
		point: func(phase.Assemblage, phase.Assemblage, geom.Rect) (therm.Result, error) {
			return therm.Result{Pos: pos, Guess: []string{"xyzguess x(a) 0.1"}}, nil
		},
	}}

	oc, err := CalcInv(context.Background(), gw, s, asm("a b c d"), asm("c d"), DefaultOptions())
	if err != nil {
		t.Fatalf("CalcInv: %v", err)
	}
	if !oc.Created {
		t.Errorf("first solve not flagged as created: %+v", oc)
	}
	if len(gw.wrote) != 1 {
		t.Errorf("guesses written %d times, want 1", len(gw.wrote))
	}

	pos = geom.Point{X: 410, Y: 6}
	again, err := CalcInv(context.Background(), gw, s, asm("a b c d"), asm("c d"), DefaultOptions())
	if err != nil {
		t.Fatalf("re-solve: %v", err)
	}
	if again.Created || again.ID != oc.ID {
		t.Errorf("re-solve outcome = %+v, want update of #%d", again, oc.ID)
	}
	ip := s.InvPoint(oc.ID)
	if ip == nil || ip.Pos == nil || ip.Pos.X != 410 {
		t.Errorf("point #%d not moved to the re-solved position: %+v", oc.ID, ip)
	}
	if points, _ := s.Counts(); points != 1 {
		t.Errorf("re-solve duplicated the point: %d registered", points)
	}
}

func TestCalcInvRefusesManualPoint(t *testing.T) {
	t.Parallel()
	s := section.NewPT([2]float64{300, 500}, [2]float64{1, 10})
	s.Universe = asm("a b c d")
	if _, err := s.InsertInv(&section.InvPoint{
		Phases: asm("a b c d"),
		Out:    asm("c d"),
		Pos:    &geom.Point{X: 390, Y: 4},
		Origin: section.Manual,
	}); err != nil {
		t.Fatalf("InsertInv: %v", err)
	}

	gw := &fakeGateway{
		point: func(phase.Assemblage, phase.Assemblage, geom.Rect) (therm.Result, error) {
			return therm.Result{Pos: geom.Point{X: 400, Y: 5}}, nil
		},
	}
	_, err := CalcInv(context.Background(), gw, s, asm("a b c d"), asm("c d"), DefaultOptions())
	if err == nil || !strings.Contains(err.Error(), "manual") {
		t.Fatalf("err = %v, want refusal for manual point", err)
	}
	if ip := s.InvPoints()[0]; ip.Pos.X != 390 {
		t.Errorf("manual point moved to %v", ip.Pos)
	}
}

func TestSeedGuessesSurfacesWriteFailure(t *testing.T) {
	t.Parallel()
	s := section.NewPT([2]float64{300, 500}, [2]float64{1, 10})
	s.Universe = asm("a b c d")

	rs := lineResults(320, 380, 440)
	rs[1].Guess = []string{"xyzguess x(b) 0.42"}
	gw := &failingGuessGateway{fakeGateway: fakeGateway{
		line: func(phase.Assemblage, phase.Phase, geom.Rect, int) (therm.ResultSet, error) {
			return rs, nil
		},
	}}

	oc, err := CalcUni(context.Background(), gw, s, asm("a b c"), "c", DefaultOptions())
	if err == nil || !errors.Is(err, errGuessWrite) {
		t.Fatalf("err = %v, want guess write failure", err)
	}
	if s.UniLine(oc.ID) == nil {
		t.Error("guess write failure rolled back the registered line")
	}
}

var errGuessWrite = errors.New("scriptfile busy")

type failingGuessGateway struct {
	fakeGateway
}

func (g *failingGuessGateway) UpdateGuesses([]string) ([]string, error) {
	return nil, errGuessWrite
}
