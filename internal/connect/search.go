package connect

import (
	"context"
	"fmt"
	"math"

	"github.com/petrolab/psengine/internal/geom"
	"github.com/petrolab/psengine/internal/phase"
	"github.com/petrolab/psengine/internal/section"
	"github.com/petrolab/psengine/internal/therm"
)

// Confidence qualifies a located invariant point.
type Confidence int

const (
	// Stable solutions are the free-energy minimum at their position.
	Stable Confidence = iota
	// Metastable solutions satisfy equilibrium but a lower-energy
	// assemblage exists at the same position.
	Metastable
)

// String returns the confidence as a lowercase label.
func (c Confidence) String() string {
	if c == Metastable {
		return "metastable"
	}
	return "stable"
}

// Direction selects which open end the search extends past.
type Direction int

const (
	// Beyond extends past the last polyline sample.
	Beyond Direction = iota
	// Before extends past the first.
	Before
)

// Finding is one invariant point located by SearchInvariant.
type Finding struct {
	Pos        geom.Point
	Phases     phase.Assemblage
	Out        phase.Assemblage
	Confidence Confidence
	// Registered holds the id of an already-known point with the same
	// topological key, or section.None.
	Registered int
}

// probeFrac sizes the window handed to the gateway for a single-position
// probe, as a fraction of the section range.
const probeFrac = 0.01

// SearchInvariant walks the line's extension looking for positions where a
// phase joins or leaves the stable assemblage in addition to the line's
// zero phase. Each transition is located by bisection: the bracket narrows
// with every gateway minimization until it is below BracketTol or the call
// budget runs out. Findings are ordered by position along the extension;
// keys already in the registry are flagged, never duplicated. Cancellation
// between gateway calls returns the findings gathered so far.
func SearchInvariant(ctx context.Context, gw therm.Gateway, s *section.Section, lineID int, dir Direction, opts Options) ([]Finding, error) {
	ul := s.UniLine(lineID)
	if ul == nil {
		return nil, fmt.Errorf("%w: univariant line #%d", section.ErrNotFound, lineID)
	}
	if len(ul.Points) < 2 {
		return nil, fmt.Errorf("connect: line #%d needs at least two samples to extend", lineID)
	}
	anchor, inner := ul.Points[len(ul.Points)-1], ul.Points[len(ul.Points)-2]
	if dir == Before {
		anchor, inner = ul.Points[0], ul.Points[1]
	}
	dx, dy := anchor.X-inner.X, anchor.Y-inner.Y
	n := math.Hypot(dx, dy)
	if n == 0 {
		return nil, fmt.Errorf("connect: line #%d end is degenerate", lineID)
	}
	ux, uy := dx/n, dy/n
	reach := opts.Extend * math.Hypot(s.Range.Width(), s.Range.Height())
	at := func(t float64) geom.Point {
		return geom.Point{X: anchor.X + t*ux, Y: anchor.Y + t*uy}
	}

	budget := opts.Budget
	stableAt := func(t float64) (phase.Assemblage, error) {
		if err := ctx.Err(); err != nil {
			return phase.Assemblage{}, err
		}
		budget--
		dg, err := gw.Minimize(ctx, s.Universe, pointWindow(at(t), s.Range), opts.MaxVariance)
		if err != nil {
			return phase.Assemblage{}, err
		}
		best, ok := dg.Stable()
		if !ok {
			return phase.Assemblage{}, &therm.CalcError{Kind: therm.NoConvergence, Msg: "minimization produced no candidates"}
		}
		return best.Phases, nil
	}
	same := func(a, b phase.Assemblage) bool {
		return a.Without(ul.Out).Equal(b.Without(ul.Out))
	}

	var findings []Finding
	refAsm := ul.Phases
	lo := 0.0
	for budget > 0 && reach-lo > opts.BracketTol {
		farAsm, err := stableAt(reach)
		if err != nil {
			if recoverable(err) {
				break
			}
			return findings, err
		}
		if same(refAsm, farAsm) {
			break
		}
		hi, hiAsm := reach, farAsm
		for hi-lo > opts.BracketTol && budget > 0 {
			mid := 0.5 * (lo + hi)
			asm, err := stableAt(mid)
			if err != nil {
				if recoverable(err) {
					// An unanswered probe narrows from the known side.
					lo = mid
					continue
				}
				return findings, err
			}
			if same(refAsm, asm) {
				lo = mid
			} else {
				hi, hiAsm = mid, asm
			}
		}
		f, err := resolveFinding(ctx, gw, s, ul, refAsm, hiAsm, at(lo), at(hi), &budget, opts)
		if err != nil {
			return findings, err
		}
		if f != nil {
			findings = append(findings, *f)
		}
		lo, refAsm = hi, hiAsm
	}
	return findings, nil
}

// resolveFinding turns a converged bracket into a finding: it names the
// invariant key from the assemblage change, refines the position with a
// direct two-zero-phase solve, and grades confidence against a
// minimization at the refined position.
func resolveFinding(ctx context.Context, gw therm.Gateway, s *section.Section, ul *section.UniLine, refAsm, hiAsm phase.Assemblage, lo, hi geom.Point, budget *int, opts Options) (*Finding, error) {
	base := refAsm.With(ul.Out)
	appeared := hiAsm.Diff(refAsm).Without(ul.Out)
	left := refAsm.Diff(hiAsm).Without(ul.Out)
	var invPhases, invOut phase.Assemblage
	switch {
	case !appeared.Empty():
		c := appeared.Phases()[0]
		invPhases = base.With(c)
		invOut = phase.New(ul.Out, c)
	case !left.Empty():
		c := left.Phases()[0]
		invPhases = base
		invOut = phase.New(ul.Out, c)
	default:
		return nil, nil
	}

	pos := geom.Point{X: 0.5 * (lo.X + hi.X), Y: 0.5 * (lo.Y + hi.Y)}
	f := &Finding{Pos: pos, Phases: invPhases, Out: invOut}
	if id, ok := s.FindInv(invPhases, invOut); ok {
		f.Registered = id
	}
	if *budget <= 0 {
		return f, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	(*budget)--
	res, err := gw.SolvePoint(ctx, invPhases, invOut, bracketWindow(lo, hi, s.Range))
	if err != nil {
		if recoverable(err) {
			return f, nil
		}
		return nil, err
	}
	f.Pos = res.Pos

	if *budget <= 0 {
		return f, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	(*budget)--
	dg, err := gw.Minimize(ctx, s.Universe, pointWindow(f.Pos, s.Range), opts.MaxVariance)
	if err != nil {
		if recoverable(err) {
			return f, nil
		}
		return nil, err
	}
	if best, ok := dg.Stable(); ok && best.G < res.G && !best.Phases.Equal(invPhases) {
		f.Confidence = Metastable
	}
	return f, nil
}

func pointWindow(p geom.Point, r geom.Rect) geom.Rect {
	dx := probeFrac * r.Width()
	dy := probeFrac * r.Height()
	return geom.Rect{X0: p.X - dx, Y0: p.Y - dy, X1: p.X + dx, Y1: p.Y + dy}
}

func bracketWindow(lo, hi geom.Point, r geom.Rect) geom.Rect {
	w := geom.Rect{
		X0: math.Min(lo.X, hi.X), Y0: math.Min(lo.Y, hi.Y),
		X1: math.Max(lo.X, hi.X), Y1: math.Max(lo.Y, hi.Y),
	}
	pad := pointWindow(geom.Point{}, r)
	w.X0 += pad.X0
	w.Y0 += pad.Y0
	w.X1 += pad.X1
	w.Y1 += pad.Y1
	return w
}
