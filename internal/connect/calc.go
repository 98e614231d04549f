package connect

import (
	"context"
	"fmt"

	"github.com/petrolab/psengine/internal/phase"
	"github.com/petrolab/psengine/internal/section"
	"github.com/petrolab/psengine/internal/therm"
)

// Outcome reports how a solved entity entered the registry.
type Outcome struct {
	// ID is the registry identity the result landed under.
	ID int
	// Created is true for a fresh insert, false for a merge or re-solve of
	// an existing identity.
	Created bool
	// Samples is the number of solved equilibria the gateway produced.
	Samples int
	// Gap is non-nil when a line merge left an unsampled span.
	Gap *section.GapWarning
}

// GuessWriter is implemented by gateways that persist starting guesses
// between calculations. After a successful solve the mid-curve guesses are
// written back so neighboring calculations converge from a nearby solution.
type GuessWriter interface {
	UpdateGuesses(guesses []string) ([]string, error)
}

// CalcUni solves the univariant curve of the given zero phase across the
// extended section window and registers it: a fresh line when the key is
// unknown, otherwise a merge into the existing line under its identity. A
// merge that leaves a sampling gap still succeeds; the gap is reported in
// the outcome. The registry is untouched when the solve fails.
func CalcUni(ctx context.Context, gw therm.Gateway, s *section.Section, phases phase.Assemblage, out phase.Phase, opts Options) (Outcome, error) {
	win := extendRect(s.Range, opts.Extend)
	rs, err := gw.SolveLine(ctx, phases, out, win, opts.Steps)
	if err != nil {
		return Outcome{}, err
	}
	oc := Outcome{Samples: len(rs)}
	if id, ok := s.FindUni(phases, out); ok {
		warn, err := s.MergeUni(id, rs)
		if err != nil {
			return Outcome{}, err
		}
		oc.ID, oc.Gap = id, warn
	} else {
		id, err := s.InsertUni(&section.UniLine{
			Phases:  phases,
			Out:     out,
			Points:  rs.Points(),
			Results: rs,
			Origin:  section.Calculated,
		})
		if err != nil {
			return Outcome{}, err
		}
		oc.ID, oc.Created = id, true
	}
	if err := seedGuesses(gw, rs.Mid().Guess); err != nil {
		return oc, err
	}
	return oc, nil
}

// CalcInv solves the invariant point of the given two zero phases inside the
// extended section window and registers it, re-solving in place when the key
// is already known. Manual points keep their asserted position; re-solving
// one fails rather than silently moving it.
func CalcInv(ctx context.Context, gw therm.Gateway, s *section.Section, phases, out phase.Assemblage, opts Options) (Outcome, error) {
	win := extendRect(s.Range, opts.Extend)
	res, err := gw.SolvePoint(ctx, phases, out, win)
	if err != nil {
		return Outcome{}, err
	}
	oc := Outcome{Samples: 1}
	pos := res.Pos
	ip := &section.InvPoint{
		Phases:  phases,
		Out:     out,
		Pos:     &pos,
		Origin:  section.Calculated,
		Results: therm.ResultSet{res},
	}
	if id, ok := s.FindInv(phases, out); ok {
		if prev := s.InvPoint(id); prev != nil && prev.Manual() {
			return Outcome{}, fmt.Errorf("connect: point #%d %q is manual, remove it before recalculating",
				id, prev.Label(s.Excess))
		}
		if err := s.UpdateInv(ip); err != nil {
			return Outcome{}, err
		}
		oc.ID = id
	} else {
		id, err := s.InsertInv(ip)
		if err != nil {
			return Outcome{}, err
		}
		oc.ID, oc.Created = id, true
	}
	if err := seedGuesses(gw, res.Guess); err != nil {
		return oc, err
	}
	return oc, nil
}

// seedGuesses writes guesses through the gateway when it manages any. The
// registry is already updated by the time this runs, so a write failure is
// reported without undoing the calculation.
func seedGuesses(gw therm.Gateway, guesses []string) error {
	w, ok := gw.(GuessWriter)
	if !ok || len(guesses) == 0 {
		return nil
	}
	if _, err := w.UpdateGuesses(guesses); err != nil {
		return fmt.Errorf("connect: result registered, guess update failed: %w", err)
	}
	return nil
}
