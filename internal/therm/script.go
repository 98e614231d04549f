package therm

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/petrolab/psengine/internal/geom"
	"github.com/petrolab/psengine/internal/phase"
)

// Marker comments delimiting the managed blocks of the scriptfile. Only
// content between markers is ever rewritten; the rest of the scriptfile
// belongs to the user.
const (
	guessBegin  = "%{PSBGUESS-BEGIN}"
	guessEnd    = "%{PSBGUESS-END}"
	dogminBegin = "%{PSBDOGMIN-BEGIN}"
	dogminEnd   = "%{PSBDOGMIN-END}"
)

func (tc *TC) prefsPath() string {
	return filepath.Join(tc.Workdir, "tc-prefs.txt")
}

func (tc *TC) scriptPath() string {
	return filepath.Join(tc.Workdir, "tc-"+tc.Name+".txt")
}

// readPrefs extracts the scriptfile name from tc-prefs.txt.
func (tc *TC) readPrefs() error {
	data, err := os.ReadFile(tc.prefsPath())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoPrefs, err)
	}
	for _, ln := range strings.Split(string(data), "\n") {
		kw := strings.Fields(ln)
		if len(kw) >= 2 && kw[0] == "scriptfile" {
			tc.Name = kw[1]
		}
		if len(kw) >= 2 && kw[0] == "calcmode" && kw[1] != "1" {
			return fmt.Errorf("%w: calcmode must be 1", ErrBadScript)
		}
	}
	if tc.Name == "" {
		return fmt.Errorf("%w: no scriptfile keyword in tc-prefs.txt", ErrBadScript)
	}
	return nil
}

// readScript pulls the default windows and excess phases from the
// scriptfile and verifies the managed marker blocks are present.
func (tc *TC) readScript() error {
	data, err := os.ReadFile(tc.scriptPath())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadScript, err)
	}
	tc.TRange = [2]float64{200, 1000}
	tc.PRange = [2]float64{0.1, 20}
	var haveGuess, haveDogmin bool
	for _, ln := range strings.Split(string(data), "\n") {
		if strings.Contains(ln, guessBegin) {
			haveGuess = true
		}
		if strings.Contains(ln, dogminBegin) {
			haveDogmin = true
		}
		kw := strings.Fields(strings.SplitN(ln, "%", 2)[0])
		if len(kw) == 0 {
			continue
		}
		switch kw[0] {
		case "setdefTwindow":
			if len(kw) >= 3 {
				tc.TRange[0], _ = strconv.ParseFloat(kw[len(kw)-2], 64)
				tc.TRange[1], _ = strconv.ParseFloat(kw[len(kw)-1], 64)
			}
		case "setdefPwindow":
			if len(kw) >= 3 {
				tc.PRange[0], _ = strconv.ParseFloat(kw[len(kw)-2], 64)
				tc.PRange[1], _ = strconv.ParseFloat(kw[len(kw)-1], 64)
			}
		case "setexcess":
			names := kw[1:]
			var keep []string
			for _, n := range names {
				if n != "yes" && n != "no" {
					keep = append(keep, n)
				}
			}
			tc.Excess = phase.FromStrings(keep...)
		}
	}
	if !haveGuess || !haveDogmin {
		return fmt.Errorf("%w: missing PSBGUESS/PSBDOGMIN marker blocks", ErrBadScript)
	}
	return nil
}

// UpdateGuesses replaces the managed guess block with the given starting
// guesses and returns the previous block content, so a caller can restore
// it after a speculative calculation.
func (tc *TC) UpdateGuesses(guesses []string) ([]string, error) {
	old, err := tc.replaceBlock(guessBegin, guessEnd, guesses)
	if err != nil {
		return nil, fmt.Errorf("therm: update guesses: %w", err)
	}
	return old, nil
}

// setDogmin writes a dogmin block pinning the minimization to pos over the
// given phases, and returns a restore function reinstating the previous
// block.
func (tc *TC) setDogmin(which phase.Assemblage, pos geom.Point) (func(), error) {
	block := []string{
		"dogmin yes 1",
		"which " + which.Key(),
		fmt.Sprintf("setPwindow %g %g", pos.Y, pos.Y),
		fmt.Sprintf("setTwindow %g %g", pos.X, pos.X),
	}
	old, err := tc.replaceBlock(dogminBegin, dogminEnd, block)
	if err != nil {
		return nil, fmt.Errorf("therm: set dogmin block: %w", err)
	}
	return func() { _, _ = tc.replaceBlock(dogminBegin, dogminEnd, old) }, nil
}

// replaceBlock swaps the lines between the begin and end markers for
// content, returning the lines previously there.
func (tc *TC) replaceBlock(begin, end string, content []string) ([]string, error) {
	data, err := os.ReadFile(tc.scriptPath())
	if err != nil {
		return nil, err
	}
	lines := strings.Split(string(data), "\n")
	bi, ei := -1, -1
	for i, ln := range lines {
		if strings.HasPrefix(ln, begin) {
			bi = i
		}
		if strings.HasPrefix(ln, end) {
			ei = i
		}
	}
	if bi < 0 || ei < 0 || ei < bi {
		return nil, fmt.Errorf("marker block %s...%s not found", begin, end)
	}
	old := append([]string{}, lines[bi+1:ei]...)
	next := append(append(append([]string{}, lines[:bi+1]...), content...), lines[ei:]...)
	if err := os.WriteFile(tc.scriptPath(), []byte(strings.Join(next, "\n")), 0o644); err != nil {
		return nil, err
	}
	return old, nil
}
