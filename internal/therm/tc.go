package therm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/petrolab/psengine/internal/geom"
	"github.com/petrolab/psengine/internal/phase"
)

// Sentinel errors for driver initialization.
var (
	// ErrNoExecutable indicates no THERMOCALC executable was found in the working directory.
	ErrNoExecutable = errors.New("therm: no THERMOCALC executable in working directory")
	// ErrNoPrefs indicates tc-prefs.txt is missing from the working directory.
	ErrNoPrefs = errors.New("therm: tc-prefs.txt not found in working directory")
	// ErrBadScript indicates the scriptfile failed a required-settings check.
	ErrBadScript = errors.New("therm: scriptfile check failed")
)

// TC drives a THERMOCALC-style interactive executable in a working
// directory. Each calculation starts a fresh process, feeds it the answer
// script for the requested calculation, and parses the textual output.
// TC implements Gateway.
type TC struct {
	Workdir string
	Exe     string
	Name    string           // scriptfile basename, from tc-prefs.txt
	Excess  phase.Assemblage // always-present phases from the scriptfile
	TRange  [2]float64       // default temperature window from the scriptfile
	PRange  [2]float64       // default pressure window from the scriptfile
}

// NewTC locates the executable and validates the working directory: a
// tc-prefs.txt naming the scriptfile must exist, and the scriptfile's
// default windows and excess phases are read.
func NewTC(workdir string) (*TC, error) {
	tc := &TC{Workdir: workdir}
	if err := tc.readPrefs(); err != nil {
		return nil, err
	}
	if err := tc.readScript(); err != nil {
		return nil, err
	}
	exe, err := findExecutable(workdir)
	if err != nil {
		return nil, err
	}
	tc.Exe = exe
	return tc, nil
}

func findExecutable(workdir string) (string, error) {
	pat := "tc3*"
	if runtime.GOOS == "windows" {
		pat = "tc3*.exe"
	}
	matches, err := filepath.Glob(filepath.Join(workdir, pat))
	if err != nil {
		return "", fmt.Errorf("therm: glob executable: %w", err)
	}
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		if runtime.GOOS == "windows" || info.Mode()&0o111 != 0 {
			return m, nil
		}
	}
	return "", ErrNoExecutable
}

// run starts one engine process and feeds it the answer script. Engine-side
// failures surface as CalcError; the raw output is preserved on the error.
func (tc *TC) run(ctx context.Context, answers string) (string, error) {
	cmd := exec.CommandContext(ctx, tc.Exe)
	cmd.Dir = tc.Workdir
	cmd.Stdin = strings.NewReader(answers)
	out, err := cmd.CombinedOutput()
	output := string(out)
	if ctx.Err() != nil {
		return output, &CalcError{Kind: Timeout, Msg: "calculation deadline exceeded", Output: output}
	}
	if err != nil {
		return output, &CalcError{Kind: EngineUnavailable, Msg: err.Error(), Output: output}
	}
	if i := strings.Index(output, "BOMBED"); i >= 0 {
		msg := strings.SplitN(output[i:], "\n", 2)[0]
		return output, &CalcError{Kind: NoConvergence, Msg: msg, Output: output}
	}
	return output, nil
}

// checkWindow rejects windows outside the scriptfile's declared ranges.
func (tc *TC) checkWindow(win geom.Rect) error {
	if win.X0 >= win.X1 || win.Y0 >= win.Y1 {
		return &CalcError{Kind: InvalidWindow, Msg: fmt.Sprintf("degenerate window %+v", win)}
	}
	if win.X1 < tc.TRange[0] || win.X0 > tc.TRange[1] ||
		win.Y1 < tc.PRange[0] || win.Y0 > tc.PRange[1] {
		return &CalcError{Kind: InvalidWindow, Msg: fmt.Sprintf("window %+v outside scriptfile ranges", win)}
	}
	return nil
}

// prec picks the answer-script decimal precision from the window spans, so
// narrow search brackets keep enough digits to distinguish endpoints.
func prec(win geom.Rect) int {
	span := math.Min(win.Width(), win.Height())
	if span <= 0 {
		return 3
	}
	p := int(2-math.Floor(math.Log10(span))) + 1
	if p < 1 {
		p = 1
	}
	return p
}

// SolvePoint implements Gateway. With two zero phases this locates an
// invariant point; with one it solves a single point on a univariant curve.
func (tc *TC) SolvePoint(ctx context.Context, phases, zero phase.Assemblage, win geom.Rect) (Result, error) {
	if err := tc.checkWindow(win); err != nil {
		return Result{}, err
	}
	pc := prec(win)
	answers := fmt.Sprintf("%s\n\n%s\n%.*f %.*f %.*f %.*f\nn\n\nkill\n\n",
		phases.Key(), zero.Key(),
		pc, win.X0, pc, win.X1, pc, win.Y0, pc, win.Y1)
	output, err := tc.run(ctx, answers)
	if err != nil {
		return Result{}, err
	}
	res, err := parseLog(output)
	if err != nil {
		return Result{}, err
	}
	return res[0], nil
}

// SolveLine implements Gateway. The curve is sampled by stepping the
// variable with the wider normalized span, matching how the interactive
// engine asks for a stepping range.
func (tc *TC) SolveLine(ctx context.Context, phases phase.Assemblage, zero phase.Phase, win geom.Rect, steps int) (ResultSet, error) {
	if err := tc.checkWindow(win); err != nil {
		return nil, err
	}
	if steps < 2 {
		steps = 2
	}
	pc := prec(win)
	var answers string
	if win.Width()/tc.tSpan() >= win.Height()/tc.pSpan() {
		// Wide window: step temperature, solve pressure at each step.
		step := win.Width() / float64(steps)
		answers = fmt.Sprintf("%s\n\n%s\nn\n%.*f %.*f\n%.*f %.*f\n%g\nn\n\nkill\n\n",
			phases.Key(), zero,
			pc, win.X0, pc, win.X1, pc, win.Y0, pc, win.Y1, step)
	} else {
		// Tall window: step pressure, solve temperature at each step.
		step := win.Height() / float64(steps)
		answers = fmt.Sprintf("%s\n\n%s\ny\n%.*f %.*f\n%.*f %.*f\n%g\nn\n\nkill\n\n",
			phases.Key(), zero,
			pc, win.Y0, pc, win.Y1, pc, win.X0, pc, win.X1, step)
	}
	output, err := tc.run(ctx, answers)
	if err != nil {
		return nil, err
	}
	res, err := parseLog(output)
	if err != nil {
		return nil, err
	}
	if len(res) < 2 {
		return nil, &CalcError{Kind: NoConvergence, Msg: "only one point solved, widen the window", Output: output}
	}
	return res, nil
}

// Minimize implements Gateway. The scriptfile's dogmin block is rewritten to
// pin the calculation at the window midpoint, then restored afterwards.
func (tc *TC) Minimize(ctx context.Context, superset phase.Assemblage, win geom.Rect, maxVariance int) (Dogmin, error) {
	if err := tc.checkWindow(win); err != nil {
		return Dogmin{}, err
	}
	mid := geom.Point{X: (win.X0 + win.X1) / 2, Y: (win.Y0 + win.Y1) / 2}
	restore, err := tc.setDogmin(superset.Diff(tc.Excess), mid)
	if err != nil {
		return Dogmin{}, err
	}
	defer restore()

	output, err := tc.run(ctx, fmt.Sprintf("%d\nn\n\n", maxVariance))
	if err != nil {
		return Dogmin{}, err
	}
	dgm, err := parseDogmin(output)
	if err != nil {
		return Dogmin{}, err
	}
	dgm.Pos = mid
	return dgm, nil
}

func (tc *TC) tSpan() float64 {
	if s := tc.TRange[1] - tc.TRange[0]; s > 0 {
		return s
	}
	return 1
}

func (tc *TC) pSpan() float64 {
	if s := tc.PRange[1] - tc.PRange[0]; s > 0 {
		return s
	}
	return 1
}
