package therm

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/petrolab/psengine/internal/geom"
	"github.com/petrolab/psengine/internal/phase"
)

var (
	varianceRe = regexp.MustCompile(`variance of required equilibrium.*\((\d+)\?`)
	gsysRe     = regexp.MustCompile(`G\(sys\)\s*=?\s*(-?\d+(?:\.\d+)?)`)
	xyzRe      = regexp.MustCompile(`^xyzguess\s+(\w+)\((\w+)\)\s+(-?\d+(?:\.\d+)?)`)
)

// parseLog extracts the solved equilibria from one engine run. The output
// contains one block per solution, each headed by a " P(kbar)" table line
// followed by the P and T values, the starting-guess block and an "rbi yes"
// modal-proportion table. An output with no block is a no-result run.
func parseLog(output string) (ResultSet, error) {
	lines := nonEmptyLines(output)

	variance := -1
	if m := varianceRe.FindStringSubmatch(output); m != nil {
		variance, _ = strconv.Atoi(m[1])
	}

	var starts []int
	for i, ln := range lines {
		if strings.HasPrefix(ln, " P(kbar)") {
			starts = append(starts, i)
		}
	}
	if len(starts) == 0 {
		return nil, &CalcError{Kind: NoConvergence, Msg: "nothing in range", Output: output}
	}
	starts = append(starts, len(lines))

	var res ResultSet
	for b := 0; b < len(starts)-1; b++ {
		block := lines[starts[b]:starts[b+1]]
		r, ok := parseBlock(block)
		if !ok {
			continue
		}
		r.Variance = variance
		res = append(res, r)
	}
	if len(res) == 0 {
		return nil, &CalcError{Kind: NoConvergence, Msg: "no parsable solution block", Output: output}
	}
	return res, nil
}

// parseBlock reads one solution block. The first data line carries P then T;
// diagram coordinates are (X=T, Y=P).
func parseBlock(block []string) (Result, bool) {
	if len(block) < 2 {
		return Result{}, false
	}
	fields := strings.Fields(block[1])
	if len(fields) < 2 {
		return Result{}, false
	}
	p, errP := strconv.ParseFloat(fields[0], 64)
	t, errT := strconv.ParseFloat(fields[1], 64)
	if errP != nil || errT != nil {
		return Result{}, false
	}
	r := Result{
		Pos:   geom.Point{X: t, Y: p},
		Modes: map[phase.Phase]float64{},
		Comp:  map[phase.Phase]map[string]float64{},
	}

	var guessStart, guessEnd int
	for i, ln := range block {
		switch {
		case strings.HasPrefix(ln, "ptguess"):
			guessStart = i
		case strings.HasPrefix(ln, "xyzguess"):
			guessEnd = i + 1
			if m := xyzRe.FindStringSubmatch(ln); m != nil {
				v, _ := strconv.ParseFloat(m[3], 64)
				ph := phase.Phase(m[2])
				if r.Comp[ph] == nil {
					r.Comp[ph] = map[string]float64{}
				}
				r.Comp[ph][m[1]] = v
			}
		case strings.HasPrefix(ln, "rbi yes") && i > 0:
			names := strings.Fields(block[i-1])
			values := strings.Fields(ln)
			if len(names) < 2 || len(values) < 3 {
				continue
			}
			names = names[1:]   // drop leading label
			values = values[2:] // drop "rbi yes"
			for k := 0; k < len(names) && k < len(values); k++ {
				if v, err := strconv.ParseFloat(values[k], 64); err == nil {
					r.Modes[phase.Phase(names[k])] = v
				}
			}
		}
	}
	if m := gsysRe.FindStringSubmatch(strings.Join(block, "\n")); m != nil {
		r.G, _ = strconv.ParseFloat(m[1], 64)
	}
	if guessStart > 0 && guessEnd > guessStart {
		r.Guess = append([]string{}, block[guessStart:guessEnd]...)
	}
	return r, true
}

// parseDogmin reads the ranked assemblage list from a minimization run.
// Candidate lines have the form "phases...  G(sys) = value"; ranking is by
// increasing free energy regardless of output order.
func parseDogmin(output string) (Dogmin, error) {
	var dgm Dogmin
	for _, ln := range nonEmptyLines(output) {
		m := gsysRe.FindStringSubmatch(ln)
		if m == nil {
			continue
		}
		g, _ := strconv.ParseFloat(m[1], 64)
		names := strings.Fields(ln[:strings.Index(ln, m[0])])
		if len(names) == 0 {
			continue
		}
		dgm.Candidates = append(dgm.Candidates, DogminCandidate{
			Phases: phase.FromStrings(names...),
			G:      g,
		})
	}
	if len(dgm.Candidates) == 0 {
		return Dogmin{}, &CalcError{Kind: NoConvergence, Msg: "minimization produced no candidates", Output: output}
	}
	sortCandidates(dgm.Candidates)
	return dgm, nil
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, ln := range strings.Split(s, "\n") {
		if strings.TrimSpace(ln) != "" {
			out = append(out, ln)
		}
	}
	return out
}
