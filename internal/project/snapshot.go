// Package project persists section topologies: ordered snapshot records,
// TOML project files, a SQLite store of named saves, and a file watcher
// signalling external modification of a project file.
package project

import (
	"fmt"

	"github.com/petrolab/psengine/internal/geom"
	"github.com/petrolab/psengine/internal/phase"
	"github.com/petrolab/psengine/internal/section"
)

// FormatVersion is written into every snapshot. Readers reject snapshots
// from a newer format.
const FormatVersion = 1

// Snapshot is the persisted form of one section's topology: the phase
// universe, the axes, and the ordered point and line records.
type Snapshot struct {
	Version  int           `toml:"version"`
	XVar     string        `toml:"x_var"`
	YVar     string        `toml:"y_var"`
	Range    [4]float64    `toml:"range"` // x0 y0 x1 y1
	Universe []string      `toml:"universe"`
	Excess   []string      `toml:"excess,omitempty"`
	MergeTol float64       `toml:"merge_tol"`
	Points   []PointRecord `toml:"points,omitempty"`
	Lines    []LineRecord  `toml:"lines,omitempty"`
}

// PointRecord is one invariant point in persisted form.
type PointRecord struct {
	ID     int       `toml:"id"`
	Phases []string  `toml:"phases"`
	Out    []string  `toml:"out"`
	Pos    []float64 `toml:"pos,omitempty"` // [x y] when solved
	Origin string    `toml:"origin"`
}

// LineRecord is one univariant line in persisted form. X and Y hold the
// polyline samples in order.
type LineRecord struct {
	ID     int       `toml:"id"`
	Phases []string  `toml:"phases"`
	Out    string    `toml:"out"`
	Begin  int       `toml:"begin"`
	End    int       `toml:"end"`
	X      []float64 `toml:"x,omitempty"`
	Y      []float64 `toml:"y,omitempty"`
	Origin string    `toml:"origin"`
}

// Export captures the section's registry as an ordered snapshot.
func Export(s *section.Section) *Snapshot {
	snap := &Snapshot{
		Version:  FormatVersion,
		XVar:     s.XVar,
		YVar:     s.YVar,
		Range:    [4]float64{s.Range.X0, s.Range.Y0, s.Range.X1, s.Range.Y1},
		Universe: s.Universe.Strings(),
		Excess:   s.Excess.Strings(),
		MergeTol: s.MergeTol,
	}
	for _, ip := range s.InvPoints() {
		rec := PointRecord{
			ID:     ip.ID,
			Phases: ip.Phases.Strings(),
			Out:    ip.Out.Strings(),
			Origin: ip.Origin.String(),
		}
		if ip.Pos != nil {
			rec.Pos = []float64{ip.Pos.X, ip.Pos.Y}
		}
		snap.Points = append(snap.Points, rec)
	}
	for _, ul := range s.UniLines() {
		rec := LineRecord{
			ID:     ul.ID,
			Phases: ul.Phases.Strings(),
			Out:    string(ul.Out),
			Begin:  ul.Begin,
			End:    ul.End,
			Origin: ul.Origin.String(),
		}
		for _, p := range ul.Points {
			rec.X = append(rec.X, p.X)
			rec.Y = append(rec.Y, p.Y)
		}
		snap.Lines = append(snap.Lines, rec)
	}
	return snap
}

// Import rebuilds a Section from a snapshot, re-validating every
// uniqueness invariant. Key conflicts are collected across the whole
// snapshot and returned together as a DuplicateKeyError; a record
// referencing a missing invariant point fails with ErrDanglingReference.
func Import(snap *Snapshot) (*section.Section, error) {
	if snap.Version > FormatVersion {
		return nil, fmt.Errorf("project: snapshot format %d is newer than supported %d", snap.Version, FormatVersion)
	}
	s := section.NewPT(
		[2]float64{snap.Range[0], snap.Range[2]},
		[2]float64{snap.Range[1], snap.Range[3]},
	)
	if snap.XVar != "" {
		s.XVar = snap.XVar
	}
	if snap.YVar != "" {
		s.YVar = snap.YVar
	}
	s.Universe = phase.FromStrings(snap.Universe...)
	s.Excess = phase.FromStrings(snap.Excess...)
	if snap.MergeTol > 0 {
		s.MergeTol = snap.MergeTol
	}

	var conflicts []section.Conflict
	for _, rec := range snap.Points {
		ip := rec.entity()
		if id, ok := s.FindInv(ip.Phases, ip.Out); ok {
			conflicts = append(conflicts, section.Conflict{Key: ip.Key(), FirstID: id, SecondID: rec.ID})
			continue
		}
		if _, err := s.InsertInv(ip); err != nil {
			return nil, fmt.Errorf("project: import point #%d: %w", rec.ID, err)
		}
	}
	for _, rec := range snap.Lines {
		ul := rec.entity()
		if id, ok := s.FindUni(ul.Phases, ul.Out); ok {
			conflicts = append(conflicts, section.Conflict{Key: ul.Key(), FirstID: id, SecondID: rec.ID})
			continue
		}
		if _, err := s.InsertUni(ul); err != nil {
			return nil, fmt.Errorf("project: import line #%d: %w", rec.ID, err)
		}
	}
	if len(conflicts) > 0 {
		return nil, &section.DuplicateKeyError{Conflicts: conflicts}
	}
	return s, nil
}

func (rec PointRecord) entity() *section.InvPoint {
	ip := &section.InvPoint{
		ID:     rec.ID,
		Phases: phase.FromStrings(rec.Phases...),
		Out:    phase.FromStrings(rec.Out...),
		Origin: parseOrigin(rec.Origin),
	}
	if len(rec.Pos) == 2 {
		ip.Pos = &geom.Point{X: rec.Pos[0], Y: rec.Pos[1]}
	}
	return ip
}

func (rec LineRecord) entity() *section.UniLine {
	ul := &section.UniLine{
		ID:     rec.ID,
		Phases: phase.FromStrings(rec.Phases...),
		Out:    phase.Phase(rec.Out),
		Begin:  rec.Begin,
		End:    rec.End,
		Origin: parseOrigin(rec.Origin),
	}
	for i := 0; i < len(rec.X) && i < len(rec.Y); i++ {
		ul.Points = append(ul.Points, geom.Point{X: rec.X[i], Y: rec.Y[i]})
	}
	return ul
}

func parseOrigin(s string) section.Origin {
	switch s {
	case "manual":
		return section.Manual
	case "unverified":
		return section.Unverified
	default:
		return section.Calculated
	}
}
