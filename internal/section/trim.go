package section

import (
	"fmt"

	"github.com/petrolab/psengine/internal/geom"
)

// Trim clips a line's polyline to the span between its connected endpoint
// positions and grafts those positions onto the ends, so the stored
// geometry runs exactly from begin to end. Endpoint references are swapped
// when they project in reverse order of the polyline. Manual lines keep
// their drawn geometry untouched apart from the grafted endpoints.
func (s *Section) Trim(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ul, ok := s.uni[id]
	if !ok {
		return fmt.Errorf("%w: univariant line #%d", ErrNotFound, id)
	}
	next := ul.clone()
	s.trimLocked(next)
	s.uni[id] = next
	return nil
}

// trimLocked mutates ul in place. Caller holds mu and must pass a line not
// yet handed out of the registry: accessors return stored pointers, so
// mutating one in place would race with readers outside the lock.
func (s *Section) trimLocked(ul *UniLine) {
	if len(ul.Points) == 0 {
		return
	}
	ratio := s.Ratio()
	scaled := make([]geom.Point, len(ul.Points))
	for i, p := range ul.Points {
		scaled[i] = geom.Point{X: p.X, Y: ratio * p.Y}
	}

	// Endpoint anchor positions: the referenced invariant points when
	// connected and solved, else the polyline's own ends.
	p1 := scaled[0]
	if ip := s.inv[ul.Begin]; ip != nil && ip.Pos != nil {
		p1 = geom.Point{X: ip.Pos.X, Y: ratio * ip.Pos.Y}
	}
	p2 := scaled[len(scaled)-1]
	if ip := s.inv[ul.End]; ip != nil && ip.Pos != nil {
		p2 = geom.Point{X: ip.Pos.X, Y: ratio * ip.Pos.Y}
	}

	if !ul.Manual() {
		d1 := geom.Project(scaled, p1)
		d2 := geom.Project(scaled, p2)
		if d1 > d2 {
			d1, d2 = d2, d1
			ul.Begin, ul.End = ul.End, ul.Begin
		}
		var kept []geom.Point
		var walked float64
		for i, p := range ul.Points {
			if i > 0 {
				walked += scaled[i-1].Dist(scaled[i])
			}
			if walked >= d1 && walked <= d2 {
				kept = append(kept, p)
			}
		}
		if len(kept) > 0 {
			ul.Points = kept
		}
	}

	// Graft solved endpoint positions onto the ends. Skipped when already
	// grafted, so repeated trims are stable.
	const eps = 1e-9
	if ip := s.inv[ul.Begin]; ip != nil && ip.Pos != nil {
		if len(ul.Points) == 0 || ul.Points[0].Dist(*ip.Pos) > eps {
			ul.Points = append([]geom.Point{*ip.Pos}, ul.Points...)
		}
	}
	if ip := s.inv[ul.End]; ip != nil && ip.Pos != nil {
		if len(ul.Points) == 0 || ul.Points[len(ul.Points)-1].Dist(*ip.Pos) > eps {
			ul.Points = append(ul.Points, *ip.Pos)
		}
	}
}
