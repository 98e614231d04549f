package section

import (
	"fmt"
	"sort"

	"github.com/petrolab/psengine/internal/phase"
)

// FindInv looks up an invariant point by topological key. Polymorph pairs
// contained in phases make switched out-sets equivalent, so lookup tries
// every equivalent form.
func (s *Section) FindInv(phases, out phase.Assemblage) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findInvLocked(phases, out)
}

func (s *Section) findInvLocked(phases, out phase.Assemblage) (int, bool) {
	outs := phase.EquivalentOuts(phases, out)
	best := 0
	for id, ip := range s.inv {
		if !ip.Phases.Equal(phases) {
			continue
		}
		for _, o := range outs {
			if ip.Out.Equal(o) && (best == 0 || id < best) {
				best = id
			}
		}
	}
	return best, best != 0
}

// FindUni looks up a univariant line by topological key, honoring
// polymorph-equivalent out phases.
func (s *Section) FindUni(phases phase.Assemblage, out phase.Phase) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findUniLocked(phases, out)
}

func (s *Section) findUniLocked(phases phase.Assemblage, out phase.Phase) (int, bool) {
	outs := phase.EquivalentOuts(phases, phase.New(out))
	best := 0
	for id, ul := range s.uni {
		if !ul.Phases.Equal(phases) {
			continue
		}
		for _, o := range outs {
			if o.Len() == 1 && o.Has(ul.Out) && (best == 0 || id < best) {
				best = id
			}
		}
	}
	return best, best != 0
}

// InsertInv adds a new invariant point to the registry. A point with an
// equivalent key already present fails with ErrDuplicateKey; recalculating
// an existing point goes through UpdateInv instead.
func (s *Section) InsertInv(ip *InvPoint) (int, error) {
	if err := ip.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.findInvLocked(ip.Phases, ip.Out); ok {
		return 0, fmt.Errorf("%w: invariant point %q exists as #%d",
			ErrDuplicateKey, ip.Label(s.Excess), id)
	}
	if ip.ID == 0 {
		ip.ID = s.nextInvID()
	} else if _, taken := s.inv[ip.ID]; taken {
		return 0, fmt.Errorf("%w: invariant point id %d in use", ErrDuplicateKey, ip.ID)
	}
	s.inv[ip.ID] = ip
	return ip.ID, nil
}

// UpdateInv replaces the data of an existing invariant point, keeping its
// identity, and re-trims every line connected to it. Used when a point is
// re-solved at a better position.
func (s *Section) UpdateInv(ip *InvPoint) error {
	if err := ip.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.findInvLocked(ip.Phases, ip.Out)
	if !ok {
		return fmt.Errorf("%w: invariant point %q", ErrNotFound, ip.Label(s.Excess))
	}
	ip.ID = id
	s.inv[id] = ip
	for lid, ul := range s.uni {
		if ul.Begin == id || ul.End == id {
			next := ul.clone()
			s.trimLocked(next)
			s.uni[lid] = next
		}
	}
	return nil
}

// InsertUni adds a new univariant line. If an equivalent key is already
// present and the incoming polyline strictly extends the existing partial
// one, the two are merged under the existing identity; any other duplicate
// fails with ErrDuplicateKey. Endpoint references must resolve or the
// insert fails with ErrDanglingReference; nothing is mutated on failure.
func (s *Section) InsertUni(ul *UniLine) (int, error) {
	if err := ul.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkEndpointsLocked(ul); err != nil {
		return 0, err
	}
	if id, ok := s.findUniLocked(ul.Phases, ul.Out); ok {
		existing := s.uni[id]
		merged, ok := strictExtension(existing.Points, ul.Points, s.MergeTol)
		if !ok {
			return 0, fmt.Errorf("%w: univariant line %q exists as #%d",
				ErrDuplicateKey, ul.Label(s.Excess), id)
		}
		next := existing.clone()
		next.Points = merged
		next.Results = mergeResults(existing.Results, ul.Results, s.MergeTol)
		s.uni[id] = next
		return id, nil
	}
	if ul.ID == 0 {
		ul.ID = s.nextUniID()
	} else if _, taken := s.uni[ul.ID]; taken {
		return 0, fmt.Errorf("%w: univariant line id %d in use", ErrDuplicateKey, ul.ID)
	}
	s.uni[ul.ID] = ul
	return ul.ID, nil
}

// UpdateUni replaces the polyline data of an existing line, keeping its
// identity and endpoint references, and re-trims it.
func (s *Section) UpdateUni(ul *UniLine) error {
	if err := ul.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.findUniLocked(ul.Phases, ul.Out)
	if !ok {
		return fmt.Errorf("%w: univariant line %q", ErrNotFound, ul.Label(s.Excess))
	}
	prev := s.uni[id]
	ul.ID = id
	ul.Begin, ul.End = prev.Begin, prev.End
	s.uni[id] = ul
	s.trimLocked(ul)
	return nil
}

// checkEndpointsLocked verifies a line's endpoint references resolve.
func (s *Section) checkEndpointsLocked(ul *UniLine) error {
	for _, ref := range [2]int{ul.Begin, ul.End} {
		if ref == None {
			continue
		}
		if _, ok := s.inv[ref]; !ok {
			return fmt.Errorf("%w: line %q references invariant point #%d",
				ErrDanglingReference, ul.Label(s.Excess), ref)
		}
	}
	return nil
}

// Connect assigns a line's endpoint references. Either reference may be
// None to leave an end open. Fails with ErrDanglingReference when a
// referenced point is not registered; the line is untouched on failure.
func (s *Section) Connect(lineID, begin, end int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ul, ok := s.uni[lineID]
	if !ok {
		return fmt.Errorf("%w: univariant line #%d", ErrNotFound, lineID)
	}
	probe := ul.clone()
	probe.Begin, probe.End = begin, end
	if err := s.checkEndpointsLocked(probe); err != nil {
		return err
	}
	s.trimLocked(probe)
	s.uni[lineID] = probe
	return nil
}

// RemoveInv deletes an invariant point and detaches the endpoint
// references of every line pointing at it. The lines themselves are kept.
func (s *Section) RemoveInv(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inv[id]; !ok {
		return fmt.Errorf("%w: invariant point #%d", ErrNotFound, id)
	}
	delete(s.inv, id)
	for lid, ul := range s.uni {
		if ul.Begin != id && ul.End != id {
			continue
		}
		next := ul.clone()
		if next.Begin == id {
			next.Begin = None
		}
		if next.End == id {
			next.End = None
		}
		s.uni[lid] = next
	}
	return nil
}

// RemoveUni deletes a univariant line.
func (s *Section) RemoveUni(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.uni[id]; !ok {
		return fmt.Errorf("%w: univariant line #%d", ErrNotFound, id)
	}
	delete(s.uni, id)
	return nil
}

// Neighbors returns the ids of lines whose begin or end references the
// given invariant point, in ascending order.
func (s *Section) Neighbors(invID int) []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []int
	for id, ul := range s.uni {
		if ul.Begin == invID || ul.End == invID {
			out = append(out, id)
		}
	}
	sort.Ints(out)
	return out
}
