package phase

// Polymorph pairs share a bulk composition, so a reaction written with one
// member of a pair is topologically the same curve as the reaction with the
// zero set switched to the other member. Key identity checks must consider
// these switched forms or re-inserts of the same physical reaction would be
// accepted as new curves.
var polymorphPairs = []Assemblage{
	New("sill", "and"),
	New("ky", "and"),
	New("sill", "ky"),
	New("q", "coe"),
	New("diam", "gph"),
}

// Polymorphs returns the polymorph pairs fully contained in phases.
func Polymorphs(phases Assemblage) []Assemblage {
	var found []Assemblage
	for _, pair := range polymorphPairs {
		if phases.ContainsAll(pair) {
			found = append(found, pair)
		}
	}
	return found
}

// EquivalentOuts returns all out-sets identifying the same curve or point as
// (phases, out): the given out plus, for each polymorph pair present in
// phases, the form with the pair members switched. For a one-phase out whose
// member belongs to a contained pair this yields the opposite member; for a
// two-phase out it yields the out with the pair's contribution swapped.
func EquivalentOuts(phases, out Assemblage) []Assemblage {
	outs := []Assemblage{out}
	for _, pair := range Polymorphs(phases) {
		if out.Len() == 1 {
			switched := pair.Diff(out)
			if switched.Len() == 1 && !switched.Equal(out) {
				outs = append(outs, switched)
			}
			continue
		}
		if out.Disjoint(pair) {
			continue
		}
		switched := out.Diff(pair).Union(pair.Diff(out))
		if !switched.Empty() && !switched.Equal(out) {
			outs = append(outs, switched)
		}
	}
	return outs
}
