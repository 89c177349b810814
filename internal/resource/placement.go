package resource

// preference lists tiers from most constrained to most capable. The first
// eligible candidate in this order wins.
var preference = []Tier{ConstrainedMobileAlt, ConstrainedLocal, Server, Cloud}

// capability ranks tiers for the fallback when nothing qualifies.
var capability = [numTiers]int{
	Cloud:                4,
	Server:               3,
	ConstrainedLocal:     2,
	ConstrainedMobileAlt: 1,
}

// Placement is the outcome of Advise.
type Placement struct {
	Tier      Tier         `json:"tier"`
	Qualified bool         `json:"qualified"`
	Estimate  WorkEstimate `json:"estimate"`
}

// Recommend picks the cheapest candidate tier that can run the work.
// An empty candidate list means every tier.
//
// When no candidate qualifies it still returns a tier: the most capable
// candidate. That placement overruns the tier's declared constraints and
// must be treated as a soft hint. Use Advise to tell the two cases apart.
func Recommend(size SizeClass, complexity ComplexityClass, candidates []Tier) Tier {
	return Advise(size, complexity, candidates).Tier
}

// Advise is Recommend plus a Qualified flag that is false when the
// returned tier was chosen by the capability fallback.
func Advise(size SizeClass, complexity ComplexityClass, candidates []Tier) Placement {
	if len(candidates) == 0 {
		candidates = AllTiers()
	}

	present := [numTiers]bool{}
	for _, t := range candidates {
		if t.Valid() {
			present[t] = true
		}
	}

	for _, t := range preference {
		if present[t] && CanRun(size, complexity, t) {
			return Placement{Tier: t, Qualified: true, Estimate: Estimate(size, complexity, t)}
		}
	}

	best := Tier(-1)
	for _, t := range candidates {
		if !t.Valid() {
			continue
		}
		if best < 0 || capability[t] > capability[best] {
			best = t
		}
	}
	if best < 0 {
		best = Cloud
	}
	return Placement{Tier: best, Qualified: false, Estimate: Estimate(size, complexity, best)}
}
