package engine

import "sort"

// SidePot is one pot layer. Layers are built from the distinct contribution
// levels of the hand, ascending: the main pot is index 0, each all-in below
// the top level caps a layer, and only seats contributing through a layer are
// eligible for it. Folded contributions feed the layers but never the
// eligibility set.
type SidePot struct {
	Index    int      `json:"index"`
	Amount   int64    `json:"amount"`
	Eligible []string `json:"eligible"` // seat ids, in ring order
	Floor    int64    `json:"floor"`    // contribution range covered by this layer
	Ceiling  int64    `json:"ceiling"`
}

// ComputePots slices the hand's total contributions into pot layers.
// Contributions must be fully merged (CurrentBet already folded into
// Contributed), which holds once the final street closes.
func ComputePots(seats []*Seat) []SidePot {
	levelSet := make(map[int64]bool)
	for _, s := range seats {
		if s.Contributed > 0 && s.Status.InHand() {
			levelSet[s.Contributed] = true
		}
	}
	if len(levelSet) == 0 {
		return nil
	}
	levels := make([]int64, 0, len(levelSet))
	for l := range levelSet {
		levels = append(levels, l)
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	var pots []SidePot
	var floor int64
	for li, ceiling := range levels {
		pot := SidePot{Index: len(pots), Floor: floor, Ceiling: ceiling}
		top := li == len(levels)-1
		for _, s := range seats {
			if s.Contributed > floor {
				// The top layer absorbs any folded overage above the highest
				// live contribution, so the pot sum always matches the chips
				// put in.
				upto := min64(s.Contributed, ceiling)
				if top {
					upto = s.Contributed
				}
				pot.Amount += upto - floor
			}
			if s.Status.InHand() && s.Contributed >= ceiling {
				pot.Eligible = append(pot.Eligible, s.ID)
			}
		}
		if pot.Amount > 0 {
			pots = append(pots, pot)
		}
		floor = ceiling
	}
	return pots
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
