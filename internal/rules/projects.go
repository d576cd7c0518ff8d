package rules

import (
	"sort"

	"github.com/balootlabs/balootd/internal/deck"
)

// sequenceOrder is the natural rank order used for project sequences,
// independent of the trick orderings: 7 8 9 10 J Q K A.
var sequenceOrder = []deck.Rank{
	deck.Seven, deck.Eight, deck.Nine, deck.Ten,
	deck.Jack, deck.Queen, deck.King, deck.Ace,
}

// DetectProjects finds every declarable combination in a hand. Four
// aces count as 400 in Sun only; sevens and eights never form a
// four-of-a-kind project. Longer sequences absorb the shorter ones they
// contain, so a five-card run yields one hundred, not a hundred plus a
// fifty plus a sira.
func DetectProjects(hand []deck.Card, mode deck.Mode) []Project {
	var projects []Project

	// Four of a kind.
	byRank := make(map[deck.Rank][]deck.Card)
	for _, c := range hand {
		byRank[c.Rank] = append(byRank[c.Rank], c)
	}
	fourOfAKindRanks := make(map[deck.Rank]bool)
	for rank, cards := range byRank {
		if len(cards) != 4 || rank == deck.Seven || rank == deck.Eight {
			continue
		}
		kind := ProjectHundred
		if rank == deck.Ace && mode == deck.ModeSun {
			kind = ProjectFourHundred
		}
		fourOfAKindRanks[rank] = true
		projects = append(projects, Project{Kind: kind, Cards: sortedCopy(cards)})
	}

	// Sequences per suit, longest first so contained runs are absorbed.
	bySuit := make(map[deck.Suit][]deck.Card)
	for _, c := range hand {
		bySuit[c.Suit] = append(bySuit[c.Suit], c)
	}
	for _, suit := range deck.Suits {
		cards := bySuit[suit]
		if len(cards) < 3 {
			continue
		}
		present := make(map[deck.Rank]deck.Card, len(cards))
		for _, c := range cards {
			present[c.Rank] = c
		}

		i := 0
		for i < len(sequenceOrder) {
			run := collectRun(present, i)
			if len(run) < 3 {
				i++
				continue
			}
			i += len(run)
			if len(run) > 5 {
				run = run[len(run)-5:] // keep the strongest five
			}
			var kind ProjectKind
			switch {
			case len(run) >= 5:
				kind = ProjectHundred
			case len(run) == 4:
				kind = ProjectFifty
			default:
				kind = ProjectSira
			}
			projects = append(projects, Project{Kind: kind, Cards: run})
		}
	}

	sort.SliceStable(projects, func(i, j int) bool {
		if projects[i].Kind != projects[j].Kind {
			return projects[i].Kind > projects[j].Kind
		}
		return projects[i].TopRank() > projects[j].TopRank()
	})
	return projects
}

// collectRun gathers the consecutive run of present ranks starting at
// sequenceOrder[start].
func collectRun(present map[deck.Rank]deck.Card, start int) []deck.Card {
	var run []deck.Card
	for i := start; i < len(sequenceOrder); i++ {
		c, ok := present[sequenceOrder[i]]
		if !ok {
			break
		}
		run = append(run, c)
	}
	return run
}

// ResolveProjectConflicts applies the hierarchical suppression between
// the two teams: only the team holding the strongest project scores any
// projects this round. Strength compares kind first, then the highest
// rank within the project. An exact tie suppresses neither side.
//
// declarations maps seat (0..3) to that seat's detected projects; the
// returned map has losing seats mapped to empty lists.
func ResolveProjectConflicts(declarations map[int][]Project, mode deck.Mode) map[int][]Project {
	best := func(seats []int) (ProjectKind, int, bool) {
		var kind ProjectKind
		top := -1
		found := false
		for _, seat := range seats {
			for _, p := range declarations[seat] {
				if !found || p.Kind > kind || (p.Kind == kind && p.TopRank() > top) {
					kind, top, found = p.Kind, p.TopRank(), true
				}
			}
		}
		return kind, top, found
	}

	usKind, usTop, usHas := best([]int{0, 2})
	themKind, themTop, themHas := best([]int{1, 3})

	result := make(map[int][]Project, 4)
	for seat := 0; seat < 4; seat++ {
		result[seat] = declarations[seat]
	}
	if !usHas || !themHas {
		return result
	}

	suppress := func(seats []int) {
		for _, seat := range seats {
			result[seat] = nil
		}
	}
	switch {
	case usKind > themKind || (usKind == themKind && usTop > themTop):
		suppress([]int{1, 3})
	case themKind > usKind || (themKind == usKind && themTop > usTop):
		suppress([]int{0, 2})
	}
	return result
}

// ProjectPoints sums the Abnat of a seat's surviving projects.
func ProjectPoints(projects []Project) int {
	total := 0
	for _, p := range projects {
		total += p.Kind.Value()
	}
	return total
}

func sortedCopy(cards []deck.Card) []deck.Card {
	out := make([]deck.Card, len(cards))
	copy(out, cards)
	sort.Slice(out, func(i, j int) bool { return out[i].Suit < out[j].Suit })
	return out
}
