package game

import (
	"github.com/balootlabs/balootd/internal/deck"
	"github.com/balootlabs/balootd/internal/rules"
	"github.com/balootlabs/balootd/internal/score"
)

// ProjectState tracks declarable melds for the round. Candidates are
// detected when the full hands settle; a seat turns a candidate into a
// declaration during the first trick, and conflicts resolve when that
// trick completes.
type ProjectState struct {
	Candidates [NumSeats][]rules.Project `json:"candidates"`
	Declared   [NumSeats][]rules.Project `json:"declared"`
	Kept       [NumSeats][]rules.Project `json:"kept"`
	Resolved   bool                      `json:"resolved"`
}

func newProjectState() ProjectState {
	return ProjectState{}
}

func detectSeatProjects(hand []deck.Card, mode deck.Mode) []rules.Project {
	return rules.DetectProjects(hand, mode)
}

// HandleDeclareProject declares the ref'th candidate of the seat.
// Declarations close when the first trick completes.
func (g *Game) HandleDeclareProject(seat, ref int) error {
	if g.Phase != PhasePlaying || g.Round == nil {
		return ErrWrongPhase
	}
	ps := &g.Round.Projects
	if ps.Resolved || len(g.Round.TrickHistory) > 0 {
		return ErrWrongPhase
	}
	if ref < 0 || ref >= len(ps.Candidates[seat]) {
		return ErrInvalidPayload
	}
	p := ps.Candidates[seat][ref]
	ps.Candidates[seat] = append(ps.Candidates[seat][:ref], ps.Candidates[seat][ref+1:]...)
	ps.Declared[seat] = append(ps.Declared[seat], p)
	g.Seats[seat].LastAction = "project"
	return nil
}

// resolveProjects runs the cross-team suppression once the first trick
// is in. Undeclared candidates are forfeit.
func (g *Game) resolveProjects() {
	ps := &g.Round.Projects
	if ps.Resolved {
		return
	}
	declared := make(map[int][]rules.Project, NumSeats)
	for seat := 0; seat < NumSeats; seat++ {
		if len(ps.Declared[seat]) > 0 {
			declared[seat] = ps.Declared[seat]
		}
		ps.Candidates[seat] = nil
	}
	kept := rules.ResolveProjectConflicts(declared, g.Mode())
	for seat, list := range kept {
		ps.Kept[seat] = list
	}
	ps.Resolved = true
}

// projectAbnat sums the surviving projects' raw value for one team.
func (ps *ProjectState) projectAbnat(team score.Team) int {
	total := 0
	for seat := 0; seat < NumSeats; seat++ {
		if teamOf(seat) != team {
			continue
		}
		for _, p := range ps.Kept[seat] {
			total += p.Kind.Value()
		}
	}
	return total
}

// hundredAbsorbsBaloot reports whether the seat keeps a 100-project
// holding both the trump King and Queen, which swallows the baloot
// declaration.
func (ps *ProjectState) hundredAbsorbsBaloot(seat int, trump deck.Suit) bool {
	list := ps.Kept[seat]
	if !ps.Resolved {
		list = ps.Declared[seat]
	}
	for _, p := range list {
		if p.Kind != rules.ProjectHundred {
			continue
		}
		var k, q bool
		for _, c := range p.Cards {
			if c.Suit != trump {
				continue
			}
			switch c.Rank {
			case deck.King:
				k = true
			case deck.Queen:
				q = true
			}
		}
		if k && q {
			return true
		}
	}
	return false
}
