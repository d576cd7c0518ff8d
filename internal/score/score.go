// Package score converts round-end Abnat into game points. The whole
// engine is a single pure pipeline so it can be property-tested in
// isolation: Kaboot short-circuit, card conversion, Khasara transfer,
// doubling, then the Baloot bonus which is immune to everything else.
package score

import (
	"github.com/balootlabs/balootd/internal/deck"
)

// Team identifies one of the two partnerships.
type Team int

const (
	TeamUs   Team = iota // seats 0 and 2
	TeamThem             // seats 1 and 3
)

// Opponent returns the other team.
func (t Team) Opponent() Team {
	if t == TeamUs {
		return TeamThem
	}
	return TeamUs
}

// String returns the string representation of a team
func (t Team) String() string {
	if t == TeamUs {
		return "us"
	}
	return "them"
}

// TeamOfSeat maps an absolute seat to its team.
func TeamOfSeat(seat int) Team {
	if seat%2 == 0 {
		return TeamUs
	}
	return TeamThem
}

const (
	// MatchTarget is the game-point total that ends a match.
	MatchTarget = 152

	// LastTrickBonus is added to the raw cards of whichever team takes
	// trick eight.
	LastTrickBonus = 10

	kabootSunGP   = 44
	kabootHokumGP = 25

	sunPoolGP   = 26
	hokumPoolGP = 16
)

// Input carries everything the round-end pipeline needs. Card points
// already include the last-trick bonus.
type Input struct {
	Mode          deck.Mode
	DoublingLevel int
	BidderTeam    Team
	// DoublerTeam is the team that last raised the doubling level; only
	// consulted on a game-point tie in a doubled round.
	DoublerTeam Team

	UsCards      int
	ThemCards    int
	UsProjects   int
	ThemProjects int

	UsBaloot   bool
	ThemBaloot bool
}

// Result is the outcome of one scored round.
type Result struct {
	UsGP    int  `json:"usGP"`
	ThemGP  int  `json:"themGP"`
	Kaboot  bool `json:"kaboot"`
	Khasara bool `json:"khasara"`
}

// CalculateRound runs the full round-end pipeline in its fixed order.
func CalculateRound(in Input) Result {
	usRaw := in.UsCards + in.UsProjects
	themRaw := in.ThemCards + in.ThemProjects

	var res Result
	switch {
	case in.ThemCards == 0 && usRaw > 0:
		res = Result{UsGP: kabootBase(in.Mode) + projectGP(in.UsProjects, in.Mode), Kaboot: true}
	case in.UsCards == 0 && themRaw > 0:
		res = Result{ThemGP: kabootBase(in.Mode) + projectGP(in.ThemProjects, in.Mode), Kaboot: true}
	default:
		usGP, themGP := convertCards(in.UsCards, in.ThemCards, in.Mode)
		usGP += projectGP(in.UsProjects, in.Mode)
		themGP += projectGP(in.ThemProjects, in.Mode)
		res = applyKhasara(in, usGP, themGP, usRaw, themRaw)
	}

	if in.DoublingLevel > 1 {
		res = applyDoubling(in, res)
	}

	// Baloot is flat and never multiplied.
	if in.UsBaloot {
		res.UsGP += 2
	}
	if in.ThemBaloot {
		res.ThemGP += 2
	}
	return res
}

func kabootBase(mode deck.Mode) int {
	if mode == deck.ModeSun {
		return kabootSunGP
	}
	return kabootHokumGP
}

// projectGP converts project Abnat exactly: project values divide
// evenly by the mode divisor (20/50/100/400 over 5, or over 10 in
// hokum).
func projectGP(abnat int, mode deck.Mode) int {
	if mode == deck.ModeSun {
		return abnat / 5
	}
	return abnat / 10
}

// convertCards turns raw card Abnat into game points.
//
// Sun uses floor-to-even per team: gp = abnat/5, plus one when the
// quotient is odd and a remainder exists. Hokum is pair-based over a
// 16-point pool: gp = abnat/10 rounded up past 5, then the pair is
// reconciled to 16 by adjusting the team with the larger abnat mod 10
// (ties go against the larger raw total).
func convertCards(us, them int, mode deck.Mode) (int, int) {
	if mode == deck.ModeSun {
		return sunGP(us), sunGP(them)
	}

	usGP := hokumGP(us)
	themGP := hokumGP(them)
	if diff := hokumPoolGP - (usGP + themGP); diff != 0 {
		adjustUs := us%10 > them%10 || (us%10 == them%10 && us >= them)
		if adjustUs {
			usGP += diff
		} else {
			themGP += diff
		}
	}
	return usGP, themGP
}

func sunGP(abnat int) int {
	q, r := abnat/5, abnat%5
	if q%2 == 1 && r > 0 {
		return q + 1
	}
	return q
}

func hokumGP(abnat int) int {
	q, r := abnat/10, abnat%10
	if r > 5 {
		return q + 1
	}
	return q
}

// applyKhasara transfers the bidder's points to the opponents when the
// bidder scored less. A game-point tie compares raw Abnat; strictly
// fewer raw means khasara, equal raw lets the split stand. Doubled-tie
// handling lives in applyDoubling.
func applyKhasara(in Input, usGP, themGP, usRaw, themRaw int) Result {
	res := Result{UsGP: usGP, ThemGP: themGP}

	bidderGP, oppGP := usGP, themGP
	bidderRaw, oppRaw := usRaw, themRaw
	if in.BidderTeam == TeamThem {
		bidderGP, oppGP = themGP, usGP
		bidderRaw, oppRaw = themRaw, usRaw
	}

	lost := bidderGP < oppGP
	if bidderGP == oppGP && in.DoublingLevel <= 1 {
		lost = bidderRaw < oppRaw
	}
	if !lost {
		return res
	}

	res.Khasara = true
	total := usGP + themGP
	if in.BidderTeam == TeamUs {
		res.UsGP, res.ThemGP = 0, total
	} else {
		res.UsGP, res.ThemGP = total, 0
	}
	return res
}

// applyDoubling gives the whole round to the winning team multiplied by
// the doubling level. On a game-point tie the team that doubled loses.
func applyDoubling(in Input, res Result) Result {
	total := (res.UsGP + res.ThemGP) * in.DoublingLevel

	var usWins bool
	switch {
	case res.UsGP > res.ThemGP:
		usWins = true
	case res.UsGP < res.ThemGP:
		usWins = false
	default:
		usWins = in.DoublerTeam != TeamUs
	}

	if usWins {
		return Result{UsGP: total, Kaboot: res.Kaboot, Khasara: res.Khasara}
	}
	return Result{ThemGP: total, Kaboot: res.Kaboot, Khasara: res.Khasara}
}
