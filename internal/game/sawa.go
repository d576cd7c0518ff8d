package game

import (
	"github.com/balootlabs/balootd/internal/deck"
	"github.com/balootlabs/balootd/internal/score"
)

// SawaState is an open claim that the remaining tricks are already
// decided. The other three seats must answer inside the response
// window; silence counts as acceptance when the window closes.
type SawaState struct {
	Pending   bool           `json:"pending"`
	Claimer   int            `json:"claimer"`
	Responded [NumSeats]bool `json:"responded"`
	Seq       uint64         `json:"seq"` // bumps on open/close, stales old timers

	Rejected        bool `json:"rejected"`
	RejectedAtTrick int  `json:"rejectedAtTrick"`
}

func newSawaState() SawaState {
	return SawaState{}
}

// HandleSawaClaim opens the claim window. The caller schedules the
// timeout against the returned sequence.
func (g *Game) HandleSawaClaim(seat int) (uint64, error) {
	r := g.Round
	if g.Phase != PhasePlaying || r == nil || !r.Bidding.Settled || g.TrickTransitioning {
		return 0, ErrWrongPhase
	}
	s := &r.Sawa
	if s.Pending || s.Rejected {
		return 0, ErrIllegalMove
	}
	s.Pending = true
	s.Claimer = seat
	s.Responded = [NumSeats]bool{}
	s.Responded[seat] = true
	s.Seq++
	g.Seats[seat].LastAction = "sawa"
	return s.Seq, nil
}

// HandleSawaResponse records one seat's answer. Any rejection closes
// the window and play continues; the third acceptance settles the
// round in the claimer's favor.
func (g *Game) HandleSawaResponse(seat int, accept bool) error {
	r := g.Round
	if r == nil || !r.Sawa.Pending {
		return ErrWrongPhase
	}
	s := &r.Sawa
	if seat == s.Claimer || s.Responded[seat] {
		return ErrIllegalMove
	}
	s.Responded[seat] = true
	if !accept {
		s.Pending = false
		s.Rejected = true
		s.RejectedAtTrick = len(r.TrickHistory)
		s.Seq++
		return nil
	}
	for i := range s.Responded {
		if !s.Responded[i] {
			return nil
		}
	}
	g.acceptSawa()
	return nil
}

// SawaTimeout closes an expired window as a unanimous acceptance. A
// stale sequence means the claim already resolved.
func (g *Game) SawaTimeout(seq uint64) {
	r := g.Round
	if r == nil || !r.Sawa.Pending || r.Sawa.Seq != seq {
		return
	}
	g.acceptSawa()
}

// acceptSawa ends the round with every card still in hand counted for
// the claimer's team, last-trick bonus included.
func (g *Game) acceptSawa() {
	r := g.Round
	s := &r.Sawa
	s.Pending = false
	s.Seq++

	team := teamOf(s.Claimer)
	remaining := score.LastTrickBonus
	for _, pc := range r.CurrentTrick {
		remaining += deck.Points(pc.Card, r.Bid.Type, r.Bid.Trump())
	}
	for _, p := range g.Seats {
		for _, c := range p.Hand {
			remaining += deck.Points(c, r.Bid.Type, r.Bid.Trump())
		}
	}
	if team == score.TeamUs {
		r.UsCardPoints += remaining
	} else {
		r.ThemCardPoints += remaining
	}
	g.resolveProjects()
	g.scoreRound()
}

// sawaRejectionBonus pays the claimer's team when a rejected claim
// proves out: they took every trick from the rejection to the end.
func (g *Game) sawaRejectionBonus() {
	r := g.Round
	s := &r.Sawa
	if !s.Rejected {
		return
	}
	team := teamOf(s.Claimer)
	for _, t := range r.TrickHistory[s.RejectedAtTrick:] {
		if teamOf(t.Winner) != team {
			return
		}
	}
	r.addBonusGP(team, score.PenaltyRejectedSawaGP)
}
