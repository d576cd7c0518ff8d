package game

import (
	"github.com/balootlabs/balootd/internal/deck"
	"github.com/balootlabs/balootd/internal/score"
)

// AkkaState records which seats have spent their once-per-round master
// claim.
type AkkaState struct {
	Used [NumSeats]bool `json:"used"`
}

func newAkkaState() AkkaState {
	return AkkaState{}
}

// HandleAkka verifies a Hokum-only claim that the seat holds the
// highest card of the suit still in play. A true claim awards the
// claimer's team; a false one awards the opponents. Either way the
// seat's claim for this round is spent.
func (g *Game) HandleAkka(seat int, suit deck.Suit) error {
	r := g.Round
	if g.Phase != PhasePlaying || r == nil || !r.Bidding.Settled {
		return ErrWrongPhase
	}
	if r.Bid.Type != deck.ModeHokum {
		return ErrIllegalMove
	}
	if r.Akka.Used[seat] {
		return ErrIllegalMove
	}
	r.Akka.Used[seat] = true

	team := teamOf(seat)
	if g.holdsMaster(seat, suit) {
		r.addBonusGP(team, score.AwardValidAkkaGP)
		g.Seats[seat].LastAction = "akka"
	} else {
		r.addBonusGP(team.Opponent(), score.PenaltyInvalidAkkaGP)
		g.Seats[seat].LastAction = "akka_invalid"
	}
	return nil
}

// holdsMaster reports whether the seat holds the top unplayed card of
// the suit, ranked by the round's order for that suit.
func (g *Game) holdsMaster(seat int, suit deck.Suit) bool {
	r := g.Round
	played := make(map[deck.Card]bool)
	for _, pc := range r.playedCards() {
		played[pc.Card] = true
	}
	isTrump := suit == r.Bid.Trump() && r.Bid.TrumpSuit != nil

	var best *deck.Card
	bestVal := -1
	for _, c := range deck.New() {
		if c.Suit != suit || played[c] {
			continue
		}
		if v := deck.OrderValue(c, r.Bid.Type, isTrump); v > bestVal {
			cc := c
			best, bestVal = &cc, v
		}
	}
	return best != nil && g.Seats[seat].HasCard(*best)
}
