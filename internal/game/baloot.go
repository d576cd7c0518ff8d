package game

import (
	"github.com/balootlabs/balootd/internal/deck"
	"github.com/balootlabs/balootd/internal/score"
)

// BalootState tracks the two-step K+Q-of-trump declaration. The server
// announces on the player's behalf: playing the trump King while still
// holding the Queen opens the declaration, playing the Queen completes
// it.
type BalootState struct {
	Phase1Seat *int `json:"phase1Seat,omitempty"`
	UsBaloot   bool `json:"usBaloot"`
	ThemBaloot bool `json:"themBaloot"`
}

func newBalootState() BalootState {
	return BalootState{}
}

// noteCardPlayed advances the declaration on the relevant trump plays.
// It returns the announcement to broadcast, if any.
func (g *Game) noteBalootPlay(seat int, c deck.Card) string {
	r := g.Round
	if r.Bid.Type != deck.ModeHokum || c.Suit != r.Bid.Trump() {
		return ""
	}
	b := &r.Baloot
	switch c.Rank {
	case deck.King:
		if !g.Seats[seat].HasCard(deck.NewCard(deck.Queen, c.Suit)) {
			return ""
		}
		if r.Projects.hundredAbsorbsBaloot(seat, c.Suit) {
			return ""
		}
		b.Phase1Seat = &seat
		return "baloot"
	case deck.Queen:
		if b.Phase1Seat == nil || *b.Phase1Seat != seat {
			return ""
		}
		b.Phase1Seat = nil
		if teamOf(seat) == score.TeamUs {
			b.UsBaloot = true
		} else {
			b.ThemBaloot = true
		}
		return "re-baloot"
	}
	return ""
}
