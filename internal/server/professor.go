package server

import (
	"github.com/balootlabs/balootd/internal/deck"
	"github.com/balootlabs/balootd/internal/game"
	"github.com/balootlabs/balootd/internal/rules"
)

// Suggestion is the professor's counter-proposal for a questionable
// play. State is never mutated when one is returned; the client may
// insist with skip_professor.
type Suggestion struct {
	CardIndex int       `json:"cardIndex"`
	Card      deck.Card `json:"card"`
	Reason    string    `json:"reason"`
}

// professorThreshold is the minimum points swinging on the trick
// before the professor interrupts.
const professorThreshold = 10

// professorSuggest compares the proposed play to the alternatives. It
// only speaks up when the chosen card loses a trick that another legal
// card would have taken, with real points on the table.
func professorSuggest(g *game.Game, seat, cardIndex int) *Suggestion {
	r := g.Round
	if r == nil || !r.Bidding.Settled || len(r.CurrentTrick) == 0 {
		return nil
	}
	h := g.Seats[seat].Hand
	if cardIndex < 0 || cardIndex >= len(h) {
		return nil
	}
	chosen := h[cardIndex]
	if !rules.IsLegalPlay(chosen, h, r.CurrentTrick, r.Bid.Type, r.Bid.Trump(), r.IsLocked) {
		return nil
	}
	if winsTrick(r, seat, chosen) {
		return nil
	}

	atStake := rules.TrickPoints(r.CurrentTrick, r.Bid.Type, r.Bid.Trump()) +
		deck.Points(chosen, r.Bid.Type, r.Bid.Trump())
	if atStake < professorThreshold {
		return nil
	}

	for i, c := range h {
		if i == cardIndex {
			continue
		}
		if !rules.IsLegalPlay(c, h, r.CurrentTrick, r.Bid.Type, r.Bid.Trump(), r.IsLocked) {
			continue
		}
		if winsTrick(r, seat, c) {
			return &Suggestion{
				CardIndex: i,
				Card:      c,
				Reason:    "this card takes the trick",
			}
		}
	}
	return nil
}

func winsTrick(r *game.Round, seat int, c deck.Card) bool {
	trial := append(append([]rules.PlayedCard(nil), r.CurrentTrick...), rules.PlayedCard{Card: c, Seat: seat})
	return rules.TrickWinner(trial, r.Bid.Type, r.Bid.Trump()) == seat
}
