package bot

import (
	"context"
	rand "math/rand/v2"

	"github.com/rs/zerolog"

	"github.com/balootlabs/balootd/internal/deck"
	"github.com/balootlabs/balootd/internal/game"
)

// HardBot layers card counting on top of the medium heuristics: it
// tracks which cards are gone, leads masters, and claims sawa when its
// remaining cards are all masters.
type HardBot struct {
	rng    *rand.Rand
	logger zerolog.Logger
}

func (b *HardBot) Decide(_ context.Context, g *game.Game, seat int) (Decision, error) {
	switch {
	case g.Phase == game.PhaseBidding && g.CurrentTurnSeat == seat:
		m := MediumBot{rng: b.rng, logger: b.logger}
		return Decision{Action: m.bid(g, seat)}, nil

	case sawaAwaits(g, seat):
		// Reject unless every outstanding card the bot could still take
		// a trick with is spoken for.
		accept := !b.canStillWinTrick(g, seat)
		return Decision{Action: game.Action{Type: game.ActionSawaResponse, Accept: accept}}, nil

	case g.Phase == game.PhasePlaying && g.CurrentTurnSeat == seat && !g.TrickTransitioning:
		return b.play(g, seat)

	case g.Phase == game.PhaseRoundOver:
		return Decision{Action: game.Action{Type: game.ActionNextRound}}, nil
	}
	return Decision{}, ErrNoAction
}

func (b *HardBot) play(g *game.Game, seat int) (Decision, error) {
	idxs := legalIndexes(g, seat)
	if len(idxs) == 0 {
		return Decision{}, ErrNoAction
	}
	r := g.Round
	if !r.Projects.Resolved && len(r.Projects.Candidates[seat]) > 0 && len(r.TrickHistory) == 0 {
		return Decision{Action: game.Action{Type: game.ActionDeclareProject, ProjectRef: 0}}, nil
	}
	if len(r.CurrentTrick) == 0 && !r.Sawa.Pending && !r.Sawa.Rejected && b.allMasters(g, seat) && len(g.Seats[seat].Hand) > 1 {
		return Decision{Action: game.Action{Type: game.ActionSawaClaim}}, nil
	}

	if len(r.CurrentTrick) == 0 {
		if i := b.masterLead(g, seat, idxs); i >= 0 {
			return Decision{Action: game.Action{Type: game.ActionPlay, CardIndex: i}}, nil
		}
		return Decision{Action: game.Action{Type: game.ActionPlay, CardIndex: cheapestDiscard(g, seat, idxs)}}, nil
	}
	if partnerHoldsTrick(g, seat) {
		return Decision{Action: game.Action{Type: game.ActionPlay, CardIndex: cheapestDiscard(g, seat, idxs)}}, nil
	}
	if win := cheapestWinner(g, seat, idxs); win >= 0 {
		return Decision{Action: game.Action{Type: game.ActionPlay, CardIndex: win}}, nil
	}
	return Decision{Action: game.Action{Type: game.ActionPlay, CardIndex: cheapestDiscard(g, seat, idxs)}}, nil
}

// outstanding returns the cards not yet seen from this seat's point of
// view: everything minus the play record and the bot's own hand.
func (b *HardBot) outstanding(g *game.Game, seat int) []deck.Card {
	seen := make(map[deck.Card]bool, 32)
	for _, pc := range g.Round.PlayedRecord() {
		seen[pc.Card] = true
	}
	for _, c := range g.Seats[seat].Hand {
		seen[c] = true
	}
	var out []deck.Card
	for _, c := range deck.New() {
		if !seen[c] {
			out = append(out, c)
		}
	}
	return out
}

// isMaster reports whether the card beats every outstanding card of
// its suit.
func (b *HardBot) isMaster(g *game.Game, seat int, c deck.Card) bool {
	r := g.Round
	isTrump := r.Bid.TrumpSuit != nil && c.Suit == r.Bid.Trump()
	v := deck.OrderValue(c, r.Bid.Type, isTrump)
	for _, o := range b.outstanding(g, seat) {
		if o.Suit != c.Suit {
			continue
		}
		if deck.OrderValue(o, r.Bid.Type, isTrump) > v {
			return false
		}
	}
	return true
}

func (b *HardBot) allMasters(g *game.Game, seat int) bool {
	for _, c := range g.Seats[seat].Hand {
		if !b.isMaster(g, seat, c) {
			return false
		}
	}
	// In hokum an off-suit master can still be trumped.
	if g.Round.Bid.Type == deck.ModeHokum {
		trump := g.Round.Bid.Trump()
		for _, o := range b.outstanding(g, seat) {
			if o.Suit == trump {
				return false
			}
		}
	}
	return true
}

// masterLead finds a master among the leadable cards.
func (b *HardBot) masterLead(g *game.Game, seat int, idxs []int) int {
	h := g.Seats[seat].Hand
	for _, i := range idxs {
		if b.isMaster(g, seat, h[i]) {
			return i
		}
	}
	return -1
}

// canStillWinTrick reports whether any held card is a master, which is
// reason enough to reject a sawa claim.
func (b *HardBot) canStillWinTrick(g *game.Game, seat int) bool {
	for _, c := range g.Seats[seat].Hand {
		if b.isMaster(g, seat, c) {
			return true
		}
	}
	return false
}
