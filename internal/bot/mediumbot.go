package bot

import (
	"context"
	rand "math/rand/v2"

	"github.com/rs/zerolog"

	"github.com/balootlabs/balootd/internal/deck"
	"github.com/balootlabs/balootd/internal/game"
)

// MediumBot bids on honor density, wins tricks cheaply and sheds
// points when it cannot win. The default table bot.
type MediumBot struct {
	rng    *rand.Rand
	logger zerolog.Logger
}

func (b *MediumBot) Decide(_ context.Context, g *game.Game, seat int) (Decision, error) {
	switch {
	case g.Phase == game.PhaseBidding && g.CurrentTurnSeat == seat:
		return Decision{Action: b.bid(g, seat)}, nil

	case sawaAwaits(g, seat):
		// Accept only when the bot's own hand can no longer take a trick.
		accept := cheapestWinner(g, seat, legalIndexes(g, seat)) == -1
		return Decision{Action: game.Action{Type: game.ActionSawaResponse, Accept: accept}}, nil

	case g.Phase == game.PhasePlaying && g.CurrentTurnSeat == seat && !g.TrickTransitioning:
		return b.play(g, seat)

	case g.Phase == game.PhaseRoundOver:
		return Decision{Action: game.Action{Type: game.ActionNextRound}}, nil
	}
	return Decision{}, ErrNoAction
}

func (b *MediumBot) bid(g *game.Game, seat int) game.Action {
	r := g.Round
	h := g.Seats[seat].Hand
	pass := game.Action{Type: game.ActionBid, BidAction: game.BidPass}

	if r.Bidding.Stage == 1 {
		floor := r.FloorCard.Suit
		if suitCount(h)[floor] >= 3 && handStrength(h, deck.ModeHokum, floor) >= 20 {
			return game.Action{Type: game.ActionBid, BidAction: game.BidHokum}
		}
		if handStrength(h, deck.ModeSun, floor) >= 26 {
			return game.Action{Type: game.ActionBid, BidAction: game.BidSun}
		}
		if mustBid(g, seat) {
			return game.Action{Type: game.ActionBid, BidAction: game.BidSun}
		}
		return pass
	}

	// Stage two: best non-floor suit if it is long enough.
	var bestSuit deck.Suit
	bestLen := 0
	for s, n := range suitCount(h) {
		if s != r.FloorCard.Suit && n > bestLen {
			bestSuit, bestLen = s, n
		}
	}
	if bestLen >= 3 && handStrength(h, deck.ModeHokum, bestSuit) >= 24 {
		s := bestSuit
		return game.Action{Type: game.ActionBid, BidAction: game.BidHokum, Suit: &s}
	}
	if mustBid(g, seat) {
		return game.Action{Type: game.ActionBid, BidAction: game.BidSun}
	}
	return pass
}

func (b *MediumBot) play(g *game.Game, seat int) (Decision, error) {
	idxs := legalIndexes(g, seat)
	if len(idxs) == 0 {
		return Decision{}, ErrNoAction
	}
	// Declare everything before the first card leaves the hand.
	if !g.Round.Projects.Resolved && len(g.Round.Projects.Candidates[seat]) > 0 && len(g.Round.TrickHistory) == 0 {
		return Decision{Action: game.Action{Type: game.ActionDeclareProject, ProjectRef: 0}}, nil
	}

	if partnerHoldsTrick(g, seat) {
		return Decision{Action: game.Action{Type: game.ActionPlay, CardIndex: cheapestDiscard(g, seat, idxs)}}, nil
	}
	if win := cheapestWinner(g, seat, idxs); win >= 0 {
		return Decision{Action: game.Action{Type: game.ActionPlay, CardIndex: win}}, nil
	}
	return Decision{Action: game.Action{Type: game.ActionPlay, CardIndex: cheapestDiscard(g, seat, idxs)}}, nil
}
