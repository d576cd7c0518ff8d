package bot

import (
	"context"
	rand "math/rand/v2"

	"github.com/rs/zerolog"

	"github.com/balootlabs/balootd/internal/game"
)

// EasyBot plays uniformly random legal moves and never bids unless
// forced.
type EasyBot struct {
	rng    *rand.Rand
	logger zerolog.Logger
}

func (b *EasyBot) Decide(_ context.Context, g *game.Game, seat int) (Decision, error) {
	switch {
	case g.Phase == game.PhaseBidding && g.CurrentTurnSeat == seat:
		act := game.Action{Type: game.ActionBid, BidAction: game.BidPass}
		if mustBid(g, seat) {
			act.BidAction = game.BidSun
		}
		return Decision{Action: act}, nil

	case sawaAwaits(g, seat):
		return Decision{Action: game.Action{Type: game.ActionSawaResponse, Accept: true}}, nil

	case g.Phase == game.PhasePlaying && g.CurrentTurnSeat == seat && !g.TrickTransitioning:
		idxs := legalIndexes(g, seat)
		if len(idxs) == 0 {
			return Decision{}, ErrNoAction
		}
		pick := idxs[b.rng.IntN(len(idxs))]
		return Decision{Action: game.Action{Type: game.ActionPlay, CardIndex: pick}}, nil

	case g.Phase == game.PhaseRoundOver:
		return Decision{Action: game.Action{Type: game.ActionNextRound}}, nil
	}
	return Decision{}, ErrNoAction
}
