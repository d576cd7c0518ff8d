// Package bot holds the seat-filling strategies. A Strategy only ever
// produces actions the game package will accept; the scheduler treats
// any error as "fall back to the safest legal action" so a bot bug can
// never wedge a room.
package bot

import (
	"context"
	"errors"
	rand "math/rand/v2"

	"github.com/rs/zerolog"

	"github.com/balootlabs/balootd/internal/deck"
	"github.com/balootlabs/balootd/internal/game"
	"github.com/balootlabs/balootd/internal/rules"
)

// Decision is a chosen action plus optional table talk.
type Decision struct {
	Action  game.Action
	Say     string
	Emotion string
}

// Strategy decides one turn for one seat.
type Strategy interface {
	Decide(ctx context.Context, g *game.Game, seat int) (Decision, error)
}

// ErrNoAction signals the seat has nothing to do right now.
var ErrNoAction = errors.New("no action for seat")

// ForDifficulty returns the strategy behind a difficulty tag. Unknown
// tags get the default table bot.
func ForDifficulty(difficulty string, rng *rand.Rand, logger zerolog.Logger) Strategy {
	l := logger.With().Str("component", "bot").Str("difficulty", difficulty).Logger()
	switch difficulty {
	case "easy":
		return &EasyBot{rng: rng, logger: l}
	case "hard":
		return &HardBot{rng: rng, logger: l}
	case "khalid":
		return &KhalidBot{HardBot: HardBot{rng: rng, logger: l}}
	default:
		return &MediumBot{rng: rng, logger: l}
	}
}

// Fallback is the safest action for the seat's situation: pass the
// bid, play the first legal card, accept a pending sawa. Used when a
// strategy errors out.
func Fallback(g *game.Game, seat int) (game.Action, bool) {
	switch {
	case g.Phase == game.PhaseBidding && g.CurrentTurnSeat == seat:
		act := game.Action{Type: game.ActionBid, BidAction: game.BidPass}
		if mustBid(g, seat) {
			act.BidAction = game.BidSun
		}
		return act, true
	case sawaAwaits(g, seat):
		return game.Action{Type: game.ActionSawaResponse, Accept: true}, true
	case g.Phase == game.PhasePlaying && g.CurrentTurnSeat == seat && !g.TrickTransitioning:
		if idxs := legalIndexes(g, seat); len(idxs) > 0 {
			return game.Action{Type: game.ActionPlay, CardIndex: idxs[0]}, true
		}
	case g.Phase == game.PhaseRoundOver:
		return game.Action{Type: game.ActionNextRound}, true
	}
	return game.Action{}, false
}

// mustBid reports the strict-mode corner where the dealer cannot pass.
func mustBid(g *game.Game, seat int) bool {
	if !g.Settings.StrictMode || g.Round == nil {
		return false
	}
	b := g.Round.Bidding
	return b.Stage == 2 && b.Passes == game.NumSeats-1 && seat == g.DealerSeat
}

func sawaAwaits(g *game.Game, seat int) bool {
	if g.Round == nil || !g.Round.Sawa.Pending {
		return false
	}
	return g.Round.Sawa.Claimer != seat && !g.Round.Sawa.Responded[seat]
}

// legalIndexes maps the seat's legal plays back to hand indexes.
func legalIndexes(g *game.Game, seat int) []int {
	r := g.Round
	h := g.Seats[seat].Hand
	legal := rules.LegalPlays(h, r.CurrentTrick, r.Bid.Type, r.Bid.Trump(), r.IsLocked)
	idxs := make([]int, 0, len(legal))
	for _, c := range legal {
		for i, hc := range h {
			if hc == c {
				idxs = append(idxs, i)
				break
			}
		}
	}
	return idxs
}

// suitCount tallies the hand by suit.
func suitCount(hand []deck.Card) map[deck.Suit]int {
	out := make(map[deck.Suit]int, 4)
	for _, c := range hand {
		out[c.Suit]++
	}
	return out
}

// handStrength is a rough bid signal: honor density weighted by the
// mode's point values.
func handStrength(hand []deck.Card, mode deck.Mode, trump deck.Suit) int {
	total := 0
	for _, c := range hand {
		total += deck.Points(c, mode, trump)
	}
	return total
}

// cheapestWinner returns the lowest-ordered legal index that would
// take the trick as it stands, or -1.
func cheapestWinner(g *game.Game, seat int, idxs []int) int {
	r := g.Round
	h := g.Seats[seat].Hand
	best, bestVal := -1, int(^uint(0)>>1)
	for _, i := range idxs {
		trial := append(append([]rules.PlayedCard(nil), r.CurrentTrick...), rules.PlayedCard{Card: h[i], Seat: seat})
		if rules.TrickWinner(trial, r.Bid.Type, r.Bid.Trump()) != seat {
			continue
		}
		v := deck.OrderValue(h[i], r.Bid.Type, h[i].Suit == r.Bid.Trump())
		if v < bestVal {
			best, bestVal = i, v
		}
	}
	return best
}

// cheapestDiscard returns the legal index shedding the fewest points.
func cheapestDiscard(g *game.Game, seat int, idxs []int) int {
	r := g.Round
	h := g.Seats[seat].Hand
	best, bestPts, bestVal := idxs[0], 1<<30, 1<<30
	for _, i := range idxs {
		pts := deck.Points(h[i], r.Bid.Type, r.Bid.Trump())
		v := deck.OrderValue(h[i], r.Bid.Type, h[i].Suit == r.Bid.Trump())
		if pts < bestPts || (pts == bestPts && v < bestVal) {
			best, bestPts, bestVal = i, pts, v
		}
	}
	return best
}

// partnerHoldsTrick reports whether the seat's partner currently wins
// the on-table trick.
func partnerHoldsTrick(g *game.Game, seat int) bool {
	r := g.Round
	if len(r.CurrentTrick) == 0 {
		return false
	}
	return rules.TrickWinner(r.CurrentTrick, r.Bid.Type, r.Bid.Trump()) == game.PartnerOf(seat)
}
