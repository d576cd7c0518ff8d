package bot

import (
	"context"

	"github.com/balootlabs/balootd/internal/deck"
	"github.com/balootlabs/balootd/internal/game"
	"github.com/balootlabs/balootd/internal/score"
)

// KhalidBot is the table's loudmouth: the hard strategy plus doubling,
// akka claims and a line of dialogue for the big moments.
type KhalidBot struct {
	HardBot
}

var khalidLines = map[string][2]string{
	"double": {"دبل! يلا نشوف", "confident"},
	"akka":   {"أكة عندي", "smug"},
	"sawa":   {"سوا سوا، خلصنا", "calm"},
	"bid":    {"حكم! ورّوني أوراقكم", "excited"},
}

func (b *KhalidBot) Decide(ctx context.Context, g *game.Game, seat int) (Decision, error) {
	r := g.Round

	// Double a contract the opponents bought with a strong hand.
	if g.Phase == game.PhasePlaying && r != nil && r.Bidding.Settled &&
		len(r.CurrentTrick) == 0 && len(r.TrickHistory) == 0 &&
		r.DoublingLevel == game.DoublingNone &&
		r.Bid.BidderTeam() != score.TeamOfSeat(seat) &&
		handStrength(g.Seats[seat].Hand, r.Bid.Type, r.Bid.Trump()) >= 40 {
		line := khalidLines["double"]
		return Decision{
			Action:  game.Action{Type: game.ActionDouble},
			Say:     line[0],
			Emotion: line[1],
		}, nil
	}

	// Claim akka on a master trump the moment it is provable.
	if g.Phase == game.PhasePlaying && r != nil && r.Bid.Type == deck.ModeHokum &&
		g.CurrentTurnSeat == seat && !g.TrickTransitioning &&
		!r.Akka.Used[seat] && len(r.TrickHistory) >= 2 {
		trump := r.Bid.Trump()
		for _, c := range g.Seats[seat].Hand {
			if c.Suit == trump && b.isMaster(g, seat, c) {
				s := trump
				line := khalidLines["akka"]
				return Decision{
					Action:  game.Action{Type: game.ActionAkka, Suit: &s},
					Say:     line[0],
					Emotion: line[1],
				}, nil
			}
		}
	}

	d, err := b.HardBot.Decide(ctx, g, seat)
	if err != nil {
		return d, err
	}
	switch d.Action.Type {
	case game.ActionSawaClaim:
		line := khalidLines["sawa"]
		d.Say, d.Emotion = line[0], line[1]
	case game.ActionBid:
		if d.Action.BidAction != game.BidPass {
			line := khalidLines["bid"]
			d.Say, d.Emotion = line[0], line[1]
		}
	}
	return d, nil
}
