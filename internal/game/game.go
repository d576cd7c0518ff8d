package game

import (
	"encoding/json"
	rand "math/rand/v2"

	"github.com/balootlabs/balootd/internal/deck"
	"github.com/balootlabs/balootd/internal/score"
)

// Game is the root aggregate and the unit of serialization. One Game
// per room; all mutation happens under the room lock in the server.
type Game struct {
	RoomID string            `json:"roomId"`
	Seats  [NumSeats]*Player `json:"seats"`

	Phase           Phase `json:"phase"`
	CurrentTurnSeat int   `json:"currentTurnSeat"` // -1 when no seat is active
	DealerSeat      int   `json:"dealerSeat"`

	// TurnSeq increments every time the turn marker moves, so turn
	// deadline timers can tell whether the seat already acted.
	TurnSeq uint64 `json:"turnSeq"`

	Round *Round `json:"round,omitempty"`
	Match Match  `json:"match"`

	Settings Settings `json:"settings"`

	// TrickTransitioning blocks play actions during the short window
	// between the fourth card and the table being cleared.
	TrickTransitioning bool `json:"trickTransitioning"`

	// Epoch increments whenever the referenced round ends. Scheduled
	// callbacks capture it and no-op on mismatch, which keeps stale
	// timers from mutating a newer round.
	Epoch uint64 `json:"epoch"`
}

// New creates an empty game for a freshly created room.
func New(roomID string) *Game {
	return &Game{
		RoomID:          roomID,
		Phase:           PhaseWaiting,
		CurrentTurnSeat: -1,
		DealerSeat:      0,
		Settings:        DefaultSettings(),
	}
}

// SeatedCount returns the number of occupied seats.
func (g *Game) SeatedCount() int {
	n := 0
	for _, p := range g.Seats {
		if p != nil {
			n++
		}
	}
	return n
}

// FindSeat returns the seat index of the named player, or -1.
func (g *Game) FindSeat(name string) int {
	for i, p := range g.Seats {
		if p != nil && p.Name == name {
			return i
		}
	}
	return -1
}

// AddPlayer seats a player (or bot) at the first free seat. When the
// fourth seat fills, the game deals and enters bidding.
func (g *Game) AddPlayer(name string, isBot bool, difficulty string, rng *rand.Rand) (int, error) {
	if g.Phase != PhaseWaiting {
		return -1, ErrWrongPhase
	}
	if g.FindSeat(name) >= 0 {
		return -1, ErrSeatTaken
	}
	for i := range g.Seats {
		if g.Seats[i] != nil {
			continue
		}
		g.Seats[i] = &Player{
			Name:          name,
			IsBot:         isBot,
			BotDifficulty: difficulty,
			Connected:     true,
		}
		if g.SeatedCount() == NumSeats {
			g.startRound(rng)
		}
		return i, nil
	}
	return -1, ErrRoomFull
}

// startRound deals a fresh round and opens the auction. The dealer
// keeps their seat; rotation is the caller's concern (round flow and
// Gash rotate, Kawesh does not).
func (g *Game) startRound(rng *rand.Rand) {
	g.Round = newRound(g.DealerSeat, rng)
	for seat := 0; seat < NumSeats; seat++ {
		g.Seats[seat].Hand = g.Round.dealt[seat]
		g.Round.dealt[seat] = nil
		g.Seats[seat].IsDealer = seat == g.DealerSeat
		g.Seats[seat].LastAction = ""
		deck.SortForDisplay(g.Seats[seat].Hand, deck.ModeSun, deck.Spades)
	}
	g.Phase = PhaseBidding
	g.TrickTransitioning = false
	g.setTurn(g.Round.Bidding.Speaker)
}

// setTurn moves the single active-turn marker.
func (g *Game) setTurn(seat int) {
	g.CurrentTurnSeat = seat
	g.TurnSeq++
	for i, p := range g.Seats {
		if p != nil {
			p.IsActiveTurn = i == seat
		}
	}
}

// clearTurn removes the active-turn marker for transition windows.
func (g *Game) clearTurn() {
	g.setTurn(-1)
}

// Mode returns the round's contract mode, ModeNone before settle.
func (g *Game) Mode() deck.Mode {
	if g.Round == nil {
		return deck.ModeNone
	}
	return g.Round.Bid.Type
}

// CardCensus returns every card currently accounted for: all hands,
// the on-table trick, the trick history, the floor card while undealt,
// and the undealt rest. Tests assert this always equals the canonical
// 32-card deck.
func (g *Game) CardCensus() []deck.Card {
	var out []deck.Card
	for _, p := range g.Seats {
		if p != nil {
			out = append(out, p.Hand...)
		}
	}
	if g.Round != nil {
		for _, pc := range g.Round.CurrentTrick {
			out = append(out, pc.Card)
		}
		for _, t := range g.Round.TrickHistory {
			for _, pc := range t.Cards {
				out = append(out, pc.Card)
			}
		}
		if g.Round.FloorCard != nil {
			out = append(out, *g.Round.FloorCard)
		}
		out = append(out, g.Round.Rest...)
	}
	return out
}

// Encode serializes the game. Decode(Encode(g)) preserves all
// observable state.
func (g *Game) Encode() ([]byte, error) {
	return json.Marshal(g)
}

// Decode reconstructs a game from its serialized form, including all
// sub-engine state.
func Decode(data []byte) (*Game, error) {
	var g Game
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// teamScore adds game points to the match tally.
func (g *Game) addMatchScore(team score.Team, gp int) {
	if team == score.TeamUs {
		g.Match.UsScore += gp
	} else {
		g.Match.ThemScore += gp
	}
}
