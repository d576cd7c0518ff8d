// Package game implements the deterministic Baloot state machine: the
// Game aggregate, the bidding auction, trick play, the declaration
// sub-engines and round scoring. The package never does I/O; callers
// own persistence, timers and broadcast. Sub-engines are plain state
// structs serialized inside the Game, and every mutation takes the
// Game explicitly so the aggregate stays a single serializable tree.
package game

import (
	"github.com/balootlabs/balootd/internal/deck"
	"github.com/balootlabs/balootd/internal/rules"
	"github.com/balootlabs/balootd/internal/score"
)

// Phase is the coordinator's top-level state.
type Phase string

const (
	PhaseWaiting    Phase = "waiting"
	PhaseBidding    Phase = "bidding"
	PhasePlaying    Phase = "playing"
	PhaseRoundOver  Phase = "round_over"
	PhaseGameOver   Phase = "game_over"
	PhaseQaydActive Phase = "qayd_active"
)

// NumSeats is fixed for Baloot: two teams of two.
const NumSeats = 4

// TricksPerRound is the number of tricks in a full round.
const TricksPerRound = 8

// positionNames are the clockwise labels from the canonical viewpoint.
var positionNames = [NumSeats]string{"Bottom", "Right", "Top", "Left"}

// PositionName returns the label of an absolute seat index.
func PositionName(seat int) string {
	if seat < 0 || seat >= NumSeats {
		return "?"
	}
	return positionNames[seat]
}

// PartnerOf returns the teammate's seat.
func PartnerOf(seat int) int {
	return (seat + 2) % NumSeats
}

// NextSeat returns the seat after the given one in play order.
func NextSeat(seat int) int {
	return (seat + 1) % NumSeats
}

// teamOf is shorthand for the seat→team mapping.
func teamOf(seat int) score.Team {
	return score.TeamOfSeat(seat)
}

// Player is one seat at the table.
type Player struct {
	Name          string      `json:"name"`
	IsBot         bool        `json:"isBot"`
	BotDifficulty string      `json:"botDifficulty,omitempty"`
	Hand          []deck.Card `json:"hand"`
	IsActiveTurn  bool        `json:"isActiveTurn"`
	IsDealer      bool        `json:"isDealer"`
	LastAction    string      `json:"lastAction,omitempty"`
	Connected     bool        `json:"connected"`
}

// HasCard reports whether the player's hand holds the card.
func (p *Player) HasCard(c deck.Card) bool {
	for _, h := range p.Hand {
		if h == c {
			return true
		}
	}
	return false
}

// removeCard takes the card out of the hand. Hand ownership is
// exclusive: this is the only mutation that removes a card, and it is
// reached solely through a rules-validated play.
func (p *Player) removeCard(c deck.Card) bool {
	for i, h := range p.Hand {
		if h == c {
			p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
			return true
		}
	}
	return false
}

// Doubling levels. Levels escalate monotonically within a round and
// reset to 1 when a new round is dealt.
const (
	DoublingNone    = 1
	DoublingDobl    = 2
	DoublingKhamsin = 3
	DoublingRabaa   = 4
	DoublingGahwa   = 5
)

// Bid is the settled outcome of the auction. Immutable once set apart
// from the monotonically escalating doubling level.
type Bid struct {
	Type      deck.Mode  `json:"type"`
	TrumpSuit *deck.Suit `json:"trumpSuit,omitempty"`
	Bidder    *int       `json:"bidder,omitempty"`
}

// BidderTeam returns the bidding team, defaulting to TeamUs when the
// auction has not settled (callers guard on Phase before relying on it).
func (b Bid) BidderTeam() score.Team {
	if b.Bidder == nil {
		return score.TeamUs
	}
	return score.TeamOfSeat(*b.Bidder)
}

// Trump returns the trump suit or Spades as a harmless placeholder for
// sun rounds where no code path reads it.
func (b Bid) Trump() deck.Suit {
	if b.TrumpSuit == nil {
		return deck.Spades
	}
	return *b.TrumpSuit
}

// Trick is one completed trick.
type Trick struct {
	Cards  []rules.PlayedCard `json:"cards"`
	Winner int                `json:"winner"`
	Points int                `json:"points"`
}

// Settings is the typed per-room configuration surface.
type Settings struct {
	TurnDuration  int    `json:"turnDuration"` // seconds, 1..120
	StrictMode    bool   `json:"strictMode"`
	BotDifficulty string `json:"botDifficulty"`
	SoundEnabled  bool   `json:"soundEnabled"`
	ShowHints     bool   `json:"showHints"`
	IsDebug       bool   `json:"isDebug"`
}

// BotDifficulties are the recognized difficulty tags.
var BotDifficulties = map[string]bool{
	"easy":   true,
	"medium": true,
	"hard":   true,
	"khalid": true,
}

// DefaultSettings returns the settings a fresh room starts with.
func DefaultSettings() Settings {
	return Settings{
		TurnDuration:  30,
		BotDifficulty: "medium",
		SoundEnabled:  true,
		ShowHints:     true,
	}
}

// Validate checks the settings envelope.
func (s Settings) Validate() error {
	if s.TurnDuration < 1 || s.TurnDuration > 120 {
		return ErrInvalidPayload
	}
	if s.BotDifficulty != "" && !BotDifficulties[s.BotDifficulty] {
		return ErrInvalidPayload
	}
	return nil
}

// RoundRecord is the archived outcome of a completed round.
type RoundRecord struct {
	Mode          deck.Mode    `json:"mode"`
	TrumpSuit     *deck.Suit   `json:"trumpSuit,omitempty"`
	Bidder        *int         `json:"bidder,omitempty"`
	DoublingLevel int          `json:"doublingLevel"`
	Result        score.Result `json:"result"`
	Tricks        []Trick      `json:"tricks"`
}

// Match tracks completed rounds and the running score.
type Match struct {
	Rounds    []RoundRecord `json:"rounds"`
	UsScore   int           `json:"usScore"`
	ThemScore int           `json:"themScore"`
}

// Winner returns the winning team once a team has reached the match
// target.
func (m Match) Winner() (score.Team, bool) {
	switch {
	case m.UsScore >= score.MatchTarget && m.UsScore >= m.ThemScore:
		return score.TeamUs, true
	case m.ThemScore >= score.MatchTarget:
		return score.TeamThem, true
	}
	return 0, false
}
