package deck

import (
	"encoding/json"
	"fmt"
)

// Suit represents a card suit
type Suit int

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

// Suits lists all four suits in canonical order.
var Suits = []Suit{Spades, Hearts, Diamonds, Clubs}

// String returns the string representation of a suit
func (s Suit) String() string {
	switch s {
	case Spades:
		return "♠"
	case Hearts:
		return "♥"
	case Diamonds:
		return "♦"
	case Clubs:
		return "♣"
	default:
		return "?"
	}
}

// ParseSuit converts a wire suit symbol back to a Suit.
func ParseSuit(s string) (Suit, error) {
	switch s {
	case "♠":
		return Spades, nil
	case "♥":
		return Hearts, nil
	case "♦":
		return Diamonds, nil
	case "♣":
		return Clubs, nil
	default:
		return 0, fmt.Errorf("unknown suit %q", s)
	}
}

// IsRed returns true if the suit is red (Hearts or Diamonds)
func (s Suit) IsRed() bool {
	return s == Hearts || s == Diamonds
}

// MarshalJSON encodes the suit as its symbol.
func (s Suit) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a suit symbol.
func (s *Suit) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	suit, err := ParseSuit(str)
	if err != nil {
		return err
	}
	*s = suit
	return nil
}

// Rank represents a card rank. Baloot uses the 32-card deck: seven
// through ace in each suit.
type Rank int

const (
	Seven Rank = iota + 7
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

// Ranks lists all eight ranks in natural order.
var Ranks = []Rank{Seven, Eight, Nine, Ten, Jack, Queen, King, Ace}

// String returns the string representation of a rank
func (r Rank) String() string {
	switch r {
	case Seven:
		return "7"
	case Eight:
		return "8"
	case Nine:
		return "9"
	case Ten:
		return "10"
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	case Ace:
		return "A"
	default:
		return "?"
	}
}

// ParseRank converts a wire rank string back to a Rank.
func ParseRank(s string) (Rank, error) {
	switch s {
	case "7":
		return Seven, nil
	case "8":
		return Eight, nil
	case "9":
		return Nine, nil
	case "10":
		return Ten, nil
	case "J":
		return Jack, nil
	case "Q":
		return Queen, nil
	case "K":
		return King, nil
	case "A":
		return Ace, nil
	default:
		return 0, fmt.Errorf("unknown rank %q", s)
	}
}

// MarshalJSON encodes the rank as its display string.
func (r Rank) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON decodes a rank display string.
func (r *Rank) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	rank, err := ParseRank(str)
	if err != nil {
		return err
	}
	*r = rank
	return nil
}

// Card represents a playing card. Cards are immutable values.
type Card struct {
	Rank Rank `json:"rank"`
	Suit Suit `json:"suit"`
}

// NewCard creates a new card
func NewCard(rank Rank, suit Suit) Card {
	return Card{Rank: rank, Suit: suit}
}

// String returns the string representation of a card (e.g., "A♠")
func (c Card) String() string {
	return fmt.Sprintf("%s%s", c.Rank, c.Suit)
}

// ParseCard parses a card from its string form, e.g. "10♥".
func ParseCard(s string) (Card, error) {
	if len(s) < 4 { // shortest is "7" + 3-byte suit rune
		return Card{}, fmt.Errorf("malformed card %q", s)
	}
	suitStr := s[len(s)-3:] // suit symbols are 3-byte UTF-8 runes
	rankStr := s[:len(s)-3]
	rank, err := ParseRank(rankStr)
	if err != nil {
		return Card{}, err
	}
	suit, err := ParseSuit(suitStr)
	if err != nil {
		return Card{}, err
	}
	return Card{Rank: rank, Suit: suit}, nil
}

// IsRed returns true if the card is red
func (c Card) IsRed() bool {
	return c.Suit.IsRed()
}
