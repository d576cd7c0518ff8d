// Package rules holds the pure Baloot game rules: play legality, trick
// resolution, card points and project (declaration) detection. Nothing
// here mutates state or panics; illegal inputs yield false or empty
// results so callers can translate them into wire errors.
package rules

import (
	"github.com/balootlabs/balootd/internal/deck"
)

// PlayedCard is one entry of the on-table trick.
type PlayedCard struct {
	Card deck.Card `json:"card"`
	Seat int       `json:"playedBy"`
}

// ProjectKind enumerates the declarable card combinations.
type ProjectKind int

const (
	ProjectSira        ProjectKind = iota // three-card sequence
	ProjectFifty                          // four-card sequence
	ProjectHundred                        // five-card sequence or four of a kind
	ProjectFourHundred                    // four aces in sun
)

// String returns the string representation of a project kind
func (k ProjectKind) String() string {
	switch k {
	case ProjectSira:
		return "sira"
	case ProjectFifty:
		return "fifty"
	case ProjectHundred:
		return "hundred"
	case ProjectFourHundred:
		return "four_hundred"
	default:
		return "?"
	}
}

// Value returns the Abnat value of the project kind.
func (k ProjectKind) Value() int {
	switch k {
	case ProjectSira:
		return 20
	case ProjectFifty:
		return 50
	case ProjectHundred:
		return 100
	case ProjectFourHundred:
		return 400
	default:
		return 0
	}
}

// Project is a detected declaration in a single hand.
type Project struct {
	Kind  ProjectKind `json:"kind"`
	Cards []deck.Card `json:"cards"`
}

// TopRank returns the order value of the strongest card in the project,
// used for tie-breaking equal project kinds. Sequences compare by their
// highest rank in natural order; four-of-a-kind compares by the rank of
// the set.
func (p Project) TopRank() int {
	top := -1
	for _, c := range p.Cards {
		if int(c.Rank) > top {
			top = int(c.Rank)
		}
	}
	return top
}

// CardPoints returns the Abnat value of a single card under the given
// mode and trump suit.
func CardPoints(c deck.Card, mode deck.Mode, trump deck.Suit) int {
	return deck.Points(c, mode, trump)
}
