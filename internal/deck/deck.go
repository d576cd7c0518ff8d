package deck

import (
	"math/rand/v2"
	"sort"
)

// Mode is the contract a round is played under.
type Mode int

const (
	ModeNone Mode = iota
	ModeSun
	ModeHokum
)

// String returns the string representation of a mode
func (m Mode) String() string {
	switch m {
	case ModeSun:
		return "sun"
	case ModeHokum:
		return "hokum"
	default:
		return "none"
	}
}

// sunOrder ranks cards in Sun mode and in non-trump Hokum suits:
// 7 < 8 < 9 < J < Q < K < 10 < A.
var sunOrder = map[Rank]int{
	Seven: 0,
	Eight: 1,
	Nine:  2,
	Jack:  3,
	Queen: 4,
	King:  5,
	Ten:   6,
	Ace:   7,
}

// trumpOrder ranks cards within the Hokum trump suit:
// 7 < 8 < Q < K < 10 < A < 9 < J.
var trumpOrder = map[Rank]int{
	Seven: 0,
	Eight: 1,
	Queen: 2,
	King:  3,
	Ten:   4,
	Ace:   5,
	Nine:  6,
	Jack:  7,
}

// sunPoints are the card point values in Sun mode.
var sunPoints = map[Rank]int{
	Seven: 0,
	Eight: 0,
	Nine:  0,
	Jack:  2,
	Queen: 3,
	King:  4,
	Ten:   10,
	Ace:   11,
}

// trumpPoints are the values of trump-suit cards in Hokum.
var trumpPoints = map[Rank]int{
	Seven: 0,
	Eight: 0,
	Queen: 3,
	King:  4,
	Ten:   10,
	Ace:   11,
	Nine:  14,
	Jack:  20,
}

// OrderValue returns the strength of a card for trick comparison. Higher
// wins. isTrump only matters in Hokum; non-trump suits keep the Sun
// ordering there.
func OrderValue(c Card, mode Mode, isTrump bool) int {
	if mode == ModeHokum && isTrump {
		return trumpOrder[c.Rank]
	}
	return sunOrder[c.Rank]
}

// Points returns the Abnat value of a single card.
func Points(c Card, mode Mode, trump Suit) int {
	if mode == ModeHokum && c.Suit == trump {
		return trumpPoints[c.Rank]
	}
	return sunPoints[c.Rank]
}

// New returns the canonical 32-card Baloot deck in a fixed order.
func New() []Card {
	cards := make([]Card, 0, 32)
	for _, suit := range Suits {
		for _, rank := range Ranks {
			cards = append(cards, Card{Rank: rank, Suit: suit})
		}
	}
	return cards
}

// Shuffle shuffles cards in place using the provided source.
func Shuffle(cards []Card, rng *rand.Rand) {
	rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}

// SortForDisplay orders a hand for presentation: suits grouped in
// canonical order, ranks descending by strength under the given mode.
func SortForDisplay(hand []Card, mode Mode, trump Suit) {
	sort.SliceStable(hand, func(i, j int) bool {
		a, b := hand[i], hand[j]
		if a.Suit != b.Suit {
			return a.Suit < b.Suit
		}
		av := OrderValue(a, mode, mode == ModeHokum && a.Suit == trump)
		bv := OrderValue(b, mode, mode == ModeHokum && b.Suit == trump)
		return av > bv
	})
}
