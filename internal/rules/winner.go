package rules

import (
	"github.com/balootlabs/balootd/internal/deck"
)

// TrickWinner returns the seat that takes the trick: the highest trump
// present in Hokum, otherwise the highest card of the led suit.
func TrickWinner(trick []PlayedCard, mode deck.Mode, trump deck.Suit) int {
	if len(trick) == 0 {
		return -1
	}
	return trick[winningIndex(trick, mode, trump)].Seat
}

// winningIndex returns the index into trick of the currently winning
// card.
func winningIndex(trick []PlayedCard, mode deck.Mode, trump deck.Suit) int {
	ledSuit := trick[0].Card.Suit
	best := 0
	for i := 1; i < len(trick); i++ {
		if beats(trick[i].Card, trick[best].Card, ledSuit, mode, trump) {
			best = i
		}
	}
	return best
}

// beats reports whether a outranks b given the led suit.
func beats(a, b deck.Card, ledSuit deck.Suit, mode deck.Mode, trump deck.Suit) bool {
	if mode == deck.ModeHokum {
		aTrump, bTrump := a.Suit == trump, b.Suit == trump
		switch {
		case aTrump && !bTrump:
			return true
		case !aTrump && bTrump:
			return false
		case aTrump && bTrump:
			return deck.OrderValue(a, mode, true) > deck.OrderValue(b, mode, true)
		}
	}
	if a.Suit != b.Suit {
		// Neither is trump; only cards of the winning card's suit can
		// take over, and the first card always sets the led suit.
		return false
	}
	if a.Suit != ledSuit {
		return false
	}
	return deck.OrderValue(a, mode, false) > deck.OrderValue(b, mode, false)
}

// TrickPoints sums the Abnat of every card on the trick.
func TrickPoints(trick []PlayedCard, mode deck.Mode, trump deck.Suit) int {
	total := 0
	for _, pc := range trick {
		total += deck.Points(pc.Card, mode, trump)
	}
	return total
}
