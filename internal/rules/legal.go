package rules

import (
	"github.com/balootlabs/balootd/internal/deck"
)

// IsLegalPlay reports whether playing card from hand onto trick is legal.
//
// Obligations, in order:
//   - holding the led suit forces following it; in Sun the follow must
//     additionally beat the current best of the led suit when possible
//   - void in the led suit during Hokum forces trumping when the
//     partner is not currently winning the trick
//   - when trumps are already on the trick, a trump play must
//     over-trump when possible, unless the round is locked
//
// An empty trick means the player leads and any held card is legal.
func IsLegalPlay(card deck.Card, hand []deck.Card, trick []PlayedCard, mode deck.Mode, trump deck.Suit, isLocked bool) bool {
	if !contains(hand, card) {
		return false
	}
	if len(trick) == 0 {
		return true
	}

	ledSuit := trick[0].Card.Suit
	holdsLed := holdsSuit(hand, ledSuit)

	if holdsLed {
		if card.Suit != ledSuit {
			return false
		}
		switch mode {
		case deck.ModeSun:
			return legalSunFollow(card, hand, trick, ledSuit)
		case deck.ModeHokum:
			if ledSuit == trump && !isLocked {
				return legalOvertrump(card, hand, trick, trump)
			}
			return true
		}
		return true
	}

	if mode != deck.ModeHokum {
		return true // sun: free discard when void
	}

	// Hokum, void in led suit.
	if partnerWinning(trick, mode, trump) {
		return true
	}
	holdsTrump := holdsSuit(hand, trump)
	if !holdsTrump {
		return true
	}
	if card.Suit != trump {
		return false
	}
	if isLocked {
		return true
	}
	return legalOvertrump(card, hand, trick, trump)
}

// LegalPlays returns every card in hand that IsLegalPlay accepts. Used
// by the bot fallback and the professor heuristic.
func LegalPlays(hand []deck.Card, trick []PlayedCard, mode deck.Mode, trump deck.Suit, isLocked bool) []deck.Card {
	legal := make([]deck.Card, 0, len(hand))
	for _, c := range hand {
		if IsLegalPlay(c, hand, trick, mode, trump, isLocked) {
			legal = append(legal, c)
		}
	}
	return legal
}

// legalSunFollow enforces the sun obligation to beat the current best
// card of the led suit when the hand allows it.
func legalSunFollow(card deck.Card, hand []deck.Card, trick []PlayedCard, ledSuit deck.Suit) bool {
	best := -1
	for _, pc := range trick {
		if pc.Card.Suit != ledSuit {
			continue
		}
		if v := deck.OrderValue(pc.Card, deck.ModeSun, false); v > best {
			best = v
		}
	}

	canBeat := false
	for _, c := range hand {
		if c.Suit == ledSuit && deck.OrderValue(c, deck.ModeSun, false) > best {
			canBeat = true
			break
		}
	}
	if !canBeat {
		return true
	}
	return deck.OrderValue(card, deck.ModeSun, false) > best
}

// legalOvertrump enforces the hokum obligation to beat the highest
// trump already on the trick when the hand allows it.
func legalOvertrump(card deck.Card, hand []deck.Card, trick []PlayedCard, trump deck.Suit) bool {
	best := -1
	for _, pc := range trick {
		if pc.Card.Suit != trump {
			continue
		}
		if v := deck.OrderValue(pc.Card, deck.ModeHokum, true); v > best {
			best = v
		}
	}
	if best < 0 {
		return true // no trump on the trick yet
	}

	canBeat := false
	for _, c := range hand {
		if c.Suit == trump && deck.OrderValue(c, deck.ModeHokum, true) > best {
			canBeat = true
			break
		}
	}
	if !canBeat {
		return true
	}
	return deck.OrderValue(card, deck.ModeHokum, true) > best
}

// partnerWinning reports whether the seat about to play has their
// teammate currently winning the trick. The next player is the one
// after the last entry, so the partner played two cards back.
func partnerWinning(trick []PlayedCard, mode deck.Mode, trump deck.Suit) bool {
	if len(trick) < 2 {
		return false
	}
	winnerIdx := winningIndex(trick, mode, trump)
	partnerSeat := trick[len(trick)-2].Seat
	return trick[winnerIdx].Seat == partnerSeat
}

func holdsSuit(hand []deck.Card, suit deck.Suit) bool {
	for _, c := range hand {
		if c.Suit == suit {
			return true
		}
	}
	return false
}

func contains(hand []deck.Card, card deck.Card) bool {
	for _, c := range hand {
		if c == card {
			return true
		}
	}
	return false
}
