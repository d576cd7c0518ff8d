package game

import (
	rand "math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/balootlabs/balootd/internal/deck"
	"github.com/balootlabs/balootd/internal/randutil"
)

var testNames = []string{"aziz", "badr", "dana", "omar"}

func testRNG(seed int64) *rand.Rand {
	return randutil.New(seed)
}

// seatedGame seats four players, which deals and opens the auction.
func seatedGame(t *testing.T, rng *rand.Rand) *Game {
	t.Helper()
	g := New("room-test")
	for _, n := range testNames {
		_, err := g.AddPlayer(n, false, "", rng)
		require.NoError(t, err)
	}
	require.Equal(t, PhaseBidding, g.Phase)
	return g
}

// playingGame builds a mid-round game directly, bypassing the deal, so
// tests can craft hands and histories.
func playingGame(mode deck.Mode, trump *deck.Suit, bidder int) *Game {
	g := New("room-test")
	for i, n := range testNames {
		g.Seats[i] = &Player{Name: n, Connected: true}
	}
	b := bidder
	g.Round = &Round{
		Bid:           Bid{Type: mode, TrumpSuit: trump, Bidder: &b},
		Bidding:       BiddingState{Stage: 2, Settled: true},
		DoublingLevel: DoublingNone,
		Projects:      newProjectState(),
		Akka:          newAkkaState(),
		Sawa:          newSawaState(),
		Baloot:        newBalootState(),
		Qayd:          newQaydState(),
	}
	g.Phase = PhasePlaying
	g.setTurn(NextSeat(g.DealerSeat))
	return g
}

func c(t *testing.T, s string) deck.Card {
	t.Helper()
	card, err := deck.ParseCard(s)
	require.NoError(t, err)
	return card
}

func hand(t *testing.T, ss ...string) []deck.Card {
	t.Helper()
	out := make([]deck.Card, 0, len(ss))
	for _, s := range ss {
		out = append(out, c(t, s))
	}
	return out
}

func suitPtr(s deck.Suit) *deck.Suit {
	return &s
}

// assertFullDeck checks the 32-card multiset invariant.
func assertFullDeck(t *testing.T, cards []deck.Card) {
	t.Helper()
	require.Len(t, cards, 32)
	seen := make(map[deck.Card]int, 32)
	for _, card := range cards {
		seen[card]++
	}
	for _, card := range deck.New() {
		require.Equal(t, 1, seen[card], "card %s", card)
	}
}
