package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balootlabs/balootd/internal/deck"
	"github.com/balootlabs/balootd/internal/rules"
)

// roundTrip asserts decode(encode(g)) preserves all observable state.
func roundTrip(t *testing.T, g *Game) *Game {
	t.Helper()
	data, err := g.Encode()
	require.NoError(t, err)
	back, err := Decode(data)
	require.NoError(t, err)
	again, err := back.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))
	assert.Equal(t, g.Phase, back.Phase)
	assert.Equal(t, g.CurrentTurnSeat, back.CurrentTurnSeat)
	assert.Equal(t, g.Epoch, back.Epoch)
	return back
}

func TestRoundTripWaiting(t *testing.T) {
	g := New("room-rt")
	_, err := g.AddPlayer("aziz", false, "", testRNG(50))
	require.NoError(t, err)
	roundTrip(t, g)
}

func TestRoundTripMidBidding(t *testing.T) {
	g := seatedGame(t, testRNG(51))
	require.NoError(t, g.HandleBid(g.CurrentTurnSeat, BidPass, nil, testRNG(52)))
	back := roundTrip(t, g)
	assert.Equal(t, g.Round.Bidding, back.Round.Bidding)
	assert.Equal(t, *g.Round.FloorCard, *back.Round.FloorCard)
	for i := range g.Seats {
		assert.Equal(t, g.Seats[i].Hand, back.Seats[i].Hand)
	}
}

func TestRoundTripMidTrick(t *testing.T) {
	g := seatedGame(t, testRNG(53))
	require.NoError(t, g.HandleBid(g.CurrentTurnSeat, BidSun, nil, testRNG(54)))
	_, err := g.PlayCard(g.CurrentTurnSeat, 0)
	require.NoError(t, err)
	back := roundTrip(t, g)
	assert.Equal(t, g.Round.CurrentTrick, back.Round.CurrentTrick)
	assert.Equal(t, g.Round.Projects, back.Round.Projects)
}

func TestRoundTripSawaPending(t *testing.T) {
	g := playingGame(deck.ModeSun, nil, 0)
	for i := range g.Seats {
		g.Seats[i].Hand = hand(t, "A♠")
	}
	_, err := g.HandleSawaClaim(2)
	require.NoError(t, err)
	back := roundTrip(t, g)
	assert.Equal(t, g.Round.Sawa, back.Round.Sawa)
}

func TestRoundTripQaydActive(t *testing.T) {
	g := playingGame(deck.ModeHokum, suitPtr(deck.Spades), 0)
	r := g.Round
	r.TrickHistory = []Trick{{
		Cards: []rules.PlayedCard{
			{Card: c(t, "A♥"), Seat: 0},
			{Card: c(t, "Q♦"), Seat: 1},
			{Card: c(t, "7♥"), Seat: 2},
			{Card: c(t, "8♥"), Seat: 3},
		},
		Winner: 0, Points: 14,
	}, {
		Cards: []rules.PlayedCard{
			{Card: c(t, "A♦"), Seat: 0},
			{Card: c(t, "K♥"), Seat: 1},
			{Card: c(t, "8♦"), Seat: 2},
			{Card: c(t, "9♦"), Seat: 3},
		},
		Winner: 0, Points: 15,
	}}

	_, err := g.HandleQaydStart(0)
	require.NoError(t, err)
	require.NoError(t, g.HandleQaydSelectViolation(0, ViolationRevoke))
	require.NoError(t, g.HandleQaydSelectCard(0, "crime", QaydSelection{
		TrickIndex: 0, Card: c(t, "Q♦"), PlayedBy: 1,
	}))

	back := roundTrip(t, g)
	assert.Equal(t, PhaseQaydActive, back.Phase)
	assert.Equal(t, g.Round.Qayd, back.Round.Qayd)
}

func TestRoundTripRoundOver(t *testing.T) {
	g := seatedGame(t, testRNG(55))
	require.NoError(t, g.HandleBid(g.CurrentTurnSeat, BidSun, nil, testRNG(56)))
	playOut(t, g)
	back := roundTrip(t, g)
	require.NotNil(t, back.Round.Result)
	assert.Equal(t, *g.Round.Result, *back.Round.Result)
	assert.Equal(t, g.Match, back.Match)
}
