package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewRotatesSeatsToBottom(t *testing.T) {
	g := seatedGame(t, testRNG(61))
	for seat := 0; seat < NumSeats; seat++ {
		v := g.View(seat)
		assert.Equal(t, g.Seats[seat].Name, v.Players[0].Name, "viewer sits at bottom")
		assert.Equal(t, g.Seats[NextSeat(seat)].Name, v.Players[1].Name)
		assert.Equal(t, (g.DealerSeat-seat+NumSeats)%NumSeats, v.DealerIndex)
		assert.Equal(t, (g.CurrentTurnSeat-seat+NumSeats)%NumSeats, v.CurrentTurnIndex)
	}
}

func TestViewHidesOtherHands(t *testing.T) {
	g := seatedGame(t, testRNG(62))
	v := g.View(2)
	require.Len(t, v.Players[0].Hand, 5)
	for i := 1; i < NumSeats; i++ {
		assert.Empty(t, v.Players[i].Hand)
		assert.Equal(t, 5, v.Players[i].HandCount)
	}
}

func TestViewRotatesTableCardsAndBidder(t *testing.T) {
	g := seatedGame(t, testRNG(63))
	bidder := g.CurrentTurnSeat
	require.NoError(t, g.HandleBid(bidder, BidSun, nil, testRNG(64)))
	leader := g.CurrentTurnSeat
	_, err := g.PlayCard(leader, 0)
	require.NoError(t, err)

	v := g.View(leader)
	require.Len(t, v.TableCards, 1)
	assert.Equal(t, 0, v.TableCards[0].Seat, "own play shows at bottom")
	require.NotNil(t, v.Bid)
	assert.Equal(t, (bidder-leader+NumSeats)%NumSeats, v.Bid.Bidder)
}

func TestViewSwapsScoresForOddSeats(t *testing.T) {
	g := seatedGame(t, testRNG(65))
	g.Match.UsScore = 40
	g.Match.ThemScore = 90

	even := g.View(0)
	assert.Equal(t, 40, even.UsScore)
	assert.Equal(t, 90, even.ThemScore)

	odd := g.View(1)
	assert.Equal(t, 90, odd.UsScore)
	assert.Equal(t, 40, odd.ThemScore)
}

func TestViewOmitsHiddenProjectCandidates(t *testing.T) {
	g := seatedGame(t, testRNG(66))
	require.NoError(t, g.HandleBid(g.CurrentTurnSeat, BidSun, nil, testRNG(67)))
	for seat := 0; seat < NumSeats; seat++ {
		v := g.View(seat)
		assert.Equal(t, g.Round.Projects.Candidates[seat], v.MyProjects)
		assert.Nil(t, v.Declarations, "nothing revealed before resolution")
	}
}
