package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balootlabs/balootd/internal/deck"
	"github.com/balootlabs/balootd/internal/rules"
	"github.com/balootlabs/balootd/internal/score"
)

// playOut drives a bid-settled round to completion by always playing
// the first legal card, checking the deck invariant after every move.
func playOut(t *testing.T, g *Game) {
	t.Helper()
	for g.Phase == PhasePlaying {
		seat := g.CurrentTurnSeat
		r := g.Round
		legal := rules.LegalPlays(g.Seats[seat].Hand, r.CurrentTrick, r.Bid.Type, r.Bid.Trump(), r.IsLocked)
		require.NotEmpty(t, legal, "seat %d has no legal play", seat)

		idx := -1
		for i, h := range g.Seats[seat].Hand {
			if h == legal[0] {
				idx = i
			}
		}
		fx, err := g.PlayCard(seat, idx)
		require.NoError(t, err)
		assertFullDeck(t, g.CardCensus())
		if fx.TrickCompleted {
			g.FinishTrickTransition(g.Epoch, fx.TransitionSeq)
		}
	}
}

func TestFullRoundSunKeepsInvariants(t *testing.T) {
	g := seatedGame(t, testRNG(31))
	require.NoError(t, g.HandleBid(g.CurrentTurnSeat, BidSun, nil, testRNG(32)))
	playOut(t, g)

	require.Contains(t, []Phase{PhaseRoundOver, PhaseGameOver}, g.Phase)
	r := g.Round
	require.NotNil(t, r.Result)
	assert.Len(t, r.TrickHistory, TricksPerRound)
	assert.Empty(t, r.CurrentTrick)
	assert.Equal(t, 130, r.UsCardPoints+r.ThemCardPoints, "sun abnat pool incl last trick")
	assert.Len(t, g.Match.Rounds, 1)
	assert.Equal(t, r.Result.UsGP, func() int {
		if len(g.Match.Rounds) > 0 {
			return g.Match.Rounds[0].Result.UsGP
		}
		return -1
	}())
}

func TestFullRoundHokumPointsPool(t *testing.T) {
	g := seatedGame(t, testRNG(33))
	require.NoError(t, g.HandleBid(g.CurrentTurnSeat, BidHokum, nil, testRNG(34)))
	playOut(t, g)
	r := g.Round
	assert.Equal(t, 162, r.UsCardPoints+r.ThemCardPoints, "hokum abnat pool incl last trick")
}

func TestPlayRejectsOffTurnAndTransition(t *testing.T) {
	g := seatedGame(t, testRNG(35))
	require.NoError(t, g.HandleBid(g.CurrentTurnSeat, BidSun, nil, testRNG(36)))

	off := NextSeat(g.CurrentTurnSeat)
	_, err := g.PlayCard(off, 0)
	assert.ErrorIs(t, err, ErrNotYourTurn)

	g.TrickTransitioning = true
	_, err = g.PlayCard(g.CurrentTurnSeat, 0)
	assert.ErrorIs(t, err, ErrWrongPhase)
}

func TestIllegalFollowRejected(t *testing.T) {
	g := playingGame(deck.ModeSun, nil, 0)
	g.Seats[0].Hand = hand(t, "A♠", "7♥")
	g.Seats[1].Hand = hand(t, "8♠", "K♦")
	g.setTurn(0)

	_, err := g.PlayCard(0, 0)
	require.NoError(t, err)

	// Seat 1 holds a spade and must follow.
	_, err = g.PlayCard(1, 1)
	assert.ErrorIs(t, err, ErrIllegalMove)
	_, err = g.PlayCard(1, 0)
	assert.NoError(t, err)
}

func TestStaleTransitionTimerIsNoop(t *testing.T) {
	g := seatedGame(t, testRNG(37))
	require.NoError(t, g.HandleBid(g.CurrentTurnSeat, BidSun, nil, testRNG(38)))

	// Complete one full trick.
	var fx Effects
	for i := 0; i < NumSeats; i++ {
		seat := g.CurrentTurnSeat
		r := g.Round
		legal := rules.LegalPlays(g.Seats[seat].Hand, r.CurrentTrick, r.Bid.Type, r.Bid.Trump(), r.IsLocked)
		idx := -1
		for j, h := range g.Seats[seat].Hand {
			if h == legal[0] {
				idx = j
			}
		}
		fx, _ = g.PlayCard(seat, idx)
	}
	require.True(t, fx.TrickCompleted)
	require.True(t, g.TrickTransitioning)

	g.FinishTrickTransition(g.Epoch, fx.TransitionSeq+1) // stale seq
	assert.True(t, g.TrickTransitioning)
	g.FinishTrickTransition(g.Epoch+1, fx.TransitionSeq) // stale epoch
	assert.True(t, g.TrickTransitioning)
	g.FinishTrickTransition(g.Epoch, fx.TransitionSeq)
	assert.False(t, g.TrickTransitioning)
}

func TestTransitionParksTurnUntilTableClears(t *testing.T) {
	g := seatedGame(t, testRNG(42))
	require.NoError(t, g.HandleBid(g.CurrentTurnSeat, BidSun, nil, testRNG(42)))

	var fx Effects
	for i := 0; i < NumSeats; i++ {
		seat := g.CurrentTurnSeat
		r := g.Round
		legal := rules.LegalPlays(g.Seats[seat].Hand, r.CurrentTrick, r.Bid.Type, r.Bid.Trump(), r.IsLocked)
		idx := -1
		for j, h := range g.Seats[seat].Hand {
			if h == legal[0] {
				idx = j
			}
		}
		fx, _ = g.PlayCard(seat, idx)
	}
	require.True(t, fx.TrickCompleted)

	// No seat holds the turn while the finished trick is on display.
	assert.Equal(t, -1, g.CurrentTurnSeat)

	g.FinishTrickTransition(g.Epoch, fx.TransitionSeq)
	assert.False(t, g.TrickTransitioning)
	assert.Equal(t, g.Round.TrickHistory[0].Winner, g.CurrentTurnSeat)
}

func TestNextRoundRotatesDealer(t *testing.T) {
	g := seatedGame(t, testRNG(39))
	require.NoError(t, g.HandleBid(g.CurrentTurnSeat, BidSun, nil, testRNG(40)))
	playOut(t, g)
	if g.Phase != PhaseRoundOver {
		t.Skip("match ended in one round under this seed")
	}
	dealer := g.DealerSeat
	require.NoError(t, g.StartNextRound(testRNG(41)))
	assert.Equal(t, NextSeat(dealer), g.DealerSeat)
	assert.Equal(t, PhaseBidding, g.Phase)
	assertFullDeck(t, g.CardCensus())
}

func TestGahwaWinnerClosesMatch(t *testing.T) {
	g := playingGame(deck.ModeHokum, suitPtr(deck.Spades), 0)
	r := g.Round
	r.DoublingLevel = DoublingGahwa
	doubler := score.TeamThem
	r.DoublerTeam = &doubler
	r.UsCardPoints = 100
	r.ThemCardPoints = 62

	g.scoreRound()

	require.NotNil(t, r.Result)
	assert.GreaterOrEqual(t, r.Result.UsGP, score.MatchTarget)
	assert.Equal(t, 0, r.Result.ThemGP)
	assert.Equal(t, PhaseGameOver, g.Phase)
}

func TestDispatchUnknownActionRejected(t *testing.T) {
	g := seatedGame(t, testRNG(43))
	_, err := g.Dispatch(0, Action{Type: "EMOTE_DANCE"}, testRNG(44))
	assert.ErrorIs(t, err, ErrInvalidPayload)
	_, err = g.Dispatch(7, Action{Type: ActionDouble}, testRNG(44))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestUpdateSettingsValidates(t *testing.T) {
	g := New("room-test")
	err := g.UpdateSettings(Settings{TurnDuration: 0})
	assert.ErrorIs(t, err, ErrInvalidPayload)
	err = g.UpdateSettings(Settings{TurnDuration: 45, BotDifficulty: "khalid"})
	require.NoError(t, err)
	assert.Equal(t, 45, g.Settings.TurnDuration)
}
