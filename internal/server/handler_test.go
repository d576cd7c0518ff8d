package server

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/coder/quartz"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balootlabs/balootd/internal/deck"
	"github.com/balootlabs/balootd/internal/game"
	"github.com/balootlabs/balootd/internal/randutil"
	"github.com/balootlabs/balootd/internal/room"
	"github.com/balootlabs/balootd/internal/rules"
)

type sentMsg struct {
	RoomID string
	Seat   int
	Msg    *Message
}

// recorder stands in for the socket layer.
type recorder struct {
	mu   sync.Mutex
	msgs []sentMsg
}

func (r *recorder) SendToSeat(roomID string, seat int, msg *Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, sentMsg{RoomID: roomID, Seat: seat, Msg: msg})
}

func (r *recorder) count(mt MessageType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.msgs {
		if m.Msg.Type == mt {
			n++
		}
	}
	return n
}

type env struct {
	mr      *miniredis.Miniredis
	rooms   *room.Manager
	handler *Handler
	sched   *BotScheduler
	clock   *quartz.Mock
	rec     *recorder
	cfg     *Config
}

func newEnv(t *testing.T) *env {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	rooms := room.NewManager(rdb, zerolog.Nop())
	cfg := DefaultConfig()
	clock := quartz.NewMock(t)
	rec := &recorder{}
	h := NewHandler(rooms, cfg, clock, rec, randutil.NewLocked(1), zerolog.Nop())
	sched := NewBotScheduler(h, clock, zerolog.Nop())
	return &env{mr: mr, rooms: rooms, handler: h, sched: sched, clock: clock, rec: rec, cfg: cfg}
}

var humanNames = []string{"Aziz", "Badr", "Cima", "Dana"}

// seatHumans creates a room and seats four named humans. The fourth
// join deals the opening hands.
func seatHumans(t *testing.T, e *env) string {
	t.Helper()
	ctx := context.Background()
	created := e.handler.CreateRoom(ctx)
	require.True(t, created.Success)
	for _, n := range humanNames {
		resp := e.handler.JoinRoom(ctx, JoinRoomData{RoomID: created.RoomID, PlayerName: n})
		require.True(t, resp.Success, resp.Error)
	}
	return created.RoomID
}

func (e *env) game(t *testing.T, roomID string) *game.Game {
	t.Helper()
	g, err := e.rooms.GetGame(context.Background(), roomID)
	require.NoError(t, err)
	return g
}

func (e *env) save(t *testing.T, g *game.Game) {
	t.Helper()
	require.NoError(t, e.rooms.Save(context.Background(), g))
}

func TestJoinFlowDealsOnFourthSeat(t *testing.T) {
	e := newEnv(t)
	roomID := seatHumans(t, e)

	g := e.game(t, roomID)
	assert.Equal(t, game.PhaseBidding, g.Phase)
	for seat := 0; seat < game.NumSeats; seat++ {
		assert.Len(t, g.Seats[seat].Hand, 5)
	}
	assert.Equal(t, 4, e.rec.count(MessageTypeGameStart), "every human hears the deal")
}

func TestJoinValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	resp := e.handler.JoinRoom(ctx, JoinRoomData{RoomID: "", PlayerName: "Aziz"})
	assert.False(t, resp.Success)

	resp = e.handler.JoinRoom(ctx, JoinRoomData{RoomID: "nope", PlayerName: "Aziz"})
	assert.False(t, resp.Success)
	assert.Equal(t, "room not found", resp.Error)
}

func TestRejoinKeepsSeat(t *testing.T) {
	e := newEnv(t)
	roomID := seatHumans(t, e)

	resp := e.handler.JoinRoom(context.Background(), JoinRoomData{RoomID: roomID, PlayerName: "Badr"})
	require.True(t, resp.Success)
	assert.Equal(t, 1, resp.PlayerIndex, "same name reconnects to the same seat")
}

func TestUnknownActionTypeRejected(t *testing.T) {
	e := newEnv(t)
	roomID := seatHumans(t, e)

	resp := e.handler.GameAction(context.Background(), "Aziz", GameActionData{
		RoomID: roomID,
		Action: game.Action{Type: game.ActionType("JUGGLE")},
	})
	assert.False(t, resp.Success)
	assert.Equal(t, "InvalidPayload", resp.ErrorCode)
}

func TestUnseatedPlayerRejected(t *testing.T) {
	e := newEnv(t)
	roomID := seatHumans(t, e)

	resp := e.handler.GameAction(context.Background(), "Intruder", GameActionData{
		RoomID: roomID,
		Action: game.Action{Type: game.ActionBid, BidAction: game.BidPass},
	})
	assert.False(t, resp.Success)
	assert.Equal(t, "InvalidPayload", resp.ErrorCode)
}

func TestBidThroughPipeline(t *testing.T) {
	e := newEnv(t)
	roomID := seatHumans(t, e)

	g := e.game(t, roomID)
	speaker := humanNames[g.CurrentTurnSeat]
	before := e.rec.count(MessageTypeGameUpdate)

	resp := e.handler.GameAction(context.Background(), speaker, GameActionData{
		RoomID: roomID,
		Action: game.Action{Type: game.ActionBid, BidAction: game.BidSun},
	})
	require.True(t, resp.Success, resp.Error)

	g = e.game(t, roomID)
	assert.Equal(t, game.PhasePlaying, g.Phase)
	assert.Greater(t, e.rec.count(MessageTypeGameUpdate), before)
	assert.Equal(t, 4, e.rec.count(MessageTypeGameStart), "only the deal announces a start")
}

// playingFixture settles a sun bid, then rigs a deterministic trick so
// professor behavior is testable: ten of hearts on the table, seat 0
// to act holding a losing seven and a winning ace.
func playingFixture(t *testing.T, e *env) string {
	t.Helper()
	roomID := seatHumans(t, e)
	g := e.game(t, roomID)
	speaker := humanNames[g.CurrentTurnSeat]
	resp := e.handler.GameAction(context.Background(), speaker, GameActionData{
		RoomID: roomID,
		Action: game.Action{Type: game.ActionBid, BidAction: game.BidSun},
	})
	require.True(t, resp.Success, resp.Error)

	g = e.game(t, roomID)
	g.Round.CurrentTrick = []rules.PlayedCard{
		{Card: deck.NewCard(deck.Ten, deck.Hearts), Seat: 3},
	}
	g.CurrentTurnSeat = 0
	g.Seats[0].Hand = []deck.Card{
		deck.NewCard(deck.Seven, deck.Hearts),
		deck.NewCard(deck.Ace, deck.Hearts),
	}
	e.save(t, g)
	return roomID
}

func TestProfessorInterceptsLosingPlay(t *testing.T) {
	e := newEnv(t)
	roomID := playingFixture(t, e)

	resp := e.handler.GameAction(context.Background(), "Aziz", GameActionData{
		RoomID: roomID,
		Action: game.Action{Type: game.ActionPlay, CardIndex: 0},
	})
	require.False(t, resp.Success)
	assert.Equal(t, "PROFESSOR_INTERVENTION", resp.ErrorCode)
	require.NotNil(t, resp.Intervention)
	assert.Equal(t, 1, resp.Intervention.CardIndex)

	g := e.game(t, roomID)
	assert.Len(t, g.Round.CurrentTrick, 1, "intervention must not mutate state")
	assert.Len(t, g.Seats[0].Hand, 2)
}

func TestProfessorSkippedOnInsistence(t *testing.T) {
	e := newEnv(t)
	roomID := playingFixture(t, e)

	resp := e.handler.GameAction(context.Background(), "Aziz", GameActionData{
		RoomID: roomID,
		Action: game.Action{Type: game.ActionPlay, CardIndex: 0, SkipProfessor: true},
	})
	require.True(t, resp.Success, resp.Error)

	g := e.game(t, roomID)
	assert.Len(t, g.Round.CurrentTrick, 2)
}

func TestProfessorDisabledWithoutHints(t *testing.T) {
	e := newEnv(t)
	roomID := playingFixture(t, e)

	g := e.game(t, roomID)
	g.Settings.ShowHints = false
	e.save(t, g)

	resp := e.handler.GameAction(context.Background(), "Aziz", GameActionData{
		RoomID: roomID,
		Action: game.Action{Type: game.ActionPlay, CardIndex: 0},
	})
	assert.True(t, resp.Success, resp.Error)
}

func TestSaveFailureSuppressesBroadcast(t *testing.T) {
	e := newEnv(t)
	roomID := seatHumans(t, e)
	g := e.game(t, roomID)
	speaker := humanNames[g.CurrentTurnSeat]

	e.mr.SetError("backend down")
	before := e.rec.count(MessageTypeGameUpdate)

	resp := e.handler.GameAction(context.Background(), speaker, GameActionData{
		RoomID: roomID,
		Action: game.Action{Type: game.ActionBid, BidAction: game.BidPass},
	})
	require.False(t, resp.Success)
	assert.Equal(t, "BackendUnavailable", resp.ErrorCode)
	assert.Equal(t, before, e.rec.count(MessageTypeGameUpdate), "no broadcast for unsaved state")

	e.mr.SetError("")
	g = e.game(t, roomID)
	assert.Equal(t, 0, g.Round.Bidding.Passes, "mutation was not persisted")
}

func TestDebugActionRequiresDebugRoom(t *testing.T) {
	e := newEnv(t)
	roomID := seatHumans(t, e)

	resp := e.handler.DebugAction(context.Background(), "Aziz", DebugActionData{
		RoomID:  roomID,
		Command: "dump_state",
	})
	assert.False(t, resp.Success)

	g := e.game(t, roomID)
	g.Settings.IsDebug = true
	e.save(t, g)

	g = e.game(t, roomID)
	speaker := humanNames[g.CurrentTurnSeat]
	resp = e.handler.DebugAction(context.Background(), speaker, DebugActionData{
		RoomID:  roomID,
		Command: "action",
		Action:  &game.Action{Type: game.ActionBid, BidAction: game.BidPass},
	})
	assert.True(t, resp.Success, resp.Error)
}

func TestDebugSetHandAndDump(t *testing.T) {
	e := newEnv(t)
	roomID := seatHumans(t, e)

	g := e.game(t, roomID)
	g.Settings.IsDebug = true
	e.save(t, g)

	resp := e.handler.DebugAction(context.Background(), "Aziz", DebugActionData{
		RoomID:  roomID,
		Command: "set_hand",
		Seat:    2,
		Cards:   []string{"A♠", "K♠", "Q♠"},
	})
	require.True(t, resp.Success, resp.Error)

	g = e.game(t, roomID)
	require.Len(t, g.Seats[2].Hand, 3)
	assert.Equal(t, deck.NewCard(deck.Ace, deck.Spades), g.Seats[2].Hand[0])

	resp = e.handler.DebugAction(context.Background(), "Aziz", DebugActionData{
		RoomID:  roomID,
		Command: "dump_state",
	})
	require.True(t, resp.Success, resp.Error)
	assert.Contains(t, string(resp.State), roomID)

	resp = e.handler.DebugAction(context.Background(), "Aziz", DebugActionData{
		RoomID:  roomID,
		Command: "levitate",
	})
	assert.False(t, resp.Success)
}

func TestTurnDeadlineAutoActs(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	roomID := seatHumans(t, e)

	g := e.game(t, roomID)
	require.Equal(t, game.PhaseBidding, g.Phase)
	passesBefore := g.Round.Bidding.Passes

	e.clock.Advance(e.cfg.Timers.TurnWindow(g.Settings.TurnDuration)).MustWait(ctx)

	g = e.game(t, roomID)
	assert.Equal(t, passesBefore+1, g.Round.Bidding.Passes, "idle speaker auto-passes")
}

func TestAllBotRoundCompletes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	created := e.handler.CreateRoom(ctx)
	require.True(t, created.Success)
	roomID := created.RoomID

	// Strict mode bounds the auction so a table of cautious bots
	// cannot pass out forever.
	g := e.game(t, roomID)
	g.Settings.StrictMode = true
	e.save(t, g)

	for i := 0; i < 4; i++ {
		resp := e.handler.AddBot(ctx, roomID)
		require.True(t, resp.Success, resp.Error)
	}
	g = e.game(t, roomID)
	require.Equal(t, game.PhaseBidding, g.Phase)

	done := false
	for i := 0; i < 400 && !done; i++ {
		e.clock.Advance(time.Second).MustWait(ctx)
		lock := e.rooms.LockRoom(roomID)
		lock.Lock()
		g, err := e.rooms.GetGame(ctx, roomID)
		require.NoError(t, err)
		done = len(g.Match.Rounds) > 0
		lock.Unlock()
	}
	require.True(t, done, "bots never finished a round")
}

// Rooms share the handler's rng, so parallel deals must not corrupt
// it. Run with -race.
func TestConcurrentJoinsAcrossRooms(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	const numRooms = 4
	roomIDs := make([]string, numRooms)
	for i := range roomIDs {
		created := e.handler.CreateRoom(ctx)
		require.True(t, created.Success)
		roomIDs[i] = created.RoomID
	}

	var wg sync.WaitGroup
	for _, roomID := range roomIDs {
		for _, n := range humanNames {
			wg.Add(1)
			go func(roomID, name string) {
				defer wg.Done()
				resp := e.handler.JoinRoom(ctx, JoinRoomData{RoomID: roomID, PlayerName: name})
				assert.True(t, resp.Success, resp.Error)
			}(roomID, n)
		}
	}
	wg.Wait()

	for _, roomID := range roomIDs {
		g := e.game(t, roomID)
		require.Equal(t, game.PhaseBidding, g.Phase)
		for seat := 0; seat < game.NumSeats; seat++ {
			assert.Len(t, g.Seats[seat].Hand, 5)
		}
	}
}

func TestFinishedMatchArchivesOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	roomID := seatHumans(t, e)

	g := e.game(t, roomID)
	g.Phase = game.PhaseGameOver
	e.save(t, g)

	// Every rejoin of a finished room observes game over; only the
	// first may write an archive record.
	for i := 0; i < 3; i++ {
		resp := e.handler.JoinRoom(ctx, JoinRoomData{RoomID: roomID, PlayerName: "Aziz"})
		require.True(t, resp.Success, resp.Error)
	}

	archives := 0
	for _, k := range e.mr.Keys() {
		if strings.HasPrefix(k, "match:") {
			archives++
		}
	}
	assert.Equal(t, 1, archives)
}

func TestBotTurnSurvivesStrategyRejection(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	roomID := seatHumans(t, e)

	// Bot turn scheduled for a seat a human occupies is a no-op.
	e.sched.scheduleBotTurn(roomID, 0)
	e.clock.Advance(e.cfg.Timers.BotDelay()).MustWait(ctx)

	g := e.game(t, roomID)
	assert.Equal(t, game.PhaseBidding, g.Phase)
}
