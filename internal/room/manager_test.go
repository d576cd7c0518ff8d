package room

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balootlabs/balootd/internal/game"
	"github.com/balootlabs/balootd/internal/randutil"
)

func testManager(t *testing.T) (*Manager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewManager(rdb, zerolog.Nop()), mr
}

func TestCreateAndGetRoom(t *testing.T) {
	m, _ := testManager(t)
	ctx := context.Background()

	roomID, err := m.CreateRoom(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, roomID)

	g, err := m.GetGame(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, roomID, g.RoomID)
	assert.Equal(t, game.PhaseWaiting, g.Phase)
}

func TestGetMissingRoom(t *testing.T) {
	m, _ := testManager(t)
	_, err := m.GetGame(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestCorruptStateIsDistinctError(t *testing.T) {
	m, mr := testManager(t)
	mr.Set("game:bad", "{not json")
	_, err := m.GetGame(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrCorruptState)
	assert.NotErrorIs(t, err, ErrRoomNotFound)
}

func TestKeyRoomMismatchIsCorrupt(t *testing.T) {
	m, mr := testManager(t)
	other := game.New("someone-else")
	data, err := other.Encode()
	require.NoError(t, err)
	mr.Set("game:bad", string(data))

	_, err = m.GetGame(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrCorruptState)
}

func TestSavePersistsFullState(t *testing.T) {
	m, _ := testManager(t)
	ctx := context.Background()

	roomID, err := m.CreateRoom(ctx)
	require.NoError(t, err)
	g, err := m.GetGame(ctx, roomID)
	require.NoError(t, err)

	rng := randutil.New(7)
	for _, n := range []string{"aziz", "badr", "dana", "omar"} {
		_, err := g.AddPlayer(n, false, "", rng)
		require.NoError(t, err)
	}
	require.NoError(t, m.Save(ctx, g))

	// Drop the cache entry to force a Redis round trip.
	m.cache.Remove(roomID)
	back, err := m.GetGame(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, game.PhaseBidding, back.Phase)
	assert.Equal(t, g.CurrentTurnSeat, back.CurrentTurnSeat)
	for i := range g.Seats {
		assert.Equal(t, g.Seats[i].Hand, back.Seats[i].Hand)
	}
}

func TestSaveFailureDropsCacheEntry(t *testing.T) {
	m, mr := testManager(t)
	ctx := context.Background()

	roomID, err := m.CreateRoom(ctx)
	require.NoError(t, err)
	g, err := m.GetGame(ctx, roomID)
	require.NoError(t, err)

	mr.Close()
	err = m.Save(ctx, g)
	assert.ErrorIs(t, err, ErrBackend)
	_, ok := m.cache.Get(roomID)
	assert.False(t, ok, "failed save must not leave the cache ahead of the store")
}

func TestEnumerateRooms(t *testing.T) {
	m, _ := testManager(t)
	ctx := context.Background()

	want := map[string]bool{}
	for i := 0; i < 5; i++ {
		id, err := m.CreateRoom(ctx)
		require.NoError(t, err)
		want[id] = true
	}
	ids, err := m.EnumerateRooms(ctx)
	require.NoError(t, err)
	require.Len(t, ids, 5)
	for _, id := range ids {
		assert.True(t, want[id])
	}
}

func TestDeleteRoom(t *testing.T) {
	m, _ := testManager(t)
	ctx := context.Background()
	roomID, err := m.CreateRoom(ctx)
	require.NoError(t, err)

	require.NoError(t, m.DeleteRoom(ctx, roomID))
	_, err = m.GetGame(ctx, roomID)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestGamesExpire(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	m := NewManager(rdb, zerolog.Nop(), WithTTL(time.Minute))

	ctx := context.Background()
	roomID, err := m.CreateRoom(ctx)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)
	m.cache.Remove(roomID)
	_, err = m.GetGame(ctx, roomID)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestArchiveMatch(t *testing.T) {
	m, mr := testManager(t)
	ctx := context.Background()
	g := game.New("room-a")
	g.Match.UsScore = 155
	g.Match.ThemScore = 80

	matchID, err := m.ArchiveMatch(ctx, g)
	require.NoError(t, err)
	assert.True(t, mr.Exists("match:"+matchID))
}

func TestLockRoomIsStablePerRoom(t *testing.T) {
	m, _ := testManager(t)
	a := m.LockRoom("r1")
	b := m.LockRoom("r1")
	c := m.LockRoom("r2")
	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
}
