// Package room stores Games: Redis is authoritative, an LRU cache
// fronts it, and a per-room mutex registry serializes mutation. The
// cache is only updated after Redis acknowledges, so a failed write
// can never leave the cache ahead of the store.
package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/balootlabs/balootd/internal/game"
)

const (
	gameKeyPrefix  = "game:"
	matchKeyPrefix = "match:"

	defaultCacheSize = 1024
	defaultTTL       = 24 * time.Hour

	scanBatch = 100
)

// Manager is the room registry.
type Manager struct {
	rdb    redis.UniversalClient
	cache  *lru.Cache[string, *game.Game]
	ttl    time.Duration
	logger zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithTTL overrides how long idle games stay in Redis.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.ttl = ttl }
}

// WithCacheSize overrides the LRU capacity.
func WithCacheSize(n int) Option {
	return func(m *Manager) {
		cache, _ := lru.New[string, *game.Game](n)
		m.cache = cache
	}
}

// NewManager wires the registry to a Redis client.
func NewManager(rdb redis.UniversalClient, logger zerolog.Logger, opts ...Option) *Manager {
	cache, _ := lru.New[string, *game.Game](defaultCacheSize)
	m := &Manager{
		rdb:    rdb,
		cache:  cache,
		ttl:    defaultTTL,
		logger: logger.With().Str("component", "room").Logger(),
		locks:  make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// LockRoom returns the room's mutex, creating it on first use. The
// mutex is non-reentrant; hold it across load-mutate-save.
func (m *Manager) LockRoom(roomID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[roomID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[roomID] = l
	}
	return l
}

// CreateRoom writes a fresh empty game and returns its id.
func (m *Manager) CreateRoom(ctx context.Context) (string, error) {
	roomID := uuid.NewString()[:8]
	g := game.New(roomID)
	if err := m.Save(ctx, g); err != nil {
		return "", err
	}
	m.logger.Info().Str("room_id", roomID).Msg("room created")
	return roomID, nil
}

// GetGame loads a game, cache first. A decode failure never returns a
// partial game.
func (m *Manager) GetGame(ctx context.Context, roomID string) (*game.Game, error) {
	if g, ok := m.cache.Get(roomID); ok {
		return g, nil
	}
	data, err := m.rdb.Get(ctx, gameKeyPrefix+roomID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	g, err := game.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	if g.RoomID != roomID {
		return nil, fmt.Errorf("%w: key/room mismatch", ErrCorruptState)
	}
	m.cache.Add(roomID, g)
	return g, nil
}

// Save serializes and writes the game. On a backend failure the cache
// entry is dropped so the next read goes back to Redis.
func (m *Manager) Save(ctx context.Context, g *game.Game) error {
	data, err := g.Encode()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	if err := m.rdb.Set(ctx, gameKeyPrefix+g.RoomID, data, m.ttl).Err(); err != nil {
		m.cache.Remove(g.RoomID)
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	m.cache.Add(g.RoomID, g)
	return nil
}

// DeleteRoom removes the game from the store and the cache.
func (m *Manager) DeleteRoom(ctx context.Context, roomID string) error {
	if err := m.rdb.Del(ctx, gameKeyPrefix+roomID).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	m.cache.Remove(roomID)
	m.mu.Lock()
	delete(m.locks, roomID)
	m.mu.Unlock()
	return nil
}

// EnumerateRooms walks the keyspace with SCAN, never KEYS.
func (m *Manager) EnumerateRooms(ctx context.Context) ([]string, error) {
	var (
		out    []string
		cursor uint64
	)
	for {
		keys, next, err := m.rdb.Scan(ctx, cursor, gameKeyPrefix+"*", scanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBackend, err)
		}
		for _, k := range keys {
			out = append(out, k[len(gameKeyPrefix):])
		}
		cursor = next
		if cursor == 0 {
			return out, nil
		}
	}
}

// ArchiveMatch persists a finished match's full round history under
// its own key. Archives carry no TTL.
func (m *Manager) ArchiveMatch(ctx context.Context, g *game.Game) (string, error) {
	matchID := uuid.NewString()
	record := struct {
		MatchID string     `json:"matchId"`
		RoomID  string     `json:"roomId"`
		EndedAt time.Time  `json:"endedAt"`
		Match   game.Match `json:"match"`
		Players []string   `json:"players"`
	}{
		MatchID: matchID,
		RoomID:  g.RoomID,
		EndedAt: time.Now().UTC(),
		Match:   g.Match,
	}
	for _, p := range g.Seats {
		if p != nil {
			record.Players = append(record.Players, p.Name)
		}
	}
	data, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	if err := m.rdb.Set(ctx, matchKeyPrefix+matchID, data, 0).Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackend, err)
	}
	m.logger.Info().Str("room_id", g.RoomID).Str("match_id", matchID).Msg("match archived")
	return matchID, nil
}

// Ping verifies backend connectivity at startup.
func (m *Manager) Ping(ctx context.Context) error {
	if err := m.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return nil
}
