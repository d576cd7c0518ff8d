package server

import (
	"sync"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"github.com/balootlabs/balootd/internal/bot"
	"github.com/balootlabs/balootd/internal/game"
	"github.com/balootlabs/balootd/internal/randutil"
)

// maxBotDepth caps consecutive bot actions in a room with no human in
// between. A full all-bot match stays well under this; hitting it
// means the bots are stuck in a loop.
const maxBotDepth = 500

// BotScheduler drives bot turns and the round auto-restart. Every
// callback goes through the handler pipeline, so bots obey the same
// rules as humans.
type BotScheduler struct {
	h      *Handler
	clock  quartz.Clock
	logger zerolog.Logger

	mu         sync.Mutex
	depth      map[string]int
	restarting map[string]bool
	archived   map[string]bool
	strategies map[string]bot.Strategy
}

func NewBotScheduler(h *Handler, clock quartz.Clock, logger zerolog.Logger) *BotScheduler {
	b := &BotScheduler{
		h:          h,
		clock:      clock,
		logger:     logger.With().Str("component", "bot_scheduler").Logger(),
		depth:      make(map[string]int),
		restarting: make(map[string]bool),
		archived:   make(map[string]bool),
		strategies: make(map[string]bot.Strategy),
	}
	h.AttachScheduler(b)
	return b
}

// NoteHumanAction resets the runaway counter; a human touched the
// room, so the bots are not looping on their own.
func (b *BotScheduler) NoteHumanAction(roomID string) {
	b.mu.Lock()
	b.depth[roomID] = 0
	b.mu.Unlock()
}

// MaybeSchedule inspects a freshly saved game and arms whatever
// callback it needs next. Call it with the room lock held; it only
// registers callbacks, and every callback re-validates under the room
// lock when it fires.
func (b *BotScheduler) MaybeSchedule(roomID string, g *game.Game) {
	switch g.Phase {
	case game.PhaseRoundOver:
		b.scheduleRestart(roomID)
		return
	case game.PhaseGameOver:
		b.archive(roomID, g)
		return
	case game.PhaseQaydActive:
		// Only the reporter acts here, and bots never open a review;
		// the window timer resolves it.
		return
	}
	if g.Round != nil && g.Round.Sawa.Pending {
		for seat, p := range g.Seats {
			if p != nil && p.IsBot && seat != g.Round.Sawa.Claimer && !g.Round.Sawa.Responded[seat] {
				b.scheduleBotTurn(roomID, seat)
				return
			}
		}
		return
	}
	if g.TrickTransitioning {
		// The transition callback reschedules once the table clears.
		return
	}
	seat := g.CurrentTurnSeat
	if seat < 0 || g.Seats[seat] == nil {
		return
	}
	if g.Seats[seat].IsBot {
		b.scheduleBotTurn(roomID, seat)
		return
	}
	if d := g.Settings.TurnDuration; d > 0 {
		turnSeq := g.TurnSeq
		b.clock.AfterFunc(b.h.cfg.Timers.TurnWindow(d), func() {
			b.turnTimeout(roomID, seat, turnSeq)
		})
	}
}

// turnTimeout auto-acts for a human who let the turn clock run out:
// pass in the auction, the first legal card in play. The sequence
// check makes a timer for an already-taken turn a no-op.
func (b *BotScheduler) turnTimeout(roomID string, seat int, turnSeq uint64) {
	ctx, cancel := timerContext()
	defer cancel()

	lock := b.h.rooms.LockRoom(roomID)
	lock.Lock()
	g, err := b.h.rooms.GetGame(ctx, roomID)
	if err != nil || g.CurrentTurnSeat != seat || g.TurnSeq != turnSeq ||
		g.TrickTransitioning ||
		(g.Phase != game.PhaseBidding && g.Phase != game.PhasePlaying) ||
		(g.Round != nil && g.Round.Sawa.Pending) {
		lock.Unlock()
		return
	}
	name := g.Seats[seat].Name
	act, ok := bot.Fallback(g, seat)
	lock.Unlock()
	if !ok {
		return
	}

	b.logger.Info().Str("room_id", roomID).Int("seat", seat).Msg("turn deadline elapsed, auto-acting")
	resp := b.h.act(ctx, roomID, name, act, true, "")
	if !resp.Success {
		b.logger.Warn().Str("room_id", roomID).Int("seat", seat).Str("error", resp.Error).Msg("auto-action rejected")
	}
}

func (b *BotScheduler) scheduleBotTurn(roomID string, seat int) {
	b.clock.AfterFunc(b.h.cfg.Timers.BotDelay(), func() {
		b.botTurn(roomID, seat)
	})
}

func (b *BotScheduler) botTurn(roomID string, seat int) {
	b.mu.Lock()
	b.depth[roomID]++
	depth := b.depth[roomID]
	b.mu.Unlock()
	if depth > maxBotDepth {
		b.logger.Error().Str("room_id", roomID).Int("depth", depth).Msg("bot action depth exceeded, halting room")
		return
	}

	ctx, cancel := timerContext()
	defer cancel()

	lock := b.h.rooms.LockRoom(roomID)
	lock.Lock()
	g, err := b.h.rooms.GetGame(ctx, roomID)
	if err != nil {
		lock.Unlock()
		return
	}
	p := g.Seats[seat]
	if p == nil || !p.IsBot {
		lock.Unlock()
		return
	}
	name := p.Name
	s := b.strategyFor(p.BotDifficulty)

	b.mu.Lock()
	d, derr := s.Decide(ctx, g, seat)
	b.mu.Unlock()
	if derr != nil {
		// Fallback reads the game, so it runs before the lock drops.
		act, ok := bot.Fallback(g, seat)
		lock.Unlock()
		b.logger.Error().Err(derr).Str("room_id", roomID).Int("seat", seat).Msg("strategy failed, using fallback")
		if !ok {
			return
		}
		d = bot.Decision{Action: act}
	} else {
		lock.Unlock()
	}

	resp := b.h.act(ctx, roomID, name, d.Action, true, d.Say)
	if !resp.Success {
		b.logger.Warn().
			Str("room_id", roomID).
			Int("seat", seat).
			Str("action", string(d.Action.Type)).
			Str("error", resp.Error).
			Msg("bot action rejected")
	}
}

// strategyFor caches one strategy per difficulty; Decide calls are
// serialized by the scheduler mutex because the shared rng is not
// goroutine safe.
func (b *BotScheduler) strategyFor(difficulty string) bot.Strategy {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.strategies[difficulty]; ok {
		return s
	}
	s := bot.ForDifficulty(difficulty, randutil.NewSeeded(), b.logger)
	b.strategies[difficulty] = s
	return s
}

// scheduleRestart arms the next-round timer once per round end.
func (b *BotScheduler) scheduleRestart(roomID string) {
	b.mu.Lock()
	if b.restarting[roomID] {
		b.mu.Unlock()
		return
	}
	b.restarting[roomID] = true
	b.mu.Unlock()

	b.clock.AfterFunc(b.h.cfg.Timers.RoundDelay(), func() {
		b.restartRound(roomID)
	})
}

func (b *BotScheduler) restartRound(roomID string) {
	defer func() {
		b.mu.Lock()
		delete(b.restarting, roomID)
		b.mu.Unlock()
	}()

	ctx, cancel := timerContext()
	defer cancel()

	lock := b.h.rooms.LockRoom(roomID)
	lock.Lock()
	g, err := b.h.rooms.GetGame(ctx, roomID)
	if err != nil || g.Phase != game.PhaseRoundOver {
		lock.Unlock()
		return
	}
	if err := g.StartNextRound(b.h.rng); err != nil {
		lock.Unlock()
		b.logger.Error().Err(err).Str("room_id", roomID).Msg("failed to start next round")
		return
	}
	if err := b.h.rooms.Save(ctx, g); err != nil {
		lock.Unlock()
		return
	}
	views := b.h.captureViews(g)

	// A fresh round is a checkpoint; the runaway cap guards against
	// loops within one round, not long all-bot matches.
	b.mu.Lock()
	b.depth[roomID] = 0
	b.mu.Unlock()

	b.MaybeSchedule(roomID, g)
	lock.Unlock()

	b.h.broadcastViews(roomID, views, true)
}

// archive snapshots a finished match for history, at most once per
// room. The room itself stays until its TTL lapses so clients can read
// the final screen.
func (b *BotScheduler) archive(roomID string, g *game.Game) {
	b.mu.Lock()
	if b.archived[roomID] {
		b.mu.Unlock()
		return
	}
	b.archived[roomID] = true
	b.mu.Unlock()

	ctx, cancel := timerContext()
	defer cancel()
	if _, err := b.h.rooms.ArchiveMatch(ctx, g); err != nil {
		b.logger.Error().Err(err).Str("room_id", roomID).Msg("match archive failed")
		// Unlatch so the next game-over observation retries.
		b.mu.Lock()
		delete(b.archived, roomID)
		b.mu.Unlock()
	}
}
