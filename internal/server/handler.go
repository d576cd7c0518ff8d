package server

import (
	"context"
	"errors"
	rand "math/rand/v2"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"github.com/balootlabs/balootd/internal/deck"
	"github.com/balootlabs/balootd/internal/game"
	"github.com/balootlabs/balootd/internal/room"
)

// Broadcaster fans a message out to one seated client. The socket
// layer implements it; tests substitute a recorder.
type Broadcaster interface {
	SendToSeat(roomID string, seat int, msg *Message)
}

// Handler is the ingress pipeline: every game mutation, human or bot,
// funnels through act under the per-room lock. Broadcast happens after
// the lock is released, from views captured while it was held.
type Handler struct {
	rooms  *room.Manager
	cfg    *Config
	clock  quartz.Clock
	logger zerolog.Logger
	sender Broadcaster
	bots   *BotScheduler
	rng    *rand.Rand
}

// NewHandler wires the pipeline. The scheduler is attached afterwards
// because it re-enters the handler. The rng is shared across rooms and
// must be concurrency-safe (randutil.NewLocked or NewLockedSeeded).
func NewHandler(rooms *room.Manager, cfg *Config, clock quartz.Clock, sender Broadcaster, rng *rand.Rand, logger zerolog.Logger) *Handler {
	return &Handler{
		rooms:  rooms,
		cfg:    cfg,
		clock:  clock,
		logger: logger.With().Str("component", "handler").Logger(),
		sender: sender,
		rng:    rng,
	}
}

// AttachScheduler completes the handler/scheduler cycle.
func (h *Handler) AttachScheduler(b *BotScheduler) {
	h.bots = b
}

// AttachSender wires the socket layer in after construction; the
// server and the handler reference each other.
func (h *Handler) AttachSender(s Broadcaster) {
	h.sender = s
}

// CreateRoom makes an empty room.
func (h *Handler) CreateRoom(ctx context.Context) CreateRoomResponse {
	roomID, err := h.rooms.CreateRoom(ctx)
	if err != nil {
		return CreateRoomResponse{Success: false, Error: "could not create room"}
	}
	return CreateRoomResponse{Success: true, RoomID: roomID}
}

// JoinRoom seats a player. Rejoining an existing seat by the same name
// reconnects rather than reseats.
func (h *Handler) JoinRoom(ctx context.Context, data JoinRoomData) JoinRoomResponse {
	if data.RoomID == "" || data.PlayerName == "" {
		return JoinRoomResponse{Success: false, PlayerIndex: -1, Error: "roomId and playerName are required"}
	}
	lock := h.rooms.LockRoom(data.RoomID)
	lock.Lock()

	g, err := h.rooms.GetGame(ctx, data.RoomID)
	if err != nil {
		lock.Unlock()
		return JoinRoomResponse{Success: false, PlayerIndex: -1, Error: errorMessage(err)}
	}

	seat := g.FindSeat(data.PlayerName)
	if seat >= 0 {
		g.Seats[seat].Connected = true
	} else {
		seat, err = g.AddPlayer(data.PlayerName, false, "", h.rng)
		if err != nil {
			lock.Unlock()
			return JoinRoomResponse{Success: false, PlayerIndex: -1, Error: errorMessage(err)}
		}
	}
	if err := h.rooms.Save(ctx, g); err != nil {
		lock.Unlock()
		return JoinRoomResponse{Success: false, PlayerIndex: -1, Error: errorMessage(err)}
	}
	views := h.captureViews(g)
	selfView := g.View(seat)
	started := g.Phase == game.PhaseBidding
	if h.bots != nil {
		h.bots.MaybeSchedule(data.RoomID, g)
	}
	lock.Unlock()

	h.broadcastViews(data.RoomID, views, started)
	return JoinRoomResponse{Success: true, PlayerIndex: seat, GameState: selfView}
}

// AddBot seats a bot at the next free seat.
func (h *Handler) AddBot(ctx context.Context, roomID string) ActionResponse {
	lock := h.rooms.LockRoom(roomID)
	lock.Lock()

	g, err := h.rooms.GetGame(ctx, roomID)
	if err != nil {
		lock.Unlock()
		return errorResponse(err)
	}
	name := botName(g)
	difficulty := g.Settings.BotDifficulty
	if _, err := g.AddPlayer(name, true, difficulty, h.rng); err != nil {
		lock.Unlock()
		return errorResponse(err)
	}
	if err := h.rooms.Save(ctx, g); err != nil {
		lock.Unlock()
		return errorResponse(err)
	}
	views := h.captureViews(g)
	started := g.Phase == game.PhaseBidding
	if h.bots != nil {
		h.bots.MaybeSchedule(roomID, g)
	}
	lock.Unlock()

	h.broadcastViews(roomID, views, started)
	return ActionResponse{Success: true}
}

// GameAction is the human entry point: resolves the seat by player
// name and runs the pipeline. Rate limiting happened at the
// connection.
func (h *Handler) GameAction(ctx context.Context, playerName string, data GameActionData) ActionResponse {
	if h.bots != nil {
		h.bots.NoteHumanAction(data.RoomID)
	}
	return h.act(ctx, data.RoomID, playerName, data.Action, false, "")
}

// DebugAction handles the debug command surface, only honored when
// the room runs with isDebug.
func (h *Handler) DebugAction(ctx context.Context, playerName string, data DebugActionData) DebugResponse {
	lock := h.rooms.LockRoom(data.RoomID)
	lock.Lock()
	g, err := h.rooms.GetGame(ctx, data.RoomID)
	if err != nil {
		lock.Unlock()
		return DebugResponse{Success: false, Error: errorMessage(err)}
	}
	if !g.Settings.IsDebug {
		lock.Unlock()
		return DebugResponse{Success: false, Error: "debug actions are disabled"}
	}

	switch data.Command {
	case "action":
		lock.Unlock()
		if data.Action == nil {
			return DebugResponse{Success: false, Error: "action command needs an action"}
		}
		a := *data.Action
		a.SkipProfessor = true
		resp := h.act(ctx, data.RoomID, playerName, a, false, "")
		return DebugResponse{Success: resp.Success, Error: resp.Error}

	case "set_hand":
		return h.debugSetHand(ctx, lock, g, data)

	case "dump_state":
		raw, err := g.Encode()
		lock.Unlock()
		if err != nil {
			return DebugResponse{Success: false, Error: err.Error()}
		}
		return DebugResponse{Success: true, State: raw}

	default:
		lock.Unlock()
		return DebugResponse{Success: false, Error: "unknown debug command"}
	}
}

// debugSetHand overwrites a seat's cards. Intentionally skips the
// deck census: half the point is forcing impossible positions.
func (h *Handler) debugSetHand(ctx context.Context, lock *sync.Mutex, g *game.Game, data DebugActionData) DebugResponse {
	if data.Seat < 0 || data.Seat >= game.NumSeats || g.Seats[data.Seat] == nil {
		lock.Unlock()
		return DebugResponse{Success: false, Error: "no player at that seat"}
	}
	hand := make([]deck.Card, 0, len(data.Cards))
	for _, s := range data.Cards {
		c, err := deck.ParseCard(s)
		if err != nil {
			lock.Unlock()
			return DebugResponse{Success: false, Error: err.Error()}
		}
		hand = append(hand, c)
	}
	g.Seats[data.Seat].Hand = hand
	if err := h.rooms.Save(ctx, g); err != nil {
		lock.Unlock()
		return DebugResponse{Success: false, Error: errorMessage(err)}
	}
	views := h.captureViews(g)
	lock.Unlock()

	h.broadcastViews(data.RoomID, views, false)
	return DebugResponse{Success: true}
}

// act runs pipeline steps 3..8 for one action.
func (h *Handler) act(ctx context.Context, roomID, playerName string, a game.Action, fromBot bool, say string) ActionResponse {
	if !game.KnownActions[a.Type] {
		return ActionResponse{Success: false, ErrorCode: "InvalidPayload", Error: "unknown action type"}
	}

	lock := h.rooms.LockRoom(roomID)
	lock.Lock()

	g, err := h.rooms.GetGame(ctx, roomID)
	if err != nil {
		lock.Unlock()
		return errorResponse(err)
	}
	seat := g.FindSeat(playerName)
	if seat < 0 {
		lock.Unlock()
		return ActionResponse{Success: false, ErrorCode: "InvalidPayload", Error: "player is not seated in this room"}
	}

	// The professor only intercepts live human plays, and only when the
	// room wants hints.
	if a.Type == game.ActionPlay && !fromBot && !a.SkipProfessor && g.Settings.ShowHints {
		if s := professorSuggest(g, seat, a.CardIndex); s != nil {
			lock.Unlock()
			return ActionResponse{
				Success:      false,
				ErrorCode:    "PROFESSOR_INTERVENTION",
				Error:        "the professor suggests a better card",
				Intervention: s,
			}
		}
	}

	fx, err := g.Dispatch(seat, a, h.rng)
	if err != nil {
		lock.Unlock()
		h.logger.Debug().Err(err).Str("room_id", roomID).Str("action", string(a.Type)).Int("seat", seat).Msg("action rejected")
		return ActionResponse{Success: false, ErrorCode: game.Code(err), Error: err.Error()}
	}
	if err := h.rooms.Save(ctx, g); err != nil {
		lock.Unlock()
		h.logger.Error().Err(err).Str("room_id", roomID).Msg("save failed after mutation, suppressing broadcast")
		return errorResponse(err)
	}

	views := h.captureViews(g)
	h.scheduleEffects(roomID, g, fx, g.Epoch)
	lock.Unlock()

	// game_start is reserved for fresh deals, which a bid can trigger
	// via a redeal.
	h.broadcastViews(roomID, views, fx.Redealt)
	if say != "" || fx.Announce != "" {
		h.broadcastSpeak(roomID, views, seat, say, fx.Announce)
	}
	return ActionResponse{Success: true}
}

// scheduleEffects arms the timers an action asked for and keeps the
// bot chain moving. Call it with the room lock held; it only registers
// callbacks, and the callbacks re-validate state when they fire.
func (h *Handler) scheduleEffects(roomID string, g *game.Game, fx game.Effects, epoch uint64) {
	if fx.TrickCompleted {
		seq := fx.TransitionSeq
		h.clock.AfterFunc(h.cfg.Timers.TrickDelay(), func() {
			h.finishTransition(roomID, epoch, seq)
		})
	}
	if fx.SawaOpened {
		seq := fx.SawaSeq
		h.clock.AfterFunc(h.cfg.Timers.SawaWindow(h.allRespondersAreBots(g)), func() {
			h.sawaTimeout(roomID, seq)
		})
	}
	if fx.QaydOpened {
		seq := fx.QaydSeq
		isBot := g.Round != nil && g.Seats[g.Round.Qayd.Reporter] != nil && g.Seats[g.Round.Qayd.Reporter].IsBot
		h.clock.AfterFunc(h.cfg.Timers.QaydWindow(isBot), func() {
			h.qaydTimeout(roomID, seq)
		})
	}
	if h.bots != nil {
		h.bots.MaybeSchedule(roomID, g)
	}
}

// finishTransition clears the table after the trick-display delay.
func (h *Handler) finishTransition(roomID string, epoch, seq uint64) {
	ctx, cancel := timerContext()
	defer cancel()

	lock := h.rooms.LockRoom(roomID)
	lock.Lock()
	g, err := h.rooms.GetGame(ctx, roomID)
	if err != nil {
		lock.Unlock()
		return
	}
	wasTransitioning := g.TrickTransitioning
	g.FinishTrickTransition(epoch, seq)
	if !wasTransitioning || g.TrickTransitioning {
		lock.Unlock()
		return
	}
	if err := h.rooms.Save(ctx, g); err != nil {
		lock.Unlock()
		return
	}
	views := h.captureViews(g)
	if h.bots != nil {
		h.bots.MaybeSchedule(roomID, g)
	}
	lock.Unlock()

	h.broadcastViews(roomID, views, false)
}

func (h *Handler) sawaTimeout(roomID string, seq uint64) {
	ctx, cancel := timerContext()
	defer cancel()

	lock := h.rooms.LockRoom(roomID)
	lock.Lock()
	g, err := h.rooms.GetGame(ctx, roomID)
	if err != nil || g.Round == nil || !g.Round.Sawa.Pending || g.Round.Sawa.Seq != seq {
		lock.Unlock()
		return
	}
	g.SawaTimeout(seq)
	if err := h.rooms.Save(ctx, g); err != nil {
		lock.Unlock()
		return
	}
	views := h.captureViews(g)
	if h.bots != nil {
		h.bots.MaybeSchedule(roomID, g)
	}
	lock.Unlock()

	h.broadcastViews(roomID, views, false)
}

func (h *Handler) qaydTimeout(roomID string, seq uint64) {
	ctx, cancel := timerContext()
	defer cancel()

	lock := h.rooms.LockRoom(roomID)
	lock.Lock()
	g, err := h.rooms.GetGame(ctx, roomID)
	if err != nil || g.Round == nil || g.Phase != game.PhaseQaydActive || g.Round.Qayd.Seq != seq {
		lock.Unlock()
		return
	}
	g.QaydTimeout(seq)
	if err := h.rooms.Save(ctx, g); err != nil {
		lock.Unlock()
		return
	}
	views := h.captureViews(g)
	if h.bots != nil {
		h.bots.MaybeSchedule(roomID, g)
	}
	lock.Unlock()

	h.broadcastViews(roomID, views, false)
}

// captureViews snapshots every seated human's rotated view while the
// lock is still held.
func (h *Handler) captureViews(g *game.Game) map[int]*game.GameView {
	views := make(map[int]*game.GameView, game.NumSeats)
	for seat, p := range g.Seats {
		if p != nil && !p.IsBot {
			views[seat] = g.View(seat)
		}
	}
	return views
}

// broadcastViews runs outside the room lock, over views captured while
// it was held.
func (h *Handler) broadcastViews(roomID string, views map[int]*game.GameView, started bool) {
	if h.sender == nil {
		return
	}
	for seat, v := range views {
		msg, err := NewMessage(MessageTypeGameUpdate, GameUpdateData{GameState: v})
		if err != nil {
			continue
		}
		h.sender.SendToSeat(roomID, seat, msg)
		if started {
			if start, err := NewMessage(MessageTypeGameStart, GameUpdateData{GameState: v}); err == nil {
				h.sender.SendToSeat(roomID, seat, start)
			}
		}
	}
}

// broadcastSpeak fans out a dialogue line or declaration announcement,
// rotated per recipient. The view map's keys are the seated humans, so
// it doubles as the recipient list.
func (h *Handler) broadcastSpeak(roomID string, views map[int]*game.GameView, seat int, say, announce string) {
	if h.sender == nil {
		return
	}
	text := say
	if text == "" {
		text = announce
	}
	for target := range views {
		msg, err := NewMessage(MessageTypeBotSpeak, BotSpeakData{
			PlayerIndex: (seat - target + game.NumSeats) % game.NumSeats,
			Text:        text,
		})
		if err == nil {
			h.sender.SendToSeat(roomID, target, msg)
		}
	}
}

func (h *Handler) allRespondersAreBots(g *game.Game) bool {
	if g.Round == nil || !g.Round.Sawa.Pending {
		return false
	}
	for seat, p := range g.Seats {
		if p == nil || seat == g.Round.Sawa.Claimer {
			continue
		}
		if !p.IsBot && !g.Round.Sawa.Responded[seat] {
			return false
		}
	}
	return true
}

func timerContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func botName(g *game.Game) string {
	names := []string{"Saleh", "Mishal", "Noura", "Khalid"}
	for _, n := range names {
		if g.FindSeat("Bot "+n) < 0 {
			return "Bot " + n
		}
	}
	return "Bot Extra"
}

func errorResponse(err error) ActionResponse {
	return ActionResponse{Success: false, ErrorCode: errorCode(err), Error: errorMessage(err)}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		return "RoomNotFound"
	case errors.Is(err, room.ErrBackend), errors.Is(err, room.ErrCorruptState):
		return "BackendUnavailable"
	default:
		return game.Code(err)
	}
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		return "room not found"
	case errors.Is(err, room.ErrBackend):
		return "storage backend unavailable"
	case errors.Is(err, room.ErrCorruptState):
		return "stored game state is corrupt"
	default:
		return err.Error()
	}
}
