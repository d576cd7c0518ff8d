package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var ErrConnectionClosed = websocket.ErrCloseSent

// Connection wraps one websocket client. It remembers which room and
// seat the client joined so the server can route broadcasts back.
type Connection struct {
	conn    *websocket.Conn
	send    chan *Message
	server  *Server
	limiter *rate.Limiter
	logger  zerolog.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu         sync.RWMutex
	playerName string
	roomID     string
	seat       int
}

func NewConnection(conn *websocket.Conn, srv *Server, logger zerolog.Logger) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		conn:    conn,
		send:    make(chan *Message, 256),
		server:  srv,
		limiter: rate.NewLimiter(rate.Limit(srv.cfg.Limits.ActionsPerSecond), srv.cfg.Limits.Burst),
		logger:  logger.With().Str("component", "conn").Logger(),
		ctx:     ctx,
		cancel:  cancel,
		seat:    -1,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
		c.server.unregister(c)
	})
	return err
}

// SendMessage queues a message for the client. A full send buffer
// closes the connection rather than blocking the game loop.
func (c *Connection) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Debug().Interface("panic", r).Msg("send on closed connection")
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn().Str("player", c.PlayerName()).Msg("send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

func (c *Connection) setSeat(roomID, playerName string, seat int) {
	c.mu.Lock()
	c.roomID = roomID
	c.playerName = playerName
	c.seat = seat
	c.mu.Unlock()
}

func (c *Connection) PlayerName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerName
}

func (c *Connection) RoomID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomID
}

func (c *Connection) Seat() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.seat
}

func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error().Err(err).Msg("websocket error")
			}
			break
		}

		c.handleMessage(&msg)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error().Err(err).Msg("failed to write message")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage routes one inbound frame. The rate limiter gates
// everything mutating; when the token bucket is dry the action is
// rejected, never queued.
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug().Str("type", msg.Type.String()).Str("player", c.PlayerName()).Msg("received message")

	if !c.limiter.Allow() {
		c.reply(msg, MessageTypeError, ErrorData{Code: "RateLimited", Message: "too many actions, slow down"})
		return
	}

	ctx, cancel := context.WithTimeout(c.ctx, 10*time.Second)
	defer cancel()

	switch msg.Type {
	case MessageTypeCreateRoom:
		resp := c.server.handler.CreateRoom(ctx)
		c.reply(msg, MessageTypeResponse, resp)

	case MessageTypeJoinRoom:
		var data JoinRoomData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError(msg, "InvalidPayload", "failed to parse join room data")
			return
		}
		resp := c.server.handler.JoinRoom(ctx, data)
		if resp.Success {
			c.setSeat(data.RoomID, data.PlayerName, resp.PlayerIndex)
			c.server.register(c)
		}
		c.reply(msg, MessageTypeResponse, resp)

	case MessageTypeAddBot:
		var data AddBotData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError(msg, "InvalidPayload", "failed to parse add bot data")
			return
		}
		c.reply(msg, MessageTypeResponse, c.server.handler.AddBot(ctx, data.RoomID))

	case MessageTypeGameAction:
		var data GameActionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError(msg, "InvalidPayload", "failed to parse game action data")
			return
		}
		c.reply(msg, MessageTypeResponse, c.server.handler.GameAction(ctx, c.PlayerName(), data))

	case MessageTypeDebugAction:
		var data DebugActionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError(msg, "InvalidPayload", "failed to parse debug action data")
			return
		}
		c.reply(msg, MessageTypeResponse, c.server.handler.DebugAction(ctx, c.PlayerName(), data))

	default:
		c.sendError(msg, "InvalidPayload", "unknown message type: "+msg.Type.String())
	}
}

// reply echoes the request id so clients can correlate responses.
func (c *Connection) reply(req *Message, mt MessageType, payload interface{}) {
	msg, err := NewMessage(mt, payload)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to encode response")
		return
	}
	msg.RequestID = req.RequestID
	_ = c.SendMessage(msg)
}

func (c *Connection) sendError(req *Message, code, message string) {
	c.reply(req, MessageTypeError, ErrorData{Code: code, Message: message})
}
