package server

import (
	"encoding/json"
	"time"

	"github.com/balootlabs/balootd/internal/game"
)

// MessageType tags a websocket frame.
type MessageType string

const (
	// Client to server
	MessageTypeCreateRoom  MessageType = "create_room"
	MessageTypeJoinRoom    MessageType = "join_room"
	MessageTypeAddBot      MessageType = "add_bot"
	MessageTypeGameAction  MessageType = "game_action"
	MessageTypeDebugAction MessageType = "debug_action"

	// Server to client
	MessageTypeGameUpdate MessageType = "game_update"
	MessageTypeGameStart  MessageType = "game_start"
	MessageTypeBotSpeak   MessageType = "bot_speak"
	MessageTypeError      MessageType = "error"
	MessageTypeResponse   MessageType = "response"
)

func (mt MessageType) String() string {
	return string(mt)
}

// Message is the framed websocket envelope.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage wraps a payload with the current timestamp.
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → server payloads

type JoinRoomData struct {
	RoomID        string `json:"roomId"`
	PlayerName    string `json:"playerName"`
	BotDifficulty string `json:"botDifficulty,omitempty"`
}

type AddBotData struct {
	RoomID string `json:"roomId"`
}

type GameActionData struct {
	RoomID string      `json:"roomId"`
	Action game.Action `json:"action"`
}

// DebugActionData is only honored in rooms running with isDebug.
// Commands: "action" (pipeline without the professor), "set_hand"
// (overwrite a seat's cards), "dump_state" (raw unrotated state).
type DebugActionData struct {
	RoomID  string       `json:"roomId"`
	Command string       `json:"command"`
	Seat    int          `json:"seat,omitempty"`
	Cards   []string     `json:"cards,omitempty"`
	Action  *game.Action `json:"action,omitempty"`
}

// Server → client payloads

type CreateRoomResponse struct {
	Success bool   `json:"success"`
	RoomID  string `json:"roomId,omitempty"`
	Error   string `json:"error,omitempty"`
}

type JoinRoomResponse struct {
	Success     bool           `json:"success"`
	PlayerIndex int            `json:"playerIndex"`
	GameState   *game.GameView `json:"gameState,omitempty"`
	Error       string         `json:"error,omitempty"`
}

type ActionResponse struct {
	Success      bool        `json:"success"`
	Error        string      `json:"error,omitempty"`
	ErrorCode    string      `json:"errorCode,omitempty"`
	Intervention *Suggestion `json:"intervention,omitempty"`
}

type DebugResponse struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	State   json.RawMessage `json:"state,omitempty"`
}

type GameUpdateData struct {
	GameState *game.GameView `json:"gameState"`
}

type BotSpeakData struct {
	PlayerIndex int    `json:"playerIndex"`
	Text        string `json:"text"`
	Emotion     string `json:"emotion,omitempty"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
