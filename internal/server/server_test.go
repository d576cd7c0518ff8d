package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, e *env) (*Server, *httptest.Server) {
	t.Helper()
	srv := NewServer(e.cfg, e.handler, e.rooms, zerolog.Nop())
	e.handler.AttachSender(srv)
	ts := httptest.NewServer(http.HandlerFunc(srv.handleWebSocket))
	t.Cleanup(ts.Close)
	return srv, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	return ws
}

func request(t *testing.T, ws *websocket.Conn, mt MessageType, payload interface{}, requestID string) Message {
	t.Helper()
	req, err := NewMessage(mt, payload)
	require.NoError(t, err)
	req.RequestID = requestID
	require.NoError(t, ws.WriteJSON(req))

	var resp Message
	require.NoError(t, ws.ReadJSON(&resp))
	return resp
}

func TestWebSocketCreateAndJoin(t *testing.T) {
	e := newEnv(t)
	_, ts := newTestServer(t, e)
	ws := dial(t, ts)

	resp := request(t, ws, MessageTypeCreateRoom, struct{}{}, "r1")
	require.Equal(t, MessageTypeResponse, resp.Type)
	assert.Equal(t, "r1", resp.RequestID)

	var created CreateRoomResponse
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	require.True(t, created.Success)
	require.NotEmpty(t, created.RoomID)

	resp = request(t, ws, MessageTypeJoinRoom, JoinRoomData{RoomID: created.RoomID, PlayerName: "Aziz"}, "r2")
	require.Equal(t, MessageTypeResponse, resp.Type)

	var joined JoinRoomResponse
	require.NoError(t, json.Unmarshal(resp.Data, &joined))
	require.True(t, joined.Success)
	assert.Equal(t, 0, joined.PlayerIndex)
	require.NotNil(t, joined.GameState)
}

func TestWebSocketUnknownType(t *testing.T) {
	e := newEnv(t)
	_, ts := newTestServer(t, e)
	ws := dial(t, ts)

	resp := request(t, ws, MessageType("teleport"), struct{}{}, "r1")
	require.Equal(t, MessageTypeError, resp.Type)

	var errData ErrorData
	require.NoError(t, json.Unmarshal(resp.Data, &errData))
	assert.Equal(t, "InvalidPayload", errData.Code)
}

func TestWebSocketRateLimit(t *testing.T) {
	e := newEnv(t)
	e.cfg.Limits.ActionsPerSecond = 0.001
	e.cfg.Limits.Burst = 1
	_, ts := newTestServer(t, e)
	ws := dial(t, ts)

	resp := request(t, ws, MessageTypeCreateRoom, struct{}{}, "r1")
	require.Equal(t, MessageTypeResponse, resp.Type)

	resp = request(t, ws, MessageTypeCreateRoom, struct{}{}, "r2")
	require.Equal(t, MessageTypeError, resp.Type)

	var errData ErrorData
	require.NoError(t, json.Unmarshal(resp.Data, &errData))
	assert.Equal(t, "RateLimited", errData.Code)
}

func TestCheckOrigin(t *testing.T) {
	e := newEnv(t)
	srv := NewServer(e.cfg, e.handler, e.rooms, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	assert.True(t, srv.checkOrigin(req), "development allows any origin")

	e.cfg.Server.Environment = "production"
	e.cfg.Server.CORSOrigins = []string{"https://baloot.example"}
	assert.False(t, srv.checkOrigin(req))

	req.Header.Set("Origin", "https://baloot.example")
	assert.True(t, srv.checkOrigin(req))

	req.Header.Del("Origin")
	assert.True(t, srv.checkOrigin(req), "non-browser clients send no origin")
}

func TestHealthEndpoint(t *testing.T) {
	e := newEnv(t)
	srv := NewServer(e.cfg, e.handler, e.rooms, zerolog.Nop())

	rec := httptest.NewRecorder()
	srv.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	e.mr.SetError("backend down")
	rec = httptest.NewRecorder()
	srv.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSendToSeatRoutesToRegisteredConnection(t *testing.T) {
	e := newEnv(t)
	srv, ts := newTestServer(t, e)
	ws := dial(t, ts)

	resp := request(t, ws, MessageTypeCreateRoom, struct{}{}, "r1")
	var created CreateRoomResponse
	require.NoError(t, json.Unmarshal(resp.Data, &created))

	resp = request(t, ws, MessageTypeJoinRoom, JoinRoomData{RoomID: created.RoomID, PlayerName: "Aziz"}, "r2")
	var joined JoinRoomResponse
	require.NoError(t, json.Unmarshal(resp.Data, &joined))
	require.True(t, joined.Success)

	msg, err := NewMessage(MessageTypeBotSpeak, BotSpeakData{PlayerIndex: 1, Text: "ya hala"})
	require.NoError(t, err)
	srv.SendToSeat(created.RoomID, 0, msg)

	var got Message
	require.NoError(t, ws.ReadJSON(&got))
	assert.Equal(t, MessageTypeBotSpeak, got.Type)
}
