package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/balootlabs/balootd/internal/room"
)

// Server owns the websocket listener and the seat registry used to
// route per-seat broadcasts.
type Server struct {
	cfg      *Config
	handler  *Handler
	rooms    *room.Manager
	logger   zerolog.Logger
	upgrader websocket.Upgrader
	httpSrv  *http.Server

	mu     sync.RWMutex
	byRoom map[string]map[int]*Connection
	conns  map[*Connection]struct{}
}

func NewServer(cfg *Config, handler *Handler, rooms *room.Manager, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		handler: handler,
		rooms:   rooms,
		logger:  logger.With().Str("component", "server").Logger(),
		byRoom:  make(map[string]map[int]*Connection),
		conns:   make(map[*Connection]struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// checkOrigin allows everything in development; production only
// accepts the configured origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	if s.cfg.Server.Environment != "production" {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.Server.CORSOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

// Run serves until the context is cancelled, then drains connections.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	s.httpSrv = &http.Server{
		Addr:         s.cfg.ListenAddr(),
		Handler:      mux,
		ReadTimeout:  0, // websocket connections are long lived
		WriteTimeout: 0,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info().Str("addr", s.httpSrv.Addr).Msg("listening")
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		return s.Stop()
	})
	return g.Wait()
}

// Stop shuts the listener down and closes every client connection.
func (s *Server) Stop() error {
	s.mu.Lock()
	open := make([]*Connection, 0, len(s.conns))
	for c := range s.conns {
		open = append(open, c)
	}
	s.mu.Unlock()
	for _, c := range open {
		_ = c.Close()
	}

	if s.httpSrv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	c := NewConnection(conn, s, s.logger)
	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()
	c.Start()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.rooms.Ping(ctx); err != nil {
		http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// register maps a joined connection to its room and seat. A second
// connection for the same seat replaces the first.
func (s *Server) register(c *Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seats, ok := s.byRoom[c.RoomID()]
	if !ok {
		seats = make(map[int]*Connection)
		s.byRoom[c.RoomID()] = seats
	}
	if old, ok := seats[c.Seat()]; ok && old != c {
		go func() { _ = old.Close() }()
	}
	seats[c.Seat()] = c
}

func (s *Server) unregister(c *Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, c)
	if seats, ok := s.byRoom[c.RoomID()]; ok {
		if seats[c.Seat()] == c {
			delete(seats, c.Seat())
		}
		if len(seats) == 0 {
			delete(s.byRoom, c.RoomID())
		}
	}
}

// SendToSeat implements Broadcaster.
func (s *Server) SendToSeat(roomID string, seat int, msg *Message) {
	s.mu.RLock()
	c := s.byRoom[roomID][seat]
	s.mu.RUnlock()
	if c != nil {
		_ = c.SendMessage(msg)
	}
}
