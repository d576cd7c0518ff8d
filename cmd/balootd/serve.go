package main

import (
	"context"
	"fmt"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/coder/quartz"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/balootlabs/balootd/cmd/balootd/shared"
	"github.com/balootlabs/balootd/internal/randutil"
	"github.com/balootlabs/balootd/internal/room"
	"github.com/balootlabs/balootd/internal/server"
)

// ServeCmd runs the websocket server.
type ServeCmd struct {
	Config      string `kong:"help='Path to HCL config file'"`
	Debug       bool   `kong:"help='Enable debug logging'"`
	JSONLogs    bool   `kong:"name='json-logs',help='Structured JSON logs instead of console output'"`
	Offline     bool   `kong:"help='Run against an embedded in-memory store instead of Redis'"`
	FastForward bool   `kong:"name='fast-forward',help='Divide every game timer by ten (for local testing)'"`
}

func (c *ServeCmd) Run() error {
	var logger zerolog.Logger
	if c.JSONLogs {
		logger = shared.SetupStructuredLogger(c.Debug)
	} else {
		logger = shared.SetupLogger(c.Debug)
	}

	cfg, err := server.LoadConfig(c.Config)
	if err != nil {
		return &exitError{code: 1, err: fmt.Errorf("config: %w", err)}
	}
	if c.Offline {
		cfg.Redis.Offline = true
	}
	if c.FastForward {
		cfg.Timers.FastForward = true
	}

	rdb, cleanup, err := openStore(cfg, logger)
	if err != nil {
		return &exitError{code: 2, err: err}
	}
	defer cleanup()

	rooms := room.NewManager(rdb, logger)
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rooms.Ping(pingCtx); err != nil {
		return &exitError{code: 2, err: fmt.Errorf("storage unreachable at %s: %w", cfg.RedisAddr(), err)}
	}

	clock := quartz.NewReal()
	handler := server.NewHandler(rooms, cfg, clock, nil, randutil.NewLockedSeeded(), logger)
	server.NewBotScheduler(handler, clock, logger)
	srv := server.NewServer(cfg, handler, rooms, logger)
	handler.AttachSender(srv)

	logger.Info().
		Str("address", cfg.ListenAddr()).
		Str("environment", cfg.Server.Environment).
		Bool("offline", cfg.Redis.Offline).
		Bool("fast_forward", cfg.Timers.FastForward).
		Msg("Starting baloot server")

	ctx := shared.SetupSignalHandlerWithLogger(logger)
	if err := srv.Run(ctx); err != nil {
		return &exitError{code: 3, err: fmt.Errorf("listen on %s: %w", cfg.ListenAddr(), err)}
	}
	logger.Info().Msg("Server stopped")
	return nil
}

// openStore connects to Redis, or boots an embedded store when offline
// mode is on. The cleanup closes whichever was opened.
func openStore(cfg *server.Config, logger zerolog.Logger) (redis.UniversalClient, func(), error) {
	if cfg.Redis.Offline {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("embedded store: %w", err)
		}
		logger.Info().Str("addr", mr.Addr()).Msg("Using embedded in-memory store")
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		return rdb, func() { _ = rdb.Close(); mr.Close() }, nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr()})
	return rdb, func() { _ = rdb.Close() }, nil
}
