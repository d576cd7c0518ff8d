package main

import (
	"context"
	"fmt"
	"time"

	"github.com/balootlabs/balootd/cmd/balootd/shared"
	"github.com/balootlabs/balootd/internal/room"
	"github.com/balootlabs/balootd/internal/server"
)

// RoomsCmd lists the rooms currently stored on the backend, with seat
// occupancy and phase. Useful when poking at a live deployment.
type RoomsCmd struct {
	Config string `kong:"help='Path to HCL config file'"`
}

func (c *RoomsCmd) Run() error {
	logger := shared.SetupLogger(false)

	cfg, err := server.LoadConfig(c.Config)
	if err != nil {
		return &exitError{code: 1, err: fmt.Errorf("config: %w", err)}
	}

	rdb, cleanup, err := openStore(cfg, logger)
	if err != nil {
		return &exitError{code: 2, err: err}
	}
	defer cleanup()

	rooms := room.NewManager(rdb, logger)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ids, err := rooms.EnumerateRooms(ctx)
	if err != nil {
		return &exitError{code: 2, err: err}
	}
	if len(ids) == 0 {
		fmt.Println("no active rooms")
		return nil
	}
	for _, id := range ids {
		g, err := rooms.GetGame(ctx, id)
		if err != nil {
			fmt.Printf("%s\t<unreadable: %v>\n", id, err)
			continue
		}
		fmt.Printf("%s\tseats=%d/4\tphase=%s\tscore=%d:%d\n",
			id, g.SeatedCount(), g.Phase, g.Match.UsScore, g.Match.ThemScore)
	}
	return nil
}
