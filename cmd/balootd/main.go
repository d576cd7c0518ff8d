package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version kong.VersionFlag `short:"v" help:"Show version"`
	Serve   ServeCmd         `cmd:"" default:"1" help:"Run the baloot server"`
	Rooms   RoomsCmd         `cmd:"" help:"List active rooms on the storage backend"`
}

// exitError carries a process exit code: 1 config, 2 storage, 3 bind.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("balootd"),
		kong.Description("Authoritative multiplayer baloot server"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	if err := ctx.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "balootd:", err)
		var ec *exitError
		if errors.As(err, &ec) {
			os.Exit(ec.code)
		}
		os.Exit(1)
	}
}
