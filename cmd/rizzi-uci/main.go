package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hailam/rizzi/internal/app"
	"github.com/hailam/rizzi/internal/config"
	"github.com/hailam/rizzi/internal/uci"
)

func main() {
	flags := config.RegisterFlags(flag.CommandLine)
	flag.Parse()

	// stdout belongs to the protocol, so logs go to stderr.
	a, err := app.Open(flags, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	protocol := uci.New(a.Engine, a.Config, a.Log)
	protocol.SavePreferences = a.SavePreferences

	runErr := protocol.Run(ctx, os.Stdin, os.Stdout)
	if err := a.Close(); err != nil {
		a.Log.Error().Err(err).Msg("shutdown")
	}
	if runErr != nil && ctx.Err() == nil {
		a.Log.Error().Err(runErr).Msg("uci loop")
		os.Exit(1)
	}
}
