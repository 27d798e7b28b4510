package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hailam/rizzi/internal/app"
	"github.com/hailam/rizzi/internal/config"
	"github.com/hailam/rizzi/internal/server"
)

const shutdownTimeout = 5 * time.Second

func main() {
	flags := config.RegisterFlags(flag.CommandLine)
	flag.Parse()

	a, err := app.Open(flags, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := run(a); err != nil {
		a.Log.Error().Err(err).Msg("server")
		a.Close()
		os.Exit(1)
	}
	if err := a.Close(); err != nil {
		a.Log.Error().Err(err).Msg("shutdown")
	}
}

func run(a *app.App) error {
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	srv := &http.Server{
		Addr:              a.Config.Get().ListenAddr,
		Handler:           server.New(a.Engine, a.Config, a.Log).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(sigCtx)
	g.Go(func() error {
		a.Log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		a.Log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Warn().Err(err).Msg("graceful shutdown failed")
			return srv.Close()
		}
		return nil
	})
	return g.Wait()
}
