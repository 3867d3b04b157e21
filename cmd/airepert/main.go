package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/airepert/airepert/pkg/actuator"
	"github.com/airepert/airepert/pkg/controller"
	"github.com/airepert/airepert/pkg/forecast"
	"github.com/airepert/airepert/pkg/log"
	"github.com/airepert/airepert/pkg/metrics"
	"github.com/airepert/airepert/pkg/server"
	"github.com/airepert/airepert/pkg/storage"

	"github.com/levenlabs/go-lflag"
	"github.com/levenlabs/go-llog"
)

func main() {
	// init packages
	s := storage.Configured()
	f := forecast.Configured()
	a := actuator.Configured()
	m := metrics.New()

	f.SetMetrics(m)
	c := controller.NewController(f, s)
	c.SetActuator(a)
	c.SetMetrics(m)

	// init server
	srv := server.Configured(s, f, c, m)

	// parse flags
	lflag.Configure()

	var level slog.Level
	// lflag automatically sets llog's level, but we need to set the slog level
	switch llog.GetLevel() {
	case llog.DebugLevel:
		level = slog.LevelDebug
	case llog.InfoLevel:
		level = slog.LevelInfo
	case llog.WarnLevel:
		level = slog.LevelWarn
	case llog.ErrorLevel:
		level = slog.LevelError
	default:
		panic(fmt.Errorf("unknown log level: %s", llog.GetLevel().String()))
	}

	log.Configure(level)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	log.Ctx(ctx).DebugContext(ctx, "logger configured", slog.String("level", level.String()))

	defer func() {
		a.Close()
		if err := s.Close(); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to close storage", "error", err)
		}
	}()

	// Run will block until context is canceled or error happens
	if err := srv.Run(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "server failed", "error", err)
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "server exited cleanly")
}
