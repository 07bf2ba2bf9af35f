package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"snak8s/internal/game"
	servernet "snak8s/internal/net"
	"snak8s/internal/net/ws"
	"snak8s/internal/rooms"
	"snak8s/internal/session"
	"snak8s/internal/telemetry"
	"snak8s/logging"
	loggingSinks "snak8s/logging/sinks"
)

const shutdownTimeout = 5 * time.Second

// Run serves until ctx is cancelled or the listener fails, then stops every
// room and flushes the logging router.
func Run(ctx context.Context, cfg Config) error {
	telemetryLogger := cfg.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}

	fallbackLogger := log.Default()
	if provider, ok := telemetryLogger.(interface{ StandardLogger() *log.Logger }); ok {
		if candidate := provider.StandardLogger(); candidate != nil {
			fallbackLogger = candidate
		}
	}

	namedSinks, err := buildSinks(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to construct logging sinks: %w", err)
	}
	router := logging.NewRouter(logging.SystemClock{}, cfg.Logging, fallbackLogger, namedSinks)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	counters := telemetry.NewCounters(cfg.DebugTelemetry, telemetryLogger)

	roomCfg := game.DefaultConfig()
	roomCfg.TickInterval = cfg.TickInterval
	roomCfg.FoodTarget = cfg.FoodTarget
	roomCfg.ComboWindow = cfg.ComboWindow
	roomCfg.Publisher = router
	roomCfg.Logger = telemetryLogger
	roomCfg.Metrics = counters

	registry := rooms.NewRegistry(rooms.Config{Room: roomCfg, Seed: cfg.Seed})
	defer registry.Close()

	sessions := session.NewRouter(registry, telemetryLogger)
	socket := ws.NewHandler(sessions, ws.HandlerConfig{
		Logger:     telemetryLogger,
		Publisher:  router,
		Metrics:    counters,
		SendBuffer: cfg.SendBuffer,
	})
	defer socket.Close()

	handler := servernet.NewHTTPHandler(registry, socket, servernet.HTTPHandlerConfig{
		ClientDir:    cfg.ClientDir,
		TickInterval: cfg.TickInterval,
		Logger:       telemetryLogger,
		Counters:     counters,
	})

	srv := &http.Server{Addr: cfg.Addr(), Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		telemetryLogger.Printf("server listening on %s", srv.Addr)
		err := srv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		serveErr <- err
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	telemetryLogger.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	if err := <-serveErr; err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func buildSinks(cfg logging.Config) ([]logging.NamedSink, error) {
	var namedSinks []logging.NamedSink
	if cfg.HasSink("console") {
		namedSinks = append(namedSinks, logging.NamedSink{Name: "console", Sink: loggingSinks.NewConsoleSink(os.Stdout)})
	}
	if cfg.HasSink("json") && cfg.JSON.FilePath != "" {
		file, err := os.OpenFile(cfg.JSON.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open json log %s: %w", cfg.JSON.FilePath, err)
		}
		namedSinks = append(namedSinks, logging.NamedSink{Name: "json", Sink: loggingSinks.NewJSON(file, cfg.JSON.FlushInterval)})
	}
	return namedSinks, nil
}
