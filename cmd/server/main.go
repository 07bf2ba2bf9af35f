package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"snak8s/internal/app"
	"snak8s/internal/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := telemetry.WrapLogger(log.Default())
	cfg, err := app.LoadConfig(app.DefaultEnvFile, logger)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if err := app.Run(ctx, cfg); err != nil {
		log.Fatalf("%v", err)
	}
}
