package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"humanizer-backend/internal/bootstrap"
	"humanizer-backend/internal/shared/config"
	"humanizer-backend/internal/workerproc"
)

const defaultShutdownTimeoutSec = 30

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTimeout := time.Duration(envInt("HB_SHUTDOWN_TIMEOUT_SECONDS", defaultShutdownTimeoutSec)) * time.Second

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	if app.Humanizer == nil {
		log.Fatal("HUMANIZER_URL is required for the worker")
	}

	worker := &workerproc.Worker{
		Proc:           app.JobsService,
		PollInterval:   cfg.PollInterval,
		ErrorThreshold: cfg.ErrorThreshold,
	}

	log.Printf("worker started poll_interval=%s error_threshold=%d", cfg.PollInterval, cfg.ErrorThreshold)

	done := make(chan error, 1)
	go func() {
		done <- worker.Run(ctx)
	}()

	<-ctx.Done()
	log.Printf("shutdown requested, waiting up to %s for in-flight job", shutdownTimeout)

	select {
	case err := <-done:
		if err != nil {
			log.Printf("worker exited with error: %v", err)
		}
	case <-time.After(shutdownTimeout):
		log.Printf("shutdown timeout reached; exiting with in-flight job")
	}
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return val
}
