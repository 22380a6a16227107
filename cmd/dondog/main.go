package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dondog-go/internal/app"
	"dondog-go/internal/transport/httpserver"
	"dondog-go/pkg/logger"
)

// Account deletions in flight get the full timeout to reach a checkpoint.
const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(run(logger.NewFromEnv()))
}

func run(log logger.Logger) int {
	log.Info("app: starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(log)
	if err != nil {
		log.Critical("app: init failed", "err", err)
		return 1
	}
	defer func() {
		if err := application.Close(); err != nil {
			log.Error("app: close failed", "err", err)
		}
	}()

	if err := httpserver.Serve(ctx, application.HTTPServer(), shutdownTimeout, log); err != nil {
		log.Critical("http: server failed", "err", err)
		return 1
	}

	log.Info("app: stopped")
	return 0
}
