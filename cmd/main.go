package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yungbote/docindex/internal/app"
	httpapi "github.com/yungbote/docindex/internal/http"
	"github.com/yungbote/docindex/internal/platform/logger"
)

func main() {
	app.LoadDotEnv()
	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, log, cfg)
	if err != nil {
		log.Error("app init failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	engine, err := a.Router()
	if err != nil {
		log.Error("router init failed", "error", err)
		os.Exit(1)
	}
	a.Start(ctx)

	log.Info("Server running", "addr", cfg.HTTPAddr, "vector_provider", cfg.VectorProvider)
	server := &httpapi.Server{Engine: engine}
	if err := server.Run(ctx, cfg.HTTPAddr, 15*time.Second); err != nil {
		log.Error("Server failed", "error", err)
		os.Exit(1)
	}
	log.Info("Server stopped")
}
