package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yungbote/docindex/internal/app"
	"github.com/yungbote/docindex/internal/cli"
	"github.com/yungbote/docindex/internal/platform/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetFactory(func(ctx context.Context) (*cli.Services, func(), error) {
		app.LoadDotEnv()
		cfg, err := app.LoadConfig()
		if err != nil {
			return nil, nil, err
		}
		// stdout carries MCP frames.
		log, err := logger.New("cli")
		if err != nil {
			return nil, nil, err
		}
		a, err := app.New(ctx, log, cfg)
		if err != nil {
			return nil, nil, err
		}
		a.Start(ctx)
		return &cli.Services{
			Builder: a.Services.Builder,
			Stale:   a.Services.Detector,
			Search:  a.Services.Query,
		}, a.Close, nil
	})

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
