// ghostwatch - follow a ghostscan server's scanner events from the terminal
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/ghostscan/internal/config"
	"github.com/teslashibe/ghostscan/internal/log"
	"github.com/teslashibe/ghostscan/pkg/hub"
)

func main() {
	serverURL := flag.String("url", config.ServerURL(config.DefaultServerURL), "ghostscan server URL")
	start := flag.Bool("start", false, "Start a scan before following events")
	exitOn := flag.String("exit-on", "", "Exit after the first event of this type (e.g. decoded)")
	logLevel := flag.String("log-level", config.LogLevel("info"), "Log level: debug, info, warn, error")
	flag.Parse()

	log.InitWriter(os.Stderr, *logLevel)
	logger := log.Component("ghostwatch")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	w := NewWatcher(*serverURL, os.Stdout, logger)

	var until func(hub.Event) bool
	if *exitOn != "" {
		until = func(e hub.Event) bool { return e.Type == *exitOn }
	}

	// Connect before starting so the first events are not missed.
	conn, err := w.Connect(ctx)
	if err != nil {
		logger.Error("connect failed", "error", err)
		os.Exit(1)
	}

	if *start {
		if err := w.Start(ctx); err != nil {
			logger.Error("start failed", "error", err)
			conn.Close()
			os.Exit(1)
		}
	}

	if err := w.Follow(ctx, conn, until); err != nil && ctx.Err() == nil {
		logger.Error("event stream failed", "error", err)
		os.Exit(1)
	}
}
