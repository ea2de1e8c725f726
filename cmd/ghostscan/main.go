// ghostscan - camera QR scanner for ghost commerce payments
// Serves the scanner API, or runs one headless scan with -once
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/ghostscan/internal/log"
	"github.com/teslashibe/ghostscan/pkg/capture"
	"github.com/teslashibe/ghostscan/pkg/ghost"
	"github.com/teslashibe/ghostscan/pkg/scanner"
)

// Exit codes for -once.
const (
	exitOK      = 0
	exitFailed  = 1
	exitDenied  = 2
	exitTimeout = 3
)

func main() {
	cfg, once, timeout := parseFlags()

	if once {
		log.InitWriter(os.Stderr, cfg.LogLevel)
	} else {
		log.Init(cfg.LogLevel)
	}
	logger := log.Component("ghostscan")

	app, err := ghost.New(cfg, logger)
	if err != nil {
		logger.Error("configuration error", "error", err)
		os.Exit(exitFailed)
	}
	if err := app.Init(); err != nil {
		logger.Error("initialization failed", "error", err)
		os.Exit(exitFailed)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if once {
		code := scanOnce(ctx, app, timeout)
		app.Shutdown()
		cancel()
		os.Exit(code)
	}

	defer app.Shutdown()
	if err := app.Run(ctx); err != nil {
		logger.Error("runtime error", "error", err)
	}
}

func scanOnce(ctx context.Context, app *ghost.App, timeout time.Duration) int {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	entry, err := app.Scan(ctx)
	switch {
	case err == nil:
		fmt.Println(entry.Payload)
		return exitOK
	case scanner.IsPermissionDenied(err):
		log.Error("camera unavailable", "error", err)
		return exitDenied
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn("no symbol before timeout", "timeout", timeout)
		return exitTimeout
	default:
		log.Error("scan failed", "error", err)
		return exitFailed
	}
}

// parseFlags parses command line flags and returns configuration.
// Environment variables set the flag defaults, so explicit flags win.
func parseFlags() (ghost.Config, bool, time.Duration) {
	cfg := ghost.DefaultConfig()
	cfg.LoadEnvConfig()

	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	debugFrames := flag.Bool("debug-frames", false, "Log every scanner tick (very verbose)")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	port := flag.String("port", cfg.Port, "HTTP listen port")
	backend := flag.String("backend", string(cfg.Camera.Backend), "Camera backend: auto, webcam, mock")
	facing := flag.String("facing", string(cfg.Camera.Facing), "Camera preference: environment, user")
	preset := flag.String("preset", "", "Camera preset: "+fmt.Sprint(capture.PresetNames()))
	device := flag.Int("device", cfg.Camera.EnvironmentDevice, "Rear camera device index")
	userDevice := flag.Int("user-device", cfg.Camera.UserDevice, "Front camera device index")
	decoder := flag.String("decoder", cfg.Decoder, "QR decoder: zxing, opencv")
	refresh := flag.Int("refresh", cfg.RefreshRate, "Scanner tick rate in Hz")
	ledgerCap := flag.Int("ledger", cfg.LedgerCapacity, "Number of ledger entries kept in memory")
	bell := flag.Bool("bell", false, "Ring the terminal bell on a successful scan")
	once := flag.Bool("once", false, "Scan a single symbol, print its payload and exit")
	timeout := flag.Duration("timeout", 0, "Give up after this long in -once mode (0 waits forever)")
	flag.Parse()

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg.Camera.Backend = capture.Backend(*backend)
	if *preset != "" {
		p := capture.GetPreset(*preset)
		if p == nil {
			fmt.Fprintf(os.Stderr, "unknown preset %q\n", *preset)
			os.Exit(exitFailed)
		}
		// Presets describe the camera; the backend comes from -backend.
		cam := *p
		cam.Backend = cfg.Camera.Backend
		cfg.Camera = cam
	}
	if *preset == "" || set["facing"] {
		cfg.Camera.Facing = capture.Facing(*facing)
	}
	if *preset == "" || set["device"] {
		cfg.Camera.EnvironmentDevice = *device
	}
	if *preset == "" || set["user-device"] {
		cfg.Camera.UserDevice = *userDevice
	}

	cfg.Debug, cfg.DebugFrames, cfg.Bell = *debug, *debugFrames, *bell
	cfg.LogLevel, cfg.Port, cfg.Decoder = *logLevel, *port, *decoder
	cfg.RefreshRate, cfg.LedgerCapacity = *refresh, *ledgerCap
	if *debug && *logLevel == "info" {
		cfg.LogLevel = "debug"
	}
	return cfg, *once, *timeout
}
