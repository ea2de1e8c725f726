package ghost

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/teslashibe/ghostscan/pkg/capture"
	"github.com/teslashibe/ghostscan/pkg/debug"
	"github.com/teslashibe/ghostscan/pkg/ledger"
	"github.com/teslashibe/ghostscan/pkg/qr"
	"github.com/teslashibe/ghostscan/pkg/scanner"
	"github.com/teslashibe/ghostscan/pkg/web"
)

// ErrScanStopped is returned by Scan when the session stops without a result.
var ErrScanStopped = errors.New("scan stopped before a symbol was found")

// App is the ghostscan application orchestrator.
// It manages all components and their lifecycle.
type App struct {
	config Config
	logger *slog.Logger

	camera   *capture.Manager
	provider *capture.Swappable
	decoder  qr.Decoder
	closers  []io.Closer

	session *scanner.Session
	ledger  *ledger.Ledger

	webServer *web.Server

	// newProvider builds a provider when the camera config changes.
	newProvider func(capture.Config, *slog.Logger) (capture.Provider, error)
}

// New creates a new application with the given configuration.
func New(cfg Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	debug.Enabled = cfg.Debug
	debug.Frames = cfg.DebugFrames

	return &App{
		config:      cfg,
		logger:      logger,
		newProvider: NewProvider,
	}, nil
}

// Init builds the camera provider, decoder, session and ledger.
// Call this after New() and before Run() or Scan().
func (a *App) Init() error {
	p, err := a.newProvider(a.config.Camera, a.logger.With("component", "capture"))
	if err != nil {
		return fmt.Errorf("camera: %w", err)
	}
	a.provider = capture.NewSwappable(p)

	dec, closer, err := NewDecoder(a.config.Decoder, a.logger.With("component", "qr"))
	if err != nil {
		return fmt.Errorf("decoder: %w", err)
	}
	a.decoder = dec
	if closer != nil {
		a.closers = append(a.closers, closer)
	}

	scfg := scanner.DefaultConfig()
	scfg.Facing = a.config.Camera.Facing
	scfg.RefreshRate = a.config.RefreshRate

	var opts []scanner.Option
	if a.config.Bell {
		opts = append(opts, scanner.WithHaptics(NewBell(nil)))
	}
	a.session = scanner.New(scfg, a.provider, a.decoder, a.logger.With("component", "scanner"), opts...)

	a.ledger = ledger.New(a.config.LedgerCapacity)

	a.camera = capture.NewManager(a.config.Camera)
	a.camera.OnConfigChange = a.applyCamera

	debug.Log("ghostscan initialised", "backend", p.Name(), "decoder", a.config.Decoder)
	return nil
}

// applyCamera rebuilds the provider for the next session. Nothing changes
// unless the new provider is built and the scanner is idle.
func (a *App) applyCamera(cfg capture.Config) error {
	p, err := a.newProvider(cfg, a.logger.With("component", "capture"))
	if err != nil {
		return err
	}
	err = a.session.Reconfigure(cfg.Facing, func() { a.provider.Swap(p) })
	if err != nil {
		return fmt.Errorf("stop the scanner before changing the camera: %w", err)
	}
	a.logger.Info("camera config applied", "backend", p.Name(), "facing", cfg.Facing,
		"width", cfg.Width, "height", cfg.Height)
	return nil
}

// Run serves the API until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.webServer = web.NewServer(a.config.Port, a.session, a.ledger, a.camera, a.logger.With("component", "web"))
	a.webServer.StartAsync()

	<-ctx.Done()
	return nil
}

// Scan runs a single headless scan and returns the recorded entry. A failed
// camera acquisition is returned wrapped in scanner.ErrPermissionDenied.
func (a *App) Scan(ctx context.Context) (ledger.Entry, error) {
	type outcome struct {
		entry ledger.Entry
		err   error
	}
	done := make(chan outcome, 1)
	finish := func(o outcome) {
		select {
		case done <- o:
		default:
		}
	}

	a.session.OnDecoded = func(id string, res qr.Result) {
		finish(outcome{entry: a.ledger.Record(id, res)})
	}
	a.session.OnPermissionDenied = func(reason string) {
		finish(outcome{err: fmt.Errorf("%w: %s", scanner.ErrPermissionDenied, reason)})
	}
	a.session.OnStopped = func() {
		err := ErrScanStopped
		if reason := a.session.Status().Reason; reason != "" {
			err = fmt.Errorf("%w: %s", ErrScanStopped, reason)
		}
		finish(outcome{err: err})
	}

	if err := a.session.Start(ctx); err != nil {
		return ledger.Entry{}, err
	}

	select {
	case o := <-done:
		// An expired ctx cancels a pending acquisition, which surfaces as a
		// denial; report the expiry instead.
		if errors.Is(o.err, scanner.ErrPermissionDenied) && ctx.Err() != nil {
			return ledger.Entry{}, ctx.Err()
		}
		return o.entry, o.err
	case <-ctx.Done():
		a.session.Stop()
		return ledger.Entry{}, ctx.Err()
	}
}

// Session returns the scanner session.
func (a *App) Session() *scanner.Session {
	return a.session
}

// Ledger returns the scan ledger.
func (a *App) Ledger() *ledger.Ledger {
	return a.ledger
}

// Camera returns the camera config manager.
func (a *App) Camera() *capture.Manager {
	return a.camera
}

// Shutdown gracefully shuts down all components.
func (a *App) Shutdown() {
	if a.webServer != nil {
		if err := a.webServer.Shutdown(); err != nil {
			a.logger.Warn("web shutdown failed", "error", err)
		}
	} else if a.session != nil {
		a.session.Stop()
	}
	for _, c := range a.closers {
		c.Close()
	}
	a.logger.Info("ghostscan stopped")
}
