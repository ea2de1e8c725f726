package ghost

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"testing"
	"time"

	"github.com/teslashibe/ghostscan/pkg/capture"
	"github.com/teslashibe/ghostscan/pkg/qr"
	"github.com/teslashibe/ghostscan/pkg/scanner"
)

func symbolFrame(t *testing.T, text string) capture.Frame {
	t.Helper()
	sym, err := qr.Render(text, 200)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	img := image.NewRGBA(image.Rect(0, 0, 320, 240))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(img, sym.Bounds().Add(image.Pt(60, 20)), sym, image.Point{}, draw.Src)
	return capture.FrameFromImage(img)
}

// newTestApp builds an initialised app whose providers come from mk.
func newTestApp(t *testing.T, mk func(capture.Config) *capture.MockProvider) *App {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Camera.Backend = capture.BackendMock
	cfg.RefreshRate = 240

	app, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	app.newProvider = func(c capture.Config, _ *slog.Logger) (capture.Provider, error) {
		return mk(c), nil
	}
	if err := app.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(app.Shutdown)
	return app
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Config)
		field string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad camera", func(c *Config) { c.Camera.Width = 10 }, "Camera"},
		{"bad decoder", func(c *Config) { c.Decoder = "zbar" }, "Decoder"},
		{"zero refresh", func(c *Config) { c.RefreshRate = 0 }, "RefreshRate"},
		{"zero ledger", func(c *Config) { c.LedgerCapacity = 0 }, "LedgerCapacity"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.edit(&cfg)
			err := cfg.Validate()
			if tc.field == "" {
				if err != nil {
					t.Fatalf("Expected valid config, got %v", err)
				}
				return
			}
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("Expected *ConfigError, got %v", err)
			}
			if ce.Field != tc.field {
				t.Errorf("Expected field %s, got %s", tc.field, ce.Field)
			}
		})
	}
}

func TestConfig_LoadEnvConfig(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("GHOSTSCAN_BACKEND", "mock")
	t.Setenv("GHOSTSCAN_FACING", "user")
	t.Setenv("GHOSTSCAN_REFRESH_HZ", "30")

	cfg := DefaultConfig()
	cfg.LoadEnvConfig()

	if cfg.Port != "9090" {
		t.Errorf("Port: got %q", cfg.Port)
	}
	if cfg.Camera.Backend != capture.BackendMock {
		t.Errorf("Backend: got %q", cfg.Camera.Backend)
	}
	if cfg.Camera.Facing != capture.FacingUser {
		t.Errorf("Facing: got %q", cfg.Camera.Facing)
	}
	if cfg.RefreshRate != 30 {
		t.Errorf("RefreshRate: got %d", cfg.RefreshRate)
	}
	if cfg.Decoder != DecoderZXing {
		t.Errorf("Decoder should keep its default, got %q", cfg.Decoder)
	}
}

func TestApp_ScanRecordsEntry(t *testing.T) {
	app := newTestApp(t, func(capture.Config) *capture.MockProvider {
		return capture.NewMockProvider(nil, capture.WithFrames(symbolFrame(t, "LEDGER:tx-42")))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	entry, err := app.Scan(ctx)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if entry.Payload != "LEDGER:tx-42" {
		t.Errorf("Payload: got %q", entry.Payload)
	}
	if app.Ledger().Len() != 1 {
		t.Errorf("Expected 1 ledger entry, got %d", app.Ledger().Len())
	}
	if app.Session().State() != scanner.Decoded {
		t.Errorf("Expected decoded, got %v", app.Session().State())
	}
}

func TestApp_ScanDenied(t *testing.T) {
	app := newTestApp(t, func(capture.Config) *capture.MockProvider {
		return capture.NewMockProvider(nil, capture.WithDenial(fmt.Errorf("blocked: %w", capture.ErrPermissionDenied)))
	})

	_, err := app.Scan(context.Background())
	if !errors.Is(err, scanner.ErrPermissionDenied) {
		t.Fatalf("Expected ErrPermissionDenied, got %v", err)
	}
	if !scanner.IsPermissionDenied(err) {
		t.Error("IsPermissionDenied should match")
	}
	if app.Ledger().Len() != 0 {
		t.Error("Nothing should be recorded on denial")
	}
}

func TestApp_ScanCancelled(t *testing.T) {
	var mock *capture.MockProvider
	app := newTestApp(t, func(capture.Config) *capture.MockProvider {
		mock = capture.NewMockProvider(nil)
		return mock
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := app.Scan(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected DeadlineExceeded, got %v", err)
	}
	if app.Session().State() != scanner.Stopped {
		t.Errorf("Expected stopped, got %v", app.Session().State())
	}
	if mock.OpenHandles() != 0 {
		t.Errorf("Expected camera released, %d open", mock.OpenHandles())
	}
}

func TestApp_CameraChange(t *testing.T) {
	var built []*capture.MockProvider
	gate := make(chan struct{})
	app := newTestApp(t, func(c capture.Config) *capture.MockProvider {
		p := capture.NewMockProvider(nil)
		if len(built) == 0 {
			p = capture.NewMockProvider(nil, capture.WithGate(gate))
		}
		built = append(built, p)
		return p
	})
	before := app.Camera().GetConfig()

	// Changing the camera while a request is pending is refused and
	// leaves both the stored config and the provider untouched.
	if err := app.Session().Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	err := app.Camera().UpdateConfig(map[string]interface{}{"facing": "user", "width": 640, "height": 480})
	if !errors.Is(err, scanner.ErrAlreadyActive) {
		t.Errorf("Expected ErrAlreadyActive, got %v", err)
	}
	if got := app.Camera().GetConfig(); got != before {
		t.Errorf("Refused change was stored: got %+v, want %+v", got, before)
	}
	if app.provider.Current() != capture.Provider(built[0]) {
		t.Error("Refused change swapped the provider")
	}
	app.Session().Stop()
	close(gate)

	if err := app.Camera().UpdateConfig(map[string]interface{}{"facing": "user"}); err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}
	latest := built[len(built)-1]
	if app.provider.Current() != capture.Provider(latest) {
		t.Fatal("Expected the rebuilt provider to be active")
	}
	if app.Camera().GetConfig().Facing != capture.FacingUser {
		t.Errorf("Expected stored facing user, got %q", app.Camera().GetConfig().Facing)
	}

	app.Session().OnStreaming = func(string) { app.Session().Stop() }
	if err := app.Session().Start(context.Background()); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for latest.Opens() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if latest.LastFacing() != capture.FacingUser {
		t.Errorf("Expected the new provider to get the user camera, got %q", latest.LastFacing())
	}
}

func TestApp_CameraChangeProviderFails(t *testing.T) {
	app := newTestApp(t, func(capture.Config) *capture.MockProvider {
		return capture.NewMockProvider(nil)
	})
	first := app.provider.Current()
	before := app.Camera().GetConfig()

	boom := errors.New("no such device")
	app.newProvider = func(capture.Config, *slog.Logger) (capture.Provider, error) {
		return nil, boom
	}
	if err := app.Camera().UpdateConfig(map[string]interface{}{"facing": "user"}); !errors.Is(err, boom) {
		t.Fatalf("Expected provider error, got %v", err)
	}
	if got := app.Camera().GetConfig(); got != before {
		t.Errorf("Failed change was stored: got %+v", got)
	}
	if app.provider.Current() != first {
		t.Error("Failed change swapped the provider")
	}

	// The session keeps asking for the rear camera.
	app.Session().OnStreaming = func(string) { app.Session().Stop() }
	if err := app.Session().Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	mock := first.(*capture.MockProvider)
	deadline := time.Now().Add(2 * time.Second)
	for mock.Opens() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if mock.LastFacing() != capture.FacingEnvironment {
		t.Errorf("Expected facing unchanged, got %q", mock.LastFacing())
	}
}

func TestApp_ScanTimeoutWhileRequesting(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)
	app := newTestApp(t, func(capture.Config) *capture.MockProvider {
		return capture.NewMockProvider(nil, capture.WithGate(gate))
	})

	for i := 0; i < 20; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
		_, err := app.Scan(ctx)
		cancel()
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("Run %d: expected DeadlineExceeded, got %v", i, err)
		}
	}
}

func TestNewProvider(t *testing.T) {
	cfg := capture.DefaultConfig()
	cfg.Backend = capture.BackendMock
	p, err := NewProvider(cfg, nil)
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	if p.Name() != "mock" {
		t.Errorf("Expected mock provider, got %q", p.Name())
	}

	cfg.Width = 0
	if _, err := NewProvider(cfg, nil); err == nil {
		t.Error("Expected error for invalid config")
	}
}

func TestNewDecoder(t *testing.T) {
	dec, closer, err := NewDecoder(DecoderZXing, nil)
	if err != nil || dec == nil {
		t.Fatalf("NewDecoder(zxing): %v", err)
	}
	if closer != nil {
		t.Error("zxing should not need closing")
	}
	if _, _, err := NewDecoder("zbar", nil); err == nil {
		t.Error("Expected error for unknown decoder")
	}
}

func TestBell(t *testing.T) {
	var buf bytes.Buffer
	if err := NewBell(&buf).Vibrate(200 * time.Millisecond); err != nil {
		t.Fatalf("Vibrate failed: %v", err)
	}
	if buf.String() != "\a" {
		t.Errorf("Expected a bell, got %q", buf.String())
	}
}
