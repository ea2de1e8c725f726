package capture

import (
	"errors"
	"testing"
)

func TestManager_UpdateConfig(t *testing.T) {
	m := NewManager(DefaultConfig())

	var applied Config
	m.OnConfigChange = func(cfg Config) error {
		applied = cfg
		return nil
	}

	err := m.UpdateConfig(map[string]interface{}{
		"width":     float64(640),
		"height":    float64(480),
		"facing":    "user",
		"framerate": 15,
	})
	if err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}

	cfg := m.GetConfig()
	if cfg.Width != 640 || cfg.Height != 480 || cfg.Framerate != 15 {
		t.Errorf("Unexpected resolution %dx%d@%d", cfg.Width, cfg.Height, cfg.Framerate)
	}
	if cfg.Facing != FacingUser {
		t.Errorf("Expected facing user, got %q", cfg.Facing)
	}
	if applied != cfg {
		t.Error("OnConfigChange did not receive the new config")
	}
}

func TestManager_PresetKeepsBackend(t *testing.T) {
	start := DefaultConfig()
	start.Backend = BackendMock
	m := NewManager(start)

	if err := m.UpdateConfig(map[string]interface{}{"preset": Preset1080p}); err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}
	cfg := m.GetConfig()
	if cfg.Width != 1920 {
		t.Errorf("Expected preset width 1920, got %d", cfg.Width)
	}
	if cfg.Backend != BackendMock {
		t.Errorf("Expected backend to stay mock, got %q", cfg.Backend)
	}

	if err := m.UpdateConfig(map[string]interface{}{"preset": "nope"}); err == nil {
		t.Error("Expected error for unknown preset")
	}
}

func TestManager_RejectsInvalid(t *testing.T) {
	m := NewManager(DefaultConfig())
	before := m.GetConfig()

	if err := m.UpdateConfig(map[string]interface{}{"width": 10}); err == nil {
		t.Fatal("Expected validation error")
	}
	if m.GetConfig() != before {
		t.Error("Invalid update must not change the config")
	}
}

func TestManager_CallbackError(t *testing.T) {
	m := NewManager(DefaultConfig())
	before := m.GetConfig()
	boom := errors.New("boom")
	m.OnConfigChange = func(Config) error { return boom }

	err := m.UpdateConfig(map[string]interface{}{"facing": "user", "width": 640, "height": 480})
	if !errors.Is(err, boom) {
		t.Errorf("Expected wrapped callback error, got %v", err)
	}
	if got := m.GetConfig(); got != before {
		t.Errorf("Refused update was stored: got %+v, want %+v", got, before)
	}

	// Once the callback accepts, the same update is stored.
	m.OnConfigChange = nil
	if err := m.UpdateConfig(map[string]interface{}{"facing": "user"}); err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}
	if m.GetConfig().Facing != FacingUser {
		t.Errorf("Expected facing user, got %q", m.GetConfig().Facing)
	}
}
