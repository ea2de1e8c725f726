package capture

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Manager holds the current camera configuration and handles updates.
type Manager struct {
	config Config
	mu     sync.RWMutex

	// Serialises SetConfig so a config is stored only after its callback
	// succeeded and in the order callbacks ran.
	applyMu sync.Mutex

	// Callback when config changes (e.g. to rebuild the provider)
	OnConfigChange func(cfg Config) error
}

// NewManager creates a camera manager starting from cfg.
func NewManager(cfg Config) *Manager {
	return &Manager{config: cfg}
}

// GetConfig returns the current camera configuration.
func (m *Manager) GetConfig() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// SetConfig validates cfg and hands it to OnConfigChange. The config is
// stored only if the callback succeeds; a refused change leaves the current
// config in place.
func (m *Manager) SetConfig(cfg Config) error {
	if errs := cfg.Validate(); len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}

	m.applyMu.Lock()
	defer m.applyMu.Unlock()

	m.mu.RLock()
	callback := m.OnConfigChange
	m.mu.RUnlock()

	if callback != nil {
		if err := callback(cfg); err != nil {
			return fmt.Errorf("failed to apply config: %w", err)
		}
	}

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// UpdateConfig updates specific fields of the configuration.
// Accepts a map of JSON field names to values; "preset" is applied first.
func (m *Manager) UpdateConfig(params map[string]interface{}) error {
	cfg := m.GetConfig()

	if presetName, ok := params["preset"].(string); ok {
		preset := GetPreset(presetName)
		if preset == nil {
			return fmt.Errorf("unknown preset: %s", presetName)
		}
		// Keep the backend; presets only describe the camera.
		backend := cfg.Backend
		cfg = *preset
		cfg.Backend = backend
	}

	for key, value := range params {
		switch key {
		case "backend":
			if v, ok := value.(string); ok {
				cfg.Backend = Backend(v)
			}
		case "facing":
			if v, ok := value.(string); ok {
				cfg.Facing = Facing(v)
			}
		case "environment_device":
			if v, ok := toInt(value); ok {
				cfg.EnvironmentDevice = v
			}
		case "user_device":
			if v, ok := toInt(value); ok {
				cfg.UserDevice = v
			}
		case "width":
			if v, ok := toInt(value); ok {
				cfg.Width = v
			}
		case "height":
			if v, ok := toInt(value); ok {
				cfg.Height = v
			}
		case "framerate":
			if v, ok := toInt(value); ok {
				cfg.Framerate = v
			}
		}
	}

	return m.SetConfig(cfg)
}

func toInt(v interface{}) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		return int(val), true
	case json.Number:
		i, err := val.Int64()
		if err == nil {
			return int(i), true
		}
	}
	return 0, false
}
