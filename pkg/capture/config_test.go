package capture

import (
	"image"
	"image/color"
	"testing"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"default is valid", func(c *Config) {}, false},
		{"all presets", func(c *Config) { *c = *GetPreset(PresetSelfie) }, false},
		{"unknown backend", func(c *Config) { c.Backend = "v4l2" }, true},
		{"unknown facing", func(c *Config) { c.Facing = "left" }, true},
		{"negative device", func(c *Config) { c.UserDevice = -1 }, true},
		{"width too small", func(c *Config) { c.Width = 100 }, true},
		{"height too large", func(c *Config) { c.Height = 5000 }, true},
		{"zero framerate", func(c *Config) { c.Framerate = 0 }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.modify(&cfg)
			errs := cfg.Validate()
			if tc.wantErr && len(errs) == 0 {
				t.Error("Expected validation errors, got none")
			}
			if !tc.wantErr && len(errs) > 0 {
				t.Errorf("Expected no errors, got %v", errs)
			}
		})
	}
}

func TestPresets_AllValid(t *testing.T) {
	for _, name := range PresetNames() {
		cfg := GetPreset(name)
		if cfg == nil {
			t.Fatalf("Preset %q missing", name)
		}
		if errs := cfg.Validate(); len(errs) > 0 {
			t.Errorf("Preset %q invalid: %v", name, errs)
		}
	}
	if GetPreset("nope") != nil {
		t.Error("Expected nil for unknown preset")
	}
}

func TestConfig_Device(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnvironmentDevice = 2
	cfg.UserDevice = 1

	if got := cfg.Device(FacingEnvironment); got != 2 {
		t.Errorf("Environment device: got %d, want 2", got)
	}
	if got := cfg.Device(FacingUser); got != 1 {
		t.Errorf("User device: got %d, want 1", got)
	}
}

func TestConfig_ResolveBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = BackendMock
	if got := cfg.ResolveBackend(); got != BackendMock {
		t.Errorf("Explicit backend: got %q, want mock", got)
	}
	cfg.Backend = BackendAuto
	if got := cfg.ResolveBackend(); got == BackendAuto {
		t.Error("Auto backend was not resolved")
	}
}

func TestFrame_Resize(t *testing.T) {
	var f Frame
	f.Resize(10, 10)
	if len(f.Pix) != 400 {
		t.Fatalf("Expected 400 bytes, got %d", len(f.Pix))
	}
	first := &f.Pix[0]

	// Shrinking reuses the buffer
	f.Resize(5, 5)
	if len(f.Pix) != 100 {
		t.Fatalf("Expected 100 bytes, got %d", len(f.Pix))
	}
	if &f.Pix[0] != first {
		t.Error("Expected shrink to reuse the backing array")
	}
	if f.Stride() != 20 {
		t.Errorf("Expected stride 20, got %d", f.Stride())
	}

	f.Resize(0, 0)
	if !f.Empty() {
		t.Error("Expected zero-size frame to be empty")
	}
}

func TestFrameFromImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 3, 2))
	img.SetGray(1, 1, color.Gray{Y: 200})

	f := FrameFromImage(img)
	if f.Width != 3 || f.Height != 2 {
		t.Fatalf("Got %dx%d, want 3x2", f.Width, f.Height)
	}
	off := 1*f.Stride() + 1*4
	if f.Pix[off] != 200 || f.Pix[off+3] != 255 {
		t.Errorf("Unexpected pixel %v", f.Pix[off:off+4])
	}
	if f.CapturedAt.IsZero() {
		t.Error("Expected capture timestamp")
	}
}
