// Package capture provides camera access for the ghost commerce scanner.
//
// This package supports multiple backends:
//   - Webcam (gocv/OpenCV) - Production use on a laptop or kiosk camera
//   - Mock - CI/Testing without hardware
//
// The backend is chosen by the caller from Config.Backend; BackendAuto
// resolves to the webcam when one is expected to exist.
package capture

import (
	"fmt"
	"runtime"
)

// Backend represents the capture backend type.
type Backend string

const (
	// BackendAuto selects the best available backend.
	BackendAuto Backend = "auto"
	// BackendWebcam uses an OpenCV VideoCapture device.
	BackendWebcam Backend = "webcam"
	// BackendMock uses scripted frames for testing.
	BackendMock Backend = "mock"
)

// Facing is the preferred camera direction, mirroring the browser facingMode constraint.
type Facing string

const (
	// FacingEnvironment is the rear camera, pointed away from the user.
	FacingEnvironment Facing = "environment"
	// FacingUser is the front (selfie) camera.
	FacingUser Facing = "user"
)

// Sensor limits we accept for requested resolution.
const (
	MaxWidth     = 4096
	MaxHeight    = 2160
	MaxFramerate = 120
)

// Config holds all camera configuration parameters.
// These can be modified via the camera API at runtime; changes apply to the next session.
type Config struct {
	Backend Backend `json:"backend"`

	// Facing is the preferred direction when the scanner asks for a camera.
	Facing Facing `json:"facing"`

	// Device indexes for each facing. On desktops both usually point at 0.
	EnvironmentDevice int `json:"environment_device"`
	UserDevice        int `json:"user_device"`

	// === Resolution ===
	Width     int `json:"width"`     // Requested frame width in pixels
	Height    int `json:"height"`    // Requested frame height in pixels
	Framerate int `json:"framerate"` // Requested capture FPS
}

// DefaultConfig returns the recommended scanning configuration.
// 1280x720 is enough for a phone-sized symbol at arm's length.
func DefaultConfig() Config {
	return Config{
		Backend:           BackendAuto,
		Facing:            FacingEnvironment,
		EnvironmentDevice: 0,
		UserDevice:        0,
		Width:             1280,
		Height:            720,
		Framerate:         30,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	switch c.Backend {
	case BackendAuto, BackendWebcam, BackendMock:
	default:
		errors = append(errors, "backend must be auto, webcam, or mock")
	}

	if c.Facing != FacingEnvironment && c.Facing != FacingUser {
		errors = append(errors, "facing must be environment or user")
	}
	if c.EnvironmentDevice < 0 || c.UserDevice < 0 {
		errors = append(errors, "device indexes must be >= 0")
	}

	if c.Width < 160 || c.Width > MaxWidth {
		errors = append(errors, fmt.Sprintf("width must be between 160 and %d", MaxWidth))
	}
	if c.Height < 120 || c.Height > MaxHeight {
		errors = append(errors, fmt.Sprintf("height must be between 120 and %d", MaxHeight))
	}
	if c.Framerate < 1 || c.Framerate > MaxFramerate {
		errors = append(errors, fmt.Sprintf("framerate must be between 1 and %d", MaxFramerate))
	}

	return errors
}

// Device returns the device index for the given facing preference.
func (c *Config) Device(f Facing) int {
	if f == FacingUser {
		return c.UserDevice
	}
	return c.EnvironmentDevice
}

// ResolveBackend turns BackendAuto into a concrete backend for this platform.
func (c *Config) ResolveBackend() Backend {
	if c.Backend != BackendAuto {
		return c.Backend
	}
	switch runtime.GOOS {
	case "linux", "darwin", "windows":
		return BackendWebcam
	default:
		return BackendMock
	}
}
