// Package ghost wires the scanner, ledger and API server into the ghostscan
// application.
package ghost

import (
	"strings"

	"github.com/teslashibe/ghostscan/internal/config"
	"github.com/teslashibe/ghostscan/pkg/capture"
	"github.com/teslashibe/ghostscan/pkg/ledger"
	"github.com/teslashibe/ghostscan/pkg/scanner"
)

// Decoder names.
const (
	DecoderZXing  = "zxing"
	DecoderOpenCV = "opencv"
)

// Config holds all configuration for the ghostscan application.
// Flag parsing is done in cmd/ghostscan/main.go; this struct is data only.
type Config struct {
	// Debug enables verbose debug logging.
	Debug bool

	// DebugFrames enables per-tick traces.
	DebugFrames bool

	// LogLevel is one of debug, info, warn, error.
	LogLevel string

	// Port is the HTTP listen port.
	Port string

	// Camera is the initial capture configuration.
	Camera capture.Config

	// Decoder is "zxing" or "opencv".
	Decoder string

	// RefreshRate is the scanner tick rate in Hz.
	RefreshRate int

	// LedgerCapacity bounds the in-memory ledger.
	LedgerCapacity int

	// Bell rings the terminal bell on a successful scan.
	Bell bool
}

// DefaultConfig returns sensible defaults for ghostscan.
func DefaultConfig() Config {
	return Config{
		LogLevel:       "info",
		Port:           config.DefaultPort,
		Camera:         capture.DefaultConfig(),
		Decoder:        DecoderZXing,
		RefreshRate:    scanner.DefaultRefreshRate,
		LedgerCapacity: ledger.DefaultCapacity,
	}
}

// LoadEnvConfig applies environment overrides. Call it before flag parsing
// so that explicit flags still win.
func (c *Config) LoadEnvConfig() {
	c.LogLevel = config.LogLevel(c.LogLevel)
	c.Port = config.Port(c.Port)
	c.Camera.Backend = capture.Backend(config.Backend(string(c.Camera.Backend)))
	c.Camera.Facing = capture.Facing(config.Facing(string(c.Camera.Facing)))
	c.Decoder = config.Decoder(c.Decoder)
	c.RefreshRate = config.RefreshRate(c.RefreshRate)
	c.LedgerCapacity = config.LedgerCapacity(c.LedgerCapacity)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if errs := c.Camera.Validate(); len(errs) > 0 {
		return &ConfigError{Field: "Camera", Message: "camera: " + strings.Join(errs, "; ")}
	}
	if c.Decoder != DecoderZXing && c.Decoder != DecoderOpenCV {
		return &ConfigError{Field: "Decoder", Message: "decoder must be zxing or opencv"}
	}
	if c.RefreshRate < 1 || c.RefreshRate > 240 {
		return &ConfigError{Field: "RefreshRate", Message: "refresh rate must be between 1 and 240 Hz"}
	}
	if c.LedgerCapacity < 1 {
		return &ConfigError{Field: "LedgerCapacity", Message: "ledger capacity must be positive"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}
