// Package debug provides global debug logging flags
package debug

import "log/slog"

// Enabled controls whether debug logging is active
var Enabled bool

// Frames controls whether per-tick scanner traces are shown (frame size, decode time).
// Use --debug-frames to enable these; at 60 Hz they are very verbose.
var Frames bool

// Log logs a message only if debug mode is enabled
func Log(msg string, args ...any) {
	if Enabled {
		slog.Debug(msg, args...)
	}
}

// FrameLog logs a message only if frame tracing is enabled
func FrameLog(msg string, args ...any) {
	if Frames {
		slog.Debug(msg, args...)
	}
}
