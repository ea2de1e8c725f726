// Package config provides environment helpers for ghostscan commands.
// Flags set the defaults; these variables override them.
package config

import (
	"os"
	"strconv"
	"strings"
)

// Environment variable names.
const (
	EnvPort           = "PORT"
	EnvLogLevel       = "LOG_LEVEL"
	EnvBackend        = "GHOSTSCAN_BACKEND"
	EnvFacing         = "GHOSTSCAN_FACING"
	EnvDecoder        = "GHOSTSCAN_DECODER"
	EnvRefreshRate    = "GHOSTSCAN_REFRESH_HZ"
	EnvLedgerCapacity = "GHOSTSCAN_LEDGER_CAPACITY"
	EnvServerURL      = "GHOSTSCAN_URL"
)

// Defaults shared by the commands.
const (
	DefaultPort      = "8080"
	DefaultServerURL = "http://localhost:" + DefaultPort
)

// String returns the value of key, or def if it is unset or blank.
func String(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// Int returns key parsed as an integer, or def if it is unset or invalid.
func Int(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Port returns the HTTP listen port from PORT.
func Port(def string) string {
	return String(EnvPort, def)
}

// LogLevel returns the log level name from LOG_LEVEL.
func LogLevel(def string) string {
	return String(EnvLogLevel, def)
}

// Backend returns the capture backend name from GHOSTSCAN_BACKEND.
func Backend(def string) string {
	return strings.ToLower(String(EnvBackend, def))
}

// Facing returns the camera preference from GHOSTSCAN_FACING.
func Facing(def string) string {
	return strings.ToLower(String(EnvFacing, def))
}

// Decoder returns the decoder name from GHOSTSCAN_DECODER.
func Decoder(def string) string {
	return strings.ToLower(String(EnvDecoder, def))
}

// RefreshRate returns the tick rate in Hz from GHOSTSCAN_REFRESH_HZ.
func RefreshRate(def int) int {
	return Int(EnvRefreshRate, def)
}

// LedgerCapacity returns the ledger size from GHOSTSCAN_LEDGER_CAPACITY.
func LedgerCapacity(def int) int {
	return Int(EnvLedgerCapacity, def)
}

// ServerURL returns the scanner API base URL from GHOSTSCAN_URL.
func ServerURL(def string) string {
	return strings.TrimRight(String(EnvServerURL, def), "/")
}
