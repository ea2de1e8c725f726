package capture

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrPermissionDenied means the user or OS refused camera access.
	ErrPermissionDenied = errors.New("camera permission denied")

	// ErrUnavailable means no usable camera exists or it failed to open.
	ErrUnavailable = errors.New("camera unavailable")

	// ErrClosed is returned by ReadFrame after the handle was released.
	ErrClosed = errors.New("capture handle closed")
)

// Provider grants access to a live camera stream.
type Provider interface {
	// Open requests a camera matching the facing preference.
	// It may block for an arbitrary time (permission prompts, device warm-up)
	// and must return promptly with ctx.Err() once ctx is cancelled.
	// Failures wrap ErrPermissionDenied or ErrUnavailable.
	Open(ctx context.Context, facing Facing) (Handle, error)

	// Name returns the backend name (e.g., "webcam", "mock").
	Name() string
}

// Handle is exclusive ownership of one live camera stream.
type Handle interface {
	// Ready reports whether a full frame is buffered and can be read.
	Ready() bool

	// ReadFrame copies the current frame into dst, resizing dst when the
	// native resolution differs from its current size.
	ReadFrame(dst *Frame) error

	// Close stops all tracks and releases the device.
	// It is safe to call Close multiple times.
	io.Closer
}

// HandleStats contains statistics about an open handle.
type HandleStats struct {
	FramesRead int64  `json:"frames_read"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Backend    string `json:"backend"`
}

// HandleWithStats extends Handle with statistics.
type HandleWithStats interface {
	Handle
	Stats() HandleStats
}

// IsPermissionError reports whether err came from a denied or failed acquisition.
func IsPermissionError(err error) bool {
	return errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrUnavailable)
}
