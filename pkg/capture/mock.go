package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// MockProvider is a scripted camera for testing and demos.
// Each handle it opens replays the same frame script.
type MockProvider struct {
	logger *slog.Logger

	frames       []Frame
	loop         bool
	warmup       int
	denyErr      error
	readErr      error
	gate         <-chan struct{}
	ignoreCancel bool

	mu         sync.Mutex
	lastFacing Facing

	opens  atomic.Int64
	closes atomic.Int64
}

// MockOption configures a MockProvider.
type MockOption func(*MockProvider)

// WithFrames sets the frames returned by successive ReadFrame calls.
// Once the script is exhausted the last frame's size is kept but blanked.
func WithFrames(frames ...Frame) MockOption {
	return func(m *MockProvider) {
		m.frames = append(m.frames, frames...)
	}
}

// WithLoop replays the frame script forever instead of blanking.
func WithLoop() MockOption {
	return func(m *MockProvider) {
		m.loop = true
	}
}

// WithWarmup makes the first n Ready calls on each handle report false.
func WithWarmup(n int) MockOption {
	return func(m *MockProvider) {
		m.warmup = n
	}
}

// WithDenial makes Open fail with err, which should wrap ErrPermissionDenied or ErrUnavailable.
func WithDenial(err error) MockOption {
	return func(m *MockProvider) {
		m.denyErr = err
	}
}

// WithReadFailure makes every ReadFrame fail with err.
func WithReadFailure(err error) MockOption {
	return func(m *MockProvider) {
		m.readErr = err
	}
}

// WithGate holds Open until gate is closed, like a pending permission prompt.
func WithGate(gate <-chan struct{}) MockOption {
	return func(m *MockProvider) {
		m.gate = gate
	}
}

// WithIgnoreCancel makes a gated Open complete even after its context is
// cancelled, the way a browser permission promise resolves regardless.
func WithIgnoreCancel() MockOption {
	return func(m *MockProvider) {
		m.ignoreCancel = true
	}
}

// NewMockProvider creates a new mock camera provider.
func NewMockProvider(logger *slog.Logger, opts ...MockOption) *MockProvider {
	if logger == nil {
		logger = slog.Default()
	}
	m := &MockProvider{logger: logger}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open returns a new MockHandle once the gate (if any) opens.
func (m *MockProvider) Open(ctx context.Context, facing Facing) (Handle, error) {
	m.mu.Lock()
	m.lastFacing = facing
	m.mu.Unlock()

	if m.gate != nil {
		if m.ignoreCancel {
			<-m.gate
		} else {
			select {
			case <-m.gate:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if !m.ignoreCancel {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	if m.denyErr != nil {
		m.logger.Info("mock camera denied", "facing", facing, "error", m.denyErr)
		return nil, m.denyErr
	}

	m.opens.Add(1)
	m.logger.Info("mock camera opened", "facing", facing, "frames", len(m.frames))
	return &MockHandle{provider: m, warmup: m.warmup}, nil
}

// Name returns "mock".
func (m *MockProvider) Name() string {
	return string(BackendMock)
}

// LastFacing returns the facing preference of the most recent Open.
func (m *MockProvider) LastFacing() Facing {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastFacing
}

// Opens returns the number of handles successfully opened.
func (m *MockProvider) Opens() int64 {
	return m.opens.Load()
}

// OpenHandles returns the number of handles opened but not yet closed.
func (m *MockProvider) OpenHandles() int64 {
	return m.opens.Load() - m.closes.Load()
}

// MockHandle is one scripted camera stream.
type MockHandle struct {
	provider *MockProvider

	mu     sync.Mutex
	closed bool
	warmup int
	next   int
	width  int
	height int

	framesRead atomic.Int64
}

// Ready reports false during warm-up and after Close.
func (h *MockHandle) Ready() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	if h.warmup > 0 {
		h.warmup--
		return false
	}
	return true
}

// ReadFrame copies the next scripted frame into dst.
func (h *MockHandle) ReadFrame(dst *Frame) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrClosed
	}
	if err := h.provider.readErr; err != nil {
		return fmt.Errorf("mock read: %w", err)
	}

	frames := h.provider.frames
	switch {
	case h.next < len(frames):
		dst.CopyFrom(&frames[h.next])
	case h.provider.loop && len(frames) > 0:
		dst.CopyFrom(&frames[h.next%len(frames)])
	default:
		w, height := 320, 240
		if n := len(frames); n > 0 {
			w, height = frames[n-1].Width, frames[n-1].Height
		}
		dst.Resize(w, height)
		for i := range dst.Pix {
			dst.Pix[i] = 0xff
		}
		dst.CapturedAt = time.Now()
	}
	h.next++
	h.width, h.height = dst.Width, dst.Height
	h.framesRead.Add(1)
	return nil
}

// Close releases the handle. It is safe to call Close multiple times.
func (h *MockHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	h.provider.closes.Add(1)
	h.provider.logger.Info("mock camera closed", "frames_read", h.framesRead.Load())
	return nil
}

// Closed reports whether Close has been called.
func (h *MockHandle) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Stats returns handle statistics.
func (h *MockHandle) Stats() HandleStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return HandleStats{
		FramesRead: h.framesRead.Load(),
		Width:      h.width,
		Height:     h.height,
		Backend:    string(BackendMock),
	}
}

// Ensure MockHandle implements HandleWithStats.
var _ HandleWithStats = (*MockHandle)(nil)
