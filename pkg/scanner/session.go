// Package scanner implements the ghost commerce QR scanning session.
//
// A Session owns at most one camera handle. Once access is granted it samples
// one frame per refresh tick, runs the decoder on it, and stops at the first
// symbol found. Stop may be called from any state and always leaves the
// camera released.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/teslashibe/ghostscan/pkg/capture"
	"github.com/teslashibe/ghostscan/pkg/debug"
	"github.com/teslashibe/ghostscan/pkg/qr"
)

// Haptics is an optional host capability for vibration feedback.
type Haptics interface {
	Vibrate(d time.Duration) error
}

// Config holds session configuration.
type Config struct {
	// Facing is the camera preference passed to the provider.
	Facing capture.Facing `json:"facing"`

	// RefreshRate is the tick rate used when no Scheduler is supplied.
	RefreshRate int `json:"refresh_rate"`

	// Inversion is handed to the decoder on every tick.
	Inversion qr.Inversion `json:"-"`

	// DecodeBudget is the per-tick decode time above which a decode is
	// counted and logged as slow. Zero disables the check.
	DecodeBudget time.Duration `json:"decode_budget"`

	// HapticPulse is the vibration length on a successful decode.
	HapticPulse time.Duration `json:"haptic_pulse"`
}

// DefaultConfig returns the scanning defaults: rear camera, 60 Hz, no
// inverted-colour decoding, 200ms haptic pulse.
func DefaultConfig() Config {
	return Config{
		Facing:       capture.FacingEnvironment,
		RefreshRate:  DefaultRefreshRate,
		Inversion:    qr.DontInvert,
		DecodeBudget: time.Second / DefaultRefreshRate,
		HapticPulse:  200 * time.Millisecond,
	}
}

// Stats contains counters across all runs of a session.
type Stats struct {
	Ticks       int64 `json:"ticks"`
	Skipped     int64 `json:"skipped"`
	Decodes     int64 `json:"decodes"`
	SlowDecodes int64 `json:"slow_decodes"`
}

// Status is a point-in-time snapshot of a session.
type Status struct {
	State     State      `json:"state"`
	SessionID string     `json:"session_id,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	Last      *qr.Result `json:"last,omitempty"`
	Stats     Stats      `json:"stats"`
}

// Option configures a Session.
type Option func(*Session)

// WithScheduler replaces the FrameClock built from Config.RefreshRate.
func WithScheduler(sched Scheduler) Option {
	return func(s *Session) {
		s.sched = sched
	}
}

// WithHaptics sets the vibration capability used on a successful decode.
func WithHaptics(h Haptics) Option {
	return func(s *Session) {
		s.haptics = h
	}
}

// run is one Start-to-terminal cycle. Everything in it belongs to that run
// only, so a tick or acquisition that outlives its run can detect it by
// comparing against Session.run.
type run struct {
	id         string
	facing     capture.Facing
	cancel     context.CancelFunc
	handle     capture.Handle
	frame      capture.Frame
	cancelTick func()
}

// Session is the scanner state machine.
type Session struct {
	cfg      Config
	provider capture.Provider
	decoder  qr.Decoder
	sched    Scheduler
	haptics  Haptics
	logger   *slog.Logger

	mu        sync.Mutex
	state     State
	run       *run
	sessionID string
	reason    string
	last      *qr.Result

	ticks       atomic.Int64
	skipped     atomic.Int64
	decodes     atomic.Int64
	slowDecodes atomic.Int64

	// Event callbacks. Set them before the first Start; they are invoked
	// without the session lock held.
	OnStreaming        func(sessionID string)
	OnPermissionDenied func(reason string)
	OnDecoded          func(sessionID string, res qr.Result)
	OnStopped          func()
}

// New creates an idle session.
func New(cfg Config, provider capture.Provider, decoder qr.Decoder, logger *slog.Logger, opts ...Option) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		cfg:      cfg,
		provider: provider,
		decoder:  decoder,
		logger:   logger,
		state:    Idle,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sched == nil {
		s.sched = NewFrameClock(cfg.RefreshRate)
	}
	return s
}

// Start requests camera access and begins scanning once it is granted.
// ctx bounds the acquisition; cancelling it before access resolves is
// reported as a failed acquisition. Start returns ErrAlreadyActive while a
// camera is being requested or streamed.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state.Active() {
		s.mu.Unlock()
		return ErrAlreadyActive
	}

	acqCtx, cancel := context.WithCancel(ctx)
	r := &run{id: uuid.NewString(), facing: s.cfg.Facing, cancel: cancel}
	s.run = r
	s.sessionID = r.id
	s.state = Requesting
	s.reason = ""
	s.last = nil
	s.mu.Unlock()

	s.logger.Info("scanner requesting camera", "session", r.id, "facing", r.facing, "backend", s.provider.Name())

	go s.acquire(acqCtx, r)
	return nil
}

func (s *Session) acquire(ctx context.Context, r *run) {
	h, err := s.provider.Open(ctx, r.facing)

	s.mu.Lock()
	if s.run != r {
		// Stopped while the request was pending.
		s.mu.Unlock()
		if h != nil {
			h.Close()
			s.logger.Info("late camera grant released", "session", r.id)
		}
		return
	}

	if err != nil {
		reason := err.Error()
		if reason == "" {
			reason = ErrPermissionDenied.Error()
		}
		r.cancel()
		s.run = nil
		s.state = PermissionDenied
		s.reason = reason
		cb := s.OnPermissionDenied
		s.mu.Unlock()

		s.logger.Warn("camera access failed", "session", r.id, "reason", reason)
		if cb != nil {
			cb(reason)
		}
		return
	}

	r.handle = h
	s.state = Streaming
	r.cancelTick = s.sched.Next(func() { s.tick(r) })
	cb := s.OnStreaming
	s.mu.Unlock()

	s.logger.Info("scanner streaming", "session", r.id)
	if cb != nil {
		cb(r.id)
	}
}

// tick samples and decodes one frame. It runs at most once at a time per
// run because the next tick is only scheduled at the end of this one. The
// handle calls may block on the device, so they run without the session
// lock; a Stop meanwhile closes the handle and the tick then finds its run
// gone.
func (s *Session) tick(r *run) {
	s.mu.Lock()
	if s.run != r || s.state != Streaming {
		s.mu.Unlock()
		return
	}
	s.ticks.Add(1)
	h := r.handle
	s.mu.Unlock()

	ready := h.Ready()
	var readErr error
	if ready {
		readErr = h.ReadFrame(&r.frame)
	}

	s.mu.Lock()
	if s.run != r || s.state != Streaming {
		s.mu.Unlock()
		return
	}
	if !ready {
		s.skipped.Add(1)
		r.cancelTick = s.sched.Next(func() { s.tick(r) })
		s.mu.Unlock()
		return
	}
	if readErr != nil {
		s.release(r)
		s.state = Stopped
		s.reason = fmt.Sprintf("stream lost: %v", readErr)
		cb := s.OnStopped
		s.mu.Unlock()

		closeErr := h.Close()
		s.logger.Warn("camera stream lost", "session", r.id, "error", readErr, "close_error", closeErr)
		if cb != nil {
			cb()
		}
		return
	}
	s.mu.Unlock()

	started := time.Now()
	res, found := s.decoder.Decode(r.frame.Pix, r.frame.Width, r.frame.Height, s.cfg.Inversion)
	elapsed := time.Since(started)

	debug.FrameLog("scanner tick", "session", r.id, "width", r.frame.Width, "height", r.frame.Height,
		"decode", elapsed, "found", found)
	if budget := s.cfg.DecodeBudget; budget > 0 && elapsed > budget {
		s.slowDecodes.Add(1)
		s.logger.Warn("slow decode", "session", r.id, "elapsed", elapsed, "budget", budget,
			"width", r.frame.Width, "height", r.frame.Height)
	}

	s.mu.Lock()
	if s.run != r || s.state != Streaming {
		// Stopped mid-decode; the result belongs to a dead run.
		s.mu.Unlock()
		return
	}
	if !found {
		r.cancelTick = s.sched.Next(func() { s.tick(r) })
		s.mu.Unlock()
		return
	}

	s.decodes.Add(1)
	s.last = &res
	s.state = Decoded
	s.release(r)
	cb := s.OnDecoded
	s.mu.Unlock()

	closeErr := h.Close()
	s.logger.Info("symbol decoded", "session", r.id, "payload", res.Text)
	if closeErr != nil {
		s.logger.Warn("camera release failed", "session", r.id, "error", closeErr)
	}
	if s.haptics != nil {
		if err := s.haptics.Vibrate(s.cfg.HapticPulse); err != nil {
			s.logger.Debug("haptic pulse failed", "error", err)
		}
	}
	if cb != nil {
		cb(r.id, res)
	}
}

// release cancels r's acquisition and pending tick and detaches its handle,
// which the caller closes after dropping s.mu. Callers hold s.mu.
func (s *Session) release(r *run) capture.Handle {
	r.cancel()
	if r.cancelTick != nil {
		r.cancelTick()
		r.cancelTick = nil
	}
	h := r.handle
	r.handle = nil
	if s.run == r {
		s.run = nil
	}
	return h
}

// Stop moves the session to Stopped from any state, cancelling a pending
// acquisition or tick and releasing the camera. Calling it again is a no-op.
func (s *Session) Stop() error {
	s.mu.Lock()
	prev := s.state
	var h capture.Handle
	if r := s.run; r != nil {
		h = s.release(r)
	}
	s.state = Stopped
	cb := s.OnStopped
	s.mu.Unlock()

	// Closing may wait for an in-flight device read, so it happens
	// without the session lock.
	var err error
	if h != nil {
		err = h.Close()
	}
	if prev == Stopped {
		return nil
	}
	s.logger.Info("scanner stopped", "from", prev)
	if cb != nil {
		cb()
	}
	if err != nil {
		return fmt.Errorf("release camera: %w", err)
	}
	return nil
}

// Close stops the session. It exists so a session can be deferred like any
// other scoped resource.
func (s *Session) Close() error {
	return s.Stop()
}

// SetFacing changes the camera preference used by the next Start. It returns
// ErrAlreadyActive while a camera is being requested or streamed.
func (s *Session) SetFacing(f capture.Facing) error {
	return s.Reconfigure(f, nil)
}

// Reconfigure is SetFacing plus apply, which runs under the session lock so
// no Start can begin until both have taken effect. apply is not called when
// the session is active.
func (s *Session) Reconfigure(f capture.Facing, apply func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Active() {
		return ErrAlreadyActive
	}
	if apply != nil {
		apply()
	}
	s.cfg.Facing = f
	return nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastResult returns the symbol found by the most recent run, if any.
func (s *Session) LastResult() (qr.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return qr.Result{}, false
	}
	return *s.last, true
}

// Status returns a snapshot of the session.
func (s *Session) Status() Status {
	s.mu.Lock()
	st := Status{
		State:     s.state,
		SessionID: s.sessionID,
		Reason:    s.reason,
	}
	if s.last != nil {
		res := *s.last
		st.Last = &res
	}
	s.mu.Unlock()

	st.Stats = s.Stats()
	return st
}

// Stats returns session counters.
func (s *Session) Stats() Stats {
	return Stats{
		Ticks:       s.ticks.Load(),
		Skipped:     s.skipped.Load(),
		Decodes:     s.decodes.Load(),
		SlowDecodes: s.slowDecodes.Load(),
	}
}

// IsPermissionDenied reports whether err is a camera acquisition failure.
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied) || capture.IsPermissionError(err)
}
