// Package webcam provides a capture.Provider backed by an OpenCV VideoCapture device.
package webcam

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/ghostscan/pkg/capture"
	"gocv.io/x/gocv"
)

// Provider opens local cameras through gocv.
type Provider struct {
	cfg    capture.Config
	logger *slog.Logger
}

// NewProvider creates a webcam provider for the given configuration.
func NewProvider(cfg capture.Config, logger *slog.Logger) (*Provider, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid config: %v", errs)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{cfg: cfg, logger: logger}, nil
}

type openResult struct {
	cam *gocv.VideoCapture
	err error
}

// Open opens the device mapped to facing. Device open can take seconds on
// some drivers, so it runs off the caller's goroutine and a result that
// arrives after ctx is cancelled is closed immediately.
func (p *Provider) Open(ctx context.Context, facing capture.Facing) (capture.Handle, error) {
	device := p.cfg.Device(facing)
	done := make(chan openResult, 1)

	go func() {
		cam, err := gocv.OpenVideoCapture(device)
		done <- openResult{cam: cam, err: err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			if r := <-done; r.cam != nil {
				r.cam.Close()
			}
		}()
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("open device %d: %v: %w", device, r.err, capture.ErrUnavailable)
		}
		if !r.cam.IsOpened() {
			r.cam.Close()
			return nil, fmt.Errorf("device %d not opened: %w", device, capture.ErrPermissionDenied)
		}
		return p.newHandle(r.cam, device), nil
	}
}

// Name returns "webcam".
func (p *Provider) Name() string {
	return string(capture.BackendWebcam)
}

func (p *Provider) newHandle(cam *gocv.VideoCapture, device int) *Handle {
	cam.Set(gocv.VideoCaptureFrameWidth, float64(p.cfg.Width))
	cam.Set(gocv.VideoCaptureFrameHeight, float64(p.cfg.Height))
	cam.Set(gocv.VideoCaptureFPS, float64(p.cfg.Framerate))

	h := &Handle{
		cam:    cam,
		bgr:    gocv.NewMat(),
		rgba:   gocv.NewMat(),
		logger: p.logger.With("device", device),
	}
	h.logger.Info("webcam opened",
		"width", int(cam.Get(gocv.VideoCaptureFrameWidth)),
		"height", int(cam.Get(gocv.VideoCaptureFrameHeight)),
	)
	return h
}

// Handle is one open VideoCapture device.
type Handle struct {
	logger *slog.Logger

	mu     sync.Mutex
	cam    *gocv.VideoCapture
	bgr    gocv.Mat
	rgba   gocv.Mat
	fresh  bool
	closed bool

	framesRead atomic.Int64
	width      atomic.Int64
	height     atomic.Int64
}

// Ready grabs the next frame from the device. VideoCapture has no
// non-blocking "have enough data" probe, so a successful grab is the signal
// and ReadFrame then converts the grabbed frame.
func (h *Handle) Ready() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	if h.fresh {
		return true
	}
	if ok := h.cam.Read(&h.bgr); !ok || h.bgr.Empty() {
		return false
	}
	h.fresh = true
	return true
}

// ReadFrame converts the grabbed BGR frame to RGBA and copies it into dst.
func (h *Handle) ReadFrame(dst *capture.Frame) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return capture.ErrClosed
	}
	if !h.fresh {
		if ok := h.cam.Read(&h.bgr); !ok || h.bgr.Empty() {
			return fmt.Errorf("webcam read: %w", capture.ErrUnavailable)
		}
	}
	h.fresh = false

	gocv.CvtColor(h.bgr, &h.rgba, gocv.ColorBGRToRGBA)
	w, ht := h.rgba.Cols(), h.rgba.Rows()
	dst.Resize(w, ht)
	copy(dst.Pix, h.rgba.ToBytes())
	dst.CapturedAt = time.Now()

	h.framesRead.Add(1)
	h.width.Store(int64(w))
	h.height.Store(int64(ht))
	return nil
}

// Close releases the device and both Mats. It is safe to call Close multiple times.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	h.bgr.Close()
	h.rgba.Close()
	err := h.cam.Close()
	h.logger.Info("webcam closed", "frames_read", h.framesRead.Load())
	return err
}

// Stats returns handle statistics.
func (h *Handle) Stats() capture.HandleStats {
	return capture.HandleStats{
		FramesRead: h.framesRead.Load(),
		Width:      int(h.width.Load()),
		Height:     int(h.height.Load()),
		Backend:    string(capture.BackendWebcam),
	}
}

var _ capture.HandleWithStats = (*Handle)(nil)
