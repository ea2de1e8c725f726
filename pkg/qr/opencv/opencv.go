// Package opencv provides a qr.Decoder backed by OpenCV's QRCodeDetector.
package opencv

import (
	"log/slog"
	"sync"

	"github.com/teslashibe/ghostscan/pkg/qr"
	"gocv.io/x/gocv"
)

// Detector wraps gocv.QRCodeDetector.
type Detector struct {
	logger *slog.Logger

	mu       sync.Mutex // Protects detector and scratch Mats
	detector gocv.QRCodeDetector
	bgr      gocv.Mat
	inverted gocv.Mat
	points   gocv.Mat
	straight gocv.Mat
}

// New creates an OpenCV QR detector. Call Close to release native memory.
func New(logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		logger:   logger,
		detector: gocv.NewQRCodeDetector(),
		bgr:      gocv.NewMat(),
		inverted: gocv.NewMat(),
		points:   gocv.NewMat(),
		straight: gocv.NewMat(),
	}
}

// Decode converts pix to BGR and runs DetectAndDecode once per pass of mode.
func (d *Detector) Decode(pix []byte, width, height int, mode qr.Inversion) (qr.Result, bool) {
	if width <= 0 || height <= 0 || len(pix) < 4*width*height {
		return qr.Result{}, false
	}

	rgba, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC4, pix[:4*width*height])
	if err != nil {
		d.logger.Debug("opencv: wrap frame failed", "error", err)
		return qr.Result{}, false
	}
	defer rgba.Close()

	d.mu.Lock()
	defer d.mu.Unlock()

	gocv.CvtColor(rgba, &d.bgr, gocv.ColorRGBAToBGR)

	for _, inverted := range mode.Passes() {
		img := d.bgr
		if inverted {
			gocv.BitwiseNot(d.bgr, &d.inverted)
			img = d.inverted
		}
		text := d.detector.DetectAndDecode(img, &d.points, &d.straight)
		if text == "" {
			continue
		}
		return qr.Result{
			Text:     text,
			Raw:      []byte(text),
			Location: d.location(),
		}, true
	}
	return qr.Result{}, false
}

// location reads the four corners DetectAndDecode stores as 32-bit float
// pairs, clockwise from top-left.
func (d *Detector) location() qr.Location {
	if d.points.Empty() || d.points.Total() < 4 {
		return qr.Location{}
	}
	vals, err := d.points.DataPtrFloat32()
	if err != nil || len(vals) < 8 {
		return qr.Location{}
	}
	pt := func(i int) qr.Point {
		return qr.Point{X: float64(vals[2*i]), Y: float64(vals[2*i+1])}
	}
	return qr.Location{
		TopLeft:     pt(0),
		TopRight:    pt(1),
		BottomRight: pt(2),
		BottomLeft:  pt(3),
	}
}

// Close releases the detector and scratch Mats.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bgr.Close()
	d.inverted.Close()
	d.points.Close()
	d.straight.Close()
	return d.detector.Close()
}

var _ qr.Decoder = (*Detector)(nil)
