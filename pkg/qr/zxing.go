package qr

import (
	"image"
	"log/slog"
	"sync"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// ZXing decodes QR symbols with the pure-Go zxing port.
type ZXing struct {
	logger    *slog.Logger
	tryHarder bool

	mu     sync.Mutex // reader keeps per-call state
	reader gozxing.Reader
}

// ZXingOption configures a ZXing decoder.
type ZXingOption func(*ZXing)

// WithTryHarder spends more time per frame on rotated or skewed symbols.
func WithTryHarder() ZXingOption {
	return func(z *ZXing) {
		z.tryHarder = true
	}
}

// NewZXing creates a zxing-backed decoder.
func NewZXing(logger *slog.Logger, opts ...ZXingOption) *ZXing {
	if logger == nil {
		logger = slog.Default()
	}
	z := &ZXing{
		logger: logger,
		reader: qrcode.NewQRCodeReader(),
	}
	for _, opt := range opts {
		opt(z)
	}
	return z
}

// Decode runs the reader on pix once per pass of mode.
func (z *ZXing) Decode(pix []byte, width, height int, mode Inversion) (Result, bool) {
	if width <= 0 || height <= 0 || len(pix) < 4*width*height {
		return Result{}, false
	}

	img := &image.RGBA{
		Pix:    pix,
		Stride: 4 * width,
		Rect:   image.Rect(0, 0, width, height),
	}
	src := gozxing.NewLuminanceSourceFromImage(img)

	var hints map[gozxing.DecodeHintType]interface{}
	if z.tryHarder {
		hints = map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		}
	}

	z.mu.Lock()
	defer z.mu.Unlock()

	for _, inverted := range mode.Passes() {
		lum := src
		if inverted {
			lum = src.Invert()
		}
		bmp, err := gozxing.NewBinaryBitmap(gozxing.NewHybridBinarizer(lum))
		if err != nil {
			continue
		}
		result, err := z.reader.Decode(bmp, hints)
		z.reader.Reset()
		if err != nil {
			// NotFound, Checksum and Format all mean "no readable symbol this frame".
			continue
		}
		return Result{
			Text:     result.GetText(),
			Raw:      result.GetRawBytes(),
			Location: locate(result.GetResultPoints()),
		}, true
	}
	return Result{}, false
}

// locate maps zxing's finder pattern centres (bottom-left, top-left,
// top-right, then optionally the alignment pattern) onto four points. The
// bottom-right point is completed as a parallelogram when no alignment
// pattern was found.
func locate(points []gozxing.ResultPoint) Location {
	if len(points) < 3 {
		return Location{}
	}
	pt := func(p gozxing.ResultPoint) Point {
		return Point{X: p.GetX(), Y: p.GetY()}
	}
	loc := Location{
		BottomLeft: pt(points[0]),
		TopLeft:    pt(points[1]),
		TopRight:   pt(points[2]),
	}
	loc.BottomRight = Point{
		X: loc.TopRight.X + loc.BottomLeft.X - loc.TopLeft.X,
		Y: loc.TopRight.Y + loc.BottomLeft.Y - loc.TopLeft.Y,
	}
	return loc
}

var _ Decoder = (*ZXing)(nil)
