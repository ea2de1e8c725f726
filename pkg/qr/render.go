package qr

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// Render size limits in pixels.
const (
	MinRenderSize = 64
	MaxRenderSize = 2048
)

// Render draws text as a QR symbol, black on white, with a 4-module quiet zone.
func Render(text string, size int) (*image.RGBA, error) {
	if text == "" {
		return nil, fmt.Errorf("empty payload")
	}
	if size < MinRenderSize || size > MaxRenderSize {
		return nil, fmt.Errorf("size must be between %d and %d, got %d", MinRenderSize, MaxRenderSize, size)
	}

	hints := map[gozxing.EncodeHintType]interface{}{
		gozxing.EncodeHintType_MARGIN: 4,
	}
	matrix, err := qrcode.NewQRCodeWriter().Encode(text, gozxing.BarcodeFormat_QR_CODE, size, size, hints)
	if err != nil {
		return nil, fmt.Errorf("encode symbol: %w", err)
	}

	w, h := matrix.GetWidth(), matrix.GetHeight()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
			if matrix.Get(x, y) {
				c = color.RGBA{A: 0xff}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img, nil
}

// EncodePNG renders text and writes it to w as PNG.
func EncodePNG(w io.Writer, text string, size int) error {
	img, err := Render(text, size)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}
