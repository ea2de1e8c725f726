package capture

import (
	"image"
	"image/draw"
	"time"
)

// Frame is a rectangular grid of RGBA8 pixels captured at a single instant.
//
// A scanner session reuses one Frame as its pixel buffer: ReadFrame resizes it
// when the native resolution changes, so the slice must not be retained past
// the detection pass that received it.
type Frame struct {
	Width  int
	Height int

	// Pix holds RGBA samples, row-major, stride 4*Width.
	Pix []byte

	CapturedAt time.Time
}

// Stride returns the number of bytes per row.
func (f *Frame) Stride() int {
	return 4 * f.Width
}

// Resize sets the frame dimensions, growing Pix only when capacity is short.
// Existing pixel contents are not preserved.
func (f *Frame) Resize(width, height int) {
	n := 4 * width * height
	if cap(f.Pix) < n {
		f.Pix = make([]byte, n)
	}
	f.Pix = f.Pix[:n]
	f.Width = width
	f.Height = height
}

// Empty reports whether the frame holds no pixels.
func (f *Frame) Empty() bool {
	return f.Width == 0 || f.Height == 0 || len(f.Pix) < 4*f.Width*f.Height
}

// RGBA returns an image view over Pix without copying.
func (f *Frame) RGBA() *image.RGBA {
	return &image.RGBA{
		Pix:    f.Pix,
		Stride: f.Stride(),
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}

// CopyFrom copies src into f, resizing f to match.
func (f *Frame) CopyFrom(src *Frame) {
	f.Resize(src.Width, src.Height)
	copy(f.Pix, src.Pix)
	f.CapturedAt = src.CapturedAt
}

// FrameFromImage converts any image into an RGBA frame.
func FrameFromImage(img image.Image) Frame {
	b := img.Bounds()
	var f Frame
	f.Resize(b.Dx(), b.Dy())
	draw.Draw(f.RGBA(), f.RGBA().Rect, img, b.Min, draw.Src)
	f.CapturedAt = time.Now()
	return f
}
