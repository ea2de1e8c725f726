// Package qr locates and decodes QR symbols in RGBA pixel buffers.
package qr

import "fmt"

// Inversion controls whether light-on-dark symbols are also searched for.
type Inversion int

const (
	// DontInvert only looks for dark modules on a light background.
	DontInvert Inversion = iota
	// OnlyInvert only looks for light modules on a dark background.
	OnlyInvert
	// AttemptBoth tries the normal image first, then the inverted one.
	AttemptBoth
	// InvertFirst tries the inverted image first, then the normal one.
	InvertFirst
)

var inversionNames = map[Inversion]string{
	DontInvert:  "dontInvert",
	OnlyInvert:  "onlyInvert",
	AttemptBoth: "attemptBoth",
	InvertFirst: "invertFirst",
}

func (i Inversion) String() string {
	if s, ok := inversionNames[i]; ok {
		return s
	}
	return fmt.Sprintf("Inversion(%d)", int(i))
}

// ParseInversion parses the names returned by Inversion.String.
func ParseInversion(s string) (Inversion, error) {
	for k, v := range inversionNames {
		if v == s {
			return k, nil
		}
	}
	return DontInvert, fmt.Errorf("unknown inversion mode: %q", s)
}

// Passes returns, in order, whether each decode attempt should use the inverted image.
func (i Inversion) Passes() []bool {
	switch i {
	case OnlyInvert:
		return []bool{true}
	case AttemptBoth:
		return []bool{false, true}
	case InvertFirst:
		return []bool{true, false}
	default:
		return []bool{false}
	}
}

// Point is an image coordinate in pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Location holds four points locating a symbol in the frame.
type Location struct {
	TopLeft     Point `json:"top_left"`
	TopRight    Point `json:"top_right"`
	BottomRight Point `json:"bottom_right"`
	BottomLeft  Point `json:"bottom_left"`
}

// Center returns the mean of the four points.
func (l Location) Center() Point {
	return Point{
		X: (l.TopLeft.X + l.TopRight.X + l.BottomRight.X + l.BottomLeft.X) / 4,
		Y: (l.TopLeft.Y + l.TopRight.Y + l.BottomRight.Y + l.BottomLeft.Y) / 4,
	}
}

// Result is one decoded symbol.
type Result struct {
	Text     string   `json:"text"`
	Raw      []byte   `json:"raw,omitempty"`
	Location Location `json:"location"`
}

// Decoder finds and decodes a symbol in an RGBA8 pixel buffer.
// Absence of a symbol is reported as ok=false, never as an error.
type Decoder interface {
	Decode(pix []byte, width, height int, mode Inversion) (res Result, ok bool)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(pix []byte, width, height int, mode Inversion) (Result, bool)

// Decode calls f.
func (f DecoderFunc) Decode(pix []byte, width, height int, mode Inversion) (Result, bool) {
	return f(pix, width, height, mode)
}
