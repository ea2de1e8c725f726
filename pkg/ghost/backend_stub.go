//go:build !cgo || nogocv

package ghost

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/teslashibe/ghostscan/pkg/capture"
	"github.com/teslashibe/ghostscan/pkg/qr"
)

// newWebcamProvider returns an error when built without OpenCV.
func newWebcamProvider(cfg capture.Config, logger *slog.Logger) (capture.Provider, error) {
	return nil, fmt.Errorf("webcam backend requires OpenCV (build with cgo and without the nogocv tag)")
}

// newOpenCVDecoder returns an error when built without OpenCV.
func newOpenCVDecoder(logger *slog.Logger) (qr.Decoder, io.Closer, error) {
	return nil, nil, fmt.Errorf("opencv decoder requires OpenCV (build with cgo and without the nogocv tag)")
}
