//go:build cgo && !nogocv

package ghost

import (
	"io"
	"log/slog"

	"github.com/teslashibe/ghostscan/pkg/capture"
	"github.com/teslashibe/ghostscan/pkg/capture/webcam"
	"github.com/teslashibe/ghostscan/pkg/qr"
	"github.com/teslashibe/ghostscan/pkg/qr/opencv"
)

func newWebcamProvider(cfg capture.Config, logger *slog.Logger) (capture.Provider, error) {
	p, err := webcam.NewProvider(cfg, logger)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func newOpenCVDecoder(logger *slog.Logger) (qr.Decoder, io.Closer, error) {
	d := opencv.New(logger)
	return d, d, nil
}
