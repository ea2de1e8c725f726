package ghost

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/teslashibe/ghostscan/pkg/capture"
	"github.com/teslashibe/ghostscan/pkg/qr"
)

// NewProvider creates a camera provider for cfg.
// If cfg.Backend is BackendAuto, the best available backend is selected.
func NewProvider(cfg capture.Config, logger *slog.Logger) (capture.Provider, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid camera config: %v", errs)
	}
	if logger == nil {
		logger = slog.Default()
	}

	backend := cfg.ResolveBackend()
	logger.Info("creating camera provider",
		"backend", backend,
		"facing", cfg.Facing,
		"width", cfg.Width,
		"height", cfg.Height,
		"fps", cfg.Framerate,
	)

	switch backend {
	case capture.BackendMock:
		return capture.NewMockProvider(logger, capture.WithWarmup(2)), nil
	case capture.BackendWebcam:
		return newWebcamProvider(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported backend: %s", backend)
	}
}

// NewDecoder creates the named decoder. The returned closer is nil when the
// decoder holds no native resources.
func NewDecoder(name string, logger *slog.Logger) (qr.Decoder, io.Closer, error) {
	switch name {
	case DecoderZXing, "":
		return qr.NewZXing(logger), nil, nil
	case DecoderOpenCV:
		return newOpenCVDecoder(logger)
	default:
		return nil, nil, fmt.Errorf("unsupported decoder: %s", name)
	}
}
