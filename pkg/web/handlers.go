package web

import (
	"bytes"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/ghostscan/pkg/capture"
	"github.com/teslashibe/ghostscan/pkg/hub"
	"github.com/teslashibe/ghostscan/pkg/qr"
	"github.com/teslashibe/ghostscan/pkg/scanner"
)

// CameraResponse is returned by GET /api/camera
type CameraResponse struct {
	Config  capture.Config `json:"config"`
	Presets []string       `json:"presets"`
}

// handleStatus returns the scanner snapshot
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.session.Status())
}

// handleStart begins a scan
func (s *Server) handleStart(c *fiber.Ctx) error {
	if err := s.session.Start(s.ctx); err != nil {
		if errors.Is(err, scanner.ErrAlreadyActive) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error":  err.Error(),
				"status": s.session.Status(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.Status(fiber.StatusAccepted).JSON(s.session.Status())
}

// handleStop stops the scanner from any state
func (s *Server) handleStop(c *fiber.Ctx) error {
	if err := s.session.Stop(); err != nil {
		s.logger.Warn("scanner stop reported an error", "error", err)
	}
	return c.JSON(s.session.Status())
}

// handleListLedger returns all recorded scans, oldest first
func (s *Server) handleListLedger(c *fiber.Ctx) error {
	return c.JSON(s.ledger.List())
}

// handleGetEntry returns a single ledger entry
func (s *Server) handleGetEntry(c *fiber.Ctx) error {
	e, ok := s.ledger.Get(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "entry not found",
		})
	}
	return c.JSON(e)
}

// handleGetCamera returns the camera configuration and preset names
func (s *Server) handleGetCamera(c *fiber.Ctx) error {
	return c.JSON(CameraResponse{
		Config:  s.camera.GetConfig(),
		Presets: capture.PresetNames(),
	})
}

// handleUpdateCamera applies a partial camera update
func (s *Server) handleUpdateCamera(c *fiber.Ctx) error {
	var params map[string]interface{}
	if err := c.BodyParser(&params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid JSON body",
		})
	}

	if err := s.camera.UpdateConfig(params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(CameraResponse{
		Config:  s.camera.GetConfig(),
		Presets: capture.PresetNames(),
	})
}

// handleRenderQR renders a merchant symbol as PNG
func (s *Server) handleRenderQR(c *fiber.Ctx) error {
	text := c.Query("text")
	if text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "text is required",
		})
	}
	size := c.QueryInt("size", 256)

	var buf bytes.Buffer
	if err := qr.EncodePNG(&buf, text, size); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(buf.Bytes())
}

// handleEventsWS streams scanner events until the client disconnects
func (s *Server) handleEventsWS(c *websocket.Conn) {
	client := hub.NewClient(s.events, c)
	if client == nil {
		return
	}
	client.Run()
}
