// Package web serves the scanner's HTTP API and live event stream.
package web

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/ghostscan/pkg/capture"
	"github.com/teslashibe/ghostscan/pkg/hub"
	"github.com/teslashibe/ghostscan/pkg/ledger"
	"github.com/teslashibe/ghostscan/pkg/qr"
	"github.com/teslashibe/ghostscan/pkg/scanner"
)

// Event types published on /ws/events.
const (
	EventStreaming        = "streaming"
	EventPermissionDenied = "permission_denied"
	EventDecoded          = "decoded"
	EventStopped          = "stopped"
)

// Server is the scanner API server.
type Server struct {
	app  *fiber.App
	port string

	session *scanner.Session
	ledger  *ledger.Ledger
	camera  *capture.Manager
	events  *hub.Hub
	logger  *slog.Logger

	// Acquisitions started over HTTP outlive their request; they are
	// bounded by the server instead.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates the API server. It takes over the session's event
// callbacks and the ledger's OnRecord hook.
func NewServer(port string, session *scanner.Session, book *ledger.Ledger, camera *capture.Manager, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		port:    port,
		session: session,
		ledger:  book,
		camera:  camera,
		events:  hub.New("events", logger),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
	s.bind()

	app := fiber.New(fiber.Config{
		AppName:               "ghostscan",
		DisableStartupMessage: true,
	})

	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/scanner", s.handleStatus)
	api.Post("/scanner/start", s.handleStart)
	api.Post("/scanner/stop", s.handleStop)
	api.Get("/ledger", s.handleListLedger)
	api.Get("/ledger/:id", s.handleGetEntry)
	api.Get("/camera", s.handleGetCamera)
	api.Put("/camera", s.handleUpdateCamera)
	api.Get("/qr", s.handleRenderQR)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/events", websocket.New(s.handleEventsWS))

	s.app = app
	return s
}

// bind routes session and ledger callbacks onto the event hub.
func (s *Server) bind() {
	s.session.OnStreaming = func(id string) {
		s.publish(EventStreaming, fiber.Map{"session_id": id})
	}
	s.session.OnPermissionDenied = func(reason string) {
		s.publish(EventPermissionDenied, fiber.Map{"reason": reason})
	}
	s.session.OnDecoded = func(id string, res qr.Result) {
		s.ledger.Record(id, res)
	}
	s.session.OnStopped = func() {
		s.publish(EventStopped, s.session.Status())
	}
	s.ledger.OnRecord = func(e ledger.Entry) {
		s.publish(EventDecoded, e)
	}
}

func (s *Server) publish(typ string, data any) {
	if err := s.events.Publish(hub.NewEvent(typ, data)); err != nil {
		s.logger.Error("publish event failed", "type", typ, "error", err)
	}
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Events returns the event hub.
func (s *Server) Events() *hub.Hub {
	return s.events
}

// Start runs the event hub and listens until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("scanner API listening", "url", "http://localhost:"+s.port)
	go s.events.Run(s.ctx)
	return s.app.Listen(":" + s.port)
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("web server error", "error", err)
		}
	}()
}

// Shutdown stops the scanner, closes event streams and stops the listener.
func (s *Server) Shutdown() error {
	s.cancel()
	if err := s.session.Stop(); err != nil {
		s.logger.Warn("scanner stop failed", "error", err)
	}
	return s.app.Shutdown()
}
