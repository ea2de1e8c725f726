package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/teslashibe/ghostscan/internal/httpc"
	"github.com/teslashibe/ghostscan/pkg/hub"
)

// Watcher follows a ghostscan server's event stream.
type Watcher struct {
	base   string
	out    io.Writer
	logger *slog.Logger
	dialer websocket.Dialer
}

// NewWatcher creates a watcher for the server at base (http or https URL).
func NewWatcher(base string, out io.Writer, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		base:   strings.TrimRight(base, "/"),
		out:    out,
		logger: logger,
		dialer: websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// eventsURL maps the API base URL onto the websocket endpoint.
func eventsURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/events"
	return u.String(), nil
}

// Start asks the server to begin a scan. A scan already in progress is not
// an error.
func (w *Watcher) Start(ctx context.Context) error {
	var status map[string]any
	err := httpc.PostJSON(ctx, w.base+"/api/scanner/start", nil, &status)
	var se *httpc.StatusError
	if errors.As(err, &se) && se.Code == http.StatusConflict {
		w.logger.Info("scanner already active")
		return nil
	}
	if err != nil {
		return fmt.Errorf("start scanner: %w", err)
	}
	w.logger.Info("scan requested", "session", status["session_id"])
	return nil
}

// Connect opens the event stream.
func (w *Watcher) Connect(ctx context.Context) (*websocket.Conn, error) {
	target, err := eventsURL(w.base)
	if err != nil {
		return nil, err
	}
	conn, _, err := w.dialer.DialContext(ctx, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", target, err)
	}
	w.logger.Debug("following events", "url", target)
	return conn, nil
}

// Follow prints events from conn until ctx is cancelled, the server closes
// the stream, or until returns true for an event. It closes conn.
func (w *Watcher) Follow(ctx context.Context, conn *websocket.Conn, until func(hub.Event) bool) error {
	defer conn.Close()

	// Unblock ReadMessage on cancellation.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				return nil
			}
			return fmt.Errorf("read event: %w", err)
		}

		var e hub.Event
		if err := json.Unmarshal(data, &e); err != nil {
			w.logger.Warn("skipping malformed event", "error", err)
			continue
		}
		w.print(e)
		if until != nil && until(e) {
			return nil
		}
	}
}

func (w *Watcher) print(e hub.Event) {
	data, _ := json.Marshal(e.Data)
	fmt.Fprintf(w.out, "%s %-17s %s\n", e.Time.Local().Format("15:04:05"), e.Type, data)
}
