package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/teslashibe/ghostscan/pkg/hub"
)

func TestEventsURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"http://localhost:8080", "ws://localhost:8080/ws/events", false},
		{"https://pay.example/ghost/", "wss://pay.example/ghost/ws/events", false},
		{"ws://10.0.0.2:9000", "ws://10.0.0.2:9000/ws/events", false},
		{"ftp://nope", "", true},
	}
	for _, tc := range tests {
		got, err := eventsURL(strings.TrimRight(tc.in, "/"))
		if tc.wantErr {
			if err == nil {
				t.Errorf("eventsURL(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("eventsURL(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
}

// syncBuffer is a bytes.Buffer safe for concurrent use.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newEventServer(t *testing.T, events ...hub.Event) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/events", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, e := range events {
			conn.WriteJSON(e)
		}
		conn.WriteMessage(websocket.TextMessage, []byte("not json"))
		// Hold the stream open until the client leaves.
		conn.ReadMessage()
	})
	mux.HandleFunc("/api/scanner/start", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"scanner already active"}`, http.StatusConflict)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestWatcher_FollowUntilDecoded(t *testing.T) {
	srv := newEventServer(t,
		hub.NewEvent("streaming", map[string]string{"session_id": "abc"}),
		hub.NewEvent("decoded", map[string]string{"payload": "LEDGER:tx-42"}),
	)
	var out syncBuffer
	w := NewWatcher(srv.URL, &out, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	conn, err := w.Connect(ctx)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if err := w.Start(ctx); err != nil {
		t.Errorf("A 409 from start should be tolerated, got %v", err)
	}

	err = w.Follow(ctx, conn, func(e hub.Event) bool { return e.Type == "decoded" })
	if err != nil {
		t.Fatalf("Follow failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %q", out.String())
	}
	if !strings.Contains(lines[0], "streaming") || !strings.Contains(lines[1], "LEDGER:tx-42") {
		t.Errorf("Unexpected output %q", out.String())
	}
}

func TestWatcher_FollowCancelled(t *testing.T) {
	srv := newEventServer(t)
	w := NewWatcher(srv.URL, &syncBuffer{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	conn, err := w.Connect(ctx)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- w.Follow(ctx, conn, nil) }()
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Follow did not return after cancel")
	}
}
