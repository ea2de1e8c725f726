package httpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		var in map[string]string
		json.NewDecoder(r.Body).Decode(&in)
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"echo": in["preset"]})
	}))
	defer srv.Close()

	var out map[string]string
	if err := PostJSON(context.Background(), srv.URL, map[string]string{"preset": "720p"}, &out); err != nil {
		t.Fatalf("PostJSON failed: %v", err)
	}
	if out["echo"] != "720p" {
		t.Errorf("Expected echo 720p, got %q", out["echo"])
	}
}

func TestStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"scanner already active"}`, http.StatusConflict)
	}))
	defer srv.Close()

	err := PostJSON(context.Background(), srv.URL, nil, nil)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("Expected *StatusError, got %v", err)
	}
	if se.Code != http.StatusConflict {
		t.Errorf("Expected 409, got %d", se.Code)
	}

	if err := GetJSON(context.Background(), srv.URL, nil); err == nil {
		t.Error("Expected error from GetJSON")
	}
}
