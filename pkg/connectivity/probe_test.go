package connectivity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestStatic(t *testing.T) {
	s := NewStatic(true)
	if !s.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}

	s.Set(false)
	if s.IsConnected() {
		t.Error("IsConnected() = true after Set(false)")
	}
}

func TestMonitor_Check(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("method = %s, want HEAD", r.Method)
		}
		// Any status means the host answered.
		w.WriteHeader(http.StatusUnauthorized)
	}))

	m := NewMonitor(DefaultMonitorConfig(server.URL))
	if m.IsConnected() {
		t.Error("Monitor should report offline before the first check")
	}

	if !m.Check(context.Background()) || !m.IsConnected() {
		t.Error("Check() should report online for a responding host")
	}

	server.Close()
	if m.Check(context.Background()) || m.IsConnected() {
		t.Error("Check() should report offline after the host went away")
	}
}

func TestMonitor_Start(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	cfg := DefaultMonitorConfig(server.URL)
	cfg.Interval = 10 * time.Millisecond
	m := NewMonitor(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m.Start(ctx)
	if !m.IsConnected() {
		t.Error("Start() should check synchronously")
	}
}

func TestMonitor_InvalidURL(t *testing.T) {
	m := NewMonitor(DefaultMonitorConfig("://bad"))
	if m.Check(context.Background()) {
		t.Error("Check() with an invalid URL should report offline")
	}
}
