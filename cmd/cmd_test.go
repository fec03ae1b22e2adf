package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/BioHazard786/sdprelay/internal/config"
)

func TestFetchStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stats" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"rooms":2,"connections":3,"uptime_seconds":12.5}`))
	}))
	defer srv.Close()

	stats, err := fetchStats(context.Background(), srv.URL+"/stats")
	if err != nil {
		t.Fatalf("fetchStats: %v", err)
	}
	if stats.Rooms != 2 || stats.Connections != 3 || stats.UptimeSeconds != 12.5 {
		t.Fatalf("stats=%+v", stats)
	}

	if _, err := fetchStats(context.Background(), srv.URL+"/nope"); err == nil {
		t.Fatalf("fetchStats on 404 succeeded")
	}
}

func TestJoinServer(t *testing.T) {
	if got := joinServer(&config.Peer{ServerURL: config.DefaultServerURL}); got != "" {
		t.Fatalf("got %q for the default relay", got)
	}
	if got := joinServer(&config.Peer{ServerURL: "wss://relay.example/ws"}); got != "wss://relay.example/ws" {
		t.Fatalf("got %q", got)
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	cfg := &config.Server{
		ListenAddr:      "127.0.0.1:0",
		AllowedOrigins:  []string{"*"},
		RoomTTL:         time.Minute,
		SweepInterval:   time.Second,
		SendBuffer:      16,
		MaxMessageBytes: 1024,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg, zap.NewNop()) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("serve did not return after cancel")
	}
}
