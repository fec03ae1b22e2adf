package ui

import (
	"strings"
	"testing"
)

func TestJoinCommand(t *testing.T) {
	if got := JoinCommand("abc12345", ""); got != "sdprelay receive abc12345" {
		t.Fatalf("got %q", got)
	}
	if got := JoinCommand("abc12345", "wss://relay.example/ws"); got != "sdprelay receive --server wss://relay.example/ws abc12345" {
		t.Fatalf("got %q", got)
	}
}

func TestStatsView(t *testing.T) {
	out := StatsView("http://localhost:8765/stats", RelayStats{Rooms: 3, Connections: 5, UptimeSeconds: 90})

	for _, want := range []string{"Rooms", "3", "Connections", "5", "1m30s", "localhost:8765"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSessionSummaryViewSkipsEmptyRows(t *testing.T) {
	out := SessionSummaryView(SessionSummary{Role: "receiver", RoomID: "abc12345", Received: "hi"})

	if !strings.Contains(out, "abc12345") || !strings.Contains(out, "hi") {
		t.Fatalf("summary missing values:\n%s", out)
	}
	if strings.Contains(out, "Round trip") || strings.Contains(out, "Sent") {
		t.Fatalf("summary has empty rows:\n%s", out)
	}
}
