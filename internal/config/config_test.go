package config

import (
	"reflect"
	"testing"
	"time"
)

func clearServerEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"LISTEN_ADDR", "ALLOWED_ORIGINS", "LOG_LEVEL", "ROOM_TTL", "SWEEP_INTERVAL", "SEND_BUFFER", "MAX_MESSAGE_BYTES", "ERROR_REPLIES"} {
		t.Setenv(k, "")
	}
}

func TestLoadServer_Defaults(t *testing.T) {
	clearServerEnv(t)

	cfg, err := LoadServer(ServerOptions{})
	if err != nil {
		t.Fatalf("LoadServer: %v", err)
	}
	if cfg.ListenAddr != DefaultListenAddr {
		t.Fatalf("ListenAddr=%q, want %q", cfg.ListenAddr, DefaultListenAddr)
	}
	if !cfg.AllowsAnyOrigin() {
		t.Fatalf("AllowedOrigins=%v, want wildcard", cfg.AllowedOrigins)
	}
	if cfg.RoomTTL != DefaultRoomTTL || cfg.SweepInterval != DefaultSweepInterval {
		t.Fatalf("ttl=%v sweep=%v", cfg.RoomTTL, cfg.SweepInterval)
	}
	if cfg.SendBuffer != DefaultSendBuffer || cfg.MaxMessageBytes != DefaultMaxMessage {
		t.Fatalf("send buffer=%d max message=%d", cfg.SendBuffer, cfg.MaxMessageBytes)
	}
	if cfg.ErrorReplies {
		t.Fatalf("ErrorReplies=true, want false")
	}
}

func TestLoadServer_FlagBeatsEnv(t *testing.T) {
	clearServerEnv(t)
	t.Setenv("LISTEN_ADDR", ":9000")
	t.Setenv("ROOM_TTL", "5m")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := LoadServer(ServerOptions{ListenAddr: ":7000"})
	if err != nil {
		t.Fatalf("LoadServer: %v", err)
	}
	if cfg.ListenAddr != ":7000" {
		t.Fatalf("ListenAddr=%q, want :7000", cfg.ListenAddr)
	}
	if cfg.RoomTTL != 5*time.Minute {
		t.Fatalf("RoomTTL=%v, want 5m", cfg.RoomTTL)
	}
	want := []string{"https://a.example", "https://b.example"}
	if !reflect.DeepEqual(cfg.AllowedOrigins, want) {
		t.Fatalf("AllowedOrigins=%v, want %v", cfg.AllowedOrigins, want)
	}
	if cfg.AllowsAnyOrigin() {
		t.Fatalf("AllowsAnyOrigin=true, want false")
	}
}

func TestLoadServer_ZeroTTLDisablesExpiry(t *testing.T) {
	clearServerEnv(t)
	t.Setenv("ROOM_TTL", "0")

	cfg, err := LoadServer(ServerOptions{})
	if err != nil {
		t.Fatalf("LoadServer: %v", err)
	}
	if cfg.RoomTTL != 0 {
		t.Fatalf("RoomTTL=%v, want 0", cfg.RoomTTL)
	}
}

func TestLoadServer_ErrorRepliesFromEnv(t *testing.T) {
	clearServerEnv(t)
	t.Setenv("ERROR_REPLIES", "true")

	cfg, err := LoadServer(ServerOptions{})
	if err != nil {
		t.Fatalf("LoadServer: %v", err)
	}
	if !cfg.ErrorReplies {
		t.Fatalf("ErrorReplies=false, want true")
	}
}

func TestLoadServer_ErrorRepliesFlagBeatsEnv(t *testing.T) {
	clearServerEnv(t)
	t.Setenv("ERROR_REPLIES", "true")

	off := false
	cfg, err := LoadServer(ServerOptions{ErrorReplies: &off})
	if err != nil {
		t.Fatalf("LoadServer: %v", err)
	}
	if cfg.ErrorReplies {
		t.Fatalf("ErrorReplies=true, want false from flag")
	}
}

func TestLoadServer_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		opts ServerOptions
	}{
		{name: "bad ttl", env: map[string]string{"ROOM_TTL": "soon"}},
		{name: "negative ttl", opts: ServerOptions{RoomTTL: "-1m"}},
		{name: "zero sweep with ttl", opts: ServerOptions{SweepInterval: "0s"}},
		{name: "bad send buffer", env: map[string]string{"SEND_BUFFER": "lots"}},
		{name: "negative send buffer", opts: ServerOptions{SendBuffer: -1}},
		{name: "bad error replies", env: map[string]string{"ERROR_REPLIES": "maybe"}},
		{name: "empty origins", opts: ServerOptions{AllowedOrigins: " , "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearServerEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := LoadServer(tt.opts); err == nil {
				t.Fatalf("LoadServer succeeded, want error")
			}
		})
	}
}

func TestLoadPeer(t *testing.T) {
	for _, k := range []string{"SERVER_URL", "STUN_SERVER", "TURN_SERVER", "TURN_USERNAME", "TURN_PASSWORD", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	t.Setenv("SERVER_URL", "wss://relay.example/ws")

	cfg, err := LoadPeer(PeerOptions{})
	if err != nil {
		t.Fatalf("LoadPeer: %v", err)
	}
	if cfg.ServerURL != "wss://relay.example/ws" {
		t.Fatalf("ServerURL=%q", cfg.ServerURL)
	}
	if got := cfg.GetSTUNServers(); !reflect.DeepEqual(got, []string{DefaultSTUN}) {
		t.Fatalf("GetSTUNServers=%v", got)
	}
	if cfg.GetTURNServers() != nil {
		t.Fatalf("GetTURNServers=%v, want nil", cfg.GetTURNServers())
	}
	if cfg.Timeout != DefaultPeerTimeout {
		t.Fatalf("Timeout=%v, want %v", cfg.Timeout, DefaultPeerTimeout)
	}

	statsURL, err := cfg.StatsURL()
	if err != nil {
		t.Fatalf("StatsURL: %v", err)
	}
	if statsURL != "https://relay.example/stats" {
		t.Fatalf("StatsURL=%q, want https://relay.example/stats", statsURL)
	}
}

func TestLoadPeer_Invalid(t *testing.T) {
	for _, k := range []string{"SERVER_URL", "TURN_SERVER", "TURN_USERNAME"} {
		t.Setenv(k, "")
	}

	if _, err := LoadPeer(PeerOptions{ServerURL: "http://relay.example"}); err == nil {
		t.Fatalf("LoadPeer accepted http:// url")
	}
	if _, err := LoadPeer(PeerOptions{TURNServer: "turn:relay.example:3478"}); err == nil {
		t.Fatalf("LoadPeer accepted turn server without username")
	}
}
