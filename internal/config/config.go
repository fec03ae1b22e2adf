package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Default configuration values
const (
	DefaultListenAddr     = ":8765"
	DefaultAllowedOrigins = "*"
	DefaultServerLogLevel = "info"
	DefaultRoomTTL        = 30 * time.Minute
	DefaultSweepInterval  = time.Minute
	DefaultSendBuffer     = 256
	DefaultMaxMessage     = 64 * 1024

	DefaultServerURL   = "ws://localhost:8765/ws"
	DefaultSTUN        = "stun:stun.l.google.com:19302"
	DefaultPeerTimeout = 10 * time.Minute
)

// Server holds relay configuration
type Server struct {
	ListenAddr     string
	AllowedOrigins []string
	LogLevel       string

	// RoomTTL is the idle time after which a room is evicted. Zero keeps
	// rooms for the process lifetime.
	RoomTTL       time.Duration
	SweepInterval time.Duration

	SendBuffer      int
	MaxMessageBytes int64

	ErrorReplies bool
}

// ServerOptions for loading server config with CLI flag overrides. Zero
// values mean "not set on the command line".
type ServerOptions struct {
	ListenAddr      string
	AllowedOrigins  string
	LogLevel        string
	RoomTTL         string
	SweepInterval   string
	SendBuffer      int
	MaxMessageBytes int64

	// ErrorReplies is nil when the flag was not given.
	ErrorReplies *bool
}

// LoadServer reads configuration with the following priority:
// 1. CLI flags (passed via ServerOptions) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func LoadServer(opts ServerOptions) (*Server, error) {
	cfg := &Server{
		ListenAddr: pick(opts.ListenAddr, "LISTEN_ADDR", DefaultListenAddr),
		LogLevel:   pick(opts.LogLevel, "LOG_LEVEL", DefaultServerLogLevel),
	}

	cfg.AllowedOrigins = splitList(pick(opts.AllowedOrigins, "ALLOWED_ORIGINS", DefaultAllowedOrigins))
	if len(cfg.AllowedOrigins) == 0 {
		return nil, fmt.Errorf("allowed origins: empty list")
	}

	var err error
	if cfg.RoomTTL, err = parseDuration("room ttl", pick(opts.RoomTTL, "ROOM_TTL", ""), DefaultRoomTTL); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = parseDuration("sweep interval", pick(opts.SweepInterval, "SWEEP_INTERVAL", ""), DefaultSweepInterval); err != nil {
		return nil, err
	}
	if cfg.RoomTTL > 0 && cfg.SweepInterval <= 0 {
		return nil, fmt.Errorf("sweep interval must be positive when room ttl is set")
	}

	sendBuffer := opts.SendBuffer
	if sendBuffer == 0 {
		if sendBuffer, err = parseInt("send buffer", os.Getenv("SEND_BUFFER"), DefaultSendBuffer); err != nil {
			return nil, err
		}
	}
	if sendBuffer <= 0 {
		return nil, fmt.Errorf("send buffer must be positive, got %d", sendBuffer)
	}
	cfg.SendBuffer = sendBuffer

	maxMessage := opts.MaxMessageBytes
	if maxMessage == 0 {
		n, err := parseInt("max message bytes", os.Getenv("MAX_MESSAGE_BYTES"), DefaultMaxMessage)
		if err != nil {
			return nil, err
		}
		maxMessage = int64(n)
	}
	if maxMessage <= 0 {
		return nil, fmt.Errorf("max message bytes must be positive, got %d", maxMessage)
	}
	cfg.MaxMessageBytes = maxMessage

	switch {
	case opts.ErrorReplies != nil:
		cfg.ErrorReplies = *opts.ErrorReplies
	case os.Getenv("ERROR_REPLIES") != "":
		b, err := strconv.ParseBool(os.Getenv("ERROR_REPLIES"))
		if err != nil {
			return nil, fmt.Errorf("error replies: %w", err)
		}
		cfg.ErrorReplies = b
	}

	return cfg, nil
}

// AllowsAnyOrigin reports whether the origin list contains the wildcard.
func (c *Server) AllowsAnyOrigin() bool {
	for _, o := range c.AllowedOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

// Peer holds configuration for the send/receive commands
type Peer struct {
	// ServerURL is the relay's websocket endpoint
	ServerURL string

	// ICE servers for WebRTC
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string

	Timeout  time.Duration
	LogLevel string
}

// PeerOptions for loading peer config with CLI flag overrides
type PeerOptions struct {
	ServerURL  string
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	Timeout    time.Duration
	LogLevel   string
}

// LoadPeer resolves peer configuration: CLI flag > env > default.
func LoadPeer(opts PeerOptions) (*Peer, error) {
	cfg := &Peer{
		ServerURL:  pick(opts.ServerURL, "SERVER_URL", DefaultServerURL),
		STUNServer: pick(opts.STUNServer, "STUN_SERVER", DefaultSTUN),
		TURNServer: pick(opts.TURNServer, "TURN_SERVER", ""),
		TURNUser:   pick(opts.TURNUser, "TURN_USERNAME", ""),
		TURNPass:   pick(opts.TURNPass, "TURN_PASSWORD", ""),
		LogLevel:   pick(opts.LogLevel, "LOG_LEVEL", "error"),
		Timeout:    opts.Timeout,
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultPeerTimeout
	}

	if !strings.HasPrefix(cfg.ServerURL, "ws://") && !strings.HasPrefix(cfg.ServerURL, "wss://") {
		return nil, fmt.Errorf("server url must start with ws:// or wss://, got %q", cfg.ServerURL)
	}
	if cfg.TURNServer != "" && cfg.TURNUser == "" {
		return nil, fmt.Errorf("turn server configured without username")
	}

	return cfg, nil
}

// GetSTUNServers returns STUN server URLs as strings
func (c *Peer) GetSTUNServers() []string {
	if c.STUNServer == "" {
		return nil
	}
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured
func (c *Peer) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	return []string{c.TURNServer}
}

// GetTURNCredentials returns TURN username and password
func (c *Peer) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}

// StatsURL maps the websocket endpoint onto the relay's /stats endpoint.
func (c *Peer) StatsURL() (string, error) {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "wss":
		u.Scheme = "https"
	default:
		u.Scheme = "http"
	}
	u.Path = "/stats"
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

func pick(flag, env, def string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseDuration(name, s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %s", name, s)
	}
	return d, nil
}

func parseInt(name, s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return n, nil
}
