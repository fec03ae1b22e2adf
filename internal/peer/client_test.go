package peer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/BioHazard786/sdprelay/internal/config"
	"github.com/BioHazard786/sdprelay/internal/metrics"
	"github.com/BioHazard786/sdprelay/internal/server"
	"github.com/BioHazard786/sdprelay/internal/signaling"
)

func startRelay(t *testing.T) string {
	t.Helper()

	log := zap.NewNop()
	hub := signaling.NewHub(signaling.NewRegistry(), signaling.HubOptions{
		Logger:  log,
		Metrics: metrics.New(),
	})
	cfg := &config.Server{
		AllowedOrigins:  []string{"*"},
		SendBuffer:      64,
		MaxMessageBytes: 64 * 1024,
	}
	srv := httptest.NewServer(server.ServeWs(hub, cfg, log))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func connect(t *testing.T, url string) (*Client, *Handler) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c := NewClient(url)
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	h := NewHandler(c.Incoming())
	go h.Start()
	t.Cleanup(func() {
		h.Stop()
		c.Close()
	})
	return c, h
}

func recv[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
	var zero T
	return zero
}

func TestClientAgainstRelay(t *testing.T) {
	url := startRelay(t)
	sender, sh := connect(t, url)
	receiver, rh := connect(t, url)

	if err := sender.Send(signaling.CreateRoom{}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	id := recv(t, sh.RoomCreated, "room id")
	if len(id) != signaling.RoomIDLength {
		t.Fatalf("id=%q", id)
	}

	sender.Send(signaling.UpdateOffer{ID: id, Type: "offer", SDP: "X"})
	if got := recv(t, sh.OfferUpdated, "offer ack"); got != id {
		t.Fatalf("offer ack for %q, want %q", got, id)
	}
	sender.Send(signaling.IceUpdate{ID: id, Peer: signaling.RoleSender, Candidate: json.RawMessage(`{"candidate":"s1"}`)})

	receiver.Send(signaling.GetOffer{ID: id})
	offer := recv(t, rh.Offer, "offer")
	if offer.Type != "offer" || offer.SDP != "X" {
		t.Fatalf("offer=%+v", offer)
	}
	if got := recv(t, rh.Candidate, "replayed candidate"); string(got) != `{"candidate":"s1"}` {
		t.Fatalf("candidate=%s", got)
	}

	receiver.Send(signaling.CreateAnswer{ID: id, Type: "answer", SDP: "Y"})
	answer := recv(t, sh.Answer, "answer")
	if answer.Type != "answer" || answer.SDP != "Y" {
		t.Fatalf("answer=%+v", answer)
	}

	receiver.Send(signaling.IceUpdate{ID: id, Peer: signaling.RoleReceiver, Candidate: json.RawMessage(`"r1"`)})
	if got := recv(t, sh.Candidate, "relayed candidate"); string(got) != `"r1"` {
		t.Fatalf("candidate=%s", got)
	}
}

func TestClientSendAfterClose(t *testing.T) {
	url := startRelay(t)
	c, h := connect(t, url)

	c.Close()
	if err := c.Send(signaling.CreateRoom{}); !errors.Is(err, ErrClientClosed) {
		t.Fatalf("err=%v, want ErrClientClosed", err)
	}

	select {
	case <-h.Done:
	case <-time.After(2 * time.Second):
		t.Fatalf("handler still running after close")
	}
}

func TestClientConnectRefused(t *testing.T) {
	srv := httptest.NewServer(nil)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := NewClient(url).Connect(ctx); err == nil {
		t.Fatalf("Connect to closed server succeeded")
	}
}
