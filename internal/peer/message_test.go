package peer

import (
	"errors"
	"testing"
)

func TestGreetingEnvelope(t *testing.T) {
	data, err := EncodeMessage(MessageTypeGreeting, GreetingPayload{Text: "hello", SentAt: 42})
	if err != nil {
		t.Fatalf("EncodeMessage: %v", err)
	}

	msg, err := DecodeMessage(data)
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	if msg.Type != MessageTypeGreeting {
		t.Fatalf("type=%q, want %q", msg.Type, MessageTypeGreeting)
	}

	var g GreetingPayload
	if err := msg.DecodePayload(&g); err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if g.Text != "hello" || g.SentAt != 42 {
		t.Fatalf("payload=%+v", g)
	}
}

func TestDecodeMessage_Garbage(t *testing.T) {
	var pe *Error
	if _, err := DecodeMessage([]byte{0xc1}); !errors.As(err, &pe) {
		t.Fatalf("err=%v, want *Error", err)
	}
}
