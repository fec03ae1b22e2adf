package peer

import (
	"errors"
	"strings"
	"testing"

	pion "github.com/pion/webrtc/v4"

	"github.com/BioHazard786/sdprelay/internal/config"
)

func TestOfferAnswerExchange(t *testing.T) {
	cfg := &config.Peer{}

	offerer, err := NewPeerConnection(cfg)
	if err != nil {
		t.Fatalf("NewPeerConnection: %v", err)
	}
	defer offerer.Close()
	answerer, err := NewPeerConnection(cfg)
	if err != nil {
		t.Fatalf("NewPeerConnection: %v", err)
	}
	defer answerer.Close()

	if _, err := CreateDataChannel(offerer, ChannelLabel); err != nil {
		t.Fatalf("CreateDataChannel: %v", err)
	}

	offer, err := CreateOffer(offerer)
	if err != nil {
		t.Fatalf("CreateOffer: %v", err)
	}
	if !strings.Contains(offer.SDP, "m=application") {
		t.Fatalf("offer has no data section:\n%s", offer.SDP)
	}

	// Round the offer through the wire representation.
	desc, err := Description(offer.Type.String(), offer.SDP, pion.SDPTypeOffer)
	if err != nil {
		t.Fatalf("Description: %v", err)
	}
	answer, err := CreateAnswer(answerer, desc)
	if err != nil {
		t.Fatalf("CreateAnswer: %v", err)
	}
	if answer.Type != pion.SDPTypeAnswer {
		t.Fatalf("answer type=%v", answer.Type)
	}

	back, err := Description(answer.Type.String(), answer.SDP, pion.SDPTypeAnswer)
	if err != nil {
		t.Fatalf("Description: %v", err)
	}
	if err := offerer.SetRemoteDescription(back); err != nil {
		t.Fatalf("SetRemoteDescription: %v", err)
	}
}

func TestDescriptionRejectsWrongType(t *testing.T) {
	tests := []struct {
		typ  string
		want pion.SDPType
	}{
		{"answer", pion.SDPTypeOffer},
		{"offer", pion.SDPTypeAnswer},
		{"", pion.SDPTypeOffer},
		{"bogus", pion.SDPTypeAnswer},
	}
	for _, tt := range tests {
		if _, err := Description(tt.typ, "v=0", tt.want); !errors.Is(err, ErrUnexpectedMessage) {
			t.Fatalf("Description(%q, want %v): err=%v", tt.typ, tt.want, err)
		}
	}
}

func TestErrorFormatting(t *testing.T) {
	err := WrapError("get offer", ErrRoomUnavailable, "abc12345")
	if got := err.Error(); got != "get offer: room not found or no offer published yet (abc12345)" {
		t.Fatalf("got %q", got)
	}
	if !errors.Is(err, ErrRoomUnavailable) {
		t.Fatalf("errors.Is failed")
	}
	if got := NewError("connect", ErrTimeout).Error(); got != "connect: timeout" {
		t.Fatalf("got %q", got)
	}
}
