package peer

import (
	"context"
	"time"

	pion "github.com/pion/webrtc/v4"
	"go.uber.org/zap"

	"github.com/BioHazard786/sdprelay/internal/config"
	"github.com/BioHazard786/sdprelay/internal/signaling"
)

// SendResult describes a completed send session.
type SendResult struct {
	RoomID signaling.RoomID
	Reply  string
	RTT    time.Duration
}

// Sender opens a room, publishes an offer and waits for a receiver to
// acknowledge a greeting over the data channel.
type Sender struct {
	cfg *config.Peer
	log *zap.Logger

	// OnRoomCreated is called with the room id as soon as the relay assigns
	// one, so it can be shown to the user.
	OnRoomCreated func(signaling.RoomID)

	// OnConnecting is called when the answer has been applied.
	OnConnecting func()
}

func NewSender(cfg *config.Peer, log *zap.Logger) *Sender {
	return &Sender{cfg: cfg, log: log}
}

func (s *Sender) Run(ctx context.Context, text string) (*SendResult, error) {
	sess, err := openSession(ctx, s.cfg, s.log)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	dc, err := CreateDataChannel(sess.pc, ChannelLabel)
	if err != nil {
		return nil, err
	}

	acks := make(chan AckPayload, 1)
	dc.OnOpen(func() {
		data, err := EncodeMessage(MessageTypeGreeting, GreetingPayload{Text: text, SentAt: time.Now().UnixNano()})
		if err != nil {
			sess.fail(NewError("encode greeting", err))
			return
		}
		if err := dc.Send(data); err != nil {
			sess.fail(NewError("send greeting", err))
		}
	})
	dc.OnMessage(func(m pion.DataChannelMessage) {
		msg, err := DecodeMessage(m.Data)
		if err != nil {
			sess.fail(err)
			return
		}
		if msg.Type != MessageTypeAck {
			sess.fail(WrapError("read ack", ErrUnexpectedMessage, msg.Type))
			return
		}
		var ack AckPayload
		if err := msg.DecodePayload(&ack); err != nil {
			sess.fail(NewError("decode ack", err))
			return
		}
		select {
		case acks <- ack:
		default:
		}
	})

	if err := sess.client.Send(signaling.CreateRoom{}); err != nil {
		return nil, NewError("create room", err)
	}
	id, err := wait(ctx, sess, "create room", sess.handler.RoomCreated)
	if err != nil {
		return nil, err
	}
	log := s.log.With(zap.String("room", string(id)))
	log.Debug("room created")
	if s.OnRoomCreated != nil {
		s.OnRoomCreated(id)
	}

	offer, err := CreateOffer(sess.pc)
	if err != nil {
		return nil, err
	}
	if err := sess.client.Send(signaling.UpdateOffer{ID: id, Type: offer.Type.String(), SDP: offer.SDP}); err != nil {
		return nil, NewError("publish offer", err)
	}
	if _, err := wait(ctx, sess, "publish offer", sess.handler.OfferUpdated); err != nil {
		return nil, err
	}

	// The room has an offer now, so the relay accepts sender candidates.
	if err := sess.trickleAs(id, signaling.RoleSender); err != nil {
		return nil, NewError("send ICE candidate", err)
	}
	log.Debug("offer published, waiting for answer")

	answer, err := wait(ctx, sess, "wait for answer", sess.handler.Answer)
	if err != nil {
		return nil, err
	}
	desc, err := Description(answer.Type, answer.SDP, pion.SDPTypeAnswer)
	if err != nil {
		return nil, err
	}
	if err := sess.pc.SetRemoteDescription(desc); err != nil {
		return nil, NewError("set remote description", err)
	}
	if err := sess.remote.Ready(); err != nil {
		return nil, err
	}
	log.Debug("answer applied")
	if s.OnConnecting != nil {
		s.OnConnecting()
	}

	ack, err := wait(ctx, sess, "wait for ack", acks)
	if err != nil {
		return nil, err
	}

	return &SendResult{
		RoomID: id,
		Reply:  ack.Text,
		RTT:    time.Since(time.Unix(0, ack.SentAt)),
	}, nil
}
