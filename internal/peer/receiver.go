package peer

import (
	"context"
	"sync"
	"time"

	pion "github.com/pion/webrtc/v4"
	"go.uber.org/zap"

	"github.com/BioHazard786/sdprelay/internal/config"
	"github.com/BioHazard786/sdprelay/internal/signaling"
)

const (
	// offerWait bounds the wait for a get_offer reply. The relay stays
	// silent for unknown rooms, so silence means there is nothing to join.
	offerWait = 10 * time.Second

	// ackLinger keeps the connection up after acking so the ack can drain.
	ackLinger = 2 * time.Second

	DefaultAckText = "received"
)

// ReceiveResult describes a completed receive session.
type ReceiveResult struct {
	RoomID   signaling.RoomID
	Greeting string
}

// Receiver joins a room by id, answers its offer and acks the greeting.
type Receiver struct {
	cfg *config.Peer
	log *zap.Logger

	AckText string

	// OnConnecting is called once the answer has been sent.
	OnConnecting func()
}

func NewReceiver(cfg *config.Peer, log *zap.Logger) *Receiver {
	return &Receiver{cfg: cfg, log: log, AckText: DefaultAckText}
}

func (r *Receiver) Run(ctx context.Context, id signaling.RoomID) (*ReceiveResult, error) {
	sess, err := openSession(ctx, r.cfg, r.log)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	log := r.log.With(zap.String("room", string(id)))

	greetings := make(chan GreetingPayload, 1)
	peerGone := make(chan struct{})
	var goneOnce sync.Once
	sess.pc.OnDataChannel(func(dc *pion.DataChannel) {
		if dc.Label() != ChannelLabel {
			return
		}
		dc.OnClose(func() {
			goneOnce.Do(func() { close(peerGone) })
		})
		dc.OnMessage(func(m pion.DataChannelMessage) {
			msg, err := DecodeMessage(m.Data)
			if err != nil {
				sess.fail(err)
				return
			}
			if msg.Type != MessageTypeGreeting {
				sess.fail(WrapError("read greeting", ErrUnexpectedMessage, msg.Type))
				return
			}
			var g GreetingPayload
			if err := msg.DecodePayload(&g); err != nil {
				sess.fail(NewError("decode greeting", err))
				return
			}
			data, err := EncodeMessage(MessageTypeAck, AckPayload{Text: r.AckText, SentAt: g.SentAt})
			if err != nil {
				sess.fail(NewError("encode ack", err))
				return
			}
			if err := dc.Send(data); err != nil {
				sess.fail(NewError("send ack", err))
				return
			}
			select {
			case greetings <- g:
			default:
			}
		})
	})

	if err := sess.client.Send(signaling.GetOffer{ID: id}); err != nil {
		return nil, NewError("get offer", err)
	}
	offerCtx, cancel := context.WithTimeout(ctx, offerWait)
	reply, err := wait(offerCtx, sess, "get offer", sess.handler.Offer)
	cancel()
	if err != nil {
		if ctx.Err() == nil && offerCtx.Err() != nil {
			return nil, WrapError("get offer", ErrRoomUnavailable, string(id))
		}
		return nil, err
	}

	offer, err := Description(reply.Type, reply.SDP, pion.SDPTypeOffer)
	if err != nil {
		return nil, err
	}
	answer, err := CreateAnswer(sess.pc, offer)
	if err != nil {
		return nil, err
	}
	if err := sess.remote.Ready(); err != nil {
		return nil, err
	}
	if err := sess.client.Send(signaling.CreateAnswer{ID: id, Type: answer.Type.String(), SDP: answer.SDP}); err != nil {
		return nil, NewError("send answer", err)
	}
	// get_offer registered us as the receiver, so candidates are routed.
	if err := sess.trickleAs(id, signaling.RoleReceiver); err != nil {
		return nil, NewError("send ICE candidate", err)
	}
	log.Debug("answer sent")
	if r.OnConnecting != nil {
		r.OnConnecting()
	}

	g, err := wait(ctx, sess, "wait for greeting", greetings)
	if err != nil {
		return nil, err
	}

	select {
	case <-peerGone:
	case <-time.After(ackLinger):
	case <-ctx.Done():
	}

	return &ReceiveResult{RoomID: id, Greeting: g.Text}, nil
}
