package peer

import (
	"context"
	"encoding/json"
	"errors"

	pion "github.com/pion/webrtc/v4"
	"go.uber.org/zap"

	"github.com/BioHazard786/sdprelay/internal/config"
	"github.com/BioHazard786/sdprelay/internal/signaling"
)

// session bundles what both sides need: the relay connection, its reply
// handler and one peer connection with candidate queues on either side.
type session struct {
	log     *zap.Logger
	client  *Client
	handler *Handler
	pc      *pion.PeerConnection
	local   trickle
	remote  *remoteQueue
	failed  chan error
}

func openSession(ctx context.Context, cfg *config.Peer, log *zap.Logger) (*session, error) {
	client := NewClient(cfg.ServerURL)
	if err := client.Connect(ctx); err != nil {
		return nil, NewError("connect to relay", err)
	}

	pc, err := NewPeerConnection(cfg)
	if err != nil {
		client.Close()
		return nil, err
	}

	s := &session{
		log:     log,
		client:  client,
		handler: NewHandler(client.Incoming()),
		pc:      pc,
		remote:  newRemoteQueue(pc.AddICECandidate),
		failed:  make(chan error, 1),
	}
	go s.handler.Start()
	go s.pumpCandidates()

	pc.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil {
			return
		}
		raw, err := json.Marshal(c.ToJSON())
		if err != nil {
			s.fail(NewError("encode ICE candidate", err))
			return
		}
		if err := s.local.Add(raw); err != nil {
			s.log.Debug("dropping local candidate", zap.Error(err))
		}
	})

	pc.OnConnectionStateChange(func(state pion.PeerConnectionState) {
		s.log.Debug("peer connection state", zap.String("state", state.String()))
		if state == pion.PeerConnectionStateFailed {
			s.fail(ErrConnectionFailed)
		}
	})

	return s, nil
}

// trickleAs starts forwarding local candidates to the relay under role.
func (s *session) trickleAs(id signaling.RoomID, role signaling.Role) error {
	return s.local.Enable(func(raw json.RawMessage) error {
		return s.client.Send(signaling.IceUpdate{ID: id, Peer: role, Candidate: raw})
	})
}

// pumpCandidates feeds relayed candidates into the remote queue for as long
// as the handler runs.
func (s *session) pumpCandidates() {
	for {
		select {
		case raw := <-s.handler.Candidate:
			if err := s.remote.Push(raw); err != nil {
				s.log.Debug("ignoring remote candidate", zap.Error(err))
			}
		case <-s.handler.Done:
			return
		}
	}
}

func (s *session) fail(err error) {
	select {
	case s.failed <- err:
	default:
	}
}

// wait blocks for the next value on ch, failing on anything that ends the
// session first.
func wait[T any](ctx context.Context, s *session, op string, ch <-chan T) (T, error) {
	var zero T
	select {
	case v := <-ch:
		return v, nil
	case reason := <-s.handler.Error:
		return zero, WrapError(op, ErrSignalingError, reason)
	case <-s.handler.Done:
		return zero, NewError(op, ErrSignalingClosed)
	case err := <-s.failed:
		return zero, NewError(op, err)
	case <-ctx.Done():
		err := ctx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			err = ErrTimeout
		}
		return zero, NewError(op, err)
	}
}

func (s *session) Close() {
	s.handler.Stop()
	s.client.Close()
	if err := s.pc.Close(); err != nil {
		s.log.Debug("closing peer connection", zap.Error(err))
	}
}
