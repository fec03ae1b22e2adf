package peer

import (
	"encoding/json"
	"sync"

	"github.com/BioHazard786/sdprelay/internal/signaling"
)

// Handler routes incoming replies to typed channels.
type Handler struct {
	incoming     <-chan *signaling.Reply
	RoomCreated  chan signaling.RoomID
	OfferUpdated chan signaling.RoomID
	Offer        chan *signaling.Reply
	Answer       chan *signaling.Reply
	Candidate    chan json.RawMessage
	Error        chan string

	// Done is closed once the relay connection is gone.
	Done chan struct{}

	stop     chan struct{}
	stopOnce sync.Once
}

// NewHandler creates a new reply handler reading from incoming.
func NewHandler(incoming <-chan *signaling.Reply) *Handler {
	return &Handler{
		incoming:     incoming,
		RoomCreated:  make(chan signaling.RoomID, 1),
		OfferUpdated: make(chan signaling.RoomID, 1),
		Offer:        make(chan *signaling.Reply, 1),
		Answer:       make(chan *signaling.Reply, 1),
		Candidate:    make(chan json.RawMessage, 32),
		Error:        make(chan string, 1),
		Done:         make(chan struct{}),
		stop:         make(chan struct{}),
	}
}

// Start routes replies until the incoming channel closes or Stop is called.
func (h *Handler) Start() {
	defer close(h.Done)

	for {
		var msg *signaling.Reply
		select {
		case m, ok := <-h.incoming:
			if !ok {
				return
			}
			msg = m
		case <-h.stop:
			return
		}

		switch msg.Request {
		case signaling.ReplyCreateRoom:
			deliverOnce(h.RoomCreated, msg.ID)
		case signaling.ReplyUpdateOffer:
			deliverOnce(h.OfferUpdated, msg.ID)
		case signaling.ReplyGetOffer:
			deliverOnce(h.Offer, msg)
		case signaling.ReplyRecvAnswer:
			deliverOnce(h.Answer, msg)
		case signaling.ReplyIceCandidate:
			select {
			case h.Candidate <- msg.Candidate:
			case <-h.stop:
				return
			}
		case signaling.ReplyError:
			deliverOnce(h.Error, msg.Reason)
		}
	}
}

// Stop makes Start return without waiting for the connection to close.
func (h *Handler) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// deliverOnce delivers v if there is room and drops it otherwise. One-shot replies
// only matter the first time they arrive.
func deliverOnce[T any](ch chan T, v T) {
	select {
	case ch <- v:
	default:
	}
}
