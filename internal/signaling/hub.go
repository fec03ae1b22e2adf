package signaling

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BioHazard786/sdprelay/internal/metrics"
)

// HubOptions configures a Hub.
type HubOptions struct {
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	// ErrorReplies answers malformed or unknown frames with an error frame
	// instead of dropping them silently.
	ErrorReplies bool
}

// Hub owns the connection table and runs the signaling protocol against the
// room registry. Every client's ReadPump calls Handle from its own goroutine.
type Hub struct {
	registry     *Registry
	log          *zap.Logger
	metrics      *metrics.Metrics
	errorReplies bool
	started      time.Time

	mu    sync.RWMutex
	conns map[ConnID]*Client
}

// NewHub creates a new Hub instance.
func NewHub(registry *Registry, opts HubOptions) *Hub {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}

	return &Hub{
		registry:     registry,
		log:          log,
		metrics:      m,
		errorReplies: opts.ErrorReplies,
		started:      time.Now(),
		conns:        make(map[ConnID]*Client),
	}
}

// Registry returns the room registry the hub operates on.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Register makes c reachable for routing.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.conns[c.ID] = c
	h.mu.Unlock()

	h.metrics.Connections.Inc()
	c.log.Info("client registered")
}

// Unregister removes c from the connection table, stops its writer and drops
// every room binding that still points at it. Calling it twice is harmless.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.conns[c.ID]
	delete(h.conns, c.ID)
	h.mu.Unlock()

	if !ok {
		return
	}

	c.close()
	h.registry.Forget(c.ID)
	h.metrics.Connections.Dec()
	c.log.Info("client unregistered")
}

// Post queues msg for the client behind conn without blocking.
func (h *Hub) Post(conn ConnID, msg *Reply) error {
	h.mu.RLock()
	c, ok := h.conns[conn]
	h.mu.RUnlock()

	if !ok {
		h.metrics.Dropped.WithLabelValues(metrics.DropNoConn).Inc()
		return ErrConnNotFound
	}
	return h.deliver(c, msg)
}

func (h *Hub) deliver(c *Client, msg *Reply) error {
	err := c.enqueue(msg)
	switch {
	case err == nil:
		h.metrics.Relayed.WithLabelValues(msg.Request).Inc()
	case errors.Is(err, ErrOutboxFull):
		h.metrics.Dropped.WithLabelValues(metrics.DropOutboxFull).Inc()
		c.log.Warn("outbox full, closing slow client", zap.String("request", msg.Request))
	default:
		h.metrics.Dropped.WithLabelValues(metrics.DropNoConn).Inc()
	}
	return err
}

// deliverReplay queues msgs for c as one ordered batch.
func (h *Hub) deliverReplay(c *Client, msgs []*Reply) error {
	err := c.enqueueReplay(msgs)
	switch {
	case err == nil:
		for _, m := range msgs {
			h.metrics.Relayed.WithLabelValues(m.Request).Inc()
		}
	case errors.Is(err, ErrOutboxFull):
		h.metrics.Dropped.WithLabelValues(metrics.DropOutboxFull).Add(float64(len(msgs)))
		c.log.Warn("replay exceeds outbox limit, closing client", zap.Int("frames", len(msgs)))
	default:
		h.metrics.Dropped.WithLabelValues(metrics.DropNoConn).Add(float64(len(msgs)))
	}
	return err
}

// Stats is a summary of the hub's current load.
type Stats struct {
	Rooms         int     `json:"rooms"`
	Connections   int     `json:"connections"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

func (h *Hub) Stats() Stats {
	h.mu.RLock()
	conns := len(h.conns)
	h.mu.RUnlock()

	return Stats{
		Rooms:         h.registry.Len(),
		Connections:   conns,
		UptimeSeconds: time.Since(h.started).Seconds(),
	}
}

// Handle decodes one frame from c and runs it.
func (h *Hub) Handle(c *Client, data []byte) {
	req, err := DecodeRequest(data)
	if err != nil {
		h.reject(c, err)
		return
	}

	h.metrics.Requests.WithLabelValues(req.Kind()).Inc()
	log := c.log.With(zap.String("request", req.Kind()))

	switch r := req.(type) {
	case CreateRoom:
		h.createRoom(c, log)
	case UpdateOffer:
		h.updateOffer(c, r, log)
	case CreateAnswer:
		h.createAnswer(r, log)
	case GetOffer:
		h.getOffer(c, r, log)
	case IceUpdate:
		h.iceUpdate(r, log)
	default:
		log.Error("unhandled request type")
	}
}

func (h *Hub) reject(c *Client, err error) {
	reason := metrics.DropMalformed
	if errors.Is(err, ErrUnknownMessage) {
		reason = metrics.DropUnknown
	}
	h.metrics.Dropped.WithLabelValues(reason).Inc()
	c.log.Debug("rejected frame", zap.Error(err))

	if h.errorReplies {
		h.deliver(c, errorReply(err.Error()))
	}
}

func (h *Hub) createRoom(c *Client, log *zap.Logger) {
	id, err := h.registry.CreateRoom()
	if err != nil {
		log.Error("room allocation failed", zap.Error(err))
		if h.errorReplies {
			h.deliver(c, errorReply(err.Error()))
		}
		return
	}
	h.metrics.RoomsCreated.Inc()
	log.Info("room created", zap.String("room", string(id)))

	h.deliver(c, roomCreatedReply(id))
}

func (h *Hub) updateOffer(c *Client, r UpdateOffer, log *zap.Logger) {
	if h.registry.SetOffer(r.ID, r.Type, r.SDP, c.ID) {
		h.metrics.RoomsCreated.Inc()
	}
	log.Info("offer published", zap.String("room", string(r.ID)))

	h.deliver(c, offerUpdatedReply(r.ID))
}

func (h *Hub) createAnswer(r CreateAnswer, log *zap.Logger) {
	rm, ok := h.registry.Get(r.ID)
	if !ok || !rm.HasOffer || rm.Sender == "" {
		log.Debug("answer has no sender to go to", zap.String("room", string(r.ID)))
		return
	}

	if err := h.Post(rm.Sender, answerReply(r.ID, r.Type, r.SDP)); err != nil {
		log.Debug("answer not delivered", zap.String("room", string(r.ID)), zap.Error(err))
		return
	}
	log.Info("answer relayed", zap.String("room", string(r.ID)))
}

func (h *Hub) getOffer(c *Client, r GetOffer, log *zap.Logger) {
	replay := func(s Snapshot) {
		msgs := make([]*Reply, 0, 1+len(s.SenderIce))
		msgs = append(msgs, offerReply(s.ID, s.OfferType, s.OfferSDP))
		for _, cand := range s.SenderIce {
			msgs = append(msgs, candidateReply(s.ID, cand))
		}
		h.deliverReplay(c, msgs)
	}

	snap, err := h.registry.SetReceiver(r.ID, c.ID, replay)
	if err != nil {
		log.Debug("offer unavailable", zap.String("room", string(r.ID)), zap.Error(err))
		return
	}
	log.Info("offer fetched",
		zap.String("room", string(r.ID)),
		zap.Int("replayed_candidates", len(snap.SenderIce)),
	)
}

func (h *Hub) iceUpdate(r IceUpdate, log *zap.Logger) {
	relay := func(to ConnID) {
		if err := h.Post(to, candidateReply(r.ID, r.Candidate)); err != nil {
			log.Debug("candidate not relayed", zap.String("room", string(r.ID)), zap.Error(err))
		}
	}

	to, err := h.registry.AppendIce(r.ID, r.Peer, r.Candidate, relay)
	if err != nil {
		log.Debug("candidate ignored", zap.String("room", string(r.ID)), zap.Error(err))
		return
	}
	log.Debug("candidate buffered",
		zap.String("room", string(r.ID)),
		zap.String("peer", string(r.Peer)),
		zap.Bool("relayed", to != ""),
	)
}
