package signaling

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// DefaultMaxMessageSize is the largest frame accepted from a peer.
	DefaultMaxMessageSize = 64 * 1024 // 64 KB - enough for WebRTC SDP messages

	// DefaultSendBuffer is the outbox depth per client.
	DefaultSendBuffer = 256
)

// ClientOptions tunes a single connection.
type ClientOptions struct {
	MaxMessageSize int64
	SendBuffer     int
}

func (o ClientOptions) withDefaults() ClientOptions {
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = DefaultMaxMessageSize
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = DefaultSendBuffer
	}
	return o
}

// minReplayCeiling is the floor of the hard limit on queued frames.
const minReplayCeiling = 4096

// Client is a wrapper for a single websocket connection (a peer).
type Client struct {
	// ID is the handle rooms store instead of a reference to the client.
	ID ConnID

	hub  *Hub
	conn *websocket.Conn
	log  *zap.Logger

	maxMessageSize int64

	// The outbox is an ordered queue drained by WritePump. Live frames count
	// against sendBuffer; replayed frames only against maxQueued, so a large
	// get_offer replay never trips the slow-client cutoff on its own.
	mu         sync.Mutex
	queue      []outbound
	live       int
	closed     bool
	wake       chan struct{}
	sendBuffer int
	maxQueued  int
}

type outbound struct {
	msg    *Reply
	replay bool
}

// NewClient wraps conn. The client is not reachable until it is registered
// with the hub.
func NewClient(hub *Hub, conn *websocket.Conn, opts ClientOptions) *Client {
	opts = opts.withDefaults()
	id := ConnID(uuid.NewString())

	return newClient(hub, conn, id,
		hub.log.With(zap.String("conn", string(id)), zap.Stringer("remote", conn.RemoteAddr())),
		opts)
}

func newClient(hub *Hub, conn *websocket.Conn, id ConnID, log *zap.Logger, opts ClientOptions) *Client {
	return &Client{
		ID:             id,
		hub:            hub,
		conn:           conn,
		log:            log,
		maxMessageSize: opts.MaxMessageSize,
		wake:           make(chan struct{}, 1),
		sendBuffer:     opts.SendBuffer,
		maxQueued:      max(16*opts.SendBuffer, minReplayCeiling),
	}
}

// enqueue queues a live msg for WritePump without blocking. A client with
// sendBuffer live frames still pending is closed: it is too slow to keep up
// and would otherwise stall relays.
func (c *Client) enqueue(msg *Reply) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}
	if c.live >= c.sendBuffer || len(c.queue) >= c.maxQueued {
		c.closeLocked()
		return ErrOutboxFull
	}

	c.queue = append(c.queue, outbound{msg: msg})
	c.live++
	c.signal()
	return nil
}

// enqueueReplay queues msgs in order as one batch. Only the hard ceiling
// applies, since the burst comes from the relay and not from a stalled peer.
func (c *Client) enqueueReplay(msgs []*Reply) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}
	if len(c.queue)+len(msgs) > c.maxQueued {
		c.closeLocked()
		return ErrOutboxFull
	}

	for _, m := range msgs {
		c.queue = append(c.queue, outbound{msg: m, replay: true})
	}
	c.signal()
	return nil
}

// next pops the oldest queued frame. With nothing queued it reports whether
// the client has been closed.
func (c *Client) next() (*Reply, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.queue) == 0 {
		return nil, c.closed
	}
	out := c.queue[0]
	c.queue[0] = outbound{}
	c.queue = c.queue[1:]
	if !out.replay {
		c.live--
	}
	return out.msg, false
}

// close stops WritePump after it has flushed what is already queued.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	c.signal()
}

func (c *Client) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// ReadPump pumps messages from the websocket connection to the hub.
//
// The application runs ReadPump in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.Warn("read failed", zap.Error(err))
			}
			return
		}
		if msgType != websocket.TextMessage {
			c.log.Debug("ignoring non-text frame", zap.Int("type", msgType))
			continue
		}

		c.hub.Handle(c, data)
	}
}

// WritePump pumps messages from the hub to the websocket connection.
//
// A goroutine running WritePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.wake:
			for {
				message, closed := c.next()
				if message == nil {
					if closed {
						// The hub closed the client.
						c.conn.SetWriteDeadline(time.Now().Add(writeWait))
						c.conn.WriteMessage(websocket.CloseMessage, []byte{})
						return
					}
					break
				}

				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.conn.WriteJSON(message); err != nil {
					c.log.Debug("write failed", zap.String("request", message.Request), zap.Error(err))
					return
				}
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
