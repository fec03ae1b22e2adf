package signaling

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// RoomIDLength is the number of characters in a generated room id.
	RoomIDLength = 8

	// maxIDAttempts bounds the collision retry loop in CreateRoom.
	maxIDAttempts = 16
)

// Registry is the in-memory room store shared by every connection.
//
// The map is guarded by mu; each room carries its own mutex so that traffic
// for one room never waits on another. Callbacks passed to SetReceiver and
// AppendIce run while the room lock is held: they must not block, and are
// meant to enqueue messages onto buffered outboxes so that the replay of
// buffered candidates and later live relays reach a peer in order.
type Registry struct {
	mu    sync.RWMutex
	rooms map[RoomID]*room

	ttl   time.Duration
	now   func() time.Time
	newID func() RoomID
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithTTL sets the idle time after which Sweep evicts a room. Zero disables
// expiry.
func WithTTL(ttl time.Duration) RegistryOption {
	return func(r *Registry) { r.ttl = ttl }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

// WithIDGenerator replaces the random room id source, for tests.
func WithIDGenerator(gen func() RoomID) RegistryOption {
	return func(r *Registry) { r.newID = gen }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		rooms: make(map[RoomID]*room),
		now:   time.Now,
		newID: randomRoomID,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// randomRoomID takes the first 8 characters of a random UUIDv4.
func randomRoomID() RoomID {
	return RoomID(uuid.NewString()[:RoomIDLength])
}

// CreateRoom registers an empty room under a fresh id.
func (r *Registry) CreateRoom() (RoomID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := 0; i < maxIDAttempts; i++ {
		id := r.newID()
		if _, ok := r.rooms[id]; ok {
			continue
		}
		r.rooms[id] = &room{id: id, lastActive: r.now()}
		return id, nil
	}
	return "", ErrIDSpaceExhausted
}

// Get returns a copy of the room state.
func (r *Registry) Get(id RoomID) (Room, bool) {
	rm := r.lookup(id)
	if rm == nil {
		return Room{}, false
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.removed {
		return Room{}, false
	}
	return rm.snapshot(), true
}

// SetOffer records the offer and binds sender as the room's sender. A room
// that does not exist yet is created. Buffered candidates and the receiver
// binding are left untouched. It reports whether the room was created.
func (r *Registry) SetOffer(id RoomID, offerType, sdp string, sender ConnID) bool {
	for {
		rm, created := r.lookupOrCreate(id)

		rm.mu.Lock()
		if rm.removed {
			// Lost a race with eviction; the next lookup creates a new room.
			rm.mu.Unlock()
			continue
		}
		rm.hasOffer = true
		rm.offerType = offerType
		rm.offerSDP = sdp
		rm.sender = sender
		rm.lastActive = r.now()
		rm.mu.Unlock()
		return created
	}
}

// SetReceiver binds receiver to the room and returns the offer together with
// the sender candidates buffered so far. replay, when non-nil, is called with
// the same snapshot before the room lock is released.
func (r *Registry) SetReceiver(id RoomID, receiver ConnID, replay func(Snapshot)) (Snapshot, error) {
	rm := r.lookup(id)
	if rm == nil {
		return Snapshot{}, ErrRoomNotFound
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.removed {
		return Snapshot{}, ErrRoomNotFound
	}
	if !rm.hasOffer {
		return Snapshot{}, ErrNoOffer
	}

	rm.receiver = receiver
	rm.lastActive = r.now()

	snap := Snapshot{
		ID:        rm.id,
		OfferType: rm.offerType,
		OfferSDP:  rm.offerSDP,
		SenderIce: cloneCandidates(rm.senderIce),
	}
	if replay != nil {
		replay(snap)
	}
	return snap, nil
}

// AppendIce appends candidate to the sequence of role and returns the
// connection of the other role, if one is bound. relay, when non-nil and the
// counterpart is known, is called before the room lock is released.
func (r *Registry) AppendIce(id RoomID, role Role, candidate json.RawMessage, relay func(ConnID)) (ConnID, error) {
	rm := r.lookup(id)
	if rm == nil {
		return "", ErrRoomNotFound
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.removed {
		return "", ErrRoomNotFound
	}
	if !rm.hasOffer {
		return "", ErrNoOffer
	}

	buf := rm.ice(role)
	*buf = append(*buf, candidate)
	rm.lastActive = r.now()

	to := rm.conn(role.Counterpart())
	if to != "" && relay != nil {
		relay(to)
	}
	return to, nil
}

// Forget clears every sender or receiver binding that points at conn. Rooms
// and their buffered candidates survive.
func (r *Registry) Forget(conn ConnID) {
	if conn == "" {
		return
	}

	r.mu.RLock()
	rooms := make([]*room, 0, len(r.rooms))
	for _, rm := range r.rooms {
		rooms = append(rooms, rm)
	}
	r.mu.RUnlock()

	for _, rm := range rooms {
		rm.mu.Lock()
		if rm.sender == conn {
			rm.sender = ""
		}
		if rm.receiver == conn {
			rm.receiver = ""
		}
		rm.mu.Unlock()
	}
}

// Sweep evicts rooms idle for longer than the TTL and returns how many were
// removed. It is a no-op when no TTL is configured.
func (r *Registry) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, rm := range r.rooms {
		rm.mu.Lock()
		if rm.lastActive.Before(cutoff) {
			rm.removed = true
			delete(r.rooms, id)
			evicted++
		}
		rm.mu.Unlock()
	}
	return evicted
}

// RunSweeper calls Sweep every interval until ctx is done. onEvict, if set,
// receives the number of rooms removed by each sweep that removed any.
func (r *Registry) RunSweeper(ctx context.Context, interval time.Duration, onEvict func(int)) {
	if r.ttl <= 0 || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 && onEvict != nil {
				onEvict(n)
			}
		}
	}
}

// Len returns the number of live rooms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

func (r *Registry) lookup(id RoomID) *room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms[id]
}

func (r *Registry) lookupOrCreate(id RoomID) (*room, bool) {
	if rm := r.lookup(id); rm != nil {
		return rm, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if rm, ok := r.rooms[id]; ok {
		return rm, false
	}
	rm := &room{id: id, lastActive: r.now()}
	r.rooms[id] = rm
	return rm, true
}
