package signaling

import (
	"encoding/json"
	"sync"
	"time"
)

// RoomID is the short opaque identifier shared by the two peers of a room.
type RoomID string

// ConnID identifies a connected client in the hub's connection table.
// The zero value means "no connection".
type ConnID string

// Role is the fixed label of a room participant.
type Role string

const (
	RoleSender   Role = "sender"
	RoleReceiver Role = "receiver"
)

// Valid reports whether r is one of the two known roles.
func (r Role) Valid() bool {
	return r == RoleSender || r == RoleReceiver
}

// Counterpart returns the other role of the room.
func (r Role) Counterpart() Role {
	if r == RoleSender {
		return RoleReceiver
	}
	return RoleSender
}

// room is the registry's private, lock-protected room state.
type room struct {
	mu sync.Mutex

	id RoomID

	hasOffer  bool
	offerType string
	offerSDP  string

	// sender and receiver are routing handles only; the registry never owns
	// the connections behind them.
	sender   ConnID
	receiver ConnID

	senderIce   []json.RawMessage
	receiverIce []json.RawMessage

	lastActive time.Time

	// removed is set once the room has been dropped from the registry map, so
	// callers that raced with eviction see it as missing.
	removed bool
}

func (r *room) snapshot() Room {
	return Room{
		ID:          r.id,
		HasOffer:    r.hasOffer,
		OfferType:   r.offerType,
		OfferSDP:    r.offerSDP,
		Sender:      r.sender,
		Receiver:    r.receiver,
		SenderIce:   cloneCandidates(r.senderIce),
		ReceiverIce: cloneCandidates(r.receiverIce),
		LastActive:  r.lastActive,
	}
}

func (r *room) ice(role Role) *[]json.RawMessage {
	if role == RoleSender {
		return &r.senderIce
	}
	return &r.receiverIce
}

func (r *room) conn(role Role) ConnID {
	if role == RoleSender {
		return r.sender
	}
	return r.receiver
}

// Room is a point-in-time copy of a room's state.
type Room struct {
	ID RoomID

	HasOffer  bool
	OfferType string
	OfferSDP  string

	Sender   ConnID
	Receiver ConnID

	SenderIce   []json.RawMessage
	ReceiverIce []json.RawMessage

	LastActive time.Time
}

// Snapshot is what a receiver gets when it fetches the offer: the offer plus
// every sender candidate buffered at that moment, in arrival order.
type Snapshot struct {
	ID        RoomID
	OfferType string
	OfferSDP  string
	SenderIce []json.RawMessage
}

func cloneCandidates(in []json.RawMessage) []json.RawMessage {
	if len(in) == 0 {
		return nil
	}
	out := make([]json.RawMessage, len(in))
	copy(out, in)
	return out
}
