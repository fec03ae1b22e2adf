package signaling

import "errors"

var (
	// ErrMalformed covers unparseable frames, missing required fields and
	// unknown peer roles.
	ErrMalformed = errors.New("malformed message")

	// ErrUnknownMessage is returned for well-formed JSON carrying none of the
	// recognised request keys.
	ErrUnknownMessage = errors.New("unknown message")

	ErrRoomNotFound     = errors.New("room not found")
	ErrNoOffer          = errors.New("room has no offer")
	ErrNoSender         = errors.New("room has no sender")
	ErrConnNotFound     = errors.New("connection not found")
	ErrOutboxFull       = errors.New("outbox full")
	ErrClientClosed     = errors.New("client closed")
	ErrIDSpaceExhausted = errors.New("could not allocate a free room id")
)
