package peer

import "github.com/vmihailenco/msgpack/v5"

// ChannelLabel names the data channel opened by the sender.
const ChannelLabel = "sdprelay"

const (
	MessageTypeGreeting = "greeting"
	MessageTypeAck      = "ack"
)

// Message is the envelope for every data channel message
type Message struct {
	Type    string             `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

// GreetingPayload is sent by the sender once the channel opens
type GreetingPayload struct {
	Text   string `msgpack:"text"`
	SentAt int64  `msgpack:"sentAt"`
}

// AckPayload is the receiver's reply. SentAt echoes the greeting so the
// sender can measure the round trip.
type AckPayload struct {
	Text   string `msgpack:"text"`
	SentAt int64  `msgpack:"sentAt"`
}

// DecodePayload decodes the message payload into the provided struct
func (m Message) DecodePayload(v any) error {
	return msgpack.Unmarshal(m.Payload, v)
}

// NewMessage creates a new Message with the given type and payload
func NewMessage(t string, payload any) (Message, error) {
	b, err := msgpack.Marshal(payload)
	if err != nil {
		return Message{}, err
	}

	return Message{
		Type:    t,
		Payload: b,
	}, nil
}

// EncodeMessage builds and serializes a message in one step.
func EncodeMessage(t string, payload any) ([]byte, error) {
	msg, err := NewMessage(t, payload)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(msg)
}

func DecodeMessage(data []byte) (Message, error) {
	var msg Message
	if err := msgpack.Unmarshal(data, &msg); err != nil {
		return Message{}, NewError("decode message", err)
	}
	return msg, nil
}
