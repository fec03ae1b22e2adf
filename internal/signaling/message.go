package signaling

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Request keys, in the precedence order used when a frame carries several.
const (
	KeyCreateRoom   = "create_room"
	KeyUpdateOffer  = "update_offer"
	KeyCreateAnswer = "create_answer"
	KeyGetOffer     = "get_offer"
	KeyIceUpdate    = "ice_update"
)

var requestKeys = []string{KeyCreateRoom, KeyUpdateOffer, KeyCreateAnswer, KeyGetOffer, KeyIceUpdate}

// Reply kinds carried in the "request" field of server to client frames.
const (
	ReplyCreateRoom   = "create_room"
	ReplyUpdateOffer  = "update_offer"
	ReplyRecvAnswer   = "recv_answer"
	ReplyGetOffer     = "get_offer"
	ReplyIceCandidate = "ice_candidate"
	ReplyError        = "error"
)

// Request is one decoded client to server frame. The set of implementations
// is closed: CreateRoom, UpdateOffer, CreateAnswer, GetOffer and IceUpdate.
type Request interface {
	Kind() string
	request()
}

type CreateRoom struct{}

type UpdateOffer struct {
	ID   RoomID
	Type string
	SDP  string
}

type CreateAnswer struct {
	ID   RoomID
	Type string
	SDP  string
}

type GetOffer struct {
	ID RoomID
}

type IceUpdate struct {
	ID        RoomID
	Peer      Role
	Candidate json.RawMessage
}

func (CreateRoom) Kind() string   { return KeyCreateRoom }
func (UpdateOffer) Kind() string  { return KeyUpdateOffer }
func (CreateAnswer) Kind() string { return KeyCreateAnswer }
func (GetOffer) Kind() string     { return KeyGetOffer }
func (IceUpdate) Kind() string    { return KeyIceUpdate }

func (CreateRoom) request()   {}
func (UpdateOffer) request()  {}
func (CreateAnswer) request() {}
func (GetOffer) request()     {}
func (IceUpdate) request()    {}

type descriptionPayload struct {
	ID   *string `json:"id"`
	Type *string `json:"type"`
	SDP  *string `json:"sdp"`
}

type getOfferPayload struct {
	ID *string `json:"id"`
}

type iceUpdatePayload struct {
	ID        *string         `json:"id"`
	Peer      *string         `json:"peer"`
	Candidate json.RawMessage `json:"ice_candidate"`
}

// DecodeRequest parses a single frame. The first recognised key with a
// truthy value wins; frames without one yield ErrUnknownMessage.
func DecodeRequest(data []byte) (Request, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: not an object", ErrMalformed)
	}

	for _, key := range requestKeys {
		raw, ok := fields[key]
		if !ok || !truthy(raw) {
			continue
		}
		return decodeKey(key, raw)
	}
	return nil, ErrUnknownMessage
}

func decodeKey(key string, raw json.RawMessage) (Request, error) {
	switch key {
	case KeyCreateRoom:
		return CreateRoom{}, nil

	case KeyUpdateOffer, KeyCreateAnswer:
		var p descriptionPayload
		if err := unmarshalObject(key, raw, &p); err != nil {
			return nil, err
		}
		if err := require(key, "id", p.ID != nil && *p.ID != ""); err != nil {
			return nil, err
		}
		if err := require(key, "type", p.Type != nil); err != nil {
			return nil, err
		}
		if err := require(key, "sdp", p.SDP != nil); err != nil {
			return nil, err
		}
		if key == KeyUpdateOffer {
			return UpdateOffer{ID: RoomID(*p.ID), Type: *p.Type, SDP: *p.SDP}, nil
		}
		return CreateAnswer{ID: RoomID(*p.ID), Type: *p.Type, SDP: *p.SDP}, nil

	case KeyGetOffer:
		var p getOfferPayload
		if err := unmarshalObject(key, raw, &p); err != nil {
			return nil, err
		}
		if err := require(key, "id", p.ID != nil && *p.ID != ""); err != nil {
			return nil, err
		}
		return GetOffer{ID: RoomID(*p.ID)}, nil

	case KeyIceUpdate:
		var p iceUpdatePayload
		if err := unmarshalObject(key, raw, &p); err != nil {
			return nil, err
		}
		if err := require(key, "id", p.ID != nil && *p.ID != ""); err != nil {
			return nil, err
		}
		if err := require(key, "peer", p.Peer != nil); err != nil {
			return nil, err
		}
		role := Role(*p.Peer)
		if !role.Valid() {
			return nil, fmt.Errorf("%w: %s: unknown peer %q", ErrMalformed, key, *p.Peer)
		}
		if err := require(key, "ice_candidate", len(p.Candidate) > 0); err != nil {
			return nil, err
		}
		return IceUpdate{ID: RoomID(*p.ID), Peer: role, Candidate: p.Candidate}, nil
	}

	return nil, ErrUnknownMessage
}

func unmarshalObject(key string, raw json.RawMessage, v any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return fmt.Errorf("%w: %s: payload must be an object", ErrMalformed, key)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, key, err)
	}
	return nil
}

func require(key, field string, ok bool) error {
	if ok {
		return nil
	}
	return fmt.Errorf("%w: %s: missing %s", ErrMalformed, key, field)
}

// truthy mirrors the loose presence test of the original protocol: false,
// null, zero, the empty string and empty containers count as absent.
func truthy(raw json.RawMessage) bool {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return true
}

// EncodeRequest renders req in the client to server wire format.
func EncodeRequest(req Request) ([]byte, error) {
	var payload any
	switch r := req.(type) {
	case CreateRoom:
		payload = true
	case UpdateOffer:
		payload = map[string]string{"id": string(r.ID), "type": r.Type, "sdp": r.SDP}
	case CreateAnswer:
		payload = map[string]string{"id": string(r.ID), "type": r.Type, "sdp": r.SDP}
	case GetOffer:
		payload = map[string]string{"id": string(r.ID)}
	case IceUpdate:
		payload = struct {
			ID        RoomID          `json:"id"`
			Peer      Role            `json:"peer"`
			Candidate json.RawMessage `json:"ice_candidate"`
		}{r.ID, r.Peer, r.Candidate}
	default:
		return nil, fmt.Errorf("encode request: unsupported type %T", req)
	}
	return json.Marshal(map[string]any{req.Kind(): payload})
}

// Reply is a server to client frame. Which fields are present on the wire
// depends on Request; see MarshalJSON.
type Reply struct {
	Request   string          `json:"request"`
	ID        RoomID          `json:"id,omitempty"`
	Type      string          `json:"type,omitempty"`
	SDP       string          `json:"sdp,omitempty"`
	Candidate json.RawMessage `json:"ice_candidate,omitempty"`
	Reason    string          `json:"reason,omitempty"`
}

// MarshalJSON writes exactly the fields defined for each reply kind, so an
// empty sdp or type is still sent as "".
func (m Reply) MarshalJSON() ([]byte, error) {
	switch m.Request {
	case ReplyCreateRoom, ReplyUpdateOffer:
		return json.Marshal(struct {
			Request string `json:"request"`
			ID      RoomID `json:"id"`
		}{m.Request, m.ID})
	case ReplyRecvAnswer, ReplyGetOffer:
		return json.Marshal(struct {
			Request string `json:"request"`
			ID      RoomID `json:"id"`
			Type    string `json:"type"`
			SDP     string `json:"sdp"`
		}{m.Request, m.ID, m.Type, m.SDP})
	case ReplyIceCandidate:
		candidate := m.Candidate
		if len(candidate) == 0 {
			candidate = json.RawMessage("null")
		}
		return json.Marshal(struct {
			Request   string          `json:"request"`
			ID        RoomID          `json:"id"`
			Candidate json.RawMessage `json:"ice_candidate"`
		}{m.Request, m.ID, candidate})
	case ReplyError:
		return json.Marshal(struct {
			Request string `json:"request"`
			Reason  string `json:"reason"`
		}{m.Request, m.Reason})
	}
	type plain Reply
	return json.Marshal(plain(m))
}

func roomCreatedReply(id RoomID) *Reply {
	return &Reply{Request: ReplyCreateRoom, ID: id}
}

func offerUpdatedReply(id RoomID) *Reply {
	return &Reply{Request: ReplyUpdateOffer, ID: id}
}

func answerReply(id RoomID, typ, sdp string) *Reply {
	return &Reply{Request: ReplyRecvAnswer, ID: id, Type: typ, SDP: sdp}
}

func offerReply(id RoomID, typ, sdp string) *Reply {
	return &Reply{Request: ReplyGetOffer, ID: id, Type: typ, SDP: sdp}
}

func candidateReply(id RoomID, candidate json.RawMessage) *Reply {
	return &Reply{Request: ReplyIceCandidate, ID: id, Candidate: candidate}
}

func errorReply(reason string) *Reply {
	return &Reply{Request: ReplyError, Reason: reason}
}
