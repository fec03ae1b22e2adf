package signaling

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestDecodeRequest(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Request
	}{
		{
			name: "create room",
			in:   `{"create_room": true}`,
			want: CreateRoom{},
		},
		{
			name: "update offer",
			in:   `{"update_offer": {"id": "abc12345", "type": "offer", "sdp": "X"}}`,
			want: UpdateOffer{ID: "abc12345", Type: "offer", SDP: "X"},
		},
		{
			name: "create answer",
			in:   `{"create_answer": {"id": "abc12345", "type": "answer", "sdp": "Y"}}`,
			want: CreateAnswer{ID: "abc12345", Type: "answer", SDP: "Y"},
		},
		{
			name: "get offer",
			in:   `{"get_offer": {"id": "abc12345"}}`,
			want: GetOffer{ID: "abc12345"},
		},
		{
			name: "ice update keeps candidate verbatim",
			in:   `{"ice_update": {"id": "abc12345", "peer": "receiver", "ice_candidate": {"candidate": "a=1", "sdpMid": "0"}}}`,
			want: IceUpdate{ID: "abc12345", Peer: RoleReceiver, Candidate: json.RawMessage(`{"candidate": "a=1", "sdpMid": "0"}`)},
		},
		{
			name: "empty sdp is allowed",
			in:   `{"update_offer": {"id": "abc12345", "type": "offer", "sdp": ""}}`,
			want: UpdateOffer{ID: "abc12345", Type: "offer", SDP: ""},
		},
		{
			name: "precedence follows key order",
			in:   `{"get_offer": {"id": "zzz"}, "create_room": true}`,
			want: CreateRoom{},
		},
		{
			name: "falsy key is skipped",
			in:   `{"create_room": false, "get_offer": {"id": "abc12345"}}`,
			want: GetOffer{ID: "abc12345"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeRequest([]byte(tt.in))
			if err != nil {
				t.Fatalf("DecodeRequest: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestDecodeRequest_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"not json", `{create_room}`, ErrMalformed},
		{"not an object", `[1, 2]`, ErrMalformed},
		{"null", `null`, ErrMalformed},
		{"unknown key", `{"hello": "world"}`, ErrUnknownMessage},
		{"only falsy keys", `{"create_room": null, "get_offer": {}}`, ErrUnknownMessage},
		{"payload not object", `{"get_offer": "abc12345"}`, ErrMalformed},
		{"missing id", `{"get_offer": {"room": "abc12345"}}`, ErrMalformed},
		{"missing sdp", `{"update_offer": {"id": "abc12345", "type": "offer"}}`, ErrMalformed},
		{"missing type", `{"create_answer": {"id": "abc12345", "sdp": "Y"}}`, ErrMalformed},
		{"unknown peer", `{"ice_update": {"id": "abc12345", "peer": "observer", "ice_candidate": "c"}}`, ErrMalformed},
		{"missing candidate", `{"ice_update": {"id": "abc12345", "peer": "sender"}}`, ErrMalformed},
		{"wrong field type", `{"update_offer": {"id": 7, "type": "offer", "sdp": "X"}}`, ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRequest([]byte(tt.in))
			if !errors.Is(err, tt.want) {
				t.Fatalf("err=%v, want %v", err, tt.want)
			}
		})
	}
}

func TestEncodeRequest_DecodesBack(t *testing.T) {
	reqs := []Request{
		CreateRoom{},
		UpdateOffer{ID: "abc12345", Type: "offer", SDP: "v=0"},
		CreateAnswer{ID: "abc12345", Type: "answer", SDP: "v=0"},
		GetOffer{ID: "abc12345"},
		IceUpdate{ID: "abc12345", Peer: RoleSender, Candidate: json.RawMessage(`{"candidate":"x"}`)},
	}

	for _, req := range reqs {
		data, err := EncodeRequest(req)
		if err != nil {
			t.Fatalf("EncodeRequest(%T): %v", req, err)
		}
		got, err := DecodeRequest(data)
		if err != nil {
			t.Fatalf("DecodeRequest(%s): %v", data, err)
		}
		if !reflect.DeepEqual(got, req) {
			t.Fatalf("got %#v, want %#v", got, req)
		}
	}
}

func TestReplyMarshal(t *testing.T) {
	tests := []struct {
		name string
		in   *Reply
		want string
	}{
		{"create room", roomCreatedReply("abc12345"), `{"request":"create_room","id":"abc12345"}`},
		{"update offer", offerUpdatedReply("abc12345"), `{"request":"update_offer","id":"abc12345"}`},
		{"recv answer", answerReply("abc12345", "answer", "Y"), `{"request":"recv_answer","id":"abc12345","type":"answer","sdp":"Y"}`},
		{"get offer keeps empty sdp", offerReply("abc12345", "offer", ""), `{"request":"get_offer","id":"abc12345","type":"offer","sdp":""}`},
		{"ice candidate", candidateReply("abc12345", json.RawMessage(`"cand1"`)), `{"request":"ice_candidate","id":"abc12345","ice_candidate":"cand1"}`},
		{"error", errorReply("malformed message"), `{"request":"error","reason":"malformed message"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.in)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			if string(got) != tt.want {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}
}
