package peer

import (
	"bytes"
	"encoding/json"
	"sync"

	pion "github.com/pion/webrtc/v4"
)

// ParseCandidate accepts either a candidate object or a bare candidate line,
// since the relay forwards whatever the other side sent. A null candidate
// marks the end of gathering and yields ok=false.
func ParseCandidate(raw json.RawMessage) (pion.ICECandidateInit, bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return pion.ICECandidateInit{}, false, nil
	}

	if raw[0] == '"' {
		var line string
		if err := json.Unmarshal(raw, &line); err != nil {
			return pion.ICECandidateInit{}, false, NewError("parse ICE candidate", err)
		}
		if line == "" {
			return pion.ICECandidateInit{}, false, nil
		}
		return pion.ICECandidateInit{Candidate: line}, true, nil
	}

	var init pion.ICECandidateInit
	if err := json.Unmarshal(raw, &init); err != nil {
		return pion.ICECandidateInit{}, false, NewError("parse ICE candidate", err)
	}
	if init.Candidate == "" {
		return pion.ICECandidateInit{}, false, nil
	}
	return init, true, nil
}

// remoteQueue holds remote candidates until the remote description is set.
type remoteQueue struct {
	mu      sync.Mutex
	ready   bool
	pending []pion.ICECandidateInit
	add     func(pion.ICECandidateInit) error
}

func newRemoteQueue(add func(pion.ICECandidateInit) error) *remoteQueue {
	return &remoteQueue{add: add}
}

func (q *remoteQueue) Push(raw json.RawMessage) error {
	c, ok, err := ParseCandidate(raw)
	if err != nil || !ok {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.ready {
		q.pending = append(q.pending, c)
		return nil
	}
	return q.add(c)
}

// Ready applies queued candidates in arrival order and lets later ones
// through directly.
func (q *remoteQueue) Ready() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.ready = true
	pending := q.pending
	q.pending = nil
	for _, c := range pending {
		if err := q.add(c); err != nil {
			return NewError("add ICE candidate", err)
		}
	}
	return nil
}

// trickle holds local candidates until the relay knows the room has an
// offer, then forwards them in gathering order.
type trickle struct {
	mu      sync.Mutex
	send    func(json.RawMessage) error
	pending []json.RawMessage
}

func (t *trickle) Add(raw json.RawMessage) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.send == nil {
		t.pending = append(t.pending, raw)
		return nil
	}
	return t.send(raw)
}

func (t *trickle) Enable(send func(json.RawMessage) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.send = send
	pending := t.pending
	t.pending = nil
	for _, raw := range pending {
		if err := send(raw); err != nil {
			return err
		}
	}
	return nil
}
