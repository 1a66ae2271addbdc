package chat

import (
	"sync"
	"testing"
)

// fakeSession records enqueued payloads for assertions.
type fakeSession struct {
	id   SessionID
	name string

	mu       sync.Mutex
	payloads [][]byte
}

func newFakeSession(id SessionID, name string) *fakeSession {
	return &fakeSession{id: id, name: name}
}

func (s *fakeSession) ID() SessionID { return s.id }
func (s *fakeSession) Name() string  { return s.name }

func (s *fakeSession) Enqueue(payload []byte) {
	s.mu.Lock()
	s.payloads = append(s.payloads, payload)
	s.mu.Unlock()
}

func (s *fakeSession) received() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payloads)
}

func (s *fakeSession) last() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.payloads) == 0 {
		return nil
	}
	return s.payloads[len(s.payloads)-1]
}

func mustJoin(t *testing.T, ch *Channel, s Session) {
	t.Helper()
	if err := ch.Join(s); err != nil {
		t.Fatalf("join %d: %v", s.ID(), err)
	}
}
