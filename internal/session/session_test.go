package session

import (
	"testing"

	"github.com/vovakirdan/gamechat-server/internal/chat"
)

func TestEnqueueAndDrain(t *testing.T) {
	s := New(1, "alice", chat.LevelNormal, 4, nil)

	s.Enqueue([]byte("one"))
	s.Enqueue([]byte("two"))

	if got := string(<-s.Out()); got != "one" {
		t.Fatalf("first payload = %q, want %q", got, "one")
	}
	if got := string(<-s.Out()); got != "two" {
		t.Fatalf("second payload = %q, want %q", got, "two")
	}
}

func TestEnqueueDropsWhenFull(t *testing.T) {
	s := New(1, "alice", chat.LevelNormal, 2, nil)

	s.Enqueue([]byte("a"))
	s.Enqueue([]byte("b"))
	s.Enqueue([]byte("c")) // queue full, must not block

	if got := s.Dropped(); got != 1 {
		t.Fatalf("dropped = %d, want 1", got)
	}
	if got := string(<-s.Out()); got != "a" {
		t.Fatalf("surviving payload = %q, want FIFO head %q", got, "a")
	}
}

func TestEnqueueAfterClose(t *testing.T) {
	s := New(1, "alice", chat.LevelNormal, 2, nil)
	s.Close()
	s.Close() // idempotent

	// Must not panic on the closed channel.
	s.Enqueue([]byte("late"))

	if _, ok := <-s.Out(); ok {
		t.Fatal("closed session should deliver nothing")
	}
}

func TestGuestIDsDiffer(t *testing.T) {
	a, b := NewGuestID(), NewGuestID()
	if a == b {
		t.Fatalf("consecutive guest ids collided: %d", a)
	}
}
