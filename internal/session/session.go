package session

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/gamechat-server/internal/chat"
	"github.com/vovakirdan/gamechat-server/internal/metrics"
)

// DefaultQueueSize bounds the outbound queue when the config gives none.
const DefaultQueueSize = 64

// Session is a connected client as seen by the chat layer: an identity plus
// a bounded outbound queue the transport drains to the wire. It implements
// chat.Session. Delivery into the queue never blocks; when the queue is
// full the payload is dropped and counted, so a stalled reader can never
// hold up a broadcasting channel.
type Session struct {
	id    chat.SessionID
	name  string
	level chat.AccessLevel
	log   *zerolog.Logger

	mu      sync.Mutex
	out     chan []byte
	closed  bool
	dropped uint64
}

// New constructs a session with a bounded outbound queue.
func New(id chat.SessionID, name string, level chat.AccessLevel, queueSize int, logger *zerolog.Logger) *Session {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Session{
		id:    id,
		name:  name,
		level: level,
		log:   logger,
		out:   make(chan []byte, queueSize),
	}
}

// NewGuestID derives a best-effort unique session id for unauthenticated
// connections. Authenticated sessions use their user id instead.
func NewGuestID() chat.SessionID {
	return chat.SessionID(uuid.New().ID())
}

// ID returns the session identity used for channel membership.
func (s *Session) ID() chat.SessionID { return s.id }

// Name returns the user-facing name stamped into packets.
func (s *Session) Name() string { return s.name }

// Level returns the capability used by read/write gates.
func (s *Session) Level() chat.AccessLevel { return s.level }

// Enqueue hands a payload to the outbound queue without blocking. Payloads
// to a closed session or a full queue are dropped.
func (s *Session) Enqueue(payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	select {
	case s.out <- payload:
	default:
		s.dropped++
		metrics.PacketsDroppedCount.Inc()
		if s.log != nil {
			s.log.Debug().Int64("session_id", int64(s.id)).Msg("outbound queue full, payload dropped")
		}
	}
}

// Out exposes the queue for the transport's write loop. The channel is
// closed by Close.
func (s *Session) Out() <-chan []byte { return s.out }

// Dropped returns how many payloads were discarded on a full queue.
func (s *Session) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close shuts the outbound queue. Idempotent; Enqueue after Close is a
// silent drop, matching best-effort fan-out semantics.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.out)
}
