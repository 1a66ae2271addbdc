package chat

// SessionID uniquely identifies a connected game session.
type SessionID int64

// Session is a chat participant as seen by the channel layer. The channel
// holds non-owning references; session lifetime belongs to the transport.
type Session interface {
	// ID returns the session's identity used for membership accounting.
	ID() SessionID
	// Name returns the user-facing name stamped into outgoing packets.
	Name() string
	// Enqueue hands a wire-encoded payload to the session's outbound queue.
	// It must never block; a full queue is the session's problem to handle.
	Enqueue(payload []byte)
}

// AccessLevel is the capability a session must hold to read or post in a
// channel. Gating happens in the transport before channel calls are made.
type AccessLevel int

const (
	LevelPublic AccessLevel = iota
	LevelNormal
	LevelModerator
	LevelAdmin
)

// String returns the level name used in config files and token claims.
func (l AccessLevel) String() string {
	switch l {
	case LevelPublic:
		return "public"
	case LevelNormal:
		return "normal"
	case LevelModerator:
		return "moderator"
	case LevelAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// ParseAccessLevel maps a level name to its AccessLevel, defaulting to
// LevelNormal for unknown input.
func ParseAccessLevel(s string) AccessLevel {
	switch s {
	case "public":
		return LevelPublic
	case "normal":
		return LevelNormal
	case "moderator":
		return LevelModerator
	case "admin":
		return LevelAdmin
	default:
		return LevelNormal
	}
}
