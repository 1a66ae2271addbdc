package chat

import "errors"

// Error codes for domain errors.
const (
	ErrCodeChannelNotFound = "channel_not_found"
	ErrCodeChannelExists   = "channel_exists"
	ErrCodeChannelClosed   = "channel_closed"
	ErrCodeAlreadyJoined   = "already_joined"
	ErrCodeNotInChannel    = "not_in_channel"
)

var (
	ErrChannelNotFound = errors.New("channel not found")
	ErrChannelExists   = errors.New("channel already exists")
	ErrChannelClosed   = errors.New("channel closed")
	ErrAlreadyJoined   = errors.New("session already in channel")
	ErrNotInChannel    = errors.New("session not in channel")
)

// ChatError wraps a code and human-readable message for the transport.
type ChatError struct {
	Code    string
	Message string
}

func (e *ChatError) Error() string {
	return e.Message
}

// AsChatError maps a domain error to its coded form, or nil for errors
// that have no protocol-level representation.
func AsChatError(err error) *ChatError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrChannelNotFound):
		return &ChatError{Code: ErrCodeChannelNotFound, Message: err.Error()}
	case errors.Is(err, ErrChannelExists):
		return &ChatError{Code: ErrCodeChannelExists, Message: err.Error()}
	case errors.Is(err, ErrChannelClosed):
		return &ChatError{Code: ErrCodeChannelClosed, Message: err.Error()}
	case errors.Is(err, ErrAlreadyJoined):
		return &ChatError{Code: ErrCodeAlreadyJoined, Message: err.Error()}
	case errors.Is(err, ErrNotInChannel):
		return &ChatError{Code: ErrCodeNotInChannel, Message: err.Error()}
	default:
		return nil
	}
}
