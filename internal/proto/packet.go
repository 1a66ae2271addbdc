package proto

import (
	"encoding/json"
	"time"
)

// Inbound is the envelope for frames coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeHello = "hello"
	InboundTypeJoin  = "join"
	InboundTypeLeave = "leave"
	InboundTypeMsg   = "msg"
	InboundTypePM    = "pm"

	OutboundTypeMessage  = "message"
	OutboundTypeSystem   = "system"
	OutboundTypeChannels = "channels"
	OutboundTypeError    = "error"
)

// HelloData is sent by the client to introduce itself.
type HelloData struct {
	Token    string `json:"token,omitempty"`
	Protocol int    `json:"protocol,omitempty"`
}

// JoinData requests to join a channel by its internal name.
type JoinData struct {
	Channel string `json:"channel"`
}

// MsgData is a chat message from the client. IncludeSelf asks for the
// sender's own copy, used by clients without local echo.
type MsgData struct {
	Channel     string `json:"channel"`
	Text        string `json:"text"`
	IncludeSelf bool   `json:"include_self,omitempty"`
}

// PMData is a reply targeted at one session, framed by a channel but
// delivered regardless of the target's membership.
type PMData struct {
	Channel string `json:"channel"`
	To      int64  `json:"to"`
	Text    string `json:"text"`
}

// Outbound is the envelope for frames sent to the client.
type Outbound struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// MessagePacket carries one chat message. Target is the channel's display
// name, so all spectator instances read as #spectator on the wire.
type MessagePacket struct {
	Sender   string `json:"sender"`
	SenderID int64  `json:"sender_id"`
	Target   string `json:"target"`
	Text     string `json:"text"`
	TS       int64  `json:"ts"`
}

// SystemPacket is a channel-scoped notice not attributable to a session
// (joins, leaves, topic changes).
type SystemPacket struct {
	Target string `json:"target"`
	Event  string `json:"event"`
	User   string `json:"user,omitempty"`
	Text   string `json:"text,omitempty"`
	TS     int64  `json:"ts"`
}

const (
	SystemEventJoined = "joined"
	SystemEventLeft   = "left"
	SystemEventTopic  = "topic"
	SystemEventClosed = "closed"
)

// ErrorPacket describes a protocol-level error response.
type ErrorPacket struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

// EncodeMessage produces the opaque payload a channel fans out for a chat
// message. Channels never look inside it.
func EncodeMessage(sender string, senderID int64, target, text string) []byte {
	return encode(OutboundTypeMessage, MessagePacket{
		Sender:   sender,
		SenderID: senderID,
		Target:   target,
		Text:     text,
		TS:       time.Now().Unix(),
	})
}

// EncodeSystem produces the payload for a channel-scoped system notice.
func EncodeSystem(target, event, user, text string) []byte {
	return encode(OutboundTypeSystem, SystemPacket{
		Target: target,
		Event:  event,
		User:   user,
		Text:   text,
		TS:     time.Now().Unix(),
	})
}

// EncodeError produces the payload for a coded protocol error.
func EncodeError(code, msg string) []byte {
	return encode(OutboundTypeError, ErrorPacket{Code: code, Msg: msg})
}

func encode(typ string, data any) []byte {
	// Outbound shapes marshal from plain structs and cannot fail; a change
	// that breaks this shows up immediately in the encoder tests.
	b, err := json.Marshal(Outbound{Type: typ, Data: data})
	if err != nil {
		return []byte(`{"type":"error","data":{"code":"encode_failed"}}`)
	}
	return b
}
