package chat

import (
	"fmt"
	"strings"
	"sync"
)

// Reserved internal-name prefixes for instanced channels. Every spectator
// and multiplayer instance is individually addressable by its internal name
// but presents one shared alias to clients.
const (
	PrefixSpectator   = "#spec_"
	PrefixMultiplayer = "#multi_"

	AliasSpectator   = "#spectator"
	AliasMultiplayer = "#multiplayer"
)

// DisplayName maps an internal channel name to the name shown to clients.
// It is a pure function: instanced prefixes collapse to their shared alias,
// anything else passes through unchanged.
func DisplayName(internal string) string {
	if strings.HasPrefix(internal, PrefixSpectator) {
		return AliasSpectator
	}
	if strings.HasPrefix(internal, PrefixMultiplayer) {
		return AliasMultiplayer
	}
	return internal
}

// Options configures a channel at construction time.
type Options struct {
	// ReadLevel and WriteLevel are the minimum capabilities to observe and
	// post. Enforced by callers before invoking channel operations; the
	// channel itself never re-checks.
	ReadLevel  AccessLevel
	WriteLevel AccessLevel
	// AutoJoin marks channels that session bootstrap subscribes new
	// connections to. The channel itself does not act on it.
	AutoJoin bool
	// Instance marks an ephemeral channel that removes itself from the
	// directory when its last member leaves.
	Instance bool
}

// DefaultOptions returns the baseline channel configuration.
func DefaultOptions() Options {
	return Options{
		ReadLevel:  LevelNormal,
		WriteLevel: LevelNormal,
		AutoJoin:   true,
	}
}

// Summary is the client-facing view of a channel.
type Summary struct {
	Name    string `json:"name"`
	Topic   string `json:"topic"`
	Members int    `json:"members"`
}

// Channel groups sessions subscribed to one chat scope and fans messages
// out to them. All mutation goes through its own methods; the member set is
// never spliced from outside.
type Channel struct {
	name       string // internal name, immutable
	readLevel  AccessLevel
	writeLevel AccessLevel
	autoJoin   bool
	instance   bool

	mu      sync.RWMutex
	topic   string
	members []Session // insertion order
	index   map[SessionID]struct{}
	closed  bool
	onEmpty func(*Channel) error // installed by the directory, runs at most once
}

// NewChannel constructs a channel with no members. The directory is
// responsible for registering it and installing the removal callback.
func NewChannel(name, topic string, opts Options) *Channel {
	return &Channel{
		name:       name,
		topic:      topic,
		readLevel:  opts.ReadLevel,
		writeLevel: opts.WriteLevel,
		autoJoin:   opts.AutoJoin,
		instance:   opts.Instance,
		index:      make(map[SessionID]struct{}),
	}
}

// Name returns the channel's true internal name.
func (c *Channel) Name() string { return c.name }

// DisplayName returns the name shown to clients, with instanced prefixes
// collapsed to their shared alias.
func (c *Channel) DisplayName() string { return DisplayName(c.name) }

// ReadLevel returns the minimum capability required to observe the channel.
func (c *Channel) ReadLevel() AccessLevel { return c.readLevel }

// WriteLevel returns the minimum capability required to post.
func (c *Channel) WriteLevel() AccessLevel { return c.writeLevel }

// AutoJoin reports whether new sessions should be subscribed on connect.
func (c *Channel) AutoJoin() bool { return c.autoJoin }

// IsInstance reports whether the channel tears itself down when empty.
func (c *Channel) IsInstance() bool { return c.instance }

// Topic returns the current topic.
func (c *Channel) Topic() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.topic
}

// SetTopic replaces the topic. Privilege checks are the caller's job.
func (c *Channel) SetTopic(topic string) {
	c.mu.Lock()
	c.topic = topic
	c.mu.Unlock()
}

// Summary returns the display name, topic and member count as of this call.
func (c *Channel) Summary() Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Summary{
		Name:    DisplayName(c.name),
		Topic:   c.topic,
		Members: len(c.members),
	}
}

// Contains reports whether the session is a fully committed member.
func (c *Channel) Contains(s Session) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.index[s.ID()]
	return ok
}

// Join appends the session to the member set, preserving join order.
// A duplicate join is rejected with ErrAlreadyJoined and never produces a
// second entry. Joining a closed channel returns ErrChannelClosed so a
// racing join during instance teardown is never silently lost.
func (c *Channel) Join(s Session) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrChannelClosed
	}
	if _, ok := c.index[s.ID()]; ok {
		return ErrAlreadyJoined
	}
	c.members = append(c.members, s)
	c.index[s.ID()] = struct{}{}
	return nil
}

// Leave removes the session from the member set. When the last member of an
// instance channel departs, the removal and the empty check happen in one
// critical section: the channel is marked closed before the directory
// callback runs, so a concurrent Join cannot land in a torn-down channel.
// Leaving a channel the session is not in returns ErrNotInChannel.
func (c *Channel) Leave(s Session) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrChannelClosed
	}
	if _, ok := c.index[s.ID()]; !ok {
		c.mu.Unlock()
		return ErrNotInChannel
	}

	delete(c.index, s.ID())
	id := s.ID()
	for i, m := range c.members {
		if m.ID() == id {
			c.members = append(c.members[:i], c.members[i+1:]...)
			break
		}
	}

	var onEmpty func(*Channel) error
	if c.instance && len(c.members) == 0 {
		c.closed = true
		onEmpty = c.onEmpty
		c.onEmpty = nil
	}
	c.mu.Unlock()

	if onEmpty != nil {
		if err := onEmpty(c); err != nil {
			return fmt.Errorf("instance teardown: %w", err)
		}
	}
	return nil
}

// Broadcast fans the payload out to every member, skipping the sender
// unless includeSender is set. The payload is already wire-encoded and
// stamped with the sender's identity upstream.
func (c *Channel) Broadcast(sender Session, payload []byte, includeSender bool) {
	if includeSender {
		c.Enqueue(payload)
		return
	}
	c.Enqueue(payload, sender.ID())
}

// SendSelective delivers the payload to exactly the given targets, which
// need not be channel members. Used for targeted notifications carrying the
// channel's framing without its membership semantics.
func (c *Channel) SendSelective(payload []byte, targets ...Session) {
	for _, t := range targets {
		t.Enqueue(payload)
	}
}

// Enqueue delivers the payload to every current member whose identity is
// not in immune. The member snapshot is taken under the lock; the actual
// enqueueing happens outside it, so a slow recipient never holds up
// membership changes. Per-recipient delivery is best-effort: the pass
// always runs to completion.
func (c *Channel) Enqueue(payload []byte, immune ...SessionID) {
	c.mu.RLock()
	recipients := make([]Session, 0, len(c.members))
	for _, m := range c.members {
		if skip(m.ID(), immune) {
			continue
		}
		recipients = append(recipients, m)
	}
	c.mu.RUnlock()

	for _, r := range recipients {
		r.Enqueue(payload)
	}
}

// shutdown marks the channel closed so further operations are rejected.
// Idempotent; used by the directory on administrative removal.
func (c *Channel) shutdown() {
	c.mu.Lock()
	c.closed = true
	c.onEmpty = nil
	c.mu.Unlock()
}

func skip(id SessionID, immune []SessionID) bool {
	for _, im := range immune {
		if im == id {
			return true
		}
	}
	return false
}
