package chat

import (
	"fmt"
	"sync"
)

// InstanceKind selects the reserved name prefix for an instanced channel.
type InstanceKind int

const (
	// InstanceSpectator is a per-target spectating channel (#spec_<id>).
	InstanceSpectator InstanceKind = iota
	// InstanceMultiplayer is a per-lobby channel (#multi_<id>).
	InstanceMultiplayer
)

func (k InstanceKind) prefix() string {
	if k == InstanceMultiplayer {
		return PrefixMultiplayer
	}
	return PrefixSpectator
}

// Directory is the registry of live channels by internal name. It creates
// channels, resolves lookups, and honors the self-removal request an
// instance channel makes when its last member leaves.
//
// Lock order is fixed: a channel's own mutex is always taken before the
// directory's. The directory never calls into a channel while holding its
// own lock.
type Directory struct {
	mu       sync.RWMutex
	channels map[string]*Channel
	order    []string // registration order, for stable listings
}

// NewDirectory constructs an empty channel registry.
func NewDirectory() *Directory {
	return &Directory{
		channels: make(map[string]*Channel),
	}
}

// Create builds a channel, registers it, and installs the removal callback.
// Returns ErrChannelExists if the internal name is already taken.
func (d *Directory) Create(name, topic string, opts Options) (*Channel, error) {
	ch := NewChannel(name, topic, opts)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.channels[name]; ok {
		return nil, fmt.Errorf("create %q: %w", name, ErrChannelExists)
	}
	ch.onEmpty = d.removeEmptied
	d.channels[name] = ch
	d.order = append(d.order, name)
	return ch, nil
}

// CreateInstance builds an ephemeral channel named from the kind's reserved
// prefix and the given numeric id, e.g. #multi_7. Instance channels are not
// auto-joined and delete themselves when empty.
func (d *Directory) CreateInstance(kind InstanceKind, id int64, topic string) (*Channel, error) {
	opts := DefaultOptions()
	opts.AutoJoin = false
	opts.Instance = true
	return d.Create(fmt.Sprintf("%s%d", kind.prefix(), id), topic, opts)
}

// Get resolves a channel by its internal name.
func (d *Directory) Get(name string) (*Channel, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ch, ok := d.channels[name]
	return ch, ok
}

// Remove administratively deletes a channel: it is unregistered, then shut
// down so in-flight operations are rejected. Returns ErrChannelNotFound if
// the directory holds no such channel (or a different one under that name),
// which signals a bookkeeping bug in the caller rather than a retryable
// condition.
func (d *Directory) Remove(ch *Channel) error {
	if err := d.unregister(ch); err != nil {
		return err
	}
	ch.shutdown()
	return nil
}

// removeEmptied is installed on created channels and runs when an instance
// channel's last member leaves. The channel has already marked itself
// closed; only the registry entry remains to be dropped. A missing entry is
// a registry inconsistency and propagates out of Leave, never retried.
func (d *Directory) removeEmptied(ch *Channel) error {
	return d.unregister(ch)
}

func (d *Directory) unregister(ch *Channel) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	name := ch.Name()
	if existing, ok := d.channels[name]; !ok || existing != ch {
		return fmt.Errorf("remove %q: %w", name, ErrChannelNotFound)
	}
	delete(d.channels, name)
	for i, n := range d.order {
		if n == name {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	return nil
}

// Channels returns a snapshot of live channels in registration order.
func (d *Directory) Channels() []*Channel {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*Channel, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, d.channels[name])
	}
	return out
}

// Summaries returns the client-facing listing of all live channels. Channel
// summaries are taken after the registry lock is released, preserving the
// channel-before-directory lock order.
func (d *Directory) Summaries() []Summary {
	chs := d.Channels()
	out := make([]Summary, 0, len(chs))
	for _, ch := range chs {
		out = append(out, ch.Summary())
	}
	return out
}

// Len returns the number of live channels.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.channels)
}
