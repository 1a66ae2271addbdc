package store

import (
	"context"
	"time"
)

// ChannelDef is a persisted channel definition used to bootstrap the
// directory at startup. Access levels are stored by name and parsed by the
// chat layer.
type ChannelDef struct {
	Name       string
	Topic      string
	ReadLevel  string
	WriteLevel string
	AutoJoin   bool
	CreatedAt  time.Time
}

// Store persists channel definitions.
type Store interface {
	ChannelStore
	Close() error
}

// ChannelStore is the channel-definition surface of the store.
type ChannelStore interface {
	ListChannels(ctx context.Context) ([]ChannelDef, error)
	GetChannel(ctx context.Context, name string) (*ChannelDef, error)
	CreateChannel(ctx context.Context, def ChannelDef) error
	DeleteChannel(ctx context.Context, name string) error
}
