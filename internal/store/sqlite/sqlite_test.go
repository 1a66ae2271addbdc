package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/gamechat-server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestChannelCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	def := store.ChannelDef{
		Name:       "#general",
		Topic:      "talk",
		ReadLevel:  "normal",
		WriteLevel: "normal",
		AutoJoin:   true,
	}
	require.NoError(t, s.CreateChannel(ctx, def))

	got, err := s.GetChannel(ctx, "#general")
	require.NoError(t, err)
	require.Equal(t, "#general", got.Name)
	require.Equal(t, "talk", got.Topic)
	require.True(t, got.AutoJoin)
	require.False(t, got.CreatedAt.IsZero())

	require.ErrorIs(t, s.CreateChannel(ctx, def), ErrExists)

	require.NoError(t, s.DeleteChannel(ctx, "#general"))
	_, err = s.GetChannel(ctx, "#general")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, s.DeleteChannel(ctx, "#general"), ErrNotFound)
}

func TestListChannels(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	names := []string{"#a", "#b", "#c"}
	for _, n := range names {
		require.NoError(t, s.CreateChannel(ctx, store.ChannelDef{
			Name:       n,
			ReadLevel:  "normal",
			WriteLevel: "normal",
			AutoJoin:   true,
		}))
	}

	defs, err := s.ListChannels(ctx)
	require.NoError(t, err)
	require.Len(t, defs, 3)
	for i, n := range names {
		require.Equal(t, n, defs[i].Name)
	}
}

func TestSeedDefaults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SeedDefaults(ctx))

	defs, err := s.ListChannels(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, defs)

	general, err := s.GetChannel(ctx, "#general")
	require.NoError(t, err)
	require.True(t, general.AutoJoin)

	// Seeding again is a no-op, not a duplicate insert.
	require.NoError(t, s.SeedDefaults(ctx))
	again, err := s.ListChannels(ctx)
	require.NoError(t, err)
	require.Len(t, again, len(defs))
}
