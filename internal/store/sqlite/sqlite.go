package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/gamechat-server/internal/store"
)

// ErrNotFound is returned when a channel definition does not exist.
var ErrNotFound = errors.New("channel definition not found")

// ErrExists is returned when a channel definition name is already taken.
var ErrExists = errors.New("channel definition already exists")

const schema = `
CREATE TABLE IF NOT EXISTS channels (
	name        TEXT PRIMARY KEY,
	topic       TEXT NOT NULL DEFAULT '',
	read_level  TEXT NOT NULL DEFAULT 'normal',
	write_level TEXT NOT NULL DEFAULT 'normal',
	auto_join   BOOLEAN NOT NULL DEFAULT 1,
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// NewWithSetup creates a new SQLite store and runs a setup function after
// the schema is applied. Useful for tests to seed fixtures.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	s, err := New(dbPath)
	if err != nil {
		return nil, err
	}
	if setup != nil {
		if err := setup(s.db); err != nil {
			s.db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ListChannels returns all channel definitions in creation order.
func (s *SQLiteStore) ListChannels(ctx context.Context) ([]store.ChannelDef, error) {
	query := `
		SELECT name, topic, read_level, write_level, auto_join, created_at
		FROM channels
		ORDER BY created_at, name
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	var defs []store.ChannelDef
	for rows.Next() {
		var def store.ChannelDef
		if err := rows.Scan(&def.Name, &def.Topic, &def.ReadLevel, &def.WriteLevel, &def.AutoJoin, &def.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

// GetChannel returns one channel definition by name.
func (s *SQLiteStore) GetChannel(ctx context.Context, name string) (*store.ChannelDef, error) {
	query := `
		SELECT name, topic, read_level, write_level, auto_join, created_at
		FROM channels
		WHERE name = ?
	`
	var def store.ChannelDef
	err := s.db.QueryRowContext(ctx, query, name).
		Scan(&def.Name, &def.Topic, &def.ReadLevel, &def.WriteLevel, &def.AutoJoin, &def.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get channel: %w", err)
	}
	return &def, nil
}

// CreateChannel inserts a new channel definition.
func (s *SQLiteStore) CreateChannel(ctx context.Context, def store.ChannelDef) error {
	query := `
		INSERT INTO channels (name, topic, read_level, write_level, auto_join)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query, def.Name, def.Topic, def.ReadLevel, def.WriteLevel, def.AutoJoin)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrExists
		}
		return fmt.Errorf("create channel: %w", err)
	}
	return nil
}

// DeleteChannel removes a channel definition by name.
func (s *SQLiteStore) DeleteChannel(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM channels WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete channel: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete channel: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SeedDefaults inserts the stock channels when the table is empty, so a
// fresh server comes up with something to join.
func (s *SQLiteStore) SeedDefaults(ctx context.Context) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM channels`).Scan(&count); err != nil {
		return fmt.Errorf("count channels: %w", err)
	}
	if count > 0 {
		return nil
	}

	defaults := []store.ChannelDef{
		{Name: "#general", Topic: "General discussion", ReadLevel: "normal", WriteLevel: "normal", AutoJoin: true},
		{Name: "#announce", Topic: "Server announcements", ReadLevel: "normal", WriteLevel: "admin", AutoJoin: true},
		{Name: "#lobby", Topic: "Find a game to play in", ReadLevel: "normal", WriteLevel: "normal", AutoJoin: false},
		{Name: "#staff", Topic: "Staff chat", ReadLevel: "moderator", WriteLevel: "moderator", AutoJoin: false},
	}
	for _, def := range defaults {
		if err := s.CreateChannel(ctx, def); err != nil {
			return err
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
