// Package pgstore keeps client state in PostgreSQL, for shared workstations
// where several operators keep separate profiles.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"sitepanel.org/internal/storage"
)

const (
	defaultTable   = "client_state"
	defaultProfile = "default"
)

// Store implements storage.Store on a client_state(profile, key, value) table.
type Store struct {
	db      *sql.DB
	table   string
	profile string
}

var _ storage.Store = (*Store)(nil)

// Option configures Store.
type Option func(*Store)

// WithTable overrides the default table name.
func WithTable(name string) Option {
	return func(s *Store) {
		if name = strings.TrimSpace(name); name != "" {
			s.table = name
		}
	}
}

// WithProfile scopes every key to the named profile.
func WithProfile(profile string) Option {
	return func(s *Store) {
		if profile = strings.TrimSpace(profile); profile != "" {
			s.profile = profile
		}
	}
}

// Open connects through the pgx stdlib driver.
func Open(dsn string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("pgstore: dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("pgstore: open: %w", err)
	}
	// a CLI needs very few connections
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(15 * time.Minute)
	return New(db, opts...), nil
}

// New wraps an existing handle.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, table: defaultTable, profile: defaultProfile}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureSchema creates the state table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`create table if not exists %s (
		profile text not null,
		key text not null,
		value text not null,
		updated_at timestamptz not null default now(),
		primary key (profile, key)
	)`, s.table))
	if err != nil {
		return fmt.Errorf("pgstore: ensure schema: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	key, err := storage.ValidateKey(key)
	if err != nil {
		return "", err
	}
	var value string
	err = s.db.QueryRowContext(ctx,
		fmt.Sprintf(`select value from %s where profile = $1 and key = $2`, s.table),
		s.profile, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("pgstore: get %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	key, err := storage.ValidateKey(key)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`
		insert into %s (profile, key, value, updated_at)
		values ($1, $2, $3, now())
		on conflict (profile, key) do update
		set value = excluded.value, updated_at = now()
	`, s.table), s.profile, key, value)
	if err != nil {
		return fmt.Errorf("pgstore: set %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	key, err := storage.ValidateKey(key)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`delete from %s where profile = $1 and key = $2`, s.table),
		s.profile, key,
	); err != nil {
		return fmt.Errorf("pgstore: delete %s: %w", key, err)
	}
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
