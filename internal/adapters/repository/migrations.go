package repository

import (
	"context"
	"fmt"
)

const (
	tableAuth     = "spin_authorizations"
	tableProfiles = "profiles"
	tableWon      = "profile_won"

	colIdentity         = "identity"
	colLastAuthorizedAt = "last_authorized_at"
	colUsername         = "username"
	colAccentColor      = "accent_color"
	colCardStyle        = "card_style"
	colUpdatedAt        = "updated_at"
	colPosition         = "position"
	colEntryID          = "entry_id"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS spin_authorizations (
		identity           TEXT PRIMARY KEY,
		last_authorized_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS profiles (
		username     TEXT PRIMARY KEY,
		accent_color TEXT NOT NULL DEFAULT '',
		card_style   TEXT NOT NULL DEFAULT '',
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS profile_won (
		username TEXT NOT NULL REFERENCES profiles (username) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		entry_id TEXT NOT NULL,
		PRIMARY KEY (username, entry_id)
	)`,
}

// RunMigrations creates the tables if they do not exist.
func (s *PostgresStore) RunMigrations(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
