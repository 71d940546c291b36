package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/gamespin/internal/domain/model"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresStore persists authorizations and profiles in PostgreSQL.
// Authorization is a single conditional upsert, so two concurrent
// requests for one identity cannot both be granted.
type PostgresStore struct {
	pool      *pgxpool.Pool
	txManager trm.Manager
	maxConns  int32
	migrate   bool
}

// NewPostgresStore connects to dsn, pings the server and, unless
// disabled, creates the schema.
func NewPostgresStore(ctx context.Context, dsn string, opts ...PostgresOption) (*PostgresStore, error) {
	s := &PostgresStore{maxConns: 10, migrate: true}
	for _, opt := range opts {
		opt(s)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = s.maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	txManager, err := manager.New(trmpgx.NewDefaultFactory(pool))
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("tx manager: %w", err)
	}
	s.pool = pool
	s.txManager = txManager

	if s.migrate {
		if err := s.RunMigrations(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return s, nil
}

// TryAuthorize implements AuthorizationStore.
func (s *PostgresStore) TryAuthorize(ctx context.Context, identity string, now time.Time, cooldown time.Duration) (time.Time, bool, error) {
	if identity == "" {
		return time.Time{}, false, ErrEmptyIdentity
	}
	// timestamptz keeps microseconds
	now = now.Truncate(time.Microsecond)
	cutoff := now.Add(-cooldown)

	var (
		last    time.Time
		granted bool
	)
	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		upsert, args, err := psql.Insert(tableAuth).
			Columns(colIdentity, colLastAuthorizedAt).
			Values(identity, now).
			Suffix(fmt.Sprintf("ON CONFLICT (%[1]s) DO UPDATE SET %[2]s = EXCLUDED.%[2]s WHERE %[3]s.%[2]s <= ? RETURNING %[2]s",
				colIdentity, colLastAuthorizedAt, tableAuth), cutoff).
			ToSql()
		if err != nil {
			return err
		}

		err = trmpgx.DefaultCtxGetter.DefaultTrOrDB(ctx, s.pool).QueryRow(ctx, upsert, args...).Scan(&last)
		if err == nil {
			granted = true
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		sel, args, err := psql.Select(colLastAuthorizedAt).
			From(tableAuth).
			Where(sq.Eq{colIdentity: identity}).
			ToSql()
		if err != nil {
			return err
		}
		return trmpgx.DefaultCtxGetter.DefaultTrOrDB(ctx, s.pool).QueryRow(ctx, sel, args...).Scan(&last)
	})
	if err != nil {
		return time.Time{}, false, err
	}
	return last, granted, nil
}

// LastAuthorized implements AuthorizationStore.
func (s *PostgresStore) LastAuthorized(ctx context.Context, identity string) (time.Time, bool, error) {
	sel, args, err := psql.Select(colLastAuthorizedAt).
		From(tableAuth).
		Where(sq.Eq{colIdentity: identity}).
		ToSql()
	if err != nil {
		return time.Time{}, false, err
	}

	var last time.Time
	err = trmpgx.DefaultCtxGetter.DefaultTrOrDB(ctx, s.pool).QueryRow(ctx, sel, args...).Scan(&last)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return last, true, nil
}

// LoadProfile implements ProfileStore.
func (s *PostgresStore) LoadProfile(ctx context.Context, identity string) (model.Profile, error) {
	sel, args, err := psql.Select(colAccentColor, colCardStyle, colUpdatedAt).
		From(tableProfiles).
		Where(sq.Eq{colUsername: identity}).
		ToSql()
	if err != nil {
		return model.Profile{}, err
	}

	p := model.Profile{Username: identity, Won: model.WonCollection{}}
	err = trmpgx.DefaultCtxGetter.DefaultTrOrDB(ctx, s.pool).QueryRow(ctx, sel, args...).Scan(&p.Preferences.AccentColor, &p.Preferences.CardStyle, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Profile{}, ErrNotFound
	}
	if err != nil {
		return model.Profile{}, err
	}

	sel, args, err = psql.Select(colEntryID).
		From(tableWon).
		Where(sq.Eq{colUsername: identity}).
		OrderBy(colPosition).
		ToSql()
	if err != nil {
		return model.Profile{}, err
	}
	rows, err := trmpgx.DefaultCtxGetter.DefaultTrOrDB(ctx, s.pool).Query(ctx, sel, args...)
	if err != nil {
		return model.Profile{}, err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return model.Profile{}, err
	}
	p.Won = append(p.Won, ids...)
	return p, nil
}

// SaveProfile implements ProfileStore. The profile row and its won
// collection are replaced in one transaction.
func (s *PostgresStore) SaveProfile(ctx context.Context, p model.Profile) error {
	if p.Username == "" {
		return ErrEmptyIdentity
	}
	won := p.Won.Normalize()
	updated := p.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	return s.txManager.Do(ctx, func(ctx context.Context) error {
		upsert, args, err := psql.Insert(tableProfiles).
			Columns(colUsername, colAccentColor, colCardStyle, colUpdatedAt).
			Values(p.Username, p.Preferences.AccentColor, p.Preferences.CardStyle, updated).
			Suffix(fmt.Sprintf("ON CONFLICT (%[1]s) DO UPDATE SET %[2]s = EXCLUDED.%[2]s, %[3]s = EXCLUDED.%[3]s, %[4]s = EXCLUDED.%[4]s",
				colUsername, colAccentColor, colCardStyle, colUpdatedAt)).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := trmpgx.DefaultCtxGetter.DefaultTrOrDB(ctx, s.pool).Exec(ctx, upsert, args...); err != nil {
			return err
		}

		del, args, err := psql.Delete(tableWon).Where(sq.Eq{colUsername: p.Username}).ToSql()
		if err != nil {
			return err
		}
		if _, err := trmpgx.DefaultCtxGetter.DefaultTrOrDB(ctx, s.pool).Exec(ctx, del, args...); err != nil {
			return err
		}

		if len(won) == 0 {
			return nil
		}
		ins := psql.Insert(tableWon).Columns(colUsername, colPosition, colEntryID)
		for i, id := range won {
			ins = ins.Values(p.Username, i, id)
		}
		q, args, err := ins.ToSql()
		if err != nil {
			return err
		}
		_, err = trmpgx.DefaultCtxGetter.DefaultTrOrDB(ctx, s.pool).Exec(ctx, q, args...)
		return err
	})
}

// Ping implements Store.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Count implements Store.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	q, args, err := psql.Select("COUNT(*)").From(tableAuth).ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err := trmpgx.DefaultCtxGetter.DefaultTrOrDB(ctx, s.pool).QueryRow(ctx, q, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
