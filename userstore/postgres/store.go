package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MrEthical07/authcore"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// DBTX is the subset of *sql.DB and *sql.Tx the store needs.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const selectColumns = `SELECT id, username, email, is_active, deleted_at, password_hash FROM users`

type Store struct {
	db DBTX
}

var _ authcore.UserStore = (*Store)(nil)

func New(db DBTX) (*Store, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	return &Store{db: db}, nil
}

// Open connects to dsn with the pgx driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return db, nil
}

func (s *Store) FindByID(ctx context.Context, id int64) (*authcore.Principal, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = $1`, id)
	return scanPrincipal(row)
}

func (s *Store) FindByUsername(ctx context.Context, username string) (*authcore.Principal, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE username = $1`, username)
	return scanPrincipal(row)
}

func scanPrincipal(row *sql.Row) (*authcore.Principal, error) {
	var (
		p         authcore.Principal
		deletedAt sql.NullTime
	)

	err := row.Scan(&p.ID, &p.Username, &p.Email, &p.Active, &deletedAt, &p.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, authcore.ErrUserNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if deletedAt.Valid {
		t := deletedAt.Time
		p.DeletedAt = &t
	}
	return &p, nil
}
