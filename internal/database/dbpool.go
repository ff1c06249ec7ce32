package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

// ErrNoRows is returned by Row.Scan when the query matched nothing,
// whichever driver sits underneath.
var ErrNoRows = errors.New("no rows in result set")

type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close()
	Err() error
}

type Row interface {
	Scan(dest ...any) error
}

type Result interface {
	RowsAffected() (int64, error)
}

// DBPool is the query surface repositories depend on. It is satisfied by a
// database/sql handle (lib/pq), a pgx pool, and the pgxmock pool in tests.
type DBPool interface {
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) Row
	Exec(ctx context.Context, query string, args ...any) (Result, error)
	Ping(ctx context.Context) error
	Close()
}

// IsUniqueViolation reports a Postgres 23505 from either driver.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

// --- pgx ---

type PgxRows struct{ pgx.Rows }

func (r PgxRows) Close() { r.Rows.Close() }

type PgxRow struct{ pgx.Row }

func (r PgxRow) Scan(dest ...any) error {
	if err := r.Row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNoRows
		}
		return err
	}
	return nil
}

type PgxResult struct{ pgconn.CommandTag }

func (r PgxResult) RowsAffected() (int64, error) {
	return r.CommandTag.RowsAffected(), nil
}

type PgxPool struct{ Pool *pgxpool.Pool }

func (p PgxPool) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := p.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return PgxRows{Rows: rows}, nil
}

func (p PgxPool) QueryRow(ctx context.Context, query string, args ...any) Row {
	return PgxRow{Row: p.Pool.QueryRow(ctx, query, args...)}
}

func (p PgxPool) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	tag, err := p.Pool.Exec(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return PgxResult{CommandTag: tag}, nil
}

func (p PgxPool) Ping(ctx context.Context) error { return p.Pool.Ping(ctx) }

func (p PgxPool) Close() { p.Pool.Close() }

// --- database/sql ---

type SQLRows struct{ *sql.Rows }

func (r SQLRows) Close() { _ = r.Rows.Close() }

type SQLRow struct{ *sql.Row }

func (r SQLRow) Scan(dest ...any) error {
	if err := r.Row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNoRows
		}
		return err
	}
	return nil
}

type SQLPool struct{ DB *sql.DB }

func (p SQLPool) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := p.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return SQLRows{Rows: rows}, nil
}

func (p SQLPool) QueryRow(ctx context.Context, query string, args ...any) Row {
	return SQLRow{Row: p.DB.QueryRowContext(ctx, query, args...)}
}

func (p SQLPool) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	return p.DB.ExecContext(ctx, query, args...)
}

func (p SQLPool) Ping(ctx context.Context) error { return p.DB.PingContext(ctx) }

func (p SQLPool) Close() { _ = p.DB.Close() }
