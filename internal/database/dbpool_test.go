package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"phoneverifier/internal/config"
)

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsUniqueViolation(fmt.Errorf("wrapped: %w", &pq.Error{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestMockDBPool(t *testing.T) {
	pool, mock, err := NewMockDBPool()
	require.NoError(t, err)
	defer pool.Close()
	ctx := context.Background()

	mock.ExpectQuery("SELECT id FROM t").WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec("UPDATE t").WillReturnResult(pgxmock.NewResult("UPDATE", 3))
	mock.ExpectQuery("SELECT id FROM t").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("a").AddRow("b"))

	var id string
	assert.ErrorIs(t, pool.QueryRow(ctx, "SELECT id FROM t").Scan(&id), ErrNoRows)

	res, err := pool.Exec(ctx, "UPDATE t SET x = 1")
	require.NoError(t, err)
	n, err := res.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	rows, err := pool.Query(ctx, "SELECT id FROM t")
	require.NoError(t, err)
	var ids []string
	for rows.Next() {
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}
	rows.Close()
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"a", "b"}, ids)

	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{Driver: "mysql"}, zap.NewNop())
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestNewRedisClient_EmptyAddr(t *testing.T) {
	c, err := NewRedisClient(context.Background(), config.RedisConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestNewRedisClient_Miniredis(t *testing.T) {
	s := miniredis.RunT(t)
	c, err := NewRedisClient(context.Background(), config.RedisConfig{Addr: s.Addr()}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, c)
	defer func() { _ = c.Close() }()
	assert.NoError(t, c.Ping(context.Background()).Err())
}
