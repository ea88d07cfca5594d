package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"regexp"
	"syscall"
	"testing"
	"testing/fstest"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "reviews_author_game_key"})
	assert.True(t, IsUniqueViolation(err, ""))
	assert.True(t, IsUniqueViolation(err, "reviews_author_game_key"))
	assert.False(t, IsUniqueViolation(err, "games_igdb_id_key"))
	assert.False(t, IsUniqueViolation(errors.New("boom"), ""))
}

func TestIsCheckViolation(t *testing.T) {
	assert.True(t, IsCheckViolation(&pgconn.PgError{Code: "23514"}))
	assert.False(t, IsCheckViolation(&pgconn.PgError{Code: "23505"}))
}

func TestInTx_CommitsOnSuccess(t *testing.T) {
	mock := NewMockPool(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	require.NoError(t, InTx(context.Background(), mock, func(pgx.Tx) error { return nil }))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTx_RollsBackOnError(t *testing.T) {
	mock := NewMockPool(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := InTx(context.Background(), mock, func(pgx.Tx) error { return boom })
	require.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresConfig_DSN(t *testing.T) {
	cfg := PostgresConfig{
		Host: "db", Port: 5432, User: "reviews", Password: "p@ss/word",
		DBName: "regular_reviews", SSLMode: "disable",
	}
	assert.Equal(t, "postgres://reviews:p%40ss%2Fword@db:5432/regular_reviews?sslmode=disable", cfg.DSN())
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("syntax error at or near"), false},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"connection failure", &pgconn.PgError{Code: "08006"}, true},
		{"cannot connect now", fmt.Errorf("ping: %w", &pgconn.PgError{Code: "57P03"}), true},
		{"eof", fmt.Errorf("read: %w", io.EOF), true},
		{"refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"net error", &net.OpError{Op: "dial", Err: errors.New("no route")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

var fastRetry = RetryPolicy{Attempts: 3, BaseWait: time.Millisecond}

func TestRetry_RecoversFromTransientErrors(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetry, discardLogger(), "connect", func(context.Context) error {
		calls++
		if calls < 3 {
			return io.EOF
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_StopsOnPermanentError(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetry, nil, "migrate", func(context.Context) error {
		calls++
		return errors.New("syntax error")
	})
	require.ErrorContains(t, err, "migrate: syntax error")
	assert.Equal(t, 1, calls)
}

func TestRetry_GivesUpAfterAttempts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetry, nil, "connect", func(context.Context) error {
		calls++
		return syscall.ECONNREFUSED
	})
	require.ErrorIs(t, err, syscall.ECONNREFUSED)
	assert.Equal(t, 3, calls)
}

func TestRetry_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{Attempts: 5, BaseWait: time.Hour}
	err := Retry(ctx, policy, nil, "connect", func(context.Context) error {
		cancel()
		return io.EOF
	})
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, err, io.EOF)
}

func TestRetryPolicy_BackoffBounds(t *testing.T) {
	p := DefaultRetryPolicy
	for attempt := 0; attempt < 3; attempt++ {
		base := p.BaseWait << attempt
		for i := 0; i < 20; i++ {
			d := p.backoff(attempt)
			assert.GreaterOrEqual(t, d, time.Duration(float64(base)*(1-p.Jitter)))
			assert.LessOrEqual(t, d, time.Duration(float64(base)*(1+p.Jitter)))
		}
	}
	assert.Equal(t, 4*time.Millisecond, fastRetry.backoff(2))
}

func migrationFS() fstest.MapFS {
	return fstest.MapFS{
		"000001_games.up.sql":   {Data: []byte("CREATE TABLE games (id uuid)")},
		"000001_games.down.sql": {Data: []byte("DROP TABLE games")},
		"000002_reviews.up.sql": {Data: []byte("CREATE TABLE reviews (id uuid)")},
	}
}

func expectMigration(mock pgxmock.PgxPoolIface, version string, applied bool, body string) {
	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs(migrationLockID).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(version).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(applied))
	if !applied {
		mock.ExpectExec(regexp.QuoteMeta(body)).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
		mock.ExpectExec("INSERT INTO schema_migrations").
			WithArgs(version).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()
}

func TestMigrate_AppliesPendingInOrder(t *testing.T) {
	mock := NewMockPool(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	expectMigration(mock, "000001_games", true, "")
	expectMigration(mock, "000002_reviews", false, "CREATE TABLE reviews (id uuid)")

	require.NoError(t, Migrate(context.Background(), mock, migrationFS(), discardLogger()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_FailedStatementRollsBack(t *testing.T) {
	mock := NewMockPool(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs(migrationLockID).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("000001_games").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE games")).
		WillReturnError(&pgconn.PgError{Code: "42601", Message: "syntax error"})
	mock.ExpectRollback()

	err := Migrate(context.Background(), mock, migrationFS(), discardLogger())
	require.ErrorContains(t, err, "execute migration 000001_games")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPoolCollector_Describe(t *testing.T) {
	c := NewPoolCollector(nil, "review")
	var _ prometheus.Collector = c

	ch := make(chan *prometheus.Desc, 16)
	c.Describe(ch)
	close(ch)

	var names []string
	for d := range ch {
		names = append(names, d.String())
	}
	require.Len(t, names, 8)
	assert.Contains(t, names[0], "db_pool_acquired_connections")
	assert.Contains(t, names[7], "db_pool_canceled_acquire_count_total")
}
