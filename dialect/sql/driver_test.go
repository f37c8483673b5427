package sql

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/syssam/concerto/dialect"
)

func newMock(t *testing.T) (*Driver, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return OpenDB(dialect.SQLite, db), mock
}

func TestDriver_ExecQuery(t *testing.T) {
	drv, mock := newMock(t)
	ctx := context.Background()
	assert.Equal(t, dialect.SQLite, drv.Dialect())

	mock.ExpectExec("INSERT INTO archives").WithArgs("a").WillReturnResult(sqlmock.NewResult(1, 1))
	var res sql.Result
	require.NoError(t, drv.Exec(ctx, "INSERT INTO archives VALUES (?)", []any{"a"}, &res))
	n, err := res.RowsAffected()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	mock.ExpectExec("DELETE FROM archives").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, drv.Exec(ctx, "DELETE FROM archives", []any{}, nil))

	mock.ExpectQuery("SELECT name FROM archives").WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("a").AddRow("b"))
	rows := &Rows{}
	require.NoError(t, drv.Query(ctx, "SELECT name FROM archives", []any{}, rows))
	var names []string
	for rows.Next() {
		var s string
		require.NoError(t, rows.Scan(&s))
		names = append(names, s)
	}
	require.NoError(t, rows.Close())
	assert.Equal(t, []string{"a", "b"}, names)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDriver_InvalidArguments(t *testing.T) {
	drv, _ := newMock(t)
	ctx := context.Background()
	assert.ErrorContains(t, drv.Exec(ctx, "SELECT 1", "x", nil), "expect []any for args")
	assert.ErrorContains(t, drv.Exec(ctx, "SELECT 1", []any{}, new(int)), "expect *sql.Result")
	assert.ErrorContains(t, drv.Query(ctx, "SELECT 1", []any{}, new(int)), "expect *sql.Rows")
	assert.ErrorContains(t, drv.Query(ctx, "SELECT 1", nil, &Rows{}), "expect []any for args")
}

func TestDriver_Tx(t *testing.T) {
	drv, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE archives").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	tx, err := drv.Tx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Exec(ctx, "UPDATE archives SET name = ?", []any{"b"}, nil))
	require.NoError(t, tx.Commit())

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE archives").WillReturnError(errors.New("locked"))
	mock.ExpectRollback()
	tx, err = drv.Tx(ctx)
	require.NoError(t, err)
	assert.ErrorContains(t, tx.Exec(ctx, "UPDATE archives SET name = ?", []any{"b"}, nil), "locked")
	require.NoError(t, tx.Rollback())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpen(t *testing.T) {
	_, err := Open("oracle", "")
	assert.ErrorIs(t, err, dialect.ErrUnsupportedDialect)
}

func TestLogDriver(t *testing.T) {
	drv, mock := newMock(t)
	core, logs := observer.New(zapcore.DebugLevel)
	ld := NewLogDriver(drv, zap.New(core))
	ctx := context.Background()

	mock.ExpectExec("DELETE FROM archives").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, ld.Exec(ctx, "DELETE FROM archives", []any{}, nil))
	mock.ExpectQuery("SELECT 1").WillReturnError(errors.New("boom"))
	require.Error(t, ld.Query(ctx, "SELECT 1", []any{}, &Rows{}))

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM archives").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	tx, err := ld.Tx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Exec(ctx, "DELETE FROM archives", []any{}, nil))
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())

	s := ld.QueryStats().Stats()
	assert.EqualValues(t, 1, s.TotalQueries)
	assert.EqualValues(t, 2, s.TotalExecs)
	assert.EqualValues(t, 1, s.Errors)
	assert.Contains(t, s.String(), "queries=1 execs=2")

	failed := logs.FilterMessage("statement failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "SELECT 1", failed[0].ContextMap()["query"])
	assert.Equal(t, dialect.SQLite, failed[0].ContextMap()["dialect"])
	assert.Equal(t, 1, logs.FilterMessage("commit transaction").Len())
}

func TestLogDriver_Slow(t *testing.T) {
	drv, mock := newMock(t)
	core, logs := observer.New(zapcore.WarnLevel)
	ld := NewLogDriver(drv, zap.New(core), WithSlowThreshold(time.Nanosecond))

	mock.ExpectExec("DELETE FROM archives").WillDelayFor(time.Millisecond).WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, ld.Exec(context.Background(), "DELETE FROM archives", []any{}, nil))
	assert.EqualValues(t, 1, ld.QueryStats().Stats().SlowQueries)
	assert.Equal(t, 1, logs.FilterMessage("slow statement").Len())
	assert.Equal(t, time.Duration(0), StatsSnapshot{}.AvgQueryDuration())
}
