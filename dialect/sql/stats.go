package sql

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/syssam/concerto/dialect"
)

// QueryStats holds query execution statistics.
type QueryStats struct {
	TotalQueries  atomic.Int64
	TotalExecs    atomic.Int64
	TotalDuration atomic.Int64 // nanoseconds
	SlowQueries   atomic.Int64
	Errors        atomic.Int64
}

// Stats returns a snapshot of the current statistics.
func (s *QueryStats) Stats() StatsSnapshot {
	return StatsSnapshot{
		TotalQueries:  s.TotalQueries.Load(),
		TotalExecs:    s.TotalExecs.Load(),
		TotalDuration: time.Duration(s.TotalDuration.Load()),
		SlowQueries:   s.SlowQueries.Load(),
		Errors:        s.Errors.Load(),
	}
}

// StatsSnapshot is a point-in-time snapshot of query statistics.
type StatsSnapshot struct {
	TotalQueries  int64
	TotalExecs    int64
	TotalDuration time.Duration
	SlowQueries   int64
	Errors        int64
}

// AvgQueryDuration returns the average statement duration.
func (s StatsSnapshot) AvgQueryDuration() time.Duration {
	total := s.TotalQueries + s.TotalExecs
	if total == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(total)
}

// String returns a human-readable summary of the statistics.
func (s StatsSnapshot) String() string {
	return fmt.Sprintf(
		"queries=%d execs=%d duration=%s avg=%s slow=%d errors=%d",
		s.TotalQueries, s.TotalExecs, s.TotalDuration, s.AvgQueryDuration(),
		s.SlowQueries, s.Errors,
	)
}

// LogDriver wraps a dialect.Driver, logging every statement at debug level
// and slow or failed statements at warn level.
type LogDriver struct {
	dialect.Driver
	log           *zap.Logger
	stats         *QueryStats
	slowThreshold time.Duration
}

// LogOption configures a LogDriver.
type LogOption func(*LogDriver)

// WithSlowThreshold sets the duration above which statements are reported
// as slow. The default is 100ms.
func WithSlowThreshold(d time.Duration) LogOption {
	return func(l *LogDriver) {
		l.slowThreshold = d
	}
}

// NewLogDriver wraps drv. A nil logger discards output.
func NewLogDriver(drv dialect.Driver, log *zap.Logger, opts ...LogOption) *LogDriver {
	if log == nil {
		log = zap.NewNop()
	}
	l := &LogDriver{
		Driver:        drv,
		log:           log.With(zap.String("dialect", drv.Dialect())),
		stats:         &QueryStats{},
		slowThreshold: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// QueryStats returns the statistics collected so far.
func (d *LogDriver) QueryStats() *QueryStats { return d.stats }

// Query executes a query and records it.
func (d *LogDriver) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Query(ctx, query, args, v)
	d.record("query", query, args, start, err)
	return err
}

// Exec executes a statement and records it.
func (d *LogDriver) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Exec(ctx, query, args, v)
	d.record("exec", query, args, start, err)
	return err
}

// Tx starts a transaction whose statements are recorded too.
func (d *LogDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	d.log.Debug("begin transaction")
	return &LogTx{Tx: tx, driver: d}, nil
}

func (d *LogDriver) record(op, query string, args any, start time.Time, err error) {
	duration := time.Since(start)
	if op == "query" {
		d.stats.TotalQueries.Add(1)
	} else {
		d.stats.TotalExecs.Add(1)
	}
	d.stats.TotalDuration.Add(int64(duration))
	fields := []zap.Field{zap.String("op", op), zap.String("query", query), zap.Any("args", args), zap.Duration("duration", duration)}
	switch {
	case err != nil:
		d.stats.Errors.Add(1)
		d.log.Warn("statement failed", append(fields, zap.Error(err))...)
	case duration > d.slowThreshold:
		d.stats.SlowQueries.Add(1)
		d.log.Warn("slow statement", fields...)
	default:
		d.log.Debug("statement", fields...)
	}
}

// LogTx wraps a transaction of a LogDriver.
type LogTx struct {
	dialect.Tx
	driver *LogDriver
}

// Query executes a query within the transaction and records it.
func (tx *LogTx) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Query(ctx, query, args, v)
	tx.driver.record("query", query, args, start, err)
	return err
}

// Exec executes a statement within the transaction and records it.
func (tx *LogTx) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Exec(ctx, query, args, v)
	tx.driver.record("exec", query, args, start, err)
	return err
}

// Commit commits the transaction.
func (tx *LogTx) Commit() error {
	tx.driver.log.Debug("commit transaction")
	return tx.Tx.Commit()
}

// Rollback rolls back the transaction.
func (tx *LogTx) Rollback() error {
	tx.driver.log.Debug("rollback transaction")
	return tx.Tx.Rollback()
}

var (
	_ dialect.Driver = (*LogDriver)(nil)
	_ dialect.Tx     = (*LogTx)(nil)
)
