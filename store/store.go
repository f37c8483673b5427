// Package store keeps archived business network definitions in a SQL
// database.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/syssam/concerto/dialect"
	"github.com/syssam/concerto/dialect/sql"
	"github.com/syssam/concerto/network"
)

var (
	// ErrNotFound is returned when no archive has the requested identifier.
	ErrNotFound = errors.New("concerto: archive not found")
	// ErrExists is returned when saving an identifier that is already stored.
	ErrExists = errors.New("concerto: archive already exists")
)

// Record describes a stored archive.
type Record struct {
	ID         uuid.UUID
	Identifier string
	Name       string
	Version    string
	Size       int
	CreatedAt  time.Time
}

// Store reads and writes network archives.
type Store struct {
	drv   dialect.Driver
	log   *zap.Logger
	now   func() time.Time
	newID func() uuid.UUID
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Open also logs statements through it.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock sets the clock used to stamp saved archives.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns a store on drv. The archive table must exist; see Migrate.
func New(drv dialect.Driver, opts ...Option) *Store {
	s := &Store{
		drv:   drv,
		log:   zap.NewNop(),
		now:   time.Now,
		newID: uuid.New,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open connects to a database, wraps the connection with statement
// logging and creates the archive table if needed.
func Open(ctx context.Context, driverName, dsn string, opts ...Option) (*Store, error) {
	drv, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	s := New(drv, opts...)
	s.drv = sql.NewLogDriver(drv, s.log)
	if err := s.Migrate(ctx); err != nil {
		return nil, errors.CombineErrors(err, drv.Close())
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.drv.Close() }

// Migrate creates the archive table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	stmts, err := CreateStatements(ctx, s.drv.Dialect())
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if err := s.drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			return errors.Wrap(err, "create archive table")
		}
	}
	s.log.Debug("archive table ready", zap.String("table", Table))
	return nil
}

// Save stores the msgpack archive of d under its identifier.
func (s *Store) Save(ctx context.Context, d *network.Definition) (*Record, error) {
	data, err := d.MarshalArchive()
	if err != nil {
		return nil, err
	}
	rec := &Record{
		ID:         s.newID(),
		Identifier: d.Identifier(),
		Name:       d.Name(),
		Version:    d.Version(),
		Size:       len(data),
		CreatedAt:  time.UnixMilli(s.now().UnixMilli()).UTC(),
	}
	err = s.withTx(ctx, func(tx dialect.Tx) error {
		exists, err := s.exists(ctx, tx, rec.Identifier)
		if err != nil {
			return err
		}
		if exists {
			return errors.Wrapf(ErrExists, "%s", rec.Identifier)
		}
		query := "INSERT INTO " + Table + " (identifier, id, name, version, archive, created_at) VALUES (" + s.bindings(6) + ")"
		return tx.Exec(ctx, query, []any{rec.Identifier, rec.ID.String(), rec.Name, rec.Version, data, rec.CreatedAt.UnixMilli()}, nil)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("archive saved", zap.String("identifier", rec.Identifier), zap.Int("bytes", rec.Size))
	return rec, nil
}

// Load restores the definition stored under identifier (name@version).
func (s *Store) Load(ctx context.Context, identifier string) (*network.Definition, error) {
	var data []byte
	err := s.queryOne(ctx, "SELECT archive FROM "+Table+" WHERE identifier = "+s.bind(1), []any{identifier}, identifier, &data)
	if err != nil {
		return nil, err
	}
	return network.UnmarshalArchive(data)
}

// Get returns the record of the archive stored under identifier.
func (s *Store) Get(ctx context.Context, identifier string) (*Record, error) {
	var (
		rec Record
		id  string
		ms  int64
	)
	err := s.queryOne(ctx, "SELECT identifier, id, name, version, "+s.length("archive")+", created_at FROM "+Table+" WHERE identifier = "+s.bind(1),
		[]any{identifier}, identifier, &rec.Identifier, &id, &rec.Name, &rec.Version, &rec.Size, &ms)
	if err != nil {
		return nil, err
	}
	return fill(&rec, id, ms)
}

// List returns the records of every stored archive ordered by identifier.
func (s *Store) List(ctx context.Context) ([]*Record, error) {
	rows := &sql.Rows{}
	query := "SELECT identifier, id, name, version, " + s.length("archive") + ", created_at FROM " + Table + " ORDER BY identifier"
	if err := s.drv.Query(ctx, query, []any{}, rows); err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]*Record, error) {
	var out []*Record
	for rows.Next() {
		var (
			rec Record
			id  string
			ms  int64
		)
		if err := rows.Scan(&rec.Identifier, &id, &rec.Name, &rec.Version, &rec.Size, &ms); err != nil {
			return nil, errors.Wrap(err, "scan archive record")
		}
		if _, err := fill(&rec, id, ms); err != nil {
			return nil, err
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// Delete removes the archive stored under identifier.
func (s *Store) Delete(ctx context.Context, identifier string) error {
	var res sql.Result
	if err := s.drv.Exec(ctx, "DELETE FROM "+Table+" WHERE identifier = "+s.bind(1), []any{identifier}, &res); err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "delete archive")
	}
	if n == 0 {
		return errors.Wrapf(ErrNotFound, "%s", identifier)
	}
	s.log.Info("archive deleted", zap.String("identifier", identifier))
	return nil
}

func (s *Store) exists(ctx context.Context, tx dialect.Tx, identifier string) (bool, error) {
	rows := &sql.Rows{}
	if err := tx.Query(ctx, "SELECT COUNT(*) FROM "+Table+" WHERE identifier = "+s.bind(1), []any{identifier}, rows); err != nil {
		return false, err
	}
	defer rows.Close()
	var n int
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return false, errors.Wrap(err, "scan archive count")
		}
	}
	return n > 0, rows.Err()
}

func (s *Store) queryOne(ctx context.Context, query string, args []any, identifier string, dest ...any) error {
	rows := &sql.Rows{}
	if err := s.drv.Query(ctx, query, args, rows); err != nil {
		return err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return errors.Wrapf(ErrNotFound, "%s", identifier)
	}
	if err := rows.Scan(dest...); err != nil {
		return errors.Wrapf(err, "scan archive %s", identifier)
	}
	return nil
}

func (s *Store) withTx(ctx context.Context, fn func(dialect.Tx) error) error {
	tx, err := s.drv.Tx(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		return errors.CombineErrors(err, tx.Rollback())
	}
	return tx.Commit()
}

func (s *Store) bind(i int) string {
	return dialect.Placeholder(s.drv.Dialect(), i)
}

func (s *Store) bindings(n int) string {
	b := make([]string, n)
	for i := range b {
		b[i] = s.bind(i + 1)
	}
	return strings.Join(b, ", ")
}

// length returns the byte length expression of a blob column.
func (s *Store) length(column string) string {
	if s.drv.Dialect() == dialect.Postgres {
		return fmt.Sprintf("octet_length(%s)", column)
	}
	return fmt.Sprintf("length(%s)", column)
}

func fill(rec *Record, id string, ms int64) (*Record, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return nil, errors.Wrapf(err, "archive %s has an invalid id", rec.Identifier)
	}
	rec.ID = u
	rec.CreatedAt = time.UnixMilli(ms).UTC()
	return rec, nil
}
