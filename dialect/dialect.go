// Package dialect names the SQL databases the archive store runs on and
// defines the driver contract it is written against.
//
// Each dialect is identified by a constant string that doubles as the
// database/sql driver name:
//
//	dialect.Postgres = "postgres"
//	dialect.MySQL    = "mysql"
//	dialect.SQLite   = "sqlite"
package dialect

import (
	"context"
	"strconv"

	"github.com/cockroachdb/errors"
)

// Dialect names.
const (
	MySQL    = "mysql"
	SQLite   = "sqlite"
	Postgres = "postgres"
)

// ErrUnsupportedDialect is returned for dialect names outside this package.
var ErrUnsupportedDialect = errors.New("concerto: unsupported dialect")

// Dialects returns the supported dialect names.
func Dialects() []string {
	return []string{SQLite, MySQL, Postgres}
}

// Check returns ErrUnsupportedDialect unless name is a supported dialect.
func Check(name string) error {
	switch name {
	case MySQL, SQLite, Postgres:
		return nil
	}
	return errors.Wrapf(ErrUnsupportedDialect, "%q", name)
}

// Placeholder returns the bind parameter for the i-th argument, counting
// from 1.
func Placeholder(name string, i int) string {
	if name == Postgres {
		return "$" + strconv.Itoa(i)
	}
	return "?"
}

// ExecQuerier wraps the two database operations. Exec takes *sql.Result or
// nil as v; Query takes *sql.Rows. args is a []any.
type ExecQuerier interface {
	Exec(ctx context.Context, query string, args, v any) error
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface that wraps the database operations of a
// connection pool.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	Tx(ctx context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx wraps the Exec and Query operations in a transaction.
type Tx interface {
	ExecQuerier
	Commit() error
	Rollback() error
}
