package store

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/syssam/concerto/dialect/sql"
)

// GetMany returns the records of several archives with one query. The
// result has the same length and order as identifiers; errs[i] wraps
// ErrNotFound when identifiers[i] is not stored. A non-nil error means the
// query itself failed.
func (s *Store) GetMany(ctx context.Context, identifiers []string) ([]*Record, []error, error) {
	if len(identifiers) == 0 {
		return nil, nil, nil
	}
	args := make([]any, len(identifiers))
	for i, id := range identifiers {
		args[i] = id
	}
	rows := &sql.Rows{}
	query := "SELECT identifier, id, name, version, " + s.length("archive") + ", created_at FROM " + Table +
		" WHERE identifier IN (" + s.bindings(len(identifiers)) + ")"
	if err := s.drv.Query(ctx, query, args, rows); err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	recs, err := scanRecords(rows)
	if err != nil {
		return nil, nil, err
	}
	out, errs := orderByKeys(identifiers, recs, func(r *Record) string { return r.Identifier })
	return out, errs, nil
}

// orderByKeys reorders values to match keys. Missing values are left nil
// with an ErrNotFound error at the same index.
func orderByKeys[K comparable, V any](keys []K, values []V, keyFn func(V) K) ([]V, []error) {
	lookup := make(map[K]V, len(values))
	for _, v := range values {
		lookup[keyFn(v)] = v
	}
	result := make([]V, len(keys))
	errs := make([]error, len(keys))
	for i, key := range keys {
		if v, ok := lookup[key]; ok {
			result[i] = v
		} else {
			errs[i] = errors.Wrapf(ErrNotFound, "%v", key)
		}
	}
	return result, errs
}
