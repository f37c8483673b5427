package sqlschema

import (
	"context"

	"ariga.io/atlas/sql/migrate"
	"ariga.io/atlas/sql/mysql"
	"ariga.io/atlas/sql/postgres"
	"ariga.io/atlas/sql/schema"
	"ariga.io/atlas/sql/sqlite"
	"github.com/cockroachdb/errors"

	"github.com/syssam/concerto/dialect"
)

// Planner returns the atlas planner of a dialect.
func Planner(name string) (migrate.PlanApplier, error) {
	switch name {
	case dialect.SQLite:
		return sqlite.DefaultPlan, nil
	case dialect.MySQL:
		return mysql.DefaultPlan, nil
	case dialect.Postgres:
		return postgres.DefaultPlan, nil
	}
	return nil, dialect.Check(name)
}

// Statements plans changes for a dialect and returns the DDL statements
// without a trailing semicolon.
func Statements(ctx context.Context, name, planName string, changes []schema.Change) ([]string, error) {
	p, err := Planner(name)
	if err != nil {
		return nil, err
	}
	plan, err := p.PlanChanges(ctx, planName, changes)
	if err != nil {
		return nil, errors.Wrapf(err, "plan %s schema", name)
	}
	stmts := make([]string, len(plan.Changes))
	for i, c := range plan.Changes {
		stmts[i] = c.Cmd
	}
	return stmts, nil
}
