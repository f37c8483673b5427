package store

import (
	"context"

	"ariga.io/atlas/sql/schema"

	"github.com/syssam/concerto/dialect"
	"github.com/syssam/concerto/dialect/sqlschema"
)

// Table is the name of the archive table.
const Table = "network_archives"

// columnTypes holds the column types of one dialect.
type columnTypes struct {
	blob string
}

var typesOf = map[string]columnTypes{
	dialect.SQLite:   {blob: "blob"},
	dialect.MySQL:    {blob: "longblob"},
	dialect.Postgres: {blob: "bytea"},
}

// ArchiveTable returns the definition of the archive table for a dialect.
func ArchiveTable(name string) (*schema.Table, error) {
	types, ok := typesOf[name]
	if !ok {
		return nil, dialect.Check(name)
	}
	identifier := schema.NewStringColumn("identifier", "varchar", schema.StringSize(255))
	t := schema.NewTable(Table).
		AddColumns(
			identifier,
			schema.NewStringColumn("id", "varchar", schema.StringSize(36)),
			schema.NewStringColumn("name", "varchar", schema.StringSize(214)),
			schema.NewStringColumn("version", "varchar", schema.StringSize(64)),
			schema.NewBinaryColumn("archive", types.blob),
			schema.NewIntColumn("created_at", "bigint"),
		)
	t.SetPrimaryKey(schema.NewPrimaryKey(identifier))
	return t, nil
}

// CreateStatements returns the DDL that creates the archive table when it
// does not exist yet.
func CreateStatements(ctx context.Context, name string) ([]string, error) {
	t, err := ArchiveTable(name)
	if err != nil {
		return nil, err
	}
	return sqlschema.Statements(ctx, name, "create_"+Table, []schema.Change{
		&schema.AddTable{T: t, Extra: []schema.Clause{&schema.IfNotExists{}}},
	})
}
