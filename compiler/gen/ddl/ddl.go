// Package ddl generates the SQL tables that store instances of the model.
//
// Every concrete declaration with an identifier gets a table keyed by that
// identifier. Primitive fields map to typed columns, enums and ranges to
// CHECK constraints, relationships to identifier columns with a foreign key
// when the target maps to exactly one table, and arrays and concepts to
// JSON columns. The @sql decorator of package sqlschema tunes the mapping.
package ddl

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ariga.io/atlas/sql/schema"
	"github.com/go-openapi/inflect"

	"github.com/syssam/concerto/compiler/gen"
	"github.com/syssam/concerto/dialect"
	"github.com/syssam/concerto/dialect/sqlschema"
	"github.com/syssam/concerto/introspect"
	"github.com/syssam/concerto/schema/field"
)

// FileName is the script written by the generator.
const FileName = "schema.sql"

// DefaultSize is the size of string columns without a size setting.
const DefaultSize = 255

// columnTypes holds the column types of one dialect.
type columnTypes struct {
	str, double, integer, long, boolean, datetime, json string
}

var typesOf = map[string]columnTypes{
	dialect.SQLite:   {"varchar", "real", "integer", "integer", "boolean", "datetime", "json"},
	dialect.MySQL:    {"varchar", "double", "int", "bigint", "bool", "datetime", "json"},
	dialect.Postgres: {"varchar", "double precision", "integer", "bigint", "boolean", "timestamp", "jsonb"},
}

const paramState = "ddl.state"

type state struct {
	types   columnTypes
	tables  map[string]*schema.Table
	order   []*schema.Table
	schemas map[string]*schema.Schema
	refs    map[*schema.Table][]*schema.Table
}

// Generator writes the DDL of one dialect.
type Generator struct {
	Dialect string
}

var _ gen.Generator = (*Generator)(nil)

// New returns a generator for the named dialect.
func New(name string) (*Generator, error) {
	if err := dialect.Check(name); err != nil {
		return nil, err
	}
	return &Generator{Dialect: name}, nil
}

// Name implements gen.Generator.
func (g *Generator) Name() string { return "sql-" + g.Dialect }

// FileExtension implements gen.Generator.
func (*Generator) FileExtension() string { return ".sql" }

// Visit implements introspect.Visitor. The model manager visits to the
// tables in creation order, declarations to their table and properties to
// their column.
func (g *Generator) Visit(node any, params introspect.Parameters) (any, error) {
	switch node := node.(type) {
	case *introspect.ModelManager:
		return g.visitModelManager(node, params)
	case *introspect.ModelFile:
		return nil, gen.Each(g, params, node.AllDeclarations())
	case *introspect.ClassDeclaration:
		s, err := stateOf(params)
		if err != nil {
			return nil, err
		}
		return g.visitClass(s, node, params)
	case *introspect.Field:
		s, err := stateOf(params)
		if err != nil {
			return nil, err
		}
		return s.column(node), nil
	case *introspect.Relationship:
		s, err := stateOf(params)
		if err != nil {
			return nil, err
		}
		return s.relationship(node), nil
	default:
		return nil, gen.Unrecognised(node)
	}
}

func (g *Generator) visitModelManager(mm *introspect.ModelManager, params introspect.Parameters) ([]*schema.Table, error) {
	types, ok := typesOf[g.Dialect]
	if !ok {
		return nil, gen.NewConfigError("dialect", g.Dialect, dialect.Check(g.Dialect).Error())
	}
	s := &state{
		types:   types,
		tables:  make(map[string]*schema.Table),
		schemas: make(map[string]*schema.Schema),
		refs:    make(map[*schema.Table][]*schema.Table),
	}
	params[paramState] = s
	defer delete(params, paramState)

	names := make(map[string]string)
	for _, cd := range mm.ClassDeclarations() {
		if !mapped(cd) {
			continue
		}
		t := s.table(cd)
		if prev, ok := names[t.Name]; ok {
			return nil, gen.NewGenerationError(g.Name(), FileName, "table "+t.Name+" is used by "+prev+" and "+cd.FullyQualifiedName(), nil)
		}
		names[t.Name] = cd.FullyQualifiedName()
	}
	if err := gen.Each(g, params, mm.ModelFiles()); err != nil {
		return nil, err
	}

	tables := s.sorted()
	changes := make([]schema.Change, len(tables))
	for i, t := range tables {
		changes[i] = &schema.AddTable{T: t}
	}
	stmts, err := sqlschema.Statements(context.Background(), g.Dialect, "concerto", changes)
	if err != nil {
		return nil, gen.NewGenerationError(g.Name(), FileName, "plan", err)
	}
	w, err := gen.FileWriterOf(params)
	if err != nil {
		return nil, err
	}
	if err := w.OpenFile(FileName); err != nil {
		return nil, err
	}
	if h := gen.HeaderOf(params); h != "" {
		if err := w.WriteLine(0, "-- "+h); err != nil {
			return nil, err
		}
	}
	for _, stmt := range stmts {
		if err := w.WriteLine(0, stmt+";"); err != nil {
			return nil, err
		}
	}
	return tables, w.CloseFile()
}

func (g *Generator) visitClass(s *state, cd *introspect.ClassDeclaration, params introspect.Parameters) (*schema.Table, error) {
	t, ok := s.tables[cd.FullyQualifiedName()]
	if !ok {
		return nil, nil
	}
	id := cd.IdentifierFieldName()
	for _, p := range cd.Properties() {
		if p.Name() == id || sqlschema.AnnotationOf(p).Skip {
			continue
		}
		v, err := p.Accept(g, params)
		if err != nil {
			return nil, err
		}
		c := v.(*schema.Column)
		t.AddColumns(c)
		s.constrain(t, p, c)
	}
	if expr := sqlschema.AnnotationOf(cd).Check; expr != "" {
		t.AddChecks(schema.NewCheck().SetName(t.Name + "_check").SetExpr(expr))
	}
	return t, nil
}

// mapped reports whether instances of cd are stored in a table of their own.
func mapped(cd *introspect.ClassDeclaration) bool {
	return !cd.IsAbstract() && !cd.IsEnum() && !cd.IsConcept() &&
		cd.IdentifierFieldName() != "" && !sqlschema.AnnotationOf(cd).Skip
}

// table creates the table of cd with its primary key.
func (s *state) table(cd *introspect.ClassDeclaration) *schema.Table {
	ann := sqlschema.AnnotationOf(cd)
	name := ann.Table
	if name == "" {
		name = inflect.Underscore(inflect.Pluralize(cd.Name()))
	}
	t := schema.NewTable(name)
	if ann.Schema != "" {
		sc, ok := s.schemas[ann.Schema]
		if !ok {
			sc = schema.New(ann.Schema)
			s.schemas[ann.Schema] = sc
		}
		sc.AddTables(t)
	}
	pk := s.column(cd.Property(cd.IdentifierFieldName()).(*introspect.Field))
	t.AddColumns(pk)
	t.SetPrimaryKey(schema.NewPrimaryKey(pk))
	s.tables[cd.FullyQualifiedName()] = t
	s.order = append(s.order, t)
	return t
}

func columnName(p introspect.Property) string {
	if name := sqlschema.AnnotationOf(p).Column; name != "" {
		return name
	}
	return inflect.Underscore(p.Name())
}

// column maps a field to a column.
func (s *state) column(f *introspect.Field) *schema.Column {
	ann := sqlschema.AnnotationOf(f)
	name := columnName(f)
	var c *schema.Column
	switch {
	case f.IsArray() || (!f.IsPrimitive() && !f.IsTypeEnum()):
		c = schema.NewColumn(name).SetType(&schema.JSONType{T: s.types.json})
	case f.IsTypeEnum():
		c = schema.NewStringColumn(name, s.types.str, schema.StringSize(enumSize(f)))
	default:
		c = s.primitive(name, f.PrimitiveType(), ann.Size)
	}
	if ann.ColumnType != "" {
		c.SetType(&schema.UnsupportedType{T: ann.ColumnType})
	}
	if ann.Collation != "" {
		c.AddAttrs(&schema.Collation{V: ann.Collation})
	}
	if ann.Charset != "" {
		c.AddAttrs(&schema.Charset{V: ann.Charset})
	}
	switch d := f.DefaultValue(); {
	case ann.Default != "":
		c.SetDefault(&schema.RawExpr{X: ann.Default})
	case d != nil && !f.IsArray():
		c.SetDefault(&schema.Literal{V: literal(d)})
	}
	return c.SetNull(f.IsOptional())
}

func (s *state) primitive(name string, t field.Type, size int64) *schema.Column {
	switch t {
	case field.TypeDouble:
		return schema.NewFloatColumn(name, s.types.double)
	case field.TypeInteger:
		return schema.NewIntColumn(name, s.types.integer)
	case field.TypeLong:
		return schema.NewIntColumn(name, s.types.long)
	case field.TypeBoolean:
		return schema.NewBoolColumn(name, s.types.boolean)
	case field.TypeDateTime:
		return schema.NewTimeColumn(name, s.types.datetime)
	default:
		if size == 0 {
			size = DefaultSize
		}
		return schema.NewStringColumn(name, s.types.str, schema.StringSize(int(size)))
	}
}

// relationship maps a relationship to a column holding the target
// identifier, or a JSON array of them.
func (s *state) relationship(r *introspect.Relationship) *schema.Column {
	name := columnName(r)
	if r.IsArray() {
		return schema.NewColumn(name).SetType(&schema.JSONType{T: s.types.json}).SetNull(r.IsOptional())
	}
	if ref := s.target(r); ref != nil {
		return schema.NewColumn(name).SetType(ref.PrimaryKey.Parts[0].C.Type.Type).SetNull(r.IsOptional())
	}
	return schema.NewStringColumn(name, s.types.str, schema.StringSize(DefaultSize)).SetNull(r.IsOptional())
}

// target returns the only table instances of the relationship type can
// live in, nil when there is none or more than one.
func (s *state) target(r *introspect.Relationship) *schema.Table {
	cd, err := r.Parent().ModelFile().ModelManager().Type(r.FullyQualifiedTypeName())
	if err != nil {
		return nil
	}
	var found *schema.Table
	for _, d := range cd.AssignableClassDeclarations() {
		if t, ok := s.tables[d.FullyQualifiedName()]; ok {
			if found != nil {
				return nil
			}
			found = t
		}
	}
	return found
}

// constrain adds the checks and foreign key implied by p.
func (s *state) constrain(t *schema.Table, p introspect.Property, c *schema.Column) {
	ann := sqlschema.AnnotationOf(p)
	var exprs []string
	switch p := p.(type) {
	case *introspect.Field:
		if p.IsArray() {
			break
		}
		if p.IsTypeEnum() {
			exprs = append(exprs, c.Name+" IN ("+strings.Join(enumValues(p), ", ")+")")
		}
		if rv, ok := p.Validator().(*field.RangeValidator); ok {
			if rv.Lower != nil {
				exprs = append(exprs, c.Name+" >= "+strconv.FormatFloat(*rv.Lower, 'g', -1, 64))
			}
			if rv.Upper != nil {
				exprs = append(exprs, c.Name+" <= "+strconv.FormatFloat(*rv.Upper, 'g', -1, 64))
			}
		}
	case *introspect.Relationship:
		ref := s.target(p)
		if p.IsArray() || ref == nil {
			break
		}
		fk := schema.NewForeignKey(t.Name+"_"+c.Name+"_fkey").
			AddColumns(c).
			SetRefTable(ref).
			AddRefColumns(ref.PrimaryKey.Parts[0].C)
		if ann.OnDelete != "" {
			fk.SetOnDelete(ann.OnDelete)
		}
		if ann.OnUpdate != "" {
			fk.SetOnUpdate(ann.OnUpdate)
		}
		t.AddForeignKeys(fk)
		if ref != t {
			s.refs[t] = append(s.refs[t], ref)
		}
	}
	if ann.Check != "" {
		exprs = append(exprs, ann.Check)
	}
	if len(exprs) > 0 {
		t.AddChecks(schema.NewCheck().SetName(t.Name + "_" + c.Name + "_check").SetExpr(strings.Join(exprs, " AND ")))
	}
}

// sorted returns the tables with referenced tables first. Cycles keep
// declaration order.
func (s *state) sorted() []*schema.Table {
	var (
		out   = make([]*schema.Table, 0, len(s.order))
		state = make(map[*schema.Table]int)
		visit func(*schema.Table)
	)
	visit = func(t *schema.Table) {
		if state[t] != 0 {
			return
		}
		state[t] = 1
		for _, ref := range s.refs[t] {
			visit(ref)
		}
		state[t] = 2
		out = append(out, t)
	}
	for _, t := range s.order {
		visit(t)
	}
	return out
}

func enumDeclaration(f *introspect.Field) *introspect.ClassDeclaration {
	return f.ModelFile().Type(f.Type())
}

func enumValues(f *introspect.Field) []string {
	var values []string
	for _, p := range enumDeclaration(f).OwnProperties() {
		values = append(values, "'"+p.Name()+"'")
	}
	return values
}

func enumSize(f *introspect.Field) int {
	size := 1
	for _, p := range enumDeclaration(f).OwnProperties() {
		size = max(size, len(p.Name()))
	}
	return size
}

func literal(v any) string {
	switch v := v.(type) {
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case time.Time:
		return quote(v.UTC().Format(time.RFC3339Nano))
	default:
		return quote(fmt.Sprint(v))
	}
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func stateOf(params introspect.Parameters) (*state, error) {
	s, ok := params[paramState].(*state)
	if !ok {
		return nil, gen.NewConfigError(paramState, nil, "declarations are generated from the model manager")
	}
	return s, nil
}
