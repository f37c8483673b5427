// Package sqlschema maps model declarations to SQL tables and plans their
// DDL with atlas.
//
// The mapping is tuned with the @sql decorator, whose arguments are
// key/value pairs. Register the decorator factory on the model manager
// before adding model files:
//
//	mm.AddDecoratorFactory(sqlschema.Factory)
//
// Class declarations accept table, schema, check and skip:
//
//	@sql("table", "fleet", "schema", "acme")
//	asset Vehicle identified by vin {
//	  @sql("size", 17)
//	  o String vin
//	  @sql("column", "owner_email", "onDelete", "CASCADE")
//	  --> Person owner
//	  @sql("skip", true)
//	  o String notes optional
//	}
//
// Fields also accept column, size, type, collation, charset, check and
// default. Relationships accept column, onDelete and onUpdate.
package sqlschema

import (
	"math"

	"ariga.io/atlas/sql/schema"

	"github.com/syssam/concerto"
	"github.com/syssam/concerto/introspect"
	"github.com/syssam/concerto/schema/ast"
)

// DecoratorName is the name of the SQL decorator.
const DecoratorName = "sql"

// Referential actions accepted by onDelete and onUpdate.
const (
	Cascade    = schema.Cascade
	SetNull    = schema.SetNull
	Restrict   = schema.Restrict
	SetDefault = schema.SetDefault
	NoAction   = schema.NoAction
)

// Annotation holds the SQL settings of a declaration or property.
type Annotation struct {
	// Table overrides the table name of a declaration.
	Table string
	// Schema places the table in a named database schema.
	Schema string
	// Skip leaves the declaration or property out of the DDL.
	Skip bool
	// Column overrides the column name of a property.
	Column string
	// Size overrides the size of a string column.
	Size int64
	// ColumnType replaces the column type.
	ColumnType string
	// Collation sets the collation of a string column.
	Collation string
	// Charset sets the character set of a string column.
	Charset string
	// Check adds a CHECK constraint.
	Check string
	// Default is the SQL default expression of a column.
	Default string
	// OnDelete sets the ON DELETE action of a relationship.
	OnDelete schema.ReferenceOption
	// OnUpdate sets the ON UPDATE action of a relationship.
	OnUpdate schema.ReferenceOption
}

// Decorator is a parsed @sql decorator.
type Decorator struct {
	*introspect.BaseDecorator
	Annotation Annotation
}

var _ introspect.Decorator = (*Decorator)(nil)

// Factory builds Decorators for @sql and declines every other decorator.
var Factory = introspect.DecoratorFactoryFunc(newDecorator)

type kind uint8

const (
	onClass kind = 1 << iota
	onField
	onRelationship
)

type setter struct {
	on  kind
	set func(a *Annotation, v any) bool
}

func str(assign func(*Annotation, string)) func(*Annotation, any) bool {
	return func(a *Annotation, v any) bool {
		s, ok := v.(string)
		if ok && s != "" {
			assign(a, s)
		}
		return ok && s != ""
	}
}

func action(assign func(*Annotation, schema.ReferenceOption)) func(*Annotation, any) bool {
	return func(a *Annotation, v any) bool {
		s, _ := v.(string)
		switch opt := schema.ReferenceOption(s); opt {
		case Cascade, SetNull, Restrict, SetDefault, NoAction:
			assign(a, opt)
			return true
		}
		return false
	}
}

var setters = map[string]setter{
	"table":  {onClass, str(func(a *Annotation, s string) { a.Table = s })},
	"schema": {onClass, str(func(a *Annotation, s string) { a.Schema = s })},
	"skip": {onClass | onField | onRelationship, func(a *Annotation, v any) bool {
		b, ok := v.(bool)
		a.Skip = b
		return ok
	}},
	"column": {onField | onRelationship, str(func(a *Annotation, s string) { a.Column = s })},
	"size": {onField, func(a *Annotation, v any) bool {
		f, ok := v.(float64)
		if !ok || f < 1 || f != math.Trunc(f) {
			return false
		}
		a.Size = int64(f)
		return true
	}},
	"type":      {onField, str(func(a *Annotation, s string) { a.ColumnType = s })},
	"collation": {onField, str(func(a *Annotation, s string) { a.Collation = s })},
	"charset":   {onField, str(func(a *Annotation, s string) { a.Charset = s })},
	"check":     {onClass | onField, str(func(a *Annotation, s string) { a.Check = s })},
	"default":   {onField, str(func(a *Annotation, s string) { a.Default = s })},
	"onDelete":  {onRelationship, action(func(a *Annotation, o schema.ReferenceOption) { a.OnDelete = o })},
	"onUpdate":  {onRelationship, action(func(a *Annotation, o schema.ReferenceOption) { a.OnUpdate = o })},
}

func newDecorator(parent introspect.Decorated, node *ast.Decorator) (introspect.Decorator, error) {
	if node == nil || node.Name != DecoratorName {
		return nil, nil
	}
	base, err := introspect.NewDecorator(parent, node)
	if err != nil {
		return nil, err
	}
	var file string
	if mf := parent.ModelFile(); mf != nil {
		file = mf.Name()
	}
	var on kind
	switch parent.(type) {
	case *introspect.ClassDeclaration:
		on = onClass
	case *introspect.Field:
		on = onField
	case *introspect.Relationship:
		on = onRelationship
	default:
		return nil, concerto.IllegalModelf(file, node.Location, "@sql is not allowed on %s", parent.FullyQualifiedName())
	}
	args := base.Arguments()
	if len(args) == 0 || len(args)%2 != 0 {
		return nil, concerto.IllegalModelf(file, node.Location, "@sql on %s takes key/value pairs", parent.FullyQualifiedName())
	}
	d := &Decorator{BaseDecorator: base}
	for i := 0; i < len(args); i += 2 {
		key, _ := args[i].(string)
		s, ok := setters[key]
		if !ok || s.on&on == 0 {
			return nil, concerto.IllegalModelf(file, node.Location, "@sql key %v is not allowed on %s", args[i], parent.FullyQualifiedName())
		}
		if !s.set(&d.Annotation, args[i+1]) {
			return nil, concerto.IllegalModelf(file, node.Location, "@sql key %s has invalid value %v", key, args[i+1])
		}
	}
	return d, nil
}

// AnnotationOf returns the SQL settings of a declaration or property. The
// zero Annotation is returned when there is no @sql decorator.
func AnnotationOf(d introspect.Decorated) Annotation {
	if dec, ok := d.Decorator(DecoratorName).(*Decorator); ok {
		return dec.Annotation
	}
	return Annotation{}
}
