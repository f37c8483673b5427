package introspect

import (
	"github.com/syssam/concerto"
	"github.com/syssam/concerto/schema/ast"
	"github.com/syssam/concerto/schema/field"
)

// Property is a member of a class declaration: a *Field, a *Relationship
// or an *EnumValue.
type Property interface {
	Decorated
	Acceptor
	Name() string
	// Type returns the type name as written, "" for enum values.
	Type() string
	// FullyQualifiedTypeName returns the resolved type name. Primitive
	// names are returned unchanged.
	FullyQualifiedTypeName() string
	Parent() *ClassDeclaration
	Namespace() string
	IsOptional() bool
	IsArray() bool
	IsPrimitive() bool
	IsTypeEnum() bool
	Location() concerto.Location
	AST() *ast.Property

	validate(scope Scope) error
}

var (
	_ Property = (*Field)(nil)
	_ Property = (*Relationship)(nil)
	_ Property = (*EnumValue)(nil)
)

func newProperty(parent *ClassDeclaration, node *ast.Property, factories []DecoratorFactory) (Property, error) {
	var (
		p     Property
		owner *property
	)
	switch node.Kind {
	case ast.PropertyField:
		f := &Field{property: property{parent: parent, node: node}}
		f.init()
		p, owner = f, &f.property
	case ast.PropertyRelationship:
		rel := &Relationship{property: property{parent: parent, node: node}}
		p, owner = rel, &rel.property
	case ast.PropertyEnumValue:
		ev := &EnumValue{property: property{parent: parent, node: node}}
		p, owner = ev, &ev.property
	default:
		return nil, concerto.IllegalModelf(parent.ModelFile().Name(), node.Location,
			"Unrecognised model element %s", node.Kind)
	}
	if err := owner.processDecorators(p, factories, node.Decorators); err != nil {
		return nil, err
	}
	return p, nil
}

// property holds what every member kind shares.
type property struct {
	decorated
	parent *ClassDeclaration
	node   *ast.Property
}

// Name returns the property name.
func (p *property) Name() string { return p.node.Name }

// Type returns the type name as written.
func (p *property) Type() string { return p.node.Type }

// Parent returns the declaring class.
func (p *property) Parent() *ClassDeclaration { return p.parent }

// ModelFile returns the model file of the declaring class.
func (p *property) ModelFile() *ModelFile { return p.parent.ModelFile() }

// Namespace returns the namespace of the declaring class.
func (p *property) Namespace() string { return p.parent.Namespace() }

// FullyQualifiedName returns the declaring class name joined with the
// property name.
func (p *property) FullyQualifiedName() string {
	return p.parent.FullyQualifiedName() + "." + p.node.Name
}

// IsOptional reports whether the property may be omitted.
func (p *property) IsOptional() bool { return p.node.Optional }

// IsArray reports whether the property holds a list.
func (p *property) IsArray() bool { return p.node.Array }

// IsPrimitive reports whether the property type is a primitive.
func (p *property) IsPrimitive() bool { return IsPrimitiveType(p.node.Type) }

// FullyQualifiedTypeName returns the resolved type name.
func (p *property) FullyQualifiedTypeName() string {
	return p.ModelFile().FullyQualifiedTypeName(p.node.Type)
}

// IsTypeEnum reports whether the property type is an enum declaration.
func (p *property) IsTypeEnum() bool {
	if p.IsPrimitive() || p.node.Type == "" {
		return false
	}
	cd := p.ModelFile().Type(p.node.Type)
	return cd != nil && cd.IsEnum()
}

// Location returns the source range of the property.
func (p *property) Location() concerto.Location { return p.node.Location }

// AST returns the syntax node of the property.
func (p *property) AST() *ast.Property { return p.node }

// context names the property in resolution errors.
func (p *property) context() string {
	return "property " + p.FullyQualifiedName()
}

// Field is a property holding a primitive, concept or enum value.
type Field struct {
	property
	primitive  field.Type
	def        any
	validator  field.Validator
	setupError error
}

// init converts the default value and builds the validator of a primitive
// field. Failures are reported by validate.
func (f *Field) init() {
	t, ok := field.ParseType(f.node.Type)
	if !ok {
		return
	}
	f.primitive = t
	var err error
	if f.def, err = field.Default(t, f.node.Default); err != nil {
		f.setupError = err
		return
	}
	if f.validator, err = field.NewValidator(t, f.node.Regex, f.node.Range); err != nil {
		f.setupError = err
	}
}

// Accept calls v.Visit(f, params).
func (f *Field) Accept(v Visitor, params Parameters) (any, error) {
	return v.Visit(f, params)
}

// PrimitiveType returns the primitive type of the field, or
// field.TypeInvalid for concept and enum fields.
func (f *Field) PrimitiveType() field.Type { return f.primitive }

// Default returns the default value as written, or nil.
func (f *Field) Default() *ast.Literal { return f.node.Default }

// DefaultValue returns the default converted to the Go representation of
// the field type. Enum defaults are returned as the value name.
func (f *Field) DefaultValue() any {
	if f.def != nil {
		return f.def
	}
	if d := f.node.Default; d != nil && d.Kind == ast.LiteralString {
		return d.String
	}
	return nil
}

// Validator returns the regex or range validator of the field, or nil.
func (f *Field) Validator() field.Validator { return f.validator }

func (f *Field) validate(scope Scope) error {
	file := f.ModelFile().Name()
	if f.setupError != nil {
		return &concerto.IllegalModelError{
			File:     file,
			Location: f.Location(),
			Message:  "Invalid field " + f.FullyQualifiedName(),
			Cause:    f.setupError,
		}
	}
	if !f.IsPrimitive() {
		if _, err := scope.ResolveType(f.context(), f.node.Type, f.Location()); err != nil {
			return err
		}
		if f.node.Regex != "" || f.node.Range != nil {
			return concerto.IllegalModelf(file, f.Location(),
				"Validators are only supported on primitive fields, but %s is of type %s", f.FullyQualifiedName(), f.node.Type)
		}
		if d := f.node.Default; d != nil {
			target := scope.Type(f.node.Type)
			if target == nil || !target.IsEnum() {
				return concerto.IllegalModelf(file, f.Location(),
					"Default values are only supported on primitive and enum fields, but %s is of type %s", f.FullyQualifiedName(), f.node.Type)
			}
			if d.Kind != ast.LiteralString || target.OwnProperty(d.String) == nil {
				return concerto.IllegalModelf(file, f.Location(),
					"Default value %s is not a value of enum %s", d.Raw, target.FullyQualifiedName())
			}
		}
	}
	return f.validateDecorators(scope, f.Location())
}

// Relationship is a property pointing at an identified resource.
type Relationship struct {
	property
}

// Accept calls v.Visit(r, params).
func (r *Relationship) Accept(v Visitor, params Parameters) (any, error) {
	return v.Visit(r, params)
}

func (r *Relationship) validate(scope Scope) error {
	file := r.ModelFile().Name()
	if r.IsPrimitive() {
		return concerto.IllegalModelf(file, r.Location(),
			"Relationship %s cannot be to the primitive type %s", r.Name(), r.node.Type)
	}
	if _, err := scope.ResolveType(r.context(), r.node.Type, r.Location()); err != nil {
		return err
	}
	target := scope.Type(r.node.Type)
	if target == nil {
		return concerto.IllegalModelf(file, r.Location(), "Undeclared type %s in %s.", r.node.Type, r.context())
	}
	if r.parent.IsSystemType() {
		if !target.IsSystemRelationshipTarget() {
			return concerto.IllegalModelf(file, r.Location(),
				"Relationship %s must be to an asset, participant or transaction, but is to %s", r.Name(), target.FullyQualifiedName())
		}
	} else if !target.IsRelationshipTarget() {
		return concerto.IllegalModelf(file, r.Location(),
			"Relationship %s must be to an asset or participant, but is to %s", r.Name(), target.FullyQualifiedName())
	}
	return r.validateDecorators(scope, r.Location())
}

// EnumValue is one member of an enum declaration.
type EnumValue struct {
	property
}

// Accept calls v.Visit(e, params).
func (e *EnumValue) Accept(v Visitor, params Parameters) (any, error) {
	return v.Visit(e, params)
}

func (e *EnumValue) validate(scope Scope) error {
	if !e.parent.IsEnum() {
		return concerto.IllegalModelf(e.ModelFile().Name(), e.Location(),
			"Enum value %s declared outside an enum", e.Name())
	}
	return e.validateDecorators(scope, e.Location())
}
