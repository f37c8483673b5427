package introspect

import (
	"fmt"

	"github.com/syssam/concerto"
	"github.com/syssam/concerto/schema/ast"
)

// ReturnsDecoratorFactory builds a *ReturnsDecorator for @returns nodes and
// declines every other decorator.
type ReturnsDecoratorFactory struct{}

// NewDecorator implements DecoratorFactory.
func (ReturnsDecoratorFactory) NewDecorator(parent Decorated, node *ast.Decorator) (Decorator, error) {
	if node.Name != "returns" {
		return nil, nil
	}
	return NewReturnsDecorator(parent, node)
}

// ReturnsDecorator declares the type a transaction returns, as in
// @returns(Car) or @returns(String[]).
type ReturnsDecorator struct {
	*BaseDecorator
	typ   string
	array bool
}

// NewReturnsDecorator checks that node carries exactly one identifier
// argument.
func NewReturnsDecorator(parent Decorated, node *ast.Decorator) (*ReturnsDecorator, error) {
	base, err := NewDecorator(parent, node)
	if err != nil {
		return nil, err
	}
	file := base.fileName()
	if n := len(node.Arguments); n != 1 {
		return nil, concerto.NewDecoratorError(node.Name, "1 argument",
			fmt.Sprintf("%d arguments were specified", n), file, node.Location)
	}
	arg := node.Arguments[0]
	if arg.Kind != ast.LiteralIdentifier {
		return nil, concerto.NewDecoratorError(node.Name, "an identifier argument",
			fmt.Sprintf("an argument of type %s was specified", arg.Kind), file, node.Location)
	}
	return &ReturnsDecorator{BaseDecorator: base, typ: arg.Name, array: arg.Array}, nil
}

// Accept calls v.Visit(d, params).
func (d *ReturnsDecorator) Accept(v Visitor, params Parameters) (any, error) {
	return v.Visit(d, params)
}

// Validate checks that the returned type is declared.
func (d *ReturnsDecorator) Validate(scope Scope) error {
	if d.IsPrimitive() {
		return nil
	}
	if _, err := scope.ResolveType("@returns decorator", d.typ, d.Location()); err != nil {
		return err
	}
	return nil
}

// Type returns the returned type name as written.
func (d *ReturnsDecorator) Type() string { return d.typ }

// IsArray reports whether a list is returned.
func (d *ReturnsDecorator) IsArray() bool { return d.array }

// IsPrimitive reports whether the returned type is a primitive.
func (d *ReturnsDecorator) IsPrimitive() bool { return IsPrimitiveType(d.typ) }

// ResolvedType returns the declaration of the returned type, or nil for
// primitives.
func (d *ReturnsDecorator) ResolvedType() *ClassDeclaration {
	if d.IsPrimitive() {
		return nil
	}
	mf := d.Parent().ModelFile()
	if mf == nil {
		return nil
	}
	return mf.Type(d.typ)
}

// IsTypeEnum reports whether the returned type is an enum.
func (d *ReturnsDecorator) IsTypeEnum() bool {
	cd := d.ResolvedType()
	return cd != nil && cd.IsEnum()
}
