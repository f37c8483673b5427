package introspect

import (
	"github.com/syssam/concerto"
	"github.com/syssam/concerto/schema/ast"
)

// Decorator is an annotation attached to a class declaration or a property.
type Decorator interface {
	// Name returns the decorator name without the leading '@'.
	Name() string
	// Arguments returns the literal arguments in source order. Each is a
	// string, float64, bool or Identifier.
	Arguments() []any
	// Parent returns the class or property the decorator is attached to.
	Parent() Decorated
	// AST returns the syntax node the decorator was built from.
	AST() *ast.Decorator
	Location() concerto.Location
	// Validate checks the decorator once the model graph is complete.
	Validate(scope Scope) error
	Accept(v Visitor, params Parameters) (any, error)
}

// Identifier is a type-name argument of a decorator, such as Car or Car[].
type Identifier struct {
	Name  string
	Array bool
}

// String returns the identifier as written.
func (id Identifier) String() string {
	if id.Array {
		return id.Name + "[]"
	}
	return id.Name
}

// BaseDecorator is the generic decorator used when no factory claims a node.
// Specialised decorators embed it.
type BaseDecorator struct {
	parent Decorated
	node   *ast.Decorator
	name   string
	args   []any
}

// NewDecorator builds a generic decorator from its syntax node.
func NewDecorator(parent Decorated, node *ast.Decorator) (*BaseDecorator, error) {
	if parent == nil || node == nil {
		return nil, concerto.NewIllegalModelError("", concerto.Location{}, "Invalid decorator: parent and AST are required")
	}
	d := &BaseDecorator{parent: parent, node: node, name: node.Name}
	for _, arg := range node.Arguments {
		switch arg.Kind {
		case ast.LiteralIdentifier:
			d.args = append(d.args, Identifier{Name: arg.Name, Array: arg.Array})
		default:
			d.args = append(d.args, arg.Value())
		}
	}
	return d, nil
}

// Name implements Decorator.
func (d *BaseDecorator) Name() string { return d.name }

// Arguments implements Decorator.
func (d *BaseDecorator) Arguments() []any { return d.args }

// Parent implements Decorator.
func (d *BaseDecorator) Parent() Decorated { return d.parent }

// AST implements Decorator.
func (d *BaseDecorator) AST() *ast.Decorator { return d.node }

// Location implements Decorator.
func (d *BaseDecorator) Location() concerto.Location { return d.node.Location }

// Validate implements Decorator. Generic decorators accept any arguments.
func (d *BaseDecorator) Validate(Scope) error { return nil }

// Accept implements Decorator.
func (d *BaseDecorator) Accept(v Visitor, params Parameters) (any, error) {
	return v.Visit(d, params)
}

// fileName returns the name of the model file owning the decorator.
func (d *BaseDecorator) fileName() string {
	if mf := d.parent.ModelFile(); mf != nil {
		return mf.Name()
	}
	return ""
}

// DecoratorFactory turns a decorator node into a specialised Decorator.
// Returning a nil Decorator and a nil error declines the node; the next
// factory is then asked.
type DecoratorFactory interface {
	NewDecorator(parent Decorated, node *ast.Decorator) (Decorator, error)
}

// The DecoratorFactoryFunc type is an adapter to allow the use of ordinary
// functions as decorator factories.
type DecoratorFactoryFunc func(parent Decorated, node *ast.Decorator) (Decorator, error)

// NewDecorator calls f(parent, node).
func (f DecoratorFactoryFunc) NewDecorator(parent Decorated, node *ast.Decorator) (Decorator, error) {
	return f(parent, node)
}

// buildDecorator asks each factory in order and falls back to a generic
// decorator when all of them decline.
func buildDecorator(factories []DecoratorFactory, parent Decorated, node *ast.Decorator) (Decorator, error) {
	for _, f := range factories {
		d, err := f.NewDecorator(parent, node)
		if err != nil {
			return nil, err
		}
		if d != nil {
			return d, nil
		}
	}
	return NewDecorator(parent, node)
}
