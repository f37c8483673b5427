package introspect

import (
	"github.com/syssam/concerto"
	"github.com/syssam/concerto/schema/ast"
)

// Decorated is implemented by model elements that carry decorators: class
// declarations and properties.
type Decorated interface {
	Decorators() []Decorator
	// Decorator returns the first decorator with the given name, or nil.
	Decorator(name string) Decorator
	ModelFile() *ModelFile
	FullyQualifiedName() string
}

// decorated stores decorators for the element that embeds it.
type decorated struct {
	decorators []Decorator
}

// Decorators returns the decorators in source order.
func (d *decorated) Decorators() []Decorator {
	return d.decorators
}

// Decorator returns the first decorator with the given name, or nil.
func (d *decorated) Decorator(name string) Decorator {
	for _, dec := range d.decorators {
		if dec.Name() == name {
			return dec
		}
	}
	return nil
}

// processDecorators builds the decorators of owner from their syntax nodes.
func (d *decorated) processDecorators(owner Decorated, factories []DecoratorFactory, nodes []*ast.Decorator) error {
	d.decorators = make([]Decorator, 0, len(nodes))
	for _, node := range nodes {
		dec, err := buildDecorator(factories, owner, node)
		if err != nil {
			return err
		}
		d.decorators = append(d.decorators, dec)
	}
	return nil
}

// validateDecorators validates each decorator, then rejects names used more
// than once on the same element.
func (d *decorated) validateDecorators(scope Scope, loc concerto.Location) error {
	file := scope.ModelFile().Name()
	for _, dec := range d.decorators {
		if err := dec.Validate(scope); err != nil {
			return err
		}
	}
	for i, dec := range d.decorators {
		for _, other := range d.decorators[i+1:] {
			if dec.Name() == other.Name() {
				return concerto.IllegalModelf(file, loc, "Duplicate decorator %s", dec.Name())
			}
		}
	}
	return nil
}
