package introspect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/concerto"
	"github.com/syssam/concerto/introspect"
	"github.com/syssam/concerto/schema/ast"
)

func TestDecorators(t *testing.T) {
	mm := newManager(t)
	_, err := mm.AddModelFile(`namespace org.acme
@foo("bar", 3.5, true, Car[])
@baz
concept Car {
  @label("Colour")
  o String colour
}`, "acme.cto")
	require.NoError(t, err)

	car, err := mm.Type("org.acme.Car")
	require.NoError(t, err)
	require.Len(t, car.Decorators(), 2)

	foo := car.Decorator("foo")
	require.NotNil(t, foo)
	assert.Equal(t, []any{"bar", 3.5, true, introspect.Identifier{Name: "Car", Array: true}}, foo.Arguments())
	assert.Same(t, car, foo.Parent())
	assert.Equal(t, 2, foo.Location().Start.Line)
	assert.Empty(t, car.Decorator("baz").Arguments())
	assert.Nil(t, car.Decorator("missing"))

	colour := car.Property("colour")
	label := colour.Decorator("label")
	require.NotNil(t, label)
	assert.Equal(t, []any{"Colour"}, label.Arguments())
	assert.Equal(t, "org.acme.Car.colour", label.Parent().FullyQualifiedName())
}

func TestDecorators_Duplicate(t *testing.T) {
	tests := []struct {
		name  string
		model string
	}{
		{"class", "@foo\n@foo(1)\nconcept Car {}"},
		{"property", "concept Car {\n  @foo(\"a\")\n  @foo(\"b\")\n  o String colour\n}"},
		{"relationship", "participant P identified by id {\n  o String id\n}\nconcept Car {\n  @foo @foo\n  --> P owner\n}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mm := newManager(t)
			_, err := mm.AddModelFile("namespace org.acme\n"+tt.model, "acme.cto")
			require.Error(t, err)
			assert.ErrorIs(t, err, concerto.ErrIllegalModel)
			assert.Contains(t, err.Error(), "Duplicate decorator foo")
		})
	}
}

type priorityDecorator struct {
	*introspect.BaseDecorator
	by string
}

func factoryNamed(by string, names ...string) introspect.DecoratorFactory {
	return introspect.DecoratorFactoryFunc(func(parent introspect.Decorated, node *ast.Decorator) (introspect.Decorator, error) {
		for _, n := range names {
			if n == node.Name {
				base, err := introspect.NewDecorator(parent, node)
				if err != nil {
					return nil, err
				}
				return &priorityDecorator{BaseDecorator: base, by: by}, nil
			}
		}
		return nil, nil
	})
}

func TestDecoratorFactories_Order(t *testing.T) {
	mm := newManager(t, introspect.WithDecoratorFactories(factoryNamed("first", "a"), factoryNamed("second", "a", "b")))
	mm.AddDecoratorFactory(factoryNamed("third", "c"))
	require.Len(t, mm.DecoratorFactories(), 3)

	_, err := mm.AddModelFile("namespace org.acme\n@a @b @c @d\nconcept Car {}", "")
	require.NoError(t, err)
	car, err := mm.Type("org.acme.Car")
	require.NoError(t, err)

	by := func(name string) string {
		if d, ok := car.Decorator(name).(*priorityDecorator); ok {
			return d.by
		}
		return ""
	}
	assert.Equal(t, "first", by("a"))
	assert.Equal(t, "second", by("b"))
	assert.Equal(t, "third", by("c"))
	assert.IsType(t, &introspect.BaseDecorator{}, car.Decorator("d"))
}

func TestDecoratorFactories_Error(t *testing.T) {
	failing := introspect.DecoratorFactoryFunc(func(introspect.Decorated, *ast.Decorator) (introspect.Decorator, error) {
		return nil, concerto.NewIllegalModelError("", concerto.Location{}, "no decorators allowed")
	})
	mm := newManager(t, introspect.WithDecoratorFactories(failing))
	_, err := mm.AddModelFile("namespace org.acme\nconcept Car {\n  @x\n  o String s\n}", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no decorators allowed")
}

func TestNewDecorator(t *testing.T) {
	_, err := introspect.NewDecorator(nil, &ast.Decorator{Name: "foo"})
	assert.Error(t, err)
}

func TestReturnsDecorator(t *testing.T) {
	model := func(decorator string) string {
		return "namespace org.acme\nconcept Result {}\nenum Status {\n  o OK\n}\n" + decorator + "\ntransaction T {}"
	}
	tests := []struct {
		name    string
		dec     string
		wantErr string
	}{
		{name: "no arguments", dec: "@returns()", wantErr: "@returns decorator expects 1 argument, but 0 arguments were specified. File returns.cto line 6 column 1, to line 6 column 11."},
		{name: "two arguments", dec: "@returns(Result, Status)", wantErr: "@returns decorator expects 1 argument, but 2 arguments were specified."},
		{name: "boolean argument", dec: "@returns(true)", wantErr: "@returns decorator expects an identifier argument, but an argument of type boolean was specified."},
		{name: "undeclared type", dec: "@returns(foo)", wantErr: "Undeclared type foo in @returns decorator."},
		{name: "concept", dec: "@returns(Result)"},
		{name: "primitive array", dec: "@returns(String[])"},
		{name: "enum", dec: "@returns(Status)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mm := newManager(t, introspect.WithDecoratorFactories(introspect.ReturnsDecoratorFactory{}))
			_, err := mm.AddModelFile(model(tt.dec), "returns.cto")
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, concerto.ErrIllegalModel)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}

	t.Run("accessors", func(t *testing.T) {
		mm := newManager(t, introspect.WithDecoratorFactories(introspect.ReturnsDecoratorFactory{}))
		_, err := mm.AddModelFile(model("@returns(Status[])"), "returns.cto")
		require.NoError(t, err)
		tx, err := mm.Type("org.acme.T")
		require.NoError(t, err)
		rd, ok := tx.Decorator("returns").(*introspect.ReturnsDecorator)
		require.True(t, ok)
		assert.Equal(t, "Status", rd.Type())
		assert.True(t, rd.IsArray())
		assert.False(t, rd.IsPrimitive())
		assert.True(t, rd.IsTypeEnum())
		assert.Equal(t, "org.acme.Status", rd.ResolvedType().FullyQualifiedName())
	})

	t.Run("argument error type", func(t *testing.T) {
		mm := newManager(t, introspect.WithDecoratorFactories(introspect.ReturnsDecoratorFactory{}))
		_, err := mm.AddModelFile(model("@returns(\"x\")"), "returns.cto")
		var de *concerto.DecoratorError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "returns", de.Decorator)
		assert.Equal(t, "returns.cto", de.File)
		assert.Equal(t, "an argument of type string was specified", de.Actual)
		assert.ErrorIs(t, err, concerto.ErrDecoratorArgument)
	})

	t.Run("without factory", func(t *testing.T) {
		mm := newManager(t)
		_, err := mm.AddModelFile(model("@returns()"), "")
		require.NoError(t, err)
	})
}
