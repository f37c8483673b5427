package introspect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/concerto"
	"github.com/syssam/concerto/introspect"
)

// recordingVisitor counts visits per node and rejects nodes outside the
// model graph.
type recordingVisitor struct {
	visits []any
	params []introspect.Parameters
}

func (v *recordingVisitor) Visit(node any, params introspect.Parameters) (any, error) {
	switch node.(type) {
	case *introspect.ModelManager, *introspect.ModelFile, *introspect.ClassDeclaration,
		*introspect.Field, *introspect.Relationship, *introspect.EnumValue,
		*introspect.BaseDecorator, *introspect.ReturnsDecorator, *introspect.Introspector:
		v.visits = append(v.visits, node)
		v.params = append(v.params, params)
		return node, nil
	default:
		return nil, concerto.NewUnrecognisedTypeError(node)
	}
}

func TestAccept(t *testing.T) {
	mm := newManager(t, introspect.WithDecoratorFactories(introspect.ReturnsDecoratorFactory{}))
	mf, err := mm.AddModelFile(`namespace org.acme
enum Colour {
  o RED
}
@label("car")
asset Car identified by vin {
  o String vin
  --> Owner owner
}
participant Owner identified by id {
  o String id
}
@returns(Car)
transaction Buy {}`, "acme.cto")
	require.NoError(t, err)
	car, err := mm.Type("org.acme.Car")
	require.NoError(t, err)
	buy, err := mm.Type("org.acme.Buy")
	require.NoError(t, err)
	colour, err := mm.Type("org.acme.Colour")
	require.NoError(t, err)

	nodes := []introspect.Acceptor{
		mm,
		mf,
		car,
		car.Property("vin").(*introspect.Field),
		car.Property("owner").(*introspect.Relationship),
		colour.OwnProperty("RED").(*introspect.EnumValue),
		car.Decorator("label").(*introspect.BaseDecorator),
		buy.Decorator("returns").(*introspect.ReturnsDecorator),
		introspect.NewIntrospector(mm),
	}
	for _, node := range nodes {
		v := &recordingVisitor{}
		params := introspect.Parameters{"fileWriter": "w"}
		got, err := node.Accept(v, params)
		require.NoError(t, err)
		require.Len(t, v.visits, 1, "%T", node)
		assert.Same(t, node, v.visits[0])
		assert.Equal(t, params, v.params[0])
		assert.Same(t, node, got)
	}
}

func TestVisitUnrecognisedType(t *testing.T) {
	v := &recordingVisitor{}
	_, err := v.Visit(struct{}{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, concerto.ErrUnrecognisedType)
	assert.Contains(t, err.Error(), "Unrecognised type")
}

func TestVisitorFunc(t *testing.T) {
	var seen any
	v := introspect.VisitorFunc(func(node any, _ introspect.Parameters) (any, error) {
		seen = node
		return "ok", nil
	})
	mm := newManager(t)
	got, err := mm.Accept(v, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Same(t, mm, seen)
}

func TestIntrospector(t *testing.T) {
	mm := newManager(t)
	_, err := mm.AddModelFile(carModel, "car.cto")
	require.NoError(t, err)
	i := introspect.NewIntrospector(mm)
	assert.Same(t, mm, i.ModelManager())

	decls := i.ClassDeclarations()
	require.NotEmpty(t, decls)
	assert.True(t, decls[0].IsSystemType())
	assert.Equal(t, "org.acme.Car", decls[len(decls)-1].FullyQualifiedName())

	car, err := i.ClassDeclaration("org.acme.Car")
	require.NoError(t, err)
	assert.Equal(t, "vin", car.IdentifierFieldName())

	_, err = i.ClassDeclaration("org.acme.Truck")
	var tnf *concerto.TypeNotFoundError
	require.ErrorAs(t, err, &tnf)
	assert.Equal(t, "org.acme.Truck", tnf.Type)
}
