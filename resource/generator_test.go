package resource_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/concerto/introspect"
	"github.com/syssam/concerto/resource"
)

const gardenModel = `namespace org.acme.garden

enum Kind {
  o FLOWER
  o VEGETABLE
}

abstract concept Shape {
  o String label
}

concept Circle extends Shape {
  o Integer radius range=[2,5]
}

concept Node {
  o String name
  o Node[] children optional
  o Node parent optional
}

participant Gardener identified by gid {
  o String gid
  o String code regex=/^[0-9]+$/ optional
}

asset Garden identified by id {
  o String id
  o Shape shape
  o Node root
  o Kind kind
  o Integer plots range=[3,9]
  o Double area range=[,-1]
  o Boolean open
  o DateTime planted
  --> Gardener keeper
  --> Gardener[] helpers
  o String[] notes optional
  o Gardener founder optional
}`

func newGardenFactory(t *testing.T, opts ...resource.FactoryOption) *resource.Factory {
	t.Helper()
	mm, err := introspect.NewModelManager()
	require.NoError(t, err)
	_, err = mm.AddModelFile(gardenModel, "garden.cto")
	require.NoError(t, err)
	return resource.NewFactory(mm, append(opts, resource.WithClock(func() time.Time { return epoch }))...)
}

func TestFactory_GenerateEmpty(t *testing.T) {
	f := newGardenFactory(t)
	g, err := f.NewResource("org.acme.garden", "Garden", "G1", resource.WithGenerate(resource.Empty))
	require.NoError(t, err)
	require.NoError(t, resource.Validate(g))

	assert.Equal(t, "G1", g.Get("id"))
	assert.Equal(t, "FLOWER", g.Get("kind"))
	assert.Equal(t, int32(3), g.Get("plots"), "zero is moved into the range")
	assert.Equal(t, float64(-1), g.Get("area"))
	assert.Equal(t, false, g.Get("open"))
	assert.Equal(t, epoch, g.Get("planted"))
	assert.Equal(t, []any{}, g.Get("helpers"))
	assert.Equal(t, &resource.Relationship{Namespace: "org.acme.garden", Type: "Gardener", ID: "gid:0000"}, g.Get("keeper"))

	shape, ok := g.Get("shape").(*resource.Resource)
	require.True(t, ok)
	assert.Equal(t, "org.acme.garden.Circle", shape.FullyQualifiedType(), "abstract concepts use a concrete subclass")
	assert.Equal(t, "", shape.Get("label"))
	assert.Equal(t, int32(2), shape.Get("radius"))

	root, ok := g.Get("root").(*resource.Resource)
	require.True(t, ok)
	assert.Equal(t, []string{"name"}, root.Names())

	// Optional properties are left out unless asked for.
	assert.False(t, g.Has("notes"))
	assert.False(t, g.Has("founder"))
}

func TestFactory_GenerateOptionalFields(t *testing.T) {
	f := newGardenFactory(t, resource.WithSampleSeed(7))
	g, err := f.NewResource("org.acme.garden", "Garden", "G1", resource.WithGenerate(resource.Sample), resource.WithOptionalFields())
	require.NoError(t, err)
	require.NoError(t, resource.Validate(g))

	notes, ok := g.Get("notes").([]any)
	require.True(t, ok)
	assert.Len(t, notes, 3)

	founder, ok := g.Get("founder").(*resource.Resource)
	require.True(t, ok)
	assert.Regexp(t, `^gid:\d{4}$`, founder.Identifier())
	assert.Regexp(t, `^[0-9]+$`, founder.Get("code"), "sample strings satisfy the field regex")

	// A concept is not generated inside itself.
	root, ok := g.Get("root").(*resource.Resource)
	require.True(t, ok)
	assert.True(t, root.Has("name"))
	assert.False(t, root.Has("children"))
	assert.False(t, root.Has("parent"))
}

func TestFactory_GenerateSample(t *testing.T) {
	f := newGardenFactory(t, resource.WithSampleSeed(42))
	g, err := f.NewResource("org.acme.garden", "Garden", "G1", resource.WithGenerate(resource.Sample))
	require.NoError(t, err)
	require.NoError(t, resource.Validate(g))

	assert.Contains(t, []any{"FLOWER", "VEGETABLE"}, g.Get("kind"))
	plots, ok := g.Get("plots").(int32)
	require.True(t, ok)
	assert.GreaterOrEqual(t, plots, int32(3))
	assert.LessOrEqual(t, plots, int32(9))
	area, ok := g.Get("area").(float64)
	require.True(t, ok)
	assert.LessOrEqual(t, area, float64(-1))

	helpers, ok := g.Get("helpers").([]any)
	require.True(t, ok)
	require.Len(t, helpers, 3)
	for _, h := range helpers {
		rel, ok := h.(*resource.Relationship)
		require.True(t, ok)
		assert.Equal(t, "org.acme.garden.Gardener", rel.FullyQualifiedType())
		assert.Regexp(t, `^gid:\d{4}$`, rel.ID)
	}

	// The same seed generates the same instance.
	again, err := f.NewResource("org.acme.garden", "Garden", "G1", resource.WithGenerate(resource.Sample))
	require.NoError(t, err)
	s := resource.NewSerializer(f)
	want, err := s.ToJSON(g)
	require.NoError(t, err)
	got, err := s.ToJSON(again)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(got))
}

func TestFactory_GenerateKeepsDefaults(t *testing.T) {
	f := newFactory(t, resource.WithClock(func() time.Time { return epoch }))
	v, err := f.NewResource("org.acme", "Vehicle", "V1", resource.WithGenerate(resource.Sample), resource.WithOptionalFields())
	require.NoError(t, err)
	require.NoError(t, resource.Validate(v))
	assert.Equal(t, "RED", v.Get("colour"))
	assert.Equal(t, int32(4), v.Get("wheels"))
	assert.Equal(t, epoch, v.Get("built"))
	assert.IsType(t, int64(0), v.Get("odometer"))

	p, err := f.NewResource("org.acme", "Person", "alice@acme.org", resource.WithGenerate(resource.Empty), resource.WithOptionalFields())
	require.NoError(t, err)
	address, ok := p.Get("address").(*resource.Resource)
	require.True(t, ok)
	assert.Equal(t, "", address.Get("street"))
	assert.Equal(t, "", address.Get("zip"))

	c, err := f.NewConcept("org.acme", "UKAddress", resource.WithGenerate(resource.Empty))
	require.NoError(t, err)
	assert.Equal(t, []string{"postcode", "street"}, c.Names())

	tx, err := f.NewTransaction("org.acme", "Sell", "tx-1", resource.WithGenerate(resource.Empty))
	require.NoError(t, err)
	require.NoError(t, resource.Validate(tx))
	assert.Equal(t, float64(0), tx.Get("price"))
	assert.Equal(t, "vin:0000", tx.Get("vehicle").(*resource.Relationship).ID)
}

func TestGenerate_String(t *testing.T) {
	assert.Equal(t, "none", resource.None.String())
	assert.Equal(t, "empty", resource.Empty.String())
	assert.Equal(t, "sample", resource.Sample.String())
}
