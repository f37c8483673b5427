package jsonschema_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/concerto"
	"github.com/syssam/concerto/compiler/gen/internal/gentest"
	"github.com/syssam/concerto/compiler/gen/jsonschema"
	"github.com/syssam/concerto/introspect"
)

func TestGenerator(t *testing.T) {
	w := gentest.Run(t, gentest.Manager(t), jsonschema.New())
	names := w.Names()
	for _, want := range []string{
		"org.acme.people.Person.json",
		"org.acme.vehicle.Engine.json",
		"org.acme.vehicle.Vehicle.json",
		"org.acme.vehicle.Sell.json",
		"org.acme.vehicle.Sold.json",
		"org.hyperledger.composer.system.HistorianRecord.json",
	} {
		assert.Contains(t, names, want)
	}
	assert.NotContains(t, names, "org.acme.vehicle.Machine.json")
	assert.NotContains(t, names, "org.acme.vehicle.Colour.json")

	src, _ := w.File("org.acme.vehicle.Vehicle.json")
	var vehicle map[string]any
	require.NoError(t, json.Unmarshal([]byte(src), &vehicle))
	assert.Equal(t, jsonschema.Draft, vehicle["$schema"])
	assert.Equal(t, "Vehicle", vehicle["title"])
	assert.Equal(t, "An asset named Vehicle", vehicle["description"])
	assert.Equal(t, []any{"$class", "colour", "mileage", "electric", "built", "engine", "owner", "serial"}, vehicle["required"])

	props := vehicle["properties"].(map[string]any)
	assert.Equal(t, map[string]any{
		"type":        "string",
		"default":     "org.acme.vehicle.Vehicle",
		"description": "The class identifier for this type",
	}, props["$class"])
	assert.Equal(t, map[string]any{"enum": []any{"RED", "GREEN"}, "default": "RED"}, props["colour"])
	assert.Equal(t, map[string]any{"type": "string", "format": "date-time"}, props["built"])
	assert.Equal(t, map[string]any{"type": "integer"}, props["mileage"])
	assert.Equal(t, map[string]any{"type": "array", "items": map[string]any{"type": "string"}}, props["tags"])
	assert.Equal(t, map[string]any{"type": "string", "description": "The instance identifier for this type"}, props["serial"])
	assert.Equal(t, map[string]any{
		"type": "array",
		"items": map[string]any{
			"type":        "string",
			"description": "The identifier of an instance of org.acme.people.Person",
		},
	}, props["drivers"])

	engine, err := json.Marshal(props["engine"])
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"description": "An instance of org.acme.vehicle.Engine",
		"type": "object",
		"properties": {
			"$class": {"type": "string", "default": "org.acme.vehicle.Engine", "description": "The class identifier for this type"},
			"cylinders": {"type": "integer"}
		},
		"required": ["cylinders"]
	}`, string(engine))

	sell, _ := w.File("org.acme.vehicle.Sell.json")
	assert.Contains(t, sell, `"description": "A transaction named Sell"`)
	assert.Contains(t, sell, `    "$schema": "http://json-schema.org/draft-04/schema#"`)
}

func TestGenerator_RecursiveConcepts(t *testing.T) {
	mm, err := introspect.NewModelManager()
	require.NoError(t, err)
	_, err = mm.AddModelFile(`namespace org.acme.tree
concept Node {
  o String label
  o Node[] children optional
}`, "tree.cto")
	require.NoError(t, err)

	w := gentest.Run(t, mm, jsonschema.New())
	src, ok := w.File("org.acme.tree.Node.json")
	require.True(t, ok)
	var node map[string]any
	require.NoError(t, json.Unmarshal([]byte(src), &node))
	children := node["properties"].(map[string]any)["children"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "object", "description": "An instance of org.acme.tree.Node"}, children["items"])
}

func TestGenerator_Visit(t *testing.T) {
	g := jsonschema.New()
	mm := gentest.Manager(t)
	cd, err := mm.Type("org.acme.vehicle.Colour")
	require.NoError(t, err)
	s, err := cd.Accept(g, nil)
	require.NoError(t, err)
	assert.Equal(t, jsonschema.Schema{"enum": []any{"RED", "GREEN"}}, s)

	_, err = g.Visit(struct{}{}, nil)
	assert.ErrorIs(t, err, concerto.ErrUnrecognisedType)
}
