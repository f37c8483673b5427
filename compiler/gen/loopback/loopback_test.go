package loopback_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/concerto"
	"github.com/syssam/concerto/compiler/gen/internal/gentest"
	"github.com/syssam/concerto/compiler/gen/loopback"
)

func decode(t *testing.T, src string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(src), &m))
	return m
}

func TestGenerator(t *testing.T) {
	w := gentest.Run(t, gentest.Manager(t), loopback.New())
	names := w.Names()
	for _, want := range []string{"Person.json", "Vehicle.json", "Machine.json", "Engine.json", "Sell.json", "HistorianRecord.json"} {
		assert.Contains(t, names, want)
	}
	assert.NotContains(t, names, "Sold.json")
	assert.NotContains(t, names, "Colour.json")

	person, _ := w.File("Person.json")
	p := decode(t, person)
	assert.Equal(t, "Person", p["name"])
	assert.NotEqual(t, "Person", p["plural"])
	assert.Equal(t, "A participant named Person", p["description"])
	assert.Equal(t, "PersistedModel", p["base"])
	assert.Equal(t, false, p["idInjection"])
	assert.Equal(t, map[string]any{
		"validateUpsert": true,
		"composer": map[string]any{
			"type":      "participant",
			"namespace": "org.acme.people",
			"name":      "Person",
			"fqn":       "org.acme.people.Person",
			"abstract":  false,
		},
	}, p["options"])
	props := p["properties"].(map[string]any)
	assert.Equal(t, map[string]any{
		"type":        "string",
		"id":          true,
		"description": "The instance identifier for this type",
		"required":    true,
	}, props["email"])
	assert.Equal(t, map[string]any{"type": []any{"string"}, "default": []any{}, "required": false}, props["nicknames"])

	vehicle, _ := w.File("Vehicle.json")
	v := decode(t, vehicle)
	assert.Equal(t, "Vehicles", v["plural"])
	assert.Equal(t, "An asset named Vehicle", v["description"])
	vp := v["properties"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "string", "enum": []any{"RED", "GREEN"}, "default": "RED", "required": true}, vp["colour"])
	assert.Equal(t, map[string]any{"type": "date", "required": true}, vp["built"])
	assert.Equal(t, map[string]any{"type": "number", "required": false}, vp["weight"])
	assert.Equal(t, map[string]any{"type": "Engine", "required": true}, vp["engine"])
	assert.Equal(t, map[string]any{
		"type":        []any{"any"},
		"description": "The identifier of an instance of org.acme.people.Person",
		"required":    false,
	}, vp["drivers"])
	assert.Contains(t, vp, "serial")

	engine := decode(t, mustFile(t, w.File, "Engine.json"))
	assert.NotContains(t, engine, "base")

	sell := decode(t, mustFile(t, w.File, "Sell.json"))
	assert.Equal(t, true, sell["forceId"])
	sp := sell["properties"].(map[string]any)
	assert.Equal(t, true, sp["transactionId"].(map[string]any)["generated"])
	assert.Equal(t, false, sp["transactionId"].(map[string]any)["required"])
	assert.Equal(t, false, sp["timestamp"].(map[string]any)["required"])
}

func TestGenerator_Namespaces(t *testing.T) {
	g := loopback.New()
	g.Namespaces = true
	w := gentest.Run(t, gentest.Manager(t), g)
	src, ok := w.File("org.acme.vehicle.Vehicle.json")
	require.True(t, ok)
	v := decode(t, src)
	assert.Equal(t, "org_acme_vehicle_Vehicle", v["name"])
	assert.Equal(t, map[string]any{"type": "org_acme_vehicle_Engine", "required": true}, v["properties"].(map[string]any)["engine"])
}

func TestGenerator_Visit(t *testing.T) {
	_, err := loopback.New().Visit(nil, nil)
	assert.ErrorIs(t, err, concerto.ErrUnrecognisedType)
}

func mustFile(t *testing.T, file func(string) (string, bool), name string) string {
	t.Helper()
	s, ok := file(name)
	require.True(t, ok, name)
	return s
}
