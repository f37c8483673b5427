// Package gentest holds the model shared by the generator tests.
package gentest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syssam/concerto/compiler/gen"
	"github.com/syssam/concerto/introspect"
)

// People is imported by Vehicles.
const People = `namespace org.acme.people

participant Person identified by email {
  o String email
  o String name
  o String[] nicknames optional
}`

// Vehicles covers every declaration kind.
const Vehicles = `namespace org.acme.vehicle

import org.acme.people.Person

enum Colour {
  o RED
  o GREEN
}

concept Engine {
  o Integer cylinders range=[1,16]
}

abstract asset Machine identified by serial {
  o String serial
}

asset Vehicle extends Machine {
  o Colour colour default="RED"
  o Double weight optional
  o Long mileage
  o Boolean electric
  o DateTime built
  o Engine engine
  o String[] tags optional
  --> Person owner
  --> Person[] drivers optional
}

transaction Sell {
  --> Vehicle vehicle
  o Double price
}

event Sold {
  --> Vehicle vehicle
}`

// Manager returns a model manager holding People and Vehicles.
func Manager(t testing.TB) *introspect.ModelManager {
	t.Helper()
	mm, err := introspect.NewModelManager()
	require.NoError(t, err)
	_, err = mm.AddModelFiles([]string{People, Vehicles}, []string{"people.cto", "vehicle.cto"})
	require.NoError(t, err)
	return mm
}

// Run generates g over mm into memory.
func Run(t testing.TB, mm *introspect.ModelManager, g gen.Generator, opts ...gen.Option) *gen.MemoryWriter {
	t.Helper()
	w := gen.NewMemoryWriter()
	opts = append(opts,
		gen.WithGenerators(g),
		gen.WithWriter(func(gen.Generator) gen.FileWriter { return w }),
	)
	require.NoError(t, gen.Generate(context.Background(), mm, opts...))
	return w
}
