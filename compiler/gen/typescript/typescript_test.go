package typescript_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/concerto"
	"github.com/syssam/concerto/compiler/gen"
	"github.com/syssam/concerto/compiler/gen/internal/gentest"
	"github.com/syssam/concerto/compiler/gen/typescript"
)

func TestGenerator(t *testing.T) {
	w := gentest.Run(t, gentest.Manager(t), typescript.New(), gen.WithHeader("Fleet models."))
	assert.Equal(t, []string{
		"org.acme.people.ts",
		"org.acme.vehicle.ts",
		"org.hyperledger.composer.system.ts",
	}, w.Names())

	lines := w.Lines("org.acme.vehicle.ts")
	require.NotEmpty(t, lines)
	assert.Equal(t, "// Fleet models.", lines[0])
	for _, want := range []string{
		"import {Asset} from './org.hyperledger.composer.system';",
		"import {Participant} from './org.hyperledger.composer.system';",
		"import {Person} from './org.acme.people';",
		"// export namespace org.acme.vehicle{",
		"  export enum Colour {",
		"    RED = 'RED',",
		"    GREEN = 'GREEN',",
		"  export class Engine {",
		"    cylinders: number;",
		"  export abstract class Machine extends Asset {",
		"    serial: string;",
		"    getSerial(): string {",
		"      return this.serial;",
		"  export class Vehicle extends Machine {",
		"    colour: Colour;",
		"    weight?: number;",
		"    mileage: number;",
		"    electric: boolean;",
		"    built: Date;",
		"    engine: Engine;",
		"    tags?: string[];",
		"    owner: Person;",
		"    drivers?: Person[];",
		"  export class Sell extends Transaction {",
		"    vehicle: Vehicle;",
		"  export class Sold extends Event {",
		"// }",
	} {
		assert.Contains(t, lines, want)
	}
	assert.NotContains(t, lines, "import {Vehicle} from './org.acme.vehicle';")

	system := w.Lines("org.hyperledger.composer.system.ts")
	assert.NotContains(t, system, "import {Asset} from './org.hyperledger.composer.system';")
	assert.Contains(t, system, "  export abstract class Transaction {")
	assert.Contains(t, system, "    getTransactionId(): string {")
	assert.Contains(t, system, "    eventsEmitted?: Event[];")
}

func TestGenerator_Unrecognised(t *testing.T) {
	g := typescript.New()
	assert.Equal(t, ".ts", g.FileExtension())
	_, err := g.Visit(struct{}{}, nil)
	assert.ErrorIs(t, err, concerto.ErrUnrecognisedType)
}
