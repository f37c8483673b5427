package java_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/concerto"
	"github.com/syssam/concerto/compiler/gen/internal/gentest"
	"github.com/syssam/concerto/compiler/gen/java"
)

func TestGenerator(t *testing.T) {
	mm := gentest.Manager(t)
	w := gentest.Run(t, mm, java.New())

	names := w.Names()
	for _, want := range []string{
		java.ResourceFile,
		"org/acme/people/Person.java",
		"org/acme/vehicle/Colour.java",
		"org/acme/vehicle/Engine.java",
		"org/acme/vehicle/Machine.java",
		"org/acme/vehicle/Vehicle.java",
		"org/acme/vehicle/Sell.java",
		"org/acme/vehicle/Sold.java",
		"org/hyperledger/composer/system/Asset.java",
	} {
		assert.Contains(t, names, want)
	}

	vehicle := w.Lines("org/acme/vehicle/Vehicle.java")
	require.NotEmpty(t, vehicle)
	assert.Equal(t, "// this code is generated and should not be modified", vehicle[0])
	for _, want := range []string{
		"package org.acme.vehicle;",
		"import org.acme.people.Person;",
		"public class Vehicle extends Machine {",
		"  private Colour colour;",
		"  private double weight;",
		"  private long mileage;",
		"  private boolean electric;",
		"  private java.util.Date built;",
		"  private String[] tags;",
		"  private Person owner;",
		"  private Person[] drivers;",
		"  public String getID() {",
		"    return getSerial();",
		"  public Person[] getDrivers() {",
		"  public void setDrivers(Person[] drivers) {",
		"    this.drivers = drivers;",
	} {
		assert.Contains(t, vehicle, want)
	}

	machine := w.Lines("org/acme/vehicle/Machine.java")
	assert.Contains(t, machine, "public abstract class Machine extends Asset {")
	assert.Contains(t, machine, "  public String getSerial() {")

	engine := w.Lines("org/acme/vehicle/Engine.java")
	assert.Contains(t, engine, `@JsonIgnoreProperties({"$class"})`)
	assert.Contains(t, engine, "public class Engine {")
	assert.Contains(t, engine, "  private int cylinders;")
	assert.NotContains(t, engine, "  public String getID() {")

	colour := w.Lines("org/acme/vehicle/Colour.java")
	assert.Contains(t, colour, "public enum Colour {")
	assert.Contains(t, colour, "  RED,")

	tx := w.Lines("org/hyperledger/composer/system/Transaction.java")
	assert.Contains(t, tx, "public abstract class Transaction extends org.hyperledger.composer.system.Resource {")
	assert.Contains(t, tx, "    return getTransactionId();")

	resource := w.Lines(java.ResourceFile)
	assert.Contains(t, resource, "public abstract class Resource")
	assert.Contains(t, resource, "  public abstract String getID();")
}

func TestGenerator_Unrecognised(t *testing.T) {
	g := java.New()
	assert.Equal(t, "java", g.Name())
	_, err := g.Visit(1.5, nil)
	assert.ErrorIs(t, err, concerto.ErrUnrecognisedType)
}
