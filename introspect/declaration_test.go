package introspect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/concerto"
	"github.com/syssam/concerto/introspect"
)

func TestClassDeclaration_Validate(t *testing.T) {
	tests := []struct {
		name    string
		model   string
		wantErr string
	}{
		{
			name:    "identifier not String",
			model:   "asset Car identified by vin {\n  o Integer vin\n}",
			wantErr: "Class Car is identified by field vin, but the type of the field is not String.",
		},
		{
			name:    "identifier optional",
			model:   "participant Person identified by email {\n  o String email optional\n}",
			wantErr: "Identifying fields cannot be optional.",
		},
		{
			name:    "identifier missing",
			model:   "asset Car identified by vin {\n  o String colour\n}",
			wantErr: "Class Car is identified by field vin, but does not contain this property.",
		},
		{
			name:    "identifier redeclared",
			model:   "abstract asset Base identified by id {\n  o String id\n}\nasset Car identified by id extends Base {\n}",
			wantErr: "Identifier from super class cannot be redeclared.",
		},
		{
			name:    "no identifier",
			model:   "asset Car {\n  o String vin\n}",
			wantErr: "Class Car is not declared as abstract. It must define an identifying field.",
		},
		{
			name:    "duplicate class",
			model:   "concept Address {}\nconcept Address {}",
			wantErr: "Duplicate class name Address",
		},
		{
			name:    "duplicate property",
			model:   "concept Address {\n  o String city\n  o String city\n}",
			wantErr: "Class Address has more than one field named city",
		},
		{
			name:    "duplicate inherited property",
			model:   "abstract concept Base {\n  o String city\n}\nconcept Address extends Base {\n  o String city\n}",
			wantErr: "Class Address has more than one field named city",
		},
		{
			name:    "redeclared system property",
			model:   "transaction Buy {\n  o DateTime timestamp\n}",
			wantErr: "Class Buy has more than one field named timestamp",
		},
		{
			name:    "missing super type",
			model:   "concept Address extends Base {}",
			wantErr: "Could not find super type Base",
		},
		{
			name:    "super type of another kind",
			model:   "abstract participant P identified by id {\n  o String id\n}\nasset A extends P {}",
			wantErr: "Asset (A) cannot extend Participant (P)",
		},
		{
			name:    "circular super types",
			model:   "concept A extends B {}\nconcept B extends A {}",
			wantErr: "circular super type chain",
		},
		{
			name:    "reserved name",
			model:   "abstract asset Asset {}",
			wantErr: "Asset is a reserved system type name",
		},
		{
			name:    "undeclared field type",
			model:   "concept Address {\n  o Street street\n}",
			wantErr: "Undeclared type Street in property org.acme.Address.street.",
		},
		{
			name:    "relationship to primitive",
			model:   "concept Address {\n  --> String street\n}",
			wantErr: "Relationship street cannot be to the primitive type String",
		},
		{
			name:    "relationship to concept",
			model:   "concept Street {}\nconcept Address {\n  --> Street street\n}",
			wantErr: "Relationship street must be to an asset or participant, but is to org.acme.Street",
		},
		{
			name:    "event relationship to transaction",
			model:   "transaction Buy {}\nevent Bought {\n  --> Buy buy\n}",
			wantErr: "must be to an asset or participant",
		},
		{
			name:    "regex on Integer",
			model:   "concept C {\n  o Integer n regex=/a+/\n}",
			wantErr: "Invalid field org.acme.C.n",
		},
		{
			name:    "bad default",
			model:   "concept C {\n  o Integer n default=\"many\"\n}",
			wantErr: "Invalid field org.acme.C.n",
		},
		{
			name:    "enum default not a value",
			model:   "enum Colour {\n  o RED\n}\nconcept C {\n  o Colour c default=\"BLUE\"\n}",
			wantErr: "Default value \"BLUE\" is not a value of enum org.acme.Colour",
		},
		{
			name:    "default on concept field",
			model:   "concept D {}\nconcept C {\n  o D d default=\"x\"\n}",
			wantErr: "Default values are only supported on primitive and enum fields",
		},
		{
			name:  "valid",
			model: "enum Colour {\n  o RED\n}\nconcept C {\n  o Colour c default=\"RED\"\n  o Double d range=[0,10]\n  o String s regex=/^[a-z]+$/ default=\"abc\"\n}",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mm := newManager(t)
			_, err := mm.AddModelFile("namespace org.acme\n"+tt.model, "acme.cto")
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, concerto.IsIllegalModel(err), "%T: %v", err, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Contains(t, err.Error(), "File acme.cto")
			assert.Nil(t, mm.ModelFile("org.acme"))
		})
	}
}

func TestClassDeclaration_ErrorLocation(t *testing.T) {
	mm := newManager(t)
	_, err := mm.AddModelFile("namespace org.acme\n\nasset Car identified by vin {\n  o Integer vin\n}", "acme.cto")
	var ime *concerto.IllegalModelError
	require.ErrorAs(t, err, &ime)
	assert.Equal(t, "acme.cto", ime.File)
	assert.Equal(t, 3, ime.Location.Start.Line)
	assert.Equal(t, 1, ime.Location.Start.Column)
	assert.Equal(t, 5, ime.Location.End.Line)
}

func TestClassDeclaration_SystemRelationshipToTransaction(t *testing.T) {
	mm := newManager(t)
	committed, err := mm.Type("org.hyperledger.composer.system.TransactionCommitted")
	require.NoError(t, err)
	rel := committed.Property("transaction")
	require.IsType(t, &introspect.Relationship{}, rel)
	assert.Equal(t, "org.hyperledger.composer.system.Transaction", rel.FullyQualifiedTypeName())
	assert.NoError(t, committed.Validate())
	assert.Equal(t, "eventId", committed.IdentifierFieldName())
}

const inheritanceModel = `namespace org.acme
import org.acme.base.Vehicle
concept Address {
  o String city
}
participant Person identified by email {
  o String email
  o Address address
}
asset Car identified by vin extends Vehicle {
  o String vin
  --> Person owner
}
asset SportsCar extends Car {
  o Boolean turbo
}
`

const baseModel = `namespace org.acme.base
abstract asset Vehicle {
  o Integer wheels default=4
}
`

func loadInheritance(t *testing.T) *introspect.ModelManager {
	t.Helper()
	mm := newManager(t)
	_, err := mm.AddModelFiles([]string{inheritanceModel, baseModel}, nil)
	require.NoError(t, err)
	return mm
}

func TestClassDeclaration_Inheritance(t *testing.T) {
	mm := loadInheritance(t)
	sports, err := mm.Type("org.acme.SportsCar")
	require.NoError(t, err)

	assert.Equal(t, "org.acme.Car", sports.SuperType())
	assert.Equal(t, "vin", sports.IdentifierFieldName())
	var names []string
	for _, p := range sports.Properties() {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{"turbo", "vin", "owner", "wheels"}, names)
	assert.Len(t, sports.OwnProperties(), 1)

	var chain []string
	for _, st := range sports.AllSuperTypeDeclarations() {
		chain = append(chain, st.FullyQualifiedName())
	}
	assert.Equal(t, []string{"org.acme.Car", "org.acme.base.Vehicle", "org.hyperledger.composer.system.Asset"}, chain)

	wheels, ok := sports.Property("wheels").(*introspect.Field)
	require.True(t, ok)
	assert.Equal(t, int32(4), wheels.DefaultValue())
	assert.Equal(t, "org.acme.base.Vehicle", wheels.Parent().FullyQualifiedName())
}

func TestClassDeclaration_AssignableClassDeclarations(t *testing.T) {
	mm := loadInheritance(t)
	vehicle, err := mm.Type("org.acme.base.Vehicle")
	require.NoError(t, err)
	var names []string
	for _, cd := range vehicle.AssignableClassDeclarations() {
		names = append(names, cd.Name())
	}
	assert.ElementsMatch(t, []string{"Vehicle", "Car", "SportsCar"}, names)

	car, err := mm.Type("org.acme.Car")
	require.NoError(t, err)
	owner := car.Property("owner")
	mf := mm.ModelFile("org.acme")
	assert.True(t, introspect.IsAssignableTo(mf, "org.acme.Person", owner))
	assert.False(t, introspect.IsAssignableTo(mf, "org.acme.Car", owner))
	assert.True(t, introspect.IsAssignableTo(mf, "Integer", car.Property("wheels")))
}

func TestClassDeclaration_NestedProperty(t *testing.T) {
	mm := loadInheritance(t)
	car, err := mm.Type("org.acme.Car")
	require.NoError(t, err)

	p, err := car.NestedProperty("owner.address.city")
	require.NoError(t, err)
	assert.Equal(t, "org.acme.Address.city", p.FullyQualifiedName())

	_, err = car.NestedProperty("owner.nothing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Property nothing does not exist on org.acme.Person")

	_, err = car.NestedProperty("vin.length")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Property vin is a primitive or enum. Invalid property path: vin.length")
}

func TestClassDeclaration_Accessors(t *testing.T) {
	mm := loadInheritance(t)
	person, err := mm.Type("org.acme.Person")
	require.NoError(t, err)
	assert.Equal(t, introspect.KindParticipant, person.Kind())
	assert.True(t, person.IsParticipant())
	assert.True(t, person.IsRelationshipTarget())
	assert.False(t, person.IsSystemType())
	assert.False(t, person.IsAbstract())
	assert.Equal(t, "Participant", person.SystemType())
	assert.Equal(t, "ClassDeclaration {id=org.acme.Person super=Participant enum=false abstract=false}", person.String())

	address := person.Property("address")
	assert.False(t, address.IsPrimitive())
	assert.False(t, address.IsTypeEnum())
	assert.Equal(t, "org.acme.Address", address.FullyQualifiedTypeName())

	mf := mm.ModelFile("org.acme")
	assert.True(t, mf.IsImportedType("Vehicle"))
	assert.True(t, mf.IsImportedType("Asset"))
	assert.True(t, mf.IsLocalType("Car"))
	assert.True(t, mf.IsLocalType("org.acme.Car"))
	assert.False(t, mf.IsLocalType("org.other.Car"))
	fqn, err := mf.ResolveImport("Vehicle")
	require.NoError(t, err)
	assert.Equal(t, "org.acme.base.Vehicle", fqn)
	_, err = mf.ResolveImport("Truck")
	assert.Error(t, err)
	assert.Equal(t, "String", mf.FullyQualifiedTypeName("String"))
	assert.Empty(t, mf.FullyQualifiedTypeName("Truck"))
	assert.Len(t, mf.AssetDeclarations(), 2)
	assert.Len(t, mf.ConceptDeclarations(), 1)
	assert.Contains(t, mf.Imports(), "org.hyperledger.composer.system.Participant")
}

func TestModelFile_Imports(t *testing.T) {
	mm := newManager(t)
	_, err := mm.AddModelFile(baseModel, "base.cto")
	require.NoError(t, err)

	mf, err := mm.AddModelFile(`namespace org.acme.fleet
import org.acme.base.* from https://models.example.com/base.cto
asset Truck identified by plate extends Vehicle {
  o String plate
}`, "fleet.cto")
	require.NoError(t, err)
	assert.Equal(t, "https://models.example.com/base.cto", mf.ImportURI("org.acme.base.*"))
	assert.Equal(t, map[string]string{"org.acme.base.*": "https://models.example.com/base.cto"}, mf.ExternalImports())
	assert.True(t, mf.IsImportedType("Vehicle"))

	_, err = mm.AddModelFile("namespace org.acme.deep\nimport org.acme.**\nasset Bus identified by id extends Vehicle {\n  o String id\n}", "deep.cto")
	require.NoError(t, err)

	_, err = mm.AddModelFile("namespace org.acme.x\nimport org.missing.*\nconcept X {}", "x.cto")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No registered namespace for type org.missing.*")
}

func TestNewModelFile(t *testing.T) {
	mm := newManager(t)
	_, err := introspect.NewModelFile(nil, carModel, "")
	assert.Error(t, err)
	_, err = introspect.NewModelFile(mm, "  ", "")
	assert.Error(t, err)

	mf, err := introspect.NewModelFile(mm, carModel, "@external.cto")
	require.NoError(t, err)
	assert.True(t, mf.IsExternal())
	assert.Equal(t, carModel, mf.Definitions())
	assert.Equal(t, "org.acme", mf.AST().Namespace)
	assert.NoError(t, mf.Validate())
	assert.Nil(t, mm.ModelFile("org.acme"))
}
