package golang_test

import (
	"go/ast"
	"go/parser"
	"go/token"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/concerto"
	"github.com/syssam/concerto/compiler/gen"
	"github.com/syssam/concerto/compiler/gen/golang"
	"github.com/syssam/concerto/compiler/gen/internal/gentest"
	"github.com/syssam/concerto/introspect"
)

func TestGenerator(t *testing.T) {
	w := gentest.Run(t, gentest.Manager(t), golang.New(), gen.WithPackage("github.com/acme/fleet"), gen.WithHeader("Fleet models."))
	assert.Equal(t, []string{
		"concerto.go",
		"org_acme_people.go",
		"org_acme_vehicle.go",
		"org_hyperledger_composer_system.go",
	}, w.Names())

	for _, name := range w.Names() {
		src, _ := w.File(name)
		_, err := parser.ParseFile(token.NewFileSet(), name, src, parser.ParseComments)
		require.NoError(t, err, "%s:\n%s", name, src)
		assert.Regexp(t, `(?m)^package fleet$`, src)
		assert.Contains(t, src, "// Fleet models.")
		assert.Contains(t, src, "// Code generated by concerto. DO NOT EDIT.")
	}

	vehicle, _ := w.File("org_acme_vehicle.go")
	for _, want := range []string{
		`(?m)^type Colour string$`,
		`ColourRed\s+Colour = "RED"`,
		`(?m)^type Vehicle struct \{\n\tMachine\n`,
		`(?m)^type Machine struct \{\n\tAsset\n`,
		`Built\s+time\.Time\s+` + "`json:\"built\"`",
		`Weight\s+float64\s+` + "`json:\"weight,omitempty\"`",
		`Mileage\s+int64`,
		`Engine\s+Engine`,
		`Tags\s+\[\]string`,
		`Owner\s+Relationship\s+`,
		`Drivers\s+\[\]Relationship\s+` + "`json:\"drivers,omitempty\"`",
		`Cylinders\s+int32`,
		`"time"`,
		`// Vehicle is an asset of org\.acme\.vehicle\.`,
		`// Machine is an abstract asset of org\.acme\.vehicle\.`,
		`// Sold is an event of org\.acme\.vehicle\.`,
	} {
		assert.Regexp(t, regexp.MustCompile(want), vehicle)
	}

	system, _ := w.File("org_hyperledger_composer_system.go")
	assert.Regexp(t, `TransactionID\s+string\s+`+"`json:\"transactionId\"`", system)
	assert.Regexp(t, `(?m)^type Asset struct\{\}$`, system)

	runtime, _ := w.File(golang.RuntimeFile)
	assert.Contains(t, runtime, "func (r Relationship) MarshalText() ([]byte, error)")
	assert.Contains(t, runtime, "func (r *Relationship) UnmarshalText(b []byte) error")
	assert.Contains(t, runtime, `"net/url"`)
}

func TestGenerator_DefaultPackage(t *testing.T) {
	w := gentest.Run(t, gentest.Manager(t), golang.New())
	src, ok := w.File("org_acme_people.go")
	require.True(t, ok)
	assert.Regexp(t, `(?m)^package models$`, src)
	assert.Regexp(t, `Nicknames\s+\[\]string`, src)
}

func TestGenerator_NameCollision(t *testing.T) {
	mm, err := introspect.NewModelManager()
	require.NoError(t, err)
	_, err = mm.AddModelFiles([]string{
		"namespace org.a\n\nenum Colour {\n  o RED\n}\n\nconcept Car {\n  o Colour colour\n}\n\nconcept Relationship {\n  o String kind\n}",
		"namespace org.b\n\nenum Colour {\n  o BLUE\n}\n\nabstract concept Car {\n  o Colour colour\n}\n\nconcept Van extends Car {\n  o org.a.Car towing optional\n}",
	}, []string{"a.cto", "b.cto"})
	require.NoError(t, err)

	w := gentest.Run(t, mm, golang.New())
	declared := map[string]string{}
	for _, name := range w.Names() {
		src, _ := w.File(name)
		f, err := parser.ParseFile(token.NewFileSet(), name, src, 0)
		require.NoError(t, err, "%s:\n%s", name, src)
		ast.Inspect(f, func(n ast.Node) bool {
			var ident *ast.Ident
			switch n := n.(type) {
			case *ast.TypeSpec:
				ident = n.Name
			case *ast.ValueSpec:
				ident = n.Names[0]
			default:
				return true
			}
			prev, dup := declared[ident.Name]
			assert.False(t, dup, "%s declared in %s and %s", ident.Name, prev, name)
			declared[ident.Name] = name
			return true
		})
	}

	a, _ := w.File("org_a.go")
	for _, want := range []string{
		`(?m)^type OrgAColour string$`,
		`OrgAColourRed\s+OrgAColour = "RED"`,
		`(?m)^type OrgACar struct \{\n\tColour\s+OrgAColour\s+`,
		`(?m)^type OrgARelationship struct \{`,
	} {
		assert.Regexp(t, regexp.MustCompile(want), a)
	}
	b, _ := w.File("org_b.go")
	for _, want := range []string{
		`(?m)^type OrgBColour string$`,
		`(?m)^type OrgBCar struct \{\n\tColour\s+OrgBColour\s+`,
		`(?m)^type Van struct \{\n\tOrgBCar\n\tTowing\s+OrgACar\s+`,
	} {
		assert.Regexp(t, regexp.MustCompile(want), b)
	}
}

func TestGenerator_Unrecognised(t *testing.T) {
	g := golang.New()
	assert.Equal(t, "golang", g.Name())
	assert.Equal(t, ".go", g.FileExtension())
	_, err := g.Visit("nope", nil)
	assert.ErrorIs(t, err, concerto.ErrUnrecognisedType)
}
