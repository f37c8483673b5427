// Package graphql generates a GraphQL schema of the model together with a
// gqlgen.yml that binds the schema to the structs of the golang generator.
//
// Abstract declarations become interfaces and concrete declarations become
// object types implementing every abstract ancestor. Inherited properties
// are repeated on each type, relationships are exposed as the identifier of
// the target and every type carries a _class field with its fully qualified
// name. Assets and participants get lookup fields on Query.
package graphql

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/99designs/gqlgen/codegen/templates"
	"github.com/go-openapi/inflect"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/syssam/concerto/compiler/gen"
	"github.com/syssam/concerto/introspect"
	"github.com/syssam/concerto/schema/field"
)

const (
	// SchemaFile is the generated schema.
	SchemaFile = "schema.graphql"
	// ConfigFile is the generated gqlgen configuration.
	ConfigFile = "gqlgen.yml"
	// ClassField holds the fully qualified name of an instance.
	ClassField = "_class"
)

// Scalars declared by the schema and the gqlgen types they bind to.
var scalars = map[string]string{
	"DateTime": "github.com/99designs/gqlgen/graphql.Time",
	"Long":     "github.com/99designs/gqlgen/graphql.Int64",
}

const paramState = "graphql.state"

type state struct {
	sdl     strings.Builder
	cfg     *Config
	pkg     string
	queries []string
}

// Generator writes a GraphQL schema.
type Generator struct{}

var _ gen.Generator = (*Generator)(nil)

// New returns a GraphQL generator.
func New() *Generator { return &Generator{} }

// Name implements gen.Generator.
func (*Generator) Name() string { return "graphql" }

// FileExtension implements gen.Generator.
func (*Generator) FileExtension() string { return ".graphql" }

// Visit implements introspect.Visitor. Properties visit to their GraphQL
// type reference and enum values to their name.
func (g *Generator) Visit(node any, params introspect.Parameters) (any, error) {
	switch node := node.(type) {
	case *introspect.ModelManager:
		return nil, g.visitModelManager(node, params)
	case *introspect.ModelFile:
		return nil, gen.Each(g, params, node.AllDeclarations())
	case *introspect.ClassDeclaration:
		s, err := stateOf(params)
		if err != nil {
			return nil, err
		}
		if node.IsEnum() {
			return nil, g.visitEnum(s, node, params)
		}
		return nil, g.visitClass(s, node, params)
	case *introspect.Field:
		return typeRef(node, fieldType(node)), nil
	case *introspect.Relationship:
		return typeRef(node, "ID"), nil
	case *introspect.EnumValue:
		return node.Name(), nil
	default:
		return nil, gen.Unrecognised(node)
	}
}

func (g *Generator) visitModelManager(mm *introspect.ModelManager, params introspect.Parameters) error {
	s := &state{cfg: NewConfig(SchemaFile), pkg: gen.PackageOf(params, "")}
	params[paramState] = s
	defer delete(params, paramState)

	for _, name := range []string{"DateTime", "Long"} {
		fmt.Fprintf(&s.sdl, "scalar %s\n\n", name)
		s.cfg.SetModel(name, scalars[name])
	}
	namespaces := make([]string, 0, len(mm.ModelFiles()))
	for _, mf := range mm.ModelFiles() {
		namespaces = append(namespaces, mf.Namespace())
		if err := mf.Accept(g, params); err != nil {
			return err
		}
	}
	s.sdl.WriteString("type Query {\n")
	fmt.Fprintf(&s.sdl, "  \"Namespaces of the model, one of %s.\"\n", strings.Join(namespaces, ", "))
	s.sdl.WriteString("  namespaces: [String!]!\n")
	for _, q := range s.queries {
		s.sdl.WriteString(q)
	}
	s.sdl.WriteString("}\n")

	src, err := format(s.sdl.String())
	if err != nil {
		return gen.NewGenerationError(g.Name(), SchemaFile, "invalid schema", err)
	}
	if h := gen.HeaderOf(params); h != "" {
		src = "# " + h + "\n\n" + src
	}
	w, err := gen.FileWriterOf(params)
	if err != nil {
		return err
	}
	if err := writeFile(w, SchemaFile, src); err != nil {
		return err
	}
	data, err := s.cfg.Marshal()
	if err != nil {
		return gen.NewGenerationError(g.Name(), ConfigFile, "encode config", err)
	}
	return writeFile(w, ConfigFile, string(data))
}

func (g *Generator) visitEnum(s *state, cd *introspect.ClassDeclaration, params introspect.Parameters) error {
	fmt.Fprintf(&s.sdl, "%q\nenum %s {\n", cd.Name()+" is an enumeration of "+cd.Namespace()+".", cd.Name())
	for _, p := range cd.OwnProperties() {
		v, err := p.Accept(g, params)
		if err != nil {
			return err
		}
		fmt.Fprintf(&s.sdl, "  %s\n", v)
	}
	s.sdl.WriteString("}\n\n")
	return nil
}

func (g *Generator) visitClass(s *state, cd *introspect.ClassDeclaration, params introspect.Parameters) error {
	keyword := "type"
	if cd.IsAbstract() {
		keyword = "interface"
	}
	fmt.Fprintf(&s.sdl, "%q\n%s %s", description(cd), keyword, cd.Name())
	var ifaces []string
	for _, st := range cd.AllSuperTypeDeclarations() {
		if st.IsAbstract() {
			ifaces = append(ifaces, st.Name())
		}
	}
	if len(ifaces) > 0 {
		fmt.Fprintf(&s.sdl, " implements %s", strings.Join(ifaces, " & "))
	}
	s.sdl.WriteString(" {\n")
	fmt.Fprintf(&s.sdl, "  %s: String!\n", ClassField)
	bind := s.pkg != "" && !cd.IsAbstract()
	for _, p := range cd.Properties() {
		v, err := p.Accept(g, params)
		if err != nil {
			return err
		}
		fmt.Fprintf(&s.sdl, "  %s: %s\n", p.Name(), v)
		if _, ok := p.(*introspect.Relationship); ok && bind {
			s.cfg.SetResolver(cd.Name(), p.Name())
		}
	}
	s.sdl.WriteString("}\n\n")
	if bind {
		s.cfg.SetModel(cd.Name(), s.pkg+"."+templates.ToGo(cd.Name()))
		s.cfg.SetResolver(cd.Name(), ClassField)
	}
	if !cd.IsAbstract() && (cd.IsAsset() || cd.IsParticipant()) {
		s.queries = append(s.queries, queries(cd)...)
	}
	return nil
}

// queries returns the Query fields looking up instances of cd.
func queries(cd *introspect.ClassDeclaration) []string {
	one := templates.LcFirst(cd.Name())
	all := templates.LcFirst(inflect.Pluralize(cd.Name()))
	if all == one {
		all += "List"
	}
	return []string{
		fmt.Sprintf("  %q\n  %s(id: ID!): %s\n", "Returns the "+cd.Name()+" with the given "+cd.IdentifierFieldName()+".", one, cd.Name()),
		fmt.Sprintf("  %q\n  %s: [%s!]!\n", "Returns every "+cd.Name()+".", all, cd.Name()),
	}
}

func description(cd *introspect.ClassDeclaration) string {
	kind := cd.Kind().String()
	if cd.IsAbstract() {
		kind = "abstract " + kind
	}
	article := "a"
	if strings.ContainsRune("aeiou", rune(kind[0])) {
		article = "an"
	}
	return fmt.Sprintf("%s is %s %s of %s.", cd.Name(), article, kind, cd.Namespace())
}

func fieldType(f *introspect.Field) string {
	if f.Name() == f.Parent().IdentifierFieldName() {
		return "ID"
	}
	switch f.PrimitiveType() {
	case field.TypeString:
		return "String"
	case field.TypeDouble:
		return "Float"
	case field.TypeInteger:
		return "Int"
	case field.TypeLong:
		return "Long"
	case field.TypeBoolean:
		return "Boolean"
	case field.TypeDateTime:
		return "DateTime"
	default:
		return introspect.ShortName(f.FullyQualifiedTypeName())
	}
}

// typeRef wraps a named type in list and non-null modifiers.
func typeRef(p introspect.Property, named string) string {
	if p.IsArray() {
		named = "[" + named + "!]"
	}
	if !p.IsOptional() {
		named += "!"
	}
	return named
}

// format validates the schema and prints it in canonical form.
func format(sdl string) (string, error) {
	src := &ast.Source{Name: SchemaFile, Input: sdl}
	if _, err := gqlparser.LoadSchema(src); err != nil {
		return "", err
	}
	doc, err := parser.ParseSchema(src)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	formatter.NewFormatter(&buf).FormatSchemaDocument(doc)
	return buf.String(), nil
}

func stateOf(params introspect.Parameters) (*state, error) {
	s, ok := params[paramState].(*state)
	if !ok {
		return nil, gen.NewConfigError(paramState, nil, "declarations are generated from the model manager")
	}
	return s, nil
}

func writeFile(w gen.FileWriter, name, text string) error {
	if err := w.OpenFile(name); err != nil {
		return err
	}
	if err := gen.WriteText(w, 0, strings.TrimRight(text, "\n")); err != nil {
		return err
	}
	return w.CloseFile()
}
