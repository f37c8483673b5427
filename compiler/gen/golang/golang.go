// Package golang generates Go structs from model declarations.
//
// All namespaces share one Go package; each model file becomes one source
// file. Declarations are named by their short name unless that name is
// declared in more than one namespace (or clashes with Relationship), in
// which case the namespace is prefixed: org.a.Car becomes OrgACar. Super
// types are embedded, enums become string types and relationships use a
// generated Relationship type that marshals to the resource URI form.
package golang

import (
	"bytes"
	"path"
	"strings"

	"github.com/99designs/gqlgen/codegen/templates"
	"github.com/dave/jennifer/jen"

	"github.com/syssam/concerto/compiler/gen"
	"github.com/syssam/concerto/introspect"
	"github.com/syssam/concerto/schema/field"
)

// DefaultPackage is used when no package is configured.
const DefaultPackage = "models"

// RuntimeFile holds the types shared by all namespaces.
const RuntimeFile = "concerto.go"

// Generator writes Go sources.
type Generator struct{}

var _ gen.Generator = (*Generator)(nil)

// New returns a Go generator.
func New() *Generator { return &Generator{} }

// Name implements gen.Generator.
func (*Generator) Name() string { return "golang" }

// FileExtension implements gen.Generator.
func (*Generator) FileExtension() string { return ".go" }

// Visit implements introspect.Visitor.
func (g *Generator) Visit(node any, params introspect.Parameters) (any, error) {
	switch node := node.(type) {
	case *introspect.ModelManager:
		return nil, g.visitModelManager(node, params)
	case *introspect.ModelFile:
		return nil, g.visitModelFile(node, params)
	case *introspect.ClassDeclaration:
		if node.IsEnum() {
			return g.visitEnum(node, params)
		}
		return g.visitClass(node, params)
	case *introspect.Field:
		return g.visitField(node, params), nil
	case *introspect.Relationship:
		return g.visitRelationship(node), nil
	case *introspect.EnumValue:
		enum := namesOf(params).of(node.Parent().FullyQualifiedName())
		return jen.Id(enum + templates.ToGo(node.Name())).Id(enum).Op("=").Lit(node.Name()), nil
	default:
		return nil, gen.Unrecognised(node)
	}
}

func (g *Generator) visitModelManager(mm *introspect.ModelManager, params introspect.Parameters) error {
	params[paramNames] = goNames(mm.ClassDeclarations())
	f := newFile(params)
	relationship(f)
	if err := render(f, RuntimeFile, params); err != nil {
		return err
	}
	return gen.Each(g, params, mm.ModelFiles())
}

func (g *Generator) visitModelFile(mf *introspect.ModelFile, params introspect.Parameters) error {
	f := newFile(params)
	f.PackageComment("Types of namespace " + mf.Namespace() + ".")
	for _, decl := range mf.AllDeclarations() {
		code, err := decl.Accept(g, params)
		if err != nil {
			return err
		}
		f.Add(code.(jen.Code))
		f.Line()
	}
	return render(f, FileName(mf.Namespace()), params)
}

func (g *Generator) visitEnum(cd *introspect.ClassDeclaration, params introspect.Parameters) (jen.Code, error) {
	defs := make([]jen.Code, 0, len(cd.OwnProperties()))
	for _, p := range cd.OwnProperties() {
		code, err := p.Accept(g, params)
		if err != nil {
			return nil, err
		}
		defs = append(defs, code.(jen.Code))
	}
	name := namesOf(params).of(cd.FullyQualifiedName())
	return jen.Commentf("%s is an enumeration of %s.", name, cd.Namespace()).Line().
		Type().Id(name).String().Line().Line().
		Const().Defs(defs...), nil
}

func (g *Generator) visitClass(cd *introspect.ClassDeclaration, params introspect.Parameters) (jen.Code, error) {
	names := namesOf(params)
	var fields []jen.Code
	if st := cd.SuperType(); st != "" {
		fields = append(fields, jen.Id(names.of(st)))
	}
	for _, p := range cd.OwnProperties() {
		code, err := p.Accept(g, params)
		if err != nil {
			return nil, err
		}
		fields = append(fields, code.(jen.Code))
	}
	name := names.of(cd.FullyQualifiedName())
	return jen.Commentf("%s is %s %s of %s.", name, article(cd), kindOf(cd), cd.Namespace()).Line().
		Type().Id(name).Struct(fields...), nil
}

func (g *Generator) visitField(f *introspect.Field, params introspect.Parameters) jen.Code {
	t := goType(f, namesOf(params))
	if f.IsArray() {
		t = jen.Index().Add(t)
	}
	return jen.Id(templates.ToGo(f.Name())).Add(t).Tag(tags(f))
}

func (g *Generator) visitRelationship(r *introspect.Relationship) jen.Code {
	t := jen.Id("Relationship")
	if r.IsArray() {
		t = jen.Index().Id("Relationship")
	}
	return jen.Id(templates.ToGo(r.Name())).Add(t).Tag(tags(r))
}

// goType maps a field type to Go.
func goType(f *introspect.Field, names typeNames) *jen.Statement {
	switch f.PrimitiveType() {
	case field.TypeString:
		return jen.String()
	case field.TypeDouble:
		return jen.Float64()
	case field.TypeInteger:
		return jen.Int32()
	case field.TypeLong:
		return jen.Int64()
	case field.TypeBoolean:
		return jen.Bool()
	case field.TypeDateTime:
		return jen.Qual("time", "Time")
	default:
		return jen.Id(names.of(f.FullyQualifiedTypeName()))
	}
}

func tags(p introspect.Property) map[string]string {
	name := p.Name()
	if p.IsOptional() {
		name += ",omitempty"
	}
	return map[string]string{"json": name}
}

// relationship declares the Relationship type and its text encoding.
func relationship(f *jen.File) {
	r := jen.Id("r")
	f.Comment("Relationship points at an identified resource. It marshals to")
	f.Comment("resource:<namespace>.<type>#<id>.")
	f.Type().Id("Relationship").Struct(
		jen.Id("Namespace").String(),
		jen.Id("Type").String(),
		jen.Id("ID").String(),
	)
	f.Line()
	f.Comment("String returns the relationship URI.")
	f.Func().Params(r.Clone().Id("Relationship")).Id("String").Params().String().Block(
		jen.Return(jen.Lit("resource:").
			Op("+").Add(r.Clone().Dot("Namespace")).
			Op("+").Lit(".").
			Op("+").Add(r.Clone().Dot("Type")).
			Op("+").Lit("#").
			Op("+").Qual("net/url", "PathEscape").Call(r.Clone().Dot("ID"))),
	)
	f.Line()
	f.Comment("MarshalText implements encoding.TextMarshaler.")
	f.Func().Params(r.Clone().Id("Relationship")).Id("MarshalText").Params().Params(jen.Index().Byte(), jen.Error()).Block(
		jen.Return(jen.Index().Byte().Parens(r.Clone().Dot("String").Call()), jen.Nil()),
	)
	f.Line()
	invalid := jen.Return(jen.Qual("fmt", "Errorf").Call(jen.Lit("invalid relationship %q"), jen.Id("b")))
	f.Comment("UnmarshalText implements encoding.TextUnmarshaler.")
	f.Func().Params(r.Clone().Op("*").Id("Relationship")).Id("UnmarshalText").Params(jen.Id("b").Index().Byte()).Error().Block(
		jen.List(jen.Id("s"), jen.Id("ok")).Op(":=").Qual("strings", "CutPrefix").Call(jen.String().Parens(jen.Id("b")), jen.Lit("resource:")),
		jen.If(jen.Op("!").Id("ok")).Block(invalid.Clone()),
		jen.List(jen.Id("fqn"), jen.Id("id"), jen.Id("ok")).Op(":=").Qual("strings", "Cut").Call(jen.Id("s"), jen.Lit("#")),
		jen.Id("i").Op(":=").Qual("strings", "LastIndexByte").Call(jen.Id("fqn"), jen.LitByte('.')),
		jen.If(jen.Op("!").Id("ok").Op("||").Id("i").Op("<").Lit(0)).Block(invalid.Clone()),
		jen.List(jen.Id("id"), jen.Err()).Op(":=").Qual("net/url", "PathUnescape").Call(jen.Id("id")),
		jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Err())),
		jen.List(r.Clone().Dot("Namespace"), r.Clone().Dot("Type"), r.Clone().Dot("ID")).Op("=").
			List(jen.Id("fqn").Index(jen.Empty(), jen.Id("i")), jen.Id("fqn").Index(jen.Id("i").Op("+").Lit(1), jen.Empty()), jen.Id("id")),
		jen.Return(jen.Nil()),
	)
}

// TypeName returns the Go name of a declaration.
func TypeName(name string) string { return templates.ToGo(name) }

// paramNames holds the typeNames of the model manager being generated.
const paramNames = "golang.names"

// typeNames maps fully qualified declaration names to Go type names.
type typeNames map[string]string

// goNames names every declaration, prefixing the namespace of those whose
// short Go name is not unique in the package.
func goNames(decls []*introspect.ClassDeclaration) typeNames {
	count := map[string]int{"Relationship": 1}
	for _, cd := range decls {
		count[TypeName(cd.Name())]++
	}
	names := make(typeNames, len(decls))
	for _, cd := range decls {
		name := TypeName(cd.Name())
		if count[name] > 1 {
			name = templates.ToGo(strings.ReplaceAll(cd.Namespace(), ".", "_")) + name
		}
		names[cd.FullyQualifiedName()] = name
	}
	return names
}

func namesOf(params introspect.Parameters) typeNames {
	names, _ := params[paramNames].(typeNames)
	return names
}

// of returns the Go name of fqn, falling back to its short name.
func (n typeNames) of(fqn string) string {
	if name, ok := n[fqn]; ok {
		return name
	}
	return TypeName(introspect.ShortName(fqn))
}

// FileName returns the file generated for a namespace.
func FileName(namespace string) string {
	return strings.ReplaceAll(namespace, ".", "_") + ".go"
}

func newFile(params introspect.Parameters) *jen.File {
	f := jen.NewFile(path.Base(gen.PackageOf(params, DefaultPackage)))
	if h := gen.HeaderOf(params); h != "" {
		f.HeaderComment(h)
	}
	f.HeaderComment("Code generated by concerto. DO NOT EDIT.")
	return f
}

// render writes a jennifer file through the FileWriter in params.
func render(f *jen.File, name string, params introspect.Parameters) error {
	w, err := gen.FileWriterOf(params)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return gen.NewGenerationError("golang", name, "render", err)
	}
	if err := w.OpenFile(name); err != nil {
		return err
	}
	if err := gen.WriteText(w, 0, buf.String()); err != nil {
		return err
	}
	return w.CloseFile()
}

func kindOf(cd *introspect.ClassDeclaration) string {
	s := cd.Kind().String()
	if cd.IsAbstract() {
		s = "abstract " + s
	}
	return s
}

func article(cd *introspect.ClassDeclaration) string {
	switch kindOf(cd)[0] {
	case 'a', 'e':
		return "an"
	}
	return "a"
}
