// Package typescript generates TypeScript classes and enums, one module
// per namespace.
package typescript

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/syssam/concerto/compiler/gen"
	"github.com/syssam/concerto/introspect"
	"github.com/syssam/concerto/schema/field"
)

// Generator writes TypeScript modules.
type Generator struct {
	title cases.Caser
}

var _ gen.Generator = (*Generator)(nil)

// New returns a TypeScript generator.
func New() *Generator {
	return &Generator{title: cases.Title(language.English, cases.NoLower)}
}

// Name implements gen.Generator.
func (*Generator) Name() string { return "typescript" }

// FileExtension implements gen.Generator.
func (*Generator) FileExtension() string { return ".ts" }

// Visit implements introspect.Visitor.
func (g *Generator) Visit(node any, params introspect.Parameters) (any, error) {
	switch node := node.(type) {
	case *introspect.ModelManager:
		return nil, gen.Each(g, params, node.ModelFiles())
	case *introspect.ModelFile:
		return nil, g.visitModelFile(node, params)
	case *introspect.ClassDeclaration:
		if node.IsEnum() {
			return nil, g.visitEnum(node, params)
		}
		return nil, g.visitClass(node, params)
	case *introspect.Field:
		return nil, g.member(params, node, tsType(node))
	case *introspect.Relationship:
		return nil, g.member(params, node, introspect.ShortName(node.FullyQualifiedTypeName()))
	case *introspect.EnumValue:
		w, err := gen.FileWriterOf(params)
		if err != nil {
			return nil, err
		}
		return nil, w.WriteLine(2, node.Name()+" = '"+node.Name()+"',")
	default:
		return nil, gen.Unrecognised(node)
	}
}

func (g *Generator) visitModelFile(mf *introspect.ModelFile, params introspect.Parameters) error {
	w, err := gen.FileWriterOf(params)
	if err != nil {
		return err
	}
	if err := w.OpenFile(mf.Namespace() + g.FileExtension()); err != nil {
		return err
	}
	if h := gen.HeaderOf(params); h != "" {
		if err := w.WriteLine(0, "// "+h); err != nil {
			return err
		}
	}
	for _, imp := range imports(mf) {
		if err := w.WriteLine(0, imp); err != nil {
			return err
		}
	}
	if err := w.WriteLine(0, "// export namespace "+mf.Namespace()+"{"); err != nil {
		return err
	}
	if err := gen.Each(g, params, mf.AllDeclarations()); err != nil {
		return err
	}
	if err := w.WriteLine(0, "// }"); err != nil {
		return err
	}
	return w.CloseFile()
}

func (g *Generator) visitEnum(cd *introspect.ClassDeclaration, params introspect.Parameters) error {
	w, err := gen.FileWriterOf(params)
	if err != nil {
		return err
	}
	if err := w.WriteLine(1, "export enum "+cd.Name()+" {"); err != nil {
		return err
	}
	if err := gen.Each(g, params, cd.OwnProperties()); err != nil {
		return err
	}
	return w.WriteLine(1, "}")
}

func (g *Generator) visitClass(cd *introspect.ClassDeclaration, params introspect.Parameters) error {
	w, err := gen.FileWriterOf(params)
	if err != nil {
		return err
	}
	decl := "export "
	if cd.IsAbstract() {
		decl += "abstract "
	}
	decl += "class " + cd.Name()
	if st := cd.SuperType(); st != "" {
		decl += " extends " + introspect.ShortName(st)
	}
	if err := w.WriteLine(1, decl+" {"); err != nil {
		return err
	}
	if err := gen.Each(g, params, cd.OwnProperties()); err != nil {
		return err
	}
	if id := cd.IdentifierFieldName(); id != "" && cd.OwnProperty(id) != nil {
		if err := w.WriteLine(2, "get"+g.title.String(id)+"(): string {"); err != nil {
			return err
		}
		if err := w.WriteLine(3, "return this."+id+";"); err != nil {
			return err
		}
		if err := w.WriteLine(2, "}"); err != nil {
			return err
		}
	}
	return w.WriteLine(1, "}")
}

func (g *Generator) member(params introspect.Parameters, p introspect.Property, typ string) error {
	w, err := gen.FileWriterOf(params)
	if err != nil {
		return err
	}
	name := p.Name()
	if p.IsOptional() {
		name += "?"
	}
	if p.IsArray() {
		typ += "[]"
	}
	return w.WriteLine(2, name+": "+typ+";")
}

// imports returns the import statements of mf: the system types every
// user model extends, then the types referenced from other namespaces.
func imports(mf *introspect.ModelFile) []string {
	var out []string
	if !mf.IsSystemModelFile() {
		for _, st := range mf.ModelManager().SystemTypes() {
			out = append(out, "import {"+st.Name()+"} from './"+introspect.SystemNamespace+"';")
		}
	}
	byNamespace := map[string][]string{}
	for _, cd := range mf.AllDeclarations() {
		if cd.IsEnum() {
			continue
		}
		for _, p := range cd.Properties() {
			if p.IsPrimitive() {
				continue
			}
			fqn := p.FullyQualifiedTypeName()
			ns := introspect.NamespaceOf(fqn)
			if ns == mf.Namespace() || introspect.IsSystemNamespace(ns) {
				continue
			}
			if name := introspect.ShortName(fqn); !slices.Contains(byNamespace[ns], name) {
				byNamespace[ns] = append(byNamespace[ns], name)
			}
		}
	}
	namespaces := make([]string, 0, len(byNamespace))
	for ns := range byNamespace {
		namespaces = append(namespaces, ns)
	}
	slices.Sort(namespaces)
	for _, ns := range namespaces {
		names := byNamespace[ns]
		slices.Sort(names)
		out = append(out, "import {"+strings.Join(names, ",")+"} from './"+ns+"';")
	}
	return out
}

func tsType(f *introspect.Field) string {
	switch f.PrimitiveType() {
	case field.TypeDateTime:
		return "Date"
	case field.TypeBoolean:
		return "boolean"
	case field.TypeString:
		return "string"
	case field.TypeDouble, field.TypeLong, field.TypeInteger:
		return "number"
	default:
		return introspect.ShortName(f.FullyQualifiedTypeName())
	}
}
