// Package java generates Java classes, one source file per declaration,
// annotated for Jackson serialization.
package java

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/syssam/concerto/compiler/gen"
	"github.com/syssam/concerto/introspect"
	"github.com/syssam/concerto/schema/field"
)

// ResourceFile is the base class of all identified system types.
var ResourceFile = strings.ReplaceAll(introspect.SystemNamespace, ".", "/") + "/Resource.java"

const banner = "// this code is generated and should not be modified"

const resourceClass = `@JsonTypeInfo(use = JsonTypeInfo.Id.CLASS, property = "$class")
@JsonIdentityInfo(generator = ObjectIdGenerators.PropertyGenerator.class, property = "$id")
public abstract class Resource
{
  public abstract String getID();
  private String $id;

  @JsonProperty("$id")
  public String get$id() {
    return $id;
  }

  @JsonProperty("$id")
  public void set$id(String i) {
    $id = i;
  }
}`

// Generator writes Java sources.
type Generator struct {
	title cases.Caser
}

var _ gen.Generator = (*Generator)(nil)

// New returns a Java generator.
func New() *Generator {
	return &Generator{title: cases.Title(language.English, cases.NoLower)}
}

// Name implements gen.Generator.
func (*Generator) Name() string { return "java" }

// FileExtension implements gen.Generator.
func (*Generator) FileExtension() string { return ".java" }

// Visit implements introspect.Visitor.
func (g *Generator) Visit(node any, params introspect.Parameters) (any, error) {
	switch node := node.(type) {
	case *introspect.ModelManager:
		if err := g.writeResource(params); err != nil {
			return nil, err
		}
		return nil, gen.Each(g, params, node.ModelFiles())
	case *introspect.ModelFile:
		return nil, gen.Each(g, params, node.AllDeclarations())
	case *introspect.ClassDeclaration:
		if node.IsEnum() {
			return nil, g.visitEnum(node, params)
		}
		return nil, g.visitClass(node, params)
	case *introspect.Field:
		return nil, g.member(params, node, javaType(node))
	case *introspect.Relationship:
		return nil, g.member(params, node, introspect.ShortName(node.FullyQualifiedTypeName()))
	case *introspect.EnumValue:
		w, err := gen.FileWriterOf(params)
		if err != nil {
			return nil, err
		}
		return nil, w.WriteLine(1, node.Name()+",")
	default:
		return nil, gen.Unrecognised(node)
	}
}

func (g *Generator) writeResource(params introspect.Parameters) error {
	w, err := gen.FileWriterOf(params)
	if err != nil {
		return err
	}
	if err := g.start(w, params, ResourceFile, introspect.SystemNamespace); err != nil {
		return err
	}
	if err := w.WriteLine(0, "import com.fasterxml.jackson.annotation.*;"); err != nil {
		return err
	}
	if err := w.WriteLine(0, ""); err != nil {
		return err
	}
	if err := gen.WriteText(w, 0, resourceClass); err != nil {
		return err
	}
	return w.CloseFile()
}

// FileName returns the source file of a declaration.
func FileName(cd *introspect.ClassDeclaration) string {
	return strings.ReplaceAll(cd.Namespace(), ".", "/") + "/" + cd.Name() + ".java"
}

func (g *Generator) start(w gen.FileWriter, params introspect.Parameters, name, pkg string) error {
	if err := w.OpenFile(name); err != nil {
		return err
	}
	if h := gen.HeaderOf(params); h != "" {
		if err := w.WriteLine(0, "// "+h); err != nil {
			return err
		}
	}
	if err := w.WriteLine(0, banner); err != nil {
		return err
	}
	if err := w.WriteLine(0, "package "+pkg+";"); err != nil {
		return err
	}
	return w.WriteLine(0, "")
}

func (g *Generator) visitEnum(cd *introspect.ClassDeclaration, params introspect.Parameters) error {
	w, err := gen.FileWriterOf(params)
	if err != nil {
		return err
	}
	if err := g.start(w, params, FileName(cd), cd.Namespace()); err != nil {
		return err
	}
	for _, line := range []string{
		"import com.fasterxml.jackson.annotation.JsonIgnoreProperties;",
		"",
		`@JsonIgnoreProperties({"$class"})`,
		"public enum " + cd.Name() + " {",
	} {
		if err := w.WriteLine(0, line); err != nil {
			return err
		}
	}
	if err := gen.Each(g, params, cd.OwnProperties()); err != nil {
		return err
	}
	if err := w.WriteLine(0, "}"); err != nil {
		return err
	}
	return w.CloseFile()
}

func (g *Generator) visitClass(cd *introspect.ClassDeclaration, params introspect.Parameters) error {
	w, err := gen.FileWriterOf(params)
	if err != nil {
		return err
	}
	if err := g.start(w, params, FileName(cd), cd.Namespace()); err != nil {
		return err
	}
	lines := []string{"import " + introspect.SystemNamespace + ".*;"}
	for _, imp := range imports(cd) {
		lines = append(lines, "import "+imp+";")
	}
	lines = append(lines, "import com.fasterxml.jackson.annotation.*;", "")
	if cd.IsConcept() {
		lines = append(lines, `@JsonIgnoreProperties({"$class"})`)
	}
	decl := "public "
	if cd.IsAbstract() {
		decl += "abstract "
	}
	decl += "class " + cd.Name()
	switch {
	case cd.SuperType() != "":
		decl += " extends " + introspect.ShortName(cd.SuperType())
	case cd.IsSystemCoreType():
		decl += " extends " + introspect.SystemNamespace + ".Resource"
	}
	lines = append(lines, decl+" {")
	for _, line := range lines {
		if err := w.WriteLine(0, line); err != nil {
			return err
		}
	}
	if err := gen.Each(g, params, cd.OwnProperties()); err != nil {
		return err
	}
	if id := cd.IdentifierFieldName(); id != "" {
		if err := w.WriteLine(0, ""); err != nil {
			return err
		}
		if err := g.method(w, "// the accessor for the identifying field", "public String getID() {", "return get"+g.title.String(id)+"();"); err != nil {
			return err
		}
	}
	for _, p := range cd.OwnProperties() {
		if err := g.accessors(w, p); err != nil {
			return err
		}
	}
	if err := w.WriteLine(0, "}"); err != nil {
		return err
	}
	return w.CloseFile()
}

func (g *Generator) member(params introspect.Parameters, p introspect.Property, typ string) error {
	w, err := gen.FileWriterOf(params)
	if err != nil {
		return err
	}
	if p.IsArray() {
		typ += "[]"
	}
	return w.WriteLine(1, "private "+typ+" "+p.Name()+";")
}

// accessors writes the getter and setter of p.
func (g *Generator) accessors(w gen.FileWriter, p introspect.Property) error {
	typ := introspect.ShortName(p.FullyQualifiedTypeName())
	if f, ok := p.(*introspect.Field); ok {
		typ = javaType(f)
	}
	if p.IsArray() {
		typ += "[]"
	}
	name := g.title.String(p.Name())
	if err := w.WriteLine(0, ""); err != nil {
		return err
	}
	if err := g.method(w, "", "public "+typ+" get"+name+"() {", "return this."+p.Name()+";"); err != nil {
		return err
	}
	if err := w.WriteLine(0, ""); err != nil {
		return err
	}
	return g.method(w, "", "public void set"+name+"("+typ+" "+p.Name()+") {", "this."+p.Name()+" = "+p.Name()+";")
}

func (g *Generator) method(w gen.FileWriter, comment, signature, body string) error {
	if comment != "" {
		if err := w.WriteLine(1, comment); err != nil {
			return err
		}
	}
	if err := w.WriteLine(1, signature); err != nil {
		return err
	}
	if err := w.WriteLine(2, body); err != nil {
		return err
	}
	return w.WriteLine(1, "}")
}

// imports returns the fully qualified names of the types cd references
// from other namespaces, sorted.
func imports(cd *introspect.ClassDeclaration) []string {
	var out []string
	add := func(fqn string) {
		ns := introspect.NamespaceOf(fqn)
		if ns == "" || ns == cd.Namespace() || introspect.IsSystemNamespace(ns) || slices.Contains(out, fqn) {
			return
		}
		out = append(out, fqn)
	}
	if st := cd.SuperType(); st != "" {
		add(st)
	}
	for _, p := range cd.OwnProperties() {
		if !p.IsPrimitive() {
			add(p.FullyQualifiedTypeName())
		}
	}
	slices.Sort(out)
	return out
}

func javaType(f *introspect.Field) string {
	switch f.PrimitiveType() {
	case field.TypeDateTime:
		return "java.util.Date"
	case field.TypeBoolean:
		return "boolean"
	case field.TypeString:
		return "String"
	case field.TypeDouble:
		return "double"
	case field.TypeLong:
		return "long"
	case field.TypeInteger:
		return "int"
	default:
		return introspect.ShortName(f.FullyQualifiedTypeName())
	}
}
