// Package plantuml generates a PlantUML class diagram of the model.
package plantuml

import (
	"github.com/syssam/concerto/compiler/gen"
	"github.com/syssam/concerto/introspect"
)

// FileName is the diagram written by the generator.
const FileName = "model.uml"

// stereotypes maps declaration kinds to their spot and colour.
var stereotypes = map[introspect.Kind]string{
	introspect.KindAsset:       " << (A,green) >>",
	introspect.KindParticipant: " << (P,lightblue) >>",
	introspect.KindTransaction: " << (T,yellow) >>",
	introspect.KindEvent:       " << (E,lightyellow) >>",
	introspect.KindEnum:        " << (E,grey) >>",
}

// Generator writes a class diagram.
type Generator struct {
	// Title is written as the diagram title. It defaults to "Model".
	Title string
}

var _ gen.Generator = (*Generator)(nil)

// New returns a PlantUML generator.
func New() *Generator { return &Generator{Title: "Model"} }

// Name implements gen.Generator.
func (*Generator) Name() string { return "plantuml" }

// FileExtension implements gen.Generator.
func (*Generator) FileExtension() string { return ".uml" }

// Visit implements introspect.Visitor.
func (g *Generator) Visit(node any, params introspect.Parameters) (any, error) {
	switch node := node.(type) {
	case *introspect.ModelManager:
		return nil, g.visitModelManager(node, params)
	case *introspect.ModelFile:
		return nil, gen.Each(g, params, node.AllDeclarations())
	case *introspect.ClassDeclaration:
		return nil, g.visitClass(node, params)
	case *introspect.Field:
		return nil, member(params, node, node.Type())
	case *introspect.Relationship:
		return nil, member(params, node, node.Type())
	case *introspect.EnumValue:
		w, err := gen.FileWriterOf(params)
		if err != nil {
			return nil, err
		}
		return nil, w.WriteLine(1, "+ "+node.Name())
	default:
		return nil, gen.Unrecognised(node)
	}
}

func (g *Generator) visitModelManager(mm *introspect.ModelManager, params introspect.Parameters) error {
	w, err := gen.FileWriterOf(params)
	if err != nil {
		return err
	}
	if err := w.OpenFile(FileName); err != nil {
		return err
	}
	lines := []string{"@startuml"}
	if h := gen.HeaderOf(params); h != "" {
		lines = append(lines, "' "+h)
	}
	lines = append(lines, "title", g.Title, "endtitle")
	for _, line := range lines {
		if err := w.WriteLine(0, line); err != nil {
			return err
		}
	}
	if err := gen.Each(g, params, mm.ModelFiles()); err != nil {
		return err
	}
	if err := w.WriteLine(0, "@enduml"); err != nil {
		return err
	}
	return w.CloseFile()
}

func (g *Generator) visitClass(cd *introspect.ClassDeclaration, params introspect.Parameters) error {
	w, err := gen.FileWriterOf(params)
	if err != nil {
		return err
	}
	keyword := "class "
	if cd.IsAbstract() {
		keyword = "abstract class "
	}
	if err := w.WriteLine(0, keyword+cd.FullyQualifiedName()+stereotypes[cd.Kind()]+" {"); err != nil {
		return err
	}
	if err := gen.Each(g, params, cd.OwnProperties()); err != nil {
		return err
	}
	if err := w.WriteLine(0, "}"); err != nil {
		return err
	}
	if st := cd.SuperType(); st != "" {
		return w.WriteLine(0, cd.FullyQualifiedName()+" --|> "+st)
	}
	return nil
}

func member(params introspect.Parameters, p introspect.Property, typ string) error {
	w, err := gen.FileWriterOf(params)
	if err != nil {
		return err
	}
	if p.IsArray() {
		typ += "[]"
	}
	return w.WriteLine(1, "+ "+typ+" "+p.Name())
}
