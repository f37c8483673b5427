// Package loopback generates LoopBack model definitions, one JSON file per
// asset, participant, concept and transaction.
package loopback

import (
	"encoding/json"
	"strings"

	"github.com/go-openapi/inflect"

	"github.com/syssam/concerto/compiler/gen"
	"github.com/syssam/concerto/introspect"
	"github.com/syssam/concerto/resource"
	"github.com/syssam/concerto/schema/field"
)

// Model is a LoopBack model definition.
type Model struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Plural      string              `json:"plural"`
	Base        string              `json:"base,omitempty"`
	IDInjection bool                `json:"idInjection"`
	ForceID     bool                `json:"forceId,omitempty"`
	Options     Options             `json:"options"`
	Properties  map[string]Property `json:"properties"`
	Validations []any               `json:"validations"`
	Relations   map[string]any      `json:"relations"`
	ACLs        []any               `json:"acls"`
	Methods     []any               `json:"methods"`
}

// Options holds the model options.
type Options struct {
	ValidateUpsert bool     `json:"validateUpsert"`
	Composer       Composer `json:"composer"`
}

// Composer describes the declaration a model was generated from.
type Composer struct {
	Type      string `json:"type"`
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
	FQN       string `json:"fqn"`
	Abstract  bool   `json:"abstract"`
}

// Property is the definition of one model property.
type Property = map[string]any

// Generator writes LoopBack models.
type Generator struct {
	// Namespaces names models by fully qualified name instead of short name.
	Namespaces bool
}

var _ gen.Generator = (*Generator)(nil)

// New returns a LoopBack generator.
func New() *Generator { return &Generator{} }

// Name implements gen.Generator.
func (*Generator) Name() string { return "loopback" }

// FileExtension implements gen.Generator.
func (*Generator) FileExtension() string { return ".json" }

// Visit implements introspect.Visitor. It returns []*Model for managers and
// model files, *Model for declarations and Property for properties.
func (g *Generator) Visit(node any, params introspect.Parameters) (any, error) {
	switch node := node.(type) {
	case *introspect.ModelManager:
		var models []*Model
		for _, mf := range node.ModelFiles() {
			m, err := mf.Accept(g, params)
			if err != nil {
				return nil, err
			}
			models = append(models, m.([]*Model)...)
		}
		return models, nil
	case *introspect.ModelFile:
		var models []*Model
		for _, cd := range node.AllDeclarations() {
			if cd.IsEnum() || cd.IsEvent() {
				continue
			}
			m, err := cd.Accept(g, params)
			if err != nil {
				return nil, err
			}
			models = append(models, m.(*Model))
		}
		return models, nil
	case *introspect.ClassDeclaration:
		if node.IsEnum() {
			return g.enum(node), nil
		}
		return g.visitClass(node, params)
	case *introspect.Field:
		return g.visitField(node), nil
	case *introspect.Relationship:
		p := Property{
			"type":        "any",
			"description": "The identifier of an instance of " + node.FullyQualifiedTypeName(),
			"required":    !node.IsOptional(),
		}
		if node.IsArray() {
			p["type"] = []any{"any"}
		}
		return p, nil
	case *introspect.EnumValue:
		return node.Name(), nil
	default:
		return nil, gen.Unrecognised(node)
	}
}

func (g *Generator) visitClass(cd *introspect.ClassDeclaration, params introspect.Parameters) (*Model, error) {
	name := g.name(cd.Name(), cd.FullyQualifiedName())
	kind := cd.Kind().String()
	m := &Model{
		Name:        loopbackify(name),
		Description: article(kind) + " " + kind + " named " + cd.Name(),
		Plural:      inflect.Pluralize(name),
		Base:        "PersistedModel",
		Options: Options{
			ValidateUpsert: true,
			Composer: Composer{
				Type:      kind,
				Namespace: cd.Namespace(),
				Name:      cd.Name(),
				FQN:       cd.FullyQualifiedName(),
				Abstract:  cd.IsAbstract(),
			},
		},
		Properties: map[string]Property{
			resource.ClassKey: {
				"type":        "string",
				"default":     cd.FullyQualifiedName(),
				"required":    false,
				"description": "The class identifier for this type",
			},
		},
		Validations: []any{},
		Relations:   map[string]any{},
		ACLs:        []any{},
		Methods:     []any{},
	}
	if cd.IsConcept() {
		// Concepts cannot exist by themselves.
		m.Base = ""
	}
	for _, p := range cd.Properties() {
		v, err := p.Accept(g, params)
		if err != nil {
			return nil, err
		}
		m.Properties[p.Name()] = v.(Property)
	}
	if cd.IsTransaction() {
		// The identifier is assigned at submission time.
		m.ForceID = true
		if id, ok := m.Properties[cd.IdentifierFieldName()]; ok {
			id["generated"] = true
			id["required"] = false
		}
		if ts, ok := m.Properties["timestamp"]; ok {
			ts["required"] = false
		}
	}
	data, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return nil, gen.NewGenerationError(g.Name(), name, "encode model", err)
	}
	w, err := gen.FileWriterOf(params)
	if err != nil {
		return nil, err
	}
	if err := w.OpenFile(name + g.FileExtension()); err != nil {
		return nil, err
	}
	if err := gen.WriteText(w, 0, string(data)); err != nil {
		return nil, err
	}
	return m, w.CloseFile()
}

func (g *Generator) visitField(f *introspect.Field) Property {
	var p Property
	switch {
	case f.IsPrimitive():
		p = Property{"type": loopbackType(f.PrimitiveType())}
		if f.Name() == f.Parent().IdentifierFieldName() {
			p["id"] = true
			p["description"] = "The instance identifier for this type"
		}
	case f.IsTypeEnum():
		cd := f.ModelFile().Type(f.Type())
		p = g.enum(cd)
	default:
		fqn := f.FullyQualifiedTypeName()
		p = Property{"type": loopbackify(g.name(introspect.ShortName(fqn), fqn))}
	}
	if d := f.DefaultValue(); d != nil {
		p["default"] = d
	}
	if f.IsArray() {
		// LoopBack cannot tell a missing required array from an empty one.
		p["type"] = []any{p["type"]}
		p["default"] = []any{}
		p["required"] = false
	} else {
		p["required"] = !f.IsOptional()
	}
	return p
}

func (g *Generator) enum(cd *introspect.ClassDeclaration) Property {
	values := make([]any, 0, len(cd.OwnProperties()))
	for _, p := range cd.OwnProperties() {
		values = append(values, p.Name())
	}
	return Property{"type": "string", "enum": values}
}

func (g *Generator) name(short, fqn string) string {
	if g.Namespaces {
		return fqn
	}
	return short
}

func loopbackType(t field.Type) string {
	switch t {
	case field.TypeDouble, field.TypeInteger, field.TypeLong:
		return "number"
	case field.TypeDateTime:
		return "date"
	case field.TypeBoolean:
		return "boolean"
	default:
		return "string"
	}
}

func loopbackify(name string) string {
	return strings.ReplaceAll(name, ".", "_")
}

func article(kind string) string {
	if strings.ContainsRune("aeiou", rune(kind[0])) {
		return "An"
	}
	return "A"
}
