// Package jsonschema generates a draft-04 JSON Schema for every concrete
// class declaration.
package jsonschema

import (
	"encoding/json"

	"github.com/syssam/concerto/compiler/gen"
	"github.com/syssam/concerto/introspect"
	"github.com/syssam/concerto/resource"
	"github.com/syssam/concerto/schema/field"
)

// Draft is the $schema of every top level schema.
const Draft = "http://json-schema.org/draft-04/schema#"

// Schema is a JSON Schema document.
type Schema = map[string]any

// visitingKey holds the declarations on the current path, breaking cycles
// between concepts that refer to each other.
const visitingKey = "jsonschema.visiting"

// Generator writes one <fqn>.json file per concrete declaration. Visit
// returns the schemas it builds: []Schema for managers and model files,
// Schema for declarations and properties.
type Generator struct{}

var _ gen.Generator = (*Generator)(nil)

// New returns a JSON Schema generator.
func New() *Generator { return &Generator{} }

// Name implements gen.Generator.
func (*Generator) Name() string { return "jsonschema" }

// FileExtension implements gen.Generator.
func (*Generator) FileExtension() string { return ".json" }

// Visit implements introspect.Visitor.
func (g *Generator) Visit(node any, params introspect.Parameters) (any, error) {
	switch node := node.(type) {
	case *introspect.ModelManager:
		var schemas []Schema
		for _, mf := range node.ModelFiles() {
			s, err := mf.Accept(g, params)
			if err != nil {
				return nil, err
			}
			schemas = append(schemas, s.([]Schema)...)
		}
		return schemas, nil
	case *introspect.ModelFile:
		return g.visitModelFile(node, params)
	case *introspect.ClassDeclaration:
		if node.IsEnum() {
			return g.visitEnum(node, params)
		}
		return g.visitClass(node, params, false)
	case *introspect.Field:
		return g.visitField(node, params)
	case *introspect.Relationship:
		s := Schema{
			"type":        "string",
			"description": "The identifier of an instance of " + node.FullyQualifiedTypeName(),
		}
		return array(node, s), nil
	case *introspect.EnumValue:
		return node.Name(), nil
	default:
		return nil, gen.Unrecognised(node)
	}
}

func (g *Generator) visitModelFile(mf *introspect.ModelFile, params introspect.Parameters) ([]Schema, error) {
	var schemas []Schema
	for _, cd := range mf.AllDeclarations() {
		if cd.IsAbstract() || cd.IsEnum() {
			continue
		}
		s, err := g.visitClass(cd, params, true)
		if err != nil {
			return nil, err
		}
		if err := write(params, cd.FullyQualifiedName()+".json", s); err != nil {
			return nil, err
		}
		schemas = append(schemas, s)
	}
	return schemas, nil
}

func (g *Generator) visitClass(cd *introspect.ClassDeclaration, params introspect.Parameters, top bool) (Schema, error) {
	visiting, _ := params[visitingKey].(map[string]bool)
	if visiting == nil {
		visiting = map[string]bool{}
		params[visitingKey] = visiting
	}
	fqn := cd.FullyQualifiedName()
	if visiting[fqn] {
		return Schema{"type": "object", "description": "An instance of " + fqn}, nil
	}
	visiting[fqn] = true
	defer delete(visiting, fqn)

	s := Schema{}
	required := []string{}
	if top {
		s["$schema"] = Draft
		s["title"] = cd.Name()
		s["description"] = "A" + article(cd) + " " + cd.Kind().String() + " named " + cd.Name()
		required = append(required, resource.ClassKey)
	} else {
		s["description"] = "An instance of " + fqn
	}
	properties := Schema{
		resource.ClassKey: Schema{
			"type":        "string",
			"default":     fqn,
			"description": "The class identifier for this type",
		},
	}
	for _, p := range cd.Properties() {
		ps, err := p.Accept(g, params)
		if err != nil {
			return nil, err
		}
		properties[p.Name()] = ps
		if !p.IsOptional() {
			required = append(required, p.Name())
		}
	}
	s["type"] = "object"
	s["properties"] = properties
	s["required"] = required
	return s, nil
}

func (g *Generator) visitEnum(cd *introspect.ClassDeclaration, params introspect.Parameters) (Schema, error) {
	values := make([]any, 0, len(cd.OwnProperties()))
	for _, p := range cd.OwnProperties() {
		v, err := p.Accept(g, params)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return Schema{"enum": values}, nil
}

func (g *Generator) visitField(f *introspect.Field, params introspect.Parameters) (Schema, error) {
	var s Schema
	if f.IsPrimitive() {
		s = Schema{}
		switch f.PrimitiveType() {
		case field.TypeString:
			s["type"] = "string"
		case field.TypeDouble:
			s["type"] = "number"
		case field.TypeInteger, field.TypeLong:
			s["type"] = "integer"
		case field.TypeDateTime:
			s["type"] = "string"
			s["format"] = "date-time"
		case field.TypeBoolean:
			s["type"] = "boolean"
		}
		if f.Name() == f.Parent().IdentifierFieldName() {
			s["description"] = "The instance identifier for this type"
		}
	} else {
		cd, err := f.Parent().ModelFile().ModelManager().Type(f.FullyQualifiedTypeName())
		if err != nil {
			return nil, err
		}
		v, err := cd.Accept(g, params)
		if err != nil {
			return nil, err
		}
		s = v.(Schema)
	}
	if d := f.DefaultValue(); d != nil {
		s["default"] = d
	}
	return array(f, s), nil
}

func array(p introspect.Property, s Schema) Schema {
	if p.IsArray() {
		return Schema{"type": "array", "items": s}
	}
	return s
}

func article(cd *introspect.ClassDeclaration) string {
	switch cd.Kind() {
	case introspect.KindAsset, introspect.KindEvent:
		return "n"
	}
	return ""
}

func write(params introspect.Parameters, name string, s Schema) error {
	w, err := gen.FileWriterOf(params)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return gen.NewGenerationError("jsonschema", name, "encode schema", err)
	}
	if err := w.OpenFile(name); err != nil {
		return err
	}
	if err := gen.WriteText(w, 0, string(data)); err != nil {
		return err
	}
	return w.CloseFile()
}
