// Package load reads model files from disk into a ModelManager, watches
// them for changes, and describes the loaded declarations in a portable
// JSON form.
package load

import (
	"encoding/json"
	"fmt"

	"github.com/syssam/concerto/introspect"
)

// Schema describes a class declaration loaded into a ModelManager.
type Schema struct {
	Name       string       `json:"name" yaml:"name"`
	Namespace  string       `json:"namespace" yaml:"namespace"`
	Kind       string       `json:"kind" yaml:"kind"`
	Pos        string       `json:"pos,omitempty" yaml:"pos,omitempty"`
	Abstract   bool         `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	SuperType  string       `json:"super_type,omitempty" yaml:"super_type,omitempty"`
	Identifier string       `json:"identifier,omitempty" yaml:"identifier,omitempty"`
	Fields     []*Field     `json:"fields,omitempty" yaml:"fields,omitempty"`
	Decorators []*Decorator `json:"decorators,omitempty" yaml:"decorators,omitempty"`
}

// Field describes a property. Enum values are fields with an empty type.
type Field struct {
	Name         string       `json:"name" yaml:"name"`
	Type         string       `json:"type,omitempty" yaml:"type,omitempty"`
	Array        bool         `json:"array,omitempty" yaml:"array,omitempty"`
	Optional     bool         `json:"optional,omitempty" yaml:"optional,omitempty"`
	Relationship bool         `json:"relationship,omitempty" yaml:"relationship,omitempty"`
	Enum         bool         `json:"enum,omitempty" yaml:"enum,omitempty"`
	Default      any          `json:"default,omitempty" yaml:"default,omitempty"`
	Validator    string       `json:"validator,omitempty" yaml:"validator,omitempty"`
	DeclaredBy   string       `json:"declared_by,omitempty" yaml:"declared_by,omitempty"`
	Decorators   []*Decorator `json:"decorators,omitempty" yaml:"decorators,omitempty"`
}

// Decorator describes a decorator. Identifier arguments are written as
// they appear in the model, such as "Car[]".
type Decorator struct {
	Name      string `json:"name" yaml:"name"`
	Arguments []any  `json:"arguments,omitempty" yaml:"arguments,omitempty"`
}

// NewSchema describes cd. Inherited properties are included and carry the
// fully qualified name of the declaring type.
func NewSchema(cd *introspect.ClassDeclaration) *Schema {
	s := &Schema{
		Name:       cd.Name(),
		Namespace:  cd.Namespace(),
		Kind:       cd.Kind().String(),
		Abstract:   cd.IsAbstract(),
		SuperType:  cd.SuperType(),
		Identifier: cd.IdentifierFieldName(),
		Decorators: newDecorators(cd.Decorators()),
	}
	if loc := cd.Location(); !loc.IsZero() {
		s.Pos = fmt.Sprintf("%s:%d", cd.ModelFile().Name(), loc.Start.Line)
	}
	for _, p := range cd.Properties() {
		s.Fields = append(s.Fields, newField(cd, p))
	}
	return s
}

func newField(cd *introspect.ClassDeclaration, p introspect.Property) *Field {
	f := &Field{
		Name:       p.Name(),
		Array:      p.IsArray(),
		Optional:   p.IsOptional(),
		Decorators: newDecorators(p.Decorators()),
	}
	if owner := p.Parent(); owner != cd {
		f.DeclaredBy = owner.FullyQualifiedName()
	}
	switch p := p.(type) {
	case *introspect.Field:
		f.Type = p.FullyQualifiedTypeName()
		f.Enum = p.IsTypeEnum()
		f.Default = p.DefaultValue()
		if v := p.Validator(); v != nil {
			f.Validator = v.String()
		}
	case *introspect.Relationship:
		f.Type = p.FullyQualifiedTypeName()
		f.Relationship = true
	}
	return f
}

func newDecorators(ds []introspect.Decorator) []*Decorator {
	var out []*Decorator
	for _, d := range ds {
		nd := &Decorator{Name: d.Name()}
		for _, arg := range d.Arguments() {
			if id, ok := arg.(introspect.Identifier); ok {
				arg = id.String()
			}
			nd.Arguments = append(nd.Arguments, arg)
		}
		out = append(out, nd)
	}
	return out
}

// MarshalSchema encodes the description of cd.
func MarshalSchema(cd *introspect.ClassDeclaration) ([]byte, error) {
	return json.Marshal(NewSchema(cd))
}

// UnmarshalSchema decodes a description written by MarshalSchema.
func UnmarshalSchema(buf []byte) (*Schema, error) {
	s := &Schema{}
	if err := json.Unmarshal(buf, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Describe returns the descriptions of every non-system declaration in mm,
// in registration order.
func Describe(mm *introspect.ModelManager) []*Schema {
	var out []*Schema
	for _, cd := range mm.ClassDeclarations() {
		if cd.IsSystemType() {
			continue
		}
		out = append(out, NewSchema(cd))
	}
	return out
}
