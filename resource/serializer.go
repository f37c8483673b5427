package resource

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/syssam/concerto/introspect"
	"github.com/syssam/concerto/schema/field"
)

// ClassKey names the type of an instance in its JSON form.
const ClassKey = "$class"

// Serializer converts resources to and from their JSON form. Relationships
// are written as URIs, DateTimes as RFC 3339 strings and concepts as nested
// objects with their own $class.
type Serializer struct {
	factory *Factory
}

// NewSerializer returns a serializer for the types known to f.
func NewSerializer(f *Factory) *Serializer {
	return &Serializer{factory: f}
}

// ToJSON validates r and encodes it.
func (s *Serializer) ToJSON(r *Resource) ([]byte, error) {
	m, err := s.ToMap(r)
	if err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// ToMap validates r and returns its JSON object form.
func (s *Serializer) ToMap(r *Resource) (map[string]any, error) {
	if err := Validate(r); err != nil {
		return nil, err
	}
	return toMap(r)
}

func toMap(r *Resource) (map[string]any, error) {
	out := map[string]any{ClassKey: r.FullyQualifiedType()}
	inst := r.FullyQualifiedIdentifier()
	for _, name := range r.Names() {
		v := r.data[name]
		if v == nil {
			continue
		}
		p := r.class.Property(name)
		c, err := checkProperty(inst, p, v)
		if err != nil {
			return nil, err
		}
		if out[name], err = encode(c); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func encode(v any) (any, error) {
	switch x := v.(type) {
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			e, err := encode(item)
			if err != nil {
				return nil, err
			}
			out[i] = e
		}
		return out, nil
	case *Resource:
		return toMap(x)
	case *Relationship:
		return x.URI(), nil
	case time.Time:
		return x.Format(time.RFC3339Nano), nil
	}
	return v, nil
}

// FromJSON decodes and validates a resource. The object must carry $class.
func (s *Serializer) FromJSON(data []byte) (*Resource, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, errors.Wrap(err, "decode resource")
	}
	return s.FromMap(m)
}

// FromMap builds and validates a resource from its JSON object form.
func (s *Serializer) FromMap(m map[string]any) (*Resource, error) {
	if _, ok := m[ClassKey].(string); !ok {
		return nil, NewValidationError("", ClassKey, "Invalid JSON data. Does not contain a $class type identifier.")
	}
	r, err := s.fromMap(m, "")
	if err != nil {
		return nil, err
	}
	if err := Validate(r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Serializer) fromMap(m map[string]any, declared string) (*Resource, error) {
	fqn, _ := m[ClassKey].(string)
	if fqn == "" {
		fqn = declared
	}
	cd, err := s.factory.ModelManager().Type(fqn)
	if err != nil {
		return nil, err
	}
	r := newResource(cd, "")
	inst := fqn
	if name := cd.IdentifierFieldName(); name != "" {
		id, _ := m[name].(string)
		r.SetIdentifier(id)
		inst = r.FullyQualifiedIdentifier()
	}
	for name, raw := range m {
		if name == ClassKey {
			continue
		}
		p := cd.Property(name)
		if p == nil {
			return nil, violationf(inst, name, "Instance %s has a property named %s, which is not declared in %s", inst, name, fqn)
		}
		if raw == nil {
			continue
		}
		v, err := s.decodeProperty(inst, p, raw)
		if err != nil {
			return nil, err
		}
		r.Set(name, v)
	}
	return r, nil
}

func (s *Serializer) decodeProperty(inst string, p introspect.Property, raw any) (any, error) {
	if !p.IsArray() {
		return s.decodeValue(inst, p, raw)
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, violationf(inst, p.Name(), "Model violation in instance %s field %s has value %v (%T) expected type %s[]", inst, p.Name(), raw, raw, p.Type())
	}
	out := make([]any, len(items))
	for i, item := range items {
		v, err := s.decodeValue(inst, p, item)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (s *Serializer) decodeValue(inst string, p introspect.Property, raw any) (any, error) {
	switch p := p.(type) {
	case *introspect.Relationship:
		uri, ok := raw.(string)
		if !ok {
			return nil, violationf(inst, p.Name(), "Instance %s has property %s with value %v (%T) that is not a relationship", inst, p.Name(), raw, raw)
		}
		target := p.FullyQualifiedTypeName()
		rel, err := ParseURI(uri, introspect.NamespaceOf(target), introspect.ShortName(target))
		if err != nil {
			return nil, &ValidationError{Instance: inst, Property: p.Name(), Message: "Invalid relationship " + p.Name(), Cause: err}
		}
		return rel, nil
	case *introspect.Field:
		if p.IsPrimitive() {
			v, err := valueOf(p, raw)
			if err != nil {
				return nil, &ValidationError{Instance: inst, Property: p.Name(), Message: "Model violation in instance " + inst + " field " + p.Name(), Cause: err}
			}
			return v, nil
		}
		if obj, ok := raw.(map[string]any); ok {
			return s.fromMap(obj, p.FullyQualifiedTypeName())
		}
	}
	return raw, nil
}

func valueOf(p *introspect.Field, v any) (any, error) {
	return field.Value(p.PrimitiveType(), v)
}
