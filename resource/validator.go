package resource

import (
	"fmt"
	"strings"

	"github.com/syssam/concerto/introspect"
)

// Validate checks r against its class declaration: the type is concrete,
// identified resources have an identifier, every property is declared,
// required properties are present and each value fits its declared type,
// validator, enumeration or relationship target. Nested concepts are
// validated recursively.
func Validate(r *Resource) error {
	if r == nil || r.class == nil {
		return NewValidationError("", "", "Resource has no class declaration")
	}
	cd := r.class
	inst := r.FullyQualifiedIdentifier()
	if cd.IsAbstract() {
		return violationf(inst, "", "The class %s is abstract. Should not have an instance!", cd.FullyQualifiedName())
	}
	if cd.IsEnum() {
		return violationf(inst, "", "The class %s is an enumeration. Should not have an instance!", cd.FullyQualifiedName())
	}
	if cd.IsIdentified() && strings.TrimSpace(r.id) == "" {
		return violationf(inst, "", "Instance %s has an empty identifier.", inst)
	}
	for _, name := range r.Names() {
		if cd.Property(name) == nil {
			return violationf(inst, name, "Instance %s has a property named %s, which is not declared in %s", inst, name, cd.FullyQualifiedName())
		}
	}
	for _, p := range cd.Properties() {
		v, ok := r.data[p.Name()]
		if !ok || v == nil {
			if !p.IsOptional() {
				return violationf(inst, p.Name(), "Instance %s missing required field %s", inst, p.Name())
			}
			continue
		}
		if _, err := checkProperty(inst, p, v); err != nil {
			return err
		}
	}
	return nil
}

// checkProperty validates v for p and returns the value in its canonical Go
// representation.
func checkProperty(inst string, p introspect.Property, v any) (any, error) {
	if !p.IsArray() {
		return checkValue(inst, p, v)
	}
	items, ok := v.([]any)
	if !ok {
		return nil, violationf(inst, p.Name(), "Model violation in instance %s field %s has value %v (%T) expected type %s[]", inst, p.Name(), v, v, p.Type())
	}
	out := make([]any, len(items))
	for i, item := range items {
		c, err := checkValue(inst, p, item)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

func checkValue(inst string, p introspect.Property, v any) (any, error) {
	switch p := p.(type) {
	case *introspect.Field:
		return checkField(inst, p, v)
	case *introspect.Relationship:
		return checkRelationship(inst, p, v)
	}
	return nil, violationf(inst, p.Name(), "Model violation in instance %s field %s is not a field", inst, p.Name())
}

func checkField(inst string, p *introspect.Field, v any) (any, error) {
	if p.IsPrimitive() {
		c, err := valueOf(p, v)
		if err != nil {
			return nil, &ValidationError{
				Instance: inst,
				Property: p.Name(),
				Message:  fmt.Sprintf("Model violation in instance %s field %s has value %v (%T) expected type %s", inst, p.Name(), v, v, p.Type()),
				Cause:    err,
			}
		}
		if val := p.Validator(); val != nil {
			if err := val.Validate(p.Name(), c); err != nil {
				return nil, &ValidationError{
					Instance: inst,
					Property: p.Name(),
					Message:  fmt.Sprintf("Model violation in instance %s field %s", inst, p.Name()),
					Cause:    err,
				}
			}
		}
		return c, nil
	}
	decl := p.Parent().ModelFile().Type(p.Type())
	if decl == nil {
		return nil, violationf(inst, p.Name(), "Model violation in instance %s field %s has unknown type %s", inst, p.Name(), p.Type())
	}
	if decl.IsEnum() {
		s, ok := v.(string)
		if !ok || decl.OwnProperty(s) == nil {
			return nil, violationf(inst, p.Name(), "Model violation in instance %s field %s has value %v expected one of %s", inst, p.Name(), v, enumValues(decl))
		}
		return s, nil
	}
	nested, ok := v.(*Resource)
	if !ok {
		return nil, violationf(inst, p.Name(), "Model violation in instance %s field %s has value %v (%T) expected type %s", inst, p.Name(), v, v, decl.FullyQualifiedName())
	}
	if !introspect.IsAssignableTo(p.Parent().ModelFile(), nested.FullyQualifiedType(), p) {
		return nil, violationf(inst, p.Name(), "Instance %s has property %s with type %s that is not derived from %s", inst, p.Name(), nested.FullyQualifiedType(), decl.FullyQualifiedName())
	}
	if err := Validate(nested); err != nil {
		return nil, err
	}
	return nested, nil
}

func checkRelationship(inst string, p *introspect.Relationship, v any) (any, error) {
	rel, ok := v.(*Relationship)
	if !ok {
		return nil, violationf(inst, p.Name(), "Instance %s has property %s with value %v (%T) that is not a relationship", inst, p.Name(), v, v)
	}
	if rel.ID == "" {
		return nil, violationf(inst, p.Name(), "Instance %s has relationship %s with an empty identifier", inst, p.Name())
	}
	if !introspect.IsAssignableTo(p.Parent().ModelFile(), rel.FullyQualifiedType(), p) {
		return nil, violationf(inst, p.Name(), "Instance %s has property %s with type %s that is not derived from %s", inst, p.Name(), rel.FullyQualifiedType(), p.FullyQualifiedTypeName())
	}
	return rel, nil
}

func enumValues(decl *introspect.ClassDeclaration) string {
	props := decl.OwnProperties()
	names := make([]string, len(props))
	for i, p := range props {
		names[i] = p.Name()
	}
	return "[" + strings.Join(names, ",") + "]"
}
