package resource

import (
	"maps"
	"slices"

	"github.com/syssam/concerto/introspect"
)

// Resource is an instance of a class declaration. Identified kinds (assets,
// participants, transactions and events) carry an identifier; concepts do
// not.
//
// Property values use these Go representations: the types returned by
// field.Value for primitives, string for enum values, *Resource for
// concepts, *Relationship for relationships and []any for arrays.
type Resource struct {
	class *introspect.ClassDeclaration
	id    string
	data  map[string]any
}

func newResource(cd *introspect.ClassDeclaration, id string) *Resource {
	r := &Resource{class: cd, data: make(map[string]any)}
	if id != "" {
		r.SetIdentifier(id)
	}
	return r
}

// ClassDeclaration returns the declaration the resource is an instance of.
func (r *Resource) ClassDeclaration() *introspect.ClassDeclaration { return r.class }

// Namespace returns the namespace of the resource type.
func (r *Resource) Namespace() string { return r.class.Namespace() }

// Type returns the short name of the resource type.
func (r *Resource) Type() string { return r.class.Name() }

// FullyQualifiedType returns the fully qualified name of the resource type.
func (r *Resource) FullyQualifiedType() string { return r.class.FullyQualifiedName() }

// Identifier returns the identifier, or "" for concepts.
func (r *Resource) Identifier() string { return r.id }

// SetIdentifier sets the identifier and the identifying field.
func (r *Resource) SetIdentifier(id string) {
	r.id = id
	if name := r.class.IdentifierFieldName(); name != "" {
		r.data[name] = id
	}
}

// FullyQualifiedIdentifier returns ns.Type#id for identified resources and
// the fully qualified type for concepts.
func (r *Resource) FullyQualifiedIdentifier() string {
	if r.IsConcept() {
		return r.FullyQualifiedType()
	}
	return r.FullyQualifiedType() + "#" + r.id
}

// IsConcept reports whether the resource is a concept instance.
func (r *Resource) IsConcept() bool { return r.class.IsConcept() }

// IsIdentifiable reports whether the resource carries an identifier.
func (r *Resource) IsIdentifiable() bool { return r.class.IsIdentified() }

// Relationship returns a relationship pointing at the resource.
func (r *Resource) Relationship() *Relationship {
	return &Relationship{Namespace: r.Namespace(), Type: r.Type(), ID: r.id}
}

// Get returns the value of a property, or nil.
func (r *Resource) Get(name string) any { return r.data[name] }

// Has reports whether a property has been set.
func (r *Resource) Has(name string) bool {
	_, ok := r.data[name]
	return ok
}

// Set assigns a property. Values are checked by Validate, not here.
// Setting the identifying field updates the identifier.
func (r *Resource) Set(name string, value any) {
	if name == r.class.IdentifierFieldName() {
		if id, ok := value.(string); ok {
			r.id = id
		}
	}
	r.data[name] = value
}

// Unset removes a property.
func (r *Resource) Unset(name string) { delete(r.data, name) }

// Names returns the names of the set properties in sorted order.
func (r *Resource) Names() []string {
	return slices.Sorted(maps.Keys(r.data))
}

// String implements fmt.Stringer.
func (r *Resource) String() string {
	if r.IsConcept() {
		return "Concept {id=" + r.FullyQualifiedIdentifier() + "}"
	}
	return "Resource {id=" + r.FullyQualifiedIdentifier() + "}"
}
