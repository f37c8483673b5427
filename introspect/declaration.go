package introspect

import (
	"fmt"
	"strings"

	"github.com/syssam/concerto"
	"github.com/syssam/concerto/schema/ast"
)

// ClassDeclaration is a named type of a model file: an asset, participant,
// transaction, event, concept or enum.
type ClassDeclaration struct {
	decorated
	mf         *ModelFile
	node       *ast.Declaration
	kind       Kind
	name       string
	fqn        string
	abstract   bool
	superType  string // as written, or the implicit system type
	idField    string
	properties []Property
}

func newClassDeclaration(mf *ModelFile, node *ast.Declaration, factories []DecoratorFactory) (*ClassDeclaration, error) {
	cd := &ClassDeclaration{
		mf:       mf,
		node:     node,
		kind:     node.Kind,
		name:     node.Name,
		fqn:      FullyQualifiedName(mf.Namespace(), node.Name),
		abstract: node.Abstract,
		idField:  node.IdentifiedBy,
	}
	switch {
	case node.Extends != "":
		cd.superType = node.Extends
	case !cd.IsSystemCoreType():
		cd.superType = cd.SystemType()
	}
	if err := cd.processDecorators(cd, factories, node.Decorators); err != nil {
		return nil, err
	}
	for _, pn := range node.Properties {
		p, err := newProperty(cd, pn, factories)
		if err != nil {
			return nil, err
		}
		cd.properties = append(cd.properties, p)
	}
	return cd, nil
}

// Accept calls v.Visit(cd, params).
func (cd *ClassDeclaration) Accept(v Visitor, params Parameters) (any, error) {
	return v.Visit(cd, params)
}

// Kind returns the declaration kind.
func (cd *ClassDeclaration) Kind() Kind { return cd.kind }

// Name returns the short name.
func (cd *ClassDeclaration) Name() string { return cd.name }

// Namespace returns the namespace of the owning model file.
func (cd *ClassDeclaration) Namespace() string { return cd.mf.Namespace() }

// FullyQualifiedName returns namespace.Name.
func (cd *ClassDeclaration) FullyQualifiedName() string { return cd.fqn }

// ModelFile returns the owning model file.
func (cd *ClassDeclaration) ModelFile() *ModelFile { return cd.mf }

// AST returns the syntax node of the declaration.
func (cd *ClassDeclaration) AST() *ast.Declaration { return cd.node }

// Location returns the source range of the declaration.
func (cd *ClassDeclaration) Location() concerto.Location { return cd.node.Location }

// IsAbstract reports whether the declaration is abstract.
func (cd *ClassDeclaration) IsAbstract() bool { return cd.abstract }

// IsAsset reports whether the declaration is an asset.
func (cd *ClassDeclaration) IsAsset() bool { return cd.kind == KindAsset }

// IsParticipant reports whether the declaration is a participant.
func (cd *ClassDeclaration) IsParticipant() bool { return cd.kind == KindParticipant }

// IsTransaction reports whether the declaration is a transaction.
func (cd *ClassDeclaration) IsTransaction() bool { return cd.kind == KindTransaction }

// IsEvent reports whether the declaration is an event.
func (cd *ClassDeclaration) IsEvent() bool { return cd.kind == KindEvent }

// IsConcept reports whether the declaration is a concept.
func (cd *ClassDeclaration) IsConcept() bool { return cd.kind == KindConcept }

// IsEnum reports whether the declaration is an enum.
func (cd *ClassDeclaration) IsEnum() bool { return cd.kind == KindEnum }

// IsRelationshipTarget reports whether relationships may point at instances
// of the declaration.
func (cd *ClassDeclaration) IsRelationshipTarget() bool {
	return cd.kind == KindAsset || cd.kind == KindParticipant
}

// IsSystemRelationshipTarget reports whether relationships declared in the
// system namespace may point at instances of the declaration. Transactions
// qualify there in addition to assets and participants.
func (cd *ClassDeclaration) IsSystemRelationshipTarget() bool {
	return cd.IsRelationshipTarget() || cd.kind == KindTransaction
}

// IsIdentified reports whether instances carry an identifier, that is the
// declaration is not a concept or enum.
func (cd *ClassDeclaration) IsIdentified() bool {
	_, ok := systemTypeNames[cd.kind]
	return ok
}

// SystemType returns the short name of the system base type of the
// declaration kind, or "" for concepts and enums.
func (cd *ClassDeclaration) SystemType() string {
	return systemTypeNames[cd.kind]
}

// IsSystemType reports whether the declaration lives in the system namespace.
func (cd *ClassDeclaration) IsSystemType() bool { return cd.mf.IsSystemModelFile() }

// IsSystemCoreType reports whether the declaration is the system base type
// of its kind.
func (cd *ClassDeclaration) IsSystemCoreType() bool {
	return cd.IsSystemType() && cd.SystemType() == cd.name
}

// SuperType returns the fully qualified name of the super type, or "" when
// there is none or it cannot be resolved.
func (cd *ClassDeclaration) SuperType() string {
	st, err := cd.superTypeDeclaration(cd.mf.mm.registry())
	if err != nil || st == nil {
		return ""
	}
	return st.FullyQualifiedName()
}

// SuperTypeDeclaration returns the super type, nil when there is none.
func (cd *ClassDeclaration) SuperTypeDeclaration() (*ClassDeclaration, error) {
	return cd.superTypeDeclaration(cd.mf.mm.registry())
}

// AllSuperTypeDeclarations returns the super type chain, nearest first.
func (cd *ClassDeclaration) AllSuperTypeDeclarations() []*ClassDeclaration {
	return cd.superChain(cd.mf.mm.registry())
}

// IdentifierFieldName returns the identifying field, declared here or
// inherited, or "" when there is none.
func (cd *ClassDeclaration) IdentifierFieldName() string {
	return cd.identifierFieldName(cd.mf.mm.registry())
}

// OwnProperties returns the properties declared by this class only.
func (cd *ClassDeclaration) OwnProperties() []Property { return cd.properties }

// OwnProperty returns the property declared by this class with the given
// name, or nil.
func (cd *ClassDeclaration) OwnProperty(name string) Property {
	for _, p := range cd.properties {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// Properties returns the own properties followed by the inherited ones.
func (cd *ClassDeclaration) Properties() []Property {
	return cd.allProperties(cd.mf.mm.registry())
}

// Property returns the own or inherited property with the given name, or nil.
func (cd *ClassDeclaration) Property(name string) Property {
	return cd.property(cd.mf.mm.registry(), name)
}

// Validate checks the declaration against the registered model files.
func (cd *ClassDeclaration) Validate() error {
	r := cd.mf.mm.registry().clone()
	r.put(cd.mf)
	return cd.validate(r)
}

// AssignableClassDeclarations returns the declaration and every registered
// declaration extending it directly or indirectly.
func (cd *ClassDeclaration) AssignableClassDeclarations() []*ClassDeclaration {
	r := cd.mf.mm.registry()
	subclasses := make(map[string][]*ClassDeclaration)
	for _, d := range r.declarations(nil) {
		if st, err := d.superTypeDeclaration(r); err == nil && st != nil {
			subclasses[st.FullyQualifiedName()] = append(subclasses[st.FullyQualifiedName()], d)
		}
	}
	var (
		out  []*ClassDeclaration
		seen = make(map[string]bool)
		walk func(*ClassDeclaration)
	)
	walk = func(d *ClassDeclaration) {
		if seen[d.fqn] {
			return
		}
		seen[d.fqn] = true
		out = append(out, d)
		for _, sub := range subclasses[d.fqn] {
			walk(sub)
		}
	}
	walk(cd)
	return out
}

// NestedProperty follows a dotted property path such as "owner.address.city"
// through the types of the intermediate properties.
func (cd *ClassDeclaration) NestedProperty(path string) (Property, error) {
	r := cd.mf.mm.registry()
	names := strings.Split(path, ".")
	current := cd
	var result Property
	for i, name := range names {
		result = current.property(r, name)
		if result == nil {
			return nil, concerto.IllegalModelf(cd.mf.Name(), cd.Location(),
				"Property %s does not exist on %s", name, current.FullyQualifiedName())
		}
		if i == len(names)-1 {
			break
		}
		next := result.ModelFile().lookup(r, result.Type())
		if result.IsPrimitive() || next == nil || next.IsEnum() {
			return nil, concerto.IllegalModelf(cd.mf.Name(), cd.Location(),
				"Property %s is a primitive or enum. Invalid property path: %s", name, path)
		}
		current = next
	}
	return result, nil
}

// String returns a debugging representation of the declaration.
func (cd *ClassDeclaration) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ClassDeclaration {id=%s", cd.fqn)
	if cd.superType != "" {
		fmt.Fprintf(&b, " super=%s", cd.superType)
	}
	fmt.Fprintf(&b, " enum=%t abstract=%t}", cd.IsEnum(), cd.abstract)
	return b.String()
}

func (cd *ClassDeclaration) superTypeDeclaration(r *registry) (*ClassDeclaration, error) {
	if cd.superType == "" {
		return nil, nil
	}
	st := cd.mf.lookup(r, cd.superType)
	if st == nil {
		return nil, concerto.IllegalModelf(cd.mf.Name(), cd.Location(), "Could not find super type %s", cd.superType)
	}
	if st.kind != cd.kind {
		return nil, concerto.IllegalModelf(cd.mf.Name(), cd.Location(), "%s (%s) cannot extend %s (%s)",
			kindTitle(cd.kind), cd.name, kindTitle(st.kind), st.name)
	}
	return st, nil
}

// superChain walks the resolvable super types, stopping at a cycle.
func (cd *ClassDeclaration) superChain(r *registry) []*ClassDeclaration {
	var chain []*ClassDeclaration
	seen := map[*ClassDeclaration]bool{cd: true}
	for t := cd; ; {
		st, err := t.superTypeDeclaration(r)
		if err != nil || st == nil || seen[st] {
			return chain
		}
		seen[st] = true
		chain = append(chain, st)
		t = st
	}
}

func (cd *ClassDeclaration) identifierFieldName(r *registry) string {
	if cd.idField != "" {
		return cd.idField
	}
	for _, st := range cd.superChain(r) {
		if st.idField != "" {
			return st.idField
		}
	}
	return ""
}

func (cd *ClassDeclaration) allProperties(r *registry) []Property {
	props := append([]Property(nil), cd.properties...)
	for _, st := range cd.superChain(r) {
		props = append(props, st.properties...)
	}
	return props
}

func (cd *ClassDeclaration) property(r *registry, name string) Property {
	if p := cd.OwnProperty(name); p != nil {
		return p
	}
	for _, st := range cd.superChain(r) {
		if p := st.OwnProperty(name); p != nil {
			return p
		}
	}
	return nil
}

// validate runs the semantic checks of a declaration against r.
func (cd *ClassDeclaration) validate(r *registry) error {
	file, loc := cd.mf.Name(), cd.Location()
	scope := fileScope{mf: cd.mf, r: r}
	if err := cd.validateDecorators(scope, loc); err != nil {
		return err
	}
	if !cd.IsSystemType() && isReservedName(cd.name) {
		return concerto.IllegalModelf(file, loc, "%s is a reserved system type name", cd.name)
	}
	st, err := cd.superTypeDeclaration(r)
	if err != nil {
		return err
	}
	if st != nil {
		seen := map[*ClassDeclaration]bool{cd: true}
		for t := st; t != nil; {
			if seen[t] {
				return concerto.IllegalModelf(file, loc, "Class %s has a circular super type chain", cd.name)
			}
			seen[t] = true
			if t, err = t.superTypeDeclaration(r); err != nil {
				return err
			}
		}
	}
	if err := cd.validateIdentifier(r, st); err != nil {
		return err
	}
	props := cd.allProperties(r)
	for i, p := range props {
		for _, other := range props[i+1:] {
			if p.Name() == other.Name() {
				return concerto.IllegalModelf(file, loc, "Class %s has more than one field named %s", cd.name, p.Name())
			}
		}
	}
	for _, p := range cd.properties {
		if err := p.validate(scope); err != nil {
			return err
		}
	}
	return nil
}

func (cd *ClassDeclaration) validateIdentifier(r *registry, st *ClassDeclaration) error {
	file, loc := cd.mf.Name(), cd.Location()
	if cd.idField == "" {
		if cd.IsIdentified() && !cd.abstract && cd.identifierFieldName(r) == "" {
			return concerto.IllegalModelf(file, loc,
				"Class %s is not declared as abstract. It must define an identifying field.", cd.name)
		}
		return nil
	}
	id := cd.property(r, cd.idField)
	if id == nil {
		return concerto.IllegalModelf(file, loc,
			"Class %s is identified by field %s, but does not contain this property.", cd.name, cd.idField)
	}
	if id.Type() != "String" {
		return concerto.IllegalModelf(file, loc,
			"Class %s is identified by field %s, but the type of the field is not String.", cd.name, cd.idField)
	}
	if id.IsOptional() {
		return concerto.NewIllegalModelError(file, loc, "Identifying fields cannot be optional.")
	}
	if st != nil && st.identifierFieldName(r) == cd.idField {
		return concerto.NewIllegalModelError(file, loc, "Identifier from super class cannot be redeclared.")
	}
	return nil
}
