package introspect

// Introspector is a read-only view of a ModelManager for consumers such as
// serializers and code generators.
type Introspector struct {
	mm *ModelManager
}

// NewIntrospector returns an introspector over mm.
func NewIntrospector(mm *ModelManager) *Introspector {
	return &Introspector{mm: mm}
}

// Accept calls v.Visit(i, params).
func (i *Introspector) Accept(v Visitor, params Parameters) (any, error) {
	return v.Visit(i, params)
}

// ClassDeclarations returns every declaration, in model file registration
// order and then source order.
func (i *Introspector) ClassDeclarations() []*ClassDeclaration {
	return i.mm.ClassDeclarations()
}

// ClassDeclaration returns the declaration of a fully qualified type. The
// error is the *concerto.TypeNotFoundError of ModelManager.Type.
func (i *Introspector) ClassDeclaration(fqn string) (*ClassDeclaration, error) {
	return i.mm.Type(fqn)
}

// ModelManager returns the underlying model manager.
func (i *Introspector) ModelManager() *ModelManager {
	return i.mm
}
