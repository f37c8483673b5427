package introspect

import "github.com/syssam/concerto"

// Scope resolves type names as seen from one model file while it is being
// validated. It is handed to Decorator.Validate so that decorators can refer
// to types declared in files of the same batch.
type Scope interface {
	// ModelFile returns the file the names are resolved from.
	ModelFile() *ModelFile
	// ResolveType returns the fully qualified name of typeName, or an
	// illegal-model error naming context and located at loc.
	ResolveType(context, typeName string, loc concerto.Location) (string, error)
	// Type returns the declaration of typeName, or nil for primitives and
	// unknown names.
	Type(typeName string) *ClassDeclaration
}

type fileScope struct {
	mf *ModelFile
	r  *registry
}

func (s fileScope) ModelFile() *ModelFile { return s.mf }

func (s fileScope) ResolveType(context, typeName string, loc concerto.Location) (string, error) {
	return s.mf.resolveType(s.r, context, typeName, loc)
}

func (s fileScope) Type(typeName string) *ClassDeclaration {
	return s.mf.lookup(s.r, typeName)
}
