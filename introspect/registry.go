package introspect

import (
	"slices"

	"github.com/syssam/concerto"
)

// registry is an immutable namespace -> ModelFile mapping. Mutations build
// a new registry sharing the unchanged ModelFile pointers, so a failed batch
// is discarded by not publishing it.
type registry struct {
	files map[string]*ModelFile
	order []string // registration order
}

func newRegistry() *registry {
	return &registry{files: make(map[string]*ModelFile)}
}

func (r *registry) clone() *registry {
	c := &registry{
		files: make(map[string]*ModelFile, len(r.files)+1),
		order: slices.Clone(r.order),
	}
	for ns, mf := range r.files {
		c.files[ns] = mf
	}
	return c
}

// put adds mf, replacing the file registered under the same namespace in
// place so registration order is kept.
func (r *registry) put(mf *ModelFile) {
	if _, ok := r.files[mf.Namespace()]; !ok {
		r.order = append(r.order, mf.Namespace())
	}
	r.files[mf.Namespace()] = mf
}

func (r *registry) remove(ns string) {
	delete(r.files, ns)
	r.order = slices.DeleteFunc(r.order, func(s string) bool { return s == ns })
}

func (r *registry) file(ns string) *ModelFile {
	return r.files[ns]
}

func (r *registry) modelFiles() []*ModelFile {
	files := make([]*ModelFile, 0, len(r.order))
	for _, ns := range r.order {
		files = append(files, r.files[ns])
	}
	return files
}

// typeOf looks up a class declaration by fully qualified name.
func (r *registry) typeOf(fqn string) (*ClassDeclaration, error) {
	ns := NamespaceOf(fqn)
	mf := r.files[ns]
	if mf == nil {
		return nil, concerto.NewTypeNotFoundError(fqn, ns, false)
	}
	cd := mf.LocalType(ShortName(fqn))
	if cd == nil {
		return nil, concerto.NewTypeNotFoundError(fqn, ns, true)
	}
	return cd, nil
}

// resolveType confirms that fqn is a primitive or a type declared in a
// registered namespace. context names the construct being resolved; file
// and loc locate it in errors.
func (r *registry) resolveType(file, context, fqn string, loc concerto.Location) (string, error) {
	if IsPrimitiveType(fqn) {
		return fqn, nil
	}
	ns := NamespaceOf(fqn)
	mf := r.files[ns]
	if mf == nil {
		return "", concerto.IllegalModelf(file, loc, "No registered namespace for type %s in %s.", fqn, context)
	}
	if mf.LocalType(ShortName(fqn)) == nil {
		return "", concerto.IllegalModelf(file, loc, "No type %s in namespace %s for %s.", fqn, ns, context)
	}
	return fqn, nil
}

// systemTypes returns the core system types in declaration order.
func (r *registry) systemTypes() []*ClassDeclaration {
	var types []*ClassDeclaration
	for _, mf := range r.modelFiles() {
		if !mf.IsSystemModelFile() {
			continue
		}
		for _, cd := range mf.AllDeclarations() {
			if cd.IsSystemCoreType() {
				types = append(types, cd)
			}
		}
	}
	return types
}

func (r *registry) declarations(keep func(*ClassDeclaration) bool) []*ClassDeclaration {
	var out []*ClassDeclaration
	for _, mf := range r.modelFiles() {
		for _, cd := range mf.AllDeclarations() {
			if keep == nil || keep(cd) {
				out = append(out, cd)
			}
		}
	}
	return out
}
