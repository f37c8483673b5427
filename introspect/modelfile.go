package introspect

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/syssam/concerto"
	"github.com/syssam/concerto/schema/ast"
	"github.com/syssam/concerto/schema/parser"
)

// ModelFile is the parsed form of one model file. A ModelFile never
// changes after construction; updating a namespace replaces its ModelFile.
type ModelFile struct {
	mm          *ModelManager
	name        string
	definitions string
	ast         *ast.File
	namespace   string
	system      bool
	external    bool

	imports     []string
	shortNames  map[string]string // short name -> fully qualified import
	wildcards   []string          // namespaces imported with ns.*
	recursive   []string          // namespace prefixes imported with ns.**
	importURIs  map[string]string
	importNodes map[string]*ast.Import

	declarations []*ClassDeclaration
	localTypes   map[string]*ClassDeclaration
}

// NewModelFile parses text into a ModelFile owned by mm. The file is not
// registered; pass it to ModelManager.AddModelFileObject for that. Decorator
// factories registered on mm are applied during construction.
func NewModelFile(mm *ModelManager, text, fileName string) (*ModelFile, error) {
	if mm == nil {
		return nil, errors.New("concerto: model file requires a model manager")
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("concerto: model file expects model text as input")
	}
	f, err := parser.Parse(text, fileName)
	if err != nil {
		return nil, err
	}
	mf := &ModelFile{
		mm:          mm,
		name:        fileName,
		definitions: text,
		ast:         f,
		namespace:   f.Namespace,
		system:      IsSystemNamespace(f.Namespace),
		external:    strings.HasPrefix(fileName, "@"),
		shortNames:  make(map[string]string),
		importURIs:  make(map[string]string),
		importNodes: make(map[string]*ast.Import),
		localTypes:  make(map[string]*ClassDeclaration),
	}
	if !mf.system {
		for _, cd := range mm.registry().systemTypes() {
			fqn := cd.FullyQualifiedName()
			mf.imports = append(mf.imports, fqn)
			mf.shortNames[cd.Name()] = fqn
		}
	}
	for _, imp := range f.Imports {
		mf.imports = append(mf.imports, imp.Name)
		mf.importNodes[imp.Name] = imp
		switch {
		case IsRecursiveWildcardName(imp.Name):
			mf.recursive = append(mf.recursive, NamespaceOf(imp.Name))
		case IsWildcardName(imp.Name):
			mf.wildcards = append(mf.wildcards, NamespaceOf(imp.Name))
		default:
			mf.shortNames[ShortName(imp.Name)] = imp.Name
		}
		if imp.URI != "" {
			mf.importURIs[imp.Name] = imp.URI
		}
	}
	factories := mm.DecoratorFactories()
	for _, node := range f.Declarations {
		cd, err := newClassDeclaration(mf, node, factories)
		if err != nil {
			return nil, err
		}
		mf.declarations = append(mf.declarations, cd)
		if _, ok := mf.localTypes[cd.Name()]; !ok {
			mf.localTypes[cd.Name()] = cd
		}
	}
	return mf, nil
}

// Accept calls v.Visit(mf, params).
func (mf *ModelFile) Accept(v Visitor, params Parameters) (any, error) {
	return v.Visit(mf, params)
}

// ModelManager returns the owning model manager.
func (mf *ModelFile) ModelManager() *ModelManager { return mf.mm }

// Namespace returns the namespace declared by the file.
func (mf *ModelFile) Namespace() string { return mf.namespace }

// Name returns the file name given at construction, possibly empty.
func (mf *ModelFile) Name() string { return mf.name }

// Definitions returns the source text.
func (mf *ModelFile) Definitions() string { return mf.definitions }

// AST returns the syntax tree the file was built from.
func (mf *ModelFile) AST() *ast.File { return mf.ast }

// IsSystemModelFile reports whether the file declares the system namespace.
func (mf *ModelFile) IsSystemModelFile() bool { return mf.system }

// IsExternal reports whether the file was downloaded from an import URI.
// External file names start with '@'.
func (mf *ModelFile) IsExternal() bool { return mf.external }

// Imports returns the fully qualified imports of the file, including the
// implicit imports of the system core types.
func (mf *ModelFile) Imports() []string { return mf.imports }

// ImportURI returns the URI an import was declared "from", or "".
func (mf *ModelFile) ImportURI(name string) string { return mf.importURIs[name] }

// ExternalImports maps imports to the URIs they are declared "from".
func (mf *ModelFile) ExternalImports() map[string]string { return mf.importURIs }

// AllDeclarations returns the declarations of the file in source order.
func (mf *ModelFile) AllDeclarations() []*ClassDeclaration { return mf.declarations }

// AssetDeclarations returns the assets declared in the file.
func (mf *ModelFile) AssetDeclarations() []*ClassDeclaration { return mf.declarationsOf(KindAsset) }

// ParticipantDeclarations returns the participants declared in the file.
func (mf *ModelFile) ParticipantDeclarations() []*ClassDeclaration {
	return mf.declarationsOf(KindParticipant)
}

// TransactionDeclarations returns the transactions declared in the file.
func (mf *ModelFile) TransactionDeclarations() []*ClassDeclaration {
	return mf.declarationsOf(KindTransaction)
}

// EventDeclarations returns the events declared in the file.
func (mf *ModelFile) EventDeclarations() []*ClassDeclaration { return mf.declarationsOf(KindEvent) }

// ConceptDeclarations returns the concepts declared in the file.
func (mf *ModelFile) ConceptDeclarations() []*ClassDeclaration {
	return mf.declarationsOf(KindConcept)
}

// EnumDeclarations returns the enums declared in the file.
func (mf *ModelFile) EnumDeclarations() []*ClassDeclaration { return mf.declarationsOf(KindEnum) }

func (mf *ModelFile) declarationsOf(k Kind) []*ClassDeclaration {
	var out []*ClassDeclaration
	for _, cd := range mf.declarations {
		if cd.Kind() == k {
			out = append(out, cd)
		}
	}
	return out
}

// LocalType returns the declaration of name in this file. name may be short
// or qualified with the file's namespace.
func (mf *ModelFile) LocalType(name string) *ClassDeclaration {
	if ns := NamespaceOf(name); ns != "" {
		if ns != mf.namespace {
			return nil
		}
		name = ShortName(name)
	}
	return mf.localTypes[name]
}

// IsLocalType reports whether name is declared in this file.
func (mf *ModelFile) IsLocalType(name string) bool {
	return mf.LocalType(name) != nil
}

// IsImportedType reports whether the short name is brought into scope by an
// import of the file.
func (mf *ModelFile) IsImportedType(name string) bool {
	return mf.isImportedType(mf.mm.registry(), name)
}

// ResolveImport returns the fully qualified name an imported short name
// refers to.
func (mf *ModelFile) ResolveImport(name string) (string, error) {
	return mf.resolveImport(mf.mm.registry(), name)
}

// Type returns the declaration a type name refers to from this file: an
// imported type, a local type or a fully qualified name. It returns nil for
// primitives and unknown names.
func (mf *ModelFile) Type(name string) *ClassDeclaration {
	return mf.lookup(mf.mm.registry(), name)
}

// FullyQualifiedTypeName returns the fully qualified name of a type used in
// this file. Primitive names are returned unchanged; unknown names yield "".
func (mf *ModelFile) FullyQualifiedTypeName(name string) string {
	return mf.fullyQualifiedTypeName(mf.mm.registry(), name)
}

// ResolveType checks that name refers to a primitive, local or imported
// type and returns its fully qualified name.
func (mf *ModelFile) ResolveType(context, name string, loc concerto.Location) (string, error) {
	return mf.resolveType(mf.mm.registry(), context, name, loc)
}

// Validate checks the file against the registered model files, as if it
// replaced the file registered under its namespace.
func (mf *ModelFile) Validate() error {
	r := mf.mm.registry().clone()
	r.put(mf)
	return mf.validate(r)
}

func (mf *ModelFile) isImportedType(r *registry, name string) bool {
	_, ok := mf.importedName(r, name)
	return ok
}

func (mf *ModelFile) importedName(r *registry, name string) (string, bool) {
	if fqn, ok := mf.shortNames[name]; ok {
		return fqn, true
	}
	for _, ns := range mf.wildcards {
		if other := r.file(ns); other != nil && other.IsLocalType(name) {
			return FullyQualifiedName(ns, name), true
		}
	}
	for _, prefix := range mf.recursive {
		for _, other := range r.modelFiles() {
			if inNamespaceTree(other.Namespace(), prefix) && other.IsLocalType(name) {
				return FullyQualifiedName(other.Namespace(), name), true
			}
		}
	}
	return "", false
}

func (mf *ModelFile) resolveImport(r *registry, name string) (string, error) {
	if fqn, ok := mf.importedName(r, name); ok {
		return fqn, nil
	}
	return "", concerto.IllegalModelf(mf.name, concerto.Location{},
		"Failed to find fully qualified type name for type %s in namespace %s with imports %s",
		name, mf.namespace, strings.Join(mf.imports, ","))
}

// lookup resolves a type name as written in this file.
func (mf *ModelFile) lookup(r *registry, name string) *ClassDeclaration {
	if name == "" || IsPrimitiveType(name) {
		return nil
	}
	if NamespaceOf(name) != "" {
		if name == FullyQualifiedName(mf.namespace, ShortName(name)) {
			return mf.LocalType(name)
		}
		cd, _ := r.typeOf(name)
		return cd
	}
	if fqn, ok := mf.importedName(r, name); ok {
		cd, _ := r.typeOf(fqn)
		return cd
	}
	return mf.LocalType(name)
}

func (mf *ModelFile) fullyQualifiedTypeName(r *registry, name string) string {
	if IsPrimitiveType(name) {
		return name
	}
	if cd := mf.lookup(r, name); cd != nil {
		return cd.FullyQualifiedName()
	}
	return ""
}

func (mf *ModelFile) resolveType(r *registry, context, name string, loc concerto.Location) (string, error) {
	if IsPrimitiveType(name) {
		return name, nil
	}
	if NamespaceOf(name) != "" {
		return r.resolveType(mf.name, context, name, loc)
	}
	if fqn, ok := mf.importedName(r, name); ok {
		return r.resolveType(mf.name, context, fqn, loc)
	}
	if cd := mf.LocalType(name); cd != nil {
		return cd.FullyQualifiedName(), nil
	}
	return "", concerto.IllegalModelf(mf.name, loc, "Undeclared type %s in %s.", name, context)
}

// validate checks the imports of the file and then each declaration,
// resolving names against r.
func (mf *ModelFile) validate(r *registry) error {
	for _, name := range mf.imports {
		if err := mf.validateImport(r, name); err != nil {
			return err
		}
	}
	for i, cd := range mf.declarations {
		for _, other := range mf.declarations[i+1:] {
			if cd.Name() == other.Name() {
				return concerto.IllegalModelf(mf.name, other.Location(), "Duplicate class name %s", other.Name())
			}
		}
	}
	for _, cd := range mf.declarations {
		if err := cd.validate(r); err != nil {
			return err
		}
	}
	return nil
}

func (mf *ModelFile) validateImport(r *registry, name string) error {
	var loc concerto.Location
	if node := mf.importNodes[name]; node != nil {
		loc = node.Location
	}
	ns := NamespaceOf(name)
	if IsRecursiveWildcardName(name) {
		for _, other := range r.modelFiles() {
			if inNamespaceTree(other.Namespace(), ns) {
				return nil
			}
		}
		return concerto.IllegalModelf(mf.name, loc, "No registered namespace for type %s", name)
	}
	other := r.file(ns)
	if other == nil {
		return concerto.IllegalModelf(mf.name, loc, "No registered namespace for type %s", name)
	}
	if IsWildcardName(name) {
		return nil
	}
	if !other.IsLocalType(ShortName(name)) {
		return concerto.IllegalModelf(mf.name, loc, "No type %s in namespace %s", ShortName(name), ns)
	}
	return nil
}

// inNamespaceTree reports whether ns equals root or is nested below it.
func inNamespaceTree(ns, root string) bool {
	return ns == root || strings.HasPrefix(ns, root+".")
}
