package introspect

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/syssam/concerto"
)

// Errors returned by ModelManager mutations.
var (
	// ErrNamespaceExists is returned when adding a namespace that is
	// already registered.
	ErrNamespaceExists = errors.New("namespace already exists")

	// ErrModelFileNotFound is returned when updating or deleting a
	// namespace that is not registered.
	ErrModelFileNotFound = errors.New("model file does not exist")

	// ErrSystemNamespace is returned when user code tries to add, update
	// or delete the system namespace.
	ErrSystemNamespace = errors.New("system namespace is reserved")
)

// NamespaceError reports a registry mutation rejected because of the state
// of a namespace. It matches one of the sentinels above with errors.Is.
type NamespaceError struct {
	Namespace string
	Message   string
	kind      error
}

// Error returns the error string.
func (e *NamespaceError) Error() string {
	return e.Message
}

// Is reports whether the target is the sentinel of the error.
func (e *NamespaceError) Is(target error) bool {
	return target == e.kind
}

func namespaceError(kind error, ns, format string, args ...any) *NamespaceError {
	return &NamespaceError{Namespace: ns, Message: fmt.Sprintf(format, args...), kind: kind}
}

// ModelManager is the registry of model files, keyed by namespace. It is
// safe for concurrent use: readers see a consistent snapshot and writers
// are serialised. A mutation that fails validation is never published.
type ModelManager struct {
	mu    sync.Mutex // serialises writers
	state atomic.Pointer[registry]
	log   *zap.Logger

	factoriesMu sync.RWMutex
	factories   []DecoratorFactory

	system *ModelFile
}

type config struct {
	log       *zap.Logger
	factories []DecoratorFactory
}

// Option configures a ModelManager.
type Option func(*config) error

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) error {
		if l == nil {
			return errors.New("concerto: nil logger")
		}
		c.log = l
		return nil
	}
}

// WithDecoratorFactories registers decorator factories, consulted in the
// given order when model files are constructed.
func WithDecoratorFactories(factories ...DecoratorFactory) Option {
	return func(c *config) error {
		for _, f := range factories {
			if f == nil {
				return errors.New("concerto: nil decorator factory")
			}
		}
		c.factories = append(c.factories, factories...)
		return nil
	}
}

// NewModelManager returns a model manager holding only the system model.
func NewModelManager(opts ...Option) (*ModelManager, error) {
	cfg := &config{log: zap.NewNop()}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	mm := &ModelManager{log: cfg.log, factories: cfg.factories}
	mm.state.Store(newRegistry())
	system, err := NewModelFile(mm, systemModel, systemFileName)
	if err != nil {
		return nil, errors.Wrap(err, "concerto: parse system model")
	}
	r := newRegistry()
	r.put(system)
	if err := system.validate(r); err != nil {
		return nil, errors.Wrap(err, "concerto: validate system model")
	}
	mm.system = system
	mm.state.Store(r)
	return mm, nil
}

// registry returns the committed registry.
func (mm *ModelManager) registry() *registry {
	return mm.state.Load()
}

// Accept calls v.Visit(mm, params).
func (mm *ModelManager) Accept(v Visitor, params Parameters) (any, error) {
	return v.Visit(mm, params)
}

// AddDecoratorFactory appends a factory. It affects model files constructed
// afterwards.
func (mm *ModelManager) AddDecoratorFactory(f DecoratorFactory) {
	mm.factoriesMu.Lock()
	defer mm.factoriesMu.Unlock()
	mm.factories = append(mm.factories, f)
}

// DecoratorFactories returns the registered factories in registration order.
func (mm *ModelManager) DecoratorFactories() []DecoratorFactory {
	mm.factoriesMu.RLock()
	defer mm.factoriesMu.RUnlock()
	return slices.Clone(mm.factories)
}

// AddModelFile parses text, validates it and registers it under its
// namespace.
func (mm *ModelManager) AddModelFile(text, fileName string) (*ModelFile, error) {
	mf, err := NewModelFile(mm, text, fileName)
	if err != nil {
		return nil, err
	}
	return mm.AddModelFileObject(mf)
}

// AddModelFileObject validates mf and registers it under its namespace.
func (mm *ModelManager) AddModelFileObject(mf *ModelFile) (*ModelFile, error) {
	if err := mm.owns(mf); err != nil {
		return nil, err
	}
	if mf.IsSystemModelFile() {
		return nil, namespaceError(ErrSystemNamespace, mf.Namespace(),
			"Cannot add a model file with the reserved system namespace: %s", mf.Namespace())
	}
	mm.mu.Lock()
	defer mm.mu.Unlock()
	cur := mm.registry()
	if existing := cur.file(mf.Namespace()); existing != nil {
		return nil, alreadyExists(mf, existing)
	}
	next := cur.clone()
	next.put(mf)
	if err := mf.validate(next); err != nil {
		return nil, err
	}
	mm.state.Store(next)
	mm.log.Debug("model file added", zap.String("namespace", mf.Namespace()), zap.String("file", mf.Name()))
	return mf, nil
}

// UpdateModelFile parses text and replaces the registered file of the same
// namespace. The previous file stays registered when validation fails.
func (mm *ModelManager) UpdateModelFile(text, fileName string) (*ModelFile, error) {
	mf, err := NewModelFile(mm, text, fileName)
	if err != nil {
		return nil, err
	}
	return mm.UpdateModelFileObject(mf)
}

// UpdateModelFileObject replaces the registered file of mf's namespace.
func (mm *ModelManager) UpdateModelFileObject(mf *ModelFile) (*ModelFile, error) {
	if err := mm.owns(mf); err != nil {
		return nil, err
	}
	mm.mu.Lock()
	defer mm.mu.Unlock()
	cur := mm.registry()
	existing := cur.file(mf.Namespace())
	switch {
	case existing == nil:
		return nil, namespaceError(ErrModelFileNotFound, mf.Namespace(), "model file does not exist")
	case existing.IsSystemModelFile():
		return nil, namespaceError(ErrSystemNamespace, mf.Namespace(), "System namespace can not be updated")
	}
	next := cur.clone()
	next.put(mf)
	if err := mf.validate(next); err != nil {
		return nil, err
	}
	mm.state.Store(next)
	mm.log.Debug("model file updated", zap.String("namespace", mf.Namespace()), zap.String("file", mf.Name()))
	return mf, nil
}

// DeleteModelFile unregisters a namespace.
func (mm *ModelManager) DeleteModelFile(namespace string) error {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	cur := mm.registry()
	switch {
	case cur.file(namespace) == nil:
		return namespaceError(ErrModelFileNotFound, namespace, "model file does not exist")
	case IsSystemNamespace(namespace):
		return namespaceError(ErrSystemNamespace, namespace, "Cannot delete system namespace")
	}
	next := cur.clone()
	next.remove(namespace)
	mm.state.Store(next)
	mm.log.Debug("model file deleted", zap.String("namespace", namespace))
	return nil
}

// AddModelFiles parses texts and adds them as one batch. fileNames may be
// nil or shorter than texts.
func (mm *ModelManager) AddModelFiles(texts, fileNames []string) ([]*ModelFile, error) {
	files := make([]*ModelFile, 0, len(texts))
	for i, text := range texts {
		var name string
		if i < len(fileNames) {
			name = fileNames[i]
		}
		mf, err := NewModelFile(mm, text, name)
		if err != nil {
			return nil, err
		}
		files = append(files, mf)
	}
	return mm.AddModelFileObjects(files)
}

// AddModelFileObjects registers files as one batch. After insertion every
// registered file is validated again, since the new files may resolve names
// the existing ones depend on. Either the whole batch becomes visible or
// the registry is left as it was and the first error is returned.
func (mm *ModelManager) AddModelFileObjects(files []*ModelFile) ([]*ModelFile, error) {
	for _, mf := range files {
		if err := mm.owns(mf); err != nil {
			return nil, err
		}
	}
	mm.mu.Lock()
	defer mm.mu.Unlock()
	next := mm.registry().clone()
	added := make([]*ModelFile, 0, len(files))
	for _, mf := range files {
		if mf.IsSystemModelFile() {
			return nil, namespaceError(ErrSystemNamespace, mf.Namespace(), "System namespace can not be updated")
		}
		if existing := next.file(mf.Namespace()); existing != nil {
			return nil, alreadyExists(mf, existing)
		}
		next.put(mf)
		added = append(added, mf)
	}
	for _, mf := range next.modelFiles() {
		if err := mf.validate(next); err != nil {
			mm.log.Warn("model file batch rolled back",
				zap.Int("files", len(files)), zap.String("namespace", mf.Namespace()), zap.Error(err))
			return nil, err
		}
	}
	mm.state.Store(next)
	mm.log.Debug("model file batch added", zap.Int("files", len(added)))
	return added, nil
}

// Validate validates every registered model file.
func (mm *ModelManager) Validate() error {
	r := mm.registry()
	for _, mf := range r.modelFiles() {
		if err := mf.validate(r); err != nil {
			return err
		}
	}
	return nil
}

// Clear removes every model file but the system model.
func (mm *ModelManager) Clear() {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	r := newRegistry()
	r.put(mm.system)
	mm.state.Store(r)
	mm.log.Debug("model files cleared")
}

// ModelFile returns the file registered for namespace, or nil.
func (mm *ModelManager) ModelFile(namespace string) *ModelFile {
	return mm.registry().file(namespace)
}

// ModelFiles returns the registered files in registration order, starting
// with the system model.
func (mm *ModelManager) ModelFiles() []*ModelFile {
	return mm.registry().modelFiles()
}

// Namespaces returns the registered namespaces in registration order.
func (mm *ModelManager) Namespaces() []string {
	return slices.Clone(mm.registry().order)
}

// ResolveType returns typeName when it is a primitive or a type declared in
// a registered namespace. context names the construct in the error.
func (mm *ModelManager) ResolveType(context, typeName string) (string, error) {
	return mm.registry().resolveType("", context, typeName, concerto.Location{})
}

// Type returns the declaration of a fully qualified type. The error is a
// *concerto.TypeNotFoundError.
func (mm *ModelManager) Type(fqn string) (*ClassDeclaration, error) {
	return mm.registry().typeOf(fqn)
}

// SystemTypes returns the core system types: Asset, Participant,
// Transaction and Event.
func (mm *ModelManager) SystemTypes() []*ClassDeclaration {
	return mm.registry().systemTypes()
}

// DeclarationOption filters the declarations returned by the aggregate
// getters of a ModelManager.
type DeclarationOption func(*declarationFilter)

type declarationFilter struct {
	excludeSystem bool
}

// ExcludeSystemTypes leaves out the declarations of the system model.
func ExcludeSystemTypes() DeclarationOption {
	return func(f *declarationFilter) { f.excludeSystem = true }
}

// ClassDeclarations returns every declaration across all model files.
func (mm *ModelManager) ClassDeclarations(opts ...DeclarationOption) []*ClassDeclaration {
	return mm.declarations(nil, opts)
}

// AssetDeclarations returns the assets of all model files.
func (mm *ModelManager) AssetDeclarations(opts ...DeclarationOption) []*ClassDeclaration {
	return mm.declarationsOf(KindAsset, opts)
}

// ParticipantDeclarations returns the participants of all model files.
func (mm *ModelManager) ParticipantDeclarations(opts ...DeclarationOption) []*ClassDeclaration {
	return mm.declarationsOf(KindParticipant, opts)
}

// TransactionDeclarations returns the transactions of all model files.
func (mm *ModelManager) TransactionDeclarations(opts ...DeclarationOption) []*ClassDeclaration {
	return mm.declarationsOf(KindTransaction, opts)
}

// EventDeclarations returns the events of all model files.
func (mm *ModelManager) EventDeclarations(opts ...DeclarationOption) []*ClassDeclaration {
	return mm.declarationsOf(KindEvent, opts)
}

// ConceptDeclarations returns the concepts of all model files.
func (mm *ModelManager) ConceptDeclarations(opts ...DeclarationOption) []*ClassDeclaration {
	return mm.declarationsOf(KindConcept, opts)
}

// EnumDeclarations returns the enums of all model files.
func (mm *ModelManager) EnumDeclarations(opts ...DeclarationOption) []*ClassDeclaration {
	return mm.declarationsOf(KindEnum, opts)
}

func (mm *ModelManager) declarationsOf(k Kind, opts []DeclarationOption) []*ClassDeclaration {
	return mm.declarations(func(cd *ClassDeclaration) bool { return cd.Kind() == k }, opts)
}

func (mm *ModelManager) declarations(keep func(*ClassDeclaration) bool, opts []DeclarationOption) []*ClassDeclaration {
	var f declarationFilter
	for _, opt := range opts {
		opt(&f)
	}
	if !f.excludeSystem {
		return mm.registry().declarations(keep)
	}
	return mm.registry().declarations(func(cd *ClassDeclaration) bool {
		return !cd.IsSystemType() && (keep == nil || keep(cd))
	})
}

func (mm *ModelManager) owns(mf *ModelFile) error {
	if mf == nil {
		return errors.New("concerto: nil model file")
	}
	if mf.mm != mm {
		return errors.Newf("concerto: model file %s belongs to another model manager", mf.Namespace())
	}
	return nil
}

func alreadyExists(mf, existing *ModelFile) error {
	var specified, declared string
	if mf.Name() != "" {
		specified = " specified in file " + mf.Name()
	}
	if existing.Name() != "" {
		declared = " in file " + existing.Name()
	}
	return namespaceError(ErrNamespaceExists, mf.Namespace(),
		"namespace %s already exists: Namespace %s%s is already declared%s",
		mf.Namespace(), mf.Namespace(), specified, declared)
}
