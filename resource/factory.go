package resource

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/syssam/concerto/introspect"
)

// timestampField is declared by the system Transaction and Event types.
const timestampField = "timestamp"

// Factory creates instances of the types registered with a ModelManager.
type Factory struct {
	mm    *introspect.ModelManager
	now   func() time.Time
	newID func() string
	seed  *uint64
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithClock sets the clock used for transaction and event timestamps.
func WithClock(now func() time.Time) FactoryOption {
	return func(f *Factory) {
		if now != nil {
			f.now = now
		}
	}
}

// WithIDGenerator sets the generator of transaction and event identifiers.
func WithIDGenerator(newID func() string) FactoryOption {
	return func(f *Factory) {
		if newID != nil {
			f.newID = newID
		}
	}
}

// NewFactory returns a factory for the types of mm. Generated identifiers
// are random UUIDs and timestamps are taken in UTC.
func NewFactory(mm *introspect.ModelManager, opts ...FactoryOption) *Factory {
	f := &Factory{
		mm:    mm,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ModelManager returns the model manager of the factory.
func (f *Factory) ModelManager() *introspect.ModelManager { return f.mm }

// NewResource creates an asset, participant, transaction or event with the
// given identifier. Fields with defaults are populated; WithGenerate fills
// the others.
func (f *Factory) NewResource(namespace, typ, id string, opts ...InstanceOption) (*Resource, error) {
	fqn := introspect.FullyQualifiedName(namespace, typ)
	if strings.TrimSpace(id) == "" {
		return nil, violationf(fqn, "", "Missing identifier for instance of %s", fqn)
	}
	cd, err := f.mm.Type(fqn)
	if err != nil {
		return nil, err
	}
	switch {
	case cd.IsAbstract():
		return nil, violationf(fqn, "", "Cannot instantiate abstract type %s", fqn)
	case cd.IsConcept():
		return nil, violationf(fqn, "", "Use NewConcept to create concepts %s", fqn)
	case cd.IsEnum():
		return nil, violationf(fqn, "", "Cannot instantiate enumeration %s", fqn)
	}
	r := newResource(cd, id)
	if err := f.initialize(r, opts); err != nil {
		return nil, err
	}
	return r, nil
}

// NewConcept creates a concept instance. Fields with defaults are populated;
// WithGenerate fills the others.
func (f *Factory) NewConcept(namespace, typ string, opts ...InstanceOption) (*Resource, error) {
	fqn := introspect.FullyQualifiedName(namespace, typ)
	cd, err := f.mm.Type(fqn)
	if err != nil {
		return nil, err
	}
	if !cd.IsConcept() {
		return nil, violationf(fqn, "", "Class is not a concept %s", fqn)
	}
	if cd.IsAbstract() {
		return nil, violationf(fqn, "", "Cannot instantiate abstract type %s", fqn)
	}
	r := newResource(cd, "")
	if err := f.initialize(r, opts); err != nil {
		return nil, err
	}
	return r, nil
}

// NewRelationship creates a relationship to an instance of an identified type.
func (f *Factory) NewRelationship(namespace, typ, id string) (*Relationship, error) {
	fqn := introspect.FullyQualifiedName(namespace, typ)
	cd, err := f.mm.Type(fqn)
	if err != nil {
		return nil, err
	}
	if !cd.IsIdentified() {
		return nil, violationf(fqn, "", "Cannot create a relationship to %s, which is not identified", fqn)
	}
	if strings.TrimSpace(id) == "" {
		return nil, violationf(fqn, "", "Missing identifier for relationship to %s", fqn)
	}
	return &Relationship{Namespace: namespace, Type: typ, ID: id}, nil
}

// NewTransaction creates a transaction stamped with the current time. An
// empty id is replaced with a generated one.
func (f *Factory) NewTransaction(namespace, typ, id string, opts ...InstanceOption) (*Resource, error) {
	return f.newStamped(namespace, typ, id, (*introspect.ClassDeclaration).IsTransaction, "transaction", opts)
}

// NewEvent creates an event stamped with the current time. An empty id is
// replaced with a generated one.
func (f *Factory) NewEvent(namespace, typ, id string, opts ...InstanceOption) (*Resource, error) {
	return f.newStamped(namespace, typ, id, (*introspect.ClassDeclaration).IsEvent, "event", opts)
}

func (f *Factory) newStamped(namespace, typ, id string, is func(*introspect.ClassDeclaration) bool, kind string, opts []InstanceOption) (*Resource, error) {
	fqn := introspect.FullyQualifiedName(namespace, typ)
	cd, err := f.mm.Type(fqn)
	if err != nil {
		return nil, err
	}
	if !is(cd) {
		return nil, violationf(fqn, "", "%s is not %s %s", fqn, article(kind), kind)
	}
	if id == "" {
		id = f.newID()
	}
	r, err := f.NewResource(namespace, typ, id, opts...)
	if err != nil {
		return nil, err
	}
	r.Set(timestampField, f.now())
	return r, nil
}

func applyDefaults(r *Resource) {
	for _, p := range r.class.Properties() {
		fd, ok := p.(*introspect.Field)
		if !ok || r.Has(p.Name()) {
			continue
		}
		if v := fd.DefaultValue(); v != nil {
			r.data[p.Name()] = v
		}
	}
}

func article(word string) string {
	if strings.ContainsRune("aeiou", rune(word[0])) {
		return "an"
	}
	return "a"
}
