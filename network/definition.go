// Package network groups model files into a versioned business network
// definition that can be archived and restored.
package network

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"

	"github.com/syssam/concerto/introspect"
	"github.com/syssam/concerto/resource"
)

// ErrInvalidDefinition is returned for definitions with a malformed name,
// version or engine constraint.
var ErrInvalidDefinition = errors.New("concerto: invalid network definition")

// Metadata describes a business network.
type Metadata struct {
	Name        string `json:"name" msgpack:"name" yaml:"name"`
	Version     string `json:"version" msgpack:"version" yaml:"version"`
	Description string `json:"description,omitempty" msgpack:"description,omitempty" yaml:"description,omitempty"`
	Readme      string `json:"readme,omitempty" msgpack:"readme,omitempty" yaml:"readme,omitempty"`
	// Engine is a semantic version constraint on the modelling runtime,
	// such as "^0.19".
	Engine string `json:"engine,omitempty" msgpack:"engine,omitempty" yaml:"engine,omitempty"`
}

// Validate checks the name, version and engine constraint.
func (m Metadata) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return errors.Wrap(ErrInvalidDefinition, "name is required")
	}
	if strings.ContainsAny(m.Name, "@ ") {
		return errors.Wrapf(ErrInvalidDefinition, "name %q must not contain '@' or spaces", m.Name)
	}
	if _, err := semver.StrictNewVersion(m.Version); err != nil {
		return errors.Wrapf(ErrInvalidDefinition, "version %q: %v", m.Version, err)
	}
	if m.Engine != "" {
		if _, err := semver.NewConstraint(m.Engine); err != nil {
			return errors.Wrapf(ErrInvalidDefinition, "engine constraint %q: %v", m.Engine, err)
		}
	}
	return nil
}

// Definition is a named, versioned set of model files together with the
// model manager that validates them.
type Definition struct {
	meta         Metadata
	mm           *introspect.ModelManager
	factory      *resource.Factory
	serializer   *resource.Serializer
	introspector *introspect.Introspector
}

// New returns an empty definition. The model manager recognises the
// @returns decorator in addition to any factories given in opts.
func New(meta Metadata, opts ...introspect.Option) (*Definition, error) {
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	opts = append([]introspect.Option{introspect.WithDecoratorFactories(introspect.ReturnsDecoratorFactory{})}, opts...)
	mm, err := introspect.NewModelManager(opts...)
	if err != nil {
		return nil, err
	}
	factory := resource.NewFactory(mm)
	return &Definition{
		meta:         meta,
		mm:           mm,
		factory:      factory,
		serializer:   resource.NewSerializer(factory),
		introspector: introspect.NewIntrospector(mm),
	}, nil
}

// Identifier returns name@version.
func (d *Definition) Identifier() string { return d.meta.Name + "@" + d.meta.Version }

// Name returns the network name.
func (d *Definition) Name() string { return d.meta.Name }

// Version returns the network version.
func (d *Definition) Version() string { return d.meta.Version }

// Description returns the network description.
func (d *Definition) Description() string { return d.meta.Description }

// Metadata returns a copy of the network metadata.
func (d *Definition) Metadata() Metadata { return d.meta }

// ModelManager returns the model manager holding the network's models.
func (d *Definition) ModelManager() *introspect.ModelManager { return d.mm }

// Factory returns a resource factory for the network's types.
func (d *Definition) Factory() *resource.Factory { return d.factory }

// Serializer returns a resource serializer for the network's types.
func (d *Definition) Serializer() *resource.Serializer { return d.serializer }

// Introspector returns an introspector over the network's types.
func (d *Definition) Introspector() *introspect.Introspector { return d.introspector }

// AddModelFiles adds and validates model files as one batch.
func (d *Definition) AddModelFiles(sources ...ModelSource) error {
	texts := make([]string, len(sources))
	names := make([]string, len(sources))
	for i, s := range sources {
		texts[i], names[i] = s.Definitions, s.FileName
	}
	_, err := d.mm.AddModelFiles(texts, names)
	return err
}

// CheckEngine reports whether the runtime version satisfies the engine
// constraint. Definitions without a constraint accept any runtime.
func (d *Definition) CheckEngine(runtime string) error {
	if d.meta.Engine == "" {
		return nil
	}
	v, err := semver.NewVersion(runtime)
	if err != nil {
		return errors.Wrapf(err, "invalid runtime version %s", runtime)
	}
	c, err := semver.NewConstraint(d.meta.Engine)
	if err != nil {
		return errors.Wrapf(ErrInvalidDefinition, "engine constraint %q: %v", d.meta.Engine, err)
	}
	if !c.Check(v) {
		return errors.Newf("network %s requires engine %s, but running %s", d.Identifier(), d.meta.Engine, runtime)
	}
	return nil
}

// ModelSource is the text of one model file.
type ModelSource struct {
	FileName    string `json:"fileName,omitempty" msgpack:"fileName,omitempty" yaml:"fileName,omitempty"`
	Definitions string `json:"definitions" msgpack:"definitions" yaml:"definitions"`
}

// ModelSources returns the user model files in the order they were added.
// The system model is omitted.
func (d *Definition) ModelSources() []ModelSource {
	var out []ModelSource
	for _, mf := range d.mm.ModelFiles() {
		if mf.IsSystemModelFile() {
			continue
		}
		out = append(out, ModelSource{FileName: mf.Name(), Definitions: mf.Definitions()})
	}
	return out
}
