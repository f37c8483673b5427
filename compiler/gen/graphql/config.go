package graphql

import (
	"slices"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Config is the subset of gqlgen.yml written next to the schema.
type Config struct {
	// SchemaFilename is the path(s) to the GraphQL schema file(s).
	SchemaFilename StringList `yaml:"schema,omitempty"`

	// Exec configures the generated executor.
	Exec PackageConfig `yaml:"exec,omitempty"`

	// Model configures the generated models.
	Model PackageConfig `yaml:"model,omitempty"`

	// Models is a map of GraphQL type name to model configuration.
	Models map[string]TypeMapEntry `yaml:"models,omitempty"`
}

// PackageConfig names a generated file and its package.
type PackageConfig struct {
	Filename string `yaml:"filename,omitempty"`
	Package  string `yaml:"package,omitempty"`
}

// TypeMapEntry is the configuration for a single GraphQL type.
type TypeMapEntry struct {
	// Model is the Go model(s) to bind to this GraphQL type.
	Model StringList `yaml:"model,omitempty"`

	// Fields configures field-level mappings.
	Fields map[string]TypeMapField `yaml:"fields,omitempty"`
}

// TypeMapField is the configuration for a single field.
type TypeMapField struct {
	// Resolver indicates the field has no Go struct counterpart.
	Resolver bool `yaml:"resolver,omitempty"`

	// FieldName is the Go struct field name.
	FieldName string `yaml:"fieldName,omitempty"`
}

// StringList is a YAML type that can be either a string or a list of strings.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler for StringList.
func (s *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*s = []string{node.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*s = list
		return nil
	default:
		return errors.Newf("expected string or list, got %v", node.Kind)
	}
}

// MarshalYAML implements yaml.Marshaler for StringList.
func (s StringList) MarshalYAML() (any, error) {
	if len(s) == 1 {
		return s[0], nil
	}
	return []string(s), nil
}

// NewConfig returns a config for the given schema file.
func NewConfig(schema string) *Config {
	return &Config{
		SchemaFilename: StringList{schema},
		Exec:           PackageConfig{Filename: "generated.go", Package: "graph"},
		Model:          PackageConfig{Filename: "model/models_gen.go", Package: "model"},
		Models:         make(map[string]TypeMapEntry),
	}
}

// ParseConfig decodes a gqlgen.yml document.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "parse gqlgen config")
	}
	if cfg.Models == nil {
		cfg.Models = make(map[string]TypeMapEntry)
	}
	return &cfg, nil
}

// Marshal encodes the config as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "marshal gqlgen config")
	}
	return data, nil
}

// SetModel sets the model binding for a GraphQL type.
func (c *Config) SetModel(typeName, modelPath string) {
	entry := c.Models[typeName]
	if !slices.Contains(entry.Model, modelPath) {
		entry.Model = append(entry.Model, modelPath)
	}
	c.Models[typeName] = entry
}

// SetResolver marks a field as resolved rather than bound to a struct field.
func (c *Config) SetResolver(typeName, fieldName string) {
	entry := c.Models[typeName]
	if entry.Fields == nil {
		entry.Fields = make(map[string]TypeMapField)
	}
	entry.Fields[fieldName] = TypeMapField{Resolver: true}
	c.Models[typeName] = entry
}
