package gen

import (
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// Config holds the settings of a generation run.
type Config struct {
	// Target is the output directory. Each generator writes below
	// Target/<generator name>.
	Target string
	// Header is written as a comment at the top of every file whose format
	// supports comments.
	Header string
	// Package is the package or module name used by generators that need one.
	Package string
	// Generators run concurrently, each with its own FileWriter.
	Generators []Generator
	// Workers bounds the number of generators running at once.
	Workers int
	// Writer returns the FileWriter for a generator. The default writes
	// to the filesystem below Target.
	Writer func(g Generator) FileWriter
}

// Option configures code generation.
type Option func(*Config) error

// WithTarget sets the output directory.
func WithTarget(dir string) Option {
	return func(c *Config) error {
		if dir == "" {
			return NewConfigError("Target", nil, "target directory cannot be empty")
		}
		c.Target = dir
		return nil
	}
}

// WithHeader sets the file header comment.
func WithHeader(header string) Option {
	return func(c *Config) error {
		c.Header = header
		return nil
	}
}

// WithPackage sets the output package name. For example:
// "github.com/acme/models".
func WithPackage(pkg string) Option {
	return func(c *Config) error {
		if pkg == "" {
			return NewConfigError("Package", nil, "package cannot be empty")
		}
		c.Package = pkg
		return nil
	}
}

// WithGenerators adds generators to the run.
func WithGenerators(gens ...Generator) Option {
	return func(c *Config) error {
		for _, g := range gens {
			if g == nil {
				return NewConfigError("Generators", nil, "generator cannot be nil")
			}
		}
		c.Generators = append(c.Generators, gens...)
		return nil
	}
}

// WithWorkers sets the number of generators running in parallel.
func WithWorkers(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return NewConfigError("Workers", n, "workers must be positive")
		}
		c.Workers = n
		return nil
	}
}

// WithWriter sets the function that returns the FileWriter of a generator.
func WithWriter(fn func(Generator) FileWriter) Option {
	return func(c *Config) error {
		if fn == nil {
			return NewConfigError("Writer", nil, "writer cannot be nil")
		}
		c.Writer = fn
		return nil
	}
}

// Apply applies options to the config.
// It returns the first error encountered.
func (c *Config) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	return nil
}

// ApplyAll applies options and collects all errors.
func (c *Config) ApplyAll(opts ...Option) error {
	var errs error
	for _, opt := range opts {
		if err := opt(c); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	}
	return errs
}

// Validate reports a missing target or an empty generator list.
func (c *Config) Validate() error {
	if len(c.Generators) == 0 {
		return NewConfigError("Generators", nil, "no generators configured")
	}
	if c.Target == "" && c.Writer == nil {
		return NewConfigError("Target", nil, "missing target directory in config")
	}
	seen := make(map[string]bool, len(c.Generators))
	for _, g := range c.Generators {
		if seen[g.Name()] {
			return NewConfigError("Generators", g.Name(), "duplicate generator")
		}
		seen[g.Name()] = true
	}
	return nil
}

// writer returns the FileWriter for g.
func (c *Config) writer(g Generator) FileWriter {
	if c.Writer != nil {
		return c.Writer(g)
	}
	return NewFSWriter(filepath.Join(c.Target, g.Name()))
}

// NewConfig creates a new Config with the given options.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{}
	if err := c.Apply(opts...); err != nil {
		return nil, err
	}
	return c, nil
}
