package gen

import (
	"context"
	"runtime"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/concerto"
	"github.com/syssam/concerto/introspect"
	"github.com/syssam/concerto/logger"
)

// Parameter keys set by Generate.
const (
	ParamFileWriter = "fileWriter"
	ParamHeader     = "header"
	ParamPackage    = "package"
)

// Generator turns a model graph into source files. Generators are visitors:
// Generate hands the model manager to Visit, and the generator walks down
// from there, writing through the FileWriter found in the parameters.
type Generator interface {
	introspect.Visitor
	// Name identifies the generator, e.g. "golang".
	Name() string
	// FileExtension is the extension of the main files written, e.g. ".go".
	FileExtension() string
}

// FileWriterOf returns the FileWriter stored in params.
func FileWriterOf(params introspect.Parameters) (FileWriter, error) {
	w, ok := params[ParamFileWriter].(FileWriter)
	if !ok {
		return nil, NewConfigError(ParamFileWriter, nil, "no FileWriter in parameters")
	}
	return w, nil
}

// HeaderOf returns the file header stored in params, or "".
func HeaderOf(params introspect.Parameters) string {
	s, _ := params[ParamHeader].(string)
	return s
}

// PackageOf returns the package stored in params, or def.
func PackageOf(params introspect.Parameters, def string) string {
	if s, _ := params[ParamPackage].(string); s != "" {
		return s
	}
	return def
}

// Unrecognised returns the error a generator reports for a node it does
// not handle.
func Unrecognised(node any) error {
	return concerto.NewUnrecognisedTypeError(node)
}

// Each visits nodes in order, stopping at the first error.
func Each[T introspect.Acceptor](v introspect.Visitor, params introspect.Parameters, nodes []T) error {
	for _, n := range nodes {
		if _, err := n.Accept(v, params); err != nil {
			return err
		}
	}
	return nil
}

// Generate runs the configured generators over mm in parallel.
func Generate(ctx context.Context, mm *introspect.ModelManager, opts ...Option) error {
	cfg, err := NewConfig(opts...)
	if err != nil {
		return err
	}
	return cfg.Generate(ctx, mm)
}

// Generate runs the configured generators over mm in parallel. Each
// generator gets its own FileWriter and parameters.
func (c *Config) Generate(ctx context.Context, mm *introspect.ModelManager) error {
	if mm == nil {
		return NewConfigError("ModelManager", nil, "model manager cannot be nil")
	}
	if err := c.Validate(); err != nil {
		return err
	}
	workers := c.Workers
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for _, g := range c.Generators {
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				return c.run(mm, g)
			}
		})
	}
	return eg.Wait()
}

// run invokes a single generator.
func (c *Config) run(mm *introspect.ModelManager, g Generator) error {
	start := time.Now()
	params := introspect.Parameters{
		ParamFileWriter: c.writer(g),
		ParamHeader:     c.Header,
		ParamPackage:    c.Package,
	}
	if _, err := mm.Accept(g, params); err != nil {
		var genErr *GenerationError
		if errors.As(err, &genErr) {
			return err
		}
		return NewGenerationError(g.Name(), "", "", err)
	}
	logger.Infow("generated",
		logger.FieldGenerator, g.Name(),
		logger.FieldTarget, c.Target,
		"duration", time.Since(start),
	)
	return nil
}
