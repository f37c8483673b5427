// Package gen runs code generators over a model graph.
//
// A generator is an introspect.Visitor with a name. Generate hands each
// configured generator the model manager together with a FileWriter, and
// the generator walks the graph writing files line by line:
//
//	err := gen.Generate(ctx, mm,
//	    gen.WithTarget("./out"),
//	    gen.WithGenerators(golang.New(), typescript.New()),
//	)
//
// Generators run in parallel, bounded by WithWorkers. Each writes below
// Target/<name> unless WithWriter supplies a different FileWriter, such as
// a MemoryWriter in tests.
//
// # Generators
//
//   - golang: Go structs, one file per namespace
//   - typescript: classes and enums, one file per namespace
//   - java: one class per declaration with Jackson annotations
//   - jsonschema: a draft-04 schema per concrete asset, transaction and concept
//   - loopback: LoopBack model definitions
//   - plantuml: a class diagram
//   - graphql: an SDL schema plus a matching gqlgen.yml
//   - sqlschema: DDL for identified declarations, per SQL dialect
//
// # Error Handling
//
//   - ConfigError: invalid options, matched by ErrMissingConfig
//   - GenerationError: a generator failed, matched by ErrGenerationFailed
//
// Example error handling:
//
//	if err := gen.Generate(ctx, mm, opts...); err != nil {
//	    if errors.Is(err, gen.ErrMissingConfig) {
//	        // fix the configuration
//	    }
//	}
package gen
