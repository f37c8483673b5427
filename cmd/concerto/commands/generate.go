package commands

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/syssam/concerto/compiler/gen"
	"github.com/syssam/concerto/compiler/gen/ddl"
	"github.com/syssam/concerto/compiler/gen/golang"
	"github.com/syssam/concerto/compiler/gen/graphql"
	"github.com/syssam/concerto/compiler/gen/java"
	"github.com/syssam/concerto/compiler/gen/jsonschema"
	"github.com/syssam/concerto/compiler/gen/loopback"
	"github.com/syssam/concerto/compiler/gen/plantuml"
	"github.com/syssam/concerto/compiler/gen/typescript"
	"github.com/syssam/concerto/dialect"
)

// generators maps the language names accepted by generate to constructors.
var generators = map[string]func() (gen.Generator, error){
	"golang":     func() (gen.Generator, error) { return golang.New(), nil },
	"typescript": func() (gen.Generator, error) { return typescript.New(), nil },
	"java":       func() (gen.Generator, error) { return java.New(), nil },
	"jsonschema": func() (gen.Generator, error) { return jsonschema.New(), nil },
	"plantuml":   func() (gen.Generator, error) { return plantuml.New(), nil },
	"loopback":   func() (gen.Generator, error) { return loopback.New(), nil },
	"graphql":    func() (gen.Generator, error) { return graphql.New(), nil },
}

func init() {
	for _, name := range dialect.Dialects() {
		generators["sql-"+name] = func() (gen.Generator, error) { return ddl.New(name) }
	}
}

// Languages returns the names of the available generators, sorted.
func Languages() []string {
	names := make([]string, 0, len(generators))
	for name := range generators {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// newGenerators resolves language names, which may be comma separated.
func newGenerators(languages []string) ([]gen.Generator, error) {
	var gens []gen.Generator
	seen := make(map[string]bool)
	for _, lang := range languages {
		for _, name := range strings.Split(lang, ",") {
			name = strings.ToLower(strings.TrimSpace(name))
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			newGen, ok := generators[name]
			if !ok {
				return nil, errors.Newf("unknown language %q, expected one of %s", name, strings.Join(Languages(), ", "))
			}
			g, err := newGen()
			if err != nil {
				return nil, err
			}
			gens = append(gens, g)
		}
	}
	if len(gens) == 0 {
		return nil, errors.New("no languages selected")
	}
	return gens, nil
}

func (a *app) newGenerateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [paths...]",
		Short: "Generate code from model files",
		Long: `Load and validate the model files, then run one generator per language.
Each generator writes below <target>/<language>.

Languages: ` + strings.Join(Languages(), ", ") + `

Examples:
  concerto generate -l golang --package github.com/acme/models models/
  concerto generate -l typescript,jsonschema -o web/gen models/
  concerto generate -l sql-postgres models/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg.Generate
			gens, err := newGenerators(cfg.Languages)
			if err != nil {
				return err
			}
			mm, err := a.loadModels(args)
			if err != nil {
				return err
			}
			opts := []gen.Option{
				gen.WithTarget(cfg.Target),
				gen.WithHeader(cfg.Header),
				gen.WithGenerators(gens...),
			}
			if cfg.Package != "" {
				opts = append(opts, gen.WithPackage(cfg.Package))
			}
			if cfg.Workers > 0 {
				opts = append(opts, gen.WithWorkers(cfg.Workers))
			}
			if err := gen.Generate(cmd.Context(), mm, opts...); err != nil {
				return err
			}
			for _, g := range gens {
				pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("%s: %s", g.Name(), filepath.Join(cfg.Target, g.Name()))
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringP("target", "o", "", "output directory")
	flags.StringSliceP("lang", "l", nil, "languages to generate")
	flags.String("package", "", "package or namespace of the generated code")
	flags.String("header", "", "header comment of generated files")
	flags.Int("workers", 0, "number of generators run in parallel (default GOMAXPROCS)")
	a.bind(flags.Lookup("target"), "generate.target")
	a.bind(flags.Lookup("lang"), "generate.languages")
	a.bind(flags.Lookup("package"), "generate.package")
	a.bind(flags.Lookup("header"), "generate.header")
	a.bind(flags.Lookup("workers"), "generate.workers")
	return cmd
}
