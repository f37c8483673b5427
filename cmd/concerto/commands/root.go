// Package commands implements the concerto command line.
package commands

import (
	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/syssam/concerto/compiler/load"
	"github.com/syssam/concerto/dialect/sqlschema"
	"github.com/syssam/concerto/introspect"
	"github.com/syssam/concerto/logger"
)

// app is the state shared by the commands of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *Config
}

// NewRootCommand returns the concerto command tree.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}
	root := &cobra.Command{
		Use:   "concerto",
		Short: "Concerto - modelling language tooling",
		Long: `Concerto parses and validates .cto model files and generates code from them.

Available commands:
  validate - Parse and validate model files
  generate - Generate code for one or more target languages
  inspect  - Describe the declarations of a model as JSON or YAML
  watch    - Revalidate model files whenever they change
  archive  - Package models as business network archives and store them
  version  - Show version information

Examples:
  concerto validate models/
  concerto generate -l golang,typescript -o gen models/
  concerto inspect --type org.acme.Vehicle models/
  concerto archive create --name fleet --version 1.0.0 models/`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(a.v, a.cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			return logger.Initialize(cfg.Log.JSON, cfg.Log.Level)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			logger.Cleanup()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default ./concerto.yaml or $HOME/.concerto/concerto.yaml)")
	flags.StringSliceP("models", "m", nil, "model files or directories used when no paths are given")
	flags.String("log-level", "warn", "log level: debug, info, warn or error")
	flags.Bool("log-json", false, "write logs as JSON")
	flags.String("store-driver", "", "archive database driver: sqlite, mysql or postgres")
	flags.String("store-dsn", "", "archive database connection string")
	a.bind(flags.Lookup("models"), "models.dirs")
	a.bind(flags.Lookup("log-level"), "log.level")
	a.bind(flags.Lookup("log-json"), "log.json")
	a.bind(flags.Lookup("store-driver"), "store.driver")
	a.bind(flags.Lookup("store-dsn"), "store.dsn")

	root.AddCommand(
		a.newValidateCommand(),
		a.newGenerateCommand(),
		a.newInspectCommand(),
		a.newWatchCommand(),
		a.newArchiveCommand(),
		newVersionCommand(),
	)
	return root
}

// Execute runs the command tree and prints any error.
func Execute() error {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		pterm.Error.WithWriter(root.ErrOrStderr()).Println(err)
		return err
	}
	return nil
}

// bind makes a flag override the configuration key when it is set.
func (a *app) bind(flag *pflag.Flag, key string) {
	if err := a.v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

// paths returns the model paths of a command: its arguments, or the
// configured model directories.
func (a *app) paths(args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if len(a.cfg.Models.Dirs) == 0 {
		return nil, errors.New("no model paths given")
	}
	return a.cfg.Models.Dirs, nil
}

// newManager returns a model manager that understands the decorators the
// generators rely on.
func newManager() (*introspect.ModelManager, error) {
	return introspect.NewModelManager(
		introspect.WithLogger(logger.Named("models")),
		introspect.WithDecoratorFactories(introspect.ReturnsDecoratorFactory{}, sqlschema.Factory),
	)
}

// loadModels reads the model files under paths into a new manager.
func (a *app) loadModels(args []string) (*introspect.ModelManager, error) {
	paths, err := a.paths(args)
	if err != nil {
		return nil, err
	}
	mm, err := newManager()
	if err != nil {
		return nil, err
	}
	if _, err := load.Load(mm, paths...); err != nil {
		return nil, err
	}
	return mm, nil
}
