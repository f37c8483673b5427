package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/syssam/concerto/compiler/load"
	"github.com/syssam/concerto/dialect/sqlschema"
	"github.com/syssam/concerto/introspect"
	"github.com/syssam/concerto/logger"
	"github.com/syssam/concerto/network"
	"github.com/syssam/concerto/store"
)

// ArchiveExt is the extension of binary network archives.
const ArchiveExt = ".cna"

func (a *app) newArchiveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Package models as business network archives",
		Long: `Create business network archives from model files and keep them in the
archive store configured by store.driver and store.dsn.

Archives ending in .json are written and read as JSON, anything else as
the binary archive format.

Examples:
  concerto archive create --name fleet --version 1.0.0 models/
  concerto archive push fleet@1.0.0.cna
  concerto archive list
  concerto archive pull fleet@1.0.0 -o fleet.json
  concerto archive delete fleet@1.0.0`,
	}
	cmd.AddCommand(
		a.newArchiveCreateCommand(),
		a.newArchivePushCommand(),
		a.newArchiveListCommand(),
		a.newArchivePullCommand(),
		a.newArchiveDeleteCommand(),
	)
	return cmd
}

func (a *app) newArchiveCreateCommand() *cobra.Command {
	var (
		meta   network.Metadata
		readme string
		output string
	)
	cmd := &cobra.Command{
		Use:   "create [paths...]",
		Short: "Create an archive from model files",
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := a.paths(args)
			if err != nil {
				return err
			}
			if readme != "" {
				data, err := os.ReadFile(readme)
				if err != nil {
					return errors.Wrap(err, "read readme")
				}
				meta.Readme = string(data)
			}
			d, err := network.New(meta, introspect.WithDecoratorFactories(sqlschema.Factory))
			if err != nil {
				return err
			}
			if err := d.CheckEngine(Version); err != nil {
				return err
			}
			sources, err := load.Sources(paths...)
			if err != nil {
				return err
			}
			models := make([]network.ModelSource, len(sources))
			for i, src := range sources {
				models[i] = network.ModelSource{FileName: filepath.Base(src.Path), Definitions: src.Text}
			}
			if err := d.AddModelFiles(models...); err != nil {
				return err
			}
			if output == "" {
				output = d.Identifier() + ArchiveExt
			}
			if err := writeArchive(output, d); err != nil {
				return err
			}
			pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("created %s with %d model files: %s", d.Identifier(), len(models), output)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&meta.Name, "name", "", "network name")
	flags.StringVar(&meta.Version, "version", "", "network version (semver)")
	flags.StringVar(&meta.Description, "description", "", "network description")
	flags.StringVar(&meta.Engine, "engine", "", "semver constraint on the concerto version, e.g. ^0.1.0")
	flags.StringVar(&readme, "readme", "", "markdown file stored as the readme")
	flags.StringVarP(&output, "output", "o", "", "archive file (default <name>@<version>.cna)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("version")
	return cmd
}

func (a *app) newArchivePushCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "push FILE",
		Short: "Save an archive file in the archive store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := readArchive(args[0])
			if err != nil {
				return err
			}
			if err := d.CheckEngine(Version); err != nil {
				return err
			}
			return a.withStore(cmd, func(s *store.Store) error {
				rec, err := s.Save(cmd.Context(), d)
				if err != nil {
					return err
				}
				pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("pushed %s (%d bytes, id %s)", rec.Identifier, rec.Size, rec.ID)
				return nil
			})
		},
	}
}

func (a *app) newArchiveListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list [identifiers...]",
		Short: "List the archives in the archive store",
		Long: `List every stored archive, or only the given identifiers. Identifiers
that are not stored are reported as warnings.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(s *store.Store) error {
				out := cmd.OutOrStdout()
				var recs []*store.Record
				if len(args) == 0 {
					all, err := s.List(cmd.Context())
					if err != nil {
						return err
					}
					recs = all
				} else {
					found, errs, err := s.GetMany(cmd.Context(), args)
					if err != nil {
						return err
					}
					for i, rec := range found {
						if errs[i] != nil {
							pterm.Warning.WithWriter(out).Println(errs[i])
							continue
						}
						recs = append(recs, rec)
					}
				}
				if len(recs) == 0 {
					pterm.Info.WithWriter(out).Println("no archives stored")
					return nil
				}
				data := pterm.TableData{{"Identifier", "Size", "Created"}}
				for _, rec := range recs {
					data = append(data, []string{rec.Identifier, pterm.Sprint(rec.Size), rec.CreatedAt.Format(time.RFC3339)})
				}
				return pterm.DefaultTable.WithHasHeader().WithWriter(out).WithData(data).Render()
			})
		},
	}
}

func (a *app) newArchivePullCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "pull IDENTIFIER",
		Short: "Write a stored archive to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(s *store.Store) error {
				d, err := s.Load(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if output == "" {
					output = d.Identifier() + ArchiveExt
				}
				if err := writeArchive(output, d); err != nil {
					return err
				}
				pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("pulled %s: %s", d.Identifier(), output)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "archive file (default <identifier>.cna)")
	return cmd
}

func (a *app) newArchiveDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete IDENTIFIER",
		Short: "Remove an archive from the archive store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(s *store.Store) error {
				if err := s.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("deleted %s", args[0])
				return nil
			})
		},
	}
}

// withStore opens the configured archive store for the duration of fn.
func (a *app) withStore(cmd *cobra.Command, fn func(*store.Store) error) (err error) {
	s, err := store.Open(cmd.Context(), a.cfg.Store.Driver, a.cfg.Store.DSN, store.WithLogger(logger.Named("store")))
	if err != nil {
		return errors.Wrapf(err, "open %s archive store", a.cfg.Store.Driver)
	}
	defer func() {
		err = errors.CombineErrors(err, s.Close())
	}()
	return fn(s)
}

func isJSON(path string) bool {
	return filepath.Ext(path) == ".json"
}

func writeArchive(path string, d *network.Definition) error {
	var (
		data []byte
		err  error
	)
	if isJSON(path) {
		data, err = d.MarshalJSON()
	} else {
		data, err = d.MarshalArchive()
	}
	if err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(path, data, 0o644), "write %s", path)
}

func readArchive(path string) (*network.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	opt := introspect.WithDecoratorFactories(sqlschema.Factory)
	if isJSON(path) || bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		return network.FromJSON(data, opt)
	}
	return network.UnmarshalArchive(data, opt)
}
