package commands

import (
	"encoding/json"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/syssam/concerto/compiler/load"
)

func (a *app) newInspectCommand() *cobra.Command {
	var format, typeName string
	cmd := &cobra.Command{
		Use:   "inspect [paths...]",
		Short: "Describe the declarations of a model",
		Long: `Print the declarations of the model, with their resolved supertypes,
fields and decorators, as JSON or YAML.

Examples:
  concerto inspect models/
  concerto inspect --format yaml --type org.acme.Vehicle models/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			mm, err := a.loadModels(args)
			if err != nil {
				return err
			}
			var out any
			if typeName != "" {
				cd, err := mm.Type(typeName)
				if err != nil {
					return err
				}
				out = load.NewSchema(cd)
			} else {
				out = load.Describe(mm)
			}
			return encode(cmd.OutOrStdout(), format, out)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json or yaml")
	cmd.Flags().StringVarP(&typeName, "type", "t", "", "fully qualified name of a single declaration")
	return cmd
}

func encode(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return errors.Newf("unknown format %q, expected json or yaml", format)
}
