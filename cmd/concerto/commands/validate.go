package commands

import (
	"io"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/syssam/concerto/introspect"
)

func (a *app) newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [paths...]",
		Short: "Parse and validate model files",
		Long: `Parse every .cto file under the given files or directories, resolve
imports and check the resulting model. Without arguments the configured
models.dirs are used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			mm, err := a.loadModels(args)
			if err != nil {
				return err
			}
			return report(cmd.OutOrStdout(), mm)
		},
	}
}

// report prints a summary of the namespaces of a valid model.
func report(w io.Writer, mm *introspect.ModelManager) error {
	data := pterm.TableData{{"Namespace", "File", "Declarations"}}
	var files, decls int
	for _, mf := range mm.ModelFiles() {
		if mf.IsSystemModelFile() {
			continue
		}
		files++
		decls += len(mf.AllDeclarations())
		data = append(data, []string{mf.Namespace(), mf.Name(), strconv.Itoa(len(mf.AllDeclarations()))})
	}
	pterm.Success.WithWriter(w).Printfln("%d model files with %d declarations are valid", files, decls)
	if files == 0 {
		return nil
	}
	return pterm.DefaultTable.WithHasHeader().WithWriter(w).WithData(data).Render()
}
