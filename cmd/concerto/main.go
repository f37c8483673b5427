// Command concerto validates Concerto model files and generates code from
// them.
package main

import (
	"os"

	"github.com/syssam/concerto/cmd/concerto/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
