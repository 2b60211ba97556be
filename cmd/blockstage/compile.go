package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/blockstage/internal/project"
)

var flagCompileJSON bool

var compileCmd = &cobra.Command{
	Use:   "compile <project>",
	Short: "Show the script a project compiles to",
	Long: `Compile a project's block program and print the resulting handler
scripts. Raw scripts from the project override generated handlers of
the same name, exactly as the preview runs them.

Examples:
  blockstage compile examples/bounce.yaml
  blockstage compile examples/bounce.yaml --json`,
	Args: cobra.ExactArgs(1),
	Run:  runCompile,
}

func init() {
	compileCmd.Flags().BoolVar(&flagCompileJSON, "json", false, "Print the handler map as JSON")
}

func runCompile(cmd *cobra.Command, args []string) {
	loader := project.NewLoader(".")
	proj, err := loader.LoadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	handlers, warnings := proj.CompileHandlers()
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}

	if flagCompileJSON {
		out, jsonErr := json.MarshalIndent(handlers, "", "  ")
		if jsonErr != nil {
			fmt.Fprintf(os.Stderr, "Error encoding handlers: %v\n", jsonErr)
			os.Exit(1)
		}
		fmt.Println(string(out))
		return
	}

	if len(handlers) == 0 {
		fmt.Println("No handlers; the project has no blocks and no scripts.")
		return
	}

	names := make([]string, 0, len(handlers))
	for name := range handlers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Printf("// %s\n%s\n\n", name, handlers[name])
	}
}
