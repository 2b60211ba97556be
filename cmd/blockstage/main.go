// blockstage is a terminal platform for block-programmed simulations.
//
// Usage:
//
//	blockstage run <project>       - Run a project in the terminal preview
//	blockstage list                - List stored or on-disk projects
//	blockstage save <file>         - Save a project file into the database
//	blockstage delete <name>       - Delete a stored project
//	blockstage compile <project>   - Show the script a project compiles to
//	blockstage assets              - Manage stored binary assets
//	blockstage serve               - Start SSH server for remote previews
//
// Global flags:
//
//	--config <path>  - Engine config YAML (default: search ~/.blockstage, ./configs)
//	--db <path>      - Project database path (default: from engine config)
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/blockstage/internal/config"
)

var (
	// Global flags
	flagConfig string
	flagDBPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "blockstage",
	Short: "Blockstage - block-programmed simulations in your terminal",
	Long: `Blockstage runs visual-block-programmed simulations in the terminal.
Projects are YAML documents carrying a scene, a block program, and raw
script handlers; the engine compiles the blocks, runs the script in an
isolated context, and draws the stage at a fixed frame rate.

Available commands:
  run      - Run a project in the terminal preview
  list     - List projects (stored or from a directory)
  save     - Save a project file into the database
  delete   - Delete a stored project
  compile  - Show the generated handler scripts
  assets   - Manage stored binary assets
  serve    - Start SSH server for remote previews

Examples:
  blockstage run examples/bounce.yaml
  blockstage save examples/bounce.yaml
  blockstage run bounce
  blockstage serve --ssh :2222`,
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to engine config YAML")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "Path to project database (overrides config)")

	// Add subcommands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(assetsCmd)
	rootCmd.AddCommand(serveCmd)
}

// engineConfig loads the engine config honoring the global flags.
func engineConfig() config.EngineConfig {
	cfg, err := config.LoadEngine(flagConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if flagDBPath != "" {
		cfg.Storage.Path = flagDBPath
	}
	return cfg
}
