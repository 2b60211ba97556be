package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/blockstage/internal/project"
	"github.com/vovakirdan/blockstage/internal/storage"
)

var saveCmd = &cobra.Command{
	Use:   "save <file>",
	Short: "Save a project file into the database",
	Long: `Validate a project file and save it into the database.

Each save also snapshots an immutable version carrying the compiled
handler scripts, so earlier versions replay unchanged.

Examples:
  blockstage save examples/bounce.yaml`,
	Args: cobra.ExactArgs(1),
	Run:  runSave,
}

func runSave(cmd *cobra.Command, args []string) {
	path := args[0]

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", path, err)
		os.Exit(1)
	}
	proj, err := project.Parse(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg := engineConfig()
	store, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening project database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	rec, err := store.SaveProject(proj.Name, string(data))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error saving project: %v\n", err)
		os.Exit(1)
	}

	handlers, warnings := proj.CompileHandlers()
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}

	version, err := store.SaveVersion(rec.ID, string(data), handlers)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error saving version: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Saved %q as version %d.\n", proj.Name, version)
}

var deleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a stored project",
	Long: `Delete a stored project and all of its versions.

Examples:
  blockstage delete bounce`,
	Args: cobra.ExactArgs(1),
	Run:  runDelete,
}

func runDelete(cmd *cobra.Command, args []string) {
	name := args[0]

	cfg := engineConfig()
	store, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening project database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	rec, err := store.ProjectByName(name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if rec == nil {
		fmt.Fprintf(os.Stderr, "Error: no stored project named %q\n", name)
		os.Exit(1)
	}

	if err := store.DeleteProject(rec.ID); err != nil {
		fmt.Fprintf(os.Stderr, "Error deleting project: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Deleted %q.\n", name)
}
