package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/blockstage/internal/assets"
	"github.com/vovakirdan/blockstage/internal/platform/tui"
	"github.com/vovakirdan/blockstage/internal/project"
	"github.com/vovakirdan/blockstage/internal/storage"
)

var runCmd = &cobra.Command{
	Use:   "run <project>",
	Short: "Run a project in the terminal preview",
	Long: `Run a project in the terminal preview.

The argument is either a path to a project YAML file or the name of a
project saved in the database.

Controls:
  Space/P    - Pause/resume
  R          - Restart from the project scene
  Click      - Send a click to the stage
  Esc        - Leave the preview
  Q/Ctrl+C   - Quit

Examples:
  blockstage run examples/bounce.yaml
  blockstage run bounce`,
	Args: cobra.ExactArgs(1),
	Run:  runRun,
}

func runRun(cmd *cobra.Command, args []string) {
	cfg := engineConfig()

	// Open storage for assets and stored projects; the preview still
	// works without it.
	store, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not open project database: %v\n", err)
		store = nil
	}
	defer func() {
		if store != nil {
			store.Close()
		}
	}()

	proj, err := resolveProject(args[0], store)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Warn when the stage will not fit the terminal
	if w, h, termErr := term.GetSize(int(os.Stdout.Fd())); termErr == nil {
		if proj.Stage.Width > w || proj.Stage.Height+2 > h {
			fmt.Fprintf(os.Stderr, "Warning: stage %dx%d exceeds terminal %dx%d\n",
				proj.Stage.Width, proj.Stage.Height, w, h)
		}
	}

	var src assets.Source
	if store != nil {
		src = store
	}

	if err := tui.RunPreview(proj, tui.PreviewOptions{Engine: cfg, Assets: src}); err != nil {
		fmt.Fprintf(os.Stderr, "Error running preview: %v\n", err)
		os.Exit(1)
	}
}

// resolveProject loads the argument as a file path first, then as a
// stored project name.
func resolveProject(arg string, store *storage.Store) (*project.Project, error) {
	if _, statErr := os.Stat(arg); statErr == nil {
		loader := project.NewLoader(".")
		return loader.LoadFile(arg)
	}

	if store == nil {
		return nil, fmt.Errorf("no such file and no project database: %s", arg)
	}
	rec, err := store.ProjectByName(arg)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("no such file or stored project: %s", arg)
	}
	return project.Parse([]byte(rec.Document))
}
