package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/blockstage/internal/project"
	"github.com/vovakirdan/blockstage/internal/storage"
)

var flagListDir string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	Long: `List projects saved in the database, or project files under a
directory when --dir is given.

Examples:
  blockstage list
  blockstage list --dir ./examples`,
	Run: runList,
}

func init() {
	listCmd.Flags().StringVar(&flagListDir, "dir", "", "List project files under this directory instead of the database")
}

func runList(cmd *cobra.Command, args []string) {
	if flagListDir != "" {
		listDirectory(flagListDir)
		return
	}

	cfg := engineConfig()
	store, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening project database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	records, err := store.ListProjects()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing projects: %v\n", err)
		os.Exit(1)
	}

	if len(records) == 0 {
		fmt.Println("No stored projects. Save one with 'blockstage save <file>'.")
		return
	}

	fmt.Println("Stored projects:")
	fmt.Println()

	maxNameLen := 4 // "Name" header
	for _, rec := range records {
		if len(rec.Name) > maxNameLen {
			maxNameLen = len(rec.Name)
		}
	}

	fmt.Printf("  %-*s  %-8s  %s\n", maxNameLen, "Name", "Versions", "Updated")
	fmt.Printf("  %-*s  %-8s  %s\n", maxNameLen, "----", "--------", "-------")
	for _, rec := range records {
		versions := 0
		if vs, vErr := store.Versions(rec.ID); vErr == nil {
			versions = len(vs)
		}
		fmt.Printf("  %-*s  %-8d  %s\n", maxNameLen, rec.Name, versions, rec.UpdatedAt.Format("2006-01-02 15:04"))
	}

	fmt.Println()
	fmt.Println("Run 'blockstage run <name>' to preview a project.")
}

func listDirectory(dir string) {
	loader := project.NewLoader(dir)
	projects, err := loader.LoadAll()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error scanning %s: %v\n", dir, err)
		os.Exit(1)
	}

	if len(projects) == 0 {
		fmt.Printf("No project files under %s.\n", dir)
		return
	}

	fmt.Printf("Projects under %s:\n\n", dir)
	for _, p := range projects {
		fmt.Printf("  %-24s  %dx%d  %d objects  %s\n",
			p.Name, p.Stage.Width, p.Stage.Height, len(p.Objects), p.FilePath)
	}
}
