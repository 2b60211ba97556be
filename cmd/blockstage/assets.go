package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/blockstage/internal/assets"
	"github.com/vovakirdan/blockstage/internal/storage"
)

var assetsCmd = &cobra.Command{
	Use:   "assets",
	Short: "Manage stored binary assets",
	Long: `Manage the binary assets scripts load with loadImage.

Examples:
  blockstage assets add hero ./hero.png
  blockstage assets list
  blockstage assets remove hero`,
}

var assetsAddCmd = &cobra.Command{
	Use:   "add <id> <file>",
	Short: "Store an asset under an id",
	Args:  cobra.ExactArgs(2),
	Run:   runAssetsAdd,
}

var assetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored assets",
	Run:   runAssetsList,
}

var assetsRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a stored asset",
	Args:  cobra.ExactArgs(1),
	Run:   runAssetsRemove,
}

func init() {
	assetsCmd.AddCommand(assetsAddCmd)
	assetsCmd.AddCommand(assetsListCmd)
	assetsCmd.AddCommand(assetsRemoveCmd)
}

// assetKindForFile guesses the asset kind from the file extension.
func assetKindForFile(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".gif":
		return assets.KindImage
	case ".wav", ".mp3", ".ogg":
		return assets.KindSound
	default:
		return ""
	}
}

func openAssetStore() *storage.Store {
	cfg := engineConfig()
	store, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening project database: %v\n", err)
		os.Exit(1)
	}
	return store
}

func runAssetsAdd(cmd *cobra.Command, args []string) {
	id, path := args[0], args[1]

	kind := assetKindForFile(path)
	if kind == "" {
		fmt.Fprintf(os.Stderr, "Error: unsupported asset type %q\n", filepath.Ext(path))
		os.Exit(1)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", path, err)
		os.Exit(1)
	}

	// Broken images fail here instead of at loadImage time.
	var dims string
	if kind == assets.KindImage {
		w, h, format, err := assets.DecodeInfo(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s is not a valid image: %v\n", path, err)
			os.Exit(1)
		}
		dims = fmt.Sprintf(", %dx%d %s", w, h, format)
	}

	store := openAssetStore()
	defer store.Close()

	err = store.SaveAsset(&assets.Asset{
		ID:   id,
		Kind: kind,
		Name: filepath.Base(path),
		Data: data,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error saving asset: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Stored %s asset %q (%d bytes%s).\n", kind, id, len(data), dims)
}

func runAssetsList(cmd *cobra.Command, args []string) {
	store := openAssetStore()
	defer store.Close()

	infos, err := store.ListAssets()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing assets: %v\n", err)
		os.Exit(1)
	}

	if len(infos) == 0 {
		fmt.Println("No stored assets. Add one with 'blockstage assets add <id> <file>'.")
		return
	}

	fmt.Println("Stored assets:")
	fmt.Println()
	for _, info := range infos {
		fmt.Printf("  %-20s  %-6s  %8d bytes  %s\n", info.ID, info.Kind, info.Size, info.Name)
	}
}

func runAssetsRemove(cmd *cobra.Command, args []string) {
	store := openAssetStore()
	defer store.Close()

	if err := store.DeleteAsset(args[0]); err != nil {
		fmt.Fprintf(os.Stderr, "Error removing asset: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Removed asset %q.\n", args[0])
}
