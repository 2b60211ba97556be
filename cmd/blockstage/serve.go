package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/blockstage/internal/platform/tui"
)

var (
	flagSSHAddr     string
	flagHostKey     string
	flagIdleTimeout int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the SSH preview server",
	Long: `Start an SSH server that lets users connect and preview stored projects.

Each SSH connection gets its own session with a project browser; selecting
a project runs it in an isolated preview. All sessions share one database.

Host key handling:
  - If --host-key is provided, uses that key file
  - Otherwise, auto-generates a key at ~/.blockstage/host_key

Examples:
  blockstage serve                           # Listen on :23235 with auto-generated key
  blockstage serve --ssh :2222               # Listen on port 2222
  blockstage serve --host-key ./my_host_key  # Use specific host key
  blockstage serve --db ./projects.db        # Use specific database

Users can connect with:
  ssh localhost -p 23235`,
	Run: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagSSHAddr, "ssh", "", "SSH server address (host:port, overrides config)")
	serveCmd.Flags().StringVar(&flagHostKey, "host-key", "", "Path to host key file (auto-generated if not specified)")
	serveCmd.Flags().IntVar(&flagIdleTimeout, "idle-timeout", 0, "Idle timeout in minutes before disconnecting")
}

func runServe(_ *cobra.Command, _ []string) {
	engine := engineConfig()

	cfg := tui.SSHServerConfig{
		Address:     engine.Server.Address,
		HostKeyPath: engine.Server.HostKeyPath,
		DBPath:      engine.Storage.Path,
		IdleTimeout: engine.Server.IdleTimeout(),
		Engine:      engine,
	}
	if cfg.Address == "" {
		cfg.Address = tui.DefaultSSHServerConfig().Address
	}

	// Flags override the engine config.
	if flagSSHAddr != "" {
		cfg.Address = flagSSHAddr
	}
	if flagHostKey != "" {
		cfg.HostKeyPath = flagHostKey
	}
	if flagIdleTimeout > 0 {
		cfg.IdleTimeout = time.Duration(flagIdleTimeout) * time.Minute
	}

	server, err := tui.NewSSHServer(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating server: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Starting blockstage SSH server on %s\n", cfg.Address)
	fmt.Println("Connect with: ssh localhost -p 23235")
	fmt.Println("Press Ctrl+C to stop")

	if err := server.ListenAndServe(); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
