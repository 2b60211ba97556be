package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"

	"github.com/vovakirdan/blockstage/internal/assets"
	"github.com/vovakirdan/blockstage/internal/config"
	"github.com/vovakirdan/blockstage/internal/project"
	"github.com/vovakirdan/blockstage/internal/storage"
)

// SSHServerConfig holds configuration for the SSH preview server.
type SSHServerConfig struct {
	// Address is the host:port to listen on (e.g., ":23235").
	Address string

	// HostKeyPath is the path to the host key file.
	// If empty, a key will be auto-generated at ~/.blockstage/host_key.
	HostKeyPath string

	// DBPath is the path to the projects database.
	DBPath string

	// IdleTimeout is how long to wait before closing idle connections.
	IdleTimeout time.Duration

	// Engine supplies simulation tuning for every session.
	Engine config.EngineConfig
}

// DefaultSSHServerConfig returns a config with sensible defaults.
func DefaultSSHServerConfig() SSHServerConfig {
	return SSHServerConfig{
		Address:     ":23235",
		DBPath:      "~/.blockstage/projects.db",
		IdleTimeout: 30 * time.Minute,
		Engine:      config.DefaultEngineConfig(),
	}
}

// SSHServer wraps a Wish SSH server serving project previews.
type SSHServer struct {
	config SSHServerConfig
	server *ssh.Server
	store  *storage.Store
	logger *log.Logger
}

// NewSSHServer creates a new SSH server with the given configuration.
func NewSSHServer(cfg SSHServerConfig) (*SSHServer, error) {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "blockstage-ssh",
	})

	// Open storage
	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		logger.Warn("could not open project database", "error", err)
		// Continue without storage; sessions will see an empty browser
	}

	srv := &SSHServer{
		config: cfg,
		store:  store,
		logger: logger,
	}

	// Resolve host key path
	hostKeyPath := cfg.HostKeyPath
	if hostKeyPath == "" {
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return nil, fmt.Errorf("cannot get home directory: %w", homeErr)
		}
		hostKeyPath = filepath.Join(home, ".blockstage", "host_key")
	}

	// Ensure host key directory exists
	hostKeyDir := filepath.Dir(hostKeyPath)
	if mkdirErr := os.MkdirAll(hostKeyDir, 0o700); mkdirErr != nil {
		return nil, fmt.Errorf("cannot create host key directory: %w", mkdirErr)
	}

	opts := []ssh.Option{
		wish.WithAddress(cfg.Address),
		wish.WithHostKeyPath(hostKeyPath),
		wish.WithIdleTimeout(cfg.IdleTimeout),
		wish.WithMiddleware(
			bubbletea.Middleware(srv.teaHandler),
			srv.loggingMiddleware,
		),
	}

	server, err := wish.NewServer(opts...)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, fmt.Errorf("cannot create SSH server: %w", err)
	}

	srv.server = server
	return srv, nil
}

// teaHandler creates a Bubble Tea program for each SSH session.
func (s *SSHServer) teaHandler(sshSession ssh.Session) (tea.Model, []tea.ProgramOption) {
	pty, _, ok := sshSession.Pty()
	if !ok {
		s.logger.Warn("no PTY requested", "user", sshSession.User())
		return nil, nil
	}

	model := NewSessionModel(s.store, s.config.Engine, pty.Window.Width, pty.Window.Height)

	return model, []tea.ProgramOption{
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	}
}

// loggingMiddleware logs SSH session events.
func (s *SSHServer) loggingMiddleware(next ssh.Handler) ssh.Handler {
	return func(sshSession ssh.Session) {
		s.logger.Info("session started",
			"user", sshSession.User(),
			"remote", sshSession.RemoteAddr().String(),
		)
		next(sshSession)
		s.logger.Info("session ended",
			"user", sshSession.User(),
			"remote", sshSession.RemoteAddr().String(),
		)
	}
}

// ListenAndServe starts the SSH server and blocks until shutdown.
func (s *SSHServer) ListenAndServe() error {
	s.logger.Info("starting SSH server", "address", s.config.Address)

	// Setup signal handling for graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			s.logger.Error("server error", "error", err)
		}
	}()

	<-done
	s.logger.Info("shutting down...")
	return s.Shutdown()
}

// Shutdown gracefully stops the server.
func (s *SSHServer) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.store != nil {
		s.store.Close()
	}

	return s.server.Shutdown(ctx)
}

// Addr returns the server's listen address string.
func (s *SSHServer) Addr() string {
	return s.config.Address
}

// SessionModel manages the full session flow: browser -> preview -> browser.
// This is the top-level model used for SSH sessions.
type SessionModel struct {
	store   *storage.Store
	engine  config.EngineConfig
	width   int
	height  int
	browser ProjectBrowserModel
	preview *PreviewModel
	loadErr error

	inPreview bool
	quitting  bool
}

// NewSessionModel creates a new session model.
func NewSessionModel(store *storage.Store, engine config.EngineConfig, width, height int) SessionModel {
	return SessionModel{
		store:   store,
		engine:  engine,
		width:   width,
		height:  height,
		browser: NewProjectBrowserModel(store, width, height),
	}
}

// Init initializes the session.
func (m SessionModel) Init() tea.Cmd {
	return m.browser.Init()
}

// Update handles messages for the session.
func (m SessionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Track window size globally
	if wsm, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = wsm.Width
		m.height = wsm.Height
	}

	if m.inPreview && m.preview != nil {
		return m.updatePreview(msg)
	}
	return m.updateBrowser(msg)
}

// updateBrowser handles updates while picking a project.
func (m SessionModel) updateBrowser(msg tea.Msg) (tea.Model, tea.Cmd) {
	newBrowser, cmd := m.browser.Update(msg)
	if browser, ok := newBrowser.(ProjectBrowserModel); ok {
		m.browser = browser
	}

	if m.browser.quitting {
		m.quitting = true
		return m, tea.Quit
	}

	if rec := m.browser.Selected(); rec != nil {
		proj, err := project.Parse([]byte(rec.Document))
		if err != nil {
			m.loadErr = err
			m.browser = NewProjectBrowserModel(m.store, m.width, m.height)
			return m, nil
		}

		// A typed nil store must not become a non-nil Source.
		var src assets.Source
		if m.store != nil {
			src = m.store
		}
		preview, err := NewPreviewModel(proj, PreviewOptions{
			Engine: m.engine,
			Assets: src,
		})
		if err != nil {
			m.loadErr = err
			m.browser = NewProjectBrowserModel(m.store, m.width, m.height)
			return m, nil
		}

		m.loadErr = nil
		m.preview = &preview
		m.inPreview = true
		return m, m.preview.Init()
	}

	return m, cmd
}

// updatePreview handles updates while a project is running.
func (m SessionModel) updatePreview(msg tea.Msg) (tea.Model, tea.Cmd) {
	newModel, cmd := m.preview.Update(msg)
	if preview, ok := newModel.(PreviewModel); ok {
		m.preview = &preview
	}

	// Back to the browser, dropping the preview's quit command
	if m.preview.GoingBack() {
		m.inPreview = false
		m.preview = nil
		m.browser = NewProjectBrowserModel(m.store, m.width, m.height)
		return m, m.browser.Init()
	}

	if m.preview.IsQuitting() {
		m.quitting = true
		return m, tea.Quit
	}

	return m, cmd
}

// View renders the current view.
func (m SessionModel) View() string {
	if m.quitting {
		return ""
	}

	if m.inPreview && m.preview != nil {
		return m.preview.View()
	}

	view := m.browser.View()
	if m.loadErr != nil {
		view += "\n" + logStyle.Render(fmt.Sprintf("cannot open project: %v", m.loadErr))
	}
	return view
}
