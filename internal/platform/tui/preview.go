package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/vovakirdan/blockstage/internal/assets"
	"github.com/vovakirdan/blockstage/internal/bridge"
	"github.com/vovakirdan/blockstage/internal/config"
	"github.com/vovakirdan/blockstage/internal/core"
	"github.com/vovakirdan/blockstage/internal/project"
	"github.com/vovakirdan/blockstage/internal/sim"
)

// logPaneLines is how many recent log lines the preview shows.
const logPaneLines = 6

// stageTop is the screen row where the stage starts; row 0 is the title.
const stageTop = 1

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229"))

	pausedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("208"))

	logStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// logBuffer is a bounded sink for engine log lines. Bridge and handler
// goroutines write while the UI goroutine reads.
type logBuffer struct {
	mu    sync.Mutex
	lines []string
	max   int
}

func newLogBuffer(max int) *logBuffer {
	return &logBuffer{max: max}
}

// Write implements io.Writer for the charm logger.
func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line == "" {
			continue
		}
		b.lines = append(b.lines, line)
	}
	if over := len(b.lines) - b.max; over > 0 {
		b.lines = b.lines[over:]
	}
	return len(p), nil
}

// Last returns up to n of the most recent lines, oldest first.
func (b *logBuffer) Last(n int) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n > len(b.lines) {
		n = len(b.lines)
	}
	out := make([]string, n)
	copy(out, b.lines[len(b.lines)-n:])
	return out
}

// PreviewOptions configures a preview session.
type PreviewOptions struct {
	// Engine supplies physics and sandbox tuning; project overrides win.
	Engine config.EngineConfig

	// Assets optionally backs image loading, usually a storage.Store.
	Assets assets.Source
}

// PreviewModel is the Bubble Tea model that runs one project in the
// simulation runtime and draws its stage.
type PreviewModel struct {
	proj   *project.Project
	rt     *sim.Runtime
	screen *core.Screen
	keys   *KeyMapper
	logs   *logBuffer
	fps    int

	width    int
	height   int
	paused   bool
	quitting bool

	// goingBack reports that the user left the preview rather than the
	// whole program; the session model checks it after tea.Quit.
	goingBack bool
}

// NewPreviewModel builds a runtime for the project and loads its handlers.
// Script compile problems surface here, before the program starts.
func NewPreviewModel(proj *project.Project, opts PreviewOptions) (PreviewModel, error) {
	logs := newLogBuffer(200)
	logger := log.NewWithOptions(logs, log.Options{
		Prefix: "engine",
	})

	rt := sim.New(sim.Config{
		Gravity:       proj.GravityOr(opts.Engine.Physics.Gravity),
		MaxFrameDelta: opts.Engine.Physics.MaxFrameDelta,
		Bridge: bridge.Config{
			InitTimeout: opts.Engine.Sandbox.InitTimeout(),
			RunTimeout:  opts.Engine.Sandbox.RunTimeout(),
			Logger:      logger.WithPrefix("bridge"),
		},
		Assets: assets.NewLibrary(opts.Assets),
		Logger: logger,
	})

	// Emitted events share the log pane with engine diagnostics.
	eventLog := logger.WithPrefix("event")
	rt.On(sim.EventAny, func(event string, args []any) {
		if len(args) == 0 {
			eventLog.Info(event)
			return
		}
		eventLog.Info(event, "args", fmt.Sprintf("%v", args))
	})

	objs, err := proj.SceneObjects()
	if err != nil {
		return PreviewModel{}, err
	}
	for _, o := range objs {
		rt.AddObject(o)
	}

	handlers, warnings := proj.CompileHandlers()
	for _, w := range warnings {
		logger.Warn("code generation", "detail", w)
	}
	if err := rt.LoadScript(context.Background(), handlers); err != nil {
		rt.Close()
		return PreviewModel{}, err
	}

	return PreviewModel{
		proj:   proj,
		rt:     rt,
		screen: core.NewScreen(proj.Stage.Width, proj.Stage.Height),
		keys:   NewKeyMapper(),
		logs:   logs,
		fps:    opts.Engine.Preview.FPS,
	}, nil
}

// Runtime exposes the underlying runtime, mainly for tests.
func (m PreviewModel) Runtime() *sim.Runtime {
	return m.rt
}

// GoingBack reports whether the preview exited back to the browser.
func (m PreviewModel) GoingBack() bool {
	return m.goingBack
}

// IsQuitting reports whether the user asked to leave the whole program.
func (m PreviewModel) IsQuitting() bool {
	return m.quitting
}

// Init starts the simulation and the frame loop.
func (m PreviewModel) Init() tea.Cmd {
	m.rt.Start(context.Background())
	return tickCmd(m.fps)
}

// Update handles messages and advances the preview state.
func (m PreviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case TickMsg:
		if !m.paused {
			// A long pause shows up as one clamped frame, same as a
			// suspended terminal.
			m.rt.Step(time.Time(msg))
		}
		return m, tickCmd(m.fps)
	}

	return m, nil
}

// handleKey processes keyboard input.
func (m PreviewModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	action, isQuit := m.keys.MapKey(msg)
	if isQuit {
		m.quitting = true
		m.rt.Close()
		return m, tea.Quit
	}

	switch action {
	case core.ActionBack:
		m.goingBack = true
		m.rt.Close()
		return m, tea.Quit
	case core.ActionPause:
		m.paused = !m.paused
	case core.ActionRestart:
		m.restart()
	}

	return m, nil
}

// handleMouse maps terminal clicks onto the stage.
func (m PreviewModel) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return m, nil
	}

	sx := msg.X
	sy := msg.Y - stageTop
	if sx < 0 || sy < 0 || sx >= m.proj.Stage.Width || sy >= m.proj.Stage.Height {
		return m, nil
	}

	m.rt.Click(float64(sx), float64(sy))
	return m, nil
}

// restart rebuilds the scene from the project document and starts over.
func (m *PreviewModel) restart() {
	m.rt.Reset()

	world := m.rt.World()
	for _, id := range world.IDs() {
		world.RemoveObject(id)
	}
	objs, err := m.proj.SceneObjects()
	if err != nil {
		// Validation passed at load; a failure here means the document
		// changed under us, so surface it in the log pane.
		m.logs.Write([]byte(fmt.Sprintf("restart failed: %v", err)))
		return
	}
	for _, o := range objs {
		m.rt.AddObject(o)
	}

	m.paused = false
	m.rt.Start(context.Background())
}

// View renders the title bar, the stage, the log pane, and the help line.
func (m PreviewModel) View() string {
	if m.quitting || m.goingBack {
		return ""
	}

	var b strings.Builder

	elapsed, _ := m.rt.World().Clock()
	state := "running"
	if m.paused {
		state = "paused"
	}
	mode := "in-process"
	if m.rt.Isolated() {
		mode = "isolated"
	}
	title := fmt.Sprintf("%s  %6.1fs  %s (%s)", m.proj.Name, elapsed, state, mode)
	if m.paused {
		b.WriteString(pausedStyle.Render(title))
	} else {
		b.WriteString(titleStyle.Render(title))
	}
	b.WriteString("\n")

	renderWorld(m.screen, m.rt.World().Snapshot())
	b.WriteString(RenderScreen(m.screen))
	b.WriteString("\n")

	for _, line := range m.logs.Last(logPaneLines) {
		b.WriteString(logStyle.Render(truncate(line, m.width)))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("space pause • r restart • click stage • esc back • q quit"))
	return b.String()
}

// truncate cuts a line to the view width, if the width is known.
func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width == 1 {
		return string(runes[:1])
	}
	return string(runes[:width-1]) + "…"
}

// RunPreview starts a standalone terminal preview for a project.
func RunPreview(proj *project.Project, opts PreviewOptions) error {
	model, err := NewPreviewModel(proj, opts)
	if err != nil {
		return err
	}

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	_, err = p.Run()
	return err
}
