package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/blockstage/internal/storage"
)

// maxProjects caps how many stored projects the browser lists.
const maxProjects = 200

// BrowserKeyMap defines the key bindings for the project browser.
type BrowserKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Select  key.Binding
	Refresh key.Binding
	Quit    key.Binding
}

// ShortHelp returns key bindings for the short help view.
func (k BrowserKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Select, k.Refresh, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k BrowserKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select},
		{k.Refresh, k.Quit},
	}
}

// DefaultBrowserKeyMap returns default key bindings.
func DefaultBrowserKeyMap() BrowserKeyMap {
	return BrowserKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("up/k", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("down/j", "move down"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open preview"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("C-r", "refresh"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c", "esc"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ProjectBrowserModel is the Bubble Tea model for picking a stored project.
type ProjectBrowserModel struct {
	store    *storage.Store
	records  []storage.ProjectRecord
	table    table.Model
	help     help.Model
	keys     BrowserKeyMap
	width    int
	height   int
	quitting bool
	loadErr  error

	// selected is set when the user confirms a project.
	selected *storage.ProjectRecord
}

// NewProjectBrowserModel creates a browser over the stored projects.
func NewProjectBrowserModel(store *storage.Store, width, height int) ProjectBrowserModel {
	h := help.New()
	h.ShowAll = false

	m := ProjectBrowserModel{
		store:  store,
		keys:   DefaultBrowserKeyMap(),
		help:   h,
		width:  width,
		height: height,
	}
	m.table = m.createTable()
	m.loadProjects()
	return m
}

// createTable creates a new table with appropriate columns.
func (m *ProjectBrowserModel) createTable() table.Model {
	nameWidth := m.width - 30
	if nameWidth < 16 {
		nameWidth = 16
	}
	if nameWidth > 40 {
		nameWidth = 40
	}

	columns := []table.Column{
		{Title: "Project", Width: nameWidth},
		{Title: "Versions", Width: 8},
		{Title: "Updated", Width: 14},
	}

	height := m.height - 6 // Leave room for title, help, and margins
	if height < 3 {
		height = 3
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(height),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return t
}

// loadProjects refreshes the record list from storage.
func (m *ProjectBrowserModel) loadProjects() {
	if m.store == nil {
		m.records = nil
		m.loadErr = fmt.Errorf("no project database")
		m.updateTableRows()
		return
	}

	records, err := m.store.ListProjects()
	if err != nil {
		m.records = nil
		m.loadErr = err
	} else {
		if len(records) > maxProjects {
			records = records[:maxProjects]
		}
		m.records = records
		m.loadErr = nil
	}
	m.updateTableRows()
}

// updateTableRows rebuilds the table from the current records.
func (m *ProjectBrowserModel) updateTableRows() {
	rows := make([]table.Row, len(m.records))
	for i, rec := range m.records {
		versions := "-"
		if m.store != nil {
			if vs, err := m.store.Versions(rec.ID); err == nil {
				versions = fmt.Sprintf("%d", len(vs))
			}
		}
		rows[i] = table.Row{
			rec.Name,
			versions,
			rec.UpdatedAt.Format("Jan 02 15:04"),
		}
	}
	m.table.SetRows(rows)
	m.table.GotoTop()
}

// Selected returns the confirmed project record, if any.
func (m ProjectBrowserModel) Selected() *storage.ProjectRecord {
	return m.selected
}

// Init initializes the browser model.
func (m ProjectBrowserModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the browser.
func (m ProjectBrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Select):
			if cursor := m.table.Cursor(); cursor >= 0 && cursor < len(m.records) {
				rec := m.records[cursor]
				m.selected = &rec
				return m, tea.Quit
			}
			return m, nil

		case key.Matches(msg, m.keys.Refresh):
			m.loadProjects()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table = m.createTable()
		m.updateTableRows()
		m.help.Width = msg.Width
		return m, nil
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the browser.
func (m ProjectBrowserModel) View() string {
	if m.quitting || m.selected != nil {
		return ""
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("PROJECTS"))
	b.WriteString("\n\n")

	if m.loadErr != nil {
		b.WriteString(logStyle.Render(fmt.Sprintf("cannot list projects: %v", m.loadErr)))
		b.WriteString("\n")
	} else if len(m.records) == 0 {
		b.WriteString(logStyle.Render("no projects yet; save one with the CLI"))
		b.WriteString("\n")
	} else {
		b.WriteString(m.table.View())
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render(m.help.View(m.keys)))
	return b.String()
}
