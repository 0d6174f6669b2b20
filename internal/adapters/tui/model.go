package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jsamuelsen/quotesync/internal/app"
	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// Service is the part of app.QuoteService the terminal UI drives.
type Service interface {
	Current(ctx context.Context) (domain.Quote, bool)
	Random(ctx context.Context) (domain.Quote, bool)
	Categories() ([]string, string)
	SetFilter(ctx context.Context, category string) error
	Add(ctx context.Context, text, category string) (domain.Quote, error)
	Export(ctx context.Context) ([]byte, error)
	Import(ctx context.Context, raw []byte) (int, error)
	SyncNow(ctx context.Context) (app.SyncReport, error)
}

type mode int

const (
	modeBrowse mode = iota
	modeAdd
	modeExport
	modeImport
)

// DefaultExportPath is offered when the export prompt opens.
const DefaultExportPath = "quotes.json"

// Options configures the UI.
type Options struct {
	Context context.Context
	Service Service

	// Status streams status feed messages. Optional.
	Status <-chan ports.Status
}

// Model is the root Bubble Tea model.
type Model struct {
	ctx     context.Context
	service Service
	status  <-chan ports.Status

	quote    domain.Quote
	hasQuote bool
	filter   string

	mode     mode
	text     textinput.Model
	category textinput.Model
	path     textinput.Model

	statusLine  string
	statusLevel ports.StatusLevel
	syncing     bool
	width       int
}

// New builds the initial model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	text := textinput.New()
	text.Placeholder = "Quote"
	text.CharLimit = 500
	text.Width = 50

	category := textinput.New()
	category.Placeholder = "Category"
	category.CharLimit = 100
	category.Width = 30

	path := textinput.New()
	path.Placeholder = DefaultExportPath
	path.CharLimit = 1024
	path.Width = 50

	_, filter := opts.Service.Categories()

	return Model{
		ctx:      ctx,
		service:  opts.Service,
		status:   opts.Status,
		filter:   filter,
		text:     text,
		category: category,
		path:     path,
		mode:     modeBrowse,
	}
}

// Run starts the program and blocks until the user quits or ctx ends.
func Run(opts Options) error {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	_, err := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil && ctx.Err() != nil {
		// Cancelled from outside, for example by a signal.
		return nil
	}

	return err
}

// Messages

type quoteMsg struct {
	quote domain.Quote
	ok    bool
}

type filterMsg struct {
	selected string
	err      error
}

type addedMsg struct {
	err error
}

type exportedMsg struct {
	path string
	err  error
}

type importedMsg struct {
	count int
	err   error

	// unreadable marks a file error the service never saw.
	unreadable bool
}

type syncedMsg struct {
	report app.SyncReport
	err    error
}

type statusMsg ports.Status

// Commands

func (m Model) currentCmd() tea.Cmd {
	return func() tea.Msg {
		q, ok := m.service.Current(m.ctx)
		return quoteMsg{quote: q, ok: ok}
	}
}

func (m Model) randomCmd() tea.Cmd {
	return func() tea.Msg {
		q, ok := m.service.Random(m.ctx)
		return quoteMsg{quote: q, ok: ok}
	}
}

func (m Model) cycleFilterCmd() tea.Cmd {
	return func() tea.Msg {
		categories, selected := m.service.Categories()
		next := nextCategory(categories, selected)

		return filterMsg{selected: next, err: m.service.SetFilter(m.ctx, next)}
	}
}

func (m Model) addCmd(text, category string) tea.Cmd {
	return func() tea.Msg {
		_, err := m.service.Add(m.ctx, text, category)
		return addedMsg{err: err}
	}
}

func (m Model) exportCmd(path string) tea.Cmd {
	return func() tea.Msg {
		raw, err := m.service.Export(m.ctx)
		if err != nil {
			return exportedMsg{path: path, err: err}
		}

		return exportedMsg{path: path, err: os.WriteFile(path, raw, 0o600)}
	}
}

func (m Model) importCmd(path string) tea.Cmd {
	return func() tea.Msg {
		raw, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return importedMsg{err: err, unreadable: true}
		}

		n, err := m.service.Import(m.ctx, raw)

		return importedMsg{count: n, err: err}
	}
}

func (m Model) syncCmd() tea.Cmd {
	return func() tea.Msg {
		report, err := m.service.SyncNow(m.ctx)
		return syncedMsg{report: report, err: err}
	}
}

// waitForStatus blocks on the feed subscription. It yields nil once the
// subscription closes.
func waitForStatus(ch <-chan ports.Status) tea.Cmd {
	if ch == nil {
		return nil
	}

	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return nil
		}

		return statusMsg(s)
	}
}

// nextCategory returns the filter after selected, wrapping around.
// A stale selection restarts the cycle at the first entry.
func nextCategory(categories []string, selected string) string {
	if len(categories) == 0 {
		return domain.FilterAll
	}

	i := slices.Index(categories, selected)

	return categories[(i+1)%len(categories)]
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.currentCmd(), waitForStatus(m.status))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.text.Width = max(msg.Width-12, 10)
		m.path.Width = max(msg.Width-12, 10)
	case quoteMsg:
		m.quote, m.hasQuote = msg.quote, msg.ok
	case filterMsg:
		if msg.err != nil {
			m.setStatus(ports.StatusError, "Could not change the category.")
			return m, nil
		}

		m.filter = msg.selected

		return m, m.randomCmd()
	case addedMsg:
		if msg.err != nil {
			return m, nil
		}

		return m, m.currentCmd()
	case exportedMsg:
		if msg.err != nil {
			m.setStatus(ports.StatusError, "Export failed: could not write "+msg.path+".")
		}
	case importedMsg:
		if msg.unreadable {
			m.setStatus(ports.StatusError, "Import failed: could not read the file.")
			return m, nil
		}

		if msg.err != nil {
			return m, nil
		}

		return m, m.currentCmd()
	case syncedMsg:
		m.syncing = false

		if domain.IsConflict(msg.err) {
			m.setStatus(ports.StatusInfo, "A sync is already running.")
			return m, nil
		}

		return m, m.currentCmd()
	case statusMsg:
		m.setStatus(msg.Level, msg.Message)
		return m, waitForStatus(m.status)
	}

	return m, nil
}

func (m *Model) setStatus(level ports.StatusLevel, message string) {
	m.statusLevel = level
	m.statusLine = message
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.mode {
	case modeAdd:
		return m.updateAddMode(msg)
	case modeExport, modeImport:
		return m.updatePathMode(msg)
	default:
		return m.updateBrowseMode(msg.String())
	}
}

func (m Model) updateBrowseMode(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q":
		return m, tea.Quit
	case "n":
		return m, m.randomCmd()
	case "f":
		return m, m.cycleFilterCmd()
	case "a":
		m.mode = modeAdd
		m.text.SetValue("")
		m.category.SetValue("")
		m.category.Blur()
		cmd := m.text.Focus()

		return m, cmd
	case "s":
		if m.syncing {
			return m, nil
		}

		m.syncing = true

		return m, m.syncCmd()
	case "e":
		m.mode = modeExport
		m.path.SetValue(DefaultExportPath)
		cmd := m.path.Focus()

		return m, cmd
	case "i":
		m.mode = modeImport
		m.path.SetValue("")
		cmd := m.path.Focus()

		return m, cmd
	}

	return m, nil
}

func (m Model) updateAddMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.leaveInput()
		m.setStatus(ports.StatusInfo, "Cancelled.")

		return m, nil
	case "tab", "shift+tab":
		cmd := m.toggleAddFocus()
		return m, cmd
	case "enter":
		if m.text.Focused() {
			cmd := m.toggleAddFocus()
			return m, cmd
		}

		text, category := m.text.Value(), m.category.Value()
		m.leaveInput()

		return m, m.addCmd(text, category)
	}

	var cmd tea.Cmd
	if m.text.Focused() {
		m.text, cmd = m.text.Update(msg)
	} else {
		m.category, cmd = m.category.Update(msg)
	}

	return m, cmd
}

func (m *Model) toggleAddFocus() tea.Cmd {
	if m.text.Focused() {
		m.text.Blur()
		return m.category.Focus()
	}

	m.category.Blur()

	return m.text.Focus()
}

func (m Model) updatePathMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.leaveInput()
		m.setStatus(ports.StatusInfo, "Cancelled.")

		return m, nil
	case "enter":
		path := strings.TrimSpace(m.path.Value())
		action := m.mode
		m.leaveInput()

		if path == "" {
			m.setStatus(ports.StatusError, "Please enter a file path.")
			return m, nil
		}

		if action == modeExport {
			return m, m.exportCmd(path)
		}

		return m, m.importCmd(path)
	}

	var cmd tea.Cmd
	m.path, cmd = m.path.Update(msg)

	return m, cmd
}

func (m *Model) leaveInput() {
	m.mode = modeBrowse
	m.text.Blur()
	m.category.Blur()
	m.path.Blur()
}

// String renders the current quote for logs and tests.
func (m Model) String() string {
	if !m.hasQuote {
		return noQuotesMessage
	}

	return fmt.Sprintf("%s (%s)", Sanitize(m.quote.Text), Sanitize(m.quote.Category))
}
