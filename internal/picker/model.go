package picker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// debounceInterval is the delay after the last keystroke before triggering a fetch.
const debounceInterval = 100 * time.Millisecond

// DefaultPageSize is the number of rows requested per fetch.
const DefaultPageSize = 100

// pickerState represents the current state of the picker's state machine.
type pickerState int

const (
	stateIdle      pickerState = iota // Initial state before first fetch
	stateLoading                      // Fetch in progress
	stateLoaded                       // Items loaded successfully (len > 0)
	stateEmpty                        // Fetch succeeded but returned 0 items
	stateError                        // Fetch failed
	stateCancelled                    // User cancelled (Esc / Ctrl+C)
)

// fetchDoneMsg is sent when an async Provider.Fetch completes.
type fetchDoneMsg struct {
	requestID uint64
	items     []Item
	atEnd     bool
	err       error
}

// debounceMsg fires after the debounce timer expires.
type debounceMsg struct {
	id uint64 // Must match current debounceID to be accepted
}

// initMsg is sent by Init() to trigger the first fetch via Update().
type initMsg struct{}

// Model is the Bubble Tea model for the memory browser.
type Model struct {
	state     pickerState
	tabs      []Tab
	activeTab int
	items     []Item
	selection int // Index into items; -1 when empty
	atEnd     bool
	err       error
	pageSize  int

	input textinput.Model

	requestID uint64 // Monotonic counter for stale detection
	provider  Provider

	width  int
	height int

	result *Item

	cancelFetch context.CancelFunc
	debounceID  uint64
}

// NewModel creates a new picker Model.
func NewModel(tabs []Tab, provider Provider) Model {
	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "search errors and patterns"
	input.CharLimit = 512
	input.PromptStyle = queryStyle
	input.Focus()

	return Model{
		state:     stateIdle,
		tabs:      tabs,
		selection: -1,
		pageSize:  DefaultPageSize,
		input:     input,
		provider:  provider,
	}
}

// WithQuery pre-fills the search query.
func (m Model) WithQuery(q string) Model {
	m.input.SetValue(q)
	m.input.CursorEnd()
	return m
}

// WithPageSize sets the number of rows fetched per request.
func (m Model) WithPageSize(n int) Model {
	if n > 0 {
		m.pageSize = n
	}
	return m
}

// Result returns the selected item, or nil if nothing was chosen.
func (m Model) Result() *Item {
	return m.result
}

// IsCancelled reports whether the user dismissed the browser.
func (m Model) IsCancelled() bool {
	return m.state == stateCancelled
}

// Query returns the current search text.
func (m Model) Query() string {
	return m.input.Value()
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, func() tea.Msg { return initMsg{} })
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(msg.Width-4, 10)
		return m, nil

	case fetchDoneMsg:
		return m.handleFetchDone(msg)

	case debounceMsg:
		return m.handleDebounce(msg)

	case initMsg:
		return m, m.startFetch()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		m.state = stateCancelled
		m.cancelInflight()
		return m, tea.Quit

	case tea.KeyEnter:
		if m.state == stateLoading {
			return m, nil
		}
		if m.selection >= 0 && m.selection < len(m.items) {
			item := m.items[m.selection]
			m.result = &item
		}
		m.cancelInflight()
		return m, tea.Quit

	case tea.KeyUp:
		if m.state != stateLoading && m.selection > 0 {
			m.selection--
		}
		return m, nil

	case tea.KeyDown:
		if m.state != stateLoading && m.selection < len(m.items)-1 {
			m.selection++
		}
		return m, nil

	case tea.KeyTab, tea.KeyShiftTab:
		if len(m.tabs) <= 1 {
			return m, nil
		}
		step := 1
		if msg.Type == tea.KeyShiftTab {
			step = len(m.tabs) - 1
		}
		m.activeTab = (m.activeTab + step) % len(m.tabs)
		m.selection = -1
		return m, m.startFetch()
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() == before {
		return m, cmd
	}
	return m, tea.Batch(cmd, m.startDebounce())
}

// handleFetchDone processes the result of an async fetch.
func (m Model) handleFetchDone(msg fetchDoneMsg) (tea.Model, tea.Cmd) {
	if msg.requestID != m.requestID {
		return m, nil
	}
	m.cancelFetch = nil

	if msg.err != nil {
		m.state = stateError
		m.err = msg.err
		m.items = nil
		m.selection = -1
		return m, nil
	}

	m.err = nil
	m.items = msg.items
	m.atEnd = msg.atEnd

	if len(m.items) == 0 {
		m.state = stateEmpty
		m.selection = -1
	} else {
		m.state = stateLoaded
		m.clampSelection()
	}

	return m, nil
}

// handleDebounce fires the fetch if the debounce timer is still current.
func (m Model) handleDebounce(msg debounceMsg) (tea.Model, tea.Cmd) {
	if msg.id != m.debounceID {
		return m, nil
	}
	return m, m.startFetch()
}

func (m *Model) startDebounce() tea.Cmd {
	m.debounceID++
	id := m.debounceID
	return tea.Tick(debounceInterval, func(time.Time) tea.Msg {
		return debounceMsg{id: id}
	})
}

// startFetch cancels any in-flight fetch, increments requestID, and
// returns a tea.Cmd that calls the provider.
func (m *Model) startFetch() tea.Cmd {
	m.cancelInflight()
	m.requestID++
	m.state = stateLoading

	reqID := m.requestID
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelFetch = cancel

	req := Request{
		RequestID: reqID,
		Query:     strings.TrimSpace(m.input.Value()),
		TabID:     m.currentTab().ID,
		Limit:     m.pageSize,
	}

	p := m.provider
	return func() tea.Msg {
		resp, err := p.Fetch(ctx, req)
		if err != nil {
			return fetchDoneMsg{requestID: reqID, err: err}
		}
		return fetchDoneMsg{requestID: reqID, items: resp.Items, atEnd: resp.AtEnd}
	}
}

func (m *Model) cancelInflight() {
	if m.cancelFetch != nil {
		m.cancelFetch()
		m.cancelFetch = nil
	}
}

func (m *Model) clampSelection() {
	if len(m.items) == 0 {
		m.selection = -1
		return
	}
	if m.selection < 0 {
		m.selection = 0
	}
	if m.selection >= len(m.items) {
		m.selection = len(m.items) - 1
	}
}

func (m Model) currentTab() Tab {
	if m.activeTab >= 0 && m.activeTab < len(m.tabs) {
		return m.tabs[m.activeTab]
	}
	return Tab{ID: TabAll, Label: "All errors"}
}

// listHeight returns the number of visible list rows.
func (m Model) listHeight() int {
	// tab bar, query line, status line
	const chrome = 3
	h := m.height - chrome
	if h < 1 {
		h = 20
	}
	return h
}

// visibleRange returns the [start, end) window of items that keeps the
// selection on screen.
func (m Model) visibleRange() (int, int) {
	h := m.listHeight()
	start := 0
	if m.selection >= h {
		start = m.selection - h + 1
	}
	end := min(start+h, len(m.items))
	return start, end
}

// --- View rendering ---

var (
	activeTabStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62"))
	inactiveTabStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	selectedStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	normalStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	matchStyle       = lipgloss.NewStyle().Underline(true).Foreground(lipgloss.Color("214"))
	queryStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.viewTabBar())
	b.WriteRune('\n')
	b.WriteString(m.viewContent())
	b.WriteRune('\n')
	b.WriteString(m.input.View())
	b.WriteRune('\n')
	b.WriteString(m.viewStatus())
	return b.String()
}

func (m Model) viewTabBar() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		label := " " + tab.Label + " "
		if i == m.activeTab {
			parts = append(parts, activeTabStyle.Render(label))
		} else {
			parts = append(parts, inactiveTabStyle.Render(label))
		}
	}
	return strings.Join(parts, " ")
}

func (m Model) viewContent() string {
	switch m.state {
	case stateIdle, stateLoading:
		return dimStyle.Render("Loading...")
	case stateEmpty:
		return dimStyle.Render("No matches")
	case stateError:
		msg := "Error"
		if m.err != nil {
			msg = fmt.Sprintf("Error: %s", m.err)
		}
		return errorStyle.Render(msg)
	case stateCancelled:
		return dimStyle.Render("Cancelled")
	case stateLoaded:
		return m.viewList()
	default:
		return ""
	}
}

func (m Model) viewList() string {
	start, end := m.visibleRange()
	query := strings.TrimSpace(m.input.Value())

	rows := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		rows = append(rows, m.renderItem(m.items[i], i == m.selection, query))
	}
	return strings.Join(rows, "\n")
}

// renderItem lays out "marker title  detail" within the terminal width.
func (m Model) renderItem(item Item, selected bool, query string) string {
	marker, style := "  ", normalStyle
	if selected {
		marker, style = "> ", selectedStyle
	}

	detail := ""
	if item.Detail != "" {
		detail = "  " + item.Detail
	}
	title := item.Title
	if m.width > 0 {
		avail := m.width - runewidth.StringWidth(marker) - runewidth.StringWidth(detail)
		if avail < 10 {
			avail = m.width - runewidth.StringWidth(marker)
			detail = ""
		}
		title = fitTitle(title, avail)
	}

	return style.Render(marker) + highlightQuery(title, query, style) + dimStyle.Render(detail)
}

// viewStatus renders the count and key hints.
func (m Model) viewStatus() string {
	count := fmt.Sprintf("%d items", len(m.items))
	if !m.atEnd && len(m.items) > 0 {
		count += "+"
	}
	return dimStyle.Render(count + "  tab: switch  enter: show  esc: quit")
}

// highlightQuery renders every case-insensitive occurrence of query in s
// with matchStyle and the rest with base.
func highlightQuery(s, query string, base lipgloss.Style) string {
	if query == "" {
		return base.Render(s)
	}
	lower := strings.ToLower(s)
	needle := strings.ToLower(query)
	if len(lower) != len(s) || !strings.Contains(lower, needle) {
		return base.Render(s)
	}

	var b strings.Builder
	for {
		idx := strings.Index(lower, needle)
		if idx < 0 {
			break
		}
		if idx > 0 {
			b.WriteString(base.Render(s[:idx]))
		}
		b.WriteString(matchStyle.Render(s[idx : idx+len(needle)]))
		s, lower = s[idx+len(needle):], lower[idx+len(needle):]
	}
	if s != "" {
		b.WriteString(base.Render(s))
	}
	return b.String()
}
