// Package tui implements an interactive search console over waystone's
// query API: a query bar and a scrollable results viewport, adapted from
// the reference client's address-bar/viewport browser shell.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/latebit/waystone/internal/service"
)

type focus int

const (
	focusQueryBar focus = iota
	focusViewport
)

// Searcher is the subset of *service.App the console needs.
type Searcher interface {
	Query(q string) ([]service.SearchResult, error)
}

type model struct {
	queryBar textinput.Model
	viewport viewport.Model
	focus    focus
	status   string
	err      error
	loading  bool
	searcher Searcher

	results []service.SearchResult
	selIdx  int

	width, height int
	ready         bool

	searchSeq uint64
}

type searchResult struct {
	results []service.SearchResult
	err     error
	seq     uint64
}

// New builds the initial TUI model; initialQuery, if non-empty, is run as
// soon as the program starts.
func New(searcher Searcher, initialQuery string) tea.Model {
	ti := textinput.New()
	ti.Placeholder = "search waystone..."
	ti.Prompt = " "
	ti.SetValue(initialQuery)
	ti.Focus()

	return model{
		queryBar: ti,
		focus:    focusQueryBar,
		searcher: searcher,
		loading:  initialQuery != "",
		selIdx:   -1,
	}
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if m.queryBar.Value() != "" {
		cmds = append(cmds, m.doSearch(m.queryBar.Value()))
	}
	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		headerHeight := 2
		footerHeight := 1
		viewportHeight := max(m.height-headerHeight-footerHeight, 1)

		if !m.ready {
			m.viewport = viewport.New(m.width, viewportHeight)
			m.ready = true
			m.viewport.SetContent(m.renderResults())
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = viewportHeight
		}
		m.queryBar.Width = m.width - 2
		return m, nil

	case searchResult:
		if msg.seq != m.searchSeq {
			return m, nil
		}
		m.loading = false
		m.selIdx = -1
		if msg.err != nil {
			m.err = msg.err
			m.results = nil
			m.status = ""
			if m.ready {
				m.viewport.SetContent(errorView(msg.err))
			}
			return m, nil
		}
		m.err = nil
		m.results = msg.results
		m.status = fmt.Sprintf("%d results", len(m.results))
		if m.ready {
			m.viewport.SetContent(m.renderResults())
			m.viewport.GotoTop()
		}
		m.focus = focusViewport
		m.queryBar.Blur()
		return m, nil
	}

	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	if m.focus == focusQueryBar {
		switch msg.Type {
		case tea.KeyEnter:
			q := m.queryBar.Value()
			if q != "" {
				m.loading = true
				m.searchSeq++
				m.err = nil
				return m, m.doSearch(q)
			}
			return m, nil
		case tea.KeyEscape:
			m.focus = focusViewport
			m.queryBar.Blur()
			return m, nil
		case tea.KeyTab:
			return m.toggleFocus(), nil
		}
		var cmd tea.Cmd
		m.queryBar, cmd = m.queryBar.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "f", "/":
		return m.toggleFocus(), textinput.Blink
	case "g":
		m.viewport.GotoTop()
		return m, nil
	case "G":
		m.viewport.GotoBottom()
		return m, nil
	case "j", "down":
		if len(m.results) > 0 {
			m.selIdx = min(m.selIdx+1, len(m.results)-1)
			m.viewport.SetContent(m.renderResults())
		}
		return m, nil
	case "k", "up":
		if m.selIdx > 0 {
			m.selIdx--
			m.viewport.SetContent(m.renderResults())
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m model) toggleFocus() model {
	if m.focus == focusQueryBar {
		m.focus = focusViewport
		m.queryBar.Blur()
	} else {
		m.focus = focusQueryBar
		m.queryBar.Focus()
	}
	return m
}

func (m model) renderResults() string {
	if len(m.results) == 0 {
		return "\n  No results yet. Type a query and press Enter.\n"
	}

	selStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))

	var b strings.Builder
	for i, r := range m.results {
		line := fmt.Sprintf("%s  (%s · %s)  score=%.4f\n  %s\n", r.URL, r.Name, r.Owner, r.Score, r.Text)
		if i == m.selIdx {
			b.WriteString(selStyle.Render(line))
		} else {
			b.WriteString(line)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (m model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder

	barStyle := lipgloss.NewStyle().Padding(0, 1).Width(m.width)
	if m.focus == focusQueryBar {
		barStyle = barStyle.Bold(true)
	}
	b.WriteString(barStyle.Render(m.queryBar.View()))
	b.WriteByte('\n')

	b.WriteString(strings.Repeat("─", m.width))
	b.WriteByte('\n')

	b.WriteString(m.viewport.View())
	b.WriteByte('\n')

	b.WriteString(m.statusBarView())
	return b.String()
}

func (m model) statusBarView() string {
	style := lipgloss.NewStyle().Width(m.width).Padding(0, 1)

	if m.loading {
		return style.Render("Searching...")
	}
	if m.err != nil {
		return style.Foreground(lipgloss.Color("9")).Render("Error: " + m.err.Error())
	}
	if m.status == "" {
		return style.Faint(true).Render("Type a query and press Enter  |  j/k to select  |  q to quit")
	}
	return style.Render(m.status)
}

func (m model) doSearch(q string) tea.Cmd {
	seq := m.searchSeq
	return func() tea.Msg {
		results, err := m.searcher.Query(q)
		return searchResult{results: results, err: err, seq: seq}
	}
}

func errorView(err error) string {
	return fmt.Sprintf("\n  Error: %s\n", err.Error())
}
