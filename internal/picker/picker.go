// Package picker is the interactive bookmark selector: type to filter,
// pick a bookmark, optionally copy its URL.
package picker

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jfelder/marksman/internal/model"
	"github.com/jfelder/marksman/internal/search"
)

var (
	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	detailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Italic(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99")).
			Bold(true).
			MarginBottom(1)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))
)

// Picker is the TUI model for filtering and selecting bookmarks.
type Picker struct {
	bookmarks []model.Bookmark
	results   []search.Result
	input     textinput.Model
	cursor    int
	selected  bool
	cancelled bool
	status    string
	width     int
	height    int
}

// New creates a picker over the given bookmarks, optionally pre-seeded
// with a query.
func New(bookmarks []model.Bookmark, query string) Picker {
	input := textinput.New()
	input.Placeholder = "type to filter"
	input.Prompt = "/ "
	input.SetValue(query)
	input.Focus()

	p := Picker{
		bookmarks: bookmarks,
		input:     input,
		width:     80,
		height:    24,
	}
	p.filter()
	return p
}

// filter recomputes the visible results from the current query.
func (p *Picker) filter() {
	query := p.input.Value()
	if query == "" {
		p.results = make([]search.Result, len(p.bookmarks))
		for i, b := range p.bookmarks {
			p.results[i] = search.Result{Bookmark: b}
		}
	} else {
		p.results = search.Fuzzy(p.bookmarks, query)
	}
	if p.cursor >= len(p.results) {
		p.cursor = 0
	}
}

// Init implements tea.Model.
func (p Picker) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width = msg.Width
		p.height = msg.Height
		return p, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEsc, tea.KeyCtrlC:
			p.cancelled = true
			return p, tea.Quit

		case tea.KeyEnter:
			if len(p.results) > 0 {
				p.selected = true
				return p, tea.Quit
			}
			return p, nil

		case tea.KeyDown, tea.KeyCtrlN:
			if p.cursor < len(p.results)-1 {
				p.cursor++
			}
			return p, nil

		case tea.KeyUp, tea.KeyCtrlP:
			if p.cursor > 0 {
				p.cursor--
			}
			return p, nil

		case tea.KeyCtrlY:
			if p.cursor < len(p.results) {
				url := p.results[p.cursor].Bookmark.URL
				if err := clipboard.WriteAll(url); err != nil {
					p.status = fmt.Sprintf("copy failed: %v", err)
				} else {
					p.status = "copied " + url
				}
			}
			return p, nil
		}
	}

	// Everything else feeds the filter input.
	var cmd tea.Cmd
	before := p.input.Value()
	p.input, cmd = p.input.Update(msg)
	if p.input.Value() != before {
		p.status = ""
		p.filter()
	}
	return p, cmd
}

// View implements tea.Model.
func (p Picker) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("Bookmarks (%d)", len(p.results))))
	b.WriteString("\n")
	b.WriteString(p.input.View())
	b.WriteString("\n\n")

	for i, result := range p.results {
		cursor := "  "
		style := normalStyle
		if i == p.cursor {
			cursor = "> "
			style = selectedStyle
		}

		title := style.Render(result.Bookmark.Title)
		detail := result.Bookmark.URL
		if result.Bookmark.Folder != "" {
			detail += "  [" + result.Bookmark.Folder + "]"
		}

		b.WriteString(fmt.Sprintf("%s%s\n", cursor, title))
		b.WriteString(fmt.Sprintf("   %s\n", detailStyle.Render(detail)))
	}

	b.WriteString("\n")
	if p.status != "" {
		b.WriteString(detailStyle.Render(p.status))
		b.WriteString("\n")
	}
	b.WriteString(footerStyle.Render("↑/↓: move  Enter: select  Ctrl+Y: copy URL  Esc: cancel"))

	return b.String()
}

// Selected returns the chosen bookmark, or nil if nothing was picked.
func (p Picker) Selected() *model.Bookmark {
	if p.cancelled || !p.selected {
		return nil
	}
	if p.cursor < len(p.results) {
		b := p.results[p.cursor].Bookmark
		return &b
	}
	return nil
}

// Cancelled reports whether the user backed out.
func (p Picker) Cancelled() bool {
	return p.cancelled
}
