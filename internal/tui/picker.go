// Package tui provides the interactive target currency picker.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/lo"

	"github.com/Veraticus/fxlens/internal/currency"
)

const defaultVisibleRows = 10

// Picker is a bubbletea model listing the supported currencies.
type Picker struct {
	theme    Theme
	keymap   KeyMap
	filter   textinput.Model
	help     help.Model
	current  string
	chosen   string
	all      []currency.Info
	visible  []currency.Info
	cursor   int
	offset   int
	rows     int
	quitting bool
	typing   bool
}

// NewPicker creates a picker with the cursor on current.
func NewPicker(current string) Picker {
	input := textinput.New()
	input.Placeholder = "code or name"
	input.Prompt = "/ "
	input.CharLimit = 32

	p := Picker{
		theme:   DefaultTheme,
		keymap:  DefaultKeyMap(),
		filter:  input,
		help:    help.New(),
		current: strings.ToUpper(current),
		all:     currency.Supported(),
		rows:    defaultVisibleRows,
	}
	p.applyFilter()

	if _, idx, ok := lo.FindIndexOf(p.visible, func(info currency.Info) bool {
		return info.Code == p.current
	}); ok {
		p.cursor = idx
		p.scroll()
	}
	return p
}

// Chosen returns the selected code, or "" when the picker was dismissed.
func (p Picker) Chosen() string {
	return p.chosen
}

// Init implements tea.Model.
func (p Picker) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// Title, filter, help and box borders take roughly eight lines.
		p.rows = max(3, msg.Height-8)
		p.help.Width = msg.Width
		p.scroll()
		return p, nil
	case tea.KeyMsg:
		if p.typing {
			return p.updateFilter(msg)
		}
		return p.updateList(msg)
	}
	return p, nil
}

func (p Picker) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		p.typing = false
		p.filter.Blur()
		return p, nil
	case tea.KeyEsc:
		p.typing = false
		p.filter.Blur()
		p.filter.SetValue("")
		p.applyFilter()
		return p, nil
	case tea.KeyCtrlC:
		p.quitting = true
		return p, tea.Quit
	}

	var cmd tea.Cmd
	p.filter, cmd = p.filter.Update(msg)
	p.applyFilter()
	return p, cmd
}

func (p Picker) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, p.keymap.Quit):
		p.quitting = true
		return p, tea.Quit
	case key.Matches(msg, p.keymap.Select):
		if len(p.visible) > 0 {
			p.chosen = p.visible[p.cursor].Code
			p.quitting = true
			return p, tea.Quit
		}
	case key.Matches(msg, p.keymap.Search):
		p.typing = true
		return p, p.filter.Focus()
	case key.Matches(msg, p.keymap.Clear):
		p.filter.SetValue("")
		p.applyFilter()
	case key.Matches(msg, p.keymap.Up):
		p.move(-1)
	case key.Matches(msg, p.keymap.Down):
		p.move(1)
	case key.Matches(msg, p.keymap.PageUp):
		p.move(-p.rows)
	case key.Matches(msg, p.keymap.PageDown):
		p.move(p.rows)
	case key.Matches(msg, p.keymap.Home):
		p.move(-len(p.visible))
	case key.Matches(msg, p.keymap.End):
		p.move(len(p.visible))
	}
	return p, nil
}

func (p *Picker) move(delta int) {
	if len(p.visible) == 0 {
		return
	}
	p.cursor = min(max(p.cursor+delta, 0), len(p.visible)-1)
	p.scroll()
}

func (p *Picker) scroll() {
	if p.cursor < p.offset {
		p.offset = p.cursor
	}
	if p.cursor >= p.offset+p.rows {
		p.offset = p.cursor - p.rows + 1
	}
}

func (p *Picker) applyFilter() {
	query := strings.ToLower(strings.TrimSpace(p.filter.Value()))
	p.visible = lo.Filter(p.all, func(info currency.Info, _ int) bool {
		return query == "" ||
			strings.Contains(strings.ToLower(info.Code), query) ||
			strings.Contains(strings.ToLower(info.Name), query)
	})
	p.cursor = 0
	p.offset = 0
}

// View implements tea.Model.
func (p Picker) View() string {
	if p.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(p.theme.Title.Render("Target currency"))
	b.WriteString("\n")
	if p.typing || p.filter.Value() != "" {
		b.WriteString(p.filter.View())
		b.WriteString("\n")
	}

	if len(p.visible) == 0 {
		b.WriteString(p.theme.Muted.Render("no matching currency"))
		b.WriteString("\n")
	}

	end := min(p.offset+p.rows, len(p.visible))
	for i := p.offset; i < end; i++ {
		info := p.visible[i]
		line := fmt.Sprintf("%s  %s", info.Code, info.Name)
		if info.Code == p.current {
			line += " " + p.theme.Current.Render("(current)")
		}
		if i == p.cursor {
			b.WriteString(p.theme.Selected.Render("› " + line))
		} else {
			b.WriteString(p.theme.Normal.Render("  " + line))
		}
		b.WriteString("\n")
	}

	if len(p.visible) > p.rows {
		b.WriteString(p.theme.Subtitle.Render(fmt.Sprintf("%d/%d", p.cursor+1, len(p.visible))))
		b.WriteString("\n")
	}
	b.WriteString(p.help.View(p.keymap))

	return p.theme.Box.Render(b.String())
}
