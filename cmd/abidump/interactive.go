package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/bindgen/abi"
	"github.com/wippyai/bindgen/backend/text"
	"github.com/wippyai/bindgen/internal/sigparse"
	"github.com/wippyai/bindgen/types"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// lines used by everything except the viewport
const chromeHeight = 10

type modelState int

const (
	stateBrowse modelState = iota
	stateInput
)

type interactiveModel struct {
	err        error
	funcs      []*types.Function
	opts       abi.Options
	input      textinput.Model
	view       viewport.Model
	selected   int
	dir        abi.Direction
	mode       abi.Mode
	state      modelState
	postReturn bool
}

func newInteractiveModel(fns []*types.Function, opts abi.Options) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "greet: func(name: string) -> string"
	ti.Prompt = "sig: "
	ti.Width = 60

	m := &interactiveModel{
		funcs: fns,
		opts:  opts,
		input: ti,
		view:  viewport.New(80, 20),
	}
	if len(fns) == 0 {
		m.state = stateInput
		m.input.Focus()
	}
	m.refresh()
	return m
}

func (m *interactiveModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.view.Width = msg.Width
		m.view.Height = max(msg.Height-chromeHeight-len(m.funcs), 3)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if m.state == stateInput {
			return m.updateInput(msg)
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.selected > 0 {
				m.selected--
				m.refresh()
			}
			return m, nil

		case "down", "j":
			if m.selected < len(m.funcs)-1 {
				m.selected++
				m.refresh()
			}
			return m, nil

		case "d":
			m.dir = 1 - m.dir
			m.refresh()
			return m, nil

		case "m":
			m.mode = 1 - m.mode
			m.refresh()
			return m, nil

		case "p":
			m.postReturn = !m.postReturn
			m.refresh()
			return m, nil

		case "/", "n":
			m.state = stateInput
			m.input.SetValue("")
			m.input.Focus()
			return m, textinput.Blink
		}
	}

	var cmd tea.Cmd
	m.view, cmd = m.view.Update(msg)
	return m, cmd
}

func (m *interactiveModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "esc":
		if len(m.funcs) > 0 {
			m.state = stateBrowse
			m.input.Blur()
			m.err = nil
		}
		return m, nil

	case "enter":
		fn, err := sigparse.Parse(m.input.Value())
		if err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.funcs = append(m.funcs, fn)
		m.selected = len(m.funcs) - 1
		m.state = stateBrowse
		m.input.Blur()
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// refresh re-renders the selected function into the viewport.
func (m *interactiveModel) refresh() {
	if len(m.funcs) == 0 {
		m.view.SetContent("")
		return
	}
	fn := m.funcs[m.selected]

	var (
		out string
		err error
	)
	if m.postReturn {
		out, err = text.RenderPostReturn(fn, m.opts)
	} else {
		out, err = text.Render(m.dir, m.mode, fn, m.opts)
	}
	if err != nil {
		out = errorStyle.Render(err.Error())
	}
	m.view.SetContent(out)
	m.view.GotoTop()
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("ABI Dump"))
	b.WriteString("\n\n")

	for i, fn := range m.funcs {
		if i == m.selected {
			b.WriteString(selectedStyle.Render("> " + fn.String()))
		} else {
			b.WriteString("  " + funcStyle.Render(fn.String()))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.state == stateInput {
		b.WriteString(m.input.View())
		b.WriteString("\n")
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter add • esc back • ctrl+c quit"))
		return b.String()
	}

	if len(m.funcs) > 0 {
		fn := m.funcs[m.selected]
		what, dir := m.dir.String()+" "+m.mode.String(), m.dir
		if m.postReturn {
			what, dir = "post-return", abi.Export
		}
		b.WriteString(funcStyle.Render(what))
		if abi.Validate(fn) == nil {
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(describe(abi.Signature(dir, fn))))
		}
		b.WriteString("\n\n")
		b.WriteString(m.view.View())
		b.WriteString("\n\n")
	}

	b.WriteString(helpStyle.Render("↑/↓ select • d direction • m mode • p post-return • / new signature • q quit"))
	return b.String()
}

func runInteractive(fns []*types.Function, opts abi.Options) error {
	p := tea.NewProgram(newInteractiveModel(fns, opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
