package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// OpenFunc starts the live view for a named preset.
type OpenFunc func(name string) (Model, error)

// Picker lists presets and hands over to the live view once one is chosen.
type Picker struct {
	names  []string
	info   map[string]string
	cursor int
	open   OpenFunc

	live    *Model
	message string
}

func NewPicker(names []string, info map[string]string, open OpenFunc) Picker {
	return Picker{names: names, info: info, open: open}
}

func (p Picker) Init() tea.Cmd { return nil }

func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if p.live != nil {
		next, cmd := p.live.Update(msg)
		live := next.(Model)
		p.live = &live
		return p, cmd
	}

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}
	switch key.String() {
	case "q", "esc", "ctrl+c":
		return p, tea.Quit
	case "up", "k":
		if p.cursor > 0 {
			p.cursor--
		}
	case "down", "j":
		if p.cursor < len(p.names)-1 {
			p.cursor++
		}
	case "enter", " ":
		if len(p.names) == 0 {
			return p, nil
		}
		live, err := p.open(p.names[p.cursor])
		if err != nil {
			p.message = err.Error()
			return p, nil
		}
		p.live = &live
		return p, live.Init()
	}
	return p, nil
}

func (p Picker) View() string {
	if p.live != nil {
		return p.live.View()
	}

	var s strings.Builder
	s.WriteString(headerStyle.Render("CRAFTSIM") + "\n")
	for i, name := range p.names {
		line := fmt.Sprintf("%-12s %s", name, dimStyle.Render(p.info[name]))
		if i == p.cursor {
			s.WriteString(cursorStyle.Render("> "+name) + strings.TrimPrefix(line, name) + "\n")
		} else {
			s.WriteString("  " + line + "\n")
		}
	}
	if p.message != "" {
		s.WriteString("\n" + statusFailed.Render(p.message) + "\n")
	}
	s.WriteString(helpStyle.Render("↑↓:Select ENTER:Fly Q:Quit"))
	return canvasStyle.Render(s.String())
}
