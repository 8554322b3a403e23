package viz

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/craftsim/internal/config"
	"github.com/san-kum/craftsim/internal/scenario"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanvasSet(t *testing.T) {
	c := NewCanvas(2, 1)
	c.Set(0, 0)
	c.Set(3, 3)
	c.Set(-1, 0)
	c.Set(4, 0)

	assert.Equal(t, rune(0x2801), c.Grid[0][0])
	assert.Equal(t, rune(0x2880), c.Grid[0][1])
	assert.True(t, c.IsSet(3, 3))
	assert.False(t, c.IsSet(1, 0))

	c.Clear()
	assert.Equal(t, "\u2800\u2800\n", c.String())
}

func TestCanvasDrawLine(t *testing.T) {
	c := NewCanvas(4, 2)
	c.DrawLine(0, 0, 7, 7)
	for i := 0; i < 8; i++ {
		assert.True(t, c.IsSet(i, i), "diagonal pixel %d", i)
	}
}

func TestCanvasDrawCircle(t *testing.T) {
	c := NewCanvas(10, 5)
	c.DrawCircle(10, 10, 4)
	assert.True(t, c.IsSet(14, 10))
	assert.True(t, c.IsSet(6, 10))
	assert.True(t, c.IsSet(10, 6))
	assert.False(t, c.IsSet(10, 10))
}

func TestFitViewport(t *testing.T) {
	v := FitViewport([]mgl64.Vec3{{-100, 0, -50}, {100, 0, 50}}, 120, 96)

	x, y := v.Project(mgl64.Vec3{})
	assert.Equal(t, 60, x)
	assert.Equal(t, 48, y)

	// X spans 240m after margin, so 0.5 px per metre.
	assert.InDelta(t, 0.5, v.Scale, 1e-9)
	x, y = v.Project(mgl64.Vec3{100, 0, -50})
	assert.Equal(t, 110, x)
	assert.Equal(t, 23, y)

	single := FitViewport([]mgl64.Vec3{{5, 0, 5}}, 10, 10)
	assert.Equal(t, 1.0, single.Scale)
}

func TestLoadBar(t *testing.T) {
	assert.Equal(t, 4, strings.Count(LoadBar(0.5, 8), "█"))
	assert.Equal(t, 8, strings.Count(LoadBar(3, 8), "█"))
	assert.Equal(t, 8, strings.Count(LoadBar(-1, 8), "░"))
}

func presetModel(t *testing.T, name string) Model {
	t.Helper()
	m, err := NewModel(func() (*scenario.Scenario, error) {
		return scenario.Build(config.GetPreset(name), nil)
	})
	require.NoError(t, err)
	return m
}

func key(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestModelTicks(t *testing.T) {
	m := presetModel(t, "circuit")

	for i := 0; i < 30; i++ {
		m = update(m, TickMsg(time.Now()))
	}
	assert.InDelta(t, 0.5, m.simulator.Time(), 1e-9)
	assert.Len(t, m.speeds, 30)

	view := m.View()
	assert.Contains(t, view, "CIRCUIT")
	assert.Contains(t, view, "alpha")
	assert.Contains(t, view, "run_circuit (active)")

	m = update(m, key(" "))
	m = update(m, TickMsg(time.Now()))
	assert.InDelta(t, 0.5, m.simulator.Time(), 1e-9, "paused model must not step")
	assert.Contains(t, m.View(), "PAUSED")

	m = update(m, key("backspace"))
	assert.Equal(t, 0.0, m.simulator.Time())
	assert.True(t, m.running)
}

func TestModelCycleTracked(t *testing.T) {
	m := presetModel(t, "circuit")
	first := m.tracked
	m = update(m, key("tab"))
	assert.NotEqual(t, first, m.tracked)
	m = update(m, key("tab"))
	assert.Equal(t, first, m.tracked)
}

func TestModelManualControl(t *testing.T) {
	cfg := &config.Config{
		Name:   "manual",
		Crafts: []config.CraftConfig{{Name: "player", Pilot: config.PilotManual}},
	}
	m, err := NewModel(func() (*scenario.Scenario, error) { return scenario.Build(cfg, nil) })
	require.NoError(t, err)

	m = update(m, key("w"))
	m = update(m, key("w"))
	assert.Equal(t, mgl64.Vec3{0, 0, -0.5}, m.manual.Linear)

	m = update(m, TickMsg(time.Now()))
	c, _ := m.scn.World.Craft(m.scn.Player)
	assert.Equal(t, -0.5*c.Engine.LinvelLimit[2], c.Linear.Input[2])
	assert.Contains(t, m.View(), "manual")

	m = update(m, key("x"))
	assert.Equal(t, mgl64.Vec3{}, m.manual.Linear)
}

func TestPicker(t *testing.T) {
	opened := ""
	p := NewPicker([]string{"circuit", "shuttle"}, map[string]string{"shuttle": "lone burn"},
		func(name string) (Model, error) {
			opened = name
			if name == "circuit" {
				return Model{}, errors.New("no circuit today")
			}
			return presetModel(t, name), nil
		})

	next, _ := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	p = next.(Picker)
	assert.Equal(t, "circuit", opened)
	assert.Nil(t, p.live)
	assert.Contains(t, p.View(), "no circuit today")

	next, _ = p.Update(tea.KeyMsg{Type: tea.KeyDown})
	p = next.(Picker)
	next, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	p = next.(Picker)
	assert.Equal(t, "shuttle", opened)
	require.NotNil(t, p.live)
	assert.NotNil(t, cmd)
	assert.Contains(t, p.View(), "SHUTTLE")
}
