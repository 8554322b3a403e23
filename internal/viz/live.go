package viz

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/craftsim/internal/control"
	"github.com/san-kum/craftsim/internal/ecs"
	"github.com/san-kum/craftsim/internal/scenario"
	"github.com/san-kum/craftsim/internal/sim"
	"github.com/san-kum/craftsim/internal/vmath"
)

const (
	width           = 60
	height          = 24
	historyCapacity = 300
	trailCapacity   = 200
	frameRate       = 60
	// nudge is how far one key press moves the manual intent on an axis.
	nudge = 0.25
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// BuildFunc creates a fresh scenario. The live view calls it again on reset.
type BuildFunc func() (*scenario.Scenario, error)

// Model is the live top-down view of a running scenario.
type Model struct {
	build     BuildFunc
	scn       *scenario.Scenario
	simulator *sim.Simulator
	cfg       sim.Config
	steps     int

	canvas   *Canvas
	view     Viewport
	trail    []mgl64.Vec3
	speeds   []float64
	crafts   []ecs.Entity
	tracked  ecs.Entity
	manual   control.ManualInput
	running  bool
	showHelp bool
	err      error
}

// NewModel builds the scenario and frames it.
func NewModel(build BuildFunc) (Model, error) {
	m := Model{
		build:  build,
		canvas: NewCanvas(width, height),
	}
	if err := m.reset(); err != nil {
		return Model{}, err
	}
	return m, nil
}

func (m *Model) reset() error {
	scn, err := m.build()
	if err != nil {
		return err
	}
	m.scn = scn
	m.simulator = scn.Simulator()
	m.cfg = scn.SimConfig()
	m.steps = stepsPerFrame(m.cfg.Dt)
	m.tracked = scn.Track
	m.trail = m.trail[:0]
	m.speeds = m.speeds[:0]
	m.manual.Clear()
	m.running = true
	m.err = nil

	m.crafts = m.crafts[:0]
	for _, e := range scn.Crafts {
		m.crafts = append(m.crafts, e)
	}
	sort.Slice(m.crafts, func(i, j int) bool { return m.craftName(m.crafts[i]) < m.craftName(m.crafts[j]) })

	m.view = FitViewport(m.landmarks(), width*2, height*4)
	return nil
}

// stepsPerFrame keeps simulated time close to wall time at the frame rate.
func stepsPerFrame(dt float64) int {
	n := int(math.Round(1 / (frameRate * dt)))
	if n < 1 {
		return 1
	}
	return n
}

func (m *Model) landmarks() []mgl64.Vec3 {
	var pts []mgl64.Vec3
	for _, st := range m.scn.Space.Bodies() {
		pts = append(pts, st.Position)
	}
	for _, st := range m.scn.Space.Sensors() {
		pts = append(pts, st.Position)
	}
	return pts
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case TickMsg:
		if m.running && m.err == nil {
			m.advance()
		}
		return m, tick()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+c":
		return m, tea.Quit
	case " ":
		m.running = !m.running
	case "backspace":
		if err := m.reset(); err != nil {
			m.err = err
		}
	case "tab":
		m.cycleTracked()
	case "?":
		m.showHelp = !m.showHelp
	case "x":
		m.manual.Clear()
	default:
		if lin, ang, ok := manualKey(msg.String()); ok {
			m.manual.Nudge(lin.Mul(nudge), ang.Mul(nudge))
		}
	}
	return m, nil
}

// manualKey maps flight keys to intent directions in the craft frame.
func manualKey(key string) (linear, angular mgl64.Vec3, ok bool) {
	switch key {
	case "w":
		return mgl64.Vec3{0, 0, -1}, mgl64.Vec3{}, true
	case "s":
		return mgl64.Vec3{0, 0, 1}, mgl64.Vec3{}, true
	case "a":
		return mgl64.Vec3{-1, 0, 0}, mgl64.Vec3{}, true
	case "d":
		return mgl64.Vec3{1, 0, 0}, mgl64.Vec3{}, true
	case "r":
		return mgl64.Vec3{0, 1, 0}, mgl64.Vec3{}, true
	case "f":
		return mgl64.Vec3{0, -1, 0}, mgl64.Vec3{}, true
	case "i":
		return mgl64.Vec3{}, mgl64.Vec3{-1, 0, 0}, true
	case "k":
		return mgl64.Vec3{}, mgl64.Vec3{1, 0, 0}, true
	case "j":
		return mgl64.Vec3{}, mgl64.Vec3{0, 1, 0}, true
	case "l":
		return mgl64.Vec3{}, mgl64.Vec3{0, -1, 0}, true
	case "u":
		return mgl64.Vec3{}, mgl64.Vec3{0, 0, 1}, true
	case "o":
		return mgl64.Vec3{}, mgl64.Vec3{0, 0, -1}, true
	}
	return mgl64.Vec3{}, mgl64.Vec3{}, false
}

func (m *Model) cycleTracked() {
	if len(m.crafts) == 0 {
		return
	}
	next := 0
	for i, e := range m.crafts {
		if e == m.tracked {
			next = (i + 1) % len(m.crafts)
			break
		}
	}
	m.tracked = m.crafts[next]
	m.trail = m.trail[:0]
	m.speeds = m.speeds[:0]
}

// advance applies the manual intent and steps the world one frame.
func (m *Model) advance() {
	w := m.scn.World
	if player := m.scn.Player; !player.IsZero() {
		if c, ok := w.Craft(player); ok {
			lin, ang := m.manual.Inputs(c.Engine.LinvelLimit, c.Engine.AngvelLimit, c.Engine.SetSpeed)
			if err := w.SetInput(player, lin, ang); err != nil {
				m.err = err
				return
			}
		}
	}

	for i := 0; i < m.steps; i++ {
		if err := m.simulator.Step(context.Background(), m.cfg.Dt, m.cfg.Parallel); err != nil {
			m.err = err
			m.running = false
			return
		}
	}

	if s, ok := m.simulator.Sample(m.tracked); ok {
		m.trail = appendCapped(m.trail, s.Position, trailCapacity)
		m.speeds = appendCapped(m.speeds, s.Velocity.Len(), historyCapacity)
	}
}

func appendCapped[T any](xs []T, x T, limit int) []T {
	xs = append(xs, x)
	if len(xs) > limit {
		xs = xs[1:]
	}
	return xs
}

func (m *Model) craftName(e ecs.Entity) string {
	if c, ok := m.scn.World.Craft(e); ok {
		return c.Name
	}
	return ecs.Format(e)
}

// mindLabel describes what currently drives craft e.
func (m *Model) mindLabel(e ecs.Entity) string {
	w := m.scn.World
	c, ok := w.Craft(e)
	if !ok {
		return "-"
	}
	if e == m.scn.Player {
		return "manual"
	}
	if st, ok := w.Strategies.Get(c.Mind); ok {
		return fmt.Sprintf("%s (%s)", st.Kind(), st.Phase)
	}
	if r, ok := w.Routines.Get(c.Mind); ok {
		return r.Kind().String()
	}
	return "input"
}

func (m *Model) draw() {
	m.canvas.Clear()

	for _, wps := range m.scn.Circuits {
		for i, wp := range wps {
			p, ok := m.scn.World.WaypointPosition(wp)
			if !ok {
				continue
			}
			q, _ := m.scn.World.WaypointPosition(wps[(i+1)%len(wps)])
			x0, y0 := m.view.Project(p)
			x1, y1 := m.view.Project(q)
			m.canvas.DrawLine(x0, y0, x1, y1)
		}
	}
	for _, st := range m.scn.Space.Sensors() {
		x, y := m.view.Project(st.Position)
		m.canvas.DrawCircle(x, y, m.view.Length(st.Radius))
	}

	for _, pt := range m.trail {
		m.canvas.Set(m.view.Project(pt))
	}

	for _, st := range m.scn.Space.Bodies() {
		x, y := m.view.Project(st.Position)
		if st.Static {
			m.canvas.DrawCircle(x, y, m.view.Length(st.Radius))
			continue
		}
		m.canvas.DrawBlob(x, y)
		if st.Owner == m.tracked {
			hx, hy := m.view.Project(st.Position.Add(st.Rotation.Rotate(vmath.Forward).Mul(6 / m.view.Scale)))
			m.canvas.DrawLine(x, y, hx, hy)
		}
	}
}

func (m Model) View() string {
	m.draw()
	canvasView := canvasStyle.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.scn.Config.Name)) + "\n")
	switch {
	case m.err != nil:
		s.WriteString(statusFailed.Render("FAILED") + "\n" + dimStyle.Render(m.err.Error()) + "\n\n")
	case m.running:
		s.WriteString(statusRunning.Render("RUNNING") + "\n\n")
	default:
		s.WriteString(statusPaused.Render("PAUSED") + "\n\n")
	}

	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.2fs", m.simulator.Time()))
	row("Craft", m.craftName(m.tracked))
	row("Mind", m.mindLabel(m.tracked))

	if sample, ok := m.simulator.Sample(m.tracked); ok {
		row("Speed", fmt.Sprintf("%.1f m/s", sample.Velocity.Len()))
		row("Local vel", fmtVec(sample.LocalVelocity))
		row("Input", fmtVec(sample.Input))
		row("Flame", fmtVec(sample.LinearFlame))
		row("Load", LoadBar(flameLoad(sample), 20))
	}

	if len(m.speeds) > 1 {
		chart := asciigraph.Plot(m.speeds, asciigraph.Height(5), asciigraph.Width(30), asciigraph.Caption("Speed"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}

	help := "SP:Pause BS:Reset TAB:Craft ESC:Quit ?:Help"
	if !m.scn.Player.IsZero() {
		help += "\nWASD RF:Move IJKL UO:Turn X:Stop"
	}
	s.WriteString(helpStyle.Render(help))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
	if m.showHelp {
		return helpOverlay + "\n\n" + mainView
	}
	return mainView
}

const helpOverlay = `
╔══════════════════════════════════════╗
║           KEYBOARD SHORTCUTS         ║
╠══════════════════════════════════════╣
║  Space     - Pause/Resume            ║
║  Backspace - Rebuild the scenario    ║
║  Tab       - Track the next craft    ║
║  W/S       - Forward/Back            ║
║  A/D       - Strafe left/right       ║
║  R/F       - Up/Down                 ║
║  I/K       - Pitch                   ║
║  J/L       - Yaw                     ║
║  U/O       - Roll                    ║
║  X         - Drop manual input       ║
║  Esc       - Quit                    ║
║  ?         - Toggle this help        ║
╚══════════════════════════════════════╝`

// flameLoad is the largest fraction of the acceleration bound any axis uses.
func flameLoad(s sim.Sample) float64 {
	load := 0.0
	for i := 0; i < 3; i++ {
		if s.FlameBound[i] > 0 {
			load = math.Max(load, math.Abs(s.LinearFlame[i])/s.FlameBound[i])
		}
	}
	return load
}

func fmtVec(v mgl64.Vec3) string {
	return fmt.Sprintf("%7.1f %7.1f %7.1f", v[0], v[1], v[2])
}
