package viz

import (
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// Braille cells hold 2x4 dots:
//
//	1 4
//	2 5
//	3 6
//	7 8
const brailleBlank = 0x2800

var pixelMap = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

// Canvas is a grid of braille cells. Pixel coordinates address the dots, so
// the drawable area is (Width*2) x (Height*4).
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= pixelMap[y%4][x%2]
}

func (c *Canvas) IsSet(x, y int) bool {
	if x < 0 || y < 0 || x/2 >= c.Width || y/4 >= c.Height {
		return false
	}
	return c.Grid[y/4][x/2]&pixelMap[y%4][x%2] != 0
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBlank
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// DrawCircle outlines a circle of pixel radius r, or a dot when r < 1.
func (c *Canvas) DrawCircle(cx, cy, r int) {
	if r < 1 {
		c.Set(cx, cy)
		return
	}
	steps := 8 * r
	for i := 0; i < steps; i++ {
		a := 2 * math.Pi * float64(i) / float64(steps)
		c.Set(cx+int(math.Round(float64(r)*math.Cos(a))), cy+int(math.Round(float64(r)*math.Sin(a))))
	}
}

// DrawBlob fills a 3x3 block around (x, y).
func (c *Canvas) DrawBlob(x, y int) {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			c.Set(x+dx, y+dy)
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

// Viewport maps the world's X/Z plane onto canvas pixels, looking down -Y.
// -Z (forward) points up the screen.
type Viewport struct {
	Center mgl64.Vec3
	// Scale is pixels per metre.
	Scale  float64
	pw, ph int
}

// FitViewport frames every point with some margin on a canvas of pw x ph
// pixels.
func FitViewport(points []mgl64.Vec3, pw, ph int) Viewport {
	v := Viewport{Scale: 1, pw: pw, ph: ph}
	if len(points) == 0 {
		return v
	}
	lo, hi := points[0], points[0]
	for _, p := range points[1:] {
		lo[0], hi[0] = math.Min(lo[0], p[0]), math.Max(hi[0], p[0])
		lo[2], hi[2] = math.Min(lo[2], p[2]), math.Max(hi[2], p[2])
	}
	v.Center = lo.Add(hi).Mul(0.5)

	const margin = 1.2
	spanX := (hi[0] - lo[0]) * margin
	spanZ := (hi[2] - lo[2]) * margin
	scale := math.Inf(1)
	if spanX > 0 {
		scale = float64(pw) / spanX
	}
	if spanZ > 0 {
		scale = math.Min(scale, float64(ph)/spanZ)
	}
	if !math.IsInf(scale, 1) {
		v.Scale = scale
	}
	return v
}

func (v Viewport) Project(p mgl64.Vec3) (int, int) {
	x := float64(v.pw)/2 + (p[0]-v.Center[0])*v.Scale
	y := float64(v.ph)/2 + (p[2]-v.Center[2])*v.Scale
	return int(math.Round(x)), int(math.Round(y))
}

func (v Viewport) Length(metres float64) int {
	return int(math.Round(metres * v.Scale))
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
