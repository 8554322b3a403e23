// Package export renders stored telemetry into standalone image formats.
package export

import (
	"fmt"
	"strings"

	"github.com/san-kum/craftsim/internal/sim"
	"github.com/san-kum/craftsim/internal/viz"
)

const svgHeader = `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`

// CanvasToSVG draws every set braille dot as a circle.
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}

	pw, ph := canvas.Width*2, canvas.Height*4
	w, h := int(float64(pw)*scale), int(float64(ph)*scale)

	var sb strings.Builder
	fmt.Fprintf(&sb, svgHeader, w, h, w, h)
	sb.WriteString("<g fill=\"#00ff00\">\n")
	for y := 0; y < ph; y++ {
		for x := 0; x < pw; x++ {
			if !canvas.IsSet(x, y) {
				continue
			}
			fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n",
				float64(x)*scale+scale/2, float64(y)*scale+scale/2, scale*0.4)
		}
	}
	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// TrackToSVG draws the X/Z path of a craft seen from above, -Z up. It
// returns "" for fewer than two samples.
func TrackToSVG(samples []sim.Sample, width, height int, strokeColor string) string {
	if len(samples) < 2 {
		return ""
	}

	minX, maxX := samples[0].Position[0], samples[0].Position[0]
	minZ, maxZ := samples[0].Position[2], samples[0].Position[2]
	for _, s := range samples {
		minX, maxX = min(minX, s.Position[0]), max(maxX, s.Position[0])
		minZ, maxZ = min(minZ, s.Position[2]), max(maxZ, s.Position[2])
	}

	rangeX := maxX - minX
	rangeZ := maxZ - minZ
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeZ == 0 {
		rangeZ = 1
	}
	minX -= rangeX * 0.1
	minZ -= rangeZ * 0.1
	rangeX *= 1.2
	rangeZ *= 1.2

	var sb strings.Builder
	fmt.Fprintf(&sb, svgHeader, width, height, width, height)
	fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, strokeColor)
	for i, s := range samples {
		x := (s.Position[0] - minX) / rangeX * float64(width)
		y := (s.Position[2] - minZ) / rangeZ * float64(height)
		if i > 0 {
			sb.WriteString(" L")
		}
		fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
	}
	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}
