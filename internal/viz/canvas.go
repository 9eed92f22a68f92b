package viz

import (
	"math"
	"strings"

	"github.com/san-kum/cr3bp/internal/trajectory"
)

const brailleBlank = 0x2800

// Braille cells hold 2x4 dots:
//
//	1 4
//	2 5
//	3 6
//	7 8
var dotBits = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

// Canvas is a grid of Braille cells addressed in sub-pixels: a canvas of
// Width x Height cells has (2*Width) x (4*Height) dots.
type Canvas struct {
	Width, Height int
	cells         [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{Width: w, Height: h, cells: make([][]rune, h)}
	for i := range c.cells {
		c.cells[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Set lights the dot at sub-pixel (x, y). Out of range dots are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.cells[row][col] |= dotBits[y%4][x%2]
}

func (c *Canvas) Clear() {
	for i := range c.cells {
		for j := range c.cells[i] {
			c.cells[i][j] = brailleBlank
		}
	}
}

// DrawLine connects two sub-pixels with Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx, dy := absInt(x1-x0), absInt(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx - dy
	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
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

// Frame is the world-coordinate window shown on a canvas.
type Frame struct {
	MinX, MaxX float64
	MinY, MaxY float64
}

// SynodicFrame covers both primaries and the collinear points for any mu.
var SynodicFrame = Frame{MinX: -1.5, MaxX: 1.5, MinY: -1.2, MaxY: 1.2}

// FitFrame returns the bounding window of pts grown by margin on each side.
func FitFrame(pts []trajectory.Point, margin float64) Frame {
	if len(pts) == 0 {
		return SynodicFrame
	}
	f := Frame{MinX: math.Inf(1), MaxX: math.Inf(-1), MinY: math.Inf(1), MaxY: math.Inf(-1)}
	for _, p := range pts {
		f.MinX, f.MaxX = math.Min(f.MinX, p.X), math.Max(f.MaxX, p.X)
		f.MinY, f.MaxY = math.Min(f.MinY, p.Y), math.Max(f.MaxY, p.Y)
	}
	if f.MaxX == f.MinX {
		f.MinX, f.MaxX = f.MinX-1, f.MaxX+1
	}
	if f.MaxY == f.MinY {
		f.MinY, f.MaxY = f.MinY-1, f.MaxY+1
	}
	return Frame{
		MinX: f.MinX - margin, MaxX: f.MaxX + margin,
		MinY: f.MinY - margin, MaxY: f.MaxY + margin,
	}
}

// Project maps a world point to sub-pixels, with y growing upward.
func (c *Canvas) Project(f Frame, p trajectory.Point) (int, int) {
	w, h := float64(2*c.Width-1), float64(4*c.Height-1)
	px := (p.X - f.MinX) / (f.MaxX - f.MinX) * w
	py := (f.MaxY - p.Y) / (f.MaxY - f.MinY) * h
	return int(math.Round(px)), int(math.Round(py))
}

// Plot draws pts as a polyline.
func (c *Canvas) Plot(f Frame, pts []trajectory.Point) {
	for i, p := range pts {
		x1, y1 := c.Project(f, p)
		if i == 0 {
			c.Set(x1, y1)
			continue
		}
		x0, y0 := c.Project(f, pts[i-1])
		c.DrawLine(x0, y0, x1, y1)
	}
}

// Mark draws a small cross centred on p.
func (c *Canvas) Mark(f Frame, p trajectory.Point) {
	x, y := c.Project(f, p)
	c.DrawLine(x-1, y, x+1, y)
	c.DrawLine(x, y-1, x, y+1)
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.cells {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
