// Package ink records free-hand strokes drawn over the photo and renders them
// as the drawing layer of a composition.
package ink

import (
	"image"
	"image/color"
	"math"
	"sync"
)

// Point is a stroke sample in canvas points.
type Point struct {
	X, Y float64
}

// Stroke is one continuous pen movement.
type Stroke struct {
	Color  color.RGBA
	Width  float64
	Points []Point
}

var (
	DefaultColor = color.RGBA{255, 0, 0, 255}
	DefaultWidth = 4.0
)

// Canvas is the drawing surface. It accepts input only while it has focus,
// which the text editor takes away while it is open.
type Canvas struct {
	mu      sync.Mutex
	strokes []Stroke
	drawing bool
	focused bool
	tools   bool
	color   color.RGBA
	width   float64
}

// Option configures a Canvas.
type Option func(*Canvas)

// WithPen sets the initial pen.
func WithPen(col color.RGBA, width float64) Option {
	return func(c *Canvas) {
		c.color = col
		c.width = width
	}
}

// New returns an empty focused canvas.
func New(opts ...Option) *Canvas {
	c := &Canvas{focused: true, tools: true, color: DefaultColor, width: DefaultWidth}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SetInputFocus grants or takes away pen input. Losing focus ends any stroke
// in progress.
func (c *Canvas) SetInputFocus(focused bool) {
	c.mu.Lock()
	c.focused = focused
	if !focused {
		c.drawing = false
	}
	c.mu.Unlock()
}

// SetToolsVisible shows or hides the pen tools.
func (c *Canvas) SetToolsVisible(visible bool) {
	c.mu.Lock()
	c.tools = visible
	c.mu.Unlock()
}

// Focused reports whether the canvas accepts input.
func (c *Canvas) Focused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.focused
}

// ToolsVisible reports whether pen tools should be shown.
func (c *Canvas) ToolsVisible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tools
}

// SetPen changes colour and width for the next stroke.
func (c *Canvas) SetPen(col color.RGBA, width float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.color = col
	if width > 0 {
		c.width = width
	}
}

// Pen returns the current colour and width.
func (c *Canvas) Pen() (color.RGBA, float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.color, c.width
}

// Begin starts a stroke at p. It reports false when the canvas has no focus.
func (c *Canvas) Begin(p Point) bool {
	c.mu.Lock()
	if !c.focused {
		c.mu.Unlock()
		return false
	}
	c.strokes = append(c.strokes, Stroke{Color: c.color, Width: c.width, Points: []Point{p}})
	c.drawing = true
	c.mu.Unlock()
	return true
}

// Extend adds p to the stroke in progress.
func (c *Canvas) Extend(p Point) bool {
	c.mu.Lock()
	if !c.focused || !c.drawing || len(c.strokes) == 0 {
		c.mu.Unlock()
		return false
	}
	s := &c.strokes[len(c.strokes)-1]
	s.Points = append(s.Points, p)
	c.mu.Unlock()
	return true
}

// End finishes the stroke in progress.
func (c *Canvas) End() {
	c.mu.Lock()
	c.drawing = false
	c.mu.Unlock()
}

// Drawing reports whether a stroke is in progress.
func (c *Canvas) Drawing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drawing
}

// Clear drops every stroke.
func (c *Canvas) Clear() {
	c.mu.Lock()
	c.strokes = nil
	c.drawing = false
	c.mu.Unlock()
}

// Strokes returns a copy of the recorded strokes.
func (c *Canvas) Strokes() []Stroke {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Stroke, len(c.strokes))
	for i, s := range c.strokes {
		s.Points = append([]Point(nil), s.Points...)
		out[i] = s
	}
	return out
}

// AddStroke appends a complete stroke, regardless of focus. Used when
// replaying recorded sessions.
func (c *Canvas) AddStroke(s Stroke) {
	if len(s.Points) == 0 {
		return
	}
	s.Points = append([]Point(nil), s.Points...)
	c.mu.Lock()
	c.strokes = append(c.strokes, s)
	c.mu.Unlock()
}

// Render draws all strokes into rect of dst with points multiplied by scale.
func (c *Canvas) Render(dst *image.RGBA, rect image.Rectangle, scale float64) {
	if scale <= 0 {
		scale = 1
	}
	clip := rect.Intersect(dst.Bounds())
	for _, s := range c.Strokes() {
		thick := int(math.Round(s.Width * scale))
		if thick < 1 {
			thick = 1
		}
		prev := toPixel(s.Points[0], rect.Min, scale)
		setThickPixel(dst, clip, prev.X, prev.Y, thick, s.Color)
		for _, p := range s.Points[1:] {
			cur := toPixel(p, rect.Min, scale)
			drawLine(dst, clip, prev, cur, s.Color, thick)
			prev = cur
		}
	}
}

func toPixel(p Point, origin image.Point, scale float64) image.Point {
	return image.Pt(int(math.Round(p.X*scale)), int(math.Round(p.Y*scale))).Add(origin)
}

func setThickPixel(img *image.RGBA, clip image.Rectangle, x, y, thick int, col color.RGBA) {
	r := thick / 2
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			p := image.Pt(x+dx, y+dy)
			if p.In(clip) {
				img.SetRGBA(p.X, p.Y, col)
			}
		}
	}
}

// drawLine is Bresenham with a square pen.
func drawLine(img *image.RGBA, clip image.Rectangle, from, to image.Point, col color.RGBA, thick int) {
	x0, y0, x1, y1 := from.X, from.Y, to.X, to.Y
	dx := abs(x1 - x0)
	dy := abs(y1 - y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy
	for {
		setThickPixel(img, clip, x0, y0, thick, col)
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

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
