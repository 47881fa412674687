// Package ui is the editing window: a toolbar, the photo canvas and the text
// editor bar, driven by shiny.
package ui

import (
	"image"
	"image/color"

	"golang.org/x/image/colornames"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/example/photoedit/internal/annotation"
	"github.com/example/photoedit/internal/compose"
)

const (
	toolbarHeight   = 28
	editorBarHeight = 32
	buttonPad       = 4
	swatchSize      = 20
)

// Action is what a control does when activated.
type Action int

const (
	ActionOpen Action = iota
	ActionPaste
	ActionCapture
	ActionText
	ActionSave
	ActionNew
	ActionAccept
	ActionCancel
	ActionBold
	ActionColor
)

// Palette is the set of text colours offered while editing.
var Palette = []color.RGBA{
	annotation.DefaultColor,
	colornames.Black,
	colornames.Red,
	colornames.Gold,
	colornames.Limegreen,
	colornames.Dodgerblue,
	colornames.Magenta,
}

// Control is a clickable area of the window.
type Control struct {
	Action  Action
	Label   string
	Rect    image.Rectangle
	Enabled bool
	// Color is the swatch colour of an ActionColor control.
	Color color.RGBA
}

// Layout is the window geometry for one window size and editor state.
type Layout struct {
	Width, Height int
	Toolbar       image.Rectangle
	Canvas        image.Rectangle
	EditorBar     image.Rectangle
	// TextField is the part of the editor bar showing the text being typed.
	TextField image.Rectangle
	Controls  []Control
}

// NewLayout arranges the window. The editor bar is always reserved so the
// canvas keeps its size when editing starts.
func NewLayout(width, height int, editing, hasPhoto bool) Layout {
	l := Layout{Width: width, Height: height}
	l.Toolbar = image.Rect(0, 0, width, toolbarHeight)
	l.EditorBar = image.Rect(0, height-editorBarHeight, width, height)
	if width > 0 && height > toolbarHeight+editorBarHeight {
		l.Canvas = image.Rect(0, toolbarHeight, width, height-editorBarHeight)
	}

	x := buttonPad
	add := func(a Action, label string, enabled bool, y0, y1 int) {
		w := textWidth(label) + 2*buttonPad
		l.Controls = append(l.Controls, Control{
			Action:  a,
			Label:   label,
			Rect:    image.Rect(x, y0+buttonPad, x+w, y1-buttonPad),
			Enabled: enabled,
		})
		x += w + buttonPad
	}

	top, bottom := l.Toolbar.Min.Y, l.Toolbar.Max.Y
	add(ActionOpen, "Open", !editing, top, bottom)
	add(ActionPaste, "Paste", !editing, top, bottom)
	add(ActionCapture, "Capture", !editing, top, bottom)
	add(ActionText, "Text +", hasPhoto, top, bottom)
	add(ActionSave, "Save", hasPhoto && !editing, top, bottom)
	add(ActionNew, "New", hasPhoto, top, bottom)

	if !editing {
		return l
	}
	x = buttonPad
	top, bottom = l.EditorBar.Min.Y, l.EditorBar.Max.Y
	add(ActionAccept, "Accept", true, top, bottom)
	add(ActionCancel, "Cancel", true, top, bottom)
	add(ActionBold, "Bold", true, top, bottom)
	sy := top + (editorBarHeight-swatchSize)/2
	for _, c := range Palette {
		l.Controls = append(l.Controls, Control{
			Action:  ActionColor,
			Rect:    image.Rect(x, sy, x+swatchSize, sy+swatchSize),
			Enabled: true,
			Color:   c,
		})
		x += swatchSize + buttonPad
	}
	if x < width-buttonPad {
		l.TextField = image.Rect(x, top+buttonPad, width-buttonPad, bottom-buttonPad)
	}
	return l
}

// Hit returns the enabled control under p.
func (l Layout) Hit(p image.Point) (Control, bool) {
	for _, c := range l.Controls {
		if c.Enabled && p.In(c.Rect) {
			return c, true
		}
	}
	return Control{}, false
}

// Frame is the canvas measured in points at the given pixels-per-point.
func (l Layout) Frame(scale float64) compose.Frame {
	if scale <= 0 {
		scale = 1
	}
	return compose.Frame{
		Width:  float64(l.Canvas.Dx()) / scale,
		Height: float64(l.Canvas.Dy()) / scale,
		Scale:  scale,
	}
}

// ToCanvas converts a window pixel into canvas points.
func (l Layout) ToCanvas(p image.Point, scale float64) annotation.Offset {
	if scale <= 0 {
		scale = 1
	}
	d := p.Sub(l.Canvas.Min)
	return annotation.Offset{X: float64(d.X) / scale, Y: float64(d.Y) / scale}
}

func textWidth(s string) int {
	return font.MeasureString(basicfont.Face7x13, s).Ceil()
}
