package ui

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/shiny/screen"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/example/photoedit/internal/editor"
	"github.com/example/photoedit/internal/theme"
)

// frameDropThreshold specifies how many consecutive frames can be canceled
// before a draw is allowed to complete to keep the UI responsive.
const frameDropThreshold = 10

const checkerSize = 8

// ButtonState is the visual state of a control.
type ButtonState int

const (
	StateDefault ButtonState = iota
	StateHover
	StatePressed
)

type paintState struct {
	layout     Layout
	scale      float64
	preview    *image.RGBA
	pen        bool
	penColor   color.RGBA
	editing    bool
	text       string
	bold       bool
	color      color.RGBA
	selection  image.Rectangle
	hover      image.Point
	pressed    bool
	status     string
	statusKind string
}

// renderFrame draws one window frame into dst.
func renderFrame(ctx context.Context, dst *image.RGBA, st paintState, th *theme.Theme) {
	draw.Draw(dst, dst.Bounds(), image.NewUniform(th.Background), image.Point{}, draw.Src)

	canvas := st.layout.Canvas
	drawCheckerboard(dst, canvas, checkerSize, th.CheckerLight, th.CheckerDark)
	if st.preview != nil {
		draw.Draw(dst, st.preview.Bounds().Add(canvas.Min).Intersect(canvas), st.preview, image.Point{}, draw.Over)
	}
	if !st.selection.Empty() {
		drawRect(dst, st.selection.Inset(-2), th.Selection, 2)
	}
	if ctx.Err() != nil {
		return
	}

	draw.Draw(dst, st.layout.Toolbar, image.NewUniform(th.ToolbarBackground), image.Point{}, draw.Src)
	draw.Draw(dst, st.layout.EditorBar, image.NewUniform(th.ToolbarBackground), image.Point{}, draw.Src)
	if st.pen && !st.editing {
		// current pen colour at the right end of the toolbar
		r := image.Rect(st.layout.Toolbar.Max.X-swatchSize-buttonPad, buttonPad, st.layout.Toolbar.Max.X-buttonPad, buttonPad+swatchSize)
		draw.Draw(dst, r, image.NewUniform(st.penColor), image.Point{}, draw.Src)
		drawRect(dst, r, th.ButtonBorder, 1)
	}
	for _, c := range st.layout.Controls {
		state := StateDefault
		if st.hover.In(c.Rect) {
			state = StateHover
			if st.pressed {
				state = StatePressed
			}
		}
		drawControl(dst, c, state, st, th)
	}
	if st.editing && !st.layout.TextField.Empty() {
		drawTextField(dst, st.layout.TextField, st.text, th)
	}
	if ctx.Err() != nil {
		return
	}

	if st.status != "" {
		drawStatus(dst, st.status, st.statusKind == editor.AlertError, th)
	}
}

func drawControl(dst *image.RGBA, c Control, state ButtonState, st paintState, th *theme.Theme) {
	if c.Action == ActionColor {
		draw.Draw(dst, c.Rect, image.NewUniform(c.Color), image.Point{}, draw.Src)
		border, thick := th.ButtonBorder, 1
		if c.Color == st.color {
			border, thick = th.Selection, 2
		}
		drawRect(dst, c.Rect, border, thick)
		return
	}
	bg := th.ButtonBackground
	switch {
	case !c.Enabled:
	case state == StateHover:
		bg = th.ButtonBackgroundHover
	case state == StatePressed:
		bg = th.ButtonBackgroundPress
	}
	if c.Action == ActionBold && st.bold {
		bg = th.ButtonBackgroundPress
	}
	draw.Draw(dst, c.Rect, image.NewUniform(bg), image.Point{}, draw.Src)
	drawRect(dst, c.Rect, th.ButtonBorder, 1)
	fg := th.ButtonText
	if !c.Enabled {
		fg = th.ButtonTextDisabled
	}
	ascent := basicfont.Face7x13.Metrics().Ascent.Ceil()
	y := c.Rect.Min.Y + (c.Rect.Dy()+ascent)/2 - 1
	drawLabel(dst, c.Label, image.Pt(c.Rect.Min.X+buttonPad, y), fg)
}

func drawTextField(dst *image.RGBA, r image.Rectangle, text string, th *theme.Theme) {
	draw.Draw(dst, r, image.NewUniform(th.EditorBackground), image.Point{}, draw.Src)
	drawRect(dst, r, th.ButtonBorder, 1)
	ascent := basicfont.Face7x13.Metrics().Ascent.Ceil()
	y := r.Min.Y + (r.Dy()+ascent)/2 - 1
	// keep the end of long text visible
	room := r.Dx() - 2*buttonPad - 2
	for text != "" && textWidth(text) > room {
		_, size := utf8.DecodeRuneInString(text)
		text = text[size:]
	}
	end := drawLabel(dst, text, image.Pt(r.Min.X+buttonPad, y), th.EditorText)
	caret := image.Rect(end, r.Min.Y+buttonPad, end+2, r.Max.Y-buttonPad)
	draw.Draw(dst, caret.Intersect(r), image.NewUniform(th.EditorCaret), image.Point{}, draw.Src)
}

func drawStatus(dst *image.RGBA, msg string, isError bool, th *theme.Theme) {
	face := basicfont.Face7x13
	w := textWidth(msg)
	ascent := face.Metrics().Ascent.Ceil()
	descent := face.Metrics().Descent.Ceil()
	b := dst.Bounds()
	px := b.Min.X + (b.Dx()-w)/2
	py := b.Min.Y + (b.Dy()-ascent-descent)/2 + ascent
	rect := image.Rect(px-8, py-ascent-8, px+w+8, py+descent+8)
	bg := th.EditorBackground
	bg.A = 230
	draw.Draw(dst, rect, image.NewUniform(bg), image.Point{}, draw.Over)
	border := th.ButtonBorder
	if isError {
		border = th.Selection
	}
	drawRect(dst, rect, border, 2)
	drawLabel(dst, msg, image.Pt(px, py), th.EditorText)
}

// drawLabel draws s with its baseline at at and returns the x after it.
func drawLabel(dst *image.RGBA, s string, at image.Point, col color.Color) int {
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(col), Face: basicfont.Face7x13, Dot: fixed.P(at.X, at.Y)}
	d.DrawString(s)
	return d.Dot.X.Ceil()
}

func drawCheckerboard(dst *image.RGBA, rect image.Rectangle, size int, light, dark color.Color) {
	for y := rect.Min.Y; y < rect.Max.Y; y += size {
		for x := rect.Min.X; x < rect.Max.X; x += size {
			c := light
			if ((x-rect.Min.X)/size+(y-rect.Min.Y)/size)%2 == 1 {
				c = dark
			}
			cell := image.Rect(x, y, x+size, y+size).Intersect(rect)
			draw.Draw(dst, cell, image.NewUniform(c), image.Point{}, draw.Src)
		}
	}
}

func drawRect(dst *image.RGBA, rect image.Rectangle, col color.Color, thick int) {
	u := image.NewUniform(col)
	for _, side := range []image.Rectangle{
		image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+thick),
		image.Rect(rect.Min.X, rect.Max.Y-thick, rect.Max.X, rect.Max.Y),
		image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+thick, rect.Max.Y),
		image.Rect(rect.Max.X-thick, rect.Min.Y, rect.Max.X, rect.Max.Y),
	} {
		draw.Draw(dst, side.Intersect(dst.Bounds()), u, image.Point{}, draw.Src)
	}
}

// drawFrame paints st into a fresh buffer and publishes it, giving up as
// soon as ctx is cancelled by a newer frame.
func drawFrame(ctx context.Context, s screen.Screen, w screen.Window, st paintState, th *theme.Theme) {
	size := image.Pt(st.layout.Width, st.layout.Height)
	if size.X <= 0 || size.Y <= 0 {
		return
	}
	b, err := s.NewBuffer(size)
	if err != nil {
		logrus.WithError(err).Warn("new buffer")
		return
	}
	defer b.Release()

	renderFrame(ctx, b.RGBA(), st, th)
	if ctx.Err() != nil {
		return
	}
	w.Upload(image.Point{}, b, b.Bounds())
	w.Publish()
}
