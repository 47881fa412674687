// Package compose flattens a photo, a free-hand drawing layer and text
// annotations into one PNG.
package compose

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"strings"
	"sync"

	"github.com/example/photoedit/internal/annotation"
	"github.com/example/photoedit/internal/render"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

var (
	// ErrNotReady is returned when the frame has not been measured yet.
	ErrNotReady = errors.New("compose: canvas frame not measured")
	// ErrBackground is returned for background bytes that are not a
	// decodable image.
	ErrBackground = errors.New("compose: undecodable background")
)

// drawMu guards the shared font faces.
var drawMu sync.Mutex

// Frame is the on-screen size of the canvas in points and the display scale.
type Frame struct {
	Width, Height float64
	Scale         float64
}

// Ready reports whether the frame has been measured.
func (f Frame) Ready() bool {
	return f.Width > 0 && f.Height > 0 && f.Scale > 0
}

// Pixels returns the output raster size.
func (f Frame) Pixels() image.Point {
	return image.Pt(int(math.Round(f.Width*f.Scale)), int(math.Round(f.Height*f.Scale)))
}

// DrawingLayer is the free-hand drawing under the annotations. Render draws
// the layer into rect of dst, with canvas points multiplied by scale.
type DrawingLayer interface {
	Render(dst *image.RGBA, rect image.Rectangle, scale float64)
}

// Anchor is the canvas point annotation positions are relative to.
type Anchor int

const (
	// AnchorTopLeft places a label's top-left corner at its position.
	AnchorTopLeft Anchor = iota
	// AnchorCenter centres a label on the canvas centre plus its position.
	AnchorCenter
)

func (a Anchor) String() string {
	if a == AnchorCenter {
		return "center"
	}
	return "top-left"
}

// ParseAnchor maps a config value to an Anchor.
func ParseAnchor(s string) (Anchor, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "top-left", "topleft":
		return AnchorTopLeft, nil
	case "center", "centre":
		return AnchorCenter, nil
	}
	return AnchorTopLeft, fmt.Errorf("unknown anchor %q", s)
}

// Options configures an Engine.
type Options struct {
	FontSize float64
	Anchor   Anchor
	Fit      Fit
	// TextShadow draws a drop shadow under every label.
	TextShadow bool
	Shadow     render.ShadowOptions
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		FontSize: DefaultFontSize,
		Anchor:   AnchorTopLeft,
		Fit:      FitContain,
		Shadow:   render.TextShadowOptions(),
	}
}

// Request is everything needed for one composition.
type Request struct {
	// Background holds encoded photo bytes, nil for none.
	Background []byte
	// Photo is an already decoded background. It takes precedence over
	// Background.
	Photo *Background
	Frame      Frame
	// Layer may be nil.
	Layer       DrawingLayer
	Annotations []annotation.TextAnnotation
	// ActiveIndex is the annotation open in the editor. It is rendered with
	// empty text when HasActive is set.
	ActiveIndex int
	HasActive   bool
}

// Engine composes requests. It is stateless apart from its options and safe
// for concurrent use.
type Engine struct {
	opts Options
	log  *logrus.Entry
}

// New returns an engine.
func New(opts Options) *Engine {
	if opts.FontSize <= 0 {
		opts.FontSize = DefaultFontSize
	}
	return &Engine{opts: opts, log: logrus.WithField("component", "compose")}
}

// Options returns the engine options.
func (e *Engine) Options() Options { return e.opts }

// Compose renders req and returns PNG bytes.
func (e *Engine) Compose(req Request) ([]byte, error) {
	img, err := e.Render(req)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	e.log.WithFields(logrus.Fields{
		"width":       img.Bounds().Dx(),
		"height":      img.Bounds().Dy(),
		"annotations": len(req.Annotations),
		"bytes":       buf.Len(),
	}).Debug("composed")
	return buf.Bytes(), nil
}

// Render composes req into a raster without encoding it.
func (e *Engine) Render(req Request) (*image.RGBA, error) {
	if !req.Frame.Ready() {
		return nil, ErrNotReady
	}
	size := req.Frame.Pixels()
	if size.X <= 0 || size.Y <= 0 {
		return nil, ErrNotReady
	}
	dst := image.NewRGBA(image.Rectangle{Max: size})

	bg := req.Photo
	if bg == nil && len(req.Background) > 0 {
		var err error
		if bg, err = NewBackground(req.Background); err != nil {
			return nil, err
		}
	}
	if bg != nil {
		fitted, at := bg.fitTo(size, e.opts.Fit)
		draw.Draw(dst, at, fitted, fitted.Bounds().Min, draw.Over)
	}

	if req.Layer != nil {
		req.Layer.Render(dst, dst.Bounds(), req.Frame.Scale)
	}

	drawMu.Lock()
	defer drawMu.Unlock()
	for i, a := range req.Annotations {
		text := a.Text
		if req.HasActive && i == req.ActiveIndex {
			text = ""
		}
		if err := e.drawLabel(dst, a, text, req.Frame); err != nil {
			return nil, fmt.Errorf("annotation %s: %w", a.ID, err)
		}
	}
	return dst, nil
}

func (e *Engine) drawLabel(dst *image.RGBA, a annotation.TextAnnotation, text string, frame Frame) error {
	if text == "" {
		return nil
	}
	face, err := Face(a.Bold, e.opts.FontSize*frame.Scale)
	if err != nil {
		return err
	}
	box := LabelBounds(face, text)
	at := e.labelOrigin(frame, a.Position, box.Size())

	if !e.opts.TextShadow {
		drawString(dst, face, text, a.Color, at)
		return nil
	}
	// the raster covers glyph overhang past the advance box
	ink := InkBounds(face, text)
	label := image.NewRGBA(ink)
	drawString(label, face, text, a.Color, image.Point{})
	render.DrawShadowed(dst, label, at.Add(ink.Min), e.opts.Shadow.Scaled(frame.Scale))
	return nil
}

// labelOrigin returns the top-left pixel of a label of the given size.
func (e *Engine) labelOrigin(frame Frame, pos annotation.Offset, size image.Point) image.Point {
	px := image.Pt(int(math.Round(pos.X*frame.Scale)), int(math.Round(pos.Y*frame.Scale)))
	if e.opts.Anchor == AnchorCenter {
		c := frame.Pixels().Div(2)
		return c.Add(px).Sub(size.Div(2))
	}
	return px
}

// LabelBounds returns the zero-based box a single line of text occupies.
func LabelBounds(face font.Face, text string) image.Rectangle {
	m := face.Metrics()
	w := font.MeasureString(face, text).Ceil()
	return image.Rect(0, 0, w, m.Ascent.Ceil()+m.Descent.Ceil())
}

// InkBounds returns LabelBounds grown to every pixel the glyphs touch, in
// the same coordinates. Bearings and hooks may reach outside the advance box.
func InkBounds(face font.Face, text string) image.Rectangle {
	box := LabelBounds(face, text)
	b, _ := font.BoundString(face, text)
	asc := face.Metrics().Ascent.Ceil()
	glyphs := image.Rect(b.Min.X.Floor(), b.Min.Y.Floor()+asc, b.Max.X.Ceil(), b.Max.Y.Ceil()+asc)
	if glyphs.Empty() {
		return box
	}
	return box.Union(glyphs)
}

// drawString draws text with its top-left corner at at.
func drawString(dst *image.RGBA, face font.Face, text string, col color.Color, at image.Point) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(at.X, at.Y+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(text)
}

// LabelRect returns the pixel rectangle an annotation occupies in a frame.
// Empty text yields an empty rectangle at the label origin.
func (e *Engine) LabelRect(frame Frame, a annotation.TextAnnotation) (image.Rectangle, error) {
	if !frame.Ready() {
		return image.Rectangle{}, ErrNotReady
	}
	drawMu.Lock()
	defer drawMu.Unlock()
	face, err := Face(a.Bold, e.opts.FontSize*frame.Scale)
	if err != nil {
		return image.Rectangle{}, err
	}
	size := LabelBounds(face, a.Text).Size()
	at := e.labelOrigin(frame, a.Position, size)
	return image.Rectangle{Min: at, Max: at.Add(size)}, nil
}
