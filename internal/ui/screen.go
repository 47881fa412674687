package ui

import (
	"context"
	"errors"
	"image"
	"math"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/example/photoedit/internal/annotation"
	"github.com/example/photoedit/internal/editor"
	"github.com/example/photoedit/internal/ink"
	"github.com/example/photoedit/internal/photo"
	"github.com/example/photoedit/internal/session"
)

const (
	// LongPressDelay is how long a press must be held to re-edit a label.
	LongPressDelay = 500 * time.Millisecond
	// dragSlop is how far, in pixels, a press may wander before it is a drag.
	dragSlop = 4
)

type pointerMode int

const (
	pointerIdle pointerMode = iota
	pointerPending
	pointerDragging
	pointerInking
	pointerHeld
)

type gesture struct {
	mode    pointerMode
	id      annotation.ID
	start   image.Point
	startAt time.Time
}

// Screen turns window input into editor operations. It holds no drawing
// state of its own besides the layout and the pointer gesture, and is only
// used from the window event loop.
type Screen struct {
	ed     *editor.Editor
	status *Status
	open    photo.Source
	paste   photo.Source
	capture photo.Source
	log    *logrus.Entry

	width, height int
	scale         float64
	layout        Layout
	gesture       gesture
}

// ScreenOption configures a Screen.
type ScreenOption func(*Screen)

// WithOpenSource sets where the Open button gets photos from.
func WithOpenSource(src photo.Source) ScreenOption { return func(s *Screen) { s.open = src } }

// WithPasteSource sets where the Paste button gets photos from.
func WithPasteSource(src photo.Source) ScreenOption { return func(s *Screen) { s.paste = src } }

// WithCaptureSource sets where the Capture button gets photos from.
func WithCaptureSource(src photo.Source) ScreenOption { return func(s *Screen) { s.capture = src } }

// NewScreen wires a screen to an editor. status may be nil.
func NewScreen(ed *editor.Editor, status *Status, opts ...ScreenOption) *Screen {
	if status == nil {
		status = NewStatus()
	}
	s := &Screen{
		ed:     ed,
		status: status,
		paste:  photo.ClipboardSource{},
		scale:  1,
		log:    logrus.WithField("component", "ui"),
	}
	for _, o := range opts {
		o(s)
	}
	s.relayout()
	return s
}

// Layout returns the current window geometry.
func (s *Screen) Layout() Layout { return s.layout }

// Resize handles a window size change. The first usable size of a session
// becomes the canvas frame.
func (s *Screen) Resize(width, height int, pixelsPerPt float64) {
	s.width, s.height = width, height
	if pixelsPerPt > 0 {
		s.scale = pixelsPerPt
	}
	s.relayout()
	s.measure()
}

func (s *Screen) measure() {
	if !s.ed.HasPhoto() {
		return
	}
	if s.ed.Measure(s.layout.Frame(s.scale)) {
		s.log.WithField("frame", s.layout.Frame(s.scale)).Debug("canvas measured")
	}
}

func (s *Screen) relayout() {
	s.layout = NewLayout(s.width, s.height, s.ed.State() == session.Open, s.ed.HasPhoto())
}

// Activate runs the action of a control.
func (s *Screen) Activate(ctx context.Context, c Control) {
	var err error
	switch c.Action {
	case ActionOpen:
		err = s.pick(ctx, s.open)
	case ActionPaste:
		err = s.pick(ctx, s.paste)
	case ActionCapture:
		err = s.pick(ctx, s.capture)
	case ActionText:
		_, err = s.ed.AddText()
	case ActionSave:
		// the editor reports the outcome through the alerter
		_, _ = s.ed.Save(ctx)
	case ActionNew:
		s.ed.CancelEditing()
	case ActionAccept:
		err = s.ed.Accept()
	case ActionCancel:
		err = s.ed.Cancel()
	case ActionBold:
		err = s.ed.ToggleBold()
	case ActionColor:
		err = s.ed.SetColor(c.Color)
	}
	s.report(err)
	s.relayout()
}

func (s *Screen) pick(ctx context.Context, src photo.Source) error {
	if src == nil {
		return errors.New("no photo source configured")
	}
	if err := s.ed.PickPhoto(ctx, src); err != nil {
		return err
	}
	s.relayout()
	s.measure()
	return nil
}

func (s *Screen) report(err error) {
	switch {
	case err == nil:
	case errors.Is(err, session.ErrInconsistent), errors.Is(err, session.ErrNotOpen):
		// already logged by the editor
	case errors.Is(err, session.ErrEditorOpen):
		s.status.Alert(editor.AlertError, "Finish the current text first")
	default:
		s.status.Alert(editor.AlertError, err.Error())
	}
}

// Press starts a pointer gesture at window pixel p.
func (s *Screen) Press(ctx context.Context, p image.Point, now time.Time) {
	if _, _, ok := s.status.Current(now); ok {
		s.status.Dismiss()
	}
	if c, ok := s.layout.Hit(p); ok {
		s.Activate(ctx, c)
		return
	}
	if !p.In(s.layout.Canvas) {
		return
	}
	pt := s.layout.ToCanvas(p, s.scale)
	if id, ok := s.ed.AnnotationAt(pt); ok {
		s.gesture = gesture{mode: pointerPending, id: id, start: p, startAt: now}
		return
	}
	if s.ed.Canvas().Begin(ink.Point{X: pt.X, Y: pt.Y}) {
		s.gesture = gesture{mode: pointerInking, start: p, startAt: now}
	}
}

// Move continues the gesture in progress.
func (s *Screen) Move(p image.Point, now time.Time) {
	g := &s.gesture
	switch g.mode {
	case pointerPending:
		if !beyondSlop(g.start, p) {
			s.Tick(now)
			return
		}
		g.mode = pointerDragging
		fallthrough
	case pointerDragging:
		s.ed.Drag(g.id, s.delta(p))
	case pointerInking:
		pt := s.layout.ToCanvas(p, s.scale)
		s.ed.Canvas().Extend(ink.Point{X: pt.X, Y: pt.Y})
	}
}

// Release ends the gesture in progress.
func (s *Screen) Release(p image.Point, now time.Time) {
	g := s.gesture
	s.gesture = gesture{}
	switch g.mode {
	case pointerPending:
		if now.Sub(g.startAt) >= LongPressDelay {
			s.longPress(g.id)
		}
	case pointerDragging:
		s.ed.EndDrag(g.id, s.delta(p))
	case pointerInking:
		s.ed.Canvas().End()
	}
}

// Tick fires a long press once the pending gesture has been held long
// enough. It reports whether it did.
func (s *Screen) Tick(now time.Time) bool {
	g := &s.gesture
	if g.mode != pointerPending || now.Sub(g.startAt) < LongPressDelay {
		return false
	}
	g.mode = pointerHeld
	s.longPress(g.id)
	return true
}

// Pending reports whether a press is waiting to become a long press.
func (s *Screen) Pending() bool { return s.gesture.mode == pointerPending }

func (s *Screen) longPress(id annotation.ID) {
	_, err := s.ed.LongPress(id)
	s.report(err)
	s.relayout()
}

func (s *Screen) delta(p image.Point) annotation.Offset {
	d := p.Sub(s.gesture.start)
	return annotation.Offset{X: float64(d.X) / s.scale, Y: float64(d.Y) / s.scale}
}

func beyondSlop(a, b image.Point) bool {
	d := b.Sub(a)
	return math.Hypot(float64(d.X), float64(d.Y)) > dragSlop
}

// Key is a keyboard input while the text editor is open.
type Key int

const (
	KeyRune Key = iota
	KeyEnter
	KeyEscape
	KeyBackspace
)

// Type handles keyboard input. Keys are ignored while the editor is closed.
func (s *Screen) Type(k Key, r rune) {
	if s.ed.State() != session.Open {
		return
	}
	var err error
	switch k {
	case KeyEnter:
		err = s.ed.Accept()
	case KeyEscape:
		err = s.ed.Cancel()
	case KeyBackspace:
		text := s.activeText()
		if text != "" {
			_, size := utf8.DecodeLastRuneInString(text)
			err = s.ed.UpdateText(text[:len(text)-size])
		}
	case KeyRune:
		if r < ' ' || r == utf8.RuneError {
			return
		}
		err = s.ed.UpdateText(s.activeText() + string(r))
	}
	s.report(err)
	s.relayout()
}

func (s *Screen) activeText() string {
	a, ok := s.active()
	if !ok {
		return ""
	}
	return a.Text
}

func (s *Screen) active() (annotation.TextAnnotation, bool) {
	id, _, ok := s.ed.Active()
	if !ok {
		return annotation.TextAnnotation{}, false
	}
	return s.ed.Annotation(id)
}

// labelRect is the window rectangle of an annotation label.
func (s *Screen) labelRect(id annotation.ID) image.Rectangle {
	a, ok := s.ed.Annotation(id)
	frame, measured := s.ed.Frame()
	if !ok || !measured {
		return image.Rectangle{}
	}
	r, err := s.ed.Engine().LabelRect(frame, a)
	if err != nil {
		return image.Rectangle{}
	}
	return r.Add(s.layout.Canvas.Min)
}

// snapshot collects what the painter needs. It runs on the event loop.
func (s *Screen) snapshot(now time.Time) paintState {
	st := paintState{
		layout: s.layout,
		scale:  s.scale,
		pen:    s.ed.Canvas().ToolsVisible(),
	}
	st.penColor, _ = s.ed.Canvas().Pen()
	if img, err := s.ed.Preview(); err == nil {
		st.preview = img
	}
	if a, ok := s.active(); ok {
		st.editing = true
		st.text = a.Text
		st.bold = a.Bold
		st.color = a.Color
	}
	if s.gesture.mode == pointerDragging || s.gesture.mode == pointerPending {
		st.selection = s.labelRect(s.gesture.id)
	}
	st.statusKind, st.status, _ = s.status.Current(now)
	return st
}
