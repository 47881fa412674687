package ui

import (
	"context"
	"image"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/shiny/driver"
	"golang.org/x/exp/shiny/screen"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/mobile/event/mouse"
	"golang.org/x/mobile/event/paint"
	"golang.org/x/mobile/event/size"

	"github.com/example/photoedit/internal/editor"
	"github.com/example/photoedit/internal/theme"
)

// Default window size in pixels.
const (
	DefaultWidth  = 960
	DefaultHeight = 720
)

// longPressEvent is sent to the window when a press may have been held
// long enough.
type longPressEvent struct{}

// Window runs the editing screen in a native window.
type Window struct {
	screen *Screen
	theme  *theme.Theme
	title  string
	width  int
	height int
	ctx    context.Context
}

// WindowOption configures a Window.
type WindowOption func(*Window)

// WithTheme sets the colours.
func WithTheme(t *theme.Theme) WindowOption { return func(w *Window) { w.theme = t } }

// WithSize sets the initial window size.
func WithSize(width, height int) WindowOption {
	return func(w *Window) { w.width, w.height = width, height }
}

// WithTitle sets the window title.
func WithTitle(title string) WindowOption { return func(w *Window) { w.title = title } }

// NewWindow returns a window for scr.
func NewWindow(ctx context.Context, scr *Screen, opts ...WindowOption) *Window {
	w := &Window{screen: scr, theme: theme.Default(), title: "PhotoEdit", width: DefaultWidth, height: DefaultHeight, ctx: ctx}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Run executes the UI loop using shiny's driver. It returns when the window
// is closed.
func (win *Window) Run() error {
	var runErr error
	driver.Main(func(s screen.Screen) { runErr = win.Main(s) })
	return runErr
}

// Main runs the event loop on s.
func (win *Window) Main(s screen.Screen) error {
	scr := win.screen
	w, err := s.NewWindow(&screen.NewWindowOptions{Width: win.width, Height: win.height, Title: win.title})
	if err != nil {
		return err
	}
	defer w.Release()

	repaint := func() { w.Send(paint.Event{}) }
	scr.ed.Subscribe(func(editor.Event) { repaint() })
	scr.status.onChange(func() {
		repaint()
		time.AfterFunc(StatusDuration, repaint)
	})
	defer scr.status.onChange(nil)

	// stopped before Release so no frame is uploaded to a dead window
	frames := startPainter(win.ctx, func(ctx context.Context, st paintState) {
		drawFrame(ctx, s, w, st, win.theme)
	})
	defer frames.stop()

	var hover image.Point
	var pressed bool
	var longPress *time.Timer
	defer func() {
		if longPress != nil {
			longPress.Stop()
		}
	}()

	for {
		switch e := w.NextEvent().(type) {
		case lifecycle.Event:
			if e.To == lifecycle.StageDead {
				frames.interrupt()
				return nil
			}
		case size.Event:
			scr.Resize(e.WidthPx, e.HeightPx, float64(e.PixelsPerPt))
			repaint()
		case paint.Event:
			st := scr.snapshot(time.Now())
			st.hover = hover
			st.pressed = pressed
			frames.request(st)
		case longPressEvent:
			if scr.Tick(time.Now()) {
				repaint()
			}
		case mouse.Event:
			p := image.Pt(int(e.X), int(e.Y))
			hover = p
			now := time.Now()
			switch {
			case e.Button == mouse.ButtonLeft && e.Direction == mouse.DirPress:
				pressed = true
				scr.Press(win.ctx, p, now)
				if scr.Pending() {
					longPress = time.AfterFunc(LongPressDelay, func() { w.Send(longPressEvent{}) })
				}
			case e.Button == mouse.ButtonLeft && e.Direction == mouse.DirRelease:
				pressed = false
				if longPress != nil {
					longPress.Stop()
					longPress = nil
				}
				scr.Release(p, now)
			case e.Direction == mouse.DirNone:
				scr.Move(p, now)
			}
			repaint()
		case key.Event:
			if e.Direction == key.DirRelease {
				continue
			}
			switch e.Code {
			case key.CodeReturnEnter:
				scr.Type(KeyEnter, 0)
			case key.CodeEscape:
				scr.Type(KeyEscape, 0)
			case key.CodeDeleteBackspace:
				scr.Type(KeyBackspace, 0)
			default:
				if e.Rune > 0 {
					scr.Type(KeyRune, e.Rune)
				}
			}
			repaint()
		case error:
			logrus.WithError(e).Warn("window event")
		}
	}
}
