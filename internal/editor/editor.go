// Package editor is the view-model of the editing screen. It owns one photo
// editing session and serializes every mutation of the annotation store, the
// editor state machine and the drawing canvas.
package editor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/example/photoedit/internal/annotation"
	"github.com/example/photoedit/internal/compose"
	"github.com/example/photoedit/internal/ink"
	"github.com/example/photoedit/internal/library"
	"github.com/example/photoedit/internal/photo"
	"github.com/example/photoedit/internal/session"
	"github.com/sirupsen/logrus"
)

// ErrNoSink is returned by Save when no library is configured.
var ErrNoSink = errors.New("editor: no photo library configured")

// Alert kinds, matching the notification events they are routed to.
const (
	AlertSave  = "save"
	AlertLoad  = "load"
	AlertError = "error"
)

// Alerter shows a human readable message to the user.
type Alerter interface {
	Alert(kind, message string)
}

// AlerterFunc adapts a function to Alerter.
type AlerterFunc func(kind, message string)

func (f AlerterFunc) Alert(kind, message string) { f(kind, message) }

// Alerters fans an alert out to several alerters in order.
type Alerters []Alerter

func (as Alerters) Alert(kind, message string) {
	for _, a := range as {
		if a != nil {
			a.Alert(kind, message)
		}
	}
}

// EventKind identifies an editor event.
type EventKind int

const (
	EventPhotoLoaded EventKind = iota
	EventReset
	EventFrame
	EventAnnotations
	EventSession
	EventSaved
)

// Event is delivered to subscribers after the mutation that caused it has
// completed and the editor lock has been released.
type Event struct {
	Kind        EventKind
	Annotations []annotation.TextAnnotation
	Change      annotation.ChangeKind
	Transition  session.Transition
	Location    library.Location
	Frame       compose.Frame
}

// Option configures an Editor.
type Option func(*Editor)

// WithSink sets the photo library.
func WithSink(s library.Sink) Option { return func(e *Editor) { e.sink = s } }

// WithAlerter sets where user facing messages go.
func WithAlerter(a Alerter) Option { return func(e *Editor) { e.alerter = a } }

// WithEngine replaces the default composition engine.
func WithEngine(en *compose.Engine) Option { return func(e *Editor) { e.engine = en } }

// WithCanvas replaces the default drawing canvas.
func WithCanvas(c *ink.Canvas) Option { return func(e *Editor) { e.canvas = c } }

// WithReopenPolicy sets what happens to an open editor when another
// annotation is targeted.
func WithReopenPolicy(p session.ReopenPolicy) Option {
	return func(e *Editor) { e.policy = p }
}

// WithStoreOptions passes options to the annotation store.
func WithStoreOptions(opts ...annotation.Option) Option {
	return func(e *Editor) { e.storeOpts = append(e.storeOpts, opts...) }
}

// Editor is safe for concurrent use.
type Editor struct {
	mu        sync.Mutex
	store     *annotation.Store
	session   *session.Controller
	canvas    *ink.Canvas
	engine    *compose.Engine
	sink      library.Sink
	alerter   Alerter
	policy    session.ReopenPolicy
	storeOpts []annotation.Option

	photo      []byte
	background *compose.Background
	frame      compose.Frame
	measured   bool

	listeners []func(Event)
	pending   []Event
	log       *logrus.Entry
}

// New returns an editor with no photo loaded.
func New(opts ...Option) *Editor {
	e := &Editor{log: logrus.WithField("component", "editor")}
	for _, o := range opts {
		o(e)
	}
	if e.engine == nil {
		e.engine = compose.New(compose.DefaultOptions())
	}
	if e.canvas == nil {
		e.canvas = ink.New()
	}
	e.store = annotation.NewStore(e.storeOpts...)
	e.store.Subscribe(func(c annotation.Change) {
		e.pending = append(e.pending, Event{Kind: EventAnnotations, Change: c.Kind, Annotations: c.Snapshot})
	})
	e.session = session.New(e.store, e.canvas,
		session.WithPolicy(e.policy),
		session.WithListener(func(t session.Transition) {
			e.pending = append(e.pending, Event{Kind: EventSession, Transition: t})
		}))
	return e
}

// Subscribe registers fn for editor events.
func (e *Editor) Subscribe(fn func(Event)) {
	if fn == nil {
		return
	}
	e.mu.Lock()
	e.listeners = append(e.listeners, fn)
	e.mu.Unlock()
}

func (e *Editor) lock() { e.mu.Lock() }

// unlock releases the editor and then delivers queued events, so listeners
// may call back into the editor.
func (e *Editor) unlock() {
	events := e.pending
	e.pending = nil
	listeners := e.listeners
	e.mu.Unlock()
	for _, ev := range events {
		for _, fn := range listeners {
			fn(ev)
		}
	}
}

func (e *Editor) alert(kind, msg string) {
	if e.alerter == nil {
		return
	}
	e.alerter.Alert(kind, msg)
}

// Canvas returns the drawing surface.
func (e *Editor) Canvas() *ink.Canvas { return e.canvas }

// Engine returns the composition engine.
func (e *Editor) Engine() *compose.Engine { return e.engine }

// LoadPhoto starts a new session on data.
func (e *Editor) LoadPhoto(data []byte) error {
	kind, err := photo.Sniff(data)
	if err != nil {
		return err
	}
	bg, err := compose.NewBackground(data)
	if err != nil {
		return fmt.Errorf("%w: %w", photo.ErrNotImage, err)
	}
	e.lock()
	e.resetLocked()
	e.photo = append([]byte(nil), data...)
	e.background = bg
	e.pending = append(e.pending, Event{Kind: EventPhotoLoaded})
	e.unlock()
	e.log.WithFields(logrus.Fields{"type": kind.MIME, "bytes": len(data)}).Info("photo loaded")
	e.alert(AlertLoad, fmt.Sprintf("Opened %s photo", kind.Extension))
	return nil
}

// PickPhoto asks src for a photo and loads it. A cancelled pick leaves the
// editor untouched. A failed pick is logged and also leaves it untouched.
func (e *Editor) PickPhoto(ctx context.Context, src photo.Source) error {
	data, err := src.Pick(ctx)
	if errors.Is(err, photo.ErrCancelled) {
		e.log.Debug("photo pick cancelled")
		return nil
	}
	if err == nil {
		err = e.LoadPhoto(data)
	}
	if err != nil {
		e.log.WithError(err).Warn("photo pick failed")
		return err
	}
	return nil
}

// CancelEditing drops the photo and everything drawn on it.
func (e *Editor) CancelEditing() {
	e.lock()
	e.resetLocked()
	e.photo = nil
	e.unlock()
}

func (e *Editor) resetLocked() {
	e.session.Reset()
	e.store.Reset()
	e.canvas.Clear()
	e.frame = compose.Frame{}
	e.measured = false
	e.background = nil
	e.pending = append(e.pending, Event{Kind: EventReset})
}

// HasPhoto reports whether a photo is loaded.
func (e *Editor) HasPhoto() bool {
	e.lock()
	defer e.unlock()
	return e.photo != nil
}

// Photo returns the loaded photo bytes.
func (e *Editor) Photo() []byte {
	e.lock()
	defer e.unlock()
	return e.photo
}

// Measure records the canvas frame. Only the first valid measurement of a
// session is kept; it reports whether f was accepted.
func (e *Editor) Measure(f compose.Frame) bool {
	e.lock()
	defer e.unlock()
	if e.measured || !f.Ready() {
		return false
	}
	e.frame = f
	e.measured = true
	e.pending = append(e.pending, Event{Kind: EventFrame, Frame: f})
	return true
}

// Frame returns the measured frame.
func (e *Editor) Frame() (compose.Frame, bool) {
	e.lock()
	defer e.unlock()
	return e.frame, e.measured
}

// State returns the editor state machine state.
func (e *Editor) State() session.State {
	e.lock()
	defer e.unlock()
	return e.session.State()
}

// Active returns the id and index of the annotation being edited.
func (e *Editor) Active() (annotation.ID, int, bool) {
	e.lock()
	defer e.unlock()
	idx, ok := e.session.ActiveIndex()
	return e.session.ActiveID(), idx, ok
}

// Annotations returns the annotations in paint order.
func (e *Editor) Annotations() []annotation.TextAnnotation {
	e.lock()
	defer e.unlock()
	return e.store.Snapshot()
}

// Annotation returns one annotation.
func (e *Editor) Annotation(id annotation.ID) (annotation.TextAnnotation, bool) {
	e.lock()
	defer e.unlock()
	return e.store.Get(id)
}

// AddText opens the text editor on a new annotation.
func (e *Editor) AddText() (int, error) {
	e.lock()
	defer e.unlock()
	idx, err := e.session.AddText()
	return idx, e.checked("add text", err)
}

// Accept confirms the annotation being edited.
func (e *Editor) Accept() error {
	e.lock()
	defer e.unlock()
	return e.checked("accept", e.session.Accept())
}

// Cancel closes the text editor, discarding a never confirmed annotation.
func (e *Editor) Cancel() error {
	e.lock()
	defer e.unlock()
	return e.checked("cancel", e.session.Cancel())
}

// LongPress reopens the text editor on an existing annotation.
func (e *Editor) LongPress(id annotation.ID) (int, error) {
	e.lock()
	defer e.unlock()
	idx, err := e.session.Reopen(id)
	return idx, e.checked("reopen", err)
}

// UpdateText replaces the text of the annotation being edited.
func (e *Editor) UpdateText(text string) error {
	return e.editCurrent("update text", func() error { return e.store.UpdateCurrentText(text) })
}

// ToggleBold flips the weight of the annotation being edited.
func (e *Editor) ToggleBold() error {
	return e.editCurrent("toggle bold", e.store.ToggleCurrentBold)
}

// SetColor sets the colour of the annotation being edited.
func (e *Editor) SetColor(c color.RGBA) error {
	return e.editCurrent("set color", func() error { return e.store.SetCurrentColor(c) })
}

func (e *Editor) editCurrent(op string, fn func() error) error {
	e.lock()
	defer e.unlock()
	if e.session.State() != session.Open {
		return fmt.Errorf("%s: %w", op, session.ErrNotOpen)
	}
	if e.store.CurrentID() != e.session.ActiveID() {
		return e.checked(op, fmt.Errorf("%w: store current %q", session.ErrInconsistent, e.store.CurrentID()))
	}
	if err := fn(); err != nil {
		return e.checked(op, fmt.Errorf("%w: %w", session.ErrInconsistent, err))
	}
	return nil
}

// Drag moves an annotation by the live delta of a gesture in progress.
func (e *Editor) Drag(id annotation.ID, delta annotation.Offset) {
	e.lock()
	defer e.unlock()
	e.store.ApplyDrag(id, delta)
}

// EndDrag commits the final delta of a gesture.
func (e *Editor) EndDrag(id annotation.ID, delta annotation.Offset) {
	e.lock()
	defer e.unlock()
	e.store.CommitDrag(id, delta)
}

// checked logs internal consistency failures, which are never shown to the
// user.
func (e *Editor) checked(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, session.ErrInconsistent) || errors.Is(err, annotation.ErrInvalidIndex) {
		e.log.WithError(err).WithField("op", op).Error("editor state out of sync")
	}
	return err
}

// Compose flattens the current session into PNG bytes.
func (e *Editor) Compose() ([]byte, error) {
	e.lock()
	defer e.unlock()
	return e.composeLocked()
}

func (e *Editor) composeLocked() ([]byte, error) {
	if !e.measured {
		return nil, compose.ErrNotReady
	}
	return e.engine.Compose(e.requestLocked())
}

func (e *Editor) requestLocked() compose.Request {
	idx, ok := e.session.ActiveIndex()
	return compose.Request{
		Background:  e.photo,
		Photo:       e.background,
		Frame:       e.frame,
		Layer:       e.canvas,
		Annotations: e.store.Snapshot(),
		ActiveIndex: idx,
		HasActive:   ok,
	}
}

// Preview renders the session for display without encoding it.
func (e *Editor) Preview() (*image.RGBA, error) {
	e.lock()
	if !e.measured {
		e.unlock()
		return nil, compose.ErrNotReady
	}
	req := e.requestLocked()
	e.unlock()
	return e.engine.Render(req)
}

// AnnotationAt returns the topmost annotation whose label covers p, given in
// canvas points. The annotation being edited is never hit.
func (e *Editor) AnnotationAt(p annotation.Offset) (annotation.ID, bool) {
	e.lock()
	defer e.unlock()
	if !e.measured {
		return "", false
	}
	px := image.Pt(int(math.Round(p.X*e.frame.Scale)), int(math.Round(p.Y*e.frame.Scale)))
	active := e.session.ActiveID()
	snap := e.store.Snapshot()
	for i := len(snap) - 1; i >= 0; i-- {
		a := snap[i]
		if a.ID == active || a.Text == "" {
			continue
		}
		rect, err := e.engine.LabelRect(e.frame, a)
		if err != nil {
			e.log.WithError(err).Warn("label bounds")
			return "", false
		}
		if px.In(rect) {
			return a.ID, true
		}
	}
	return "", false
}

// Save composes the session and hands it to the photo library. The outcome
// is always reported through the alerter; the error is returned as well for
// callers that need it.
func (e *Editor) Save(ctx context.Context) (library.Location, error) {
	e.lock()
	data, err := e.composeLocked()
	sink := e.sink
	e.unlock()

	if err != nil {
		e.log.WithError(err).Warn("compose failed")
		e.alert(AlertError, saveMessage(err))
		return library.Location{}, err
	}
	if sink == nil {
		e.alert(AlertError, saveMessage(ErrNoSink))
		return library.Location{}, ErrNoSink
	}
	loc, err := sink.Save(ctx, data)
	if err != nil {
		e.log.WithError(err).Error("save failed")
		e.alert(AlertError, saveMessage(err))
		return library.Location{}, err
	}
	e.log.WithFields(logrus.Fields{"location": loc.String(), "bytes": len(data)}).Info("photo saved")
	e.alert(AlertSave, "Saved to "+loc.String())

	e.lock()
	e.pending = append(e.pending, Event{Kind: EventSaved, Location: loc})
	e.unlock()
	return loc, nil
}

func saveMessage(err error) string {
	var se *library.SaveError
	switch {
	case errors.Is(err, compose.ErrNotReady):
		return "Nothing to save yet: the canvas has not been laid out"
	case errors.Is(err, compose.ErrBackground):
		return "The photo could not be read"
	case errors.Is(err, ErrNoSink):
		return "No photo library is configured"
	case library.IsPermission(err):
		return "Permission denied: allow access to the photo library and try again"
	case errors.As(err, &se):
		return fmt.Sprintf("Could not save the photo: %v", se.Err)
	default:
		return fmt.Sprintf("Could not save the photo: %v", err)
	}
}
