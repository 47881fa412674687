// Package session implements the text editor state machine that sits on top
// of the annotation store: a single editor is either closed or open for
// exactly one annotation.
package session

import (
	"errors"
	"fmt"

	"github.com/example/photoedit/internal/annotation"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNotOpen is returned by Accept and Cancel when no editor is open.
	ErrNotOpen = errors.New("session: editor not open")
	// ErrEditorOpen is returned when another annotation is targeted while
	// one is open and the policy forbids switching.
	ErrEditorOpen = errors.New("session: editor already open")
	// ErrInconsistent marks the store and the controller disagreeing about
	// the active annotation. The operation is aborted.
	ErrInconsistent = errors.New("session: store out of sync")
)

// Surface is the drawing input the editor takes focus from while open.
type Surface interface {
	SetInputFocus(focused bool)
	SetToolsVisible(visible bool)
}

// State is the controller state.
type State int

const (
	Closed State = iota
	Open
)

func (s State) String() string {
	if s == Open {
		return "open"
	}
	return "closed"
}

// ReopenPolicy decides what happens to the active annotation when the user
// targets another one (or adds a new one) while the editor is open.
type ReopenPolicy int

const (
	// ReopenCancelActive closes the active editor as if Cancel was pressed:
	// an unconfirmed annotation is discarded, a confirmed one is kept.
	ReopenCancelActive ReopenPolicy = iota
	// ReopenConfirmActive closes the active editor as if Accept was pressed.
	ReopenConfirmActive
	// ReopenDisallow refuses the request with ErrEditorOpen.
	ReopenDisallow
)

// ParseReopenPolicy maps a config value to a policy.
func ParseReopenPolicy(s string) (ReopenPolicy, error) {
	switch s {
	case "", "cancel":
		return ReopenCancelActive, nil
	case "confirm", "accept":
		return ReopenConfirmActive, nil
	case "disallow", "deny":
		return ReopenDisallow, nil
	}
	return ReopenCancelActive, fmt.Errorf("unknown reopen policy %q", s)
}

// Transition describes a state change.
type Transition struct {
	From, To State
	ID       annotation.ID
}

// Option configures a Controller.
type Option func(*Controller)

// WithPolicy sets the reopen policy.
func WithPolicy(p ReopenPolicy) Option { return func(c *Controller) { c.policy = p } }

// WithListener registers a transition listener.
func WithListener(fn func(Transition)) Option {
	return func(c *Controller) { c.listeners = append(c.listeners, fn) }
}

// Controller drives the editor over an annotation store. It is not safe for
// concurrent use.
type Controller struct {
	store     *annotation.Store
	surface   Surface
	policy    ReopenPolicy
	state     State
	active    annotation.ID
	listeners []func(Transition)
	log       *logrus.Entry
}

// New returns a closed controller. surface may be nil.
func New(store *annotation.Store, surface Surface, opts ...Option) *Controller {
	c := &Controller{
		store:   store,
		surface: surface,
		log:     logrus.WithField("component", "session"),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Policy returns the configured reopen policy.
func (c *Controller) Policy() ReopenPolicy { return c.policy }

// ActiveID returns the annotation being edited, or "" when closed.
func (c *Controller) ActiveID() annotation.ID { return c.active }

// ActiveIndex returns the paint-order index of the annotation being edited.
func (c *Controller) ActiveIndex() (int, bool) {
	if c.state != Open {
		return -1, false
	}
	idx := c.store.IndexOf(c.active)
	return idx, idx >= 0
}

// AddText appends a new placeholder annotation and opens the editor on it.
func (c *Controller) AddText() (int, error) {
	if err := c.resolveActive(); err != nil {
		return -1, err
	}
	idx, id := c.store.BeginNew()
	c.suspendSurface()
	c.enter(Open, id)
	return idx, nil
}

// Reopen opens the editor on an existing annotation without creating a new
// one. This is the long-press path.
func (c *Controller) Reopen(id annotation.ID) (int, error) {
	if c.state == Open && c.active == id {
		return c.store.IndexOf(id), nil
	}
	if c.store.IndexOf(id) < 0 {
		return -1, fmt.Errorf("reopen %s: %w", id, annotation.ErrNotFound)
	}
	if err := c.resolveActive(); err != nil {
		return -1, err
	}
	idx, err := c.store.Select(id)
	if err != nil {
		return -1, err
	}
	c.suspendSurface()
	c.enter(Open, id)
	return idx, nil
}

// Accept confirms the active annotation and closes the editor.
func (c *Controller) Accept() error {
	if err := c.checkOpen("accept"); err != nil {
		return err
	}
	if err := c.store.ConfirmCurrent(); err != nil {
		return fmt.Errorf("accept: %w: %w", ErrInconsistent, err)
	}
	c.restoreSurface()
	c.enter(Closed, c.active)
	return nil
}

// Cancel discards the active annotation if it was never confirmed and closes
// the editor.
func (c *Controller) Cancel() error {
	if err := c.checkOpen("cancel"); err != nil {
		return err
	}
	removed, err := c.store.DiscardCurrentIfUnconfirmed()
	if err != nil {
		return fmt.Errorf("cancel: %w: %w", ErrInconsistent, err)
	}
	if removed {
		c.log.WithField("annotation", c.active).Debug("discarded unconfirmed annotation")
	}
	c.restoreSurface()
	c.enter(Closed, c.active)
	return nil
}

// Reset closes the editor without touching the store. Used when the whole
// session is thrown away.
func (c *Controller) Reset() {
	if c.state == Open {
		c.restoreSurface()
		c.enter(Closed, c.active)
	}
}

func (c *Controller) checkOpen(op string) error {
	if c.state != Open {
		return fmt.Errorf("%s: %w", op, ErrNotOpen)
	}
	if c.store.CurrentID() != c.active {
		return fmt.Errorf("%s: %w: active %s, store current %q", op, ErrInconsistent, c.active, c.store.CurrentID())
	}
	return nil
}

func (c *Controller) resolveActive() error {
	if c.state != Open {
		return nil
	}
	switch c.policy {
	case ReopenConfirmActive:
		return c.Accept()
	case ReopenDisallow:
		return fmt.Errorf("%w for %s", ErrEditorOpen, c.active)
	default:
		return c.Cancel()
	}
}

func (c *Controller) suspendSurface() {
	if c.surface == nil {
		return
	}
	c.surface.SetToolsVisible(false)
	c.surface.SetInputFocus(false)
}

func (c *Controller) restoreSurface() {
	if c.surface == nil {
		return
	}
	c.surface.SetToolsVisible(true)
	c.surface.SetInputFocus(true)
}

func (c *Controller) enter(to State, id annotation.ID) {
	from := c.state
	c.state = to
	if to == Open {
		c.active = id
	} else {
		c.active = ""
	}
	c.log.WithFields(logrus.Fields{
		"annotation": id,
		"from":       from,
		"to":         to,
	}).Debug("editor transition")
	t := Transition{From: from, To: to, ID: id}
	for _, fn := range c.listeners {
		fn(t)
	}
}
