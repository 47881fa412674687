// Package script replays a recorded editing session from YAML, for
// headless composition.
package script

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"strings"

	"golang.org/x/image/colornames"
	"gopkg.in/yaml.v3"

	"github.com/example/photoedit/internal/annotation"
	"github.com/example/photoedit/internal/compose"
	"github.com/example/photoedit/internal/editor"
	"github.com/example/photoedit/internal/ink"
	"github.com/example/photoedit/internal/theme"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid script")

// Op names an editing step.
type Op string

const (
	OpAdd    Op = "add"    // open the editor on a new label
	OpText   Op = "text"   // replace the text of the label being edited
	OpBold   Op = "bold"   // toggle bold
	OpColor  Op = "color"  // set the label colour
	OpAccept Op = "accept" // confirm and close the editor
	OpCancel Op = "cancel" // close the editor, dropping a new label
	OpDrag   Op = "drag"   // move a label by dx,dy points
	OpReopen Op = "reopen" // long press a label
)

// Frame is the canvas size in points and its pixels-per-point.
type Frame struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
	Scale  float64 `yaml:"scale,omitempty"`
}

// Stroke is one pen stroke.
type Stroke struct {
	Color  string       `yaml:"color,omitempty"`
	Width  float64      `yaml:"width,omitempty"`
	Points [][2]float64 `yaml:"points"`
}

// Action is one editing step. Target is the paint-order index of the label
// for drag and reopen.
type Action struct {
	Op     Op      `yaml:"op"`
	Text   string  `yaml:"text,omitempty"`
	Color  string  `yaml:"color,omitempty"`
	Target int     `yaml:"target,omitempty"`
	DX     float64 `yaml:"dx,omitempty"`
	DY     float64 `yaml:"dy,omitempty"`
}

// Script is a whole session.
type Script struct {
	Frame   Frame    `yaml:"frame"`
	Strokes []Stroke `yaml:"strokes,omitempty"`
	Actions []Action `yaml:"actions,omitempty"`
}

// Parse decodes and validates a script. Unknown keys are rejected.
func Parse(r io.Reader) (*Script, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var s Script
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty script", ErrInvalid)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Marshal encodes s as YAML.
func (s *Script) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}

// Validate checks the script without running it.
func (s *Script) Validate() error {
	if s.Frame.Width <= 0 || s.Frame.Height <= 0 || s.Frame.Scale < 0 {
		return fmt.Errorf("%w: frame needs a positive width and height", ErrInvalid)
	}
	for i, st := range s.Strokes {
		if len(st.Points) == 0 {
			return fmt.Errorf("%w: stroke %d has no points", ErrInvalid, i)
		}
		if st.Color != "" {
			if _, err := ParseColor(st.Color); err != nil {
				return fmt.Errorf("%w: stroke %d: %w", ErrInvalid, i, err)
			}
		}
	}
	for i, a := range s.Actions {
		switch a.Op {
		case OpAdd, OpText, OpBold, OpAccept, OpCancel, OpDrag, OpReopen:
		case OpColor:
			if _, err := ParseColor(a.Color); err != nil {
				return fmt.Errorf("%w: action %d: %w", ErrInvalid, i, err)
			}
		default:
			return fmt.Errorf("%w: action %d: unknown op %q", ErrInvalid, i, a.Op)
		}
		if a.Target < 0 {
			return fmt.Errorf("%w: action %d: negative target", ErrInvalid, i)
		}
	}
	return nil
}

// ComposeFrame returns the frame with the default scale applied.
func (s *Script) ComposeFrame() compose.Frame {
	scale := s.Frame.Scale
	if scale == 0 {
		scale = 1
	}
	return compose.Frame{Width: s.Frame.Width, Height: s.Frame.Height, Scale: scale}
}

// Run measures the editor with the script frame and applies every stroke
// and action in order. It stops at the first failing action.
func (s *Script) Run(ed *editor.Editor) error {
	if !ed.Measure(s.ComposeFrame()) {
		if f, ok := ed.Frame(); !ok || f != s.ComposeFrame() {
			return fmt.Errorf("%w: canvas already measured as %+v", ErrInvalid, f)
		}
	}
	for _, st := range s.Strokes {
		col := ink.DefaultColor
		if st.Color != "" {
			col, _ = ParseColor(st.Color)
		}
		stroke := ink.Stroke{Color: col, Width: st.Width, Points: make([]ink.Point, len(st.Points))}
		if stroke.Width <= 0 {
			stroke.Width = ink.DefaultWidth
		}
		for i, p := range st.Points {
			stroke.Points[i] = ink.Point{X: p[0], Y: p[1]}
		}
		ed.Canvas().AddStroke(stroke)
	}
	for i, a := range s.Actions {
		if err := apply(ed, a); err != nil {
			return fmt.Errorf("action %d (%s): %w", i, a.Op, err)
		}
	}
	return nil
}

func apply(ed *editor.Editor, a Action) error {
	switch a.Op {
	case OpAdd:
		if _, err := ed.AddText(); err != nil {
			return err
		}
		if a.Text != "" {
			return ed.UpdateText(a.Text)
		}
		return nil
	case OpText:
		return ed.UpdateText(a.Text)
	case OpBold:
		return ed.ToggleBold()
	case OpColor:
		c, err := ParseColor(a.Color)
		if err != nil {
			return err
		}
		return ed.SetColor(c)
	case OpAccept:
		return ed.Accept()
	case OpCancel:
		return ed.Cancel()
	case OpDrag:
		id, err := target(ed, a.Target)
		if err != nil {
			return err
		}
		delta := annotation.Offset{X: a.DX, Y: a.DY}
		ed.Drag(id, delta)
		ed.EndDrag(id, delta)
		return nil
	case OpReopen:
		id, err := target(ed, a.Target)
		if err != nil {
			return err
		}
		_, err = ed.LongPress(id)
		return err
	}
	return fmt.Errorf("unknown op %q", a.Op)
}

func target(ed *editor.Editor, idx int) (annotation.ID, error) {
	anns := ed.Annotations()
	if idx < 0 || idx >= len(anns) {
		return "", fmt.Errorf("%w: %d of %d", annotation.ErrInvalidIndex, idx, len(anns))
	}
	return anns[idx].ID, nil
}

// ParseColor accepts #RRGGBB, #RRGGBBAA or an SVG colour name.
func ParseColor(s string) (color.RGBA, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		return theme.ParseColor(s)
	}
	if c, ok := colornames.Map[strings.ToLower(s)]; ok {
		return c, nil
	}
	return color.RGBA{}, fmt.Errorf("unknown color %q", s)
}
