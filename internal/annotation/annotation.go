// Package annotation holds the text overlays placed on a photo and the store
// that owns them for one editing session.
package annotation

import (
	"image/color"

	"github.com/oklog/ulid/v2"
)

// ID identifies an annotation for its whole lifetime.
type ID string

// NewID returns a fresh ULID based identifier.
func NewID() ID { return ID(ulid.Make().String()) }

// DefaultColor is the text colour of a freshly created annotation.
var DefaultColor = color.RGBA{255, 255, 255, 255}

// Offset is a 2-D displacement in canvas points.
type Offset struct {
	X, Y float64
}

// Add returns o translated by d.
func (o Offset) Add(d Offset) Offset { return Offset{X: o.X + d.X, Y: o.Y + d.Y} }

// TextAnnotation is a single positioned and styled text overlay.
type TextAnnotation struct {
	ID    ID
	Text  string
	Bold  bool
	Color color.RGBA
	// Position is where the label is drawn, relative to the canvas anchor.
	Position Offset
	// Committed is the position at the end of the last completed drag.
	Committed Offset
	// Confirmed is set once the user has accepted the text.
	Confirmed bool
}

func newTextAnnotation(id ID) *TextAnnotation {
	return &TextAnnotation{ID: id, Color: DefaultColor}
}
