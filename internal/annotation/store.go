package annotation

import (
	"errors"
	"fmt"
	"image/color"
)

var (
	// ErrInvalidIndex reports access to the current annotation when there is
	// none. It means the caller and the store disagree about the session.
	ErrInvalidIndex = errors.New("annotation: no current annotation")
	// ErrNotFound reports an unknown annotation id.
	ErrNotFound = errors.New("annotation: not found")
)

// ChangeKind describes what a store mutation did.
type ChangeKind int

const (
	ChangeAdded ChangeKind = iota
	ChangeUpdated
	ChangeConfirmed
	ChangeRemoved
	ChangeMoved
	ChangeSelected
	ChangeReset
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAdded:
		return "added"
	case ChangeUpdated:
		return "updated"
	case ChangeConfirmed:
		return "confirmed"
	case ChangeRemoved:
		return "removed"
	case ChangeMoved:
		return "moved"
	case ChangeSelected:
		return "selected"
	case ChangeReset:
		return "reset"
	default:
		return fmt.Sprintf("ChangeKind(%d)", int(k))
	}
}

// Change is emitted after every mutation. Snapshot is the store content in
// paint order once the mutation has been applied.
type Change struct {
	Kind     ChangeKind
	ID       ID
	Snapshot []TextAnnotation
}

// Listener receives store changes.
type Listener func(Change)

// Option configures a Store.
type Option func(*Store)

// WithIDSource replaces the id generator, mostly useful in tests.
func WithIDSource(fn func() ID) Option { return func(s *Store) { s.newID = fn } }

// Store owns the annotations of one editing session. Entries are keyed by id
// and kept in creation order, which is also the back-to-front paint order.
//
// A Store is not safe for concurrent use; the editor serializes access.
type Store struct {
	entries   map[ID]*TextAnnotation
	order     []ID
	current   ID
	newID     func() ID
	listeners []Listener
}

// NewStore returns an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{entries: map[ID]*TextAnnotation{}, newID: NewID}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Subscribe registers fn to be called after every mutation.
func (s *Store) Subscribe(fn Listener) {
	if fn == nil {
		return
	}
	s.listeners = append(s.listeners, fn)
}

func (s *Store) emit(kind ChangeKind, id ID) {
	if len(s.listeners) == 0 {
		return
	}
	ch := Change{Kind: kind, ID: id, Snapshot: s.Snapshot()}
	for _, fn := range s.listeners {
		fn(ch)
	}
}

// Len reports the number of annotations.
func (s *Store) Len() int { return len(s.order) }

// BeginNew appends a placeholder annotation, makes it current and returns its
// index and id.
func (s *Store) BeginNew() (int, ID) {
	id := s.newID()
	for _, taken := s.entries[id]; taken; _, taken = s.entries[id] {
		id = s.newID()
	}
	s.entries[id] = newTextAnnotation(id)
	s.order = append(s.order, id)
	s.current = id
	s.emit(ChangeAdded, id)
	return len(s.order) - 1, id
}

// Select makes an existing annotation current and returns its index.
func (s *Store) Select(id ID) (int, error) {
	idx := s.IndexOf(id)
	if idx < 0 {
		return -1, fmt.Errorf("select %s: %w", id, ErrNotFound)
	}
	s.current = id
	s.emit(ChangeSelected, id)
	return idx, nil
}

// CurrentID returns the id of the current annotation, or "" if none.
func (s *Store) CurrentID() ID { return s.current }

// CurrentIndex returns the paint-order index of the current annotation.
func (s *Store) CurrentIndex() (int, bool) {
	if s.current == "" {
		return -1, false
	}
	idx := s.IndexOf(s.current)
	return idx, idx >= 0
}

// Current returns a copy of the current annotation.
func (s *Store) Current() (TextAnnotation, error) {
	a, err := s.currentEntry()
	if err != nil {
		return TextAnnotation{}, err
	}
	return *a, nil
}

func (s *Store) currentEntry() (*TextAnnotation, error) {
	if s.current == "" {
		return nil, ErrInvalidIndex
	}
	a, ok := s.entries[s.current]
	if !ok {
		return nil, ErrInvalidIndex
	}
	return a, nil
}

// UpdateCurrentText replaces the text of the current annotation.
func (s *Store) UpdateCurrentText(text string) error {
	a, err := s.currentEntry()
	if err != nil {
		return err
	}
	a.Text = text
	s.emit(ChangeUpdated, a.ID)
	return nil
}

// ToggleCurrentBold flips the bold flag of the current annotation.
func (s *Store) ToggleCurrentBold() error {
	a, err := s.currentEntry()
	if err != nil {
		return err
	}
	a.Bold = !a.Bold
	s.emit(ChangeUpdated, a.ID)
	return nil
}

// SetCurrentColor sets the text colour of the current annotation.
func (s *Store) SetCurrentColor(c color.RGBA) error {
	a, err := s.currentEntry()
	if err != nil {
		return err
	}
	a.Color = c
	s.emit(ChangeUpdated, a.ID)
	return nil
}

// ConfirmCurrent marks the current annotation as accepted. Empty text is
// kept as is.
func (s *Store) ConfirmCurrent() error {
	a, err := s.currentEntry()
	if err != nil {
		return err
	}
	a.Confirmed = true
	s.emit(ChangeConfirmed, a.ID)
	return nil
}

// DiscardCurrentIfUnconfirmed removes the current annotation when it was
// never confirmed. Removal is by identity so the result does not depend on
// where the entry sits in the paint order.
func (s *Store) DiscardCurrentIfUnconfirmed() (bool, error) {
	a, err := s.currentEntry()
	if err != nil {
		return false, err
	}
	if a.Confirmed {
		return false, nil
	}
	id := a.ID
	delete(s.entries, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.current = ""
	s.emit(ChangeRemoved, id)
	return true, nil
}

// ApplyDrag moves the annotation to its committed position plus the live
// gesture delta. Unknown ids are ignored.
func (s *Store) ApplyDrag(id ID, live Offset) {
	a, ok := s.entries[id]
	if !ok {
		return
	}
	a.Position = a.Committed.Add(live)
	s.emit(ChangeMoved, id)
}

// CommitDrag bakes the final gesture delta into the committed position.
// Unknown ids are ignored.
func (s *Store) CommitDrag(id ID, final Offset) {
	a, ok := s.entries[id]
	if !ok {
		return
	}
	a.Committed = a.Committed.Add(final)
	a.Position = a.Committed
	s.emit(ChangeMoved, id)
}

// Get returns a copy of the annotation with the given id.
func (s *Store) Get(id ID) (TextAnnotation, bool) {
	a, ok := s.entries[id]
	if !ok {
		return TextAnnotation{}, false
	}
	return *a, true
}

// IndexOf returns the paint-order index of id or -1.
func (s *Store) IndexOf(id ID) int {
	for i, v := range s.order {
		if v == id {
			return i
		}
	}
	return -1
}

// Snapshot returns copies of all annotations in paint order.
func (s *Store) Snapshot() []TextAnnotation {
	out := make([]TextAnnotation, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.entries[id])
	}
	return out
}

// Reset drops every annotation. Used when the photo changes or editing is
// cancelled.
func (s *Store) Reset() {
	s.entries = map[ID]*TextAnnotation{}
	s.order = nil
	s.current = ""
	s.emit(ChangeReset, "")
}
