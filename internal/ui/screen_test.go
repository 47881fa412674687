package ui

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/photoedit/internal/annotation"
	"github.com/example/photoedit/internal/editor"
	"github.com/example/photoedit/internal/library"
	"github.com/example/photoedit/internal/photo"
	"github.com/example/photoedit/internal/session"
	"github.com/example/photoedit/internal/theme"
)

type memSink struct{ n int }

func (m *memSink) Save(context.Context, []byte) (library.Location, error) {
	m.n++
	return library.Location{Backend: "mem", Ref: fmt.Sprint(m.n)}, nil
}

func photoBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for i := range img.Pix {
		img.Pix[i] = 0x60
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func control(t *testing.T, s *Screen, a Action) Control {
	t.Helper()
	for _, c := range s.Layout().Controls {
		if c.Action == a {
			return c
		}
	}
	t.Fatalf("no control %d", a)
	return Control{}
}

func click(t *testing.T, s *Screen, a Action) {
	t.Helper()
	c := control(t, s, a)
	now := time.Now()
	s.Press(context.Background(), c.Rect.Min.Add(image.Pt(1, 1)), now)
	s.Release(c.Rect.Min.Add(image.Pt(1, 1)), now)
}

func newScreen(t *testing.T) (*Screen, *editor.Editor, *Status) {
	t.Helper()
	status := NewStatus()
	ed := editor.New(editor.WithAlerter(status), editor.WithSink(&memSink{}))
	src := photo.SourceFunc(func(context.Context) ([]byte, error) { return photoBytes(t), nil })
	s := NewScreen(ed, status, WithOpenSource(src))
	return s, ed, status
}

// canvasPt returns the window pixel of a canvas point at scale 1.
func canvasPt(s *Screen, x, y int) image.Point {
	return s.Layout().Canvas.Min.Add(image.Pt(x, y))
}

func TestResizeMeasuresOnceAPhotoIsOpen(t *testing.T) {
	s, ed, _ := newScreen(t)
	s.Resize(400, 300, 1)
	_, measured := ed.Frame()
	assert.False(t, measured, "nothing to measure without a photo")

	click(t, s, ActionOpen)
	require.True(t, ed.HasPhoto())
	f, measured := ed.Frame()
	require.True(t, measured)
	assert.Equal(t, s.Layout().Frame(1), f)

	s.Resize(800, 600, 1)
	f2, _ := ed.Frame()
	assert.Equal(t, f, f2, "the first frame of a session is kept")
}

func TestTypingText(t *testing.T) {
	s, ed, _ := newScreen(t)
	s.Resize(400, 300, 1)
	click(t, s, ActionOpen)

	s.Type(KeyRune, 'x')
	assert.Empty(t, ed.Annotations(), "typing with the editor closed is ignored")

	click(t, s, ActionText)
	require.Equal(t, session.Open, ed.State())
	for _, r := range "Héllo!" {
		s.Type(KeyRune, r)
	}
	s.Type(KeyBackspace, 0)
	s.Type(KeyRune, '\t')
	click(t, s, ActionBold)
	s.Type(KeyEnter, 0)

	anns := ed.Annotations()
	require.Len(t, anns, 1)
	assert.Equal(t, "Héllo", anns[0].Text)
	assert.True(t, anns[0].Bold)
	assert.True(t, anns[0].Confirmed)
	assert.Equal(t, session.Closed, ed.State())
}

func TestEscapeDiscardsNewText(t *testing.T) {
	s, ed, _ := newScreen(t)
	s.Resize(400, 300, 1)
	click(t, s, ActionOpen)
	click(t, s, ActionText)
	s.Type(KeyRune, 'a')
	s.Type(KeyEscape, 0)
	assert.Empty(t, ed.Annotations())
}

func TestColorSwatch(t *testing.T) {
	s, ed, _ := newScreen(t)
	s.Resize(400, 300, 1)
	click(t, s, ActionOpen)
	click(t, s, ActionText)
	var swatch Control
	for _, c := range s.Layout().Controls {
		if c.Action == ActionColor && c.Color != annotation.DefaultColor {
			swatch = c
			break
		}
	}
	s.Press(context.Background(), swatch.Rect.Min.Add(image.Pt(1, 1)), time.Now())
	id, _, ok := ed.Active()
	require.True(t, ok)
	a, _ := ed.Annotation(id)
	assert.Equal(t, swatch.Color, a.Color)
}

func TestInkOnlyWhileEditorClosed(t *testing.T) {
	s, ed, _ := newScreen(t)
	s.Resize(400, 300, 1)
	click(t, s, ActionOpen)
	now := time.Now()

	s.Press(context.Background(), canvasPt(s, 100, 100), now)
	s.Move(canvasPt(s, 120, 110), now)
	s.Release(canvasPt(s, 120, 110), now)
	strokes := ed.Canvas().Strokes()
	require.Len(t, strokes, 1)
	assert.Len(t, strokes[0].Points, 2)

	click(t, s, ActionText)
	s.Press(context.Background(), canvasPt(s, 200, 100), now)
	s.Move(canvasPt(s, 220, 110), now)
	s.Release(canvasPt(s, 220, 110), now)
	assert.Len(t, ed.Canvas().Strokes(), 1)
}

func addLabel(t *testing.T, s *Screen, ed *editor.Editor, text string) annotation.ID {
	t.Helper()
	click(t, s, ActionText)
	for _, r := range text {
		s.Type(KeyRune, r)
	}
	s.Type(KeyEnter, 0)
	anns := ed.Annotations()
	return anns[len(anns)-1].ID
}

func TestDragLabel(t *testing.T) {
	s, ed, _ := newScreen(t)
	s.Resize(400, 300, 1)
	click(t, s, ActionOpen)
	id := addLabel(t, s, ed, "Drag me")
	now := time.Now()

	s.Press(context.Background(), canvasPt(s, 5, 10), now)
	s.Move(canvasPt(s, 6, 11), now)
	a, _ := ed.Annotation(id)
	assert.Equal(t, annotation.Offset{}, a.Position, "inside the slop nothing moves")

	s.Move(canvasPt(s, 35, 30), now)
	a, _ = ed.Annotation(id)
	assert.Equal(t, annotation.Offset{X: 30, Y: 20}, a.Position)
	assert.Equal(t, annotation.Offset{}, a.Committed)

	s.Release(canvasPt(s, 45, 30), now.Add(time.Second))
	a, _ = ed.Annotation(id)
	assert.Equal(t, annotation.Offset{X: 40, Y: 20}, a.Committed)
	assert.Equal(t, session.Closed, ed.State(), "a drag never opens the editor")
	assert.Empty(t, ed.Canvas().Strokes())
}

func TestLongPressReopens(t *testing.T) {
	s, ed, _ := newScreen(t)
	s.Resize(400, 300, 1)
	click(t, s, ActionOpen)
	id := addLabel(t, s, ed, "Hold")
	now := time.Now()

	s.Press(context.Background(), canvasPt(s, 5, 10), now)
	assert.True(t, s.Pending())
	assert.False(t, s.Tick(now.Add(LongPressDelay-time.Millisecond)))
	assert.True(t, s.Tick(now.Add(LongPressDelay)))
	s.Release(canvasPt(s, 5, 10), now.Add(LongPressDelay))

	active, _, ok := ed.Active()
	require.True(t, ok)
	assert.Equal(t, id, active)
}

func TestShortTapDoesNotReopen(t *testing.T) {
	s, ed, _ := newScreen(t)
	s.Resize(400, 300, 1)
	click(t, s, ActionOpen)
	addLabel(t, s, ed, "Tap")
	now := time.Now()
	s.Press(context.Background(), canvasPt(s, 5, 10), now)
	s.Release(canvasPt(s, 5, 10), now.Add(100*time.Millisecond))
	assert.Equal(t, session.Closed, ed.State())
}

func TestSaveShowsStatus(t *testing.T) {
	s, _, status := newScreen(t)
	s.Resize(400, 300, 1)
	click(t, s, ActionOpen)
	click(t, s, ActionSave)
	kind, msg, ok := status.Current(time.Now())
	require.True(t, ok)
	assert.Equal(t, editor.AlertSave, kind)
	assert.Equal(t, "Saved to mem:1", msg)
}

func TestNewDropsPhoto(t *testing.T) {
	s, ed, _ := newScreen(t)
	s.Resize(400, 300, 1)
	click(t, s, ActionOpen)
	click(t, s, ActionNew)
	assert.False(t, ed.HasPhoto())
	assert.False(t, control(t, s, ActionSave).Enabled)
}

func TestPolicyErrorIsShown(t *testing.T) {
	status := NewStatus()
	ed := editor.New(editor.WithAlerter(status), editor.WithReopenPolicy(session.ReopenDisallow))
	require.NoError(t, ed.LoadPhoto(photoBytes(t)))
	s := NewScreen(ed, status)
	s.Resize(400, 300, 1)
	id := addLabel(t, s, ed, "One")
	click(t, s, ActionText)

	now := time.Now()
	s.Press(context.Background(), canvasPt(s, 5, 10), now)
	s.Tick(now.Add(LongPressDelay))
	_, msg, ok := status.Current(time.Now())
	require.True(t, ok)
	assert.Contains(t, msg, "Finish the current text")
	active, _, _ := ed.Active()
	assert.NotEqual(t, id, active)
}

func TestRenderFrame(t *testing.T) {
	s, _, _ := newScreen(t)
	s.Resize(400, 300, 1)
	click(t, s, ActionOpen)
	click(t, s, ActionText)
	s.Type(KeyRune, 'Q')

	st := s.snapshot(time.Now())
	require.NotNil(t, st.preview)
	assert.True(t, st.editing)
	assert.Equal(t, "Q", st.text)

	th := theme.Default()
	dst := image.NewRGBA(image.Rect(0, 0, 400, 300))
	renderFrame(context.Background(), dst, st, th)

	// the photo is letterboxed into the middle of the canvas
	mid := st.layout.Canvas.Min.Add(st.layout.Canvas.Size().Div(2))
	want := st.preview.RGBAAt(mid.X-st.layout.Canvas.Min.X, mid.Y-st.layout.Canvas.Min.Y)
	assert.Equal(t, uint8(0xff), want.A)
	assert.InDelta(t, 0x60, int(want.R), 2)
	assert.Equal(t, want, dst.RGBAAt(mid.X, mid.Y))
	assert.Equal(t, th.ToolbarBackground, dst.RGBAAt(st.layout.Toolbar.Max.X-1, 1))

	field := st.layout.TextField
	inked := false
	for x := field.Min.X + 1; x < field.Min.X+20; x++ {
		for y := field.Min.Y + 1; y < field.Max.Y-1; y++ {
			if dst.RGBAAt(x, y) == th.EditorText {
				inked = true
			}
		}
	}
	assert.True(t, inked, "typed text is shown in the editor bar")
}

func TestRenderFrameCancelled(t *testing.T) {
	s, _, _ := newScreen(t)
	s.Resize(200, 150, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dst := image.NewRGBA(image.Rect(0, 0, 200, 150))
	th := theme.Default()
	renderFrame(ctx, dst, s.snapshot(time.Now()), th)
	assert.NotEqual(t, th.ToolbarBackground, dst.RGBAAt(1, 1), "toolbar is skipped once cancelled")
}

func TestToolbarSources(t *testing.T) {
	var picked []string
	source := func(name string) photo.Source {
		return photo.SourceFunc(func(context.Context) ([]byte, error) {
			picked = append(picked, name)
			return photoBytes(t), nil
		})
	}
	status := NewStatus()
	ed := editor.New(editor.WithAlerter(status))
	s := NewScreen(ed, status,
		WithOpenSource(source("open")),
		WithPasteSource(source("paste")),
		WithCaptureSource(source("capture")),
	)
	s.Resize(400, 300, 1)

	click(t, s, ActionCapture)
	click(t, s, ActionPaste)
	click(t, s, ActionOpen)
	assert.Equal(t, []string{"capture", "paste", "open"}, picked)
	assert.True(t, ed.HasPhoto())
}

func TestMissingSourceReported(t *testing.T) {
	status := NewStatus()
	ed := editor.New(editor.WithAlerter(status))
	s := NewScreen(ed, status)
	s.Resize(400, 300, 1)

	click(t, s, ActionCapture)
	_, msg, ok := status.Current(time.Now())
	require.True(t, ok)
	assert.Contains(t, msg, "no photo source")
	assert.False(t, ed.HasPhoto())
}
