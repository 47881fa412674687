package session

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/example/photoedit/internal/annotation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSurface struct {
	focused bool
	tools   bool
	calls   []string
}

func newFakeSurface() *fakeSurface { return &fakeSurface{focused: true, tools: true} }

func (f *fakeSurface) SetInputFocus(v bool) {
	f.focused = v
	f.calls = append(f.calls, fmt.Sprintf("focus=%v", v))
}

func (f *fakeSurface) SetToolsVisible(v bool) {
	f.tools = v
	f.calls = append(f.calls, fmt.Sprintf("tools=%v", v))
}

func newStore() *annotation.Store {
	n := 0
	return annotation.NewStore(annotation.WithIDSource(func() annotation.ID {
		n++
		return annotation.ID(fmt.Sprintf("t%d", n))
	}))
}

func TestAddTextOpensEditor(t *testing.T) {
	store := newStore()
	surf := newFakeSurface()
	c := New(store, surf)

	idx, err := c.AddText()
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.Equal(t, Open, c.State())
	assert.Equal(t, store.CurrentID(), c.ActiveID())
	assert.False(t, surf.focused)
	assert.False(t, surf.tools)

	active, ok := c.ActiveIndex()
	assert.True(t, ok)
	assert.Equal(t, 0, active)
}

func TestAcceptConfirmsAndRestores(t *testing.T) {
	store := newStore()
	surf := newFakeSurface()
	c := New(store, surf)

	_, err := c.AddText()
	require.NoError(t, err)
	require.NoError(t, store.UpdateCurrentText("Hi"))
	require.NoError(t, c.Accept())

	assert.Equal(t, Closed, c.State())
	assert.Equal(t, annotation.ID(""), c.ActiveID())
	assert.True(t, surf.focused)
	assert.True(t, surf.tools)

	snap := store.Snapshot()
	require.Len(t, snap, 1)
	assert.True(t, snap[0].Confirmed)
	assert.Equal(t, "Hi", snap[0].Text)
}

func TestCancelDiscardsNew(t *testing.T) {
	store := newStore()
	surf := newFakeSurface()
	c := New(store, surf)

	_, err := c.AddText()
	require.NoError(t, err)
	require.NoError(t, store.UpdateCurrentText("Hi"))
	require.NoError(t, c.Cancel())

	assert.Equal(t, Closed, c.State())
	assert.Equal(t, 0, store.Len())
	assert.True(t, surf.focused)
}

func TestCancelKeepsConfirmedAfterReopen(t *testing.T) {
	store := newStore()
	c := New(store, newFakeSurface())

	_, err := c.AddText()
	require.NoError(t, err)
	id := c.ActiveID()
	require.NoError(t, store.UpdateCurrentText("keep"))
	require.NoError(t, c.Accept())

	idx, err := c.Reopen(id)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	require.NoError(t, store.UpdateCurrentText("keep me"))
	require.NoError(t, c.Cancel())

	snap := store.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "keep me", snap[0].Text)
}

func TestSecondAddDiscardsOnlyNew(t *testing.T) {
	store := newStore()
	c := New(store, newFakeSurface())

	_, err := c.AddText()
	require.NoError(t, err)
	require.NoError(t, store.UpdateCurrentText("first"))
	require.NoError(t, c.Accept())

	idx, err := c.AddText()
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	require.NoError(t, c.Cancel())

	snap := store.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "first", snap[0].Text)
}

func TestAcceptCancelWhileClosed(t *testing.T) {
	c := New(newStore(), newFakeSurface())
	assert.ErrorIs(t, c.Accept(), ErrNotOpen)
	assert.ErrorIs(t, c.Cancel(), ErrNotOpen)
}

func TestAddWhileOpenPolicies(t *testing.T) {
	t.Run("cancel", func(t *testing.T) {
		store := newStore()
		c := New(store, newFakeSurface())
		_, err := c.AddText()
		require.NoError(t, err)
		first := c.ActiveID()

		_, err = c.AddText()
		require.NoError(t, err)
		_, found := store.Get(first)
		assert.False(t, found)
		assert.Equal(t, 1, store.Len())
		assert.Equal(t, Open, c.State())
	})
	t.Run("confirm", func(t *testing.T) {
		store := newStore()
		c := New(store, newFakeSurface(), WithPolicy(ReopenConfirmActive))
		_, err := c.AddText()
		require.NoError(t, err)
		first := c.ActiveID()

		idx, err := c.AddText()
		require.NoError(t, err)
		assert.Equal(t, 1, idx)
		a, found := store.Get(first)
		require.True(t, found)
		assert.True(t, a.Confirmed)
	})
	t.Run("disallow", func(t *testing.T) {
		store := newStore()
		c := New(store, newFakeSurface(), WithPolicy(ReopenDisallow))
		_, err := c.AddText()
		require.NoError(t, err)
		first := c.ActiveID()

		_, err = c.AddText()
		assert.ErrorIs(t, err, ErrEditorOpen)
		assert.Equal(t, first, c.ActiveID())
		assert.Equal(t, 1, store.Len())
	})
}

func TestReopenSameIsNoop(t *testing.T) {
	store := newStore()
	surf := newFakeSurface()
	c := New(store, surf)
	_, err := c.AddText()
	require.NoError(t, err)
	calls := len(surf.calls)

	idx, err := c.Reopen(c.ActiveID())
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.Len(t, surf.calls, calls)
}

func TestReopenUnknown(t *testing.T) {
	c := New(newStore(), newFakeSurface())
	_, err := c.Reopen("ghost")
	assert.ErrorIs(t, err, annotation.ErrNotFound)
	assert.Equal(t, Closed, c.State())
}

func TestInconsistentStore(t *testing.T) {
	store := newStore()
	c := New(store, newFakeSurface())
	_, err := c.AddText()
	require.NoError(t, err)

	// someone else cleared the store behind the controller's back
	store.Reset()
	assert.ErrorIs(t, c.Accept(), ErrInconsistent)
	assert.Equal(t, Open, c.State())
}

func TestResetClosesWithoutTouchingStore(t *testing.T) {
	store := newStore()
	surf := newFakeSurface()
	c := New(store, surf)
	_, err := c.AddText()
	require.NoError(t, err)

	c.Reset()
	assert.Equal(t, Closed, c.State())
	assert.Equal(t, 1, store.Len())
	assert.True(t, surf.focused)
}

func TestTransitionsNotified(t *testing.T) {
	var got []Transition
	store := newStore()
	c := New(store, nil, WithListener(func(tr Transition) { got = append(got, tr) }))

	_, err := c.AddText()
	require.NoError(t, err)
	id := c.ActiveID()
	require.NoError(t, c.Accept())

	require.Len(t, got, 2)
	assert.Equal(t, Transition{From: Closed, To: Open, ID: id}, got[0])
	assert.Equal(t, Transition{From: Open, To: Closed, ID: id}, got[1])
}

// Closing the editor never leaves an unconfirmed annotation behind.
func TestClosedImpliesAllConfirmed(t *testing.T) {
	store := newStore()
	c := New(store, newFakeSurface())
	ops := []func() error{
		func() error { _, err := c.AddText(); return err },
		c.Accept,
		func() error { _, err := c.AddText(); return err },
		func() error { _, err := c.AddText(); return err },
		c.Cancel,
		func() error { _, err := c.AddText(); return err },
		c.Accept,
	}
	for i, op := range ops {
		require.NoError(t, op(), "op %d", i)
		if c.State() == Closed {
			for _, a := range store.Snapshot() {
				assert.True(t, a.Confirmed, "op %d left %s unconfirmed", i, a.ID)
			}
		}
	}
	assert.Equal(t, 2, store.Len())
}

// Random sequences of editor operations under every reopen policy keep the
// controller, the store and the surface in agreement.
func TestRandomWalkInvariants(t *testing.T) {
	for _, policy := range []ReopenPolicy{ReopenCancelActive, ReopenConfirmActive, ReopenDisallow} {
		for seed := int64(1); seed <= 25; seed++ {
			t.Run(fmt.Sprintf("policy%d/seed%d", policy, seed), func(t *testing.T) {
				walk(t, policy, rand.New(rand.NewSource(seed)), 200)
			})
		}
	}
}

func walk(t *testing.T, policy ReopenPolicy, rng *rand.Rand, steps int) {
	t.Helper()
	store := newStore()
	surf := newFakeSurface()
	c := New(store, surf, WithPolicy(policy))

	for i := 0; i < steps; i++ {
		var (
			name string
			err  error
		)
		switch rng.Intn(5) {
		case 0:
			name = "add"
			_, err = c.AddText()
		case 1:
			name = "accept"
			err = c.Accept()
		case 2:
			name = "cancel"
			err = c.Cancel()
		case 3:
			snap := store.Snapshot()
			if len(snap) == 0 {
				continue
			}
			id := snap[rng.Intn(len(snap))].ID
			name = "reopen " + string(id)
			_, err = c.Reopen(id)
		case 4:
			name = "type"
			if c.State() == Open {
				err = store.UpdateCurrentText(fmt.Sprintf("text %d", i))
			}
		}

		switch {
		case err == nil:
		case errors.Is(err, ErrNotOpen):
			require.Equal(t, Closed, c.State(), "step %d %s", i, name)
		case errors.Is(err, ErrEditorOpen):
			require.Equal(t, ReopenDisallow, policy, "step %d %s", i, name)
			require.Equal(t, Open, c.State())
		default:
			require.NoError(t, err, "step %d %s", i, name)
		}

		if c.State() == Closed {
			for _, a := range store.Snapshot() {
				require.True(t, a.Confirmed, "step %d %s left %s unconfirmed", i, name, a.ID)
			}
			require.True(t, surf.focused, "step %d %s", i, name)
			require.True(t, surf.tools, "step %d %s", i, name)
			_, ok := c.ActiveIndex()
			require.False(t, ok)
		} else {
			require.Equal(t, store.CurrentID(), c.ActiveID(), "step %d %s", i, name)
			_, exists := store.Get(c.ActiveID())
			require.True(t, exists, "step %d %s", i, name)
			require.False(t, surf.focused, "step %d %s", i, name)
			require.False(t, surf.tools, "step %d %s", i, name)
		}
		unconfirmed := 0
		for _, a := range store.Snapshot() {
			if !a.Confirmed {
				unconfirmed++
			}
		}
		require.LessOrEqual(t, unconfirmed, 1, "step %d %s", i, name)
	}
}

func TestParseReopenPolicy(t *testing.T) {
	for in, want := range map[string]ReopenPolicy{
		"":         ReopenCancelActive,
		"cancel":   ReopenCancelActive,
		"confirm":  ReopenConfirmActive,
		"disallow": ReopenDisallow,
	} {
		got, err := ParseReopenPolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseReopenPolicy("maybe")
	assert.Error(t, err)
}
