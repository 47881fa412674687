//go:build (linux || freebsd || openbsd || netbsd || dragonfly) && !cgo

package clipboard

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

var testAtoms = atoms{clipboard: 100, targets: 101, utf8: 102, textPlain: 103, png: 104, property: 105}

func TestEnsureInitWithoutDisplay(t *testing.T) {
	t.Setenv("DISPLAY", "")
	initOnce = sync.Once{}
	initErr = nil
	t.Cleanup(func() {
		initOnce = sync.Once{}
		initErr = nil
	})

	if err := WritePNG([]byte{0x89}); !errors.Is(err, ErrNoDisplay) {
		t.Fatalf("expected ErrNoDisplay, got %v", err)
	}
	if _, err := ReadPNG(); !errors.Is(err, ErrNoDisplay) {
		t.Fatalf("expected ErrNoDisplay from read, got %v", err)
	}
}

func TestOfferTargets(t *testing.T) {
	img := selection{png: []byte("png-bytes")}
	r, ok := img.offer(testAtoms, testAtoms.targets)
	if !ok || r.format != 32 || r.typ != xproto.AtomAtom {
		t.Fatalf("targets reply = %+v, %v", r, ok)
	}
	if r.length() != 2 {
		t.Fatalf("targets length = %d, want 2", r.length())
	}
	if got := xproto.Atom(xgb.Get32(r.payload[4:])); got != testAtoms.png {
		t.Fatalf("second target = %d, want png", got)
	}

	r, ok = img.offer(testAtoms, testAtoms.png)
	if !ok || !bytes.Equal(r.payload, []byte("png-bytes")) || r.length() != 9 {
		t.Fatalf("png reply = %+v, %v", r, ok)
	}
	if _, ok := img.offer(testAtoms, testAtoms.utf8); ok {
		t.Fatal("text offered while holding an image")
	}
}

func TestOfferText(t *testing.T) {
	text := selection{text: []byte("hello")}
	for _, target := range []xproto.Atom{testAtoms.utf8, xproto.AtomString, testAtoms.textPlain} {
		r, ok := text.offer(testAtoms, target)
		if !ok || r.typ != testAtoms.utf8 || string(r.payload) != "hello" {
			t.Fatalf("target %d: reply = %+v, %v", target, r, ok)
		}
	}
	if _, ok := text.offer(testAtoms, testAtoms.png); ok {
		t.Fatal("image offered while holding text")
	}
	if _, ok := (selection{}).offer(testAtoms, 999); ok {
		t.Fatal("unknown target offered")
	}
}
