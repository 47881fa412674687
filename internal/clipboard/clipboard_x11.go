//go:build (linux || freebsd || openbsd || netbsd || dragonfly) && !cgo

package clipboard

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/sirupsen/logrus"
)

// readTimeout bounds how long a selection owner may take to answer.
const readTimeout = 2 * time.Second

var (
	initOnce sync.Once
	initErr  error
	owner    *x11Owner
)

func ensureInit() error {
	initOnce.Do(func() {
		if os.Getenv("DISPLAY") == "" {
			initErr = ErrNoDisplay
			return
		}
		o, err := newX11Owner()
		if err != nil {
			initErr = fmt.Errorf("clipboard: x11: %w", err)
			return
		}
		owner = o
	})
	return initErr
}

// ReadPNG returns the PNG image held by the clipboard.
func ReadPNG() ([]byte, error) {
	if err := ensureInit(); err != nil {
		return nil, err
	}
	return owner.read(owner.atoms.png)
}

// WritePNG publishes PNG bytes to the clipboard. The process keeps serving
// them until another client takes the selection.
func WritePNG(data []byte) error {
	if err := ensureInit(); err != nil {
		return err
	}
	return owner.own(selection{png: append([]byte(nil), data...)})
}

// WriteText publishes UTF-8 text to the clipboard.
func WriteText(text string) error {
	if err := ensureInit(); err != nil {
		return err
	}
	return owner.own(selection{text: []byte(text)})
}

// ReadText returns the UTF-8 text held by the clipboard.
func ReadText() (string, error) {
	if err := ensureInit(); err != nil {
		return "", err
	}
	data, err := owner.read(owner.atoms.utf8)
	if errors.Is(err, ErrEmpty) {
		data, err = owner.read(xproto.AtomString)
	}
	if err != nil {
		return "", err
	}
	if data[len(data)-1] == 0 {
		data = data[:len(data)-1]
	}
	return string(data), nil
}

type atoms struct {
	clipboard xproto.Atom
	targets   xproto.Atom
	utf8      xproto.Atom
	textPlain xproto.Atom
	png       xproto.Atom
	property  xproto.Atom
}

// selection is what we currently offer. At most one of the fields is set.
type selection struct {
	text []byte
	png  []byte
}

// reply is the property written in answer to a SelectionRequest.
type reply struct {
	typ     xproto.Atom
	format  byte
	payload []byte
}

// offer answers a request for target, or reports false when the target is
// not held.
func (s selection) offer(a atoms, target xproto.Atom) (reply, bool) {
	switch target {
	case a.targets:
		list := []xproto.Atom{a.targets}
		if len(s.text) > 0 {
			list = append(list, a.utf8, xproto.AtomString, a.textPlain)
		}
		if len(s.png) > 0 {
			list = append(list, a.png)
		}
		return reply{typ: xproto.AtomAtom, format: 32, payload: atomBytes(list)}, true
	case a.utf8, xproto.AtomString, a.textPlain:
		if len(s.text) == 0 {
			return reply{}, false
		}
		return reply{typ: a.utf8, format: 8, payload: s.text}, true
	case a.png:
		if len(s.png) == 0 {
			return reply{}, false
		}
		return reply{typ: a.png, format: 8, payload: s.png}, true
	}
	return reply{}, false
}

func (r reply) length() uint32 {
	if r.format == 32 {
		return uint32(len(r.payload) / 4)
	}
	return uint32(len(r.payload))
}

func atomBytes(list []xproto.Atom) []byte {
	buf := make([]byte, len(list)*4)
	for i, a := range list {
		xgb.Put32(buf[i*4:], uint32(a))
	}
	return buf
}

// x11Owner holds a hidden window that owns the CLIPBOARD selection while we
// have something on it.
type x11Owner struct {
	conn   *xgb.Conn
	window xproto.Window
	atoms  atoms
	log    *logrus.Entry

	mu  sync.RWMutex
	sel selection
}

func newX11Owner() (*x11Owner, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, err
	}
	screen := xproto.Setup(conn).DefaultScreen(conn)
	window, err := xproto.NewWindowId(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	mask := []uint32{xproto.EventMaskPropertyChange | xproto.EventMaskStructureNotify}
	if err := xproto.CreateWindowChecked(conn, screen.RootDepth, window, screen.Root, 0, 0, 1, 1, 0,
		xproto.WindowClassInputOutput, screen.RootVisual, xproto.CwEventMask, mask).Check(); err != nil {
		conn.Close()
		return nil, err
	}
	a, err := internAtoms(conn)
	if err != nil {
		xproto.DestroyWindow(conn, window)
		conn.Close()
		return nil, err
	}
	o := &x11Owner{conn: conn, window: window, atoms: a, log: logrus.WithField("component", "clipboard")}
	go o.serve()
	return o, nil
}

func internAtoms(conn *xgb.Conn) (atoms, error) {
	names := []string{"CLIPBOARD", "TARGETS", "UTF8_STRING", "text/plain;charset=utf-8", "image/png", "PHOTOEDIT_CLIPBOARD"}
	got := make([]xproto.Atom, len(names))
	for i, name := range names {
		r, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			return atoms{}, fmt.Errorf("intern %s: %w", name, err)
		}
		got[i] = r.Atom
	}
	return atoms{
		clipboard: got[0],
		targets:   got[1],
		utf8:      got[2],
		textPlain: got[3],
		png:       got[4],
		property:  got[5],
	}, nil
}

func (o *x11Owner) own(sel selection) error {
	o.mu.Lock()
	o.sel = sel
	o.mu.Unlock()
	return xproto.SetSelectionOwnerChecked(o.conn, o.window, o.atoms.clipboard, xproto.TimeCurrentTime).Check()
}

func (o *x11Owner) serve() {
	for {
		ev, err := o.conn.WaitForEvent()
		if ev == nil && err == nil {
			return
		}
		if err != nil {
			o.log.WithError(err).Debug("x11 event")
			continue
		}
		switch e := ev.(type) {
		case xproto.SelectionRequestEvent:
			o.answer(e)
		case xproto.SelectionClearEvent:
			o.mu.Lock()
			o.sel = selection{}
			o.mu.Unlock()
		}
	}
}

func (o *x11Owner) answer(e xproto.SelectionRequestEvent) {
	property := e.Property
	if property == xproto.AtomNone {
		property = e.Target
	}
	o.mu.RLock()
	r, ok := o.sel.offer(o.atoms, e.Target)
	o.mu.RUnlock()
	if ok {
		xproto.ChangeProperty(o.conn, xproto.PropModeReplace, e.Requestor, property, r.typ, r.format, r.length(), r.payload)
	} else {
		property = xproto.AtomNone
	}
	notify := xproto.SelectionNotifyEvent{
		Time:      e.Time,
		Requestor: e.Requestor,
		Selection: e.Selection,
		Target:    e.Target,
		Property:  property,
	}
	xproto.SendEvent(o.conn, false, e.Requestor, 0, string(notify.Bytes()))
}

// read converts the CLIPBOARD selection to target on a private connection,
// so the request never competes with serve for events.
func (o *x11Owner) read(target xproto.Atom) ([]byte, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("clipboard: x11: %w", err)
	}
	timer := time.AfterFunc(readTimeout, conn.Close)
	defer timer.Stop()
	defer conn.Close()

	screen := xproto.Setup(conn).DefaultScreen(conn)
	window, err := xproto.NewWindowId(conn)
	if err != nil {
		return nil, err
	}
	if err := xproto.CreateWindowChecked(conn, 0, window, screen.Root, 0, 0, 1, 1, 0,
		xproto.WindowClassInputOnly, 0, xproto.CwEventMask, []uint32{xproto.EventMaskPropertyChange}).Check(); err != nil {
		return nil, err
	}
	defer xproto.DestroyWindow(conn, window)

	if err := xproto.ConvertSelectionChecked(conn, window, o.atoms.clipboard, target, o.atoms.property, xproto.TimeCurrentTime).Check(); err != nil {
		return nil, err
	}
	for {
		ev, err := conn.WaitForEvent()
		if ev == nil && err == nil {
			return nil, fmt.Errorf("clipboard: no answer within %s", readTimeout)
		}
		if err != nil {
			return nil, err
		}
		e, ok := ev.(xproto.SelectionNotifyEvent)
		if !ok {
			continue
		}
		if e.Property == xproto.AtomNone {
			return nil, ErrEmpty
		}
		prop, perr := xproto.GetProperty(conn, true, window, e.Property, xproto.GetPropertyTypeAny, 0, (1<<31)-1).Reply()
		if perr != nil {
			return nil, perr
		}
		if len(prop.Value) == 0 {
			return nil, ErrEmpty
		}
		return append([]byte(nil), prop.Value...), nil
	}
}
