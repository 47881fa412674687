// Package clipboard moves PNG bytes and text to and from the system
// clipboard.
package clipboard

import "errors"

var (
	// ErrNoDisplay is returned on X11/Wayland hosts without a display.
	ErrNoDisplay = errors.New("clipboard initialization requires DISPLAY or WAYLAND_DISPLAY")
	// ErrEmpty is returned when the clipboard has no data of the requested kind.
	ErrEmpty = errors.New("clipboard is empty")
	// ErrUnsupported is returned on builds without clipboard support.
	ErrUnsupported = errors.New("clipboard is not supported on this platform")
)
