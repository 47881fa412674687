//go:build !(linux || freebsd || openbsd || netbsd || dragonfly)

package photo

import (
	"context"
	"errors"
)

var errNoPortal = errors.New("the desktop portal is not available on this platform")

// FileChooserSource is only available on freedesktop hosts.
type FileChooserSource struct {
	Title string
}

func (FileChooserSource) Pick(context.Context) ([]byte, error) { return nil, errNoPortal }

// ScreenshotSource is only available on freedesktop hosts.
type ScreenshotSource struct {
	Interactive bool
}

func (ScreenshotSource) Pick(context.Context) ([]byte, error) { return nil, errNoPortal }
