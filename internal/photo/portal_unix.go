//go:build linux || freebsd || openbsd || netbsd || dragonfly

package photo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"
)

const (
	portalDest       = "org.freedesktop.portal.Desktop"
	portalPath       = "/org/freedesktop/portal/desktop"
	screenshotMethod = "org.freedesktop.portal.Screenshot.Screenshot"
	openFileMethod   = "org.freedesktop.portal.FileChooser.OpenFile"
	portalResponse   = "org.freedesktop.portal.Request.Response"
	responseSuccess  = uint32(0)
	responseCancel   = uint32(1)

	// filterMIME is the pattern kind for a MIME type in a FileChooser filter.
	filterMIME = uint32(1)
)

// ImageMIMETypes are the types offered by the file chooser. They match the
// codecs Sniff can decode.
var ImageMIMETypes = []string{
	"image/png",
	"image/jpeg",
	"image/gif",
	"image/bmp",
	"image/tiff",
	"image/webp",
}

var portalHandleToken = func() string {
	return fmt.Sprintf("photoedit_%d", time.Now().UnixNano())
}

type filterPattern struct {
	Kind    uint32
	Pattern string
}

type fileFilter struct {
	Name     string
	Patterns []filterPattern
}

// FileChooserSource lets the user pick a photo file through the
// xdg-desktop-portal file chooser. The chosen file is left in place.
type FileChooserSource struct {
	Title string
}

func (s FileChooserSource) Pick(ctx context.Context) ([]byte, error) {
	title := s.Title
	if title == "" {
		title = "Open Photo"
	}
	results, err := portalRequest(ctx, "file chooser", openFileMethod, "", title, fileChooserOptions())
	if err != nil {
		return nil, err
	}
	path, err := resultPath(results, "uris")
	if err != nil {
		return nil, fmt.Errorf("portal file chooser: %w", err)
	}
	return readPhoto("portal file chooser", path, false)
}

// ScreenshotSource captures the desktop through the xdg-desktop-portal
// screenshot interface. With Interactive set the desktop shows its own
// capture dialog.
type ScreenshotSource struct {
	Interactive bool
}

func (s ScreenshotSource) Pick(ctx context.Context) ([]byte, error) {
	results, err := portalRequest(ctx, "screenshot", screenshotMethod, "", screenshotOptions(s.Interactive))
	if err != nil {
		return nil, err
	}
	path, err := resultPath(results, "uri")
	if err != nil {
		return nil, fmt.Errorf("portal screenshot: %w", err)
	}
	return readPhoto("portal screenshot", path, true)
}

// portalRequest calls method and waits for the Request.Response signal of
// the returned handle.
func portalRequest(ctx context.Context, name, method string, args ...interface{}) (map[string]dbus.Variant, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("dbus connect: %w", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			logrus.WithError(cerr).Debug("dbus close")
		}
	}()

	obj := conn.Object(portalDest, dbus.ObjectPath(portalPath))
	var handle dbus.ObjectPath
	call := obj.CallWithContext(ctx, method, 0, args...)
	if call.Err != nil {
		return nil, fmt.Errorf("portal %s call: %w", name, call.Err)
	}
	if err := call.Store(&handle); err != nil {
		return nil, fmt.Errorf("portal %s response: %w", name, err)
	}

	rule := fmt.Sprintf("type='signal',interface='org.freedesktop.portal.Request',member='Response',path='%s'", handle)
	if err := conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.AddMatch", 0, rule).Err; err != nil {
		return nil, fmt.Errorf("portal %s subscribe: %w", name, err)
	}
	defer conn.BusObject().Call("org.freedesktop.DBus.RemoveMatch", 0, rule)

	sigc := make(chan *dbus.Signal, 1)
	conn.Signal(sigc)
	defer conn.RemoveSignal(sigc)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case sig, ok := <-sigc:
			if !ok {
				return nil, fmt.Errorf("portal %s: bus closed", name)
			}
			if sig.Path != handle || sig.Name != portalResponse {
				continue
			}
			results, err := parseResponse(sig.Body)
			if err != nil {
				return nil, fmt.Errorf("portal %s: %w", name, err)
			}
			return results, nil
		}
	}
}

func screenshotOptions(interactive bool) map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"interactive":  dbus.MakeVariant(interactive),
		"modal":        dbus.MakeVariant(interactive),
		"handle_token": dbus.MakeVariant(portalHandleToken()),
	}
}

func fileChooserOptions() map[string]dbus.Variant {
	images := fileFilter{Name: "Images"}
	for _, m := range ImageMIMETypes {
		images.Patterns = append(images.Patterns, filterPattern{Kind: filterMIME, Pattern: m})
	}
	return map[string]dbus.Variant{
		"handle_token":   dbus.MakeVariant(portalHandleToken()),
		"modal":          dbus.MakeVariant(true),
		"multiple":       dbus.MakeVariant(false),
		"filters":        dbus.MakeVariant([]fileFilter{images}),
		"current_filter": dbus.MakeVariant(images),
	}
}

// parseResponse checks the response code of a Request.Response body and
// returns its results map.
func parseResponse(body []interface{}) (map[string]dbus.Variant, error) {
	if len(body) < 2 {
		return nil, errors.New("short response")
	}
	code, ok := body[0].(uint32)
	if !ok {
		return nil, fmt.Errorf("response code is %T", body[0])
	}
	switch code {
	case responseSuccess:
	case responseCancel:
		return nil, ErrCancelled
	default:
		return nil, fmt.Errorf("failed with code %d", code)
	}
	results, ok := body[1].(map[string]dbus.Variant)
	if !ok {
		return nil, fmt.Errorf("results are %T", body[1])
	}
	return results, nil
}

// resultPath extracts a local file path from the uri (a string) or uris (a
// string array, first entry used) result.
func resultPath(results map[string]dbus.Variant, key string) (string, error) {
	v, ok := results[key]
	if !ok {
		return "", fmt.Errorf("response missing %s", key)
	}
	var raw string
	switch val := v.Value().(type) {
	case string:
		raw = val
	case []string:
		if len(val) == 0 {
			return "", ErrCancelled
		}
		raw = val[0]
	default:
		return "", fmt.Errorf("%s is %T", key, val)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "file" {
		return "", fmt.Errorf("unexpected uri %q", raw)
	}
	return u.Path, nil
}

// readPhoto reads and validates the photo at path. Screenshots are
// temporary files owned by us and are removed after reading.
func readPhoto(name, path string, remove bool) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s image: %w", name, err)
	}
	if remove {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logrus.WithError(err).WithField("path", path).Warn("remove portal screenshot")
		}
	}
	if _, err := Sniff(data); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return data, nil
}
