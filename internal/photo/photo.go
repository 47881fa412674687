// Package photo provides the sources a photo can be picked from.
package photo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/example/photoedit/internal/clipboard"
	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	// ErrCancelled is returned when the user dismissed the picker.
	ErrCancelled = errors.New("photo: pick cancelled")
	// ErrNotImage is returned for bytes that are not a recognised image.
	ErrNotImage = errors.New("photo: not an image")
)

// Source yields encoded photo bytes.
type Source interface {
	Pick(ctx context.Context) ([]byte, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]byte, error)

// Pick calls f.
func (f SourceFunc) Pick(ctx context.Context) ([]byte, error) { return f(ctx) }

// Kind describes sniffed image bytes.
type Kind struct {
	Extension string
	MIME      string
	Width     int
	Height    int
}

// Sniff reports the image type of data, or ErrNotImage. Data must both be
// recognised as an image and decode with one of the registered codecs, so
// formats such as PSD or HEIC are rejected here rather than at compose time.
func Sniff(data []byte) (Kind, error) {
	if len(data) == 0 {
		return Kind{}, fmt.Errorf("%w: empty", ErrNotImage)
	}
	if !filetype.IsImage(data) {
		return Kind{}, ErrNotImage
	}
	t, err := filetype.Image(data)
	if err != nil || t == filetype.Unknown {
		return Kind{}, ErrNotImage
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Kind{}, fmt.Errorf("%w: %s: %v", ErrNotImage, t.MIME.Value, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Kind{}, fmt.Errorf("%w: %s has no pixels", ErrNotImage, t.MIME.Value)
	}
	return Kind{Extension: t.Extension, MIME: t.MIME.Value, Width: cfg.Width, Height: cfg.Height}, nil
}

// FileSource reads a photo from a path.
type FileSource struct {
	Path string
}

func (s FileSource) Pick(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Path == "" {
		return nil, ErrCancelled
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}
	if _, err := Sniff(data); err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	return data, nil
}

// ClipboardSource takes the PNG currently on the clipboard.
type ClipboardSource struct{}

func (ClipboardSource) Pick(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := clipboard.ReadPNG()
	if err != nil {
		return nil, fmt.Errorf("clipboard: %w", err)
	}
	if _, err := Sniff(data); err != nil {
		return nil, fmt.Errorf("clipboard: %w", err)
	}
	return data, nil
}
