package compose

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"sync"

	"github.com/anthonynsimon/bild/transform"
	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Fit is how the background photo is fitted into the frame.
type Fit int

const (
	// FitContain scales the photo as large as possible while keeping it
	// entirely inside the frame. The photo is centred; uncovered pixels stay
	// transparent.
	FitContain Fit = iota
	// FitFill stretches the photo to the frame, ignoring aspect ratio.
	FitFill
	// FitCover scales the photo to cover the frame and crops the overflow
	// around the centre.
	FitCover
)

func (f Fit) String() string {
	switch f {
	case FitFill:
		return "fill"
	case FitCover:
		return "cover"
	default:
		return "contain"
	}
}

// ParseFit maps a config value to a Fit.
func ParseFit(s string) (Fit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "contain", "aspect":
		return FitContain, nil
	case "fill", "stretch":
		return FitFill, nil
	case "cover":
		return FitCover, nil
	}
	return FitContain, fmt.Errorf("unknown fit %q", s)
}

// DecodeImage sniffs and decodes photo bytes.
func DecodeImage(data []byte) (image.Image, string, error) {
	if !filetype.IsImage(data) {
		return nil, "", fmt.Errorf("%w: not an image", ErrBackground)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrBackground, err)
	}
	if img.Bounds().Empty() {
		return nil, "", fmt.Errorf("%w: empty image", ErrBackground)
	}
	return img, format, nil
}

// fitImage resizes img for a box of size and returns it with the rectangle it
// occupies inside the box.
func fitImage(img image.Image, size image.Point, fit Fit) (image.Image, image.Rectangle) {
	box := image.Rectangle{Max: size}
	sz := img.Bounds().Size()
	iw, ih := float64(sz.X), float64(sz.Y)
	bw, bh := float64(size.X), float64(size.Y)
	iar := iw / ih
	bar := bw / bh

	switch fit {
	case FitFill:
		return transform.Resize(img, size.X, size.Y, transform.Linear), box
	case FitCover:
		var w, h float64
		if iar < bar {
			w, h = bw, ih*(bw/iw)
		} else {
			w, h = iw*(bh/ih), bh
		}
		r := transform.Resize(img, atLeast1(w), atLeast1(h), transform.Linear)
		// crop around the centre by shifting the source origin
		off := image.Pt((r.Bounds().Dx()-size.X)/2, (r.Bounds().Dy()-size.Y)/2)
		return r.SubImage(box.Add(off)), box
	default:
		var w, h float64
		if iar >= bar {
			w, h = bw, ih*(bw/iw)
		} else {
			w, h = iw*(bh/ih), bh
		}
		r := transform.Resize(img, atLeast1(w), atLeast1(h), transform.Linear)
		rs := r.Bounds().Size()
		at := image.Pt((size.X-rs.X)/2, (size.Y-rs.Y)/2)
		return r, image.Rectangle{Min: at, Max: at.Add(rs)}
	}
}

func atLeast1(v float64) int {
	n := int(v + 0.5)
	if n < 1 {
		return 1
	}
	return n
}

// Background is a decoded photo. It keeps the last fitting so that repeated
// renders at the same size skip the decode and the resample. Safe for
// concurrent use.
type Background struct {
	img image.Image

	mu     sync.Mutex
	size   image.Point
	fit    Fit
	fitted image.Image
	at     image.Rectangle
	fits   int
}

// NewBackground decodes photo bytes once.
func NewBackground(data []byte) (*Background, error) {
	img, _, err := DecodeImage(data)
	if err != nil {
		return nil, err
	}
	return &Background{img: img}, nil
}

// Bounds returns the size of the decoded photo.
func (b *Background) Bounds() image.Rectangle { return b.img.Bounds() }

func (b *Background) fitTo(size image.Point, fit Fit) (image.Image, image.Rectangle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fitted == nil || b.size != size || b.fit != fit {
		b.fitted, b.at = fitImage(b.img, size, fit)
		b.size, b.fit = size, fit
		b.fits++
	}
	return b.fitted, b.at
}
