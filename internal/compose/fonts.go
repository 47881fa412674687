package compose

import (
	"fmt"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// DefaultFontSize is the label size in points.
const DefaultFontSize = 30

var (
	parseOnce   sync.Once
	regularFont *opentype.Font
	boldFont    *opentype.Font
	parseErr    error

	faces sync.Map // faceKey -> font.Face
)

type faceKey struct {
	bold bool
	size float64
}

func parseFonts() {
	regularFont, parseErr = opentype.Parse(goregular.TTF)
	if parseErr != nil {
		parseErr = fmt.Errorf("parse regular font: %w", parseErr)
		return
	}
	boldFont, parseErr = opentype.Parse(gobold.TTF)
	if parseErr != nil {
		parseErr = fmt.Errorf("parse bold font: %w", parseErr)
	}
}

// Face returns the cached label face for the given weight at size pixels.
// opentype faces are not safe for concurrent use; Engine serializes drawing.
func Face(bold bool, size float64) (font.Face, error) {
	if size <= 0 {
		size = DefaultFontSize
	}
	key := faceKey{bold, size}
	if f, ok := faces.Load(key); ok {
		return f.(font.Face), nil
	}
	parseOnce.Do(parseFonts)
	if parseErr != nil {
		return nil, parseErr
	}
	src := regularFont
	if bold {
		src = boldFont
	}
	face, err := opentype.NewFace(src, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, err
	}
	actual, _ := faces.LoadOrStore(key, face)
	return actual.(font.Face), nil
}
