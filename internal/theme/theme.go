// Package theme holds the colour palette of the editing window.
package theme

import (
	"image/color"
)

// Theme defines the colours of the editing window.
type Theme struct {
	Name string

	Background color.RGBA // behind the canvas
	Foreground color.RGBA // status line text

	ToolbarBackground color.RGBA

	ButtonBackground      color.RGBA
	ButtonBackgroundHover color.RGBA
	ButtonBackgroundPress color.RGBA
	ButtonText            color.RGBA
	ButtonTextDisabled    color.RGBA
	ButtonBorder          color.RGBA

	// Text entry bar shown while an annotation is being edited.
	EditorBackground color.RGBA
	EditorText       color.RGBA
	EditorCaret      color.RGBA

	// Outline around the annotation being dragged or edited.
	Selection color.RGBA

	CheckerLight color.RGBA
	CheckerDark  color.RGBA
}

// Default returns the built-in light theme.
func Default() *Theme {
	return &Theme{
		Name:                  "Default",
		Background:            color.RGBA{220, 220, 220, 255},
		Foreground:            color.RGBA{0, 0, 0, 255},
		ToolbarBackground:     color.RGBA{230, 230, 230, 255},
		ButtonBackground:      color.RGBA{200, 200, 200, 255},
		ButtonBackgroundHover: color.RGBA{180, 180, 180, 255},
		ButtonBackgroundPress: color.RGBA{150, 150, 150, 255},
		ButtonText:            color.RGBA{0, 0, 0, 255},
		ButtonTextDisabled:    color.RGBA{130, 130, 130, 255},
		ButtonBorder:          color.RGBA{0, 0, 0, 255},
		EditorBackground:      color.RGBA{255, 255, 255, 255},
		EditorText:            color.RGBA{0, 0, 0, 255},
		EditorCaret:           color.RGBA{0, 90, 200, 255},
		Selection:             color.RGBA{0, 120, 215, 255},
		CheckerLight:          color.RGBA{220, 220, 220, 255},
		CheckerDark:           color.RGBA{192, 192, 192, 255},
	}
}
