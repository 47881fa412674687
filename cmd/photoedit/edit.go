package main

import (
	"flag"
	"fmt"
	"path/filepath"

	"github.com/example/photoedit/internal/photo"
	"github.com/example/photoedit/internal/ui"
)

// editCmd opens the editing window.
type editCmd struct {
	*root
	fs     *flag.FlagSet
	file   string
	output string
	portal bool
	width  int
	height int
}

func parseEditCmd(args []string, r *root) (*editCmd, error) {
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	e := &editCmd{root: r, fs: fs}
	fs.StringVar(&e.file, "file", "", "photo to open")
	fs.StringVar(&e.output, "output", "", "save to this file instead of the photo library")
	fs.BoolVar(&e.portal, "portal", true, "use the desktop portal for the Open and Capture buttons")
	fs.IntVar(&e.width, "width", ui.DefaultWidth, "window width in pixels")
	fs.IntVar(&e.height, "height", ui.DefaultHeight, "window height in pixels")
	fs.Usage = usageFunc(e)
	if err := fs.Parse(args); err != nil {
		return nil, &UsageError{of: e}
	}
	if e.width <= 0 || e.height <= 0 {
		return nil, fmt.Errorf("edit: window size must be positive")
	}
	return e, nil
}

func (e *editCmd) Run() error {
	status := ui.NewStatus()
	ed, closeLibrary, err := e.newEditor(e.output, status)
	if err != nil {
		return err
	}
	defer closeLibrary()

	if e.file != "" {
		if err := ed.PickPhoto(e.ctx, photo.FileSource{Path: e.file}); err != nil {
			return fmt.Errorf("edit %s: %w", e.file, err)
		}
	}

	scr := ui.NewScreen(ed, status, e.sources()...)

	title := "PhotoEdit"
	if e.file != "" {
		title += " - " + filepath.Base(e.file)
	}
	return ui.NewWindow(e.ctx, scr,
		ui.WithTheme(e.activeTheme),
		ui.WithSize(e.width, e.height),
		ui.WithTitle(title),
	).Run()
}

// sources picks the toolbar photo sources. Without the portal there is no
// way to browse for a file, so Open and Capture report that instead.
func (e *editCmd) sources() []ui.ScreenOption {
	opts := []ui.ScreenOption{ui.WithPasteSource(photo.ClipboardSource{})}
	if e.portal {
		opts = append(opts,
			ui.WithOpenSource(photo.FileChooserSource{Title: "Open Photo"}),
			ui.WithCaptureSource(photo.ScreenshotSource{Interactive: true}),
		)
	}
	return opts
}
