package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/example/photoedit/internal/photo"
	"github.com/example/photoedit/internal/script"
)

// composeCmd replays a session script and saves the result.
type composeCmd struct {
	*root
	fs     *flag.FlagSet
	file   string
	script string
	output string
	dryRun bool
}

func parseComposeCmd(args []string, r *root) (*composeCmd, error) {
	fs := flag.NewFlagSet("compose", flag.ContinueOnError)
	c := &composeCmd{root: r, fs: fs}
	fs.StringVar(&c.file, "file", "", "background photo (optional)")
	fs.StringVar(&c.script, "script", "", "YAML session script")
	fs.StringVar(&c.output, "output", "", "save to this file instead of the photo library")
	fs.BoolVar(&c.dryRun, "dry-run", false, "check the script and print it in canonical form without saving")
	fs.Usage = usageFunc(c)
	if err := fs.Parse(args); err != nil {
		return nil, &UsageError{of: c}
	}
	if c.script == "" {
		return nil, &UsageError{of: c}
	}
	return c, nil
}

func (c *composeCmd) Run() error {
	f, err := os.Open(c.script)
	if err != nil {
		return fmt.Errorf("compose: %w", err)
	}
	s, err := script.Parse(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("compose %s: %w", c.script, err)
	}
	if c.dryRun {
		out, err := s.Marshal()
		if err != nil {
			return fmt.Errorf("compose %s: %w", c.script, err)
		}
		_, err = c.stdout().Write(out)
		return err
	}

	ed, closeLibrary, err := c.newEditor(c.output)
	if err != nil {
		return err
	}
	defer closeLibrary()

	if c.file != "" {
		data, err := photo.FileSource{Path: c.file}.Pick(c.ctx)
		if err != nil {
			return fmt.Errorf("compose %s: %w", c.file, err)
		}
		if err := ed.LoadPhoto(data); err != nil {
			return fmt.Errorf("compose %s: %w", c.file, err)
		}
	}
	if err := s.Run(ed); err != nil {
		return fmt.Errorf("compose %s: %w", c.script, err)
	}
	loc, err := ed.Save(c.ctx)
	if err != nil {
		return fmt.Errorf("compose: %w", err)
	}
	fmt.Fprintln(c.stdout(), loc.String())
	return nil
}
