package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/photoedit/internal/library"
)

// libraryCmd browses the SQLite photo library.
type libraryCmd struct {
	*root
	fs     *flag.FlagSet
	path   string
	output string
}

func parseLibraryCmd(args []string, r *root) (*libraryCmd, error) {
	fs := flag.NewFlagSet("library", flag.ContinueOnError)
	c := &libraryCmd{root: r, fs: fs}
	fs.StringVar(&c.path, "db", r.config.SQLitePath, "photo library database")
	fs.StringVar(&c.output, "output", "", "file to export to (export only)")
	fs.Usage = usageFunc(c)
	if err := fs.Parse(args); err != nil {
		return nil, &UsageError{of: c}
	}
	if fs.NArg() < 1 {
		return nil, &UsageError{of: c}
	}
	return c, nil
}

func (c *libraryCmd) Run() error {
	args := c.fs.Args()
	switch args[0] {
	case "list":
		if len(args) != 1 {
			return &UsageError{of: c}
		}
	case "export":
		if len(args) != 2 || c.output == "" {
			return &UsageError{of: c}
		}
	default:
		return fmt.Errorf("unknown library command: %s", args[0])
	}

	lib, err := library.OpenLibrary(c.ctx, c.path)
	if err != nil {
		return fmt.Errorf("open library: %w", err)
	}
	defer func() {
		if err := lib.Close(); err != nil {
			logrus.WithError(err).Warn("close library")
		}
	}()

	if args[0] == "list" {
		return c.list(lib)
	}
	return c.export(lib, args[1])
}

func (c *libraryCmd) list(lib *library.SQLiteSink) error {
	photos, err := lib.List(c.ctx)
	if err != nil {
		return fmt.Errorf("list photos: %w", err)
	}
	if len(photos) == 0 {
		fmt.Fprintln(c.stdout(), "no photos saved")
		return nil
	}
	tw := tabwriter.NewWriter(c.stdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSAVED\tSIZE")
	for _, p := range photos {
		fmt.Fprintf(tw, "%s\t%s\t%dx%d\n", p.ID, p.CreatedAt.Local().Format(time.DateTime), p.Width, p.Height)
	}
	return tw.Flush()
}

func (c *libraryCmd) export(lib *library.SQLiteSink, id string) error {
	p, err := lib.Load(c.ctx, id)
	if err != nil {
		return fmt.Errorf("export %s: %w", id, err)
	}
	if err := os.WriteFile(c.output, p.Data, 0o644); err != nil {
		return fmt.Errorf("export %s: %w", id, err)
	}
	fmt.Fprintln(c.stdout(), c.output)
	return nil
}
