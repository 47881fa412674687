package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/example/photoedit/internal/compose"
	"github.com/example/photoedit/internal/config"
	"github.com/example/photoedit/internal/editor"
	"github.com/example/photoedit/internal/library"
	"github.com/example/photoedit/internal/notify"
	"github.com/example/photoedit/internal/theme"
)

var (
	version            = "dev"
	commit             = ""
	date               = ""
	configPathOverride = ""
)

type runnable interface{ Run() error }

type root struct {
	fs          *flag.FlagSet
	program     string
	notifier    *notify.Notifier
	config      *config.Config
	library     string
	saveAlerts  bool
	loadAlerts  bool
	errorAlerts bool
	verbose     bool
	themeName   string
	activeTheme *theme.Theme
	ctx         context.Context
	out         io.Writer
}

func (r *root) stdout() io.Writer {
	if r.out == nil {
		return os.Stdout
	}
	return r.out
}

func (r *root) Program() string {
	return r.program
}

func (r *root) FlagSet() *flag.FlagSet {
	return r.fs
}

func newRoot() *root {
	loader := config.NewLoader(version, configPathOverride)
	cfg, err := loader.Load()
	if err != nil {
		logrus.WithError(err).Warn("failed to load config")
		cfg = config.New()
	}
	// Precedence: CLI > Env > Config > Default
	cfg.ApplyEnv(nil)

	r := &root{
		fs:       flag.NewFlagSet("photoedit", flag.ExitOnError),
		program:  "photoedit",
		notifier: notify.New(notify.LoadPreferences()),
		config:   cfg,
		ctx:      context.Background(),
	}
	r.fs.StringVar(&r.library, "library", cfg.Library, "where saved photos go (dir, file, sqlite, s3, clipboard)")
	r.fs.BoolVar(&r.saveAlerts, "notify-save", cfg.Notify.Save, "show a desktop notification after saving a photo")
	r.fs.BoolVar(&r.loadAlerts, "notify-load", cfg.Notify.Load, "show a desktop notification after opening a photo")
	r.fs.BoolVar(&r.errorAlerts, "notify-error", cfg.Notify.Error, "show a desktop notification when something fails")
	r.fs.StringVar(&r.themeName, "theme", cfg.Theme, "color theme to use (default, dark, or a theme file)")
	r.fs.BoolVar(&r.verbose, "v", false, "verbose logging")
	r.fs.Usage = usageFunc(r)
	return r
}

func (r *root) Run(args []string) error {
	if err := r.fs.Parse(args); err != nil {
		return err
	}
	if r.fs.NArg() < 1 {
		return &UsageError{of: r}
	}
	if r.verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	r.config.Library = r.library
	r.config.Theme = r.themeName
	r.config.Notify = config.Notify{Save: r.saveAlerts, Load: r.loadAlerts, Error: r.errorAlerts}
	r.notifier.Enable(notify.EventSave, r.saveAlerts)
	r.notifier.Enable(notify.EventLoad, r.loadAlerts)
	r.notifier.Enable(notify.EventError, r.errorAlerts)
	r.activeTheme = r.resolveTheme(r.themeName)

	cmdName := r.fs.Arg(0)
	subArgs := r.fs.Args()[1:]

	var (
		cmd runnable
		err error
	)
	switch cmdName {
	case "edit":
		cmd, err = parseEditCmd(subArgs, r)
	case "compose":
		cmd, err = parseComposeCmd(subArgs, r)
	case "config":
		cmd, err = parseConfigCmd(subArgs, r)
	case "library":
		cmd, err = parseLibraryCmd(subArgs, r)
	case "version":
		cmd = &versionCmd{r: r}
	default:
		err = &UsageError{of: r}
	}
	if err != nil {
		return err
	}
	return cmd.Run()
}

// resolveTheme prefers themes defined in the config file, then the theme
// loader (file, embedded, config dir, system dir).
func (r *root) resolveTheme(name string) *theme.Theme {
	if t, ok := r.config.Themes[name]; ok {
		return t
	}
	t, err := theme.NewLoader().Load(name)
	if err != nil {
		if name != "" && !strings.EqualFold(name, "default") {
			logrus.WithError(err).WithField("theme", name).Warn("failed to load theme, using default")
		}
		return theme.Default()
	}
	return t
}

// newEditor builds an editor wired to the configured library. The returned
// close func releases the library.
func (r *root) newEditor(output string, extra ...editor.Alerter) (*editor.Editor, func(), error) {
	opts, err := r.config.ComposeOptions()
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	policy, err := r.config.Policy()
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	sink, err := library.Open(r.ctx, r.config.LibraryConfig(output))
	if err != nil {
		return nil, nil, fmt.Errorf("open library: %w", err)
	}
	alerters := append(editor.Alerters{r.notifier}, extra...)
	ed := editor.New(
		editor.WithSink(sink),
		editor.WithAlerter(alerters),
		editor.WithEngine(compose.New(opts)),
		editor.WithReopenPolicy(policy),
	)
	closer := func() {
		if err := library.Close(sink); err != nil {
			logrus.WithError(err).Warn("close library")
		}
	}
	return ed, closer, nil
}

func main() {
	r := newRoot()
	if err := r.Run(os.Args[1:]); err != nil {
		var uerr *UsageError
		if errors.As(err, &uerr) {
			fmt.Fprintln(os.Stderr, uerr.Error())
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
