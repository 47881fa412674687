package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/example/photoedit/internal/compose"
	"github.com/example/photoedit/internal/library"
	"github.com/example/photoedit/internal/session"
	"github.com/example/photoedit/internal/theme"
)

// Notify holds notification settings.
type Notify struct {
	Save  bool
	Load  bool
	Error bool
}

// Config holds the application configuration.
type Config struct {
	Theme   string
	SaveDir string

	Library    string
	SQLitePath string
	S3Bucket   string
	S3Prefix   string

	FontSize     float64
	Anchor       string
	Fit          string
	TextShadow   bool
	ReopenPolicy string

	Notify Notify
	Themes map[string]*theme.Theme
}

// New creates a new Config with defaults.
func New() *Config {
	return &Config{
		Theme: "", // empty so env and the built-in default can apply
		Notify: Notify{
			Save:  false,
			Load:  false,
			Error: true,
		},
		Themes: make(map[string]*theme.Theme),
	}
}

// LibraryConfig returns the sink configuration. output, when set, overrides
// the configured backend with a single file.
func (c *Config) LibraryConfig(output string) library.Config {
	lc := library.Config{
		Backend:    c.Library,
		Dir:        c.SaveDir,
		SQLitePath: c.SQLitePath,
		S3Bucket:   c.S3Bucket,
		S3Prefix:   c.S3Prefix,
	}
	if output != "" {
		lc.Backend = library.BackendFile
		lc.Path = output
	}
	return lc
}

// ComposeOptions validates the composition keys and returns engine options.
func (c *Config) ComposeOptions() (compose.Options, error) {
	opts := compose.DefaultOptions()
	if c.FontSize > 0 {
		opts.FontSize = c.FontSize
	}
	anchor, err := compose.ParseAnchor(c.Anchor)
	if err != nil {
		return opts, err
	}
	fit, err := compose.ParseFit(c.Fit)
	if err != nil {
		return opts, err
	}
	opts.Anchor = anchor
	opts.Fit = fit
	opts.TextShadow = c.TextShadow
	return opts, nil
}

// Policy returns the configured reopen policy.
func (c *Config) Policy() (session.ReopenPolicy, error) {
	return session.ParseReopenPolicy(c.ReopenPolicy)
}

// String implements fmt.Stringer and returns the configuration in RC format.
func (c *Config) String() string {
	var sb strings.Builder

	root := []struct{ key, value string }{
		{"theme", c.Theme},
		{"save_dir", c.SaveDir},
		{"library", c.Library},
		{"sqlite_path", c.SQLitePath},
		{"s3_bucket", c.S3Bucket},
		{"s3_prefix", c.S3Prefix},
		{"anchor", c.Anchor},
		{"fit", c.Fit},
		{"reopen_policy", c.ReopenPolicy},
	}
	for _, kv := range root {
		if kv.value != "" {
			fmt.Fprintf(&sb, "%s = %s\n", kv.key, kv.value)
		}
	}
	if c.FontSize > 0 {
		fmt.Fprintf(&sb, "font_size = %g\n", c.FontSize)
	}
	fmt.Fprintf(&sb, "text_shadow = %v\n", c.TextShadow)
	sb.WriteString("\n")

	sb.WriteString("[notify]\n")
	fmt.Fprintf(&sb, "save = %v\n", c.Notify.Save)
	fmt.Fprintf(&sb, "load = %v\n", c.Notify.Load)
	fmt.Fprintf(&sb, "error = %v\n", c.Notify.Error)
	sb.WriteString("\n")

	// Sort keys for deterministic output
	var themeNames []string
	for name := range c.Themes {
		themeNames = append(themeNames, name)
	}
	sort.Strings(themeNames)

	for _, name := range themeNames {
		t := c.Themes[name]
		fmt.Fprintf(&sb, "[theme.%s]\n", name)
		fmt.Fprintf(&sb, "Name: %s\n", t.Name)
		for _, field := range theme.Fields() {
			col, _ := t.Color(field)
			fmt.Fprintf(&sb, "%s: %s\n", field, theme.FormatColor(col))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
