package config

import (
	"os"
	"strconv"
)

// ApplyEnv overrides keys from PHOTOEDIT_* environment variables.
// Unparseable values are ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	str := map[string]*string{
		"PHOTOEDIT_THEME":         &c.Theme,
		"PHOTOEDIT_SAVE_DIR":      &c.SaveDir,
		"PHOTOEDIT_LIBRARY":       &c.Library,
		"PHOTOEDIT_SQLITE_PATH":   &c.SQLitePath,
		"PHOTOEDIT_S3_BUCKET":     &c.S3Bucket,
		"PHOTOEDIT_S3_PREFIX":     &c.S3Prefix,
		"PHOTOEDIT_ANCHOR":        &c.Anchor,
		"PHOTOEDIT_FIT":           &c.Fit,
		"PHOTOEDIT_REOPEN_POLICY": &c.ReopenPolicy,
	}
	for name, dst := range str {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
	flags := map[string]*bool{
		"PHOTOEDIT_TEXT_SHADOW":  &c.TextShadow,
		"PHOTOEDIT_NOTIFY_SAVE":  &c.Notify.Save,
		"PHOTOEDIT_NOTIFY_LOAD":  &c.Notify.Load,
		"PHOTOEDIT_NOTIFY_ERROR": &c.Notify.Error,
	}
	for name, dst := range flags {
		if v, ok := lookup(name); ok {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}
	if v, ok := lookup("PHOTOEDIT_FONT_SIZE"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			c.FontSize = f
		}
	}
}
