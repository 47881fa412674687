package main

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/photoedit/internal/config"
	"github.com/example/photoedit/internal/library"
	"github.com/example/photoedit/internal/notify"
	"github.com/example/photoedit/internal/theme"
)

func testRoot(out *bytes.Buffer) *root {
	r := &root{
		program:     "photoedit",
		config:      config.New(),
		notifier:    notify.New(notify.DefaultPreferences()),
		activeTheme: theme.Default(),
		ctx:         context.Background(),
	}
	if out != nil {
		r.out = out
	}
	return r
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestUsageTemplates(t *testing.T) {
	r := testRoot(nil)
	r.fs = newRoot().fs
	edit, err := parseEditCmd(nil, r)
	if err != nil {
		t.Fatalf("parse edit: %v", err)
	}
	cfg, err := parseConfigCmd(nil, r)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	for _, tc := range []struct {
		of   HelpData
		want []string
	}{
		{r, []string{"Usage: photoedit", "-library", "-notify-load", "compose"}},
		{edit, []string{"Usage: photoedit edit", "-file", "-portal"}},
		{cfg, []string{"Usage: photoedit config", "print"}},
	} {
		msg := (&UsageError{of: tc.of}).Error()
		for _, w := range tc.want {
			if !strings.Contains(msg, w) {
				t.Errorf("%s help missing %q:\n%s", tc.of.Template(), w, msg)
			}
		}
	}
}

func TestComposeRequiresScript(t *testing.T) {
	_, err := parseComposeCmd([]string{"-output", "x.png"}, testRoot(nil))
	var uerr *UsageError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected usage error, got %v", err)
	}
	if !strings.Contains(uerr.Error(), "Script format") {
		t.Errorf("compose help should describe the script format")
	}
}

func TestComposeWritesOutput(t *testing.T) {
	dir := t.TempDir()
	scriptPath := writeFile(t, dir, "session.yaml", `
frame: {width: 50, height: 40, scale: 2}
strokes:
  - {color: red, points: [[5, 5], [20, 5]]}
actions:
  - {op: add, text: Hi}
  - {op: accept}
`)
	output := filepath.Join(dir, "out", "result.png")

	var out bytes.Buffer
	r := testRoot(&out)
	cmd, err := parseComposeCmd([]string{"-script", scriptPath, "-output", output}, r)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := cmd.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "file:"+output {
		t.Errorf("printed location %q", got)
	}

	f, err := os.Open(output)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 100, 80) {
		t.Errorf("bounds = %v", img.Bounds())
	}
}

func TestComposeWithBackgroundPhoto(t *testing.T) {
	dir := t.TempDir()
	bg := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for i := range bg.Pix {
		bg.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, bg); err != nil {
		t.Fatal(err)
	}
	photoPath := writeFile(t, dir, "photo.png", buf.String())
	scriptPath := writeFile(t, dir, "s.yaml", "frame: {width: 10, height: 10}\n")
	output := filepath.Join(dir, "r.png")

	cmd, err := parseComposeCmd([]string{"-file", photoPath, "-script", scriptPath, "-output", output}, testRoot(&bytes.Buffer{}))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := cmd.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	f, err := os.Open(output)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, _, a := img.At(5, 5).RGBA(); a != 0xffff {
		t.Errorf("background should be opaque, alpha %x", a)
	}
}

func TestComposeBadScript(t *testing.T) {
	dir := t.TempDir()
	scriptPath := writeFile(t, dir, "bad.yaml", "frame: {width: 0, height: 10}\n")
	cmd, err := parseComposeCmd([]string{"-script", scriptPath, "-output", filepath.Join(dir, "o.png")}, testRoot(&bytes.Buffer{}))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := cmd.Run(); err == nil || !strings.Contains(err.Error(), "invalid script") {
		t.Fatalf("expected script error, got %v", err)
	}
}

func TestComposeRejectsBadConfig(t *testing.T) {
	dir := t.TempDir()
	scriptPath := writeFile(t, dir, "s.yaml", "frame: {width: 10, height: 10}\n")
	r := testRoot(&bytes.Buffer{})
	r.config.Fit = "zoom"
	cmd, err := parseComposeCmd([]string{"-script", scriptPath, "-output", filepath.Join(dir, "o.png")}, r)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := cmd.Run(); err == nil || !strings.Contains(err.Error(), "config") {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestConfigPrint(t *testing.T) {
	var out bytes.Buffer
	r := testRoot(&out)
	r.config.Library = "sqlite"
	cmd, err := parseConfigCmd([]string{"print"}, r)
	if err != nil {
		t.Fatal(err)
	}
	if err := cmd.Run(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "library = sqlite") || !strings.Contains(out.String(), "[notify]") {
		t.Errorf("unexpected config output:\n%s", out.String())
	}
}

func TestConfigUnknownSubcommand(t *testing.T) {
	cmd, err := parseConfigCmd([]string{"delete"}, testRoot(nil))
	if err != nil {
		t.Fatal(err)
	}
	if err := cmd.Run(); err == nil {
		t.Fatal("expected error")
	}
}

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	if err := (&versionCmd{r: testRoot(&out)}).Run(); err != nil {
		t.Fatal(err)
	}
	if got := out.String(); got != "photoedit version dev\n" {
		t.Errorf("version output %q", got)
	}
}

func TestRootFlagsOverrideConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PHOTOEDIT_LIBRARY", "clipboard")
	r := newRoot()
	var out bytes.Buffer
	r.out = &out
	if err := r.Run([]string{"-library", "sqlite", "-theme", "dark", "-notify-load", "config", "print"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if r.config.Library != "sqlite" {
		t.Errorf("flag should win over env, got %q", r.config.Library)
	}
	if !r.config.Notify.Load {
		t.Error("notify-load flag not applied")
	}
	if r.activeTheme.Name != "Dark" {
		t.Errorf("theme = %q", r.activeTheme.Name)
	}
	if !strings.Contains(out.String(), "library = sqlite") {
		t.Errorf("printed config missing library:\n%s", out.String())
	}
}

func TestRootEnvBeatsConfigDefault(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PHOTOEDIT_LIBRARY", "clipboard")
	r := newRoot()
	r.out = &bytes.Buffer{}
	if err := r.Run([]string{"version"}); err != nil {
		t.Fatal(err)
	}
	if r.config.Library != "clipboard" {
		t.Errorf("library = %q", r.config.Library)
	}
}

func TestRootUnknownCommand(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	err := newRoot().Run([]string{"paint"})
	var uerr *UsageError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestEditSources(t *testing.T) {
	r := testRoot(nil)
	withPortal, err := parseEditCmd(nil, r)
	if err != nil {
		t.Fatalf("parse edit: %v", err)
	}
	if got := len(withPortal.sources()); got != 3 {
		t.Errorf("portal sources = %d, want open, capture and paste", got)
	}
	without, err := parseEditCmd([]string{"-portal=false"}, r)
	if err != nil {
		t.Fatalf("parse edit: %v", err)
	}
	if got := len(without.sources()); got != 1 {
		t.Errorf("sources without portal = %d, want paste only", got)
	}
}

func TestComposeDryRun(t *testing.T) {
	dir := t.TempDir()
	scriptPath := writeFile(t, dir, "s.yaml", "frame: {width: 10, height: 10}\nactions:\n  - {op: add, text: Hi}\n")
	output := filepath.Join(dir, "o.png")
	var out bytes.Buffer
	cmd, err := parseComposeCmd([]string{"-dry-run", "-script", scriptPath, "-output", output}, testRoot(&out))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := cmd.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, want := range []string{"width: 10", "op: add", "text: Hi"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("dry run output missing %q:\n%s", want, out.String())
		}
	}
	if _, err := os.Stat(output); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("dry run should not save, stat err %v", err)
	}
}

func TestLibraryListAndExport(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "library.db")
	sink, err := library.OpenSQLite(context.Background(), db)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 6, 4))); err != nil {
		t.Fatal(err)
	}
	loc, err := sink.Save(context.Background(), buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	list, err := parseLibraryCmd([]string{"-db", db, "list"}, testRoot(&out))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := list.Run(); err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out.String(), loc.Ref) || !strings.Contains(out.String(), "6x4") {
		t.Errorf("list output:\n%s", out.String())
	}

	exported := filepath.Join(dir, "copy.png")
	export, err := parseLibraryCmd([]string{"-db", db, "-output", exported, "export", loc.Ref}, testRoot(&bytes.Buffer{}))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := export.Run(); err != nil {
		t.Fatalf("export: %v", err)
	}
	got, err := os.ReadFile(exported)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, buf.Bytes()) {
		t.Error("exported photo differs from the saved one")
	}

	missing, err := parseLibraryCmd([]string{"-db", db, "-output", exported, "export", "nope"}, testRoot(&bytes.Buffer{}))
	if err != nil {
		t.Fatal(err)
	}
	if err := missing.Run(); !errors.Is(err, library.ErrPhotoNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestLibraryNeedsSubcommand(t *testing.T) {
	var uerr *UsageError
	if _, err := parseLibraryCmd(nil, testRoot(nil)); !errors.As(err, &uerr) {
		t.Fatalf("expected usage error, got %v", err)
	}
	cmd, err := parseLibraryCmd([]string{"export", "id"}, testRoot(nil))
	if err != nil {
		t.Fatal(err)
	}
	if err := cmd.Run(); !errors.As(err, &uerr) {
		t.Errorf("export without -output should be a usage error, got %v", err)
	}
}
