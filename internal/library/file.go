package library

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// DirSink writes each photo to a new uniquely named file in Dir.
type DirSink struct {
	Dir string
}

func (s DirSink) Save(ctx context.Context, data []byte) (Location, error) {
	if err := ctx.Err(); err != nil {
		return Location{}, wrapSave("save", err)
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return Location{}, wrapSave("create library dir", err)
	}
	path := filepath.Join(s.Dir, newName())
	if err := writeNew(path, data); err != nil {
		return Location{}, wrapSave("save", err)
	}
	return Location{Backend: "file", Ref: path}, nil
}

// FileSink writes every save to Path, replacing the previous content.
type FileSink struct {
	Path string
}

func (s FileSink) Save(ctx context.Context, data []byte) (Location, error) {
	if err := ctx.Err(); err != nil {
		return Location{}, wrapSave("save", err)
	}
	if s.Path == "" {
		return Location{}, wrapSave("save", fmt.Errorf("no output path"))
	}
	if dir := filepath.Dir(s.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Location{}, wrapSave("create output dir", err)
		}
	}
	if err := os.WriteFile(s.Path, data, 0o644); err != nil {
		return Location{}, wrapSave("save", err)
	}
	return Location{Backend: "file", Ref: s.Path}, nil
}

func writeNew(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}
