package library

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Backend names accepted by Open.
const (
	BackendDir       = "dir"
	BackendFile      = "file"
	BackendSQLite    = "sqlite"
	BackendS3        = "s3"
	BackendClipboard = "clipboard"
)

// Config selects and configures a sink.
type Config struct {
	Backend    string
	Dir        string
	Path       string
	SQLitePath string
	S3Bucket   string
	S3Prefix   string
}

// DefaultDir is where photos go when no directory is configured.
func DefaultDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "Pictures", "photoedit")
	}
	return "."
}

// OpenLibrary opens the SQLite photo library at path, or at library.db in
// DefaultDir when path is empty.
func OpenLibrary(ctx context.Context, path string) (*SQLiteSink, error) {
	dsn, err := sqlitePath(path)
	if err != nil {
		return nil, err
	}
	return OpenSQLite(ctx, dsn)
}

func sqlitePath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	dsn := filepath.Join(DefaultDir(), "library.db")
	if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
		return "", wrapSave("create library dir", err)
	}
	return dsn, nil
}

// Open builds the sink named by cfg.Backend. The returned sink implements
// io.Closer when it holds resources.
func Open(ctx context.Context, cfg Config) (Sink, error) {
	fields := logrus.Fields{"library": cfg.Backend}
	var sink Sink
	switch cfg.Backend {
	case "", BackendDir:
		dir := cfg.Dir
		if dir == "" {
			dir = DefaultDir()
		}
		fields["library"] = BackendDir
		fields["dir"] = dir
		sink = DirSink{Dir: dir}
	case BackendFile:
		if cfg.Path == "" {
			return nil, fmt.Errorf("library %q needs an output path", cfg.Backend)
		}
		fields["path"] = cfg.Path
		sink = FileSink{Path: cfg.Path}
	case BackendSQLite:
		dsn, err := sqlitePath(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		fields["dataSourceName"] = dsn
		s, err := OpenSQLite(ctx, dsn)
		if err != nil {
			return nil, err
		}
		sink = s
	case BackendS3:
		fields["bucket"] = cfg.S3Bucket
		fields["prefix"] = cfg.S3Prefix
		s, err := NewS3Sink(ctx, cfg.S3Bucket, cfg.S3Prefix)
		if err != nil {
			return nil, err
		}
		sink = s
	case BackendClipboard:
		sink = NewClipboardSink()
	default:
		return nil, fmt.Errorf("unknown library %q", cfg.Backend)
	}
	logrus.WithFields(fields).Info("Use photo library")
	return sink, nil
}

// Close closes sink if it holds resources.
func Close(sink Sink) error {
	if c, ok := sink.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
