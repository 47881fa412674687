// Package library persists composed photos. A Sink is the single place a
// flattened PNG ends up: a directory, a fixed file, an SQLite photo table,
// an S3 bucket or the clipboard.
package library

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aws/smithy-go"
	"github.com/oklog/ulid/v2"
)

// Location identifies a saved photo.
type Location struct {
	Backend string
	Ref     string
}

func (l Location) String() string {
	if l.Ref == "" {
		return l.Backend
	}
	return l.Backend + ":" + l.Ref
}

// Sink stores composed PNG bytes.
type Sink interface {
	Save(ctx context.Context, data []byte) (Location, error)
}

// Kind classifies a save failure.
type Kind int

const (
	StorageError Kind = iota
	PermissionDenied
)

func (k Kind) String() string {
	if k == PermissionDenied {
		return "permission denied"
	}
	return "storage error"
}

// SaveError is returned by every Sink.
type SaveError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

// IsPermission reports whether err is a SaveError of kind PermissionDenied.
func IsPermission(err error) bool {
	var se *SaveError
	return errors.As(err, &se) && se.Kind == PermissionDenied
}

var permissionCodes = map[string]bool{
	"AccessDenied":          true,
	"AllAccessDisabled":     true,
	"InvalidAccessKeyId":    true,
	"SignatureDoesNotMatch": true,
	"ExpiredToken":          true,
}

func wrapSave(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *SaveError
	if errors.As(err, &se) {
		return err
	}
	return &SaveError{Kind: classify(err), Op: op, Err: err}
}

func classify(err error) Kind {
	if errors.Is(err, os.ErrPermission) {
		return PermissionDenied
	}
	var ae smithy.APIError
	if errors.As(err, &ae) && permissionCodes[ae.ErrorCode()] {
		return PermissionDenied
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "readonly database") || strings.Contains(msg, "read-only file system") {
		return PermissionDenied
	}
	return StorageError
}

func newName() string {
	return "photoedit-" + ulid.Make().String() + ".png"
}
