package library

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngData(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestDirSinkWritesUniqueFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "photos")
	sink := DirSink{Dir: dir}
	data := pngData(t, 3, 2)

	first, err := sink.Save(context.Background(), data)
	require.NoError(t, err)
	second, err := sink.Save(context.Background(), data)
	require.NoError(t, err)
	assert.NotEqual(t, first.Ref, second.Ref)
	assert.Equal(t, "file", first.Backend)
	assert.True(t, strings.HasPrefix(filepath.Base(first.Ref), "photoedit-"))
	assert.Equal(t, ".png", filepath.Ext(first.Ref))

	got, err := os.ReadFile(first.Ref)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestDirSinkPermissionDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	dir := t.TempDir()
	require.NoError(t, os.Chmod(dir, 0o500))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o700) })

	_, err := DirSink{Dir: dir}.Save(context.Background(), pngData(t, 1, 1))
	require.Error(t, err)
	assert.True(t, IsPermission(err), "%v", err)
}

func TestFileSinkOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "edited.png")
	sink := FileSink{Path: path}
	_, err := sink.Save(context.Background(), []byte("old"))
	require.NoError(t, err)
	loc, err := sink.Save(context.Background(), pngData(t, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, path, loc.Ref)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, pngData(t, 1, 1), got)
}

func TestFileSinkNeedsPath(t *testing.T) {
	_, err := FileSink{}.Save(context.Background(), nil)
	var se *SaveError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StorageError, se.Kind)
}

func TestSQLiteSink(t *testing.T) {
	ctx := context.Background()
	sink, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	sink.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	data := pngData(t, 7, 5)
	loc, err := sink.Save(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", loc.Backend)

	p, err := sink.Load(ctx, loc.Ref)
	require.NoError(t, err)
	assert.Equal(t, 7, p.Width)
	assert.Equal(t, 5, p.Height)
	assert.Equal(t, data, p.Data)

	second, err := sink.Save(ctx, pngData(t, 2, 2))
	require.NoError(t, err)
	list, err := sink.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.Ref, list[0].ID)
	assert.Nil(t, list[0].Data)

	_, err = sink.Load(ctx, "nope")
	assert.ErrorIs(t, err, ErrPhotoNotFound)
}

func TestSQLiteSinkRejectsNonPNG(t *testing.T) {
	sink, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })

	_, err = sink.Save(context.Background(), []byte("nope"))
	var se *SaveError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StorageError, se.Kind)
}

type fakeS3 struct {
	inputs []*s3.PutObjectInput
	err    error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3Sink(t *testing.T) {
	client := &fakeS3{}
	sink := &S3Sink{client: client, bucket: "photos", prefix: "edits"}
	loc, err := sink.Save(context.Background(), pngData(t, 1, 1))
	require.NoError(t, err)
	require.Len(t, client.inputs, 1)
	in := client.inputs[0]
	assert.Equal(t, "photos", *in.Bucket)
	assert.True(t, strings.HasPrefix(*in.Key, "edits/photoedit-"))
	assert.Equal(t, "image/png", *in.ContentType)
	assert.Equal(t, "s3://photos/"+*in.Key, loc.Ref)
}

func TestS3SinkErrorKinds(t *testing.T) {
	denied := &fakeS3{err: &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"}}
	_, err := (&S3Sink{client: denied, bucket: "b"}).Save(context.Background(), nil)
	assert.True(t, IsPermission(err))

	broken := &fakeS3{err: errors.New("connection reset")}
	_, err = (&S3Sink{client: broken, bucket: "b"}).Save(context.Background(), nil)
	var se *SaveError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StorageError, se.Kind)
}

func TestClipboardSink(t *testing.T) {
	var got []byte
	sink := &ClipboardSink{write: func(b []byte) error { got = b; return nil }}
	loc, err := sink.Save(context.Background(), []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, "clipboard", loc.String())
	assert.Equal(t, []byte{1, 2, 3}, got)

	sink.write = func([]byte) error { return errors.New("no display") }
	_, err = sink.Save(context.Background(), nil)
	var se *SaveError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StorageError, se.Kind)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, PermissionDenied, classify(fmt.Errorf("open: %w", os.ErrPermission)))
	assert.Equal(t, PermissionDenied, classify(errors.New("attempt to write a readonly database (8)")))
	assert.Equal(t, StorageError, classify(errors.New("disk full")))

	// already classified errors pass through untouched
	inner := &SaveError{Kind: PermissionDenied, Op: "inner", Err: os.ErrPermission}
	assert.Same(t, inner, wrapSave("outer", inner))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	sink, err := Open(ctx, Config{Backend: "dir", Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, DirSink{Dir: dir}, sink)

	sink, err = Open(ctx, Config{Backend: "file", Path: filepath.Join(dir, "x.png")})
	require.NoError(t, err)
	assert.IsType(t, FileSink{}, sink)

	_, err = Open(ctx, Config{Backend: "file"})
	assert.Error(t, err)

	sink, err = Open(ctx, Config{Backend: "sqlite", SQLitePath: filepath.Join(dir, "lib.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteSink{}, sink)
	assert.NoError(t, Close(sink))

	_, err = Open(ctx, Config{Backend: "s3"})
	assert.Error(t, err)

	sink, err = Open(ctx, Config{Backend: "clipboard"})
	require.NoError(t, err)
	assert.NoError(t, Close(sink))

	_, err = Open(ctx, Config{Backend: "floppy"})
	assert.ErrorContains(t, err, "unknown library")
}
