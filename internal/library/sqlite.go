package library

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

const photosTable = `
CREATE TABLE IF NOT EXISTS photos (
	id TEXT PRIMARY KEY,
	created_at DATETIME NOT NULL,
	width INTEGER NOT NULL,
	height INTEGER NOT NULL,
	data BLOB NOT NULL
);`

// ErrPhotoNotFound is returned by SQLiteSink.Load for unknown ids.
var ErrPhotoNotFound = errors.New("library: photo not found")

// Photo is a row of the photo library table.
type Photo struct {
	ID        string
	CreatedAt time.Time
	Width     int
	Height    int
	Data      []byte
}

// SQLiteSink keeps saved photos in a local SQLite photo library.
type SQLiteSink struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens or creates the photo library at dsn.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, wrapSave("open photo library", err)
	}
	if _, err := db.ExecContext(ctx, photosTable); err != nil {
		_ = db.Close()
		return nil, wrapSave("create photos table", err)
	}
	return &SQLiteSink{db: db, now: time.Now}, nil
}

// Close releases the database.
func (s *SQLiteSink) Close() error { return s.db.Close() }

func (s *SQLiteSink) Save(ctx context.Context, data []byte) (Location, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Location{}, wrapSave("save", fmt.Errorf("read png header: %w", err))
	}
	id := ulid.Make().String()
	log := logrus.WithFields(logrus.Fields{
		"photo_id":    id,
		"data_length": len(data),
	})
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO photos (id, created_at, width, height, data) VALUES (?, ?, ?, ?, ?)",
		id, s.now().UTC(), cfg.Width, cfg.Height, data)
	if err != nil {
		log.WithError(err).Error("Failed to save photo")
		return Location{}, wrapSave("save", err)
	}
	log.Debug("Photo saved to library")
	return Location{Backend: "sqlite", Ref: id}, nil
}

// Load returns a saved photo.
func (s *SQLiteSink) Load(ctx context.Context, id string) (*Photo, error) {
	p := Photo{ID: id}
	err := s.db.QueryRowContext(ctx,
		"SELECT created_at, width, height, data FROM photos WHERE id = ?", id).
		Scan(&p.CreatedAt, &p.Width, &p.Height, &p.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrPhotoNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns saved photos without their data, newest first.
func (s *SQLiteSink) List(ctx context.Context) ([]Photo, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, created_at, width, height FROM photos ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Photo
	for rows.Next() {
		var p Photo
		if err := rows.Scan(&p.ID, &p.CreatedAt, &p.Width, &p.Height); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
