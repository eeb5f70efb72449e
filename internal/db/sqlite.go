package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/reelai/backend/internal/db/models"
)

const sqliteTimeLayout = "2006-01-02T15:04:05.000Z"

// Database is the SQLite-backed Store used for local runs and tests.
type Database struct {
	db *sql.DB
}

func NewSQLite(path string) (*Database, error) {
	sqlDB, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	d := &Database{db: sqlDB}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return d, nil
}

func (d *Database) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS videos (
		id TEXT PRIMARY KEY,
		video_url TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
	);

	CREATE TABLE IF NOT EXISTS transcripts (
		video_id TEXT PRIMARY KEY,
		content TEXT NOT NULL DEFAULT '',
		segments TEXT NOT NULL DEFAULT '[]',
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		language TEXT NOT NULL DEFAULT '',
		audio_size INTEGER NOT NULL DEFAULT 0,
		content_length INTEGER NOT NULL DEFAULT 0,
		segment_count INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);
	`
	_, err := d.db.Exec(schema)
	return err
}

func (d *Database) GetVideo(ctx context.Context, id string) (*models.Video, error) {
	v := &models.Video{}
	err := d.db.QueryRowContext(ctx,
		"SELECT id, video_url FROM videos WHERE id = ?", id,
	).Scan(&v.ID, &v.VideoURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// SaveVideo registers a video record. The upload flow that normally owns
// these records lives outside this service.
func (d *Database) SaveVideo(ctx context.Context, v *models.Video) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO videos (id, video_url) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET video_url = excluded.video_url`,
		v.ID, v.VideoURL,
	)
	return err
}

func (d *Database) GetTranscript(ctx context.Context, videoID string) (*models.Transcript, error) {
	t := &models.Transcript{}
	var segments, createdAt string
	err := d.db.QueryRowContext(ctx, `
		SELECT video_id, content, segments, status, error, language, audio_size, content_length, segment_count, created_at
		FROM transcripts WHERE video_id = ?`, videoID,
	).Scan(&t.VideoID, &t.Content, &segments, &t.Status, &t.Error, &t.Language, &t.AudioSize, &t.ContentLength, &t.SegmentCount, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(segments), &t.Segments); err != nil {
		return nil, fmt.Errorf("decode segments of %s: %w", videoID, err)
	}
	if t.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("decode created_at of %s: %w", videoID, err)
	}
	return t, nil
}

func (d *Database) SaveTranscript(ctx context.Context, t *models.Transcript) error {
	segments := t.Segments
	if segments == nil {
		segments = []models.Segment{}
	}
	segJSON, err := json.Marshal(segments)
	if err != nil {
		return err
	}

	var createdAt string
	err = d.db.QueryRowContext(ctx, `
		INSERT INTO transcripts (video_id, content, segments, status, error, language, audio_size, content_length, segment_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		ON CONFLICT(video_id) DO UPDATE SET
			content = excluded.content,
			segments = excluded.segments,
			status = excluded.status,
			error = excluded.error,
			language = excluded.language,
			audio_size = excluded.audio_size,
			content_length = excluded.content_length,
			segment_count = excluded.segment_count,
			created_at = excluded.created_at
		RETURNING created_at`,
		t.VideoID, t.Content, string(segJSON), t.Status, t.Error, t.Language, t.AudioSize, t.ContentLength, t.SegmentCount,
	).Scan(&createdAt)
	if err != nil {
		return err
	}

	t.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt)
	return err
}

func (d *Database) Close() error {
	return d.db.Close()
}
