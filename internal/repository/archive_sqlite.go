package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/iconidentify/xdl/internal/domain"
)

// SQLiteArchiveRepository persists the download archive in a SQLite file so
// repeated runs skip posts fetched earlier.
type SQLiteArchiveRepository struct {
	db *sql.DB
}

// NewSQLiteArchiveRepository opens (creating if needed) the archive at path.
func NewSQLiteArchiveRepository(ctx context.Context, path string) (*SQLiteArchiveRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Workers record concurrently; writes are serialized on one connection.
	db.SetMaxOpenConns(1)

	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS downloads (
			post_id TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			title TEXT,
			downloaded_at DATETIME NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &SQLiteArchiveRepository{db: db}, nil
}

// Has reports whether the post has been downloaded before.
func (r *SQLiteArchiveRepository) Has(ctx context.Context, postID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM downloads WHERE post_id = ?`, postID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query archive: %w", err)
	}
	return n > 0, nil
}

// Record marks a post as downloaded.
func (r *SQLiteArchiveRepository) Record(ctx context.Context, entry domain.ArchiveEntry) error {
	if entry.DownloadedAt.IsZero() {
		entry.DownloadedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO downloads (post_id, url, title, downloaded_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(post_id) DO UPDATE SET
			url = excluded.url,
			title = excluded.title,
			downloaded_at = excluded.downloaded_at
	`, entry.PostID, entry.URL, entry.Title, entry.DownloadedAt.UTC())
	if err != nil {
		return fmt.Errorf("record archive entry: %w", err)
	}
	return nil
}

// Count returns the number of archived posts.
func (r *SQLiteArchiveRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM downloads`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count archive: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (r *SQLiteArchiveRepository) Close() error {
	return r.db.Close()
}
