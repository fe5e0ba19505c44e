package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/iconidentify/redgrabba/internal/domain"
)

// SQLiteHistoryRepository implements HistoryRepository on a SQLite file.
type SQLiteHistoryRepository struct {
	db *sql.DB
}

// NewSQLiteHistoryRepository opens (creating if needed) the database at path.
func NewSQLiteHistoryRepository(path string) (*SQLiteHistoryRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows a single writer; serialize through one connection.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS posts (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			source_url TEXT NOT NULL,
			media_url TEXT NOT NULL,
			size_bytes INTEGER NOT NULL DEFAULT 0,
			requests INTEGER NOT NULL DEFAULT 1,
			first_seen_at INTEGER NOT NULL,
			last_requested_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_posts_last_requested ON posts(last_requested_at);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &SQLiteHistoryRepository{db: db}, nil
}

// Record inserts or refreshes an entry.
func (r *SQLiteHistoryRepository) Record(ctx context.Context, entry *domain.HistoryEntry) error {
	requests := entry.Requests
	if requests <= 0 {
		requests = 1
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO posts (id, title, source_url, media_url, size_bytes, requests, first_seen_at, last_requested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			source_url = excluded.source_url,
			media_url = excluded.media_url,
			size_bytes = excluded.size_bytes,
			requests = posts.requests + 1,
			last_requested_at = excluded.last_requested_at`,
		entry.PostID.String(),
		entry.Title,
		entry.SourceURL,
		entry.MediaURL,
		entry.Size,
		requests,
		entry.FirstSeenAt.UnixNano(),
		entry.LastRequestedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record history: %w", err)
	}
	return nil
}

// Get retrieves an entry by post id.
func (r *SQLiteHistoryRepository) Get(ctx context.Context, id domain.PostID) (*domain.HistoryEntry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, source_url, media_url, size_bytes, requests, first_seen_at, last_requested_at
		FROM posts WHERE id = ?`, id.String())

	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrHistoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	return entry, nil
}

// List returns entries, most recently requested first.
func (r *SQLiteHistoryRepository) List(ctx context.Context, limit, offset int) ([]*domain.HistoryEntry, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, source_url, media_url, size_bytes, requests, first_seen_at, last_requested_at
		FROM posts
		ORDER BY last_requested_at DESC, id ASC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	result := []*domain.HistoryEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return result, nil
}

// Count returns the number of entries.
func (r *SQLiteHistoryRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (r *SQLiteHistoryRepository) Close() error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*domain.HistoryEntry, error) {
	var (
		entry           domain.HistoryEntry
		id              string
		firstSeen, last int64
	)
	if err := s.Scan(
		&id,
		&entry.Title,
		&entry.SourceURL,
		&entry.MediaURL,
		&entry.Size,
		&entry.Requests,
		&firstSeen,
		&last,
	); err != nil {
		return nil, err
	}
	entry.PostID = domain.PostID(id)
	entry.FirstSeenAt = time.Unix(0, firstSeen).UTC()
	entry.LastRequestedAt = time.Unix(0, last).UTC()
	return &entry, nil
}
