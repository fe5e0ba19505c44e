package repository

import (
	"context"
	"io"
	"os"

	"github.com/iconidentify/redgrabba/internal/domain"
)

// MediaRepository stores one video file per post id.
type MediaRepository interface {
	// Stat returns the stored file for id, or domain.ErrMediaNotFound.
	Stat(ctx context.Context, id domain.PostID) (*domain.StoredMedia, error)

	// Open returns the stored file for reading. Caller closes it.
	Open(ctx context.Context, id domain.PostID) (*os.File, *domain.StoredMedia, error)

	// Save writes content as the file for id. The file only appears at its
	// final path once content has been fully written.
	Save(ctx context.Context, id domain.PostID, content io.Reader) (*domain.StoredMedia, error)

	// Usage reports how many videos are stored and their total size.
	Usage(ctx context.Context) (*StorageUsage, error)

	// BasePath returns the storage root.
	BasePath() string
}

// StorageUsage summarizes the storage root.
type StorageUsage struct {
	Files int
	Bytes int64
}

// HistoryRepository records posts that have been served.
type HistoryRepository interface {
	// Record inserts entry or, if the post is known, bumps its request
	// count and refreshes title, URLs, size and last-requested time.
	Record(ctx context.Context, entry *domain.HistoryEntry) error

	// Get retrieves an entry by post id.
	Get(ctx context.Context, id domain.PostID) (*domain.HistoryEntry, error)

	// List returns entries, most recently requested first.
	List(ctx context.Context, limit, offset int) ([]*domain.HistoryEntry, error)

	// Count returns the number of entries.
	Count(ctx context.Context) (int, error)

	// Close releases underlying resources.
	Close() error
}
