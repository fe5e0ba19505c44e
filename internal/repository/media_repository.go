package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/iconidentify/redgrabba/internal/config"
	"github.com/iconidentify/redgrabba/internal/domain"
)

// FilesystemMediaRepository implements MediaRepository on a local directory.
// Files live at <basePath>/<id>.mp4; partial downloads live under tempPath.
type FilesystemMediaRepository struct {
	basePath  string
	tempPath  string
	chunkSize int
}

// NewFilesystemMediaRepository creates a new filesystem-based media repository.
func NewFilesystemMediaRepository(cfg config.StorageConfig, chunkSize int) *FilesystemMediaRepository {
	if chunkSize <= 0 {
		chunkSize = 1 << 20
	}
	return &FilesystemMediaRepository{
		basePath:  cfg.BasePath,
		tempPath:  cfg.PartialPath(),
		chunkSize: chunkSize,
	}
}

// BasePath returns the storage root.
func (r *FilesystemMediaRepository) BasePath() string {
	return r.basePath
}

// Path returns the deterministic location of the video for id.
func (r *FilesystemMediaRepository) Path(id domain.PostID) (string, error) {
	if !id.Valid() {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidPostID, id)
	}
	return filepath.Join(r.basePath, id.Filename()), nil
}

// Stat returns the stored file for id.
func (r *FilesystemMediaRepository) Stat(ctx context.Context, id domain.PostID) (*domain.StoredMedia, error) {
	path, err := r.Path(id)
	if err != nil {
		return nil, domain.ErrMediaNotFound
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrMediaNotFound
		}
		return nil, fmt.Errorf("stat media: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, domain.ErrMediaNotFound
	}

	return &domain.StoredMedia{
		PostID:  id,
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Open returns the stored file for reading.
func (r *FilesystemMediaRepository) Open(ctx context.Context, id domain.PostID) (*os.File, *domain.StoredMedia, error) {
	media, err := r.Stat(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(media.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, domain.ErrMediaNotFound
		}
		return nil, nil, fmt.Errorf("open media: %w", err)
	}
	return f, media, nil
}

// Save streams content to a partial file and renames it into place.
func (r *FilesystemMediaRepository) Save(ctx context.Context, id domain.PostID, content io.Reader) (*domain.StoredMedia, error) {
	finalPath, err := r.Path(id)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(r.basePath, 0755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	if err := os.MkdirAll(r.tempPath, 0755); err != nil {
		return nil, fmt.Errorf("create temp directory: %w", err)
	}

	// Unique per attempt so concurrent writers never share a file
	tempFile := filepath.Join(r.tempPath, fmt.Sprintf("%s.%s.part", id, uuid.NewString()))

	f, err := os.OpenFile(tempFile, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	_, err = r.copyChunks(ctx, f, content)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempFile)
		return nil, fmt.Errorf("write video: %w", err)
	}

	// Move to final location
	if err := os.Rename(tempFile, finalPath); err != nil {
		os.Remove(tempFile)
		return nil, fmt.Errorf("move video to final location: %w", err)
	}

	return r.Stat(ctx, id)
}

// copyChunks copies src to dst one chunk at a time, skipping empty reads
// and checking for cancellation between chunks.
func (r *FilesystemMediaRepository) copyChunks(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, r.chunkSize)
	var written int64

	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, readErr := io.ReadFull(src, buf)
		if n > 0 {
			w, err := dst.Write(buf[:n])
			written += int64(w)
			if err != nil {
				return written, err
			}
		}

		switch {
		case readErr == nil:
			continue
		case errors.Is(readErr, io.EOF), errors.Is(readErr, io.ErrUnexpectedEOF):
			return written, nil
		default:
			return written, readErr
		}
	}
}

// Usage counts stored videos and their total size.
func (r *FilesystemMediaRepository) Usage(ctx context.Context) (*StorageUsage, error) {
	entries, err := os.ReadDir(r.basePath)
	if err != nil {
		return nil, fmt.Errorf("read storage directory: %w", err)
	}

	usage := &StorageUsage{}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		stem, ok := strings.CutSuffix(e.Name(), domain.MediaExtension)
		if !ok || !domain.PostID(stem).Valid() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		usage.Files++
		usage.Bytes += info.Size()
	}
	return usage, nil
}
