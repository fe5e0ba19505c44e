package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/singleflight"

	"github.com/iconidentify/redgrabba/internal/domain"
	"github.com/iconidentify/redgrabba/internal/downloader"
	"github.com/iconidentify/redgrabba/internal/repository"
	"github.com/iconidentify/redgrabba/pkg/reddit"
)

// MediaService resolves Reddit posts and keeps their videos in local storage.
type MediaService struct {
	resolver   reddit.Resolver
	downloader downloader.Downloader
	mediaRepo  repository.MediaRepository
	history    repository.HistoryRepository
	flights    singleflight.Group
	logger     *slog.Logger
}

// NewMediaService creates a new media service.
func NewMediaService(
	resolver reddit.Resolver,
	dl downloader.Downloader,
	mediaRepo repository.MediaRepository,
	history repository.HistoryRepository,
	logger *slog.Logger,
) *MediaService {
	return &MediaService{
		resolver:   resolver,
		downloader: dl,
		mediaRepo:  mediaRepo,
		history:    history,
		logger:     logger,
	}
}

// GrabResult is the outcome of a successful Grab.
type GrabResult struct {
	Post         *domain.Post
	Media        *domain.StoredMedia
	VideoPath    string
	DownloadPath string
}

// VideoPath returns the inline playback path for id.
func VideoPath(id domain.PostID) string {
	return "/static/" + id.Filename()
}

// DownloadPath returns the attachment download path for id.
func DownloadPath(id domain.PostID) string {
	return "/download/" + id.String()
}

// Grab resolves the post at rawURL and makes sure its video is stored locally.
func (s *MediaService) Grab(ctx context.Context, rawURL string) (*GrabResult, error) {
	post, err := s.resolver.Resolve(ctx, rawURL)
	if err != nil {
		if domain.KindOf(err).IsFault() {
			s.logger.Warn("resolve failed", "url", rawURL, "error", err)
		} else {
			s.logger.Info("post rejected", "url", rawURL, "reason", err)
		}
		return nil, err
	}

	media, err := s.EnsureLocal(ctx, post.FallbackURL, post.ID)
	if err != nil {
		return nil, err
	}

	s.recordHistory(ctx, post, media)

	return &GrabResult{
		Post:         post,
		Media:        media,
		VideoPath:    VideoPath(post.ID),
		DownloadPath: DownloadPath(post.ID),
	}, nil
}

// EnsureLocal returns the stored video for id, downloading it from mediaURL
// first if it is not already present.
func (s *MediaService) EnsureLocal(ctx context.Context, mediaURL string, id domain.PostID) (*domain.StoredMedia, error) {
	if !id.Valid() {
		return nil, domain.NewPostError(domain.KindDownload, id, "download", domain.ErrInvalidPostID)
	}

	if media, err := s.cached(ctx, id); err != nil || media != nil {
		return media, err
	}

	// The shared download outlives any single caller; it is bounded by the
	// downloader's header and stall timeouts instead.
	flightCtx := context.WithoutCancel(ctx)
	ch := s.flights.DoChan(id.String(), func() (interface{}, error) {
		// A flight that finished just before this one started may have stored it
		if media, err := s.cached(flightCtx, id); err != nil || media != nil {
			return media, err
		}
		return s.fetch(flightCtx, mediaURL, id)
	})

	select {
	case <-ctx.Done():
		s.logger.Debug("caller left in-flight download", "post_id", id, "error", ctx.Err())
		return nil, domain.NewPostError(domain.KindDownload, id, "download", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			s.logger.Debug("joined in-flight download", "post_id", id)
		}
		media := *res.Val.(*domain.StoredMedia)
		return &media, nil
	}
}

// cached returns the stored file for id, nil if none exists yet.
func (s *MediaService) cached(ctx context.Context, id domain.PostID) (*domain.StoredMedia, error) {
	media, err := s.mediaRepo.Stat(ctx, id)
	if err == nil {
		media.Cached = true
		return media, nil
	}
	if errors.Is(err, domain.ErrMediaNotFound) {
		return nil, nil
	}
	return nil, domain.NewPostError(domain.KindDownload, id, "stat", err)
}

func (s *MediaService) fetch(ctx context.Context, mediaURL string, id domain.PostID) (*domain.StoredMedia, error) {
	start := time.Now()
	s.logger.Info("downloading video", "post_id", id, "url", mediaURL)

	body, size, err := s.downloader.Download(ctx, mediaURL)
	if err != nil {
		s.logger.Error("download failed", "post_id", id, "error", err)
		return nil, domain.NewPostError(domain.KindDownload, id, "download", err)
	}
	defer body.Close()

	media, err := s.mediaRepo.Save(ctx, id, body)
	if err != nil {
		s.logger.Error("save failed", "post_id", id, "error", err)
		return nil, domain.NewPostError(domain.KindDownload, id, "download", err)
	}

	attrs := []any{
		"post_id", id,
		"size", humanize.Bytes(uint64(media.Size)),
		"duration", time.Since(start).Round(time.Millisecond),
	}
	if size >= 0 && size != media.Size {
		attrs = append(attrs, "declared_size", humanize.Bytes(uint64(size)))
	}
	s.logger.Info("video stored", attrs...)

	return media, nil
}

func (s *MediaService) recordHistory(ctx context.Context, post *domain.Post, media *domain.StoredMedia) {
	if s.history == nil {
		return
	}
	if err := s.history.Record(ctx, domain.NewHistoryEntry(post, media)); err != nil {
		s.logger.Warn("record history failed", "post_id", post.ID, "error", err)
	}
}

// Open returns the stored video for id. Caller closes the file.
func (s *MediaService) Open(ctx context.Context, id domain.PostID) (*os.File, *domain.StoredMedia, error) {
	f, media, err := s.mediaRepo.Open(ctx, id)
	if err != nil {
		kind := domain.KindDownload
		if errors.Is(err, domain.ErrMediaNotFound) {
			kind = domain.KindNotFound
		}
		return nil, nil, domain.NewPostError(kind, id, "open", err)
	}
	return f, media, nil
}

// History lists served posts, most recently requested first.
func (s *MediaService) History(ctx context.Context, limit, offset int) ([]*domain.HistoryEntry, int, error) {
	if s.history == nil {
		return []*domain.HistoryEntry{}, 0, nil
	}

	entries, err := s.history.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list history: %w", err)
	}
	total, err := s.history.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("count history: %w", err)
	}
	return entries, total, nil
}

// StorageStats summarizes the storage root.
type StorageStats struct {
	Path       string `json:"path"`
	Files      int    `json:"files"`
	Bytes      int64  `json:"bytes"`
	BytesHuman string `json:"bytes_human"`
	FreeBytes  int64  `json:"free_bytes"`
	TotalBytes int64  `json:"total_bytes"`
}

// StorageStats reports stored file count and size plus free disk space.
func (s *MediaService) StorageStats(ctx context.Context) (*StorageStats, error) {
	usage, err := s.mediaRepo.Usage(ctx)
	if err != nil {
		return nil, err
	}

	free, total := diskSpace(s.mediaRepo.BasePath())
	return &StorageStats{
		Path:       s.mediaRepo.BasePath(),
		Files:      usage.Files,
		Bytes:      usage.Bytes,
		BytesHuman: humanize.Bytes(uint64(usage.Bytes)),
		FreeBytes:  free,
		TotalBytes: total,
	}, nil
}

// CheckReady verifies the storage root is a writable directory and the
// history repository answers.
func (s *MediaService) CheckReady(ctx context.Context) error {
	base := s.mediaRepo.BasePath()
	info, err := os.Stat(base)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("storage: %s is not a directory", base)
	}

	probe, err := os.CreateTemp(base, ".ready-*")
	if err != nil {
		return fmt.Errorf("storage not writable: %w", err)
	}
	probe.Close()
	os.Remove(probe.Name())

	if s.history != nil {
		if _, err := s.history.Count(ctx); err != nil {
			return fmt.Errorf("history: %w", err)
		}
	}
	return nil
}
