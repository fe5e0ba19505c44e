package handler

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/iconidentify/redgrabba/internal/config"
	"github.com/iconidentify/redgrabba/internal/domain"
	"github.com/iconidentify/redgrabba/internal/repository"
	"github.com/iconidentify/redgrabba/internal/service"
)

// testLogger returns a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockResolver is a test implementation of reddit.Resolver.
type mockResolver struct {
	posts map[string]*domain.Post
	errs  map[string]error
}

func newMockResolver() *mockResolver {
	return &mockResolver{
		posts: make(map[string]*domain.Post),
		errs:  make(map[string]error),
	}
}

func (m *mockResolver) Resolve(ctx context.Context, rawURL string) (*domain.Post, error) {
	if err, ok := m.errs[rawURL]; ok {
		return nil, err
	}
	if post, ok := m.posts[rawURL]; ok {
		p := *post
		return &p, nil
	}
	return nil, domain.NewPostError(domain.KindResolution, "", "resolve", domain.ErrMalformedResponse)
}

// mockDownloader is a test implementation of downloader.Downloader.
type mockDownloader struct {
	content string
	err     error
	calls   atomic.Int32
}

func (m *mockDownloader) Download(ctx context.Context, url string) (io.ReadCloser, int64, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, 0, m.err
	}
	return io.NopCloser(strings.NewReader(m.content)), int64(len(m.content)), nil
}

type testEnv struct {
	svc        *service.MediaService
	resolver   *mockResolver
	downloader *mockDownloader
	basePath   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	base := filepath.Join(t.TempDir(), "static")
	resolver := newMockResolver()
	dl := &mockDownloader{content: "fake mp4 bytes"}
	svc := service.NewMediaService(
		resolver,
		dl,
		repository.NewFilesystemMediaRepository(config.StorageConfig{BasePath: base}, 1024),
		repository.NewInMemoryHistoryRepository(),
		testLogger(),
	)
	return &testEnv{svc: svc, resolver: resolver, downloader: dl, basePath: base}
}

const demoURL = "https://reddit.com/r/x/comments/abc123/title"

func (e *testEnv) addDemoPost() {
	e.resolver.posts[demoURL] = &domain.Post{
		ID:          "abc123",
		Title:       "Demo",
		IsVideo:     true,
		FallbackURL: "https://v.redd.it/abc123/DASH_1080.mp4",
	}
}
