package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/iconidentify/redgrabba/internal/domain"
)

func historyRepos(t *testing.T) map[string]HistoryRepository {
	t.Helper()

	sqliteRepo, err := NewSQLiteHistoryRepository(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("NewSQLiteHistoryRepository failed: %v", err)
	}
	t.Cleanup(func() { sqliteRepo.Close() })

	return map[string]HistoryRepository{
		"memory": NewInMemoryHistoryRepository(),
		"sqlite": sqliteRepo,
	}
}

func testEntry(id string, at time.Time) *domain.HistoryEntry {
	return &domain.HistoryEntry{
		PostID:          domain.PostID(id),
		Title:           "Title " + id,
		SourceURL:       "https://www.reddit.com/r/x/comments/" + id + "/t/.json",
		MediaURL:        "https://v.redd.it/" + id + "/DASH_720.mp4",
		Size:            1024,
		Requests:        1,
		FirstSeenAt:     at,
		LastRequestedAt: at,
	}
}

func TestNewInMemoryHistoryRepository(t *testing.T) {
	repo := NewInMemoryHistoryRepository()

	if repo == nil {
		t.Fatal("repo should not be nil")
	}
	if repo.entries == nil {
		t.Error("entries map should be initialized")
	}
}

func TestNewSQLiteHistoryRepository_BadPath(t *testing.T) {
	_, err := NewSQLiteHistoryRepository(filepath.Join(t.TempDir(), "missing", "dir", "history.db"))
	if err == nil {
		t.Error("expected error for unwritable database path")
	}
}

func TestHistoryRepository_RecordAndGet(t *testing.T) {
	for name, repo := range historyRepos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

			if err := repo.Record(ctx, testEntry("abc123", at)); err != nil {
				t.Fatalf("Record failed: %v", err)
			}

			got, err := repo.Get(ctx, "abc123")
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if got.Title != "Title abc123" {
				t.Errorf("Title = %q", got.Title)
			}
			if got.Requests != 1 {
				t.Errorf("Requests = %d, want 1", got.Requests)
			}
			if got.Size != 1024 {
				t.Errorf("Size = %d, want 1024", got.Size)
			}
			if !got.FirstSeenAt.Equal(at) {
				t.Errorf("FirstSeenAt = %v, want %v", got.FirstSeenAt, at)
			}
		})
	}
}

func TestHistoryRepository_RecordTwice(t *testing.T) {
	for name, repo := range historyRepos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			first := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
			second := first.Add(time.Hour)

			repo.Record(ctx, testEntry("abc123", first))

			again := testEntry("abc123", second)
			again.Title = "Renamed"
			again.Size = 2048
			if err := repo.Record(ctx, again); err != nil {
				t.Fatalf("Record failed: %v", err)
			}

			got, err := repo.Get(ctx, "abc123")
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if got.Requests != 2 {
				t.Errorf("Requests = %d, want 2", got.Requests)
			}
			if got.Title != "Renamed" {
				t.Errorf("Title = %q, want %q", got.Title, "Renamed")
			}
			if got.Size != 2048 {
				t.Errorf("Size = %d, want 2048", got.Size)
			}
			if !got.FirstSeenAt.Equal(first) {
				t.Errorf("FirstSeenAt = %v, want %v", got.FirstSeenAt, first)
			}
			if !got.LastRequestedAt.Equal(second) {
				t.Errorf("LastRequestedAt = %v, want %v", got.LastRequestedAt, second)
			}

			count, _ := repo.Count(ctx)
			if count != 1 {
				t.Errorf("Count = %d, want 1", count)
			}
		})
	}
}

func TestHistoryRepository_GetNotFound(t *testing.T) {
	for name, repo := range historyRepos(t) {
		t.Run(name, func(t *testing.T) {
			_, err := repo.Get(context.Background(), "missing")
			if !errors.Is(err, domain.ErrHistoryNotFound) {
				t.Errorf("Get error = %v, want ErrHistoryNotFound", err)
			}
		})
	}
}

func TestHistoryRepository_List(t *testing.T) {
	for name, repo := range historyRepos(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

			repo.Record(ctx, testEntry("older", base))
			repo.Record(ctx, testEntry("newest", base.Add(2*time.Minute)))
			repo.Record(ctx, testEntry("middle", base.Add(time.Minute)))

			all, err := repo.List(ctx, 0, 0)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			want := []domain.PostID{"newest", "middle", "older"}
			if len(all) != len(want) {
				t.Fatalf("List returned %d entries, want %d", len(all), len(want))
			}
			for i, id := range want {
				if all[i].PostID != id {
					t.Errorf("List[%d] = %q, want %q", i, all[i].PostID, id)
				}
			}

			page, err := repo.List(ctx, 1, 1)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(page) != 1 || page[0].PostID != "middle" {
				t.Errorf("List(1, 1) = %v, want [middle]", page)
			}

			beyond, err := repo.List(ctx, 10, 10)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(beyond) != 0 {
				t.Errorf("List beyond end returned %d entries, want 0", len(beyond))
			}

			count, err := repo.Count(ctx)
			if err != nil {
				t.Fatalf("Count failed: %v", err)
			}
			if count != 3 {
				t.Errorf("Count = %d, want 3", count)
			}
		})
	}
}

func TestSQLiteHistoryRepository_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	repo, err := NewSQLiteHistoryRepository(path)
	if err != nil {
		t.Fatalf("NewSQLiteHistoryRepository failed: %v", err)
	}
	repo.Record(ctx, testEntry("abc123", time.Now().UTC()))
	repo.Close()

	reopened, err := NewSQLiteHistoryRepository(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	if _, err := reopened.Get(ctx, "abc123"); err != nil {
		t.Errorf("Get after reopen failed: %v", err)
	}
}
