package domain

import (
	"regexp"
	"time"
)

// PostID is the stable Reddit identifier of a post (e.g. "abc123").
// It doubles as the filename stem of the stored video.
type PostID string

var postIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// String returns the string representation of the PostID.
func (id PostID) String() string {
	return string(id)
}

// Valid reports whether the id is safe to use as a filename stem.
func (id PostID) Valid() bool {
	return postIDPattern.MatchString(string(id))
}

// Filename returns the stored video filename, "<id>.mp4".
func (id PostID) Filename() string {
	return string(id) + MediaExtension
}

// MediaExtension is the extension of every stored video.
const MediaExtension = ".mp4"

// MediaContentType is the media type stored videos are served with.
const MediaContentType = "video/mp4"

// Post is a Reddit post resolved from its JSON representation.
type Post struct {
	ID          PostID
	Title       string
	IsVideo     bool
	FallbackURL string

	// SourceURL is the normalized JSON endpoint the post was resolved from.
	SourceURL string

	Subreddit       string
	Author          string
	Permalink       string
	DurationSeconds int
	Width           int
	Height          int
}

// StoredMedia describes a video file present in local storage.
type StoredMedia struct {
	PostID  PostID
	Path    string
	Size    int64
	ModTime time.Time
	// Cached is true when the file already existed and no download happened.
	Cached bool
}

// Filename returns the attachment filename of the stored video.
func (m *StoredMedia) Filename() string {
	return m.PostID.Filename()
}

// HistoryEntry records a post that has been served at least once.
type HistoryEntry struct {
	PostID          PostID    `json:"id"`
	Title           string    `json:"title"`
	SourceURL       string    `json:"source_url"`
	MediaURL        string    `json:"media_url"`
	Size            int64     `json:"size_bytes"`
	Requests        int       `json:"requests"`
	FirstSeenAt     time.Time `json:"first_seen_at"`
	LastRequestedAt time.Time `json:"last_requested_at"`
}

// NewHistoryEntry builds an entry for a freshly served post.
func NewHistoryEntry(post *Post, media *StoredMedia) *HistoryEntry {
	now := time.Now().UTC()
	entry := &HistoryEntry{
		PostID:          post.ID,
		Title:           post.Title,
		SourceURL:       post.SourceURL,
		MediaURL:        post.FallbackURL,
		Requests:        1,
		FirstSeenAt:     now,
		LastRequestedAt: now,
	}
	if media != nil {
		entry.Size = media.Size
	}
	return entry
}
