package downloader

import (
	"context"
	"io"
)

// Downloader fetches video content from URLs.
type Downloader interface {
	// Download opens a stream to the video at url and returns it with its
	// declared size (-1 if unknown). Caller is responsible for closing the reader.
	Download(ctx context.Context, url string) (io.ReadCloser, int64, error)
}
