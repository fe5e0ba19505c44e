package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/iconidentify/redgrabba/internal/config"
	"github.com/iconidentify/redgrabba/internal/domain"
)

// ErrStalled is returned when no data arrives for the configured read timeout.
var ErrStalled = errors.New("download stalled")

// progressLogInterval is how often an in-flight download logs progress.
const progressLogInterval = 30 * time.Second

// HTTPDownloader implements Downloader using HTTP requests.
type HTTPDownloader struct {
	// client streams bodies without an overall timeout; a header timeout
	// and per-read stall detection bound it instead.
	client    *http.Client
	userAgent string
	cfg       config.DownloadConfig
	logger    *slog.Logger
}

// NewHTTPDownloader creates a new HTTP-based video downloader.
func NewHTTPDownloader(cfg config.DownloadConfig, logger *slog.Logger) *HTTPDownloader {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = cfg.HeaderTimeout

	return &HTTPDownloader{
		client: &http.Client{
			Transport: transport,
		},
		userAgent: cfg.UserAgent,
		cfg:       cfg,
		logger:    logger,
	}
}

// Download opens a streaming GET to url.
// The returned reader reports progress and fails with ErrStalled when
// the body goes quiet for longer than the configured read timeout.
func (d *HTTPDownloader) Download(ctx context.Context, url string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "video/mp4,video/*;q=0.9,*/*;q=0.8")
	req.Header.Set("Referer", "https://www.reddit.com/")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("send request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("%w: %d", domain.ErrUnexpectedStatus, resp.StatusCode)
	}

	size := resp.ContentLength
	return newProgressReader(resp.Body, size, d.cfg.ReadTimeout, d.logger.With("url", url)), size, nil
}

// progressReader wraps a response body to track download progress
// and abort stalls (no data for readTimeout).
type progressReader struct {
	reader      io.ReadCloser
	total       int64
	downloaded  int64
	readTimeout time.Duration
	stallTimer  *time.Timer
	lastLog     time.Time
	logger      *slog.Logger

	mu      sync.Mutex
	stalled bool
	closed  bool
}

func newProgressReader(r io.ReadCloser, total int64, readTimeout time.Duration, logger *slog.Logger) *progressReader {
	p := &progressReader{
		reader:      r,
		total:       total,
		readTimeout: readTimeout,
		lastLog:     time.Now(),
		logger:      logger,
	}
	if readTimeout > 0 {
		// Closing the body unblocks a Read that is waiting on the network.
		p.stallTimer = time.AfterFunc(readTimeout, func() {
			p.mu.Lock()
			p.stalled = true
			p.mu.Unlock()
			r.Close()
		})
	}
	return p
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.reader.Read(buf)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stalled {
		return n, fmt.Errorf("%w: no data received for %v", ErrStalled, p.readTimeout)
	}

	if n > 0 {
		p.downloaded += int64(n)
		if p.stallTimer != nil {
			p.stallTimer.Reset(p.readTimeout)
		}
		if time.Since(p.lastLog) > progressLogInterval {
			p.logProgress()
			p.lastLog = time.Now()
		}
	}

	return n, err
}

func (p *progressReader) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	if p.stallTimer != nil {
		p.stallTimer.Stop()
	}
	p.mu.Unlock()

	return p.reader.Close()
}

// logProgress must be called with p.mu held.
func (p *progressReader) logProgress() {
	if p.total > 0 {
		pct := float64(p.downloaded) / float64(p.total) * 100
		p.logger.Info("download progress",
			"downloaded", humanize.Bytes(uint64(p.downloaded)),
			"total", humanize.Bytes(uint64(p.total)),
			"percent", fmt.Sprintf("%.1f%%", pct),
		)
	} else {
		p.logger.Info("download progress",
			"downloaded", humanize.Bytes(uint64(p.downloaded)),
		)
	}
}
