package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/iconidentify/redgrabba/internal/domain"
	"github.com/iconidentify/redgrabba/internal/service"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// HistoryHandler serves the list of previously grabbed posts.
type HistoryHandler struct {
	mediaSvc *service.MediaService
	logger   *slog.Logger
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(mediaSvc *service.MediaService, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{
		mediaSvc: mediaSvc,
		logger:   logger,
	}
}

// HistoryItem is one entry of the history listing.
type HistoryItem struct {
	*domain.HistoryEntry
	SizeHuman    string `json:"size_human"`
	VideoPath    string `json:"video_path"`
	DownloadPath string `json:"download_path"`
}

// HistoryResponse contains a paginated history listing.
type HistoryResponse struct {
	Entries []HistoryItem `json:"entries"`
	Total   int           `json:"total"`
	Limit   int           `json:"limit"`
	Offset  int           `json:"offset"`
}

// List handles GET /api/v1/history
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	offset := 0
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	entries, total, err := h.mediaSvc.History(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("list history failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to list history"})
		return
	}

	items := make([]HistoryItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, HistoryItem{
			HistoryEntry: e,
			SizeHuman:    humanize.Bytes(uint64(e.Size)),
			VideoPath:    service.VideoPath(e.PostID),
			DownloadPath: service.DownloadPath(e.PostID),
		})
	}

	writeJSON(w, http.StatusOK, HistoryResponse{
		Entries: items,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	})
}
