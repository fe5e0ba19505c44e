package handler

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"

	"github.com/iconidentify/redgrabba/internal/domain"
	"github.com/iconidentify/redgrabba/internal/service"
)

// MediaHandler handles grab and playback requests.
type MediaHandler struct {
	mediaSvc *service.MediaService
	logger   *slog.Logger
}

// NewMediaHandler creates a new media handler.
func NewMediaHandler(mediaSvc *service.MediaService, logger *slog.Logger) *MediaHandler {
	return &MediaHandler{
		mediaSvc: mediaSvc,
		logger:   logger,
	}
}

// GrabResponse is the JSON response of POST /get_video.
type GrabResponse struct {
	Title        string `json:"title"`
	VideoPath    string `json:"video_path"`
	DownloadPath string `json:"download_path"`
}

// ErrorResponse carries a user-facing error message.
type ErrorResponse struct {
	Error string `json:"error"`
}

// GetVideo handles POST /get_video
func (h *MediaHandler) GetVideo(w http.ResponseWriter, r *http.Request) {
	result, err := h.mediaSvc.Grab(r.Context(), r.FormValue("url"))
	if err != nil {
		// Failures are reported in the body; the page reads data.error
		writeJSON(w, http.StatusOK, ErrorResponse{Error: domain.UserMessage(err)})
		return
	}

	writeJSON(w, http.StatusOK, GrabResponse{
		Title:        result.Post.Title,
		VideoPath:    result.VideoPath,
		DownloadPath: result.DownloadPath,
	})
}

var previewTemplate = template.Must(template.New("preview").Parse(
	`{{if .Error}}<p class="error">{{.Error}}</p>
{{else}}<h3>{{.Title}}</h3>
<video width="480" controls>
  <source src="{{.VideoPath}}" type="video/mp4">
</video>
<p><a href="{{.DownloadPath}}"><button type="button">Download Video</button></a> <small>{{.Size}}</small></p>
{{end}}`))

type previewData struct {
	Error        string
	Title        string
	VideoPath    string
	DownloadPath string
	Size         string
}

// Preview handles POST /preview and renders an HTML fragment.
func (h *MediaHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var data previewData

	result, err := h.mediaSvc.Grab(r.Context(), r.FormValue("url"))
	if err != nil {
		data.Error = domain.UserMessage(err)
	} else {
		data.Title = result.Post.Title
		data.VideoPath = result.VideoPath
		data.DownloadPath = result.DownloadPath
		data.Size = humanize.Bytes(uint64(result.Media.Size))
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := previewTemplate.Execute(w, data); err != nil {
		h.logger.Error("render preview failed", "error", err)
	}
}

// Download handles GET /download/{id}
func (h *MediaHandler) Download(w http.ResponseWriter, r *http.Request) {
	id := domain.PostID(chi.URLParam(r, "id"))

	f, media, err := h.mediaSvc.Open(r.Context(), id)
	if err != nil {
		h.logOpenFault(id, err)
		writeJSON(w, http.StatusOK, ErrorResponse{Error: domain.UserMessage(err)})
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", domain.MediaContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+media.Filename()+`"`)
	http.ServeContent(w, r, media.Filename(), media.ModTime, f)
}

// Static handles GET /static/{filename} for inline playback.
func (h *MediaHandler) Static(w http.ResponseWriter, r *http.Request) {
	stem, ok := strings.CutSuffix(chi.URLParam(r, "filename"), domain.MediaExtension)
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: domain.MessageNotFound})
		return
	}
	id := domain.PostID(stem)

	f, media, err := h.mediaSvc.Open(r.Context(), id)
	if err != nil {
		status := http.StatusNotFound
		if h.logOpenFault(id, err) {
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, ErrorResponse{Error: domain.UserMessage(err)})
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", domain.MediaContentType)
	http.ServeContent(w, r, media.Filename(), media.ModTime, f)
}

// logOpenFault logs err unless it is a plain not-found outcome and reports
// whether it was a fault.
func (h *MediaHandler) logOpenFault(id domain.PostID, err error) bool {
	if !domain.KindOf(err).IsFault() {
		return false
	}
	h.logger.Error("open video failed", "post_id", id, "error", err)
	return true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
