package api

import (
	"errors"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/readvideos/vt-engine/internal/pipeline"
	"github.com/readvideos/vt-engine/internal/store"
)

// Enqueuer is the slice of the worker pool the API needs.
type Enqueuer interface {
	Enqueue(j pipeline.Job) bool
	Stats() pipeline.QueueStats
}

// VideosHandler serves the video catalog and per-video transcripts.
type VideosHandler struct {
	store *store.FileStore
	queue Enqueuer
}

func NewVideosHandler(st *store.FileStore, queue Enqueuer) *VideosHandler {
	return &VideosHandler{store: st, queue: queue}
}

// Routes registers video routes on the given router.
func (h *VideosHandler) Routes(r chi.Router) {
	r.Get("/videos", h.List)
	r.Post("/videos", h.Submit)
	r.Get("/videos/{id}", h.Get)
	r.Delete("/videos/{id}", h.Delete)
	r.Get("/videos/{id}/transcript", h.GetTranscript)
	r.Get("/queue", h.QueueStats)
}

// List returns catalog entries, most recently processed first.
func (h *VideosHandler) List(w http.ResponseWriter, r *http.Request) {
	p, err := ParsePagination(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.store.LoadCatalog()
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to load catalog")
		return
	}

	total := len(entries)
	start := p.Offset
	if start > total {
		start = total
	}
	end := start + p.Limit
	if end > total {
		end = total
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"videos": entries[start:end],
		"total":  total,
		"limit":  p.Limit,
		"offset": p.Offset,
	})
}

type submitRequest struct {
	Path string `json:"path"`
}

// Submit queues an existing video file for processing. The normal intake is
// the inbox watcher; this endpoint covers files outside the inbox.
func (h *VideosHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		WriteError(w, http.StatusBadRequest, "path is required")
		return
	}

	info, err := os.Stat(req.Path)
	if err != nil || info.IsDir() {
		WriteError(w, http.StatusBadRequest, "path is not a readable file")
		return
	}

	if !h.queue.Enqueue(pipeline.Job{VideoPath: req.Path}) {
		WriteError(w, http.StatusServiceUnavailable, "processing queue is full")
		return
	}

	hlog.FromRequest(r).Info().Str("video", req.Path).Msg("video submitted via api")
	WriteJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "path": req.Path})
}

// Get returns one catalog entry.
func (h *VideosHandler) Get(w http.ResponseWriter, r *http.Request) {
	entry, err := h.store.GetFromCatalog(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "video not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, "failed to load catalog")
		return
	}
	WriteJSON(w, http.StatusOK, entry)
}

// Delete removes a video from the catalog along with its transcript file.
// With ?delete_video=true the source video file is removed too.
func (h *VideosHandler) Delete(w http.ResponseWriter, r *http.Request) {
	entry, err := h.store.RemoveFromCatalog(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "video not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, "failed to update catalog")
		return
	}

	log := hlog.FromRequest(r)
	if err := h.store.DeleteTranscript(entry.TranscriptPath); err != nil {
		// Catalog entry is already gone; report but don't fail the delete.
		log.Warn().Err(err).Str("path", entry.TranscriptPath).Msg("transcript file not removed")
	}

	if v, _ := QueryString(r, "delete_video"); v == "true" && entry.VideoPath != "" {
		if err := os.Remove(entry.VideoPath); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", entry.VideoPath).Msg("video file not removed")
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetTranscript returns the full transcript record for a video.
func (h *VideosHandler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	entry, err := h.store.GetFromCatalog(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "video not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, "failed to load catalog")
		return
	}

	rec, err := h.store.LoadTranscript(entry.TranscriptPath)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "transcript not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, "failed to load transcript")
		return
	}

	// Plain text rendering for curl and shell pipelines.
	if format, _ := QueryString(r, "format"); format == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(rec.TimestampedText()))
		return
	}

	WriteJSON(w, http.StatusOK, rec)
}

// QueueStats returns current processing queue statistics.
func (h *VideosHandler) QueueStats(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.queue.Stats())
}
