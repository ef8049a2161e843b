package api

import (
	"net/http"
	"os"
	"time"

	"github.com/readvideos/vt-engine/internal/pipeline"
	"github.com/readvideos/vt-engine/internal/store"
	"github.com/readvideos/vt-engine/internal/watch"
)

// ConnChecker reports the connection state of an optional external link
// (e.g. the MQTT notifier).
type ConnChecker interface {
	IsConnected() bool
}

type HealthResponse struct {
	Status        string               `json:"status"`
	Version       string               `json:"version"`
	UptimeSeconds int64                `json:"uptime_seconds"`
	Checks        map[string]string    `json:"checks"`
	Queue         *pipeline.QueueStats `json:"queue,omitempty"`
	Watcher       *watch.Status        `json:"watcher,omitempty"`
}

type HealthHandler struct {
	store     *store.FileStore
	queue     Enqueuer
	watcher   *watch.Watcher
	notifier  ConnChecker
	version   string
	startTime time.Time
}

func NewHealthHandler(st *store.FileStore, queue Enqueuer, watcher *watch.Watcher, notifier ConnChecker, version string, startTime time.Time) *HealthHandler {
	return &HealthHandler{
		store:     st,
		queue:     queue,
		watcher:   watcher,
		notifier:  notifier,
		version:   version,
		startTime: startTime,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	status := "healthy"
	httpStatus := http.StatusOK

	// Data directory check
	if _, err := os.Stat(h.store.Dir()); err != nil {
		checks["store"] = "error"
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	// Notifier check
	if h.notifier != nil {
		if h.notifier.IsConnected() {
			checks["notifier"] = "ok"
		} else {
			checks["notifier"] = "disconnected"
			if status == "healthy" {
				status = "degraded"
			}
		}
	} else {
		checks["notifier"] = "not_configured"
	}

	resp := HealthResponse{
		Status:        status,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Checks:        checks,
	}
	if h.queue != nil {
		stats := h.queue.Stats()
		resp.Queue = &stats
	}
	if h.watcher != nil {
		ws := h.watcher.CurrentStatus()
		checks["watcher"] = ws.Status
		resp.Watcher = &ws
	}

	WriteJSON(w, httpStatus, resp)
}
