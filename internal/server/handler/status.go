package handler

import (
	"net/http"
	"time"
)

// StatusHandler reports the trading mode and live load of the bot.
type StatusHandler struct {
	mode      string
	startedAt time.Time
	sessions  func() int
	workers   func() int
}

// NewStatusHandler creates a StatusHandler. sessions and workers may be nil.
func NewStatusHandler(mode string, startedAt time.Time, sessions, workers func() int) *StatusHandler {
	return &StatusHandler{mode: mode, startedAt: startedAt, sessions: sessions, workers: workers}
}

// GetStatus responds with mode, active sessions, busy user workers and uptime.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":            h.mode,
		"active_sessions": count(h.sessions),
		"active_workers":  count(h.workers),
		"started_at":      h.startedAt.UTC().Format(time.RFC3339),
		"uptime_seconds":  int64(time.Since(h.startedAt).Seconds()),
	})
}

func count(f func() int) int {
	if f == nil {
		return 0
	}
	return f()
}
