package handlers

import (
	"context"
	"net/http"
	"time"
)

// Check pings one backing dependency.
type Check func(ctx context.Context) error

// StatsSource reports live connection counts.
type StatsSource interface {
	Stats() (users, connections int)
}

// GroupStats reports broadcast groups with at least one subscriber.
type GroupStats interface {
	Stats() (connections, rooms int)
}

// PresenceMirror lists the users the shared presence store sees online.
type PresenceMirror interface {
	OnlineUsers(ctx context.Context) ([]int64, error)
}

// HealthSources are the optional live counters reported by /health.
type HealthSources struct {
	Engine StatsSource
	Groups GroupStats
	Mirror PresenceMirror
}

type HealthHandler struct {
	service string
	checks  map[string]Check
	src     HealthSources
	started time.Time
	timeout time.Duration
}

func NewHealthHandler(service string, src HealthSources, checks map[string]Check) *HealthHandler {
	return &HealthHandler{
		service: service,
		checks:  checks,
		src:     src,
		started: time.Now(),
		timeout: 2 * time.Second,
	}
}

func (h *HealthHandler) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": h.service + " server",
		"status":  "running",
		"endpoints": map[string]string{
			"health":    "/health",
			"api":       "/api",
			"websocket": "/ws",
		},
	})
}

func (h *HealthHandler) API(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": h.service + " API",
		"endpoints": map[string]string{
			"auth":     "/api/auth",
			"rooms":    "/api/rooms",
			"messages": "/api/messages",
		},
	})
}

// Health reports 503 when any dependency check fails.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	status, code := "OK", http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			deps[name] = "unavailable"
			status, code = "DEGRADED", http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}
	body := map[string]any{
		"status":       status,
		"timestamp":    time.Now().UTC(),
		"uptime":       time.Since(h.started).Seconds(),
		"dependencies": deps,
	}
	if h.src.Engine != nil {
		users, conns := h.src.Engine.Stats()
		body["connectedUsers"] = users
		body["connections"] = conns
	}
	if h.src.Groups != nil {
		_, rooms := h.src.Groups.Stats()
		body["activeRooms"] = rooms
	}
	if h.src.Mirror != nil {
		// the mirror is best-effort and does not degrade health
		if online, err := h.src.Mirror.OnlineUsers(ctx); err == nil {
			body["mirrorOnline"] = len(online)
		} else {
			deps["presence_mirror"] = "unavailable"
		}
	}
	writeJSON(w, code, body)
}
