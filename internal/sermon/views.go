package sermon

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gracestream/gracestream/internal/httputil"
)

// recordViewRequest is the payload the playback controller posts once its
// watch-time threshold is met.
type recordViewRequest struct {
	SessionID   string `json:"sessionId"`
	DeviceClass string `json:"deviceClass"`
	Quality     string `json:"quality"`
}

// RecordView is the content-view endpoint. The server enriches the event
// with referrer category, browser, device, and location before storing it.
// Telemetry is best-effort; any shape of failure answers 204 so the player
// never sees it.
func (h *Handler) RecordView(w http.ResponseWriter, r *http.Request) {
	shareToken := chi.URLParam(r, "shareToken")

	claims, err := h.playbackClaimsFromRequest(r)
	if err != nil || claims.ShareToken != shareToken {
		httputil.WriteError(w, http.StatusUnauthorized, "valid playback token required")
		return
	}

	var req recordViewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ip := clientIP(r)
	ua := r.UserAgent()
	device := req.DeviceClass
	if device == "" {
		device = parseDevice(ua)
	}
	country, city := h.geoResolver.Lookup(ip)

	if _, err := h.db.Exec(r.Context(),
		`INSERT INTO sermon_views (sermon_id, session_id, viewer_hash, device, browser, referrer, quality, country, city)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		claims.SermonID, req.SessionID, viewerHash(ip, ua), device, parseBrowser(ua),
		categorizeReferrer(r.Header.Get("Referer")), req.Quality, country, city,
	); err != nil {
		slog.Error("sermon: failed to record view", "sermon_id", claims.SermonID, "error", err)
	}

	w.WriteHeader(http.StatusNoContent)
}
