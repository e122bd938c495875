package sermon

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gracestream/gracestream/internal/httputil"
)

type recordNoteRequest struct {
	SessionID      string  `json:"sessionId"`
	VideoTime      float64 `json:"videoTime"`
	StartTime      float64 `json:"startTime"`
	EndTime        float64 `json:"endTime"`
	TranscriptText string  `json:"transcriptText"`
}

const noteTextLimit = 500

// RecordNote persists a note captured by the playback controller.
func (h *Handler) RecordNote(w http.ResponseWriter, r *http.Request) {
	shareToken := chi.URLParam(r, "shareToken")

	claims, err := h.playbackClaimsFromRequest(r)
	if err != nil || claims.ShareToken != shareToken {
		httputil.WriteError(w, http.StatusUnauthorized, "valid playback token required")
		return
	}

	var req recordNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.EndTime < req.StartTime || req.StartTime < 0 {
		httputil.WriteError(w, http.StatusBadRequest, "invalid note window")
		return
	}
	if runes := []rune(req.TranscriptText); len(runes) > noteTextLimit {
		req.TranscriptText = string(runes[:noteTextLimit])
	}

	if _, err := h.db.Exec(r.Context(),
		`INSERT INTO sermon_notes (sermon_id, session_id, video_time, start_time, end_time, transcript_text)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		claims.SermonID, req.SessionID, req.VideoTime, req.StartTime, req.EndTime, req.TranscriptText,
	); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to save note")
		return
	}

	w.WriteHeader(http.StatusCreated)
}
