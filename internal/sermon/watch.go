package sermon

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gracestream/gracestream/internal/httputil"
	"github.com/gracestream/gracestream/internal/player"
)

type watchResponse struct {
	SermonID      string                     `json:"sermonId"`
	Title         string                     `json:"title"`
	Speaker       string                     `json:"speaker"`
	Duration      float64                    `json:"duration"`
	VideoURL      string                     `json:"videoUrl"`
	PosterURL     string                     `json:"posterUrl,omitempty"`
	CreatedAt     string                     `json:"createdAt"`
	Chapters      []player.Chapter           `json:"chapters"`
	Transcript    []player.TranscriptSegment `json:"transcript"`
	Ads           []player.Ad                `json:"ads"`
	Watermark     *player.Watermark          `json:"watermark,omitempty"`
	PlaybackToken string                     `json:"playbackToken"`
}

// Watch returns everything the playback controller needs to mount: presigned
// media and poster URLs, chapters, transcript segments, the ad schedule, and
// a playback token for the telemetry endpoints.
func (h *Handler) Watch(w http.ResponseWriter, r *http.Request) {
	shareToken := chi.URLParam(r, "shareToken")

	var (
		sermonID, title, speaker, fileKey string
		duration                          float64
		createdAt                         time.Time
		posterKey                         *string
		sharePassword                     *string
		transcriptJSON                    *string
		chaptersJSON                      *string
		adsJSON                           *string
		watermarkText                     *string
	)
	err := h.db.QueryRow(r.Context(),
		`SELECT id, title, speaker, duration, file_key, poster_key, share_password,
		        transcript_json, chapters_json, ads_json, watermark_text, created_at
		 FROM sermons WHERE share_token = $1 AND status = 'ready'`,
		shareToken,
	).Scan(&sermonID, &title, &speaker, &duration, &fileKey, &posterKey, &sharePassword,
		&transcriptJSON, &chaptersJSON, &adsJSON, &watermarkText, &createdAt)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "sermon not found")
		return
	}

	if sharePassword != nil {
		if !hasValidWatchCookie(r, h.hmacSecret, shareToken, *sharePassword) {
			httputil.WriteError(w, http.StatusForbidden, "password required")
			return
		}
	}

	videoURL, err := h.storage.GenerateDownloadURL(r.Context(), fileKey, 1*time.Hour)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to generate video URL")
		return
	}

	var posterURL string
	if posterKey != nil {
		if u, err := h.storage.GenerateDownloadURL(r.Context(), *posterKey, 1*time.Hour); err == nil {
			posterURL = u
		}
	}

	transcript := make([]player.TranscriptSegment, 0)
	if transcriptJSON != nil {
		_ = json.Unmarshal([]byte(*transcriptJSON), &transcript)
	}
	chapters := make([]player.Chapter, 0)
	if chaptersJSON != nil {
		_ = json.Unmarshal([]byte(*chaptersJSON), &chapters)
	}
	ads := make([]player.Ad, 0)
	if adsJSON != nil {
		_ = json.Unmarshal([]byte(*adsJSON), &ads)
	}

	var watermark *player.Watermark
	if watermarkText != nil && *watermarkText != "" {
		watermark = &player.Watermark{Text: *watermarkText, Position: "bottom-right"}
	}

	playbackToken, err := mintPlaybackToken(h.tokenSecret, sermonID, shareToken)
	if err != nil {
		slog.Error("sermon: failed to mint playback token", "sermon_id", sermonID, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to prepare playback")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, watchResponse{
		SermonID:      sermonID,
		Title:         title,
		Speaker:       speaker,
		Duration:      duration,
		VideoURL:      videoURL,
		PosterURL:     posterURL,
		CreatedAt:     createdAt.Format(time.RFC3339),
		Chapters:      chapters,
		Transcript:    transcript,
		Ads:           ads,
		Watermark:     watermark,
		PlaybackToken: playbackToken,
	})
}
