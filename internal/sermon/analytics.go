package sermon

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gracestream/gracestream/internal/httputil"
)

type analyticsSummary struct {
	TotalViews  int64   `json:"totalViews"`
	UniqueViews int64   `json:"uniqueViews"`
	ViewsToday  int64   `json:"viewsToday"`
	AvgDaily    float64 `json:"avgDailyViews"`
}

type dailyViews struct {
	Date        string `json:"date"`
	Views       int64  `json:"views"`
	UniqueViews int64  `json:"uniqueViews"`
}

type deviceBreakdown struct {
	Device string `json:"device"`
	Views  int64  `json:"views"`
}

type analyticsResponse struct {
	Summary analyticsSummary  `json:"summary"`
	Daily   []dailyViews      `json:"daily"`
	Devices []deviceBreakdown `json:"devices"`
}

// Analytics reports daily view counts for a sermon over a trailing window.
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	sermonID := chi.URLParam(r, "id")

	var id string
	err := h.db.QueryRow(r.Context(),
		`SELECT id FROM sermons WHERE id = $1 AND status != 'deleted'`,
		sermonID,
	).Scan(&id)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "sermon not found")
		return
	}

	days := 30
	switch r.URL.Query().Get("range") {
	case "", "30d":
	case "7d":
		days = 7
	case "90d":
		days = 90
	default:
		httputil.WriteError(w, http.StatusBadRequest, "invalid range: must be 7d, 30d, or 90d")
		return
	}

	now := time.Now().UTC().Truncate(24 * time.Hour)
	since := now.AddDate(0, 0, -(days - 1))

	rows, err := h.db.Query(r.Context(),
		`SELECT date_trunc('day', created_at) AS day, COUNT(*) AS views, COUNT(DISTINCT viewer_hash) AS unique_views
		 FROM sermon_views WHERE sermon_id = $1 AND created_at >= $2
		 GROUP BY day ORDER BY day`,
		sermonID, since,
	)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to query analytics")
		return
	}
	defer rows.Close()

	byDate := make(map[string]dailyViews)
	for rows.Next() {
		var day time.Time
		var views, unique int64
		if err := rows.Scan(&day, &views, &unique); err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "failed to scan analytics")
			return
		}
		date := day.Format("2006-01-02")
		byDate[date] = dailyViews{Date: date, Views: views, UniqueViews: unique}
	}
	if err := rows.Err(); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to read analytics")
		return
	}

	daily := make([]dailyViews, 0, days)
	var summary analyticsSummary
	today := now.Format("2006-01-02")
	for i := days - 1; i >= 0; i-- {
		date := now.AddDate(0, 0, -i).Format("2006-01-02")
		entry, ok := byDate[date]
		if !ok {
			entry = dailyViews{Date: date}
		}
		daily = append(daily, entry)
		summary.TotalViews += entry.Views
		summary.UniqueViews += entry.UniqueViews
		if date == today {
			summary.ViewsToday = entry.Views
		}
	}
	if days > 0 {
		summary.AvgDaily = float64(summary.TotalViews) / float64(days)
	}

	devices := make([]deviceBreakdown, 0)
	devRows, err := h.db.Query(r.Context(),
		`SELECT device, COUNT(*) AS cnt
		 FROM sermon_views WHERE sermon_id = $1 AND created_at >= $2
		 GROUP BY device ORDER BY cnt DESC`,
		sermonID, since,
	)
	if err == nil {
		defer devRows.Close()
		for devRows.Next() {
			var d deviceBreakdown
			if err := devRows.Scan(&d.Device, &d.Views); err == nil {
				devices = append(devices, d)
			}
		}
	}

	httputil.WriteJSON(w, http.StatusOK, analyticsResponse{
		Summary: summary,
		Daily:   daily,
		Devices: devices,
	})
}
