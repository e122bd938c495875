package player

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mssola/useragent"
)

// View tracking accumulates watch time from wall-clock deltas between play
// and pause, so it stays correct under seeking and rate changes. The view
// event fires the first time accumulated watch time reaches
// min(30s, 0.5 x duration), at most once per session.

const viewThresholdCap = 30.0

// ViewEvent is the engagement payload delivered once per session.
type ViewEvent struct {
	ContentID   string `json:"contentId"`
	SessionID   string `json:"sessionId"`
	DeviceClass string `json:"deviceClass"`
	Quality     string `json:"quality"`
}

// DeviceClass derives a coarse device class from a user agent string.
func DeviceClass(ua string) string {
	if ua == "" {
		return "desktop"
	}
	parsed := useragent.New(ua)
	platform := parsed.Platform()
	if strings.Contains(platform, "iPad") {
		return "tablet"
	}
	if parsed.Mobile() {
		return "mobile"
	}
	if osInfo := parsed.OSInfo(); strings.Contains(osInfo.FullName, "Android") {
		// Android without the Mobile token is a tablet.
		return "tablet"
	}
	return "desktop"
}

type viewRecorder struct {
	contentID   string
	deviceClass string
	sessions    SessionStore
	endpoint    string
	client      *http.Client

	watch        float64 // accumulated seconds while not playing
	playingSince time.Time
}

func newViewRecorder(opts Options) *viewRecorder {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &viewRecorder{
		contentID:   opts.ContentID,
		deviceClass: DeviceClass(opts.UserAgent),
		sessions:    opts.Sessions,
		endpoint:    opts.ViewEndpoint,
		client:      client,
	}
}

func (v *viewRecorder) onPlay(now time.Time) {
	if v.playingSince.IsZero() {
		v.playingSince = now
	}
}

func (v *viewRecorder) onPause(now time.Time) float64 {
	if !v.playingSince.IsZero() {
		v.watch += now.Sub(v.playingSince).Seconds()
		v.playingSince = time.Time{}
	}
	return v.watch
}

// accumulated reports total watch time including the current play stretch.
func (v *viewRecorder) accumulated(now time.Time) float64 {
	total := v.watch
	if !v.playingSince.IsZero() {
		total += now.Sub(v.playingSince).Seconds()
	}
	return total
}

func viewThreshold(duration float64) float64 {
	threshold := 0.5 * duration
	if threshold > viewThresholdCap {
		threshold = viewThresholdCap
	}
	return threshold
}

func (v *viewRecorder) thresholdMet(now time.Time, duration float64) bool {
	return v.accumulated(now) >= viewThreshold(duration)
}

// sessionID resolves the durable session id, generating and persisting it
// on first use.
func (v *viewRecorder) sessionID() string {
	if v.sessions == nil {
		return ""
	}
	id, err := v.sessions.SessionID()
	if err != nil {
		slog.Error("player: session id unavailable", "error", err)
		return ""
	}
	return id
}

// deliver routes the view event to the caller's handler when one is set,
// otherwise posts it to the content-view endpoint. Failures are logged and
// swallowed; view tracking never affects playback.
func (v *viewRecorder) deliver(quality string, handler func(ViewEvent)) {
	ev := ViewEvent{
		ContentID:   v.contentID,
		SessionID:   v.sessionID(),
		DeviceClass: v.deviceClass,
		Quality:     quality,
	}
	if handler != nil {
		handler(ev)
		return
	}
	v.post(ev, 10*time.Second)
}

// flushOnTeardown attempts a non-blocking beacon-style delivery during the
// unload sequence when the threshold would be met but the normal path has
// not fired. This can double-report under adverse timing; accepted as a
// best-effort trade-off.
func (v *viewRecorder) flushOnTeardown(now time.Time, duration float64, quality string) {
	if duration <= 0 || !v.thresholdMet(now, duration) {
		return
	}
	ev := ViewEvent{
		ContentID:   v.contentID,
		SessionID:   v.sessionID(),
		DeviceClass: v.deviceClass,
		Quality:     quality,
	}
	v.post(ev, 5*time.Second)
}

// post fires the event at the content-view endpoint without blocking the
// caller.
func (v *viewRecorder) post(ev ViewEvent, timeout time.Duration) {
	if v.endpoint == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		body, err := json.Marshal(ev)
		if err != nil {
			slog.Error("player: failed to encode view event", "error", err)
			return
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(body))
		if err != nil {
			slog.Error("player: failed to build view request", "error", err)
			return
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := v.client.Do(req)
		if err != nil {
			slog.Error("player: view delivery failed", "content_id", ev.ContentID, "error", err)
			return
		}
		_ = resp.Body.Close()
	}()
}
