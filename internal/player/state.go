package player

import "sort"

// ErrorInfo describes a fatal playback error. A zero ErrorInfo means no
// error.
type ErrorInfo struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

func (e ErrorInfo) isZero() bool {
	return e.Code == "" && e.Detail == ""
}

// AdType is the slot an ad is scheduled into.
type AdType string

const (
	AdPreRoll  AdType = "pre-roll"
	AdMidRoll  AdType = "mid-roll"
	AdPostRoll AdType = "post-roll"
)

// Ad is an advertisement supplied once at construction. Ads are immutable;
// the controller references them by ID only.
type Ad struct {
	ID              string   `json:"id"`
	Type            AdType   `json:"type"`
	MediaURL        string   `json:"mediaUrl"`
	Duration        float64  `json:"duration"`
	SkipAfter       *float64 `json:"skipAfter,omitempty"`
	TriggerTime     *float64 `json:"triggerTime,omitempty"`
	ClickThroughURL string   `json:"clickThroughUrl,omitempty"`
	Advertiser      string   `json:"advertiser,omitempty"`
}

// Chapter is read-only reference data used for marker rendering and jump
// navigation.
type Chapter struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	StartTime float64  `json:"startTime"`
	EndTime   *float64 `json:"endTime,omitempty"`
}

// TranscriptSegment is one timed span of transcript text.
type TranscriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Watermark describes an overlay the presentation layer renders on top of
// the video. The controller only carries it through to the watch payload.
type Watermark struct {
	Text     string `json:"text"`
	ImageURL string `json:"imageUrl,omitempty"`
	Position string `json:"position,omitempty"`
}

// PlaybackRates is the fixed set of rates the controller accepts.
var PlaybackRates = []float64{0.5, 0.75, 1, 1.25, 1.5, 2}

// State is a snapshot of the playback state. Snapshots are values; mutating
// one has no effect on the controller.
type State struct {
	IsPlaying bool
	IsLoading bool
	Err       *ErrorInfo

	CurrentTime float64
	Duration    float64
	Buffered    float64 // percent of duration, 0..100

	Volume  float64
	IsMuted bool

	IsFullscreen       bool
	IsPictureInPicture bool

	Quality      string // level label or "auto"
	PlaybackRate float64

	CurrentAd       *Ad
	IsPlayingAd     bool
	AdTimeRemaining float64
	CanSkipAd       bool
	PlayedAds       []string // sorted ad IDs, grows monotonically

	HasTrackedView bool
	WatchTime      float64 // accumulated wall-clock seconds

	ShowThumbnailPreview     bool
	ThumbnailPreviewTime     float64
	ThumbnailPreviewPosition float64

	IsCapturingNote bool
	NoteStartTime   float64
	NoteEndTime     float64

	SeekFeedback string // "forward", "backward" or empty; self-clears

	ShowControls bool // controls overlay visibility; auto-hides during playback
}

// snapshot builds an immutable copy of the controller's state for
// subscribers. Caller must hold the controller lock.
func (c *Controller) snapshot() State {
	s := c.state
	if c.state.Err != nil {
		errCopy := *c.state.Err
		s.Err = &errCopy
	}
	if c.state.CurrentAd != nil {
		adCopy := *c.state.CurrentAd
		s.CurrentAd = &adCopy
	}
	s.PlayedAds = make([]string, 0, len(c.playedAds))
	for id := range c.playedAds {
		s.PlayedAds = append(s.PlayedAds, id)
	}
	sort.Strings(s.PlayedAds)
	return s
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func validRate(r float64) bool {
	for _, allowed := range PlaybackRates {
		if r == allowed {
			return true
		}
	}
	return false
}
