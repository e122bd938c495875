package player

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const (
	timeUpdateInterval   = 250 * time.Millisecond
	hoverInterval        = 50 * time.Millisecond
	stepSeekSeconds      = 10.0
	seekFeedbackDuration = 600 * time.Millisecond
	controlsHideDelay    = 3 * time.Second
	maxLoadRetries       = 3
)

// Callbacks are the boundary contracts emitted to the caller. Nil fields
// are skipped. Callbacks run outside the controller lock, so they may call
// back into the controller.
type Callbacks struct {
	OnTimeUpdate    func(currentTime float64)
	OnEnded         func()
	OnAdStart       func(Ad)
	OnAdEnd         func(Ad)
	OnAdSkip        func(Ad)
	OnAdClick       func(Ad)
	OnChapterChange func(Chapter)
	OnNoteTaken     func(Note)
	OnViewTracked   func(ViewEvent)
	OnStateChange   func(State)
}

// Options is the construction input for a Controller.
type Options struct {
	ContentID string
	Source    string
	PosterURL string
	AutoPlay  bool
	StartTime float64
	EndTime   float64

	Ads        []Ad
	Chapters   []Chapter
	Transcript []TranscriptSegment
	Watermark  *Watermark

	// Qualities optionally declares the variant list up front for plain
	// sources; manifest sources report their levels through the engine.
	Qualities []Level

	Media     MediaElement
	NewEngine EngineFactory

	// UserAgent is used for the coarse device-class heuristic in view
	// tracking.
	UserAgent string

	Sessions     SessionStore
	ViewEndpoint string
	HTTPClient   *http.Client

	// OpenURL opens an ad click-through in a new context. Nil disables
	// click-through navigation (the click event still fires).
	OpenURL func(url string)

	// Now is the wall clock; defaults to time.Now. Tests inject a fake.
	Now func() time.Time

	Callbacks Callbacks
}

// Controller is the playback state machine. It owns the single mutable
// playback state record; every sub-engine reads and mutates it only through
// controller transitions. All methods are safe for concurrent use, but the
// intended execution model is a single event-driven host loop.
type Controller struct {
	mu     sync.Mutex
	closed bool

	opts Options
	cb   Callbacks
	now  func() time.Time

	media     MediaElement
	streaming *streamAdapter
	views     *viewRecorder
	announcer *announcer

	state      State
	playedAds  map[string]struct{}
	endedFired bool
	retries    int

	dragging    bool
	preRollDone bool
	adResumeAt  float64

	controlsTimer *time.Timer
	controlsDelay time.Duration

	timeThrottle  throttle
	hoverThrottle throttle

	timers  map[*time.Timer]struct{}
	pending []func()
}

// New builds a controller and attaches the source. The media element starts
// in a loading state until the source reports ready.
func New(opts Options) (*Controller, error) {
	if opts.Media == nil {
		return nil, fmt.Errorf("player: media element is required")
	}
	if opts.Source == "" {
		return nil, fmt.Errorf("player: source is required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	c := &Controller{
		opts:      opts,
		cb:        opts.Callbacks,
		now:       opts.Now,
		media:     opts.Media,
		playedAds: make(map[string]struct{}),
		timers:    make(map[*time.Timer]struct{}),
		state: State{
			IsLoading:    true,
			Volume:       1,
			Quality:      "auto",
			PlaybackRate: 1,
			ShowControls: true,
		},
		timeThrottle:  throttle{interval: timeUpdateInterval},
		hoverThrottle: throttle{interval: hoverInterval},
		controlsDelay: controlsHideDelay,
	}
	c.streaming = newStreamAdapter(c, opts.NewEngine, opts.Qualities)
	c.views = newViewRecorder(opts)
	c.announcer = newAnnouncer(c)

	c.mu.Lock()
	if err := c.streaming.attach(opts.Source); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.mu.Unlock()
	return c, nil
}

// Close tears the controller down: cancels timers, destroys the streaming
// engine, and suppresses any asynchronous callback that resolves later. A
// best-effort view delivery is attempted if the threshold would be met.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for t := range c.timers {
		t.Stop()
	}
	c.timers = nil
	c.streaming.destroy()
	views := c.views
	quality := c.state.Quality
	tracked := c.state.HasTrackedView
	now := c.now()
	c.mu.Unlock()

	if !tracked {
		views.flushOnTeardown(now, c.stateDuration(), quality)
	}
}

func (c *Controller) stateDuration() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Duration
}

// State returns an immutable snapshot of the current playback state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// after schedules a one-shot timer whose callback runs under the controller
// lock and is suppressed after Close.
func (c *Controller) after(d time.Duration, fn func()) *time.Timer {
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		delete(c.timers, t)
		fn()
		c.mu.Unlock()
		c.flush()
	})
	c.timers[t] = struct{}{}
	return t
}

// emit queues a callback to run after the lock is released.
func (c *Controller) emit(fn func()) {
	if fn != nil {
		c.pending = append(c.pending, fn)
	}
}

func (c *Controller) emitState() {
	if c.cb.OnStateChange == nil {
		return
	}
	snap := c.snapshot()
	c.pending = append(c.pending, func() { c.cb.OnStateChange(snap) })
}

func (c *Controller) flush() {
	for {
		c.mu.Lock()
		fns := c.pending
		c.pending = nil
		c.mu.Unlock()
		if len(fns) == 0 {
			return
		}
		for _, fn := range fns {
			fn()
		}
	}
}

// locked runs fn under the lock unless the controller is closed, then runs
// any queued callbacks.
func (c *Controller) locked(fn func()) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	fn()
	c.mu.Unlock()
	c.flush()
}

// HandleMediaEvent feeds a native media event into the state machine.
// Events must be delivered in the order the primitive emits them.
func (c *Controller) HandleMediaEvent(ev MediaEvent) {
	c.locked(func() {
		switch ev.Type {
		case EventLoadedMetadata:
			c.state.Duration = ev.Duration
			if c.opts.StartTime > 0 && !c.state.IsPlayingAd {
				c.media.Seek(c.opts.StartTime)
				c.state.CurrentTime = c.opts.StartTime
			}
			c.announcer.say("Video loaded")
			c.emitState()

		case EventTimeUpdate:
			c.handleTimeUpdate(ev.Time)

		case EventPlay:
			c.state.IsPlaying = true
			c.views.onPlay(c.now())
			c.resetControlsTimer()
			c.announcer.say("Playing")
			c.emitState()

		case EventPause:
			c.state.IsPlaying = false
			c.state.ShowControls = true
			c.state.WatchTime = c.views.onPause(c.now())
			c.checkViewThreshold()
			c.announcer.say("Paused")
			c.emitState()

		case EventEnded:
			c.handleEnded()

		case EventVolumeChange:
			c.state.Volume = clamp(ev.Volume, 0, 1)
			c.state.IsMuted = ev.Muted
			c.emitState()

		case EventProgress:
			if c.state.Duration > 0 {
				c.state.Buffered = clamp(ev.BufferedEnd/c.state.Duration*100, 0, 100)
				c.emitState()
			}

		case EventWaiting:
			c.state.IsLoading = true
			c.emitState()

		case EventCanPlay:
			c.state.IsLoading = false
			c.maybeStartPreRoll()
			c.emitState()

		case EventError:
			errInfo := ev.Err
			if errInfo.isZero() {
				errInfo = ErrorInfo{Code: "media_error", Detail: "playback failed"}
			}
			c.state.Err = &errInfo
			c.state.IsLoading = false
			c.state.IsPlaying = false
			slog.Error("player: fatal media error", "code", errInfo.Code, "detail", errInfo.Detail)
			c.emitState()

		case EventFullscreenChange:
			c.state.IsFullscreen = ev.Fullscreen
			c.emitState()

		case EventPiPEnter:
			c.state.IsPictureInPicture = true
			c.emitState()

		case EventPiPLeave:
			c.state.IsPictureInPicture = false
			c.emitState()
		}
	})
}

func (c *Controller) handleTimeUpdate(t float64) {
	// Native time events are ignored for state while the user drags the
	// scrubber; the drag input drives the displayed time instead.
	if c.dragging {
		return
	}
	if c.state.IsPlayingAd {
		c.adTimeUpdate(t)
		return
	}
	if !c.timeThrottle.allow(c.now()) {
		return
	}

	c.state.CurrentTime = t
	c.state.WatchTime = c.views.accumulated(c.now())
	c.checkViewThreshold()

	if c.opts.EndTime > 0 && t >= c.opts.EndTime && !c.endedFired {
		c.media.Pause()
		c.state.IsPlaying = false
		c.handleEnded()
		return
	}

	c.checkMidRoll(t)

	if c.cb.OnTimeUpdate != nil {
		current := c.state.CurrentTime
		c.emit(func() { c.cb.OnTimeUpdate(current) })
	}
	c.emitState()
}

// handleEnded fires the external ended callback exactly once, unless an
// unplayed post-roll ad intercepts it.
func (c *Controller) handleEnded() {
	if c.state.IsPlayingAd {
		c.finishAd(false)
		return
	}
	if c.endedFired {
		return
	}
	if c.maybeStartPostRoll() {
		return
	}
	c.endedFired = true
	c.state.IsPlaying = false
	c.emit(c.cb.OnEnded)
	c.emitState()
}

// Play starts or resumes playback.
func (c *Controller) Play() {
	c.locked(func() { c.media.Play() })
}

// Pause pauses playback.
func (c *Controller) Pause() {
	c.locked(func() { c.media.Pause() })
}

// TogglePlay flips between play and pause.
func (c *Controller) TogglePlay() {
	c.locked(func() {
		if c.state.IsPlaying {
			c.media.Pause()
		} else {
			c.media.Play()
		}
	})
}

// SeekTo issues a clamped seek; the resulting position is always inside
// [0, duration] regardless of the requested target.
func (c *Controller) SeekTo(target float64) {
	c.locked(func() { c.seekTo(target) })
}

func (c *Controller) seekTo(target float64) {
	t := clamp(target, 0, c.state.Duration)
	c.media.Seek(t)
	c.state.CurrentTime = t
	c.emitState()
}

// SeekBy seeks relative to the current position.
func (c *Controller) SeekBy(delta float64) {
	c.locked(func() { c.seekTo(c.state.CurrentTime + delta) })
}

// SetVolume sets the volume, clamped to [0, 1].
func (c *Controller) SetVolume(v float64) {
	c.locked(func() { c.media.SetVolume(clamp(v, 0, 1)) })
}

// AdjustVolume changes the volume by delta, clamped to [0, 1].
func (c *Controller) AdjustVolume(delta float64) {
	c.locked(func() { c.media.SetVolume(clamp(c.state.Volume+delta, 0, 1)) })
}

// ToggleMute flips the muted flag.
func (c *Controller) ToggleMute() {
	c.locked(func() { c.media.SetMuted(!c.state.IsMuted) })
}

// SetRate sets the playback rate if it is one of PlaybackRates; anything
// else is ignored.
func (c *Controller) SetRate(rate float64) {
	c.locked(func() {
		if !validRate(rate) {
			slog.Warn("player: unsupported playback rate", "rate", rate)
			return
		}
		c.media.SetRate(rate)
		c.state.PlaybackRate = rate
		c.emitState()
	})
}

// ToggleFullscreen asks the host to enter or leave fullscreen. The state
// flag follows the fullscreenchange event, not this request.
func (c *Controller) ToggleFullscreen() {
	c.locked(func() { c.media.RequestFullscreen(!c.state.IsFullscreen) })
}

// TogglePictureInPicture asks the host to enter or leave PiP.
func (c *Controller) TogglePictureInPicture() {
	c.locked(func() { c.media.RequestPictureInPicture(!c.state.IsPictureInPicture) })
}

// SetQuality requests a quality level by label ("auto" or a height label
// such as "720p"). Unknown labels are logged and ignored.
func (c *Controller) SetQuality(label string) {
	c.locked(func() { c.streaming.setQuality(label) })
}

// RetryLoad reconstructs the current load attempt after a fatal error. It
// is never invoked automatically; at most maxLoadRetries calls succeed.
func (c *Controller) RetryLoad() error {
	var err error
	c.locked(func() {
		if c.retries >= maxLoadRetries {
			err = fmt.Errorf("player: retry limit of %d reached", maxLoadRetries)
			return
		}
		c.retries++
		c.state.Err = nil
		c.state.IsLoading = true
		c.endedFired = false
		if attachErr := c.streaming.attach(c.opts.Source); attachErr != nil {
			err = attachErr
			return
		}
		c.emitState()
	})
	return err
}

// RegisterActivity shows the controls overlay and resets the auto-hide
// timer. Pointer movement over the player and handled keyboard input both
// qualify.
func (c *Controller) RegisterActivity() {
	c.locked(func() {
		if !c.state.ShowControls {
			c.state.ShowControls = true
			c.emitState()
		}
		c.resetControlsTimer()
	})
}

// resetControlsTimer arms the one-shot auto-hide timer, replacing any
// pending one. Controls never hide while paused or dragging. Caller must
// hold the controller lock.
func (c *Controller) resetControlsTimer() {
	if c.controlsTimer != nil {
		c.controlsTimer.Stop()
		delete(c.timers, c.controlsTimer)
	}
	c.controlsTimer = c.after(c.controlsDelay, func() {
		c.controlsTimer = nil
		if !c.state.IsPlaying || c.dragging {
			return
		}
		c.state.ShowControls = false
		c.emitState()
	})
}

func (c *Controller) checkViewThreshold() {
	if c.state.HasTrackedView || c.state.Duration <= 0 {
		return
	}
	if !c.views.thresholdMet(c.now(), c.state.Duration) {
		return
	}
	c.state.HasTrackedView = true
	quality := c.state.Quality
	views := c.views
	handler := c.cb.OnViewTracked
	c.emit(func() { views.deliver(quality, handler) })
	c.emitState()
}
