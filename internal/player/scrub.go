package player

// Seek and scrubbing controller: translates pointer input against the
// progress bar's geometry into seeks, drag previews, and hover previews.

// BarGeometry is the progress bar's bounding geometry in host pixels.
type BarGeometry struct {
	Left  float64
	Width float64
}

// fraction maps a pointer x-coordinate to a 0..1 position on the bar.
func (g BarGeometry) fraction(x float64) float64 {
	if g.Width <= 0 {
		return 0
	}
	return clamp((x-g.Left)/g.Width, 0, 1)
}

// SeekFromPointer seeks to the position under a pointer click on the
// progress bar.
func (c *Controller) SeekFromPointer(x float64, geo BarGeometry) {
	c.locked(func() {
		c.seekTo(geo.fraction(x) * c.state.Duration)
	})
}

// BeginScrub enters drag mode. While dragging, native time events are
// ignored and the displayed time follows the pointer; the media seek is
// committed only on release.
func (c *Controller) BeginScrub(x float64, geo BarGeometry) {
	c.locked(func() {
		c.dragging = true
		c.state.CurrentTime = geo.fraction(x) * c.state.Duration
		c.emitState()
	})
}

// MoveScrub updates the displayed time from drag input. Pointer movement is
// tracked globally, so the drag survives the pointer leaving the bar.
func (c *Controller) MoveScrub(x float64, geo BarGeometry) {
	c.locked(func() {
		if !c.dragging {
			return
		}
		c.state.CurrentTime = geo.fraction(x) * c.state.Duration
		c.emitState()
	})
}

// EndScrub leaves drag mode and commits the seek at the release position.
func (c *Controller) EndScrub(x float64, geo BarGeometry) {
	c.locked(func() {
		if !c.dragging {
			return
		}
		c.dragging = false
		c.seekTo(geo.fraction(x) * c.state.Duration)
	})
}

// HoverPreview computes the detached thumbnail preview's timestamp and
// horizontal position. Throttled to bound recomputation; independent of
// drag state.
func (c *Controller) HoverPreview(x float64, geo BarGeometry) {
	c.locked(func() {
		if !c.hoverThrottle.allow(c.now()) {
			return
		}
		frac := geo.fraction(x)
		c.state.ShowThumbnailPreview = true
		c.state.ThumbnailPreviewTime = frac * c.state.Duration
		c.state.ThumbnailPreviewPosition = frac * geo.Width
		c.emitState()
	})
}

// ClearPreview hides the thumbnail preview when the pointer leaves the bar.
func (c *Controller) ClearPreview() {
	c.locked(func() {
		c.state.ShowThumbnailPreview = false
		c.state.ThumbnailPreviewTime = 0
		c.state.ThumbnailPreviewPosition = 0
		c.emitState()
	})
}

// JumpToChapter seeks to a chapter's start time and reports a
// chapter-change event. Chapters are purely navigational; no other state
// changes.
func (c *Controller) JumpToChapter(id string) {
	c.locked(func() {
		for _, ch := range c.opts.Chapters {
			if ch.ID != id {
				continue
			}
			c.seekTo(ch.StartTime)
			if c.cb.OnChapterChange != nil {
				chapter := ch
				c.emit(func() { c.cb.OnChapterChange(chapter) })
			}
			return
		}
	})
}

// DoubleActivate handles a double-click/tap on the left or right half of
// the player: a fixed 10s step seek with transient feedback that
// self-clears.
func (c *Controller) DoubleActivate(leftHalf bool) {
	c.locked(func() {
		if leftHalf {
			c.seekTo(c.state.CurrentTime - stepSeekSeconds)
			c.state.SeekFeedback = "backward"
			c.announcer.say("Seeked backward 10 seconds")
		} else {
			c.seekTo(c.state.CurrentTime + stepSeekSeconds)
			c.state.SeekFeedback = "forward"
			c.announcer.say("Seeked forward 10 seconds")
		}
		c.emitState()
		c.after(seekFeedbackDuration, func() {
			c.state.SeekFeedback = ""
			c.emitState()
		})
	})
}
