package player

// Ad insertion engine. Two states: idle (main content) and playing an ad;
// at most one ad plays at a time and an ad id moves from unplayed to played
// exactly once, whether it ended naturally or was skipped.

// midRollWindow is the forward window, in seconds, inside which a mid-roll
// trigger time matches the current position. It keeps an already-passed
// trigger from re-firing on every update tick; large seeks can still jump
// over it and stalled updates can land in it twice.
const midRollWindow = 1.0

func (c *Controller) adPlayed(id string) bool {
	_, ok := c.playedAds[id]
	return ok
}

// maybeStartPreRoll runs once per mount, on the first ready-to-play signal.
func (c *Controller) maybeStartPreRoll() {
	if c.preRollDone {
		return
	}
	c.preRollDone = true
	if c.state.IsPlayingAd {
		return
	}
	for i := range c.opts.Ads {
		ad := c.opts.Ads[i]
		if ad.Type == AdPreRoll && !c.adPlayed(ad.ID) {
			c.startAd(ad)
			return
		}
	}
}

// checkMidRoll scans for an unplayed mid-roll whose trigger time falls
// within the forward window of t. Runs on throttled time updates while no
// ad is playing and the user is not dragging.
func (c *Controller) checkMidRoll(t float64) {
	if c.state.IsPlayingAd || c.dragging {
		return
	}
	for i := range c.opts.Ads {
		ad := c.opts.Ads[i]
		if ad.Type != AdMidRoll || ad.TriggerTime == nil || c.adPlayed(ad.ID) {
			continue
		}
		trigger := *ad.TriggerTime
		if t >= trigger && t < trigger+midRollWindow {
			c.startAd(ad)
			return
		}
	}
}

// maybeStartPostRoll intercepts the ended signal with an unplayed post-roll
// ad. It reports whether an ad took over.
func (c *Controller) maybeStartPostRoll() bool {
	for i := range c.opts.Ads {
		ad := c.opts.Ads[i]
		if ad.Type == AdPostRoll && !c.adPlayed(ad.ID) {
			c.startAd(ad)
			return true
		}
	}
	return false
}

func (c *Controller) startAd(ad Ad) {
	c.state.CurrentAd = &ad
	c.state.IsPlayingAd = true
	c.state.AdTimeRemaining = ad.Duration
	c.state.CanSkipAd = ad.SkipAfter != nil && *ad.SkipAfter <= 0
	c.adResumeAt = c.opts.StartTime

	// Ad creatives are plain files; the adapter tears the engine down and
	// feeds the url straight to the media element.
	if err := c.streaming.attach(ad.MediaURL); err != nil {
		// Unplayable ad: abandon it without marking it played.
		c.state.CurrentAd = nil
		c.state.IsPlayingAd = false
		c.state.AdTimeRemaining = 0
		c.state.CanSkipAd = false
		return
	}
	c.media.Play()
	c.announcer.say("Advertisement starting")

	if c.cb.OnAdStart != nil {
		c.emit(func() { c.cb.OnAdStart(ad) })
	}
	c.emitState()
}

// adTimeUpdate counts remaining ad time down from the declared duration and
// flips skip eligibility once elapsed time reaches skipAfter.
func (c *Controller) adTimeUpdate(elapsed float64) {
	ad := c.state.CurrentAd
	if ad == nil {
		return
	}
	remaining := ad.Duration - elapsed
	if remaining < 0 {
		remaining = 0
	}
	c.state.AdTimeRemaining = remaining
	if ad.SkipAfter != nil && elapsed >= *ad.SkipAfter {
		c.state.CanSkipAd = true
	}
	if remaining <= 0 {
		c.finishAd(false)
		return
	}
	c.emitState()
}

// SkipAd skips the current ad. Skipping before eligibility is a no-op.
func (c *Controller) SkipAd() {
	c.locked(func() {
		if !c.state.IsPlayingAd || !c.state.CanSkipAd {
			return
		}
		c.finishAd(true)
	})
}

// ClickAd opens the ad's click-through url in a new context and reports a
// click event. Clicking with no click-through url is a no-op. Clicks are
// independent of skip and end.
func (c *Controller) ClickAd() {
	c.locked(func() {
		if !c.state.IsPlayingAd || c.state.CurrentAd == nil {
			return
		}
		ad := *c.state.CurrentAd
		if ad.ClickThroughURL == "" {
			return
		}
		if c.opts.OpenURL != nil {
			url := ad.ClickThroughURL
			c.emit(func() { c.opts.OpenURL(url) })
		}
		if c.cb.OnAdClick != nil {
			c.emit(func() { c.cb.OnAdClick(ad) })
		}
	})
}

// finishAd marks the ad played, restores the main source at the configured
// start offset, and resumes playback. Caller must hold the controller lock.
func (c *Controller) finishAd(skipped bool) {
	ad := c.state.CurrentAd
	if ad == nil {
		return
	}
	finished := *ad
	c.playedAds[finished.ID] = struct{}{}
	c.state.CurrentAd = nil
	c.state.IsPlayingAd = false
	c.state.AdTimeRemaining = 0
	c.state.CanSkipAd = false

	if err := c.streaming.attach(c.opts.Source); err == nil {
		c.media.Seek(c.adResumeAt)
		c.state.CurrentTime = c.adResumeAt
		c.media.Play()
	}
	c.announcer.say("Advertisement ended")

	if skipped {
		if c.cb.OnAdSkip != nil {
			c.emit(func() { c.cb.OnAdSkip(finished) })
		}
	} else if c.cb.OnAdEnd != nil {
		c.emit(func() { c.cb.OnAdEnd(finished) })
	}
	c.emitState()
}
