package player

import "time"

// Accessibility layer: a fixed keyboard table dispatching controller
// actions and a transient screen-reader announcement queue. The queue is
// append-only with self-expiry; entries are never manually cleared.

const announcementTTL = time.Second

// announcer holds the transient announcement strings. It shares the
// controller's lock; every method must be called with it held.
type announcer struct {
	c       *Controller
	entries []string
}

func newAnnouncer(c *Controller) *announcer {
	return &announcer{c: c}
}

func (a *announcer) say(text string) {
	a.entries = append(a.entries, text)
	a.c.after(announcementTTL, func() {
		for i, e := range a.entries {
			if e == text {
				a.entries = append(a.entries[:i], a.entries[i+1:]...)
				break
			}
		}
	})
}

// Announcements returns the live screen-reader announcements, oldest first.
func (c *Controller) Announcements() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.announcer.entries))
	copy(out, c.announcer.entries)
	return out
}

// HandleKey dispatches a keyboard shortcut to its controller action and
// reports whether the key was handled. Keys follow the DOM KeyboardEvent
// key values.
func (c *Controller) HandleKey(key string) bool {
	switch key {
	case " ", "Space":
		c.TogglePlay()
	case "ArrowLeft":
		c.SeekBy(-stepSeekSeconds)
	case "ArrowRight":
		c.SeekBy(stepSeekSeconds)
	case "ArrowUp":
		c.AdjustVolume(0.1)
	case "ArrowDown":
		c.AdjustVolume(-0.1)
	case "m", "M":
		c.ToggleMute()
	case "f", "F":
		c.ToggleFullscreen()
	case "p", "P":
		c.TogglePictureInPicture()
	default:
		return false
	}
	c.RegisterActivity()
	return true
}
