package player

import (
	"strings"
	"time"
)

// Note capture windows the transcript around a trigger point and delivers
// the extracted text asynchronously. The media keeps playing; the capturing
// flag is a timing affordance for the presentation layer.

const (
	noteLeadSeconds   = 5.0
	noteWindowSeconds = 20.0
	noteMaxChars      = 500
)

// notePlaceholder is delivered when no transcript segments overlap the
// capture window. An empty overlap is not an error.
const notePlaceholder = "(no transcript available for this part of the video)"

// Note is the structured result of a capture.
type Note struct {
	StartTime      float64 `json:"startTime"`
	EndTime        float64 `json:"endTime"`
	VideoTime      float64 `json:"videoTime"`
	TranscriptText string  `json:"transcriptText"`
}

// noteWindow computes the fixed-width capture window for a trigger time.
func noteWindow(trigger float64) (start, end float64) {
	start = trigger - noteLeadSeconds
	if start < 0 {
		start = 0
	}
	return start, start + noteWindowSeconds
}

// extractTranscript joins the text of all segments overlapping [start, end),
// trimmed and single-space separated, truncated to noteMaxChars.
func extractTranscript(segments []TranscriptSegment, start, end float64) string {
	var parts []string
	for _, seg := range segments {
		if seg.End <= start || seg.Start >= end {
			continue
		}
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return notePlaceholder
	}
	joined := strings.Join(parts, " ")
	runes := []rune(joined)
	if len(runes) > noteMaxChars {
		joined = string(runes[:noteMaxChars])
	}
	return joined
}

// CaptureNote captures a note at the current playback position. The
// capturing flag stays up until the window has elapsed in playback terms,
// then the note is delivered and the flag clears. Delivery is suppressed
// after Close.
func (c *Controller) CaptureNote() {
	c.locked(func() {
		if c.state.IsCapturingNote {
			return
		}
		trigger := c.state.CurrentTime
		start, end := noteWindow(trigger)
		c.state.IsCapturingNote = true
		c.state.NoteStartTime = start
		c.state.NoteEndTime = end
		c.emitState()

		note := Note{
			StartTime:      start,
			EndTime:        end,
			VideoTime:      trigger,
			TranscriptText: extractTranscript(c.opts.Transcript, start, end),
		}
		delay := time.Duration((end - trigger) * float64(time.Second))
		if delay < 0 {
			delay = 0
		}
		c.after(delay, func() {
			c.state.IsCapturingNote = false
			c.state.NoteStartTime = 0
			c.state.NoteEndTime = 0
			if c.cb.OnNoteTaken != nil {
				c.emit(func() { c.cb.OnNoteTaken(note) })
			}
			c.emitState()
		})
	})
}
