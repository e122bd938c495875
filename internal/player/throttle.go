package player

import (
	"fmt"
	"math"
	"time"
)

// throttle rate-limits a high-frequency event by comparing wall-clock
// timestamps against the last fired timestamp. It never delays or cancels
// pending work; callers simply drop updates that arrive too soon.
type throttle struct {
	interval time.Duration
	last     time.Time
}

func (t *throttle) allow(now time.Time) bool {
	if !t.last.IsZero() && now.Sub(t.last) < t.interval {
		return false
	}
	t.last = now
	return true
}

// FormatTime renders seconds as M:SS, or H:MM:SS above an hour.
func FormatTime(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return "0:00"
	}
	s := int(seconds)
	if s >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", s/3600, (s%3600)/60, s%60)
	}
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
