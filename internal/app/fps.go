package app

import "time"

// fpsTracker reports int(1/Δt) between consecutive ticks, 0 on the first.
type fpsTracker struct {
	prev time.Time
}

func (f *fpsTracker) tick(now time.Time) int {
	prev := f.prev
	f.prev = now
	if prev.IsZero() {
		return 0
	}
	dt := now.Sub(prev).Seconds()
	if dt <= 0 {
		return 0
	}
	return int(1 / dt)
}
