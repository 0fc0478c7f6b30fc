package game

import "time"

// timer is a wall-clock countdown driven by the table's tick loop. The zero
// value is an unstarted timer that reports as not running.
type timer struct {
	defaultDuration time.Duration
	deadline        time.Time
	started         bool
}

func newTimer(d time.Duration) *timer {
	return &timer{defaultDuration: d}
}

// start arms the timer. A zero override uses the default duration.
func (t *timer) start(override time.Duration) {
	d := t.defaultDuration
	if override > 0 {
		d = override
	}
	t.deadline = time.Now().Add(d)
	t.started = true
}

// running reports whether the timer was started and has not expired yet.
func (t *timer) running() bool {
	return t.started && time.Now().Before(t.deadline)
}

// remaining returns the time left, or zero for an unstarted or expired timer.
func (t *timer) remaining() time.Duration {
	if !t.started {
		return 0
	}
	left := time.Until(t.deadline)
	if left < 0 {
		return 0
	}
	return left
}
