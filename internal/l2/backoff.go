package l2

import "time"

// backoff yields exponentially growing delays capped at max.
type backoff struct {
	initial time.Duration
	max     time.Duration
	mult    float64
	cur     time.Duration
}

func newBackoff(initial, max time.Duration, mult float64) *backoff {
	return &backoff{initial: initial, max: max, mult: mult, cur: initial}
}

// next returns the delay to wait now and grows the following one.
func (b *backoff) next() time.Duration {
	d := b.cur
	b.cur = time.Duration(float64(b.cur) * b.mult)
	if b.cur > b.max {
		b.cur = b.max
	}
	return d
}

func (b *backoff) reset() {
	b.cur = b.initial
}
