package notify

import (
	"time"

	"golang.org/x/time/rate"
)

// Throttle admits at most one emission per window. A single Throttle is shared by
// everything that raises notifications in the process.
type Throttle struct {
	limiter *rate.Limiter
	now     func() time.Time
}

// NewThrottle returns a gate that opens once per window.
func NewThrottle(window time.Duration) *Throttle {
	return &Throttle{
		limiter: rate.NewLimiter(rate.Every(window), 1),
		now:     time.Now,
	}
}

// Allow reports whether an emission may happen now and consumes the slot if so.
func (t *Throttle) Allow() bool {
	return t.limiter.AllowN(t.now(), 1)
}
