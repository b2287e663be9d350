// Package notify keeps the client-side list of notifications raised by the inquiry
// feed: duplicate suppression, a retention cap and auto-expiry.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/corpsite-backoffice/internal/domain"
	"github.com/corpsite-backoffice/internal/pkg/id"
)

const (
	// DedupWindow is how long a signature blocks identical notifications.
	DedupWindow = 5 * time.Second
	// SweepInterval is how often stale signatures are purged.
	SweepInterval = 60 * time.Second
	// MaxNotifications is the number of notifications retained; the oldest go first.
	MaxNotifications = 50
	// DefaultDuration applies to auto-closing notifications that set no duration.
	DefaultDuration = 5 * time.Second
)

// Option configures a Center.
type Option func(*Center)

// WithClock replaces time.Now, used for dedup bookkeeping and timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Center) { c.now = now }
}

// Center owns the notification list and the recently-seen signature cache.
type Center struct {
	mu       sync.Mutex
	now      func() time.Time
	items    []domain.Notification // newest first
	seen     map[string]time.Time
	timers   map[string]*time.Timer
	onChange func([]domain.Notification)
	closed   bool
}

func NewCenter(opts ...Option) *Center {
	c := &Center{
		now:    time.Now,
		seen:   make(map[string]time.Time),
		timers: make(map[string]*time.Timer),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// OnChange registers fn to receive the list after every change.
func (c *Center) OnChange(fn func([]domain.Notification)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Add stores n unless a notification with the same signature was added within
// DedupWindow, in which case it is dropped and added is false.
func (c *Center) Add(n domain.Notification) (string, bool) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", false
	}
	now := c.now()
	sig := n.Signature()
	if last, ok := c.seen[sig]; ok && now.Sub(last) < DedupWindow {
		c.mu.Unlock()
		return "", false
	}
	c.seen[sig] = now

	if n.ID == "" {
		n.ID = id.New()
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = now
	}
	if n.AutoClose && n.Duration <= 0 {
		n.Duration = DefaultDuration
	}
	c.items = append([]domain.Notification{n}, c.items...)
	for len(c.items) > MaxNotifications {
		dropped := c.items[len(c.items)-1]
		c.items = c.items[:len(c.items)-1]
		c.stopTimer(dropped.ID)
	}
	if n.AutoClose && !n.RequireInteraction {
		nid := n.ID
		c.timers[nid] = time.AfterFunc(n.Duration, func() { c.Remove(nid) })
	}
	fn, snapshot := c.changed()
	c.mu.Unlock()

	if fn != nil {
		fn(snapshot)
	}
	return n.ID, true
}

// Remove deletes the notification with the given id.
func (c *Center) Remove(nid string) bool {
	c.mu.Lock()
	idx := c.index(nid)
	if idx < 0 {
		c.mu.Unlock()
		return false
	}
	c.items = append(c.items[:idx], c.items[idx+1:]...)
	c.stopTimer(nid)
	fn, snapshot := c.changed()
	c.mu.Unlock()

	if fn != nil {
		fn(snapshot)
	}
	return true
}

func (c *Center) MarkRead(nid string) bool {
	c.mu.Lock()
	idx := c.index(nid)
	if idx < 0 {
		c.mu.Unlock()
		return false
	}
	c.items[idx].Read = true
	fn, snapshot := c.changed()
	c.mu.Unlock()

	if fn != nil {
		fn(snapshot)
	}
	return true
}

func (c *Center) MarkAllRead() {
	c.mu.Lock()
	for i := range c.items {
		c.items[i].Read = true
	}
	fn, snapshot := c.changed()
	c.mu.Unlock()

	if fn != nil {
		fn(snapshot)
	}
}

// Clear removes every notification. The signature cache is kept.
func (c *Center) Clear() {
	c.mu.Lock()
	for nid := range c.timers {
		c.stopTimer(nid)
	}
	c.items = nil
	fn, snapshot := c.changed()
	c.mu.Unlock()

	if fn != nil {
		fn(snapshot)
	}
}

// List returns a copy of the retained notifications, newest first.
func (c *Center) List() []domain.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyItems()
}

func (c *Center) UnreadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, it := range c.items {
		if !it.Read {
			n++
		}
	}
	return n
}

// Run purges stale signatures every SweepInterval until ctx is cancelled.
func (c *Center) Run(ctx context.Context) {
	ticker := time.NewTicker(SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

// Close stops every expiry timer. Add is a no-op afterwards.
func (c *Center) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for nid := range c.timers {
		c.stopTimer(nid)
	}
}

// sweep drops signatures older than twice the dedup window.
func (c *Center) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	cutoff := c.now().Add(-2 * DedupWindow)
	for sig, seen := range c.seen {
		if seen.Before(cutoff) {
			delete(c.seen, sig)
		}
	}
}

func (c *Center) index(nid string) int {
	for i, it := range c.items {
		if it.ID == nid {
			return i
		}
	}
	return -1
}

func (c *Center) stopTimer(nid string) {
	if t, ok := c.timers[nid]; ok {
		t.Stop()
		delete(c.timers, nid)
	}
}

func (c *Center) copyItems() []domain.Notification {
	out := make([]domain.Notification, len(c.items))
	copy(out, c.items)
	return out
}

// changed must be called with mu held.
func (c *Center) changed() (func([]domain.Notification), []domain.Notification) {
	if c.onChange == nil {
		return nil, nil
	}
	return c.onChange, c.copyItems()
}
