// Package realtime moves inquiry change events from the store to admin clients: the
// server-side relay that fans events out, and the client-side Feed that folds them
// into an ordered list.
package realtime

import (
	"context"

	"github.com/corpsite-backoffice/internal/domain"
)

// SubscriptionStatus is the state reported by a change subscription.
type SubscriptionStatus string

const (
	Subscribed   SubscriptionStatus = "SUBSCRIBED"
	ChannelError SubscriptionStatus = "CHANNEL_ERROR"
	TimedOut     SubscriptionStatus = "TIMED_OUT"
	Closed       SubscriptionStatus = "CLOSED"
)

// Handler receives one change event. It must not block.
type Handler func(domain.ChangeEvent)

// StatusFunc receives subscription state transitions. err is set for ChannelError
// and TimedOut when the source has one.
type StatusFunc func(SubscriptionStatus, error)

// Source opens change subscriptions on the inquiries collection.
//
// Subscribe reports progress through onStatus, possibly before it returns. A
// non-nil error means the subscription was never opened and onStatus will not be
// called for it.
type Source interface {
	Subscribe(ctx context.Context, onEvent Handler, onStatus StatusFunc) (Subscription, error)
}

// Subscription is an open change subscription. Close is idempotent and does not
// report a status.
type Subscription interface {
	Close() error
}

// Publisher emits change events for mutations made by this process.
type Publisher interface {
	Publish(ctx context.Context, ev domain.ChangeEvent) error
}

// NopPublisher discards events. Used when the store's own change stream is the source.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, domain.ChangeEvent) error { return nil }
