package realtime

import (
	"context"
	"sync"

	"github.com/corpsite-backoffice/internal/domain"
)

// Broker is an in-process Publisher and Source. It serves single-instance
// deployments where every mutation goes through this process.
type Broker struct {
	mu     sync.RWMutex
	subs   map[*brokerSub]struct{}
	closed bool
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[*brokerSub]struct{})}
}

type brokerSub struct {
	b        *Broker
	onEvent  Handler
	onStatus StatusFunc
	once     sync.Once
}

func (s *brokerSub) Close() error {
	s.once.Do(func() {
		s.b.mu.Lock()
		delete(s.b.subs, s)
		s.b.mu.Unlock()
	})
	return nil
}

// Subscribe registers the handlers and reports Subscribed before returning.
func (b *Broker) Subscribe(_ context.Context, onEvent Handler, onStatus StatusFunc) (Subscription, error) {
	s := &brokerSub{b: b, onEvent: onEvent, onStatus: onStatus}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		onStatus(Closed, nil)
		return s, nil
	}
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	onStatus(Subscribed, nil)
	return s, nil
}

// Publish delivers ev to every current subscriber.
func (b *Broker) Publish(_ context.Context, ev domain.ChangeEvent) error {
	for _, s := range b.snapshot() {
		s.onEvent(ev)
	}
	return nil
}

// Close reports Closed to every subscriber and rejects new ones.
func (b *Broker) Close() {
	b.mu.Lock()
	b.closed = true
	subs := make([]*brokerSub, 0, len(b.subs))
	for s := range b.subs {
		subs = append(subs, s)
	}
	b.subs = make(map[*brokerSub]struct{})
	b.mu.Unlock()

	for _, s := range subs {
		s.onStatus(Closed, nil)
	}
}

func (b *Broker) snapshot() []*brokerSub {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*brokerSub, 0, len(b.subs))
	for s := range b.subs {
		out = append(out, s)
	}
	return out
}
