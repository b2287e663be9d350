// Package redis carries inquiry change events over a Redis pub/sub channel so that
// every API instance relays mutations made by any other instance.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/corpsite-backoffice/internal/config"
	"github.com/corpsite-backoffice/internal/domain"
	"github.com/corpsite-backoffice/internal/realtime"
	goredis "github.com/redis/go-redis/v9"
)

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, cfg config.RealtimeConfig) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// ChangeBus is a realtime.Publisher and realtime.Source backed by one channel.
type ChangeBus struct {
	rdb     goredis.UniversalClient
	channel string
	log     *slog.Logger
}

func NewChangeBus(rdb goredis.UniversalClient, channel string, log *slog.Logger) *ChangeBus {
	if log == nil {
		log = slog.Default()
	}
	return &ChangeBus{rdb: rdb, channel: channel, log: log.With("component", "redis_changes", "channel", channel)}
}

// Publish sends ev as JSON on the channel.
func (b *ChangeBus) Publish(ctx context.Context, ev domain.ChangeEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	if err := b.rdb.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish change event: %w", err)
	}
	return nil
}

type busSub struct {
	pubsub *goredis.PubSub
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (s *busSub) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.pubsub.Close()
		<-s.done
	})
	return err
}

// Subscribe waits for the subscription confirmation, reports Subscribed, then
// listens in the background. Undecodable messages are logged and skipped.
func (b *ChangeBus) Subscribe(ctx context.Context, onEvent realtime.Handler, onStatus realtime.StatusFunc) (realtime.Subscription, error) {
	pubsub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	onStatus(realtime.Subscribed, nil)

	ctx, cancel := context.WithCancel(ctx)
	sub := &busSub{pubsub: pubsub, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		b.listen(ctx, pubsub.Channel(), onEvent, onStatus)
	}()
	return sub, nil
}

func (b *ChangeBus) listen(ctx context.Context, ch <-chan *goredis.Message, onEvent realtime.Handler, onStatus realtime.StatusFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				if ctx.Err() == nil {
					onStatus(realtime.Closed, nil)
				}
				return
			}
			var ev domain.ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.log.Warn("bad change message", "err", err)
				continue
			}
			onEvent(ev)
		}
	}
}
