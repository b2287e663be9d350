package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/corpsite-backoffice/internal/domain"
	"github.com/corpsite-backoffice/internal/metrics"
)

// Broadcaster fans an event out to connected clients without blocking.
type Broadcaster interface {
	Broadcast(ev domain.ChangeEvent)
}

// RelayRetryPolicy backs off like DefaultRetryPolicy but never gives up.
func RelayRetryPolicy() RetryPolicy {
	p := DefaultRetryPolicy()
	p.MaxAttempts = 0
	return p
}

// Relay forwards every event from a Source to a Broadcaster and keeps the
// subscription alive.
type Relay struct {
	source Source
	out    Broadcaster
	retry  RetryPolicy
	log    *slog.Logger
}

func NewRelay(source Source, out Broadcaster, retry RetryPolicy, log *slog.Logger) *Relay {
	if log == nil {
		log = slog.Default()
	}
	return &Relay{source: source, out: out, retry: retry, log: log.With("component", "realtime_relay")}
}

type statusReport struct {
	status SubscriptionStatus
	err    error
}

// Run blocks until ctx is cancelled or the retry policy is exhausted.
func (r *Relay) Run(ctx context.Context) error {
	attempt := 0
	for {
		reports := make(chan statusReport, 4)
		sub, err := r.source.Subscribe(ctx, r.forward, func(st SubscriptionStatus, err error) {
			select {
			case reports <- statusReport{st, err}:
			default:
			}
		})
		if err != nil {
			reports <- statusReport{ChannelError, err}
		}

		failure, done := r.wait(ctx, reports, &attempt)
		if sub != nil {
			_ = sub.Close()
		}
		if done {
			return ctx.Err()
		}

		attempt++
		delay, ok := r.retry.Delay(failure.status, attempt)
		if !ok {
			r.log.Error("change source exhausted retries", "attempts", attempt, "err", failure.err)
			return fmt.Errorf("change source %s after %d attempts", failure.status, attempt)
		}
		metrics.RealtimeSourceReconnects.WithLabelValues(string(failure.status)).Inc()
		r.log.Warn("change source lost", "status", failure.status, "retry_in", delay, "err", failure.err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// wait consumes status reports until a failure arrives or ctx is done.
func (r *Relay) wait(ctx context.Context, reports <-chan statusReport, attempt *int) (statusReport, bool) {
	for {
		select {
		case <-ctx.Done():
			return statusReport{}, true
		case rep := <-reports:
			if rep.status == Subscribed {
				*attempt = 0
				r.log.Info("relaying inquiry changes")
				continue
			}
			return rep, false
		}
	}
}

func (r *Relay) forward(ev domain.ChangeEvent) {
	metrics.RealtimeEventsRelayed.WithLabelValues(string(ev.Type)).Inc()
	r.out.Broadcast(ev)
}
