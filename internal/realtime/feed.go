package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/corpsite-backoffice/internal/domain"
	"github.com/corpsite-backoffice/internal/notify"
)

// ConnectionStatus is the feed's view of its change subscription.
type ConnectionStatus string

const (
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
	StatusDisconnected ConnectionStatus = "disconnected"
)

const (
	// DefaultFetchLimit bounds the initial fetch.
	DefaultFetchLimit = 100
	// DefaultDebounce is the quiet period after the last event before a flush.
	DefaultDebounce = 100 * time.Millisecond
)

// Fetcher loads the newest inquiries, created_at descending.
type Fetcher interface {
	ListRecent(ctx context.Context, limit int) ([]domain.Inquiry, error)
}

// Notifier receives notifications raised by the feed. *notify.Center satisfies it.
type Notifier interface {
	Add(n domain.Notification) (string, bool)
}

// Snapshot is a copy of the feed state.
type Snapshot struct {
	Items   []domain.Inquiry
	Loading bool
	Error   string
	Status  ConnectionStatus
}

type FeedDeps struct {
	Fetcher  Fetcher
	Source   Source
	Notifier Notifier
	// Throttle gates notifications. Share one across the process; nil allocates a
	// private one-per-second gate.
	Throttle   *notify.Throttle
	Retry      RetryPolicy
	Debounce   time.Duration
	FetchLimit int
	Logger     *slog.Logger
	// OnChange receives a snapshot after every state change.
	OnChange func(Snapshot)
}

type pendingUpdate struct {
	event   domain.ChangeEvent
	arrived time.Time
	seq     uint64
}

// Feed mirrors the inquiries collection: an initial bounded fetch followed by
// debounced application of change events, with resubscription on failure.
type Feed struct {
	deps FeedDeps
	log  *slog.Logger
	now  func() time.Time

	mu       sync.Mutex
	running  bool
	ctx      context.Context
	cancel   context.CancelFunc
	gen      uint64 // bumped whenever callbacks of the previous setup must be ignored
	items    []domain.Inquiry
	loading  bool
	errMsg   string
	status   ConnectionStatus
	sub      Subscription
	attempts int

	pending     []pendingUpdate
	seq         uint64
	debounce    *time.Timer
	debounceSeq uint64
	retryTimer  *time.Timer
}

func NewFeed(deps FeedDeps) *Feed {
	if deps.Throttle == nil {
		deps.Throttle = notify.NewThrottle(time.Second)
	}
	if deps.Debounce <= 0 {
		deps.Debounce = DefaultDebounce
	}
	if deps.FetchLimit <= 0 {
		deps.FetchLimit = DefaultFetchLimit
	}
	if deps.Retry.Base == nil {
		deps.Retry = DefaultRetryPolicy()
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Feed{
		deps:   deps,
		log:    log.With("component", "inquiry_feed"),
		now:    time.Now,
		status: StatusConnecting,
	}
}

// Start fetches the newest inquiries and opens the change subscription. It does
// nothing when enabled is false or the feed is already running.
func (f *Feed) Start(ctx context.Context, enabled bool) {
	if !enabled {
		return
	}
	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		return
	}
	f.running = true
	f.ctx, f.cancel = context.WithCancel(ctx)
	f.attempts = 0
	f.mu.Unlock()

	f.setup()
}

// Stop cancels the debounce timer, the retry timer and the subscription. Safe to
// call more than once.
func (f *Feed) Stop() {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return
	}
	f.running = false
	f.gen++
	f.debounceSeq++
	if f.debounce != nil {
		f.debounce.Stop()
		f.debounce = nil
	}
	if f.retryTimer != nil {
		f.retryTimer.Stop()
		f.retryTimer = nil
	}
	f.pending = nil
	f.loading = false
	f.status = StatusDisconnected
	sub, cancel := f.sub, f.cancel
	f.sub = nil
	f.mu.Unlock()

	cancel()
	if sub != nil {
		if err := sub.Close(); err != nil {
			f.log.Warn("close subscription", "err", err)
		}
	}
	f.emit()
}

// Refetch reruns the bounded fetch. Entries are keyed by id, so no duplicates result.
func (f *Feed) Refetch(ctx context.Context) {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return
	}
	gen := f.gen
	f.mu.Unlock()
	f.fetch(ctx, gen)
}

func (f *Feed) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *Feed) snapshotLocked() Snapshot {
	items := make([]domain.Inquiry, len(f.items))
	copy(items, f.items)
	return Snapshot{Items: items, Loading: f.loading, Error: f.errMsg, Status: f.status}
}

// setup runs one connection attempt: fetch, then subscribe.
func (f *Feed) setup() {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return
	}
	f.gen++
	gen, ctx := f.gen, f.ctx
	old := f.sub
	f.sub = nil
	f.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	f.fetch(ctx, gen)
	f.subscribe(ctx, gen)
}

func (f *Feed) fetch(ctx context.Context, gen uint64) {
	f.mu.Lock()
	if gen != f.gen || !f.running {
		f.mu.Unlock()
		return
	}
	f.loading = true
	f.errMsg = ""
	f.mu.Unlock()
	f.emit()

	items, err := f.deps.Fetcher.ListRecent(ctx, f.deps.FetchLimit)

	f.mu.Lock()
	if gen != f.gen || !f.running {
		f.mu.Unlock()
		return
	}
	f.loading = false
	if err != nil {
		f.status = StatusDisconnected
		f.errMsg = err.Error()
	} else {
		f.items = uniqueByID(items)
		f.status = StatusConnected
	}
	f.mu.Unlock()

	if err != nil {
		f.log.Error("fetch inquiries", "err", err)
	}
	f.emit()
}

func (f *Feed) subscribe(ctx context.Context, gen uint64) {
	sub, err := f.deps.Source.Subscribe(ctx,
		func(ev domain.ChangeEvent) { f.enqueue(gen, ev) },
		func(st SubscriptionStatus, err error) { f.onStatus(gen, st, err) },
	)
	if err != nil {
		f.onStatus(gen, ChannelError, err)
		return
	}
	f.mu.Lock()
	if gen != f.gen || !f.running {
		// Stopped, or the subscription already failed and a retry owns the next one.
		f.mu.Unlock()
		_ = sub.Close()
		return
	}
	f.sub = sub
	f.mu.Unlock()
}

func (f *Feed) onStatus(gen uint64, st SubscriptionStatus, err error) {
	f.mu.Lock()
	if gen != f.gen || !f.running {
		f.mu.Unlock()
		return
	}
	prev := f.status

	if st == Subscribed {
		f.status = StatusConnected
		f.attempts = 0
		f.mu.Unlock()
		f.log.Info("subscribed to inquiry changes")
		if prev != StatusConnected {
			f.notify(domain.Notification{
				Type: domain.NotifySuccess, Title: "실시간 연결됨",
				Message: "문의 실시간 업데이트가 연결되었습니다", AutoClose: true,
			})
		}
		f.emit()
		return
	}

	// Ignore anything else the dead subscription reports.
	f.gen++
	f.status = StatusDisconnected
	f.attempts++
	delay, ok := f.deps.Retry.Delay(st, f.attempts)
	if !ok {
		f.errMsg = "실시간 연결을 복구하지 못했습니다"
		attempts := f.attempts
		f.mu.Unlock()
		f.log.Error("giving up on inquiry changes", "status", st, "attempts", attempts, "err", err)
		f.notify(domain.Notification{
			Type: domain.NotifyError, Title: "실시간 연결 실패",
			Message: "재연결 시도 횟수를 초과했습니다. 새로고침해 주세요", RequireInteraction: true,
		})
		f.emit()
		return
	}
	retryGen := f.gen
	if f.retryTimer != nil {
		f.retryTimer.Stop()
	}
	f.retryTimer = time.AfterFunc(delay, func() { f.reconnect(retryGen) })
	f.mu.Unlock()

	f.log.Warn("inquiry subscription lost", "status", st, "retry_in", delay, "err", err)
	if prev != StatusDisconnected {
		f.notify(domain.Notification{
			Type: domain.NotifyWarning, Title: "실시간 연결 끊김",
			Message: fmt.Sprintf("%d초 후 다시 연결합니다", int(delay.Round(time.Second)/time.Second)), AutoClose: true,
		})
	}
	f.emit()
}

func (f *Feed) reconnect(gen uint64) {
	f.mu.Lock()
	if gen != f.gen || !f.running {
		f.mu.Unlock()
		return
	}
	f.retryTimer = nil
	f.mu.Unlock()
	f.setup()
}

func (f *Feed) enqueue(gen uint64, ev domain.ChangeEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen || !f.running {
		return
	}
	f.seq++
	f.pending = append(f.pending, pendingUpdate{event: ev, arrived: f.now(), seq: f.seq})
	if f.debounce != nil {
		f.debounce.Stop()
	}
	f.debounceSeq++
	seq := f.debounceSeq
	f.debounce = time.AfterFunc(f.deps.Debounce, func() { f.flush(seq) })
}

func (f *Feed) flush(seq uint64) {
	f.mu.Lock()
	if seq != f.debounceSeq || !f.running {
		f.mu.Unlock()
		return
	}
	batch := f.pending
	f.pending = nil
	f.debounce = nil
	sort.SliceStable(batch, func(i, j int) bool {
		if !batch[i].arrived.Equal(batch[j].arrived) {
			return batch[i].arrived.Before(batch[j].arrived)
		}
		return batch[i].seq < batch[j].seq
	})
	var notes []domain.Notification
	for _, u := range batch {
		if n := f.apply(u.event); n != nil {
			notes = append(notes, *n)
		}
	}
	f.mu.Unlock()

	for _, n := range notes {
		f.notify(n)
	}
	f.emit()
}

// apply folds one event into f.items. Called with mu held.
func (f *Feed) apply(ev domain.ChangeEvent) *domain.Notification {
	switch ev.Type {
	case domain.ChangeInsert:
		inq, ok := f.decode(ev, ev.New)
		if !ok || f.indexOf(inq.InquiryID) >= 0 {
			return nil
		}
		f.items = append([]domain.Inquiry{inq}, f.items...)
		return &domain.Notification{
			Type: domain.NotifyInfo, Title: "새로운 문의",
			Message: fmt.Sprintf("%s님의 문의: %s", inq.Name, inq.Subject), AutoClose: true,
		}

	case domain.ChangeUpdate:
		inq, ok := f.decode(ev, ev.New)
		if !ok {
			return nil
		}
		idx := f.indexOf(inq.InquiryID)
		if idx < 0 {
			return nil
		}
		prev := f.items[idx]
		f.items[idx] = inq
		if prev.Status == inq.Status {
			return nil
		}
		return &domain.Notification{
			Type: domain.NotifyInfo, Title: "문의 상태 변경",
			Message: fmt.Sprintf("%s 문의가 '%s'(으)로 변경되었습니다", inq.Subject, inq.Status.Label()), AutoClose: true,
		}

	case domain.ChangeDelete:
		old, ok := f.decode(ev, ev.Old)
		if !ok {
			return nil
		}
		idx := f.indexOf(old.InquiryID)
		if idx < 0 {
			return nil
		}
		removed := f.items[idx]
		f.items = append(f.items[:idx], f.items[idx+1:]...)
		return &domain.Notification{
			Type: domain.NotifyWarning, Title: "문의 삭제",
			Message: fmt.Sprintf("%s 문의가 삭제되었습니다", removed.Subject), AutoClose: true,
		}
	}
	f.log.Warn("ignoring change event", "event_type", ev.Type)
	return nil
}

func (f *Feed) decode(ev domain.ChangeEvent, raw json.RawMessage) (domain.Inquiry, bool) {
	var inq domain.Inquiry
	if len(raw) == 0 {
		f.log.Warn("change event without record", "event_type", ev.Type)
		return inq, false
	}
	if err := json.Unmarshal(raw, &inq); err != nil {
		f.log.Warn("bad change payload", "event_type", ev.Type, "err", err)
		return inq, false
	}
	if inq.InquiryID == "" {
		f.log.Warn("change payload without id", "event_type", ev.Type)
		return inq, false
	}
	return inq, true
}

func (f *Feed) indexOf(inquiryID string) int {
	for i := range f.items {
		if f.items[i].InquiryID == inquiryID {
			return i
		}
	}
	return -1
}

// notify forwards n unless the shared throttle is closed. List updates never
// depend on the outcome.
func (f *Feed) notify(n domain.Notification) {
	if f.deps.Notifier == nil {
		return
	}
	if !f.deps.Throttle.Allow() {
		f.log.Debug("notification throttled", "title", n.Title)
		return
	}
	f.deps.Notifier.Add(n)
}

func (f *Feed) emit() {
	if f.deps.OnChange == nil {
		return
	}
	f.deps.OnChange(f.Snapshot())
}

func uniqueByID(items []domain.Inquiry) []domain.Inquiry {
	seen := make(map[string]struct{}, len(items))
	out := make([]domain.Inquiry, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.InquiryID]; ok {
			continue
		}
		seen[it.InquiryID] = struct{}{}
		out = append(out, it)
	}
	return out
}
