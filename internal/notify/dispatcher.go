// Package notify delivers summary-change and user-facing notices to the
// parent system without blocking the request path.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nhle/career-planner/internal/model"
	"github.com/nhle/career-planner/internal/store"
)

// ErrDisabled is returned by a Sink that has no endpoint configured.
// Such deliveries are counted but not dead-lettered.
var ErrDisabled = errors.New("notification endpoint not configured")

// Kind distinguishes the two notice payloads.
type Kind string

const (
	KindSummary Kind = "summary"
	KindEvent   Kind = "event"
)

// Sink transports notices to the parent system.
type Sink interface {
	SendSummary(ctx context.Context, n model.SummaryNotice) error
	SendEvent(ctx context.Context, n model.EventNotice) error
}

// DeadLetterRecorder persists notices that could not be delivered.
type DeadLetterRecorder interface {
	CreateDeadLetter(ctx context.Context, dl store.DeadLetter) error
}

// Notifier is the fire-and-forget surface used by the planner.
type Notifier interface {
	NotifySummary(n model.SummaryNotice)
	NotifyEvent(n model.EventNotice)
}

const (
	defaultQueueSize  = 64
	defaultTimeout    = 10 * time.Second
	deadLetterWrite   = 5 * time.Second
	deadLetterBacklog = 64
)

type droppedMessage struct {
	msg    message
	reason string
}

const (
	reasonQueueFull = "queue full"
	reasonStopped   = "dispatcher stopped"
)

type message struct {
	kind    Kind
	summary model.SummaryNotice
	event   model.EventNotice
}

func (m message) userID() string {
	if m.kind == KindSummary {
		return m.summary.UserID
	}
	return m.event.UserID
}

func (m message) eventType() model.EventType {
	if m.kind == KindSummary {
		return m.summary.EventType
	}
	return m.event.EventType
}

func (m message) payload() string {
	var (
		data []byte
		err  error
	)
	if m.kind == KindSummary {
		data, err = json.Marshal(m.summary)
	} else {
		data, err = json.Marshal(m.event)
	}
	if err != nil {
		return "{}"
	}
	return string(data)
}

// Dispatcher queues notices on a bounded channel and delivers them from
// a single worker goroutine. While running, enqueueing never blocks: a
// notice that finds the queue full is handed to a second goroutine that
// dead-letters it, and is only logged if that hand-off is full too. After
// Stop no worker remains, so late notices are dead-lettered by the caller.
type Dispatcher struct {
	sink        Sink
	deadLetters DeadLetterRecorder
	logger      *slog.Logger
	metrics     *Metrics
	timeout     time.Duration

	queue   chan message
	dropped chan droppedMessage
	stopCh  chan struct{}
	done    chan struct{}
	dlDone  chan struct{}
	mu      sync.RWMutex
	running bool
	stopped bool
}

var _ Notifier = (*Dispatcher)(nil)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithDeadLetters sets where undeliverable notices are recorded.
func WithDeadLetters(r DeadLetterRecorder) Option {
	return func(d *Dispatcher) { d.deadLetters = r }
}

// WithMetrics sets the dispatcher collectors.
func WithMetrics(m *Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithQueueSize sets the queue capacity.
func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan message, n)
		}
	}
}

// WithTimeout bounds each delivery attempt.
func WithTimeout(t time.Duration) Option {
	return func(d *Dispatcher) {
		if t > 0 {
			d.timeout = t
		}
	}
}

// NewDispatcher creates a dispatcher delivering to sink. Call Start to
// begin delivery.
func NewDispatcher(sink Sink, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sink:    sink,
		logger:  slog.Default(),
		timeout: defaultTimeout,
		queue:   make(chan message, defaultQueueSize),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
		dlDone:  make(chan struct{}),
		dropped: make(chan droppedMessage, deadLetterBacklog),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.metrics == nil {
		d.metrics = NewMetrics(nil)
	}
	return d
}

// Start launches the delivery and dead-letter workers. Calling it twice
// has no effect.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running || d.stopped {
		return
	}
	d.running = true
	go d.run()
	go d.recordDrops()
}

// Stop delivers whatever is already queued, records pending dead letters,
// then halts both workers.
// Notices enqueued afterwards are dead-lettered.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	running := d.running
	close(d.stopCh)
	d.mu.Unlock()

	if running {
		<-d.done
		<-d.dlDone
		return
	}
	d.drain()
	d.drainDropped()
}

func (d *Dispatcher) drain() {
	for {
		select {
		case msg := <-d.queue:
			d.deliver(msg)
		default:
			return
		}
	}
}

// NotifySummary enqueues a summary-change notice.
func (d *Dispatcher) NotifySummary(n model.SummaryNotice) {
	d.enqueue(message{kind: KindSummary, summary: n})
}

// NotifyEvent enqueues a user-facing event notice.
func (d *Dispatcher) NotifyEvent(n model.EventNotice) {
	d.enqueue(message{kind: KindEvent, event: n})
}

func (d *Dispatcher) enqueue(msg message) {
	d.mu.RLock()
	if d.stopped {
		d.mu.RUnlock()
		d.countDrop(msg, reasonStopped)
		d.recordDeadLetter(msg, reasonStopped)
		return
	}
	// The hand-off happens under the read lock so Stop cannot drain the
	// dropped channel before it lands.
	defer d.mu.RUnlock()

	select {
	case d.queue <- msg:
		d.metrics.queueDepth.Set(float64(len(d.queue)))
		return
	default:
	}

	d.countDrop(msg, reasonQueueFull)
	select {
	case d.dropped <- droppedMessage{msg: msg, reason: reasonQueueFull}:
	default:
		d.metrics.dispatched.WithLabelValues(string(msg.kind), outcomeLost).Inc()
		d.logger.Error("notify.deadletter.overflow",
			"kind", msg.kind,
			"user_id", msg.userID(),
			"event_type", msg.eventType(),
		)
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for {
		select {
		case msg := <-d.queue:
			d.deliver(msg)
		case <-d.stopCh:
			d.drain()
			return
		}
	}
}

func (d *Dispatcher) deliver(msg message) {
	d.metrics.queueDepth.Set(float64(len(d.queue)))

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	var err error
	switch msg.kind {
	case KindSummary:
		err = d.sink.SendSummary(ctx, msg.summary)
	case KindEvent:
		err = d.sink.SendEvent(ctx, msg.event)
	}

	kind := string(msg.kind)
	switch {
	case err == nil:
		d.metrics.dispatched.WithLabelValues(kind, outcomeSent).Inc()
	case errors.Is(err, ErrDisabled):
		d.metrics.dispatched.WithLabelValues(kind, outcomeDisabled).Inc()
	default:
		d.metrics.dispatched.WithLabelValues(kind, outcomeFailed).Inc()
		d.logger.Warn("notify.dispatch.failed",
			"kind", kind,
			"user_id", msg.userID(),
			"event_type", msg.eventType(),
			"error", err,
		)
		d.recordDeadLetter(msg, err.Error())
	}
}

func (d *Dispatcher) countDrop(msg message, reason string) {
	d.metrics.dispatched.WithLabelValues(string(msg.kind), outcomeDropped).Inc()
	d.logger.Warn("notify.dispatch.dropped",
		"kind", msg.kind,
		"user_id", msg.userID(),
		"event_type", msg.eventType(),
		"reason", reason,
	)
}

// recordDrops writes dead letters for notices the queue turned away.
func (d *Dispatcher) recordDrops() {
	defer close(d.dlDone)
	for {
		select {
		case dm := <-d.dropped:
			d.recordDeadLetter(dm.msg, dm.reason)
		case <-d.stopCh:
			d.drainDropped()
			return
		}
	}
}

func (d *Dispatcher) drainDropped() {
	for {
		select {
		case dm := <-d.dropped:
			d.recordDeadLetter(dm.msg, dm.reason)
		default:
			return
		}
	}
}

func (d *Dispatcher) recordDeadLetter(msg message, reason string) {
	if d.deadLetters == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), deadLetterWrite)
	defer cancel()

	err := d.deadLetters.CreateDeadLetter(ctx, store.DeadLetter{
		Kind:      string(msg.kind),
		UserID:    msg.userID(),
		EventType: string(msg.eventType()),
		Payload:   msg.payload(),
		Error:     reason,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		d.logger.Error("notify.deadletter.failed", "kind", msg.kind, "error", err)
	}
}
