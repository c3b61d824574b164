package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"kiosk/internal/platform/metrics"
	"kiosk/pkg/requestcontext"
)

// ErrQueueFull is returned by Emit when the worker is not keeping up.
var ErrQueueFull = errors.New("audit queue full")

// DefaultQueueSize bounds the events waiting for the worker.
const DefaultQueueSize = 1024

// Publisher enqueues events for the Worker. Emit enriches the event from the
// request context and never blocks.
type Publisher struct {
	queue   chan Event
	sampler *Sampler
	metrics *metrics.Metrics
	now     func() time.Time
}

type PublisherOption func(*Publisher)

func WithQueueSize(n int) PublisherOption {
	return func(p *Publisher) {
		if n > 0 {
			p.queue = make(chan Event, n)
		}
	}
}

// WithSampler drops a share of operations events before they are queued.
func WithSampler(s *Sampler) PublisherOption {
	return func(p *Publisher) {
		p.sampler = s
	}
}

func WithMetrics(m *metrics.Metrics) PublisherOption {
	return func(p *Publisher) {
		p.metrics = m
	}
}

func WithClock(now func() time.Time) PublisherOption {
	return func(p *Publisher) {
		if now != nil {
			p.now = now
		}
	}
}

func NewPublisher(opts ...PublisherOption) *Publisher {
	p := &Publisher{
		queue: make(chan Event, DefaultQueueSize),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Queue is read by the Worker.
func (p *Publisher) Queue() <-chan Event {
	return p.queue
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Category == "" {
		event.Category = CategoryOf(event.Action)
	}
	if event.Category == CategoryOperations && p.sampler != nil && !p.sampler.ShouldSample(string(event.Action)) {
		return nil
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.TerminalID == "" {
		event.TerminalID = requestcontext.TerminalID(ctx)
	}
	if event.Device == "" {
		event.Device = requestcontext.Device(ctx)
	}

	select {
	case p.queue <- event:
		return nil
	default:
		p.metrics.IncrementAuditDropped()
		return ErrQueueFull
	}
}
