package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"kiosk/internal/platform/metrics"
	"kiosk/pkg/requestcontext"
)

type PublisherSuite struct {
	suite.Suite
	now     time.Time
	metrics *metrics.Metrics
}

func TestPublisherSuite(t *testing.T) {
	suite.Run(t, new(PublisherSuite))
}

func (s *PublisherSuite) SetupTest() {
	s.now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	s.metrics = metrics.New(prometheus.NewRegistry())
}

func (s *PublisherSuite) TestEmitEnrichesFromContext() {
	p := NewPublisher(WithClock(func() time.Time { return s.now }))

	ctx := requestcontext.WithRequestID(context.Background(), "req-1")
	ctx = requestcontext.WithTerminalID(ctx, "lobby-1")
	ctx = requestcontext.WithDevice(ctx, "Chrome on Linux")
	s.Require().NoError(p.Emit(ctx, Event{Action: ActionCheckInSucceeded, Code: "ABC123XY"}))

	e := <-p.Queue()
	s.NotEmpty(e.ID)
	s.Equal(CategoryActivity, e.Category)
	s.Equal(s.now, e.Timestamp)
	s.Equal("req-1", e.RequestID)
	s.Equal("lobby-1", e.TerminalID)
	s.Equal("Chrome on Linux", e.Device)
}

func (s *PublisherSuite) TestEmitNeverBlocks() {
	p := NewPublisher(WithQueueSize(1), WithMetrics(s.metrics))
	ctx := context.Background()

	s.Require().NoError(p.Emit(ctx, Event{Action: ActionSessionStarted}))
	err := p.Emit(ctx, Event{Action: ActionSessionEnded})
	s.ErrorIs(err, ErrQueueFull)
	s.Equal(float64(1), promtest.ToFloat64(s.metrics.AuditDropped))
}

func (s *PublisherSuite) TestSamplerOnlyAppliesToOperations() {
	sampler := NewSampler(0)
	p := NewPublisher(WithSampler(sampler))
	ctx := context.Background()

	s.Require().NoError(p.Emit(ctx, Event{Action: ActionScreenChanged}))
	s.Require().NoError(p.Emit(ctx, Event{Action: ActionAdminLogin}))

	s.Len(p.queue, 1)
	e := <-p.Queue()
	s.Equal(ActionAdminLogin, e.Action)
	s.Equal(CategorySecurity, e.Category)
}

func TestCategoryOf(t *testing.T) {
	assert.Equal(t, CategoryActivity, CategoryOf(ActionRegistrationCompleted))
	assert.Equal(t, CategorySecurity, CategoryOf(ActionAdminLoginFailed))
	assert.Equal(t, CategoryOperations, CategoryOf(ActionScreenChanged))
}

func TestSampler(t *testing.T) {
	t.Run("rates are clamped", func(t *testing.T) {
		s := NewSampler(7)
		assert.True(t, s.ShouldSample("anything"))
		s.SetRate("noisy", -1)
		assert.False(t, s.ShouldSample("noisy"))
	})

	t.Run("per action override", func(t *testing.T) {
		s := NewSampler(0.5)
		s.float = func() float64 { return 0.3 }
		assert.True(t, s.ShouldSample("screen_changed"))
		s.SetRate("screen_changed", 0.1)
		assert.False(t, s.ShouldSample("screen_changed"))
	})
}

type failingSink struct{}

func (failingSink) Write(context.Context, Event) error { return errors.New("sink down") }

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingSink) Write(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestWorker(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("a failing sink does not stop delivery", func(t *testing.T) {
		inbox := make(chan Event, 4)
		rec := &recordingSink{}
		w := NewWorker(inbox, logger, failingSink{}, rec)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- w.Run(ctx) }()

		inbox <- Event{ID: "1"}
		inbox <- Event{ID: "2"}
		require.Eventually(t, func() bool { return rec.count() == 2 }, time.Second, 5*time.Millisecond)

		cancel()
		assert.ErrorIs(t, <-done, context.Canceled)
	})

	t.Run("queued events are flushed on shutdown", func(t *testing.T) {
		inbox := make(chan Event, 4)
		rec := &recordingSink{}
		w := NewWorker(inbox, logger, rec)

		inbox <- Event{ID: "1"}
		inbox <- Event{ID: "2"}
		inbox <- Event{ID: "3"}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_ = w.Run(ctx)
		// Run may pick some events up in its loop before noticing the
		// cancellation; either way every event reaches the sink.
		assert.Equal(t, 3, rec.count())
	})
}

func TestMemorySink(t *testing.T) {
	ctx := context.Background()
	sink := NewMemorySink(3)

	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, sink.Write(ctx, Event{ID: id}))
	}

	recent, err := sink.Recent(ctx, 0)
	require.NoError(t, err)
	ids := []string{}
	for _, e := range recent {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"d", "c", "b"}, ids)

	recent, err = sink.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "d", recent[0].ID)

	empty := NewMemorySink(5)
	recent, err = empty.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}
