package fallback

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"kiosk/internal/backend"
	"kiosk/internal/backend/mock"
	"kiosk/internal/backend/mocks"
	"kiosk/internal/domain"
	"kiosk/internal/platform/metrics"
	"kiosk/pkg/platform/circuit"
)

type RouterSuite struct {
	suite.Suite
	ctx     context.Context
	ctrl    *gomock.Controller
	primary *mocks.MockAPI
	now     time.Time
	metrics *metrics.Metrics
	router  *Router
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.primary = mocks.NewMockAPI(s.ctrl)
	s.now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return s.now }

	offline, err := mock.NewSeeded(s.ctx, mock.WithClock(clock))
	s.Require().NoError(err)

	s.metrics = metrics.New(prometheus.NewRegistry())
	s.router = New(s.primary, offline,
		WithBreaker(circuit.New("test",
			circuit.WithFailureThreshold(2),
			circuit.WithSuccessThreshold(1),
			circuit.WithProbeInterval(time.Minute),
			circuit.WithClock(clock),
		)),
		WithMetrics(s.metrics),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func (s *RouterSuite) TearDownTest() {
	s.ctrl.Finish()
}

func connErr(op string) error {
	return &backend.Error{Kind: backend.KindConnection, Op: op}
}

func (s *RouterSuite) TestPrimaryAnswers() {
	s.Run("success is returned as is", func() {
		page := &backend.EventPage{Events: []domain.Event{{ID: "remote"}}}
		s.primary.EXPECT().ListEvents(gomock.Any(), backend.EventQuery{}).Return(page, nil)

		got, err := s.router.ListEvents(s.ctx, backend.EventQuery{})
		s.Require().NoError(err)
		s.False(got.Degraded)
		s.Equal("remote", got.Events[0].ID)
	})

	s.Run("authoritative errors are not masked", func() {
		notFound := &backend.Error{Kind: backend.KindNotFound, Op: backend.OpCheckIn, Status: http.StatusNotFound}
		s.primary.EXPECT().CheckIn(gomock.Any(), "ABC123XY").Return(nil, notFound)

		_, err := s.router.CheckIn(s.ctx, "ABC123XY")
		s.ErrorIs(err, notFound)
		s.Equal(float64(0), promtest.ToFloat64(s.metrics.FallbackServed.WithLabelValues(backend.OpCheckIn)))
	})

	s.Run("conflicts are not masked", func() {
		conflict := &backend.Error{Kind: backend.KindUnknown, Op: backend.OpRegisterVisitor, Status: http.StatusConflict}
		s.primary.EXPECT().RegisterVisitor(gomock.Any(), gomock.Any(), "evento-1").Return(nil, conflict)

		_, err := s.router.RegisterVisitor(s.ctx, domain.VisitorInput{}, "evento-1")
		s.ErrorIs(err, conflict)
	})
}

func (s *RouterSuite) TestUnavailablePrimary() {
	s.Run("connection failure is served offline", func() {
		s.primary.EXPECT().ListEvents(gomock.Any(), gomock.Any()).Return(nil, connErr(backend.OpListEvents))

		page, err := s.router.ListEvents(s.ctx, backend.EventQuery{})
		s.Require().NoError(err)
		s.True(page.Degraded)
		s.Len(page.Events, 5)
		s.Equal(float64(1), promtest.ToFloat64(s.metrics.FallbackServed.WithLabelValues(backend.OpListEvents)))
	})

	s.Run("5xx registration gets an offline code", func() {
		s.primary.EXPECT().RegisterVisitor(gomock.Any(), gomock.Any(), "evento-2").
			Return(nil, &backend.Error{Kind: backend.KindUnknown, Status: http.StatusBadGateway})

		in := domain.VisitorInput{Name: "Ana Ruiz", Email: "ana@example.com", Phone: "8091234567", Age: 25, Gender: domain.GenderFemale}
		res, err := s.router.RegisterVisitor(s.ctx, in, "evento-2")
		s.Require().NoError(err)
		s.True(res.Offline)
		s.Len(res.ConfirmationCode, 8)
	})
}

func (s *RouterSuite) TestBreaker() {
	timeout := &backend.Error{Kind: backend.KindTimeout, Op: backend.OpGetEvent}
	s.primary.EXPECT().GetEvent(gomock.Any(), "evento-1").Return(nil, timeout).Times(2)

	for range 2 {
		e, err := s.router.GetEvent(s.ctx, "evento-1")
		s.Require().NoError(err)
		s.Equal("evento-1", e.ID)
	}
	s.Equal(circuit.StateOpen, s.router.BreakerState())
	s.Equal(float64(1), promtest.ToFloat64(s.metrics.BreakerOpen))

	s.Run("open circuit skips the primary", func() {
		// No primary expectation: gomock fails the test if it is called.
		e, err := s.router.GetEvent(s.ctx, "evento-3")
		s.Require().NoError(err)
		s.Equal("evento-3", e.ID)
	})

	s.Run("a successful probe closes the circuit", func() {
		s.now = s.now.Add(2 * time.Minute)
		s.primary.EXPECT().GetEvent(gomock.Any(), "evento-1").Return(&domain.Event{ID: "evento-1", Title: "remote"}, nil)

		e, err := s.router.GetEvent(s.ctx, "evento-1")
		s.Require().NoError(err)
		s.Equal("remote", e.Title)
		s.Equal(circuit.StateClosed, s.router.BreakerState())
		s.Equal(float64(0), promtest.ToFloat64(s.metrics.BreakerOpen))
	})
}

func (s *RouterSuite) TestWithoutSecondary() {
	router := New(s.primary, nil)
	cause := connErr(backend.OpValidateCode)
	s.primary.EXPECT().ValidateCode(gomock.Any(), "ABC123XY").Return(nil, cause)

	_, err := router.ValidateCode(s.ctx, "ABC123XY")
	s.ErrorIs(err, cause)
}

func (s *RouterSuite) TestHealthChecksPrimaryOnly() {
	s.primary.EXPECT().Health(gomock.Any()).Return(connErr(backend.OpHealth))
	s.Error(s.router.Health(s.ctx))
}
