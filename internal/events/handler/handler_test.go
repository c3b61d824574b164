package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"kiosk/internal/backend/mock"
	"kiosk/internal/domain"
	"kiosk/internal/events"
	"kiosk/pkg/testutil"
)

// HandlerSuite runs the handler against a directory backed by the seeded
// offline backend.
type HandlerSuite struct {
	suite.Suite
	router *chi.Mux
	store  *mock.MemoryStore
	now    time.Time
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	ctx := context.Background()
	s.now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	s.store = mock.NewMemoryStore()
	s.Require().NoError(mock.Seed(ctx, s.store, s.now))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := events.New(mock.New(s.store, mock.WithClock(func() time.Time { return s.now })), events.WithLogger(logger))
	s.router = chi.NewRouter()
	New(dir, logger).Register(s.router)
}

func (s *HandlerSuite) TestList() {
	s.Run("all events with derived counts", func() {
		t := s.T()
		rr := testutil.DoRequest(s.router, testutil.NewRequest(t, http.MethodGet, "/events"))
		testutil.AssertStatusOK(t, rr)

		resp := testutil.UnmarshalResponse[ListResponse](t, rr)
		s.Len(resp.Events, 5)
		s.Equal(5, resp.Total)
		s.False(resp.Degraded)
		// Ordered by date.
		s.Equal("evento-2", resp.Events[0].ID)
		s.Equal("evento-5", resp.Events[4].ID)
	})

	s.Run("category filter", func() {
		t := s.T()
		rr := testutil.DoRequest(s.router, testutil.NewRequest(t, http.MethodGet, "/events?category=Literatura"))
		testutil.AssertStatusOK(t, rr)

		resp := testutil.UnmarshalResponse[ListResponse](t, rr)
		s.Require().Len(resp.Events, 1)
		s.Equal("evento-3", resp.Events[0].ID)
		s.Equal(7, resp.Events[0].AvailableSpots)
	})

	s.Run("selectable hides full events", func() {
		t := s.T()
		s.Require().NoError(s.store.PutEvent(context.Background(), domain.Event{
			ID: "lleno", Title: "Lleno", Date: s.now, Capacity: 3, RegisteredCount: 3, Status: domain.EventActive,
		}))

		rr := testutil.DoRequest(s.router, testutil.NewRequest(t, http.MethodGet, "/events"))
		all := testutil.UnmarshalResponse[ListResponse](t, rr)
		s.Len(all.Events, 6)

		rr = testutil.DoRequest(s.router, testutil.NewRequest(t, http.MethodGet, "/events?selectable=true"))
		open := testutil.UnmarshalResponse[ListResponse](t, rr)
		s.Len(open.Events, 5)
		for _, e := range open.Events {
			s.NotEqual("lleno", e.ID)
			s.True(e.Selectable)
		}
	})

	s.Run("bad query parameters", func() {
		t := s.T()
		for _, path := range []string{
			"/events?date_from=10-03-2025",
			"/events?limit=ten",
			"/events?status=cancelled",
		} {
			rr := testutil.DoRequest(s.router, testutil.NewRequest(t, http.MethodGet, path))
			testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
		}
	})
}

func (s *HandlerSuite) TestGet() {
	s.Run("known event", func() {
		t := s.T()
		rr := testutil.DoRequest(s.router, testutil.NewRequest(t, http.MethodGet, "/events/evento-2"))
		testutil.AssertStatusOK(t, rr)

		resp := testutil.UnmarshalResponse[EventResponse](t, rr)
		s.Equal("Exposición de Arte Contemporáneo", resp.Title)
		s.False(resp.IsFull)
		s.Equal(19, resp.AvailableSpots)
	})

	s.Run("unknown event", func() {
		t := s.T()
		rr := testutil.DoRequest(s.router, testutil.NewRequest(t, http.MethodGet, "/events/nope"))
		testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
	})
}
