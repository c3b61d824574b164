package mock

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"kiosk/internal/backend"
	"kiosk/internal/confirmation"
	"kiosk/internal/domain"
)

type BackendSuite struct {
	suite.Suite
	ctx     context.Context
	now     time.Time
	store   *MemoryStore
	backend *Backend
}

func TestBackendSuite(t *testing.T) {
	suite.Run(t, new(BackendSuite))
}

func (s *BackendSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	s.store = NewMemoryStore()
	s.Require().NoError(Seed(s.ctx, s.store, s.now))
	s.backend = New(s.store,
		WithGenerator(confirmation.NewSeeded(7)),
		WithClock(func() time.Time { return s.now }),
	)
}

func validInput() domain.VisitorInput {
	return domain.VisitorInput{
		Name: "Juan Pérez", Email: "juan@example.com", Phone: "809-123-4567",
		Age: 30, Gender: domain.GenderMale,
	}
}

func (s *BackendSuite) requireStatus(err error, status int) *backend.Error {
	var be *backend.Error
	s.Require().ErrorAs(err, &be)
	s.Equal(status, be.Status)
	return be
}

func (s *BackendSuite) TestListEvents() {
	s.Run("all seeded events", func() {
		page, err := s.backend.ListEvents(s.ctx, backend.EventQuery{})
		s.Require().NoError(err)
		s.Len(page.Events, 5)
		s.Equal(5, page.Pagination.Total)
	})

	s.Run("status filter", func() {
		page, err := s.backend.ListEvents(s.ctx, backend.EventQuery{Status: "finished"})
		s.Require().NoError(err)
		s.Empty(page.Events)

		page, err = s.backend.ListEvents(s.ctx, backend.EventQuery{Status: "all"})
		s.Require().NoError(err)
		s.Len(page.Events, 5)
	})

	s.Run("category is case-insensitive", func() {
		page, err := s.backend.ListEvents(s.ctx, backend.EventQuery{Category: "arte"})
		s.Require().NoError(err)
		s.Require().Len(page.Events, 1)
		s.Equal("evento-2", page.Events[0].ID)
	})

	s.Run("date range includes the whole last day", func() {
		from := s.now.Add(3 * 24 * time.Hour).Truncate(24 * time.Hour)
		to := s.now.Add(7 * 24 * time.Hour).Truncate(24 * time.Hour)
		page, err := s.backend.ListEvents(s.ctx, backend.EventQuery{DateFrom: &from, DateTo: &to})
		s.Require().NoError(err)
		ids := make([]string, 0, len(page.Events))
		for _, e := range page.Events {
			ids = append(ids, e.ID)
		}
		s.ElementsMatch([]string{"evento-1", "evento-2"}, ids)
	})

	s.Run("limit and offset", func() {
		page, err := s.backend.ListEvents(s.ctx, backend.EventQuery{Limit: 2, Offset: 4})
		s.Require().NoError(err)
		s.Len(page.Events, 1)
		s.Equal(5, page.Pagination.Total)
		s.Equal(4, page.Pagination.Offset)
	})
}

func (s *BackendSuite) TestGetEvent() {
	e, err := s.backend.GetEvent(s.ctx, "evento-3")
	s.Require().NoError(err)
	s.Equal(float64(500), e.Price)

	_, err = s.backend.GetEvent(s.ctx, "missing")
	be := s.requireStatus(err, http.StatusNotFound)
	s.Equal(backend.KindNotFound, be.Kind)
	s.Equal(MsgEventNotFound, be.Message)
}

func (s *BackendSuite) TestRegister() {
	s.Run("issues a code and claims a seat", func() {
		res, err := s.backend.RegisterVisitor(s.ctx, validInput(), "evento-2")
		s.Require().NoError(err)
		s.Len(res.ConfirmationCode, confirmation.Length)
		s.Equal(res.ConfirmationCode, res.Registration.ConfirmationCode)
		s.Equal(domain.RegistrationConfirmed, res.Registration.Status)
		s.Equal(res.Visitor.ID, res.Registration.VisitorID)

		e, err := s.store.GetEvent(s.ctx, "evento-2")
		s.Require().NoError(err)
		s.Equal(82, e.RegisteredCount)
	})

	s.Run("codes are unique across registrations", func() {
		seen := map[string]bool{}
		for range 20 {
			res, err := s.backend.RegisterForEvent(s.ctx, "evento-4", validInput())
			s.Require().NoError(err)
			s.False(seen[res.ConfirmationCode])
			seen[res.ConfirmationCode] = true
		}
	})

	s.Run("invalid visitor is a bad request", func() {
		in := validInput()
		in.Age = 3
		_, err := s.backend.RegisterVisitor(s.ctx, in, "evento-1")
		s.requireStatus(err, http.StatusBadRequest)
	})

	s.Run("unknown event is not found", func() {
		_, err := s.backend.RegisterVisitor(s.ctx, validInput(), "missing")
		s.requireStatus(err, http.StatusNotFound)
	})

	s.Run("full event is a conflict", func() {
		s.Require().NoError(s.store.PutEvent(s.ctx, domain.Event{
			ID: "lleno", Title: "Lleno", Date: s.now.Add(time.Hour),
			Capacity: 1, RegisteredCount: 1, Status: domain.EventActive,
		}))
		_, err := s.backend.RegisterForEvent(s.ctx, "lleno", validInput())
		be := s.requireStatus(err, http.StatusConflict)
		s.Equal(MsgEventFull, be.Message)
	})
}

func (s *BackendSuite) TestCheckIn() {
	s.Run("seeded code checks in once", func() {
		res, err := s.backend.CheckIn(s.ctx, "abc123xy")
		s.Require().NoError(err)
		s.Equal("María González", res.Visitor.Name)
		s.Require().NotNil(res.Event)
		s.Equal("evento-1", res.Event.ID)
		s.True(res.CheckInTime.Equal(s.now))

		_, err = s.backend.CheckIn(s.ctx, "ABC123XY")
		be := s.requireStatus(err, http.StatusConflict)
		s.Equal(MsgAlreadyCheckedIn, be.Message)
	})

	s.Run("unknown code is not found", func() {
		_, err := s.backend.CheckIn(s.ctx, "ZZZZ9999")
		be := s.requireStatus(err, http.StatusNotFound)
		s.Equal(MsgInvalidCode, be.Message)
	})
}

func (s *BackendSuite) TestValidateCode() {
	s.Run("pending code is valid", func() {
		res, err := s.backend.ValidateCode(s.ctx, "TEST1234")
		s.Require().NoError(err)
		s.True(res.Valid)
		s.Require().NotNil(res.Visitor)
		s.Equal("Ana Martínez", res.Visitor.Name)
		s.Require().NotNil(res.Event)
		s.Equal("evento-3", res.Event.ID)
	})

	s.Run("malformed and unknown codes are invalid", func() {
		for _, code := range []string{"AB", "NOPE0000"} {
			res, err := s.backend.ValidateCode(s.ctx, code)
			s.Require().NoError(err)
			s.False(res.Valid, code)
		}
	})

	s.Run("used code is invalid", func() {
		_, err := s.backend.CheckIn(s.ctx, "DEF456ZW")
		s.Require().NoError(err)
		res, err := s.backend.ValidateCode(s.ctx, "DEF456ZW")
		s.Require().NoError(err)
		s.False(res.Valid)
		s.Require().NotNil(res.Registration)
		s.True(res.Registration.CheckedIn())
	})
}

func (s *BackendSuite) TestVisitorStats() {
	_, err := s.backend.VisitorStats(s.ctx, backend.Credentials{})
	be := s.requireStatus(err, http.StatusUnauthorized)
	s.Equal(backend.KindAuth, be.Kind)

	stats, err := s.backend.VisitorStats(s.ctx, backend.Credentials{Token: "t"})
	s.Require().NoError(err)
	s.Equal(4, stats.TotalRegistrations)
}

func (s *BackendSuite) TestNewSeeded() {
	b, err := NewSeeded(s.ctx, WithClock(func() time.Time { return s.now }))
	s.Require().NoError(err)
	s.NoError(b.Health(s.ctx))
	res, err := b.ValidateCode(s.ctx, "GHI789UV")
	s.Require().NoError(err)
	s.True(res.Valid)
}
