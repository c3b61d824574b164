package mock

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"kiosk/internal/backend"
	"kiosk/internal/confirmation"
	"kiosk/internal/domain"
)

// ServerSuite drives the HTTP mock through the real client, so both ends of the
// wire contract are exercised together.
type ServerSuite struct {
	suite.Suite
	ctx    context.Context
	now    time.Time
	server *httptest.Server
	client *backend.Client
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

func (s *ServerSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return s.now }

	b, err := NewSeeded(s.ctx, WithClock(clock), WithGenerator(confirmation.NewSeeded(1)))
	s.Require().NoError(err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.server = httptest.NewServer(NewServer(b, logger))

	s.client, err = backend.NewClient(s.server.URL+"/api", backend.WithClock(clock))
	s.Require().NoError(err)
}

func (s *ServerSuite) TearDownTest() {
	s.server.Close()
}

func (s *ServerSuite) TestEvents() {
	s.NoError(s.client.Health(s.ctx))

	page, err := s.client.ListEvents(s.ctx, backend.EventQuery{Status: "active"})
	s.Require().NoError(err)
	s.Len(page.Events, 5)
	s.Require().NotNil(page.Pagination)
	s.Equal(5, page.Pagination.Total)

	e, err := s.client.GetEvent(s.ctx, "evento-1")
	s.Require().NoError(err)
	s.Equal("Concierto de Piano Clásico", e.Title)
	s.Equal(157, e.RegisteredCount)
	s.Equal(43, e.AvailableSpots())
	s.Equal(domain.EventActive, e.Status)

	_, err = s.client.GetEvent(s.ctx, "missing")
	s.Equal(backend.KindNotFound, backend.KindOf(err))
	s.Equal(MsgEventNotFound, backend.UpstreamMessage(err))
}

func (s *ServerSuite) TestRegisterAndCheckIn() {
	in := domain.VisitorInput{
		Name: "Rosa Díaz", Email: "rosa@example.com", Phone: "829-555-0101",
		Age: 44, Gender: domain.GenderFemale,
	}
	res, err := s.client.RegisterVisitor(s.ctx, in, "evento-3")
	s.Require().NoError(err)
	s.Len(res.ConfirmationCode, confirmation.Length)
	s.Equal("Rosa Díaz", res.Visitor.Name)
	s.Equal("evento-3", res.Registration.EventID)

	v, err := s.client.ValidateCode(s.ctx, res.ConfirmationCode)
	s.Require().NoError(err)
	s.True(v.Valid)

	checked, err := s.client.CheckIn(s.ctx, res.ConfirmationCode)
	s.Require().NoError(err)
	s.Equal("Rosa Díaz", checked.Visitor.Name)
	s.Require().NotNil(checked.Event)
	s.Equal("evento-3", checked.Event.ID)

	_, err = s.client.CheckIn(s.ctx, res.ConfirmationCode)
	s.Equal(backend.KindUnknown, backend.KindOf(err))
	s.Equal(MsgAlreadyCheckedIn, backend.Describe(err))
}

func (s *ServerSuite) TestRegisterForEvent() {
	in := domain.VisitorInput{
		Name: "Pedro Gómez", Email: "pedro@example.com", Phone: "849-111-2222",
		Age: 19, Gender: domain.GenderOther,
	}
	res, err := s.client.RegisterForEvent(s.ctx, "evento-5", in)
	s.Require().NoError(err)
	s.NotEmpty(res.ConfirmationCode)
	s.Equal("evento-5", res.Registration.EventID)
	// The event route omits the visitor, so the submitted data is echoed back.
	s.Equal("Pedro Gómez", res.Visitor.Name)
}

func (s *ServerSuite) TestStats() {
	_, err := s.client.VisitorStats(s.ctx, backend.Credentials{})
	s.Equal(backend.KindAuth, backend.KindOf(err))

	stats, err := s.client.VisitorStats(s.ctx, backend.Credentials{Token: "token"})
	s.Require().NoError(err)
	s.Equal(4, stats.TotalVisitors)
	s.Equal(4, stats.Pending)
}
