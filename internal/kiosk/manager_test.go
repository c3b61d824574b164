package kiosk_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"kiosk/internal/audit"
	"kiosk/internal/backend"
	"kiosk/internal/backend/mock"
	"kiosk/internal/checkin"
	"kiosk/internal/domain"
	"kiosk/internal/events"
	"kiosk/internal/kiosk"
	"kiosk/internal/kiosk/mocks"
	"kiosk/internal/kiosk/store"
	"kiosk/internal/platform/metrics"
	"kiosk/internal/registration"
	"kiosk/internal/validation"
	dErrors "kiosk/pkg/domain-errors"
	"kiosk/pkg/platform/httputil"
	"kiosk/pkg/platform/sentinel"
	"kiosk/pkg/requestcontext"
)

type ManagerSuite struct {
	suite.Suite
	ctx      context.Context
	now      time.Time
	sessions *store.MemoryStore
	events   *mock.MemoryStore
	upstream backend.API
	activity *audit.MemorySink
	metrics  *metrics.Metrics
	manager  *kiosk.Manager
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

// syncAudit writes straight to the sink so tests can read it back.
type syncAudit struct{ sink *audit.MemorySink }

func (a syncAudit) Emit(ctx context.Context, e audit.Event) error {
	return a.sink.Write(ctx, e)
}

func (s *ManagerSuite) SetupTest() {
	s.now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.ctx = requestcontext.WithTerminalID(s.ctx, "lobby-1")

	s.events = mock.NewMemoryStore()
	s.Require().NoError(mock.Seed(s.ctx, s.events, s.now))
	s.Require().NoError(s.events.PutEvent(s.ctx, domain.Event{
		ID: "lleno", Title: "Lleno", Date: s.now.Add(time.Hour),
		Capacity: 1, RegisteredCount: 1, Status: domain.EventActive,
	}))
	s.upstream = mock.New(s.events, mock.WithClock(func() time.Time { return s.now }))
	s.build(s.upstream)
}

// unreachableRegistrar serves everything but registration.
type unreachableRegistrar struct{ backend.API }

func (unreachableRegistrar) RegisterVisitor(context.Context, domain.VisitorInput, string) (*domain.RegistrationResult, error) {
	return nil, &backend.Error{Kind: backend.KindConnection, Op: backend.OpRegisterVisitor}
}

// heldRegistrar blocks RegisterVisitor until release is closed.
type heldRegistrar struct {
	backend.API
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (h *heldRegistrar) RegisterVisitor(ctx context.Context, in domain.VisitorInput, eventID string) (*domain.RegistrationResult, error) {
	h.calls.Add(1)
	close(h.entered)
	<-h.release
	return h.API.RegisterVisitor(ctx, in, eventID)
}

func (s *ManagerSuite) build(upstream backend.API) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.sessions = store.NewMemory()
	s.T().Cleanup(s.sessions.Close)
	s.activity = audit.NewMemorySink(100)
	s.metrics = metrics.New(prometheus.NewRegistry())

	s.manager = kiosk.NewManager(s.sessions,
		events.New(upstream, events.WithLogger(logger)),
		registration.NewService(upstream, registration.WithLogger(logger)),
		checkin.NewService(upstream, checkin.WithLogger(logger)),
		kiosk.WithAuditPublisher(syncAudit{s.activity}),
		kiosk.WithMetrics(s.metrics),
		kiosk.WithLogger(logger),
	)
}

func (s *ManagerSuite) start() *kiosk.Session {
	sess, err := s.manager.Start(s.ctx)
	s.Require().NoError(err)
	return sess
}

func juanPerez() []kiosk.FieldValue {
	return []kiosk.FieldValue{
		{Field: validation.FieldName, Value: "Juan Perez"},
		{Field: validation.FieldEmail, Value: "juan@example.com"},
		{Field: validation.FieldPhone, Value: "809-123-4567"},
		{Field: validation.FieldAge, Value: "30"},
		{Field: validation.FieldGender, Value: "male"},
	}
}

func (s *ManagerSuite) TestStartAndEnd() {
	sess := s.start()
	s.Equal(kiosk.ScreenHome, sess.Screen)
	s.Equal("lobby-1", sess.TerminalID)
	s.Equal(1.0, promtest.ToFloat64(s.metrics.ActiveSessions))

	got, err := s.manager.Get(s.ctx, sess.ID)
	s.Require().NoError(err)
	s.Equal(sess.ID, got.ID)

	s.Require().NoError(s.manager.End(s.ctx, sess.ID))
	s.Equal(0.0, promtest.ToFloat64(s.metrics.ActiveSessions))

	_, err = s.manager.Get(s.ctx, sess.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	err = s.manager.End(s.ctx, sess.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	recent, err := s.activity.Recent(s.ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(recent, 2)
	s.Equal(audit.ActionSessionEnded, recent[0].Action)
	s.Equal(audit.ActionSessionStarted, recent[1].Action)
}

func (s *ManagerSuite) TestNavigation() {
	sess := s.start()

	got, err := s.manager.SelectCard(s.ctx, sess.ID, kiosk.ScreenCheckIn)
	s.Require().NoError(err)
	s.Equal(kiosk.ScreenCheckIn, got.Screen)
	s.Equal(kiosk.VisualSelected, got.CardState(kiosk.ScreenCheckIn, s.now, false, false))
	s.NotNil(got.CheckIn)

	got, err = s.manager.Navigate(s.ctx, sess.ID, kiosk.ScreenHome)
	s.Require().NoError(err)
	s.Nil(got.CheckIn)
	s.Empty(got.SelectedCard)

	_, err = s.manager.Navigate(s.ctx, sess.ID, "nowhere")
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))

	s.Equal(1.0, promtest.ToFloat64(s.metrics.Navigations.WithLabelValues("checkin")))
	s.Equal(1.0, promtest.ToFloat64(s.metrics.Navigations.WithLabelValues("home")))
}

func (s *ManagerSuite) TestRegistrationFlow() {
	sess := s.start()

	s.Run("preselecting from the events screen opens registration", func() {
		_, err := s.manager.Navigate(s.ctx, sess.ID, kiosk.ScreenEvents)
		s.Require().NoError(err)

		got, err := s.manager.SelectEvent(s.ctx, sess.ID, "evento-2")
		s.Require().NoError(err)
		s.Equal(kiosk.ScreenRegister, got.Screen)
		s.Equal(registration.StepFillForm, got.Registration.Step)
		s.Equal("evento-2", got.Registration.Event.ID)
	})

	s.Run("invalid email stays on the form", func() {
		fields := juanPerez()
		fields[1].Value = "not-an-email"
		_, err := s.manager.SetFields(s.ctx, sess.ID, fields)
		s.Require().NoError(err)

		got, err := s.manager.SubmitRegistration(s.ctx, sess.ID)
		s.Require().NoError(err)
		s.Equal(registration.StepFillForm, got.Registration.Step)
		s.Equal(validation.MsgEmailInvalid, got.Registration.Errors[validation.FieldEmail])

		ev, err := s.upstream.GetEvent(s.ctx, "evento-2")
		s.Require().NoError(err)
		s.Equal(81, ev.RegisteredCount, "nothing was sent upstream")
	})

	s.Run("valid submission reaches success", func() {
		_, err := s.manager.SetFields(s.ctx, sess.ID, juanPerez())
		s.Require().NoError(err)

		got, err := s.manager.SubmitRegistration(s.ctx, sess.ID)
		s.Require().NoError(err)
		s.Equal(registration.StepSuccess, got.Registration.Step)
		s.Regexp(regexp.MustCompile(`^[A-Z0-9]{8}$`), got.Registration.ConfirmationCode())

		ev, err := s.upstream.GetEvent(s.ctx, "evento-2")
		s.Require().NoError(err)
		s.Equal(82, ev.RegisteredCount)
	})

	s.Run("reset starts over without an event", func() {
		got, err := s.manager.ResetRegistration(s.ctx, sess.ID)
		s.Require().NoError(err)
		s.Equal(registration.StepSelectEvent, got.Registration.Step)
		s.Nil(got.Registration.Event)
	})

	s.Run("full event is refused and nothing changes", func() {
		_, err := s.manager.SelectEvent(s.ctx, sess.ID, "lleno")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))

		got, err := s.manager.Get(s.ctx, sess.ID)
		s.Require().NoError(err)
		s.Equal(registration.StepSelectEvent, got.Registration.Step)
	})

	s.Run("unknown event is not found", func() {
		_, err := s.manager.SelectEvent(s.ctx, sess.ID, "evento-99")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("form edits need the register screen", func() {
		_, err := s.manager.Navigate(s.ctx, sess.ID, kiosk.ScreenHome)
		s.Require().NoError(err)
		_, err = s.manager.SetFields(s.ctx, sess.ID, juanPerez())
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *ManagerSuite) TestRegistrationUpstreamFailure() {
	s.build(unreachableRegistrar{s.upstream})

	sess := s.start()
	_, err := s.manager.SelectCard(s.ctx, sess.ID, kiosk.ScreenRegister)
	s.Require().NoError(err)
	_, err = s.manager.SelectEvent(s.ctx, sess.ID, "evento-1")
	s.Require().NoError(err)
	_, err = s.manager.SetFields(s.ctx, sess.ID, juanPerez())
	s.Require().NoError(err)

	got, err := s.manager.SubmitRegistration(s.ctx, sess.ID)
	s.Require().NoError(err)
	s.Equal(registration.StepFillForm, got.Registration.Step)
	s.Equal(backend.UserMessage(backend.KindConnection), got.Registration.Message)
	s.Equal("juan@example.com", got.Registration.Form.Email)
}

func (s *ManagerSuite) TestSecondSubmitWhileSending() {
	held := &heldRegistrar{API: s.upstream, entered: make(chan struct{}), release: make(chan struct{})}
	s.build(held)

	sess := s.start()
	_, err := s.manager.SelectCard(s.ctx, sess.ID, kiosk.ScreenRegister)
	s.Require().NoError(err)
	_, err = s.manager.SelectEvent(s.ctx, sess.ID, "evento-1")
	s.Require().NoError(err)
	_, err = s.manager.SetFields(s.ctx, sess.ID, juanPerez())
	s.Require().NoError(err)

	type outcome struct {
		session *kiosk.Session
		err     error
	}
	first := make(chan outcome, 1)
	go func() {
		got, err := s.manager.SubmitRegistration(s.ctx, sess.ID)
		first <- outcome{got, err}
	}()
	<-held.entered

	_, err = s.manager.SubmitRegistration(s.ctx, sess.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeSubmissionInFlight))
	s.Equal(http.StatusConflict, httputil.StatusFor(dErrors.CodeSubmissionInFlight))

	close(held.release)
	res := <-first
	s.Require().NoError(res.err)
	s.Equal(registration.StepSuccess, res.session.Registration.Step)
	s.Equal(int32(1), held.calls.Load())
}

func (s *ManagerSuite) TestCheckInFlow() {
	sess := s.start()
	_, err := s.manager.Navigate(s.ctx, sess.ID, kiosk.ScreenCheckIn)
	s.Require().NoError(err)

	s.Run("short code is refused locally", func() {
		_, err := s.manager.SetCheckInCode(s.ctx, sess.ID, "ab")
		s.Require().NoError(err)

		got, err := s.manager.SubmitCheckIn(s.ctx, sess.ID)
		s.Require().NoError(err)
		s.Equal(checkin.StatusError, got.CheckIn.Status)
		s.Equal(validation.MsgCodeInvalid, got.CheckIn.Message)
	})

	s.Run("seeded code checks in", func() {
		_, err := s.manager.SetCheckInCode(s.ctx, sess.ID, "abc123xy")
		s.Require().NoError(err)

		got, err := s.manager.SubmitCheckIn(s.ctx, sess.ID)
		s.Require().NoError(err)
		s.Equal(checkin.StatusSuccess, got.CheckIn.Status)
		s.Equal("María González", got.CheckIn.Result.Visitor.Name)
		s.Require().NotNil(got.CheckIn.MessageExpiresAt)
		s.True(s.now.Add(checkin.SuccessMessageTTL).Equal(*got.CheckIn.MessageExpiresAt))
	})

	s.Run("second use shows the upstream message and keeps the code", func() {
		_, err := s.manager.SetCheckInCode(s.ctx, sess.ID, "ABC123XY")
		s.Require().NoError(err)

		got, err := s.manager.SubmitCheckIn(s.ctx, sess.ID)
		s.Require().NoError(err)
		s.Equal(checkin.StatusError, got.CheckIn.Status)
		s.Equal(mock.MsgAlreadyCheckedIn, got.CheckIn.Message)
		s.Equal("ABC123XY", got.CheckIn.Code)
	})

	s.Run("clear is idempotent", func() {
		for range 2 {
			got, err := s.manager.ClearCheckIn(s.ctx, sess.ID)
			s.Require().NoError(err)
			s.Empty(got.CheckIn.Code)
			s.Empty(got.CheckIn.Message)
			s.Equal(checkin.StatusIdle, got.CheckIn.Status)
		}
	})

	s.Run("lookup does not check in", func() {
		res, err := s.manager.LookupCode(s.ctx, "test1234")
		s.Require().NoError(err)
		s.True(res.Valid)

		res, err = s.manager.LookupCode(s.ctx, "TEST1234")
		s.Require().NoError(err)
		s.True(res.Valid)
	})
}

func (s *ManagerSuite) TestExecuteRetriesConflicts() {
	ctrl := gomock.NewController(s.T())
	st := mocks.NewMockStore(ctrl)
	m := kiosk.NewManager(st, nil, nil, nil)

	conflict := errors.Join(sentinel.ErrConflict, errors.New("watch failed"))
	sess := kiosk.NewSession("s-1", s.now)
	gomock.InOrder(
		st.EXPECT().Execute(gomock.Any(), "s-1", gomock.Any()).Return(nil, conflict),
		st.EXPECT().Execute(gomock.Any(), "s-1", gomock.Any()).Return(sess, nil),
	)
	got, err := m.Navigate(s.ctx, "s-1", kiosk.ScreenHome)
	s.Require().NoError(err)
	s.Equal("s-1", got.ID)

	st.EXPECT().Execute(gomock.Any(), "s-1", gomock.Any()).Return(nil, conflict).Times(3)
	_, err = m.Navigate(s.ctx, "s-1", kiosk.ScreenHome)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}
