package mock

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"kiosk/internal/domain"
	"kiosk/pkg/platform/sentinel"
)

// StoreSuite runs the same contract against every Store implementation.
type StoreSuite struct {
	suite.Suite
	newStore func(t *testing.T) Store
	store    Store
	now      time.Time
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func(*testing.T) Store { return NewMemoryStore() }})
}

func TestSQLiteStoreSuite(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func(t *testing.T) Store {
		s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "kiosk.db"))
		if err != nil {
			t.Fatalf("open sqlite: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		return s
	}})
}

func (s *StoreSuite) SetupTest() {
	s.now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	s.store = s.newStore(s.T())
}

func (s *StoreSuite) putEvent(id string, capacity, registered int, status domain.EventStatus) {
	err := s.store.PutEvent(context.Background(), domain.Event{
		ID: id, Title: "Event " + id, Date: s.now.Add(48 * time.Hour),
		Capacity: capacity, RegisteredCount: registered, Status: status,
	})
	s.Require().NoError(err)
}

func (s *StoreSuite) registration(code, eventID, visitorID string) (domain.Visitor, domain.Registration) {
	v := domain.Visitor{
		ID: visitorID, Name: "Juan Perez", Email: "juan@example.com", Phone: "809-123-4567",
		Age: 30, Gender: domain.GenderMale, RegisteredAt: s.now,
	}
	r := domain.Registration{
		ID: "reg-" + code, EventID: eventID, VisitorID: visitorID,
		ConfirmationCode: code, RegisteredAt: s.now, Status: domain.RegistrationConfirmed,
	}
	return v, r
}

func (s *StoreSuite) TestEvents() {
	ctx := context.Background()

	s.Run("missing event is not found", func() {
		_, err := s.store.GetEvent(ctx, "nope")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("put then get round trips", func() {
		s.putEvent("evento-9", 40, 3, domain.EventUpcoming)
		e, err := s.store.GetEvent(ctx, "evento-9")
		s.Require().NoError(err)
		s.Equal(40, e.Capacity)
		s.Equal(3, e.RegisteredCount)
		s.Equal(domain.EventUpcoming, e.Status)
		s.True(e.Date.Equal(s.now.Add(48 * time.Hour)))
	})

	s.Run("list is ordered by date", func() {
		err := s.store.PutEvent(ctx, domain.Event{ID: "early", Title: "Early", Date: s.now, Capacity: 1, Status: domain.EventActive})
		s.Require().NoError(err)
		events, err := s.store.ListEvents(ctx)
		s.Require().NoError(err)
		s.Require().GreaterOrEqual(len(events), 2)
		s.Equal("early", events[0].ID)
	})
}

func (s *StoreSuite) TestRegister() {
	ctx := context.Background()
	s.putEvent("open", 2, 0, domain.EventActive)
	s.putEvent("full", 1, 1, domain.EventActive)
	s.putEvent("done", 10, 0, domain.EventFinished)

	s.Run("claims a seat", func() {
		v, r := s.registration("AAAA1111", "open", "v-1")
		s.Require().NoError(s.store.Register(ctx, v, r))

		e, err := s.store.GetEvent(ctx, "open")
		s.Require().NoError(err)
		s.Equal(1, e.RegisteredCount)

		exists, err := s.store.CodeExists(ctx, "AAAA1111")
		s.Require().NoError(err)
		s.True(exists)
	})

	s.Run("duplicate code conflicts and leaves the count alone", func() {
		v, r := s.registration("AAAA1111", "open", "v-2")
		r.ID = "reg-other"
		s.ErrorIs(s.store.Register(ctx, v, r), sentinel.ErrConflict)

		e, err := s.store.GetEvent(ctx, "open")
		s.Require().NoError(err)
		s.Equal(1, e.RegisteredCount)
	})

	s.Run("full event is rejected", func() {
		v, r := s.registration("BBBB2222", "full", "v-3")
		err := s.store.Register(ctx, v, r)
		s.ErrorIs(err, ErrEventFull)
		s.ErrorIs(err, sentinel.ErrInvalidState)
	})

	s.Run("finished event is rejected", func() {
		v, r := s.registration("CCCC3333", "done", "v-4")
		s.ErrorIs(s.store.Register(ctx, v, r), ErrEventFinished)
	})

	s.Run("unknown event is not found", func() {
		v, r := s.registration("DDDD4444", "ghost", "v-5")
		s.ErrorIs(s.store.Register(ctx, v, r), sentinel.ErrNotFound)
	})
}

func (s *StoreSuite) TestRegister_ConcurrentNeverOverbooks() {
	ctx := context.Background()
	s.putEvent("tight", 5, 0, domain.EventActive)

	var wg sync.WaitGroup
	var ok atomic.Int32
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			code := string(rune('A'+i)) + "CODE123"
			v, r := s.registration(code, "tight", "vc-"+code)
			if s.store.Register(ctx, v, r) == nil {
				ok.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(5), ok.Load())
	e, err := s.store.GetEvent(ctx, "tight")
	s.Require().NoError(err)
	s.Equal(5, e.RegisteredCount)
}

func (s *StoreSuite) TestCheckIn() {
	ctx := context.Background()
	s.putEvent("open", 10, 0, domain.EventActive)
	v, r := s.registration("ZXCV0987", "open", "v-1")
	s.Require().NoError(s.store.Register(ctx, v, r))

	s.Run("unknown code is not found", func() {
		_, err := s.store.MarkCheckedIn(ctx, "NOPE0000", s.now)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("first check-in succeeds", func() {
		reg, err := s.store.MarkCheckedIn(ctx, "ZXCV0987", s.now)
		s.Require().NoError(err)
		s.Equal(domain.RegistrationCheckedIn, reg.Status)
		s.Require().NotNil(reg.CheckedInAt)
		s.True(reg.CheckedInAt.Equal(s.now))
	})

	s.Run("second check-in is already used", func() {
		_, err := s.store.MarkCheckedIn(ctx, "ZXCV0987", s.now.Add(time.Minute))
		s.ErrorIs(err, sentinel.ErrAlreadyUsed)

		reg, visitor, err := s.store.FindByCode(ctx, "ZXCV0987")
		s.Require().NoError(err)
		s.True(reg.CheckedInAt.Equal(s.now), "first check-in time is kept")
		s.Equal("Juan Perez", visitor.Name)
	})
}

func (s *StoreSuite) TestStats() {
	ctx := context.Background()
	s.Require().NoError(Seed(ctx, s.store, s.now))
	_, err := s.store.MarkCheckedIn(ctx, "ABC123XY", s.now)
	s.Require().NoError(err)

	stats, err := s.store.Stats(ctx)
	s.Require().NoError(err)
	s.Equal(4, stats.TotalVisitors)
	s.Equal(4, stats.TotalRegistrations)
	s.Equal(1, stats.CheckedIn)
	s.Equal(3, stats.Pending)
	s.Equal(2, stats.ByEvent["evento-1"])
	s.Equal(2, stats.ByGender["female"])
}

func (s *StoreSuite) TestSeed_Idempotent() {
	ctx := context.Background()
	s.Require().NoError(Seed(ctx, s.store, s.now))
	s.Require().NoError(Seed(ctx, s.store, s.now))

	events, err := s.store.ListEvents(ctx)
	s.Require().NoError(err)
	s.Len(events, 5)

	e, err := s.store.GetEvent(ctx, "evento-1")
	s.Require().NoError(err)
	// 155 seeded plus two demo registrations.
	s.Equal(157, e.RegisteredCount)
}
