package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"kiosk/internal/domain"
	"kiosk/pkg/platform/sentinel"
)

// MemoryStore keeps everything in maps behind one lock.
type MemoryStore struct {
	mu            sync.RWMutex
	events        map[string]domain.Event
	visitors      map[string]domain.Visitor
	registrations map[string]domain.Registration // by confirmation code
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:        make(map[string]domain.Event),
		visitors:      make(map[string]domain.Visitor),
		registrations: make(map[string]domain.Registration),
	}
}

func (s *MemoryStore) ListEvents(_ context.Context) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := lo.Values(s.events)
	sort.Slice(events, func(i, j int) bool {
		if events[i].Date.Equal(events[j].Date) {
			return events[i].ID < events[j].ID
		}
		return events[i].Date.Before(events[j].Date)
	})
	return events, nil
}

func (s *MemoryStore) GetEvent(_ context.Context, id string) (domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.events[id]; ok {
		return e, nil
	}
	return domain.Event{}, sentinel.ErrNotFound
}

func (s *MemoryStore) PutEvent(_ context.Context, e domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.ID] = e
	return nil
}

func (s *MemoryStore) Register(_ context.Context, v domain.Visitor, r domain.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[r.EventID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if event.IsFinished() {
		return ErrEventFinished
	}
	if event.IsFull() {
		return ErrEventFull
	}
	if _, taken := s.registrations[r.ConfirmationCode]; taken {
		return sentinel.ErrConflict
	}

	event.RegisteredCount++
	s.events[event.ID] = event
	s.visitors[v.ID] = v
	s.registrations[r.ConfirmationCode] = r
	return nil
}

func (s *MemoryStore) CodeExists(_ context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.registrations[code]
	return ok, nil
}

func (s *MemoryStore) FindByCode(_ context.Context, code string) (domain.Registration, domain.Visitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.registrations[code]
	if !ok {
		return domain.Registration{}, domain.Visitor{}, sentinel.ErrNotFound
	}
	return r, s.visitors[r.VisitorID], nil
}

func (s *MemoryStore) MarkCheckedIn(_ context.Context, code string, at time.Time) (domain.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.registrations[code]
	if !ok {
		return domain.Registration{}, sentinel.ErrNotFound
	}
	if r.CheckedIn() {
		return r, sentinel.ErrAlreadyUsed
	}
	r.Status = domain.RegistrationCheckedIn
	r.CheckedInAt = &at
	s.registrations[code] = r
	return r, nil
}

func (s *MemoryStore) Stats(_ context.Context) (domain.VisitorStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	regs := lo.Values(s.registrations)
	return buildStats(lo.Values(s.visitors), regs), nil
}

// buildStats is shared by both stores.
func buildStats(visitors []domain.Visitor, regs []domain.Registration) domain.VisitorStats {
	checkedIn := lo.CountBy(regs, func(r domain.Registration) bool { return r.CheckedIn() })
	return domain.VisitorStats{
		TotalVisitors:      len(visitors),
		TotalRegistrations: len(regs),
		CheckedIn:          checkedIn,
		Pending:            len(regs) - checkedIn,
		ByEvent: lo.MapValues(lo.GroupBy(regs, func(r domain.Registration) string { return r.EventID }),
			func(group []domain.Registration, _ string) int { return len(group) }),
		ByGender: lo.MapValues(lo.GroupBy(visitors, func(v domain.Visitor) string { return string(v.Gender) }),
			func(group []domain.Visitor, _ string) int { return len(group) }),
	}
}

var _ Store = (*MemoryStore)(nil)
