package audit

import (
	"math/rand/v2"
	"sync"
)

// Sampler keeps a configurable share of events per action. Rates are clamped
// to [0, 1].
type Sampler struct {
	mu           sync.RWMutex
	defaultRate  float64
	rateByAction map[string]float64
	float        func() float64
}

func NewSampler(defaultRate float64) *Sampler {
	return &Sampler{
		defaultRate:  clamp(defaultRate),
		rateByAction: make(map[string]float64),
		float:        rand.Float64,
	}
}

// ShouldSample reports whether an event with this action is kept.
func (s *Sampler) ShouldSample(action string) bool {
	rate := s.rateFor(action)
	if rate >= 1 {
		return true
	}
	return s.float() < rate
}

// SetRate overrides the default for one action.
func (s *Sampler) SetRate(action string, rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateByAction[action] = clamp(rate)
}

func (s *Sampler) rateFor(action string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rate, ok := s.rateByAction[action]; ok {
		return rate
	}
	return s.defaultRate
}

func clamp(rate float64) float64 {
	return min(max(rate, 0), 1)
}
