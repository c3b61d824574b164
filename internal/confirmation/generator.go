// Package confirmation issues the eight character codes visitors use to check in.
//
// Codes are drawn uniformly from [A-Z0-9] with a non-cryptographic source. The
// generator does not check for collisions; stores that persist registrations
// reject duplicates and ask for another code.
package confirmation

import (
	"math/rand/v2"
	"sync"
	"time"
)

const (
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	Length   = 8
)

// Generator is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewGenerator wraps an explicit random source.
func NewGenerator(src rand.Source) *Generator {
	return &Generator{rnd: rand.New(src)}
}

// NewSeeded returns a deterministic generator, mostly for tests and fixtures.
func NewSeeded(seed uint64) *Generator {
	return NewGenerator(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// New returns a generator seeded from the clock.
func New() *Generator {
	return NewSeeded(uint64(time.Now().UnixNano()))
}

// Generate returns a fresh code.
func (g *Generator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	b := make([]byte, Length)
	for i := range b {
		b[i] = Alphabet[g.rnd.IntN(len(Alphabet))]
	}
	return string(b)
}

// GenerateUnique draws codes until taken reports one as free, giving up after
// attempts draws. The empty string means every draw collided.
func (g *Generator) GenerateUnique(attempts int, taken func(code string) bool) string {
	for range attempts {
		code := g.Generate()
		if !taken(code) {
			return code
		}
	}
	return ""
}
