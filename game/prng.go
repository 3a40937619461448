package game

import (
	crand "crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"math/rand/v2"
	"sync"
)

// RandomSource feeds the crash model and the wave scheduler.
type RandomSource interface {
	// Float64 returns a uniform draw in (0,1].
	Float64() float64
	// IntN returns a uniform int in [0,n).
	IntN(n int) int
}

// RNG is a RandomSource backed by math/rand/v2.
type RNG struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewSeededRNG derives a PCG stream from sha256(seed). The same seed always
// replays the same sequence of draws.
func NewSeededRNG(seed string) *RNG {
	hash := sha256.Sum256([]byte(seed))
	hi := binary.BigEndian.Uint64(hash[:8])
	lo := binary.BigEndian.Uint64(hash[8:16])
	return &RNG{r: rand.New(rand.NewPCG(hi, lo))}
}

// NewRNG returns a ChaCha8 stream keyed from crypto/rand.
func NewRNG() *RNG {
	var key [32]byte
	if _, err := crand.Read(key[:]); err != nil {
		panic(err)
	}
	return &RNG{r: rand.New(rand.NewChaCha8(key))}
}

func (g *RNG) Float64() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return 1 - g.r.Float64()
}

func (g *RNG) IntN(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.r.IntN(n)
}

// ScriptedSource replays fixed draws, cycling when exhausted. Empty slices
// yield 1.0 and 0 respectively.
type ScriptedSource struct {
	Draws []float64
	Ints  []int

	mu      sync.Mutex
	drawPos int
	intPos  int
}

func (s *ScriptedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Draws) == 0 {
		return 1.0
	}
	v := s.Draws[s.drawPos%len(s.Draws)]
	s.drawPos++
	return v
}

func (s *ScriptedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Ints) == 0 {
		return 0
	}
	v := s.Ints[s.intPos%len(s.Ints)]
	s.intPos++
	return ((v % n) + n) % n
}
