package stats

import (
	"math/rand"
	"sync"
	"time"
)

// Die is the bonus die a character rolls for attack or defence.
type Die string

const (
	D4 Die = "d4"
	D6 Die = "d6"
)

// Sides returns the number of faces, 0 for an unrecognised die.
func (d Die) Sides() int {
	switch d {
	case D4:
		return 4
	case D6:
		return 6
	default:
		return 0
	}
}

// Roller is the source of randomness for dice, hazard and evasion checks.
// Implementations must be safe for concurrent use.
type Roller interface {
	// Roll returns a uniform value in 1..Sides, or 0 for an unrecognised die.
	Roll(d Die) int
	// Chance returns true with probability p.
	Chance(p float64) bool
	// Intn returns a uniform value in [0, n).
	Intn(n int) int
}

// RandRoller is the production Roller backed by math/rand.
type RandRoller struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandRoller creates a roller. A zero seed seeds from the clock.
func NewRandRoller(seed int64) *RandRoller {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandRoller{rng: rand.New(rand.NewSource(seed))}
}

// Roll rolls the die once
func (r *RandRoller) Roll(d Die) int {
	sides := d.Sides()
	if sides == 0 {
		return 0
	}
	return r.Intn(sides) + 1
}

// Chance returns true with probability p
func (r *RandRoller) Chance(p float64) bool {
	if p <= 0 {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64() < p
}

// Intn returns a uniform value in [0, n)
func (r *RandRoller) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}

// ScriptedRoller replays queued outcomes, for deterministic games in tests
// and replays. When a queue runs dry it falls back to the lowest roll, a
// failed chance and zero.
type ScriptedRoller struct {
	mu      sync.Mutex
	rolls   []int
	chances []bool
	ints    []int

	// RollCalls counts Roll invocations.
	RollCalls int
}

// QueueRolls appends die results. Values are returned as-is, so a test can
// also script out-of-range faces if it needs to.
func (s *ScriptedRoller) QueueRolls(values ...int) *ScriptedRoller {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rolls = append(s.rolls, values...)
	return s
}

// QueueChances appends chance outcomes.
func (s *ScriptedRoller) QueueChances(values ...bool) *ScriptedRoller {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chances = append(s.chances, values...)
	return s
}

// QueueInts appends Intn results.
func (s *ScriptedRoller) QueueInts(values ...int) *ScriptedRoller {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ints = append(s.ints, values...)
	return s
}

func (s *ScriptedRoller) Roll(d Die) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RollCalls++
	if d.Sides() == 0 {
		return 0
	}
	if len(s.rolls) == 0 {
		return 1
	}
	v := s.rolls[0]
	s.rolls = s.rolls[1:]
	return v
}

func (s *ScriptedRoller) Chance(p float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.chances) == 0 {
		return false
	}
	v := s.chances[0]
	s.chances = s.chances[1:]
	return v
}

func (s *ScriptedRoller) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ints) == 0 || n <= 0 {
		return 0
	}
	v := s.ints[0] % n
	s.ints = s.ints[1:]
	return v
}
