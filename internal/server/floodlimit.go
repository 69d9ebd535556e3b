package server

import (
	"sync"
	"time"

	"github.com/lawnchairsociety/gridquest/internal/config"
	"github.com/lawnchairsociety/gridquest/internal/gametime"
)

// CommandTracker caps how many commands one connection may send within a
// sliding window. Each connection gets its own tracker.
type CommandTracker struct {
	mu          sync.Mutex
	clock       gametime.Clock
	maxCommands int
	window      time.Duration
	times       []time.Time
}

// NewCommandTracker returns nil when limiting is disabled; a nil tracker
// allows everything.
func NewCommandTracker(cfg config.CommandLimitConfig, clock gametime.Clock) *CommandTracker {
	if !cfg.Enabled || cfg.MaxCommands <= 0 || cfg.WindowSeconds <= 0 {
		return nil
	}
	if clock == nil {
		clock = gametime.RealClock{}
	}
	return &CommandTracker{
		clock:       clock,
		maxCommands: cfg.MaxCommands,
		window:      time.Duration(cfg.WindowSeconds) * time.Second,
		times:       make([]time.Time, 0, cfg.MaxCommands),
	}
}

// Allow records a command. When the window is full it returns false and how
// long until the oldest command ages out.
func (t *CommandTracker) Allow() (bool, time.Duration) {
	if t == nil {
		return true, 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	cutoff := now.Add(-t.window)
	kept := t.times[:0]
	for _, at := range t.times {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	t.times = kept

	if len(t.times) >= t.maxCommands {
		return false, t.times[0].Add(t.window).Sub(now)
	}
	t.times = append(t.times, now)
	return true, 0
}
