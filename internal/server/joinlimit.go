package server

import (
	"sync"
	"time"

	"github.com/lawnchairsociety/gridquest/internal/config"
	"github.com/lawnchairsociety/gridquest/internal/gametime"
)

// JoinLimiter tracks failed joinSession attempts per IP and locks an IP out
// with exponential backoff once it guesses wrong too often.
type JoinLimiter struct {
	mu                sync.Mutex
	clock             gametime.Clock
	attempts          map[string]*attemptInfo
	maxAttempts       int
	lockoutSeconds    int
	maxLockoutSeconds int
	cleanupInterval   time.Duration
	stopCleanup       chan struct{}
	stopOnce          sync.Once
}

type attemptInfo struct {
	failedAttempts int
	lockedUntil    time.Time
	lockoutCount   int // for exponential backoff
}

// NewJoinLimiter creates a limiter and starts its cleanup goroutine. A nil
// clock uses wall time.
func NewJoinLimiter(cfg config.JoinLimitConfig, clock gametime.Clock) *JoinLimiter {
	if clock == nil {
		clock = gametime.RealClock{}
	}
	jl := &JoinLimiter{
		clock:             clock,
		attempts:          make(map[string]*attemptInfo),
		maxAttempts:       cfg.MaxAttempts,
		lockoutSeconds:    cfg.LockoutSeconds,
		maxLockoutSeconds: cfg.MaxLockoutSeconds,
		cleanupInterval:   5 * time.Minute,
		stopCleanup:       make(chan struct{}),
	}
	if jl.maxAttempts == 0 {
		jl.maxAttempts = 10
	}
	if jl.lockoutSeconds == 0 {
		jl.lockoutSeconds = 30
	}
	if jl.maxLockoutSeconds == 0 {
		jl.maxLockoutSeconds = 600
	}

	go jl.cleanupLoop()
	return jl
}

// Stop stops the cleanup goroutine. Safe to call more than once.
func (jl *JoinLimiter) Stop() {
	jl.stopOnce.Do(func() { close(jl.stopCleanup) })
}

// IsLocked reports whether ip is locked out and for how much longer.
func (jl *JoinLimiter) IsLocked(ip string) (bool, time.Duration) {
	jl.mu.Lock()
	defer jl.mu.Unlock()

	info, ok := jl.attempts[ip]
	if !ok {
		return false, 0
	}
	now := jl.clock.Now()
	if now.Before(info.lockedUntil) {
		return true, info.lockedUntil.Sub(now)
	}
	return false, 0
}

// RecordFailure counts a failed join for ip. Returns true, with the lockout
// length, when this failure locks the IP out.
func (jl *JoinLimiter) RecordFailure(ip string) (bool, time.Duration) {
	jl.mu.Lock()
	defer jl.mu.Unlock()

	info, ok := jl.attempts[ip]
	if !ok {
		info = &attemptInfo{}
		jl.attempts[ip] = info
	}

	now := jl.clock.Now()
	if now.Before(info.lockedUntil) {
		return true, info.lockedUntil.Sub(now)
	}

	info.failedAttempts++
	if info.failedAttempts < jl.maxAttempts {
		return false, 0
	}

	info.lockoutCount++
	lockout := time.Duration(jl.lockoutSeconds) * time.Second
	maxLockout := time.Duration(jl.maxLockoutSeconds) * time.Second
	for i := 1; i < info.lockoutCount; i++ {
		// Check before doubling to prevent overflow.
		if lockout >= maxLockout/2 {
			lockout = maxLockout
			break
		}
		lockout *= 2
	}
	if lockout > maxLockout {
		lockout = maxLockout
	}
	info.lockedUntil = now.Add(lockout)
	info.failedAttempts = 0
	return true, lockout
}

// RecordSuccess forgets ip's failures.
func (jl *JoinLimiter) RecordSuccess(ip string) {
	jl.mu.Lock()
	defer jl.mu.Unlock()
	delete(jl.attempts, ip)
}

// Attempts returns the failures counted towards ip's next lockout.
func (jl *JoinLimiter) Attempts(ip string) int {
	jl.mu.Lock()
	defer jl.mu.Unlock()
	if info, ok := jl.attempts[ip]; ok {
		return info.failedAttempts
	}
	return 0
}

func (jl *JoinLimiter) cleanupLoop() {
	ticker := time.NewTicker(jl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-jl.stopCleanup:
			return
		case <-ticker.C:
			jl.cleanup()
		}
	}
}

// cleanup drops entries unlocked for at least ten minutes with no pending
// failures.
func (jl *JoinLimiter) cleanup() {
	jl.mu.Lock()
	defer jl.mu.Unlock()

	cutoff := jl.clock.Now().Add(-10 * time.Minute)
	for ip, info := range jl.attempts {
		if info.lockedUntil.Before(cutoff) && info.failedAttempts == 0 {
			delete(jl.attempts, ip)
		}
	}
}
