package domain

import "time"

// TokenTypeBearer is the only token type issued by the service.
const TokenTypeBearer = "Bearer"

// AccessToken is the result of a successful login.
type AccessToken struct {
	AccessToken string
	TokenType   string
	ExpiresIn   string
	ExpiresAt   time.Time
}

// LockoutPolicy defines how many consecutive failures lock an account and for how long.
type LockoutPolicy struct {
	MaxAttempts int
	Duration    time.Duration
}

// DefaultLockoutPolicy locks after five failures for fifteen minutes.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{MaxAttempts: 5, Duration: 15 * time.Minute}
}

// RecordFailure returns the counters to persist after a failed password check.
// The lock is set once the new count reaches MaxAttempts, otherwise lockedUntil stays nil.
func (p LockoutPolicy) RecordFailure(attempts int, now time.Time) (int, *time.Time) {
	if attempts < 0 {
		attempts = 0
	}
	next := attempts + 1
	if next >= p.MaxAttempts {
		until := now.Add(p.Duration)
		return next, &until
	}
	return next, nil
}

// RecordSuccess returns the counters to persist after a successful login.
func (p LockoutPolicy) RecordSuccess() (int, *time.Time) {
	return 0, nil
}
