package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockoutPolicy_RecordFailure(t *testing.T) {
	policy := DefaultLockoutPolicy()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		attempts int
		want     int
		locks    bool
	}{
		{"first failure", 0, 1, false},
		{"fourth failure", 3, 4, false},
		{"fifth failure locks", 4, 5, true},
		{"failure after expired lock relocks", 5, 6, true},
		{"negative counter treated as zero", -2, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts, lockedUntil := policy.RecordFailure(tt.attempts, now)
			assert.Equal(t, tt.want, attempts)
			if tt.locks {
				require.NotNil(t, lockedUntil)
				assert.Equal(t, now.Add(15*time.Minute), *lockedUntil)
			} else {
				assert.Nil(t, lockedUntil)
			}
		})
	}
}

func TestLockoutPolicy_RecordSuccess(t *testing.T) {
	attempts, lockedUntil := DefaultLockoutPolicy().RecordSuccess()
	assert.Zero(t, attempts)
	assert.Nil(t, lockedUntil)
}

func TestUser_IsLocked(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Minute)
	past := now.Add(-time.Minute)

	assert.False(t, (&User{}).IsLocked(now))
	assert.True(t, (&User{LockedUntil: &future}).IsLocked(now))
	assert.False(t, (&User{LockedUntil: &past}).IsLocked(now))
	assert.False(t, (&User{LockedUntil: &now}).IsLocked(now), "a lock ending now is over")
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ann@example.com", NormalizeEmail("  Ann@Example.COM\t"))
}
