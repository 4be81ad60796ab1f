package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPendingUrl_CanLease(t *testing.T) {
	cases := []struct {
		name string
		p    PendingUrl
		want bool
	}{
		{"pending", PendingUrl{Status: QueueStatusPending}, true},
		{"processing", PendingUrl{Status: QueueStatusProcessing}, false},
		{"completed", PendingUrl{Status: QueueStatusCompleted}, false},
		{"failed under max attempts", PendingUrl{Status: QueueStatusFailed, Attempts: DefaultMaxAttempts - 1}, true},
		{"failed at max attempts", PendingUrl{Status: QueueStatusFailed, Attempts: DefaultMaxAttempts}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.p.CanLease())
		})
	}
}

func TestPendingUrl_IsStale(t *testing.T) {
	now := time.Now()

	t.Run("not processing", func(t *testing.T) {
		p := PendingUrl{Status: QueueStatusPending}
		assert.False(t, p.IsStale(DefaultStaleLeaseAfter, now))
	})

	t.Run("no leased at", func(t *testing.T) {
		p := PendingUrl{Status: QueueStatusProcessing}
		assert.False(t, p.IsStale(DefaultStaleLeaseAfter, now))
	})

	t.Run("fresh lease", func(t *testing.T) {
		leased := now.Add(-time.Minute)
		p := PendingUrl{Status: QueueStatusProcessing, LeasedAt: &leased}
		assert.False(t, p.IsStale(DefaultStaleLeaseAfter, now))
	})

	t.Run("stale lease", func(t *testing.T) {
		leased := now.Add(-time.Hour)
		p := PendingUrl{Status: QueueStatusProcessing, LeasedAt: &leased}
		assert.True(t, p.IsStale(DefaultStaleLeaseAfter, now))
	})
}
