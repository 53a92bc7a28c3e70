package ledger

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayCounterResetsAtUTCMidnight(t *testing.T) {
	now := time.Date(2025, 6, 1, 23, 59, 0, 0, time.UTC)
	c := NewDayCounter()
	c.Clock = func() time.Time { return now }

	assert.Equal(t, 0, c.Count("alice"))
	c.Increment("alice")
	c.Increment("alice")
	assert.Equal(t, 2, c.Count("alice"))
	assert.Equal(t, 0, c.Count("bob"))

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 0, c.Count("alice"))
	assert.Equal(t, 1, c.Increment("alice"))
}

func TestDayCounterUsesUTCDay(t *testing.T) {
	tz := time.FixedZone("UTC+10", 10*3600)
	// 2025-06-02 08:00 local is still 2025-06-01 UTC
	now := time.Date(2025, 6, 2, 8, 0, 0, 0, tz)
	c := NewDayCounter()
	c.Clock = func() time.Time { return now }
	c.Increment("alice")

	now = time.Date(2025, 6, 2, 9, 59, 0, 0, tz)
	assert.Equal(t, 1, c.Count("alice"))
	now = time.Date(2025, 6, 2, 10, 0, 0, 0, tz)
	assert.Equal(t, 0, c.Count("alice"))
}

func TestDayCounterConcurrentIncrements(t *testing.T) {
	c := NewDayCounter()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Increment("alice")
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, c.Count("alice"))
}

func TestLedgerSharesOwnerDayCounter(t *testing.T) {
	days := NewDayCounter()
	l, err := Open(filepath.Join(t.TempDir(), "memory_db.json"), days, nil)
	require.NoError(t, err)
	days.Increment("alice")
	assert.Equal(t, 1, l.CalendarDayCount("alice"))
	assert.Same(t, days, l.Days())
}
