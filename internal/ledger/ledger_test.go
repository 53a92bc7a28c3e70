package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/musigent/pkg/types"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "memory_db.json"), nil, nil)
	require.NoError(t, err)
	return l
}

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func TestOpenCreatesEmptyDocument(t *testing.T) {
	l := newTestLedger(t)
	entries, err := l.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAppendPreservesOrderAndCount(t *testing.T) {
	l := newTestLedger(t)
	const n = 12
	for i := 0; i < n; i++ {
		require.NoError(t, l.Append(types.Interaction{Username: "alice", Plan: types.GenerationPlan{Prompt: fmt.Sprintf("p%d", i)}}))
	}
	entries, err := l.Entries()
	require.NoError(t, err)
	require.Len(t, entries, n)
	for i, e := range entries {
		var it types.Interaction
		require.NoError(t, json.Unmarshal(e, &it))
		assert.Equal(t, fmt.Sprintf("p%d", i), it.Plan.Prompt)
		assert.NotEmpty(t, it.TimestampUTC)
	}
}

func TestAppendRoundTripsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory_db.json")
	legacy := `{
  "schema": {"version": 1},
  "interactions": [
    {"plan": {"mode": "bgm"}, "draft": {}, "evaluation": {"approved": true}},
    {"timestamp_utc": "2024-05-01 10:00:00 UTC", "username": "bob", "extra": {"nested": [1, 2, 3]}}
  ]
}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))
	l, err := Open(path, nil, nil)
	require.NoError(t, err)

	require.NoError(t, l.Append(types.Interaction{Username: "alice"}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, map[string]any{"version": float64(1)}, doc["schema"])
	entries := doc["interactions"].([]any)
	require.Len(t, entries, 3)
	second := entries[1].(map[string]any)
	assert.Equal(t, map[string]any{"nested": []any{float64(1), float64(2), float64(3)}}, second["extra"])
}

func TestAppendShrinkingDocumentTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory_db.json")
	// padded so the rewritten document is shorter than the original file
	padded := `{"interactions": []}` + strings.Repeat(" ", 8000)
	require.NoError(t, os.WriteFile(path, []byte(padded), 0o644))
	l, err := Open(path, nil, nil)
	require.NoError(t, err)
	require.NoError(t, l.Append(types.Interaction{Username: "a"}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, json.Valid(raw))
	assert.Less(t, len(raw), 8000)
	assert.NotEqual(t, byte(' '), raw[len(raw)-1])
}

func TestCorruptLogIsPersistenceFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory_db.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"interactions": [`), 0o644))
	l, err := Open(path, nil, nil)
	require.NoError(t, err)

	err = l.Append(types.Interaction{Username: "alice"})
	assert.ErrorIs(t, err, ErrPersistence)
	_, err = l.RollingWindowCount("alice", time.Minute)
	assert.ErrorIs(t, err, ErrPersistence)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"interactions": [`, string(raw), "a failed append must not touch the file")
}

func TestRollingWindowCount(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	l := newTestLedger(t)
	require.NoError(t, l.Append(types.Interaction{Username: "alice", TimestampUTC: FormatTimestamp(now.Add(-70 * time.Second))}))
	require.NoError(t, l.Append(types.Interaction{Username: "alice", TimestampUTC: FormatTimestamp(now.Add(-10 * time.Second))}))
	require.NoError(t, l.Append(types.Interaction{Username: "bob", TimestampUTC: FormatTimestamp(now.Add(-5 * time.Second))}))

	l.Clock = fixedClock(now)
	n, err := l.RollingWindowCount("alice", 60*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = l.RollingWindowCount("alice", 2*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = l.RollingWindowCount("carol", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRollingWindowToleratesLegacyAndMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory_db.json")
	doc := `{"interactions": [
		{"timestamp_utc": "2025-03-10 11:59:30 UTC", "username": "alice"},
		{"timestamp_utc": "2025-03-10T11:59:40Z", "username": "alice"},
		{"timestamp_utc": "2025-03-10T13:59:45+02:00", "username": "alice"},
		{"timestamp_utc": "2025-03-10T11:59:50.123456", "username": "alice"},
		{"timestamp_utc": "yesterday-ish", "username": "alice"},
		{"username": "alice"},
		{"timestamp_utc": 12345, "username": "alice"},
		"not an object",
		{"timestamp_utc": "2025-03-10 11:00:00 UTC", "username": "alice"}
	]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	l, err := Open(path, nil, nil)
	require.NoError(t, err)
	l.Clock = fixedClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))

	n, err := l.RollingWindowCount("alice", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	sum, err := l.UserSummary("alice")
	require.NoError(t, err)
	assert.Equal(t, 5, sum.Total)
	assert.Equal(t, time.Date(2025, 3, 10, 11, 59, 50, 123456000, time.UTC), sum.Last)
}

func TestConcurrentAppends(t *testing.T) {
	l := newTestLedger(t)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, l.Append(types.Interaction{Username: fmt.Sprintf("u%d", i%3)}))
		}(i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.RollingWindowCount("u0", time.Minute)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	entries, err := l.Entries()
	require.NoError(t, err)
	assert.Len(t, entries, 20)
}

func TestParseTimestampFormats(t *testing.T) {
	want := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	for _, s := range []string{
		"2024-01-02 03:04:05 UTC",
		"2024-01-02T03:04:05 UTC",
		"2024-01-02T03:04:05Z",
		"2024-01-02T05:04:05+02:00",
		"2024-01-02T03:04:05",
		"2024-01-02 03:04:05",
	} {
		got, err := ParseTimestamp(s)
		require.NoError(t, err, s)
		assert.True(t, want.Equal(got), "%s -> %v", s, got)
		assert.Equal(t, time.UTC, got.Location(), s)
	}
	for _, s := range []string{"", "UTC", "03:04:05", "2024/01/02"} {
		_, err := ParseTimestamp(s)
		assert.Error(t, err, s)
	}
}
