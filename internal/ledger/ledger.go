// Package ledger is the append-only interaction log behind usage throttling.
package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/musigent/internal/logging"
	"github.com/yourorg/musigent/pkg/types"
)

const interactionsKey = "interactions"

// ErrPersistence wraps every failure to read, parse or write the log file.
var ErrPersistence = errors.New("ledger persistence failure")

// Store is the usage ledger seen by the pipeline.
type Store interface {
	Append(it types.Interaction) error
	RollingWindowCount(username string, window time.Duration) (int, error)
	CalendarDayCount(username string) int
}

// Ledger keeps interactions in a single JSON document {"interactions": [...]}.
// Entries it does not understand, and top-level keys other than "interactions", are
// written back untouched.
type Ledger struct {
	path   string
	days   *DayCounter
	mu     sync.Mutex
	logger logrus.FieldLogger
	Clock  func() time.Time
}

// Open prepares the log file at path, creating an empty document if none exists.
// days is the caller-owned per-day counter; nil allocates a private one.
func Open(path string, days *DayCounter, logger logrus.FieldLogger) (*Ledger, error) {
	if days == nil {
		days = NewDayCounter()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create dir: %v", ErrPersistence, err)
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(path, []byte("{\n  \"interactions\": []\n}"), 0o644); err != nil {
			return nil, fmt.Errorf("%w: create log: %v", ErrPersistence, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("%w: stat log: %v", ErrPersistence, err)
	}
	return &Ledger{path: path, days: days, logger: logging.OrDiscard(logger), Clock: time.Now}, nil
}

// Path returns the log file location.
func (l *Ledger) Path() string {
	return l.path
}

// Days returns the day counter shared with the owner.
func (l *Ledger) Days() *DayCounter {
	return l.days
}

// Append adds it to the end of the log. The full document is rewritten in place and the
// file is truncated only after the write, so an interrupted write never shortens the log
// below its previous content.
func (l *Ledger) Append(it types.Interaction) error {
	if it.TimestampUTC == "" {
		it.TimestampUTC = FormatTimestamp(l.Clock())
	}
	entry, err := json.Marshal(it)
	if err != nil {
		return fmt.Errorf("%w: encode interaction: %v", ErrPersistence, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open: %v", ErrPersistence, err)
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("%w: read: %v", ErrPersistence, err)
	}
	doc, entries, err := decodeDocument(raw)
	if err != nil {
		return err
	}
	entries = append(entries, entry)
	encodedEntries, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("%w: encode interactions: %v", ErrPersistence, err)
	}
	doc[interactionsKey] = encodedEntries

	compact, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: encode document: %v", ErrPersistence, err)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "  "); err != nil {
		return fmt.Errorf("%w: indent document: %v", ErrPersistence, err)
	}

	if _, err := f.WriteAt(out.Bytes(), 0); err != nil {
		return fmt.Errorf("%w: write: %v", ErrPersistence, err)
	}
	if err := f.Truncate(int64(out.Len())); err != nil {
		return fmt.Errorf("%w: truncate: %v", ErrPersistence, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("%w: sync: %v", ErrPersistence, err)
	}
	l.logger.WithFields(logrus.Fields{"username": it.Username, "entries": len(entries)}).Debug("interaction appended")
	return nil
}

// Entries returns the raw persisted records in insertion order.
func (l *Ledger) Entries() ([]json.RawMessage, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readEntries()
}

func (l *Ledger) readEntries() ([]json.RawMessage, error) {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("%w: read: %v", ErrPersistence, err)
	}
	_, entries, err := decodeDocument(raw)
	return entries, err
}

// entryHeader is the part of an entry needed for throttling.
type entryHeader struct {
	TimestampUTC string `json:"timestamp_utc"`
	Username     string `json:"username"`
}

// userTimes returns the parsed timestamps of every entry for username. Entries that are
// malformed or lack a usable timestamp are skipped.
func (l *Ledger) userTimes(username string) ([]time.Time, error) {
	l.mu.Lock()
	entries, err := l.readEntries()
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}

	var out []time.Time
	skipped := 0
	for _, e := range entries {
		var h entryHeader
		if err := json.Unmarshal(e, &h); err != nil || h.Username != username {
			if err != nil {
				skipped++
			}
			continue
		}
		ts, err := ParseTimestamp(h.TimestampUTC)
		if err != nil {
			skipped++
			continue
		}
		out = append(out, ts)
	}
	if skipped > 0 {
		l.logger.WithFields(logrus.Fields{"username": username, "skipped": skipped}).Debug("skipped unreadable ledger entries")
	}
	return out, nil
}

// RollingWindowCount counts username's entries stamped at or after now-window.
// It is recomputed from the file on every call.
func (l *Ledger) RollingWindowCount(username string, window time.Duration) (int, error) {
	times, err := l.userTimes(username)
	if err != nil {
		return 0, err
	}
	cutoff := l.Clock().UTC().Add(-window)
	n := 0
	for _, ts := range times {
		if !ts.Before(cutoff) {
			n++
		}
	}
	return n, nil
}

// CalendarDayCount returns username's count for the current UTC day.
func (l *Ledger) CalendarDayCount(username string) int {
	return l.days.Count(username)
}

// Summary describes one user's history.
type Summary struct {
	Total int
	Last  time.Time
}

// UserSummary returns how many readable entries username has and when the latest was written.
func (l *Ledger) UserSummary(username string) (Summary, error) {
	times, err := l.userTimes(username)
	if err != nil {
		return Summary{}, err
	}
	s := Summary{Total: len(times)}
	for _, ts := range times {
		if ts.After(s.Last) {
			s.Last = ts
		}
	}
	return s, nil
}

func decodeDocument(raw []byte) (map[string]json.RawMessage, []json.RawMessage, error) {
	doc := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return doc, nil, nil
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil, fmt.Errorf("%w: parse log: %v", ErrPersistence, err)
	}
	var entries []json.RawMessage
	if v, ok := doc[interactionsKey]; ok && !isNull(v) {
		if err := json.Unmarshal(v, &entries); err != nil {
			return nil, nil, fmt.Errorf("%w: parse interactions: %v", ErrPersistence, err)
		}
	}
	return doc, entries, nil
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}
