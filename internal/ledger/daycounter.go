package ledger

import (
	"sync"
	"time"
)

type dayCount struct {
	day   string
	count int
}

// DayCounter counts requests per user per UTC calendar day in memory.
// It is not rebuilt from the log after a restart.
type DayCounter struct {
	mu    sync.Mutex
	users map[string]*dayCount
	Clock func() time.Time
}

func NewDayCounter() *DayCounter {
	return &DayCounter{users: make(map[string]*dayCount), Clock: time.Now}
}

func (c *DayCounter) today() string {
	return c.Clock().UTC().Format(time.DateOnly)
}

// entry returns the user's counter for today, resetting it when the day has changed.
// Callers hold c.mu.
func (c *DayCounter) entry(username string) *dayCount {
	today := c.today()
	e, ok := c.users[username]
	if !ok {
		e = &dayCount{day: today}
		c.users[username] = e
	}
	if e.day != today {
		e.day = today
		e.count = 0
	}
	return e
}

// Count returns today's count for username.
func (c *DayCounter) Count(username string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entry(username).count
}

// Increment adds one to today's count and returns the new value.
func (c *DayCounter) Increment(username string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(username)
	e.count++
	return e.count
}
