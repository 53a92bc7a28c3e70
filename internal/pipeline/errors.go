package pipeline

import (
	"errors"
	"fmt"
	"time"
)

// ErrThrottled marks a request refused by the usage policy before any paid work.
var ErrThrottled = errors.New("request throttled")

// Throttle limit names.
const (
	LimitRollingWindow = "rolling_window"
	LimitDaily         = "daily"
)

// ThrottleError describes which limit refused the request.
type ThrottleError struct {
	Username string
	Limit    string
	Count    int
	Max      int
	Window   time.Duration
}

func (e *ThrottleError) Error() string {
	if e.Limit == LimitDaily {
		return fmt.Sprintf("daily jingle limit reached for %q: %d of %d used today (UTC); try again tomorrow", e.Username, e.Count, e.Max)
	}
	return fmt.Sprintf("too many jingle requests for %q: %d in the last %s (max %d); please wait and retry", e.Username, e.Count, e.Window, e.Max)
}

func (e *ThrottleError) Is(target error) bool {
	return target == ErrThrottled
}
