package activation

import (
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the format activation timestamps are written in.
const TimestampLayout = "2006-01-02 15:04:05"

// parseLayouts are tried in order by ParseTimestamp.
var parseLayouts = []string{
	TimestampLayout,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC850,
	time.ANSIC,
	time.UnixDate,
}

// ParseTimestamp reports whether s is a usable activation timestamp. Besides
// the layouts above it accepts "@<unix seconds>".
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if rest, ok := strings.CutPrefix(s, "@"); ok {
		secs, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		return time.Unix(secs, 0).UTC(), true
	}
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Clock supplies the time fresh activations are stamped with.
type Clock interface {
	Now() (time.Time, error)
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() (time.Time, error)

// Now implements Clock.
func (f ClockFunc) Now() (time.Time, error) { return f() }

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() (time.Time, error) { return time.Now(), nil }

// Stamp formats the current time from c. When c is nil, errors, or returns
// the zero time, it falls back to a second-resolution wall clock read.
// Stamp never fails.
func Stamp(c Clock) string {
	var now time.Time
	if c != nil {
		if t, err := c.Now(); err == nil {
			now = t
		}
	}
	if now.IsZero() {
		now = time.Now().Truncate(time.Second)
	}
	return now.UTC().Format(TimestampLayout)
}
