package sampler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/HerbHall/hakagen/pkg/detection"
)

// DateLayout is the target date format of run parameters (DD,MM,YYYY).
const DateLayout = "02,01,2006"

// ClockTime is a wall-clock bound of the sampling window.
type ClockTime struct {
	Hour   int
	Minute int
	Second int
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour, c.Minute, c.Second)
}

// before reports whether (h, m) is strictly earlier than c, ignoring seconds.
func (c ClockTime) before(h, m int) bool {
	return c.Hour < h || (c.Hour == h && c.Minute < m)
}

// after reports whether (h, m) is strictly later than c, ignoring seconds.
func (c ClockTime) after(h, m int) bool {
	return c.Hour > h || (c.Hour == h && c.Minute > m)
}

// ParseClock parses "HH:MM:SS".
func ParseClock(field, s string) (ClockTime, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return ClockTime{}, detection.NewValidationError(field, fmt.Sprintf("want HH:MM:SS, got %q", s))
	}
	var v [3]int
	limits := [3]int{23, 59, 59}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return ClockTime{}, detection.NewValidationError(field, fmt.Sprintf("want HH:MM:SS, got %q", s))
		}
		v[i] = n
	}
	return ClockTime{Hour: v[0], Minute: v[1], Second: v[2]}, nil
}

// ParseDate parses a DD,MM,YYYY target date as midnight in loc.
func ParseDate(field, s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, detection.NewValidationError(field, fmt.Sprintf("want DD,MM,YYYY, got %q", s))
	}
	return t, nil
}
