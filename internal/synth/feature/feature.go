// Package feature derives calendar features from raw detection timestamps.
package feature

import (
	"fmt"
	"time"

	"github.com/HerbHall/hakagen/pkg/detection"
)

// DefaultZone is the zone the historical detections are read in when none
// is configured.
const DefaultZone = "America/La_Paz"

// Annotate converts each timestamp to loc and reads ISO week, weekday,
// hour, minute and second from the local wall clock.
// A nil loc keeps each timestamp's own location.
func Annotate(events []detection.RawEvent, loc *time.Location) ([]detection.AnnotatedEvent, error) {
	out := make([]detection.AnnotatedEvent, 0, len(events))
	for i := range events {
		a, err := AnnotateOne(events[i], loc)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		out = append(out, a)
	}
	return out, nil
}

// AnnotateOne annotates a single event.
func AnnotateOne(e detection.RawEvent, loc *time.Location) (detection.AnnotatedEvent, error) {
	if field := e.Validate(); field != "" {
		return detection.AnnotatedEvent{}, detection.NewValidationError(field, "required field is empty")
	}
	ts := e.Timestamp
	if loc != nil {
		ts = ts.In(loc)
	}
	_, week := ts.ISOWeek()
	e.Timestamp = ts
	return detection.AnnotatedEvent{
		RawEvent:  e,
		ISOWeek:   week,
		DayOfWeek: ts.Weekday(),
		Hour:      ts.Hour(),
		Minute:    ts.Minute(),
		Second:    ts.Second(),
	}, nil
}
