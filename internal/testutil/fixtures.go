// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"time"

	"github.com/HerbHall/hakagen/pkg/detection"
)

// Monday of ISO week 20 of 2024, UTC. Week n starts at MondayOfWeek(n).
var week20 = time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC)

// MondayOfWeek returns midnight UTC of the Monday starting ISO week n of 2024.
func MondayOfWeek(n int) time.Time {
	return week20.AddDate(0, 0, 7*(n-20))
}

// At returns the UTC instant on the given weekday of ISO week n of 2024.
func At(week int, day time.Weekday, hour, minute, second int) time.Time {
	offset := int(day) - 1
	if day == time.Sunday {
		offset = 6
	}
	d := MondayOfWeek(week).AddDate(0, 0, offset)
	return d.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute + time.Duration(second)*time.Second)
}

// NewEvent returns a RawEvent with sensible defaults, suitable for test fixtures.
// Override individual fields with options.
func NewEvent(opts ...func(*detection.RawEvent)) detection.RawEvent {
	e := detection.RawEvent{
		Timestamp:   At(20, time.Monday, 10, 15, 0),
		Camera:      "cam1",
		Zone:        "zoneA",
		EventType:   "crossing",
		ObjectClass: "car",
		Impact:      "low",
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// WithTime sets the event timestamp.
func WithTime(ts time.Time) func(*detection.RawEvent) {
	return func(e *detection.RawEvent) { e.Timestamp = ts }
}

// WithPlace sets the zone and camera.
func WithPlace(zone, camera string) func(*detection.RawEvent) {
	return func(e *detection.RawEvent) {
		e.Zone = zone
		e.Camera = camera
	}
}

// WithObjectClass sets the object class.
func WithObjectClass(class string) func(*detection.RawEvent) {
	return func(e *detection.RawEvent) { e.ObjectClass = class }
}

// WithEventType sets the event type.
func WithEventType(typ string) func(*detection.RawEvent) {
	return func(e *detection.RawEvent) { e.EventType = typ }
}

// Repeat returns n copies of NewEvent(opts...), one second apart.
func Repeat(n int, opts ...func(*detection.RawEvent)) []detection.RawEvent {
	out := make([]detection.RawEvent, 0, n)
	for i := 0; i < n; i++ {
		e := NewEvent(opts...)
		e.Timestamp = e.Timestamp.Add(time.Duration(i) * time.Second)
		out = append(out, e)
	}
	return out
}

// Annotate is a fixture shortcut that reads calendar features in UTC
// without validation.
func Annotate(events []detection.RawEvent) []detection.AnnotatedEvent {
	out := make([]detection.AnnotatedEvent, len(events))
	for i, e := range events {
		ts := e.Timestamp.UTC()
		_, week := ts.ISOWeek()
		out[i] = detection.AnnotatedEvent{
			RawEvent:  e,
			ISOWeek:   week,
			DayOfWeek: ts.Weekday(),
			Hour:      ts.Hour(),
			Minute:    ts.Minute(),
			Second:    ts.Second(),
		}
	}
	return out
}
