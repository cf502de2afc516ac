// Package attribute extracts representative attribute records from the
// detection history.
package attribute

import (
	"strings"

	"github.com/HerbHall/hakagen/pkg/detection"
)

// Resolve returns one AttributeRecord per distinct combination of the named
// fields, in first-seen order. The record is taken from the first event
// carrying the combination. An unknown field name is a ValidationError.
func Resolve(events []detection.RawEvent, fields []string) ([]detection.AttributeRecord, error) {
	getters := make([]func(*detection.RawEvent) string, 0, len(fields))
	for _, f := range fields {
		g, ok := fieldGetters[f]
		if !ok {
			return nil, detection.NewValidationError(f, "unknown attribute field")
		}
		getters = append(getters, g)
	}

	seen := make(map[string]struct{})
	var out []detection.AttributeRecord
	var b strings.Builder
	for i := range events {
		b.Reset()
		for _, g := range getters {
			b.WriteString(g(&events[i]))
			b.WriteByte(0)
		}
		key := b.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, recordOf(&events[i]))
	}
	return out, nil
}

// ResolveAnnotated is Resolve over annotated events.
func ResolveAnnotated(events []detection.AnnotatedEvent, fields []string) ([]detection.AttributeRecord, error) {
	raw := make([]detection.RawEvent, len(events))
	for i := range events {
		raw[i] = events[i].RawEvent
	}
	return Resolve(raw, fields)
}

var fieldGetters = map[string]func(*detection.RawEvent) string{
	detection.FieldEventDate:   func(e *detection.RawEvent) string { return e.Timestamp.UTC().Format("2006-01-02T15:04:05.999999999") },
	detection.FieldCamera:      func(e *detection.RawEvent) string { return e.Camera },
	detection.FieldZone:        func(e *detection.RawEvent) string { return e.Zone },
	detection.FieldEventType:   func(e *detection.RawEvent) string { return e.EventType },
	detection.FieldObjectClass: func(e *detection.RawEvent) string { return e.ObjectClass },
	detection.FieldImpact:      func(e *detection.RawEvent) string { return e.Impact },
}

func recordOf(e *detection.RawEvent) detection.AttributeRecord {
	return detection.AttributeRecord{
		EventType:   e.EventType,
		Zone:        e.Zone,
		Camera:      e.Camera,
		ObjectClass: e.ObjectClass,
		Impact:      e.Impact,
	}
}

// Index maps a (zone, camera) pair to the attribute records that carry it.
type Index map[Place][]detection.AttributeRecord

// Place is a zone/camera pair.
type Place struct {
	Zone   string
	Camera string
}

// NewIndex groups records by place, keeping their order.
func NewIndex(records []detection.AttributeRecord) Index {
	idx := make(Index)
	for _, r := range records {
		p := Place{Zone: r.Zone, Camera: r.Camera}
		idx[p] = append(idx[p], r)
	}
	return idx
}

// Lookup returns the single record for (zone, camera). Zero or several
// matches yield an *detection.AttributeMatchError.
func (idx Index) Lookup(zone, camera string) (detection.AttributeRecord, error) {
	matches := idx[Place{Zone: zone, Camera: camera}]
	if len(matches) != 1 {
		return detection.AttributeRecord{}, &detection.AttributeMatchError{
			Zone: zone, Camera: camera, Matches: len(matches),
		}
	}
	return matches[0], nil
}
