// Package detection provides the public types shared by the hakagen
// aggregation and sampling engines.
package detection

import (
	"fmt"
	"time"
)

// Field names of the detection table. They double as the vocabulary for
// uniqueness field lists and CSV headers.
const (
	FieldEventDate   = "eventDate"
	FieldCamera      = "camera"
	FieldZone        = "zone"
	FieldEventType   = "eventType"
	FieldObjectClass = "objectClass"
	FieldImpact      = "impact"
)

// AttributeFields is the ordered field set that identifies a distinct
// attribute record.
var AttributeFields = []string{
	FieldEventType, FieldZone, FieldCamera, FieldObjectClass, FieldImpact,
}

// RawEvent is one historical detection as read from the source table.
type RawEvent struct {
	Timestamp   time.Time `json:"event_date"`
	Camera      string    `json:"camera"`
	Zone        string    `json:"zone"`
	EventType   string    `json:"event_type"`
	ObjectClass string    `json:"object_class"`
	Impact      string    `json:"impact"` // text or numeric in the source, kept verbatim
}

// Validate reports the first missing required field, or "" if the event is usable.
func (e RawEvent) Validate() string {
	switch {
	case e.Timestamp.IsZero():
		return FieldEventDate
	case e.Camera == "":
		return FieldCamera
	case e.Zone == "":
		return FieldZone
	}
	return ""
}

// AnnotatedEvent is a RawEvent with calendar features read in the
// configured time zone.
type AnnotatedEvent struct {
	RawEvent
	ISOWeek   int
	DayOfWeek time.Weekday
	Hour      int
	Minute    int
	Second    int
}

// Key returns the bucket the event falls into.
func (e AnnotatedEvent) Key() BucketKey {
	return BucketKey{
		DayOfWeek: e.DayOfWeek,
		Hour:      e.Hour,
		Minute:    e.Minute,
		Zone:      e.Zone,
		Camera:    e.Camera,
	}
}

// BucketKey is the grouping granularity for all statistics.
type BucketKey struct {
	DayOfWeek time.Weekday
	Hour      int
	Minute    int
	Zone      string
	Camera    string
}

func (k BucketKey) String() string {
	return fmt.Sprintf("%s %02d:%02d %s/%s", k.DayOfWeek, k.Hour, k.Minute, k.Zone, k.Camera)
}

// isoDay maps Sunday to 7 so that weeks order Monday..Sunday.
func isoDay(d time.Weekday) int {
	if d == time.Sunday {
		return 7
	}
	return int(d)
}

// Less orders keys by weekday (Monday first), hour, minute, zone, camera.
func (k BucketKey) Less(o BucketKey) bool {
	if a, b := isoDay(k.DayOfWeek), isoDay(o.DayOfWeek); a != b {
		return a < b
	}
	if k.Hour != o.Hour {
		return k.Hour < o.Hour
	}
	if k.Minute != o.Minute {
		return k.Minute < o.Minute
	}
	if k.Zone != o.Zone {
		return k.Zone < o.Zone
	}
	return k.Camera < o.Camera
}

// Compare is Less expressed as a three-way comparison for slices.SortFunc.
func (k BucketKey) Compare(o BucketKey) int {
	switch {
	case k.Less(o):
		return -1
	case o.Less(k):
		return 1
	}
	return 0
}

// WeekBucket keys a WeeklyCount entry.
type WeekBucket struct {
	ISOWeek int
	Bucket  BucketKey
}

// StdDev is an optional sample standard deviation. It is undefined when
// fewer than two weeks contributed to the bucket.
type StdDev struct {
	Value float64
	Valid bool
}

// DefinedStdDev wraps a computed standard deviation.
func DefinedStdDev(v float64) StdDev {
	return StdDev{Value: v, Valid: true}
}

// OrZero returns the value, or 0 when undefined.
func (s StdDev) OrZero() float64 {
	if !s.Valid {
		return 0
	}
	return s.Value
}

func (s StdDev) String() string {
	if !s.Valid {
		return "NaN"
	}
	return fmt.Sprintf("%.3f", s.Value)
}

// BucketMoments is the per-bucket reduction of weekly counts.
type BucketMoments struct {
	Mean  float64
	Std   StdDev
	Weeks int // number of weeks that contributed a count
}

// StatsRow is the final per-bucket statistics entry used by the sampler.
type StatsRow struct {
	Key          BucketKey
	Mean         float64
	Std          StdDev
	MonthlyCount int
}

// AttributeRecord is a representative categorical combination seen in the
// history. Several records may share a (Zone, Camera) pair.
type AttributeRecord struct {
	EventType   string `json:"event_type"`
	Zone        string `json:"zone"`
	Camera      string `json:"camera"`
	ObjectClass string `json:"object_class"`
	Impact      string `json:"impact"`
}

// SyntheticEvent is a generated detection with second granularity.
type SyntheticEvent struct {
	EventType   string    `json:"event_type"`
	Zone        string    `json:"zone"`
	Camera      string    `json:"camera"`
	ObjectClass string    `json:"object_class"`
	EventDate   time.Time `json:"event_date"`
	Impact      string    `json:"impact"`
}
