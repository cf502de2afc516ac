package detection

import (
	"errors"
	"fmt"
	"time"
)

// Error kinds. Match with errors.Is; the typed errors below wrap one of these.
var (
	ErrValidation         = errors.New("validation failed")
	ErrStatisticsNotFound = errors.New("no statistics found")
	ErrMissingAttribute   = errors.New("no attribute record")
	ErrAmbiguousAttribute = errors.New("ambiguous attribute record")
)

// ValidationError reports a required field or column that is absent, or a
// run parameter that cannot be parsed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("validation failed: field %q", e.Field)
	}
	return fmt.Sprintf("validation failed: field %q: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// StatisticsNotFoundError is returned when the statistics table has no
// bucket for the target weekday.
type StatisticsNotFoundError struct {
	Day time.Weekday
}

func (e *StatisticsNotFoundError) Error() string {
	return fmt.Sprintf("no statistics found for day: %s", e.Day)
}

func (e *StatisticsNotFoundError) Unwrap() error { return ErrStatisticsNotFound }

// AttributeMatchError is returned when a (zone, camera) pair does not map
// to exactly one attribute record.
type AttributeMatchError struct {
	Zone    string
	Camera  string
	Matches int
}

func (e *AttributeMatchError) Error() string {
	return fmt.Sprintf("expected one attribute record for zone %q camera %q, found %d",
		e.Zone, e.Camera, e.Matches)
}

func (e *AttributeMatchError) Unwrap() error {
	if e.Matches == 0 {
		return ErrMissingAttribute
	}
	return ErrAmbiguousAttribute
}

// IsDataIntegrity reports whether err signals inconsistent historical data
// rather than bad input or parameters.
func IsDataIntegrity(err error) bool {
	return errors.Is(err, ErrMissingAttribute) || errors.Is(err, ErrAmbiguousAttribute)
}
