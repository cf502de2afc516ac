package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/HerbHall/hakagen/pkg/detection"
)

// EventDateLayout formats eventDate cells.
const EventDateLayout = "2006-01-02 15:04:05"

// Header is the CSV column order.
var Header = []string{
	detection.FieldEventType,
	detection.FieldZone,
	detection.FieldCamera,
	detection.FieldObjectClass,
	detection.FieldEventDate,
	detection.FieldImpact,
}

// FileName returns the artifact name for a target date, e.g. output26-07-2024.csv.
func FileName(date time.Time) string {
	return "output" + date.Format("02-01-2006") + ".csv"
}

// EncodeCSV renders events sorted by eventDate. Events with the same
// timestamp keep their input order. The input slice is not modified.
func EncodeCSV(events []detection.SyntheticEvent) ([]byte, error) {
	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b detection.SyntheticEvent) int {
		return a.EventDate.Compare(b.EventDate)
	})

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, e := range sorted {
		rec := []string{e.EventType, e.Zone, e.Camera, e.ObjectClass, e.EventDate.Format(EventDateLayout), e.Impact}
		if err := w.Write(rec); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeCSV parses an artifact produced by EncodeCSV, reading eventDate in loc.
func DecodeCSV(data []byte, loc *time.Location) ([]detection.SyntheticEvent, error) {
	if loc == nil {
		loc = time.UTC
	}
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	if strings.Join(records[0], ",") != strings.Join(Header, ",") {
		return nil, detection.NewValidationError("header", fmt.Sprintf("unexpected csv header %v", records[0]))
	}
	out := make([]detection.SyntheticEvent, 0, len(records)-1)
	for i, rec := range records[1:] {
		ts, err := time.ParseInLocation(EventDateLayout, rec[4], loc)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, detection.NewValidationError(detection.FieldEventDate, err.Error()))
		}
		out = append(out, detection.SyntheticEvent{
			EventType:   rec[0],
			Zone:        rec[1],
			Camera:      rec[2],
			ObjectClass: rec[3],
			EventDate:   ts,
			Impact:      rec[5],
		})
	}
	return out, nil
}
