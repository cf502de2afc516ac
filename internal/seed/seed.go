// Package seed fills a SQLite history table with a month of demo
// detections so the pipeline can run without a production database.
package seed

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/HerbHall/hakagen/internal/store"
	"github.com/HerbHall/hakagen/pkg/detection"
)

// Camera is one demo sensor. Every camera carries a single attribute
// combination so the generated history resolves cleanly.
type Camera struct {
	Camera      string
	Zone        string
	EventType   string
	ObjectClass string
	Impact      string
	// Rate is the mean detections per active minute slot.
	Rate float64
}

// DemoCameras are the sensors seeded by default.
var DemoCameras = []Camera{
	{Camera: "Mz40-Piso 30", Zone: "Coches 4to anillo hacia Roca y coronado", EventType: "crossing", ObjectClass: "car", Impact: "1", Rate: 1.6},
	{Camera: "Mz40-Piso 30", Zone: "Peatones esquina Beni", EventType: "crossing", ObjectClass: "person", Impact: "1", Rate: 0.9},
	{Camera: "Cristo-Redentor-02", Zone: "Rotonda norte", EventType: "loitering", ObjectClass: "motorbike", Impact: "2", Rate: 0.6},
	{Camera: "Equipetrol-07", Zone: "Carril bus", EventType: "wrong_way", ObjectClass: "bus", Impact: "3", Rate: 0.3},
}

// Options control the generated history.
type Options struct {
	Table   string
	Period  store.Period
	Cameras []Camera
	// SlotMinutes spaces the active minute slots from midnight.
	SlotMinutes int
	// ActiveHours is the number of hours after midnight that see traffic.
	ActiveHours int
	Seed        uint64
}

func (o *Options) defaults() {
	if o.Table == "" {
		o.Table = store.DefaultHistoryTable
	}
	if len(o.Cameras) == 0 {
		o.Cameras = DemoCameras
	}
	if o.SlotMinutes <= 0 {
		o.SlotMinutes = 5
	}
	if o.ActiveHours <= 0 || o.ActiveHours > 24 {
		o.ActiveHours = 8
	}
	if o.Seed == 0 {
		o.Seed = 2024
	}
}

// SeedDemoHistory creates the history table if needed and fills it for
// opts.Period. A table that already holds rows is left alone and 0 is
// returned, so re-running is safe.
func SeedDemoHistory(ctx context.Context, s *store.SQLiteStore, opts Options) (int, error) {
	opts.defaults()
	if !opts.Period.Start.Before(opts.Period.End) {
		return 0, detection.NewValidationError("source.month", "empty seed period")
	}

	if err := s.Migrate(ctx, opts.Table, store.HistoryMigrations(opts.Table)); err != nil {
		return 0, fmt.Errorf("migrate %s: %w", opts.Table, err)
	}

	var existing int
	if err := s.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM "+opts.Table).Scan(&existing); err != nil {
		return 0, fmt.Errorf("count %s: %w", opts.Table, err)
	}
	if existing > 0 {
		return 0, nil
	}

	events := Generate(opts)
	if err := s.InsertEvents(ctx, opts.Table, events); err != nil {
		return 0, fmt.Errorf("seed %s: %w", opts.Table, err)
	}
	return len(events), nil
}

// Generate draws the demo detections without touching a database. Counts
// per slot are Poisson distributed around the camera rate, busier in the
// small hours of weekends.
func Generate(opts Options) []detection.RawEvent {
	opts.defaults()
	src := rand.NewPCG(opts.Seed, opts.Seed>>1|1)
	rng := rand.New(src)
	loc := opts.Period.Start.Location()

	var out []detection.RawEvent
	for day := opts.Period.Start; day.Before(opts.Period.End); day = day.AddDate(0, 0, 1) {
		y, m, d := day.Date()
		weekend := day.Weekday() == time.Saturday || day.Weekday() == time.Sunday
		for _, cam := range opts.Cameras {
			rate := cam.Rate
			if weekend {
				rate *= 1.5
			}
			poisson := distuv.Poisson{Lambda: rate, Src: src}
			for minute := 0; minute < opts.ActiveHours*60; minute += opts.SlotMinutes {
				n := int(poisson.Rand())
				for range n {
					ts := time.Date(y, m, d, minute/60, minute%60, rng.IntN(60), 0, loc)
					out = append(out, detection.RawEvent{
						Timestamp:   ts,
						Camera:      cam.Camera,
						Zone:        cam.Zone,
						EventType:   cam.EventType,
						ObjectClass: cam.ObjectClass,
						Impact:      cam.Impact,
					})
				}
			}
		}
	}
	return out
}

// Describe summarizes the seeded cameras for log output.
func Describe(cameras []Camera) []string {
	out := make([]string, len(cameras))
	for i, c := range cameras {
		out[i] = c.Camera + "/" + c.Zone + " rate=" + strconv.FormatFloat(c.Rate, 'f', 1, 64)
	}
	return out
}
