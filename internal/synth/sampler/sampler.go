// Package sampler materializes synthetic detections for a target date and
// time window from a bucket statistics table.
package sampler

import (
	"context"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/HerbHall/hakagen/internal/synth/attribute"
	"github.com/HerbHall/hakagen/pkg/detection"
)

// Request describes one sampling run.
type Request struct {
	Stats      []detection.StatsRow
	Date       time.Time // target day; its location is used for timestamps
	Start      ClockTime
	End        ClockTime
	Attributes []detection.AttributeRecord
}

// Sampler draws synthetic events from bucket statistics. It is not safe
// for concurrent use since it advances its master generator.
type Sampler struct {
	master  *rand.Rand
	drawers DrawerFactory
	workers int
	logger  *zap.Logger
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithWorkers sets how many buckets are drawn in parallel. Values below 2
// draw serially.
func WithWorkers(n int) Option {
	return func(s *Sampler) { s.workers = n }
}

// WithDrawers replaces the per-bucket Drawer constructor.
func WithDrawers(f DrawerFactory) Option {
	return func(s *Sampler) { s.drawers = f }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Sampler) { s.logger = l }
}

// New creates a Sampler whose bucket seeds are drawn from src.
func New(src rand.Source, opts ...Option) *Sampler {
	s := &Sampler{
		master:  rand.New(src),
		drawers: NewNormalDrawer,
		workers: 1,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewSeeded creates a Sampler from a single seed.
func NewSeeded(seed uint64, opts ...Option) *Sampler {
	return New(rand.NewPCG(seed, seed^pcgStream), opts...)
}

type plan struct {
	row    detection.StatsRow
	attrs  detection.AttributeRecord
	drawer Drawer
}

// Select returns the rows for the target weekday strictly inside the
// (start, end) window, in canonical bucket order. A weekday with no rows at
// all is a *detection.StatisticsNotFoundError; an empty window is not.
func Select(stats []detection.StatsRow, day time.Weekday, start, end ClockTime) ([]detection.StatsRow, error) {
	var dayRows []detection.StatsRow
	for _, r := range stats {
		if r.Key.DayOfWeek == day {
			dayRows = append(dayRows, r)
		}
	}
	if len(dayRows) == 0 {
		return nil, &detection.StatisticsNotFoundError{Day: day}
	}

	out := dayRows[:0]
	for _, r := range dayRows {
		if start.before(r.Key.Hour, r.Key.Minute) && end.after(r.Key.Hour, r.Key.Minute) {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b detection.StatsRow) int { return a.Key.Compare(b.Key) })
	return out, nil
}

// RoundCount turns a raw draw into a number of events: half to even, with
// negative results clamped to zero.
func RoundCount(v float64) int {
	n := math.RoundToEven(v)
	if n <= 0 || math.IsNaN(n) {
		return 0
	}
	return int(n)
}

// Sample runs the selection, attribute resolution and draws for req. Any
// failure aborts the whole run with no partial output.
func (s *Sampler) Sample(ctx context.Context, req Request) ([]detection.SyntheticEvent, error) {
	rows, err := Select(req.Stats, req.Date.Weekday(), req.Start, req.End)
	if err != nil {
		return nil, err
	}

	idx := attribute.NewIndex(req.Attributes)
	plans := make([]plan, len(rows))
	for i, r := range rows {
		rec, err := idx.Lookup(r.Key.Zone, r.Key.Camera)
		if err != nil {
			return nil, err
		}
		plans[i] = plan{row: r, attrs: rec}
	}
	// Seeds are taken serially so parallel draws match the serial run.
	for i := range plans {
		plans[i].drawer = s.drawers(s.master.Uint64())
	}

	results := make([][]detection.SyntheticEvent, len(plans))
	if s.workers < 2 {
		for i := range plans {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			results[i] = draw(plans[i], req.Date)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.workers)
		for i := range plans {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[i] = draw(plans[i], req.Date)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	total := 0
	for _, r := range results {
		total += len(r)
	}
	out := make([]detection.SyntheticEvent, 0, total)
	for _, r := range results {
		out = append(out, r...)
	}

	s.logger.Debug("sampled window",
		zap.String("day", req.Date.Weekday().String()),
		zap.Stringer("start", req.Start),
		zap.Stringer("end", req.End),
		zap.Int("buckets", len(plans)),
		zap.Int("events", len(out)),
	)
	return out, nil
}

func draw(p plan, date time.Time) []detection.SyntheticEvent {
	n := RoundCount(p.drawer.Count(p.row.Mean, p.row.Std.OrZero()))
	if n == 0 {
		return nil
	}
	y, m, d := date.Date()
	out := make([]detection.SyntheticEvent, n)
	for i := range out {
		out[i] = detection.SyntheticEvent{
			EventType:   p.attrs.EventType,
			Zone:        p.row.Key.Zone,
			Camera:      p.row.Key.Camera,
			ObjectClass: p.attrs.ObjectClass,
			EventDate:   time.Date(y, m, d, p.row.Key.Hour, p.row.Key.Minute, p.drawer.Second(), 0, date.Location()),
			Impact:      p.attrs.Impact,
		}
	}
	return out
}
