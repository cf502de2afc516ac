// Package synth runs the synthesis pipeline: it loads the detection
// history, builds per-bucket statistics, samples a synthetic day window,
// stores the CSV artifact and announces completion.
package synth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/HerbHall/hakagen/internal/notify"
	"github.com/HerbHall/hakagen/internal/output"
	"github.com/HerbHall/hakagen/internal/synth/aggregate"
	"github.com/HerbHall/hakagen/internal/synth/attribute"
	"github.com/HerbHall/hakagen/internal/synth/feature"
	"github.com/HerbHall/hakagen/internal/synth/sampler"
	"github.com/HerbHall/hakagen/pkg/detection"
)

// Source yields historical detections with timestamps in [from, to).
type Source interface {
	Events(ctx context.Context, from, to time.Time) ([]detection.RawEvent, error)
}

// ArtifactWriter persists the synthesized events.
type ArtifactWriter interface {
	Write(ctx context.Context, date time.Time, events []detection.SyntheticEvent) (output.Artifact, error)
}

// Params are the inputs of one run.
type Params struct {
	From          time.Time // history period start, inclusive
	To            time.Time // history period end, exclusive
	Date          time.Time // target day, midnight in the pipeline zone
	Start         sampler.ClockTime
	End           sampler.ClockTime
	AnomalousWeek int
	// Seed fixes the random draws. Zero picks a fresh seed, reported in Result.
	Seed    uint64
	Workers int
}

// Window renders the sampling window as "HH:MM:SS-HH:MM:SS".
func (p Params) Window() string {
	return p.Start.String() + "-" + p.End.String()
}

// Model is the fitted statistics of a history period.
type Model struct {
	Stats      []detection.StatsRow
	Attributes []detection.AttributeRecord
	Events     int // history rows the model was built from
}

// Result summarizes a successful run.
type Result struct {
	RunID    string                     `json:"run_id"`
	Seed     uint64                     `json:"seed"`
	Buckets  int                        `json:"buckets"`
	History  int                        `json:"history_events"`
	Events   []detection.SyntheticEvent `json:"-"`
	Artifact output.Artifact            `json:"artifact"`
	Duration time.Duration              `json:"duration"`
}

// Pipeline wires the source, engines, writer and notifier for runs.
type Pipeline struct {
	source   Source
	writer   ArtifactWriter
	notifier notify.Notifier
	loc      *time.Location
	logger   *zap.Logger
	newSeed  func() uint64
}

// New creates a Pipeline. A nil notifier sends nothing; a nil loc means UTC.
func New(source Source, writer ArtifactWriter, notifier notify.Notifier, loc *time.Location, logger *zap.Logger) *Pipeline {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		source:   source,
		writer:   writer,
		notifier: notifier,
		loc:      loc,
		logger:   logger,
		newSeed:  randomSeed,
	}
}

// Location returns the time zone features and timestamps are read in.
func (p *Pipeline) Location() *time.Location {
	return p.loc
}

// Fit loads the history for [from, to) and builds the statistics table and
// attribute records.
func (p *Pipeline) Fit(ctx context.Context, from, to time.Time, anomalousWeek int) (*Model, error) {
	raw, err := p.source.Events(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	annotated, err := feature.Annotate(raw, p.loc)
	if err != nil {
		return nil, err
	}
	attrs, err := attribute.ResolveAnnotated(annotated, detection.AttributeFields)
	if err != nil {
		return nil, err
	}
	stats := aggregate.BuildIndex(annotated, anomalousWeek)

	p.logger.Info("statistics built",
		zap.Int("history_events", len(raw)),
		zap.Int("buckets", len(stats)),
		zap.Int("attribute_records", len(attrs)),
		zap.Int("anomalous_week", anomalousWeek),
	)
	return &Model{Stats: stats, Attributes: attrs, Events: len(raw)}, nil
}

// Run executes one full synthesis run. Nothing is stored or announced
// unless statistics and sampling succeed.
func (p *Pipeline) Run(ctx context.Context, params Params) (res *Result, err error) {
	start := time.Now()
	runID := uuid.New().String()
	logger := p.logger.With(zap.String("run_id", runID))

	defer func() {
		runsTotal.WithLabelValues(outcome(err)).Inc()
		runDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			logger.Error("run failed", zap.Error(err), zap.Duration("took", time.Since(start)))
		}
	}()

	seed := params.Seed
	if seed == 0 {
		seed = p.newSeed()
	}
	logger.Info("run started",
		zap.Time("date", params.Date),
		zap.String("window", params.Window()),
		zap.Time("history_from", params.From),
		zap.Time("history_to", params.To),
		zap.Uint64("seed", seed),
	)

	model, err := p.Fit(ctx, params.From, params.To, params.AnomalousWeek)
	if err != nil {
		return nil, err
	}
	statsBuckets.Set(float64(len(model.Stats)))

	s := sampler.NewSeeded(seed,
		sampler.WithWorkers(params.Workers),
		sampler.WithLogger(logger.Named("sampler")),
	)
	events, err := s.Sample(ctx, sampler.Request{
		Stats:      model.Stats,
		Date:       params.Date,
		Start:      params.Start,
		End:        params.End,
		Attributes: model.Attributes,
	})
	if err != nil {
		return nil, err
	}

	artifact, err := p.writer.Write(ctx, params.Date, events)
	if err != nil {
		return nil, fmt.Errorf("write artifact: %w", err)
	}

	err = p.notifier.Notify(ctx, notify.Completion{
		RunID:      runID,
		TargetDate: params.Date,
		Window:     params.Window(),
		Events:     len(events),
		Artifact:   artifact,
		FinishedAt: time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("notify completion: %w", err)
	}

	lastRunEvents.Set(float64(len(events)))
	res = &Result{
		RunID:    runID,
		Seed:     seed,
		Buckets:  len(model.Stats),
		History:  model.Events,
		Events:   events,
		Artifact: artifact,
		Duration: time.Since(start),
	}
	logger.Info("run completed",
		zap.Int("events", len(events)),
		zap.String("artifact", artifact.Location),
		zap.Duration("took", res.Duration),
	)
	return res, nil
}

func isValidation(err error) bool {
	return errors.Is(err, detection.ErrValidation) || errors.Is(err, detection.ErrStatisticsNotFound)
}

func isIntegrity(err error) bool {
	return detection.IsDataIntegrity(err)
}
