// Package notify announces completed synthesis runs over a webhook, MQTT,
// AMQP or e-mail.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/hakagen/internal/output"
	"github.com/HerbHall/hakagen/pkg/detection"
)

// EventRunCompleted is the event name carried by JSON notifications.
const EventRunCompleted = "run.completed"

// Completion describes a finished run.
type Completion struct {
	RunID      string
	TargetDate time.Time
	Window     string
	Events     int
	Artifact   output.Artifact
	FinishedAt time.Time
}

// Notifier delivers completion notices.
type Notifier interface {
	Notify(ctx context.Context, c Completion) error
	Close() error
}

// Payload is the JSON body sent over webhook, MQTT and AMQP.
type Payload struct {
	Event     string     `json:"event"`
	Source    string     `json:"source"`
	Timestamp string     `json:"timestamp"`
	Data      RunSummary `json:"data"`
}

// RunSummary is the data section of a Payload.
type RunSummary struct {
	RunID      string `json:"run_id"`
	TargetDate string `json:"target_date"`
	Window     string `json:"window"`
	Events     int    `json:"events"`
	Artifact   string `json:"artifact"`
	Location   string `json:"location"`
}

// NewPayload builds the JSON payload for c.
func NewPayload(c Completion) Payload {
	return Payload{
		Event:     EventRunCompleted,
		Source:    "hakagen",
		Timestamp: c.FinishedAt.UTC().Format(time.RFC3339),
		Data: RunSummary{
			RunID:      c.RunID,
			TargetDate: c.TargetDate.Format("2006-01-02"),
			Window:     c.Window,
			Events:     c.Events,
			Artifact:   c.Artifact.Name,
			Location:   c.Artifact.Location,
		},
	}
}

func marshalPayload(c Completion) ([]byte, error) {
	body, err := json.Marshal(NewPayload(c))
	if err != nil {
		return nil, fmt.Errorf("marshal notification: %w", err)
	}
	return body, nil
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Notify(context.Context, Completion) error { return nil }
func (Nop) Close() error                             { return nil }

// Multi fans a notification out to several notifiers. A failing notifier
// does not stop delivery to the rest; all errors are returned joined.
type Multi struct {
	notifiers []Notifier
}

// NewMulti wraps notifiers.
func NewMulti(notifiers ...Notifier) *Multi {
	return &Multi{notifiers: notifiers}
}

func (m *Multi) Notify(ctx context.Context, c Completion) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) Close() error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// New builds the notifier(s) named by cfg.Kind.
func New(cfg Config, logger *zap.Logger) (Notifier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var out []Notifier
	for _, kind := range strings.Split(cfg.Kind, ",") {
		kind = strings.TrimSpace(strings.ToLower(kind))
		var (
			n   Notifier
			err error
		)
		switch kind {
		case "", KindNone:
			continue
		case KindWebhook:
			n, err = NewWebhook(cfg.Target, cfg.Timeout, logger.Named("webhook"))
		case KindMQTT:
			n, err = NewMQTT(cfg.MQTT, cfg.Target, cfg.Timeout, logger.Named("mqtt"))
		case KindAMQP:
			n, err = NewAMQP(cfg.AMQP, cfg.Target, logger.Named("amqp"))
		case KindSMTP:
			n, err = NewSMTP(cfg.SMTP, cfg.Target, cfg.Timeout, logger.Named("smtp"))
		default:
			err = detection.NewValidationError("notify.kind", fmt.Sprintf("unknown notifier %q", kind))
		}
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	switch len(out) {
	case 0:
		return Nop{}, nil
	case 1:
		return out[0], nil
	}
	return NewMulti(out...), nil
}
