package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/HerbHall/hakagen/pkg/detection"
)

// DefaultMQTTTopic is used when notify.target is empty.
const DefaultMQTTTopic = "hakagen/runs/completed"

// MQTT publishes the JSON payload to a broker topic.
type MQTT struct {
	cfg       MQTTConfig
	topic     string
	timeout   time.Duration
	logger    *zap.Logger
	newClient func(*pahomqtt.ClientOptions) pahomqtt.Client
	client    pahomqtt.Client
}

// NewMQTT returns an MQTT notifier. The connection is made on first use.
func NewMQTT(cfg MQTTConfig, topic string, timeout time.Duration, logger *zap.Logger) (*MQTT, error) {
	if cfg.BrokerURL == "" {
		return nil, detection.NewValidationError("notify.mqtt.broker_url", "required for mqtt notifier")
	}
	if topic == "" {
		topic = DefaultMQTTTopic
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &MQTT{
		cfg:       cfg,
		topic:     topic,
		timeout:   timeout,
		logger:    logger,
		newClient: pahomqtt.NewClient,
	}, nil
}

func (m *MQTT) connect() error {
	if m.client != nil && m.client.IsConnected() {
		return nil
	}
	opts := pahomqtt.NewClientOptions().
		AddBroker(m.cfg.BrokerURL).
		SetClientID(m.cfg.ClientID).
		SetConnectTimeout(m.timeout)
	if m.cfg.Username != "" {
		opts.SetUsername(m.cfg.Username)
		opts.SetPassword(m.cfg.Password) //nolint:gosec // G101: config field
	}

	client := m.newClient(opts)
	token := client.Connect()
	switch {
	case !token.WaitTimeout(m.timeout):
		return errors.New("mqtt connection timed out")
	case token.Error() != nil:
		return fmt.Errorf("mqtt connect: %w", token.Error())
	}
	m.client = client
	m.logger.Info("mqtt connected to broker", zap.String("broker_url", m.cfg.BrokerURL))
	return nil
}

func (m *MQTT) Notify(_ context.Context, c Completion) error {
	payload, err := marshalPayload(c)
	if err != nil {
		return err
	}
	if err := m.connect(); err != nil {
		return err
	}

	token := m.client.Publish(m.topic, m.cfg.QoS, m.cfg.Retain, payload)
	if !token.WaitTimeout(m.timeout) {
		return fmt.Errorf("mqtt publish to %s timed out", m.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish to %s: %w", m.topic, err)
	}

	m.logger.Debug("mqtt notification published",
		zap.String("mqtt_topic", m.topic),
		zap.String("run_id", c.RunID),
	)
	return nil
}

func (m *MQTT) Close() error {
	if m.client != nil && m.client.IsConnected() {
		m.client.Disconnect(250)
		m.logger.Info("mqtt disconnected")
	}
	return nil
}
