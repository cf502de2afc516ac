package notify

import "time"

// Notifier kinds accepted by notify.kind. Several may be combined with commas.
const (
	KindNone    = "none"
	KindWebhook = "webhook"
	KindMQTT    = "mqtt"
	KindAMQP    = "amqp"
	KindSMTP    = "smtp"
)

// Config holds completion notification settings.
type Config struct {
	Kind string `mapstructure:"kind"`
	// Target is the webhook URL, the e-mail recipient, the MQTT topic or the
	// AMQP routing key, depending on Kind.
	Target  string        `mapstructure:"target"`
	Timeout time.Duration `mapstructure:"timeout"`

	MQTT MQTTConfig `mapstructure:"mqtt"`
	AMQP AMQPConfig `mapstructure:"amqp"`
	SMTP SMTPConfig `mapstructure:"smtp"`
}

// MQTTConfig configures the MQTT publisher.
type MQTTConfig struct {
	BrokerURL string `mapstructure:"broker_url"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"` //nolint:gosec // G101: config field name, not a credential
	ClientID  string `mapstructure:"client_id"`
	QoS       byte   `mapstructure:"qos"`
	Retain    bool   `mapstructure:"retain"`
}

// AMQPConfig configures the AMQP publisher.
type AMQPConfig struct {
	URL          string `mapstructure:"url"`
	Exchange     string `mapstructure:"exchange"`
	ExchangeType string `mapstructure:"exchange_type"`
}

// SMTPConfig configures the e-mail sender.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"` //nolint:gosec // G101: config field name, not a credential
	From     string `mapstructure:"from"`
	Subject  string `mapstructure:"subject"`
	// AttachmentName is the file name the CSV carries in the message.
	AttachmentName string `mapstructure:"attachment_name"`
}

// DefaultConfig returns notification defaults. Nothing is sent by default.
func DefaultConfig() Config {
	return Config{
		Kind:    KindNone,
		Timeout: 10 * time.Second,
		MQTT: MQTTConfig{
			ClientID: "hakagen",
			QoS:      1,
		},
		AMQP: AMQPConfig{
			Exchange:     "hakagen",
			ExchangeType: "topic",
		},
		SMTP: SMTPConfig{
			Port:           587,
			Subject:        "Your generated CSV file",
			AttachmentName: "output.csv",
		},
	}
}
