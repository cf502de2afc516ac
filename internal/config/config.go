// Package config loads hakagen settings from a YAML file, a .env file and
// the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // zone data for hosts without a zoneinfo database

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/HerbHall/hakagen/internal/notify"
	"github.com/HerbHall/hakagen/internal/output"
	"github.com/HerbHall/hakagen/internal/store"
	"github.com/HerbHall/hakagen/internal/synth"
	"github.com/HerbHall/hakagen/internal/synth/feature"
	"github.com/HerbHall/hakagen/internal/synth/sampler"
	"github.com/HerbHall/hakagen/pkg/detection"
)

// EnvPrefix prefixes environment overrides: HAKA_RUN_DATE=26,07,2024.
const EnvPrefix = "HAKA"

// legacyEnv maps config keys to the environment names the legacy batch
// job read. They are consulted after the HAKA_ names.
var legacyEnv = map[string]string{
	"run.date":             "FECHA",
	"run.start":            "HORA_INICIO",
	"run.end":              "HORA_FIN",
	"notify.target":        "TO_EMAIL",
	"database.user":        "DB_USER",
	"database.password":    "DB_PASSWORD",
	"database.host":        "DB_HOST",
	"database.port":        "DB_PORT",
	"database.name":        "DB_NAME",
	"notify.smtp.host":     "SMTP_SERVER",
	"notify.smtp.port":     "SMTP_PORT",
	"notify.smtp.username": "SMTP_USER",
	"notify.smtp.password": "SMTP_PASSWORD",
}

// Config is the decoded configuration tree.
type Config struct {
	Timezone string         `mapstructure:"timezone"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Source   SourceConfig   `mapstructure:"source"`
	Run      RunConfig      `mapstructure:"run"`
	Output   output.Config  `mapstructure:"output"`
	Notify   notify.Config  `mapstructure:"notify"`
	Server   ServerConfig   `mapstructure:"server"`
}

// LoggingConfig selects the zap logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig locates the detection history.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"` //nolint:gosec // G101: config field name, not a credential
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// SourceConfig bounds the history period. Start and End (RFC 3339)
// override Month when both are set.
type SourceConfig struct {
	Month string `mapstructure:"month"`
	Start string `mapstructure:"start"`
	End   string `mapstructure:"end"`
}

// RunConfig holds the sampling parameters.
type RunConfig struct {
	Date          string        `mapstructure:"date"`
	Start         string        `mapstructure:"start"`
	End           string        `mapstructure:"end"`
	AnomalousWeek int           `mapstructure:"anomalous_week"`
	Seed          uint64        `mapstructure:"seed"`
	Workers       int           `mapstructure:"workers"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// ServerConfig configures the HTTP trigger.
type ServerConfig struct {
	Host      string  `mapstructure:"host"`
	Port      int     `mapstructure:"port"`
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
}

// Addr returns the listen address as host:port.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("timezone", feature.DefaultZone)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("database.driver", "")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.table", store.DefaultHistoryTable)
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "")
	v.SetDefault("database.sslmode", "")

	v.SetDefault("source.month", "2024-06")
	v.SetDefault("source.start", "")
	v.SetDefault("source.end", "")

	v.SetDefault("run.date", "26,07,2024")
	v.SetDefault("run.start", "00:00:00")
	v.SetDefault("run.end", "06:52:00")
	v.SetDefault("run.anomalous_week", 22)
	v.SetDefault("run.seed", 0)
	v.SetDefault("run.workers", 1)
	v.SetDefault("run.timeout", "5m")

	out := output.DefaultConfig()
	v.SetDefault("output.backend", out.Backend)
	v.SetDefault("output.dir", out.Dir)
	v.SetDefault("output.bucket", "")
	v.SetDefault("output.prefix", "")
	v.SetDefault("output.region", out.Region)
	v.SetDefault("output.endpoint", "")
	v.SetDefault("output.access_key", "")
	v.SetDefault("output.secret_key", "")
	v.SetDefault("output.use_ssl", out.UseSSL)

	n := notify.DefaultConfig()
	v.SetDefault("notify.kind", n.Kind)
	v.SetDefault("notify.target", "")
	v.SetDefault("notify.timeout", n.Timeout.String())
	v.SetDefault("notify.mqtt.broker_url", "")
	v.SetDefault("notify.mqtt.username", "")
	v.SetDefault("notify.mqtt.password", "")
	v.SetDefault("notify.mqtt.client_id", n.MQTT.ClientID)
	v.SetDefault("notify.mqtt.qos", n.MQTT.QoS)
	v.SetDefault("notify.mqtt.retain", n.MQTT.Retain)
	v.SetDefault("notify.amqp.url", "")
	v.SetDefault("notify.amqp.exchange", n.AMQP.Exchange)
	v.SetDefault("notify.amqp.exchange_type", n.AMQP.ExchangeType)
	v.SetDefault("notify.smtp.host", "")
	v.SetDefault("notify.smtp.port", n.SMTP.Port)
	v.SetDefault("notify.smtp.username", "")
	v.SetDefault("notify.smtp.password", "")
	v.SetDefault("notify.smtp.from", "")
	v.SetDefault("notify.smtp.subject", n.SMTP.Subject)
	v.SetDefault("notify.smtp.attachment_name", n.SMTP.AttachmentName)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit", 1.0)
	v.SetDefault("server.rate_burst", 5)
}

// Load reads configuration from .env, an optional YAML file and the
// environment. With an empty configPath, hakagen.yaml is looked up in ".",
// "./configs" and "/etc/hakagen"; a missing file is not an error.
func Load(configPath string) (*viper.Viper, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("hakagen")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/hakagen")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		if err := v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), legacy); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", legacy, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// The legacy job mailed its result whenever an SMTP server was set.
	if v.GetString("notify.kind") == notify.KindNone && os.Getenv("SMTP_SERVER") != "" {
		v.Set("notify.kind", notify.KindSMTP)
	}

	return v, nil
}

// Decode unmarshals and validates v.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that every run parameter parses.
func (c *Config) Validate() error {
	loc, err := c.Location()
	if err != nil {
		return err
	}
	if _, err := c.Run.Params(loc); err != nil {
		return err
	}
	if _, err := c.Source.Period(loc); err != nil {
		return err
	}
	if _, err := c.Database.Dialect(); err != nil {
		return err
	}
	return nil
}

// Location loads the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	name := c.Timezone
	if name == "" {
		name = feature.DefaultZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, detection.NewValidationError("timezone", err.Error())
	}
	return loc, nil
}

// Params parses the run section. The history period is left empty.
func (r RunConfig) Params(loc *time.Location) (synth.Params, error) {
	date, err := sampler.ParseDate("run.date", r.Date, loc)
	if err != nil {
		return synth.Params{}, err
	}
	start, err := sampler.ParseClock("run.start", r.Start)
	if err != nil {
		return synth.Params{}, err
	}
	end, err := sampler.ParseClock("run.end", r.End)
	if err != nil {
		return synth.Params{}, err
	}
	if r.AnomalousWeek < 0 || r.AnomalousWeek > 53 {
		return synth.Params{}, detection.NewValidationError("run.anomalous_week", "must be an ISO week number")
	}
	if r.Workers < 0 {
		return synth.Params{}, detection.NewValidationError("run.workers", "must not be negative")
	}
	return synth.Params{
		Date:          date,
		Start:         start,
		End:           end,
		AnomalousWeek: r.AnomalousWeek,
		Seed:          r.Seed,
		Workers:       r.Workers,
	}, nil
}

// Period resolves the history range.
func (s SourceConfig) Period(loc *time.Location) (store.Period, error) {
	if s.Start != "" || s.End != "" {
		from, err := time.Parse(time.RFC3339, s.Start)
		if err != nil {
			return store.Period{}, detection.NewValidationError("source.start", "want RFC 3339 timestamp")
		}
		to, err := time.Parse(time.RFC3339, s.End)
		if err != nil {
			return store.Period{}, detection.NewValidationError("source.end", "want RFC 3339 timestamp")
		}
		if !from.Before(to) {
			return store.Period{}, detection.NewValidationError("source.end", "must be after source.start")
		}
		return store.Period{Start: from, End: to}, nil
	}
	return store.MonthPeriod(s.Month, loc)
}

// Dialect resolves the driver. Without an explicit driver, a configured
// host selects PostgreSQL and anything else SQLite.
func (d DatabaseConfig) Dialect() (store.Dialect, error) {
	switch strings.ToLower(d.Driver) {
	case "":
		if d.Host != "" {
			return store.DialectPostgres, nil
		}
		return store.DialectSQLite, nil
	case "sqlite", "sqlite3":
		return store.DialectSQLite, nil
	case "postgres", "postgresql", "pgx":
		return store.DialectPostgres, nil
	}
	return "", detection.NewValidationError("database.driver", fmt.Sprintf("unsupported driver %q", d.Driver))
}

// PostgresDSN returns DSN, or one assembled from the host fields.
func (d DatabaseConfig) PostgresDSN() string {
	if d.DSN != "" {
		return d.DSN
	}
	return store.PostgresParams{
		Host: d.Host, Port: d.Port, User: d.User, Password: d.Password, Name: d.Name, SSLMode: d.SSLMode,
	}.DSN()
}

// SQLitePath returns the SQLite file, defaulting to ./data/history.db.
func (d DatabaseConfig) SQLitePath() string {
	if d.DSN != "" {
		return d.DSN
	}
	return "./data/history.db"
}

// RunParams combines the run section with the history period.
func (c *Config) RunParams(loc *time.Location) (synth.Params, error) {
	p, err := c.Run.Params(loc)
	if err != nil {
		return synth.Params{}, err
	}
	period, err := c.Source.Period(loc)
	if err != nil {
		return synth.Params{}, err
	}
	p.From, p.To = period.Start, period.End
	return p, nil
}
