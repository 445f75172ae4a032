package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Port            int           `yaml:"port" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"json" validate:"oneof=json console"`
}

type ThresholdsConfig struct {
	PriceChangePercent  float64 `yaml:"price_change_percent" default:"5.0"`
	VolumeSpikePercent  float64 `yaml:"volume_spike_percent" default:"200.0"`
	VolatilityThreshold float64 `yaml:"volatility_threshold" default:"0.02"`
	RSIOverbought       float64 `yaml:"rsi_overbought" default:"70"`
	RSIOversold         float64 `yaml:"rsi_oversold" default:"30"`
}

type MonitorConfig struct {
	Symbols      []string         `yaml:"symbols" validate:"min=1"`
	Period       string           `yaml:"period" default:"3mo"`
	Interval     string           `yaml:"interval" default:"1d"`
	ScanInterval time.Duration    `yaml:"scan_interval" default:"15m"`
	ChartBaseURL string           `yaml:"chart_base_url"`
	Thresholds   ThresholdsConfig `yaml:"thresholds"`
}

type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries" default:"3"`
	BaseDelay  time.Duration `yaml:"base_delay" default:"1s"`
	MaxDelay   time.Duration `yaml:"max_delay" default:"60s"`
}

type ErrorsConfig struct {
	QueueSize       int           `yaml:"queue_size" default:"1024"`
	Retention       time.Duration `yaml:"retention" default:"720h"`
	PatternsPath    string        `yaml:"patterns_path" default:"data/error_patterns.json"`
	SaveEvery       int           `yaml:"save_every" default:"10"`
	CriticalPerHour int           `yaml:"critical_per_hour" default:"5"`
	HighPerHour     int           `yaml:"high_per_hour" default:"20"`
	MediumPerHour   int           `yaml:"medium_per_hour" default:"50"`
	Retry           RetryConfig   `yaml:"retry"`
}

type SMTPConfig struct {
	Host     string `yaml:"host" default:"smtp.gmail.com"`
	Port     int    `yaml:"port" default:"587"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type AlertingConfig struct {
	Cooldown   time.Duration `yaml:"cooldown" default:"5m"`
	SMTP       SMTPConfig    `yaml:"smtp"`
	SlackURL   string        `yaml:"slack_webhook_url"`
	TeamsURL   string        `yaml:"teams_webhook_url"`
	PagerDuty  string        `yaml:"pagerduty_integration_key"`
	KafkaTopic string        `yaml:"kafka_topic"`

	EmailLow      []string `yaml:"email_low"`
	EmailMedium   []string `yaml:"email_medium"`
	EmailHigh     []string `yaml:"email_high"`
	EmailCritical []string `yaml:"email_critical"`
}

type StreamConfig struct {
	Enabled        bool          `yaml:"enabled"`
	APIKey         string        `yaml:"api_key"`
	WebSocketURL   string        `yaml:"websocket_url" default:"wss://ws.finnhub.io"`
	Symbols        []string      `yaml:"symbols"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
	PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
	BarInterval    time.Duration `yaml:"bar_interval" default:"1m"`
	MaxBars        int           `yaml:"max_bars" default:"500"`
}

type ClickHouseConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Host          string        `yaml:"host" default:"localhost"`
	Port          int           `yaml:"port" default:"9000"`
	Database      string        `yaml:"database" default:"marketwatch"`
	User          string        `yaml:"user" default:"default"`
	Password      string        `yaml:"password"`
	SnapshotTable string        `yaml:"snapshot_table" default:"indicator_snapshots"`
	ErrorTable    string        `yaml:"error_table" default:"error_records"`
	DialTimeout   time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout   time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout  time.Duration `yaml:"write_timeout" default:"10s"`
	AsyncInsert   bool          `yaml:"async_insert"`
}

type KafkaConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Brokers      []string      `yaml:"brokers"`
	RequiredAcks int           `yaml:"required_acks" default:"-1"`
	Compression  string        `yaml:"compression" default:"gzip"`
	MaxAttempts  int           `yaml:"max_attempts" default:"3"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`

	// ErrorTopic, when set, consumes error reports published by
	// external pipeline jobs and feeds them into the tracker.
	ErrorTopic string `yaml:"error_topic"`
	GroupID    string `yaml:"group_id" default:"marketwatch"`
	Workers    int    `yaml:"workers" default:"1"`
	// DLQTopic receives reports that keep failing to process.
	DLQTopic string `yaml:"dlq_topic"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr" default:"localhost:6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" default:"0"`
}

type Config struct {
	Environment string           `yaml:"environment" validate:"required"`
	Server      ServerConfig     `yaml:"server"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	Logging     LoggingConfig    `yaml:"logging"`
	Monitor     MonitorConfig    `yaml:"monitor"`
	Errors      ErrorsConfig     `yaml:"errors"`
	Alerting    AlertingConfig   `yaml:"alerting"`
	Stream      StreamConfig     `yaml:"stream"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
	Kafka       KafkaConfig      `yaml:"kafka"`
	Redis       RedisConfig      `yaml:"redis"`
}

var validate = validator.New()

// Load reads and parses a YAML configuration file, applying defaults
// and validating required fields.
func Load(path string) (*Config, error) {
	c, err := load(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides secrets and
// deployment-specific fields from the environment before validation,
// so required fields like symbols may come from either source. A .env
// file, when present, is read first.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	c, err := load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Monitor.Symbols = splitList(v)
	}
	if v := os.Getenv("STREAM_API_KEY"); v != "" {
		c.Stream.APIKey = v
	}
	if v := os.Getenv("SMTP_SERVER"); v != "" {
		c.Alerting.SMTP.Host = v
	}
	if v := os.Getenv("SMTP_USERNAME"); v != "" {
		c.Alerting.SMTP.Username = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		c.Alerting.SMTP.Password = v
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		c.Alerting.SlackURL = v
	}
	if v := os.Getenv("TEAMS_WEBHOOK_URL"); v != "" {
		c.Alerting.TeamsURL = v
	}
	if v := os.Getenv("PAGERDUTY_INTEGRATION_KEY"); v != "" {
		c.Alerting.PagerDuty = v
	}
	if v := os.Getenv("ALERT_EMAIL_LOW"); v != "" {
		c.Alerting.EmailLow = splitList(v)
	}
	if v := os.Getenv("ALERT_EMAIL_MEDIUM"); v != "" {
		c.Alerting.EmailMedium = splitList(v)
	}
	if v := os.Getenv("ALERT_EMAIL_HIGH"); v != "" {
		c.Alerting.EmailHigh = splitList(v)
	}
	if v := os.Getenv("ALERT_EMAIL_CRITICAL"); v != "" {
		c.Alerting.EmailCritical = splitList(v)
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Stream.Enabled && c.Stream.APIKey == "" {
		return fmt.Errorf("stream.api_key is required when the stream is enabled")
	}
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
