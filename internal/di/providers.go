package di

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"MarketWatch/internal/alerting"
	"MarketWatch/internal/domain/models"
	"MarketWatch/internal/domain/repository"
	"MarketWatch/internal/errorhandler"
	"MarketWatch/internal/handler/api"
	"MarketWatch/internal/marketdata"
	"MarketWatch/internal/monitor"
	internalrepo "MarketWatch/internal/repository"
	"MarketWatch/pkg/cache"
	pkgch "MarketWatch/pkg/clickhouse"
	"MarketWatch/pkg/config"
	xhttp "MarketWatch/pkg/http"
	pkgkafka "MarketWatch/pkg/kafka"
	"MarketWatch/pkg/logger"
	"MarketWatch/pkg/metrics"
	"MarketWatch/pkg/server"

	"github.com/segmentio/kafka-go"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: "stdout",
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideHTTPClient creates the shared outbound HTTP client.
func ProvideHTTPClient() *xhttp.Client {
	return xhttp.NewClient(xhttp.WithTimeout(10 * time.Second))
}

// ProvideClickHouseClient creates a ClickHouse client and initializes
// the schema. Returns nil when clickhouse is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}

	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.AsyncInsert),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := []string{"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database}
	stmts = append(stmts, internalrepo.SnapshotSchema(cfg.ClickHouse.Database+"."+cfg.ClickHouse.SnapshotTable)...)
	stmts = append(stmts, internalrepo.ErrorSchema(cfg.ClickHouse.Database+"."+cfg.ClickHouse.ErrorTable)...)
	if err := client.InitSchema(ctx, stmts); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer. Returns nil when kafka
// is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideErrorConsumer creates the consumer that ingests error reports
// published by external pipeline jobs. Returns nil when kafka is
// disabled or no error topic is configured.
func ProvideErrorConsumer(cfg *config.Config, log *logger.Logger, errs *errorhandler.Handler) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || cfg.Kafka.ErrorTopic == "" {
		return nil, nil
	}

	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Workers),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.DLQTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.RegisterHandler(errorhandler.NewKafkaErrorHandler(cfg.Kafka.ErrorTopic, errs))
	consumer.WithConsumerHook(pkgkafka.HookFuncs{
		Err: func(_ context.Context, topic string, _ kafka.Message, _ []byte, err error) {
			log.Warn("error report rejected",
				logger.String("topic", topic), logger.Error(err))
		},
	})
	return consumer, nil
}

// ProvideCooldownCache picks a layered memory+redis cache when redis
// is enabled, plain memory otherwise.
func ProvideCooldownCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}

	host, port := splitAddr(cfg.Redis.Addr)
	redisCache, err := cache.NewRedisCache(
		cache.WithRedisHost(host),
		cache.WithRedisPort(port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix("marketwatch"),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(redisCache), nil
}

func splitAddr(addr string) (string, int) {
	host, portStr, found := strings.Cut(addr, ":")
	if !found {
		return addr, 6379
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 6379
	}
	return host, port
}

// ProvideChannels builds the configured alert channels.
func ProvideChannels(cfg *config.Config, log *logger.Logger, client *xhttp.Client, producer *pkgkafka.Producer) []alerting.Channel {
	channels := []alerting.Channel{
		alerting.NewEmailChannel(log, alerting.EmailConfig{
			Host:     cfg.Alerting.SMTP.Host,
			Port:     cfg.Alerting.SMTP.Port,
			Username: cfg.Alerting.SMTP.Username,
			Password: cfg.Alerting.SMTP.Password,
			From:     cfg.Alerting.SMTP.From,
			DefaultRecipients: map[models.AlertSeverity][]string{
				models.SeverityLow:      cfg.Alerting.EmailLow,
				models.SeverityMedium:   cfg.Alerting.EmailMedium,
				models.SeverityHigh:     cfg.Alerting.EmailHigh,
				models.SeverityCritical: cfg.Alerting.EmailCritical,
			},
		}),
		alerting.NewSlackChannel(log, client, cfg.Alerting.SlackURL),
		alerting.NewTeamsChannel(log, client, cfg.Alerting.TeamsURL),
		alerting.NewPagerDutyChannel(log, client, cfg.Alerting.PagerDuty),
	}
	if producer != nil && cfg.Alerting.KafkaTopic != "" {
		channels = append(channels, alerting.NewKafkaChannel(log, producer, cfg.Alerting.KafkaTopic))
	}
	return channels
}

// ProvideNotifier creates the alert fan-out.
func ProvideNotifier(cfg *config.Config, log *logger.Logger, channels []alerting.Channel,
	cooldown cache.Service, m repository.Metrics) repository.Notifier {
	return alerting.NewManager(log, channels,
		alerting.WithCooldown(cooldown, cfg.Alerting.Cooldown),
		alerting.WithMetrics(m),
	)
}

// ProvideErrorHandler creates the error tracker and attaches the
// durable record store when clickhouse is available.
func ProvideErrorHandler(cfg *config.Config, log *logger.Logger, notifier repository.Notifier,
	m repository.Metrics, chClient *pkgch.Client) *errorhandler.Handler {
	h := errorhandler.New(log, notifier, m, errorhandler.Options{
		QueueSize:    cfg.Errors.QueueSize,
		Retention:    cfg.Errors.Retention,
		PatternsPath: cfg.Errors.PatternsPath,
		SaveEvery:    cfg.Errors.SaveEvery,
		Thresholds: errorhandler.Thresholds{
			CriticalPerHour: cfg.Errors.CriticalPerHour,
			HighPerHour:     cfg.Errors.HighPerHour,
			MediumPerHour:   cfg.Errors.MediumPerHour,
		},
		Retry: errorhandler.RetryOptions{
			MaxRetries: cfg.Errors.Retry.MaxRetries,
			BaseDelay:  cfg.Errors.Retry.BaseDelay,
			MaxDelay:   cfg.Errors.Retry.MaxDelay,
		},
	})
	if chClient != nil {
		h.SetErrorStore(internalrepo.NewClickHouseErrorStore(
			chClient.DB(), cfg.ClickHouse.Database+"."+cfg.ClickHouse.ErrorTable))
	}
	return h
}

// ProvideSource creates the historical chart API source.
func ProvideSource(cfg *config.Config, log *logger.Logger) repository.Source {
	opts := []marketdata.ClientOption{}
	if cfg.Monitor.ChartBaseURL != "" {
		opts = append(opts, marketdata.WithBaseURL(cfg.Monitor.ChartBaseURL))
	}
	return marketdata.NewClient(log, opts...)
}

// ProvideMonitor creates the analysis monitor and attaches the
// snapshot store when clickhouse is available.
func ProvideMonitor(cfg *config.Config, log *logger.Logger, source repository.Source,
	notifier repository.Notifier, errs *errorhandler.Handler, m repository.Metrics,
	chClient *pkgch.Client) *monitor.Monitor {
	mon := monitor.New(log, source, notifier, errs, m, monitor.Options{
		Symbols:      cfg.Monitor.Symbols,
		Period:       cfg.Monitor.Period,
		Interval:     cfg.Monitor.Interval,
		ScanInterval: cfg.Monitor.ScanInterval,
		Thresholds: models.Thresholds{
			PriceChangePercent:  cfg.Monitor.Thresholds.PriceChangePercent,
			VolumeSpikePercent:  cfg.Monitor.Thresholds.VolumeSpikePercent,
			VolatilityThreshold: cfg.Monitor.Thresholds.VolatilityThreshold,
			RSIOverbought:       cfg.Monitor.Thresholds.RSIOverbought,
			RSIOversold:         cfg.Monitor.Thresholds.RSIOversold,
		},
	})
	if chClient != nil {
		mon.SetSnapshotStore(internalrepo.NewClickHouseSnapshotStore(
			chClient.DB(), cfg.ClickHouse.Database+"."+cfg.ClickHouse.SnapshotTable))
	}
	return mon
}

// ProvideCollector creates the live tick collector. Returns nil when
// the stream is disabled.
func ProvideCollector(cfg *config.Config, log *logger.Logger, m repository.Metrics) *marketdata.Collector {
	if !cfg.Stream.Enabled {
		return nil
	}
	stream := marketdata.NewStream(log, cfg.Stream.APIKey, cfg.Stream.WebSocketURL,
		cfg.Stream.Symbols, cfg.Stream.ReconnectDelay, cfg.Stream.PingInterval)
	agg := marketdata.NewAggregator(cfg.Stream.BarInterval, cfg.Stream.MaxBars)
	return marketdata.NewCollector(log, stream, agg, m)
}

// ProvideOpsHandler creates the ops HTTP handler with health checks
// for the infrastructure that is actually wired.
func ProvideOpsHandler(cfg *config.Config, log *logger.Logger, errs *errorhandler.Handler,
	mon *monitor.Monitor, collector *marketdata.Collector, chClient *pkgch.Client) *api.OpsHandler {
	checks := map[string]api.HealthChecker{}
	if chClient != nil {
		checks["clickhouse"] = chClient
	}
	return api.NewOpsHandler(log, errs, mon, collector, checks)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	errs *errorhandler.Handler,
	mon *monitor.Monitor,
	collector *marketdata.Collector,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
	consumer *pkgkafka.Consumer,
	ops *api.OpsHandler,
) *server.App {
	return server.New(cfg, log, errs, mon, collector, chClient, producer, consumer, ops)
}
