package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"MarketWatch/internal/errorhandler"
	"MarketWatch/internal/marketdata"
	"MarketWatch/internal/monitor"
	pkgch "MarketWatch/pkg/clickhouse"
	"MarketWatch/pkg/config"
	xhttp "MarketWatch/pkg/http"
	pkgkafka "MarketWatch/pkg/kafka"
	applogger "MarketWatch/pkg/logger"
)

// App encapsulates the application lifecycle: the error tracker
// consumer, the analysis sweep loop, the optional live collector and
// the ops HTTP server.
type App struct {
	cfg       *config.Config
	log       *applogger.Logger
	errs      *errorhandler.Handler
	monitor   *monitor.Monitor
	collector *marketdata.Collector // nil when the stream is disabled
	chClient  *pkgch.Client         // nil when clickhouse is disabled
	producer  *pkgkafka.Producer    // nil when kafka is disabled
	consumer  *pkgkafka.Consumer    // nil without an error topic

	httpHandler xhttp.Handler
	httpServer  *xhttp.Server
}

// New creates an App with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	errs *errorhandler.Handler,
	mon *monitor.Monitor,
	collector *marketdata.Collector,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
	consumer *pkgkafka.Consumer,
	httpHandler xhttp.Handler,
) *App {
	return &App{
		cfg:         cfg,
		log:         log,
		errs:        errs,
		monitor:     mon,
		collector:   collector,
		chClient:    chClient,
		producer:    producer,
		consumer:    consumer,
		httpHandler: httpHandler,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.errs.Start(ctx)
	a.log.Info("error tracker started")

	if a.collector != nil {
		if err := a.collector.Start(ctx); err != nil {
			a.log.Error("collector start failed", applogger.Error(err))
		} else {
			a.log.Info("live collector started",
				applogger.Strings("symbols", a.cfg.Stream.Symbols))
		}
	}

	if a.consumer != nil {
		if err := a.consumer.Start(); err != nil {
			a.log.Error("error consumer start failed", applogger.Error(err))
		} else {
			a.log.Info("error report consumer started",
				applogger.String("topic", a.cfg.Kafka.ErrorTopic))
		}
	}

	go a.monitor.Run(ctx)
	a.log.Info("monitor started",
		applogger.Strings("symbols", a.cfg.Monitor.Symbols),
		applogger.Duration("scan_interval", a.cfg.Monitor.ScanInterval))

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(a.log),
	)
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start failed", applogger.Error(err))
		return err
	}
	a.log.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	if a.collector != nil {
		if err := a.collector.Stop(); err != nil {
			a.log.Warn("collector stop error", applogger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.log.Warn("error consumer stop error", applogger.Error(err))
		}
	}

	if err := a.errs.SavePatterns(); err != nil {
		a.log.Warn("pattern save error", applogger.Error(err))
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.log.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
