package di

import (
	"context"
	"fmt"
	"time"

	drepo "github.com/danielhafezi/BetaAnalysisTool/internal/domain/repository"
	"github.com/danielhafezi/BetaAnalysisTool/internal/handler/api"
	internalrepo "github.com/danielhafezi/BetaAnalysisTool/internal/repository"
	"github.com/danielhafezi/BetaAnalysisTool/internal/service/cache"
	"github.com/danielhafezi/BetaAnalysisTool/internal/service/hyperliquid"
	"github.com/danielhafezi/BetaAnalysisTool/internal/usecase"
	pkgch "github.com/danielhafezi/BetaAnalysisTool/pkg/clickhouse"
	"github.com/danielhafezi/BetaAnalysisTool/pkg/config"
	xhttp "github.com/danielhafezi/BetaAnalysisTool/pkg/http"
	pkgkafka "github.com/danielhafezi/BetaAnalysisTool/pkg/kafka"
	applogger "github.com/danielhafezi/BetaAnalysisTool/pkg/logger"
	"github.com/danielhafezi/BetaAnalysisTool/pkg/metrics"
	"github.com/danielhafezi/BetaAnalysisTool/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "json"
	if cfg.Environment == "development" {
		format = "console"
	}
	return applogger.New(&applogger.Config{Level: "info", Format: format, Output: "stdout"})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() drepo.Metrics {
	return metrics.New()
}

// ProvideStream creates the live mid-price stream; nil when disabled.
func ProvideStream(cfg *config.Config, l *applogger.Logger) *hyperliquid.Stream {
	if !cfg.Provider.StreamEnabled {
		return nil
	}
	return hyperliquid.NewStream(cfg.Provider.WebSocketURL, cfg.Provider.ReconnectDelay, cfg.Provider.PingInterval, l)
}

// ProvideProvider creates the Hyperliquid market data client.
func ProvideProvider(cfg *config.Config, stream *hyperliquid.Stream, m drepo.Metrics, l *applogger.Logger) drepo.MarketDataProvider {
	return hyperliquid.New(
		cfg.Provider.BaseURL,
		cfg.Provider.SettleCurrency,
		cfg.Provider.Timeout,
		cfg.Provider.RateLimit,
		stream,
		m,
		l,
	)
}

// ProvideChunkStore creates the persistent chunk cache for the configured
// backend.
func ProvideChunkStore(cfg *config.Config, l *applogger.Logger) (drepo.ChunkStore, error) {
	switch cfg.Cache.Backend {
	case "clickhouse":
		client, err := pkgch.NewClient(
			pkgch.WithHost(cfg.ClickHouse.Host),
			pkgch.WithPort(cfg.ClickHouse.Port),
			pkgch.WithDatabase(cfg.ClickHouse.Database),
			pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
			pkgch.WithMaxConnections(10, 5),
			pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		)
		if err != nil {
			return nil, fmt.Errorf("clickhouse client: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		store, err := internalrepo.NewClickHouseChunkStore(ctx, client, l)
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("clickhouse chunk store: %w", err)
		}
		return store, nil
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		ttl := time.Duration(cfg.Cache.MaxAgeDays) * 24 * time.Hour
		store, err := internalrepo.NewRedisChunkStore(ctx, cfg.Cache.Redis.Addr, cfg.Cache.Redis.Password, cfg.Cache.Redis.DB, ttl)
		if err != nil {
			return nil, fmt.Errorf("redis chunk store: %w", err)
		}
		return store, nil
	default:
		store, err := cache.NewFileChunkStore(cfg.Cache.Dir, l)
		if err != nil {
			return nil, fmt.Errorf("file chunk store: %w", err)
		}
		return store, nil
	}
}

// ProvideRuntimeCache creates the in-process memo cache.
func ProvideRuntimeCache() *cache.RuntimeCache {
	return cache.NewRuntimeCache()
}

// ProvidePublisher creates the Kafka result publisher; nil when disabled.
func ProvidePublisher(cfg *config.Config) (drepo.ResultPublisher, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.ReadTimeout),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic), nil
}

// ProvideHistoryUseCase creates the price assembler.
func ProvideHistoryUseCase(provider drepo.MarketDataProvider, chunks drepo.ChunkStore, memo *cache.RuntimeCache, m drepo.Metrics, cfg *config.Config, l *applogger.Logger) *usecase.HistoryUseCase {
	return usecase.NewHistoryUseCase(provider, chunks, memo, m, usecase.HistoryConfig{
		ChunkDays:    cfg.Analysis.ChunkDays,
		FetchLimit:   cfg.Analysis.FetchLimit,
		FetchPadding: cfg.Analysis.FetchPadding,
		Workers:      cfg.Analysis.Workers,
		MemoTTL:      cfg.Cache.RuntimeTTL,
	}, l)
}

// ProvideBetaUseCase creates the beta engine.
func ProvideBetaUseCase(history *usecase.HistoryUseCase, provider drepo.MarketDataProvider, publisher drepo.ResultPublisher, m drepo.Metrics, cfg *config.Config, l *applogger.Logger) *usecase.BetaUseCase {
	return usecase.NewBetaUseCase(history, provider, publisher, m, usecase.BetaConfig{
		ReferenceSymbols: cfg.Analysis.ReferenceSymbols,
		Workers:          cfg.Analysis.Workers,
	}, l)
}

// ProvidePatternUseCase creates the pattern analyzer against the first
// reference asset.
func ProvidePatternUseCase(history *usecase.HistoryUseCase, publisher drepo.ResultPublisher, cfg *config.Config, l *applogger.Logger) *usecase.PatternUseCase {
	return usecase.NewPatternUseCase(history, publisher, cfg.Analysis.ReferenceSymbols[0], l)
}

// ProvideHandler creates the API handler.
func ProvideHandler(provider drepo.MarketDataProvider, history *usecase.HistoryUseCase, beta *usecase.BetaUseCase, patterns *usecase.PatternUseCase, cfg *config.Config, l *applogger.Logger) xhttp.Handler {
	return api.NewMarketHandler(provider, history, beta, patterns, cfg.Analysis.ReferenceSymbols, l)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	handler xhttp.Handler,
	chunks drepo.ChunkStore,
	stream *hyperliquid.Stream,
	publisher drepo.ResultPublisher,
	l *applogger.Logger,
) *server.App {
	return server.New(cfg, handler, chunks, stream, publisher, l)
}
