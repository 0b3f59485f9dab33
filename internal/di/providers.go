package di

import (
	"context"
	"fmt"
	"time"

	"SignalDeck/internal/domain/repository"
	"SignalDeck/internal/handler/api"
	internalrepo "SignalDeck/internal/repository"
	"SignalDeck/internal/service/binance"
	"SignalDeck/internal/service/ratelimit"
	"SignalDeck/internal/services/signals"
	"SignalDeck/internal/usecase"
	"SignalDeck/pkg/cache"
	pkgch "SignalDeck/pkg/clickhouse"
	"SignalDeck/pkg/config"
	xhttp "SignalDeck/pkg/http"
	pkgkafka "SignalDeck/pkg/kafka"
	applogger "SignalDeck/pkg/logger"
	"SignalDeck/pkg/metrics"
	"SignalDeck/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// minViewTTL keeps a view readable across a few missed cycles.
const minViewTTL = 5 * time.Minute

// ProvideLogger builds the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideRegistry creates the Prometheus registry served on the metrics path.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates the domain metrics recorder.
func ProvideMetrics(cfg *config.Config, reg *prometheus.Registry) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.Nop{}
	}
	return metrics.New(reg)
}

// ProvideCache creates the cache backing the view store.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if cfg.Cache.Type == config.CacheMemory {
		return cache.NewMemoryCache(), nil
	}

	rc := cfg.Cache.Redis
	redis, err := cache.NewRedisCache(
		cache.WithRedisAddr(rc.Host, rc.Port),
		cache.WithRedisAuth(rc.Password, rc.DB),
		cache.WithRedisPrefix(rc.Prefix),
		cache.WithRedisPool(rc.PoolSize, rc.MinIdle, 30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	if cfg.Cache.Type == config.CacheLayered {
		return cache.NewLayeredCache(redis, cfg.Refresh.Interval), nil
	}
	return redis, nil
}

// ProvideKafkaProducer creates the producer when kafka is enabled and
// routes aggregated error logs through it. It returns nil otherwise.
func ProvideKafkaProducer(cfg *config.Config, reg *prometheus.Registry, l *applogger.Logger) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithRegisterer(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	if cfg.Kafka.LogTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogTopic,
			Service:        "signaldeck",
			Publisher:      producer,
		})
	}
	return producer, nil
}

// ProvideClickHouseClient connects to ClickHouse only when it backs the
// signal log.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Source.Type != config.SourceClickHouse {
		return nil, nil
	}
	ch := cfg.Source.ClickHouse
	client, err := pkgch.NewClient(
		pkgch.WithHost(ch.Host),
		pkgch.WithPort(ch.Port),
		pkgch.WithDatabase(ch.Database),
		pkgch.WithCredentials(ch.User, ch.Password),
		pkgch.WithMaxConnections(4, 2),
		pkgch.WithHTTP(ch.UseHTTP),
		pkgch.WithTimeouts(ch.Timeout, ch.Timeout),
		pkgch.WithMaxExecutionTime(ch.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideSignalSource selects the signal log backend by source.type.
func ProvideSignalSource(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) (repository.SignalSource, error) {
	switch cfg.Source.Type {
	case config.SourceCSV:
		src := internalrepo.NewCSVSource(cfg.Source.CSV.Path)
		src.SetLogger(l)
		return src, nil

	case config.SourceSheets:
		sc := cfg.Source.Sheets
		src := internalrepo.NewSheetsSource(sc.CredentialsFile, sc.Spreadsheet,
			internalrepo.WithSpreadsheetID(sc.SpreadsheetID),
			internalrepo.WithWorksheet(sc.Worksheet),
		)
		src.SetLogger(l)
		return src, nil

	case config.SourceS3:
		sc := cfg.Source.S3
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		src, err := internalrepo.NewS3Source(ctx, internalrepo.S3Config{
			Bucket:          sc.Bucket,
			Key:             sc.Key,
			Region:          sc.Region,
			Endpoint:        sc.Endpoint,
			PathStyle:       sc.PathStyle,
			AccessKeyID:     sc.AccessKeyID,
			SecretAccessKey: sc.SecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 source: %w", err)
		}
		src.SetLogger(l)
		return src, nil

	case config.SourceClickHouse:
		if ch == nil {
			return nil, fmt.Errorf("clickhouse source: client not configured")
		}
		src, err := internalrepo.NewCHSignalSource(ch, cfg.Source.ClickHouse.Table, cfg.Source.ClickHouse.OrderBy)
		if err != nil {
			return nil, fmt.Errorf("clickhouse source: %w", err)
		}
		src.SetLogger(l)
		return src, nil
	}
	return nil, fmt.Errorf("unknown source type %q", cfg.Source.Type)
}

// ProvideQuoteFetcher selects the ticker client by quotes.provider.
func ProvideQuoteFetcher(cfg *config.Config, m repository.Metrics, l *applogger.Logger) repository.QuoteFetcher {
	if cfg.Quotes.Provider == config.QuoteProviderBinance {
		return binance.NewSDKFetcher(cfg.Quotes.BaseURL, cfg.Quotes.Timeout, m, l)
	}
	return binance.NewHTTPFetcher(cfg.Quotes.BaseURL, cfg.Quotes.Timeout, m, l)
}

// ProvideViewStore keeps the latest view in the configured cache.
func ProvideViewStore(cfg *config.Config, c cache.Service) repository.ViewStore {
	ttl := 10 * cfg.Refresh.Interval
	if ttl < minViewTTL {
		ttl = minViewTTL
	}
	return internalrepo.NewCacheViewStore(c, ttl)
}

func ProvideStreamHub(l *applogger.Logger, store repository.ViewStore) *api.StreamHub {
	return api.NewStreamHub(l, store)
}

func ProvideDashboard(
	cfg *config.Config,
	quotes repository.QuoteFetcher,
	source repository.SignalSource,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Dashboard {
	return usecase.NewDashboard(quotes, source, cfg.Quotes.Symbols,
		usecase.WithNormalizer(signals.NewNormalizer(
			signals.WithLocation(cfg.Location()),
			signals.WithStrict(cfg.Normalize.Strict),
		)),
		usecase.WithAggregator(signals.NewAggregator(signals.ParseLatestPolicy(cfg.Aggregate.Latest))),
		usecase.WithMetrics(m),
		usecase.WithLogger(l),
	)
}

// ProvideScheduler hands every view to the store, the stream hub and,
// when enabled, kafka.
func ProvideScheduler(
	cfg *config.Config,
	dashboard *usecase.Dashboard,
	store repository.ViewStore,
	hub *api.StreamHub,
	producer *pkgkafka.Producer,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Scheduler {
	sinks := []repository.ViewSink{store, hub}
	if producer != nil {
		sinks = append(sinks, internalrepo.NewKafkaViewPublisher(producer, cfg.Kafka.ViewTopic))
	}
	return usecase.NewScheduler(dashboard,
		usecase.WithInterval(cfg.Refresh.Interval),
		usecase.WithCycleTimeout(cfg.Refresh.CycleTimeout),
		usecase.WithSinks(sinks...),
		usecase.WithSchedulerMetrics(m),
		usecase.WithSchedulerLogger(l),
	)
}

func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, 10*time.Minute)
}

// ProvideHTTPServer builds the Echo server with the dashboard routes.
func ProvideHTTPServer(
	cfg *config.Config,
	l *applogger.Logger,
	reg *prometheus.Registry,
	limiter *ratelimit.Limiter,
	store repository.ViewStore,
	hub *api.StreamHub,
) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(l, cfg.Server.SlowRequest),
		xhttp.WithRateLimit(limiter, api.StreamPath, cfg.Metrics.Path, "/healthz"),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path, reg))
	}
	handlers := []xhttp.Handler{api.NewDashboardHandler(l, store), hub}
	return xhttp.NewServer(handlers, opts...)
}

// ProvideApp assembles the lifecycle, closing resources in reverse order of
// creation on shutdown.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	scheduler *usecase.Scheduler,
	srv *xhttp.Server,
	hub *api.StreamHub,
	c cache.Service,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
) *server.App {
	closers := []server.Closer{
		{Name: "stream hub", Close: hub.Close},
		{Name: "cache", Close: c.Close},
	}
	if producer != nil {
		closers = append(closers, server.Closer{Name: "kafka producer", Close: func() error {
			l.RemoveCollector()
			return producer.Close()
		}})
	}
	if ch != nil {
		closers = append(closers, server.Closer{Name: "clickhouse", Close: ch.Close})
	}
	return server.New(cfg, l, scheduler, srv, closers...)
}
