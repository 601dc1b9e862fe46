package di

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/aristath/horizon/internal/clientdata"
	"github.com/aristath/horizon/internal/config"
	"github.com/aristath/horizon/internal/domain"
	"github.com/aristath/horizon/internal/metrics"
	"github.com/aristath/horizon/internal/modules/analytics"
	analyticshandlers "github.com/aristath/horizon/internal/modules/analytics/handlers"
	"github.com/aristath/horizon/internal/modules/portfolio"
	portfoliohandlers "github.com/aristath/horizon/internal/modules/portfolio/handlers"
	"github.com/aristath/horizon/internal/modules/prices"
	"github.com/aristath/horizon/internal/modules/simulation"
)

// InitializeRepositories creates the repository and the cache stores
func InitializeRepositories(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	container.Repository = portfolio.NewRepository(container.PortfolioDB.Conn(), log)
	container.PortfolioHandler = portfoliohandlers.NewHandler(container.Repository, log)

	container.CacheStore = clientdata.NewStore(container.CacheDB.Conn())
	container.Cache = container.CacheStore

	if cfg.Cache.Backend == config.CacheBackendRedis {
		redisStore, err := clientdata.NewRedisStore(ctx, clientdata.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to redis cache: %w", err)
		}
		container.Redis = redisStore
		container.Cache = redisStore
	}

	log.Info().Str("cache_backend", cfg.Cache.Backend).Msg("Repositories initialized")
	return nil
}

// InitializeServices creates metrics, the simulator and the analytics facade
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	container.Registry = prometheus.NewRegistry()
	container.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	container.Metrics = metrics.NewRecorder(container.Registry)

	container.Simulator = simulation.NewSimulator(cfg.Simulation.Workers, log)

	var priceSource domain.PriceSource = container.Repository
	priceSource = prices.NewCachedSource(priceSource, container.Cache, cfg.Cache.PriceTTL, log)

	container.Analytics = analytics.NewFacade(
		analytics.Sources{
			Prices:       priceSource,
			Transactions: container.Repository,
			Holdings:     container.Repository,
			Catalog:      container.Repository,
		},
		container.Simulator,
		container.Cache,
		analytics.Config{
			Fetch: prices.FetcherConfig{
				MaxConcurrency: cfg.Fetch.Concurrency,
				RatePerMinute:  cfg.Fetch.RatePerMinute,
				Timeout:        cfg.Fetch.Timeout,
			},
			ReportTTL: cfg.Cache.ReportTTL,
			Defaults:  cfg.Analytics,
		},
		log,
	).WithRecorder(container.Metrics)

	container.AnalyticsHandler = analyticshandlers.NewHandler(container.Analytics, log)

	log.Info().Msg("Services initialized")
	return nil
}
