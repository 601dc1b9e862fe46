/**
 * Package di provides dependency injection type definitions.
 *
 * The Container holds every long-lived dependency of the server and the CLI.
 * It is created by Wire() and is the single source of truth for databases,
 * repositories, caches and services.
 */
package di

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aristath/horizon/internal/clientdata"
	"github.com/aristath/horizon/internal/database"
	"github.com/aristath/horizon/internal/metrics"
	"github.com/aristath/horizon/internal/modules/analytics"
	analyticshandlers "github.com/aristath/horizon/internal/modules/analytics/handlers"
	"github.com/aristath/horizon/internal/modules/portfolio"
	portfoliohandlers "github.com/aristath/horizon/internal/modules/portfolio/handlers"
	"github.com/aristath/horizon/internal/modules/prices"
	"github.com/aristath/horizon/internal/modules/simulation"
	"github.com/aristath/horizon/internal/reliability"
	"github.com/aristath/horizon/internal/scheduler"
)

/**
 * Container holds all dependencies for the application.
 *
 * Architecture:
 * - Databases: portfolio.db (instruments, prices, ledger) and cache.db (price and result cache)
 * - Repositories: the portfolio repository serves every domain source
 * - Caches: sqlite by default, redis when configured
 * - Services: analytics facade and Monte Carlo simulator
 * - Jobs: cache cleanup, database maintenance, optional S3 backups
 */
type Container struct {
	// Databases
	PortfolioDB *database.DB
	CacheDB     *database.DB

	// Repositories
	Repository       *portfolio.Repository
	PortfolioHandler *portfoliohandlers.Handler

	// Caches
	CacheStore *clientdata.Store      // sqlite cache, cleaned by the cache_cleanup job
	Redis      *clientdata.RedisStore // nil unless the redis backend is selected
	Cache      prices.CacheStore      // the backend in use

	// Metrics
	Registry *prometheus.Registry
	Metrics  *metrics.Recorder

	// Services
	Simulator        *simulation.Simulator
	Analytics        *analytics.Facade
	AnalyticsHandler *analyticshandlers.Handler

	// Jobs
	Scheduler *scheduler.Scheduler
	Backup    *reliability.BackupService // nil when backups are disabled
}

// Databases returns every open database by name
func (c *Container) Databases() map[string]*database.DB {
	dbs := make(map[string]*database.DB, 2)
	if c.PortfolioDB != nil {
		dbs["portfolio"] = c.PortfolioDB
	}
	if c.CacheDB != nil {
		dbs["cache"] = c.CacheDB
	}
	return dbs
}

// Close releases the cache client and closes every database
func (c *Container) Close() error {
	var firstErr error
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, db := range []*database.DB{c.CacheDB, c.PortfolioDB} {
		if db == nil {
			continue
		}
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
