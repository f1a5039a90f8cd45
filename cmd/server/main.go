package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/aristath/rebalancer/internal/analytics"
	"github.com/aristath/rebalancer/internal/api"
	"github.com/aristath/rebalancer/internal/broker"
	"github.com/aristath/rebalancer/internal/config"
	"github.com/aristath/rebalancer/internal/jobs"
	"github.com/aristath/rebalancer/internal/market"
	"github.com/aristath/rebalancer/internal/money"
	"github.com/aristath/rebalancer/internal/portfolio"
	"github.com/aristath/rebalancer/internal/registry"
	"github.com/aristath/rebalancer/internal/scheduler"
	"github.com/aristath/rebalancer/internal/snapshot"
	"github.com/aristath/rebalancer/pkg/logger"
)

func main() {
	log := logger.New(logger.Config{Level: "info", Pretty: true})
	log.Info().Msg("starting rebalancer")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	mkt := market.NewMarket()
	reg := registry.New(log)
	atomicBroker := broker.NewAtomicBroker(mkt, broker.NoDelay{}, cfg.RollbackMaxAttempts, money.NewQuantity(cfg.MaxQuantity), log)

	if err := seedMarket(mkt, reg); err != nil {
		log.Fatal().Err(err).Msg("failed to seed market")
	}

	history := analytics.NewHistory()
	store := newPortfolioStore()
	if err := seedPortfolios(cfg, mkt, atomicBroker, reg, store, history, log); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize portfolios")
	}

	sched := scheduler.New(log)
	sched.Start()
	defer sched.Stop()

	sweep := jobs.NewStaleLockSweep(store.lockInspectables, log)
	if err := sched.AddJob(cfg.SnapshotSchedule, sweep); err != nil {
		log.Fatal().Err(err).Msg("failed to register stale lock sweep")
	}

	summary := analytics.NewSummaryJob(history, log)
	if err := sched.AddJob(cfg.SnapshotSchedule, summary); err != nil {
		log.Fatal().Err(err).Msg("failed to register deviation summary job")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load AWS configuration")
	}
	uploader := manager.NewUploader(s3.NewFromConfig(awsCfg))
	exporter := snapshot.NewS3Exporter(uploader, cfg.SnapshotBucket, cfg.SnapshotPrefix, store, log)
	if err := sched.AddJob(cfg.SnapshotSchedule, exporter); err != nil {
		log.Fatal().Err(err).Msg("failed to register snapshot exporter")
	}

	priceFeed := api.NewPriceFeedSocket(mkt, log)
	srv := api.New(api.Config{
		Port:       cfg.Port,
		Log:        log,
		DevMode:    cfg.DevMode,
		Portfolios: store,
		Batches:    atomicBroker,
		PriceFeed:  priceFeed,
	})

	go func() {
		if err := srv.Start(); err != nil && err.Error() != "http: Server closed" {
			log.Fatal().Err(err).Msg("HTTP surface failed")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("rebalancer started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("HTTP surface forced to shutdown")
	}
	log.Info().Msg("stopped")
}

// portfolioStore is the process's live lookup of registered portfolios,
// adapting *portfolio.Portfolio to the narrow read-only shapes api.Server and
// jobs.StaleLockSweep depend on.
type portfolioStore struct {
	portfolios map[string]*portfolio.Portfolio
}

func newPortfolioStore() *portfolioStore {
	return &portfolioStore{portfolios: make(map[string]*portfolio.Portfolio)}
}

func (s *portfolioStore) add(p *portfolio.Portfolio) {
	s.portfolios[p.ID()] = p
}

func (s *portfolioStore) List() []portfolio.View {
	out := make([]portfolio.View, 0, len(s.portfolios))
	for _, p := range s.portfolios {
		out = append(out, p.Snapshot())
	}
	return out
}

func (s *portfolioStore) Get(id string) (portfolio.View, bool) {
	p, ok := s.portfolios[id]
	if !ok {
		return portfolio.View{}, false
	}
	return p.Snapshot(), true
}

func (s *portfolioStore) lockInspectables() []interface {
	ID() string
	LockHeldSince() (time.Duration, bool)
	LockTTL() time.Duration
} {
	out := make([]interface {
		ID() string
		LockHeldSince() (time.Duration, bool)
		LockTTL() time.Duration
	}, 0, len(s.portfolios))
	for _, p := range s.portfolios {
		out = append(out, p)
	}
	return out
}
