// Package app wires the full recompute pipeline: storage, fact services,
// event bus, durable queue, workers and the daily rollover. It is the
// composition root shared by the daemon and the integration tests.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/patrimo/patrimo-backend/internal/adapter/repository/memory"
	"github.com/patrimo/patrimo-backend/internal/adapter/repository/postgres"
	"github.com/patrimo/patrimo-backend/internal/bus"
	"github.com/patrimo/patrimo-backend/internal/common"
	"github.com/patrimo/patrimo-backend/internal/domain"
	"github.com/patrimo/patrimo-backend/internal/queue"
	"github.com/patrimo/patrimo-backend/internal/usecase/envelope"
	"github.com/patrimo/patrimo-backend/internal/usecase/facts"
	"github.com/patrimo/patrimo-backend/internal/usecase/history"
	"github.com/patrimo/patrimo-backend/internal/usecase/invalidation"
	"github.com/patrimo/patrimo-backend/internal/usecase/recompute"
	"github.com/patrimo/patrimo-backend/internal/usecase/valuation"
)

// App bundles the assembled services. Fact mutations enter through Facts,
// recomputed results leave through History and Envelopes.
type App struct {
	Config *common.Config
	Logger *common.Logger

	Facts     *facts.Service
	History   *history.Service
	Envelopes *envelope.Service
	Scheduler *recompute.Scheduler
	Bus       *bus.Bus
	Jobs      domain.JobStore
	Holdings  domain.HoldingRepository

	db *postgres.DB
}

// New builds the application from configuration. Storage is selected by the
// database driver: "memory" keeps everything in process, anything else opens
// a PostgreSQL connection.
func New(cfg *common.Config, logger *common.Logger) (*App, error) {
	var (
		factStore    domain.FactStore
		holdings     domain.HoldingRepository
		transactions domain.TransactionRepository
		snapshots    domain.SnapshotStore
		envelopes    domain.EnvelopeRepository
		jobs         domain.JobStore
		db           *postgres.DB
	)

	switch cfg.Database.Driver {
	case "memory":
		store := memory.NewStore()
		factStore = store.Facts()
		holdings = store.Holdings()
		transactions = store.Transactions()
		snapshots = store.Snapshots()
		envelopes = store.Envelopes()
		jobs = store.Jobs()
		logger.Warn().Msg("Using in-memory storage; all data is lost on exit")
	default:
		var err error
		db, err = postgres.NewDB(cfg.Database.ConnStr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		factStore = postgres.NewFactStore(db)
		holdings = postgres.NewHoldingRepository(db)
		transactions = postgres.NewTransactionRepository(db)
		snapshots = postgres.NewSnapshotStore(db)
		envelopes = postgres.NewEnvelopeRepository(db)
		jobs = postgres.NewJobStore(db)
	}

	eventBus := bus.New(logger)
	valuationResolver := valuation.NewResolver(factStore, cfg.TargetCurrency)
	rangeResolver := invalidation.NewResolver(factStore, holdings)
	scheduler := recompute.NewScheduler(holdings, transactions, snapshots, valuationResolver)

	enqueuer := recompute.NewEnqueuer(holdings, jobs, logger, cfg.Queue.MaxAttempts)
	enqueuer.Register(eventBus)

	return &App{
		Config:    cfg,
		Logger:    logger,
		Facts:     facts.NewService(factStore, holdings, transactions, rangeResolver, eventBus),
		History:   history.NewService(snapshots, logger),
		Envelopes: envelope.NewService(envelopes, holdings, snapshots),
		Scheduler: scheduler,
		Bus:       eventBus,
		Jobs:      jobs,
		Holdings:  holdings,
		db:        db,
	}, nil
}

// Run starts the queue workers and the daily rollover scheduler, then blocks
// until the context is cancelled. On shutdown it drains in-flight bus
// handlers and waits for the workers to stop.
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < a.Config.Queue.Workers; i++ {
		worker := queue.NewWorker(a.Jobs, a.Scheduler, a.Logger, a.Config.Queue.GetPollInterval(), a.Config.Queue.GetBaseBackoff())
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Start(ctx)
		}()
	}
	a.Logger.Info().Int("workers", a.Config.Queue.Workers).Msg("Recompute workers started")

	cron := gocron.NewScheduler(time.UTC)
	_, err := cron.Every(1).Day().At("00:00").Do(func() {
		a.rolloverAll(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule daily rollover: %w", err)
	}
	cron.StartAsync()

	a.Logger.Info().
		Str("target_currency", a.Config.TargetCurrency).
		Str("driver", a.Config.Database.Driver).
		Msg("Recompute daemon running")

	<-ctx.Done()

	cron.Stop()
	a.Bus.Drain()
	wg.Wait()
	return nil
}

// Close releases the database connection, if any.
func (a *App) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// rolloverAll enqueues a net-worth rebuild from yesterday for every user, so
// carried values extend across the midnight boundary without a fact mutation.
func (a *App) rolloverAll(ctx context.Context) {
	users, err := a.Holdings.ListUsers(ctx)
	if err != nil {
		a.Logger.Error().Err(err).Msg("Daily rollover: failed to list users")
		return
	}

	yesterday := domain.Today().AddDays(-1)
	for _, userID := range users {
		job := queue.NewJob(domain.JobKindNetWorth, userID, yesterday, a.Config.Queue.MaxAttempts)
		if err := a.Jobs.Enqueue(ctx, job); err != nil {
			a.Logger.Error().Err(err).Str("user", userID.String()).Msg("Daily rollover: failed to enqueue job")
		}
	}
	a.Logger.Info().Int("users", len(users)).Str("start", yesterday.String()).Msg("Daily rollover: rebuild jobs enqueued")
}
