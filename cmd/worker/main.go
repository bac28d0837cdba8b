package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/ampere-erp/ampere-erp/internal/app"
	"github.com/ampere-erp/ampere-erp/internal/inventory"
	"github.com/ampere-erp/ampere-erp/internal/masterdata/sites"
	"github.com/ampere-erp/ampere-erp/internal/masterdata/vendors"
	"github.com/ampere-erp/ampere-erp/internal/platform/db"
	"github.com/ampere-erp/ampere-erp/internal/procurement"
	"github.com/ampere-erp/ampere-erp/internal/shared"
	"github.com/ampere-erp/ampere-erp/internal/storage"
	"github.com/ampere-erp/ampere-erp/internal/users"
	"github.com/ampere-erp/ampere-erp/jobs"
	"github.com/ampere-erp/ampere-erp/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	inventoryService := inventory.NewService(inventory.NewRepository(dbpool), auditLogger)
	procurementService := procurement.NewService(procurement.NewRepository(dbpool), inventoryService, nil, auditLogger, idempotencyStore, nil, nil)
	vendorsService := vendors.NewService(vendors.NewRepository(dbpool))
	sitesService := sites.NewService(sites.NewRepository(dbpool))
	usersService := users.NewService(users.NewRepository(dbpool))

	signer := storage.NewSigner(cfg.StorageBaseURL, []byte(cfg.StorageSecret))
	store, err := storage.NewDiskStore(cfg.StorageRoot)
	if err != nil {
		logger.Error("init object store", slog.Any("error", err))
		os.Exit(1)
	}

	mailer := jobs.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, store, logger)
	renderer := &jobs.PORenderer{
		Logger:    logger,
		Orders:    procurementService,
		Vendors:   vendorsService,
		Sites:     sitesService,
		Users:     usersService,
		Converter: report.NewClient(cfg.GotenbergURL),
		Sink:      store,
		Signer:    signer,
	}
	sweeper := &jobs.Sweeper{
		Logger:      logger,
		Procurement: procurementService,
		Age:         cfg.DraftSweepAge,
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeSendEmail, Handler: mailer.HandleSendEmail},
			{Type: jobs.TaskTypePORender, Handler: renderer.HandlePORender},
			{Type: jobs.TaskTypeDraftSweep, Handler: sweeper.HandleDraftSweep},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 2 * * *", Task: jobs.NewDraftSweepTask(), Options: []asynq.Option{asynq.MaxRetry(1)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
