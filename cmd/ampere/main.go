package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ampere-erp/ampere-erp/internal/app"
	"github.com/ampere-erp/ampere-erp/internal/auth"
	"github.com/ampere-erp/ampere-erp/internal/inventory"
	"github.com/ampere-erp/ampere-erp/internal/masterdata/sites"
	"github.com/ampere-erp/ampere-erp/internal/masterdata/vendors"
	"github.com/ampere-erp/ampere-erp/internal/notes"
	"github.com/ampere-erp/ampere-erp/internal/notify"
	"github.com/ampere-erp/ampere-erp/internal/observability"
	"github.com/ampere-erp/ampere-erp/internal/platform/cache"
	"github.com/ampere-erp/ampere-erp/internal/platform/db"
	"github.com/ampere-erp/ampere-erp/internal/procurement"
	"github.com/ampere-erp/ampere-erp/internal/rbac"
	"github.com/ampere-erp/ampere-erp/internal/shared"
	"github.com/ampere-erp/ampere-erp/internal/storage"
	"github.com/ampere-erp/ampere-erp/internal/users"
	"github.com/ampere-erp/ampere-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis connect", slog.Any("error", err))
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	verifier, err := auth.NewVerifier([]byte(cfg.AuthPublicKeyPEM), cfg.AuthIssuer)
	if err != nil {
		logger.Error("parse auth public key", slog.Any("error", err))
		os.Exit(1)
	}
	oidcHandler := auth.NewOIDCHandler(cfg.AuthIssuer, cfg.AuthKeyID, verifier.PublicKey())

	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)
	rbacMiddleware := rbac.Middleware{Logger: logger}

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo)
	usersHandler := users.NewHandler(logger, usersService, rbacMiddleware)

	authMiddleware := auth.Middleware{Verifier: verifier, Resolver: usersService, Logger: logger}

	vendorsService := vendors.NewService(vendors.NewRepository(dbpool))
	vendorsHandler := vendors.NewHandler(logger, vendorsService, rbacMiddleware)
	sitesService := sites.NewService(sites.NewRepository(dbpool))
	sitesHandler := sites.NewHandler(logger, sitesService, rbacMiddleware)

	inventoryService := inventory.NewService(inventory.NewRepository(dbpool), auditLogger)
	inventoryHandler := inventory.NewHandler(logger, inventoryService, rbacMiddleware)

	notifyService := notify.NewService(logger, notify.NewRepository(dbpool), usersService, redisClient)
	notifyHandler := notify.NewHandler(logger, notifyService)

	jobsClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	procurementService := procurement.NewService(procurement.NewRepository(dbpool), inventoryService, notifyService, auditLogger, idempotencyStore, jobsClient, vendorsService)
	procurementHandler := procurement.NewHandler(logger, procurementService, rbacMiddleware)

	notesService := notes.NewService(notes.NewRepository(dbpool))
	notesHandler := notes.NewHandler(logger, notesService)

	signer := storage.NewSigner(cfg.StorageBaseURL, []byte(cfg.StorageSecret))
	store, err := storage.NewDiskStore(cfg.StorageRoot)
	if err != nil {
		logger.Error("init object store", slog.Any("error", err))
		os.Exit(1)
	}
	storageHandler := storage.NewHandler(logger, signer, store)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		AuthMiddleware:     authMiddleware,
		OIDCHandler:        oidcHandler,
		UsersHandler:       usersHandler,
		VendorsHandler:     vendorsHandler,
		SitesHandler:       sitesHandler,
		InventoryHandler:   inventoryHandler,
		ProcurementHandler: procurementHandler,
		NotifyHandler:      notifyHandler,
		NotesHandler:       notesHandler,
		StorageHandler:     storageHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
