package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/pollwinner/backend/internal/admin"
	"github.com/pollwinner/backend/internal/auth"
	"github.com/pollwinner/backend/internal/config"
	"github.com/pollwinner/backend/internal/db"
	"github.com/pollwinner/backend/internal/ledger"
	"github.com/pollwinner/backend/internal/payments"
	"github.com/pollwinner/backend/internal/poll"
	"github.com/pollwinner/backend/internal/router"
	"github.com/pollwinner/backend/internal/settlement"
	"github.com/pollwinner/backend/internal/wallet"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("cannot reach PostgreSQL, ensure it is running", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	slog.Info("connected to PostgreSQL")

	if err := db.CreateSchema(ctx, pool); err != nil {
		slog.Error("schema setup failed", "error", err)
		os.Exit(1)
	}

	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		slog.Error("failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("River migrate up failed", "error", err)
		os.Exit(1)
	}

	// Payments: gateway plus the reconciliation worker behind River.
	gateway := payments.NewCashfreeClient(cfg.CashfreeEnv, cfg.CashfreeClientID, cfg.CashfreeClientSecret)
	paymentsRepo := payments.NewRepository(pool)
	authRepo := auth.NewRepository(pool)

	workers := river.NewWorkers()
	river.AddWorker(workers, payments.NewReconcileWorker(gateway, paymentsRepo, logger))
	river.AddWorker(workers, auth.NewCleanupWorker(authRepo, logger))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 10},
		},
		Workers: workers,
		PeriodicJobs: []*river.PeriodicJob{
			river.NewPeriodicJob(
				river.PeriodicInterval(24*time.Hour),
				func() (river.JobArgs, *river.InsertOpts) {
					return auth.CleanupSessionsArgs{}, nil
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
		},
	})
	if err != nil {
		slog.Error("failed to create River client", "error", err)
		os.Exit(1)
	}

	enqueueReconcile := func(ctx context.Context, orderID string) error {
		_, err := riverClient.Insert(ctx, payments.ReconcilePurchaseArgs{OrderID: orderID}, &river.InsertOpts{
			// Give the webhook a head start before polling the gateway.
			ScheduledAt: time.Now().Add(2 * time.Minute),
		})
		return err
	}

	// Feature services, wired explicitly.
	identity := auth.NewIdentityClient(cfg.IdentityBaseURL)
	authSvc := auth.NewService(authRepo, identity)
	authHandler := auth.NewHandler(authSvc, logger)

	adminRepo := admin.NewRepository(pool)
	adminSvc := admin.NewService(adminRepo, cfg.JWTSecret)
	adminHandler := admin.NewHandler(adminSvc, adminRepo, logger)

	pollRepo := poll.NewRepository(pool)
	pollSvc := poll.NewService(pollRepo)
	pollHandler := poll.NewHandler(pollSvc, logger)

	ledgerRepo := ledger.NewRepository(pool)
	ledgerSvc := ledger.NewService(ledgerRepo)
	ledgerHandler := ledger.NewHandler(ledgerSvc, pollSvc, logger)

	settleRepo := settlement.NewRepository(pool)
	settleEngine := settlement.NewEngine(settleRepo, settleRepo, settleRepo, settleRepo, settleRepo, logger)
	settleHandler := settlement.NewHandler(settleEngine, logger)

	walletRepo := wallet.NewRepository(pool)
	walletSvc := wallet.NewService(walletRepo, logger)
	walletHandler := wallet.NewHandler(walletSvc, walletRepo, logger)

	paymentsSvc := payments.NewService(gateway, paymentsRepo, pollSvc, enqueueReconcile,
		cfg.PublicBaseURL, cfg.AutoApproveOnGatewayFailure, logger)
	paymentsHandler := payments.NewHandler(paymentsSvc, logger)

	apiHandler := router.New(router.Handlers{
		Auth:       authHandler,
		Admin:      adminHandler,
		Poll:       pollHandler,
		Ledger:     ledgerHandler,
		Settlement: settleHandler,
		Wallet:     walletHandler,
		Payments:   paymentsHandler,
	}, authSvc, adminSvc, cfg.AdminPanelDir)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(apiHandler)

	go func() {
		if err := riverClient.Start(ctx); err != nil && ctx.Err() == nil {
			slog.Error("River client stopped", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:    "0.0.0.0:" + cfg.Port,
		Handler: corsHandler,
	}
	go func() {
		slog.Info("starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown", "error", err)
	}
	if err := riverClient.Stop(shutdownCtx); err != nil {
		slog.Error("river shutdown", "error", err)
	}
}
