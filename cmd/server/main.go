// @title                       Village Outage Alerts API
// @version                     1.0
// @description                 Power-outage reporting and SMS alerting for villages.
// @BasePath                    /
// @securityDefinitions.apikey  TokenAuth
// @in                          header
// @name                        Authorization
// @description                 Session token as "Token <token>" or "Bearer <token>".
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/villagegrid/outage-alerts/internal/api"
	"github.com/villagegrid/outage-alerts/internal/api/handler"
	"github.com/villagegrid/outage-alerts/internal/core/service"
	"github.com/villagegrid/outage-alerts/internal/infrastructure/config"
	"github.com/villagegrid/outage-alerts/internal/infrastructure/queue"
	"github.com/villagegrid/outage-alerts/internal/infrastructure/sms"
	"github.com/villagegrid/outage-alerts/internal/infrastructure/storage"
	"github.com/villagegrid/outage-alerts/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx := context.Background()

	// 1. Load configuration
	cfg, err := config.Load(ctx)
	if err != nil {
		log := logger.Init(logger.Options{Level: "info"})
		log.Fatal().Err(err).Msg("load config")
	}

	// 2. Initialise logger
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "outage-alerts",
	})
	log.Info().Str("env", cfg.Env).Str("storage", cfg.StorageBackend).Msg("configuration loaded")

	// 3. Storage
	store, err := storage.Open(ctx, cfg, logger.Component("storage"))
	if err != nil {
		log.Fatal().Err(err).Msg("open storage")
	}

	// 4. Services
	identity := service.NewIdentityService(store.Users, store.Villages, store.Sessions, store.Idempotency,
		service.IdentityConfig{
			JWTSecret:           cfg.Auth.JWTSecret,
			SessionTTL:          cfg.Auth.SessionTTL,
			BcryptCost:          cfg.Auth.BcryptCost,
			AllowEmployeeSignup: cfg.Auth.AllowEmployeeSignup,
			IdempotencyTTL:      cfg.Auth.IdempotencyTTL,
		}, logger.Component("identity"))
	villages := service.NewVillageService(store.Villages, logger.Component("villages"))

	// 5. Notification pipeline, stopped by workerCancel
	workerCtx, workerCancel := context.WithCancel(ctx)
	defer workerCancel()

	sender := sms.New(cfg.SMS.APIKey, cfg.SMS.BaseURL, logger.Component("sms"))
	dispatcher := queue.NewDispatcher(sender, store.Deliveries, queue.Options{
		Workers:     cfg.Notify.Workers,
		MaxAttempts: cfg.Notify.MaxAttempts,
		BaseBackoff: cfg.Notify.BaseBackoff,
		SendTimeout: cfg.Notify.SendTimeout,
	}, logger.Component("dispatcher"))
	dispatcher.Start(workerCtx)

	notifier := service.NewNotifier(store.Users, dispatcher, store.Deliveries, cfg.Location(), 0, logger.Component("notifier"))
	notifier.Start(workerCtx)
	log.Info().Int("workers", cfg.Notify.Workers).Msg("notification workers started")

	ledger := service.NewOutageLedger(store.Outages, store.Villages)
	outages := service.NewOutageService(ledger, store.Villages, notifier, logger.Component("outages"))

	// 6. Router & HTTP server
	ready := make([]handler.Dependency, 0, len(store.Probes))
	for _, p := range store.Probes {
		ready = append(ready, handler.Dependency{Name: p.Name, Pinger: p.Pinger})
	}
	router := api.NewRouter(api.Deps{
		Identity: identity,
		Villages: villages,
		Outages:  outages,
		Ready:    ready,
		Log:      logger.Component("http"),
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 7. Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Str("port", cfg.Port).Msg("listen")
		}
	}()

	<-stop

	log.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	workerCancel()
	store.Close(shutdownCtx)

	log.Info().Msg("server and workers stopped")
}
