package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"tutela/internal/audit"
	"tutela/internal/consent"
	consenthandler "tutela/internal/consent/handler"
	"tutela/internal/deletion"
	deletionhandler "tutela/internal/deletion/handler"
	"tutela/internal/export"
	exporthandler "tutela/internal/export/handler"
	"tutela/internal/platform/config"
	"tutela/internal/platform/httpserver"
	"tutela/internal/platform/logger"
	"tutela/internal/platform/metrics"
	platformredis "tutela/internal/platform/redis"
	"tutela/internal/profile"
	"tutela/internal/request"
	requesthandler "tutela/internal/request/handler"
	"tutela/internal/stats"
	statshandler "tutela/internal/stats/handler"
	"tutela/internal/terms"
	termshandler "tutela/internal/terms/handler"
	httptransport "tutela/internal/transport/http"
	authmw "tutela/pkg/platform/middleware/auth"
	"tutela/pkg/platform/subjectlock"
	"tutela/pkg/platform/tx"
)

// stores groups one persistence choice for the whole engine: either all
// postgres or all memory, so the transaction runner matches the stores.
type stores struct {
	terms    terms.Store
	consent  consent.Store
	audit    audit.Store
	request  request.Store
	deletion deletion.Store
	profile  profile.Store
	runner   tx.Runner
}

func buildStores(cfg config.Config, log *slog.Logger) (stores, func(), error) {
	if cfg.PostgresURL == "" {
		log.Warn("no postgres URL configured; using in-memory stores")
		return stores{
			terms:    terms.NewInMemoryStore(),
			consent:  consent.NewInMemoryStore(),
			audit:    audit.NewInMemoryStore(),
			request:  request.NewInMemoryStore(),
			deletion: deletion.NewInMemoryStore(),
			profile:  profile.NewInMemoryStore(),
			runner:   tx.NoopRunner{},
		}, func() {}, nil
	}

	db, err := sql.Open("pgx", cfg.PostgresURL)
	if err != nil {
		return stores{}, nil, err
	}
	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return stores{}, nil, err
	}
	return stores{
		terms:    terms.NewPostgresStore(db),
		consent:  consent.NewPostgresStore(db),
		audit:    audit.NewPostgresStore(db),
		request:  request.NewPostgresStore(db),
		deletion: deletion.NewPostgresStore(db),
		profile:  profile.NewPostgresStore(db),
		runner:   tx.NewSQLRunner(db),
	}, func() { db.Close() }, nil
}

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	st, closeStores, err := buildStores(cfg, log)
	if err != nil {
		log.Error("store initialization failed", "error", err)
		os.Exit(1)
	}
	defer closeStores()

	m := metrics.New()
	locks := &subjectlock.Table{}

	// Audit trail, optionally mirrored to Kafka.
	auditOpts := []audit.Option{audit.WithMetrics(m)}
	var mirror *audit.KafkaMirror
	if len(cfg.Kafka.Brokers) > 0 {
		mirror, err = audit.NewKafkaMirror(cfg.Kafka, log)
		if err != nil {
			log.Error("kafka mirror initialization failed", "error", err)
			os.Exit(1)
		}
		defer mirror.Close()
		auditOpts = append(auditOpts, audit.WithMirror(mirror))
	}
	recorder := audit.NewRecorder(st.audit, log, auditOpts...)

	// Terms registry, optionally cached in Redis.
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis initialization failed", "error", err)
		os.Exit(1)
	}
	var registryOpts []terms.RegistryOption
	if redisClient != nil {
		defer redisClient.Close()
		registryOpts = append(registryOpts, terms.WithActiveCache(terms.NewActiveCache(redisClient.Client, log)))
	}
	registry := terms.NewRegistry(st.terms, recorder, st.runner, log, registryOpts...)

	ledger := consent.NewLedger(st.consent, registry, recorder, st.runner, locks, log, m)
	scheduler := deletion.NewScheduler(st.deletion, recorder, st.runner, locks, cfg.Policy, log, m,
		st.profile, ledger, nil)
	manager := request.NewManager(st.request, recorder, st.runner, locks, scheduler, cfg.Policy, log, m)
	scheduler.SetRequestPurger(manager)

	aggregator := export.NewAggregator(st.profile, ledger, manager, recorder, recorder, st.runner,
		cfg.Policy, log, export.WithMetrics(m))
	statsAgg := stats.NewAggregator(st.profile, ledger, manager, nil, cfg.Policy.ScoreWeights, log)

	router := httptransport.NewRouter(httptransport.Handlers{
		Consent:  consenthandler.New(ledger, log),
		Requests: requesthandler.New(manager, log),
		Deletion: deletionhandler.New(manager, scheduler, log),
		Export:   exporthandler.New(aggregator, log),
		Terms:    termshandler.New(registry, log),
		Stats:    statshandler.New(statsAgg, log),
	}, httptransport.Config{
		JWTValidator:   authmw.NewValidator(cfg.JWTSigningKey),
		AdminTokenHash: cfg.AdminTokenHash,
		Logger:         log,
	})

	sweeperCtx, stopSweeper := context.WithCancel(context.Background())
	sweeper := deletion.NewSweeper(scheduler, cfg.Policy.SweepInterval, log, m)
	sweeper.Start(sweeperCtx)

	srv := httpserver.New(cfg.Addr, router)
	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	stopSweeper()
	sweeper.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
