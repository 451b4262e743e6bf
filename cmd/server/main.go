package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"sipro/internal/auth"
	"sipro/internal/directory"
	"sipro/internal/notification"
	"sipro/internal/platform/config"
	"sipro/internal/platform/httpserver"
	"sipro/internal/platform/logger"
	"sipro/internal/platform/middleware"
	"sipro/internal/platform/postgres"
	protocolhandler "sipro/internal/protocol/handler"
	protocolmetrics "sipro/internal/protocol/metrics"
	protocolservice "sipro/internal/protocol/service"
	protocolstore "sipro/internal/protocol/store"
)

const emailQueueSize = 256

// main wires the storage backends, the lifecycle engine, and the HTTP API,
// then runs the server next to the email worker until a signal arrives.
// Business logic lives in the internal services.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage: Postgres when configured, in-memory otherwise.
	var (
		protocols  protocolstore.ProtocolStore
		ledger     protocolstore.RoutingLedger
		tx         protocolstore.Tx
		sectors    directory.SectorStore
		users      directory.UserStore
		docTypes   directory.DocumentTypeStore
		notifStore notification.Store
	)
	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("database connection failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		pgStore := protocolstore.NewPostgresStore(db)
		protocols, ledger = pgStore, pgStore
		tx = protocolstore.NewPostgresTx(db)
		sectors = directory.NewPostgresSectorStore(db)
		users = directory.NewPostgresUserStore(db)
		docTypes = directory.NewPostgresDocumentTypeStore(db)
		notifStore = notification.NewPostgresStore(db)
	} else {
		log.Warn("no SIPRO_DATABASE_URL set, using in-memory storage")
		memStore := protocolstore.NewInMemoryStore()
		protocols, ledger = memStore, memStore
		tx = protocolstore.NewInMemoryTx()
		sectors = directory.NewInMemorySectorStore()
		users = directory.NewInMemoryUserStore()
		docTypes = directory.NewInMemoryDocumentTypeStore()
		notifStore = notification.NewInMemoryStore()
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Error("redis ping failed", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
	}
	unreadCache := notification.NewUnreadCache(redisClient)

	mail := make(chan notification.EmailJob, emailQueueSize)
	sender := notification.NewSMTPSender(cfg.SMTP)
	worker := notification.NewWorker(sender, mail, log)

	dispatcher := notification.NewDispatcher(notifStore, users, unreadCache, mail, log)
	inbox := notification.NewService(notifStore, unreadCache, log)

	jwtService := auth.NewJWTService(cfg.JWTSigningKey, "sipro")
	authService := auth.NewService(users, jwtService)
	directoryService := directory.NewService(sectors, users, docTypes, auth.HashCredential)

	engine := protocolservice.New(
		protocols, ledger, users, sectors, docTypes, auth.CredentialVerifier{},
		protocolservice.WithLogger(log),
		protocolservice.WithMetrics(protocolmetrics.New()),
		protocolservice.WithNotifier(dispatcher, notifStore),
		protocolservice.WithTx(tx),
	)

	if err := directory.Seed(ctx, directoryService, users, log); err != nil {
		log.Error("seeding failed", "error", err)
		os.Exit(1)
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestTime)
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logger(log))
	router.Use(middleware.Timeout(30 * time.Second))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	auth.NewHandler(authService, log).Register(router)
	protocolhandler.New(engine, jwtService, log).Register(router)
	notification.NewHandler(inbox, jwtService, log).Register(router)
	directory.NewHandler(directoryService, jwtService, log).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting sipro", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		err := worker.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}
