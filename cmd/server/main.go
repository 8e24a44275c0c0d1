package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"ballotbox/internal/audit"
	ballothandler "ballotbox/internal/ballot/handler"
	ballotservice "ballotbox/internal/ballot/service"
	ballotstore "ballotbox/internal/ballot/store"
	electionhandler "ballotbox/internal/election/handler"
	electionservice "ballotbox/internal/election/service"
	electionstore "ballotbox/internal/election/store"
	identityhandler "ballotbox/internal/identity/handler"
	identityservice "ballotbox/internal/identity/service"
	identitystore "ballotbox/internal/identity/store"
	"ballotbox/internal/identity/store/revocation"
	"ballotbox/internal/jwttoken"
	"ballotbox/internal/platform/config"
	"ballotbox/internal/platform/filestore"
	"ballotbox/internal/platform/httpserver"
	"ballotbox/internal/platform/logger"
	"ballotbox/internal/platform/metrics"
	"ballotbox/internal/platform/postgres"
	"ballotbox/internal/platform/redis"
	httptransport "ballotbox/internal/transport/http"
)

// main wires dependencies and owns the server lifecycle. Business logic
// lives in the internal service packages.
func main() {
	// Optional in development; production injects real environment.
	_ = godotenv.Load()

	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores: Postgres when configured, in-memory otherwise.
	var (
		accounts   identitystore.AccountStore
		elections  electionstore.ElectionStore
		ballots    ballotstore.BallotStore
		auditStore audit.Store
	)
	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.CreateSchema(db); err != nil {
			return err
		}
		accounts = identitystore.NewPostgres(db)
		elections = electionstore.NewPostgres(db)
		ballots = ballotstore.NewPostgres(db)
		auditStore = audit.NewPostgres(db)
		log.Info("using postgres stores")
	} else {
		accounts = identitystore.NewInMemory()
		elections = electionstore.NewInMemory()
		ballots = ballotstore.NewInMemory()
		auditStore = audit.NewInMemory()
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	// Token revocation: Redis-backed when configured.
	var revocations revocation.TokenRevocationList = revocation.NewInMemory()
	redisClient, err := redis.New(cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		revocations = revocation.NewRedisTRL(redisClient.Client)
		log.Info("using redis token revocation list")
	}

	// Audit trail: durable store, with an optional buffered Kafka fan-out.
	publisherOpts := []audit.PublisherOption{audit.WithLogger(log)}
	if cfg.AuditKafkaAddrs != "" {
		kafkaSink, err := audit.NewKafkaSink(strings.Split(cfg.AuditKafkaAddrs, ","), cfg.AuditKafkaTopic)
		if err != nil {
			return err
		}
		buffered := audit.NewBufferedSink(kafkaSink, 0, log)
		go func() {
			if err := buffered.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit sink stopped", "error", err)
			}
		}()
		publisherOpts = append(publisherOpts, audit.WithSink(buffered))
		log.Info("audit events forwarded to kafka", "topic", cfg.AuditKafkaTopic)
	}
	publisher := audit.NewPublisher(auditStore, publisherOpts...)
	defer publisher.Close()

	files, err := filestore.NewDisk(cfg.UploadDir)
	if err != nil {
		return err
	}

	m := metrics.New()
	tokens := jwttoken.NewService(cfg.JWTSigningKey, "ballotbox", "ballotbox")

	identitySvc := identityservice.New(accounts, tokens, revocations,
		identityservice.WithLogger(log),
		identityservice.WithAuditPublisher(publisher),
		identityservice.WithMetrics(m),
		identityservice.WithAdminCode(cfg.AdminCode),
		identityservice.WithTokenTTL(cfg.TokenTTL),
	)
	electionSvc := electionservice.New(elections, identitySvc, ballots,
		electionservice.WithLogger(log),
		electionservice.WithAuditPublisher(publisher),
	)
	ballotSvc := ballotservice.New(ballots, elections, accounts,
		ballotservice.WithLogger(log),
		ballotservice.WithAuditPublisher(publisher),
		ballotservice.WithMetrics(m),
	)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:       log,
		Identity:     identityhandler.New(identitySvc, files, log),
		Elections:    electionhandler.New(electionSvc, log),
		Ballots:      ballothandler.New(ballotSvc, log),
		JWTValidator: jwttoken.NewMiddlewareAdapter(tokens),
		Revocations:  revocations,
	})

	srv := httpserver.New(cfg.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting ballotbox", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
