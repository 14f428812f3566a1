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

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	licensehandler "keygate/internal/license/handler"
	licensemetrics "keygate/internal/license/metrics"
	"keygate/internal/license/service"
	"keygate/internal/license/store"
	memorystore "keygate/internal/license/store/memory"
	postgresstore "keygate/internal/license/store/postgres"
	"keygate/internal/notify"
	notifymetrics "keygate/internal/notify/metrics"
	"keygate/internal/payment/stripe"
	"keygate/internal/platform/config"
	"keygate/internal/platform/httpserver"
	"keygate/internal/platform/kafka"
	"keygate/internal/platform/logger"
	"keygate/internal/platform/metrics"
	platformredis "keygate/internal/platform/redis"
	"keygate/internal/ratelimit"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in internal/license.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if cfg.WebhookSecret == "" {
		log.Error("KEYGATE_WEBHOOK_SECRET is required; refusing to accept unsigned purchase events")
		os.Exit(1)
	}

	licenseStore, closeStore, err := buildStore(cfg, log)
	if err != nil {
		log.Error("store setup failed", "error", err.Error())
		os.Exit(1)
	}
	defer closeStore()

	dispatcher, closeDispatcher, err := buildDispatcher(cfg, log)
	if err != nil {
		log.Error("dispatcher setup failed", "error", err.Error())
		os.Exit(1)
	}
	defer closeDispatcher()

	verifier := stripe.NewVerifier(cfg.WebhookSecret, cfg.SignatureTolerance)

	licenses := service.New(licenseStore, verifier,
		service.WithLogger(log),
		service.WithMetrics(licensemetrics.New()),
		service.WithDispatcher(dispatcher),
	)

	httpMetrics := metrics.New()
	handlerOpts := []licensehandler.Option{
		licensehandler.WithAdminJWTKey(cfg.AdminJWTKey),
	}
	if mw := buildRateLimit(cfg, log); mw != nil {
		handlerOpts = append(handlerOpts, licensehandler.WithRateLimit(mw))
	}

	router := chi.NewRouter()
	licensehandler.New(licenses, log, httpMetrics, handlerOpts...).Register(router)

	srv := httpserver.New(cfg.Addr, router)
	metricsSrv := httpserver.New(cfg.MetricsAddr, promhttp.Handler())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting keygate", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("serving metrics", "addr", cfg.MetricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err.Error())
		os.Exit(1)
	}
}

func buildStore(cfg config.Config, log *slog.Logger) (store.Store, func(), error) {
	if cfg.PostgresDSN == "" {
		log.Warn("no postgres DSN configured, using non-persistent in-memory store")
		return memorystore.NewInMemoryStore(), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, err
	}
	return postgresstore.New(db), func() { db.Close() }, nil
}

func buildDispatcher(cfg config.Config, log *slog.Logger) (notify.Dispatcher, func(), error) {
	nm := notifymetrics.New()
	if len(cfg.KafkaBrokers) == 0 {
		log.Warn("no kafka brokers configured, notifications will only be logged")
		return notify.NewLogDispatcher(log, nm), func() {}, nil
	}

	producer, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.NotifyTopic)
	if err != nil {
		return nil, nil, err
	}
	return notify.NewKafkaDispatcher(producer, log, nm), producer.Close, nil
}

func buildRateLimit(cfg config.Config, log *slog.Logger) func(http.Handler) http.Handler {
	if cfg.ValidateRateLimit <= 0 {
		return nil
	}

	var windows ratelimit.WindowStore
	if client, err := platformredis.New(cfg.RedisURL); err != nil {
		log.Warn("redis unavailable, using in-process rate limiter", "error", err.Error())
		windows = ratelimit.NewInMemoryStore()
	} else if client == nil {
		windows = ratelimit.NewInMemoryStore()
	} else {
		windows = ratelimit.NewRedisStore(client)
	}

	return ratelimit.New(windows, cfg.ValidateRateLimit, cfg.ValidateRateWindow, log).Middleware
}
