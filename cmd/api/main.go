package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "jacow_reports/internal/adapters/http_server"
	"jacow_reports/internal/adapters/jacowapi"
	"jacow_reports/internal/adapters/observability"
	redisad "jacow_reports/internal/adapters/redis"
	"jacow_reports/internal/app"
	"jacow_reports/internal/shared"
	mysqlrepo "jacow_reports/internal/storage/mysql"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "api", cfg.LogLevel)

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()
	if err := cache.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("redis unavailable, statistics will not be cached")
	}
	lists, err := jacowapi.NewMailingLists(cfg.ListsBase, cfg.ListsKey, cfg.APIRate)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize mailing-list client")
	}

	handlers := &server.Handlers{
		Stats:        app.NewStatisticsService(repo, cache, cfg.CacheTTL),
		Export:       app.NewExportService(repo, cfg.BaseURL),
		Lists:        app.NewMailingListService(lists, cache, cfg.CacheTTL),
		Affiliations: app.NewAffiliationService(repo),
		Managers:     app.NewPeerReviewManagerService(repo),
	}

	// http
	reg := observability.InitRegistry()
	srv := server.New(repo)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(handlers)

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}
