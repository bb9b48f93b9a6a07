package main

import (
	"context"
	"database/sql"
	"flag"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"jacow_reports/internal/adapters/jacowapi"
	"jacow_reports/internal/adapters/observability"
	"jacow_reports/internal/app"
	"jacow_reports/internal/shared"
	mysqlrepo "jacow_reports/internal/storage/mysql"
)

func main() {
	once := flag.Bool("once", false, "run a single sync and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "profilesync", cfg.LogLevel)
	observability.Serve(cfg.MetricsAddr, observability.InitRegistry())

	log.Info().
		Str("directory", cfg.DirBase).
		Str("provider", cfg.SyncProvider).
		Int("workers", cfg.SyncWorkers).
		Dur("interval", cfg.SyncInterval).
		Msg("profile sync starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	dir, err := jacowapi.NewDirectory(cfg.DirBase, cfg.DirKey, cfg.APIRate)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize directory client")
	}
	svc := app.NewProfileSyncService(mysqlrepo.New(db), dir, cfg.SyncProvider, cfg.SyncWorkers)

	run := func() {
		start := time.Now()
		rep, err := svc.Run(ctx)
		if err != nil {
			log.Error().Err(err).Str("run", rep.RunID).Msg("profile sync failed")
			return
		}
		log.Info().Str("run", rep.RunID).Dur("took", time.Since(start)).Msg("profile sync done")
	}

	run()
	if *once {
		return
	}
	ticker := time.NewTicker(cfg.SyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("profile sync stopped")
			return
		case <-ticker.C:
			run()
		}
	}
}
