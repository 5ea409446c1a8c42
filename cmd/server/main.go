package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/vuducphuong1603/app-thienan-web-v2-sub000/internal/app"
	"github.com/vuducphuong1603/app-thienan-web-v2-sub000/internal/attendance"
	"github.com/vuducphuong1603/app-thienan-web-v2-sub000/internal/config"
	"github.com/vuducphuong1603/app-thienan-web-v2-sub000/internal/db"
	"github.com/vuducphuong1603/app-thienan-web-v2-sub000/internal/jobs"
	"github.com/vuducphuong1603/app-thienan-web-v2-sub000/internal/logging"
	"github.com/vuducphuong1603/app-thienan-web-v2-sub000/internal/observability"
)

const release = "thienan-api@dev"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, relying on the environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer lg.Closer()

	flushSentry, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, release)
	if err != nil {
		lg.Sugar.Warnw("sentry init failed", "err", err)
	}
	defer flushSentry()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		lg.Base.Fatal("db connect", zap.Error(err))
	}
	defer func() { _ = database.Close() }()

	if err := db.Migrate(database); err != nil {
		lg.Base.Fatal("db migrate", zap.Error(err))
	}
	if err := db.Seed(ctx, database, cfg.ParishName, time.Now().In(cfg.Location)); err != nil {
		lg.Base.Fatal("db seed", zap.Error(err))
	}

	svc := attendance.NewService(database)
	api := app.NewAPI(database, svc, lg.Base, cfg.Location, cfg.DefaultTotalWeeks, cfg.ParishName)
	app.StartHTTP(ctx, cfg.HTTPAddr, database, api)
	lg.Sugar.Infow("http server started", "addr", cfg.HTTPAddr, "env", cfg.Env)

	runner := jobs.New(ctx)
	runner.Every(24*time.Hour, "reconcile_tallies", jobs.ReconcileTallies(database, lg.Base))
	runner.Every(24*time.Hour, "schoolyear_rollover", jobs.SchoolYearRollover(database, lg.Base, func() time.Time {
		return time.Now().In(cfg.Location)
	}))

	<-ctx.Done()
	lg.Sugar.Info("shutting down")
}
