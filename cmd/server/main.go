package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/rioprayoga/kasirpos/internal/api"
	"github.com/rioprayoga/kasirpos/internal/config"
	"github.com/rioprayoga/kasirpos/internal/domain/cashledger"
	"github.com/rioprayoga/kasirpos/internal/domain/recon"
	"github.com/rioprayoga/kasirpos/internal/domain/sales"
	"github.com/rioprayoga/kasirpos/internal/domain/shift"
	"github.com/rioprayoga/kasirpos/internal/domain/station"
	"github.com/rioprayoga/kasirpos/internal/domain/stockledger"
	"github.com/rioprayoga/kasirpos/internal/infra/db"
	httpx "github.com/rioprayoga/kasirpos/internal/infra/http"
	"github.com/rioprayoga/kasirpos/internal/infra/logger"
	"github.com/rioprayoga/kasirpos/internal/infra/notify"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/subosito/gotenv"
)

func runMigrations(dsn string) error {
	sqlDB, err := goose.OpenDBWithDriver("postgres", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()
	return goose.Up(sqlDB, "migrations")
}

func main() {
	_ = gotenv.Load()

	cfg, err := config.Load("config/example.yaml")
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.App.Env)

	if err := runMigrations(cfg.Postgres.DSN); err != nil {
		log.Error("migrations failed", "err", err)
		return
	}
	log.Info("migrations applied")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Error("db connect failed", "err", err)
		return
	}
	defer pool.Close()
	log.Info("db connected")

	var notifier notify.Notifier = notify.Noop{}
	if cfg.Telegram.Token != "" {
		tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.AdminChatID, log)
		if err != nil {
			log.Error("telegram init failed, alerts disabled", "err", err)
		} else {
			notifier = tg
		}
	}

	cashLedger := cashledger.NewLedger(cashledger.NewRepo(pool), cfg.Shift.AutoApproveCash)
	stockRepo := stockledger.NewRepo(pool)
	stationRepo := station.NewRepo(pool)
	salesReader := sales.NewPGReader(pool)
	shiftRepo := shift.NewRepo(pool)
	shiftMgr := shift.NewManager(shiftRepo, cashLedger, salesReader, notifier, log, cfg)
	summaryRepo := recon.NewSummaryRepo(pool)

	// Auth and tenant resolution live in the gateway in front of this
	// service; the engine trusts the identity headers it forwards.
	handler := api.NewHandler(log, shiftMgr, cashLedger, stockRepo, stationRepo, summaryRepo)

	srv := httpx.New(cfg.HTTP.Addr, cfg.Metrics.Enabled, handler)
	go func() {
		if err := srv.Start(); err != nil && err.Error() != "http: Server closed" {
			log.Error("http server error", "err", err)
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr)

	waitForShutdown(ctx, srv, log)
}

func waitForShutdown(ctx context.Context, srv *httpx.Server, log *slog.Logger) {
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("graceful shutdown complete")
}
