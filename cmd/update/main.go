package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"ashare/internal/cache"
	"ashare/internal/config"
	"ashare/internal/database"
	"ashare/internal/logger"
	"ashare/internal/market"
	"ashare/internal/market/calendar"
	"ashare/internal/market/store"
	"ashare/internal/monitoring"
	"ashare/internal/panel"
	"ashare/internal/sector/screener"
	"ashare/internal/sector/workflow"
)

// cmd/update 日常维护：把已发布的指数增量推进到最新行情。
// 默认单次运行；--schedule 模式按 cron 表达式在收盘后定时运行。
func main() {
	var (
		configPath = flag.String("config", "configs/config.yaml", "配置文件路径")
		schedule   = flag.Bool("schedule", false, "按配置的 cron 表达式常驻运行")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("加载配置文件失败: %v", err)
	}

	logger.Init(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		Filename:   cfg.Logging.Filename,
		MaxSize:    cfg.Logging.MaxSize,
		MaxAge:     cfg.Logging.MaxAge,
		MaxBackups: cfg.Logging.MaxBackups,
		Compress:   cfg.Logging.Compress,
	})
	appLog := logger.Global()

	db, err := database.NewConnection(&database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpen:         cfg.Database.MaxOpen,
		MaxIdle:         cfg.Database.MaxIdle,
		Timeout:         cfg.Database.Timeout,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		appLog.Fatal("failed to connect to database", "error", err)
	}
	defer db.Close()

	cacher := cache.NewCacher(&cache.Config{
		Enabled:  cfg.Redis.Enabled,
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	defer cacher.Close()

	st := store.New(db.DB, cacher)
	builder := panel.NewBuilder(st, appLog)
	scr := screener.New(st, st, builder, cacher, screener.Config{
		TurnoverWindow:  cfg.Screener.TurnoverWindow,
		BurstLookback:   cfg.Screener.BurstLookback,
		BurstMultiplier: cfg.Screener.BurstMultiplier,
		SelectRatio:     cfg.Screener.SelectRatio,
		MinSelect:       cfg.Screener.MinSelect,
		SOEBonus:        cfg.Screener.SOEBonus,
		HighPriceBonus:  cfg.Screener.HighPriceBonus,
	}, appLog)

	wfCfg := workflow.DefaultConfig
	wfCfg.BaseValue = cfg.Index.BaseValue
	wfCfg.HistoryDays = cfg.Index.HistoryDays
	wfCfg.MaxChainDays = cfg.Index.MaxChainDays
	wf := workflow.New(st, builder, scr, monitoring.NewMetrics(), wfCfg, appLog)

	cal, err := calendar.Load(cfg.Calendar.HolidayFile)
	if err != nil {
		appLog.Fatal("failed to load trading calendar", "error", err)
	}

	if !*schedule {
		runOnce(context.Background(), wf, appLog)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := cron.New()
	_, err = c.AddFunc(cfg.Scheduler.Spec, func() {
		// 节假日收盘后没有新行情，跳过这次调度
		if now := time.Now(); !cal.IsTradingDay(now) {
			appLog.Info("not a trading day, skipping scheduled run",
				"next_trading_day", market.FormatDate(cal.NextTradingDay(now)))
			return
		}
		runOnce(ctx, wf, appLog)
	})
	if err != nil {
		appLog.Fatal("invalid cron spec", "spec", cfg.Scheduler.Spec, "error", err)
	}

	appLog.Info("maintenance scheduler started", "spec", cfg.Scheduler.Spec)
	c.Start()
	<-ctx.Done()

	stopCtx := c.Stop()
	<-stopCtx.Done()
	appLog.Info("maintenance scheduler stopped")
}

func runOnce(ctx context.Context, wf *workflow.Workflow, appLog logger.Logger) {
	summary, err := wf.UpdateAll(ctx)
	if err != nil {
		appLog.Error("maintenance run failed", "error", err)
		return
	}
	for _, failure := range summary.Failures {
		appLog.Warn("maintenance failure",
			"index_code", failure.IndexCode, "reason", failure.Reason)
	}
}
