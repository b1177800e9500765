package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ashare/internal/api"
	"ashare/internal/cache"
	"ashare/internal/config"
	"ashare/internal/database"
	"ashare/internal/logger"
	"ashare/internal/market/store"
	"ashare/internal/monitoring"
	"ashare/internal/panel"
	"ashare/internal/sector/screener"
	"ashare/internal/sector/workflow"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "配置文件路径")
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

	metrics := monitoring.NewMetrics()

	wfCfg := workflow.DefaultConfig
	wfCfg.BaseValue = cfg.Index.BaseValue
	wfCfg.HistoryDays = cfg.Index.HistoryDays
	wfCfg.MaxChainDays = cfg.Index.MaxChainDays
	wf := workflow.New(st, builder, scr, metrics, wfCfg, appLog)

	server := api.NewServer(cfg, db, st, wf, metrics, appLog)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		appLog.Fatal("API server exited", "error", err)
	}
}
