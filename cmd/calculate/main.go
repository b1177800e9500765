package main

import (
	"context"
	"flag"
	"log"
	"strings"
	"time"

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

// cmd/calculate 冷启动：对板块目录做全量指数计算并落库。
func main() {
	var (
		configPath = flag.String("config", "configs/config.yaml", "配置文件路径")
		sectors    = flag.String("sectors", "", "板块代码，逗号分隔；为空时构建全部板块")
		endDate    = flag.String("end", "", "计算截止日期 (YYYY-MM-DD)；为空时使用库内最新交易日")
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

	ctx := context.Background()

	end, err := resolveEndDate(ctx, st, *endDate)
	if err != nil {
		appLog.Fatal("failed to resolve end date", "error", err)
	}

	cal, err := calendar.Load(cfg.Calendar.HolidayFile)
	if err != nil {
		appLog.Fatal("failed to load trading calendar", "error", err)
	}
	if !cal.IsTradingDay(end) {
		appLog.Warn("end date is not a trading day", "end_date", market.FormatDate(end))
	}

	started := time.Now()
	var written int

	if *sectors == "" {
		written, err = wf.BuildCatalog(ctx, end)
		if err != nil {
			appLog.Fatal("catalog build failed", "error", err)
		}
	} else {
		all, err := st.GetSectors(ctx)
		if err != nil {
			appLog.Fatal("failed to list sectors", "error", err)
		}
		byCode := make(map[string]market.Sector, len(all))
		for _, s := range all {
			byCode[s.Code] = s
		}

		for _, code := range strings.Split(*sectors, ",") {
			code = strings.TrimSpace(code)
			sector, ok := byCode[code]
			if !ok {
				appLog.Warn("unknown sector, skipping", "sector", code)
				continue
			}
			n, err := wf.BuildSector(ctx, sector, end)
			if err != nil {
				appLog.Error("sector build failed", "sector", code, "error", err)
				continue
			}
			written += n
		}
	}

	windowStart := end.AddDate(0, 0, -cfg.Index.HistoryDays)
	appLog.Info("cold-start build finished",
		"indexes_written", written,
		"end_date", market.FormatDate(end),
		"trading_days_in_window", len(cal.TradingDays(windowStart, end)),
		"duration", time.Since(started))
}

func resolveEndDate(ctx context.Context, st *store.Store, raw string) (time.Time, error) {
	if raw != "" {
		return market.ParseDate(raw)
	}
	latest, ok, err := st.LatestTradeDate(ctx)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return time.Now().UTC(), nil
	}
	return latest, nil
}
