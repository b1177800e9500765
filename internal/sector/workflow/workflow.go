package workflow

import (
	"context"
	"time"

	"ashare/internal/logger"
	"ashare/internal/market"
	"ashare/internal/monitoring"
	"ashare/internal/panel"
	"ashare/internal/sector/index"
	"ashare/internal/sector/screener"
)

// Config holds workflow tuning parameters.
type Config struct {
	// BaseValue is the re-basing anchor value for cold-start calculations.
	BaseValue float64
	// HistoryDays is the calendar lookback of a cold-start panel.
	HistoryDays int
	// MaxChainDays bounds how many pending dates are extended incrementally
	// before a full recalculation is forced to resync rounding drift.
	MaxChainDays int
	// PanelBufferDays is the extra calendar lookback before the anchor date
	// when building an incremental panel, so the anchor row always has
	// prior-day weights even across long suspension gaps.
	PanelBufferDays int
	// MinRefinedSize is the smallest refined subset that still gets its own
	// sub-index.
	MinRefinedSize int
}

// DefaultConfig 默认参数
var DefaultConfig = Config{
	BaseValue:       1000,
	HistoryDays:     365,
	MaxChainDays:    120,
	PanelBufferDays: 15,
	MinRefinedSize:  3,
}

func (c *Config) applyDefaults() {
	if c.BaseValue <= 0 {
		c.BaseValue = DefaultConfig.BaseValue
	}
	if c.HistoryDays <= 0 {
		c.HistoryDays = DefaultConfig.HistoryDays
	}
	if c.MaxChainDays <= 0 {
		c.MaxChainDays = DefaultConfig.MaxChainDays
	}
	if c.PanelBufferDays <= 0 {
		c.PanelBufferDays = DefaultConfig.PanelBufferDays
	}
	if c.MinRefinedSize <= 0 {
		c.MinRefinedSize = DefaultConfig.MinRefinedSize
	}
}

// IndexStore is the persistence surface the workflow drives: pending work is
// read from the stock side and computed indexes are written back.
// *store.Store satisfies it.
type IndexStore interface {
	GetSectors(ctx context.Context) ([]market.Sector, error)
	LatestTradeDate(ctx context.Context) (time.Time, bool, error)
	TradeDatesAfter(ctx context.Context, after time.Time) ([]time.Time, error)
	LastIndexBar(ctx context.Context, indexCode string) (*market.IndexBar, bool, error)
	UpsertIndexBars(ctx context.Context, bars []market.IndexBar) error
	DeleteIndexBars(ctx context.Context, indexCode string) error
}

// Workflow drives sector index construction: screening constituents,
// cold-starting full histories and building refined sub-indexes.
type Workflow struct {
	store    IndexStore
	builder  *panel.Builder
	screener *screener.Screener
	metrics  *monitoring.Metrics
	cfg      Config
	log      logger.Logger
}

// New creates a workflow. Metrics may be nil.
func New(st IndexStore, builder *panel.Builder, scr *screener.Screener, metrics *monitoring.Metrics, cfg Config, log logger.Logger) *Workflow {
	cfg.applyDefaults()
	if log == nil {
		log = logger.Global()
	}
	return &Workflow{store: st, builder: builder, screener: scr, metrics: metrics, cfg: cfg, log: log}
}

// Store returns the underlying index store.
func (w *Workflow) Store() IndexStore {
	return w.store
}

// BuildSector cold-starts the parent index of a sector and all its refined
// sub-indexes: screens the representative constituents, computes the full
// weighted history re-based to the configured base value, and persists it.
// Returns the number of indexes written.
func (w *Workflow) BuildSector(ctx context.Context, sector market.Sector, endDate time.Time) (int, error) {
	symbols, err := w.screener.Screen(ctx, sector.Code, endDate)
	if err != nil {
		return 0, err
	}

	start := endDate.AddDate(0, 0, -w.cfg.HistoryDays)
	calc, err := index.NewCalculator(ctx, w.builder, sector.Code, sector.Name, symbols, start, endDate)
	if err != nil {
		return 0, err
	}

	if err := w.buildFull(ctx, calc); err != nil {
		return 0, err
	}
	written := 1

	// 细分子指数：基于父板块面板在最近交易日的属性切分，
	// 每个 (板块, 标签) 是独立的指数实例
	for _, tag := range AllRefinements {
		subset := applyRefinement(ctx, tag, calc.Panel(), w.builder.Source())
		if len(subset) < w.cfg.MinRefinedSize {
			continue
		}

		refCalc, err := index.NewCalculator(ctx, w.builder,
			RefinedIndexCode(sector.Code, tag), RefinedIndexName(sector.Name, tag),
			subset, start, endDate)
		if err != nil {
			w.log.Warn("refined index calculator failed", "sector", sector.Code, "tag", tag, "error", err)
			continue
		}
		if err := w.buildFull(ctx, refCalc); err != nil {
			w.log.Warn("refined index build failed", "sector", sector.Code, "tag", tag, "error", err)
			continue
		}
		written++
	}

	return written, nil
}

// buildFull runs a full calculation re-based at the first computable date
// and persists the result. The full series replaces whatever was published
// before: rows outside the new window carry the old basket and base scale,
// so they are deleted rather than left to splice onto the re-based series.
func (w *Workflow) buildFull(ctx context.Context, calc *index.Calculator) error {
	started := time.Now()

	dates := calc.Panel().Dates()
	if len(dates) < 2 {
		return nil
	}
	baseDate := dates[1]

	bars, err := calc.CalculateIndex(baseDate, w.cfg.BaseValue)
	if err != nil {
		return err
	}
	if len(bars) == 0 {
		return nil
	}
	if err := w.store.DeleteIndexBars(ctx, bars[0].IndexCode); err != nil {
		return err
	}
	if err := w.store.UpsertIndexBars(ctx, bars); err != nil {
		return err
	}

	if w.metrics != nil {
		w.metrics.ObserveCalculation("full", time.Since(started))
	}
	return nil
}

// BuildCatalog cold-starts every sector in the store. A sector that fails
// is logged and skipped; the rest of the catalog still builds.
func (w *Workflow) BuildCatalog(ctx context.Context, endDate time.Time) (int, error) {
	sectors, err := w.store.GetSectors(ctx)
	if err != nil {
		return 0, err
	}

	var written int
	for _, sector := range sectors {
		n, err := w.BuildSector(ctx, sector, endDate)
		if err != nil {
			w.log.Error("sector build failed", "sector", sector.Code, "error", err)
			continue
		}
		written += n
		w.log.Info("sector built", "sector", sector.Code, "indexes", n)
	}
	return written, nil
}
