package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"

	"ashare/internal/logger"
	"ashare/internal/market"
	"ashare/internal/sector/index"
)

// Failure records one date that could not be appended during maintenance.
type Failure struct {
	IndexCode string    `json:"index_code"`
	TradeDate time.Time `json:"trade_date"`
	Reason    string    `json:"reason"`
}

// Summary reports the outcome of one maintenance run.
type Summary struct {
	RunID          string        `json:"run_id"`
	IndexesChecked int           `json:"indexes_checked"`
	IndexesUpdated int           `json:"indexes_updated"`
	DatesAppended  int           `json:"dates_appended"`
	FullRebuilds   int           `json:"full_rebuilds"`
	Failures       []Failure     `json:"failures"`
	Duration       time.Duration `json:"duration"`
}

// UpdateAll brings every sector index and refined sub-index up to the
// freshest stock data, one day at a time. Per index, a single calculator is
// constructed once and CalculateIncrementalAt is called per pending date in
// strictly ascending order: each day's value is anchored to the previous
// day's computed close, so the chronological chain is a hard dependency.
// Indexes are independent of each other; a failed index never blocks the
// rest of the catalog.
func (w *Workflow) UpdateAll(ctx context.Context) (*Summary, error) {
	started := time.Now()
	summary := &Summary{RunID: uuid.NewString()}
	log := w.log.WithField("run_id", summary.RunID)

	latest, ok, err := w.store.LatestTradeDate(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Warn("no stock data in store, nothing to update")
		summary.Duration = time.Since(started)
		return summary, nil
	}

	sectors, err := w.store.GetSectors(ctx)
	if err != nil {
		return nil, err
	}

	for _, sector := range sectors {
		w.updateSector(ctx, sector, latest, summary, log)
	}

	summary.Duration = time.Since(started)
	log.Info("maintenance run finished",
		"checked", summary.IndexesChecked,
		"updated", summary.IndexesUpdated,
		"dates_appended", summary.DatesAppended,
		"full_rebuilds", summary.FullRebuilds,
		"failures", len(summary.Failures),
		"duration", summary.Duration)
	return summary, nil
}

// updateSector advances a sector's parent index and its refined sub-indexes.
func (w *Workflow) updateSector(ctx context.Context, sector market.Sector, latest time.Time, summary *Summary, log logger.Logger) {
	symbols, err := w.screener.Screen(ctx, sector.Code, latest)
	if err != nil {
		log.Error("constituent screening failed", "sector", sector.Code, "error", err)
		summary.Failures = append(summary.Failures, Failure{IndexCode: sector.Code, Reason: err.Error()})
		return
	}

	w.updateIndex(ctx, sector.Code, sector.Name, symbols, latest, summary, log)

	// 细分子指数基于父板块选样在最近窗口的属性切分
	start := latest.AddDate(0, 0, -w.cfg.HistoryDays)
	p, err := w.builder.Build(ctx, symbols, start, latest)
	if err != nil || p.IsEmpty() {
		log.Warn("refinement panel unavailable, skipping sub-indexes", "sector", sector.Code, "error", err)
		return
	}
	for _, tag := range AllRefinements {
		subset := applyRefinement(ctx, tag, p, w.builder.Source())
		if len(subset) < w.cfg.MinRefinedSize {
			continue
		}
		w.updateIndex(ctx, RefinedIndexCode(sector.Code, tag), RefinedIndexName(sector.Name, tag),
			subset, latest, summary, log)
	}
}

// updateIndex advances one index to the latest stock data.
func (w *Workflow) updateIndex(ctx context.Context, indexCode, indexName string, symbols []string, latest time.Time, summary *Summary, log logger.Logger) {
	summary.IndexesChecked++

	last, found, err := w.store.LastIndexBar(ctx, indexCode)
	if err != nil {
		summary.Failures = append(summary.Failures, Failure{IndexCode: indexCode, Reason: err.Error()})
		return
	}

	if !found {
		// 该指数从未计算过，冷启动走全量路径
		w.rebuildIndex(ctx, indexCode, indexName, symbols, latest, summary, log)
		return
	}

	pending, err := w.store.TradeDatesAfter(ctx, last.TradeDate)
	if err != nil {
		summary.Failures = append(summary.Failures, Failure{IndexCode: indexCode, Reason: err.Error()})
		return
	}
	if len(pending) == 0 {
		return
	}

	// 增量链太长时强制全量重算，消除逐日缩放的舍入漂移
	if len(pending) > w.cfg.MaxChainDays {
		log.Info("pending chain exceeds max, forcing full recalculation",
			"index_code", indexCode, "pending", len(pending))
		w.rebuildIndex(ctx, indexCode, indexName, symbols, latest, summary, log)
		return
	}

	// 每个指数只构建一次计算器：面板构建成本远高于单日增量计算，
	// 必须在 N 个待补日期间摊销
	start := last.TradeDate.AddDate(0, 0, -w.cfg.PanelBufferDays)
	calc, err := index.NewCalculator(ctx, w.builder, indexCode, indexName, symbols, start, pending[len(pending)-1])
	if err != nil {
		summary.Failures = append(summary.Failures, Failure{IndexCode: indexCode, Reason: err.Error()})
		return
	}

	anchorDate := last.TradeDate
	anchorClose := last.Close
	appended := 0

	for _, date := range pending {
		started := time.Now()
		bar, err := calc.CalculateIncrementalAt(anchorDate, date, anchorClose)
		if err != nil {
			// 单日失败记录后跳过，不中断整个目录的维护；
			// 但后续日期依赖当日收盘，该指数的链会停在这里
			log.Warn("incremental calculation failed",
				"index_code", indexCode, "trade_date", market.FormatDate(date), "error", err)
			summary.Failures = append(summary.Failures, Failure{
				IndexCode: indexCode, TradeDate: date, Reason: err.Error(),
			})
			if w.metrics != nil {
				w.metrics.IncUpdateFailure(indexCode)
			}
			continue
		}

		if err := w.store.UpsertIndexBars(ctx, []market.IndexBar{bar}); err != nil {
			log.Error("failed to persist index bar",
				"index_code", indexCode, "trade_date", market.FormatDate(date), "error", err)
			summary.Failures = append(summary.Failures, Failure{
				IndexCode: indexCode, TradeDate: date, Reason: err.Error(),
			})
			continue
		}

		anchorDate = date
		anchorClose = bar.Close
		appended++
		if w.metrics != nil {
			w.metrics.ObserveCalculation("incremental", time.Since(started))
		}
	}

	if appended > 0 {
		summary.IndexesUpdated++
		summary.DatesAppended += appended
		if w.metrics != nil {
			w.metrics.AddDatesAppended(appended)
		}
	}
}

// rebuildIndex recomputes one index from scratch over the configured history
// window, clearing the previously published series in the process.
func (w *Workflow) rebuildIndex(ctx context.Context, indexCode, indexName string, symbols []string, latest time.Time, summary *Summary, log logger.Logger) {
	start := latest.AddDate(0, 0, -w.cfg.HistoryDays)
	calc, err := index.NewCalculator(ctx, w.builder, indexCode, indexName, symbols, start, latest)
	if err != nil {
		summary.Failures = append(summary.Failures, Failure{IndexCode: indexCode, Reason: err.Error()})
		return
	}
	if err := w.buildFull(ctx, calc); err != nil {
		summary.Failures = append(summary.Failures, Failure{IndexCode: indexCode, Reason: err.Error()})
		return
	}
	summary.IndexesUpdated++
	summary.FullRebuilds++
}
