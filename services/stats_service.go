package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sdcoffey/techan"
	"github.com/shopspring/decimal"

	database "gitlab.com/teomiscia/openingbell/database/models"
	"gitlab.com/teomiscia/openingbell/helpers"
	"gitlab.com/teomiscia/openingbell/interfaces"
	"gitlab.com/teomiscia/openingbell/models"
)

// RegionStatsService keeps one extrema monitor per open region. Each
// monitor samples every tracked instrument, maintains intraday
// high/low/close and checks the tape against the 52-week extrema
// derived from the daily series. Closing the region persists the
// summary.
type RegionStatsService struct {
	store        interfaces.SessionStore
	provider     interfaces.QuoteProvider
	pollInterval time.Duration
	instruments  []models.Instrument

	mu      sync.Mutex
	watches map[string]*regionWatch
}

type regionWatch struct {
	region     models.Region
	tradingDay string
	cancel     context.CancelFunc
	done       chan struct{}

	mu    sync.Mutex
	stats map[string]*instrumentDayStats
}

type instrumentDayStats struct {
	hasData bool
	high    decimal.Decimal
	low     decimal.Decimal
	last    decimal.Decimal

	hasYear          bool
	yearHigh         decimal.Decimal
	yearLow          decimal.Decimal
	yearHighBreached bool
	yearLowBreached  bool
}

func NewRegionStatsService(store interfaces.SessionStore, provider interfaces.QuoteProvider,
	instruments []models.Instrument, pollInterval time.Duration) *RegionStatsService {
	return &RegionStatsService{
		store:        store,
		provider:     provider,
		pollInterval: pollInterval,
		instruments:  instruments,
		watches:      map[string]*regionWatch{},
	}
}

// StartMonitor begins sampling for a region day. A second start while
// the region is already watched is a no-op.
func (rss *RegionStatsService) StartMonitor(ctx context.Context, region models.Region, openedAt time.Time) {
	rss.mu.Lock()
	if _, running := rss.watches[region.ID]; running {
		rss.mu.Unlock()
		return
	}
	watchCtx, cancel := context.WithCancel(ctx)
	watch := &regionWatch{
		region:     region,
		tradingDay: region.TradingDay(openedAt),
		cancel:     cancel,
		done:       make(chan struct{}),
		stats:      map[string]*instrumentDayStats{},
	}
	rss.watches[region.ID] = watch
	rss.mu.Unlock()

	go rss.monitor(watchCtx, watch)
}

// Monitoring reports whether a region currently has a live monitor.
func (rss *RegionStatsService) Monitoring(regionID string) bool {
	rss.mu.Lock()
	defer rss.mu.Unlock()
	_, running := rss.watches[regionID]
	return running
}

// StopAndFinalize stops the region's monitor and persists its intraday
// summary. Nothing is written when the region was not being watched or
// never produced a sample.
func (rss *RegionStatsService) StopAndFinalize(regionID string) {
	rss.mu.Lock()
	watch, ok := rss.watches[regionID]
	if ok {
		delete(rss.watches, regionID)
	}
	rss.mu.Unlock()
	if !ok {
		return
	}

	watch.cancel()
	<-watch.done

	watch.mu.Lock()
	var rows []database.IntradayStat
	for _, inst := range rss.instruments {
		stat, sampled := watch.stats[inst.Symbol]
		if !sampled || !stat.hasData {
			continue
		}
		rows = append(rows, database.IntradayStat{
			Region:           watch.region.ID,
			TradingDay:       watch.tradingDay,
			Symbol:           inst.Symbol,
			High:             stat.high,
			Low:              stat.low,
			Close:            stat.last,
			Range:            stat.high.Sub(stat.low),
			YearHighBreached: stat.yearHighBreached,
			YearLowBreached:  stat.yearLowBreached,
		})
	}
	watch.mu.Unlock()

	if len(rows) == 0 {
		helpers.Logger.Debugln(fmt.Sprintf("%s: no samples collected, skipping stats write", watch.region.ID))
		return
	}
	if err := rss.store.SaveIntradayStats(rows); err != nil {
		helpers.Logger.Errorln(fmt.Sprintf("%s: could not save intraday stats: %v", watch.region.ID, err))
		return
	}

	for _, row := range rows {
		if row.Symbol != watch.region.TradedSymbol {
			continue
		}
		inst := rss.instrument(row.Symbol)
		helpers.Logger.Infoln(
			fmt.Sprintf("📊 **%s: Session stats (%s)**\n", watch.region.Name, watch.tradingDay) +
				fmt.Sprintf("%s high %s low %s close %s\n", row.Symbol, inst.FormatPrice(row.High),
					inst.FormatPrice(row.Low), inst.FormatPrice(row.Close)) +
				fmt.Sprintf("Range: %s", inst.FormatPrice(row.Range)))
	}
}

func (rss *RegionStatsService) instrument(symbol string) models.Instrument {
	for _, inst := range rss.instruments {
		if inst.Symbol == symbol {
			return inst
		}
	}
	return models.Instrument{Symbol: symbol}
}

func (rss *RegionStatsService) monitor(ctx context.Context, watch *regionWatch) {
	defer close(watch.done)
	defer func() {
		if r := recover(); r != nil {
			helpers.Logger.Errorln(fmt.Sprintf("Recovered. Error in stats monitor for %s: %v",
				watch.region.ID, r))
		}
	}()

	rss.primeYearExtrema(ctx, watch)

	ticker := time.NewTicker(rss.pollInterval)
	defer ticker.Stop()
	for {
		rss.sample(ctx, watch)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// primeYearExtrema derives each instrument's 52-week high and low from
// its daily series. A missing series just disables breach detection
// for that instrument.
func (rss *RegionStatsService) primeYearExtrema(ctx context.Context, watch *regionWatch) {
	for _, inst := range rss.instruments {
		series, err := rss.provider.GetDailySeries(ctx, inst.Symbol, 365)
		if err != nil {
			helpers.Logger.Warnln(fmt.Sprintf("%s: no daily series for %s, skipping 52-week extrema: %v",
				watch.region.ID, inst.Symbol, err))
			continue
		}
		if series == nil || len(series.Candles) == 0 {
			continue
		}

		window := len(series.Candles)
		lastIndex := series.LastIndex()
		high := techan.NewMaximumValueIndicator(techan.NewHighPriceIndicator(series), window).Calculate(lastIndex)
		low := techan.NewMinimumValueIndicator(techan.NewLowPriceIndicator(series), window).Calculate(lastIndex)

		watch.mu.Lock()
		stat := watch.stat(inst.Symbol)
		stat.yearHigh = decimal.NewFromFloat(high.Float())
		stat.yearLow = decimal.NewFromFloat(low.Float())
		stat.hasYear = true
		watch.mu.Unlock()
	}
}

func (rss *RegionStatsService) sample(ctx context.Context, watch *regionWatch) {
	for _, inst := range rss.instruments {
		quote, err := rss.provider.GetQuote(ctx, inst.Symbol)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			helpers.Logger.Debugln(fmt.Sprintf("%s: stats sample for %s failed: %v",
				watch.region.ID, inst.Symbol, err))
			continue
		}
		last := quote.Last
		if !last.IsPositive() {
			continue
		}

		watch.mu.Lock()
		stat := watch.stat(inst.Symbol)
		if !stat.hasData || last.GreaterThan(stat.high) {
			stat.high = last
		}
		if !stat.hasData || last.LessThan(stat.low) {
			stat.low = last
		}
		stat.last = last
		stat.hasData = true

		brokeHigh := stat.hasYear && !stat.yearHighBreached && last.GreaterThan(stat.yearHigh)
		if brokeHigh {
			stat.yearHighBreached = true
		}
		brokeLow := stat.hasYear && !stat.yearLowBreached && last.LessThan(stat.yearLow)
		if brokeLow {
			stat.yearLowBreached = true
		}
		watch.mu.Unlock()

		if brokeHigh {
			helpers.Logger.Infoln(fmt.Sprintf("📊 **%s: %s broke its 52-week high** at %s",
				watch.region.Name, inst.Symbol, inst.FormatPrice(last)))
		}
		if brokeLow {
			helpers.Logger.Infoln(fmt.Sprintf("📊 **%s: %s broke its 52-week low** at %s",
				watch.region.Name, inst.Symbol, inst.FormatPrice(last)))
		}
	}
}

func (w *regionWatch) stat(symbol string) *instrumentDayStats {
	stat, ok := w.stats[symbol]
	if !ok {
		stat = &instrumentDayStats{}
		w.stats[symbol] = stat
	}
	return stat
}
