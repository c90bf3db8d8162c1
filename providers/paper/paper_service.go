package paper

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/sdcoffey/big"
	"github.com/sdcoffey/techan"
	"github.com/shopspring/decimal"

	"gitlab.com/teomiscia/openingbell/models"
)

// PaperService is the offline market: scripted quotes, a scripted
// region calendar and synthetic daily candles. Sim runs and the test
// suites drive the engine through it.
type PaperService struct {
	mu       sync.Mutex
	quotes   map[string][]models.Quote
	failures map[string]int
	statuses map[string]models.RegionStatus
	closes   map[string][]float64
}

func NewPaperService() *PaperService {
	return &PaperService{
		quotes:   map[string][]models.Quote{},
		failures: map[string]int{},
		statuses: map[string]models.RegionStatus{},
		closes:   map[string][]float64{},
	}
}

// NewQuote builds a quote from plain floats, for scripting.
func NewQuote(symbol string, bid float64, ask float64, last float64, prevClose float64) models.Quote {
	return models.Quote{
		Symbol:    symbol,
		Bid:       decimal.NewFromFloat(bid),
		Ask:       decimal.NewFromFloat(ask),
		Last:      decimal.NewFromFloat(last),
		PrevClose: decimal.NewFromFloat(prevClose),
		Time:      time.Now(),
	}
}

// SetQuote replaces the symbol's script with one repeating quote.
func (paperService *PaperService) SetQuote(symbol string, bid float64, ask float64, last float64, prevClose float64) {
	paperService.mu.Lock()
	defer paperService.mu.Unlock()
	paperService.quotes[symbol] = []models.Quote{NewQuote(symbol, bid, ask, last, prevClose)}
}

// QueueQuotes appends quotes to the symbol's script. Reads consume the
// script in order; the final quote repeats forever.
func (paperService *PaperService) QueueQuotes(symbol string, quotes ...models.Quote) {
	paperService.mu.Lock()
	defer paperService.mu.Unlock()
	paperService.quotes[symbol] = append(paperService.quotes[symbol], quotes...)
}

// FailQuotes makes the next times reads of symbol fail.
func (paperService *PaperService) FailQuotes(symbol string, times int) {
	paperService.mu.Lock()
	defer paperService.mu.Unlock()
	paperService.failures[symbol] = times
}

func (paperService *PaperService) GetQuote(ctx context.Context, symbol string) (models.Quote, error) {
	paperService.mu.Lock()
	defer paperService.mu.Unlock()

	if paperService.failures[symbol] > 0 {
		paperService.failures[symbol]--
		return models.Quote{}, fmt.Errorf("paper quote failure scripted for %s", symbol)
	}

	queue := paperService.quotes[symbol]
	if len(queue) == 0 {
		return models.Quote{}, fmt.Errorf("no quote scripted for %s", symbol)
	}
	quote := queue[0]
	if len(queue) > 1 {
		paperService.quotes[symbol] = queue[1:]
	}
	quote.Symbol = symbol
	quote.Time = time.Now()
	return quote, nil
}

// SetDailyCloses scripts the daily series for a symbol, oldest first.
func (paperService *PaperService) SetDailyCloses(symbol string, closes ...float64) {
	paperService.mu.Lock()
	defer paperService.mu.Unlock()
	paperService.closes[symbol] = closes
}

func (paperService *PaperService) GetDailySeries(ctx context.Context, symbol string, days int) (*techan.TimeSeries, error) {
	paperService.mu.Lock()
	closes := paperService.closes[symbol]
	paperService.mu.Unlock()

	if days > 0 && len(closes) > days {
		closes = closes[len(closes)-days:]
	}

	timeSeries := techan.NewTimeSeries()
	start := time.Now().AddDate(0, 0, -len(closes))
	for i, closePrice := range closes {
		period := techan.NewTimePeriod(start.AddDate(0, 0, i), 24*time.Hour)
		candle := techan.NewCandle(period)
		candle.OpenPrice = big.NewDecimal(closePrice)
		candle.ClosePrice = big.NewDecimal(closePrice)
		candle.MaxPrice = big.NewDecimal(closePrice)
		candle.MinPrice = big.NewDecimal(closePrice)
		candle.TradeCount = 1
		timeSeries.AddCandle(candle)
	}
	return timeSeries, nil
}

// SetStatus scripts the calendar answer for a region.
func (paperService *PaperService) SetStatus(regionID string, status models.RegionStatus) {
	paperService.mu.Lock()
	defer paperService.mu.Unlock()
	paperService.statuses[regionID] = status
}

func (paperService *PaperService) Status(ctx context.Context, regionID string) (models.RegionStatus, error) {
	paperService.mu.Lock()
	defer paperService.mu.Unlock()

	status, ok := paperService.statuses[regionID]
	if !ok {
		return "", fmt.Errorf("region %s not in paper calendar", regionID)
	}
	return status, nil
}

// Simulate random-walks every scripted symbol until the context ends,
// so a sim run sees moving prices instead of a frozen tape.
func (paperService *PaperService) Simulate(ctx context.Context, symbols []string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, symbol := range symbols {
				paperService.drift(symbol)
			}
		}
	}
}

func (paperService *PaperService) drift(symbol string) {
	paperService.mu.Lock()
	defer paperService.mu.Unlock()

	queue := paperService.quotes[symbol]
	if len(queue) == 0 {
		return
	}
	quote := queue[len(queue)-1]

	last := quote.Last.InexactFloat64()
	spread := quote.Spread().InexactFloat64()
	if last <= 0 {
		return
	}
	next := last * (1 + (rand.Float64()-0.5)*0.002)

	quote.Last = decimal.NewFromFloat(next)
	quote.Bid = decimal.NewFromFloat(next - spread/2)
	quote.Ask = decimal.NewFromFloat(next + spread/2)
	quote.Time = time.Now()
	paperService.quotes[symbol] = []models.Quote{quote}
}
