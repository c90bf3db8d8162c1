package binance

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/sdcoffey/big"
	"github.com/sdcoffey/techan"
	"github.com/shopspring/decimal"

	"gitlab.com/teomiscia/openingbell/helpers"
	"gitlab.com/teomiscia/openingbell/models"
)

const (
	bookStaleAfter  = 10 * time.Second
	statsStaleAfter = 30 * time.Second
)

type bookEntry struct {
	bid     decimal.Decimal
	ask     decimal.Decimal
	updated time.Time
}

type statsEntry struct {
	bid       decimal.Decimal
	ask       decimal.Decimal
	last      decimal.Decimal
	prevClose decimal.Decimal
	updated   time.Time
}

// BinanceService serves quotes from the book ticker stream, falling
// back to the 24h stats endpoint when a symbol is not being streamed.
type BinanceService struct {
	binanceClient *binance.Client
	apiKey        string
	apiSecret     string

	mu    sync.Mutex
	books map[string]bookEntry
	stats map[string]statsEntry
}

func NewBinanceService() *BinanceService {
	binanceService := BinanceService{
		books: map[string]bookEntry{},
		stats: map[string]statsEntry{},
	}
	binanceService.apiKey = os.Getenv("binanceAPIKey")
	binanceService.apiSecret = os.Getenv("binanceAPISecret")
	binanceService.binanceClient = binance.NewClient(binanceService.apiKey, binanceService.apiSecret)
	return &binanceService
}

// QuoteMonitor keeps the top-of-book cache for one symbol warm until
// the context is cancelled, restarting the stream whenever it drops.
func (binanceService *BinanceService) QuoteMonitor(ctx context.Context, symbol string) {
	defer func() {
		if r := recover(); r != nil {
			helpers.Logger.Errorln(fmt.Sprintf("Recovered. Error on QuoteMonitor (symbol %s): %v", symbol, r))
			time.Sleep(1 * time.Second)
			if ctx.Err() == nil {
				binanceService.QuoteMonitor(ctx, symbol)
			}
		}
	}()

	wsHandler := func(event *binance.WsBookTickerEvent) {
		bid, errBid := decimal.NewFromString(event.BestBidPrice)
		ask, errAsk := decimal.NewFromString(event.BestAskPrice)
		if errBid != nil || errAsk != nil {
			return
		}
		binanceService.mu.Lock()
		binanceService.books[symbol] = bookEntry{bid: bid, ask: ask, updated: time.Now()}
		binanceService.mu.Unlock()
	}
	errHandler := func(err error) {
		helpers.Logger.Errorln("Error in Binance book monitor on symbol " + symbol + ": " + err.Error())
	}

	for ctx.Err() == nil {
		doneC, stopC, err := binance.WsBookTickerServe(symbol, wsHandler, errHandler)
		if err != nil {
			helpers.Logger.Errorln(err)
			time.Sleep(1 * time.Second)
			continue
		}
		select {
		case <-ctx.Done():
			stopC <- struct{}{}
			<-doneC
			return
		case <-doneC:
			// stream dropped, loop restarts it
		}
	}
}

// GetQuote composes the freshest view of a symbol: streamed bid/ask
// when the monitor is warm, the 24h stats snapshot otherwise. The
// stats snapshot also carries the previous close used for session
// classification.
func (binanceService *BinanceService) GetQuote(ctx context.Context, symbol string) (models.Quote, error) {
	stats, err := binanceService.symbolStats(ctx, symbol)
	if err != nil {
		return models.Quote{}, err
	}

	quote := models.Quote{
		Symbol:    symbol,
		Bid:       stats.bid,
		Ask:       stats.ask,
		Last:      stats.last,
		PrevClose: stats.prevClose,
		Time:      time.Now(),
	}

	binanceService.mu.Lock()
	book, ok := binanceService.books[symbol]
	binanceService.mu.Unlock()
	if ok && time.Since(book.updated) <= bookStaleAfter {
		quote.Bid = book.bid
		quote.Ask = book.ask
	}
	return quote, nil
}

func (binanceService *BinanceService) symbolStats(ctx context.Context, symbol string) (statsEntry, error) {
	binanceService.mu.Lock()
	cached, ok := binanceService.stats[symbol]
	binanceService.mu.Unlock()
	if ok && time.Since(cached.updated) <= statsStaleAfter {
		return cached, nil
	}

	stats, err := binanceService.binanceClient.NewListPriceChangeStatsService().
		Symbol(symbol).Do(ctx)
	if err != nil || len(stats) == 0 {
		if ok {
			// serve the stale snapshot rather than dropping the read
			return cached, nil
		}
		if err == nil {
			err = fmt.Errorf("no 24h stats returned for %s", symbol)
		}
		return statsEntry{}, err
	}

	entry := statsEntry{
		bid:       parsePrice(stats[0].BidPrice),
		ask:       parsePrice(stats[0].AskPrice),
		last:      parsePrice(stats[0].LastPrice),
		prevClose: parsePrice(stats[0].PrevClosePrice),
		updated:   time.Now(),
	}
	binanceService.mu.Lock()
	binanceService.stats[symbol] = entry
	binanceService.mu.Unlock()
	return entry, nil
}

// GetDailySeries pulls up to days daily candles, oldest first.
func (binanceService *BinanceService) GetDailySeries(ctx context.Context, symbol string, days int) (*techan.TimeSeries, error) {
	if days <= 0 || days > 1000 {
		days = 365
	}

	klines, err := binanceService.binanceClient.NewKlinesService().Symbol(symbol).
		Interval("1d").Limit(days).Do(ctx)
	if err != nil {
		return nil, err
	}

	timeSeries := techan.NewTimeSeries()
	for _, k := range klines {
		period := techan.NewTimePeriod(time.Unix(k.OpenTime/1000, 0), 24*time.Hour)
		candle := techan.NewCandle(period)
		candle.OpenPrice = big.NewFromString(k.Open)
		candle.ClosePrice = big.NewFromString(k.Close)
		candle.MaxPrice = big.NewFromString(k.High)
		candle.MinPrice = big.NewFromString(k.Low)
		candle.TradeCount = uint(k.TradeNum)
		candle.Volume = big.NewFromString(k.Volume)
		timeSeries.AddCandle(candle)
	}
	return timeSeries, nil
}

func parsePrice(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
