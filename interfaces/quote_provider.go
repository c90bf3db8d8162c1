package interfaces

import (
	"context"

	"github.com/sdcoffey/techan"
	"gitlab.com/teomiscia/openingbell/models"
)

// QuoteProvider serves market data for tracked instruments.
type QuoteProvider interface {
	// GetQuote returns the freshest top-of-book view of symbol.
	GetQuote(ctx context.Context, symbol string) (models.Quote, error)
	// GetDailySeries returns up to days daily candles, oldest first.
	GetDailySeries(ctx context.Context, symbol string, days int) (*techan.TimeSeries, error)
}
