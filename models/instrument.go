package models

import "github.com/shopspring/decimal"

// SignalThresholds are the net-change boundaries for one instrument,
// keyed by the signal they admit. The ladder reads, top to bottom:
//
//	change >  StrongBuy             STRONG_BUY
//	change >  Buy                   BUY
//	change >= Sell                  HOLD (Hold is informational, between Buy and Sell)
//	change >= StrongSell            SELL
//	otherwise                       STRONG_SELL
type SignalThresholds struct {
	StrongBuy  decimal.Decimal
	Buy        decimal.Decimal
	Hold       decimal.Decimal
	Sell       decimal.Decimal
	StrongSell decimal.Decimal
}

// DefaultSignalThresholds grades any positive change BUY and any
// negative change SELL, with the strong bands out of reach until an
// instrument configures its own boundaries.
func DefaultSignalThresholds() SignalThresholds {
	return SignalThresholds{
		StrongBuy:  decimal.New(1, 12),
		Buy:        decimal.Zero,
		Hold:       decimal.Zero,
		Sell:       decimal.Zero,
		StrongSell: decimal.New(-1, 12),
	}
}

// Instrument is one tracked market: its tick economics, classification
// thresholds and composite weighting.
type Instrument struct {
	Symbol           string
	Description      string
	TickSize         decimal.Decimal
	TickValue        decimal.Decimal
	DisplayPrecision int32
	BearHedge        bool
	CompositeWeight  decimal.Decimal
	Thresholds       SignalThresholds
}

// RiskTicks converts a fixed dollar risk into a whole number of ticks,
// rounded half away from zero and never below one.
func (i Instrument) RiskTicks(dollarRisk decimal.Decimal) int64 {
	if !i.TickValue.IsPositive() {
		return 0
	}
	n := dollarRisk.Div(i.TickValue).Round(0).IntPart()
	if n < 1 {
		n = 1
	}
	return n
}

// TickOffset returns the price distance spanned by n ticks.
func (i Instrument) TickOffset(n int64) decimal.Decimal {
	return i.TickSize.Mul(decimal.NewFromInt(n))
}

// FormatPrice renders a price at the instrument's display precision.
func (i Instrument) FormatPrice(price decimal.Decimal) string {
	return price.StringFixed(i.DisplayPrecision)
}
