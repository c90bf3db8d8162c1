package models

import "github.com/shopspring/decimal"

// SignalLevel define per-instrument signal classification
type SignalLevel string

// Outcome define session grading outcome
type Outcome string

// EntrySide define the direction of a captured bracket
type EntrySide string

// Global enums
const (
	SignalStrongBuy  SignalLevel = "STRONG_BUY"
	SignalBuy        SignalLevel = "BUY"
	SignalHold       SignalLevel = "HOLD"
	SignalSell       SignalLevel = "SELL"
	SignalStrongSell SignalLevel = "STRONG_SELL"
	SignalNone       SignalLevel = "NONE"

	OutcomePending   Outcome = "PENDING"
	OutcomeWorked    Outcome = "WORKED"
	OutcomeDidntWork Outcome = "DIDNT_WORK"
	OutcomeExpired   Outcome = "EXPIRED"
	OutcomeNoEntry   Outcome = "NO_ENTRY"
	OutcomeError     Outcome = "ERROR"

	EntrySideBuy  EntrySide = "BUY"
	EntrySideSell EntrySide = "SELL"
	EntrySideNone EntrySide = "NONE"
)

// DefaultSignalWeights maps each classification to its contribution
// to the composite score before instrument weighting.
var DefaultSignalWeights = map[SignalLevel]int{
	SignalStrongBuy:  2,
	SignalBuy:        1,
	SignalHold:       0,
	SignalSell:       -1,
	SignalStrongSell: -2,
	SignalNone:       0,
}

// Terminal reports whether the outcome can no longer change.
func (o Outcome) Terminal() bool {
	return o != OutcomePending
}

// Bullish reports whether the signal points up.
func (s SignalLevel) Bullish() bool {
	return s == SignalStrongBuy || s == SignalBuy
}

// Bearish reports whether the signal points down.
func (s SignalLevel) Bearish() bool {
	return s == SignalStrongSell || s == SignalSell
}

// Side maps a signal to the entry direction it implies.
func (s SignalLevel) Side() EntrySide {
	switch {
	case s.Bullish():
		return EntrySideBuy
	case s.Bearish():
		return EntrySideSell
	}
	return EntrySideNone
}

// CompositeBands holds the score boundaries that translate a weighted
// sum into a market-wide signal. Boundary scores fall on the side of the
// lower-magnitude signal: a sum exactly at StrongBuyAbove grades BUY,
// a sum exactly at BuyAbove grades HOLD, and symmetrically below zero.
type CompositeBands struct {
	StrongBuyAbove  decimal.Decimal
	BuyAbove        decimal.Decimal
	SellBelow       decimal.Decimal
	StrongSellBelow decimal.Decimal
}

// DefaultCompositeBands returns the stock +-3 / +-9 banding.
func DefaultCompositeBands() CompositeBands {
	return CompositeBands{
		StrongBuyAbove:  decimal.NewFromInt(9),
		BuyAbove:        decimal.NewFromInt(3),
		SellBelow:       decimal.NewFromInt(-3),
		StrongSellBelow: decimal.NewFromInt(-9),
	}
}

// Grade places a weighted sum into its band.
func (b CompositeBands) Grade(sum decimal.Decimal) SignalLevel {
	switch {
	case sum.GreaterThan(b.StrongBuyAbove):
		return SignalStrongBuy
	case sum.GreaterThan(b.BuyAbove):
		return SignalBuy
	case sum.LessThan(b.StrongSellBelow):
		return SignalStrongSell
	case sum.LessThan(b.SellBelow):
		return SignalSell
	}
	return SignalHold
}
