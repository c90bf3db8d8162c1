package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is one top-of-book observation for a symbol.
type Quote struct {
	Symbol    string
	Bid       decimal.Decimal
	Ask       decimal.Decimal
	Last      decimal.Decimal
	PrevClose decimal.Decimal
	Time      time.Time
}

func (q Quote) Spread() decimal.Decimal {
	return q.Ask.Sub(q.Bid)
}

// Change is the net move of the last price against the previous close.
// The boolean is false when either side of the difference is missing.
func (q Quote) Change() (decimal.Decimal, bool) {
	if !q.Last.IsPositive() || !q.PrevClose.IsPositive() {
		return decimal.Zero, false
	}
	return q.Last.Sub(q.PrevClose), true
}

// Mark returns the grading price for a bracket direction: the bid for
// long exits, the ask for short exits, falling back to the last trade
// when the book side is empty.
func (q Quote) Mark(side EntrySide) (decimal.Decimal, bool) {
	var mark decimal.Decimal
	switch side {
	case EntrySideBuy:
		mark = q.Bid
	case EntrySideSell:
		mark = q.Ask
	}
	if !mark.IsPositive() {
		mark = q.Last
	}
	return mark, mark.IsPositive()
}

// Touch returns the price an entry at side would pay: the ask for
// buys, the bid for sells, the last trade when the book is one-sided.
func (q Quote) Touch(side EntrySide) (decimal.Decimal, bool) {
	var price decimal.Decimal
	switch side {
	case EntrySideBuy:
		price = q.Ask
	case EntrySideSell:
		price = q.Bid
	}
	if !price.IsPositive() {
		price = q.Last
	}
	return price, price.IsPositive()
}
