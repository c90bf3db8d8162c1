package database

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CaptureFailure records a capture attempt that aborted before a
// session row could be written, so operators can tell a silent day
// from a failed one.
type CaptureFailure struct {
	gorm.Model
	Region     string `json:"region" gorm:"index;size:64"`
	TradingDay string `json:"tradingDay" gorm:"size:10"`
	Reason     string `json:"reason" gorm:"size:255"`
}

// IntradayStat is the end-of-session extrema summary for one
// instrument in one region day.
type IntradayStat struct {
	gorm.Model
	Region     string `json:"region" gorm:"uniqueIndex:idx_stat_region_day_symbol;size:64"`
	TradingDay string `json:"tradingDay" gorm:"uniqueIndex:idx_stat_region_day_symbol;size:10"`
	Symbol     string `json:"symbol" gorm:"uniqueIndex:idx_stat_region_day_symbol;size:32"`

	High  decimal.Decimal `json:"high" gorm:"type:decimal(20,8)"`
	Low   decimal.Decimal `json:"low" gorm:"type:decimal(20,8)"`
	Close decimal.Decimal `json:"close" gorm:"column:close_price;type:decimal(20,8)"`
	Range decimal.Decimal `json:"range" gorm:"column:price_range;type:decimal(20,8)"`

	YearHighBreached bool `json:"yearHighBreached"`
	YearLowBreached  bool `json:"yearLowBreached"`
}
