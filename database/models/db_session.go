package database

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Session is one captured market session for a region trading day.
// Region and TradingDay form the idempotency key: a second capture of
// the same open can never insert a second row.
type Session struct {
	gorm.Model
	Region     string `json:"region" gorm:"uniqueIndex:idx_region_day;size:64"`
	TradingDay string `json:"tradingDay" gorm:"uniqueIndex:idx_region_day;size:10"`
	OpenedAt   time.Time

	CompositeSignal string          `json:"compositeSignal" gorm:"size:16"`
	CompositeScore  decimal.Decimal `json:"compositeScore" gorm:"type:decimal(20,8)"`

	Symbol     string              `json:"symbol" gorm:"size:32"`
	EntrySide  string              `json:"entrySide" gorm:"size:8"`
	EntryPrice decimal.NullDecimal `json:"entryPrice" gorm:"type:decimal(20,8)"`
	Target     decimal.NullDecimal `json:"target" gorm:"type:decimal(20,8)"`
	Stop       decimal.NullDecimal `json:"stop" gorm:"type:decimal(20,8)"`
	RiskTicks  int64               `json:"riskTicks"`

	WindowSeconds int64 `json:"windowSeconds"`

	Outcome          string              `json:"outcome" gorm:"index;size:16"`
	ResolutionPrice  decimal.NullDecimal `json:"resolutionPrice" gorm:"type:decimal(20,8)"`
	ResolutionReason string              `json:"resolutionReason" gorm:"size:128"`
	ResolvedAt       *time.Time          `json:"resolvedAt"`

	Snapshots []InstrumentSnapshot `json:"snapshots"`
}

// Deadline is the instant the evaluation window elapses.
func (s Session) Deadline() time.Time {
	return s.OpenedAt.Add(time.Duration(s.WindowSeconds) * time.Second)
}

// Window returns the evaluation window as a duration.
func (s Session) Window() time.Duration {
	return time.Duration(s.WindowSeconds) * time.Second
}

// InstrumentSnapshot is the frozen market state of one tracked
// instrument at capture time, including the theoretical bracket used
// for per-instrument analytics. The synthetic TOTAL row carries the
// composite signal and score instead of per-instrument prices.
type InstrumentSnapshot struct {
	gorm.Model
	SessionID uint   `json:"sessionId" gorm:"index"`
	Symbol    string `json:"symbol" gorm:"size:32"`

	Bid    decimal.Decimal `json:"bid" gorm:"type:decimal(20,8)"`
	Ask    decimal.Decimal `json:"ask" gorm:"type:decimal(20,8)"`
	Last   decimal.Decimal `json:"last" gorm:"type:decimal(20,8)"`
	Spread decimal.Decimal `json:"spread" gorm:"type:decimal(20,8)"`

	Signal       string          `json:"signal" gorm:"size:16"`
	StatValue    decimal.Decimal `json:"statValue" gorm:"type:decimal(20,8)"`
	SignalWeight int             `json:"signalWeight"`

	TheoreticalSide    string              `json:"theoreticalSide" gorm:"size:8"`
	TheoreticalEntry   decimal.NullDecimal `json:"theoreticalEntry" gorm:"type:decimal(20,8)"`
	TheoreticalTarget  decimal.NullDecimal `json:"theoreticalTarget" gorm:"type:decimal(20,8)"`
	TheoreticalStop    decimal.NullDecimal `json:"theoreticalStop" gorm:"type:decimal(20,8)"`
	TheoreticalOutcome string              `json:"theoreticalOutcome" gorm:"size:16"`
}

// TotalSymbol names the synthetic snapshot row that aggregates the
// whole capture.
const TotalSymbol = "TOTAL"
