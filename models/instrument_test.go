package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRiskTicks(t *testing.T) {
	ym := Instrument{TickValue: decimal.NewFromInt(5)}
	assert.EqualValues(t, 20, ym.RiskTicks(decimal.NewFromInt(100)))

	uneven := Instrument{TickValue: decimal.NewFromInt(6)}
	assert.EqualValues(t, 17, uneven.RiskTicks(decimal.NewFromInt(100)))

	half := Instrument{TickValue: decimal.NewFromInt(40)}
	assert.EqualValues(t, 3, half.RiskTicks(decimal.NewFromInt(100)))

	coarse := Instrument{TickValue: decimal.NewFromInt(300)}
	assert.EqualValues(t, 1, coarse.RiskTicks(decimal.NewFromInt(100)))

	broken := Instrument{TickValue: decimal.Zero}
	assert.EqualValues(t, 0, broken.RiskTicks(decimal.NewFromInt(100)))
}

func TestTickOffset(t *testing.T) {
	nq := Instrument{TickSize: decimal.NewFromFloat(0.25)}
	assert.True(t, nq.TickOffset(20).Equal(decimal.NewFromInt(5)))

	ym := Instrument{TickSize: decimal.NewFromInt(1)}
	assert.True(t, ym.TickOffset(20).Equal(decimal.NewFromInt(20)))
}

func TestFormatPrice(t *testing.T) {
	nq := Instrument{DisplayPrecision: 2}
	assert.Equal(t, "16030.25", nq.FormatPrice(decimal.NewFromFloat(16030.25)))

	ym := Instrument{DisplayPrecision: 0}
	assert.Equal(t, "47388", ym.FormatPrice(decimal.NewFromInt(47388)))
}

func TestTradingDayIsRegionLocal(t *testing.T) {
	ts := time.Date(2026, 2, 2, 23, 30, 0, 0, time.UTC)

	// 23:30 UTC is already the next day in Tokyo
	region := Region{ID: "japan", Timezone: "Asia/Tokyo"}
	assert.Equal(t, "2026-02-03", region.TradingDay(ts))

	utc := Region{ID: "frankfurt", Timezone: "UTC"}
	assert.Equal(t, "2026-02-02", utc.TradingDay(ts))

	// unknown zones fall back to UTC instead of failing the capture
	broken := Region{ID: "atlantis", Timezone: "Atlantis/Nowhere"}
	assert.Equal(t, "2026-02-02", broken.TradingDay(ts))
}
