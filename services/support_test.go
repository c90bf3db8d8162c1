package services

import (
	"time"

	"github.com/shopspring/decimal"

	"gitlab.com/teomiscia/openingbell/models"
)

// Fixtures shared by the service suites. YM is the traded instrument
// with double composite weight; NQ is a supporting one. 100 dollars of
// fixed risk is 20 ticks on both.

func ymInstrument() models.Instrument {
	return models.Instrument{
		Symbol:           "YM",
		Description:      "Dow futures",
		TickSize:         decimal.NewFromInt(1),
		TickValue:        decimal.NewFromInt(5),
		DisplayPrecision: 0,
		CompositeWeight:  decimal.NewFromInt(2),
		Thresholds: models.SignalThresholds{
			StrongBuy:  decimal.NewFromInt(150),
			Buy:        decimal.NewFromInt(50),
			Hold:       decimal.Zero,
			Sell:       decimal.NewFromInt(-50),
			StrongSell: decimal.NewFromInt(-150),
		},
	}
}

func nqInstrument() models.Instrument {
	return models.Instrument{
		Symbol:           "NQ",
		Description:      "Nasdaq futures",
		TickSize:         decimal.NewFromFloat(0.25),
		TickValue:        decimal.NewFromInt(5),
		DisplayPrecision: 2,
		CompositeWeight:  decimal.NewFromInt(1),
		Thresholds: models.SignalThresholds{
			StrongBuy:  decimal.NewFromInt(60),
			Buy:        decimal.NewFromInt(20),
			Hold:       decimal.Zero,
			Sell:       decimal.NewFromInt(-20),
			StrongSell: decimal.NewFromInt(-60),
		},
	}
}

func testInstruments() []models.Instrument {
	return []models.Instrument{ymInstrument(), nqInstrument()}
}

func testRegion() models.Region {
	return models.Region{
		ID:                 "japan",
		Name:               "Japan",
		Timezone:           "UTC",
		TradedSymbol:       "YM",
		Active:             true,
		CaptureEnabled:     true,
		OpenCaptureEnabled: true,
		EvaluationWindow:   time.Hour,
	}
}

func nullDecimal(v float64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromFloat(v))
}
