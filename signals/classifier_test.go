package signals

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"gitlab.com/teomiscia/openingbell/models"
)

func ladderInstrument() models.Instrument {
	return models.Instrument{
		Symbol:          "YM",
		TickSize:        decimal.NewFromInt(1),
		TickValue:       decimal.NewFromInt(5),
		CompositeWeight: decimal.NewFromInt(1),
		Thresholds: models.SignalThresholds{
			StrongBuy:  decimal.NewFromInt(50),
			Buy:        decimal.NewFromInt(10),
			Hold:       decimal.Zero,
			Sell:       decimal.NewFromInt(-10),
			StrongSell: decimal.NewFromInt(-50),
		},
	}
}

func classify(c *Classifier, symbol string, change float64) Classification {
	d := decimal.NewFromFloat(change)
	return c.Classify(symbol, &d)
}

func TestClassifierLadder(t *testing.T) {
	classifier := NewClassifier([]models.Instrument{ladderInstrument()}, nil)

	cases := []struct {
		change float64
		signal models.SignalLevel
	}{
		{50.5, models.SignalStrongBuy},
		{50, models.SignalBuy},
		{10.5, models.SignalBuy},
		{10, models.SignalHold},
		{0, models.SignalHold},
		{-10, models.SignalHold},
		{-10.5, models.SignalSell},
		{-50, models.SignalSell},
		{-50.5, models.SignalStrongSell},
	}
	for _, c := range cases {
		assert.Equal(t, c.signal, classify(classifier, "YM", c.change).Signal, "change %v", c.change)
	}
}

func TestClassifierWeights(t *testing.T) {
	classifier := NewClassifier([]models.Instrument{ladderInstrument()}, nil)

	assert.Equal(t, 2, classify(classifier, "YM", 51).SignalWeight)
	assert.Equal(t, 1, classify(classifier, "YM", 11).SignalWeight)
	assert.Equal(t, 0, classify(classifier, "YM", 0).SignalWeight)
	assert.Equal(t, -1, classify(classifier, "YM", -11).SignalWeight)
	assert.Equal(t, -2, classify(classifier, "YM", -51).SignalWeight)
}

func TestClassifierBearHedgeFlipsContribution(t *testing.T) {
	hedge := ladderInstrument()
	hedge.Symbol = "VX"
	hedge.BearHedge = true
	classifier := NewClassifier([]models.Instrument{hedge}, nil)

	row := classify(classifier, "VX", 51)
	assert.Equal(t, models.SignalStrongBuy, row.Signal)
	assert.Equal(t, -2, row.SignalWeight)

	row = classify(classifier, "VX", -51)
	assert.Equal(t, models.SignalStrongSell, row.Signal)
	assert.Equal(t, 2, row.SignalWeight)

	row = classify(classifier, "VX", 0)
	assert.Equal(t, models.SignalHold, row.Signal)
	assert.Equal(t, 0, row.SignalWeight)
}

func TestClassifierMissingData(t *testing.T) {
	classifier := NewClassifier([]models.Instrument{ladderInstrument()}, nil)

	row := classifier.Classify("YM", nil)
	assert.Equal(t, models.SignalNone, row.Signal)
	assert.Equal(t, 0, row.SignalWeight)
	assert.True(t, row.InstrumentWeight.IsZero())

	change := decimal.NewFromInt(100)
	row = classifier.Classify("UNKNOWN", &change)
	assert.Equal(t, models.SignalNone, row.Signal)
	assert.Equal(t, 0, row.SignalWeight)
}

func TestClassifierDefaultThresholds(t *testing.T) {
	inst := models.Instrument{
		Symbol:          "ES",
		CompositeWeight: decimal.NewFromInt(1),
		Thresholds:      models.DefaultSignalThresholds(),
	}
	classifier := NewClassifier([]models.Instrument{inst}, nil)

	// sign-of-change grading: any move is BUY or SELL, never strong
	assert.Equal(t, models.SignalBuy, classify(classifier, "ES", 0.01).Signal)
	assert.Equal(t, models.SignalHold, classify(classifier, "ES", 0).Signal)
	assert.Equal(t, models.SignalSell, classify(classifier, "ES", -0.01).Signal)
	assert.Equal(t, models.SignalBuy, classify(classifier, "ES", 100000).Signal)
	assert.Equal(t, models.SignalSell, classify(classifier, "ES", -100000).Signal)
}
