package signals

import (
	"github.com/shopspring/decimal"

	"gitlab.com/teomiscia/openingbell/models"
)

// Classification is one instrument's graded state inside a capture:
// the signal, the net change that produced it, and the weights the
// composite scorer needs.
type Classification struct {
	Symbol           string
	Signal           models.SignalLevel
	StatValue        decimal.Decimal
	SignalWeight     int
	InstrumentWeight decimal.Decimal
}

// Classifier grades net price changes against per-instrument
// thresholds. Threshold and weight tables are resolved once at
// construction, so every Classify call within a run reads the same
// frozen configuration.
type Classifier struct {
	instruments map[string]models.Instrument
	weights     map[models.SignalLevel]int
}

func NewClassifier(instruments []models.Instrument, weights map[models.SignalLevel]int) *Classifier {
	if weights == nil {
		weights = models.DefaultSignalWeights
	}
	bySymbol := make(map[string]models.Instrument, len(instruments))
	for _, inst := range instruments {
		bySymbol[inst.Symbol] = inst
	}
	return &Classifier{
		instruments: bySymbol,
		weights:     weights,
	}
}

// Classify grades one net change. A nil change, or a symbol outside
// the tracked universe, grades NONE with zero weight so the composite
// sum is unaffected.
func (c *Classifier) Classify(symbol string, change *decimal.Decimal) Classification {
	inst, tracked := c.instruments[symbol]
	if !tracked || change == nil {
		return Classification{
			Symbol:           symbol,
			Signal:           models.SignalNone,
			InstrumentWeight: decimal.Zero,
		}
	}

	level := gradeChange(*change, inst.Thresholds)
	weight := c.weights[level]
	if inst.BearHedge {
		// Hedge instruments rising means risk-off: the label stays
		// honest, the contribution flips.
		weight = -weight
	}

	return Classification{
		Symbol:           symbol,
		Signal:           level,
		StatValue:        *change,
		SignalWeight:     weight,
		InstrumentWeight: inst.CompositeWeight,
	}
}

// gradeChange walks the threshold ladder top down. Boundary changes
// land on the weaker signal: exactly at StrongBuy grades BUY, exactly
// at Buy or Sell grades HOLD, exactly at StrongSell grades SELL.
func gradeChange(change decimal.Decimal, t models.SignalThresholds) models.SignalLevel {
	switch {
	case change.GreaterThan(t.StrongBuy):
		return models.SignalStrongBuy
	case change.GreaterThan(t.Buy):
		return models.SignalBuy
	case change.GreaterThanOrEqual(t.Sell):
		return models.SignalHold
	case change.GreaterThanOrEqual(t.StrongSell):
		return models.SignalSell
	}
	return models.SignalStrongSell
}
