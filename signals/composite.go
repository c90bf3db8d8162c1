package signals

import (
	"github.com/shopspring/decimal"

	"gitlab.com/teomiscia/openingbell/models"
)

// CompositeResult is the market-wide verdict for one capture.
type CompositeResult struct {
	Signal models.SignalLevel
	Score  decimal.Decimal
}

// ComputeComposite folds per-instrument classifications into the
// weighted sum and grades it against the bands. It is a pure function
// of its inputs: the same classifications always produce the same
// verdict.
func ComputeComposite(rows []Classification, bands models.CompositeBands) CompositeResult {
	sum := decimal.Zero
	for _, row := range rows {
		if row.SignalWeight == 0 {
			continue
		}
		contribution := decimal.NewFromInt(int64(row.SignalWeight)).Mul(row.InstrumentWeight)
		sum = sum.Add(contribution)
	}
	return CompositeResult{
		Signal: bands.Grade(sum),
		Score:  sum,
	}
}
