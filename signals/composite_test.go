package signals

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"gitlab.com/teomiscia/openingbell/models"
)

func row(weight int, instrumentWeight float64) Classification {
	return Classification{
		SignalWeight:     weight,
		InstrumentWeight: decimal.NewFromFloat(instrumentWeight),
	}
}

func TestComputeCompositeWeightedSum(t *testing.T) {
	result := ComputeComposite([]Classification{row(2, 1.5), row(1, 1), row(-1, 0.5)},
		models.DefaultCompositeBands())

	assert.True(t, result.Score.Equal(decimal.NewFromFloat(3.5)), result.Score.String())
	assert.Equal(t, models.SignalBuy, result.Signal)
}

func TestComputeCompositeBandEdges(t *testing.T) {
	bands := models.DefaultCompositeBands()

	cases := []struct {
		rows   []Classification
		signal models.SignalLevel
	}{
		{[]Classification{row(2, 5)}, models.SignalStrongBuy},
		{[]Classification{row(2, 4.5)}, models.SignalBuy},
		{[]Classification{row(1, 3)}, models.SignalHold},
		{[]Classification{row(-1, 3)}, models.SignalHold},
		{[]Classification{row(-2, 2)}, models.SignalSell},
		{[]Classification{row(-2, 4.5)}, models.SignalSell},
		{[]Classification{row(-2, 5)}, models.SignalStrongSell},
	}
	for _, c := range cases {
		result := ComputeComposite(c.rows, bands)
		assert.Equal(t, c.signal, result.Signal, "score %s", result.Score.String())
	}
}

func TestComputeCompositeSkipsZeroWeights(t *testing.T) {
	result := ComputeComposite([]Classification{row(0, 100), row(1, 2)},
		models.DefaultCompositeBands())

	assert.True(t, result.Score.Equal(decimal.NewFromInt(2)), result.Score.String())
	assert.Equal(t, models.SignalHold, result.Signal)
}

func TestComputeCompositeEmpty(t *testing.T) {
	result := ComputeComposite(nil, models.DefaultCompositeBands())
	assert.True(t, result.Score.IsZero())
	assert.Equal(t, models.SignalHold, result.Signal)
}
