package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCompositeBandsGrade(t *testing.T) {
	bands := DefaultCompositeBands()

	assert.Equal(t, SignalStrongBuy, bands.Grade(decimal.NewFromFloat(9.5)))
	assert.Equal(t, SignalBuy, bands.Grade(decimal.NewFromInt(9)))
	assert.Equal(t, SignalBuy, bands.Grade(decimal.NewFromFloat(3.5)))
	assert.Equal(t, SignalHold, bands.Grade(decimal.NewFromInt(3)))
	assert.Equal(t, SignalHold, bands.Grade(decimal.Zero))
	assert.Equal(t, SignalHold, bands.Grade(decimal.NewFromInt(-3)))
	assert.Equal(t, SignalSell, bands.Grade(decimal.NewFromFloat(-3.5)))
	assert.Equal(t, SignalSell, bands.Grade(decimal.NewFromInt(-9)))
	assert.Equal(t, SignalStrongSell, bands.Grade(decimal.NewFromFloat(-9.5)))
}

func TestSignalSide(t *testing.T) {
	assert.Equal(t, EntrySideBuy, SignalStrongBuy.Side())
	assert.Equal(t, EntrySideBuy, SignalBuy.Side())
	assert.Equal(t, EntrySideNone, SignalHold.Side())
	assert.Equal(t, EntrySideSell, SignalSell.Side())
	assert.Equal(t, EntrySideSell, SignalStrongSell.Side())
	assert.Equal(t, EntrySideNone, SignalNone.Side())
}

func TestOutcomeTerminal(t *testing.T) {
	assert.False(t, OutcomePending.Terminal())
	for _, outcome := range []Outcome{OutcomeWorked, OutcomeDidntWork, OutcomeExpired, OutcomeNoEntry, OutcomeError} {
		assert.True(t, outcome.Terminal(), string(outcome))
	}
}
