package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/krish567366/submicro-execution-engine/internal/types"
)

func baseOrder(side types.Side, price float64, qty uint64) types.Order {
	return types.Order{OrderID: 1, Side: side, Price: price, Quantity: qty, IsActive: true}
}

func TestCheckAllowsWithinAllLimits(t *testing.T) {
	g := New(Config{MaxPosition: 1000, MaxTradeNotional: 100_000, MaxDailyLoss: 5_000})
	ok, reason := g.Check(baseOrder(types.Buy, 100, 10), 0)
	assert.True(t, ok)
	assert.Equal(t, ReasonNone, reason)
}

func TestCheckDeniesPositionLimitBreach(t *testing.T) {
	g := New(Config{MaxPosition: 100, MaxTradeNotional: 1e9, MaxDailyLoss: 1e9})
	ok, reason := g.Check(baseOrder(types.Buy, 100, 50), 80)
	assert.False(t, ok)
	assert.Equal(t, ReasonPositionLimit, reason)
}

func TestCheckDeniesNotionalCapBreach(t *testing.T) {
	g := New(Config{MaxPosition: 1e9, MaxTradeNotional: 1000, MaxDailyLoss: 1e9})
	ok, reason := g.Check(baseOrder(types.Buy, 100, 50), 0)
	assert.False(t, ok)
	assert.Equal(t, ReasonNotionalCap, reason)
}

func TestCheckDeniesDailyLossCapBreach(t *testing.T) {
	g := New(Config{MaxPosition: 1e9, MaxTradeNotional: 1e9, MaxDailyLoss: 100})
	g.RecordPnL(-150)
	ok, reason := g.Check(baseOrder(types.Buy, 10, 1), 0)
	assert.False(t, ok)
	assert.Equal(t, ReasonDailyLossCap, reason)
}

func TestCheckDeniesWhenRegimeHalted(t *testing.T) {
	g := New(Config{MaxPosition: 1e9, MaxTradeNotional: 1e9, MaxDailyLoss: 1e9})
	g.SetRegime(types.RegimeHalted)
	ok, reason := g.Check(baseOrder(types.Buy, 10, 1), 0)
	assert.False(t, ok)
	assert.Equal(t, ReasonRegimeHalted, reason)
}

func TestCheckDeniesNakedShortWhenPolicyEnabled(t *testing.T) {
	g := New(Config{MaxPosition: 1e9, MaxTradeNotional: 1e9, MaxDailyLoss: 1e9, DenyNakedShort: true})
	ok, reason := g.Check(baseOrder(types.Sell, 10, 1), 0)
	assert.False(t, ok)
	assert.Equal(t, ReasonNakedShort, reason)
}

func TestCheckAllowsCoveredShortEvenWithNakedShortPolicy(t *testing.T) {
	g := New(Config{MaxPosition: 1e9, MaxTradeNotional: 1e9, MaxDailyLoss: 1e9, DenyNakedShort: true})
	ok, _ := g.Check(baseOrder(types.Sell, 10, 1), 5)
	assert.True(t, ok)
}

func TestRealizedLossIsZeroWhenNetProfitable(t *testing.T) {
	g := New(Config{})
	g.RecordPnL(100)
	g.RecordPnL(-40)
	assert.Equal(t, float64(0), g.RealizedLoss())
}
