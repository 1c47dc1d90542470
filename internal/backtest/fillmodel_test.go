package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/krish567366/submicro-execution-engine/internal/types"
)

func TestScenarioF_MarketableOrderFillsWithCertainty(t *testing.T) {
	model := NewFillProbabilityModel(DefaultFillModelParams())
	order := types.Order{Side: types.Buy, Price: 100.00, Quantity: 10}
	tick := types.Tick{BidPrice: 99.98, AskPrice: 100.00, MidPrice: 99.99, BidSize: 40, AskSize: 40}

	p := model.CalculateFillProbability(order, tick, 0, 0.20, 500)

	assert.Equal(t, 1.0, p)
}

func TestScenarioF_SlippageOnMarketableOrder(t *testing.T) {
	model := NewFillProbabilityModel(DefaultFillModelParams())
	tick := types.Tick{BidPrice: 99.98, AskPrice: 100.00, MidPrice: 100.00, BidSize: 20, AskSize: 20}

	slippage := model.CalculateSlippage(tick, 0.25)

	assert.InDelta(t, 0.0025, slippage, 1e-9)
}

func TestFarFromMarketOrderIsHeavilyDiscounted(t *testing.T) {
	model := NewFillProbabilityModel(DefaultFillModelParams())
	nearOrder := types.Order{Side: types.Buy, Price: 99.99, Quantity: 10}
	farOrder := types.Order{Side: types.Buy, Price: 99.00, Quantity: 10}
	tick := types.Tick{BidPrice: 99.99, AskPrice: 100.01, MidPrice: 100.00}

	pNear := model.CalculateFillProbability(nearOrder, tick, 0, 0.20, 500)
	pFar := model.CalculateFillProbability(farOrder, tick, 0, 0.20, 500)

	assert.Less(t, pFar, pNear)
}

func TestFillProbabilityDecaysWithQueuePosition(t *testing.T) {
	model := NewFillProbabilityModel(DefaultFillModelParams())
	order := types.Order{Side: types.Buy, Price: 99.99, Quantity: 10}
	tick := types.Tick{BidPrice: 99.99, AskPrice: 100.01, MidPrice: 100.00}

	pFront := model.CalculateFillProbability(order, tick, 0, 0.20, 500)
	pBack := model.CalculateFillProbability(order, tick, 20, 0.20, 500)

	assert.Less(t, pBack, pFront)
}

func TestFillProbabilityIsClampedToUnitInterval(t *testing.T) {
	model := NewFillProbabilityModel(DefaultFillModelParams())
	order := types.Order{Side: types.Sell, Price: 200.00, Quantity: 10}
	tick := types.Tick{BidPrice: 99.99, AskPrice: 100.01, MidPrice: 100.00}

	p := model.CalculateFillProbability(order, tick, 1000, 5.0, 1_000_000)

	assert.GreaterOrEqual(t, p, 0.0)
	assert.LessOrEqual(t, p, 1.0)
}

func TestAdverseSelectionPenaltyAppliesWhenMarketMovesAgainstOrder(t *testing.T) {
	model := NewFillProbabilityModel(DefaultFillModelParams())
	order := types.Order{Side: types.Buy, Price: 99.90, Quantity: 10}
	favorable := types.Tick{BidPrice: 99.85, AskPrice: 99.95, MidPrice: 99.90}
	adverse := types.Tick{BidPrice: 99.95, AskPrice: 100.05, MidPrice: 100.00}

	pFavorable := model.CalculateFillProbability(order, favorable, 0, 0.20, 500)
	pAdverse := model.CalculateFillProbability(order, adverse, 0, 0.20, 500)

	assert.Less(t, pAdverse, pFavorable)
}
