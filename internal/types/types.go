// Package types holds the data model shared across the tick-to-trade
// pipeline's stage boundaries: the structures that cross an SPSC queue by
// value copy (spec §3 Ownership) rather than living inside a single
// component.
package types

// Side is the taker/order direction.
type Side uint8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Sell {
		return "SELL"
	}
	return "BUY"
}

// Sign returns +1 for Buy, -1 for Sell, for position-delta arithmetic.
func (s Side) Sign() int64 {
	if s == Sell {
		return -1
	}
	return 1
}

const maxDepthLevels = 10

// Tick is one discrete market-data observation: cache-aligned in the
// reference implementation, trivially copyable here so it can be stored
// in place inside a tickqueue.Ring. Depth levels beyond BestBid/BestAsk
// are carried in the fixed [10]-element arrays; unused levels are zero.
type Tick struct {
	TimestampNs  int64
	AssetID      uint32
	BidPrice     float64
	AskPrice     float64
	MidPrice     float64
	BidSize      uint64
	AskSize      uint64
	TradeVolume  uint64
	TradeSide    Side
	DepthLevels  uint8

	BidPrices [maxDepthLevels]float64
	AskPrices [maxDepthLevels]float64
	BidSizes  [maxDepthLevels]uint64
	AskSizes  [maxDepthLevels]uint64
}

// Order is created by QuoteEngine, validated by RiskGate, and submitted
// by the BacktestDriver. OrderID is caller-supplied and unique within a
// session; it is never generated by the hot path itself.
type Order struct {
	OrderID     uint64
	AssetID     uint32
	Side        Side
	Price       float64
	Quantity    uint64
	SubmitTsNs  int64
	IsActive    bool
}

// SignedQty returns Quantity with the sign implied by Side, for position
// accounting (spec §4.6: |current_position + signed_qty(order)|).
func (o Order) SignedQty() int64 {
	return o.Side.Sign() * int64(o.Quantity)
}

// QuotePair is the QuoteEngine's output: bid < ask, spread >=
// minimum_spread (spec §3, §4.5).
type QuotePair struct {
	BidPrice    float64
	AskPrice    float64
	BidSize     float64
	AskSize     float64
	Spread      float64
	MidPrice    float64
	GeneratedAt int64
}

// MarketRegime gates quote size via its multiplier (spec §3).
type MarketRegime uint8

const (
	RegimeNormal MarketRegime = iota
	RegimeElevated
	RegimeHighStress
	RegimeHalted
)

// SizeMultiplier returns the regime's quote-size multiplier: 1.0, 0.7,
// 0.4, 0.0 respectively.
func (r MarketRegime) SizeMultiplier() float64 {
	switch r {
	case RegimeElevated:
		return 0.7
	case RegimeHighStress:
		return 0.4
	case RegimeHalted:
		return 0.0
	default:
		return 1.0
	}
}

// TradingEvent is consumed by the IntensityEngine: arrival time, taker
// side, asset id, and the intensity snapshot at the moment it arrived.
type TradingEvent struct {
	ArrivalTimeNs int64
	EventSide     Side
	AssetID       uint32
	Intensity     float64
}
