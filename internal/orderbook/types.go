package orderbook

import "github.com/krish567366/submicro-execution-engine/internal/types"

// MaxLevels bounds the number of live price levels tracked per side
// (spec §4.2: "Capacity is bounded (≤ 100 levels per side)").
const MaxLevels = 100

// MaxDepthFeature is the number of levels the deep-OFI feature vector
// tracks per side (spec §3/§4.3: "up to 10 levels").
const MaxDepthFeature = 10

// PriceLevel aggregates all resting quantity at one price (spec §3).
// Invariant: Quantity >= 0; OrderCount == 0 iff Quantity == 0 iff the
// level is absent from the book.
type PriceLevel struct {
	Price        float64
	Quantity     uint64
	OrderCount   uint32
	LastUpdateNs int64
}

// TrackedOrder resolves MODIFY/DELETE/EXECUTE against a level without the
// level needing to enumerate its constituent orders (spec §9: "the level
// does not point back at individual orders").
type TrackedOrder struct {
	OrderID  uint64
	Price    float64
	Quantity uint64
	Side     types.Side
}

// UpdateKind selects the mutation apply_update performs (spec §4.2).
type UpdateKind uint8

const (
	Add UpdateKind = iota
	Modify
	Delete
	Execute
)

// Update is one incoming book mutation, carrying the monotonic sequence
// number the gap detector checks (spec §4.2).
type Update struct {
	Kind           UpdateKind
	OrderID        uint64
	Price          float64
	Quantity       uint64
	Side           types.Side
	SequenceNumber uint64
	TimestampNs    int64
}

// LevelSnapshot is one side's resting levels at the moment a full
// snapshot was captured or requested.
type LevelSnapshot struct {
	Price    float64
	Quantity uint64
}

// Snapshot replaces the entire book and clears the gap flag
// (spec §4.2 apply_snapshot).
type Snapshot struct {
	Bids           []LevelSnapshot
	Asks           []LevelSnapshot
	SequenceNumber uint64
}

// DeepOFIFeatures is the per-update feature vector of spec §3/§4.3, with
// two supplemental rolling-volatility fields pulled in from
// original_source/include/order_book_reconstructor.hpp (see SPEC_FULL.md
// §3).
type DeepOFIFeatures struct {
	BidOFI [MaxDepthFeature]float64
	AskOFI [MaxDepthFeature]float64

	TotalOFI    float64
	Top5OFI     float64
	Top1OFI     float64
	WeightedOFI float64

	VolumeImbalance float64
	DepthImbalance  float64

	Spread     float64
	Mid        float64
	Microprice float64

	BuyPressure float64
	SellPressure float64
	NetPressure  float64

	MicropriceVolatility float64
	SpreadVolatility     float64

	TimestampNs int64
}

// FeatureObserver receives a DeepOFIFeatures snapshot published after
// every applied update (spec §4.3: "published through a registered
// observer callback list").
type FeatureObserver func(DeepOFIFeatures)
