package orderbook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/krish567366/submicro-execution-engine/internal/types"
)

func newTestBook(t *testing.T) *Book {
	t.Helper()
	return New("TEST", zap.NewNop())
}

// Scenario A (spec §8): empty book -> ADD(seq=1, order=7, BUY, 100.00, 10)
// -> top_of_book = (bid=100.00/10, ask=absent); total_ofi = 10.
func TestScenarioA_AddIntoEmptyBook(t *testing.T) {
	b := newTestBook(t)

	ok, err := b.ApplyUpdate(Update{
		Kind: Add, OrderID: 7, Price: 100.00, Quantity: 10,
		Side: types.Buy, SequenceNumber: 1, TimestampNs: 1,
	})
	require.NoError(t, err)
	require.True(t, ok)

	bid, hasBid, _, hasAsk := b.TopOfBook()
	require.True(t, hasBid)
	assert.False(t, hasAsk)
	assert.Equal(t, 100.00, bid.Price)
	assert.Equal(t, uint64(10), bid.Quantity)

	assert.Equal(t, float64(10), b.Latest().TotalOFI)
}

// Scenario B (spec §8): best bid 100.00/10, best ask 100.02/5 -> a buy-side
// trade prints at 100.02 for qty 5 against an unknown order id -> the ask
// level is fully consumed and buy_pressure increases by 5; all other levels
// are unchanged.
func TestScenarioB_UnknownExecuteConsumesContraLevel(t *testing.T) {
	b := newTestBook(t)

	_, err := b.ApplyUpdate(Update{Kind: Add, OrderID: 1, Price: 100.00, Quantity: 10, Side: types.Buy, SequenceNumber: 1})
	require.NoError(t, err)
	_, err = b.ApplyUpdate(Update{Kind: Add, OrderID: 2, Price: 100.02, Quantity: 5, Side: types.Sell, SequenceNumber: 2})
	require.NoError(t, err)

	ok, err := b.ApplyUpdate(Update{
		Kind: Execute, OrderID: 999, Price: 100.02, Quantity: 5,
		Side: types.Buy, SequenceNumber: 3,
	})
	require.NoError(t, err)
	require.True(t, ok)

	_, hasBid, _, hasAsk := b.TopOfBook()
	assert.True(t, hasBid)
	assert.False(t, hasAsk, "the only ask level must be fully consumed")
	assert.Equal(t, float64(5), b.Latest().BuyPressure)

	bid, _, _, _ := b.TopOfBook()
	assert.Equal(t, 100.00, bid.Price)
	assert.Equal(t, uint64(10), bid.Quantity, "the bid side must be unaffected")
}

// Scenario C (spec §8): updates seq 1,2,3 apply; seq 5 is rejected and sets
// the gap flag; a snapshot at seq 10 clears the flag; seq 11 is then
// accepted.
func TestScenarioC_SequenceGapThenSnapshotRecovery(t *testing.T) {
	b := newTestBook(t)

	for _, seq := range []uint64{1, 2, 3} {
		_, err := b.ApplyUpdate(Update{Kind: Add, OrderID: seq, Price: 100.00 + float64(seq), Quantity: 1, Side: types.Buy, SequenceNumber: seq})
		require.NoError(t, err)
	}
	assert.False(t, b.GapFlagged())

	ok, err := b.ApplyUpdate(Update{Kind: Add, OrderID: 5, Price: 105.00, Quantity: 1, Side: types.Buy, SequenceNumber: 5})
	assert.False(t, ok)
	require.Error(t, err)
	assert.True(t, b.GapFlagged())

	_, err = b.ApplyUpdate(Update{Kind: Add, OrderID: 6, Price: 106.00, Quantity: 1, Side: types.Buy, SequenceNumber: 6})
	assert.Error(t, err, "updates while gap-flagged must keep being rejected")

	b.ApplySnapshot(Snapshot{
		Bids:           []LevelSnapshot{{Price: 100.00, Quantity: 10}},
		SequenceNumber: 10,
	})
	assert.False(t, b.GapFlagged())

	ok, err = b.ApplyUpdate(Update{Kind: Add, OrderID: 11, Price: 100.50, Quantity: 1, Side: types.Buy, SequenceNumber: 11})
	require.NoError(t, err)
	assert.True(t, ok)
}

// Universal invariant 1: balanced ADD/DELETE pairs leave the book empty.
func TestInvariant_BalancedAddDeleteEmptiesBook(t *testing.T) {
	b := newTestBook(t)
	seq := uint64(0)
	next := func() uint64 { seq++; return seq }

	orders := []struct {
		id    uint64
		price float64
		side  types.Side
	}{
		{1, 100.00, types.Buy},
		{2, 100.05, types.Buy},
		{3, 100.10, types.Sell},
		{4, 100.15, types.Sell},
	}
	for _, o := range orders {
		_, err := b.ApplyUpdate(Update{Kind: Add, OrderID: o.id, Price: o.price, Quantity: 7, Side: o.side, SequenceNumber: next()})
		require.NoError(t, err)
	}
	for _, o := range orders {
		ok, err := b.ApplyUpdate(Update{Kind: Delete, OrderID: o.id, Side: o.side, SequenceNumber: next()})
		require.NoError(t, err)
		require.True(t, ok)
	}

	_, hasBid, _, hasAsk := b.TopOfBook()
	assert.False(t, hasBid)
	assert.False(t, hasAsk)

	bids, asks := b.Depth(10)
	assert.Empty(t, bids)
	assert.Empty(t, asks)
}

// Universal invariant 2: every present level has quantity > 0 and
// order_count > 0; a level violating either must be absent.
func TestInvariant_PresentLevelsAreNonEmpty(t *testing.T) {
	b := newTestBook(t)
	_, err := b.ApplyUpdate(Update{Kind: Add, OrderID: 1, Price: 100.00, Quantity: 10, Side: types.Buy, SequenceNumber: 1})
	require.NoError(t, err)
	_, err = b.ApplyUpdate(Update{Kind: Add, OrderID: 2, Price: 100.00, Quantity: 5, Side: types.Buy, SequenceNumber: 2})
	require.NoError(t, err)

	bids, _ := b.Depth(10)
	require.Len(t, bids, 1)
	assert.Greater(t, bids[0].Quantity, uint64(0))
	assert.Greater(t, bids[0].OrderCount, uint32(0))

	_, err = b.ApplyUpdate(Update{Kind: Delete, OrderID: 1, SequenceNumber: 3})
	require.NoError(t, err)
	bids, _ = b.Depth(10)
	require.Len(t, bids, 1)
	assert.Equal(t, uint64(5), bids[0].Quantity)

	_, err = b.ApplyUpdate(Update{Kind: Delete, OrderID: 2, SequenceNumber: 4})
	require.NoError(t, err)
	bids, _ = b.Depth(10)
	assert.Empty(t, bids, "a fully drained level must not remain present")
}

// Universal invariant 3: bid_ofi[i] equals the exact post-minus-pre delta,
// and sum(bid_ofi - ask_ofi) equals total_ofi exactly.
func TestInvariant_OFIDeltaIsExact(t *testing.T) {
	b := newTestBook(t)
	_, err := b.ApplyUpdate(Update{Kind: Add, OrderID: 1, Price: 100.00, Quantity: 10, Side: types.Buy, SequenceNumber: 1})
	require.NoError(t, err)

	_, err = b.ApplyUpdate(Update{Kind: Add, OrderID: 2, Price: 100.00, Quantity: 4, Side: types.Buy, SequenceNumber: 2})
	require.NoError(t, err)

	f := b.Latest()
	assert.Equal(t, float64(4), f.BidOFI[0])
	assert.Equal(t, float64(0), f.AskOFI[0])

	var sum float64
	for i := 0; i < MaxDepthFeature; i++ {
		sum += f.BidOFI[i] - f.AskOFI[i]
	}
	assert.InDelta(t, f.TotalOFI, sum, 1e-12)
}

// Universal invariant 4: top_of_book returns the strict max bid and strict
// min ask.
func TestInvariant_TopOfBookIsStrictBestOnEachSide(t *testing.T) {
	b := newTestBook(t)
	prices := []float64{99.90, 100.00, 99.95}
	for i, p := range prices {
		_, err := b.ApplyUpdate(Update{Kind: Add, OrderID: uint64(i + 1), Price: p, Quantity: 1, Side: types.Buy, SequenceNumber: uint64(i + 1)})
		require.NoError(t, err)
	}
	askPrices := []float64{100.10, 100.20, 100.05}
	for i, p := range askPrices {
		_, err := b.ApplyUpdate(Update{Kind: Add, OrderID: uint64(i + 10), Price: p, Quantity: 1, Side: types.Sell, SequenceNumber: uint64(i + 4)})
		require.NoError(t, err)
	}

	bid, hasBid, ask, hasAsk := b.TopOfBook()
	require.True(t, hasBid)
	require.True(t, hasAsk)
	assert.Equal(t, 100.00, bid.Price)
	assert.Equal(t, 100.05, ask.Price)
}

func TestModifyOnUnknownOrderIsPromotedToAdd(t *testing.T) {
	b := newTestBook(t)
	ok, err := b.ApplyUpdate(Update{Kind: Modify, OrderID: 42, Price: 100.00, Quantity: 3, Side: types.Buy, SequenceNumber: 1})
	require.NoError(t, err)
	assert.True(t, ok)

	bid, hasBid, _, _ := b.TopOfBook()
	require.True(t, hasBid)
	assert.Equal(t, uint64(3), bid.Quantity)
}

func TestDeleteOnUnknownOrderReturnsFalseWithoutMutation(t *testing.T) {
	b := newTestBook(t)
	_, err := b.ApplyUpdate(Update{Kind: Add, OrderID: 1, Price: 100.00, Quantity: 10, Side: types.Buy, SequenceNumber: 1})
	require.NoError(t, err)

	ok, err := b.ApplyUpdate(Update{Kind: Delete, OrderID: 999, SequenceNumber: 2})
	require.NoError(t, err)
	assert.False(t, ok)

	bid, _, _, _ := b.TopOfBook()
	assert.Equal(t, uint64(10), bid.Quantity, "an unknown-order delete must not mutate the book")
}
