package orderbook

// publishFeatures computes the deep-OFI feature vector of spec §4.3
// against the pre-update snapshot captured before the mutation, stores it
// as Latest, and fans it out to every registered observer.
func (b *Book) publishFeatures(preBid, preAsk [MaxDepthFeature]uint64, tsNs int64) {
	postBid := b.bids.quantitiesUpTo(MaxDepthFeature)
	postAsk := b.asks.quantitiesUpTo(MaxDepthFeature)

	var f DeepOFIFeatures
	f.TimestampNs = tsNs

	var totalOFI, top5OFI, top1OFI float64
	var weightedNum, weightedDen float64
	for i := 0; i < MaxDepthFeature; i++ {
		bidOFI := float64(postBid[i]) - float64(preBid[i])
		askOFI := float64(postAsk[i]) - float64(preAsk[i])
		f.BidOFI[i] = bidOFI
		f.AskOFI[i] = askOFI

		totalOFI += bidOFI - askOFI
		if i < 5 {
			top5OFI += bidOFI - askOFI
		}
		if i == 0 {
			top1OFI = bidOFI - askOFI
		}

		weightedNum += bidOFI*float64(postBid[i]) - askOFI*float64(postAsk[i])
		weightedDen += float64(postBid[i]) + float64(postAsk[i])
	}
	f.TotalOFI = totalOFI
	f.Top5OFI = top5OFI
	f.Top1OFI = top1OFI
	if weightedDen > 0 {
		f.WeightedOFI = weightedNum / weightedDen
	}

	bidVolume := float64(b.bids.totalVolume())
	askVolume := float64(b.asks.totalVolume())
	if bidVolume+askVolume > 0 {
		f.VolumeImbalance = (bidVolume - askVolume) / (bidVolume + askVolume)
	}

	numBidLevels := float64(b.bids.numLevels())
	numAskLevels := float64(b.asks.numLevels())
	if numBidLevels+numAskLevels > 0 {
		f.DepthImbalance = (numBidLevels - numAskLevels) / (numBidLevels + numAskLevels)
	}

	bestBid, hasBid := b.bids.best()
	bestAsk, hasAsk := b.asks.best()
	if hasBid && hasAsk {
		f.Spread = bestAsk.Price - bestBid.Price
		f.Mid = (bestBid.Price + bestAsk.Price) / 2
		denom := bestBid.Quantity + bestAsk.Quantity
		if denom > 0 {
			f.Microprice = (bestBid.Price*float64(bestAsk.Quantity) + bestAsk.Price*float64(bestBid.Quantity)) / float64(denom)
		} else {
			f.Microprice = f.Mid
		}
	}

	f.BuyPressure = float64(b.buyPressure.sum)
	f.SellPressure = float64(b.sellPressure.sum)
	f.NetPressure = f.BuyPressure - f.SellPressure

	b.micropriceHistory.push(f.Microprice)
	b.spreadHistory.push(f.Spread)
	f.MicropriceVolatility = b.micropriceHistory.stddev()
	f.SpreadVolatility = b.spreadHistory.stddev()

	b.latest = f
	for _, obs := range b.observers {
		obs(f)
	}
}
