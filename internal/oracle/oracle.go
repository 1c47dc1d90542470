// Package oracle defines the InferenceOracle boundary of spec §9: a
// fixed-latency feature→prediction step the pipeline treats as opaque.
// The spec deliberately does not fix a normalization or model format,
// so this package exposes only the interface and a deterministic
// reference implementation suitable for backtesting, grounded on the
// teacher's pattern of small interfaces in internal/ packages consumed
// by a single concrete implementation at wiring time (e.g.
// internal/risk's checker interfaces).
package oracle

import "github.com/krish567366/submicro-execution-engine/internal/orderbook"

// Prediction is the oracle's opaque output: a directional signal in
// [-1, 1] and a confidence in [0, 1]. Downstream consumers (QuoteEngine)
// read it as one more feature; its internal derivation is the oracle's
// concern, not the pipeline's.
type Prediction struct {
	Signal     float64
	Confidence float64
}

// Oracle maps a feature snapshot to a Prediction. Implementations are
// expected to run in bounded, predictable latency on the hot path —
// spec §9 fixes the latency contract, not the model.
type Oracle interface {
	Predict(features orderbook.DeepOFIFeatures, buyIntensity, sellIntensity float64) Prediction
}

// LinearOracle is a deterministic reference Oracle: a fixed linear
// combination of order-flow imbalance and intensity imbalance. It
// exists so BacktestDriver has a concrete, reproducible oracle without
// depending on any external model format.
type LinearOracle struct {
	OFIWeight       float64
	IntensityWeight float64
}

// Predict computes Signal as the weighted sum of volume_imbalance and
// the intensity imbalance, clamped to [-1, 1]; Confidence scales with
// |Signal|.
func (o LinearOracle) Predict(features orderbook.DeepOFIFeatures, buyIntensity, sellIntensity float64) Prediction {
	intensityImbalance := 0.0
	if total := buyIntensity + sellIntensity; total >= 1e-10 {
		intensityImbalance = (buyIntensity - sellIntensity) / total
	}

	signal := o.OFIWeight*features.VolumeImbalance + o.IntensityWeight*intensityImbalance
	if signal > 1 {
		signal = 1
	} else if signal < -1 {
		signal = -1
	}
	return Prediction{Signal: signal, Confidence: abs(signal)}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
