package backtest

import "math"

// TemporalFilterParams configures the persistence gate of spec §4.7/§9:
// require order-book imbalance to exceed Threshold for at least
// MinPersistenceTicks consecutive same-direction ticks, with a quality
// check against the running average, before a signal is allowed to
// trade. Grounded on original_source/include/backtesting_engine.hpp's
// TemporalFilterState / generate_trading_signal, generalized from
// hardcoded constants to configuration.
type TemporalFilterParams struct {
	Threshold            float64 // θ
	MinPersistenceTicks  int     // N_persist
	QualityRatio         float64 // ρ
}

// DefaultTemporalFilterParams reproduces spec §8 scenario E's constants.
func DefaultTemporalFilterParams() TemporalFilterParams {
	return TemporalFilterParams{Threshold: 0.09, MinPersistenceTicks: 12, QualityRatio: 0.60}
}

// TemporalFilterState is the running persistence-tracking state for one
// instrument's OBI signal.
type TemporalFilterState struct {
	params TemporalFilterParams

	accumulatedOBI     float64
	signalStartTimeNs  int64
	confirmationTicks  int
	lastDirection      float64
	maxOBIStrength     float64
	avgOBIStrength     float64
}

// NewTemporalFilterState constructs a filter with the given parameters.
func NewTemporalFilterState(params TemporalFilterParams) *TemporalFilterState {
	return &TemporalFilterState{params: params}
}

// Reset clears all accumulated persistence state.
func (f *TemporalFilterState) Reset() {
	f.accumulatedOBI = 0
	f.signalStartTimeNs = 0
	f.confirmationTicks = 0
	f.lastDirection = 0
	f.maxOBIStrength = 0
	f.avgOBIStrength = 0
}

// Update folds in one tick's OBI reading and reports whether the signal
// has now persisted long enough, with enough quality, to trade (spec
// §8 scenario E).
func (f *TemporalFilterState) Update(obi float64, nowNs int64) (persistent bool) {
	if math.Abs(obi) <= f.params.Threshold {
		f.Reset()
		return false
	}

	direction := 1.0
	if obi < 0 {
		direction = -1.0
	}
	directionConsistent := direction == f.lastDirection || f.confirmationTicks == 0

	if !directionConsistent {
		f.Reset()
		f.signalStartTimeNs = nowNs
		f.lastDirection = direction
		f.accumulatedOBI = obi
		f.confirmationTicks = 1
		f.maxOBIStrength = math.Abs(obi)
		f.avgOBIStrength = math.Abs(obi)
		return false
	}

	if f.confirmationTicks == 0 {
		f.signalStartTimeNs = nowNs
		f.lastDirection = direction
	}
	f.accumulatedOBI += obi
	f.confirmationTicks++
	f.maxOBIStrength = math.Max(f.maxOBIStrength, math.Abs(obi))
	f.avgOBIStrength = f.accumulatedOBI / float64(f.confirmationTicks)

	if f.confirmationTicks < f.params.MinPersistenceTicks {
		return false
	}

	currentStrength := math.Abs(obi)
	avgStrength := math.Abs(f.avgOBIStrength)
	return currentStrength >= f.params.QualityRatio*avgStrength
}

// SignalPersistenceNs reports how long the current signal has been
// accumulating, valid only when the most recent Update returned true.
func (f *TemporalFilterState) SignalPersistenceNs(nowNs int64) int64 {
	if f.signalStartTimeNs == 0 {
		return 0
	}
	return nowNs - f.signalStartTimeNs
}

// AverageOBIStrength exposes the running signed average for callers
// that size orders off signal strength.
func (f *TemporalFilterState) AverageOBIStrength() float64 { return f.avgOBIStrength }
