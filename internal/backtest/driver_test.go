package backtest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/krish567366/submicro-execution-engine/internal/types"
)

const testEventCSV = `ts_us,event_type,side,price,size,order_id,level
0,add,B,100.00,10,1,0
100,add,S,100.10,10,2,0
500,add,B,99.95,5,3,1
1000,trade,B,100.10,3,2,0
2000,add,S,100.15,8,4,1
3000,add,B,99.90,6,5,2
5000,trade,S,99.95,2,3,0
8000,add,S,100.20,4,6,2
12000,add,B,99.85,7,7,3
20000,trade,B,100.10,1,4,0
`

func loadTestEvents(t *testing.T) []HistoricalEvent {
	t.Helper()
	events, skipped, err := LoadHistoricalEvents(strings.NewReader(testEventCSV))
	require.NoError(t, err)
	require.Zero(t, skipped)
	return events
}

func newTestDriverConfig() Config {
	return Config{
		SimulatedLatencyNs: 850,
		InitialCapital:     1_000_000,
		CommissionPerShare: 0.0005,
		MaxPosition:        1000,
		EnableSlippage:     true,
		RandomSeed:         42,
		TimeHorizonSeconds: 300,
		RiskAversion:       0.01,
		SigmaSquaredPerSec: 1e-8,
		OrderArrivalRate:   10,
		TickSize:           0.01,
		HawkesBaselineBuy:  0.5,
		HawkesBaselineSell: 0.5,
		HawkesAlphaSelf:    0.3,
		HawkesAlphaCross:   0.1,
		HawkesBeta:         1.0,
		HawkesGamma:        1.5,
	}
}

func TestInvariant9_IdenticalInputsProduceIdenticalReports(t *testing.T) {
	events := loadTestEvents(t)
	cfg := newTestDriverConfig()

	d1 := New(cfg, zap.NewNop(), nil, nil)
	r1 := d1.Run(events)

	d2 := New(cfg, zap.NewNop(), nil, nil)
	r2 := d2.Run(events)

	assert.Equal(t, r1.TotalPnL, r2.TotalPnL)
	assert.Equal(t, r1.TotalTrades, r2.TotalTrades)
	assert.Equal(t, r1.FillRate, r2.FillRate)
	assert.Equal(t, r1.EquityCurve, r2.EquityCurve)
}

type recordingEventLog struct {
	entries []EventLogEntry
}

func (r *recordingEventLog) Log(e EventLogEntry) { r.entries = append(r.entries, e) }

func TestInvariant10_NoFillBeforeLatencyFloor(t *testing.T) {
	events := loadTestEvents(t)
	cfg := newTestDriverConfig()
	cfg.SimulatedLatencyNs = 1 // request far below the 550ns floor

	d := New(cfg, zap.NewNop(), nil, nil)
	rec := &recordingEventLog{}
	d.SetEventLog(rec)
	d.Run(events)

	assert.Equal(t, MinimumLatencyFloorNs, d.cfg.EffectiveLatencyNs())
	for _, e := range rec.entries {
		if e.Event == LogFill {
			assert.GreaterOrEqual(t, e.LatencyNs, MinimumLatencyFloorNs)
		}
	}
}

func TestEffectiveLatencyNsNeverBelowFloor(t *testing.T) {
	cfg := newTestDriverConfig()
	cfg.SimulatedLatencyNs = 0
	assert.Equal(t, MinimumLatencyFloorNs, cfg.EffectiveLatencyNs())

	cfg.SimulatedLatencyNs = 10_000
	assert.Equal(t, int64(10_000), cfg.EffectiveLatencyNs())
}

func TestRunProducesNonNegativeFillRate(t *testing.T) {
	events := loadTestEvents(t)
	cfg := newTestDriverConfig()

	d := New(cfg, zap.NewNop(), nil, nil)
	report := d.Run(events)

	assert.GreaterOrEqual(t, report.FillRate, 0.0)
	assert.LessOrEqual(t, report.FillRate, 1.0)
}

func TestRunRespectsMaxPositionViaRiskGate(t *testing.T) {
	events := loadTestEvents(t)
	cfg := newTestDriverConfig()
	cfg.MaxPosition = 1

	d := New(cfg, zap.NewNop(), nil, nil)
	d.Run(events)

	assert.LessOrEqual(t, d.position, cfg.MaxPosition)
	assert.GreaterOrEqual(t, d.position, -cfg.MaxPosition)
}

func TestReportEquityCurveLengthMatchesTimestamps(t *testing.T) {
	events := loadTestEvents(t)
	cfg := newTestDriverConfig()

	d := New(cfg, zap.NewNop(), nil, nil)
	report := d.Run(events)

	assert.Equal(t, len(report.EquityCurve), len(report.Timestamps))
}

func TestSnapshotEventRunsWithoutPanicking(t *testing.T) {
	events := []HistoricalEvent{
		{TimestampNs: 0, Kind: EventAdd, Side: types.Buy, Price: 100.0, Size: 10, OrderID: 1},
		{TimestampNs: 1000, Kind: EventSnapshot, Side: types.Buy, Price: 100.0, Size: 10},
	}
	cfg := newTestDriverConfig()
	d := New(cfg, zap.NewNop(), nil, nil)

	assert.NotPanics(t, func() { d.Run(events) })
}
