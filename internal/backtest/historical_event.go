package backtest

import (
	"bufio"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/krish567366/submicro-execution-engine/internal/orderbook"
	"github.com/krish567366/submicro-execution-engine/internal/types"
)

// EventKind mirrors the historical event file's event_type column
// (spec §6).
type EventKind uint8

const (
	EventSnapshot EventKind = iota
	EventAdd
	EventModify
	EventCancel
	EventTrade
)

func parseEventKind(s string) (EventKind, bool) {
	switch s {
	case "snapshot":
		return EventSnapshot, true
	case "add":
		return EventAdd, true
	case "modify":
		return EventModify, true
	case "cancel":
		return EventCancel, true
	case "trade":
		return EventTrade, true
	default:
		return 0, false
	}
}

// HistoricalEvent is one time-sorted row of the §6 CSV schema:
// ts_us, event_type, side, price, size, order_id, level.
type HistoricalEvent struct {
	TimestampNs int64
	Kind        EventKind
	Side        types.Side
	Price       float64
	Size        uint64
	OrderID     uint64
	Level       int
}

// LoadHistoricalEvents reads the §6 historical event CSV, skipping and
// counting malformed rows rather than failing the whole load.
func LoadHistoricalEvents(r io.Reader) (events []HistoricalEvent, skipped int, err error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("backtest: reading header: %w", err)
	}
	if len(header) == 0 || strings.TrimSpace(header[0]) != "ts_us" {
		return nil, 0, fmt.Errorf("backtest: unexpected header %v", header)
	}

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}
		evt, ok := parseRow(row)
		if !ok {
			skipped++
			continue
		}
		events = append(events, evt)
	}
	return events, skipped, nil
}

func parseRow(row []string) (HistoricalEvent, bool) {
	if len(row) < 7 {
		return HistoricalEvent{}, false
	}
	tsUs, err := strconv.ParseInt(strings.TrimSpace(row[0]), 10, 64)
	if err != nil {
		return HistoricalEvent{}, false
	}
	kind, ok := parseEventKind(strings.TrimSpace(row[1]))
	if !ok {
		return HistoricalEvent{}, false
	}
	side := types.Buy
	if strings.TrimSpace(row[2]) == "S" {
		side = types.Sell
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(row[3]), 64)
	if err != nil {
		return HistoricalEvent{}, false
	}
	size, err := strconv.ParseUint(strings.TrimSpace(row[4]), 10, 64)
	if err != nil {
		return HistoricalEvent{}, false
	}
	orderID, err := strconv.ParseUint(strings.TrimSpace(row[5]), 10, 64)
	if err != nil {
		return HistoricalEvent{}, false
	}
	level, err := strconv.Atoi(strings.TrimSpace(row[6]))
	if err != nil {
		level = 0
	}
	return HistoricalEvent{
		TimestampNs: tsUs * 1000,
		Kind:        kind,
		Side:        side,
		Price:       price,
		Size:        size,
		OrderID:     orderID,
		Level:       level,
	}, true
}

// ToBookUpdate translates an ADD/MODIFY/CANCEL row into an
// orderbook.Update, assigning the book's next sequence number. Trade
// and snapshot rows are not translated here (ok is false): Driver's
// applyEvent handles them itself, applying a trade as an EXECUTE update
// plus an intensity-engine arrival, and a snapshot row as a one-level
// bid snapshot.
func (e HistoricalEvent) ToBookUpdate(sequenceNumber uint64) (orderbook.Update, bool) {
	var kind orderbook.UpdateKind
	switch e.Kind {
	case EventAdd:
		kind = orderbook.Add
	case EventModify:
		kind = orderbook.Modify
	case EventCancel:
		kind = orderbook.Delete
	default:
		return orderbook.Update{}, false
	}
	return orderbook.Update{
		Kind:           kind,
		OrderID:        e.OrderID,
		Price:          e.Price,
		Quantity:       e.Size,
		Side:           e.Side,
		SequenceNumber: sequenceNumber,
		TimestampNs:    e.TimestampNs,
	}, true
}

// ReplayHeader is prepended to every run's output (spec §6).
type ReplayHeader struct {
	SimulatedLatencyNs int64  `json:"simulated_latency_ns"`
	RandomSeed         uint32 `json:"random_seed"`
	MaxPosition        int64  `json:"max_position"`
	Commission         float64 `json:"commission_per_share"`
	InputSHA256        string `json:"input_sha256"`
	RunID              string `json:"run_id"`
}

// NewReplayHeader builds a header from the resolved config and the
// input file's SHA-256, stamping a fresh run id (spec §6 supplemental
// field, SPEC_FULL.md §6).
func NewReplayHeader(cfg ReplayHeaderConfig, inputSHA256 string) ReplayHeader {
	return ReplayHeader{
		SimulatedLatencyNs: cfg.SimulatedLatencyNs,
		RandomSeed:         cfg.RandomSeed,
		MaxPosition:        cfg.MaxPosition,
		Commission:         cfg.CommissionPerShare,
		InputSHA256:        inputSHA256,
		RunID:              uuid.NewString(),
	}
}

// ReplayHeaderConfig is the subset of the driver configuration the
// header echoes.
type ReplayHeaderConfig struct {
	SimulatedLatencyNs int64
	RandomSeed         uint32
	MaxPosition        int64
	CommissionPerShare float64
}

// MarshalHeader renders the header as a single JSON line.
func (h ReplayHeader) MarshalHeader() ([]byte, error) {
	return json.Marshal(h)
}

// SHA256File hashes r's entire content, for the replay header.
func SHA256File(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
