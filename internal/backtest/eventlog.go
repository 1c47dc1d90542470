package backtest

import (
	"bufio"
	"fmt"
	"io"

	"github.com/krish567366/submicro-execution-engine/internal/types"
)

// EventLogKind is one of the three events spec §6's fill/RTT/slippage
// log records.
type EventLogKind uint8

const (
	LogSubmit EventLogKind = iota
	LogFill
	LogCancel
)

func (k EventLogKind) String() string {
	switch k {
	case LogFill:
		return "fill"
	case LogCancel:
		return "cancel"
	default:
		return "submit"
	}
}

// EventLogEntry is one line of the append-only fill/RTT/slippage log
// (spec §6): `{ts_ns, order_id, side, price, qty, event, latency_ns?,
// decision_mid?, fill_mid?}`. LatencyNs, DecisionMid, and FillMid are
// optional and omitted from the rendered line when zero.
type EventLogEntry struct {
	TimestampNs int64
	OrderID     uint64
	Side        types.Side
	Price       float64
	Quantity    uint64
	Event       EventLogKind
	LatencyNs   int64
	DecisionMid float64
	FillMid     float64
}

// EventLogger receives one entry per submit/fill/cancel. Implementations
// must never block the replay loop on a slow sink, the same constraint
// TelemetrySink carries.
type EventLogger interface {
	Log(entry EventLogEntry)
}

// NoopEventLogger discards every entry; the Driver's default until a
// caller opts in with SetEventLog.
type NoopEventLogger struct{}

func (NoopEventLogger) Log(EventLogEntry) {}

// TextEventLogger appends one line per entry to w, in the key=value
// form the teacher's own structured logs use for ad hoc line-oriented
// output. Callers own w and must Flush before closing it.
type TextEventLogger struct {
	w *bufio.Writer
}

// NewTextEventLogger wraps w in a buffered writer.
func NewTextEventLogger(w io.Writer) *TextEventLogger {
	return &TextEventLogger{w: bufio.NewWriter(w)}
}

// Log renders one append-only line; LatencyNs/DecisionMid/FillMid are
// written only when the caller set them (spec §6's optional fields).
func (l *TextEventLogger) Log(e EventLogEntry) {
	fmt.Fprintf(l.w, "ts_ns=%d order_id=%d side=%s price=%.6f qty=%d event=%s",
		e.TimestampNs, e.OrderID, e.Side, e.Price, e.Quantity, e.Event)
	if e.LatencyNs > 0 {
		fmt.Fprintf(l.w, " latency_ns=%d", e.LatencyNs)
	}
	if e.DecisionMid > 0 {
		fmt.Fprintf(l.w, " decision_mid=%.6f", e.DecisionMid)
	}
	if e.FillMid > 0 {
		fmt.Fprintf(l.w, " fill_mid=%.6f", e.FillMid)
	}
	fmt.Fprintln(l.w)
}

// Flush writes any buffered lines to the underlying writer.
func (l *TextEventLogger) Flush() error {
	return l.w.Flush()
}
