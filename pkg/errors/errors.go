// Package errors implements the hot-path error taxonomy of the tick-to-trade
// pipeline: a closed set of kinds, each a value type the producing stage can
// construct and return without allocating. Only ConfigError and IOError,
// which are fatal at process startup and never constructed on the hot path,
// are permitted to carry a heap-allocated message and a wrapped cause.
package errors

import "fmt"

// Kind identifies one of the taxonomy's error classes. It is not a type
// hierarchy — every stage handles its own kinds locally (spec §7
// propagation policy: no cross-stage unwinding).
type Kind uint8

const (
	// KindNone is the zero value: no error.
	KindNone Kind = iota
	// KindSequenceGap: an update's sequence number was not last+1.
	KindSequenceGap
	// KindInvalidPrice: non-positive price, or bid >= ask after rounding
	// or in a snapshot.
	KindInvalidPrice
	// KindUnknownOrder: MODIFY/EXECUTE/DELETE referenced an order id the
	// book has no tracked entry for.
	KindUnknownOrder
	// KindRiskDenied: one of the RiskGate checks failed.
	KindRiskDenied
	// KindQueueFull: a producer push was rejected by a full ring.
	KindQueueFull
	// KindNumericError: a computation hit a near-zero denominator or
	// would otherwise have produced NaN/Inf; the component substituted
	// its documented floor/default instead.
	KindNumericError
	// KindConfigError: malformed or missing configuration. Fatal at
	// startup.
	KindConfigError
	// KindIOError: failure reading/writing an external file. Fatal at
	// startup, or during a replay run's I/O phase.
	KindIOError
)

func (k Kind) String() string {
	switch k {
	case KindSequenceGap:
		return "SequenceGap"
	case KindInvalidPrice:
		return "InvalidPrice"
	case KindUnknownOrder:
		return "UnknownOrder"
	case KindRiskDenied:
		return "RiskDenied"
	case KindQueueFull:
		return "QueueFull"
	case KindNumericError:
		return "NumericError"
	case KindConfigError:
		return "ConfigError"
	case KindIOError:
		return "IOError"
	default:
		return "None"
	}
}

// Error is a value type: copying it never allocates. Component is a short,
// static label naming the stage that produced it ("orderbook",
// "quoteengine", "riskgate", ...). Detail is an optional numeric field
// (sequence number, order id, price) recorded without formatting it into a
// string until Error() is actually called.
type Error struct {
	Kind      Kind
	Component string
	Detail    int64
	msg       string
	cause     error
}

var _ error = Error{}

// New constructs a hot-path error. It never allocates beyond the returned
// struct itself — Detail carries the single most relevant number (a
// sequence, an order id, a price scaled to an integer) rather than a
// formatted string.
func New(kind Kind, component string, detail int64) Error {
	return Error{Kind: kind, Component: component, Detail: detail}
}

// Fatal constructs a ConfigError/IOError carrying a human-readable message
// and an optional wrapped cause. Only called outside the hot path.
func Fatal(kind Kind, component, msg string, cause error) Error {
	return Error{Kind: kind, Component: component, msg: msg, cause: cause}
}

func (e Error) Error() string {
	if e.msg != "" {
		if e.cause != nil {
			return fmt.Sprintf("[%s:%s] %s: %v", e.Component, e.Kind, e.msg, e.cause)
		}
		return fmt.Sprintf("[%s:%s] %s", e.Component, e.Kind, e.msg)
	}
	return fmt.Sprintf("[%s:%s] detail=%d", e.Component, e.Kind, e.Detail)
}

func (e Error) Unwrap() error { return e.cause }

// IsKind reports whether err is an Error of the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := err.(Error)
	return ok && e.Kind == kind
}
