package backtest

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/krish567366/submicro-execution-engine/internal/orderbook"
	"github.com/krish567366/submicro-execution-engine/internal/types"
)

// TelemetrySnapshot is the periodic state the pipeline's third SPSC
// boundary (spec §5) carries toward a telemetry consumer. Losses on
// this boundary are explicitly acceptable.
type TelemetrySnapshot struct {
	TimestampNs int64
	Quote       types.QuotePair
	Features    orderbook.DeepOFIFeatures
	Position    int64
	RealizedPnL float64
}

// TelemetrySink publishes TelemetrySnapshots off the hot path. Losses
// are acceptable (spec §5); implementations must never block the
// caller waiting on a slow downstream.
type TelemetrySink interface {
	Publish(snapshot TelemetrySnapshot)
	Close() error
}

// NoopTelemetrySink discards every snapshot; the default when no
// telemetry backend is configured.
type NoopTelemetrySink struct{}

func (NoopTelemetrySink) Publish(TelemetrySnapshot) {}
func (NoopTelemetrySink) Close() error               { return nil }

// KafkaTelemetrySink publishes snapshots to a Kafka topic
// (SPEC_FULL.md §4.10 domain-stack wiring), best-effort: a write error
// is logged, never propagated to the hot path.
type KafkaTelemetrySink struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewKafkaTelemetrySink constructs a sink writing to brokers/topic.
func NewKafkaTelemetrySink(brokers []string, topic string, logger *zap.Logger) *KafkaTelemetrySink {
	return &KafkaTelemetrySink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			Async:        true,
			BatchTimeout: 0,
		},
		logger: logger,
	}
}

// Publish serializes the snapshot to JSON and writes it asynchronously;
// kafka.Writer's Async mode means this never blocks the caller on
// broker latency.
func (s *KafkaTelemetrySink) Publish(snapshot TelemetrySnapshot) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		s.logger.Warn("telemetry: marshal failed", zap.Error(err))
		return
	}
	if err := s.writer.WriteMessages(context.Background(), kafka.Message{Value: payload}); err != nil {
		s.logger.Warn("telemetry: kafka write failed", zap.Error(err))
	}
}

func (s *KafkaTelemetrySink) Close() error {
	return s.writer.Close()
}
