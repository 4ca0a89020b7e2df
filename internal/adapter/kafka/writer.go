package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/shoreline-tide-etl/internal/config"
	"github.com/couchcryptid/shoreline-tide-etl/internal/domain"
)

// CorrectedRecord is the JSON value of one published message: one
// acquisition of one dataset after tide correction.
type CorrectedRecord struct {
	Dataset     string             `json:"dataset"`
	Date        time.Time          `json:"date"`
	Tide        float64            `json:"tide"`
	Positions   map[string]float64 `json:"positions"`
	ProcessedAt time.Time          `json:"processed_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes corrected rows to a Kafka topic, one message per row.
// It implements pipeline.Sink.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Name identifies the sink in logs and metrics.
func (w *Writer) Name() string { return "kafka" }

// Write serializes every row of the table and publishes them in a single
// WriteMessages call. Rows of a dataset hash to the same partition so
// consumers see them in time order.
func (w *Writer) Write(ctx context.Context, dataset string, table domain.CorrectedTable) error {
	rows := table.Rows()
	if len(rows) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(rows))
	for i, row := range rows {
		msg, err := serializeToMessage(dataset, row, table.ProcessedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish corrected rows: %w", err)
	}
	w.logger.Debug("published corrected rows", "dataset", dataset, "messages", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a corrected row into a Kafka message keyed by
// dataset.
func serializeToMessage(dataset string, row domain.Row, processedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(CorrectedRecord{
		Dataset:     dataset,
		Date:        row.Time.UTC(),
		Tide:        row.Tide,
		Positions:   row.Positions,
		ProcessedAt: processedAt.UTC(),
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize corrected row: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(dataset),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "dataset", Value: []byte(dataset)},
			{Key: "acquired_at", Value: []byte(row.Time.UTC().Format(time.RFC3339Nano))},
			{Key: "processed_at", Value: []byte(processedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
