package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/basin-precip-etl/internal/config"
	"github.com/couchcryptid/basin-precip-etl/internal/domain"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes series points to a Kafka topic, one message per forecasted
// day keyed by date so a compacted topic keeps the latest value per day.
// It implements pipeline.SeriesLoader.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadSeries publishes every point of the series in a single WriteMessages call.
func (w *Writer) LoadSeries(ctx context.Context, series domain.TimeSeries) error {
	if len(series.Points) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(series.Points))
	for i := range series.Points {
		msg, err := serializeToMessage(series, series.Points[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish series: %w", err)
	}
	w.logger.Debug("series published", "batch_id", series.BatchID, "messages", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// PointMessage is the JSON value of a published series point.
type PointMessage struct {
	BatchID        string  `json:"batch_id"`
	ForecastedDate string  `json:"forecasted_date"`
	ForecastDate   string  `json:"forecast_date"`
	AccumulatedMM  float64 `json:"accumulated_mm"`
	CumulativeMM   float64 `json:"cumulative_mm"`
}

// serializeToMessage marshals one series point into a Kafka message.
func serializeToMessage(series domain.TimeSeries, p domain.SeriesPoint) (kafkago.Message, error) {
	forecasted := p.ForecastedDate.Format(time.DateOnly)
	data, err := json.Marshal(PointMessage{
		BatchID:        series.BatchID,
		ForecastedDate: forecasted,
		ForecastDate:   p.ForecastDate.Format(time.DateOnly),
		AccumulatedMM:  p.AccumulatedValue,
		CumulativeMM:   p.CumulativeValue,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize series point: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(forecasted),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "batch_id", Value: []byte(series.BatchID)},
			{Key: "generated_at", Value: []byte(series.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
