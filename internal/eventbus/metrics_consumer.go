package eventbus

import (
	"context"

	"github.com/matthewbaird/estatein/internal/event"
	"github.com/matthewbaird/estatein/internal/observability"
)

// MetricsConsumer counts committed writes per collection and change type.
type MetricsConsumer struct{}

// NewMetricsConsumer creates a new metrics consumer.
func NewMetricsConsumer() *MetricsConsumer {
	return &MetricsConsumer{}
}

func (c *MetricsConsumer) HandleEvent(_ context.Context, evt event.ChangeEvent) error {
	observability.DocumentChanges.WithLabelValues(evt.Collection, string(evt.Type)).Inc()
	return nil
}
