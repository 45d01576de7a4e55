package eventbus

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/matthewbaird/estatein/internal/event"
	"github.com/matthewbaird/estatein/internal/logger"
)

// LogConsumer logs all change events for observability.
type LogConsumer struct {
	log zerolog.Logger
}

func NewLogConsumer() *LogConsumer {
	return &LogConsumer{log: logger.Component("changes")}
}

func (c *LogConsumer) HandleEvent(_ context.Context, evt event.ChangeEvent) error {
	c.log.Info().
		Str("type", string(evt.Type)).
		Str("collection", evt.Collection).
		Str("document_id", evt.DocumentID).
		Time("occurred_at", evt.OccurredAt).
		Msg("document changed")
	return nil
}
