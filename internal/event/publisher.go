package event

import (
	"context"
	"sync"
)

// Publisher sends change events to downstream consumers. Publish must not
// block the writer.
type Publisher interface {
	Publish(ctx context.Context, evt ChangeEvent)
}

// PublisherFunc adapts a plain function to the Publisher interface.
type PublisherFunc func(ctx context.Context, evt ChangeEvent)

func (f PublisherFunc) Publish(ctx context.Context, evt ChangeEvent) {
	f(ctx, evt)
}

// Recorder collects published events in memory. Tests use it to assert on
// what a store emitted.
type Recorder struct {
	mu     sync.Mutex
	events []ChangeEvent
}

func (r *Recorder) Publish(_ context.Context, evt ChangeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []ChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ChangeEvent(nil), r.events...)
}
