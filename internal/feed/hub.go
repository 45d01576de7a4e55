// Package feed keeps live, ordered snapshots of collections for the
// dashboard pages. A Hub subscribes to the change bus and pushes a fresh
// snapshot to every open Subscription of the changed collection.
package feed

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/matthewbaird/estatein/internal/event"
	"github.com/matthewbaird/estatein/internal/logger"
	"github.com/matthewbaird/estatein/internal/observability"
	"github.com/matthewbaird/estatein/internal/types"
)

// ErrClosed is returned by Subscribe once the hub is closed.
var ErrClosed = errors.New("feed closed")

// Lister reads an ordered collection. docstore.Store satisfies it.
type Lister interface {
	List(ctx context.Context, collection string, order types.Order) ([]types.Document, error)
}

// Frame is one delivery to a page: the page state and, unless the initial
// read failed, the snapshot to render.
type Frame struct {
	State    types.PageState `json:"state"`
	Snapshot types.Snapshot  `json:"snapshot"`
}

// Hub fans change events out to collection subscriptions.
type Hub struct {
	store Lister
	log   zerolog.Logger
	now   func() time.Time
	seq   atomic.Uint64

	mu     sync.Mutex
	subs   map[string]map[*Subscription]struct{}
	closed bool
}

// NewHub creates a hub reading snapshots from store.
func NewHub(store Lister) *Hub {
	return &Hub{
		store: store,
		log:   logger.Component("feed"),
		now:   time.Now,
		subs:  make(map[string]map[*Subscription]struct{}),
	}
}

// Subscribe opens a live view of collection. A first frame, the initial read
// or a newer refresh, is delivered before Subscribe returns; later frames
// follow every change to the collection. The subscription ends when ctx is
// done or Close is called.
func (h *Hub) Subscribe(ctx context.Context, collection string, order types.Order) (*Subscription, error) {
	if order.Field == "" {
		order = types.DefaultOrder
	}
	s := &Subscription{
		hub:        h,
		collection: collection,
		order:      order,
		frames:     make(chan Frame, 1),
		done:       make(chan struct{}),
	}

	// Registered before the initial read so a change committed during the
	// read still triggers a refresh; deliver drops the older frame.
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	if h.subs[collection] == nil {
		h.subs[collection] = make(map[*Subscription]struct{})
	}
	h.subs[collection][s] = struct{}{}
	h.mu.Unlock()
	observability.LiveSubscribers.WithLabelValues(collection).Inc()

	seq := h.seq.Add(1)
	docs, err := h.store.List(ctx, collection, order)
	if err != nil {
		h.log.Error().Err(err).Str("collection", collection).Msg("initial snapshot failed")
		s.deliver(seq, Frame{
			State:    types.PageError,
			Snapshot: types.Snapshot{Collection: collection, Order: order, Seq: seq, At: h.now()},
		})
	} else {
		s.deliver(seq, h.frame(collection, order, docs, seq))
	}

	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.done:
		}
	}()
	return s, nil
}

// HandleEvent refreshes every subscription of the changed collection. It is
// registered on the event bus. Read errors are logged and leave each
// subscriber on its previous snapshot.
func (h *Hub) HandleEvent(ctx context.Context, evt event.ChangeEvent) error {
	h.mu.Lock()
	subs := make([]*Subscription, 0, len(h.subs[evt.Collection]))
	for s := range h.subs[evt.Collection] {
		subs = append(subs, s)
	}
	h.mu.Unlock()
	if len(subs) == 0 {
		return nil
	}

	// One read per distinct order.
	byOrder := make(map[types.Order][]*Subscription)
	for _, s := range subs {
		byOrder[s.order] = append(byOrder[s.order], s)
	}
	for order, group := range byOrder {
		seq := h.seq.Add(1)
		docs, err := h.store.List(ctx, evt.Collection, order)
		if err != nil {
			h.log.Error().Err(err).
				Str("collection", evt.Collection).
				Str("order", order.String()).
				Msg("snapshot refresh failed, keeping previous snapshot")
			continue
		}
		f := h.frame(evt.Collection, order, docs, seq)
		for _, s := range group {
			s.deliver(seq, f)
		}
	}
	return nil
}

// Close ends every subscription and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	var all []*Subscription
	for _, set := range h.subs {
		for s := range set {
			all = append(all, s)
		}
	}
	h.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
}

// Subscribers returns the number of open subscriptions of a collection.
func (h *Hub) Subscribers(collection string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[collection])
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[s.collection]; ok {
		if _, present := set[s]; present {
			delete(set, s)
			observability.LiveSubscribers.WithLabelValues(s.collection).Dec()
		}
		if len(set) == 0 {
			delete(h.subs, s.collection)
		}
	}
}

func (h *Hub) frame(collection string, order types.Order, docs []types.Document, seq uint64) Frame {
	snap := types.Snapshot{
		Collection: collection,
		Order:      order,
		Documents:  docs,
		Seq:        seq,
		At:         h.now(),
	}
	if snap.Documents == nil {
		snap.Documents = []types.Document{}
	}
	return Frame{State: snap.State(), Snapshot: snap}
}
