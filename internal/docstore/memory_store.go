package docstore

import (
	"context"
	"sync"
	"time"

	"github.com/matthewbaird/estatein/internal/event"
	"github.com/matthewbaird/estatein/internal/types"
)

// MemoryStore implements Store with in-memory maps.
// Intended for demos and testing; all data is lost on restart.
type MemoryStore struct {
	mu    sync.RWMutex
	docs  map[string]map[string]types.Document
	clock clock
	bus   event.Publisher
}

// NewMemoryStore creates a new empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]map[string]types.Document)}
}

// SetPublisher attaches an event bus. Events are published after writes.
func (s *MemoryStore) SetPublisher(p event.Publisher) {
	s.bus = p
}

// SetClock overrides the timestamp source.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.clock.now = now
}

func (s *MemoryStore) Create(ctx context.Context, collection string, fields map[string]any) (types.Document, error) {
	if err := checkCollection(collection); err != nil {
		return types.Document{}, err
	}
	doc := types.Document{
		ID:         newID(),
		Collection: collection,
		Fields:     writableFields(fields),
		CreatedAt:  s.clock.next(),
	}

	s.mu.Lock()
	coll, ok := s.docs[collection]
	if !ok {
		coll = make(map[string]types.Document)
		s.docs[collection] = coll
	}
	coll[doc.ID] = doc
	s.mu.Unlock()

	publish(ctx, s.bus, event.Created, collection, doc.ID, doc.CreatedAt)
	return doc.Clone(), nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, partial map[string]any) (types.Document, error) {
	s.mu.Lock()
	doc, ok := s.docs[collection][id]
	if !ok {
		s.mu.Unlock()
		return types.Document{}, ErrNotFound
	}
	doc = doc.Clone()
	merge(doc.Fields, partial)
	at := s.clock.next()
	doc.UpdatedAt = &at
	s.docs[collection][id] = doc
	s.mu.Unlock()

	publish(ctx, s.bus, event.Updated, collection, id, at)
	return doc.Clone(), nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	_, ok := s.docs[collection][id]
	if ok {
		delete(s.docs[collection], id)
	}
	s.mu.Unlock()

	if ok {
		publish(ctx, s.bus, event.Deleted, collection, id, s.clock.next())
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, collection, id string) (types.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[collection][id]
	if !ok {
		return types.Document{}, ErrNotFound
	}
	return doc.Clone(), nil
}

func (s *MemoryStore) List(_ context.Context, collection string, order types.Order) ([]types.Document, error) {
	s.mu.RLock()
	out := make([]types.Document, 0, len(s.docs[collection]))
	for _, d := range s.docs[collection] {
		out = append(out, d.Clone())
	}
	s.mu.RUnlock()

	types.SortDocuments(out, order)
	return out, nil
}
