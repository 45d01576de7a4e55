// Package docstore is the document store behind every dashboard collection.
//
// A store keeps flat documents per collection, assigns ids and the
// createdAt / updatedAt timestamps, and publishes a ChangeEvent after every
// committed write so live subscribers can refresh.
package docstore

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matthewbaird/estatein/internal/event"
	"github.com/matthewbaird/estatein/internal/types"
)

// ErrNotFound is returned by Get and Update for a missing document.
var ErrNotFound = errors.New("document not found")

// ErrInvalidCollection is returned when a collection name is empty.
var ErrInvalidCollection = errors.New("invalid collection name")

// Store is the interface for reading and writing collection documents.
type Store interface {
	// Create stores a new document and assigns its id and createdAt.
	Create(ctx context.Context, collection string, fields map[string]any) (types.Document, error)

	// Update merges partial into an existing document and assigns updatedAt.
	// A nil value removes the field. Missing documents yield ErrNotFound.
	Update(ctx context.Context, collection, id string, partial map[string]any) (types.Document, error)

	// Delete removes a document. Deleting a missing id is a no-op.
	Delete(ctx context.Context, collection, id string) error

	// Get returns one document or ErrNotFound.
	Get(ctx context.Context, collection, id string) (types.Document, error)

	// List returns every document of a collection in the given order.
	List(ctx context.Context, collection string, order types.Order) ([]types.Document, error)
}

// clock hands out strictly increasing timestamps so that documents written
// in quick succession still order deterministically by createdAt.
type clock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

func (c *clock) next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	t := now().UTC()
	if !t.After(c.last) {
		t = c.last.Add(time.Nanosecond)
	}
	c.last = t
	return t
}

func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func checkCollection(collection string) error {
	if strings.TrimSpace(collection) == "" {
		return ErrInvalidCollection
	}
	return nil
}

// writableFields copies fields without the reserved keys, which only the
// store assigns.
func writableFields(fields map[string]any) map[string]any {
	out := types.CloneFields(fields)
	delete(out, types.FieldID)
	delete(out, types.FieldCreatedAt)
	delete(out, types.FieldUpdatedAt)
	return out
}

// merge applies a partial update in place. Nil values remove the key.
func merge(dst, partial map[string]any) {
	for k, v := range writableFields(partial) {
		if v == nil {
			delete(dst, k)
			continue
		}
		dst[k] = v
	}
}

func publish(ctx context.Context, p event.Publisher, t event.ChangeType, collection, id string, at time.Time) {
	if p == nil {
		return
	}
	p.Publish(ctx, event.NewChange(t, collection, id, at))
}
