// Package event defines the change notifications emitted by the document
// store. The eventbus delivers them to the live feed, the log and metrics.
package event

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ChangeType is the kind of write that produced a ChangeEvent.
type ChangeType string

const (
	Created ChangeType = "created"
	Updated ChangeType = "updated"
	Deleted ChangeType = "deleted"
)

// ChangeEvent reports one committed write to a collection.
type ChangeEvent struct {
	ID         string
	Type       ChangeType
	Collection string
	DocumentID string
	OccurredAt time.Time
}

// NewChange builds a ChangeEvent stamped with a fresh id.
func NewChange(t ChangeType, collection, documentID string, at time.Time) ChangeEvent {
	return ChangeEvent{
		ID:         uuid.NewString(),
		Type:       t,
		Collection: collection,
		DocumentID: documentID,
		OccurredAt: at,
	}
}

// Summary is a short human readable description used in logs.
func (e ChangeEvent) Summary() string {
	return fmt.Sprintf("%s %s/%s", e.Type, e.Collection, e.DocumentID)
}
