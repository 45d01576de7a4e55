// Package crud implements the generic collection pages: listing, the add and
// edit forms, deletion and the card and detail projections. Every collection
// is driven by its schema entry; no code is specific to one entity kind.
package crud

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/matthewbaird/estatein/internal/docstore"
	"github.com/matthewbaird/estatein/internal/logger"
	"github.com/matthewbaird/estatein/internal/media"
	"github.com/matthewbaird/estatein/internal/schema"
	"github.com/matthewbaird/estatein/internal/types"
)

// Service binds the schema registry to a store and an uploader.
type Service struct {
	reg      *schema.Registry
	store    docstore.Store
	uploader media.Uploader
	log      zerolog.Logger
}

// NewService creates a Service.
func NewService(reg *schema.Registry, store docstore.Store, uploader media.Uploader) *Service {
	return &Service{
		reg:      reg,
		store:    store,
		uploader: uploader,
		log:      logger.Component("crud"),
	}
}

// Registry returns the schema registry.
func (s *Service) Registry() *schema.Registry { return s.reg }

// Collection returns the metadata of a catalog collection.
func (s *Service) Collection(name string) (*schema.Collection, error) {
	c := s.reg.Collection(name)
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, name)
	}
	return c, nil
}

// List returns the ordered documents of a collection.
func (s *Service) List(ctx context.Context, collection string, order types.Order) ([]types.Document, error) {
	if _, err := s.Collection(collection); err != nil {
		return nil, err
	}
	if order.Field == "" {
		order = types.DefaultOrder
	}
	return s.store.List(ctx, collection, order)
}

// Cards lists a collection projected for the list renderer.
func (s *Service) Cards(ctx context.Context, collection string, order types.Order) ([]types.Card, error) {
	coll, err := s.Collection(collection)
	if err != nil {
		return nil, err
	}
	docs, err := s.List(ctx, collection, order)
	if err != nil {
		return nil, err
	}
	return CardsOf(coll, docs), nil
}

// Get fetches one document.
func (s *Service) Get(ctx context.Context, collection, id string) (types.Document, error) {
	if _, err := s.Collection(collection); err != nil {
		return types.Document{}, err
	}
	return s.store.Get(ctx, collection, id)
}

// Detail fetches one document by id and renders it for the detail page. It
// always reads the store and never a live snapshot.
func (s *Service) Detail(ctx context.Context, collection, id string) (types.DetailView, error) {
	coll, err := s.Collection(collection)
	if err != nil {
		return types.DetailView{}, err
	}
	doc, err := s.store.Get(ctx, collection, id)
	if err != nil {
		return types.DetailView{}, err
	}
	return DetailOf(coll, doc), nil
}

// Delete removes a document. Failures are logged and otherwise look like
// success; deleting a missing document is a no-op.
func (s *Service) Delete(ctx context.Context, collection, id string) {
	if err := s.store.Delete(ctx, collection, id); err != nil {
		s.log.Error().Err(err).Str("collection", collection).Str("id", id).Msg("delete failed")
		return
	}
	s.log.Debug().Str("collection", collection).Str("id", id).Msg("document deleted")
}

// NewAdd opens an add form.
func (s *Service) NewAdd(collection string) (*AddDraft, error) {
	coll, err := s.Collection(collection)
	if err != nil {
		return nil, err
	}
	return &AddDraft{draft: newDraft(s, coll)}, nil
}

// NewEdit opens an edit form seeded from the stored document.
func (s *Service) NewEdit(ctx context.Context, collection, id string) (*EditDraft, error) {
	coll, err := s.Collection(collection)
	if err != nil {
		return nil, err
	}
	doc, err := s.store.Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	d := &EditDraft{draft: newDraft(s, coll), id: id, seed: doc.Clone()}
	d.seedFrom(doc)
	return d, nil
}
