package crud

import (
	"context"

	"github.com/matthewbaird/estatein/internal/schema"
	"github.com/matthewbaird/estatein/internal/types"
)

// AddDraft is the state of an add form for one collection.
type AddDraft struct {
	draft
}

// Submit checks the input, uploads the queued images and creates the
// document. On failure the form reopens with its input intact and no
// document is written.
func (d *AddDraft) Submit(ctx context.Context) (doc types.Document, err error) {
	sub, err := d.begin()
	if err != nil {
		return types.Document{}, err
	}
	defer func() { d.finish(err) }()

	payload := make(map[string]any, len(sub.fields)+len(d.coll.Arrays)+len(d.coll.Images))
	for k, v := range sub.fields {
		if v != nil {
			payload[k] = v
		}
	}
	for _, arr := range d.coll.Arrays {
		payload[arr.Name] = nonNil(sub.arrays[arr.Name])
	}

	// Check everything that does not depend on upload results first, so a
	// bad form never leaves images behind.
	precheck := types.CloneFields(payload)
	for _, img := range d.coll.Images {
		if n := len(sub.images[img.Name]) + len(sub.pending[img.Name]); n > 0 {
			precheck[img.Name] = placeholderImages(img, n)
		}
	}
	if err := d.coll.CheckRequired(precheck); err != nil {
		return types.Document{}, err
	}
	if err := d.coll.Validate(payload); err != nil {
		return types.Document{}, err
	}

	urls, err := sub.upload(ctx, d.svc, d.coll)
	if err != nil {
		d.svc.log.Warn().Err(err).Str("collection", d.coll.Name).Msg("upload failed, document not created")
		return types.Document{}, err
	}
	for _, img := range d.coll.Images {
		if img.Multiple || len(urls[img.Name]) > 0 {
			payload[img.Name] = imageValue(img, urls[img.Name])
		}
	}
	if err := d.coll.Validate(payload); err != nil {
		return types.Document{}, err
	}

	doc, err = d.svc.store.Create(ctx, d.coll.Name, payload)
	if err != nil {
		d.svc.log.Error().Err(err).Str("collection", d.coll.Name).Msg("create failed")
		return types.Document{}, err
	}
	return doc, nil
}

func placeholderImages(img schema.ImageField, n int) any {
	if !img.Multiple {
		return "/pending"
	}
	out := make([]string, n)
	for i := range out {
		out[i] = "/pending"
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
