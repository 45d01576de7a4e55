package crud

import (
	"context"

	"github.com/matthewbaird/estatein/internal/types"
)

// EditDraft is the state of an edit form seeded from a stored document.
type EditDraft struct {
	draft
	id   string
	seed types.Document
}

// ID returns the id of the edited document.
func (d *EditDraft) ID() string { return d.id }

// Original returns the document the form was seeded from.
func (d *EditDraft) Original() types.Document { return d.seed.Clone() }

func (d *EditDraft) seedFrom(doc types.Document) {
	for _, f := range d.coll.Fields {
		if v, ok := doc.Fields[f.Name]; ok && v != nil {
			d.raw[f.Name] = doc.String(f.Name)
			d.fields[f.Name] = v
		}
	}
	for _, arr := range d.coll.Arrays {
		if entries := doc.Strings(arr.Name); entries != nil {
			d.arrays[arr.Name] = entries
		}
	}
	for _, img := range d.coll.Images {
		if urls := doc.Strings(img.Name); urls != nil {
			d.images[img.Name] = urls
		}
	}
}

// Submit uploads the queued images and writes scalar fields, image fields
// and filtered lists as one partial update. Image lists the user did not
// touch are written back exactly as loaded. Concurrent changes made since
// the form was opened are overwritten.
func (d *EditDraft) Submit(ctx context.Context) (doc types.Document, err error) {
	sub, err := d.begin()
	if err != nil {
		return types.Document{}, err
	}
	defer func() { d.finish(err) }()

	payload := make(map[string]any, len(sub.fields)+len(d.coll.Arrays)+len(d.coll.Images))
	for k, v := range sub.fields {
		payload[k] = v
	}
	for _, arr := range d.coll.Arrays {
		if _, had := d.seed.Fields[arr.Name]; had || len(sub.arrays[arr.Name]) > 0 {
			payload[arr.Name] = nonNil(sub.arrays[arr.Name])
		} else if _, edited := sub.arrays[arr.Name]; edited {
			payload[arr.Name] = []string{}
		}
	}
	if err := d.coll.Validate(withoutNil(payload)); err != nil {
		return types.Document{}, err
	}

	urls, err := sub.upload(ctx, d.svc, d.coll)
	if err != nil {
		d.svc.log.Warn().Err(err).Str("collection", d.coll.Name).Str("id", d.id).Msg("upload failed, document not updated")
		return types.Document{}, err
	}
	for _, img := range d.coll.Images {
		if _, had := d.seed.Fields[img.Name]; had || sub.touched[img.Name] {
			payload[img.Name] = imageValue(img, urls[img.Name])
		}
	}
	if err := d.coll.Validate(withoutNil(payload)); err != nil {
		return types.Document{}, err
	}

	doc, err = d.svc.store.Update(ctx, d.coll.Name, d.id, payload)
	if err != nil {
		d.svc.log.Error().Err(err).Str("collection", d.coll.Name).Str("id", d.id).Msg("update failed")
		return types.Document{}, err
	}
	return doc, nil
}
