package crud

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/matthewbaird/estatein/internal/media"
	"github.com/matthewbaird/estatein/internal/schema"
	"github.com/matthewbaird/estatein/internal/types"
)

// PendingImage is a selected file that is uploaded on submit.
type PendingImage struct {
	Name        string
	ContentType string
	data        []byte
}

// Size returns the file size in bytes.
func (p PendingImage) Size() int { return len(p.data) }

func (p PendingImage) file() media.File {
	return media.File{
		Name:        p.Name,
		ContentType: p.ContentType,
		Size:        int64(len(p.data)),
		Body:        bytes.NewReader(p.data),
	}
}

// draft is the form state shared by AddDraft and EditDraft. Nothing in a
// draft reaches the store before Submit.
type draft struct {
	svc  *Service
	coll *schema.Collection

	mu       sync.Mutex
	state    ModalState
	raw      map[string]string
	fields   map[string]any
	problems map[string]*schema.FieldError
	arrays   map[string][]string
	images   map[string][]string
	pending  map[string][]PendingImage
	touched  map[string]bool
}

func newDraft(svc *Service, coll *schema.Collection) draft {
	return draft{
		svc:      svc,
		coll:     coll,
		state:    StateOpen,
		raw:      make(map[string]string),
		fields:   make(map[string]any),
		problems: make(map[string]*schema.FieldError),
		arrays:   make(map[string][]string),
		images:   make(map[string][]string),
		pending:  make(map[string][]PendingImage),
		touched:  make(map[string]bool),
	}
}

// Collection returns the form's collection metadata.
func (d *draft) Collection() *schema.Collection { return d.coll }

// State returns the current modal state.
func (d *draft) State() ModalState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// editable must be called with d.mu held.
func (d *draft) editable() error {
	switch d.state {
	case StateOpen:
		return nil
	case StateSubmitting:
		return ErrSubmitting
	default:
		return ErrClosed
	}
}

// SetField stores the raw input of a scalar field and its coerced value. An
// empty numeric input clears the field. Invalid input is kept for
// re-rendering and reported again by Submit.
func (d *draft) SetField(name, raw string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.editable(); err != nil {
		return err
	}
	return d.setFieldLocked(name, raw)
}

func (d *draft) setFieldLocked(name, raw string) error {
	spec, ok := d.coll.Field(name)
	if !ok {
		return &schema.FieldError{Field: name, Message: "unknown field"}
	}
	d.raw[name] = raw
	v, set, err := schema.Coerce(spec, raw)
	if err != nil {
		fe, _ := err.(*schema.FieldError)
		if fe == nil {
			fe = &schema.FieldError{Field: name, Message: err.Error()}
		}
		d.problems[name] = fe
		return fe
	}
	delete(d.problems, name)
	if !set {
		d.fields[name] = nil
		return nil
	}
	d.fields[name] = v
	return nil
}

// SetFields applies several raw inputs and reports every problem at once.
func (d *draft) SetFields(values map[string]string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.editable(); err != nil {
		return err
	}

	var problems []*schema.FieldError
	for _, name := range lo.Keys(values) {
		if err := d.setFieldLocked(name, values[name]); err != nil {
			if fe, ok := err.(*schema.FieldError); ok {
				problems = append(problems, fe)
			}
		}
	}
	if len(problems) > 0 {
		return &schema.ValidationError{Collection: d.coll.Name, Problems: problems}
	}
	return nil
}

// Value returns the raw input of a field for re-rendering.
func (d *draft) Value(name string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.raw[name]
}

// Array returns the entries of an array field, blanks included.
func (d *draft) Array(name string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.arrays[name]...)
}

func (d *draft) arrayLocked(name string) ([]string, error) {
	if _, ok := d.coll.Array(name); !ok {
		return nil, &schema.FieldError{Field: name, Message: "unknown list field"}
	}
	return d.arrays[name], nil
}

// AddEntry appends an empty entry to an array field.
func (d *draft) AddEntry(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.editable(); err != nil {
		return err
	}
	entries, err := d.arrayLocked(name)
	if err != nil {
		return err
	}
	d.arrays[name] = append(entries, "")
	return nil
}

// SetEntry replaces entry i of an array field.
func (d *draft) SetEntry(name string, i int, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.editable(); err != nil {
		return err
	}
	entries, err := d.arrayLocked(name)
	if err != nil {
		return err
	}
	if i < 0 || i >= len(entries) {
		return &schema.FieldError{Field: name, Message: fmt.Sprintf("no entry %d", i)}
	}
	entries[i] = value
	return nil
}

// RemoveEntry deletes entry i of an array field.
func (d *draft) RemoveEntry(name string, i int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.editable(); err != nil {
		return err
	}
	entries, err := d.arrayLocked(name)
	if err != nil {
		return err
	}
	if i < 0 || i >= len(entries) {
		return &schema.FieldError{Field: name, Message: fmt.Sprintf("no entry %d", i)}
	}
	d.arrays[name] = append(entries[:i:i], entries[i+1:]...)
	return nil
}

// SetArray replaces all entries of an array field.
func (d *draft) SetArray(name string, values []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.editable(); err != nil {
		return err
	}
	if _, err := d.arrayLocked(name); err != nil {
		return err
	}
	d.arrays[name] = append([]string(nil), values...)
	return nil
}

// Images returns the already uploaded URLs of an image field.
func (d *draft) Images(field string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.images[field]...)
}

// Pending returns the files waiting to be uploaded for an image field.
func (d *draft) Pending(field string) []PendingImage {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]PendingImage(nil), d.pending[field]...)
}

// AttachImages queues files for upload in the given order. A single-image
// field keeps only the last file and drops its current image.
func (d *draft) AttachImages(field string, files ...media.File) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.editable(); err != nil {
		return err
	}
	spec, ok := d.coll.Image(field)
	if !ok {
		return &schema.FieldError{Field: field, Message: "unknown image field"}
	}
	if len(files) == 0 {
		return nil
	}

	staged := make([]PendingImage, 0, len(files))
	for _, f := range files {
		var data []byte
		if f.Body != nil {
			b, err := io.ReadAll(f.Body)
			if err != nil {
				return fmt.Errorf("reading %s: %w", f.Name, err)
			}
			data = b
		}
		staged = append(staged, PendingImage{Name: f.Name, ContentType: f.ContentType, data: data})
	}

	d.touched[field] = true
	if !spec.Multiple {
		d.images[field] = nil
		d.pending[field] = staged[len(staged)-1:]
		return nil
	}
	d.pending[field] = append(d.pending[field], staged...)
	return nil
}

// RemoveImage drops an uploaded URL from an image field. The document is
// unchanged until Submit succeeds.
func (d *draft) RemoveImage(field, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.editable(); err != nil {
		return err
	}
	if _, ok := d.coll.Image(field); !ok {
		return &schema.FieldError{Field: field, Message: "unknown image field"}
	}
	before := len(d.images[field])
	d.images[field] = lo.Without(d.images[field], url)
	if len(d.images[field]) == before {
		return &schema.FieldError{Field: field, Message: "image not attached: " + url}
	}
	d.touched[field] = true
	return nil
}

// RemovePending drops queued file i of an image field.
func (d *draft) RemovePending(field string, i int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.editable(); err != nil {
		return err
	}
	p := d.pending[field]
	if i < 0 || i >= len(p) {
		return &schema.FieldError{Field: field, Message: fmt.Sprintf("no pending image %d", i)}
	}
	d.pending[field] = append(p[:i:i], p[i+1:]...)
	return nil
}

// KeepImages retains only the listed URLs of an image field, in their
// current order. It is how a submitted HTML form reports removals.
func (d *draft) KeepImages(field string, keep []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.editable(); err != nil {
		return err
	}
	if _, ok := d.coll.Image(field); !ok {
		return &schema.FieldError{Field: field, Message: "unknown image field"}
	}
	kept := lo.Filter(d.images[field], func(u string, _ int) bool { return lo.Contains(keep, u) })
	if len(kept) != len(d.images[field]) {
		d.touched[field] = true
	}
	d.images[field] = kept
	return nil
}

// Cancel closes the form. A submit already in flight still completes.
func (d *draft) Cancel() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == StateClosed {
		return nil
	}
	if err := ValidateTransition(modalTransitions, d.state, StateClosed); err != nil {
		return err
	}
	d.state = StateClosed
	return nil
}

// begin moves the form to submitting and snapshots the state to write.
func (d *draft) begin() (submission, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.editable(); err != nil {
		return submission{}, err
	}
	if len(d.problems) > 0 {
		return submission{}, &schema.ValidationError{Collection: d.coll.Name, Problems: lo.Values(d.problems)}
	}
	if err := ValidateTransition(modalTransitions, d.state, StateSubmitting); err != nil {
		return submission{}, err
	}
	d.state = StateSubmitting

	sub := submission{
		fields:  types.CloneFields(d.fields),
		arrays:  make(map[string][]string, len(d.arrays)),
		images:  make(map[string][]string, len(d.images)),
		pending: make(map[string][]PendingImage, len(d.pending)),
		touched: make(map[string]bool, len(d.touched)),
	}
	for k, v := range d.arrays {
		sub.arrays[k] = filterBlank(v)
	}
	for k, v := range d.images {
		sub.images[k] = append([]string(nil), v...)
	}
	for k, v := range d.pending {
		sub.pending[k] = append([]PendingImage(nil), v...)
	}
	for k, v := range d.touched {
		sub.touched[k] = v
	}
	return sub, nil
}

// finish leaves submitting: closed on success, open with the input intact on
// failure. A form cancelled mid-submit stays closed.
func (d *draft) finish(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != StateSubmitting {
		return
	}
	target := StateClosed
	if err != nil {
		target = StateOpen
	}
	if ValidateTransition(modalTransitions, d.state, target) == nil {
		d.state = target
	}
}

// submission is the immutable copy of a draft taken when submit starts.
type submission struct {
	fields  map[string]any
	arrays  map[string][]string
	images  map[string][]string
	pending map[string][]PendingImage
	touched map[string]bool
}

// upload sends every pending file, field by field in catalog order and file
// by file in attach order. The first failure abandons the rest of the batch.
// On success the returned map holds existing URLs followed by the new ones.
func (s submission) upload(ctx context.Context, svc *Service, coll *schema.Collection) (map[string][]string, error) {
	out := make(map[string][]string, len(coll.Images))
	for _, img := range coll.Images {
		urls := append([]string(nil), s.images[img.Name]...)
		for _, p := range s.pending[img.Name] {
			url, err := svc.uploader.Upload(ctx, p.file(), img.Profile, img.Folder)
			if err != nil {
				return nil, &UploadError{Field: img.Name, File: p.Name, Err: err}
			}
			urls = append(urls, url)
		}
		out[img.Name] = urls
	}
	return out, nil
}

// imageValue shapes an image field for storage: a list for multiple fields,
// a single URL string otherwise.
func imageValue(spec schema.ImageField, urls []string) any {
	if spec.Multiple {
		if urls == nil {
			return []string{}
		}
		return urls
	}
	if len(urls) == 0 {
		return ""
	}
	return urls[len(urls)-1]
}

func filterBlank(values []string) []string {
	out := lo.FilterMap(values, func(v string, _ int) (string, bool) {
		v = strings.TrimSpace(v)
		return v, v != ""
	})
	if out == nil {
		out = []string{}
	}
	return out
}

// withoutNil drops cleared fields before schema validation.
func withoutNil(fields map[string]any) map[string]any {
	return lo.OmitBy(fields, func(_ string, v any) bool { return v == nil })
}
