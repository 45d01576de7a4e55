package handler

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/samber/lo"

	"github.com/matthewbaird/estatein/internal/crud"
	"github.com/matthewbaird/estatein/internal/media"
	"github.com/matthewbaird/estatein/internal/schema"
	"github.com/matthewbaird/estatein/internal/types"
)

const (
	maxFormMemory = 32 << 20
	keepPrefix    = "keep."
)

// formDraft is the part of AddDraft and EditDraft the request decoders fill.
type formDraft interface {
	Collection() *schema.Collection
	SetFields(values map[string]string) error
	SetArray(name string, values []string) error
	AttachImages(field string, files ...media.File) error
	KeepImages(field string, keep []string) error
	Value(name string) string
	Array(name string) []string
	Images(field string) []string
}

var (
	_ formDraft = (*crud.AddDraft)(nil)
	_ formDraft = (*crud.EditDraft)(nil)
)

// jsonForm is the JSON body accepted by create and edit. Images lists the
// already uploaded URLs to keep; new files need a multipart request.
type jsonForm struct {
	Fields map[string]any      `json:"fields"`
	Arrays map[string][]string `json:"arrays"`
	Images map[string][]string `json:"images"`
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// applyRequest fills d from a multipart, urlencoded or JSON body. Only keys
// present in the request are applied, so an edit leaves absent fields as
// loaded. Names outside the collection schema are rejected in every body
// format. Field problems are collected in the draft and reported by Submit;
// the returned error covers malformed requests only.
func applyRequest(d formDraft, r *http.Request) (cleanup func(), err error) {
	cleanup = func() {}
	ct := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(ct, "application/json"):
		var body jsonForm
		if err := decodeJSON(r, &body); err != nil {
			return cleanup, errInvalidJSON
		}
		return cleanup, applyJSON(d, body)
	case isMultipart(r):
		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			return cleanup, fmt.Errorf("%w: %v", errInvalidForm, err)
		}
		cleanup = func() { _ = r.MultipartForm.RemoveAll() }
		if err := checkFileNames(d.Collection(), r.MultipartForm.File); err != nil {
			return cleanup, err
		}
		if err := applyValues(d, r.MultipartForm.Value); err != nil {
			return cleanup, err
		}
		return cleanup, applyFiles(d, r.MultipartForm.File)
	default:
		if err := r.ParseForm(); err != nil {
			return cleanup, fmt.Errorf("%w: %v", errInvalidForm, err)
		}
		return cleanup, applyValues(d, r.PostForm)
	}
}

func applyJSON(d formDraft, body jsonForm) error {
	coll := d.Collection()
	values := make(map[string]string, len(body.Fields))
	for k, v := range body.Fields {
		if _, ok := coll.Field(k); !ok {
			return &schema.FieldError{Field: k, Message: "unknown field"}
		}
		values[k] = rawValue(v)
	}
	_ = d.SetFields(values)
	for name, entries := range body.Arrays {
		if err := d.SetArray(name, entries); err != nil {
			return err
		}
	}
	for name, keep := range body.Images {
		if err := d.KeepImages(name, keep); err != nil {
			return err
		}
	}
	return nil
}

func applyValues(d formDraft, form map[string][]string) error {
	coll := d.Collection()
	if err := checkValueNames(coll, form); err != nil {
		return err
	}
	values := make(map[string]string)
	for _, f := range coll.Fields {
		if v, ok := form[f.Name]; ok && len(v) > 0 {
			values[f.Name] = v[0]
		}
	}
	// Problems stay in the draft and come back from Submit together with the
	// required checks.
	_ = d.SetFields(values)

	for _, arr := range coll.Arrays {
		if entries, ok := form[arr.Name]; ok {
			if err := d.SetArray(arr.Name, entries); err != nil {
				return err
			}
		}
	}
	for _, img := range coll.Images {
		if keep, ok := form[keepPrefix+img.Name]; ok {
			keep = lo.Filter(keep, func(u string, _ int) bool { return u != "" })
			if err := d.KeepImages(img.Name, keep); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkValueNames(coll *schema.Collection, form map[string][]string) error {
	for name := range form {
		if _, ok := coll.Field(name); ok {
			continue
		}
		if _, ok := coll.Array(name); ok {
			continue
		}
		if img, found := strings.CutPrefix(name, keepPrefix); found {
			if _, ok := coll.Image(img); ok {
				continue
			}
		}
		return &schema.FieldError{Field: name, Message: "unknown field"}
	}
	return nil
}

func checkFileNames(coll *schema.Collection, files map[string][]*multipart.FileHeader) error {
	for name := range files {
		if _, ok := coll.Image(name); !ok {
			return &schema.FieldError{Field: name, Message: "unknown image field"}
		}
	}
	return nil
}

func applyFiles(d formDraft, files map[string][]*multipart.FileHeader) error {
	for _, img := range d.Collection().Images {
		headers := lo.Filter(files[img.Name], func(h *multipart.FileHeader, _ int) bool { return h.Size > 0 })
		if len(headers) == 0 {
			continue
		}
		batch := make([]media.File, 0, len(headers))
		for _, h := range headers {
			f, err := h.Open()
			if err != nil {
				return fmt.Errorf("opening %s: %w", h.Filename, err)
			}
			defer f.Close()
			batch = append(batch, media.File{
				Name:        h.Filename,
				ContentType: h.Header.Get("Content-Type"),
				Size:        h.Size,
				Body:        f,
			})
		}
		if err := d.AttachImages(img.Name, batch...); err != nil {
			return err
		}
	}
	return nil
}

func rawValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return types.FormatNumber(x)
	default:
		return fmt.Sprint(x)
	}
}
