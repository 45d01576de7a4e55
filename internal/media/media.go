// Package media uploads dashboard images and returns their public URLs.
//
// Every upload names an upload profile and a logical folder. Profiles are the
// set of presets an operator allows; an unknown profile is rejected before
// any bytes are written. Nothing is ever deleted: an image whose document
// write later fails stays orphaned on the media host.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matthewbaird/estatein/internal/observability"
)

var (
	// ErrUnknownProfile is returned for an upload profile that is not configured.
	ErrUnknownProfile = errors.New("unknown upload profile")
	// ErrEmptyFile is returned for a file without content.
	ErrEmptyFile = errors.New("empty file")
)

// File is one image selected in a form.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Uploader stores one file and returns its publicly addressable URL.
type Uploader interface {
	Upload(ctx context.Context, f File, profile, folder string) (string, error)
}

// Profiles is the set of accepted upload profiles.
type Profiles map[string]struct{}

// NewProfiles builds a profile set, ignoring blank names.
func NewProfiles(names ...string) Profiles {
	p := make(Profiles, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			p[n] = struct{}{}
		}
	}
	return p
}

// Check returns ErrUnknownProfile unless name is allowed.
func (p Profiles) Check(name string) error {
	if _, ok := p[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return nil
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// ObjectKey builds the storage key folder/<uuid>-<sanitized name>.
func ObjectKey(folder, name string) string {
	base := unsafeChars.ReplaceAllString(path.Base(strings.ReplaceAll(name, "\\", "/")), "_")
	base = strings.Trim(base, "._")
	if base == "" {
		base = "image"
	}
	key := uuid.NewString() + "-" + base
	if folder = strings.Trim(folder, "/"); folder != "" {
		key = folder + "/" + key
	}
	return key
}

// PublicURL joins a base URL and an object key.
func PublicURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}

// Instrumented wraps an Uploader with upload counters and timings.
func Instrumented(u Uploader) Uploader {
	return instrumented{next: u}
}

type instrumented struct {
	next Uploader
}

func (i instrumented) Upload(ctx context.Context, f File, profile, folder string) (string, error) {
	start := time.Now()
	url, err := i.next.Upload(ctx, f, profile, folder)
	observability.MediaUploadDuration.WithLabelValues(folder).Observe(time.Since(start).Seconds())
	result := "ok"
	if err != nil {
		result = "error"
	}
	observability.MediaUploads.WithLabelValues(folder, result).Inc()
	return url, err
}
