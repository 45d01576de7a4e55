package crud

import (
	"errors"
	"fmt"
)

// ErrUnknownCollection is returned for a collection missing from the catalog.
var ErrUnknownCollection = errors.New("unknown collection")

// UploadError reports the image upload that abandoned a submit. Files after
// it in the batch were not attempted.
type UploadError struct {
	Field string
	File  string
	Err   error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("uploading %s for %s: %v", e.File, e.Field, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }
