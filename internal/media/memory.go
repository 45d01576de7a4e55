package media

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Upload records one successful MemoryUploader call.
type Upload struct {
	Name    string
	Profile string
	Folder  string
	URL     string
	Data    []byte
}

// MemoryUploader keeps uploads in memory. FailOn makes it reject files by
// name, which tests use to break a batch part way through.
type MemoryUploader struct {
	BaseURL string
	FailOn  func(f File) error

	mu       sync.Mutex
	profiles Profiles
	uploads  []Upload
	calls    int
}

// NewMemoryUploader accepts the given profiles; none means any profile.
func NewMemoryUploader(profiles ...string) *MemoryUploader {
	return &MemoryUploader{BaseURL: "https://media.test", profiles: NewProfiles(profiles...)}
}

func (u *MemoryUploader) Upload(ctx context.Context, f File, profile, folder string) (string, error) {
	u.mu.Lock()
	u.calls++
	u.mu.Unlock()

	if len(u.profiles) > 0 {
		if err := u.profiles.Check(profile); err != nil {
			return "", err
		}
	}
	if u.FailOn != nil {
		if err := u.FailOn(f); err != nil {
			return "", err
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var data []byte
	if f.Body != nil {
		b, err := io.ReadAll(f.Body)
		if err != nil {
			return "", fmt.Errorf("uploading %s: %w", f.Name, err)
		}
		data = b
	}

	url := PublicURL(u.BaseURL, ObjectKey(folder, f.Name))
	u.mu.Lock()
	u.uploads = append(u.uploads, Upload{Name: f.Name, Profile: profile, Folder: folder, URL: url, Data: data})
	u.mu.Unlock()
	return url, nil
}

// Uploads returns the successful uploads in call order.
func (u *MemoryUploader) Uploads() []Upload {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]Upload(nil), u.uploads...)
}

// Calls counts every Upload invocation, failed ones included.
func (u *MemoryUploader) Calls() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls
}
