package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DiskUploader writes images below a local directory that the HTTP server
// exposes under publicBase. Used when no bucket is configured.
type DiskUploader struct {
	dir        string
	publicBase string
	profiles   Profiles
}

// NewDiskUploader creates the root directory if needed.
func NewDiskUploader(dir, publicBase string, profiles Profiles) (*DiskUploader, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating media directory: %w", err)
	}
	return &DiskUploader{dir: dir, publicBase: publicBase, profiles: profiles}, nil
}

// Dir returns the root directory.
func (u *DiskUploader) Dir() string { return u.dir }

func (u *DiskUploader) Upload(ctx context.Context, f File, profile, folder string) (string, error) {
	if err := u.profiles.Check(profile); err != nil {
		return "", err
	}
	if f.Body == nil {
		return "", fmt.Errorf("%s: %w", f.Name, ErrEmptyFile)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key := ObjectKey(folder, f.Name)
	dst := filepath.Join(u.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("uploading %s: %w", f.Name, err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", f.Name, err)
	}
	n, err := io.Copy(out, f.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("uploading %s: %w", f.Name, err)
	}
	if n == 0 {
		os.Remove(dst)
		return "", fmt.Errorf("%s: %w", f.Name, ErrEmptyFile)
	}
	return PublicURL(u.publicBase, key), nil
}
