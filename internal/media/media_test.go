package media

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	inputs []*s3.PutObjectInput
	bodies []string
	err    error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, _ := io.ReadAll(in.Body)
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, string(b))
	return &s3.PutObjectOutput{}, nil
}

func file(name, body string) File {
	return File{Name: name, ContentType: "image/jpeg", Size: int64(len(body)), Body: strings.NewReader(body)}
}

func TestObjectKey(t *testing.T) {
	tests := []struct {
		folder, name, suffix, prefix string
	}{
		{"properties", "villa.jpg", "-villa.jpg", "properties/"},
		{"/team/", "C:\\photos\\me.png", "-me.png", "team/"},
		{"reviews", "my photo (1).jpg", "-my_photo_1_.jpg", "reviews/"},
		{"", "../../etc/passwd", "-passwd", ""},
		{"faqs", "...", "-image", "faqs/"},
	}
	for _, tt := range tests {
		key := ObjectKey(tt.folder, tt.name)
		assert.True(t, strings.HasPrefix(key, tt.prefix), "key %q prefix", key)
		assert.True(t, strings.HasSuffix(key, tt.suffix), "key %q suffix %q", key, tt.suffix)
		assert.NotContains(t, key, "..")
	}
}

func TestProfiles_Check(t *testing.T) {
	p := NewProfiles("unsigned_upload", " ", "avatars")
	assert.NoError(t, p.Check("avatars"))
	assert.ErrorIs(t, p.Check("signed"), ErrUnknownProfile)
	assert.Len(t, p, 2)
}

func TestS3Uploader_Upload(t *testing.T) {
	client := &fakeS3{}
	u := NewS3Uploader(client, "estatein-media", "https://cdn.example.com/", NewProfiles("unsigned_upload"))

	url, err := u.Upload(context.Background(), file("villa.jpg", "jpegdata"), "unsigned_upload", "properties")
	require.NoError(t, err)

	require.Len(t, client.inputs, 1)
	in := client.inputs[0]
	assert.Equal(t, "estatein-media", aws.ToString(in.Bucket))
	assert.Equal(t, "image/jpeg", aws.ToString(in.ContentType))
	assert.Equal(t, "https://cdn.example.com/"+aws.ToString(in.Key), url)
	assert.True(t, strings.HasPrefix(aws.ToString(in.Key), "properties/"))
	assert.Equal(t, "jpegdata", client.bodies[0])
}

func TestS3Uploader_UnknownProfileWritesNothing(t *testing.T) {
	client := &fakeS3{}
	u := NewS3Uploader(client, "b", "https://cdn", NewProfiles("unsigned_upload"))

	_, err := u.Upload(context.Background(), file("a.jpg", "x"), "other", "team")
	assert.ErrorIs(t, err, ErrUnknownProfile)
	assert.Empty(t, client.inputs)
}

func TestS3Uploader_APIError(t *testing.T) {
	client := &fakeS3{err: &smithy.GenericAPIError{Code: "AccessDenied", Message: "no write access"}}
	u := NewS3Uploader(client, "b", "https://cdn", NewProfiles("unsigned_upload"))

	_, err := u.Upload(context.Background(), file("a.jpg", "x"), "unsigned_upload", "team")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AccessDenied")
	assert.Contains(t, err.Error(), "a.jpg")
}

func TestDiskUploader_Upload(t *testing.T) {
	dir := t.TempDir()
	u, err := NewDiskUploader(dir, "/media", NewProfiles("unsigned_upload"))
	require.NoError(t, err)

	url, err := u.Upload(context.Background(), file("me.png", "pngdata"), "unsigned_upload", "team")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "/media/team/"))

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(url, "/media/"))))
	require.NoError(t, err)
	assert.Equal(t, "pngdata", string(data))
}

func TestDiskUploader_EmptyFileRemoved(t *testing.T) {
	dir := t.TempDir()
	u, err := NewDiskUploader(dir, "/media", NewProfiles("unsigned_upload"))
	require.NoError(t, err)

	_, err = u.Upload(context.Background(), file("empty.png", ""), "unsigned_upload", "team")
	assert.ErrorIs(t, err, ErrEmptyFile)

	entries, err := os.ReadDir(filepath.Join(dir, "team"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMemoryUploader_FailOn(t *testing.T) {
	u := NewMemoryUploader()
	u.FailOn = func(f File) error {
		if f.Name == "bad.jpg" {
			return errors.New("upload rejected")
		}
		return nil
	}

	_, err := u.Upload(context.Background(), file("good.jpg", "1"), "any", "properties")
	require.NoError(t, err)
	_, err = u.Upload(context.Background(), file("bad.jpg", "2"), "any", "properties")
	require.Error(t, err)

	assert.Equal(t, 2, u.Calls())
	require.Len(t, u.Uploads(), 1)
	assert.Equal(t, "good.jpg", u.Uploads()[0].Name)
}

func TestInstrumented_PassesThrough(t *testing.T) {
	inner := NewMemoryUploader()
	u := Instrumented(inner)

	url, err := u.Upload(context.Background(), file("a.jpg", "x"), "unsigned_upload", "achievements")
	require.NoError(t, err)
	assert.Equal(t, inner.Uploads()[0].URL, url)
}
