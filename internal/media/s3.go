package media

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/matthewbaird/estatein/internal/config"
)

// PutObjectAPI is the subset of the S3 client used for uploads.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader writes images to an S3 compatible bucket.
type S3Uploader struct {
	client     PutObjectAPI
	bucket     string
	publicBase string
	profiles   Profiles
}

// NewS3Uploader wraps an existing client.
func NewS3Uploader(client PutObjectAPI, bucket, publicBase string, profiles Profiles) *S3Uploader {
	return &S3Uploader{client: client, bucket: bucket, publicBase: publicBase, profiles: profiles}
}

// NewS3UploaderFromConfig builds the S3 client from the media settings.
// Static credentials are used when configured, the default chain otherwise.
func NewS3UploaderFromConfig(ctx context.Context, conf *config.Config) (*S3Uploader, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(conf.MediaRegion)}
	if conf.AWSAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(conf.AWSAccessKey, conf.AWSSecretKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if conf.MediaEndpoint != "" {
			o.BaseEndpoint = aws.String(conf.MediaEndpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3Uploader(client, conf.MediaBucket, conf.MediaPublicBaseURL, NewProfiles(conf.MediaProfiles...)), nil
}

func (u *S3Uploader) Upload(ctx context.Context, f File, profile, folder string) (string, error) {
	if err := u.profiles.Check(profile); err != nil {
		return "", err
	}
	if f.Body == nil {
		return "", fmt.Errorf("%s: %w", f.Name, ErrEmptyFile)
	}

	key := ObjectKey(folder, f.Name)
	input := &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
		Body:   f.Body,
	}
	if f.ContentType != "" {
		input.ContentType = aws.String(f.ContentType)
	}

	if _, err := u.client.PutObject(ctx, input); err != nil {
		var ae smithy.APIError
		if errors.As(err, &ae) {
			return "", fmt.Errorf("uploading %s: %s: %s", f.Name, ae.ErrorCode(), ae.ErrorMessage())
		}
		return "", fmt.Errorf("uploading %s: %w", f.Name, err)
	}
	return PublicURL(u.publicBase, key), nil
}
