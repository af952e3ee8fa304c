package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/redmonkez12/contacts-api/internal/config"
)

var (
	// ErrNotAnImage is returned before any network call when the payload
	// is not an image.
	ErrNotAnImage = errors.New("file must be an image")

	// ErrUploadFailed wraps failures of the object store itself.
	ErrUploadFailed = errors.New("avatar upload failed")
)

// avatarKeyPrefix groups all avatar objects under one folder
const avatarKeyPrefix = "contacts-api/avatars"

// Uploader stores avatar images in an S3-compatible object store.
type Uploader struct {
	client    *s3.Client
	bucket    string
	region    string
	endpoint  string
	publicURL string
}

// NewUploader builds an S3 client from static credentials. A non-empty
// endpoint points the client at an S3-compatible store such as MinIO.
func NewUploader(cfg config.StorageConfig) (*Uploader, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Uploader{
		client:    client,
		bucket:    cfg.Bucket,
		region:    cfg.Region,
		endpoint:  cfg.Endpoint,
		publicURL: cfg.PublicURL,
	}, nil
}

// Upload stores an avatar image and returns its public URL. The object
// key is derived from the user id alone, so a repeated upload overwrites
// the previous avatar instead of accumulating objects.
func (u *Uploader) Upload(ctx context.Context, data []byte, contentType string, userID uuid.UUID) (string, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return "", ErrNotAnImage
	}

	key := AvatarKey(userID)

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	return u.objectURL(key), nil
}

// AvatarKey returns the deterministic object key for a user's avatar
func AvatarKey(userID uuid.UUID) string {
	return fmt.Sprintf("%s/user_%s", avatarKeyPrefix, userID)
}

func (u *Uploader) objectURL(key string) string {
	if u.publicURL != "" {
		return fmt.Sprintf("%s/%s", strings.TrimSuffix(u.publicURL, "/"), key)
	}
	if u.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(u.endpoint, "/"), u.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.bucket, u.region, key)
}
