package storage

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/contacts-api/internal/config"
)

func newTestUploader(t *testing.T, cfg config.StorageConfig) *Uploader {
	t.Helper()

	u, err := NewUploader(cfg)
	require.NoError(t, err)
	return u
}

func TestUpload_RejectsNonImage(t *testing.T) {
	t.Parallel()

	u := newTestUploader(t, config.StorageConfig{
		Region: "us-east-1",
		Bucket: "avatars",
	})

	// Rejected before any network call, so no running store is needed
	_, err := u.Upload(context.Background(), []byte("%PDF-1.4"), "application/pdf", uuid.New())
	assert.ErrorIs(t, err, ErrNotAnImage)

	_, err = u.Upload(context.Background(), []byte("hello"), "text/plain", uuid.New())
	assert.ErrorIs(t, err, ErrNotAnImage)
}

func TestAvatarKey_Deterministic(t *testing.T) {
	t.Parallel()

	userID := uuid.MustParse("a2b6bb45-7e4c-4ea0-8f1a-0f7f2b1de0ab")

	key := AvatarKey(userID)
	assert.Equal(t, "contacts-api/avatars/user_a2b6bb45-7e4c-4ea0-8f1a-0f7f2b1de0ab", key)

	// Repeated uploads for the same user target the same object
	assert.Equal(t, key, AvatarKey(userID))
}

func TestObjectURL(t *testing.T) {
	t.Parallel()

	key := "contacts-api/avatars/user_x"

	tests := []struct {
		name string
		cfg  config.StorageConfig
		want string
	}{
		{
			name: "public url wins",
			cfg: config.StorageConfig{
				Region:    "us-east-1",
				Bucket:    "avatars",
				Endpoint:  "http://minio:9000",
				PublicURL: "https://cdn.example.com/",
			},
			want: "https://cdn.example.com/" + key,
		},
		{
			name: "custom endpoint",
			cfg: config.StorageConfig{
				Region:   "us-east-1",
				Bucket:   "avatars",
				Endpoint: "http://minio:9000",
			},
			want: "http://minio:9000/avatars/" + key,
		},
		{
			name: "plain aws",
			cfg: config.StorageConfig{
				Region: "eu-central-1",
				Bucket: "avatars",
			},
			want: "https://avatars.s3.eu-central-1.amazonaws.com/" + key,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := newTestUploader(t, tt.cfg)
			assert.Equal(t, tt.want, u.objectURL(key))
		})
	}
}
