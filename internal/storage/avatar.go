// Package storage persists avatar images on local disk or in Google Cloud Storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/tsamuels456/unboundedfigures/internal/config"
)

// AvatarStore saves an encoded avatar under name and returns the URL clients should use.
type AvatarStore interface {
	Save(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// LocalPublicPrefix is the URL path the server mounts AVATAR_DIR on.
const LocalPublicPrefix = "/avatars"

var errInvalidName = errors.New("invalid object name")

// New builds the store selected by AVATAR_STORAGE.
func New(ctx context.Context, cfg *config.Config) (AvatarStore, error) {
	switch cfg.AvatarStorage {
	case "gcs":
		return NewGCSStore(ctx, cfg.AvatarGCSBucket, cfg.AvatarGCSCreds)
	default:
		return NewLocalStore(cfg.AvatarDir)
	}
}

func validName(name string) bool {
	return name != "" && !strings.ContainsAny(name, `/\`) && !strings.Contains(name, "..")
}

// LocalStore writes avatars into a directory served statically under LocalPublicPrefix.
type LocalStore struct {
	dir string
}

// NewLocalStore creates dir if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if dir == "" {
		return nil, errors.New("avatar directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create avatar dir: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// Dir is the directory the static handler should serve.
func (s *LocalStore) Dir() string {
	return s.dir
}

func (s *LocalStore) Save(_ context.Context, name, _ string, data []byte) (string, error) {
	if !validName(name) {
		return "", errInvalidName
	}
	// Write to a temp file first so a half-written avatar is never served.
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	return LocalPublicPrefix + "/" + name, nil
}

// GCSStore uploads avatars to a bucket with public read access.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSClient creates a Google Cloud Storage client. If credsPath is empty, ADC is used.
func NewGCSClient(ctx context.Context, credsPath string) (*storage.Client, error) {
	if credsPath == "" {
		return storage.NewClient(ctx)
	}
	return storage.NewClient(ctx, option.WithCredentialsFile(credsPath))
}

// NewGCSStore connects to GCS; objects are written under the "avatars/" prefix.
func NewGCSStore(ctx context.Context, bucket, credsPath string) (*GCSStore, error) {
	if bucket == "" {
		return nil, errors.New("gcs bucket is required")
	}
	client, err := NewGCSClient(ctx, credsPath)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket, prefix: "avatars"}, nil
}

func (s *GCSStore) Save(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if !validName(name) {
		return "", errInvalidName
	}
	objectPath := path.Join(s.prefix, name)
	return UploadObject(ctx, s.client, s.bucket, objectPath, contentType, bytes.NewReader(data))
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

// UploadObject uploads bytes from r into bucket/objectPath with the provided contentType.
func UploadObject(ctx context.Context, client *storage.Client, bucket, objectPath, contentType string, r io.Reader) (string, error) {
	wc := client.Bucket(bucket).Object(objectPath).NewWriter(ctx)
	wc.ContentType = contentType
	wc.CacheControl = "public, max-age=86400"
	wc.ChunkSize = 0 // avatars are small; upload in one request
	if _, err := io.Copy(wc, r); err != nil {
		_ = wc.Close()
		return "", err
	}
	if err := wc.Close(); err != nil {
		return "", err
	}
	return PublicURL(bucket, objectPath), nil
}

// PublicURL builds the public URL for an object in a publicly readable bucket.
func PublicURL(bucket, objectPath string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, objectPath)
}
