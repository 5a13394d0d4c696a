/*
Package storage stores profile pictures in S3-compatible object storage and
resolves the public URL clients load them from.
*/
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectStore is returned when the object store rejects an operation.
var ErrObjectStore = errors.New("object storage request failed")

// ServiceConfig holds the configuration required to connect to the storage service.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string

	// S3PublicBaseURL is the CDN or public bucket URL objects are served from.
	// When empty, URLs are built path-style from the endpoint and bucket.
	S3PublicBaseURL string
}

// StorageService defines the public interface for the file storage service.
type StorageService interface {
	// Upload writes body under key with the given content type.
	Upload(ctx context.Context, key, contentType string, body io.Reader) error

	// PublicURL returns the URL the object at key is downloadable from.
	PublicURL(key string) string

	// Delete removes the file specified by the given key.
	Delete(ctx context.Context, key string) error
}

// NewStorageService is the factory function for StorageService.
// Only S3 compatible implementations are supported.
func NewStorageService(ctx context.Context, cfg ServiceConfig) (StorageService, error) {
	return newS3Client(ctx, cfg)
}
