// Package storage keeps user uploaded images in an S3 compatible object store.
package storage

import (
	"context"
	"io"
)

// Image identifies a stored object. PublicID is the handle used to delete it.
type Image struct {
	PublicID string
	URL      string
}

type ImageStore interface {
	Upload(ctx context.Context, filename, contentType string, body io.Reader) (*Image, error)
	Delete(ctx context.Context, publicID string) error
}
