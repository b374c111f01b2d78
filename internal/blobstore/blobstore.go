// Package blobstore keeps the raw bytes of uploaded documents.
package blobstore

import "context"

// Store writes uploaded files and returns a URL that identifies them.
type Store interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
}
