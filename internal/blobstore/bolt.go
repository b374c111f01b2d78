package blobstore

import (
	"context"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const defaultBucket = "documents"

// BoltStore stores blobs in a local bbolt file.
type BoltStore struct {
	db     *bbolt.DB
	bucket []byte
}

// NewBoltStore opens (or creates) the bbolt file at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open blob store %s: %w", path, err)
	}

	bucket := []byte(defaultBucket)
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	return &BoltStore{db: db, bucket: bucket}, nil
}

// Put stores data under name and returns bolt://<bucket>/<name>.
func (s *BoltStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if name == "" {
		return "", fmt.Errorf("blob name is required")
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(name), data)
	})
	if err != nil {
		return "", fmt.Errorf("put blob %s: %w", name, err)
	}
	return fmt.Sprintf("bolt://%s/%s", s.bucket, name), nil
}

// Close releases the bbolt file lock.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

var _ Store = (*BoltStore)(nil)
