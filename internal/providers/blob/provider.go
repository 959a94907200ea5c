package blob

import (
	"context"
	"errors"
	"io"
)

var (
	ErrNotFound   = errors.New("blob_not_found")
	ErrInvalidKey = errors.New("blob_invalid_key")
	ErrTooLarge   = errors.New("blob_too_large")
)

// Store persists opaque blobs addressed by the key returned from Put.
type Store interface {
	Put(ctx context.Context, fileName string, r io.Reader) (key string, size int64, err error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// ReadAll resolves key to its full contents.
func ReadAll(ctx context.Context, s Store, key string) ([]byte, error) {
	rc, err := s.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
