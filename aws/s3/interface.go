package s3

import (
	"context"
	"io"
)

type BasicClient interface {
	Lister
	BufferPutter
	Deleter
	// Location returns s3://<bucket>[/<prefix>].
	Location() string
}

type Lister interface {
	// List returns the full keys that start with key under the client prefix.
	List(ctx context.Context, key string) (keys []string, err error)
}

// BufferPutter can be used to put a file to S3 since File implements Read and Seek.
type BufferPutter interface {
	BufferPut(ctx context.Context, key string, buf io.ReadSeeker) (err error)
}

type Deleter interface {
	Delete(ctx context.Context, key string) error
}
