// Package storage defines the object-store contract every stage and the
// status resolver depend on. Artifact existence is the pipeline's only
// durable completion signal, so this interface is the whole state surface.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrObjectNotExist is returned by Get and Copy when the source object is
// missing. Implementations must map their native not-found errors to it.
var ErrObjectNotExist = errors.New("storage: object does not exist")

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	Path        string
	Size        int64
	ContentType string
	Created     time.Time
}

// ObjectStore is the storage substrate shared by all stages. An area is a
// named bucket (intake, results, archive); stages claim disjoint write paths
// by construction, so no locking is layered on top.
type ObjectStore interface {
	Exists(ctx context.Context, area, path string) (bool, error)
	Get(ctx context.Context, area, path string) ([]byte, error)
	Put(ctx context.Context, area, path string, data []byte, contentType string) error
	Copy(ctx context.Context, srcArea, srcPath, dstArea, dstPath string) error
	List(ctx context.Context, area, prefix string) ([]ObjectInfo, error)
	Delete(ctx context.Context, area, path string) error
}
