package process

import (
	"context"
	"fmt"
	"io"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	"github.com/kode4food/paisley/pkg/api"

	_ "gocloud.dev/blob/azureblob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"
)

// BlobStore persists suspended runs through gocloud.dev/blob, supporting
// S3, GCS, Azure Blob Storage, local files, and in-memory buckets. Useful
// for long pauses where Redis residency would be wasteful
type BlobStore struct {
	bucket *blob.Bucket
	prefix string
}

var _ Store = (*BlobStore)(nil)

// NewBlobStore opens the bucket at the given URL (e.g. "mem://",
// "file:///var/paisley", "s3://bucket")
func NewBlobStore(
	ctx context.Context, bucketURL, prefix string,
) (*BlobStore, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, err
	}
	return &BlobStore{
		bucket: bucket,
		prefix: prefix,
	}, nil
}

func (s *BlobStore) Save(
	ctx context.Context, id api.RunID, state *api.State,
) error {
	data, err := state.Snapshot()
	if err != nil {
		return err
	}
	return s.bucket.WriteAll(ctx, s.keyFor(id), data, nil)
}

func (s *BlobStore) Load(
	ctx context.Context, id api.RunID,
) (*api.State, error) {
	data, err := s.bucket.ReadAll(ctx, s.keyFor(id))
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, fmt.Errorf("%w: run %s", api.ErrNotFound, id)
		}
		return nil, err
	}
	return api.RestoreState(data)
}

func (s *BlobStore) Delete(ctx context.Context, id api.RunID) error {
	err := s.bucket.Delete(ctx, s.keyFor(id))
	if err != nil && gcerrors.Code(err) == gcerrors.NotFound {
		return nil
	}
	return err
}

func (s *BlobStore) List(ctx context.Context) ([]api.RunID, error) {
	var ids []api.RunID

	iter := s.bucket.List(&blob.ListOptions{Prefix: s.prefix})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			return ids, nil
		}
		if err != nil {
			return nil, err
		}
		id := strings.TrimPrefix(obj.Key, s.prefix)
		id = strings.TrimSuffix(id, ".json")
		ids = append(ids, api.RunID(id))
	}
}

// Close releases the underlying bucket
func (s *BlobStore) Close() error {
	return s.bucket.Close()
}

func (s *BlobStore) keyFor(id api.RunID) string {
	return s.prefix + string(id) + ".json"
}
