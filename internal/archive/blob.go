package archive

import (
	"context"
	"fmt"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	"github.com/kode4food/stepflow/pkg/api"

	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
)

// BlobStore keeps results as <prefix>/<id>.json objects in any bucket that
// gocloud can open. Drivers beyond file:// and mem:// must be linked in by
// the binary
type BlobStore struct {
	bucket *blob.Bucket
	prefix string
}

var _ Store = (*BlobStore)(nil)

// OpenBlobStore opens the bucket named by url
func OpenBlobStore(
	ctx context.Context, url, prefix string,
) (*BlobStore, error) {
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open archive bucket: %w", err)
	}
	return NewBlobStore(bucket, prefix), nil
}

// NewBlobStore wraps an open bucket. The store takes ownership of it
func NewBlobStore(bucket *blob.Bucket, prefix string) *BlobStore {
	return &BlobStore{
		bucket: bucket,
		prefix: prefix,
	}
}

func (s *BlobStore) Save(ctx context.Context, res *api.WorkflowResult) error {
	data, err := encode(res)
	if err != nil {
		return err
	}
	opts := &blob.WriterOptions{ContentType: "application/json"}
	return s.bucket.WriteAll(ctx, s.key(res.RunID), data, opts)
}

func (s *BlobStore) Load(
	ctx context.Context, id api.RunID,
) (*api.WorkflowResult, error) {
	data, err := s.bucket.ReadAll(ctx, s.key(id))
	if gcerrors.Code(err) == gcerrors.NotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return decode(id, data)
}

func (s *BlobStore) Close() error {
	return s.bucket.Close()
}

func (s *BlobStore) key(id api.RunID) string {
	if s.prefix == "" {
		return string(id) + ".json"
	}
	if !strings.HasSuffix(s.prefix, "/") {
		return s.prefix + "/" + string(id) + ".json"
	}
	return s.prefix + string(id) + ".json"
}
