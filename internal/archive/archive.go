package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kode4food/stepflow/internal/config"
	"github.com/kode4food/stepflow/pkg/api"
)

// Store keeps finished workflow results so they can be inspected after the
// run has returned
type Store interface {
	Save(ctx context.Context, res *api.WorkflowResult) error
	Load(ctx context.Context, id api.RunID) (*api.WorkflowResult, error)
	Close() error
}

var (
	ErrNotFound       = errors.New("archived run not found")
	ErrResultRequired = errors.New("workflow result is required")
	ErrRunIDRequired  = errors.New("run id is required")
)

// Open selects a Store from configuration. A Redis address wins over a
// bucket URL. With neither configured, Open returns a nil Store
func Open(ctx context.Context, cfg config.ArchiveConfig) (Store, error) {
	switch {
	case cfg.RedisAddr != "":
		s, err := NewRedisStore(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	case cfg.BucketURL != "":
		s, err := OpenBlobStore(ctx, cfg.BucketURL, cfg.Prefix)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, nil
	}
}

func encode(res *api.WorkflowResult) ([]byte, error) {
	if res == nil {
		return nil, ErrResultRequired
	}
	if res.RunID == "" {
		return nil, ErrRunIDRequired
	}
	return json.Marshal(res)
}

func decode(id api.RunID, data []byte) (*api.WorkflowResult, error) {
	var res api.WorkflowResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decode archived run %s: %w", id, err)
	}
	return &res, nil
}
