package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/dealbroker/internal/domain"
)

// EffortStore implements domain.EffortStore as one JSON document per seller
// under "effort:{scope}". Snapshots do not expire.
type EffortStore struct {
	c *Client
}

// NewEffortStore creates an EffortStore backed by the given Client.
func NewEffortStore(c *Client) *EffortStore {
	return &EffortStore{c: c}
}

func (s *EffortStore) SaveSnapshot(ctx context.Context, snap domain.EffortSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal effort %s: %w", snap.Scope, err)
	}
	if err := s.c.rdb.Set(ctx, s.c.key("effort", snap.Scope), data, 0).Err(); err != nil {
		return fmt.Errorf("redis: save effort %s: %w", snap.Scope, err)
	}
	return nil
}

func (s *EffortStore) LoadSnapshot(ctx context.Context, scope string) (domain.EffortSnapshot, error) {
	data, err := s.c.rdb.Get(ctx, s.c.key("effort", scope)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.EffortSnapshot{}, fmt.Errorf("redis: load effort %s: %w", scope, domain.ErrNotFound)
	}
	if err != nil {
		return domain.EffortSnapshot{}, fmt.Errorf("redis: load effort %s: %w", scope, err)
	}

	var snap domain.EffortSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.EffortSnapshot{}, fmt.Errorf("redis: decode effort %s: %w", scope, err)
	}
	return snap, nil
}

var _ domain.EffortStore = (*EffortStore)(nil)
