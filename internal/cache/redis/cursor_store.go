package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// CursorStore remembers how far a stream consumer has read, so a restarted
// relay resumes after the last delivered entry.
type CursorStore struct {
	c *Client
}

// NewCursorStore creates a CursorStore backed by the given Client.
func NewCursorStore(c *Client) *CursorStore {
	return &CursorStore{c: c}
}

// LoadCursor returns the last entry ID saved for consumer, or "" if none.
func (s *CursorStore) LoadCursor(ctx context.Context, consumer string) (string, error) {
	id, err := s.c.rdb.Get(ctx, s.c.key("cursor", consumer)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis: load cursor %s: %w", consumer, err)
	}
	return id, nil
}

// SaveCursor records id as the last entry consumer has handled.
func (s *CursorStore) SaveCursor(ctx context.Context, consumer, id string) error {
	if err := s.c.rdb.Set(ctx, s.c.key("cursor", consumer), id, 0).Err(); err != nil {
		return fmt.Errorf("redis: save cursor %s: %w", consumer, err)
	}
	return nil
}
