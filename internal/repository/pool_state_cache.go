package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nordhen/credgate/internal/service"
)

const (
	exhaustedKeyPrefix = "exhausted_until_"
	cursorKey          = "creds_index"
	projectIDKeyPrefix = "project_id_"
)

// poolStateCache holds the cross-request rotation state: the shared cursor,
// per-index exhaustion records, and discovered project ids. Plain get/put
// /delete with no transactions; racing writers are tolerated by design of
// the rotation protocol.
type poolStateCache struct {
	rdb *redis.Client
}

func NewPoolStateCache(rdb *redis.Client) *poolStateCache {
	return &poolStateCache{rdb: rdb}
}

func NewExhaustionCache(rdb *redis.Client) service.ExhaustionCache {
	return NewPoolStateCache(rdb)
}

func NewRotationCursorCache(rdb *redis.Client) service.RotationCursorCache {
	return NewPoolStateCache(rdb)
}

func NewProjectIDCache(rdb *redis.Client) service.ProjectIDCache {
	return NewPoolStateCache(rdb)
}

func exhaustedKey(index int) string {
	return exhaustedKeyPrefix + strconv.Itoa(index)
}

func projectIDKey(index int) string {
	return projectIDKeyPrefix + strconv.Itoa(index)
}

func (c *poolStateCache) GetExhaustedUntil(ctx context.Context, index int) (int64, bool, error) {
	raw, err := c.rdb.Get(ctx, exhaustedKey(index)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get exhaustion record: %w", err)
	}
	untilMS, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse exhaustion record %q: %w", raw, err)
	}
	return untilMS, true, nil
}

func (c *poolStateCache) SetExhaustedUntil(ctx context.Context, index int, untilMS int64, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, exhaustedKey(index), strconv.FormatInt(untilMS, 10), ttl).Err(); err != nil {
		return fmt.Errorf("set exhaustion record: %w", err)
	}
	return nil
}

func (c *poolStateCache) DeleteExhaustedUntil(ctx context.Context, index int) error {
	if err := c.rdb.Del(ctx, exhaustedKey(index)).Err(); err != nil {
		return fmt.Errorf("delete exhaustion record: %w", err)
	}
	return nil
}

func (c *poolStateCache) GetCursor(ctx context.Context) (int, bool, error) {
	raw, err := c.rdb.Get(ctx, cursorKey).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get rotation cursor: %w", err)
	}
	index, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("parse rotation cursor %q: %w", raw, err)
	}
	return index, true, nil
}

func (c *poolStateCache) SetCursor(ctx context.Context, index int) error {
	// The cursor never expires: it is a hint, not a lease.
	if err := c.rdb.Set(ctx, cursorKey, strconv.Itoa(index), 0).Err(); err != nil {
		return fmt.Errorf("set rotation cursor: %w", err)
	}
	return nil
}

func (c *poolStateCache) GetProjectID(ctx context.Context, index int) (string, error) {
	raw, err := c.rdb.Get(ctx, projectIDKey(index)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get project id: %w", err)
	}
	return raw, nil
}

func (c *poolStateCache) SetProjectID(ctx context.Context, index int, projectID string) error {
	if err := c.rdb.Set(ctx, projectIDKey(index), projectID, 0).Err(); err != nil {
		return fmt.Errorf("set project id: %w", err)
	}
	return nil
}

func (c *poolStateCache) DeleteProjectID(ctx context.Context, index int) error {
	if err := c.rdb.Del(ctx, projectIDKey(index)).Err(); err != nil {
		return fmt.Errorf("delete project id: %w", err)
	}
	return nil
}
