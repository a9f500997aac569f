package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"campusfeed/internal/models"
	"campusfeed/internal/observability"

	"github.com/redis/go-redis/v9"
)

// storeIfNewer writes the snapshot and its version only when the version is
// strictly greater than the cached one.
var storeIfNewer = redis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[2]) or '0')
if tonumber(ARGV[2]) <= cur then
  return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

// dropBelow deletes a snapshot older than ARGV[1] and raises the version key
// to ARGV[1]-1, so a fill loaded before that version is still refused.
var dropBelow = redis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[2]) or '0')
local floor = tonumber(ARGV[1]) - 1
if cur > floor then
  return 0
end
redis.call('DEL', KEYS[1])
redis.call('SET', KEYS[2], string.format('%d', floor), 'PX', ARGV[2])
return 1
`)

// PostSnapshots caches whole post snapshots per post, keyed by version.
// A nil *PostSnapshots is a valid, always-missing cache.
type PostSnapshots struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewPostSnapshots returns a cache using rdb, or nil when rdb is nil.
func NewPostSnapshots(rdb *redis.Client, ttl time.Duration) *PostSnapshots {
	if rdb == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PostSnapshots{rdb: rdb, ttl: ttl}
}

func PostKey(postID string) string { return fmt.Sprintf("post:%s", postID) }

func postVersionKey(postID string) string { return fmt.Sprintf("post:%s:v", postID) }

// Get returns the cached snapshot. The version is read from the snapshot body.
func (c *PostSnapshots) Get(ctx context.Context, postID string) (*models.Post, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	raw, err := c.rdb.Get(ctx, PostKey(postID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var post models.Post
	if err := json.Unmarshal(raw, &post); err != nil {
		return nil, false, err
	}
	return &post, true, nil
}

// Put stores post unless the cache already holds the same or a newer version.
// It reports whether the snapshot was stored.
func (c *PostSnapshots) Put(ctx context.Context, post *models.Post) (bool, error) {
	if c == nil {
		return false, nil
	}
	raw, err := json.Marshal(post)
	if err != nil {
		return false, err
	}
	stored, err := storeIfNewer.Run(ctx, c.rdb,
		[]string{PostKey(post.ID), postVersionKey(post.ID)},
		raw, strconv.FormatUint(post.Version, 10), c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return stored == 1, nil
}

// Invalidate drops any cached snapshot older than committed. The version key is
// kept just below committed, so only fills at committed or later are accepted.
func (c *PostSnapshots) Invalidate(ctx context.Context, postID string, committed uint64) error {
	if c == nil {
		return nil
	}
	return dropBelow.Run(ctx, c.rdb,
		[]string{PostKey(postID), postVersionKey(postID)},
		strconv.FormatUint(committed, 10), c.ttl.Milliseconds(),
	).Err()
}

// Aside returns the cached snapshot or loads it with fetch and caches the result.
// Cache failures are logged and fall through to fetch.
func (c *PostSnapshots) Aside(
	ctx context.Context,
	postID string,
	fetch func(context.Context) (*models.Post, error),
) (*models.Post, error) {
	post, ok, err := c.Get(ctx, postID)
	if err != nil {
		observability.RedisErrorRate.WithLabelValues("snapshot_get").Inc()
		slog.WarnContext(ctx, "snapshot cache read failed",
			slog.String("post_id", postID),
			slog.String("error", err.Error()),
		)
	} else if ok {
		return post, nil
	}

	post, err = fetch(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := c.Put(ctx, post); err != nil {
		observability.RedisErrorRate.WithLabelValues("snapshot_fill").Inc()
		slog.WarnContext(ctx, "snapshot cache fill failed",
			slog.String("post_id", postID),
			slog.String("error", err.Error()),
		)
	}
	return post, nil
}
