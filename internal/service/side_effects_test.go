package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"campusfeed/internal/cache"
	"campusfeed/internal/models"
	"campusfeed/internal/notifications"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []models.InteractionEvent
	err    error
}

func (r *eventRecorder) PublishInteraction(_ context.Context, event models.InteractionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *eventRecorder) all() []models.InteractionEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.InteractionEvent(nil), r.events...)
}

// cacheStub fails Put and records invalidations.
type cacheStub struct {
	SnapshotCache
	mu          sync.Mutex
	invalidated []string
}

func (c *cacheStub) Put(context.Context, *models.Post) (bool, error) {
	return false, errors.New("redis timeout")
}

func (c *cacheStub) Invalidate(_ context.Context, postID string, committed uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, fmt.Sprintf("%s@%d", postID, committed))
	return nil
}

func newMiniredisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestCommitted_PublishesEvents(t *testing.T) {
	t.Parallel()

	events := &eventRecorder{}
	svc, stub := newTestService(t, Options{Events: events})
	seedPost(t, stub)
	ctx := context.Background()

	_, err := svc.AddComment(ctx, AddCommentInput{PostID: "P1", AuthorID: "alice", Text: "hi"})
	require.NoError(t, err)
	_, err = svc.AddReply(ctx, AddReplyInput{PostID: "P1", CommentID: "c1", AuthorID: "bob", Text: "yo"})
	require.NoError(t, err)
	_, err = svc.ToggleLike(ctx, ToggleLikeInput{PostID: "P1", Target: "reply:c1/r1", ActorID: "carol"})
	require.NoError(t, err)
	// Failed operations publish nothing.
	_, err = svc.ToggleLike(ctx, ToggleLikeInput{PostID: "P1", Target: "comment:nope", ActorID: "carol"})
	require.Error(t, err)

	got := events.all()
	require.Len(t, got, 3)

	assert.Equal(t, models.EventCommentAdded, got[0].Type)
	assert.Equal(t, "comment:c1", got[0].Target)
	assert.Equal(t, uint64(2), got[0].Version)

	assert.Equal(t, models.EventReplyAdded, got[1].Type)
	assert.Equal(t, "c1", got[1].CommentID)
	assert.Equal(t, "r1", got[1].ReplyID)

	like := got[2]
	assert.Equal(t, models.EventLikeToggled, like.Type)
	assert.Equal(t, "P1", like.PostID)
	assert.Equal(t, "reply:c1/r1", like.Target)
	assert.Equal(t, "carol", like.ActorID)
	require.NotNil(t, like.Liked)
	assert.True(t, *like.Liked)
	require.NotNil(t, like.LikeCount)
	assert.Equal(t, 1, *like.LikeCount)
	assert.Equal(t, uint64(4), like.Version)
	assert.Equal(t, testNow, like.At)
}

func TestCommitted_PublishFailureDoesNotFailOperation(t *testing.T) {
	t.Parallel()

	events := &eventRecorder{err: errors.New("broker down")}
	svc, stub := newTestService(t, Options{Events: events})
	seedPost(t, stub)

	res, err := svc.ToggleLike(context.Background(), ToggleLikeInput{PostID: "P1", Target: "post", ActorID: "alice"})
	require.NoError(t, err)
	assert.True(t, res.Liked)
	assert.Len(t, events.all(), 1)
}

func TestCommitted_CacheFailureInvalidates(t *testing.T) {
	t.Parallel()

	snapshots := &cacheStub{}
	svc, stub := newTestService(t, Options{Cache: snapshots})
	seedPost(t, stub)

	_, err := svc.AddComment(context.Background(), AddCommentInput{PostID: "P1", AuthorID: "alice", Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, []string{"P1@2"}, snapshots.invalidated)
}

func TestCommitted_SideEffectsSurviveCanceledCaller(t *testing.T) {
	t.Parallel()

	events := &eventRecorder{}
	svc, stub := newTestService(t, Options{Events: events})
	seedPost(t, stub)

	ctx, cancel := context.WithCancel(context.Background())
	stub.replaceFn = func(c context.Context, post *models.Post) error {
		err := stub.PostStore.Replace(c, post)
		cancel()
		return err
	}

	_, err := svc.ToggleLike(ctx, ToggleLikeInput{PostID: "P1", Target: "post", ActorID: "alice"})
	require.NoError(t, err)
	assert.Len(t, events.all(), 1)
}

func TestGetTree_ReadsThroughRedisCache(t *testing.T) {
	t.Parallel()

	mr, rdb := newMiniredisClient(t)
	snapshots := cache.NewPostSnapshots(rdb, time.Minute)
	svc, stub := newTestService(t, Options{Cache: snapshots})
	seedPost(t, stub)
	ctx := context.Background()

	_, err := svc.GetTree(ctx, GetTreeInput{PostID: "P1"})
	require.NoError(t, err)
	_, err = svc.GetTree(ctx, GetTreeInput{PostID: "P1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), stub.gets.Load())
	assert.True(t, mr.Exists(cache.PostKey("P1")))

	// A mutation reads the store, never the cache, and writes its snapshot through.
	_, err = svc.ToggleLike(ctx, ToggleLikeInput{PostID: "P1", Target: "post", ActorID: "alice"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), stub.gets.Load())

	tree, err := svc.GetTree(ctx, GetTreeInput{PostID: "P1", ViewerID: "alice"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), stub.gets.Load())
	assert.Equal(t, uint64(2), tree.Version)
	assert.Equal(t, 1, tree.LikeCount)
	assert.True(t, tree.Liked)

	// Viewer flags are computed per read and never cached.
	anon, err := svc.GetTree(ctx, GetTreeInput{PostID: "P1"})
	require.NoError(t, err)
	assert.False(t, anon.Liked)
}

func TestGetTree_RedisOutageFallsBackToStore(t *testing.T) {
	t.Parallel()

	mr, rdb := newMiniredisClient(t)
	svc, stub := newTestService(t, Options{Cache: cache.NewPostSnapshots(rdb, time.Minute)})
	seedPost(t, stub)
	mr.Close()

	tree, err := svc.GetTree(context.Background(), GetTreeInput{PostID: "P1"})
	require.NoError(t, err)
	assert.Equal(t, "P1", tree.ID)

	// Mutations still commit when the write-through cannot reach Redis.
	_, err = svc.ToggleLike(context.Background(), ToggleLikeInput{PostID: "P1", Target: "post", ActorID: "alice"})
	require.NoError(t, err)
}

func TestEvents_DeliveredOverRedisPubSub(t *testing.T) {
	t.Parallel()

	_, rdb := newMiniredisClient(t)
	notifier := notifications.NewNotifier(rdb)
	svc, stub := newTestService(t, Options{Events: notifier})
	seedPost(t, stub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	received := make(chan models.InteractionEvent, 1)
	require.NoError(t, notifier.Subscribe(ctx, "P1", func(e models.InteractionEvent) { received <- e }))

	_, err := svc.AddComment(ctx, AddCommentInput{PostID: "P1", AuthorID: "alice", Text: "found it"})
	require.NoError(t, err)

	select {
	case e := <-received:
		assert.Equal(t, models.EventCommentAdded, e.Type)
		assert.Equal(t, "c1", e.CommentID)
		assert.Equal(t, "alice", e.ActorID)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}
