package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"campusfeed/internal/models"
	"campusfeed/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeStub wraps a real store; set a func field to intercept a call.
type storeStub struct {
	store.PostStore
	getFn     func(context.Context, string) (*models.Post, error)
	replaceFn func(context.Context, *models.Post) error

	gets     atomic.Int64
	replaces atomic.Int64
	writes   atomic.Int64
}

func (s *storeStub) Get(ctx context.Context, id string) (*models.Post, error) {
	s.gets.Add(1)
	if s.getFn != nil {
		return s.getFn(ctx, id)
	}
	return s.PostStore.Get(ctx, id)
}

func (s *storeStub) Replace(ctx context.Context, post *models.Post) error {
	s.replaces.Add(1)
	var err error
	if s.replaceFn != nil {
		err = s.replaceFn(ctx, post)
	} else {
		err = s.PostStore.Replace(ctx, post)
	}
	if err == nil {
		s.writes.Add(1)
	}
	return err
}

// seqIDs hands out c1, c2, ... for comments and r1, r2, ... for replies.
type seqIDs struct {
	mu     sync.Mutex
	counts map[models.TargetKind]int
}

func (g *seqIDs) NewID(kind models.TargetKind) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.counts == nil {
		g.counts = make(map[models.TargetKind]int)
	}
	g.counts[kind]++
	prefix := map[models.TargetKind]string{
		models.TargetPost:    "P",
		models.TargetComment: "c",
		models.TargetReply:   "r",
	}[kind]
	return fmt.Sprintf("%s%d", prefix, g.counts[kind])
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fastRetry(attempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:         attempts,
		InitialInterval:     time.Millisecond,
		MaxInterval:         5 * time.Millisecond,
		Multiplier:          2,
		RandomizationFactor: 0.5,
	}
}

func newTestService(t *testing.T, opts Options) (*InteractionService, *storeStub) {
	t.Helper()
	stub := &storeStub{PostStore: store.NewMemoryStore()}
	if opts.IDs == nil {
		opts.IDs = &seqIDs{}
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return testNow }
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = fastRetry(5)
	}
	return NewInteractionService(stub, opts), stub
}

// seedPost creates an empty post P1 directly in the store.
func seedPost(t *testing.T, s *storeStub) *models.Post {
	t.Helper()
	post := &models.Post{
		ID:        "P1",
		AuthorID:  "owner",
		Kind:      models.PostKindLost,
		Title:     "Blue backpack",
		Reactions: models.Reactions{Likes: []string{}},
		Comments:  []models.Comment{},
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}
	require.NoError(t, s.PostStore.Create(context.Background(), post))
	return post
}

func storedPost(t *testing.T, s *storeStub, id string) *models.Post {
	t.Helper()
	post, err := s.PostStore.Get(context.Background(), id)
	require.NoError(t, err)
	return post
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, models.ErrorCode(err), err.Error())
}

// assertTreeConsistent checks the count invariant on every likeable in the tree.
func assertTreeConsistent(t *testing.T, post *models.Post) {
	t.Helper()
	assert.True(t, post.Reactions.Consistent(), "post %s", post.ID)
	for _, c := range post.Comments {
		assert.True(t, c.Reactions.Consistent(), "comment %s", c.ID)
		for _, r := range c.Replies {
			assert.True(t, r.Reactions.Consistent(), "reply %s", r.ID)
		}
	}
}
