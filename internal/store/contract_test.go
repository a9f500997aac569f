package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"campusfeed/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPost(id string) *models.Post {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &models.Post{
		ID:        id,
		AuthorID:  "alice@campus.edu",
		Kind:      models.PostKindLost,
		Title:     "Blue backpack",
		Content:   "Left it in the library",
		Fields:    map[string]string{"location": "library"},
		Reactions: models.Reactions{Likes: []string{}},
		Comments:  []models.Comment{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// runStoreContract exercises the conditional-write contract every backend must honor.
func runStoreContract(t *testing.T, s PostStore) {
	ctx := context.Background()
	prefix := fmt.Sprintf("t%d", time.Now().UnixNano())

	t.Run("create and get", func(t *testing.T) {
		post := newTestPost(prefix + "-get")
		require.NoError(t, s.Create(ctx, post))
		require.NotZero(t, post.Version)

		got, err := s.Get(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, post.Version, got.Version)
		assert.Equal(t, "Blue backpack", got.Title)
		assert.Equal(t, "library", got.Fields["location"])
	})

	t.Run("get returns independent copies", func(t *testing.T) {
		post := newTestPost(prefix + "-copy")
		require.NoError(t, s.Create(ctx, post))

		first, err := s.Get(ctx, post.ID)
		require.NoError(t, err)
		first.Toggle("mallory")
		first.Comments = append(first.Comments, models.Comment{ID: "c-local"})

		second, err := s.Get(ctx, post.ID)
		require.NoError(t, err)
		assert.Empty(t, second.Likes)
		assert.Empty(t, second.Comments)
	})

	t.Run("duplicate create", func(t *testing.T) {
		post := newTestPost(prefix + "-dup")
		require.NoError(t, s.Create(ctx, post))
		assert.ErrorIs(t, s.Create(ctx, newTestPost(post.ID)), ErrAlreadyExists)
	})

	t.Run("missing post", func(t *testing.T) {
		_, err := s.Get(ctx, prefix+"-missing")
		assert.ErrorIs(t, err, ErrNotFound)

		ghost := newTestPost(prefix + "-ghost")
		ghost.Version = 1
		assert.ErrorIs(t, s.Replace(ctx, ghost), ErrNotFound)
	})

	t.Run("replace honors version", func(t *testing.T) {
		post := newTestPost(prefix + "-cas")
		require.NoError(t, s.Create(ctx, post))

		a, err := s.Get(ctx, post.ID)
		require.NoError(t, err)
		b, err := s.Get(ctx, post.ID)
		require.NoError(t, err)

		a.Toggle("alice")
		before := a.Version
		require.NoError(t, s.Replace(ctx, a))
		assert.Greater(t, a.Version, before)

		b.Toggle("bob")
		assert.ErrorIs(t, s.Replace(ctx, b), ErrVersionConflict)

		got, err := s.Get(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"alice"}, got.Likes)
		assert.Equal(t, 1, got.LikeCount)
		assert.Equal(t, a.Version, got.Version)
	})
}
