// Package store provides the versioned post document stores backing the interaction engine.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"campusfeed/internal/models"
)

var (
	// ErrNotFound is returned when no post exists for the requested id.
	ErrNotFound = errors.New("post not found")
	// ErrVersionConflict is returned by Replace when the stored version moved on.
	ErrVersionConflict = errors.New("post version conflict")
	// ErrAlreadyExists is returned by Create when the id is taken.
	ErrAlreadyExists = errors.New("post already exists")
)

// InitialVersion is the version a post carries right after Create.
const InitialVersion uint64 = 1

// PostStore persists one document per post and supports conditional writes.
//
// Get always returns an independent copy; mutating it never affects the stored
// state until Replace succeeds. Replace only succeeds when the stored version
// equals post.Version, and on success sets post.Version to the new version.
type PostStore interface {
	Create(ctx context.Context, post *models.Post) error
	Get(ctx context.Context, id string) (*models.Post, error)
	Replace(ctx context.Context, post *models.Post) error
	Ping(ctx context.Context) error
}

func encodePost(post *models.Post) ([]byte, error) {
	body, err := json.Marshal(post)
	if err != nil {
		return nil, fmt.Errorf("encode post %s: %w", post.ID, err)
	}
	return body, nil
}

func decodePost(body []byte, version uint64) (*models.Post, error) {
	var post models.Post
	if err := json.Unmarshal(body, &post); err != nil {
		return nil, fmt.Errorf("decode post: %w", err)
	}
	post.Version = version
	return &post, nil
}
