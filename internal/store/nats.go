package store

import (
	"context"
	"errors"
	"fmt"

	"campusfeed/internal/models"

	"github.com/nats-io/nats.go/jetstream"
)

// KVStore keeps post documents in a JetStream key-value bucket.
// The entry revision is the post version.
type KVStore struct {
	kv jetstream.KeyValue
}

// NewKVStore creates the bucket if needed and returns a store backed by it.
func NewKVStore(ctx context.Context, js jetstream.JetStream, bucket string) (*KVStore, error) {
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "campusfeed post documents",
		History:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("open key-value bucket %s: %w", bucket, err)
	}
	return &KVStore{kv: kv}, nil
}

func (s *KVStore) Create(ctx context.Context, post *models.Post) error {
	post.Version = 0
	body, err := encodePost(post)
	if err != nil {
		return err
	}
	rev, err := s.kv.Create(ctx, post.ID, body)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("create post %s: %w", post.ID, err)
	}
	post.Version = rev
	return nil
}

func (s *KVStore) Get(ctx context.Context, id string) (*models.Post, error) {
	entry, err := s.kv.Get(ctx, id)
	if err != nil {
		if isMissingKey(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get post %s: %w", id, err)
	}
	return decodePost(entry.Value(), entry.Revision())
}

// Replace writes the document only if the key's last revision is post.Version.
func (s *KVStore) Replace(ctx context.Context, post *models.Post) error {
	body, err := encodePost(post)
	if err != nil {
		return err
	}
	rev, err := s.kv.Update(ctx, post.ID, body, post.Version)
	if err == nil {
		post.Version = rev
		return nil
	}
	if !isWrongRevision(err) {
		return fmt.Errorf("replace post %s: %w", post.ID, err)
	}
	if _, getErr := s.kv.Get(ctx, post.ID); getErr != nil && isMissingKey(getErr) {
		return ErrNotFound
	}
	return ErrVersionConflict
}

func (s *KVStore) Ping(ctx context.Context) error {
	_, err := s.kv.Status(ctx)
	return err
}

func isMissingKey(err error) bool {
	return errors.Is(err, jetstream.ErrKeyNotFound) ||
		errors.Is(err, jetstream.ErrKeyDeleted) ||
		errors.Is(err, jetstream.ErrInvalidKey)
}

func isWrongRevision(err error) bool {
	if errors.Is(err, jetstream.ErrKeyExists) {
		return true
	}
	var apiErr *jetstream.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
}
