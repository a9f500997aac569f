package store

import (
	"context"
	"sync"

	"campusfeed/internal/models"
)

type memoryDoc struct {
	body    []byte
	version uint64
}

// MemoryStore keeps encoded post snapshots in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]memoryDoc
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]memoryDoc)}
}

func (s *MemoryStore) Create(ctx context.Context, post *models.Post) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	post.Version = InitialVersion
	body, err := encodePost(post)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[post.ID]; ok {
		return ErrAlreadyExists
	}
	s.docs[post.ID] = memoryDoc{body: body, version: InitialVersion}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	doc, ok := s.docs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decodePost(doc.body, doc.version)
}

func (s *MemoryStore) Replace(ctx context.Context, post *models.Post) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	next := post.Version + 1
	staged := *post
	staged.Version = next
	body, err := encodePost(&staged)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[post.ID]
	if !ok {
		return ErrNotFound
	}
	if doc.version != post.Version {
		return ErrVersionConflict
	}
	s.docs[post.ID] = memoryDoc{body: body, version: next}
	post.Version = next
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}
