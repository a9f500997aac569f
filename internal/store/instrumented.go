package store

import (
	"context"
	"errors"

	"campusfeed/internal/models"
	"campusfeed/internal/observability"
)

type instrumentedStore struct {
	next    PostStore
	backend string
}

// Instrument wraps s so every call records a span and a latency sample labelled with backend.
func Instrument(s PostStore, backend string) PostStore {
	return &instrumentedStore{next: s, backend: backend}
}

func (s *instrumentedStore) Create(ctx context.Context, post *models.Post) (err error) {
	ctx, span := observability.StartStoreCall(ctx, s.backend, "create")
	defer observability.TrackStore(s.backend, "create")()
	defer func() { observability.EndSpan(span, err) }()
	return s.next.Create(ctx, post)
}

func (s *instrumentedStore) Get(ctx context.Context, id string) (post *models.Post, err error) {
	ctx, span := observability.StartStoreCall(ctx, s.backend, "get")
	defer observability.TrackStore(s.backend, "get")()
	defer func() { observability.EndSpan(span, err) }()
	return s.next.Get(ctx, id)
}

func (s *instrumentedStore) Replace(ctx context.Context, post *models.Post) (err error) {
	ctx, span := observability.StartStoreCall(ctx, s.backend, "replace")
	defer observability.TrackStore(s.backend, "replace")()
	defer func() {
		// A lost race is expected traffic, not a span error.
		if errors.Is(err, ErrVersionConflict) {
			observability.EndSpan(span, nil)
			return
		}
		observability.EndSpan(span, err)
	}()
	return s.next.Replace(ctx, post)
}

func (s *instrumentedStore) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}
