// Package service implements the interaction engine: reactions, the comment tree
// and the optimistic read-modify-write loop that serializes them per post.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"campusfeed/internal/models"
	"campusfeed/internal/observability"
	"campusfeed/internal/store"

	"github.com/cenkalti/backoff/v5"
)

// Comment orderings for GetTree.
const (
	CommentOrderOldest = "oldest"
	CommentOrderNewest = "newest"
)

const (
	maxTextLen    = 10000
	maxTitleLen   = 300
	maxContentLen = 50000

	defaultOperationTimeout = 5 * time.Second
	sideEffectTimeout       = 2 * time.Second
)

// SnapshotCache is a read-side cache of whole post snapshots.
// Put must refuse snapshots older than the cached one.
type SnapshotCache interface {
	Aside(ctx context.Context, postID string, fetch func(context.Context) (*models.Post, error)) (*models.Post, error)
	Put(ctx context.Context, post *models.Post) (bool, error)
	// Invalidate must keep refusing snapshots older than committed.
	Invalidate(ctx context.Context, postID string, committed uint64) error
}

// EventPublisher announces committed mutations.
type EventPublisher interface {
	PublishInteraction(ctx context.Context, event models.InteractionEvent) error
}

// Options configures an InteractionService. Zero values fall back to defaults.
type Options struct {
	Retry            RetryPolicy
	OperationTimeout time.Duration
	CommentOrder     string
	IDs              IDGenerator
	Now              func() time.Time
	Cache            SnapshotCache
	Events           EventPublisher
}

// InteractionService is the facade over reactions and the comment tree.
// It holds no post state between calls; every mutation re-reads the post and
// commits through a version-checked write.
type InteractionService struct {
	store        store.PostStore
	retry        RetryPolicy
	opTimeout    time.Duration
	commentOrder string
	ids          IDGenerator
	now          func() time.Time
	cache        SnapshotCache
	events       EventPublisher
}

func NewInteractionService(postStore store.PostStore, opts Options) *InteractionService {
	s := &InteractionService{
		store:        postStore,
		retry:        opts.Retry.withDefaults(),
		opTimeout:    opts.OperationTimeout,
		commentOrder: opts.CommentOrder,
		ids:          opts.IDs,
		now:          opts.Now,
		cache:        opts.Cache,
		events:       opts.Events,
	}
	if s.opTimeout <= 0 {
		s.opTimeout = defaultOperationTimeout
	}
	if s.commentOrder != CommentOrderNewest {
		s.commentOrder = CommentOrderOldest
	}
	if s.ids == nil {
		s.ids = UUIDGenerator{}
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

// Ping reports whether the post store is reachable.
func (s *InteractionService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// withDeadline bounds ctx by the operation timeout unless the caller already set a deadline.
func (s *InteractionService) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

// mutate runs READ -> COMPUTE -> conditional WRITE, retrying only lost races.
// apply may be called once per attempt and must derive everything from the post it receives.
func (s *InteractionService) mutate(
	ctx context.Context,
	op, postID string,
	apply func(post *models.Post) error,
) (*models.Post, error) {
	attempts := 0
	post, err := backoff.Retry(ctx, func() (*models.Post, error) {
		attempts++
		observability.InteractionAttempts.WithLabelValues(op).Inc()

		post, err := s.store.Get(ctx, postID)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if drifted := post.Reconcile(); drifted > 0 {
			observability.LegacyRepairs.Add(float64(drifted))
			slog.InfoContext(ctx, "reconciled drifted like counts",
				slog.String("post_id", postID),
				slog.Int("items", drifted),
			)
		}
		if err := apply(post); err != nil {
			return nil, backoff.Permanent(err)
		}
		post.UpdatedAt = s.now()

		if err := s.store.Replace(ctx, post); err != nil {
			if errors.Is(err, store.ErrVersionConflict) {
				observability.InteractionConflicts.WithLabelValues(op).Inc()
				slog.DebugContext(ctx, "version conflict, retrying",
					slog.String("operation", op),
					slog.String("post_id", postID),
					slog.Int("attempt", attempts),
				)
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return post, nil
	},
		backoff.WithBackOff(s.retry.backOff()),
		backoff.WithMaxTries(uint(s.retry.MaxAttempts)),
	)
	if err != nil {
		return nil, s.classify(ctx, op, postID, attempts, err)
	}
	return post, nil
}

// classify maps any failure onto the AppError taxonomy.
func (s *InteractionService) classify(ctx context.Context, op, postID string, attempts int, err error) error {
	var appErr *models.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, store.ErrNotFound):
		return models.NewNotFoundError("Post", postID)
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewDeadlineExceededError(err)
	case errors.Is(err, context.Canceled):
		return models.NewCanceledError(err)
	case ctx.Err() != nil:
		if errors.Is(ctx.Err(), context.Canceled) {
			return models.NewCanceledError(ctx.Err())
		}
		return models.NewDeadlineExceededError(ctx.Err())
	case errors.Is(err, store.ErrVersionConflict):
		slog.WarnContext(ctx, "optimistic write retries exhausted",
			slog.String("operation", op),
			slog.String("post_id", postID),
			slog.Int("attempts", attempts),
		)
		return models.NewConflictError("Post was modified concurrently, please try again", err)
	default:
		slog.ErrorContext(ctx, "interaction failed",
			slog.String("operation", op),
			slog.String("post_id", postID),
			slog.String("error", err.Error()),
		)
		return models.NewInternalError(err)
	}
}

// committed writes the new snapshot through to the cache and publishes the event.
// Neither can fail the operation; the write already happened.
func (s *InteractionService) committed(ctx context.Context, post *models.Post, event models.InteractionEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if s.cache != nil {
		if _, err := s.cache.Put(ctx, post); err != nil {
			slog.WarnContext(ctx, "cache write-through failed, invalidating",
				slog.String("post_id", post.ID),
				slog.String("error", err.Error()),
			)
			if err := s.cache.Invalidate(ctx, post.ID, post.Version); err != nil {
				slog.ErrorContext(ctx, "cache invalidation failed",
					slog.String("post_id", post.ID),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	if s.events != nil {
		event.PostID = post.ID
		event.Version = post.Version
		event.At = s.now()
		result := "ok"
		if err := s.events.PublishInteraction(ctx, event); err != nil {
			result = "error"
			slog.WarnContext(ctx, "failed to publish interaction event",
				slog.String("post_id", post.ID),
				slog.String("type", event.Type),
				slog.String("error", err.Error()),
			)
		}
		observability.EventsPublished.WithLabelValues(event.Type, result).Inc()
	}
}

// track starts the span and metrics for one public operation.
func (s *InteractionService) track(ctx context.Context, op, postID string) (context.Context, func(error)) {
	ctx, span := observability.StartOperation(ctx, op, postID)
	done := observability.TrackInteraction(op)
	return ctx, func(err error) {
		if err == nil {
			done("OK")
		} else {
			done(models.ErrorCode(err))
		}
		observability.EndSpan(span, err)
	}
}

func requireActor(actorID string) error {
	if strings.TrimSpace(actorID) == "" {
		return models.NewUnauthenticatedError("Authentication required")
	}
	return nil
}

func requirePostID(postID string) error {
	if !models.ValidID(postID) {
		return models.NewValidationError("Invalid post ID")
	}
	return nil
}

func normalizeText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", models.NewValidationError("Text is required")
	}
	if utf8.RuneCountInString(text) > maxTextLen {
		return "", models.NewValidationError("Text too long (max 10000 characters)")
	}
	return text, nil
}
