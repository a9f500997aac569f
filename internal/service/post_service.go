package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"campusfeed/internal/models"
	"campusfeed/internal/store"
)

type CreatePostInput struct {
	AuthorID string
	Kind     string
	Title    string
	Content  string
	Fields   map[string]string
}

const maxFields = 20

// CreatePost stores a new lost-and-found report with an empty interaction tree.
func (s *InteractionService) CreatePost(ctx context.Context, in CreatePostInput) (post *models.Post, err error) {
	ctx, finish := s.track(ctx, "create_post", "")
	defer func() { finish(err) }()

	if err := requireActor(in.AuthorID); err != nil {
		return nil, err
	}

	kind := in.Kind
	if kind == "" {
		kind = models.PostKindLost
	}
	switch kind {
	case models.PostKindLost, models.PostKindFound:
		// valid
	default:
		return nil, models.NewValidationError("Invalid kind (expected lost or found)")
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return nil, models.NewValidationError("Title too long (max 300 characters)")
	}
	if utf8.RuneCountInString(in.Content) > maxContentLen {
		return nil, models.NewValidationError("Content too long (max 50000 characters)")
	}
	if len(in.Fields) > maxFields {
		return nil, models.NewValidationError("Too many fields (max 20)")
	}

	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	now := s.now()
	post = &models.Post{
		ID:        s.ids.NewID(models.TargetPost),
		AuthorID:  in.AuthorID,
		Kind:      kind,
		Title:     title,
		Content:   in.Content,
		Fields:    in.Fields,
		Reactions: models.Reactions{Likes: []string{}},
		Comments:  []models.Comment{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, post); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, models.NewConflictError("Post ID already in use, please try again", err)
		}
		return nil, s.classify(ctx, "create_post", post.ID, 1, err)
	}

	s.committed(ctx, post, models.InteractionEvent{
		Type:    models.EventPostCreated,
		Target:  models.PostTarget().String(),
		ActorID: in.AuthorID,
	})
	return post, nil
}
