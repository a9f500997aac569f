package service

import (
	"context"
	"errors"
	"slices"

	"campusfeed/internal/models"
	"campusfeed/internal/store"
)

type AddCommentInput struct {
	PostID   string
	AuthorID string
	Text     string
}

type AddReplyInput struct {
	PostID    string
	CommentID string
	AuthorID  string
	Text      string
}

type GetTreeInput struct {
	PostID string
	// ViewerID, when set, fills the computed liked flags from the fresh snapshot.
	ViewerID string
}

// AddComment appends a new comment to the post.
func (s *InteractionService) AddComment(ctx context.Context, in AddCommentInput) (comment *models.Comment, err error) {
	ctx, finish := s.track(ctx, "add_comment", in.PostID)
	defer func() { finish(err) }()

	if err := requireActor(in.AuthorID); err != nil {
		return nil, err
	}
	if err := requirePostID(in.PostID); err != nil {
		return nil, err
	}
	text, err := normalizeText(in.Text)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	// The id is allocated once so a retried write keeps the same identity.
	id := s.ids.NewID(models.TargetComment)
	createdAt := s.now()

	var created models.Comment
	post, err := s.mutate(ctx, "add_comment", in.PostID, func(post *models.Post) error {
		created = models.Comment{
			ID:        id,
			AuthorID:  in.AuthorID,
			Text:      text,
			CreatedAt: createdAt,
			Reactions: models.Reactions{Likes: []string{}},
			Replies:   []models.Reply{},
		}
		post.Comments = append(post.Comments, created)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.committed(ctx, post, models.InteractionEvent{
		Type:      models.EventCommentAdded,
		Target:    models.CommentTarget(id).String(),
		ActorID:   in.AuthorID,
		CommentID: id,
	})
	return &created, nil
}

// AddReply appends a reply to the comment whose id equals in.CommentID.
// An unknown comment fails with NOT_FOUND and nothing is written.
func (s *InteractionService) AddReply(ctx context.Context, in AddReplyInput) (reply *models.Reply, err error) {
	ctx, finish := s.track(ctx, "add_reply", in.PostID)
	defer func() { finish(err) }()

	if err := requireActor(in.AuthorID); err != nil {
		return nil, err
	}
	if err := requirePostID(in.PostID); err != nil {
		return nil, err
	}
	if !models.ValidID(in.CommentID) {
		return nil, models.NewValidationError("Invalid comment ID")
	}
	text, err := normalizeText(in.Text)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	id := s.ids.NewID(models.TargetReply)
	createdAt := s.now()

	var created models.Reply
	post, err := s.mutate(ctx, "add_reply", in.PostID, func(post *models.Post) error {
		parent, ok := post.FindComment(in.CommentID)
		if !ok {
			return models.NewNotFoundError("Comment", in.CommentID)
		}
		created = models.Reply{
			ID:        id,
			AuthorID:  in.AuthorID,
			Text:      text,
			CreatedAt: createdAt,
			Reactions: models.Reactions{Likes: []string{}},
		}
		parent.Replies = append(parent.Replies, created)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.committed(ctx, post, models.InteractionEvent{
		Type:      models.EventReplyAdded,
		Target:    models.ReplyTarget(in.CommentID, id).String(),
		ActorID:   in.AuthorID,
		CommentID: in.CommentID,
		ReplyID:   id,
	})
	return &created, nil
}

// GetTree returns one consistent snapshot of the post with its comments and replies.
func (s *InteractionService) GetTree(ctx context.Context, in GetTreeInput) (post *models.Post, err error) {
	ctx, finish := s.track(ctx, "get_tree", in.PostID)
	defer func() { finish(err) }()

	if err := requirePostID(in.PostID); err != nil {
		return nil, err
	}

	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	post, err = s.snapshot(ctx, in.PostID)
	if err != nil {
		return nil, err
	}

	post.Reconcile()
	if s.commentOrder == CommentOrderNewest {
		slices.Reverse(post.Comments)
	}
	if in.ViewerID != "" {
		post.MarkLiked(in.ViewerID)
	}
	return post, nil
}

// snapshot reads the post through the cache when one is configured.
// Mutations never come through here.
func (s *InteractionService) snapshot(ctx context.Context, postID string) (*models.Post, error) {
	var (
		post *models.Post
		err  error
	)
	if s.cache != nil {
		post, err = s.cache.Aside(ctx, postID, func(ctx context.Context) (*models.Post, error) {
			return s.store.Get(ctx, postID)
		})
	} else {
		post, err = s.store.Get(ctx, postID)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, models.NewNotFoundError("Post", postID)
		}
		return nil, s.classify(ctx, "get_tree", postID, 1, err)
	}
	return post, nil
}
