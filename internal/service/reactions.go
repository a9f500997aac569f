package service

import (
	"context"

	"campusfeed/internal/models"
)

type ToggleLikeInput struct {
	PostID string
	// Target is "post", "comment:<commentId>" or "reply:<commentId>/<replyId>".
	Target  string
	ActorID string
}

// LikeResult is the actor's like state on the target after the toggle.
type LikeResult struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}

// ToggleLike flips the actor's like on one likeable. Calling it twice in a row
// restores the original state.
func (s *InteractionService) ToggleLike(ctx context.Context, in ToggleLikeInput) (result *LikeResult, err error) {
	ctx, finish := s.track(ctx, "toggle_like", in.PostID)
	defer func() { finish(err) }()

	if err := requireActor(in.ActorID); err != nil {
		return nil, err
	}
	if err := requirePostID(in.PostID); err != nil {
		return nil, err
	}
	target, err := models.ParseTarget(in.Target)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	var res LikeResult
	post, err := s.mutate(ctx, "toggle_like", in.PostID, func(post *models.Post) error {
		reactions, err := post.ReactionsFor(target)
		if err != nil {
			return err
		}
		res.Liked = reactions.Toggle(in.ActorID)
		res.LikeCount = reactions.LikeCount
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.committed(ctx, post, models.InteractionEvent{
		Type:      models.EventLikeToggled,
		Target:    target.String(),
		ActorID:   in.ActorID,
		Liked:     &res.Liked,
		LikeCount: &res.LikeCount,
		CommentID: target.CommentID,
		ReplyID:   target.ReplyID,
	})
	return &res, nil
}
