package models

import "time"

// Interaction event types.
const (
	EventPostCreated  = "post_created"
	EventLikeToggled  = "like_toggled"
	EventCommentAdded = "comment_added"
	EventReplyAdded   = "reply_added"
)

// InteractionEvent describes one committed mutation of a post's tree.
type InteractionEvent struct {
	Type      string    `json:"type"`
	PostID    string    `json:"post_id"`
	Target    string    `json:"target,omitempty"`
	ActorID   string    `json:"actor_id"`
	Liked     *bool     `json:"liked,omitempty"`
	LikeCount *int      `json:"like_count,omitempty"`
	CommentID string    `json:"comment_id,omitempty"`
	ReplyID   string    `json:"reply_id,omitempty"`
	Version   uint64    `json:"version"`
	At        time.Time `json:"at"`
}
