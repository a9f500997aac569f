package models

import (
	"fmt"
	"strings"
)

// TargetKind names the kind of likeable a Target addresses.
type TargetKind string

const (
	TargetPost    TargetKind = "post"
	TargetComment TargetKind = "comment"
	TargetReply   TargetKind = "reply"
)

// Target addresses one likeable inside a post's tree by durable id.
type Target struct {
	Kind      TargetKind
	CommentID string
	ReplyID   string
}

// PostTarget addresses the post itself.
func PostTarget() Target { return Target{Kind: TargetPost} }

// CommentTarget addresses a comment.
func CommentTarget(commentID string) Target {
	return Target{Kind: TargetComment, CommentID: commentID}
}

// ReplyTarget addresses a reply within a comment.
func ReplyTarget(commentID, replyID string) Target {
	return Target{Kind: TargetReply, CommentID: commentID, ReplyID: replyID}
}

// ParseTarget parses "post", "comment:<commentId>" or "reply:<commentId>/<replyId>".
func ParseTarget(path string) (Target, error) {
	path = strings.TrimSpace(path)
	if path == string(TargetPost) {
		return PostTarget(), nil
	}

	kind, rest, ok := strings.Cut(path, ":")
	if !ok {
		return Target{}, invalidTarget(path)
	}

	var target Target
	switch TargetKind(kind) {
	case TargetComment:
		target = CommentTarget(rest)
	case TargetReply:
		commentID, replyID, ok := strings.Cut(rest, "/")
		if !ok {
			return Target{}, invalidTarget(path)
		}
		target = ReplyTarget(commentID, replyID)
	default:
		return Target{}, invalidTarget(path)
	}
	if err := target.Validate(); err != nil {
		return Target{}, invalidTarget(path)
	}
	return target, nil
}

// String renders the target in the form accepted by ParseTarget.
func (t Target) String() string {
	switch t.Kind {
	case TargetComment:
		return fmt.Sprintf("comment:%s", t.CommentID)
	case TargetReply:
		return fmt.Sprintf("reply:%s/%s", t.CommentID, t.ReplyID)
	default:
		return string(TargetPost)
	}
}

// Validate checks that the ids required by the target kind are present and well formed.
func (t Target) Validate() error {
	switch t.Kind {
	case TargetPost:
		return nil
	case TargetComment:
		if validID(t.CommentID) {
			return nil
		}
	case TargetReply:
		if validID(t.CommentID) && validID(t.ReplyID) {
			return nil
		}
	}
	return invalidTarget(t.String())
}

// ValidID reports whether id can address an entity: non-empty, no separators or whitespace.
func ValidID(id string) bool {
	return validID(id)
}

func validID(id string) bool {
	if id == "" || len(id) > 128 {
		return false
	}
	return !strings.ContainsAny(id, ":/ \t\r\n")
}

func invalidTarget(path string) *AppError {
	return NewValidationError(fmt.Sprintf("Invalid target %q", path))
}
