// Package models contains data structures for the interaction engine's domain models.
package models

import (
	"time"

	"github.com/samber/lo"
)

// Post kinds on the lost-and-found feed.
const (
	PostKindLost  = "lost"
	PostKindFound = "found"
)

// Reactions is the likeable capability shared by posts, comments and replies.
// LikeCount always equals len(Likes) after any mutation made through its methods.
type Reactions struct {
	Likes     []string `json:"likes" bson:"likes"`
	LikeCount int      `json:"like_count" bson:"like_count"`
	// Liked indicates whether the requesting viewer liked this item (computed, never stored)
	Liked bool `json:"liked,omitempty" bson:"-"`
}

// LikedBy reports whether actorID is in the likes set.
func (r *Reactions) LikedBy(actorID string) bool {
	return lo.Contains(r.Likes, actorID)
}

// Toggle flips actorID's like and returns the new liked state.
func (r *Reactions) Toggle(actorID string) bool {
	liked := !r.LikedBy(actorID)
	if liked {
		r.Likes = append(r.Likes, actorID)
	} else {
		r.Likes = lo.Without(r.Likes, actorID)
	}
	r.LikeCount = len(r.Likes)
	return liked
}

// Reconcile drops duplicate actors and recomputes LikeCount.
// It returns true when the stored state had drifted.
func (r *Reactions) Reconcile() bool {
	if r.Likes == nil {
		r.Likes = []string{}
	}
	uniq := lo.Uniq(r.Likes)
	drifted := len(uniq) != len(r.Likes) || r.LikeCount != len(uniq)
	r.Likes = uniq
	r.LikeCount = len(uniq)
	return drifted
}

// Consistent reports whether the count matches the set.
func (r *Reactions) Consistent() bool {
	return r.LikeCount == len(r.Likes) && len(lo.Uniq(r.Likes)) == len(r.Likes)
}

// Post is a lost-and-found report together with its interaction subtree.
type Post struct {
	ID        string            `json:"id" bson:"_id"`
	AuthorID  string            `json:"author_id" bson:"author_id"`
	Kind      string            `json:"kind" bson:"kind"`
	Title     string            `json:"title" bson:"title"`
	Content   string            `json:"content" bson:"content"`
	Fields    map[string]string `json:"fields,omitempty" bson:"fields,omitempty"`
	Reactions `bson:",inline"`
	Comments  []Comment `json:"comments" bson:"comments"`
	// Version is the optimistic concurrency token assigned by the post store.
	Version   uint64    `json:"version" bson:"version"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Comment is a first-level entry in a post's comment tree.
type Comment struct {
	ID        string    `json:"id" bson:"id"`
	AuthorID  string    `json:"author_id" bson:"author_id"`
	Text      string    `json:"text" bson:"text"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	Reactions `bson:",inline"`
	Replies   []Reply `json:"replies" bson:"replies"`
}

// Reply is always a leaf attached to exactly one comment.
type Reply struct {
	ID        string    `json:"id" bson:"id"`
	AuthorID  string    `json:"author_id" bson:"author_id"`
	Text      string    `json:"text" bson:"text"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	Reactions `bson:",inline"`
}

// FindComment returns the comment with the given id. Lookup is by id only.
func (p *Post) FindComment(id string) (*Comment, bool) {
	if id == "" {
		return nil, false
	}
	for i := range p.Comments {
		if p.Comments[i].ID == id {
			return &p.Comments[i], true
		}
	}
	return nil, false
}

// FindReply returns the reply with the given id within the comment.
func (c *Comment) FindReply(id string) (*Reply, bool) {
	if id == "" {
		return nil, false
	}
	for i := range c.Replies {
		if c.Replies[i].ID == id {
			return &c.Replies[i], true
		}
	}
	return nil, false
}

// ReactionsFor resolves the likeable addressed by target.
// It returns a VALIDATION_ERROR for a malformed target and NOT_FOUND when the
// comment or reply is absent.
func (p *Post) ReactionsFor(target Target) (*Reactions, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	switch target.Kind {
	case TargetPost:
		return &p.Reactions, nil
	case TargetComment:
		comment, ok := p.FindComment(target.CommentID)
		if !ok {
			return nil, NewNotFoundError("Comment", target.CommentID)
		}
		return &comment.Reactions, nil
	case TargetReply:
		comment, ok := p.FindComment(target.CommentID)
		if !ok {
			return nil, NewNotFoundError("Comment", target.CommentID)
		}
		reply, ok := comment.FindReply(target.ReplyID)
		if !ok {
			return nil, NewNotFoundError("Reply", target.ReplyID)
		}
		return &reply.Reactions, nil
	}
	return nil, invalidTarget(target.String())
}

// Reconcile normalizes every likes set in the tree and nil slices to empty ones.
// It returns the number of likeables whose stored count had drifted.
func (p *Post) Reconcile() int {
	drifted := 0
	if p.Reactions.Reconcile() {
		drifted++
	}
	if p.Comments == nil {
		p.Comments = []Comment{}
	}
	for i := range p.Comments {
		c := &p.Comments[i]
		if c.Reactions.Reconcile() {
			drifted++
		}
		if c.Replies == nil {
			c.Replies = []Reply{}
		}
		for j := range c.Replies {
			if c.Replies[j].Reactions.Reconcile() {
				drifted++
			}
		}
	}
	return drifted
}

// MarkLiked sets the computed Liked flag on every item for viewerID.
func (p *Post) MarkLiked(viewerID string) {
	p.Liked = p.LikedBy(viewerID)
	for i := range p.Comments {
		c := &p.Comments[i]
		c.Liked = c.LikedBy(viewerID)
		for j := range c.Replies {
			c.Replies[j].Liked = c.Replies[j].LikedBy(viewerID)
		}
	}
}

// ReplyCount returns the number of replies across all comments.
func (p *Post) ReplyCount() int {
	return lo.SumBy(p.Comments, func(c Comment) int { return len(c.Replies) })
}
