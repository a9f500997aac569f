package server

import (
	"campusfeed/internal/middleware"
	"campusfeed/internal/models"
	"campusfeed/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createPostRequest struct {
	Kind    string            `json:"kind"`
	Title   string            `json:"title"`
	Content string            `json:"content"`
	Fields  map[string]string `json:"fields"`
}

type textRequest struct {
	Text string `json:"text"`
}

type reactionRequest struct {
	Target string `json:"target"`
}

// CreatePost creates a lost or found report (protected)
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req createPostRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	post, err := s.svc.CreatePost(c.UserContext(), service.CreatePostInput{
		AuthorID: middleware.ActorID(c),
		Kind:     req.Kind,
		Title:    req.Title,
		Content:  req.Content,
		Fields:   req.Fields,
	})
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPost returns the post with its full comment tree. Liked flags are
// filled for the caller when a token is sent.
func (s *Server) GetPost(c *fiber.Ctx) error {
	post, err := s.svc.GetTree(c.UserContext(), service.GetTreeInput{
		PostID:   c.Params("id"),
		ViewerID: middleware.ActorID(c),
	})
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(post)
}

// LikePost toggles the caller's like on the post.
func (s *Server) LikePost(c *fiber.Ctx) error {
	return s.toggle(c, models.PostTarget().String())
}

// LikeComment toggles the caller's like on a comment.
func (s *Server) LikeComment(c *fiber.Ctx) error {
	return s.toggle(c, models.CommentTarget(c.Params("commentId")).String())
}

// LikeReply toggles the caller's like on a reply.
func (s *Server) LikeReply(c *fiber.Ctx) error {
	return s.toggle(c, models.ReplyTarget(c.Params("commentId"), c.Params("replyId")).String())
}

// ToggleReaction toggles a like on the target path named in the body.
func (s *Server) ToggleReaction(c *fiber.Ctx) error {
	var req reactionRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}
	return s.toggle(c, req.Target)
}

func (s *Server) toggle(c *fiber.Ctx, target string) error {
	res, err := s.svc.ToggleLike(c.UserContext(), service.ToggleLikeInput{
		PostID:  c.Params("id"),
		Target:  target,
		ActorID: middleware.ActorID(c),
	})
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(res)
}

// AddComment appends a comment to the post (protected)
func (s *Server) AddComment(c *fiber.Ctx) error {
	var req textRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	comment, err := s.svc.AddComment(c.UserContext(), service.AddCommentInput{
		PostID:   c.Params("id"),
		AuthorID: middleware.ActorID(c),
		Text:     req.Text,
	})
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// AddReply appends a reply to a comment (protected)
func (s *Server) AddReply(c *fiber.Ctx) error {
	var req textRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	reply, err := s.svc.AddReply(c.UserContext(), service.AddReplyInput{
		PostID:    c.Params("id"),
		CommentID: c.Params("commentId"),
		AuthorID:  middleware.ActorID(c),
		Text:      req.Text,
	})
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(reply)
}
