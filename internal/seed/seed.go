// Package seed fills a feed with demo lost-and-found posts and interactions.
// It goes through the interaction service so seeded data obeys the same rules
// as user traffic. Intended for development only.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"campusfeed/internal/models"
	"campusfeed/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/sync/errgroup"
)

// Interactions is the subset of the interaction service the seeder drives.
type Interactions interface {
	CreatePost(ctx context.Context, in service.CreatePostInput) (*models.Post, error)
	AddComment(ctx context.Context, in service.AddCommentInput) (*models.Comment, error)
	AddReply(ctx context.Context, in service.AddReplyInput) (*models.Reply, error)
	ToggleLike(ctx context.Context, in service.ToggleLikeInput) (*service.LikeResult, error)
}

// Options controls the shape of the seeded feed.
type Options struct {
	Posts  int
	Actors int
	// MaxCommentsPerPost defaults to 4; a negative value seeds no comments.
	MaxCommentsPerPost  int
	MaxRepliesPerThread int
	// Workers seeds posts concurrently; likes on one post then race like real traffic.
	Workers int
	// Seed makes the generated content reproducible when non-zero.
	Seed int64
}

// Summary counts what was written.
type Summary struct {
	Posts    int64
	Comments int64
	Replies  int64
	Likes    int64
}

var items = []string{
	"backpack", "water bottle", "student ID", "laptop charger", "umbrella",
	"keys", "wallet", "AirPods case", "scarf", "calculator", "notebook",
}

var places = []string{
	"Main Library", "Engineering Hall", "Student Union", "Gym", "Cafeteria",
	"Parking Lot B", "Science Building", "Bus Stop", "Dorm Lobby",
}

// Seeder creates demo data through an Interactions implementation.
type Seeder struct {
	svc    Interactions
	opts   Options
	faker  *gofakeit.Faker
	actors []string
}

// NewSeeder builds a Seeder with defaults filled in.
func NewSeeder(svc Interactions, opts Options) *Seeder {
	if opts.Posts <= 0 {
		opts.Posts = 20
	}
	if opts.Actors <= 0 {
		opts.Actors = 12
	}
	if opts.MaxCommentsPerPost < 0 {
		opts.MaxCommentsPerPost = 0
	} else if opts.MaxCommentsPerPost == 0 {
		opts.MaxCommentsPerPost = 4
	}
	if opts.MaxRepliesPerThread <= 0 {
		opts.MaxRepliesPerThread = 3
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}

	faker := gofakeit.New(opts.Seed)
	actors := make([]string, 0, opts.Actors)
	seen := make(map[string]bool)
	for len(actors) < opts.Actors {
		email := faker.Email()
		if seen[email] {
			continue
		}
		seen[email] = true
		actors = append(actors, email)
	}

	return &Seeder{svc: svc, opts: opts, faker: faker, actors: actors}
}

// Actors returns the generated actor identities.
func (s *Seeder) Actors() []string {
	return s.actors
}

// postPlan is everything random about one post, drawn up front so the
// faker is only used from one goroutine.
type postPlan struct {
	input    service.CreatePostInput
	likers   []string
	comments []commentPlan
}

type commentPlan struct {
	author  string
	text    string
	likers  []string
	replies []replyPlan
}

type replyPlan struct {
	author string
	text   string
	likers []string
}

// Run seeds the feed and returns what was created.
func (s *Seeder) Run(ctx context.Context) (Summary, error) {
	plans := make([]postPlan, s.opts.Posts)
	for i := range plans {
		plans[i] = s.planPost()
	}

	var sum summaryCounter
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for _, plan := range plans {
		g.Go(func() error {
			return s.seedPost(ctx, plan, &sum)
		})
	}
	if err := g.Wait(); err != nil {
		return sum.snapshot(), err
	}

	out := sum.snapshot()
	slog.InfoContext(ctx, "seeded feed",
		slog.Int64("posts", out.Posts),
		slog.Int64("comments", out.Comments),
		slog.Int64("replies", out.Replies),
		slog.Int64("likes", out.Likes),
	)
	return out, nil
}

func (s *Seeder) planPost() postPlan {
	f := s.faker
	kind := models.PostKindLost
	verb := "Lost"
	if f.Bool() {
		kind = models.PostKindFound
		verb = "Found"
	}
	item := f.RandomString(items)
	place := f.RandomString(places)

	plan := postPlan{
		input: service.CreatePostInput{
			AuthorID: s.randomActor(),
			Kind:     kind,
			Title:    fmt.Sprintf("%s: %s %s near %s", verb, f.Color(), item, place),
			Content:  f.Paragraph(1, 3, 8, "\n"),
			Fields: map[string]string{
				"item":     item,
				"location": place,
				"date":     f.Date().Format("2006-01-02"),
			},
		},
		likers: s.randomActors(),
	}

	for i := f.Number(0, s.opts.MaxCommentsPerPost); i > 0; i-- {
		c := commentPlan{author: s.randomActor(), text: f.Sentence(f.Number(3, 15)), likers: s.randomActors()}
		for j := f.Number(0, s.opts.MaxRepliesPerThread); j > 0; j-- {
			c.replies = append(c.replies, replyPlan{
				author: s.randomActor(),
				text:   f.Sentence(f.Number(2, 10)),
				likers: s.randomActors(),
			})
		}
		plan.comments = append(plan.comments, c)
	}
	return plan
}

func (s *Seeder) seedPost(ctx context.Context, plan postPlan, sum *summaryCounter) error {
	post, err := s.svc.CreatePost(ctx, plan.input)
	if err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	sum.posts.Add(1)

	if err := s.like(ctx, post.ID, models.PostTarget(), plan.likers, sum); err != nil {
		return err
	}

	for _, cp := range plan.comments {
		comment, err := s.svc.AddComment(ctx, service.AddCommentInput{PostID: post.ID, AuthorID: cp.author, Text: cp.text})
		if err != nil {
			return fmt.Errorf("add comment to %s: %w", post.ID, err)
		}
		sum.comments.Add(1)
		if err := s.like(ctx, post.ID, models.CommentTarget(comment.ID), cp.likers, sum); err != nil {
			return err
		}

		for _, rp := range cp.replies {
			reply, err := s.svc.AddReply(ctx, service.AddReplyInput{
				PostID: post.ID, CommentID: comment.ID, AuthorID: rp.author, Text: rp.text,
			})
			if err != nil {
				return fmt.Errorf("add reply to %s/%s: %w", post.ID, comment.ID, err)
			}
			sum.replies.Add(1)
			if err := s.like(ctx, post.ID, models.ReplyTarget(comment.ID, reply.ID), rp.likers, sum); err != nil {
				return err
			}
		}
	}
	return nil
}

// like has every actor like target concurrently.
func (s *Seeder) like(ctx context.Context, postID string, target models.Target, actors []string, sum *summaryCounter) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, actor := range actors {
		g.Go(func() error {
			_, err := s.svc.ToggleLike(ctx, service.ToggleLikeInput{PostID: postID, Target: target.String(), ActorID: actor})
			if err != nil {
				return fmt.Errorf("like %s on %s: %w", target, postID, err)
			}
			sum.likes.Add(1)
			return nil
		})
	}
	return g.Wait()
}

func (s *Seeder) randomActor() string {
	return s.actors[s.faker.Number(0, len(s.actors)-1)]
}

// randomActors returns a random subset of distinct actors.
func (s *Seeder) randomActors() []string {
	n := s.faker.Number(0, len(s.actors)/2)
	picked := make([]string, len(s.actors))
	copy(picked, s.actors)
	s.faker.ShuffleAnySlice(picked)
	return picked[:n]
}

type summaryCounter struct {
	posts, comments, replies, likes atomic.Int64
}

func (c *summaryCounter) snapshot() Summary {
	return Summary{
		Posts:    c.posts.Load(),
		Comments: c.comments.Load(),
		Replies:  c.replies.Load(),
		Likes:    c.likes.Load(),
	}
}
