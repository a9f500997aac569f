package store

import (
	"context"
	"errors"
	"fmt"

	"campusfeed/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoStore stores each post as one document in a MongoDB collection.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore creates a MongoStore on the "posts" collection of db.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection("posts")}
}

func (s *MongoStore) Create(ctx context.Context, post *models.Post) error {
	post.Version = InitialVersion
	if _, err := s.coll.InsertOne(ctx, post); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("create post %s: %w", post.ID, err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&post); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get post %s: %w", id, err)
	}
	return &post, nil
}

// Replace swaps the whole document only while its version still matches.
func (s *MongoStore) Replace(ctx context.Context, post *models.Post) error {
	staged := *post
	staged.Version = post.Version + 1

	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": post.ID, "version": post.Version}, &staged)
	if err != nil {
		return fmt.Errorf("replace post %s: %w", post.ID, err)
	}
	if res.MatchedCount == 0 {
		count, err := s.coll.CountDocuments(ctx, bson.M{"_id": post.ID})
		if err != nil {
			return fmt.Errorf("replace post %s: %w", post.ID, err)
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrVersionConflict
	}

	post.Version = staged.Version
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.coll.Database().Client().Ping(ctx, nil)
}
