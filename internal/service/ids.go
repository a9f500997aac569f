package service

import (
	"campusfeed/internal/models"

	"github.com/google/uuid"
)

// IDGenerator allocates durable identities for new posts, comments and replies.
type IDGenerator interface {
	NewID(kind models.TargetKind) string
}

// UUIDGenerator issues time-ordered UUIDv7 identifiers.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(models.TargetKind) string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
