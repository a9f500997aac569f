// Package notifications publishes interaction events into Redis channels.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"

	"campusfeed/internal/models"

	"github.com/redis/go-redis/v9"
)

const postChannelPattern = "interactions:post:*"

// PostChannel returns the channel carrying events for one post.
func PostChannel(postID string) string {
	return fmt.Sprintf("interactions:post:%s", postID)
}

// Notifier publishes and subscribes to interaction events.
// A Notifier without a Redis client is a no-op.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishInteraction sends the event to its post's channel.
func (n *Notifier) PublishInteraction(ctx context.Context, event models.InteractionEvent) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, PostChannel(event.PostID), payload).Err()
}

// Subscribe listens on one post's channel, or on every post when postID is empty,
// and calls onEvent for each decoded event until ctx is done.
func (n *Notifier) Subscribe(
	ctx context.Context, postID string, onEvent func(models.InteractionEvent),
) error {
	if n == nil || n.rdb == nil {
		return nil
	}

	var sub *redis.PubSub
	if postID == "" {
		sub = n.rdb.PSubscribe(ctx, postChannelPattern)
	} else {
		sub = n.rdb.Subscribe(ctx, PostChannel(postID))
	}
	// Wait for the subscription confirmation so no publish is missed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event models.InteractionEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					slog.WarnContext(ctx, "dropping malformed interaction event",
						slog.String("channel", msg.Channel),
						slog.String("error", err.Error()),
					)
					continue
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							slog.ErrorContext(ctx, "panic in interaction subscriber",
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())),
							)
						}
					}()
					onEvent(event)
				}()
			}
		}
	}()

	return nil
}
