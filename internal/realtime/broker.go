// Package realtime fans notifications out to connected clients through
// Redis pub/sub.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Broker publishes per-user messages and subscribes to them.
type Broker interface {
	Publish(ctx context.Context, userID primitive.ObjectID, payload any) error
	// Subscribe delivers raw JSON messages for userID until ctx is done.
	// The returned channel is closed when the subscription ends.
	Subscribe(ctx context.Context, userID primitive.ObjectID) (<-chan []byte, error)
}

// Channel is the pub/sub channel of a user.
func Channel(userID primitive.ObjectID) string {
	return "notifications:" + userID.Hex()
}

type redisBroker struct {
	client redis.UniversalClient
	log    *zap.SugaredLogger
}

func NewRedisBroker(client redis.UniversalClient, log *zap.SugaredLogger) Broker {
	return &redisBroker{client: client, log: log}
}

func (b *redisBroker) Publish(ctx context.Context, userID primitive.ObjectID, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode realtime payload: %w", err)
	}
	return b.client.Publish(ctx, Channel(userID), raw).Err()
}

func (b *redisBroker) Subscribe(ctx context.Context, userID primitive.ObjectID) (<-chan []byte, error) {
	sub := b.client.Subscribe(ctx, Channel(userID))
	// Receive waits for the subscription confirmation.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", Channel(userID), err)
	}

	out := make(chan []byte, 16)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				default:
					// Slow reader, drop
					b.log.Debugw("dropping realtime message", "channel", msg.Channel)
				}
			}
		}
	}()
	return out, nil
}
