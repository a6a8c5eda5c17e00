// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mtgbuilder/tabletop/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// publishTimeout bounds each background publish.
const publishTimeout = 2 * time.Second

// ActionRecord is the message published for each applied action.
type ActionRecord struct {
	GameCode       string     `json:"game_code"`
	ActionID       uuid.UUID  `json:"action_id"`
	PlayerID       uuid.UUID  `json:"player_id"`
	ActionType     string     `json:"action_type"`
	CardInstanceID *uuid.UUID `json:"card_instance_id,omitempty"`
	FromZone       string     `json:"from_zone,omitempty"`
	ToZone         string     `json:"to_zone,omitempty"`
	Details        string     `json:"details,omitempty"`
	Timestamp      int64      `json:"timestamp"`
}

// Connect opens a Redis client and pings it.
func Connect(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// ActionPublisher fans applied actions out on Redis pub/sub, one channel per
// room ("<prefix>:<game_code>"). Nothing is retained: subscribers that are
// not listening miss the message.
type ActionPublisher struct {
	rdb    *redis.Client
	prefix string
	logger *logrus.Logger
}

// NewActionPublisher returns a publisher. A nil client yields a publisher
// that drops everything, which keeps Redis optional.
func NewActionPublisher(rdb *redis.Client, prefix string, logger *logrus.Logger) *ActionPublisher {
	return &ActionPublisher{rdb: rdb, prefix: prefix, logger: logger}
}

// Channel is the pub/sub channel for a room.
func (p *ActionPublisher) Channel(code string) string {
	return p.prefix + ":" + code
}

// PublishAction sends the action in the background and returns immediately.
func (p *ActionPublisher) PublishAction(code string, action models.GameAction) {
	if p == nil || p.rdb == nil {
		return
	}
	rec := ActionRecord{
		GameCode:       code,
		ActionID:       action.ID,
		PlayerID:       action.PlayerID,
		ActionType:     action.Type,
		CardInstanceID: action.CardInstanceID,
		FromZone:       action.FromZone,
		ToZone:         action.ToZone,
		Details:        action.Details,
		Timestamp:      action.Timestamp.UnixMilli(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := p.Publish(ctx, rec); err != nil {
			p.logger.WithFields(logrus.Fields{
				"game_code": code,
				"action":    rec.ActionType,
			}).Warnf("failed to publish action: %v", err)
		}
	}()
}

// Publish serializes rec and publishes it synchronously.
func (p *ActionPublisher) Publish(ctx context.Context, rec ActionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal ActionRecord: %w", err)
	}
	channel := p.Channel(rec.GameCode)
	if err := p.rdb.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to Redis channel '%s': %w", channel, err)
	}
	return nil
}

// Subscribe listens on a room's channel. Callers must Close the returned
// subscription.
func (p *ActionPublisher) Subscribe(ctx context.Context, code string) *redis.PubSub {
	return p.rdb.Subscribe(ctx, p.Channel(code))
}
