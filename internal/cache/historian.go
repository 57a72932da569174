// Package cache archives session action timelines in Redis. The timeline
// is an append-only audit trail; gameplay never reads it back, so every
// write is fire-and-forget from the session's point of view.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MinecAnton209/durak-online-sub001/internal/game"
)

// historyTTL keeps finished-session timelines around for a week before
// Redis reclaims them.
const historyTTL = 7 * 24 * time.Hour

// Historian persists one list per session under actions:<session-id>.
type Historian struct {
	client *redis.Client
}

func NewHistorian(client *redis.Client) *Historian {
	return &Historian{client: client}
}

// Connect dials Redis and verifies the connection.
func Connect(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// Record appends one action to the session's timeline.
func (h *Historian) Record(ctx context.Context, rec game.ActionRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal action record: %w", err)
	}
	key := fmt.Sprintf("actions:%s", rec.SessionID)

	pipe := h.client.Pipeline()
	pipe.RPush(ctx, key, payload)
	pipe.Expire(ctx, key, historyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append action record: %w", err)
	}
	return nil
}

// Timeline reads a session's full action history, oldest first.
func (h *Historian) Timeline(ctx context.Context, sessionID string) ([]game.ActionRecord, error) {
	raw, err := h.client.LRange(ctx, fmt.Sprintf("actions:%s", sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read action timeline: %w", err)
	}
	out := make([]game.ActionRecord, 0, len(raw))
	for _, item := range raw {
		var rec game.ActionRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("decode action record: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}
