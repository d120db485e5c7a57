package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-bot/internal/entity"
)

// sessionsKey is a set holding every mirrored session key, so List does not need SCAN.
const sessionsKey = "sessions"

type SessionRepository interface {
	Save(ctx context.Context, view entity.SessionView) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]entity.SessionView, error)
}

type dbSession struct {
	client *redis.Client
}

func NewSessionRepository(client *redis.Client) SessionRepository {
	return &dbSession{
		client: client,
	}
}

func sessionKey(key string) string {
	return "session:" + key
}

func (that *dbSession) Save(ctx context.Context, view entity.SessionView) error {
	viewJSON, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("could not marshal session: %w", err)
	}

	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(view.Key), viewJSON, 0)
		pipe.SAdd(ctx, sessionsKey, view.Key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set session: %w", err)
	}

	return nil
}

func (that *dbSession) Delete(ctx context.Context, key string) error {
	_, err := that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(key))
		pipe.SRem(ctx, sessionsKey, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

// List returns every mirrored session. Set members whose snapshot has gone are dropped from the set.
func (that *dbSession) List(ctx context.Context) ([]entity.SessionView, error) {
	keys, err := that.client.SMembers(ctx, sessionsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	views := make([]entity.SessionView, 0, len(keys))
	for _, key := range keys {
		view, err := that.get(ctx, key)
		if errors.Is(err, redis.Nil) {
			if err = that.client.SRem(ctx, sessionsKey, key).Err(); err != nil {
				return nil, fmt.Errorf("failed to drop stale session %q: %w", key, err)
			}
			continue
		}
		if err != nil {
			return nil, err
		}

		views = append(views, view)
	}

	return views, nil
}

func (that *dbSession) get(ctx context.Context, key string) (entity.SessionView, error) {
	response, err := that.client.Get(ctx, sessionKey(key)).Result()
	if err != nil {
		return entity.SessionView{}, fmt.Errorf("failed to get session %q: %w", key, err)
	}

	var view entity.SessionView
	if err = json.Unmarshal([]byte(response), &view); err != nil {
		return entity.SessionView{}, fmt.Errorf("failed to unmarshal session %q: %w", key, err)
	}

	return view, nil
}
