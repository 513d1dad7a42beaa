package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
)

const DefaultSessionTTL = 24 * time.Hour

var ErrSessionNotFound = errors.New("session not found")

// SessionRepository keeps the latest snapshot of each client's session.
type SessionRepository interface {
	Save(ctx context.Context, clientID string, session entity.Session) error
	GetByClientID(ctx context.Context, clientID string) (*entity.Session, error)
	DeleteByClientID(ctx context.Context, clientID string) error
}

type dbSession struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionRepository(client *redis.Client, ttl time.Duration) SessionRepository {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	return &dbSession{
		client: client,
		ttl:    ttl,
	}
}

func sessionKey(clientID string) string {
	return "session:" + clientID
}

func (that *dbSession) Save(ctx context.Context, clientID string, session entity.Session) error {
	sessionJSON, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("could not marshal session: %w", err)
	}

	if err = that.client.Set(ctx, sessionKey(clientID), sessionJSON, that.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set session: %w", err)
	}

	return nil
}

func (that *dbSession) GetByClientID(ctx context.Context, clientID string) (*entity.Session, error) {
	response, err := that.client.Get(ctx, sessionKey(clientID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get session by client id: %w", err)
	}

	var session entity.Session
	if err = json.Unmarshal([]byte(response), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &session, nil
}

func (that *dbSession) DeleteByClientID(ctx context.Context, clientID string) error {
	if err := that.client.Del(ctx, sessionKey(clientID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session by client id: %w", err)
	}

	return nil
}
