package wizard

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"seo-offers/internal/common/errors"
	"seo-offers/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "wizard:session:"
	lockKeyPrefix    = "wizard:submit:"
)

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SessionStore keeps wizard sessions in Redis with a sliding TTL.
type SessionStore struct {
	client  redis.Cmdable
	ttl     time.Duration
	lockTTL time.Duration
}

func NewSessionStore(client redis.Cmdable, ttl, lockTTL time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	return &SessionStore{client: client, ttl: ttl, lockTTL: lockTTL}
}

func sessionKey(id string) string { return sessionKeyPrefix + id }
func lockKey(id string) string    { return lockKeyPrefix + id }

// Save writes the session and refreshes its TTL.
func (s *SessionStore) Save(ctx context.Context, st *models.WizardState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal wizard session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(st.SessionID), data, s.ttl).Err(); err != nil {
		return errors.NewUpstreamError("redis", err)
	}
	return nil
}

// Load reads a session. A missing or expired key is SESSION_NOT_FOUND.
func (s *SessionStore) Load(ctx context.Context, id string) (*models.WizardState, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return nil, errors.NewSessionNotFoundError(id)
		}
		return nil, errors.NewUpstreamError("redis", err)
	}

	var st models.WizardState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode wizard session %s: %w", id, err)
	}
	return &st, nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return errors.NewUpstreamError("redis", err)
	}
	return nil
}

// AcquireSubmitLock takes the per-session submit lock. The returned release
// function is a no-op once the lock has expired and been taken by someone else.
func (s *SessionStore) AcquireSubmitLock(ctx context.Context, id string) (func(context.Context) error, error) {
	token := uuid.NewString()
	ok, err := s.client.SetNX(ctx, lockKey(id), token, s.lockTTL).Result()
	if err != nil {
		return nil, errors.NewUpstreamError("redis", err)
	}
	if !ok {
		return nil, errors.NewSubmissionInFlightError(id)
	}

	release := func(ctx context.Context) error {
		return releaseScript.Run(ctx, s.client, []string{lockKey(id)}, token).Err()
	}
	return release, nil
}
