package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"portfolio/internal/spotify"
)

// RefreshFunc performs one refresh_token grant.
type RefreshFunc func(ctx context.Context, refreshToken string) (spotify.Token, error)

// RefreshCoordinator decides how concurrent refreshes of the same refresh token interact.
type RefreshCoordinator interface {
	Do(ctx context.Context, refreshToken string, refresh RefreshFunc) (spotify.Token, error)
}

// IndependentRefresh lets every caller refresh on its own. Two requests racing on an
// expired token both hit the token endpoint.
type IndependentRefresh struct{}

// Do calls refresh directly.
func (IndependentRefresh) Do(ctx context.Context, refreshToken string, refresh RefreshFunc) (spotify.Token, error) {
	return refresh(ctx, refreshToken)
}

// LocalRefresh collapses concurrent refreshes of one refresh token inside this process.
type LocalRefresh struct {
	group singleflight.Group
}

// NewLocalRefresh creates a LocalRefresh.
func NewLocalRefresh() *LocalRefresh {
	return &LocalRefresh{}
}

// Do runs refresh once per refresh token among concurrent callers; all of them receive the
// same result. The shared refresh is detached from any single caller's cancellation, and
// each caller stops waiting when its own context ends.
func (l *LocalRefresh) Do(ctx context.Context, refreshToken string, refresh RefreshFunc) (spotify.Token, error) {
	shared := context.WithoutCancel(ctx)
	ch := l.group.DoChan(refreshKey(refreshToken), func() (any, error) {
		return refresh(shared, refreshToken)
	})

	select {
	case <-ctx.Done():
		return spotify.Token{}, fmt.Errorf("waiting for shared refresh: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return spotify.Token{}, res.Err
		}
		return res.Val.(spotify.Token), nil
	}
}

const (
	redisLockPrefix   = "spotify:refresh:lock:"
	redisResultPrefix = "spotify:refresh:result:"
)

// RedisRefresh collapses concurrent refreshes across instances. The first caller takes a
// lock keyed by the refresh token hash and publishes its result for a short time; others
// wait for that result instead of spending the refresh token again.
type RedisRefresh struct {
	client    *redis.Client
	logger    *slog.Logger
	lockTTL   time.Duration
	resultTTL time.Duration
	poll      time.Duration
	now       func() time.Time
}

// publishedRefresh is what the lock holder stores. The absolute expiry lets readers report
// the lifetime left at read time rather than at mint time.
type publishedRefresh struct {
	Token     spotify.Token `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// NewRedisRefresh creates a RedisRefresh.
func NewRedisRefresh(client *redis.Client, logger *slog.Logger) *RedisRefresh {
	return &RedisRefresh{
		client:    client,
		logger:    logger,
		lockTTL:   10 * time.Second,
		resultTTL: 30 * time.Second,
		poll:      100 * time.Millisecond,
		now:       time.Now,
	}
}

// Do refreshes at most once per refresh token within the lock window. If Redis is
// unreachable it falls back to a direct refresh.
func (c *RedisRefresh) Do(ctx context.Context, refreshToken string, refresh RefreshFunc) (spotify.Token, error) {
	key := refreshKey(refreshToken)
	lockKey := redisLockPrefix + key
	resultKey := redisResultPrefix + key

	if token, ok := c.cached(ctx, resultKey); ok {
		return token, nil
	}

	acquired, err := c.client.SetNX(ctx, lockKey, "1", c.lockTTL).Result()
	if err != nil {
		c.logger.Warn("refresh lock unavailable, refreshing directly", "error", err)
		return refresh(ctx, refreshToken)
	}

	if acquired {
		defer c.client.Del(context.WithoutCancel(ctx), lockKey)

		token, err := refresh(ctx, refreshToken)
		if err != nil {
			return spotify.Token{}, err
		}
		data, err := json.Marshal(publishedRefresh{
			Token:     token,
			ExpiresAt: c.now().Add(time.Duration(token.ExpiresIn) * time.Second),
		})
		if err == nil {
			err = c.client.Set(ctx, resultKey, data, c.resultTTL).Err()
		}
		if err != nil {
			c.logger.Warn("failed to publish refresh result", "error", err)
		}
		return token, nil
	}

	return c.wait(ctx, lockKey, resultKey, refreshToken, refresh)
}

// wait polls for the holder's result. A holder that fails publishes nothing and drops the
// lock, so a missing lock without a result means refreshing here.
func (c *RedisRefresh) wait(ctx context.Context, lockKey, resultKey, refreshToken string, refresh RefreshFunc) (spotify.Token, error) {
	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()
	deadline := time.NewTimer(c.lockTTL)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return spotify.Token{}, fmt.Errorf("waiting for concurrent refresh: %w", ctx.Err())
		case <-deadline.C:
			return refresh(ctx, refreshToken)
		case <-ticker.C:
			if token, ok := c.cached(ctx, resultKey); ok {
				return token, nil
			}
			held, err := c.client.Exists(ctx, lockKey).Result()
			if err != nil {
				c.logger.Warn("failed to check refresh lock", "error", err)
				continue
			}
			if held == 0 {
				if token, ok := c.cached(ctx, resultKey); ok {
					return token, nil
				}
				return refresh(ctx, refreshToken)
			}
		}
	}
}

func (c *RedisRefresh) cached(ctx context.Context, resultKey string) (spotify.Token, bool) {
	data, err := c.client.Get(ctx, resultKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("failed to read refresh result", "error", err)
		}
		return spotify.Token{}, false
	}
	var published publishedRefresh
	if err := json.Unmarshal(data, &published); err != nil {
		return spotify.Token{}, false
	}
	remaining := published.ExpiresAt.Sub(c.now()) / time.Second
	if remaining <= 0 {
		return spotify.Token{}, false
	}
	token := published.Token
	token.ExpiresIn = int64(remaining)
	return token, true
}

// refreshKey hashes the refresh token so it never appears in keys or logs.
func refreshKey(refreshToken string) string {
	sum := sha256.Sum256([]byte(refreshToken))
	return hex.EncodeToString(sum[:])
}
