package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"magnum_stars/internal/domain"
	"magnum_stars/internal/logger"

	redis "github.com/redis/go-redis/v9"
)

// UserCache is a read-through cache in front of the user store. It is never
// authoritative: every write path deletes the entry, and a miss or any Redis
// error falls back to the store (fail-open).
type UserCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// New connects to Redis and returns the cache. If addr is empty or the ping
// fails the client stays nil and every lookup is a miss, keeping the service
// available without Redis.
func New(addr, password string, db int, ttl time.Duration) *UserCache {
	c := &UserCache{prefix: "user:", ttl: ttl}
	if addr == "" {
		return c
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, user cache disabled", "error", err)
		return c
	}

	c.rdb = rdb
	logger.Info("user cache connected", "addr", addr, "ttl", ttl.String())
	return c
}

// Enabled reports whether a Redis client is attached.
func (c *UserCache) Enabled() bool {
	return c.rdb != nil
}

// Client exposes the underlying Redis client for collaborators that share the
// connection (rate limiting middleware).
func (c *UserCache) Client() *redis.Client {
	return c.rdb
}

func (c *UserCache) key(userID int64) string {
	return c.prefix + strconv.FormatInt(userID, 10)
}

// Get returns the cached snapshot for a user, or (nil, false) on miss.
func (c *UserCache) Get(ctx context.Context, userID int64) (*domain.User, bool) {
	if c.rdb == nil {
		return nil, false
	}

	raw, err := c.rdb.Get(ctx, c.key(userID)).Bytes()
	if err != nil {
		return nil, false
	}

	var u domain.User
	if err := json.Unmarshal(raw, &u); err != nil {
		// poisoned entry, drop it
		c.Delete(ctx, userID)
		return nil, false
	}
	return &u, true
}

// Set stores a snapshot with the configured TTL.
func (c *UserCache) Set(ctx context.Context, u *domain.User) {
	if c.rdb == nil || u == nil {
		return
	}

	raw, err := json.Marshal(u)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, c.key(u.ID), raw, c.ttl).Err(); err != nil {
		logger.Warn("user cache set failed", "user_id", u.ID, "error", err)
	}
}

// Delete drops the entry so the next read hits the store. Called after every
// successful write to the user.
func (c *UserCache) Delete(ctx context.Context, userID int64) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, c.key(userID)).Err(); err != nil {
		logger.Warn("user cache delete failed", "user_id", userID, "error", err)
	}
}
