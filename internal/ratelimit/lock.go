package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// Deletes the key only while it still carries the lease token.
const leaseReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

var (
	ErrLockNotConfigured = errors.New("lock_not_configured")
	ErrInvalidLockKey    = errors.New("invalid_lock_key")
	ErrInvalidLockTTL    = errors.New("invalid_lock_ttl")
	ErrLockHeld          = errors.New("lock_held")
)

// Locker hands out expiring leases on redis keys.
type Locker struct {
	client  *redis.Client
	release *redis.Script
}

// Lease is one holder's claim on a key. It expires on its own after the TTL.
type Lease struct {
	locker *Locker
	key    string
	token  string
}

func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{
		client:  client,
		release: redis.NewScript(leaseReleaseScript),
	}
}

// Acquire returns ErrLockHeld when another holder owns key.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	switch {
	case l == nil || l.client == nil:
		return nil, ErrLockNotConfigured
	case key == "":
		return nil, ErrInvalidLockKey
	case ttl <= 0:
		return nil, ErrInvalidLockTTL
	}

	lease := &Lease{locker: l, key: key, token: uuid.NewString()}
	ok, err := l.client.SetNX(ctx, key, lease.token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return lease, nil
}

// Release is a no-op on a nil lease or one that already expired.
func (ls *Lease) Release(ctx context.Context) error {
	if ls == nil || ls.locker == nil {
		return nil
	}
	return ls.locker.release.Run(ctx, ls.locker.client, []string{ls.key}, ls.token).Err()
}

func (ls *Lease) Key() string {
	if ls == nil {
		return ""
	}
	return ls.key
}
