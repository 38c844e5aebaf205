// Package redisconn wires a single shared *redis.Client for the durable
// game store, the event stream, and the connection manager's outbox and
// presence bookkeeping. It also carries the one distributed-lock helper
// all three need to serialize a room's snapshot writes across process
// restarts.
package redisconn

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// New dials Redis using a standard redis:// URL and verifies the
// connection with a PING, the same connect-then-verify shape the name
// service uses for Postgres.
func New(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redisconn: parse url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redisconn: ping: %w", err)
	}
	return client, nil
}

// Lock is a held `SET NX PX` mutual-exclusion lock on one key. Release is
// a best-effort compare-and-delete: it only removes the key if the token
// still matches, so a lock that outlived its TTL and was reacquired by
// someone else is never stolen back.
type Lock struct {
	client *redis.Client
	key    string
	token  string
}

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// AcquireLock attempts to take the named lock for ttl. It does not retry;
// callers that need to wait should loop with their own backoff.
func AcquireLock(ctx context.Context, client *redis.Client, name string, ttl time.Duration) (*Lock, bool, error) {
	key := "lock:" + name
	token := uuid.NewString()
	acquired, err := client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redisconn: acquire lock %s: %w", name, err)
	}
	if !acquired {
		return nil, false, nil
	}
	return &Lock{client: client, key: key, token: token}, true, nil
}

// Release drops the lock if this Lock still owns it.
func (l *Lock) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err()
}
