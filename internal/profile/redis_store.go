package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const maxTxRetries = 10

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// RedisStore keeps one JSON document per identity key. Updates use
// WATCH/MULTI so a concurrent writer on the same key forces a re-read.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "profile:",
	}
}

func (r *RedisStore) key(identityKey string) string {
	return r.prefix + identityKey
}

func (r *RedisStore) Get(ctx context.Context, identityKey string) (*Profile, error) {
	return r.load(ctx, r.client, identityKey)
}

func (r *RedisStore) Ensure(ctx context.Context, p Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("profile: failed to marshal: %w", err)
	}
	return r.client.SetNX(ctx, r.key(p.IdentityKey), data, 0).Err()
}

func (r *RedisStore) Update(ctx context.Context, identityKey string, fn func(current *Profile) Profile) (Profile, error) {
	key := r.key(identityKey)

	var result Profile
	txf := func(tx *redis.Tx) error {
		current, err := r.load(ctx, tx, identityKey)
		if err != nil {
			return err
		}

		next := fn(current)
		next.IdentityKey = identityKey

		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("profile: failed to marshal: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		if err != nil {
			return err
		}
		result = next
		return nil
	}

	for i := 0; i < maxTxRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return Profile{}, err
		}
		return result, nil
	}
	return Profile{}, fmt.Errorf("profile: too much contention on %s", identityKey)
}

func (r *RedisStore) load(ctx context.Context, c getter, identityKey string) (*Profile, error) {
	val, err := c.Get(ctx, r.key(identityKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var p Profile
	if err := json.Unmarshal(val, &p); err != nil {
		return nil, fmt.Errorf("profile: failed to unmarshal: %w", err)
	}
	return &p, nil
}
