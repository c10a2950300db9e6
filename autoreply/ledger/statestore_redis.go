package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisStateKey = "autoreply/cooldown"

// state is refreshed on every commit; the TTL only reaps keys from
// decommissioned deployments
const redisStateTTL = 48 * time.Hour

const maxTxRetries = 5

// RedisStateStore persists cooldown state as a JSON blob under a single
// key. Update runs as an optimistic WATCH/MULTI transaction so concurrent
// commits from multiple workers serialize.
type RedisStateStore struct {
	Client *redis.Client
}

func NewRedisStateStore(redisURL string) (*RedisStateStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	_, err = rdb.Ping(context.TODO()).Result()
	if err != nil {
		return nil, err
	}
	return &RedisStateStore{Client: rdb}, nil
}

func (s *RedisStateStore) Get(ctx context.Context) (State, error) {
	raw, err := s.Client.Get(ctx, redisStateKey).Bytes()
	if err == redis.Nil {
		return State{}, nil
	} else if err != nil {
		return State{}, err
	}
	return decodeState(raw)
}

func (s *RedisStateStore) Update(ctx context.Context, fn func(State) (State, error)) error {
	txf := func(tx *redis.Tx) error {
		var st State
		raw, err := tx.Get(ctx, redisStateKey).Bytes()
		if err != nil && err != redis.Nil {
			return err
		}
		if err == nil {
			st, err = decodeState(raw)
			if err != nil {
				return err
			}
		}
		next, err := fn(st)
		if err != nil {
			return err
		}
		out, err := json.Marshal(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, redisStateKey, out, redisStateTTL)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.Client.Watch(ctx, txf, redisStateKey)
		if err == redis.TxFailedErr {
			// another worker won the race; reload and retry
			continue
		}
		return err
	}
	return fmt.Errorf("cooldown state update: too many transaction conflicts")
}
