package seenstore

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const redisSeenKey = "autoreply/processed"

// RedisSeenStore keeps the processed set in a redis set.
type RedisSeenStore struct {
	Client *redis.Client
}

func NewRedisSeenStore(redisURL string) (*RedisSeenStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	_, err = rdb.Ping(context.TODO()).Result()
	if err != nil {
		return nil, err
	}
	return &RedisSeenStore{Client: rdb}, nil
}

func (s *RedisSeenStore) IsSeen(ctx context.Context, id string) (bool, error) {
	return s.Client.SIsMember(ctx, redisSeenKey, id).Result()
}

func (s *RedisSeenStore) MarkSeen(ctx context.Context, id string) error {
	return s.Client.SAdd(ctx, redisSeenKey, id).Err()
}
