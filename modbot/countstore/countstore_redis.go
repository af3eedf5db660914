package countstore

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"
)

var redisCounterKey = "gardien/" + AcceptanceNumber

type RedisCountStore struct {
	Client *redis.Client
	Logger *slog.Logger
}

func NewRedisCountStore(redisURL string, logger *slog.Logger) (*RedisCountStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(context.TODO()).Result()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	rcs := RedisCountStore{
		Client: rdb,
		Logger: logger.With("store", "redis"),
	}
	return &rcs, nil
}

func (s *RedisCountStore) Load(ctx context.Context) (State, error) {
	raw, err := s.Client.Get(ctx, redisCounterKey).Result()
	if errors.Is(err, redis.Nil) {
		s.Logger.Info("no pre-existing counter in redis, creating with default values")
		return State{}, s.Save(ctx, State{})
	} else if err != nil {
		return State{}, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		s.Logger.Error("invalid counter value in redis, resetting", "value", raw)
		return State{}, s.Save(ctx, State{})
	}
	return State{AcceptanceNumber: n}, nil
}

func (s *RedisCountStore) Save(ctx context.Context, state State) error {
	// no expiration for the counter
	return s.Client.Set(ctx, redisCounterKey, state.AcceptanceNumber, 0).Err()
}

// INCR is atomic on the server side, so no client-side locking is needed.
func (s *RedisCountStore) Increment(ctx context.Context) (int, error) {
	n, err := s.Client.Incr(ctx, redisCounterKey).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
