package cache

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// Redis compartilha o cache entre instâncias. Falhas do Redis viram cache miss.
type Redis struct {
	client *redis.Client
}

func NewRedis(addr, password string, db int) *Redis {
	return &Redis{client: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logrus.WithError(err).WithField("key", key).Warn("cache: redis get")
		}
		return nil, false
	}
	return b, true
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("cache: redis set")
	}
}

func (r *Redis) Generation(ctx context.Context, namespace string) int64 {
	n, err := r.client.Get(ctx, genKey(namespace)).Int64()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logrus.WithError(err).WithField("namespace", namespace).Warn("cache: redis generation")
		}
		return 0
	}
	return n
}

func (r *Redis) Bump(ctx context.Context, namespace string) {
	if err := r.client.Incr(ctx, genKey(namespace)).Err(); err != nil {
		logrus.WithError(err).WithField("namespace", namespace).Warn("cache: redis bump")
	}
}

func genKey(namespace string) string {
	return "gen:" + namespace
}
