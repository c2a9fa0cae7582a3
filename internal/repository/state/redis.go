package state

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"noor-storefront/internal/domain"

	"github.com/redis/go-redis/v9"
)

const redisPrefix = "storefront:"

type redisRepo struct {
	client *redis.Client
	logger *log.Logger
}

// DialRedis connects to Redis and verifies it answers a ping.
func DialRedis(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}

// NewRedis stores records under "storefront:<key>" without expiry.
func NewRedis(client *redis.Client, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &redisRepo{client: client, logger: logger}
}

func (r *redisRepo) Load(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, redisPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		r.logger.Printf("state redis: load key=%s error=%v", key, err)
		return nil, err
	}
	return val, nil
}

func (r *redisRepo) Save(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, redisPrefix+key, value, 0).Err(); err != nil {
		r.logger.Printf("state redis: save key=%s error=%v", key, err)
		return err
	}
	return nil
}

func (r *redisRepo) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, redisPrefix+key).Err()
}

func (r *redisRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
