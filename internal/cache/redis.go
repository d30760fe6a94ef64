package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/mintclub-router/internal/constants"
	"github.com/aman-zulfiqar/mintclub-router/internal/models"
	"github.com/aman-zulfiqar/mintclub-router/internal/storage"
)

// PriceTTL bounds how long a cached USD price is served.
const PriceTTL = time.Minute

// RedisCache implements storage.SwapCache on Redis.
type RedisCache struct {
	client *redis.Client
	logger *logrus.Logger
}

var _ storage.SwapCache = (*RedisCache)(nil)

// NewRedisCache connects to addr and verifies the connection.
func NewRedisCache(ctx context.Context, addr string, logger *logrus.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	return NewRedisCacheFromClient(client, logger), nil
}

func NewRedisCacheFromClient(client *redis.Client, logger *logrus.Logger) *RedisCache {
	if logger == nil {
		logger = logrus.New()
	}
	return &RedisCache{client: client, logger: logger}
}

// Client exposes the underlying connection for stores sharing it.
func (r *RedisCache) Client() *redis.Client { return r.client }

func (r *RedisCache) AddRecentSwap(ctx context.Context, swap *models.SwapEvent) error {
	data, err := json.Marshal(swap)
	if err != nil {
		return fmt.Errorf("marshal swap: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, constants.RedisKeyRecentSwaps, data)
	pipe.LTrim(ctx, constants.RedisKeyRecentSwaps, 0, constants.MaxRecentSwaps-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("add recent swap: %w", err)
	}
	return nil
}

func (r *RedisCache) GetRecentSwaps(ctx context.Context, limit int64) ([]*models.SwapEvent, error) {
	if limit <= 0 || limit > constants.MaxRecentSwaps {
		limit = constants.MaxRecentSwaps
	}

	vals, err := r.client.LRange(ctx, constants.RedisKeyRecentSwaps, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("get recent swaps: %w", err)
	}

	out := make([]*models.SwapEvent, 0, len(vals))
	for _, v := range vals {
		var s models.SwapEvent
		if err := json.Unmarshal([]byte(v), &s); err != nil {
			r.logger.WithError(err).Warn("skipping malformed recent swap")
			continue
		}
		out = append(out, &s)
	}
	return out, nil
}

func (r *RedisCache) UpdatePrice(ctx context.Context, token string, price float64) error {
	val := strconv.FormatFloat(price, 'f', -1, 64)
	if err := r.client.Set(ctx, constants.RedisKeyPricePrefix+token, val, PriceTTL).Err(); err != nil {
		return fmt.Errorf("update price: %w", err)
	}
	return nil
}

func (r *RedisCache) GetPrice(ctx context.Context, token string) (float64, error) {
	val, err := r.client.Get(ctx, constants.RedisKeyPricePrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return 0, storage.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get price: %w", err)
	}
	price, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price: %w", err)
	}
	return price, nil
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
