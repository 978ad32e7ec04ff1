package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sarvcast/coinsvc/internal/config"
	"github.com/sarvcast/coinsvc/internal/model"
)

const balanceTTL = 5 * time.Minute

// BalanceCache is a read-through cache for balance lookups. Every
// balance-affecting write invalidates the user's key; a cold or unreachable
// cache degrades to database reads.
type BalanceCache struct {
	client *redis.Client
}

func New(cfg config.RedisConfig) (*BalanceCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &BalanceCache{client: client}, nil
}

func (c *BalanceCache) Close() error {
	return c.client.Close()
}

func balanceKey(userID int64) string {
	return "coins:balance:" + strconv.FormatInt(userID, 10)
}

func (c *BalanceCache) GetBalance(ctx context.Context, userID int64) (int64, error) {
	val, err := c.client.Get(ctx, balanceKey(userID)).Result()
	if err == redis.Nil {
		return 0, model.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(val, 10, 64)
}

func (c *BalanceCache) SetBalance(ctx context.Context, userID int64, balance int64) error {
	return c.client.Set(ctx, balanceKey(userID), balance, balanceTTL).Err()
}

func (c *BalanceCache) InvalidateBalance(ctx context.Context, userID int64) error {
	return c.client.Del(ctx, balanceKey(userID)).Err()
}
