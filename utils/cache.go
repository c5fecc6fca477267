package utils

import (
	"context"
	"time"

	"metisconnect/config"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

var (
	// PaymentCacheClient holds authorization handles across redirects.
	PaymentCacheClient *redis.Client
)

// InitPaymentCache connects the Redis client used for payment handles. A
// failed ping is logged, not fatal: the caller falls back to memory.
func InitPaymentCache() error {
	PaymentCacheClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisPaymentDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := PaymentCacheClient.Ping(ctx).Err(); err != nil {
		GetLogger().Warn("Failed to connect to Redis (Payment Cache)", zap.Error(err))
		_ = PaymentCacheClient.Close()
		PaymentCacheClient = nil
		return err
	}
	return nil
}

// GetPaymentCacheClient returns the payment handle client, nil when Redis
// is unavailable.
func GetPaymentCacheClient() *redis.Client {
	return PaymentCacheClient
}
