package utils

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/compoundhabits/habits/config"
)

// NewRedis returns a Redis client for the configured endpoint, or nil when Redis is disabled.
// An unreachable server is logged and the client is still returned; callers fall back per call.
func NewRedis(cfg config.AppConfig) *redis.Client {
	if !cfg.RedisEnabled() {
		return nil
	}
	rc := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.RedisHost, strconv.Itoa(cfg.RedisPort)),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		Sugar.Warnf("redis ping %s failed: %v", rc.Options().Addr, err)
	}
	return rc
}
