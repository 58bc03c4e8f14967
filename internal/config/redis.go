package config

// Redis backs the scan rate limiter and the display/card response cache.
// Neither is required for correctness: when Redis is unreachable at
// startup NewRedisClient returns nil and both middlewares pass requests
// straight through.

import (
	"context"
	"crypto/tls"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions builds client options from the environment:
//   REDIS_ADDR            – host:port (default localhost:6379)
//   REDIS_HOST/REDIS_PORT – take precedence over REDIS_ADDR when both set
//   REDIS_PASSWORD        – optional password
//   REDIS_DB              – database number (default 0)
//   REDIS_TLS             – enable TLS
//   REDIS_TLS_INSECURE    – skip certificate verification
func RedisOptions() *redis.Options {
	addr := envStr("REDIS_ADDR", "localhost:6379")
	if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
		addr = host + ":" + port
	}
	var tlsConf *tls.Config
	if envBool("REDIS_TLS", false) {
		tlsConf = &tls.Config{InsecureSkipVerify: envBool("REDIS_TLS_INSECURE", false)}
	}
	return &redis.Options{
		Addr:      addr,
		Password:  os.Getenv("REDIS_PASSWORD"),
		DB:        envInt("REDIS_DB", 0),
		TLSConfig: tlsConf,
	}
}

// NewRedisClient connects using RedisOptions and pings the server with a
// short timeout.  It returns nil when the server cannot be reached.
func NewRedisClient(ctx context.Context) *redis.Client {
	opts := RedisOptions()
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Printf("redis: %s unreachable, caching and rate limiting disabled: %v", opts.Addr, err)
		_ = client.Close()
		return nil
	}
	return client
}
