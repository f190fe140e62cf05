// Package redis Redis 缓存实现
package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	"meals-admin/internal/shared/cache"

	"github.com/redis/go-redis/v9"
)

// Store Redis 缓存存储
type Store struct {
	client     *redis.Client
	sessionTTL time.Duration
	mealTTL    time.Duration
}

// Option 配置 Store 的可选项
type Option func(*Store)

// WithSessionTTL 设置会话键的过期时间（通常等于 refresh token 生命周期）
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Store) { s.sessionTTL = ttl }
}

// WithMealTTL 设置菜谱缓存键的过期时间
func WithMealTTL(ttl time.Duration) Option {
	return func(s *Store) { s.mealTTL = ttl }
}

// NewStoreFromURL 从 URL 创建 Redis 缓存实例
func NewStoreFromURL(redisURL string, opts ...Option) (*Store, error) {
	ropts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(ropts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Printf("[Redis/Cache] Connected to %s", ropts.Addr)
	return NewStoreFromClient(client, opts...), nil
}

// NewStoreFromClient 从现有 Redis 客户端创建缓存实例
func NewStoreFromClient(client *redis.Client, opts ...Option) *Store {
	s := &Store{
		client:     client,
		sessionTTL: cache.TTLSession,
		mealTTL:    cache.TTLMeal,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close 关闭 Redis 连接
func (s *Store) Close() error {
	return s.client.Close()
}

// Client 返回底层 Redis 客户端
func (s *Store) Client() *redis.Client {
	return s.client
}
