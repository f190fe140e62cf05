// Package redis 会话令牌缓存操作
package redis

import (
	"context"
	"errors"

	"meals-admin/internal/shared/cache"

	"github.com/redis/go-redis/v9"
)

// SetTokens 覆盖写入令牌对
//
// refreshToken 为空串时只写 access token，已存储的 refresh token 原样保留
// （机会式轮换：刷新周期里 refresh token 未到续期阈值时不换新）。
func (s *Store) SetTokens(ctx context.Context, login, accessToken, refreshToken string) error {
	pipe := s.client.Pipeline()
	pipe.Set(ctx, cache.KeyAccessToken+login, accessToken, s.sessionTTL)
	if refreshToken != "" {
		pipe.Set(ctx, cache.KeyRefreshToken+login, refreshToken, s.sessionTTL)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// GetAccessToken 返回存储的 access token，"" 表示会话不存在
func (s *Store) GetAccessToken(ctx context.Context, login string) (string, error) {
	return s.getToken(ctx, cache.KeyAccessToken+login)
}

// GetRefreshToken 返回存储的 refresh token，"" 表示会话已登出
func (s *Store) GetRefreshToken(ctx context.Context, login string) (string, error) {
	return s.getToken(ctx, cache.KeyRefreshToken+login)
}

// UnsetTokens 吊销会话：删除两个键，重复调用不是错误
func (s *Store) UnsetTokens(ctx context.Context, login string) error {
	return s.client.Del(ctx, cache.KeyAccessToken+login, cache.KeyRefreshToken+login).Err()
}

func (s *Store) getToken(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}
	return val, nil
}
