package config

import (
	"fmt"
	"regexp"
	"strings"
)

// buildMongoURL 构建 MongoDB 连接字符串
// URI 字段优先；有用户名/密码时带凭据
func buildMongoURL(db DatabaseConfig) string {
	if db.URI != "" {
		return db.URI
	}
	if db.User != "" && db.Password != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s:%d", db.User, db.Password, db.Host, db.Port)
	}
	return fmt.Sprintf("mongodb://%s:%d", db.Host, db.Port)
}

// buildRedisURL 构建 Redis 连接字符串
// URL 字段非空时直接使用；否则从 host/port/db/password 构建
func buildRedisURL(redis RedisConfig) string {
	if redis.URL != "" {
		return redis.URL
	}
	if redis.Password != "" {
		return fmt.Sprintf("redis://:%s@%s:%d/%d", redis.Password, redis.Host, redis.Port, redis.DB)
	}
	return fmt.Sprintf("redis://%s:%d/%d", redis.Host, redis.Port, redis.DB)
}

// maskPassword 隐藏密码
func maskPassword(url string) string {
	re := regexp.MustCompile(`(://[^:/]*:)([^@]+)(@)`)
	return re.ReplaceAllString(url, "${1}***${3}")
}

// parseEnv 解析环境字符串
func parseEnv(env string) Environment {
	switch strings.ToLower(env) {
	case "test":
		return EnvTest
	case "prod", "production":
		return EnvProduction
	default:
		return EnvDevelopment
	}
}

// IsTest 是否为测试环境
func (c *Config) IsTest() bool {
	return c.Env == EnvTest
}

// String 返回配置摘要（隐藏密码）
func (c *Config) String() string {
	return fmt.Sprintf("Config{Env: %s, DB: %s/%s, Redis: %s}",
		c.Env, maskPassword(c.DatabaseURL), c.DatabaseDB, maskPassword(c.RedisURL))
}
