package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

var configPaths = []string{
	"configs",
	"../configs",
	"../../configs",
	"../../../configs",
}

// Load 加载配置
// 1. 加载 .env.{env}（敏感信息 + APP_ENV）
// 2. 根据 APP_ENV 加载 configs/{env}.yaml
// 3. 构建最终配置
func Load() *Config {
	env := parseEnv(getEnv("APP_ENV", "dev"))
	loadEnvFiles(env)
	// .env 里也可能声明 APP_ENV，重新解析一次
	env = parseEnv(getEnv("APP_ENV", string(env)))

	yamlCfg := loadYAMLConfig(env)

	// 从环境变量获取敏感信息
	yamlCfg.Database.Password = getEnv("MONGO_PASSWORD", "")
	yamlCfg.Redis.Password = getEnv("REDIS_PASSWORD", "")

	cfg := &Config{
		Env:         env,
		DatabaseURL: buildMongoURL(yamlCfg.Database),
		DatabaseDB:  yamlCfg.Database.Name,
		RedisURL:    buildRedisURL(yamlCfg.Redis),
		APIPort:     yamlCfg.Server.Port,
		Auth: AuthConfig{
			JWTSecret:       getEnv("JWT_SECRET", ""),
			Pepper:          getEnv("PASSWORD_PEPPER", ""),
			AccessTokenTTL:  yamlCfg.Auth.AccessTokenTTL,
			RefreshTokenTTL: yamlCfg.Auth.RefreshTokenTTL,
			AdminLogin:      getEnv("ADMIN_LOGIN", ""),
			AdminEmail:      getEnv("ADMIN_EMAIL", ""),
			AdminPassword:   getEnv("ADMIN_PASSWORD", ""),
		},
		Cache: yamlCfg.Cache,
		Mail: MailConfig{
			Host:     yamlCfg.Mail.Host,
			Port:     yamlCfg.Mail.Port,
			From:     yamlCfg.Mail.From,
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
		},
	}

	cfg.validate()
	return cfg
}

// loadYAMLConfig 加载 YAML 配置文件
// 加载顺序：默认值 → common.yaml → {env}.yaml
func loadYAMLConfig(env Environment) *YAMLConfig {
	cfg := &YAMLConfig{
		Server:   ServerConfig{Port: "3000"},
		Database: DatabaseConfig{Host: "localhost", Port: 27017, Name: "meals_admin"},
		Redis:    RedisConfig{Host: "localhost", Port: 6379, DB: 0},
		Auth: AuthConfig{
			AccessTokenTTL:  10 * time.Minute,
			RefreshTokenTTL: 14 * 24 * time.Hour,
		},
		Cache: CacheConfig{
			SessionTTL: 14 * 24 * time.Hour,
			MealTTL:    time.Hour,
		},
		Mail: MailConfig{Host: "localhost", Port: 25, From: "no-reply@localhost"},
	}

	for _, base := range effectiveConfigPaths(env) {
		path := filepath.Join(base, "common.yaml")
		if data, err := os.ReadFile(path); err == nil {
			yaml.Unmarshal(data, cfg)
			break
		}
	}

	filename := fmt.Sprintf("%s.yaml", env)
	for _, base := range effectiveConfigPaths(env) {
		path := filepath.Join(base, filename)
		if data, err := os.ReadFile(path); err == nil {
			yaml.Unmarshal(data, cfg)
			break
		}
	}

	return cfg
}

// validate 填充关键默认值
func (c *Config) validate() {
	if c.APIPort == "" {
		c.APIPort = "3000"
	}
	if c.Auth.AccessTokenTTL == 0 {
		c.Auth.AccessTokenTTL = 10 * time.Minute
	}
	if c.Auth.RefreshTokenTTL == 0 {
		c.Auth.RefreshTokenTTL = 14 * 24 * time.Hour
	}
	if c.Cache.SessionTTL == 0 {
		// 会话键生命周期跟随 refresh token
		c.Cache.SessionTTL = c.Auth.RefreshTokenTTL
	}
	if c.Cache.MealTTL == 0 {
		c.Cache.MealTTL = time.Hour
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
