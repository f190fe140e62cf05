// Package config 统一配置管理
//
// 配置加载优先级（高→低）：
//  1. 环境变量（通过 .env 文件或 shell/systemd 注入）
//  2. YAML 配置文件（{env}.yaml，如 dev.yaml、test.yaml、prod.yaml）
//  3. 代码硬编码默认值
//
// 凭据单一数据源：
//
//	密码/密钥只存在 .env 文件中（YAML 中不存储任何密码）。
//	.env 文件同时被 Docker Compose（--env-file）、Go 应用（godotenv）、
//	systemd（EnvironmentFile=）共用，确保单一数据源。
//
// 环境：
//   - 开发: APP_ENV=dev → configs/dev.yaml + .env.dev
//   - 测试: APP_ENV=test → configs/test.yaml + .env.test
//   - 生产: APP_ENV=prod → /etc/meals-admin/prod.yaml + prod.env
package config

import "time"

// Environment 环境类型
type Environment string

const (
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test" // 测试环境（集成测试 + E2E 共用）
	EnvDevelopment Environment = "dev"
)

// YAMLConfig YAML 配置文件结构
type YAMLConfig struct {
	Server   ServerConfig   `yaml:"server"`   // HTTP 服务
	Database DatabaseConfig `yaml:"database"` // MongoDB
	Redis    RedisConfig    `yaml:"redis"`    // Redis（会话 + 内容缓存）
	Auth     AuthConfig     `yaml:"auth"`     // 认证
	Cache    CacheConfig    `yaml:"cache"`    // 缓存 TTL
	Mail     MailConfig     `yaml:"mail"`     // 激活邮件
}

type ServerConfig struct {
	Port string `yaml:"port"` // 监听端口
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"-"` // 只从 MONGO_PASSWORD 环境变量读取
	Name     string `yaml:"name"`
	URI      string `yaml:"uri"` // MongoDB 连接 URI（优先于 host/port，如 mongodb://localhost:27017）
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	DB       int    `yaml:"db"`
	Password string `yaml:"-"`   // 只从 REDIS_PASSWORD 环境变量读取
	URL      string `yaml:"url"` // 直接指定 URL（优先于 host/port/db）
}

// AuthConfig 认证配置
// 注意：JWTSecret/Pepper/Admin* 只从环境变量读取，不存储在 YAML 中
type AuthConfig struct {
	JWTSecret       string        `yaml:"-"` // 只从 JWT_SECRET 环境变量读取
	Pepper          string        `yaml:"-"` // 只从 PASSWORD_PEPPER 环境变量读取
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`  // 例如 "10m"
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"` // 例如 "336h"
	AdminLogin      string        `yaml:"-"` // 只从 ADMIN_LOGIN 环境变量读取
	AdminEmail      string        `yaml:"-"` // 只从 ADMIN_EMAIL 环境变量读取
	AdminPassword   string        `yaml:"-"` // 只从 ADMIN_PASSWORD 环境变量读取
}

// CacheConfig 缓存 TTL 配置
type CacheConfig struct {
	SessionTTL time.Duration `yaml:"session_ttl"` // 会话键 TTL（与 refresh token 生命周期对齐）
	MealTTL    time.Duration `yaml:"meal_ttl"`    // 内容缓存条目 TTL
}

// MailConfig 激活邮件配置
// 注意：SMTP 凭据只从环境变量读取（SMTP_USERNAME / SMTP_PASSWORD）
type MailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	From     string `yaml:"from"`
	Username string `yaml:"-"`
	Password string `yaml:"-"`
}

// Config 应用配置（最终使用的配置）
type Config struct {
	Env         Environment
	DatabaseURL string
	DatabaseDB  string // MongoDB 数据库名称
	RedisURL    string
	APIPort     string
	Auth        AuthConfig
	Cache       CacheConfig
	Mail        MailConfig
}
