// Package auth 用户认证：JWT 令牌管理、口令哈希、能力裁决、HTTP 中间件
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"meals-admin/internal/shared/model"

	"github.com/golang-jwt/jwt/v5"
)

// contextKey context 键类型
type contextKey string

const ctxKeyAuthUser contextKey = "auth_user"

// 令牌类型标记，防止两种令牌互相顶替
const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var (
	// ErrUnauthorized 身份无法确立（缺失/非法/过期的凭证或令牌）
	ErrUnauthorized = errors.New("unauthorized: identity cannot be established")

	// ErrForbidden 身份已确立但缺少所需能力，或账户未激活
	ErrForbidden = errors.New("forbidden: missing required capability")
)

// AuthUser 从 access token 解析出的已认证身份
type AuthUser struct {
	Login        string
	IsAdmin      bool
	Capabilities map[model.Capability]bool
}

// Config 认证配置
type Config struct {
	JWTSecret       string        `yaml:"-"` // 只从 JWT_SECRET 环境变量读取
	Pepper          string        `yaml:"-"` // 只从 PASSWORD_PEPPER 环境变量读取
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
}

// DefaultConfig 返回默认认证配置
func DefaultConfig() Config {
	return Config{
		AccessTokenTTL:  10 * time.Minute,
		RefreshTokenTTL: 14 * 24 * time.Hour,
	}
}

// ============================================================================
// JWT Token
// ============================================================================

// AccessClaims access token 声明：身份 + 授权声明
type AccessClaims struct {
	jwt.RegisteredClaims
	Login        string                   `json:"login"`
	IsAdmin      bool                     `json:"isAdmin,omitempty"`
	Capabilities map[model.Capability]bool `json:"capabilities,omitempty"`
	Type         string                   `json:"type"`
}

// RefreshClaims refresh token 声明：只携带身份和签发时间
type RefreshClaims struct {
	jwt.RegisteredClaims
	Login string `json:"login"`
	Type  string `json:"type"`
}

// GenerateAccessToken 生成访问令牌（短生命周期，分钟级）
func GenerateAccessToken(cfg Config, user *model.User) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Login,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.AccessTokenTTL)),
		},
		Login:        user.Login,
		IsAdmin:      user.IsAdmin,
		Capabilities: user.Capabilities,
		Type:         tokenTypeAccess,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// GenerateRefreshToken 生成刷新令牌（长生命周期，天级）
func GenerateRefreshToken(cfg Config, login string) (string, error) {
	now := time.Now()
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   login,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.RefreshTokenTTL)),
		},
		Login: login,
		Type:  tokenTypeRefresh,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// VerifyAccessToken 解析并验证 access token
// 签名非法或过期一律返回 ErrUnauthorized
func VerifyAccessToken(cfg Config, tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := parseToken(cfg, tokenString, claims); err != nil {
		return nil, err
	}
	if claims.Type != tokenTypeAccess {
		return nil, fmt.Errorf("%w: not an access token", ErrUnauthorized)
	}
	return claims, nil
}

// VerifyRefreshToken 解析并验证 refresh token
// 声明里的签发/过期时间用于续期策略判断
func VerifyRefreshToken(cfg Config, tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := parseToken(cfg, tokenString, claims); err != nil {
		return nil, err
	}
	if claims.Type != tokenTypeRefresh {
		return nil, fmt.Errorf("%w: not a refresh token", ErrUnauthorized)
	}
	return claims, nil
}

func parseToken(cfg Config, tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if !token.Valid {
		return ErrUnauthorized
	}
	return nil
}

// TooShortToExpireRefreshToken 续期策略判断
// 剩余生命周期低于配置总时长的 1/3 时，在刷新周期里机会式地换发新的 refresh token
func TooShortToExpireRefreshToken(cfg Config, claims *RefreshClaims) bool {
	if claims.ExpiresAt == nil {
		return true
	}
	return time.Until(claims.ExpiresAt.Time) < cfg.RefreshTokenTTL/3
}

// ============================================================================
// 能力裁决
// ============================================================================

// Authorize 能力裁决：管理员或持有所需能力的身份放行
//
// 身份未确立（user == nil）时返回 ErrUnauthorized——认证失败先于授权判断，
// 与授权失败（ErrForbidden）严格区分。
func Authorize(user *AuthUser, capability model.Capability) error {
	if user == nil {
		return ErrUnauthorized
	}
	subject := model.User{IsAdmin: user.IsAdmin, Capabilities: user.Capabilities}
	if subject.CanPerform(capability) {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrForbidden, capability)
}

// ============================================================================
// Context 辅助函数
// ============================================================================

// WithAuthUser 将认证身份注入 context
func WithAuthUser(ctx context.Context, user *AuthUser) context.Context {
	return context.WithValue(ctx, ctxKeyAuthUser, user)
}

// GetAuthUser 从 context 获取认证身份
func GetAuthUser(ctx context.Context) *AuthUser {
	user, _ := ctx.Value(ctxKeyAuthUser).(*AuthUser)
	return user
}
