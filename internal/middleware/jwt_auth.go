package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ==================== JWT 配置 ====================

// JWTConfig JWT 配置
type JWTConfig struct {
	SecretKey      string        // 签名密钥
	AccessTokenTTL time.Duration // 会话有效期
	Issuer         string        // 签发者
}

// DefaultJWTConfig 默认配置
func DefaultJWTConfig() *JWTConfig {
	return &JWTConfig{
		SecretKey:      "vendor-hub-secret-key-change-in-production",
		AccessTokenTTL: 24 * time.Hour,
		Issuer:         "vendor-hub",
	}
}

// 全局配置
var jwtConfig = DefaultJWTConfig()

// SetJWTConfig 设置 JWT 配置
func SetJWTConfig(cfg *JWTConfig) {
	jwtConfig = cfg
}

// GetJWTConfig 获取 JWT 配置
func GetJWTConfig() *JWTConfig {
	return jwtConfig
}

// ==================== Claims 定义 ====================

// SessionClaims 会话声明
// 店主的 ShopDomain 即租户标识；供应商为空
type SessionClaims struct {
	UserID     int64  `json:"user_id"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	ShopDomain string `json:"shop_domain,omitempty"`
	jwt.RegisteredClaims
}

// ==================== Token 生成 / 解析 ====================

// GenerateAccessToken 生成会话 Token
func GenerateAccessToken(userID int64, email, role, shopDomain string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(jwtConfig.AccessTokenTTL)
	claims := &SessionClaims{
		UserID:     userID,
		Email:      email,
		Role:       role,
		ShopDomain: shopDomain,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    jwtConfig.Issuer,
			Subject:   "access",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(jwtConfig.SecretKey))
	return signed, expiresAt, err
}

// ParseToken 解析 Token
func ParseToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(jwtConfig.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.Subject != "access" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// BearerToken 从 Authorization 头提取 Bearer Token
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// ==================== Gin 中间件 ====================

// Context Keys
const (
	ContextKeyUserID     = "user_id"
	ContextKeyRole       = "role"
	ContextKeyShopDomain = "shop_domain"
	ContextKeyClaims     = "claims"
)

// SessionAuth 会话认证中间件
// 当前租户只从会话中解析，不接受客户端传入
func SessionAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortJSON(c, http.StatusUnauthorized, "未提供认证信息")
			return
		}

		raw, ok := BearerToken(authHeader)
		if !ok {
			abortJSON(c, http.StatusUnauthorized, "认证格式错误，应为 Bearer {token}")
			return
		}

		claims, err := ParseToken(raw)
		if err != nil {
			abortJSON(c, http.StatusUnauthorized, "Token 无效或已过期")
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyRole, claims.Role)
		c.Set(ContextKeyShopDomain, claims.ShopDomain)
		c.Set(ContextKeyClaims, claims)

		c.Next()
	}
}

// RequireRole 角色权限校验中间件
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole := GetUserRole(c)
		if userRole == "" {
			abortJSON(c, http.StatusUnauthorized, "未获取到用户角色")
			return
		}

		for _, r := range roles {
			if userRole == r {
				c.Next()
				return
			}
		}
		abortJSON(c, http.StatusForbidden, "无权限访问")
	}
}

// ==================== 辅助函数 ====================

func abortJSON(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   msg,
	})
}

// GetUserID 从 Context 获取用户 ID
func GetUserID(c *gin.Context) int64 {
	if id, exists := c.Get(ContextKeyUserID); exists {
		return id.(int64)
	}
	return 0
}

// GetUserRole 从 Context 获取用户角色
func GetUserRole(c *gin.Context) string {
	if role, exists := c.Get(ContextKeyRole); exists {
		return role.(string)
	}
	return ""
}

// GetShopDomain 从 Context 获取当前租户
func GetShopDomain(c *gin.Context) string {
	if shop, exists := c.Get(ContextKeyShopDomain); exists {
		return shop.(string)
	}
	return ""
}

// GetClaims 从 Context 获取完整 Claims
func GetClaims(c *gin.Context) *SessionClaims {
	if claims, exists := c.Get(ContextKeyClaims); exists {
		return claims.(*SessionClaims)
	}
	return nil
}
