// Package jwt 签发与校验访问令牌
// 服务端只校验令牌;GenerateToken供运维工具和测试签发令牌
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/xiebiao/library/pkg/errors"
)

// 角色
const (
	RoleMember = "member" // 普通读者
	RoleAdmin  = "admin"  // 管理员,可以维护馆藏
)

// Manager JWT管理器
type Manager struct {
	secret            string
	issuer            string
	accessTokenExpire time.Duration
}

// NewManager 创建JWT管理器
func NewManager(secret, issuer string, accessTokenExpire time.Duration) *Manager {
	return &Manager{
		secret:            secret,
		issuer:            issuer,
		accessTokenExpire: accessTokenExpire,
	}
}

// Claims 访问令牌声明
type Claims struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// IsAdmin 是否为管理员
func (c *Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// GenerateToken 签发访问令牌
func (m *Manager) GenerateToken(userID uint, role string) (string, error) {
	now := time.Now()
	if role == "" {
		role = RoleMember
	}

	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTokenExpire)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    m.issuer,
			Subject:   fmt.Sprintf("%d", userID),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.secret))
	if err != nil {
		return "", apperrors.WrapInternal(err, "生成Token失败")
	}
	return token, nil
}

// ParseToken 校验并解析访问令牌
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("非法的签名算法: %v", token.Header["alg"])
		}
		return []byte(m.secret), nil
	}, jwt.WithIssuer(m.issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == 0 {
		return nil, apperrors.ErrInvalidToken
	}
	return claims, nil
}
