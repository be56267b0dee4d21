package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrTokenType = errors.New("token 类型不匹配")

// TokenPair 访问令牌与刷新令牌
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// GenerateToken 生成一个新的访问令牌
func GenerateToken(userID uint64, roles []string) (string, error) {
	return generate(userID, roles, TokenTypeAccess, JWTExpirationTime)
}

// GenerateRefreshToken 生成刷新令牌
func GenerateRefreshToken(userID uint64) (string, error) {
	return generate(userID, nil, TokenTypeRefresh, JWTRefreshTime)
}

// GenerateTokenPair 同时签发访问令牌和刷新令牌
func GenerateTokenPair(userID uint64, roles []string) (*TokenPair, error) {
	access, err := GenerateToken(userID, roles)
	if err != nil {
		return nil, err
	}
	refresh, err := GenerateRefreshToken(userID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func generate(userID uint64, roles []string, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &UserClaims{
		UserID:    userID,
		Roles:     roles,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "Mallchat",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(JWTSecret))
	if err != nil {
		return "", fmt.Errorf("签名 Token 失败: %w", err)
	}

	return tokenString, nil
}

// ValidateToken 验证访问令牌并解析出 Claims
func ValidateToken(tokenString string) (*UserClaims, error) {
	return validate(tokenString, TokenTypeAccess)
}

// ValidateRefreshToken 验证刷新令牌
func ValidateRefreshToken(tokenString string) (*UserClaims, error) {
	return validate(tokenString, TokenTypeRefresh)
}

func validate(tokenString, tokenType string) (*UserClaims, error) {
	claims := &UserClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("非预期的签名方法: %v", token.Header["alg"])
		}
		return []byte(JWTSecret), nil
	})

	if err != nil {
		return nil, fmt.Errorf("token 解析失败: %w", err)
	}

	if !token.Valid {
		return nil, errors.New("token 无效或已过期")
	}

	if claims.TokenType != tokenType {
		return nil, ErrTokenType
	}

	return claims, nil
}

// ExtractBearer 从 Authorization 头中取出 token
func ExtractBearer(header string) string {
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}
