// Package middleware - Authentication middleware.
//
// Кабинет типстера защищён JWT Bearer токенами.
// Токен несёт tipster_id - типстер видит только свои данные.
package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// AuthTipsterIDKey - ключ для хранения Tipster ID в контексте
	AuthTipsterIDKey = "auth_tipster_id"
	// AuthTipsterEmailKey - ключ для хранения email типстера
	AuthTipsterEmailKey = "auth_tipster_email"
	// AuthRoleKey - ключ для хранения роли
	AuthRoleKey = "auth_role"
)

// AuthConfig - конфигурация для authentication middleware.
type AuthConfig struct {
	// TokenValidator - функция для валидации токена
	TokenValidator func(token string) (*AuthClaims, error)
	// SkipPaths - пути, которые не требуют авторизации
	SkipPaths []string
}

// AuthClaims - данные из токена авторизации.
type AuthClaims struct {
	TipsterID string
	Email     string
	Role      string
	Exp       time.Time
}

// jwtCustomClaims - формат JWT claims в токенах платформы.
type jwtCustomClaims struct {
	TipsterID string `json:"tipster_id"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// JWTTokenValidator возвращает валидатор HMAC-подписанных JWT токенов.
//
// Принимаются только HS256/HS384/HS512: алгоритм из заголовка токена
// не доверяется (классическая атака alg=none/RS->HS подмены).
func JWTTokenValidator(secret string) func(token string) (*AuthClaims, error) {
	return func(tokenString string) (*AuthClaims, error) {
		claims := &jwtCustomClaims{}

		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil {
			return nil, err
		}
		if !token.Valid {
			return nil, errors.New("invalid token")
		}
		if claims.TipsterID == "" {
			return nil, errors.New("token missing tipster_id claim")
		}

		var exp time.Time
		if claims.ExpiresAt != nil {
			exp = claims.ExpiresAt.Time
		}

		return &AuthClaims{
			TipsterID: claims.TipsterID,
			Email:     claims.Email,
			Role:      claims.Role,
			Exp:       exp,
		}, nil
	}
}

// IssueToken выпускает JWT для типстера. Используется в тестах
// и в утилитах выдачи токенов.
func IssueToken(secret, tipsterID, email, role string, ttl time.Duration) (string, error) {
	claims := jwtCustomClaims{
		TipsterID: tipsterID,
		Email:     email,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Auth middleware для проверки авторизации.
//
// Схема работы:
// 1. Извлекает токен из заголовка Authorization
// 2. Валидирует токен через TokenValidator
// 3. Добавляет данные типстера в контекст
// 4. Продолжает обработку или возвращает 401
//
// Pattern: Bearer Token Authentication
func Auth(config *AuthConfig) gin.HandlerFunc {
	// Создаём map для быстрой проверки skip paths
	skipMap := make(map[string]bool)
	for _, path := range config.SkipPaths {
		skipMap[path] = true
	}

	return func(c *gin.Context) {
		// Пропускаем определённые пути
		if skipMap[c.Request.URL.Path] {
			c.Next()
			return
		}

		// Извлекаем токен из заголовка
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithUnauthorized(c, "Authorization header is required")
			return
		}

		// Проверяем формат "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortWithUnauthorized(c, "Invalid authorization header format")
			return
		}

		token := parts[1]
		if token == "" {
			abortWithUnauthorized(c, "Token is required")
			return
		}

		// Валидируем токен
		claims, err := config.TokenValidator(token)
		if err != nil {
			abortWithUnauthorized(c, "Invalid or expired token")
			return
		}

		// Проверяем expiration
		if !claims.Exp.IsZero() && claims.Exp.Before(time.Now()) {
			abortWithUnauthorized(c, "Token has expired")
			return
		}

		// Сохраняем claims в контекст
		c.Set(AuthTipsterIDKey, claims.TipsterID)
		c.Set(AuthTipsterEmailKey, claims.Email)
		c.Set(AuthRoleKey, claims.Role)

		c.Next()
	}
}

// abortWithUnauthorized отправляет 401 ответ.
func abortWithUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "UNAUTHORIZED",
			"message": message,
		},
		"request_id": GetRequestID(c),
		"timestamp":  time.Now().UTC(),
	})
}

// RequireRole middleware проверяет роль пользователя.
//
// Используется после Auth middleware для проверки разрешений.
func RequireRole(roles ...string) gin.HandlerFunc {
	roleMap := make(map[string]bool)
	for _, role := range roles {
		roleMap[role] = true
	}

	return func(c *gin.Context) {
		role := GetAuthRole(c)
		if role == "" {
			abortWithForbidden(c, "Role not found")
			return
		}

		if !roleMap[role] {
			abortWithForbidden(c, "Insufficient permissions")
			return
		}

		c.Next()
	}
}

// abortWithForbidden отправляет 403 ответ.
func abortWithForbidden(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "FORBIDDEN",
			"message": message,
		},
		"request_id": GetRequestID(c),
		"timestamp":  time.Now().UTC(),
	})
}

// ============================================
// Helper functions для извлечения auth данных
// ============================================

// GetAuthTipsterID возвращает ID авторизованного типстера.
func GetAuthTipsterID(c *gin.Context) string {
	if id, exists := c.Get(AuthTipsterIDKey); exists {
		if strID, ok := id.(string); ok {
			return strID
		}
	}
	return ""
}

// GetAuthTipsterEmail возвращает email авторизованного типстера.
func GetAuthTipsterEmail(c *gin.Context) string {
	if email, exists := c.Get(AuthTipsterEmailKey); exists {
		if strEmail, ok := email.(string); ok {
			return strEmail
		}
	}
	return ""
}

// GetAuthRole возвращает роль из токена.
func GetAuthRole(c *gin.Context) string {
	if role, exists := c.Get(AuthRoleKey); exists {
		if strRole, ok := role.(string); ok {
			return strRole
		}
	}
	return ""
}
