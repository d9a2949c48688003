package authentication

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Ezizuardo/Trilink/config"
	"github.com/Ezizuardo/Trilink/models/users"
)

// Claims API-токена. Для студентов токен несёт и токен сессии
// устройства, чтобы ограничение «одно устройство» действовало и для
// API-клиентов.
type Claims struct {
	UserID      uint   `json:"uid"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	DeviceToken string `json:"device_token,omitempty"`
	jwt.RegisteredClaims
}

// IssueToken подписывает HS256-токен на 24 часа.
func IssueToken(user *users.User, deviceToken string) (string, error) {
	claims := &Claims{
		UserID:      user.ID,
		Email:       user.Email,
		Role:        user.Role,
		DeviceToken: deviceToken,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.App.JWTSecret))
}

// ParseToken проверяет подпись и срок действия.
func ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return []byte(config.App.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
