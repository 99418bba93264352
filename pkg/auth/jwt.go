package auth

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Роли пользователей
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const wsTicketUsage = "websocket_auth"

var (
	// ErrTokenExpired означает, что срок действия токена истек
	ErrTokenExpired = errors.New("token is expired")
	// ErrTokenInvalid означает, что токен поврежден, подписан другим ключом или не подходит по назначению
	ErrTokenInvalid = errors.New("token is invalid")
)

// Claims содержит пользовательские поля токена
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	// Usage отличает WS-тикет от обычного токена доступа
	Usage string `json:"usage,omitempty"`
	jwt.RegisteredClaims
}

// IsAdmin проверяет роль администратора
func (c *Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// JWTService выпускает и проверяет HS256 токены
type JWTService struct {
	secret         []byte
	expiration     time.Duration
	wsTicketExpiry time.Duration
	issuer         string
}

// NewJWTService создает сервис JWT
func NewJWTService(secret string, expirationHrs int, wsTicketExpirySec int) (*JWTService, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if expirationHrs <= 0 {
		expirationHrs = 24
	}
	wsExpiry := time.Duration(wsTicketExpirySec) * time.Second
	if wsExpiry <= 0 {
		wsExpiry = 60 * time.Second
	}
	return &JWTService{
		secret:         []byte(secret),
		expiration:     time.Duration(expirationHrs) * time.Hour,
		wsTicketExpiry: wsExpiry,
		issuer:         "vibtrix-api",
	}, nil
}

func (s *JWTService) sign(claims *Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.UserID,
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// GenerateToken выпускает токен доступа пользователя
func (s *JWTService) GenerateToken(userID, role string) (string, error) {
	if userID == "" {
		return "", errors.New("user id is required")
	}
	if role == "" {
		role = RoleUser
	}
	return s.sign(&Claims{UserID: userID, Role: role}, s.expiration)
}

// GenerateWSTicket выпускает короткоживущий тикет для подключения к WebSocket
func (s *JWTService) GenerateWSTicket(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("user id is required")
	}
	return s.sign(&Claims{UserID: userID, Role: RoleUser, Usage: wsTicketUsage}, s.wsTicketExpiry)
}

func (s *JWTService) parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, ErrTokenExpired
		}
		log.Printf("[JWT] Ошибка при разборе токена: %v", err)
		return nil, ErrTokenInvalid
	}
	if !token.Valid || claims.UserID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// ParseToken проверяет токен доступа. WS-тикеты не принимаются.
func (s *JWTService) ParseToken(tokenString string) (*Claims, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Usage == wsTicketUsage {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// ParseWSTicket проверяет тикет подключения к WebSocket
func (s *JWTService) ParseWSTicket(ticket string) (*Claims, error) {
	claims, err := s.parse(ticket)
	if err != nil {
		return nil, err
	}
	if claims.Usage != wsTicketUsage {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
