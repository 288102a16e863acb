package jwt

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/workforce-engine/internal/domain/identity"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const (
	TokenTypeAccess = "access"
	TokenTypeSSE    = "sse"
)

// Claims are the identity claims the engine reads from a verified token.
type Claims struct {
	UserID     string
	EmployeeID string
	Role       identity.Role
	Type       string
}

type Service interface {
	GenerateAccessToken(userID string, employeeID string, role identity.Role) (token string, expiresAt int64, err error)
	GenerateSSEToken(userID string, employeeID string, role identity.Role) (token string, expiresIn int, err error)
	ValidateSSEToken(tokenString string) (Claims, error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	accessTokenExpiration time.Duration
	sseTokenExpiration    time.Duration
	tokenAuth             *jwtauth.JWTAuth
	now                   func() time.Time
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string, accessTokenExpiration, sseTokenExpiration time.Duration) *JWTService {
	return &JWTService{
		accessTokenExpiration: accessTokenExpiration,
		sseTokenExpiration:    sseTokenExpiration,
		tokenAuth:             jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
		now:                   time.Now,
	}
}

func (j *JWTService) encode(userID, employeeID string, role identity.Role, tokenType string, ttl time.Duration) (string, int64, error) {
	expiresAt := j.now().Add(ttl).Unix()

	claims := map[string]interface{}{
		"user_id": userID,
		"role":    string(role),
		"type":    tokenType,
		"exp":     expiresAt,
	}
	if employeeID != "" {
		claims["employee_id"] = employeeID
	}

	_, tokenString, err := j.tokenAuth.Encode(claims)
	return tokenString, expiresAt, err
}

func (j *JWTService) GenerateAccessToken(userID string, employeeID string, role identity.Role) (token string, expiresAt int64, err error) {
	return j.encode(userID, employeeID, role, TokenTypeAccess, j.accessTokenExpiration)
}

// GenerateSSEToken generates a short-lived token for SSE connections, which
// cannot send an Authorization header from a browser.
func (j *JWTService) GenerateSSEToken(userID string, employeeID string, role identity.Role) (token string, expiresIn int, err error) {
	token, _, err = j.encode(userID, employeeID, role, TokenTypeSSE, j.sseTokenExpiration)
	if err != nil {
		return "", 0, err
	}
	return token, int(j.sseTokenExpiration.Seconds()), nil
}

// ValidateSSEToken validates an SSE token and returns its claims
func (j *JWTService) ValidateSSEToken(tokenString string) (Claims, error) {
	token, err := j.tokenAuth.Decode(tokenString)
	if err != nil {
		return Claims{}, err
	}
	if err := jwt.Validate(token, jwt.WithAcceptableSkew(30*time.Second)); err != nil {
		return Claims{}, err
	}

	claims, err := ClaimsFromMap(token.PrivateClaims())
	if err != nil {
		return Claims{}, err
	}
	if claims.Type != TokenTypeSSE {
		return Claims{}, jwt.ErrInvalidJWT()
	}
	return claims, nil
}

// ClaimsFromMap reads identity claims from a decoded claim set.
func ClaimsFromMap(raw map[string]interface{}) (Claims, error) {
	userID, ok := raw["user_id"].(string)
	if !ok || userID == "" {
		return Claims{}, fmt.Errorf("%w: user_id claim missing", jwt.ErrInvalidJWT())
	}
	role, ok := raw["role"].(string)
	if !ok {
		return Claims{}, fmt.Errorf("%w: role claim missing", jwt.ErrInvalidJWT())
	}
	tokenType, _ := raw["type"].(string)
	employeeID, _ := raw["employee_id"].(string)

	return Claims{
		UserID:     userID,
		EmployeeID: employeeID,
		Role:       identity.Role(role),
		Type:       tokenType,
	}, nil
}
