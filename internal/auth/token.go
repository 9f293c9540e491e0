package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"atomvideo/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	Issuer   = "atomvideo-api"
	Audience = "atomvideo-client"
)

// Token purposes for emailed links.
const (
	PurposeVerifyEmail   = "verify_email"
	PurposeResetPassword = "reset_password"
)

// Claims is the verified content of a session token.
type Claims struct {
	UserID    uint
	Username  string
	Role      models.Role
	JTI       string
	ExpiresAt time.Time
}

// TokenManager signs and verifies HS256 session and purpose tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager returns a manager signing with secret; sessions live for ttl.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL is the lifetime of session tokens.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Issue mints a session token for user.
func (m *TokenManager) Issue(user *models.User) (string, *Claims, error) {
	if len(m.secret) == 0 {
		return "", nil, errors.New("JWT secret not configured")
	}

	now := m.now()
	c := &Claims{
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		JTI:       newJTI(now),
		ExpiresAt: now.Add(m.ttl),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(user.ID), 10),
		"username": user.Username,
		"role":     string(user.Role),
		"iss":      Issuer,
		"aud":      Audience,
		"exp":      c.ExpiresAt.Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      c.JTI,
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, c, nil
}

// Parse verifies a session token and returns its claims.
// Purpose tokens are rejected.
func (m *TokenManager) Parse(tokenString string) (*Claims, error) {
	claims, err := m.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if _, ok := claims["purpose"]; ok {
		return nil, ErrInvalidToken
	}

	userID, err := subject(claims)
	if err != nil {
		return nil, err
	}
	jti, _ := claims["jti"].(string)
	username, _ := claims["username"].(string)
	role, _ := claims["role"].(string)
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, ErrInvalidToken
	}

	return &Claims{
		UserID:    userID,
		Username:  username,
		Role:      models.Role(role),
		JTI:       jti,
		ExpiresAt: exp.Time,
	}, nil
}

// IssuePurpose mints a single-purpose token (email verification, password reset).
func (m *TokenManager) IssuePurpose(userID uint, purpose string, ttl time.Duration) (string, error) {
	now := m.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":     strconv.FormatUint(uint64(userID), 10),
		"purpose": purpose,
		"iss":     Issuer,
		"aud":     Audience,
		"exp":     now.Add(ttl).Unix(),
		"iat":     now.Unix(),
		"jti":     newJTI(now),
	})
	return token.SignedString(m.secret)
}

// ParsePurpose verifies a purpose token and returns the user it was issued for.
func (m *TokenManager) ParsePurpose(tokenString, purpose string) (uint, error) {
	claims, err := m.parse(tokenString)
	if err != nil {
		return 0, err
	}
	if p, _ := claims["purpose"].(string); p != purpose {
		return 0, ErrInvalidToken
	}
	return subject(claims)
}

func (m *TokenManager) parse(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func subject(claims jwt.MapClaims) (uint, error) {
	sub, ok := claims["sub"].(string)
	if !ok {
		return 0, ErrInvalidToken
	}
	id, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || id == 0 {
		return 0, ErrInvalidToken
	}
	return uint(id), nil
}

func newJTI(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.Unix(), uuid.NewString())
}
