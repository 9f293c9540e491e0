package auth

import (
	"testing"
	"time"

	"atomvideo/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-at-least-32-characters!!"

func TestTokenManager_IssueAndParse(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)
	user := &models.User{ID: 42, Username: "atom", Role: models.RoleAdmin}

	token, issued, err := m.Issue(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "atom", claims.Username)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, issued.JTI, claims.JTI)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, 2*time.Second)
}

func TestTokenManager_UniqueJTI(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)
	user := &models.User{ID: 1}
	_, a, err := m.Issue(user)
	require.NoError(t, err)
	_, b, err := m.Issue(user)
	require.NoError(t, err)
	assert.NotEqual(t, a.JTI, b.JTI)
}

func TestTokenManager_ParseRejects(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)
	user := &models.User{ID: 7, Username: "u"}

	valid, _, err := m.Issue(user)
	require.NoError(t, err)

	expired := NewTokenManager(testSecret, time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, _, err := expired.Issue(user)
	require.NoError(t, err)

	otherSecret, _, err := NewTokenManager("another-secret-that-is-long-enough!", time.Hour).Issue(user)
	require.NoError(t, err)

	wrongAud, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "7", "iss": Issuer, "aud": "someone-else", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "7", "iss": Issuer, "aud": Audience, "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	purpose, err := m.IssuePurpose(7, PurposeVerifyEmail, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"tampered", valid + "x"},
		{"expired", expiredToken},
		{"other secret", otherSecret},
		{"wrong audience", wrongAud},
		{"none algorithm", noneAlg},
		{"purpose token used as session", purpose},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Parse(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestTokenManager_PurposeTokens(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)

	token, err := m.IssuePurpose(9, PurposeResetPassword, 30*time.Minute)
	require.NoError(t, err)

	id, err := m.ParsePurpose(token, PurposeResetPassword)
	require.NoError(t, err)
	assert.Equal(t, uint(9), id)

	_, err = m.ParsePurpose(token, PurposeVerifyEmail)
	assert.ErrorIs(t, err, ErrInvalidToken)

	session, _, err := m.Issue(&models.User{ID: 9})
	require.NoError(t, err)
	_, err = m.ParsePurpose(session, PurposeResetPassword)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_EmptySecret(t *testing.T) {
	_, _, err := NewTokenManager("", time.Hour).Issue(&models.User{ID: 1})
	assert.Error(t, err)
}
